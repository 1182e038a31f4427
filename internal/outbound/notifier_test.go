package outbound

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

type memNotes struct {
	created []domain.Notification
	fail    error
}

func (m *memNotes) Create(_ context.Context, n *domain.Notification) error {
	if m.fail != nil {
		return m.fail
	}
	m.created = append(m.created, *n)
	return nil
}

func (m *memNotes) ListByUser(_ context.Context, _ string, _, _ int) ([]domain.Notification, int64, error) {
	return nil, 0, nil
}

func (m *memNotes) MarkRead(_ context.Context, _ uint, _ string) (bool, error) { return false, nil }

type memUsers struct{ users map[string]*domain.User }

func (m *memUsers) Create(_ context.Context, _ *domain.User) error { return nil }
func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	return m.users[id], nil
}
func (m *memUsers) FindByEmail(_ context.Context, _ string) (*domain.User, error) { return nil, nil }
func (m *memUsers) List(_ context.Context, _, _ int, _ string) ([]domain.User, int64, error) {
	return nil, 0, nil
}
func (m *memUsers) Update(_ context.Context, _ *domain.User) error { return nil }
func (m *memUsers) UpdateRole(_ context.Context, _ string, _ domain.Role) (bool, error) {
	return false, nil
}
func (m *memUsers) SetActive(_ context.Context, _ string, _ bool) (bool, error) { return false, nil }

func publishedPaper() *domain.Paper {
	d := "10.ORG.DEPT/2026.00007"
	return &domain.Paper{
		ID:     "p-1",
		Title:  "Streaming Joins at Scale",
		Status: domain.StatusPublished,
		DOI:    &d,
		Authors: []domain.PaperAuthor{
			{PaperID: "p-1", UserID: "u-1", Position: 0, Corresponding: true},
			{PaperID: "p-1", UserID: "u-2", Position: 1},
		},
	}
}

func TestNotifyDecisionWritesOneRowPerAuthor(t *testing.T) {
	notes := &memNotes{}
	users := &memUsers{users: map[string]*domain.User{
		"u-1": {ID: "u-1", Email: "first@example.edu"},
		"u-2": {ID: "u-2", Email: "second@example.edu"},
	}}
	n := NewNotifier(nil, notes, users, zap.NewNop())

	n.NotifyDecision(publishedPaper(), domain.StatusPublished)

	if len(notes.created) != 2 {
		t.Fatalf("created %d notification rows, want 2", len(notes.created))
	}
	for _, row := range notes.created {
		if row.Title != "Paper published" || row.Type != "success" {
			t.Fatalf("row = %+v", row)
		}
		if row.PaperID == nil || *row.PaperID != "p-1" {
			t.Fatalf("row not linked to paper: %+v", row)
		}
	}
	// 发布消息要带 DOI
	if msg := notes.created[0].Message; !strings.Contains(msg, "10.ORG.DEPT/2026.00007") {
		t.Fatalf("published message should carry the DOI, got %q", msg)
	}
}

func TestNotifyDecisionIgnoresNonDecisionStates(t *testing.T) {
	notes := &memNotes{}
	n := NewNotifier(nil, notes, &memUsers{}, zap.NewNop())

	n.NotifyDecision(publishedPaper(), domain.StatusUnderReview)
	if len(notes.created) != 0 {
		t.Fatalf("UNDER_REVIEW must not notify, created %d rows", len(notes.created))
	}
}

func TestNotifyDecisionSwallowsStorageFailure(t *testing.T) {
	notes := &memNotes{fail: errors.New("disk full")}
	n := NewNotifier(nil, notes, &memUsers{users: map[string]*domain.User{}}, zap.NewNop())

	// 只告警，不 panic：通知失败不影响已提交的流转
	n.NotifyDecision(publishedPaper(), domain.StatusAccepted)
}

type memBackupClient struct {
	reqs []BackupRequest
	res  BackupResult
	fail error
}

func (m *memBackupClient) Backup(_ context.Context, req BackupRequest) (BackupResult, error) {
	m.reqs = append(m.reqs, req)
	return m.res, m.fail
}

type memPapers struct {
	backupURL string
	backupAt  time.Time
}

func (m *memPapers) Create(_ context.Context, _ *domain.Paper) error          { return nil }
func (m *memPapers) FindByID(_ context.Context, _ string) (*domain.Paper, error) { return nil, nil }
func (m *memPapers) List(_ context.Context, _, _ int, _ domain.PaperStatus) ([]domain.Paper, int64, error) {
	return nil, 0, nil
}
func (m *memPapers) ListByReviewer(_ context.Context, _ string, _, _ int) ([]domain.Paper, int64, error) {
	return nil, 0, nil
}
func (m *memPapers) TransitionStatus(_ context.Context, _ string, _ domain.StatusUpdate) (bool, error) {
	return false, nil
}
func (m *memPapers) AddAssignment(_ context.Context, _ *domain.ReviewerAssignment) error { return nil }
func (m *memPapers) RemoveAssignment(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}
func (m *memPapers) AddComment(_ context.Context, _ *domain.Comment) error { return nil }
func (m *memPapers) SetArchived(_ context.Context, _ string, _ time.Time) (bool, error) {
	return false, nil
}
func (m *memPapers) SetBackup(_ context.Context, _ string, url string, at time.Time) error {
	m.backupURL = url
	m.backupAt = at
	return nil
}
func (m *memPapers) Delete(_ context.Context, _ string) error { return nil }

func TestBackupTriggerPersistsReceipt(t *testing.T) {
	at := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	client := &memBackupClient{res: BackupResult{StorageURL: "cold://papers/p-1", BackedUpAt: at}}
	papers := &memPapers{}

	p := publishedPaper()
	p.FileURL = "https://files.example.edu/p-1.pdf"
	NewBackupTrigger(client, papers, zap.NewNop()).Trigger(p)

	if len(client.reqs) != 1 || client.reqs[0].DOI != *p.DOI {
		t.Fatalf("backup request = %+v", client.reqs)
	}
	if papers.backupURL != "cold://papers/p-1" || !papers.backupAt.Equal(at) {
		t.Fatalf("receipt not persisted: url=%q at=%v", papers.backupURL, papers.backupAt)
	}
}

func TestBackupTriggerDisabledWithoutClientOrFile(t *testing.T) {
	papers := &memPapers{}
	NewBackupTrigger(nil, papers, zap.NewNop()).Trigger(publishedPaper())
	if papers.backupURL != "" {
		t.Fatalf("nil client must disable the trigger")
	}

	client := &memBackupClient{}
	NewBackupTrigger(client, papers, zap.NewNop()).Trigger(publishedPaper()) // no FileURL
	if len(client.reqs) != 0 {
		t.Fatalf("paper without a file must not be backed up")
	}
}
