package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/authz"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/doi"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

// ---- in-memory Store：事务用快照回滚模拟 ----

type memData struct {
	mu          sync.Mutex
	users       map[string]domain.User
	papers      map[string]domain.Paper
	assignments []domain.ReviewerAssignment
	comments    []domain.Comment
	audits      []domain.AuditLogEntry
	counters    map[int]int64
	notes       []domain.Notification

	failAudit error
	failSeq   error
	failFind  error

	// 事务外的论文读取钩子，用来在测试里钉住并发交错
	onFindPaper func()
}

type memStore struct {
	d    *memData
	inTx bool
}

func newMemStore() *memStore {
	return &memStore{d: &memData{
		users:    map[string]domain.User{},
		papers:   map[string]domain.Paper{},
		counters: map[int]int64{},
	}}
}

func (s *memStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.d.mu.Lock()
	return s.d.mu.Unlock
}

func (s *memStore) Users() domain.UserRepository                 { return memUsers{s} }
func (s *memStore) Papers() domain.PaperRepository               { return memPapers{s} }
func (s *memStore) Audit() domain.AuditRepository                { return memAudits{s} }
func (s *memStore) Sequences() domain.DoiSequenceRepository      { return memSeqs{s} }
func (s *memStore) Notifications() domain.NotificationRepository { return memNotes{s} }

func (s *memStore) InTx(_ context.Context, fn func(tx domain.Store) error) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	papers := make(map[string]domain.Paper, len(s.d.papers))
	for k, v := range s.d.papers {
		papers[k] = v
	}
	users := make(map[string]domain.User, len(s.d.users))
	for k, v := range s.d.users {
		users[k] = v
	}
	counters := make(map[int]int64, len(s.d.counters))
	for k, v := range s.d.counters {
		counters[k] = v
	}
	assignments := append([]domain.ReviewerAssignment(nil), s.d.assignments...)
	comments := append([]domain.Comment(nil), s.d.comments...)
	nAudits, nNotes := len(s.d.audits), len(s.d.notes)

	if err := fn(&memStore{d: s.d, inTx: true}); err != nil {
		s.d.papers = papers
		s.d.users = users
		s.d.counters = counters
		s.d.assignments = assignments
		s.d.comments = comments
		s.d.audits = s.d.audits[:nAudits]
		s.d.notes = s.d.notes[:nNotes]
		return err
	}
	return nil
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *domain.User) error {
	defer r.s.lock()()
	r.s.d.users[u.ID] = *u
	return nil
}

func (r memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	defer r.s.lock()()
	if u, ok := r.s.d.users[id]; ok {
		cp := u
		return &cp, nil
	}
	return nil, nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.d.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memUsers) List(_ context.Context, _, _ int, _ string) ([]domain.User, int64, error) {
	defer r.s.lock()()
	out := make([]domain.User, 0, len(r.s.d.users))
	for _, u := range r.s.d.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (r memUsers) Update(_ context.Context, u *domain.User) error {
	defer r.s.lock()()
	r.s.d.users[u.ID] = *u
	return nil
}

func (r memUsers) UpdateRole(_ context.Context, id string, role domain.Role) (bool, error) {
	defer r.s.lock()()
	u, ok := r.s.d.users[id]
	if !ok {
		return false, nil
	}
	u.Role = role
	r.s.d.users[id] = u
	return true, nil
}

func (r memUsers) SetActive(_ context.Context, id string, active bool) (bool, error) {
	defer r.s.lock()()
	u, ok := r.s.d.users[id]
	if !ok {
		return false, nil
	}
	u.IsActive = active
	r.s.d.users[id] = u
	return true, nil
}

type memPapers struct{ s *memStore }

func (r memPapers) Create(_ context.Context, p *domain.Paper) error {
	defer r.s.lock()()
	r.s.d.papers[p.ID] = *p
	return nil
}

func (r memPapers) FindByID(_ context.Context, id string) (*domain.Paper, error) {
	if !r.s.inTx && r.s.d.onFindPaper != nil {
		r.s.d.onFindPaper()
	}
	defer r.s.lock()()
	if r.s.d.failFind != nil {
		return nil, r.s.d.failFind
	}
	p, ok := r.s.d.papers[id]
	if !ok {
		return nil, nil
	}
	cp := p
	for _, a := range r.s.d.assignments {
		if a.PaperID == id {
			cp.Assignments = append(cp.Assignments, a)
		}
	}
	for _, c := range r.s.d.comments {
		if c.PaperID == id {
			cp.Comments = append(cp.Comments, c)
		}
	}
	return &cp, nil
}

func (r memPapers) List(_ context.Context, _, _ int, _ domain.PaperStatus) ([]domain.Paper, int64, error) {
	defer r.s.lock()()
	out := make([]domain.Paper, 0, len(r.s.d.papers))
	for _, p := range r.s.d.papers {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r memPapers) ListByReviewer(_ context.Context, reviewerID string, _, _ int) ([]domain.Paper, int64, error) {
	defer r.s.lock()()
	var out []domain.Paper
	for _, a := range r.s.d.assignments {
		if a.ReviewerID == reviewerID {
			if p, ok := r.s.d.papers[a.PaperID]; ok {
				out = append(out, p)
			}
		}
	}
	return out, int64(len(out)), nil
}

func (r memPapers) TransitionStatus(_ context.Context, id string, u domain.StatusUpdate) (bool, error) {
	defer r.s.lock()()
	p, ok := r.s.d.papers[id]
	if !ok || p.Status != u.From {
		return false, nil
	}
	p.Status = u.To
	if u.DOI != nil {
		p.DOI = u.DOI
	}
	if u.PublishedAt != nil {
		p.PublishedAt = u.PublishedAt
	}
	r.s.d.papers[id] = p
	return true, nil
}

func (r memPapers) AddAssignment(_ context.Context, a *domain.ReviewerAssignment) error {
	defer r.s.lock()()
	for _, ex := range r.s.d.assignments {
		if ex.PaperID == a.PaperID && ex.ReviewerID == a.ReviewerID {
			return errors.New("duplicate assignment")
		}
	}
	r.s.d.assignments = append(r.s.d.assignments, *a)
	return nil
}

func (r memPapers) RemoveAssignment(_ context.Context, paperID, reviewerID string) (bool, error) {
	defer r.s.lock()()
	for i, a := range r.s.d.assignments {
		if a.PaperID == paperID && a.ReviewerID == reviewerID {
			out := append([]domain.ReviewerAssignment(nil), r.s.d.assignments[:i]...)
			r.s.d.assignments = append(out, r.s.d.assignments[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r memPapers) AddComment(_ context.Context, c *domain.Comment) error {
	defer r.s.lock()()
	r.s.d.comments = append(r.s.d.comments, *c)
	return nil
}

func (r memPapers) SetArchived(_ context.Context, id string, at time.Time) (bool, error) {
	defer r.s.lock()()
	p, ok := r.s.d.papers[id]
	if !ok || p.ArchivedAt != nil {
		return false, nil
	}
	p.ArchivedAt = &at
	r.s.d.papers[id] = p
	return true, nil
}

func (r memPapers) SetBackup(_ context.Context, id, url string, at time.Time) error {
	defer r.s.lock()()
	p, ok := r.s.d.papers[id]
	if !ok {
		return errors.New("no such paper")
	}
	p.BackupURL = url
	p.BackupAt = &at
	r.s.d.papers[id] = p
	return nil
}

func (r memPapers) Delete(_ context.Context, id string) error {
	defer r.s.lock()()
	delete(r.s.d.papers, id)
	var kept []domain.ReviewerAssignment
	for _, a := range r.s.d.assignments {
		if a.PaperID != id {
			kept = append(kept, a)
		}
	}
	r.s.d.assignments = kept
	var keptC []domain.Comment
	for _, c := range r.s.d.comments {
		if c.PaperID != id {
			keptC = append(keptC, c)
		}
	}
	r.s.d.comments = keptC
	return nil
}

type memAudits struct{ s *memStore }

func (r memAudits) Append(_ context.Context, e *domain.AuditLogEntry) error {
	defer r.s.lock()()
	if r.s.d.failAudit != nil {
		return r.s.d.failAudit
	}
	e.ID = uint(len(r.s.d.audits) + 1)
	r.s.d.audits = append(r.s.d.audits, *e)
	return nil
}

func (r memAudits) Search(_ context.Context, _ domain.AuditFilter) ([]domain.AuditLogEntry, int64, error) {
	defer r.s.lock()()
	return append([]domain.AuditLogEntry(nil), r.s.d.audits...), int64(len(r.s.d.audits)), nil
}

type memSeqs struct{ s *memStore }

func (r memSeqs) Next(_ context.Context, year int) (int64, error) {
	defer r.s.lock()()
	if r.s.d.failSeq != nil {
		return 0, r.s.d.failSeq
	}
	r.s.d.counters[year]++
	return r.s.d.counters[year], nil
}

type memNotes struct{ s *memStore }

func (r memNotes) Create(_ context.Context, n *domain.Notification) error {
	defer r.s.lock()()
	r.s.d.notes = append(r.s.d.notes, *n)
	return nil
}

func (r memNotes) ListByUser(_ context.Context, userID string, _, _ int) ([]domain.Notification, int64, error) {
	defer r.s.lock()()
	var out []domain.Notification
	for _, n := range r.s.d.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (r memNotes) MarkRead(_ context.Context, id uint, userID string) (bool, error) {
	defer r.s.lock()()
	for i, n := range r.s.d.notes {
		if n.ID == id && n.UserID == userID {
			r.s.d.notes[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

type storeResolver struct{ s domain.Store }

func (r storeResolver) Resolve(ctx context.Context, actorID string) (*domain.User, error) {
	return r.s.Users().FindByID(ctx, actorID)
}

type recHooks struct {
	mu            sync.Mutex
	changed       []string
	decisions     []domain.PaperStatus
	published     []string
	publishedDOIs []string
}

func (h *recHooks) PaperChanged(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changed = append(h.changed, id)
}

func (h *recHooks) Decision(p *domain.Paper, to domain.PaperStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.decisions = append(h.decisions, to)
}

func (h *recHooks) Published(p *domain.Paper) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.published = append(h.published, p.ID)
	if p.DOI != nil {
		h.publishedDOIs = append(h.publishedDOIs, *p.DOI)
	}
}

// ---- fixture ----

type fixture struct {
	store *memStore
	eng   *Engine
	hooks *recHooks

	author, reviewer, editor, dean *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	hooks := &recHooks{}

	az := authz.NewEngine(storeResolver{store}, authz.DefaultRules(), store.Audit(), zap.NewNop())
	eng := NewEngine(store, az, doi.NewAllocator("ORG", "DEPT"), hooks, zap.NewNop())
	eng.now = func() time.Time { return time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC) }

	f := &fixture{store: store, eng: eng, hooks: hooks}
	f.author = f.addUser(t, "author-1", domain.RoleAuthor)
	f.reviewer = f.addUser(t, "reviewer-1", domain.RoleReviewer)
	f.editor = f.addUser(t, "editor-1", domain.RoleEditor)
	f.dean = f.addUser(t, "dean-1", domain.RoleDean)
	return f
}

func (f *fixture) addUser(t *testing.T, id string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{ID: id, Email: id + "@example.edu", Role: role, IsActive: true}
	if err := f.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return u
}

func (f *fixture) submit(t *testing.T) *domain.Paper {
	t.Helper()
	p, err := f.eng.Submit(context.Background(), f.author.ID, SubmitInput{
		Title:    "Adaptive Indexing for Sensor Streams",
		Abstract: "We revisit adaptive indexing.",
		Category: "CS",
		Authors:  []domain.PaperAuthor{{UserID: f.author.ID, Corresponding: true}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return p
}

func (f *fixture) mustStatus(t *testing.T, id string, want domain.PaperStatus) *domain.Paper {
	t.Helper()
	p, err := f.store.Papers().FindByID(context.Background(), id)
	if err != nil || p == nil {
		t.Fatalf("reload paper %s: (%v, %v)", id, p, err)
	}
	if p.Status != want {
		t.Fatalf("paper %s status = %s, want %s", id, p.Status, want)
	}
	return p
}

func auditActions(d *memData) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.audits))
	for _, e := range d.audits {
		out = append(out, e.Action)
	}
	return out
}

// ---- tests ----

func TestSubmitCreatesSubmittedPaperWithAudit(t *testing.T) {
	f := newFixture(t)
	p := f.submit(t)

	got := f.mustStatus(t, p.ID, domain.StatusSubmitted)
	if got.DOI != nil {
		t.Fatalf("fresh paper must not carry a DOI")
	}
	if len(got.Authors) != 0 && got.Authors[0].Position != 0 {
		t.Fatalf("author positions start at 0, got %+v", got.Authors)
	}

	actions := auditActions(f.store.d)
	if len(actions) != 1 || actions[0] != "paper.submit" {
		t.Fatalf("audit trail after submit = %v", actions)
	}
	if len(f.hooks.changed) != 1 {
		t.Fatalf("submit should signal one change, got %d", len(f.hooks.changed))
	}
}

func TestFullLifecycleToPublishedIssuesDOI(t *testing.T) {
	f := newFixture(t)
	p := f.submit(t)
	ctx := context.Background()

	if _, err := f.eng.Transition(ctx, f.reviewer.ID, p.ID, domain.StatusUnderReview, ""); err != nil {
		t.Fatalf("review: %v", err)
	}
	if _, err := f.eng.Transition(ctx, f.editor.ID, p.ID, domain.StatusAccepted, "strong reviews"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	pub, err := f.eng.Transition(ctx, f.editor.ID, p.ID, domain.StatusPublished, "")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if pub.Status != domain.StatusPublished {
		t.Fatalf("status after publish = %s", pub.Status)
	}
	if pub.DOI == nil || *pub.DOI != "10.ORG.DEPT/2026.00001" {
		t.Fatalf("doi = %v, want 10.ORG.DEPT/2026.00001", pub.DOI)
	}
	if pub.PublishedAt == nil || pub.PublishedAt.Year() != 2026 {
		t.Fatalf("publishedAt = %v", pub.PublishedAt)
	}

	// 每次成功流转恰好一条审计记录
	actions := auditActions(f.store.d)
	want := []string{"paper.submit", "paper.transition.review", "paper.transition.accept", "paper.transition.publish"}
	if len(actions) != len(want) {
		t.Fatalf("audit trail = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("audit trail = %v, want %v", actions, want)
		}
	}

	if len(f.hooks.published) != 1 || f.hooks.published[0] != p.ID {
		t.Fatalf("publish hook fired %v", f.hooks.published)
	}
	// ACCEPTED 与 PUBLISHED 各触发一次决定通知
	if len(f.hooks.decisions) != 2 {
		t.Fatalf("decision hooks = %v", f.hooks.decisions)
	}
}

func TestSecondPublishedPaperGetsNextSerial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	publish := func() string {
		p := f.submit(t)
		if _, err := f.eng.Transition(ctx, f.reviewer.ID, p.ID, domain.StatusUnderReview, ""); err != nil {
			t.Fatalf("review: %v", err)
		}
		if _, err := f.eng.Transition(ctx, f.editor.ID, p.ID, domain.StatusAccepted, ""); err != nil {
			t.Fatalf("accept: %v", err)
		}
		pub, err := f.eng.Transition(ctx, f.editor.ID, p.ID, domain.StatusPublished, "")
		if err != nil {
			t.Fatalf("publish: %v", err)
		}
		return *pub.DOI
	}

	if d := publish(); d != "10.ORG.DEPT/2026.00001" {
		t.Fatalf("first doi = %s", d)
	}
	if d := publish(); d != "10.ORG.DEPT/2026.00002" {
		t.Fatalf("second doi = %s", d)
	}
}

func TestReviewerCannotPublish(t *testing.T) {
	f := newFixture(t)
	p := f.submit(t)
	ctx := context.Background()

	if _, err := f.eng.Transition(ctx, f.reviewer.ID, p.ID, domain.StatusUnderReview, ""); err != nil {
		t.Fatalf("review: %v", err)
	}

	_, err := f.eng.Transition(ctx, f.reviewer.ID, p.ID, domain.StatusPublished, "")
	var ir *domain.InsufficientRoleError
	if !errors.As(err, &ir) {
		t.Fatalf("reviewer publish = %v, want InsufficientRoleError", err)
	}

	// 状态不变，且拒绝本身已留痕
	f.mustStatus(t, p.ID, domain.StatusUnderReview)
	actions := auditActions(f.store.d)
	if actions[len(actions)-1] != "access_denied" {
		t.Fatalf("last audit action = %v, want access_denied", actions)
	}
}

func TestDeactivatedEditorCannotTransition(t *testing.T) {
	f := newFixture(t)
	p := f.submit(t)
	ctx := context.Background()

	if _, err := f.store.Users().SetActive(ctx, f.editor.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := f.eng.Transition(ctx, f.editor.ID, p.ID, domain.StatusUnderReview, "")
	if !errors.Is(err, domain.ErrAccountDeactivated) {
		t.Fatalf("deactivated editor transition = %v, want ErrAccountDeactivated", err)
	}
	f.mustStatus(t, p.ID, domain.StatusSubmitted)
}

func TestInvalidEdgeIsBlockedAndAudited(t *testing.T) {
	f := newFixture(t)
	p := f.submit(t)

	// SUBMITTED -> PUBLISHED 不是表里的边
	_, err := f.eng.Transition(context.Background(), f.editor.ID, p.ID, domain.StatusPublished, "")
	var it *domain.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("invalid edge = %v, want InvalidTransitionError", err)
	}
	if it.From != domain.StatusSubmitted || it.To != domain.StatusPublished {
		t.Fatalf("error edge = %s -> %s", it.From, it.To)
	}

	f.mustStatus(t, p.ID, domain.StatusSubmitted)

	f.store.d.mu.Lock()
	last := f.store.d.audits[len(f.store.d.audits)-1]
	f.store.d.mu.Unlock()
	if !strings.Contains(last.Detail, "blocked") {
		t.Fatalf("blocked attempt should be audited, last entry = %+v", last)
	}
}

func TestTerminalStatesAcceptNoFurtherTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.submit(t)
	if _, err := f.eng.Transition(ctx, f.editor.ID, p.ID, domain.StatusRejected, "out of scope"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	for _, to := range []domain.PaperStatus{domain.StatusUnderReview, domain.StatusAccepted, domain.StatusPublished} {
		var it *domain.InvalidTransitionError
		if _, err := f.eng.Transition(ctx, f.editor.ID, p.ID, to, ""); !errors.As(err, &it) {
			t.Fatalf("REJECTED -> %s = %v, want InvalidTransitionError", to, err)
		}
	}
	f.mustStatus(t, p.ID, domain.StatusRejected)
}

func TestPublishedDOIIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.submit(t)
	for _, to := range []domain.PaperStatus{domain.StatusUnderReview, domain.StatusAccepted, domain.StatusPublished} {
		if _, err := f.eng.Transition(ctx, f.editor.ID, p.ID, to, ""); err != nil {
			t.Fatalf("to %s: %v", to, err)
		}
	}
	before := f.mustStatus(t, p.ID, domain.StatusPublished)

	if _, err := f.eng.Transition(ctx, f.editor.ID, p.ID, domain.StatusRejected, ""); err == nil {
		t.Fatalf("PUBLISHED must be terminal")
	}
	after := f.mustStatus(t, p.ID, domain.StatusPublished)
	if *after.DOI != *before.DOI {
		t.Fatalf("doi changed from %s to %s", *before.DOI, *after.DOI)
	}
}

func TestReloadFailureStillYieldsCommittedView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.submit(t)
	for _, to := range []domain.PaperStatus{domain.StatusUnderReview, domain.StatusAccepted} {
		if _, err := f.eng.Transition(ctx, f.editor.ID, p.ID, to, ""); err != nil {
			t.Fatalf("to %s: %v", to, err)
		}
	}

	// 循环首读放行，提交后的回读失败
	reads := 0
	f.store.d.onFindPaper = func() {
		reads++
		if reads == 2 {
			f.store.d.failFind = errors.New("connection reset")
		}
	}

	pub, err := f.eng.Transition(ctx, f.editor.ID, p.ID, domain.StatusPublished, "")
	if err != nil {
		t.Fatalf("publish with failing reload: %v", err)
	}
	// 返回视图与钩子入参都必须反映已提交的结果，不能是旧快照
	if pub.Status != domain.StatusPublished {
		t.Fatalf("returned status = %s, want PUBLISHED", pub.Status)
	}
	if pub.DOI == nil || *pub.DOI != "10.ORG.DEPT/2026.00001" {
		t.Fatalf("returned doi = %v, want 10.ORG.DEPT/2026.00001", pub.DOI)
	}
	if pub.PublishedAt == nil {
		t.Fatalf("returned view must carry publishedAt")
	}
	if len(f.hooks.publishedDOIs) != 1 || f.hooks.publishedDOIs[0] != *pub.DOI {
		t.Fatalf("publish hook saw DOIs %v, want [%s]", f.hooks.publishedDOIs, *pub.DOI)
	}

	f.store.d.failFind = nil
	f.store.d.onFindPaper = nil
	f.mustStatus(t, p.ID, domain.StatusPublished)
}

func TestConcurrentSameEdgeHasExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.submit(t)
	if _, err := f.eng.Transition(ctx, f.reviewer.ID, p.ID, domain.StatusUnderReview, ""); err != nil {
		t.Fatalf("review: %v", err)
	}

	// 两个执行方都要先读到 UNDER_REVIEW 才允许继续，保证真正竞争同一条边
	var gateMu sync.Mutex
	reads := 0
	bothRead := make(chan struct{})
	f.store.d.onFindPaper = func() {
		gateMu.Lock()
		reads++
		n := reads
		gateMu.Unlock()
		switch {
		case n == 1:
			<-bothRead
		case n == 2:
			close(bothRead)
		}
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.eng.Transition(ctx, f.editor.ID, p.ID, domain.StatusAccepted, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflict int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrConcurrentModification):
			conflict++
		default:
			t.Fatalf("unexpected error from concurrent transition: %v", err)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Fatalf("winners=%d conflicts=%d, want exactly one of each", ok, conflict)
	}

	f.mustStatus(t, p.ID, domain.StatusAccepted)
	accepts := 0
	for _, a := range auditActions(f.store.d) {
		if a == "paper.transition.accept" {
			accepts++
		}
	}
	if accepts != 1 {
		t.Fatalf("exactly one accept may be audited, got %d", accepts)
	}
}

func TestAuditWriteFailureAbortsTransition(t *testing.T) {
	f := newFixture(t)
	p := f.submit(t)

	f.store.d.failAudit = errors.New("disk full")
	_, err := f.eng.Transition(context.Background(), f.reviewer.ID, p.ID, domain.StatusUnderReview, "")
	if !errors.Is(err, domain.ErrAuditWriteFailure) {
		t.Fatalf("transition with failing audit = %v, want ErrAuditWriteFailure", err)
	}

	// 事务回滚：状态不得前进
	f.store.d.failAudit = nil
	f.mustStatus(t, p.ID, domain.StatusSubmitted)
}

func TestAllocationFailureRollsBackPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.submit(t)
	for _, to := range []domain.PaperStatus{domain.StatusUnderReview, domain.StatusAccepted} {
		if _, err := f.eng.Transition(ctx, f.editor.ID, p.ID, to, ""); err != nil {
			t.Fatalf("to %s: %v", to, err)
		}
	}

	f.store.d.failSeq = errors.New("deadlock")
	_, err := f.eng.Transition(ctx, f.editor.ID, p.ID, domain.StatusPublished, "")
	if !errors.Is(err, domain.ErrAllocationFailure) {
		t.Fatalf("publish with failing sequence = %v, want ErrAllocationFailure", err)
	}

	f.store.d.failSeq = nil
	got := f.mustStatus(t, p.ID, domain.StatusAccepted)
	if got.DOI != nil {
		t.Fatalf("failed publish must not leave a DOI behind")
	}

	// 计数器随事务回滚，下一次成功签发仍是 00001
	pub, err := f.eng.Transition(ctx, f.editor.ID, p.ID, domain.StatusPublished, "")
	if err != nil {
		t.Fatalf("publish after recovery: %v", err)
	}
	if *pub.DOI != "10.ORG.DEPT/2026.00001" {
		t.Fatalf("doi after rollback = %s, want 10.ORG.DEPT/2026.00001", *pub.DOI)
	}
}

func TestAssignReviewerValidatesRoleAndState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t)

	// 作者不能被指派为审稿人
	var ir *domain.InsufficientRoleError
	if err := f.eng.AssignReviewer(ctx, f.editor.ID, p.ID, f.author.ID); !errors.As(err, &ir) {
		t.Fatalf("assigning an author = %v, want InsufficientRoleError", err)
	}

	if err := f.eng.AssignReviewer(ctx, f.editor.ID, p.ID, f.reviewer.ID); err != nil {
		t.Fatalf("assign reviewer: %v", err)
	}
	got, _ := f.store.Papers().FindByID(ctx, p.ID)
	if len(got.Assignments) != 1 || got.Assignments[0].ReviewerID != f.reviewer.ID {
		t.Fatalf("assignments = %+v", got.Assignments)
	}
	queue, _, err := f.store.Papers().ListByReviewer(ctx, f.reviewer.ID, 0, 20)
	if err != nil || len(queue) != 1 || queue[0].ID != p.ID {
		t.Fatalf("review queue = (%v, %v)", queue, err)
	}

	// 审稿人无权指派
	if err := f.eng.AssignReviewer(ctx, f.reviewer.ID, p.ID, f.reviewer.ID); !errors.As(err, &ir) {
		t.Fatalf("reviewer assigning = %v, want InsufficientRoleError", err)
	}

	// 终态论文不再接受指派
	if _, err := f.eng.Transition(ctx, f.editor.ID, p.ID, domain.StatusRejected, ""); err != nil {
		t.Fatalf("reject: %v", err)
	}
	var it *domain.InvalidTransitionError
	if err := f.eng.AssignReviewer(ctx, f.editor.ID, p.ID, f.reviewer.ID); !errors.As(err, &it) {
		t.Fatalf("assign on terminal paper = %v, want InvalidTransitionError", err)
	}
}

func TestCommentsRejectedOnTerminalPapers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t)

	c, err := f.eng.AddComment(ctx, f.reviewer.ID, p.ID, "needs a related-work section")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if c.AuthorID != f.reviewer.ID {
		t.Fatalf("comment author = %s", c.AuthorID)
	}

	if _, err := f.eng.Transition(ctx, f.editor.ID, p.ID, domain.StatusRejected, ""); err != nil {
		t.Fatalf("reject: %v", err)
	}
	var it *domain.InvalidTransitionError
	if _, err := f.eng.AddComment(ctx, f.reviewer.ID, p.ID, "too late"); !errors.As(err, &it) {
		t.Fatalf("comment on terminal paper = %v, want InvalidTransitionError", err)
	}
}

func TestArchiveRequiresPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t)

	var it *domain.InvalidTransitionError
	if err := f.eng.Archive(ctx, f.editor.ID, p.ID); !errors.As(err, &it) {
		t.Fatalf("archive of SUBMITTED = %v, want InvalidTransitionError", err)
	}

	for _, to := range []domain.PaperStatus{domain.StatusUnderReview, domain.StatusAccepted, domain.StatusPublished} {
		if _, err := f.eng.Transition(ctx, f.editor.ID, p.ID, to, ""); err != nil {
			t.Fatalf("to %s: %v", to, err)
		}
	}
	if err := f.eng.Archive(ctx, f.editor.ID, p.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	got := f.mustStatus(t, p.ID, domain.StatusPublished)
	if got.ArchivedAt == nil {
		t.Fatalf("archive must set the timestamp")
	}
}

func TestDeleteIsDeanOnlyAndCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t)

	if err := f.eng.AssignReviewer(ctx, f.editor.ID, p.ID, f.reviewer.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.eng.AddComment(ctx, f.reviewer.ID, p.ID, "hold"); err != nil {
		t.Fatalf("comment: %v", err)
	}

	var ir *domain.InsufficientRoleError
	if err := f.eng.Delete(ctx, f.editor.ID, p.ID); !errors.As(err, &ir) {
		t.Fatalf("editor delete = %v, want InsufficientRoleError", err)
	}

	if err := f.eng.Delete(ctx, f.dean.ID, p.ID); err != nil {
		t.Fatalf("dean delete: %v", err)
	}
	got, err := f.store.Papers().FindByID(ctx, p.ID)
	if err != nil || got != nil {
		t.Fatalf("paper should be gone, got (%v, %v)", got, err)
	}
	f.store.d.mu.Lock()
	defer f.store.d.mu.Unlock()
	if len(f.store.d.assignments) != 0 || len(f.store.d.comments) != 0 {
		t.Fatalf("owned rows must cascade on delete")
	}
}
