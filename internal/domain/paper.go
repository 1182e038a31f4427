package domain

import (
	"context"
	"time"
)

// PaperStatus 论文生命周期状态
type PaperStatus string

const (
	StatusSubmitted   PaperStatus = "SUBMITTED"
	StatusUnderReview PaperStatus = "UNDER_REVIEW"
	StatusAccepted    PaperStatus = "ACCEPTED"
	StatusRejected    PaperStatus = "REJECTED"
	StatusPublished   PaperStatus = "PUBLISHED"
)

func (s PaperStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusAccepted, StatusRejected, StatusPublished:
		return true
	}
	return false
}

// Terminal 终态不再流转
func (s PaperStatus) Terminal() bool {
	return s == StatusPublished || s == StatusRejected
}

type Paper struct {
	ID       string      `gorm:"primaryKey;size:36" json:"id"`
	Title    string      `gorm:"size:255;not null" json:"title"`
	Abstract string      `gorm:"type:text" json:"abstract"`
	Category string      `gorm:"size:64" json:"category"`
	Status   PaperStatus `gorm:"size:16;not null;default:SUBMITTED;index" json:"status"`

	// DOI 只在 publish 时写入一次，non-null iff PUBLISHED
	DOI         *string    `gorm:"uniqueIndex;size:64" json:"doi,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	ArchivedAt  *time.Time `json:"archivedAt,omitempty"`

	// 冷备回执（外部服务返回的元数据，core 不做 I/O）
	FileURL   string     `gorm:"size:512" json:"fileUrl,omitempty"`
	BackupURL string     `gorm:"size:512" json:"backupUrl,omitempty"`
	BackupAt  *time.Time `json:"backupAt,omitempty"`

	Authors     []PaperAuthor        `gorm:"constraint:OnDelete:CASCADE" json:"authors,omitempty"`
	Assignments []ReviewerAssignment `gorm:"constraint:OnDelete:CASCADE" json:"assignments,omitempty"`
	Comments    []Comment            `gorm:"constraint:OnDelete:CASCADE" json:"comments,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Paper) TableName() string { return "papers" }

// PaperAuthor 有序作者列表，corresponding 标记通讯作者
type PaperAuthor struct {
	ID            uint   `gorm:"primaryKey" json:"-"`
	PaperID       string `gorm:"size:36;not null;index" json:"-"`
	UserID        string `gorm:"size:36;not null" json:"userId"`
	Position      int    `gorm:"not null" json:"position"`
	Corresponding bool   `gorm:"not null;default:false" json:"corresponding"`
}

func (PaperAuthor) TableName() string { return "paper_authors" }

// ReviewerAssignment 每 (paper, reviewer) 唯一
type ReviewerAssignment struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	PaperID    string    `gorm:"size:36;not null;uniqueIndex:uq_paper_reviewer" json:"paperId"`
	ReviewerID string    `gorm:"size:36;not null;uniqueIndex:uq_paper_reviewer" json:"reviewerId"`
	AssignedBy string    `gorm:"size:36;not null" json:"assignedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (ReviewerAssignment) TableName() string { return "reviewer_assignments" }

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PaperID   string    `gorm:"size:36;not null;index" json:"paperId"`
	AuthorID  string    `gorm:"size:36;not null" json:"authorId"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Comment) TableName() string { return "paper_comments" }

// StatusUpdate 状态 CAS 更新：写入时校验当前 status == From
type StatusUpdate struct {
	From        PaperStatus
	To          PaperStatus
	DOI         *string
	PublishedAt *time.Time
}

type PaperRepository interface {
	Create(ctx context.Context, p *Paper) error
	// FindByID returns (nil, nil) when no such paper exists.
	FindByID(ctx context.Context, id string) (*Paper, error)
	List(ctx context.Context, offset, limit int, status PaperStatus) ([]Paper, int64, error)
	// ListByReviewer returns papers carrying an assignment for reviewerID.
	ListByReviewer(ctx context.Context, reviewerID string, offset, limit int) ([]Paper, int64, error)
	// TransitionStatus performs the compare-and-swap guarded update. It
	// returns false when the paper's current status no longer equals u.From.
	TransitionStatus(ctx context.Context, id string, u StatusUpdate) (bool, error)
	AddAssignment(ctx context.Context, a *ReviewerAssignment) error
	RemoveAssignment(ctx context.Context, paperID, reviewerID string) (bool, error)
	AddComment(ctx context.Context, c *Comment) error
	SetArchived(ctx context.Context, id string, at time.Time) (bool, error)
	SetBackup(ctx context.Context, id, url string, at time.Time) error
	// Delete removes the paper and its owned rows. Only the explicit
	// delete path reaches this; nothing cascades implicitly.
	Delete(ctx context.Context, id string) error
}
