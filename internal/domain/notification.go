package domain

import (
	"context"
	"time"
)

// Notification 工作流事件的站内通知（邮件之外的落库副本）
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:36;not null;index" json:"userId"`
	Title     string    `gorm:"size:191;not null" json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	Type      string    `gorm:"size:16;not null;default:info" json:"type"` // info|success|warning|error
	PaperID   *string   `gorm:"size:36" json:"paperId,omitempty"`
	IsRead    bool      `gorm:"not null;default:false" json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Notification) TableName() string { return "notifications" }

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]Notification, int64, error)
	MarkRead(ctx context.Context, id uint, userID string) (bool, error)
}
