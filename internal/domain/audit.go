package domain

import (
	"context"
	"time"
)

// AuditLogEntry 只追加，不提供 update/delete（合规要求）
type AuditLogEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActorID    string    `gorm:"size:36;not null;index" json:"actorId"`
	ActorEmail string    `gorm:"size:191;not null" json:"actorEmail"`
	Action     string    `gorm:"size:100;not null;index" json:"action"`
	TargetType string    `gorm:"size:64;not null" json:"targetType"`
	TargetID   string    `gorm:"size:64;not null;index" json:"targetId"`
	Detail     string    `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (AuditLogEntry) TableName() string { return "audit_log" }

type AuditFilter struct {
	Action string // substring match on action
	Query  string // free text over actor email / target id / target type
	Offset int
	Limit  int
}

// AuditRepository is append-only by contract: no update or delete exists.
type AuditRepository interface {
	Append(ctx context.Context, e *AuditLogEntry) error
	// Search returns entries newest-first.
	Search(ctx context.Context, f AuditFilter) ([]AuditLogEntry, int64, error)
}
