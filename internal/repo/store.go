package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

// Store gorm 实现的仓库聚合。进程启动时用同一个 *gorm.DB 构造一次。
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Users() domain.UserRepository                 { return NewUserRepo(s.db) }
func (s *Store) Papers() domain.PaperRepository               { return NewPaperRepo(s.db) }
func (s *Store) Audit() domain.AuditRepository                { return NewAuditRepo(s.db) }
func (s *Store) Sequences() domain.DoiSequenceRepository      { return NewDoiSequenceRepo(s.db) }
func (s *Store) Notifications() domain.NotificationRepository { return NewNotificationRepo(s.db) }

func (s *Store) InTx(ctx context.Context, fn func(tx domain.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// AutoMigrate keeps schema management in one place for both binaries.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Paper{},
		&domain.PaperAuthor{},
		&domain.ReviewerAssignment{},
		&domain.Comment{},
		&domain.DoiSequence{},
		&domain.AuditLogEntry{},
		&domain.Notification{},
	)
}
