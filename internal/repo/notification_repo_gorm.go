package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

type NotificationRepo struct{ db *gorm.DB }

func NewNotificationRepo(db *gorm.DB) *NotificationRepo { return &NotificationRepo{db: db} }

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Notification, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Notification{}).Where("user_id = ?", userID)
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var notes []domain.Notification
	if err := tx.Offset(offset).Limit(limit).Order("created_at desc").Find(&notes).Error; err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id uint, userID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}
