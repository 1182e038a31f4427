package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

// AuditRepo 只实现 Append 和 Search；update/delete 路径从设计上不存在。
type AuditRepo struct{ db *gorm.DB }

func NewAuditRepo(db *gorm.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Append(ctx context.Context, e *domain.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *AuditRepo) Search(ctx context.Context, f domain.AuditFilter) ([]domain.AuditLogEntry, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.AuditLogEntry{})
	if s := strings.TrimSpace(f.Action); s != "" {
		tx = tx.Where("action LIKE ?", "%"+s+"%")
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + s + "%"
		tx = tx.Where("actor_email LIKE ? OR target_id LIKE ? OR target_type LIKE ?", like, like, like)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []domain.AuditLogEntry
	if err := tx.Offset(f.Offset).Limit(f.Limit).Order("created_at desc, id desc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
