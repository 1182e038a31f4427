package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

type PaperRepo struct{ db *gorm.DB }

func NewPaperRepo(db *gorm.DB) *PaperRepo { return &PaperRepo{db: db} }

func (r *PaperRepo) Create(ctx context.Context, p *domain.Paper) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaperRepo) FindByID(ctx context.Context, id string) (*domain.Paper, error) {
	var p domain.Paper
	err := r.db.WithContext(ctx).
		Preload("Authors", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("Assignments").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaperRepo) List(ctx context.Context, offset, limit int, status domain.PaperStatus) ([]domain.Paper, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Paper{})
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var papers []domain.Paper
	if err := tx.Offset(offset).Limit(limit).Order("created_at desc").Find(&papers).Error; err != nil {
		return nil, 0, err
	}
	return papers, total, nil
}

// ListByReviewer 审稿队列：按指派关系过滤
func (r *PaperRepo) ListByReviewer(ctx context.Context, reviewerID string, offset, limit int) ([]domain.Paper, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Paper{}).
		Joins("JOIN reviewer_assignments ra ON ra.paper_id = papers.id").
		Where("ra.reviewer_id = ?", reviewerID)
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var papers []domain.Paper
	if err := tx.Offset(offset).Limit(limit).Order("papers.created_at desc").Find(&papers).Error; err != nil {
		return nil, 0, err
	}
	return papers, total, nil
}

// TransitionStatus 写入时以 status = From 为条件做 CAS：
// 并发竞争下恰好一个成功，RowsAffected == 0 即现状已被别人改掉。
func (r *PaperRepo) TransitionStatus(ctx context.Context, id string, u domain.StatusUpdate) (bool, error) {
	updates := map[string]any{"status": u.To}
	if u.DOI != nil {
		updates["doi"] = *u.DOI
	}
	if u.PublishedAt != nil {
		updates["published_at"] = *u.PublishedAt
	}
	res := r.db.WithContext(ctx).Model(&domain.Paper{}).
		Where("id = ? AND status = ?", id, u.From).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PaperRepo) AddAssignment(ctx context.Context, a *domain.ReviewerAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *PaperRepo) RemoveAssignment(ctx context.Context, paperID, reviewerID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("paper_id = ? AND reviewer_id = ?", paperID, reviewerID).
		Delete(&domain.ReviewerAssignment{})
	return res.RowsAffected > 0, res.Error
}

func (r *PaperRepo) AddComment(ctx context.Context, c *domain.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *PaperRepo) SetArchived(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Paper{}).
		Where("id = ? AND archived_at IS NULL", id).
		Update("archived_at", at)
	return res.RowsAffected > 0, res.Error
}

func (r *PaperRepo) SetBackup(ctx context.Context, id, url string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Paper{}).
		Where("id = ?", id).
		Updates(map[string]any{"backup_url": url, "backup_at": at}).Error
}

// Delete 显式删除路径：级联清掉论文独占的行
func (r *PaperRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("paper_id = ?", id).Delete(&domain.ReviewerAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("paper_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("paper_id = ?", id).Delete(&domain.PaperAuthor{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Paper{}, "id = ?", id).Error
	})
}
