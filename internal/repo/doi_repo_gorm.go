package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

type DoiSequenceRepo struct{ db *gorm.DB }

func NewDoiSequenceRepo(db *gorm.DB) *DoiSequenceRepo { return &DoiSequenceRepo{db: db} }

// Next 单条 UPDATE counter = counter + 1 在存储层原子自增；
// 不存在再 upsert（并发首次插入退化为自增）。调用方在事务里跑时，
// 行锁保持到提交，随后的读取必然看到自己的增量。
func (r *DoiSequenceRepo) Next(ctx context.Context, year int) (int64, error) {
	db := r.db.WithContext(ctx)

	res := db.Model(&domain.DoiSequence{}).
		Where("year = ?", year).
		UpdateColumn("counter", gorm.Expr("counter + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "year"}},
			DoUpdates: clause.Assignments(map[string]any{"counter": gorm.Expr("doi_sequences.counter + 1")}),
		}).Create(&domain.DoiSequence{Year: year, Counter: 1}).Error
		if err != nil {
			return 0, err
		}
	}

	var seq domain.DoiSequence
	if err := db.First(&seq, "year = ?", year).Error; err != nil {
		return 0, err
	}
	return seq.Counter, nil
}
