package outbound

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

// BackupRequest 发给冷备服务的信号载荷
type BackupRequest struct {
	PaperID string
	FileURL string
	Title   string
	DOI     string
}

type BackupResult struct {
	StorageURL string
	BackedUpAt time.Time
}

// BackupClient 外部冷备服务的边界契约；core 不做文件 I/O。
type BackupClient interface {
	Backup(ctx context.Context, req BackupRequest) (BackupResult, error)
}

// BackupTrigger 发布后触发冷备，把服务回执的 URL/时间戳持久化为元数据。
type BackupTrigger struct {
	client BackupClient // nil disables the trigger
	papers domain.PaperRepository
	log    *zap.Logger
}

func NewBackupTrigger(client BackupClient, papers domain.PaperRepository, log *zap.Logger) *BackupTrigger {
	return &BackupTrigger{client: client, papers: papers, log: log}
}

func (b *BackupTrigger) Trigger(p *domain.Paper) {
	if b.client == nil || p.FileURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req := BackupRequest{PaperID: p.ID, FileURL: p.FileURL, Title: p.Title}
	if p.DOI != nil {
		req.DOI = *p.DOI
	}
	res, err := b.client.Backup(ctx, req)
	if err != nil {
		b.log.Warn("backup trigger failed", zap.String("paper", p.ID), zap.Error(err))
		return
	}
	if err := b.papers.SetBackup(ctx, p.ID, res.StorageURL, res.BackedUpAt); err != nil {
		b.log.Warn("backup metadata not persisted", zap.String("paper", p.ID), zap.Error(err))
	}
}
