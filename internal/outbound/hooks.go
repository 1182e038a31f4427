package outbound

import (
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

// Hooks 把各个协作者信号装配成 workflow.Hooks；
// 每个信号单独起 goroutine，提交后的流转从不等待它们。
type Hooks struct {
	Search   *SearchSync
	Notifier *Notifier
	Backup   *BackupTrigger
}

func (h *Hooks) PaperChanged(paperID string) {
	if h.Search != nil {
		go h.Search.Resync(paperID)
	}
}

func (h *Hooks) Decision(p *domain.Paper, to domain.PaperStatus) {
	if h.Notifier != nil {
		go h.Notifier.NotifyDecision(p, to)
	}
}

func (h *Hooks) Published(p *domain.Paper) {
	if h.Backup != nil {
		go h.Backup.Trigger(p)
	}
}
