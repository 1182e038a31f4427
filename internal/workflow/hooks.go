package workflow

import "github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"

// Hooks 事务提交之后触发的外部协作者信号。实现必须 fire-and-forget：
// 引擎不等待、不持锁跨网络调用，协作者失败也不回滚已提交的流转。
type Hooks interface {
	// PaperChanged signals the search index to resync one record.
	PaperChanged(paperID string)
	// Decision fires on transitions to ACCEPTED / REJECTED / PUBLISHED.
	Decision(p *domain.Paper, to domain.PaperStatus)
	// Published fires the cold-storage backup trigger.
	Published(p *domain.Paper)
}

// NopHooks 缺省空实现
type NopHooks struct{}

func (NopHooks) PaperChanged(string)                        {}
func (NopHooks) Decision(*domain.Paper, domain.PaperStatus) {}
func (NopHooks) Published(*domain.Paper)                    {}
