// Package outbound holds the fire-and-forget collaborator signals emitted
// after a workflow transaction commits: search resync, notification and
// cold-storage backup. None of them may block or roll back a transition.
package outbound

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SearchSync 向 redis 列表推送 "resync this record" 信号；
// 索引服务自行批量消费、重试，最终一致。
type SearchSync struct {
	rdb   *redis.Client
	queue string
	log   *zap.Logger
}

func NewSearchSync(rdb *redis.Client, queue string, log *zap.Logger) *SearchSync {
	return &SearchSync{rdb: rdb, queue: queue, log: log}
}

func (s *SearchSync) Resync(paperID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.rdb.LPush(ctx, s.queue, paperID).Err(); err != nil {
		s.log.Warn("search resync signal dropped", zap.String("paper", paperID), zap.Error(err))
	}
}
