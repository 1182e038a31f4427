package domain

import "context"

// Store 把各仓库聚合在一个显式构造、依赖注入的句柄后面；
// 进程内只有一个连接池，按引用传给各组件。
type Store interface {
	Users() UserRepository
	Papers() PaperRepository
	Audit() AuditRepository
	Sequences() DoiSequenceRepository
	Notifications() NotificationRepository

	// InTx runs fn against a transaction-scoped Store. State mutation and
	// its audit write form one atomic unit: both commit or both roll back.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
