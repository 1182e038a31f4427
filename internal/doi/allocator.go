package doi

import (
	"context"
	"fmt"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

// Allocator 按年签发严格递增的序号。唯一性由存储层的原子自增保证，
// 不在应用层做 read-then-write。签发后的 DOI 不可变、不可回收。
type Allocator struct {
	Prefix Prefix
}

func NewAllocator(org, dept string) *Allocator {
	return &Allocator{Prefix: Prefix{Org: org, Dept: dept}}
}

// Allocate draws the next serial for year from seqs and renders the DOI.
// Callers invoking it inside a transaction get gap-free rollback for free.
func (a *Allocator) Allocate(ctx context.Context, seqs domain.DoiSequenceRepository, year int) (string, error) {
	serial, err := seqs.Next(ctx, year)
	if err != nil {
		return "", fmt.Errorf("%w: year %d: %v", domain.ErrAllocationFailure, year, err)
	}
	if serial <= 0 {
		return "", fmt.Errorf("%w: year %d: inconsistent counter %d", domain.ErrAllocationFailure, year, serial)
	}
	// 序号段只有五位，用穿了就拒发：签出格式必须能被 Parse 回读
	if serial > maxSerial {
		return "", fmt.Errorf("%w: year %d: serial space exhausted (%d)", domain.ErrAllocationFailure, year, serial)
	}
	return a.Prefix.Format(year, serial), nil
}
