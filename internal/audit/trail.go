// Package audit fronts the append-only audit log. Recording comes in two
// strengths: Record for state-changing actions (a failure aborts the
// caller's transaction) and Try for read-only events like access denials
// (dropped with a warning).
package audit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

type Trail struct {
	repo domain.AuditRepository
	log  *zap.Logger
}

func New(repo domain.AuditRepository, log *zap.Logger) *Trail {
	return &Trail{repo: repo, log: log}
}

// Entry builds a log row for actor. actor may be nil (unknown identity).
func Entry(actor *domain.User, action, targetType, targetID, detail string) *domain.AuditLogEntry {
	e := &domain.AuditLogEntry{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
	}
	if actor != nil {
		e.ActorID = actor.ID
		e.ActorEmail = actor.Email
	}
	return e
}

// Record appends e; on failure the error wraps ErrAuditWriteFailure so the
// triggering operation aborts with it.
func (t *Trail) Record(ctx context.Context, e *domain.AuditLogEntry) error {
	if err := t.repo.Append(ctx, e); err != nil {
		return fmt.Errorf("%w: %s on %s/%s: %v", domain.ErrAuditWriteFailure, e.Action, e.TargetType, e.TargetID, err)
	}
	return nil
}

// Try appends e best-effort.
func (t *Trail) Try(ctx context.Context, e *domain.AuditLogEntry) {
	if err := t.repo.Append(ctx, e); err != nil {
		t.log.Warn("audit entry dropped",
			zap.String("action", e.Action), zap.String("target", e.TargetID), zap.Error(err))
	}
}

func (t *Trail) Search(ctx context.Context, f domain.AuditFilter) ([]domain.AuditLogEntry, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	return t.repo.Search(ctx, f)
}
