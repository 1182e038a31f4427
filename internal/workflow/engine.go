// Package workflow owns the paper lifecycle state machine. Every entry
// point runs the same spine: authorize → validate → one transaction
// holding the state mutation and its audit row → post-commit signals.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/audit"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/authz"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/doi"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
	"github.com/CICTstudcoDingle/ictirc-sub002/pkg/utils"
)

type Engine struct {
	store domain.Store
	authz *authz.Engine
	alloc *doi.Allocator
	hooks Hooks
	log   *zap.Logger
	now   func() time.Time
}

func NewEngine(store domain.Store, az *authz.Engine, alloc *doi.Allocator, hooks Hooks, log *zap.Logger) *Engine {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Engine{store: store, authz: az, alloc: alloc, hooks: hooks, log: log, now: time.Now}
}

// authorize 所有受控入口共用：拒绝即映射到错误分类
func (e *Engine) authorize(ctx context.Context, actorID, action string) (*domain.User, error) {
	actor, dec, err := e.authz.Authorize(ctx, actorID, action, true)
	if err != nil {
		return nil, err
	}
	if !dec.Allowed {
		var actual domain.Role
		if actor != nil {
			actual = actor.Role
		}
		return nil, dec.Err(actual)
	}
	return actor, nil
}

type SubmitInput struct {
	Title    string
	Abstract string
	Category string
	FileURL  string
	Authors  []domain.PaperAuthor // ordered; positions assigned here
}

// Submit creates a paper in SUBMITTED. Any authenticated active role may
// submit; the operation is audited like every state-changing call.
func (e *Engine) Submit(ctx context.Context, actorID string, in SubmitInput) (*domain.Paper, error) {
	actor, err := e.authorize(ctx, actorID, "paper.submit")
	if err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	p := &domain.Paper{
		ID:       utils.NewID(),
		Title:    in.Title,
		Abstract: in.Abstract,
		Category: in.Category,
		FileURL:  in.FileURL,
		Status:   domain.StatusSubmitted,
	}
	for i := range in.Authors {
		in.Authors[i].PaperID = p.ID
		in.Authors[i].Position = i
	}
	p.Authors = in.Authors

	err = e.store.InTx(ctx, func(tx domain.Store) error {
		if err := tx.Papers().Create(ctx, p); err != nil {
			return err
		}
		return audit.New(tx.Audit(), e.log).Record(ctx,
			audit.Entry(actor, "paper.submit", "paper", p.ID, "title: "+p.Title))
	})
	if err != nil {
		return nil, err
	}
	e.hooks.PaperChanged(p.ID)
	return p, nil
}

// Transition moves a paper along one edge of the table. A CAS miss is
// retried exactly once by re-reading and re-validating; the second miss
// surfaces as ConcurrentModification.
func (e *Engine) Transition(ctx context.Context, actorID, paperID string, to domain.PaperStatus, note string) (*domain.Paper, error) {
	if !to.Valid() {
		return nil, &domain.InvalidTransitionError{To: to}
	}
	action := ActionFor(to)
	actor, err := e.authorize(ctx, actorID, action)
	if err != nil {
		return nil, err
	}

	trail := audit.New(e.store.Audit(), e.log)
	for attempt := 0; ; attempt++ {
		p, err := e.store.Papers().FindByID(ctx, paperID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: paper %s", domain.ErrNotFound, paperID)
		}
		from := p.Status

		if !CanTransition(from, to) {
			if attempt > 0 {
				// 重试时边失效说明状态刚被并发改掉：按并发冲突上报
				return nil, domain.ErrConcurrentModification
			}
			// 被拦下的非法边本身也要留痕
			trail.Try(ctx, audit.Entry(actor, action, "paper", p.ID,
				fmt.Sprintf("blocked: invalid edge %s -> %s", from, to)))
			return nil, &domain.InvalidTransitionError{From: from, To: to}
		}

		upd := domain.StatusUpdate{From: from, To: to}
		err = e.store.InTx(ctx, func(tx domain.Store) error {
			detail := fmt.Sprintf("%s -> %s", from, to)
			if note != "" {
				detail += "; " + note
			}

			if to == domain.StatusPublished {
				// DOI 在同一事务内签发：回滚时计数一并回退，序号无空洞
				now := e.now()
				d, aerr := e.alloc.Allocate(ctx, tx.Sequences(), now.Year())
				if aerr != nil {
					return aerr
				}
				upd.DOI = &d
				upd.PublishedAt = &now
				detail += "; doi " + d
			}

			ok, terr := tx.Papers().TransitionStatus(ctx, p.ID, upd)
			if terr != nil {
				return terr
			}
			if !ok {
				return domain.ErrConcurrentModification
			}
			return audit.New(tx.Audit(), e.log).Record(ctx,
				audit.Entry(actor, action, "paper", p.ID, detail))
		})

		if errors.Is(err, domain.ErrConcurrentModification) && attempt == 0 {
			continue // 重读当前状态、重新校验后再试一次
		}
		if err != nil {
			transitionsTotal.WithLabelValues(string(from), string(to), "error").Inc()
			return nil, err
		}

		transitionsTotal.WithLabelValues(string(from), string(to), "ok").Inc()
		if to == domain.StatusPublished {
			doiAllocationsTotal.Inc()
		}

		updated, err := e.store.Papers().FindByID(ctx, paperID)
		if err != nil || updated == nil {
			// 回读失败就用已提交的更新拼出视图，钩子决不能拿到旧状态
			view := *p
			view.Status = to
			if upd.DOI != nil {
				view.DOI = upd.DOI
			}
			if upd.PublishedAt != nil {
				view.PublishedAt = upd.PublishedAt
			}
			updated = &view
		}

		// 提交之后才发外部信号，不在事务内等待任何网络调用
		e.hooks.PaperChanged(paperID)
		switch to {
		case domain.StatusAccepted, domain.StatusRejected:
			e.hooks.Decision(updated, to)
		case domain.StatusPublished:
			e.hooks.Decision(updated, to)
			e.hooks.Published(updated)
		}
		return updated, nil
	}
}

// AssignReviewer links a REVIEWER/EDITOR to a non-terminal paper.
func (e *Engine) AssignReviewer(ctx context.Context, actorID, paperID, reviewerID string) error {
	actor, err := e.authorize(ctx, actorID, "paper.reviewers.assign")
	if err != nil {
		return err
	}
	p, err := e.requirePaper(ctx, paperID)
	if err != nil {
		return err
	}
	if p.Status.Terminal() {
		return &domain.InvalidTransitionError{From: p.Status, To: p.Status}
	}
	reviewer, err := e.store.Users().FindByID(ctx, reviewerID)
	if err != nil {
		return err
	}
	if reviewer == nil {
		return fmt.Errorf("%w: reviewer %s", domain.ErrNotFound, reviewerID)
	}
	if reviewer.Role != domain.RoleReviewer && reviewer.Role != domain.RoleEditor {
		return &domain.InsufficientRoleError{Actual: reviewer.Role,
			Required: []domain.Role{domain.RoleReviewer, domain.RoleEditor}}
	}

	return e.store.InTx(ctx, func(tx domain.Store) error {
		a := &domain.ReviewerAssignment{PaperID: paperID, ReviewerID: reviewerID, AssignedBy: actor.ID}
		if err := tx.Papers().AddAssignment(ctx, a); err != nil {
			return err
		}
		return audit.New(tx.Audit(), e.log).Record(ctx,
			audit.Entry(actor, "paper.reviewers.assign", "paper", paperID, "reviewer "+reviewerID))
	})
}

func (e *Engine) RemoveReviewer(ctx context.Context, actorID, paperID, reviewerID string) error {
	actor, err := e.authorize(ctx, actorID, "paper.reviewers.remove")
	if err != nil {
		return err
	}
	if _, err := e.requirePaper(ctx, paperID); err != nil {
		return err
	}
	return e.store.InTx(ctx, func(tx domain.Store) error {
		ok, err := tx.Papers().RemoveAssignment(ctx, paperID, reviewerID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: assignment %s/%s", domain.ErrNotFound, paperID, reviewerID)
		}
		return audit.New(tx.Audit(), e.log).Record(ctx,
			audit.Entry(actor, "paper.reviewers.remove", "paper", paperID, "reviewer "+reviewerID))
	})
}

// AddComment is gated like a transition (role check → mutate → audit) but
// changes no status; allowed in any non-terminal state.
func (e *Engine) AddComment(ctx context.Context, actorID, paperID, body string) (*domain.Comment, error) {
	actor, err := e.authorize(ctx, actorID, "paper.comment")
	if err != nil {
		return nil, err
	}
	p, err := e.requirePaper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if p.Status.Terminal() {
		return nil, &domain.InvalidTransitionError{From: p.Status, To: p.Status}
	}

	c := &domain.Comment{PaperID: paperID, AuthorID: actor.ID, Body: body}
	err = e.store.InTx(ctx, func(tx domain.Store) error {
		if err := tx.Papers().AddComment(ctx, c); err != nil {
			return err
		}
		return audit.New(tx.Audit(), e.log).Record(ctx,
			audit.Entry(actor, "paper.comment", "paper", paperID, ""))
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Archive marks a published paper archived; rows are kept, nothing cascades.
func (e *Engine) Archive(ctx context.Context, actorID, paperID string) error {
	actor, err := e.authorize(ctx, actorID, "paper.archive")
	if err != nil {
		return err
	}
	p, err := e.requirePaper(ctx, paperID)
	if err != nil {
		return err
	}
	if p.Status != domain.StatusPublished {
		return &domain.InvalidTransitionError{From: p.Status, To: p.Status}
	}
	return e.store.InTx(ctx, func(tx domain.Store) error {
		ok, err := tx.Papers().SetArchived(ctx, paperID, e.now())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: paper %s", domain.ErrNotFound, paperID)
		}
		return audit.New(tx.Audit(), e.log).Record(ctx,
			audit.Entry(actor, "paper.archive", "paper", paperID, ""))
	})
}

// Delete is the one explicit path that cascades a paper's owned rows.
func (e *Engine) Delete(ctx context.Context, actorID, paperID string) error {
	actor, err := e.authorize(ctx, actorID, "paper.delete")
	if err != nil {
		return err
	}
	if _, err := e.requirePaper(ctx, paperID); err != nil {
		return err
	}
	err = e.store.InTx(ctx, func(tx domain.Store) error {
		if err := tx.Papers().Delete(ctx, paperID); err != nil {
			return err
		}
		return audit.New(tx.Audit(), e.log).Record(ctx,
			audit.Entry(actor, "paper.delete", "paper", paperID, ""))
	})
	if err != nil {
		return err
	}
	e.hooks.PaperChanged(paperID)
	return nil
}

func (e *Engine) requirePaper(ctx context.Context, paperID string) (*domain.Paper, error) {
	p, err := e.store.Papers().FindByID(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: paper %s", domain.ErrNotFound, paperID)
	}
	return p, nil
}
