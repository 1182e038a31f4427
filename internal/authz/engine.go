package authz

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

type DenyReason string

const (
	DenyNone             DenyReason = ""
	DenyNoAccount        DenyReason = "no_account"
	DenyDeactivated      DenyReason = "deactivated"
	DenyInsufficientRole DenyReason = "insufficient_role"
)

type Decision struct {
	Allowed  bool
	Reason   DenyReason
	Required []domain.Role // populated on insufficient_role
}

// Err maps a deny decision onto the domain error taxonomy.
func (d Decision) Err(actual domain.Role) error {
	switch d.Reason {
	case DenyNoAccount:
		return domain.ErrUnauthenticated
	case DenyDeactivated:
		return domain.ErrAccountDeactivated
	case DenyInsufficientRole:
		return &domain.InsufficientRoleError{Actual: actual, Required: d.Required}
	}
	return nil
}

// IdentityResolver 身份与角色存储。Resolve 在未知身份时返回 (nil, nil)。
type IdentityResolver interface {
	Resolve(ctx context.Context, actorID string) (*domain.User, error)
}

// Engine 对每个受控操作做决策：硬门槛（未知身份、已停用）→ 最长前缀匹配角色集。
// 每次 Deny 自身就是审计事件；Allow 由下游的状态变更审计覆盖。
type Engine struct {
	ids   IdentityResolver
	rules *RuleSet
	sink  domain.AuditRepository // best-effort deny audit, may be nil
	log   *zap.Logger
}

func NewEngine(ids IdentityResolver, rules *RuleSet, sink domain.AuditRepository, log *zap.Logger) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{ids: ids, rules: rules, sink: sink, log: log}
}

// Authorize resolves the actor and decides access to resource. mutating
// controls the failure semantics: a store error fails closed for anything
// that would change state, and degrades to allow-and-log otherwise.
func (e *Engine) Authorize(ctx context.Context, actorID, resource string, mutating bool) (*domain.User, Decision, error) {
	actor, err := e.ids.Resolve(ctx, actorID)
	if err != nil {
		// 决不允许角色检查在状态变更路径上 fail-open；
		// 受保护前缀的只读访问同样建立不了角色归属，一并 fail closed。
		if mutating || e.rules.Match(resource) != nil {
			return nil, Decision{}, fmt.Errorf("identity store unavailable: %w", err)
		}
		e.log.Warn("identity store unavailable, allowing unprotected read-only access",
			zap.String("actor", actorID), zap.String("resource", resource), zap.Error(err))
		return nil, Decision{Allowed: true}, nil
	}

	if actor == nil {
		return nil, e.deny(ctx, actorID, "", resource, Decision{Reason: DenyNoAccount}), nil
	}
	if !actor.IsActive {
		return actor, e.deny(ctx, actor.ID, actor.Email, resource, Decision{Reason: DenyDeactivated}), nil
	}

	rule := e.rules.Match(resource)
	if rule == nil {
		// 未配置保护的资源：已认证用户默认放行
		return actor, Decision{Allowed: true}, nil
	}
	if !rule.allows(actor.Role) {
		d := Decision{Reason: DenyInsufficientRole, Required: append([]domain.Role(nil), rule.Roles...)}
		return actor, e.deny(ctx, actor.ID, actor.Email, resource, d), nil
	}
	return actor, Decision{Allowed: true}, nil
}

// deny 旁路写审计：失败只告警，不影响决策（不保护任何数据不变量）
func (e *Engine) deny(ctx context.Context, actorID, actorEmail, resource string, d Decision) Decision {
	if e.sink != nil {
		entry := &domain.AuditLogEntry{
			ActorID:    actorID,
			ActorEmail: actorEmail,
			Action:     "access_denied",
			TargetType: "resource",
			TargetID:   resource,
			Detail:     string(d.Reason) + " " + resource,
		}
		if err := e.sink.Append(ctx, entry); err != nil {
			e.log.Warn("deny audit dropped", zap.String("resource", resource), zap.Error(err))
		}
	}
	return d
}
