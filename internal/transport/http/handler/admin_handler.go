package handler

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"go.uber.org/zap"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/audit"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/authz"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/identity"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/middleware"
)

// AdminHandler 用户管理（改角、停用、恢复）与审计查询。
// 管理动作和流转走同一条脊柱：授权 → 事务里变更+审计 → 缓存失效。
type AdminHandler struct {
	store domain.Store
	authz *authz.Engine
	ids   *identity.Store
	trail *audit.Trail
	log   *zap.Logger
}

func NewAdminHandler(store domain.Store, az *authz.Engine, ids *identity.Store, trail *audit.Trail, log *zap.Logger) *AdminHandler {
	return &AdminHandler{store: store, authz: az, ids: ids, trail: trail, log: log}
}

func (h *AdminHandler) authorize(ctx context.Context, actorID, action string) (*domain.User, error) {
	actor, dec, err := h.authz.Authorize(ctx, actorID, action, true)
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

type UsersQ struct {
	Offset int    `form:"offset,default=0"`
	Limit  int    `form:"limit,default=20"`
	Q      string `form:"q"` // email/name 模糊搜
}

func (h *AdminHandler) ListUsers(c *gin.Context) (any, error) {
	var q UsersQ
	if err := c.ShouldBindQuery(&q); err != nil {
		q = UsersQ{Limit: 20}
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	users, total, err := h.store.Users().List(c.Request.Context(), q.Offset, q.Limit, q.Q)
	if err != nil {
		return nil, err
	}
	return gin.H{"total": total, "items": users}, nil
}

type RoleIn struct {
	Role string `json:"role" binding:"required"`
}

func (h *AdminHandler) ChangeRole(c *gin.Context, in RoleIn) (any, error) {
	ctx := c.Request.Context()
	actor, err := h.authorize(ctx, c.GetString(middleware.KeyUserID), "user.role")
	if err != nil {
		return nil, err
	}
	role := domain.Role(in.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, in.Role)
	}
	id := c.Param("id")

	err = h.store.InTx(ctx, func(tx domain.Store) error {
		ok, err := tx.Users().UpdateRole(ctx, id, role)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
		}
		return audit.New(tx.Audit(), h.log).Record(ctx,
			audit.Entry(actor, "user.role", "user", id, "role -> "+string(role)))
	})
	if err != nil {
		return nil, err
	}
	h.ids.Invalidate(ctx, id)
	return gin.H{"id": id, "role": role}, nil
}

func (h *AdminHandler) setActive(c *gin.Context, action string, active bool) (any, error) {
	ctx := c.Request.Context()
	actor, err := h.authorize(ctx, c.GetString(middleware.KeyUserID), action)
	if err != nil {
		return nil, err
	}
	id := c.Param("id")

	err = h.store.InTx(ctx, func(tx domain.Store) error {
		ok, err := tx.Users().SetActive(ctx, id, active)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
		}
		return audit.New(tx.Audit(), h.log).Record(ctx,
			audit.Entry(actor, action, "user", id, ""))
	})
	if err != nil {
		return nil, err
	}
	h.ids.Invalidate(ctx, id)
	return gin.H{"id": id, "isActive": active}, nil
}

// Deactivate 软停用：用户被论文引用时的唯一移除手段
func (h *AdminHandler) Deactivate(c *gin.Context) (any, error) {
	return h.setActive(c, "user.deactivate", false)
}

func (h *AdminHandler) Reactivate(c *gin.Context) (any, error) {
	return h.setActive(c, "user.reactivate", true)
}

type AuditQ struct {
	Action string `form:"action"` // 动作子串
	Q      string `form:"q"`      // actor email / target 自由匹配
	Offset int    `form:"offset,default=0"`
	Limit  int    `form:"limit,default=20"`
}

func (h *AdminHandler) SearchAudit(c *gin.Context) (any, error) {
	var q AuditQ
	if err := c.ShouldBindQuery(&q); err != nil {
		q = AuditQ{Limit: 20}
	}
	entries, total, err := h.trail.Search(c.Request.Context(), domain.AuditFilter{
		Action: q.Action, Query: q.Q, Offset: q.Offset, Limit: q.Limit,
	})
	if err != nil {
		return nil, err
	}
	return gin.H{"total": total, "items": entries}, nil
}
