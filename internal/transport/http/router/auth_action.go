package router

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
	httpez "github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/ez"
	mdw "github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/middleware"
	"github.com/CICTstudcoDingle/ictirc-sub002/pkg/utils"
)

// mountAuthActions /auth/login（公共）+ /me（鉴权）
func mountAuthActions(api *gin.RouterGroup, d Deps) {
	ezPublic := httpez.New(api, d.Log)

	type loginIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"     binding:"omitempty,max=64"` // 首次注册可用
	}

	// /auth/login：查不到就自动注册（首次认证即建档，角色 AUTHOR）+ 发 JWT
	httpez.POST(ezPublic, "/auth/login", func(c *gin.Context, in loginIn) (any, error) {
		ctx := c.Request.Context()
		email := strings.TrimSpace(strings.ToLower(in.Email))

		u, err := d.Store.Users().FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}

		isNew := false
		if u == nil {
			name := strings.TrimSpace(in.Name)
			if name == "" {
				if at := strings.IndexByte(email, '@'); at > 0 {
					name = email[:at]
				} else {
					name = "user"
				}
			}
			u = &domain.User{
				ID:           utils.NewID(),
				Email:        email,
				Name:         name,
				PasswordHash: utils.HashPassword(in.Password),
				Role:         domain.RoleAuthor,
				IsActive:     true,
			}
			if err := d.Store.Users().Create(ctx, u); err != nil {
				// 并发兜底：唯一冲突 → 再查一次
				if !isDupKey(err) {
					return nil, err
				}
				if u, err = d.Store.Users().FindByEmail(ctx, email); err != nil || u == nil {
					return nil, err
				}
			} else {
				isNew = true
			}
		}

		if !isNew {
			if !utils.CheckPassword(in.Password, u.PasswordHash) {
				return nil, domain.ErrUnauthenticated
			}
		}
		if !u.IsActive {
			return nil, domain.ErrAccountDeactivated
		}

		tok, err := d.JWT.Issue(u.ID, u.Role)
		if err != nil || tok == "" {
			return nil, err
		}
		return gin.H{
			"token": tok, "isNew": isNew,
			"user": gin.H{"id": u.ID, "email": u.Email, "name": u.Name, "role": u.Role},
		}, nil
	})

	// 鉴权分组里的 /me
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(d.JWT))
	ezAuth := httpez.New(authed, d.Log)

	ezAuth.GET("/me", func(c *gin.Context) (any, error) {
		u, err := d.Store.Users().FindByID(c.Request.Context(), c.GetString(mdw.KeyUserID))
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, domain.ErrUnauthenticated
		}
		return u, nil
	})
}

func isDupKey(err error) bool {
	// 不依赖 gorm.ErrDuplicatedKey，避免驱动差异
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key")
}
