package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/authz"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/auth"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
	httpez "github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/ez"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/handler"
	mdw "github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/middleware"
)

// Deps 注入到两个引擎的全部依赖；不允许任何隐藏全局
type Deps struct {
	Log   *zap.Logger
	Store domain.Store
	JWT   *auth.JWTer
	Authz *authz.Engine
	Paper *handler.PaperHandler
}

func NewAPIEngine(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(16<<20),
		mdw.Timeout(10*time.Second),
		ginzap.RecoveryWithZap(d.Log, true),
		cors.Default(),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	api := r.Group("/api/v1")

	// 公共：登录（查不到就自动注册）
	mountAuthActions(api, d)

	// 鉴权分组
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(d.JWT), mdw.Authorize(d.Authz))

	ezAuthed := httpez.New(authed, d.Log)

	// 论文
	httpez.POST(ezAuthed, "/papers", d.Paper.Submit)
	ezAuthed.GET("/papers", d.Paper.List)
	ezAuthed.GET("/review-queue", d.Paper.ReviewQueue)
	ezAuthed.GET("/papers/:id", d.Paper.Get)
	httpez.POST(ezAuthed, "/papers/:id/transition", d.Paper.Transition)
	httpez.POST(ezAuthed, "/papers/:id/reviewers", d.Paper.AssignReviewer)
	ezAuthed.DELETE("/papers/:id/reviewers/:rid", d.Paper.RemoveReviewer)
	httpez.POST(ezAuthed, "/papers/:id/comments", d.Paper.Comment)
	httpez.POSTNone(ezAuthed, "/papers/:id/archive", d.Paper.Archive)
	ezAuthed.DELETE("/papers/:id", d.Paper.Delete)

	// 站内通知
	ezAuthed.GET("/notifications", func(c *gin.Context) (any, error) {
		notes, total, err := d.Store.Notifications().ListByUser(
			c.Request.Context(), c.GetString(mdw.KeyUserID), 0, 50)
		if err != nil {
			return nil, err
		}
		return gin.H{"total": total, "items": notes}, nil
	})
	httpez.POSTNone(ezAuthed, "/notifications/:id/read", func(c *gin.Context) (any, error) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			return nil, domain.ErrValidation
		}
		ok, err := d.Store.Notifications().MarkRead(c.Request.Context(), uint(id), c.GetString(mdw.KeyUserID))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrNotFound
		}
		return gin.H{"id": id}, nil
	})

	return r
}
