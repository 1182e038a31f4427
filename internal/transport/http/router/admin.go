package router

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/handler"
	httpez "github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/ez"
	mdw "github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/middleware"
)

// NewAdminEngine 管理端：用户管理、审计查询、prometheus 指标。
// /admin/v1 整个前缀在授权引擎的保护表里（EDITOR/DEAN）。
func NewAdminEngine(d Deps, admin *handler.AdminHandler) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(100, 200),
		mdw.ConcurrencyLimit(100),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		ginzap.RecoveryWithZap(d.Log, true),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g := r.Group("/admin/v1")
	g.Use(mdw.AuthJWT(d.JWT), mdw.Authorize(d.Authz))

	ezAdmin := httpez.New(g, d.Log)

	ezAdmin.GET("/users", admin.ListUsers)
	httpez.POST(ezAdmin, "/users/:id/role", admin.ChangeRole)
	httpez.POSTNone(ezAdmin, "/users/:id/deactivate", admin.Deactivate)
	httpez.POSTNone(ezAdmin, "/users/:id/reactivate", admin.Reactivate)

	ezAdmin.GET("/audit", admin.SearchAudit)

	return r
}
