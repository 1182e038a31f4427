package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/authz"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
	resp "github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/response"
)

// Authorize 请求路径过一遍授权引擎（最长前缀匹配）。
// 非 GET 一律按变更处理：身份存储不可用时 fail closed。
func Authorize(e *authz.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		mutating := c.Request.Method != http.MethodGet
		actor, dec, err := e.Authorize(c.Request.Context(), c.GetString(KeyUserID), c.Request.URL.Path, mutating)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeServerError, "temporary failure, please try again"))
			return
		}
		if !dec.Allowed {
			var actual domain.Role
			if actor != nil {
				actual = actor.Role
			}
			c.AbortWithStatusJSON(http.StatusOK, resp.FromError(dec.Err(actual)))
			return
		}
		c.Next()
	}
}
