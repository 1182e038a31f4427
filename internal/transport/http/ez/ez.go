// Package ez 轻封装：绑定入参、调用、按领域错误统一回 {code,msg,data}
package ez

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/response"
)

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, log *zap.Logger) EZ { return EZ{g: g, log: log} }

func (e EZ) write(c *gin.Context, data any, err error) {
	if err != nil {
		r := resp.FromError(err)
		if r.Code == resp.CodeServerError {
			// 底层原因只进内部日志
			e.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
		c.JSON(http.StatusOK, r)
		return
	}
	c.JSON(http.StatusOK, resp.OK(data))
}

func (e EZ) GET(path string, h func(c *gin.Context) (any, error)) {
	e.g.GET(path, func(c *gin.Context) {
		data, err := h(c)
		e.write(c, data, err)
	})
}

func (e EZ) DELETE(path string, h func(c *gin.Context) (any, error)) {
	e.g.DELETE(path, func(c *gin.Context) {
		data, err := h(c)
		e.write(c, data, err)
	})
}

// POST 带 JSON 入参
func POST[T any](e EZ, path string, h func(c *gin.Context, in T) (any, error)) {
	e.g.POST(path, func(c *gin.Context) {
		var in T
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
			return
		}
		data, err := h(c, in)
		e.write(c, data, err)
	})
}

// POSTNone 无入参的 POST 动作
func POSTNone(e EZ, path string, h func(c *gin.Context) (any, error)) {
	e.g.POST(path, func(c *gin.Context) {
		data, err := h(c)
		e.write(c, data, err)
	})
}
