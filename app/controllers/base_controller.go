package controllers

import (
	"net/http"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	apperrors "github.com/dochub/backend-go/internal/errors"
	"github.com/dochub/backend-go/internal/knowledge"
	"github.com/dochub/backend-go/internal/logger"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError 按错误分类映射HTTP状态码并输出错误信封
func (c *BaseController) JSONAppError(err error) {
	appErr := apperrors.GetAppError(err)
	if appErr.HTTPCode >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.Ctx.Request.RequestURI),
			zap.Error(err))
	}
	c.JSON(appErr.HTTPCode, map[string]interface{}{
		"success": false,
		"code":    appErr.Code,
		"error":   appErr.Message,
	})
}

// actor 取认证中间件写入的请求身份
// 中间件保证受保护路由一定有actor，取不到说明路由未挂过滤器
func (c *BaseController) actor() (knowledge.Actor, bool) {
	value := c.Ctx.Input.GetData("actor")
	actor, ok := value.(knowledge.Actor)
	return actor, ok
}

// requireActor 获取请求身份，缺失时直接写401
func (c *BaseController) requireActor() (knowledge.Actor, bool) {
	actor, ok := c.actor()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "authentication required")
	}
	return actor, ok
}
