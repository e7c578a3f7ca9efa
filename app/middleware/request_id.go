package middleware

import (
	beecontext "github.com/beego/beego/v2/server/web/context"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestIDFilter 为每个请求分配ID，调用方传入的ID原样透传
func RequestIDFilter(ctx *beecontext.Context) {
	requestID := ctx.Input.Header(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx.Input.SetData("request_id", requestID)
	ctx.Output.Header(requestIDHeader, requestID)
}
