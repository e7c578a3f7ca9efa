package middleware

import (
	"net/http"
	"strings"

	beecontext "github.com/beego/beego/v2/server/web/context"

	"github.com/dochub/backend-go/internal/auth"
	"github.com/dochub/backend-go/internal/knowledge"
)

// 免认证路径前缀
var publicPaths = []string{
	"/api/auth/token",
	"/health",
	"/metrics",
}

// JWTAuthFilter 校验Bearer token并把请求身份写入上下文
func JWTAuthFilter(ctx *beecontext.Context) {
	path := ctx.Request.URL.Path
	for _, public := range publicPaths {
		if path == public || strings.HasPrefix(path, public+"/") {
			return
		}
	}

	token, err := auth.ExtractTokenFromHeader(ctx.Input.Header("Authorization"))
	if err != nil {
		unauthorized(ctx, err.Error())
		return
	}

	claims, err := auth.Service().ValidateToken(token)
	if err != nil {
		unauthorized(ctx, "invalid or expired token")
		return
	}

	ctx.Input.SetData("actor", knowledge.Actor{
		Username:         claims.Username,
		Roles:            claims.Roles,
		AccessCategories: claims.AccessCategories,
	})
}

func unauthorized(ctx *beecontext.Context, message string) {
	ctx.Output.SetStatus(http.StatusUnauthorized)
	_ = ctx.Output.JSON(map[string]interface{}{
		"success": false,
		"error":   message,
	}, false, false)
}
