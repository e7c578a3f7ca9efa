package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dochub/backend-go/internal/auth"
)

var validate = validator.New()

// AuthController 登录与身份查询
type AuthController struct {
	BaseController
}

type tokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Token 用户名密码换取JWT
func (c *AuthController) Token() {
	var req tokenRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSONError(http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := auth.Users().Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSONError(http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := auth.Service().GenerateToken(user.Username, user.Roles, user.AccessCategories)
	if err != nil {
		c.JSONError(http.StatusInternalServerError, "failed to issue token")
		return
	}

	c.JSONSuccess(tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me 返回当前token对应的身份
func (c *AuthController) Me() {
	actor, ok := c.requireActor()
	if !ok {
		return
	}
	c.JSONSuccess(actor)
}
