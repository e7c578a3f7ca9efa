package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/dochub/backend-go/internal/services"
)

// QueryController 知识库问答
type QueryController struct {
	BaseController
}

type queryRequest struct {
	Question string `json:"question" validate:"required"`
	// Collection 可选，指定时只在该索引内检索
	Collection string `json:"collection"`
}

// Ask 回答一个问题，结果只引用当前用户可见的文档
func (c *QueryController) Ask() {
	actor, ok := c.requireActor()
	if !ok {
		return
	}

	var req queryRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSONError(http.StatusBadRequest, "question is required")
		return
	}

	answer, err := services.Query().AnswerQuery(c.Ctx.Request.Context(), actor, req.Question, req.Collection)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(answer)
}
