package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/dochub/backend-go/internal/services"
)

// IndexController 知识库索引（集合）管理
type IndexController struct {
	BaseController
}

type createIndexRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// List 列出当前用户可见的索引
func (c *IndexController) List() {
	actor, ok := c.requireActor()
	if !ok {
		return
	}

	infos, err := services.Index().ListIndexes(c.Ctx.Request.Context(), actor)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(infos)
}

// Create 创建索引
func (c *IndexController) Create() {
	actor, ok := c.requireActor()
	if !ok {
		return
	}

	var req createIndexRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSONError(http.StatusBadRequest, "index name is required")
		return
	}

	created, err := services.Index().CreateIndex(c.Ctx.Request.Context(), actor, req.Name, req.Description)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"name":    req.Name,
		"created": created,
	})
}

// Get 索引详情
func (c *IndexController) Get() {
	actor, ok := c.requireActor()
	if !ok {
		return
	}

	name := c.Ctx.Input.Param(":name")
	info, err := services.Index().IndexInfo(c.Ctx.Request.Context(), actor, name)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(info)
}

// Delete 删除索引
func (c *IndexController) Delete() {
	actor, ok := c.requireActor()
	if !ok {
		return
	}

	name := c.Ctx.Input.Param(":name")
	if err := services.Index().DeleteIndex(c.Ctx.Request.Context(), actor, name); err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"name": name, "deleted": true})
}
