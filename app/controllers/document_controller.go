package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/dochub/backend-go/internal/services"
)

// DocumentController 文档上传、列表与删除
type DocumentController struct {
	BaseController
}

// accessSpec 上传时的访问控制说明，multipart表单的access字段（JSON）
type accessSpec struct {
	AllowedCategories []string `json:"allowed_categories"`
	AllowedUsers      []string `json:"allowed_users"`
}

// Upload 上传文档到指定索引并同步完成入库
func (c *DocumentController) Upload() {
	actor, ok := c.requireActor()
	if !ok {
		return
	}
	collection := c.Ctx.Input.Param(":name")

	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSONError(http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	var access accessSpec
	accessField := c.GetString("access")
	if accessField == "" {
		c.JSONError(http.StatusBadRequest, "access field is required")
		return
	}
	if err := json.Unmarshal([]byte(accessField), &access); err != nil {
		c.JSONError(http.StatusBadRequest, "access field must be a JSON object")
		return
	}

	result, err := services.Document().ProcessUpload(c.Ctx.Request.Context(), actor, services.UploadRequest{
		Collection:        collection,
		Filename:          header.Filename,
		Data:              data,
		ContentType:       header.Header.Get("Content-Type"),
		AllowedCategories: access.AllowedCategories,
		AllowedUsers:      access.AllowedUsers,
	})
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(result)
}

// List 分页列出索引中当前用户可见的文档
func (c *DocumentController) List() {
	actor, ok := c.requireActor()
	if !ok {
		return
	}
	collection := c.Ctx.Input.Param(":name")
	page, _ := c.GetInt("page", 1)
	limit, _ := c.GetInt("limit", 20)

	documents, total, err := services.Document().ListDocuments(c.Ctx.Request.Context(), actor, collection, page, limit)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"items": documents,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Delete 删除文档及其全部分块
func (c *DocumentController) Delete() {
	actor, ok := c.requireActor()
	if !ok {
		return
	}
	collection := c.Ctx.Input.Param(":name")
	documentID := c.Ctx.Input.Param(":doc_id")

	if err := services.Document().DeleteDocument(c.Ctx.Request.Context(), actor, collection, documentID); err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"document_id": documentID, "deleted": true})
}
