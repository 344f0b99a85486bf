package handler

import (
	"net/http"

	"cogsearch-go/internal/model"
	"cogsearch-go/internal/service"
	"cogsearch-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// IndexHandler 负责索引的列举、创建与删除。
type IndexHandler struct {
	schema service.SchemaService
}

// NewIndexHandler 创建一个新的 IndexHandler 实例。
func NewIndexHandler(schema service.SchemaService) *IndexHandler {
	return &IndexHandler{schema: schema}
}

// CreateIndexRequest 定义了创建索引 API 的请求体结构。
type CreateIndexRequest struct {
	Name string          `json:"name" binding:"required"`
	Kind model.IndexKind `json:"kind" binding:"required"`
}

// List 返回所有索引名。
func (h *IndexHandler) List(c *gin.Context) {
	names, err := h.schema.ListIndexes(c.Request.Context())
	if err != nil {
		log.Errorf("[IndexHandler] 列举索引失败: %v", err)
		failure(c, statusFor(err), "列举索引失败")
		return
	}
	success(c, http.StatusOK, names)
}

// Create 按类型创建索引，已存在时 created 为 false。
func (h *IndexHandler) Create(c *gin.Context) {
	var req CreateIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "无效的请求负载: "+err.Error())
		return
	}
	created, err := h.schema.CreateIndex(c.Request.Context(), req.Kind, req.Name)
	if err != nil {
		log.Errorf("[IndexHandler] 创建索引 '%s' 失败: %v", req.Name, err)
		failure(c, statusFor(err), "创建索引失败")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	success(c, status, gin.H{"name": req.Name, "created": created})
}

// Delete 删除索引，索引不存在时 deleted 为 false。
func (h *IndexHandler) Delete(c *gin.Context) {
	name := c.Param("name")
	deleted, err := h.schema.DeleteIndex(c.Request.Context(), name)
	if err != nil {
		log.Errorf("[IndexHandler] 删除索引 '%s' 失败: %v", name, err)
		failure(c, statusFor(err), "删除索引失败")
		return
	}
	success(c, http.StatusOK, gin.H{"name": name, "deleted": deleted})
}
