package handler

import (
	"net/http"

	"cogsearch-go/internal/model"
	"cogsearch-go/internal/service"
	"cogsearch-go/pkg/embedding"
	"cogsearch-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了搜索相关的处理器。
type SearchHandler struct {
	query        service.QueryService
	defaultModel embedding.ModelType
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(query service.QueryService, defaultModel embedding.ModelType) *SearchHandler {
	return &SearchHandler{query: query, defaultModel: defaultModel}
}

// SearchRequest 定义了查询 API 的请求体结构。
type SearchRequest struct {
	Kind         model.IndexKind     `json:"kind" binding:"required"`
	Model        embedding.ModelType `json:"model"`
	Question     string              `json:"question" binding:"required"`
	IndexName    string              `json:"index_name" binding:"required"`
	K            int                 `json:"k"`
	ReturnFields []string            `json:"return_fields"`
}

func (h *SearchHandler) bind(c *gin.Context) (service.QueryParams, bool) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[SearchHandler] 无效的查询请求: %v", err)
		failure(c, http.StatusBadRequest, "无效的请求负载: "+err.Error())
		return service.QueryParams{}, false
	}
	if req.Model == 0 {
		req.Model = h.defaultModel
	}
	return service.QueryParams{
		Kind:         req.Kind,
		Model:        req.Model,
		Question:     req.Question,
		IndexName:    req.IndexName,
		K:            req.K,
		ReturnFields: req.ReturnFields,
	}, true
}

// Search 按索引类型执行查询。
func (h *SearchHandler) Search(c *gin.Context) {
	p, ok := h.bind(c)
	if !ok {
		return
	}
	log.Infof("[SearchHandler] 收到查询请求, index: %s, kind: %s, k: %d", p.IndexName, p.Kind, p.K)
	writeResult(c, h.query.Query(c.Request.Context(), p))
}

// SummaryQA 执行用于摘要问答的纯文本查询。
func (h *SearchHandler) SummaryQA(c *gin.Context) {
	p, ok := h.bind(c)
	if !ok {
		return
	}
	log.Infof("[SearchHandler] 收到摘要问答查询, index: %s, kind: %s", p.IndexName, p.Kind)
	writeResult(c, h.query.QuerySummaryQA(c.Request.Context(), p))
}
