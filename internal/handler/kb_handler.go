package handler

import (
	"net/http"

	"cogsearch-go/internal/model"
	"cogsearch-go/internal/service"
	"cogsearch-go/pkg/embedding"
	"cogsearch-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// KbHandler 负责知识库缓存的查询与写入。
type KbHandler struct {
	kb           service.KbService
	defaultModel embedding.ModelType
}

// NewKbHandler 创建一个新的 KbHandler 实例。
func NewKbHandler(kb service.KbService, defaultModel embedding.ModelType) *KbHandler {
	return &KbHandler{kb: kb, defaultModel: defaultModel}
}

// KbLookupRequest 定义了按向量查询知识库的请求体结构。
type KbLookupRequest struct {
	Vector       []float32       `json:"vector" binding:"required"`
	VectorField  string          `json:"vector_field"`
	Kind         model.IndexKind `json:"kind" binding:"required"`
	IndexName    string          `json:"index_name" binding:"required"`
	KbIndexName  string          `json:"kb_index_name"`
	K            int             `json:"k"`
	ReturnFields []string        `json:"return_fields"`
}

// Lookup 在知识库中做向量检索。
func (h *KbHandler) Lookup(c *gin.Context) {
	var req KbLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "无效的请求负载: "+err.Error())
		return
	}
	writeResult(c, h.kb.Lookup(c.Request.Context(), service.KbLookupParams{
		Vector:       req.Vector,
		VectorField:  req.VectorField,
		Kind:         req.Kind,
		IndexName:    req.IndexName,
		KbIndexName:  req.KbIndexName,
		K:            req.K,
		ReturnFields: req.ReturnFields,
	}))
}

// KbRecallRequest 定义了按问题查找已缓存答案的请求体结构。
type KbRecallRequest struct {
	Model       embedding.ModelType `json:"model"`
	Question    string              `json:"question" binding:"required"`
	Kind        model.IndexKind     `json:"kind" binding:"required"`
	IndexName   string              `json:"index_name" binding:"required"`
	KbIndexName string              `json:"kb_index_name"`
	K           int                 `json:"k"`
}

// Recall 返回命中的缓存答案，未命中时 hit 为 false。
func (h *KbHandler) Recall(c *gin.Context) {
	var req KbRecallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "无效的请求负载: "+err.Error())
		return
	}
	if req.Model == 0 {
		req.Model = h.defaultModel
	}
	r, err := h.kb.Recall(c.Request.Context(), service.RecallParams{
		Model:       req.Model,
		Question:    req.Question,
		Kind:        req.Kind,
		IndexName:   req.IndexName,
		KbIndexName: req.KbIndexName,
		K:           req.K,
	})
	if err != nil {
		log.Errorf("[KbHandler] 查找缓存答案失败: %v", err)
		failure(c, statusFor(err), err.Error())
		return
	}
	success(c, http.StatusOK, gin.H{"hit": r.Hit, "answer": r.Answer, "question": r.Question, "score": r.Score})
}

// KbRememberRequest 定义了写入问答的请求体结构。
type KbRememberRequest struct {
	Model       embedding.ModelType `json:"model"`
	Question    string              `json:"question" binding:"required"`
	Answer      string              `json:"answer" binding:"required"`
	Kind        model.IndexKind     `json:"kind" binding:"required"`
	IndexName   string              `json:"index_name" binding:"required"`
	KbIndexName string              `json:"kb_index_name"`
}

// Remember 将一条问答写入知识库。
func (h *KbHandler) Remember(c *gin.Context) {
	var req KbRememberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "无效的请求负载: "+err.Error())
		return
	}
	if req.Model == 0 {
		req.Model = h.defaultModel
	}
	rec, err := h.kb.Remember(c.Request.Context(), service.RememberParams{
		Model:       req.Model,
		Question:    req.Question,
		Answer:      req.Answer,
		Kind:        req.Kind,
		IndexName:   req.IndexName,
		KbIndexName: req.KbIndexName,
	})
	if err != nil {
		log.Errorf("[KbHandler] 写入问答失败: %v", err)
		failure(c, statusFor(err), err.Error())
		return
	}
	success(c, http.StatusCreated, gin.H{"id": rec.ID, "question": rec.Question, "answer": rec.Answer})
}
