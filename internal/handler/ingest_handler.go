package handler

import (
	"context"
	"io"
	"net/http"
	"path"
	"strconv"

	"cogsearch-go/internal/model"
	"cogsearch-go/internal/repository"
	"cogsearch-go/pkg/embedding"
	"cogsearch-go/pkg/log"
	"cogsearch-go/pkg/tasks"
	"cogsearch-go/pkg/tika"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Ingester 同步执行入库。
type Ingester interface {
	Run(ctx context.Context, task tasks.IngestTask) (model.IngestionReport, error)
	IngestChunks(ctx context.Context, kind model.IndexKind, m embedding.ModelType, indexName, fileName string, chunks []model.Chunk) (model.IngestionReport, error)
}

// TaskQueue 投递异步入库任务。
type TaskQueue interface {
	Produce(ctx context.Context, task tasks.IngestTask) error
}

// ObjectUploader 将上传的源文件写入对象存储。
type ObjectUploader interface {
	Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error
}

// IngestHandler 负责文档写入与入库任务。queue、objects、runs 未配置时对应接口返回 503。
type IngestHandler struct {
	ingester     Ingester
	queue        TaskQueue
	objects      ObjectUploader
	runs         repository.IngestionRunRepository
	defaultModel embedding.ModelType
}

// NewIngestHandler 创建一个新的 IngestHandler 实例。
func NewIngestHandler(ingester Ingester, queue TaskQueue, objects ObjectUploader, runs repository.IngestionRunRepository, defaultModel embedding.ModelType) *IngestHandler {
	return &IngestHandler{ingester: ingester, queue: queue, objects: objects, runs: runs, defaultModel: defaultModel}
}

// AddDocumentsRequest 定义了同步写入文档 API 的请求体结构。
// Chunks 非空时直接写入；否则对 Text 进行切块。
type AddDocumentsRequest struct {
	Kind     model.IndexKind     `json:"kind" binding:"required"`
	Model    embedding.ModelType `json:"model"`
	FileName string              `json:"file_name" binding:"required"`
	Text     string              `json:"text"`
	Chunks   []string            `json:"chunks"`
}

// AddDocuments 将一份文档同步写入 :name 索引，索引不存在时自动创建。
func (h *IngestHandler) AddDocuments(c *gin.Context) {
	var req AddDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "无效的请求负载: "+err.Error())
		return
	}
	if req.Text == "" && len(req.Chunks) == 0 {
		failure(c, http.StatusBadRequest, "text 与 chunks 不能同时为空")
		return
	}
	if req.Model == 0 {
		req.Model = h.defaultModel
	}
	indexName := c.Param("name")

	var (
		report model.IngestionReport
		err    error
	)
	if len(req.Chunks) > 0 {
		chunks := make([]model.Chunk, 0, len(req.Chunks))
		for _, s := range req.Chunks {
			chunks = append(chunks, model.Chunk{PageContent: s})
		}
		report, err = h.ingester.IngestChunks(c.Request.Context(), req.Kind, req.Model, indexName, req.FileName, chunks)
	} else {
		report, err = h.ingester.Run(c.Request.Context(), tasks.IngestTask{
			TaskID:    uuid.NewString(),
			IndexName: indexName,
			IndexKind: req.Kind.String(),
			ModelType: req.Model.String(),
			FileName:  req.FileName,
			Text:      req.Text,
		})
	}
	if err != nil {
		log.Errorf("[IngestHandler] 写入文档失败, index: %s, file: %s, error: %v", indexName, req.FileName, err)
		c.JSON(statusFor(err), gin.H{"code": statusFor(err), "data": report, "message": err.Error()})
		return
	}
	success(c, http.StatusOK, report)
}

// SubmitTaskRequest 定义了以 JSON 提交入库任务时的请求体结构。
type SubmitTaskRequest struct {
	IndexName string `json:"index_name" binding:"required"`
	IndexKind string `json:"index_kind" binding:"required"`
	ModelType string `json:"model_type"`
	FileName  string `json:"file_name" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

// SubmitTask 投递一个异步入库任务。multipart 请求携带文件，先写入对象存储；JSON 请求携带文本。
func (h *IngestHandler) SubmitTask(c *gin.Context) {
	if h.queue == nil {
		failure(c, http.StatusServiceUnavailable, "未启用异步入库")
		return
	}

	task := tasks.IngestTask{TaskID: uuid.NewString()}
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		if !h.fromUpload(c, &task) {
			return
		}
	} else {
		var req SubmitTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			failure(c, http.StatusBadRequest, "无效的请求负载: "+err.Error())
			return
		}
		task.IndexName, task.IndexKind, task.ModelType = req.IndexName, req.IndexKind, req.ModelType
		task.FileName, task.Text = req.FileName, req.Text
	}

	if _, err := model.ParseIndexKind(task.IndexKind); err != nil {
		failure(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.queue.Produce(c.Request.Context(), task); err != nil {
		log.Errorf("[IngestHandler] 投递入库任务失败, task: %s, error: %v", task.TaskID, err)
		failure(c, http.StatusInternalServerError, "投递入库任务失败")
		return
	}
	log.Infof("[IngestHandler] 入库任务已投递, task: %s, index: %s, file: %s", task.TaskID, task.IndexName, task.FileName)
	success(c, http.StatusAccepted, gin.H{"task_id": task.TaskID})
}

func (h *IngestHandler) fromUpload(c *gin.Context, task *tasks.IngestTask) bool {
	if h.objects == nil {
		failure(c, http.StatusServiceUnavailable, "未配置对象存储")
		return false
	}
	fh, err := c.FormFile("file")
	if err != nil {
		failure(c, http.StatusBadRequest, "缺少上传文件")
		return false
	}
	task.IndexName = c.PostForm("index_name")
	task.IndexKind = c.PostForm("index_kind")
	task.ModelType = c.PostForm("model_type")
	task.FileName = path.Base(fh.Filename)
	if task.IndexName == "" {
		failure(c, http.StatusBadRequest, "index_name 不能为空")
		return false
	}

	f, err := fh.Open()
	if err != nil {
		failure(c, http.StatusBadRequest, "无法读取上传文件")
		return false
	}
	defer f.Close()

	task.ObjectName = "ingest/" + task.TaskID + "/" + task.FileName
	if err := h.objects.Put(c.Request.Context(), task.ObjectName, f, fh.Size, tika.DetectMimeType(task.FileName)); err != nil {
		log.Errorf("[IngestHandler] 上传源文件失败: %v", err)
		failure(c, http.StatusInternalServerError, "上传源文件失败")
		return false
	}
	return true
}

// ListRuns 返回最近的入库流水，支持 index 与 limit 查询参数。
func (h *IngestHandler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		failure(c, http.StatusServiceUnavailable, "未启用入库流水")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.runs.FindRecent(c.Query("index"), limit)
	if err != nil {
		log.Errorf("[IngestHandler] 查询入库流水失败: %v", err)
		failure(c, http.StatusInternalServerError, "查询入库流水失败")
		return
	}
	success(c, http.StatusOK, runs)
}
