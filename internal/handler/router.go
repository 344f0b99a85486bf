package handler

import (
	"cogsearch-go/internal/middleware"
	"cogsearch-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// Handlers 汇总所有路由处理器。
type Handlers struct {
	Index  *IndexHandler
	Ingest *IngestHandler
	Search *SearchHandler
	Kb     *KbHandler
}

// NewRouter 创建 Gin 引擎并注册 /api/v1 下的所有路由。
// 查询与知识库接口需要登录，索引与入库接口需要管理员权限。
func NewRouter(h Handlers, jwtManager *token.JWTManager) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	apiV1 := r.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(jwtManager))
	{
		search := apiV1.Group("/search")
		{
			search.POST("", h.Search.Search)
			search.POST("/summary-qa", h.Search.SummaryQA)
		}

		kb := apiV1.Group("/kb")
		{
			kb.POST("/lookup", h.Kb.Lookup)
			kb.POST("/recall", h.Kb.Recall)
			kb.POST("/answers", h.Kb.Remember)
		}

		admin := apiV1.Group("")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			indexes := admin.Group("/indexes")
			{
				indexes.GET("", h.Index.List)
				indexes.POST("", h.Index.Create)
				indexes.DELETE("/:name", h.Index.Delete)
				indexes.POST("/:name/documents", h.Ingest.AddDocuments)
			}

			ingest := admin.Group("/ingest")
			{
				ingest.POST("/tasks", h.Ingest.SubmitTask)
				ingest.GET("/runs", h.Ingest.ListRuns)
			}
		}
	}
	return r
}
