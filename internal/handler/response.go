// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/embedding"

	"github.com/gin-gonic/gin"
)

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"code": status, "data": data, "message": "success"})
}

func failure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "data": nil, "message": message})
}

// statusFor 将领域错误映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrUnknownIndexKind),
		errors.Is(err, embedding.ErrUnknownModel),
		errors.Is(err, embedding.ErrEmptyText):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrIndexNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// resultResponse 是 model.Result 的对外形式。
type resultResponse struct {
	Outcome    string         `json:"outcome"`
	TotalCount *int64         `json:"totalCount,omitempty"`
	Hits       []model.Hit    `json:"hits"`
	Answers    []model.Answer `json:"answers,omitempty"`
}

// writeResult 输出查询结果；Failed 结果按错误类型返回非 2xx。
func writeResult(c *gin.Context, res model.Result) {
	if res.Failed() {
		failure(c, statusFor(res.Err), res.Err.Error())
		return
	}
	out := resultResponse{Outcome: res.Outcome.String(), Hits: res.Hits()}
	if out.Hits == nil {
		out.Hits = []model.Hit{}
	}
	if res.Results != nil {
		out.TotalCount = res.Results.TotalCount
		out.Answers = res.Results.Answers
	}
	success(c, http.StatusOK, out)
}
