package es

import (
	"encoding/json"
	"fmt"
	"io"

	"cogsearch-go/internal/model"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ResponseError 是 Elasticsearch 返回的错误响应。
type ResponseError struct {
	StatusCode int
	Type       string
	Reason     string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("elasticsearch returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("elasticsearch returned status %d: %s: %s", e.StatusCode, e.Type, e.Reason)
}

// Is 让 errors.Is(err, model.ErrIndexNotFound) 对索引不存在的响应成立。
func (e *ResponseError) Is(target error) bool {
	return target == model.ErrIndexNotFound && e.Type == "index_not_found_exception"
}

// decodeError 将错误响应解析为 *ResponseError，调用方负责关闭 Body。
func decodeError(res *esapi.Response) error {
	rerr := &ResponseError{StatusCode: res.StatusCode}
	body, err := io.ReadAll(res.Body)
	if err != nil || len(body) == 0 {
		return rerr
	}
	var payload struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		rerr.Type = payload.Error.Type
		rerr.Reason = payload.Error.Reason
	}
	return rerr
}
