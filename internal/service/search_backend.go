// Package service 包含索引结构管理、批量写入、查询门面与知识库缓存等业务逻辑。
package service

import (
	"context"

	"cogsearch-go/internal/model"
)

// SearchBackend 是远程搜索服务的端口，由 pkg/es 实现，测试中使用内存替身。
type SearchBackend interface {
	ListIndexNames(ctx context.Context) ([]string, error)
	CreateIndex(ctx context.Context, desc model.IndexDescriptor) error
	DeleteIndex(ctx context.Context, name string) error
	UploadDocuments(ctx context.Context, index string, mode model.UploadMode, records []model.Record) ([]model.IndexingResult, error)
	Search(ctx context.Context, index string, req model.SearchRequest) (*model.SearchResults, error)
}
