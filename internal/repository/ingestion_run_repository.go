// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"cogsearch-go/internal/model"

	"gorm.io/gorm"
)

// defaultRecentLimit 是 FindRecent 未指定条数时返回的记录数。
const defaultRecentLimit = 20

// IngestionRunRepository 接口定义了入库流水的持久化操作。
type IngestionRunRepository interface {
	Create(run *model.IngestionRun) error
	FindRecent(indexName string, limit int) ([]model.IngestionRun, error)
}

// ingestionRunRepository 是 IngestionRunRepository 接口的 GORM 实现。
type ingestionRunRepository struct {
	db *gorm.DB
}

// NewIngestionRunRepository 创建一个新的 IngestionRunRepository 实例。
func NewIngestionRunRepository(db *gorm.DB) IngestionRunRepository {
	return &ingestionRunRepository{db: db}
}

// Create 写入一条入库流水。
func (r *ingestionRunRepository) Create(run *model.IngestionRun) error {
	return r.db.Create(run).Error
}

// FindRecent 按开始时间倒序返回最近的入库流水，indexName 为空时不按索引过滤。
func (r *ingestionRunRepository) FindRecent(indexName string, limit int) ([]model.IngestionRun, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	var runs []model.IngestionRun
	q := r.db.Order("started_at desc").Limit(limit)
	if indexName != "" {
		q = q.Where("index_name = ?", indexName)
	}
	err := q.Find(&runs).Error
	return runs, err
}
