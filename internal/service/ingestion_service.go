package service

import (
	"context"
	"fmt"
	"iter"

	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/log"
)

// DefaultBatchSize 是单次批量写入的记录数上限。
const DefaultBatchSize = 1000

// IngestionService 接口定义了批量写入操作。
type IngestionService interface {
	Ingest(ctx context.Context, indexName string, records iter.Seq2[model.Record, error]) (model.IngestionReport, error)
}

type ingestionService struct {
	backend   SearchBackend
	batchSize int
}

// NewIngestionService 创建一个新的 IngestionService 实例。
func NewIngestionService(backend SearchBackend, batchSize int) IngestionService {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ingestionService{backend: backend, batchSize: batchSize}
}

// Ingest 按批写入记录：满批使用合并写入，结尾不足一批的剩余记录使用普通上传。
// 单条失败只计入报告，不在本层重试；整批失败或记录源出错时停止并返回已完成的报告。
func (s *ingestionService) Ingest(ctx context.Context, indexName string, records iter.Seq2[model.Record, error]) (model.IngestionReport, error) {
	var report model.IngestionReport
	buf := make([]model.Record, 0, s.batchSize)

	for rec, err := range records {
		if err != nil {
			log.Errorf("[IngestionService] 读取记录失败, index: %s, error: %v", indexName, err)
			return report, err
		}
		buf = append(buf, rec)
		if len(buf) < s.batchSize {
			continue
		}
		if err := s.flush(ctx, indexName, model.UploadMergeOrUpload, buf, &report); err != nil {
			return report, err
		}
		buf = buf[:0]
	}

	if len(buf) > 0 {
		if err := s.flush(ctx, indexName, model.UploadPlain, buf, &report); err != nil {
			return report, err
		}
	}
	log.Infof("[IngestionService] 写入完成, index: %s, batches: %d, attempted: %d, succeeded: %d",
		indexName, len(report.Batches), report.Attempted, report.Succeeded)
	return report, nil
}

func (s *ingestionService) flush(ctx context.Context, indexName string, mode model.UploadMode, batch []model.Record, report *model.IngestionReport) error {
	results, err := s.backend.UploadDocuments(ctx, indexName, mode, batch)
	if err != nil {
		log.Errorf("[IngestionService] 批量写入失败, index: %s, mode: %s, size: %d, error: %v", indexName, mode, len(batch), err)
		return fmt.Errorf("upload batch %d to %s: %w", len(report.Batches)+1, indexName, err)
	}

	b := model.BatchReport{Mode: mode, Attempted: len(results)}
	for _, r := range results {
		if r.Succeeded {
			b.Succeeded++
		}
	}
	if b.Attempted != len(batch) {
		log.Warnf("[IngestionService] 返回结果数与批大小不一致, index: %s, sent: %d, returned: %d", indexName, len(batch), b.Attempted)
	}
	report.Add(b)
	log.Infow("[IngestionService] 批次写入完成",
		"index", indexName, "mode", mode.String(), "attempted", b.Attempted, "succeeded", b.Succeeded)
	return nil
}
