package service

import (
	"context"
	"fmt"
	"iter"
	"path"

	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/embedding"
)

// Batcher 将文本分块转换为可写入索引的记录。
type Batcher struct {
	embedder embedding.Provider
}

// NewBatcher 创建 Batcher。PlainText 索引不需要 embedder，可传 nil。
func NewBatcher(embedder embedding.Provider) *Batcher {
	return &Batcher{embedder: embedder}
}

// MakeRecords 按输入顺序为每个分块惰性地生成一条记录，序号从 1 开始。
// VectorSemantic 记录在被消费时才同步调用 embedding；出错时产出该错误并结束序列。
// 返回的序列只能遍历一次。
func (b *Batcher) MakeRecords(ctx context.Context, kind model.IndexKind, m embedding.ModelType, fileName string, chunks []model.Chunk) iter.Seq2[model.Record, error] {
	source := path.Base(fileName)
	used := false
	return func(yield func(model.Record, error) bool) {
		if used {
			yield(nil, fmt.Errorf("records of %s already consumed", fileName))
			return
		}
		used = true

		for i, chunk := range chunks {
			rec := model.DocumentRecord{
				ID:      model.SanitizeID(fileName, i+1),
				Content: chunk.PageContent,
			}
			switch kind {
			case model.PlainText:
				rec.SourceFile = source
			case model.VectorSemantic:
				if b.embedder == nil {
					yield(nil, fmt.Errorf("no embedding provider for %s", kind))
					return
				}
				vector, err := b.embedder.Embed(ctx, m, chunk.PageContent)
				if err != nil {
					yield(nil, fmt.Errorf("embed chunk %d of %s: %w", i+1, fileName, err))
					return
				}
				rec.Vector = vector
				rec.Metadata = source
			default:
				yield(nil, fmt.Errorf("%w: %d", model.ErrUnknownIndexKind, int(kind)))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// RecordsOf 将内存中的记录包装为写入路径使用的序列。
func RecordsOf[R model.Record](records ...R) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
	}
}
