// Package pipeline 定义了文件入库的核心流程：取源文件、提取文本、切块、建索引、写入、记录流水。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"cogsearch-go/internal/model"
	"cogsearch-go/internal/repository"
	"cogsearch-go/internal/service"
	"cogsearch-go/pkg/embedding"
	"cogsearch-go/pkg/log"
	"cogsearch-go/pkg/tasks"
	"cogsearch-go/pkg/tika"
)

var (
	// ErrEmptyDocument 表示源文件或提取出的文本为空。
	ErrEmptyDocument = errors.New("document is empty")
	// ErrNoExtractor 表示需要 Tika 提取文本但未配置 Tika。
	ErrNoExtractor = errors.New("text extraction is not configured")
	// ErrNoObjectStore 表示任务引用了对象存储但未配置 MinIO。
	ErrNoObjectStore = errors.New("object store is not configured")
)

// ObjectSource 读取对象存储中的源文件。
type ObjectSource interface {
	Get(ctx context.Context, objectName string) (io.ReadCloser, error)
}

// TextExtractor 从二进制文档中提取纯文本。
type TextExtractor interface {
	Enabled() bool
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// Processor 封装了文件处理的所有依赖和逻辑。
type Processor struct {
	objects      ObjectSource
	extractor    TextExtractor
	splitter     *Splitter
	schema       service.SchemaService
	batcher      *service.Batcher
	ingestion    service.IngestionService
	runs         repository.IngestionRunRepository
	defaultModel embedding.ModelType
}

// Options 汇总 Processor 的依赖。Objects、Extractor、Runs 可以为 nil。
type Options struct {
	Objects      ObjectSource
	Extractor    TextExtractor
	Splitter     *Splitter
	Schema       service.SchemaService
	Batcher      *service.Batcher
	Ingestion    service.IngestionService
	Runs         repository.IngestionRunRepository
	DefaultModel embedding.ModelType
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(opts Options) *Processor {
	return &Processor{
		objects:      opts.Objects,
		extractor:    opts.Extractor,
		splitter:     opts.Splitter,
		schema:       opts.Schema,
		batcher:      opts.Batcher,
		ingestion:    opts.Ingestion,
		runs:         opts.Runs,
		defaultModel: opts.DefaultModel,
	}
}

// Process 实现 kafka.TaskProcessor。部分记录写入失败不视为错误，以免整份文件被重复投递。
func (p *Processor) Process(ctx context.Context, task tasks.IngestTask) error {
	_, err := p.Run(ctx, task)
	return err
}

// Run 同步执行一个入库任务并返回写入报告。
func (p *Processor) Run(ctx context.Context, task tasks.IngestTask) (model.IngestionReport, error) {
	if err := task.Validate(); err != nil {
		return model.IngestionReport{}, err
	}
	kind, err := model.ParseIndexKind(task.IndexKind)
	if err != nil {
		return model.IngestionReport{}, err
	}
	m, err := p.modelType(task.ModelType)
	if err != nil {
		return model.IngestionReport{}, err
	}
	log.Infof("[Processor] 开始处理文件, task: %s, index: %s, file: %s", task.TaskID, task.IndexName, task.FileName)

	started := time.Now()
	text, err := p.loadText(ctx, task)
	if err != nil {
		p.record(task, 0, model.IngestionReport{}, err, started)
		return model.IngestionReport{}, err
	}

	chunks, err := p.splitter.Split(text)
	if err == nil && len(chunks) == 0 {
		err = fmt.Errorf("%w: no chunks produced for %s", ErrEmptyDocument, task.FileName)
	}
	if err != nil {
		log.Warnf("[Processor] 文本分块失败, file: %s, error: %v", task.FileName, err)
		p.record(task, 0, model.IngestionReport{}, err, started)
		return model.IngestionReport{}, err
	}
	log.Infof("[Processor] 文本分块完成, 共生成 %d 个分块", len(chunks))

	report, err := p.IngestChunks(ctx, kind, m, task.IndexName, task.FileName, chunks)
	p.record(task, len(chunks), report, err, started)
	return report, err
}

// IngestChunks 确保索引存在，然后将已切好的分块写入索引。
func (p *Processor) IngestChunks(ctx context.Context, kind model.IndexKind, m embedding.ModelType, indexName, fileName string, chunks []model.Chunk) (model.IngestionReport, error) {
	created, err := p.schema.CreateIndex(ctx, kind, indexName)
	if err != nil {
		return model.IngestionReport{}, fmt.Errorf("ensure index %s: %w", indexName, err)
	}
	if created {
		log.Infof("[Processor] 索引 '%s' 不存在，已创建 (%s)", indexName, kind)
	}
	report, err := p.ingestion.Ingest(ctx, indexName, p.batcher.MakeRecords(ctx, kind, m, fileName, chunks))
	if err != nil {
		log.Errorf("[Processor] 写入索引失败, index: %s, file: %s, error: %v", indexName, fileName, err)
		return report, err
	}
	log.Infof("[Processor] 文件处理完成, index: %s, file: %s, succeeded: %d/%d", indexName, fileName, report.Succeeded, report.Attempted)
	return report, nil
}

func (p *Processor) modelType(s string) (embedding.ModelType, error) {
	if s == "" {
		if p.defaultModel == 0 {
			return embedding.AzureOpenAI, nil
		}
		return p.defaultModel, nil
	}
	return embedding.ParseModelType(s)
}

func (p *Processor) loadText(ctx context.Context, task tasks.IngestTask) (string, error) {
	if task.Text != "" {
		return task.Text, nil
	}
	if p.objects == nil {
		return "", ErrNoObjectStore
	}

	obj, err := p.objects.Get(ctx, task.ObjectName)
	if err != nil {
		log.Errorf("[Processor] 从MinIO下载文件失败, Object: %s, Error: %v", task.ObjectName, err)
		return "", err
	}
	defer obj.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(obj)
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", task.ObjectName, err)
	}
	if size == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, task.FileName)
	}
	log.Infof("[Processor] 文件下载成功, 大小: %d字节", size)

	if tika.IsPlainText(task.FileName) && utf8.Valid(buf.Bytes()) {
		return buf.String(), nil
	}
	if p.extractor == nil || !p.extractor.Enabled() {
		return "", fmt.Errorf("%w: %s", ErrNoExtractor, task.FileName)
	}
	text, err := p.extractor.ExtractText(ctx, bytes.NewReader(buf.Bytes()), task.FileName)
	if err != nil {
		log.Errorf("[Processor] 使用Tika提取文本失败, FileName: %s, Error: %v", task.FileName, err)
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w: nothing extracted from %s", ErrEmptyDocument, task.FileName)
	}
	log.Infof("[Processor] 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(text))
	return text, nil
}

// record 写入一条入库流水；流水写入失败只记录日志。
func (p *Processor) record(task tasks.IngestTask, chunks int, report model.IngestionReport, runErr error, started time.Time) {
	if p.runs == nil {
		return
	}
	run := &model.IngestionRun{
		IndexName:  task.IndexName,
		IndexKind:  task.IndexKind,
		SourceFile: task.FileName,
		Chunks:     chunks,
		Attempted:  report.Attempted,
		Succeeded:  report.Succeeded,
		Batches:    len(report.Batches),
		Status:     RunStatus(report, runErr),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := p.runs.Create(run); err != nil {
		log.Warnf("[Processor] 保存入库流水失败, task: %s, error: %v", task.TaskID, err)
	}
}

// RunStatus 根据报告与错误计算流水状态。
func RunStatus(report model.IngestionReport, err error) string {
	switch {
	case err != nil && report.Succeeded == 0:
		return model.RunStatusFailed
	case err != nil || report.Succeeded < report.Attempted:
		return model.RunStatusPartial
	default:
		return model.RunStatusSucceeded
	}
}
