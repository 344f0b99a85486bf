package service

import (
	"context"
	"errors"
	"fmt"

	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/embedding"
	"cogsearch-go/pkg/log"

	"github.com/google/uuid"
)

// DefaultKbReturnFields 是知识库查询默认返回的字段。
var DefaultKbReturnFields = []string{"id", "question", "indexType", "indexName", "answer"}

// KbLookupParams 描述一次知识库向量查询。
type KbLookupParams struct {
	Vector       []float32
	VectorField  string
	Kind         model.IndexKind
	IndexName    string
	KbIndexName  string
	K            int
	ReturnFields []string
}

// RememberParams 描述一条待写入知识库的问答。
type RememberParams struct {
	Model       embedding.ModelType
	Question    string
	Answer      string
	Kind        model.IndexKind
	IndexName   string
	KbIndexName string
}

// RecallParams 描述一次按问题查找已缓存答案的请求。
type RecallParams struct {
	Model       embedding.ModelType
	Question    string
	Kind        model.IndexKind
	IndexName   string
	KbIndexName string
	K           int
}

// Recall 是缓存查找的结果。Hit 为 false 时 Answer 为空。
type Recall struct {
	Hit      bool
	Answer   string
	Question string
	Score    float64
	Result   model.Result
}

// KbService 接口定义了知识库缓存操作。
type KbService interface {
	Lookup(ctx context.Context, p KbLookupParams) model.Result
	Remember(ctx context.Context, p RememberParams) (model.KbRecord, error)
	Recall(ctx context.Context, p RecallParams) (Recall, error)
}

type kbService struct {
	backend   SearchBackend
	schema    SchemaService
	ingestion IngestionService
	embedder  embedding.Provider
	cfg       KbSettings
}

// KbSettings 是知识库缓存的默认参数。
type KbSettings struct {
	IndexName string
	K         int
	MinScore  float64
}

// NewKbService 创建一个新的 KbService 实例。
func NewKbService(backend SearchBackend, schema SchemaService, ingestion IngestionService, embedder embedding.Provider, cfg KbSettings) KbService {
	return &kbService{backend: backend, schema: schema, ingestion: ingestion, embedder: embedder, cfg: cfg}
}

func (s *kbService) kbIndex(name string) string {
	if name != "" {
		return name
	}
	return s.cfg.IndexName
}

// Lookup 在知识库索引中按 (indexType, indexName) 过滤后做向量检索。
func (s *kbService) Lookup(ctx context.Context, p KbLookupParams) model.Result {
	kbIndex := s.kbIndex(p.KbIndexName)
	if _, err := s.schema.EnsureKbIndex(ctx, kbIndex); err != nil {
		log.Errorf("[KbService] 确保知识库索引 '%s' 存在失败: %v", kbIndex, err)
		return model.FailedResult(err)
	}

	k := p.K
	if k <= 0 {
		k = s.cfg.K
	}
	if k <= 0 {
		k = DefaultTopK
	}
	field := p.VectorField
	if field == "" {
		field = KbVectorQuestionField
	}
	fields := p.ReturnFields
	if len(fields) == 0 {
		fields = DefaultKbReturnFields
	}

	filter := model.Filter{
		{Field: "indexType", Value: p.Kind.String()},
		{Field: "indexName", Value: p.IndexName},
	}
	log.Infof("[KbService] 查询知识库, kb: %s, filter: %s, k: %d", kbIndex, filter, k)

	res, err := s.backend.Search(ctx, kbIndex, model.SearchRequest{
		Filter:            filter,
		Vector:            &model.VectorQuery{Vector: p.Vector, K: k, Field: field},
		Semantic:          &model.SemanticOptions{ConfigName: model.SemanticConfigPrimary},
		Select:            fields,
		Top:               k,
		IncludeTotalCount: true,
	})
	if err != nil {
		log.Errorf("[KbService] 查询知识库失败, kb: %s, error: %v", kbIndex, err)
		return model.FailedResult(err)
	}
	return model.NewResult(res)
}

// Remember 计算问题向量并通过通用写入路径保存一条问答记录。
func (s *kbService) Remember(ctx context.Context, p RememberParams) (model.KbRecord, error) {
	if p.Question == "" || p.Answer == "" {
		return model.KbRecord{}, errors.New("question and answer are required")
	}
	kbIndex := s.kbIndex(p.KbIndexName)
	if _, err := s.schema.EnsureKbIndex(ctx, kbIndex); err != nil {
		return model.KbRecord{}, err
	}

	vector, err := s.embedder.Embed(ctx, p.Model, p.Question)
	if err != nil {
		return model.KbRecord{}, fmt.Errorf("embed question: %w", err)
	}
	rec := model.KbRecord{
		ID:             uuid.NewString(),
		Question:       p.Question,
		IndexType:      p.Kind.String(),
		IndexName:      p.IndexName,
		VectorQuestion: vector,
		Answer:         p.Answer,
	}

	report, err := s.ingestion.Ingest(ctx, kbIndex, RecordsOf(rec))
	if err != nil {
		return model.KbRecord{}, err
	}
	if report.Succeeded != 1 {
		return model.KbRecord{}, fmt.Errorf("kb record %s was not accepted by %s", rec.ID, kbIndex)
	}
	log.Infof("[KbService] 已缓存问答, kb: %s, id: %s, scope: %s/%s", kbIndex, rec.ID, rec.IndexType, rec.IndexName)
	return rec, nil
}

// Recall 查找与问题足够相似的已缓存答案，最高分低于阈值时视为未命中。
func (s *kbService) Recall(ctx context.Context, p RecallParams) (Recall, error) {
	vector, err := s.embedder.Embed(ctx, p.Model, p.Question)
	if err != nil {
		return Recall{}, fmt.Errorf("embed question: %w", err)
	}

	res := s.Lookup(ctx, KbLookupParams{
		Vector:      vector,
		VectorField: KbVectorQuestionField,
		Kind:        p.Kind,
		IndexName:   p.IndexName,
		KbIndexName: p.KbIndexName,
		K:           p.K,
	})
	if res.Failed() {
		return Recall{Result: res}, res.Err
	}

	hits := res.Hits()
	if len(hits) == 0 {
		log.Infof("[KbService] 知识库未命中, scope: %s/%s", p.Kind, p.IndexName)
		return Recall{Result: res}, nil
	}
	top := hits[0]
	if top.Score < s.cfg.MinScore {
		log.Infof("[KbService] 最高分 %.4f 低于阈值 %.4f, 视为未命中", top.Score, s.cfg.MinScore)
		return Recall{Score: top.Score, Result: res}, nil
	}
	return Recall{
		Hit:      true,
		Answer:   top.String("answer"),
		Question: top.String("question"),
		Score:    top.Score,
		Result:   res,
	}, nil
}
