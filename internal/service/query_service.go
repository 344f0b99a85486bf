package service

import (
	"context"
	"errors"
	"fmt"

	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/embedding"
	"cogsearch-go/pkg/log"
)

// DefaultReturnFields 是未指定返回字段时的默认值。
var DefaultReturnFields = []string{"id", "content", "metadata"}

// DefaultTopK 是未指定 k 时返回的结果数。
const DefaultTopK = 3

// QueryParams 描述一次查询。
type QueryParams struct {
	Kind         model.IndexKind
	Model        embedding.ModelType
	Question     string
	IndexName    string
	K            int
	ReturnFields []string
}

func (p QueryParams) k() int {
	if p.K > 0 {
		return p.K
	}
	return DefaultTopK
}

func (p QueryParams) fields() []string {
	if len(p.ReturnFields) > 0 {
		return p.ReturnFields
	}
	return DefaultReturnFields
}

// QueryService 接口定义了查询门面。返回值总是非空的 model.Result，失败时 Outcome 为 Failed。
type QueryService interface {
	Query(ctx context.Context, p QueryParams) model.Result
	QuerySummaryQA(ctx context.Context, p QueryParams) model.Result
}

type queryService struct {
	backend  SearchBackend
	embedder embedding.Provider
}

// NewQueryService 创建一个新的 QueryService 实例。
func NewQueryService(backend SearchBackend, embedder embedding.Provider) QueryService {
	return &queryService{backend: backend, embedder: embedder}
}

// Query 根据索引类型选择混合向量查询或纯语义查询。
func (s *queryService) Query(ctx context.Context, p QueryParams) model.Result {
	log.Infof("[QueryService] 开始查询, index: %s, kind: %s, k: %d", p.IndexName, p.Kind, p.k())

	var (
		res *model.SearchResults
		err error
	)
	switch p.Kind {
	case model.VectorSemantic:
		res, err = s.vectorSemantic(ctx, p)
	case model.PlainText:
		res, err = s.plainText(ctx, p)
	default:
		err = fmt.Errorf("%w: %d", model.ErrUnknownIndexKind, int(p.Kind))
	}
	return s.result(p, res, err)
}

// QuerySummaryQA 对两种索引类型都走纯语义查询路径，不使用向量检索。
func (s *queryService) QuerySummaryQA(ctx context.Context, p QueryParams) model.Result {
	log.Infof("[QueryService] 开始 summary-qa 查询, index: %s, kind: %s, k: %d", p.IndexName, p.Kind, p.k())

	var (
		res *model.SearchResults
		err error
	)
	switch p.Kind {
	case model.VectorSemantic, model.PlainText:
		res, err = s.plainText(ctx, p)
	default:
		err = fmt.Errorf("%w: %d", model.ErrUnknownIndexKind, int(p.Kind))
	}
	return s.result(p, res, err)
}

func (s *queryService) result(p QueryParams, res *model.SearchResults, err error) model.Result {
	if err != nil {
		log.Errorf("[QueryService] 查询失败, index: %s, error: %v", p.IndexName, err)
		return model.FailedResult(err)
	}
	r := model.NewResult(res)
	log.Infof("[QueryService] 查询完成, index: %s, outcome: %s, hits: %d", p.IndexName, r.Outcome, len(r.Hits()))
	return r
}

func (s *queryService) vectorSemantic(ctx context.Context, p QueryParams) (*model.SearchResults, error) {
	if s.embedder == nil {
		return nil, errors.New("no embedding provider configured")
	}
	vector, err := s.embedder.Embed(ctx, p.Model, p.Question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	return s.backend.Search(ctx, p.IndexName, model.SearchRequest{
		Text:   p.Question,
		Vector: &model.VectorQuery{Vector: vector, K: p.k(), Field: ContentVectorField},
		Semantic: &model.SemanticOptions{
			ConfigName:       model.SemanticConfigPrimary,
			Captions:         model.CaptionExtractive,
			CaptionHighlight: true,
			Answers:          model.AnswerExtractive,
		},
		Select:            p.fields(),
		Top:               p.k(),
		IncludeTotalCount: true,
	})
}

// plainText 使用主语义配置查询；远程服务不认识该配置时立即用 default 重试一次。
func (s *queryService) plainText(ctx context.Context, p QueryParams) (*model.SearchResults, error) {
	req := model.SearchRequest{
		Text: p.Question,
		Semantic: &model.SemanticOptions{
			ConfigName: model.SemanticConfigPrimary,
			Captions:   model.CaptionExtractive,
			Speller:    true,
		},
		Select: p.fields(),
		Top:    p.k(),
	}
	res, err := s.backend.Search(ctx, p.IndexName, req)
	if err == nil || !errors.Is(err, model.ErrSemanticConfigNotFound) {
		return res, err
	}

	log.Warnf("[QueryService] 语义配置 '%s' 不存在, 使用 '%s' 重试, index: %s",
		model.SemanticConfigPrimary, model.SemanticConfigFallback, p.IndexName)
	fallback := *req.Semantic
	fallback.ConfigName = model.SemanticConfigFallback
	req.Semantic = &fallback
	return s.backend.Search(ctx, p.IndexName, req)
}
