package service

import (
	"context"
	"fmt"
	"slices"

	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/log"
)

// 向量 profile 与算法名，和远程索引上的配置保持一致。
const (
	hnswProfileName     = "myHnswProfile"
	hnswAlgorithmName   = "default"
	exhaustiveKnnName   = "default_exhaustive_knn"
	kbVectorProfileName = "vectorConfig"
	kbHnswAlgorithmName = "hnswConfig"
	hnswM               = 4
	hnswEfConstruction  = 400
	hnswEfSearch        = 500
)

// 向量字段名。
const (
	ContentVectorField    = "content_vector"
	KbVectorQuestionField = "vectorQuestion"
)

// SchemaService 接口定义了索引结构的管理操作。
type SchemaService interface {
	ListIndexes(ctx context.Context) ([]string, error)
	CreateIndex(ctx context.Context, kind model.IndexKind, name string) (bool, error)
	DeleteIndex(ctx context.Context, name string) (bool, error)
	EnsureKbIndex(ctx context.Context, name string) (bool, error)
}

type schemaService struct {
	backend    SearchBackend
	dimensions int
}

// NewSchemaService 创建一个新的 SchemaService 实例。
func NewSchemaService(backend SearchBackend, dimensions int) SchemaService {
	if dimensions <= 0 {
		dimensions = model.DefaultVectorDimensions
	}
	return &schemaService{backend: backend, dimensions: dimensions}
}

// ListIndexes 返回远程服务上的索引名列表。
func (s *schemaService) ListIndexes(ctx context.Context) ([]string, error) {
	return s.backend.ListIndexNames(ctx)
}

func (s *schemaService) exists(ctx context.Context, name string) (bool, error) {
	names, err := s.backend.ListIndexNames(ctx)
	if err != nil {
		return false, fmt.Errorf("list indexes: %w", err)
	}
	return slices.Contains(names, name), nil
}

// DeleteIndex 删除索引；索引不存在时只记录日志并返回 false。
func (s *schemaService) DeleteIndex(ctx context.Context, name string) (bool, error) {
	ok, err := s.exists(ctx, name)
	if err != nil {
		log.Errorf("[SchemaService] 检查索引 '%s' 是否存在失败: %v", name, err)
		return false, err
	}
	if !ok {
		log.Infof("[SchemaService] 索引 '%s' 不存在, 跳过删除", name)
		return false, nil
	}
	if err := s.backend.DeleteIndex(ctx, name); err != nil {
		log.Errorf("[SchemaService] 删除索引 '%s' 失败: %v", name, err)
		return false, err
	}
	log.Infof("[SchemaService] 索引 '%s' 已删除", name)
	return true, nil
}

// CreateIndex 按索引类型创建索引；同名索引已存在时不做任何变更。
func (s *schemaService) CreateIndex(ctx context.Context, kind model.IndexKind, name string) (bool, error) {
	desc, err := BuildDescriptor(kind, name, s.dimensions)
	if err != nil {
		return false, err
	}
	return s.create(ctx, desc)
}

// EnsureKbIndex 确保知识库缓存索引存在。
func (s *schemaService) EnsureKbIndex(ctx context.Context, name string) (bool, error) {
	return s.create(ctx, KbDescriptor(name, s.dimensions))
}

func (s *schemaService) create(ctx context.Context, desc model.IndexDescriptor) (bool, error) {
	ok, err := s.exists(ctx, desc.Name)
	if err != nil {
		log.Errorf("[SchemaService] 检查索引 '%s' 是否存在失败: %v", desc.Name, err)
		return false, err
	}
	if ok {
		log.Infof("[SchemaService] 索引 '%s' 已存在", desc.Name)
		return false, nil
	}

	log.Infof("[SchemaService] 开始创建索引 '%s', 字段: %v", desc.Name, desc.FieldNames())
	if err := s.backend.CreateIndex(ctx, desc); err != nil {
		log.Errorf("[SchemaService] 创建索引 '%s' 失败: %v", desc.Name, err)
		return false, err
	}
	log.Infof("[SchemaService] 索引 '%s' 创建成功", desc.Name)
	return true, nil
}

// BuildDescriptor 返回指定类型索引的完整结构描述。
func BuildDescriptor(kind model.IndexKind, name string, dimensions int) (model.IndexDescriptor, error) {
	switch kind {
	case model.VectorSemantic:
		return model.IndexDescriptor{
			Name: name,
			Kind: kind,
			Fields: []model.FieldSpec{
				{Name: "id", DataType: model.FieldString, Key: true, Retrievable: true},
				{Name: "content", DataType: model.FieldString, Searchable: true, Retrievable: true, Analyzer: model.AnalyzerEnMicrosoft},
				{Name: ContentVectorField, DataType: model.FieldVectorSingle, Searchable: true, VectorDimensions: dimensions, VectorProfile: hnswProfileName},
				{Name: "metadata", DataType: model.FieldString, Searchable: true, Retrievable: true},
			},
			VectorSearch: &model.VectorSearchConfig{
				Algorithms: []model.VectorAlgorithm{
					{Name: hnswAlgorithmName, Kind: model.AlgorithmHNSW, M: hnswM, EfConstruction: hnswEfConstruction, EfSearch: hnswEfSearch, Metric: model.VectorMetricCosine},
					{Name: exhaustiveKnnName, Kind: model.AlgorithmExhaustiveKNN, Metric: model.VectorMetricCosine},
				},
				Profiles: []model.VectorProfile{{Name: hnswProfileName, Algorithm: hnswAlgorithmName}},
			},
			Semantic: []model.SemanticConfig{{Name: model.SemanticConfigPrimary, ContentFields: []string{"content"}}},
		}, nil
	case model.PlainText:
		return model.IndexDescriptor{
			Name: name,
			Kind: kind,
			Fields: []model.FieldSpec{
				{Name: "id", DataType: model.FieldString, Key: true, Retrievable: true},
				{Name: "content", DataType: model.FieldString, Searchable: true, Retrievable: true, Analyzer: model.AnalyzerEnMicrosoft},
				{Name: "sourcefile", DataType: model.FieldString, Retrievable: true, Filterable: true, Facetable: true},
			},
			Semantic: []model.SemanticConfig{{
				Name:          model.SemanticConfigPrimary,
				TitleField:    "content",
				KeywordFields: []string{"sourcefile"},
				ContentFields: []string{"content"},
			}},
		}, nil
	default:
		return model.IndexDescriptor{}, fmt.Errorf("%w: %d", model.ErrUnknownIndexKind, int(kind))
	}
}

// KbDescriptor 返回知识库缓存索引的结构描述。
func KbDescriptor(name string, dimensions int) model.IndexDescriptor {
	return model.IndexDescriptor{
		Name: name,
		Fields: []model.FieldSpec{
			{Name: "id", DataType: model.FieldString, Key: true, Retrievable: true},
			{Name: "question", DataType: model.FieldString, Searchable: true, Retrievable: true, Analyzer: model.AnalyzerEnMicrosoft},
			{Name: "indexType", DataType: model.FieldString, Searchable: true, Retrievable: true, Filterable: true},
			{Name: "indexName", DataType: model.FieldString, Searchable: true, Retrievable: true, Filterable: true},
			{Name: KbVectorQuestionField, DataType: model.FieldVectorSingle, Searchable: true, VectorDimensions: dimensions, VectorProfile: kbVectorProfileName},
			{Name: "answer", DataType: model.FieldString, Retrievable: true},
		},
		VectorSearch: &model.VectorSearchConfig{
			Algorithms: []model.VectorAlgorithm{
				{Name: kbHnswAlgorithmName, Kind: model.AlgorithmHNSW, M: hnswM, EfConstruction: hnswEfConstruction, EfSearch: hnswEfSearch, Metric: model.VectorMetricCosine},
			},
			Profiles: []model.VectorProfile{{Name: kbVectorProfileName, Algorithm: kbHnswAlgorithmName}},
		},
		Semantic: []model.SemanticConfig{{
			Name:          model.SemanticConfigPrimary,
			TitleField:    "question",
			ContentFields: []string{"question"},
		}},
	}
}
