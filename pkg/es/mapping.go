package es

import (
	"fmt"

	"cogsearch-go/internal/model"
)

// analyzers 将服务无关的分析器名映射为 Elasticsearch 内置分析器。
var analyzers = map[string]string{
	model.AnalyzerEnMicrosoft: "english",
}

// indexMeta 保存在 mapping 的 _meta 中，查询时据此还原语义配置与向量参数。
type indexMeta struct {
	Kind         string                    `json:"kind,omitempty"`
	Fields       []model.FieldSpec         `json:"fields"`
	VectorSearch *model.VectorSearchConfig `json:"vectorSearch,omitempty"`
	Semantic     []model.SemanticConfig    `json:"semantic,omitempty"`
}

func (m *indexMeta) descriptor(name string) model.IndexDescriptor {
	desc := model.IndexDescriptor{
		Name:         name,
		Fields:       m.Fields,
		VectorSearch: m.VectorSearch,
		Semantic:     m.Semantic,
	}
	if kind, err := model.ParseIndexKind(m.Kind); err == nil {
		desc.Kind = kind
	}
	return desc
}

// BuildMapping 将索引描述翻译为创建索引的请求体。
func BuildMapping(desc model.IndexDescriptor) (map[string]interface{}, error) {
	if len(desc.Fields) == 0 {
		return nil, fmt.Errorf("index %s has no fields", desc.Name)
	}

	props := make(map[string]interface{}, len(desc.Fields))
	for _, f := range desc.Fields {
		p, err := fieldMapping(desc, f)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", desc.Name, err)
		}
		props[f.Name] = p
	}

	meta := indexMeta{
		Fields:       desc.Fields,
		VectorSearch: desc.VectorSearch,
		Semantic:     desc.Semantic,
	}
	if desc.Kind != 0 {
		meta.Kind = desc.Kind.String()
	}

	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"dynamic":    "strict",
			"_meta":      meta,
			"properties": props,
		},
	}, nil
}

func fieldMapping(desc model.IndexDescriptor, f model.FieldSpec) (map[string]interface{}, error) {
	switch f.DataType {
	case model.FieldString:
		return stringMapping(f), nil
	case model.FieldInt64:
		return map[string]interface{}{"type": "long"}, nil
	case model.FieldBoolean:
		return map[string]interface{}{"type": "boolean"}, nil
	case model.FieldVectorSingle:
		return vectorMapping(desc, f)
	default:
		return nil, fmt.Errorf("field %s: unsupported data type %q", f.Name, f.DataType)
	}
}

func stringMapping(f model.FieldSpec) map[string]interface{} {
	switch {
	case f.Key:
		return map[string]interface{}{"type": "keyword"}
	case f.Searchable:
		m := map[string]interface{}{"type": "text"}
		if a, ok := analyzers[f.Analyzer]; ok {
			m["analyzer"] = a
		} else if f.Analyzer != "" {
			m["analyzer"] = f.Analyzer
		}
		if f.Filterable || f.Facetable {
			m["fields"] = map[string]interface{}{
				"keyword": map[string]interface{}{"type": "keyword"},
			}
		}
		return m
	case f.Filterable || f.Facetable:
		return map[string]interface{}{"type": "keyword"}
	default:
		// 只用于取回的字段不建索引
		return map[string]interface{}{"type": "text", "index": false}
	}
}

func vectorMapping(desc model.IndexDescriptor, f model.FieldSpec) (map[string]interface{}, error) {
	if f.VectorDimensions <= 0 {
		return nil, fmt.Errorf("vector field %s: dimensions must be positive", f.Name)
	}
	_, algo, ok := desc.VectorSearch.Profile(f.VectorProfile)
	if !ok {
		return nil, fmt.Errorf("vector field %s: profile %q not found", f.Name, f.VectorProfile)
	}

	m := map[string]interface{}{
		"type":       "dense_vector",
		"dims":       f.VectorDimensions,
		"index":      true,
		"similarity": similarity(algo.Metric),
	}
	switch algo.Kind {
	case model.AlgorithmHNSW:
		opts := map[string]interface{}{"type": "hnsw"}
		if algo.M > 0 {
			opts["m"] = algo.M
		}
		if algo.EfConstruction > 0 {
			opts["ef_construction"] = algo.EfConstruction
		}
		m["index_options"] = opts
	case model.AlgorithmExhaustiveKNN:
		m["index_options"] = map[string]interface{}{"type": "flat"}
	default:
		return nil, fmt.Errorf("vector field %s: unsupported algorithm kind %q", f.Name, algo.Kind)
	}
	return m, nil
}

func similarity(metric string) string {
	switch metric {
	case "dotProduct":
		return "dot_product"
	case "euclidean":
		return "l2_norm"
	default:
		return "cosine"
	}
}

// filterPath 返回等值过滤应作用的字段路径；可检索又可过滤的字段使用 keyword 子字段。
func filterPath(desc model.IndexDescriptor, field string) string {
	f, ok := desc.Field(field)
	if ok && f.DataType == model.FieldString && !f.Key && f.Searchable && (f.Filterable || f.Facetable) {
		return field + ".keyword"
	}
	return field
}

// searchableFields 返回所有可全文检索的字段名。
func searchableFields(desc model.IndexDescriptor) []string {
	var out []string
	for _, f := range desc.Fields {
		if f.DataType == model.FieldString && f.Searchable {
			out = append(out, f.Name)
		}
	}
	return out
}

// vectorFields 返回所有向量字段名。
func vectorFields(desc model.IndexDescriptor) []string {
	var out []string
	for _, f := range desc.Fields {
		if f.DataType == model.FieldVectorSingle {
			out = append(out, f.Name)
		}
	}
	return out
}
