// Package model 定义了索引结构、文档记录与搜索请求/结果等领域类型。
package model

import (
	"fmt"
	"strings"
)

// IndexKind 是索引类型的封闭枚举，决定索引结构与查询方式。
type IndexKind int

const (
	// PlainText 为纯文本 + 语义排序索引，外部标签为 "cogsearch"。
	PlainText IndexKind = iota + 1
	// VectorSemantic 为向量 + 语义混合索引，外部标签为 "cogsearchvs"。
	VectorSemantic
)

// String 返回索引类型的外部标签，KB 过滤条件中也使用该值。
func (k IndexKind) String() string {
	switch k {
	case PlainText:
		return "cogsearch"
	case VectorSemantic:
		return "cogsearchvs"
	default:
		return fmt.Sprintf("IndexKind(%d)", int(k))
	}
}

// ParseIndexKind 将外部标签解析为 IndexKind。
func ParseIndexKind(s string) (IndexKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cogsearch":
		return PlainText, nil
	case "cogsearchvs":
		return VectorSemantic, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownIndexKind, s)
	}
}

// MarshalText 让 IndexKind 以标签形式出现在 JSON / YAML 中。
func (k IndexKind) MarshalText() ([]byte, error) {
	if k != PlainText && k != VectorSemantic {
		return nil, fmt.Errorf("%w: %d", ErrUnknownIndexKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText 解析标签形式的 IndexKind。
func (k *IndexKind) UnmarshalText(b []byte) error {
	parsed, err := ParseIndexKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// 众所周知的语义配置名与向量字段名。
const (
	SemanticConfigPrimary  = "mySemanticConfig"
	SemanticConfigFallback = "default"

	AnalyzerEnMicrosoft = "en.microsoft"

	// DefaultVectorDimensions 是 ada-002 / text-embedding-3-small 的维度。
	DefaultVectorDimensions = 1536
)

// FieldDataType 是字段的数据类型。
type FieldDataType string

const (
	FieldString       FieldDataType = "Edm.String"
	FieldInt64        FieldDataType = "Edm.Int64"
	FieldBoolean      FieldDataType = "Edm.Boolean"
	FieldVectorSingle FieldDataType = "Collection(Edm.Single)"
)

// FieldSpec 描述索引中的一个字段。
type FieldSpec struct {
	Name             string        `json:"name"`
	DataType         FieldDataType `json:"type"`
	Key              bool          `json:"key,omitempty"`
	Searchable       bool          `json:"searchable,omitempty"`
	Retrievable      bool          `json:"retrievable,omitempty"`
	Filterable       bool          `json:"filterable,omitempty"`
	Facetable        bool          `json:"facetable,omitempty"`
	VectorDimensions int           `json:"dimensions,omitempty"`
	VectorProfile    string        `json:"vectorSearchProfile,omitempty"`
	Analyzer         string        `json:"analyzer,omitempty"`
}

// VectorAlgorithmKind 是向量检索算法类型。
type VectorAlgorithmKind string

const (
	AlgorithmHNSW          VectorAlgorithmKind = "hnsw"
	AlgorithmExhaustiveKNN VectorAlgorithmKind = "exhaustiveKnn"
)

// VectorMetricCosine 是唯一使用的相似度度量。
const VectorMetricCosine = "cosine"

// VectorAlgorithm 描述一个具名的向量检索算法配置。
// M / EfConstruction / EfSearch 仅对 HNSW 有意义。
type VectorAlgorithm struct {
	Name           string              `json:"name"`
	Kind           VectorAlgorithmKind `json:"kind"`
	M              int                 `json:"m,omitempty"`
	EfConstruction int                 `json:"efConstruction,omitempty"`
	EfSearch       int                 `json:"efSearch,omitempty"`
	Metric         string              `json:"metric"`
}

// VectorProfile 将向量字段关联到某个算法配置。
type VectorProfile struct {
	Name      string `json:"name"`
	Algorithm string `json:"algorithm"`
}

// VectorSearchConfig 只会挂在含向量字段的索引上。
type VectorSearchConfig struct {
	Algorithms []VectorAlgorithm `json:"algorithms"`
	Profiles   []VectorProfile   `json:"profiles"`
}

// Profile 按名称查找向量 profile 以及它引用的算法。
func (c *VectorSearchConfig) Profile(name string) (VectorProfile, VectorAlgorithm, bool) {
	if c == nil {
		return VectorProfile{}, VectorAlgorithm{}, false
	}
	for _, p := range c.Profiles {
		if p.Name != name {
			continue
		}
		for _, a := range c.Algorithms {
			if a.Name == p.Algorithm {
				return p, a, true
			}
		}
		return p, VectorAlgorithm{}, false
	}
	return VectorProfile{}, VectorAlgorithm{}, false
}

// SemanticConfig 是远程服务上的具名语义重排配置。
type SemanticConfig struct {
	Name          string   `json:"name"`
	TitleField    string   `json:"titleField,omitempty"`
	KeywordFields []string `json:"keywordsFields,omitempty"`
	ContentFields []string `json:"contentFields,omitempty"`
}

// IndexDescriptor 描述一个索引的完整结构，创建后不再变更。
// KB 索引不属于任何 IndexKind，其 Kind 为零值。
type IndexDescriptor struct {
	Name         string              `json:"name"`
	Kind         IndexKind           `json:"-"`
	Fields       []FieldSpec         `json:"fields"`
	VectorSearch *VectorSearchConfig `json:"vectorSearch,omitempty"`
	Semantic     []SemanticConfig    `json:"semantic,omitempty"`
}

// Field 按名称查找字段。
func (d *IndexDescriptor) Field(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames 按顺序返回所有字段名。
func (d *IndexDescriptor) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		names = append(names, f.Name)
	}
	return names
}
