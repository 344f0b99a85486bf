package model

import (
	"strings"
)

// CaptionMode 控制是否返回抽取式摘要。
type CaptionMode int

const (
	CaptionNone CaptionMode = iota
	CaptionExtractive
)

// AnswerMode 控制是否返回抽取式答案。
type AnswerMode int

const (
	AnswerNone AnswerMode = iota
	AnswerExtractive
)

// SemanticOptions 描述一次语义重排请求。
type SemanticOptions struct {
	ConfigName string
	Captions   CaptionMode
	// CaptionHighlight 为 false 时返回不带高亮标签的纯文本摘要。
	CaptionHighlight bool
	Answers          AnswerMode
	// Speller 开启拼写纠正（lexicon）。
	Speller bool
}

// VectorQuery 是一次 k 近邻向量查询。
type VectorQuery struct {
	Vector []float32
	K      int
	Field  string
}

// FieldEquals 是一个等值过滤条件。
type FieldEquals struct {
	Field string
	Value string
}

// Filter 是若干等值条件的合取。
type Filter []FieldEquals

// String 以 OData 语法渲染过滤条件，例如 indexType eq 'cogsearchvs' and indexName eq 'docs-vs'。
func (f Filter) String() string {
	parts := make([]string, 0, len(f))
	for _, c := range f {
		parts = append(parts, c.Field+" eq '"+strings.ReplaceAll(c.Value, "'", "''")+"'")
	}
	return strings.Join(parts, " and ")
}

// SearchRequest 是发往远程搜索服务的一次查询。Text 为空表示纯向量 / 过滤查询。
type SearchRequest struct {
	Text              string
	Filter            Filter
	Vector            *VectorQuery
	Semantic          *SemanticOptions
	Select            []string
	Top               int
	IncludeTotalCount bool
}

// Caption 是远程服务从命中文档中抽取的片段。
type Caption struct {
	Text      string `json:"text"`
	Highlight string `json:"highlights,omitempty"`
}

// Answer 是远程服务针对问题抽取的答案片段。
type Answer struct {
	Key   string  `json:"key"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Hit 是一条命中结果。
type Hit struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Fields   map[string]interface{} `json:"fields"`
	Captions []Caption              `json:"captions,omitempty"`
}

// String 读取字符串字段，不存在或类型不符时返回空串。
func (h Hit) String(field string) string {
	if v, ok := h.Fields[field].(string); ok {
		return v
	}
	return ""
}

// SearchResults 是远程服务返回的结果游标的内存形式。
type SearchResults struct {
	TotalCount *int64   `json:"totalCount,omitempty"`
	Hits       []Hit    `json:"hits"`
	Answers    []Answer `json:"answers,omitempty"`
}

// Outcome 区分"有结果"、"确实没有结果"与"请求失败"。
type Outcome int

const (
	OutcomeMatched Outcome = iota + 1
	OutcomeEmpty
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result 是查询门面与 KB 缓存的返回值，调用方据此区分无结果与失败。
type Result struct {
	Outcome Outcome
	Results *SearchResults
	Err     error
}

// NewResult 根据结果集构造 Matched 或 Empty。
func NewResult(res *SearchResults) Result {
	if res == nil || len(res.Hits) == 0 {
		if res == nil {
			res = &SearchResults{}
		}
		return Result{Outcome: OutcomeEmpty, Results: res}
	}
	return Result{Outcome: OutcomeMatched, Results: res}
}

// FailedResult 构造一个失败结果。
func FailedResult(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}

// Failed 报告请求是否失败。
func (r Result) Failed() bool { return r.Outcome == OutcomeFailed }

// Hits 返回命中列表，失败时为空。
func (r Result) Hits() []Hit {
	if r.Results == nil {
		return nil
	}
	return r.Results.Hits
}

// IndexingResult 是批量写入中单条记录的结果。
type IndexingResult struct {
	Key        string `json:"key"`
	Succeeded  bool   `json:"succeeded"`
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error,omitempty"`
}

// UploadMode 区分合并写入与普通上传。
type UploadMode int

const (
	// UploadMergeOrUpload 存在则合并、不存在则插入。
	UploadMergeOrUpload UploadMode = iota + 1
	// UploadPlain 按 ID 整条覆盖写入。
	UploadPlain
)

func (m UploadMode) String() string {
	switch m {
	case UploadMergeOrUpload:
		return "mergeOrUpload"
	case UploadPlain:
		return "upload"
	default:
		return "unknown"
	}
}

// BatchReport 记录一次 flush 的结果。
type BatchReport struct {
	Mode      UploadMode `json:"-"`
	Attempted int        `json:"attempted"`
	Succeeded int        `json:"succeeded"`
}

// IngestionReport 汇总一次写入的所有批次。
type IngestionReport struct {
	Batches   []BatchReport `json:"batches"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
}

// Add 追加一个批次并累加计数。
func (r *IngestionReport) Add(b BatchReport) {
	r.Batches = append(r.Batches, b)
	r.Attempted += b.Attempted
	r.Succeeded += b.Succeeded
}
