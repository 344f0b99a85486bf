package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/log"
)

const (
	captionLength   = 200
	defaultK        = 10
	highlightPreTag = "<em>"
	highlightEndTag = "</em>"
)

var tagStripper = strings.NewReplacer(highlightPreTag, "", highlightEndTag, "")

// Search 执行一次混合查询。
// 语义配置从索引 _meta 中读取，找不到时返回 model.ErrSemanticConfigNotFound。
func (c *Client) Search(ctx context.Context, index string, req model.SearchRequest) (*model.SearchResults, error) {
	desc, err := c.describe(ctx, index)
	if err != nil {
		return nil, err
	}

	var sem *model.SemanticConfig
	if req.Semantic != nil {
		sem, err = semanticConfig(desc, req.Semantic.ConfigName)
		if err != nil {
			return nil, err
		}
	}

	body := buildSearchBody(desc, sem, req)
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %w", index, decodeError(res))
	}

	var payload searchResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	results := payload.toResults(sem, req)
	log.Debugf("[ES] 查询完成, index: %s, hits: %d", index, len(results.Hits))
	return results, nil
}

// semanticConfig 按名称查找语义配置。
// 名为 default 的配置不存在时按所有可检索字段合成，与远程服务的默认排序一致。
func semanticConfig(desc model.IndexDescriptor, name string) (*model.SemanticConfig, error) {
	for i := range desc.Semantic {
		if desc.Semantic[i].Name == name {
			return &desc.Semantic[i], nil
		}
	}
	if name == model.SemanticConfigFallback {
		return &model.SemanticConfig{Name: name, ContentFields: searchableFields(desc)}, nil
	}
	return nil, fmt.Errorf("%w: %s on index %s", model.ErrSemanticConfigNotFound, name, desc.Name)
}

// rankedFields 返回带权重的 multi_match 字段列表：标题 ^3，关键词 ^2，正文不加权。
func rankedFields(desc model.IndexDescriptor, sem *model.SemanticConfig) []string {
	if sem == nil {
		return searchableFields(desc)
	}
	seen := make(map[string]bool)
	var out []string
	add := func(field, boost string) {
		if field == "" || seen[field] {
			return
		}
		seen[field] = true
		out = append(out, field+boost)
	}
	add(sem.TitleField, "^3")
	for _, f := range sem.KeywordFields {
		add(f, "^2")
	}
	for _, f := range sem.ContentFields {
		add(f, "")
	}
	return out
}

func captionFields(desc model.IndexDescriptor, sem *model.SemanticConfig) []string {
	if sem != nil && len(sem.ContentFields) > 0 {
		return sem.ContentFields
	}
	return searchableFields(desc)
}

func wantCaptions(sem *model.SemanticConfig, req model.SearchRequest) bool {
	return sem != nil && req.Semantic != nil && req.Semantic.Captions == model.CaptionExtractive
}

func buildSearchBody(desc model.IndexDescriptor, sem *model.SemanticConfig, req model.SearchRequest) map[string]interface{} {
	body := map[string]interface{}{}
	if req.Top > 0 {
		body["size"] = req.Top
	}
	if req.IncludeTotalCount {
		body["track_total_hits"] = true
	}

	filters := make([]interface{}, 0, len(req.Filter))
	for _, cond := range req.Filter {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{filterPath(desc, cond.Field): cond.Value},
		})
	}

	switch {
	case req.Text != "":
		mm := map[string]interface{}{"query": req.Text}
		if fields := rankedFields(desc, sem); len(fields) > 0 {
			mm["fields"] = fields
		}
		if req.Semantic != nil && req.Semantic.Speller {
			mm["fuzziness"] = "AUTO"
		}
		b := map[string]interface{}{
			"must": []interface{}{map[string]interface{}{"multi_match": mm}},
		}
		if len(filters) > 0 {
			b["filter"] = filters
		}
		body["query"] = map[string]interface{}{"bool": b}
	case req.Vector == nil && len(filters) > 0:
		body["query"] = map[string]interface{}{"bool": map[string]interface{}{"filter": filters}}
	case req.Vector == nil:
		body["query"] = map[string]interface{}{"match_all": map[string]interface{}{}}
	}

	if v := req.Vector; v != nil {
		k := v.K
		if k <= 0 {
			k = defaultK
		}
		knn := map[string]interface{}{
			"field":          v.Field,
			"query_vector":   v.Vector,
			"k":              k,
			"num_candidates": numCandidates(desc, v.Field, k),
		}
		if len(filters) > 0 {
			knn["filter"] = filters
		}
		body["knn"] = knn
	}

	if len(req.Select) > 0 {
		body["_source"] = req.Select
	} else if vf := vectorFields(desc); len(vf) > 0 {
		body["_source"] = map[string]interface{}{"excludes": vf}
	}

	if wantCaptions(sem, req) && req.Text != "" {
		fields := make(map[string]interface{})
		for _, f := range captionFields(desc, sem) {
			fields[f] = map[string]interface{}{"number_of_fragments": 1, "fragment_size": captionLength}
		}
		pre, post := "", ""
		if req.Semantic.CaptionHighlight {
			pre, post = highlightPreTag, highlightEndTag
		}
		body["highlight"] = map[string]interface{}{
			"fields":    fields,
			"pre_tags":  []string{pre},
			"post_tags": []string{post},
		}
	}
	return body
}

// numCandidates 取 k 与向量 profile 的 efSearch 中较大者。
func numCandidates(desc model.IndexDescriptor, field string, k int) int {
	n := k
	if f, ok := desc.Field(field); ok {
		if _, algo, ok := desc.VectorSearch.Profile(f.VectorProfile); ok && algo.EfSearch > n {
			n = algo.EfSearch
		}
	}
	return n
}

type searchResponse struct {
	Hits struct {
		Total *struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID        string                 `json:"_id"`
			Score     *float64               `json:"_score"`
			Source    map[string]interface{} `json:"_source"`
			Highlight map[string][]string    `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

func (p *searchResponse) toResults(sem *model.SemanticConfig, req model.SearchRequest) *model.SearchResults {
	results := &model.SearchResults{Hits: make([]model.Hit, 0, len(p.Hits.Hits))}
	if req.IncludeTotalCount && p.Hits.Total != nil {
		total := p.Hits.Total.Value
		results.TotalCount = &total
	}

	captions := wantCaptions(sem, req)
	for _, h := range p.Hits.Hits {
		hit := model.Hit{ID: h.ID, Fields: h.Source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		if hit.Fields == nil {
			hit.Fields = map[string]interface{}{}
		}
		if captions {
			if c, ok := caption(sem, req.Semantic.CaptionHighlight, h.Highlight, h.Source); ok {
				hit.Captions = []model.Caption{c}
			}
		}
		results.Hits = append(results.Hits, hit)
	}

	if req.Semantic != nil && req.Semantic.Answers == model.AnswerExtractive && len(results.Hits) > 0 {
		top := results.Hits[0]
		if len(top.Captions) > 0 {
			results.Answers = []model.Answer{{Key: top.ID, Text: top.Captions[0].Text, Score: top.Score}}
		}
	}
	return results
}

// caption 优先使用高亮片段，没有高亮（例如纯向量查询）时截取正文开头。
func caption(sem *model.SemanticConfig, highlight bool, fragments map[string][]string, source map[string]interface{}) (model.Caption, bool) {
	for _, f := range sem.ContentFields {
		if frags := fragments[f]; len(frags) > 0 {
			if highlight {
				return model.Caption{Text: tagStripper.Replace(frags[0]), Highlight: frags[0]}, true
			}
			return model.Caption{Text: frags[0]}, true
		}
	}
	for _, f := range sem.ContentFields {
		if s, ok := source[f].(string); ok && s != "" {
			return model.Caption{Text: truncate(s, captionLength)}, true
		}
	}
	return model.Caption{}, false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
