package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type bulkItem struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

// UploadDocuments 以一次 _bulk 请求写入一批记录，返回每条记录的结果。
// UploadMergeOrUpload 使用 update + doc_as_upsert，UploadPlain 使用 index 整条覆盖。
func (c *Client) UploadDocuments(ctx context.Context, index string, mode model.UploadMode, records []model.Record) ([]model.IndexingResult, error) {
	if len(records) == 0 {
		return nil, nil
	}
	body, err := encodeBulk(index, mode, records)
	if err != nil {
		return nil, err
	}

	opts := []func(*esapi.BulkRequest){
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(index),
	}
	if c.refresh != "" {
		opts = append(opts, c.es.Bulk.WithRefresh(c.refresh))
	}
	res, err := c.es.Bulk(bytes.NewReader(body), opts...)
	if err != nil {
		return nil, fmt.Errorf("bulk %s to %s: %w", mode, index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("bulk %s to %s: %w", mode, index, decodeError(res))
	}

	var payload struct {
		Errors bool                  `json:"errors"`
		Items  []map[string]bulkItem `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}

	results := make([]model.IndexingResult, 0, len(payload.Items))
	for _, entry := range payload.Items {
		for _, item := range entry {
			r := model.IndexingResult{
				Key:        item.ID,
				StatusCode: item.Status,
				Succeeded:  item.Status >= 200 && item.Status < 300,
			}
			if item.Error != nil {
				r.Error = item.Error.Type + ": " + item.Error.Reason
			}
			results = append(results, r)
		}
	}
	if payload.Errors {
		log.Warnf("[ES] 批量写入部分失败, index: %s, mode: %s", index, mode)
	}
	return results, nil
}

func encodeBulk(index string, mode model.UploadMode, records []model.Record) ([]byte, error) {
	var action string
	switch mode {
	case model.UploadMergeOrUpload:
		action = "update"
	case model.UploadPlain:
		action = "index"
	default:
		return nil, fmt.Errorf("unsupported upload mode %d", int(mode))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		meta := map[string]interface{}{
			action: map[string]string{"_index": index, "_id": rec.RecordKey()},
		}
		if err := enc.Encode(meta); err != nil {
			return nil, err
		}
		var doc interface{} = rec
		if mode == model.UploadMergeOrUpload {
			doc = map[string]interface{}{"doc": rec, "doc_as_upsert": true}
		}
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode record %s: %w", rec.RecordKey(), err)
		}
	}
	return buf.Bytes(), nil
}
