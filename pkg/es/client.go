// Package es 是远程搜索服务在 Elasticsearch 上的实现：索引管理、批量写入与混合查询。
package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cogsearch-go/internal/config"
	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// Client 封装 Elasticsearch 客户端，启动时创建一次并注入各个服务。
type Client struct {
	es      *elasticsearch.Client
	refresh string
}

// NewClient 根据配置创建客户端，认证方式为 basic、API key 或 client_credentials 之一。
func NewClient(cfg config.SearchConfig) (*Client, error) {
	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Transport: transport,
	}
	if cfg.Auth.Mode != AuthModeClientCredentials {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
		esCfg.APIKey = cfg.APIKey
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	log.Infof("[ES] 客户端初始化完成, addresses: %v", cfg.Addresses)
	return &Client{es: client, refresh: cfg.Refresh}, nil
}

// ListIndexNames 返回集群中所有非系统索引的名称。
func (c *Client) ListIndexNames(ctx context.Context) ([]string, error) {
	res, err := c.es.Cat.Indices(
		c.es.Cat.Indices.WithContext(ctx),
		c.es.Cat.Indices.WithFormat("json"),
		c.es.Cat.Indices.WithH("index"),
	)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, decodeError(res)
	}

	var rows []struct {
		Index string `json:"index"`
	}
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode index list: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if strings.HasPrefix(r.Index, ".") {
			continue
		}
		names = append(names, r.Index)
	}
	return names, nil
}

// CreateIndex 按描述创建索引。
func (c *Client) CreateIndex(ctx context.Context, desc model.IndexDescriptor) error {
	body, err := BuildMapping(desc)
	if err != nil {
		return err
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}

	res, err := c.es.Indices.Create(
		desc.Name,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", desc.Name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %w", desc.Name, decodeError(res))
	}
	return nil
}

// DeleteIndex 删除索引，不存在时返回 model.ErrIndexNotFound。
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	res, err := c.es.Indices.Delete(
		[]string{name},
		c.es.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("delete index %s: %w", name, decodeError(res))
	}
	return nil
}

// describe 从 mapping 的 _meta 读回索引描述。
// 非本模块创建的索引没有 _meta，此时返回只含名称的描述。
func (c *Client) describe(ctx context.Context, index string) (model.IndexDescriptor, error) {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithContext(ctx),
		c.es.Indices.GetMapping.WithIndex(index),
	)
	if err != nil {
		return model.IndexDescriptor{}, fmt.Errorf("get mapping of %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return model.IndexDescriptor{}, fmt.Errorf("get mapping of %s: %w", index, decodeError(res))
	}

	var payload map[string]struct {
		Mappings struct {
			Meta *indexMeta `json:"_meta"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return model.IndexDescriptor{}, fmt.Errorf("decode mapping of %s: %w", index, err)
	}

	if m, ok := payload[index]; ok && m.Mappings.Meta != nil {
		return m.Mappings.Meta.descriptor(index), nil
	}
	return model.IndexDescriptor{Name: index}, nil
}
