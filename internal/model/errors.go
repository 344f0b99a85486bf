package model

import "errors"

var (
	// ErrUnknownIndexKind 表示索引类型标签不在已知枚举中。
	ErrUnknownIndexKind = errors.New("unknown index kind")
	// ErrSemanticConfigNotFound 表示远程服务拒绝了请求中的语义配置名。
	ErrSemanticConfigNotFound = errors.New("semantic configuration not found")
	// ErrIndexNotFound 表示目标索引在远程服务中不存在。
	ErrIndexNotFound = errors.New("index not found")
)
