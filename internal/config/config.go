// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
// 它在启动时构造一次，并以指针形式注入到各个组件的构造函数中。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Search    SearchConfig    `mapstructure:"search"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	KB        KBConfig        `mapstructure:"kb"`
	Splitter  SplitterConfig  `mapstructure:"splitter"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Tika      TikaConfig      `mapstructure:"tika"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// SearchConfig 存储远程搜索服务（Elasticsearch）的连接与写入配置。
type SearchConfig struct {
	Addresses          []string         `mapstructure:"addresses"`
	Username           string           `mapstructure:"username"`
	Password           string           `mapstructure:"password"`
	APIKey             string           `mapstructure:"api_key"`
	InsecureSkipVerify bool             `mapstructure:"insecure_skip_verify"`
	BatchSize          int              `mapstructure:"batch_size"`
	Refresh            string           `mapstructure:"refresh"`
	Auth               SearchAuthConfig `mapstructure:"auth"`
}

// SearchAuthConfig 描述 client-secret 方式获取访问令牌所需的凭据。
// Mode 为 "client_credentials" 时生效，其余情况使用 basic / api key。
type SearchAuthConfig struct {
	Mode         string   `mapstructure:"mode"`
	TenantID     string   `mapstructure:"tenant_id"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	TokenURL     string   `mapstructure:"token_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	ModelType   string            `mapstructure:"model_type"`
	Dimensions  int               `mapstructure:"dimensions"`
	AzureOpenAI AzureOpenAIConfig `mapstructure:"azure_openai"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Retry       RetryConfig       `mapstructure:"retry"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Cache       CacheConfig       `mapstructure:"cache"`
}

// AzureOpenAIConfig 对应云托管的 embedding 部署。
type AzureOpenAIConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	Key        string `mapstructure:"key"`
	Version    string `mapstructure:"version"`
	Deployment string `mapstructure:"deployment"`
}

// OpenAIConfig 对应直连的 OpenAI embedding 接口。
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// RetryConfig 控制 embedding 调用的指数退避重试。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinWait     time.Duration `mapstructure:"min_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
}

// RateLimitConfig 控制 embedding 调用的令牌桶限流，RequestsPerSecond <= 0 表示不限流。
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// CacheConfig 控制基于 Redis 的向量缓存。
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// KBConfig 存储知识库缓存索引的配置。
type KBConfig struct {
	IndexName string  `mapstructure:"index_name"`
	K         int     `mapstructure:"k"`
	MinScore  float64 `mapstructure:"min_score"`
}

// SplitterConfig 存储文本切块参数。
type SplitterConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置，DSN 为空时不记录入库流水。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

var envOnlyKeys = []string{
	"search.username",
	"search.password",
	"search.api_key",
	"search.auth.tenant_id",
	"search.auth.client_id",
	"search.auth.client_secret",
	"embedding.azure_openai.endpoint",
	"embedding.azure_openai.key",
	"embedding.azure_openai.deployment",
	"embedding.openai.api_key",
	"embedding.openai.base_url",
	"database.mysql.dsn",
	"database.redis.addr",
	"database.redis.password",
	"jwt.secret",
	"kafka.brokers",
	"tika.server_url",
	"minio.endpoint",
	"minio.access_key_id",
	"minio.secret_access_key",
	"minio.bucket_name",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("search.addresses", []string{"http://localhost:9200"})
	v.SetDefault("search.batch_size", 1000)
	v.SetDefault("search.refresh", "false")
	v.SetDefault("search.auth.mode", "basic")
	v.SetDefault("search.auth.token_url", "https://login.microsoftonline.com/%s/oauth2/v2.0/token")

	v.SetDefault("embedding.model_type", "azureopenai")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.azure_openai.version", "2024-02-01")
	v.SetDefault("embedding.openai.model", "text-embedding-ada-002")
	v.SetDefault("embedding.retry.max_attempts", 6)
	v.SetDefault("embedding.retry.min_wait", time.Second)
	v.SetDefault("embedding.retry.max_wait", 20*time.Second)
	v.SetDefault("embedding.rate_limit.burst", 1)
	v.SetDefault("embedding.cache.ttl", 24*time.Hour)

	v.SetDefault("kb.index_name", "aoaikb")
	v.SetDefault("kb.k", 3)
	v.SetDefault("kb.min_score", 0.95)

	v.SetDefault("splitter.chunk_size", 1500)
	v.SetDefault("splitter.chunk_overlap", 0)

	v.SetDefault("jwt.access_token_expire_hours", 24)

	v.SetDefault("kafka.topic", "cogsearch-ingest")
	v.SetDefault("kafka.group_id", "cogsearch-go-consumer")
}

// Load 从指定的路径读取 YAML 文件，叠加默认值与环境变量后解析为 Config。
// configPath 为空时只使用默认值与环境变量，例如 SEARCH_ADDRESSES、EMBEDDING_AZURE_OPENAI_KEY。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 没有默认值的键不会被 AutomaticEnv 覆盖到 Unmarshal 中，需要显式绑定
	for _, key := range envOnlyKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验必须合法的参数。
func (c *Config) Validate() error {
	if len(c.Search.Addresses) == 0 {
		return fmt.Errorf("search.addresses 不能为空")
	}
	if c.Search.BatchSize <= 0 {
		return fmt.Errorf("search.batch_size 必须大于 0, 当前为 %d", c.Search.BatchSize)
	}
	if c.Embedding.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("embedding.retry.max_attempts 必须大于 0")
	}
	if c.Embedding.Retry.MinWait > c.Embedding.Retry.MaxWait {
		return fmt.Errorf("embedding.retry.min_wait (%s) 不能大于 max_wait (%s)", c.Embedding.Retry.MinWait, c.Embedding.Retry.MaxWait)
	}
	if c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		return fmt.Errorf("splitter.chunk_overlap 必须小于 chunk_size")
	}
	return nil
}
