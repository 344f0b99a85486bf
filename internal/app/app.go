// Package app 负责按配置组装所有组件，供 HTTP 服务与命令行工具共用。
package app

import (
	"context"
	"errors"
	"fmt"

	"cogsearch-go/internal/config"
	"cogsearch-go/internal/pipeline"
	"cogsearch-go/internal/repository"
	"cogsearch-go/internal/service"
	"cogsearch-go/pkg/database"
	"cogsearch-go/pkg/embedding"
	"cogsearch-go/pkg/es"
	"cogsearch-go/pkg/kafka"
	"cogsearch-go/pkg/log"
	"cogsearch-go/pkg/storage"
	"cogsearch-go/pkg/tika"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var _ service.SearchBackend = (*es.Client)(nil)

// App 持有组装好的组件。Redis、DB、Runs、Objects、Producer 只在对应配置存在时非 nil。
type App struct {
	Config       *config.Config
	Backend      *es.Client
	Embedder     embedding.Provider
	DefaultModel embedding.ModelType

	Schema    service.SchemaService
	Ingestion service.IngestionService
	Query     service.QueryService
	Kb        service.KbService
	Processor *pipeline.Processor

	Redis    *redis.Client
	DB       *gorm.DB
	Runs     repository.IngestionRunRepository
	Objects  *storage.ObjectStore
	Tika     *tika.Client
	Producer *kafka.Producer
}

// New 依次初始化基础设施、服务与入库流水线。
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	defaultModel, err := embedding.ParseModelType(cfg.Embedding.ModelType)
	if err != nil {
		return nil, err
	}
	a.DefaultModel = defaultModel

	// 1. 远程搜索服务
	if a.Backend, err = es.NewClient(cfg.Search); err != nil {
		return nil, err
	}

	// 2. 可选基础设施
	if cfg.Database.Redis.Addr != "" {
		if a.Redis, err = database.NewRedis(ctx, cfg.Database.Redis); err != nil {
			return nil, err
		}
	}
	if cfg.Database.MySQL.DSN != "" {
		if a.DB, err = database.NewMySQL(cfg.Database.MySQL.DSN); err != nil {
			a.Close()
			return nil, err
		}
		a.Runs = repository.NewIngestionRunRepository(a.DB)
	}
	if cfg.MinIO.Endpoint != "" {
		if a.Objects, err = storage.NewObjectStore(ctx, cfg.MinIO); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.Tika = tika.NewClient(cfg.Tika)
	if cfg.Kafka.Enabled {
		a.Producer = kafka.NewProducer(cfg.Kafka)
	}

	// 3. Embedding
	client, err := embedding.NewClient(cfg.Embedding)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Embedder = client
	if cfg.Embedding.Cache.Enabled {
		if a.Redis == nil {
			log.Warnf("[App] embedding.cache 已启用但未配置 Redis, 不使用缓存")
		} else {
			a.Embedder = embedding.NewCachedProvider(client, a.Redis, cfg.Embedding.Cache.TTL, cacheNamespace(cfg.Embedding))
		}
	}

	// 4. 服务 (依赖注入)
	a.Schema = service.NewSchemaService(a.Backend, cfg.Embedding.Dimensions)
	a.Ingestion = service.NewIngestionService(a.Backend, cfg.Search.BatchSize)
	a.Query = service.NewQueryService(a.Backend, a.Embedder)
	a.Kb = service.NewKbService(a.Backend, a.Schema, a.Ingestion, a.Embedder, service.KbSettings{
		IndexName: cfg.KB.IndexName,
		K:         cfg.KB.K,
		MinScore:  cfg.KB.MinScore,
	})

	// 5. 入库流水线
	opts := pipeline.Options{
		Extractor:    a.Tika,
		Splitter:     pipeline.NewSplitter(cfg.Splitter),
		Schema:       a.Schema,
		Batcher:      service.NewBatcher(a.Embedder),
		Ingestion:    a.Ingestion,
		Runs:         a.Runs,
		DefaultModel: defaultModel,
	}
	// 避免把 nil 指针装进非 nil 接口
	if a.Objects != nil {
		opts.Objects = a.Objects
	}
	a.Processor = pipeline.NewProcessor(opts)

	log.Info("[App] 组件初始化完成")
	return a, nil
}

// Consumer 创建入库任务消费者，未启用 Kafka 时返回错误。
func (a *App) Consumer() (*kafka.Consumer, error) {
	if !a.Config.Kafka.Enabled {
		return nil, errors.New("kafka is not enabled")
	}
	var attempts kafka.AttemptCounter
	if a.Redis != nil {
		attempts = a.Redis
	}
	return kafka.NewConsumer(a.Config.Kafka, a.Processor, attempts), nil
}

// Close 释放连接，可重复调用。
func (a *App) Close() {
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			log.Errorf("[App] 关闭 Kafka 生产者失败: %v", err)
		}
		a.Producer = nil
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
		a.Redis = nil
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		a.DB = nil
	}
}

func cacheNamespace(cfg config.EmbeddingConfig) string {
	deployment := cfg.AzureOpenAI.Deployment
	if deployment == "" {
		deployment = cfg.OpenAI.Model
	}
	return fmt.Sprintf("emb:%s:%d", deployment, cfg.Dimensions)
}
