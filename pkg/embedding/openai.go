package embedding

import (
	"context"
	"fmt"
	"strings"

	"cogsearch-go/internal/config"
	"cogsearch-go/pkg/log"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

const defaultOpenAIModel = "text-embedding-ada-002"

// Client embeds text through an Azure OpenAI deployment or the OpenAI API.
// Each call waits on the rate limiter, then runs under the retry policy.
type Client struct {
	embedders  map[ModelType]embeddings.Embedder
	retry      RetryPolicy
	limiter    *rate.Limiter
	dimensions int
}

// NewClient creates a client for every model type the configuration has credentials for.
func NewClient(cfg config.EmbeddingConfig) (*Client, error) {
	embedders := make(map[ModelType]embeddings.Embedder)

	if cfg.AzureOpenAI.Endpoint != "" {
		llm, err := openai.New(
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithBaseURL(cfg.AzureOpenAI.Endpoint),
			openai.WithAPIVersion(cfg.AzureOpenAI.Version),
			openai.WithToken(cfg.AzureOpenAI.Key),
			openai.WithEmbeddingModel(cfg.AzureOpenAI.Deployment),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create azure openai client: %w", err)
		}
		e, err := embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("failed to create azure openai embedder: %w", err)
		}
		embedders[AzureOpenAI] = e
	}

	if cfg.OpenAI.APIKey != "" {
		model := cfg.OpenAI.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		opts := []openai.Option{
			openai.WithToken(cfg.OpenAI.APIKey),
			openai.WithEmbeddingModel(model),
		}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		e, err := embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai embedder: %w", err)
		}
		embedders[OpenAI] = e
	}

	limit := rate.Inf
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
	}
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 1
	}

	return newClient(embedders, RetryPolicyFromConfig(cfg.Retry), rate.NewLimiter(limit, burst), cfg.Dimensions), nil
}

func newClient(embedders map[ModelType]embeddings.Embedder, retry RetryPolicy, limiter *rate.Limiter, dimensions int) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{
		embedders:  embedders,
		retry:      retry,
		limiter:    limiter,
		dimensions: dimensions,
	}
}

// Embed returns the embedding of text using the selected deployment.
func (c *Client) Embed(ctx context.Context, model ModelType, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	embedder, ok := c.embedders[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured", ErrUnknownModel, model)
	}

	log.Debugf("[EmbeddingClient] 开始调用 Embedding API, model: %s, input_len: %d", model, len(text))
	var vector []float32
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		v, err := embedder.EmbedQuery(ctx, text)
		if err != nil {
			return err
		}
		if c.dimensions > 0 && len(v) != c.dimensions {
			return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), c.dimensions)
		}
		vector = v
		return nil
	})
	if err != nil {
		log.Errorf("[EmbeddingClient] 调用 Embedding API 失败, model: %s, error: %v", model, err)
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	return vector, nil
}
