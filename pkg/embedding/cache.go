package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"cogsearch-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// redisStore is the subset of *redis.Client the cache uses.
type redisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedProvider memoizes vectors in Redis keyed by model and text hash.
// Cache failures are logged and fall through to the wrapped provider.
type CachedProvider struct {
	next      Provider
	rdb       redisStore
	ttl       time.Duration
	namespace string
}

// NewCachedProvider wraps next. namespace should change whenever the deployed model
// changes so stale vectors are never served.
func NewCachedProvider(next Provider, rdb *redis.Client, ttl time.Duration, namespace string) *CachedProvider {
	return newCachedProvider(next, rdb, ttl, namespace)
}

func newCachedProvider(next Provider, rdb redisStore, ttl time.Duration, namespace string) *CachedProvider {
	return &CachedProvider{next: next, rdb: rdb, ttl: ttl, namespace: namespace}
}

func (p *CachedProvider) key(model ModelType, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + p.namespace + ":" + model.String() + ":" + hex.EncodeToString(sum[:])
}

// Embed implements Provider.
func (p *CachedProvider) Embed(ctx context.Context, model ModelType, text string) ([]float32, error) {
	key := p.key(model, text)

	raw, err := p.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var vector []float32
		if jerr := json.Unmarshal(raw, &vector); jerr == nil {
			return vector, nil
		}
		log.Warnf("[EmbeddingCache] 缓存内容损坏, key: %s", key)
	case err != redis.Nil:
		log.Warnf("[EmbeddingCache] 读取缓存失败, 直接调用 Embedding API: %v", err)
	}

	vector, err := p.next.Embed(ctx, model, text)
	if err != nil {
		return nil, err
	}

	if data, jerr := json.Marshal(vector); jerr == nil {
		if serr := p.rdb.Set(ctx, key, data, p.ttl).Err(); serr != nil {
			log.Warnf("[EmbeddingCache] 写入缓存失败: %v", serr)
		}
	}
	return vector, nil
}
