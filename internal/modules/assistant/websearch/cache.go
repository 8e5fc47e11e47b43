package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/platform/redis"
)

const (
	DefaultCacheTTL  = 15 * time.Minute
	DefaultCacheSize = 512
)

type Cache interface {
	Get(ctx context.Context, key string) (*SearchResponse, bool)
	Set(ctx context.Context, key string, resp *SearchResponse)
}

type redisCache struct {
	log   *logger.Logger
	store *redis.JSONCache
	ttl   time.Duration
}

// NewRedisCache shares results across replicas. Redis failures degrade to a
// cache miss.
func NewRedisCache(log *logger.Logger, store *redis.JSONCache, ttl time.Duration) Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &redisCache{log: log.With("service", "WebSearchRedisCache"), store: store, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, key string) (*SearchResponse, bool) {
	var out SearchResponse
	ok, err := c.store.Get(ctx, key, &out)
	if err != nil {
		c.log.Warn("web search cache read failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &out, true
}

func (c *redisCache) Set(ctx context.Context, key string, resp *SearchResponse) {
	if err := c.store.Set(ctx, key, resp, c.ttl); err != nil {
		c.log.Warn("web search cache write failed", "error", err)
	}
}

type lruCache struct {
	lru *expirable.LRU[string, SearchResponse]
}

func NewLRUCache(size int, ttl time.Duration) Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &lruCache{lru: expirable.NewLRU[string, SearchResponse](size, nil, ttl)}
}

func (c *lruCache) Get(_ context.Context, key string) (*SearchResponse, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	v.Results = append(v.Results[:0:0], v.Results...)
	return &v, true
}

func (c *lruCache) Set(_ context.Context, key string, resp *SearchResponse) {
	if resp == nil {
		return
	}
	v := *resp
	v.Results = append(v.Results[:0:0], resp.Results...)
	c.lru.Add(key, v)
}

func cacheKey(kind, enhanced string, opts Options) string {
	raw, _ := json.Marshal(struct {
		Kind    string   `json:"k"`
		Query   string   `json:"q"`
		Count   int      `json:"c"`
		Fresh   string   `json:"f"`
		Safe    string   `json:"s"`
		Include []string `json:"i"`
		Exclude []string `json:"e"`
	}{kind, strings.ToLower(enhanced), opts.Count, opts.Freshness, opts.SafeSearch, opts.IncludeDomains, opts.ExcludeDomains})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
