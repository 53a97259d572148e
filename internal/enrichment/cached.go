package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/codemap/internal/corpus"
	"go.uber.org/zap"
)

// JSONCache is the subset of the Redis cache used here.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedEnricher serves repeated enrichments of the same posting from cache.
// Only complete results are stored, so a degraded result is retried next time.
type CachedEnricher struct {
	inner  Enricher
	cache  JSONCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedEnricher wraps inner. A nil cache disables caching.
func NewCachedEnricher(inner Enricher, cache JSONCache, ttl time.Duration, logger *zap.Logger) *CachedEnricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEnricher{inner: inner, cache: cache, ttl: ttl, logger: logger.Named("enrichment.cache")}
}

// CacheKeyPrefix starts every enrichment cache key.
const CacheKeyPrefix = "enrich:v1:"

// CacheKey identifies a posting by index and description content, so a
// changed corpus never serves a stale entry.
func CacheKey(p corpus.Posting) string {
	return fmt.Sprintf("%s%d:%s", CacheKeyPrefix, p.Index, p.ContentHash()[:16])
}

// Enrich implements Enricher.
func (c *CachedEnricher) Enrich(ctx context.Context, p corpus.Posting) Result {
	if c.cache == nil {
		return c.inner.Enrich(ctx, p)
	}
	key := CacheKey(p)

	var cached Result
	hit, err := c.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		c.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		if undecodable(err) {
			if err := c.cache.Delete(ctx, key); err != nil {
				c.logger.Debug("cache delete failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	if hit && cached.Complete() {
		return cached
	}

	r := c.inner.Enrich(ctx, p)
	if r.Complete() {
		if err := c.cache.SetJSON(ctx, key, r, c.ttl); err != nil {
			c.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return r
}

// undecodable reports whether err means the cached bytes are not a Result.
func undecodable(err error) bool {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	return errors.As(err, &syntax) || errors.As(err, &typ)
}
