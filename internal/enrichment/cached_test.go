package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonathan/codemap/internal/corpus"
	"github.com/jonathan/codemap/internal/proficiency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	data    map[string][]byte
	getErr  error
	sets    int
	deletes []string
	lastTTL time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (m *memoryCache) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	m.sets++
	m.lastTTL = ttl
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	m.deletes = append(m.deletes, key)
	return nil
}

type countingEnricher struct {
	calls  int
	result Result
}

func (c *countingEnricher) Enrich(context.Context, corpus.Posting) Result {
	c.calls++
	return c.result
}

func completeResult() Result {
	return Result{
		Description:       "This career involves analysis.",
		RequiredSkills:    proficiency.FromStrings("SQL", "Advanced", "Python", "Basic"),
		RequiredKnowledge: proficiency.FromStrings("Statistics", "Intermediate"),
	}
}

func TestCachedEnricher_HitAfterMiss(t *testing.T) {
	inner := &countingEnricher{result: completeResult()}
	cache := newMemoryCache()
	e := NewCachedEnricher(inner, cache, time.Hour, nil)

	first := e.Enrich(context.Background(), analyst)
	second := e.Enrich(context.Background(), analyst)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, time.Hour, cache.lastTTL)
	assert.Equal(t, first.Description, second.Description)
	// Order survives the JSON round trip through the cache.
	assert.Equal(t, []string{"SQL", "Python"}, second.RequiredSkills.Names())
}

func TestCachedEnricher_DegradedNotCached(t *testing.T) {
	r := completeResult()
	r.Degraded = []string{FieldSkills}
	inner := &countingEnricher{result: r}
	cache := newMemoryCache()
	e := NewCachedEnricher(inner, cache, 0, nil)

	e.Enrich(context.Background(), analyst)
	e.Enrich(context.Background(), analyst)

	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cache.sets)
}

func TestCachedEnricher_ReadErrorFallsThrough(t *testing.T) {
	inner := &countingEnricher{result: completeResult()}
	cache := newMemoryCache()
	cache.getErr = errors.New("connection reset")

	r := NewCachedEnricher(inner, cache, 0, nil).Enrich(context.Background(), analyst)

	assert.True(t, r.Complete())
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEnricher_CorruptEntryReplaced(t *testing.T) {
	inner := &countingEnricher{result: completeResult()}
	cache := newMemoryCache()
	key := CacheKey(analyst)
	cache.data[key] = []byte(`{"description": 42`)

	r := NewCachedEnricher(inner, cache, 0, nil).Enrich(context.Background(), analyst)

	assert.True(t, r.Complete())
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, []string{key}, cache.deletes)
	assert.Equal(t, 1, cache.sets)
	assert.Contains(t, cache.data, key)
}

func TestCachedEnricher_ReadErrorKeepsEntry(t *testing.T) {
	cache := newMemoryCache()
	cache.getErr = errors.New("i/o timeout")

	NewCachedEnricher(&countingEnricher{result: completeResult()}, cache, 0, nil).
		Enrich(context.Background(), analyst)
	assert.Empty(t, cache.deletes)
}

func TestCachedEnricher_NilCache(t *testing.T) {
	inner := &countingEnricher{result: completeResult()}
	e := NewCachedEnricher(inner, nil, 0, nil)

	e.Enrich(context.Background(), analyst)
	e.Enrich(context.Background(), analyst)
	assert.Equal(t, 2, inner.calls)
}

func TestCacheKey(t *testing.T) {
	a := CacheKey(analyst)
	require.Contains(t, a, CacheKeyPrefix+"4:")

	changed := analyst
	changed.Description = "Different text"
	assert.NotEqual(t, a, CacheKey(changed))
	assert.Equal(t, a, CacheKey(analyst))
}
