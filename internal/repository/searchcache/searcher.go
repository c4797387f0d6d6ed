package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/db"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	"github.com/dbpedia/lookup/internal/usecase/search"
)

const cacheKeyPrefix = "lookup:search:"

// searcher is the decorated search service.
type searcher interface {
	Search(ctx context.Context, req search.Request) (result.Envelope, error)
	Generation() string
}

// sequencer reports the publish counter of the index controller.
type sequencer interface {
	Sequence() uint64
}

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedSearcher caches search envelopes in a key-value store. Keys carry
// the served generation and the publish sequence, so a commit or a
// promotion never serves stale entries written by this process.
type CachedSearcher struct {
	inner      searcher
	seq        sequencer
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner searcher,
	seq sequencer,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedSearcher {
	return &CachedSearcher{
		inner:      inner,
		seq:        seq,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Search returns a cached envelope or runs the inner search.
// Errors are never cached.
func (c *CachedSearcher) Search(ctx context.Context, req search.Request) (result.Envelope, error) {
	key, err := c.cacheKey(req)
	if err != nil {
		c.logger.Warn("Failed to build search cache key", zap.Error(err))
		return c.inner.Search(ctx, req)
	}

	if env, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return env, nil
	}
	c.incCache("miss")

	env, err := c.inner.Search(ctx, req)
	if err != nil {
		return result.Envelope{}, err
	}
	c.putToCache(ctx, key, env)
	return env, nil
}

// Generation returns the generation served by the inner service.
func (c *CachedSearcher) Generation() string { return c.inner.Generation() }

func (c *CachedSearcher) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedSearcher) cacheKey(req search.Request) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	h := sha256.Sum256(data)
	var seq uint64
	if c.seq != nil {
		seq = c.seq.Sequence()
	}
	return cacheKeyPrefix + c.inner.Generation() + ":" + strconv.FormatUint(seq, 10) + ":" + hex.EncodeToString(h[:]), nil
}

func (c *CachedSearcher) getFromCache(ctx context.Context, key string) (result.Envelope, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached search", zap.String("key", key), zap.Error(err))
		}
		return result.Envelope{}, false
	}
	if len(data) == 0 {
		return result.Envelope{}, false
	}

	var env result.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("Failed to parse cached search", zap.String("key", key), zap.Error(err))
		return result.Envelope{}, false
	}
	return env, true
}

func (c *CachedSearcher) putToCache(ctx context.Context, key string, env result.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		c.logger.Warn("Failed to encode search for cache", zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache search", zap.String("key", key), zap.Error(err))
	}
}
