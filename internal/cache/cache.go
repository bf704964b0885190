// Package cache keeps analysis results keyed by a content fingerprint of
// the input dataset and pipeline configuration. Lookups go through a
// bounded in-memory tier first and fall back to an optional persistent
// store; disk hits are promoted back into memory.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

// Options sizes the in-memory tier and sets the shared TTL.
type Options struct {
	MemorySize int           `json:"memory_size" mapstructure:"memory_size"`
	TTL        time.Duration `json:"ttl" mapstructure:"ttl"`
}

// DefaultOptions returns the cache sizing used when nothing is
// configured.
func DefaultOptions() Options {
	return Options{
		MemorySize: 128,
		TTL:        24 * time.Hour,
	}
}

// Stats counts cache traffic since construction or the last Reset.
type Stats struct {
	MemoryHits int64 `json:"memory_hits"`
	DiskHits   int64 `json:"disk_hits"`
	Misses     int64 `json:"misses"`
	Sets       int64 `json:"sets"`
}

// ResultCache is the two-tier result cache. The persistent store is
// optional; with a nil store the cache degrades to memory-only.
type ResultCache struct {
	memory *memoryCache
	store  Store
	ttl    time.Duration
	logger *logrus.Logger

	group singleflight.Group

	mu    sync.Mutex
	stats Stats
}

// New builds a cache over the given persistent store. A nil store is
// valid and leaves only the memory tier active.
func New(opts Options, store Store, logger *logrus.Logger) *ResultCache {
	if opts.MemorySize <= 0 {
		opts.MemorySize = DefaultOptions().MemorySize
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultOptions().TTL
	}
	return &ResultCache{
		memory: newMemoryCache(opts.MemorySize, opts.TTL),
		store:  store,
		ttl:    opts.TTL,
		logger: logger,
	}
}

// Key derives the cache key for a dataset fingerprint and a pipeline
// configuration. The configuration is serialized to canonical JSON so
// that equal configurations always map to the same key.
func Key(datasetFingerprint string, cfg interface{}) (string, error) {
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(datasetFingerprint))
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get looks the key up in both tiers. A disk hit is promoted into the
// memory tier before returning.
func (c *ResultCache) Get(ctx context.Context, key string) (*models.AnalysisResult, bool) {
	if result, ok := c.memory.Get(key); ok {
		c.count(func(s *Stats) { s.MemoryHits++ })
		return result, true
	}
	if c.store != nil {
		result, ok, err := c.store.Get(ctx, key)
		if err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Persistent cache read failed")
		} else if ok {
			c.memory.Set(key, result)
			c.count(func(s *Stats) { s.DiskHits++ })
			return result, true
		}
	}
	c.count(func(s *Stats) { s.Misses++ })
	return nil, false
}

// Set writes the result to both tiers.
func (c *ResultCache) Set(ctx context.Context, key string, result *models.AnalysisResult) {
	c.memory.Set(key, result)
	if c.store != nil {
		if err := c.store.Set(ctx, key, result, c.ttl); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Persistent cache write failed")
		}
	}
	c.count(func(s *Stats) { s.Sets++ })
}

// GetOrCompute returns the cached result for key, computing and caching
// it on a miss. Concurrent callers with the same key share a single
// compute invocation.
func (c *ResultCache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (*models.AnalysisResult, error)) (*models.AnalysisResult, error) {
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, key); ok {
			return result, nil
		}
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.AnalysisResult), nil
}

// Reset drops every entry in both tiers and zeroes the counters.
func (c *ResultCache) Reset(ctx context.Context) error {
	c.memory.Reset()
	c.mu.Lock()
	c.stats = Stats{}
	c.mu.Unlock()
	if c.store != nil {
		return c.store.Reset(ctx)
	}
	return nil
}

// Stats returns a snapshot of the traffic counters.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// LogStats emits the traffic counters at info level.
func (c *ResultCache) LogStats() {
	s := c.Stats()
	c.logger.WithFields(logrus.Fields{
		"memory_hits": s.MemoryHits,
		"disk_hits":   s.DiskHits,
		"misses":      s.Misses,
		"sets":        s.Sets,
	}).Info("Result cache statistics")
}

// Close releases the persistent store, if any.
func (c *ResultCache) Close() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

func (c *ResultCache) count(update func(*Stats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}
