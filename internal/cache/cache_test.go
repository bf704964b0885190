package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testResult(runID string) *models.AnalysisResult {
	return &models.AnalysisResult{
		Hypotheses: []models.HypothesisTest{{Name: "rally_vs_drop_amplitude_bull", PValue: 0.03}},
		Metadata: models.RunMetadata{
			RunID:     runID,
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			ZoneCount: 2,
		},
	}
}

func TestKeyIsDeterministicAndConfigSensitive(t *testing.T) {
	cfg := map[string]interface{}{"strategy": "zero_cross", "min_duration": 2}

	k1, err := Key("fp", cfg)
	require.NoError(t, err)
	k2, err := Key("fp", cfg)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)

	k3, err := Key("fp", map[string]interface{}{"strategy": "threshold", "min_duration": 2})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	k4, err := Key("other-fp", cfg)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	m := newMemoryCache(2, time.Hour)
	m.Set("a", testResult("a"))
	m.Set("b", testResult("b"))

	_, ok := m.Get("a") // refresh a
	require.True(t, ok)

	m.Set("c", testResult("c"))
	assert.Equal(t, 2, m.Len())

	_, ok = m.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = m.Get("a")
	assert.True(t, ok)
	_, ok = m.Get("c")
	assert.True(t, ok)
}

func TestMemoryCacheExpiresLazily(t *testing.T) {
	m := newMemoryCache(4, 10*time.Millisecond)
	m.Set("a", testResult("a"))

	time.Sleep(25 * time.Millisecond)
	_, ok := m.Get("a")
	assert.False(t, ok)
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store, err := NewBadgerStore("")
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", testResult("run-1"), time.Hour))
	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-1", got.Metadata.RunID)
	assert.Len(t, got.Hypotheses, 1)

	require.NoError(t, store.Reset(ctx))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", testResult("run-2"), time.Hour))
	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-2", got.Metadata.RunID)

	// Reset only touches analyzer keys.
	require.NoError(t, client.Set(ctx, "unrelated", "keep", 0).Err())
	require.NoError(t, store.Reset(ctx))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	kept, err := mr.Get("unrelated")
	require.NoError(t, err)
	assert.Equal(t, "keep", kept)
}

func TestRedisStoreHonorsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", testResult("run-3"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTieredGetPromotesDiskHits(t *testing.T) {
	store, err := NewBadgerStore("")
	require.NoError(t, err)
	ctx := context.Background()

	writer := New(DefaultOptions(), store, testLogger())
	writer.Set(ctx, "k", testResult("run-4"))

	// A fresh cache over the same store has a cold memory tier.
	reader := New(DefaultOptions(), store, testLogger())
	got, ok := reader.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "run-4", got.Metadata.RunID)
	assert.Equal(t, int64(1), reader.Stats().DiskHits)

	_, ok = reader.Get(ctx, "k")
	require.True(t, ok)
	stats := reader.Stats()
	assert.Equal(t, int64(1), stats.MemoryHits, "second read comes from memory")
	assert.Equal(t, int64(1), stats.DiskHits)

	require.NoError(t, writer.Close())
}

func TestGetOrComputeRunsComputeOnce(t *testing.T) {
	c := New(DefaultOptions(), nil, testLogger())
	ctx := context.Background()

	var computes int32
	compute := func(context.Context) (*models.AnalysisResult, error) {
		atomic.AddInt32(&computes, 1)
		time.Sleep(20 * time.Millisecond)
		return testResult("shared"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := c.GetOrCompute(ctx, "k", compute)
			assert.NoError(t, err)
			assert.Equal(t, "shared", result.Metadata.RunID)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&computes))
}

func TestGetOrComputeDoesNotCacheFailures(t *testing.T) {
	c := New(DefaultOptions(), nil, testLogger())
	ctx := context.Background()

	calls := 0
	_, err := c.GetOrCompute(ctx, "k", func(context.Context) (*models.AnalysisResult, error) {
		calls++
		return nil, assert.AnError
	})
	require.Error(t, err)

	result, err := c.GetOrCompute(ctx, "k", func(context.Context) (*models.AnalysisResult, error) {
		calls++
		return testResult("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Metadata.RunID)
	assert.Equal(t, 2, calls)
}

func TestResetClearsBothTiersAndStats(t *testing.T) {
	store, err := NewBadgerStore("")
	require.NoError(t, err)
	c := New(DefaultOptions(), store, testLogger())
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", testResult("run-5"))
	_, ok := c.Get(ctx, "k")
	require.True(t, ok)

	require.NoError(t, c.Reset(ctx))
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
	assert.Zero(t, c.Stats().Sets)
}
