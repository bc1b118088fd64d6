package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketLens/internal/collector"
	"MarketLens/internal/metrics"
	"MarketLens/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var (
	rangeStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC)
)

func newTestCache(f collector.Fetcher) (*Cache, *fakeClock, *MemoryStore) {
	clock := &fakeClock{now: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	c := New(f, Options{TTL: time.Hour, Store: store, Now: clock.Now})
	return c, clock, store
}

func TestGetOrFetch_HitWithinTTL(t *testing.T) {
	f := &collector.MockFetcher{}
	c, clock, _ := newTestCache(f)
	ctx := context.Background()

	first, err := c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	require.NotZero(t, first["AAPL"].Len())

	clock.Advance(59 * time.Minute)
	second, err := c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
	require.NoError(t, err)

	assert.Equal(t, 1, f.Calls())
	assert.Equal(t, first, second)
}

func TestGetOrFetch_RefetchAfterTTL(t *testing.T) {
	f := &collector.MockFetcher{}
	c, clock, store := newTestCache(f)
	ctx := context.Background()

	_, err := c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
	require.NoError(t, err)

	assert.Equal(t, 2, f.Calls())
	assert.Equal(t, 1, store.Len())
}

func TestGetOrFetch_ExactKeyOnly(t *testing.T) {
	f := &collector.MockFetcher{}
	c, _, _ := newTestCache(f)
	ctx := context.Background()

	_, err := c.GetOrFetch(ctx, []string{"AAPL", "MSFT"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	// sub-range, subset and superset are distinct keys
	_, err = c.GetOrFetch(ctx, []string{"AAPL", "MSFT"}, rangeStart.AddDate(0, 0, 7), rangeEnd)
	require.NoError(t, err)
	_, err = c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	_, err = c.GetOrFetch(ctx, []string{"AAPL", "MSFT", "NVDA"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Calls())

	// order and duplicates normalize to the first key
	out, err := c.GetOrFetch(ctx, []string{"MSFT", "AAPL", "MSFT"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Calls())
	assert.Len(t, out, 2)
}

func TestGetOrFetch_SeparatorInSymbolIsDistinctKey(t *testing.T) {
	f := &collector.MockFetcher{}
	c, _, _ := newTestCache(f)
	ctx := context.Background()

	_, err := c.GetOrFetch(ctx, []string{"A", "B"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	out, err := c.GetOrFetch(ctx, []string{"A,B"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls())
	require.Contains(t, out, "A,B")
	assert.NotZero(t, out["A,B"].Len())
}

func TestGetOrFetch_CaseSensitiveKeys(t *testing.T) {
	f := &collector.MockFetcher{}
	c, _, _ := newTestCache(f)
	ctx := context.Background()

	_, err := c.GetOrFetch(ctx, []string{"BRK-B"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	out, err := c.GetOrFetch(ctx, []string{"brk-b"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls())
	assert.Contains(t, out, "brk-b")
}

func TestGetOrFetch_TimeOfDayIgnored(t *testing.T) {
	f := &collector.MockFetcher{}
	c, _, _ := newTestCache(f)
	ctx := context.Background()

	_, err := c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	_, err = c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart.Add(3*time.Hour), rangeEnd.Add(22*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, f.Calls())
}

func TestGetOrFetch_FailureLeavesNoEntry(t *testing.T) {
	boom := errors.New("upstream 503")
	f := &collector.MockFetcher{Err: boom}
	c, _, store := newTestCache(f)
	ctx := context.Background()

	_, err := c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrFetchFailed)
	assert.ErrorIs(t, err, boom)

	var reqErr *model.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, `"AAPL"|2024-01-01|2024-03-29`, reqErr.Key)
	assert.Zero(t, store.Len())

	f.Err = nil
	_, err = c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls(), "failure must be retried on the next call")
	assert.Equal(t, 1, store.Len())
}

func TestGetOrFetch_NoStaleFallback(t *testing.T) {
	f := &collector.MockFetcher{}
	c, clock, store := newTestCache(f)
	ctx := context.Background()

	_, err := c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	f.Err = errors.New("down")

	_, err = c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
	assert.ErrorIs(t, err, model.ErrFetchFailed)
	assert.Zero(t, store.Len())
}

func TestGetOrFetch_Timeout(t *testing.T) {
	f := &collector.MockFetcher{Delay: time.Second}
	c := New(f, Options{FetchTimeout: 20 * time.Millisecond})

	_, err := c.GetOrFetch(context.Background(), []string{"AAPL"}, rangeStart, rangeEnd)
	assert.ErrorIs(t, err, model.ErrFetchFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetOrFetch_InvalidRangeBeforeFetch(t *testing.T) {
	tests := []struct {
		name    string
		symbols []string
		start   time.Time
		end     time.Time
	}{
		{"start after end", []string{"AAPL"}, rangeEnd, rangeStart},
		{"no assets", nil, rangeStart, rangeEnd},
		{"blank asset", []string{"AAPL", " "}, rangeStart, rangeEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &collector.MockFetcher{}
			c, _, _ := newTestCache(f)
			_, err := c.GetOrFetch(context.Background(), tt.symbols, tt.start, tt.end)
			assert.ErrorIs(t, err, model.ErrInvalidRange)
			assert.Zero(t, f.Calls())
		})
	}
}

func TestGetOrFetch_AssemblyErrorIsFetchFailure(t *testing.T) {
	frame := model.NewFrame([]time.Time{rangeStart})
	f := &collector.MockFetcher{Frame: frame}
	c, _, store := newTestCache(f)

	_, err := c.GetOrFetch(context.Background(), []string{"AAPL"}, rangeStart, rangeEnd)
	assert.ErrorIs(t, err, model.ErrFetchFailed)
	assert.Zero(t, store.Len())
}

func TestGetOrFetch_ConcurrentReaders(t *testing.T) {
	f := &collector.MockFetcher{}
	c, _, _ := newTestCache(f)
	ctx := context.Background()
	_, err := c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
			assert.NoError(t, err)
			assert.NotNil(t, out["AAPL"])
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.Calls())
}

func TestGetOrFetch_ConcurrentMissesAreNotCoalesced(t *testing.T) {
	f := &collector.MockFetcher{Delay: 20 * time.Millisecond}
	c, _, store := newTestCache(f)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrFetch(context.Background(), []string{"AAPL"}, rangeStart, rangeEnd)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, f.Calls(), 1)
	assert.Equal(t, 1, store.Len())
}

func TestGetOrFetch_Metrics(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	clock := &fakeClock{now: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
	c := New(&collector.MockFetcher{}, Options{Metrics: m, Now: clock.Now})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
		require.NoError(t, err)
	}
	clock.Advance(DefaultTTL)
	_, err := c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheEvictions))
}

func TestInvalidate(t *testing.T) {
	f := &collector.MockFetcher{}
	c, _, store := newTestCache(f)
	ctx := context.Background()
	_, err := c.GetOrFetch(ctx, []string{"AAPL"}, rangeStart, rangeEnd)
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx, []string{"AAPL"}, rangeStart, rangeEnd))
	assert.Zero(t, store.Len())
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{Addr: "127.0.0.1:1", TTL: time.Minute})
	assert.Error(t, err)
}

// replacingStore stores a newer entry right after handing out the current one,
// like a concurrent Put landing between a lookup's read and its eviction.
type replacingStore struct {
	*MemoryStore
	newer *Entry
	once  sync.Once
}

func (s *replacingStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	e, ok, err := s.MemoryStore.Get(ctx, key)
	s.once.Do(func() { _ = s.MemoryStore.Put(ctx, key, s.newer) })
	return e, ok, err
}

func TestLookup_StaleEvictionKeepsNewerEntry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
	newer := &Entry{FetchedAt: clock.Now()}
	store := &replacingStore{MemoryStore: NewMemoryStore(), newer: newer}
	c := New(&collector.MockFetcher{}, Options{TTL: time.Hour, Store: store, Now: clock.Now})
	ctx := context.Background()

	require.NoError(t, store.MemoryStore.Put(ctx, "k", &Entry{FetchedAt: clock.Now().Add(-2 * time.Hour)}))

	_, ok := c.lookup(ctx, "k")
	assert.False(t, ok)

	got, ok, err := store.MemoryStore.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok, "the newer entry must survive the stale eviction")
	assert.Same(t, newer, got)
}

func TestMemoryStore_Evict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	at := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Put(ctx, "k", &Entry{FetchedAt: at}))

	require.NoError(t, s.Evict(ctx, "k", at.Add(-time.Minute)))
	assert.Equal(t, 1, s.Len())
	require.NoError(t, s.Evict(ctx, "k", at))
	assert.Zero(t, s.Len())
	require.NoError(t, s.Evict(ctx, "missing", at))
}
