package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"MarketLens/internal/collector"
	"MarketLens/internal/metrics"
	"MarketLens/internal/model"
)

const (
	DefaultTTL          = time.Hour
	DefaultFetchTimeout = 30 * time.Second
)

// Options tunes a Cache. Zero values select the defaults.
type Options struct {
	TTL          time.Duration
	FetchTimeout time.Duration
	Store        Store
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// Cache memoizes fetched series by exact (assets, start, end) key for a fixed TTL.
// Sub-ranges and supersets of a cached range are separate keys. Concurrent misses for
// the same key each fetch; the last to finish wins.
type Cache struct {
	fetcher      collector.Fetcher
	store        Store
	ttl          time.Duration
	fetchTimeout time.Duration
	metrics      *metrics.Metrics
	now          func() time.Time
}

// New creates a Cache in front of fetcher.
func New(fetcher collector.Fetcher, opts Options) *Cache {
	c := &Cache{
		fetcher:      fetcher,
		store:        opts.Store,
		ttl:          opts.TTL,
		fetchTimeout: opts.FetchTimeout,
		metrics:      opts.Metrics,
		now:          opts.Now,
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = DefaultFetchTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// TTL returns the configured time to live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// GetOrFetch returns series for every requested symbol, fetching only when no live
// entry exists for the normalized key. Invalid requests fail before any fetch.
// A failed fetch leaves the cache untouched and is reported as model.ErrFetchFailed.
func (c *Cache) GetOrFetch(ctx context.Context, symbols []string, start, end time.Time) (map[string]*model.Series, error) {
	req, err := model.NewRequest(symbols, start, end)
	if err != nil {
		return nil, err
	}
	key := req.Key()

	if e, ok := c.lookup(ctx, key); ok {
		c.metrics.Hit()
		log.Printf("[INFO] cache hit %s (age %s)", key, c.now().Sub(e.FetchedAt).Round(time.Second))
		return e.Series, nil
	}
	c.metrics.Miss()
	log.Printf("[INFO] cache miss %s, fetching from %s", key, c.fetcher.Name())

	series, err := c.fetch(ctx, req)
	if err != nil {
		return nil, &model.RequestError{
			Kind:  model.ErrFetchFailed,
			Key:   key,
			Start: req.Start,
			End:   req.End,
			Err:   err,
		}
	}

	entry := &Entry{Series: series, FetchedAt: c.now()}
	if err := c.store.Put(ctx, key, entry); err != nil {
		log.Printf("[WARN] cache store %s: %v", key, err)
	}
	return series, nil
}

// Invalidate drops the entry for the request, if any.
func (c *Cache) Invalidate(ctx context.Context, symbols []string, start, end time.Time) error {
	req, err := model.NewRequest(symbols, start, end)
	if err != nil {
		return err
	}
	return c.store.Delete(ctx, req.Key())
}

// lookup returns a live entry. Stale entries are evicted on the way, unless a
// newer entry replaced them in the meantime.
func (c *Cache) lookup(ctx context.Context, key string) (*Entry, bool) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Printf("[WARN] cache lookup %s: %v", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.FetchedAt) < c.ttl {
		return e, true
	}
	c.metrics.Evicted()
	log.Printf("[INFO] cache entry %s expired (fetched %s)", key, e.FetchedAt.Format(time.RFC3339))
	if err := c.store.Evict(ctx, key, e.FetchedAt); err != nil {
		log.Printf("[WARN] cache evict %s: %v", key, err)
	}
	return nil, false
}

// fetch runs outside any store lock and is bounded by the fetch timeout.
func (c *Cache) fetch(ctx context.Context, req model.Request) (map[string]*model.Series, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	began := time.Now()
	frame, err := c.fetcher.Fetch(ctx, req.Symbols, req.Start, req.End)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	c.metrics.ObserveFetch(time.Since(began), err)
	if err != nil {
		return nil, fmt.Errorf("%s fetch: %w", c.fetcher.Name(), err)
	}

	series, stats, err := collector.Assemble(frame, req.Symbols)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	if stats.Incomplete > 0 || stats.Anomalous > 0 || stats.Duplicates > 0 {
		log.Printf("[WARN] %s: dropped %d incomplete and %d anomalous rows, collapsed %d duplicate dates",
			req.Key(), stats.Incomplete, stats.Anomalous, stats.Duplicates)
	}
	return series, nil
}
