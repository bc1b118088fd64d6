package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"MarketLens/internal/analyst"
	"MarketLens/internal/cache"
	"MarketLens/internal/collector"
	"MarketLens/internal/config"
	"MarketLens/internal/events"
	"MarketLens/internal/metrics"
	"MarketLens/internal/notifier"
	"MarketLens/internal/recorder"
	"MarketLens/internal/scheduler"
)

// app bundles the components built from one configuration.
type app struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	cache     *cache.Cache
	collector *collector.Collector
	recorder  recorder.Recorder
	publisher events.Publisher
	notifier  *notifier.TelegramNotifier // nil when Telegram is not configured
	analyst   *analyst.Client            // nil when no API key is configured
	closers   []func() error
}

func newFetcher(cfg *config.Config, timeout time.Duration) (collector.Fetcher, error) {
	switch cfg.DataSource.Provider {
	case "yahoo":
		return collector.NewYahooFetcher(cfg.DataSource.Proxy, timeout), nil
	case "financego":
		return collector.NewFinanceGoFetcher(), nil
	case "mock":
		return &collector.MockFetcher{}, nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", cfg.DataSource.Provider)
	}
}

func newStore(cfg *config.Config, ttl time.Duration) (cache.Store, func() error, error) {
	if cfg.Cache.Backend != "redis" {
		return cache.NewMemoryStore(), nil, nil
	}
	rs, err := cache.NewRedisStore(cache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
		TTL:      ttl,
	})
	if err != nil {
		return nil, nil, err
	}
	return rs, rs.Close, nil
}

// buildApp wires every component. Optional collaborators that fail to start are
// replaced by no-op versions with a warning.
func buildApp(cfg *config.Config) (*app, error) {
	timeout, err := cfg.FetchTimeout()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, metrics: metrics.NewMetrics(prometheus.NewRegistry())}

	fetcher, err := newFetcher(cfg, timeout)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	store, closeStore, err := newStore(cfg, ttl)
	if err != nil {
		return nil, fmt.Errorf("init cache store: %w", err)
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}
	log.Printf("[INFO] cache: backend=%s ttl=%s", cfg.Cache.Backend, ttl)

	a.cache = cache.New(fetcher, cache.Options{
		TTL:          ttl,
		FetchTimeout: timeout,
		Store:        store,
		Metrics:      a.metrics,
	})
	a.collector = collector.NewCollector(a.cache, cfg.Indicators.Window)

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		} else {
			a.recorder = sr
			a.closers = append(a.closers, sr.Close)
		}
	}

	a.publisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		p := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.publisher = p
		a.closers = append(a.closers, p.Close)
		log.Printf("[INFO] kafka events enabled: topic=%s", cfg.Kafka.Topic)
	}

	if cfg.TelegramEnabled() {
		a.notifier = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy)
	}
	if cfg.Analyst.APIKey != "" {
		a.analyst = analyst.NewClient(analyst.Config{
			BaseURL:     cfg.Analyst.BaseURL,
			APIKey:      cfg.Analyst.APIKey,
			Model:       cfg.Analyst.Model,
			Temperature: cfg.Analyst.Temperature,
			MaxTokens:   cfg.Analyst.MaxTokens,
		})
	}
	return a, nil
}

func (a *app) newScheduler(ctx context.Context) *scheduler.Scheduler {
	var sender scheduler.Sender
	if a.notifier != nil {
		sender = a.notifier
	}
	s := scheduler.NewScheduler(ctx, a.collector, scheduler.Watchlist{
		Symbols:      a.cfg.Watchlist.Symbols,
		LookbackDays: a.cfg.Watchlist.LookbackDays,
		Window:       a.cfg.Indicators.Window,
	}, a.recorder, a.publisher, sender)
	s.Metrics = a.metrics
	return s
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("[WARN] close: %v", err)
		}
	}
}
