package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix, e.g. "marketlens:cache:"
	TTL      time.Duration
}

// RedisStore keeps entries as JSON strings. SET replaces a value atomically, and
// keys carry a Redis expiry so abandoned entries do not accumulate.
type RedisStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "marketlens:cache:"
	}
	log.Printf("[INFO] redis cache store connected to %s (prefix=%s)", cfg.Addr, prefix)
	return NewRedisStoreFromClient(client, prefix, cfg.TTL), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *goredis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false, fmt.Errorf("decode entry %s: %w", key, err)
	}
	return &e, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", key, err)
	}
	// Expiry is twice the TTL: staleness is decided by FetchedAt, Redis only reclaims memory.
	if err := s.client.Set(ctx, s.prefix+key, data, 2*s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Evict compares FetchedAt inside a WATCH transaction. A Put racing the
// eviction aborts the transaction and the newer entry stays.
func (s *RedisStore) Evict(ctx context.Context, key string, fetchedAt time.Time) error {
	k := s.prefix + key
	err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		if !e.FetchedAt.Equal(fetchedAt) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Del(ctx, k)
			return nil
		})
		return err
	}, k)
	if err != nil && !errors.Is(err, goredis.TxFailedErr) {
		return fmt.Errorf("redis evict %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
