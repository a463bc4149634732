package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"comfybridge/pkg/types"
)

// RedisStore implements Store backed by Redis. Records live under
// <prefix>:<id> with a TTL; a sorted set indexes them by creation time for
// listing.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (redis://host:port/db).
	URL string

	// Password for Redis authentication.
	Password string

	// DB is the database number.
	DB int

	// Prefix for all keys (default: "jobs").
	Prefix string

	// TTL for job records (default: 24h).
	TTL time.Duration

	// Timeouts.
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		URL:          "redis://localhost:6379/0",
		Prefix:       "jobs",
		TTL:          24 * time.Hour,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisStore creates a Redis-backed Store and verifies connectivity.
func NewRedisStore(cfg *RedisConfig) (*RedisStore, error) {
	if cfg == nil {
		cfg = DefaultRedisConfig()
	}

	opts := &redis.Options{
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Password:     cfg.Password,
		DB:           cfg.DB,
	}

	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts.Addr = parsed.Addr
		if parsed.Password != "" && cfg.Password == "" {
			opts.Password = parsed.Password
		}
		if parsed.DB != 0 && cfg.DB == 0 {
			opts.DB = parsed.DB
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "jobs"
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
	}, nil
}

func (s *RedisStore) keyRecord(id string) string { return fmt.Sprintf("%s:%s", s.prefix, id) }
func (s *RedisStore) keyIndex() string           { return s.prefix + ":index" }

func (s *RedisStore) write(ctx context.Context, rec *types.JobRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.client.Set(ctx, s.keyRecord(rec.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set record: %w", err)
	}
	return nil
}

func (s *RedisStore) Create(ctx context.Context, rec *types.JobRecord) error {
	if err := s.write(ctx, rec); err != nil {
		return err
	}
	err := s.client.ZAdd(ctx, s.keyIndex(), redis.Z{
		Score:  float64(rec.CreatedAt.UnixMilli()),
		Member: rec.ID,
	}).Err()
	if err != nil {
		return fmt.Errorf("index record: %w", err)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, rec *types.JobRecord) error {
	exists, err := s.client.Exists(ctx, s.keyRecord(rec.ID)).Result()
	if err != nil {
		return fmt.Errorf("check record: %w", err)
	}
	if exists == 0 {
		return ErrJobNotFound
	}
	return s.write(ctx, rec)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*types.JobRecord, error) {
	data, err := s.client.Get(ctx, s.keyRecord(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	var rec types.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) List(ctx context.Context) ([]*types.JobRecord, error) {
	ids, err := s.client.ZRevRange(ctx, s.keyIndex(), 0, 99).Result()
	if err != nil {
		return nil, fmt.Errorf("list index: %w", err)
	}

	out := make([]*types.JobRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err == ErrJobNotFound {
			// Record expired but its index entry lingers; drop it.
			s.client.ZRem(ctx, s.keyIndex(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
