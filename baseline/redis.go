package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aic-holdings/bot-slack-core/evals"
)

const defaultPrefix = "botcore"

// RedisStore keeps baselines in Redis, for fleets where eval runs on one
// host must compare against a baseline saved on another.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets an expiration on stored baselines. Zero means no expiration,
// which is the default: baselines are reference data, not cache entries.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix. Default is "botcore".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed baseline store.
//
// Example:
//
//	store := baseline.NewRedisStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    baseline.WithPrefix("weatherbot"),
//	)
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *RedisStore) key(name string) string {
	return fmt.Sprintf("%s:baseline:%s", s.prefix, name)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":baselines"
}

// Save stores the report and registers its name in the index set.
func (s *RedisStore) Save(ctx context.Context, name string, report *evals.Report) error {
	if name == "" {
		return ErrInvalidName
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(name), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save failed: %w", err)
	}
	return nil
}

// Load retrieves the report stored under name.
func (s *RedisStore) Load(ctx context.Context, name string) (*evals.Report, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var report evals.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshal baseline: %w", err)
	}
	return &report, nil
}

// List returns names from the index set, dropping entries whose value has
// expired since registration.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers failed: %w", err)
	}

	var live []string
	for _, name := range names {
		exists, err := s.client.Exists(ctx, s.key(name)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis exists failed: %w", err)
		}
		if exists == 0 {
			s.client.SRem(ctx, s.indexKey(), name)
			continue
		}
		live = append(live, name)
	}
	sort.Strings(live)
	return live, nil
}

// Delete removes the baseline and deregisters its name.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if name == "" {
		return ErrInvalidName
	}
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(name))
	pipe.SRem(ctx, s.indexKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
