package tracer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the redis event log.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	// KeyPrefix is prepended to the agent name, "person:" by default.
	KeyPrefix string
}

type redisLister interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSink appends every event as JSON to a list per agent. The first time an
// agent is seen its list is cleared, so each run starts a fresh log.
type RedisSink struct {
	client redisLister
	closer func() error
	prefix string

	mu   sync.Mutex
	seen map[string]bool
}

// NewRedisSink connects to redis and verifies the connection.
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address must not be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	s := newRedisSink(client, cfg.KeyPrefix)
	s.closer = client.Close
	return s, nil
}

func newRedisSink(client redisLister, prefix string) *RedisSink {
	if prefix == "" {
		prefix = "person:"
	}
	return &RedisSink{client: client, prefix: prefix, seen: map[string]bool{}}
}

// Key returns the list holding agent's events.
func (s *RedisSink) Key(agent string) string {
	return s.prefix + agent
}

// Handle implements Sink.
func (s *RedisSink) Handle(ctx context.Context, ev Event) error {
	if ev.Kind == KindThought {
		return nil
	}
	key := s.Key(ev.Agent)

	s.mu.Lock()
	first := !s.seen[ev.Agent]
	s.seen[ev.Agent] = true
	s.mu.Unlock()

	if first {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("reset %s: %w", key, err)
		}
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := s.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("append to %s: %w", key, err)
	}
	return nil
}

// Close releases the redis connection.
func (s *RedisSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
