package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard admits each submission key at most once within a TTL
type Guard interface {
	// Acquire returns false if the key was already claimed
	Acquire(ctx context.Context, key string) (bool, error)
	// Release drops a claim so the same key may be submitted again
	Release(ctx context.Context, key string) error
}

// RedisGuard claims keys with SET NX so every API replica sees the same claims
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisGuard connects to addr and verifies the connection
func NewRedisGuard(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisGuard{
		client: client,
		prefix: "gookie:bid:",
		ttl:    ttl,
	}, nil
}

// Acquire claims key if nobody holds it
func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+key, time.Now().UTC().Format(time.RFC3339Nano), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: acquire %s: %w", key, err)
	}
	return ok, nil
}

// Release deletes the claim on key
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.prefix+key).Err(); err != nil {
		return fmt.Errorf("idempotency: release %s: %w", key, err)
	}
	return nil
}

// Close closes the redis client
func (g *RedisGuard) Close() error {
	return g.client.Close()
}

// MemoryGuard is a single-process Guard
type MemoryGuard struct {
	mu     sync.Mutex
	claims map[string]time.Time // key -> expiry
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryGuard creates a MemoryGuard whose claims expire after ttl
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{
		claims: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Acquire claims key if it is free or its claim expired
func (g *MemoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expiry, ok := g.claims[key]; ok && now.Before(expiry) {
		return false, nil
	}
	g.claims[key] = now.Add(g.ttl)
	return true, nil
}

// Release deletes the claim on key
func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claims, key)
	return nil
}
