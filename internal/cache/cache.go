// Package cache is a Redis-backed read-through cache for resolved user
// identities, keyed by email. It is never the system of record: the store is
// authoritative, and every failure here is recoverable by falling through to
// the store. Staleness is bounded by the configured TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/photostream/backend/internal/domain"
)

// DefaultUserTTL bounds how stale a cached identity may get.
const DefaultUserTTL = 900 * time.Second

// SessionCache caches user snapshots in Redis.
type SessionCache struct {
	client *redis.Client
}

// New connects to Redis at the given URL (redis://host:port/db) and verifies
// the connection.
func New(ctx context.Context, url string) (*SessionCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: failed to connect to redis: %w", err)
	}

	return &SessionCache{client: client}, nil
}

// NewFromClient wraps an existing client. Used by tests with miniredis.
func NewFromClient(client *redis.Client) *SessionCache {
	return &SessionCache{client: client}
}

func userKey(email string) string { return "user:" + email }

// GetUser returns the cached snapshot for email, or (nil, nil) on a miss.
// A corrupt payload is deleted and reported as a miss.
func (c *SessionCache) GetUser(ctx context.Context, email string) (*domain.User, error) {
	key := userKey(email)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("cache: get failed: %w", err)
	}

	var snap userSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.client.Del(ctx, key)
		return nil, nil
	}

	u := snap.toDomain()
	return &u, nil
}

// SetUser stores a snapshot of u with the given TTL.
func (c *SessionCache) SetUser(ctx context.Context, u domain.User, ttl time.Duration) error {
	data, err := json.Marshal(newSnapshot(u))
	if err != nil {
		return fmt.Errorf("cache: marshal failed: %w", err)
	}
	return c.client.Set(ctx, userKey(u.Email), data, ttl).Err()
}

// Expire refreshes the TTL on an existing entry without rewriting it.
func (c *SessionCache) Expire(ctx context.Context, email string, ttl time.Duration) error {
	return c.client.Expire(ctx, userKey(email), ttl).Err()
}

// InvalidateUser drops the cached snapshot, e.g. after a ban or logout.
func (c *SessionCache) InvalidateUser(ctx context.Context, email string) error {
	return c.client.Del(ctx, userKey(email)).Err()
}

// Ping verifies the Redis connection, used by the readiness probe.
func (c *SessionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *SessionCache) Close() error { return c.client.Close() }

// userSnapshot is the cache wire form. It is distinct from domain.User so the
// snapshot can carry fields the API serialization hides.
type userSnapshot struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	EmailConfirmed bool      `json:"email_confirmed"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newSnapshot(u domain.User) userSnapshot {
	return userSnapshot{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		Role:           string(u.Role),
		EmailConfirmed: u.EmailConfirmed,
		Active:         u.Active,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (s userSnapshot) toDomain() domain.User {
	return domain.User{
		ID:             s.ID,
		Email:          s.Email,
		FullName:       s.FullName,
		Role:           domain.Role(s.Role),
		EmailConfirmed: s.EmailConfirmed,
		Active:         s.Active,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}
