// Package redislock provides cross-process job locks on Redis.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/coregx/gamealert"
)

const (
	defaultTTL    = 30 * time.Minute
	defaultPrefix = "gamealert:job-lock:"
)

// store is the subset of Redis used by Lock.
type store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// Lock implements gamealert.Lock using Redis SETNX with a TTL.
// A lock instance tracks one acquisition; use a fresh one per run.
type Lock struct {
	client store
	key    string
	ttl    time.Duration
	owner  string
}

// NewLock constructs a Redis-backed lock.
func NewLock(client store, key string, ttl time.Duration) (*Lock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Lock{client: client, key: key, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only if this instance still owns it.
func (l *Lock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			l.owner = ""
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		l.owner = ""
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.owner = ""
	return nil
}

// Provider hands out one lock per job run, keyed by job name.
type Provider struct {
	client store
	prefix string
	ttl    time.Duration
}

// NewProvider creates a lock provider. The prefix namespaces keys per deployment.
func NewProvider(client store, prefix string, ttl time.Duration) (*Provider, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock provider")
	}
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Provider{client: client, prefix: prefix, ttl: ttl}, nil
}

// LockFor returns a fresh lock for one run of job.
func (p *Provider) LockFor(job string) (gamealert.Lock, error) {
	return NewLock(p.client, p.prefix+job, p.ttl)
}
