// Package cache provides the read-through response cache used by the API.
// Reads go to the store first and fall back to the datastore; writes
// invalidate the affected keys once the transaction has committed.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dicoevent/dicoevent/config"
	"github.com/dicoevent/dicoevent/logger"
	"github.com/goccy/go-json"
)

// ErrMiss is returned by a Store when the key is absent.
var ErrMiss = errors.New("cache: miss")

const (
	DefaultTTL     = time.Hour
	DefaultTimeout = 500 * time.Millisecond
)

// Kinds of cached resources.
const (
	KindEvent        = "event"
	KindTicket       = "ticket"
	KindRegistration = "registration"
	KindPayment      = "payment"
	KindUser         = "user"
	KindGroup        = "group"
)

// Source tells the client where a response body came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceDatabase Source = "database"
)

// Store is a byte-oriented key/value store with per-key expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// OpenStore builds the Store selected by configuration.
func OpenStore() (Store, error) {
	switch backend := config.GetCacheBackend(); backend {
	case config.CacheMemory:
		return NewMemoryStore(config.GetCacheTTL()), nil
	case config.CacheRedis:
		return NewRedisStore(RedisOptions{
			Addr:     config.GetRedisAddr(),
			Password: config.GetRedisPassword(),
			DB:       config.GetRedisDB(),
			Timeout:  config.GetCacheTimeout(),
		})
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", backend)
	}
}

func ListKey(kind string) string {
	return kind + "_list"
}

func DetailKey(kind string, id any) string {
	return fmt.Sprintf("%s_detail_%v", kind, id)
}

// Layer applies cache-aside reads and post-commit invalidation over a Store.
type Layer struct {
	store   Store
	ttl     time.Duration
	timeout time.Duration
}

func NewLayer(store Store, ttl, timeout time.Duration) *Layer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Layer{store: store, ttl: ttl, timeout: timeout}
}

func (l *Layer) Store() Store {
	return l.store
}

// Read returns the cached body for key, or calls load, encodes its result,
// stores it and returns it. A failing store never fails the read.
func (l *Layer) Read(ctx context.Context, key string, load func(context.Context) (any, error)) ([]byte, Source, error) {
	if data, err := l.get(ctx, key); err == nil {
		logger.Debugf("Cache hit for key: %s", key)
		return data, SourceCache, nil
	} else if !errors.Is(err, ErrMiss) {
		logger.Warningf("Cache read for key %s failed, falling back to database: %v", key, err)
	} else {
		logger.Debugf("Cache miss for key: %s", key)
	}

	value, err := load(ctx)
	if err != nil {
		return nil, SourceDatabase, err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, SourceDatabase, fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := l.set(ctx, key, data); err != nil {
		logger.Warningf("Failed to set cache for key %s: %v", key, err)
	}
	return data, SourceDatabase, nil
}

// Invalidate drops keys after a write has committed. Failures are logged
// only; stale entries then live at most one TTL.
func (l *Layer) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := l.bounded(ctx)
	defer cancel()
	if err := l.store.Delete(ctx, keys...); err != nil {
		logger.Errorf("Failed to invalidate cache keys %v: %v", keys, err)
	}
}

func (l *Layer) Ping(ctx context.Context) error {
	ctx, cancel := l.bounded(ctx)
	defer cancel()
	return l.store.Ping(ctx)
}

func (l *Layer) get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := l.bounded(ctx)
	defer cancel()
	return l.store.Get(ctx, key)
}

func (l *Layer) set(ctx context.Context, key string, data []byte) error {
	ctx, cancel := l.bounded(ctx)
	defer cancel()
	return l.store.Set(ctx, key, data, l.ttl)
}

// bounded detaches from request cancellation so an invalidation issued after
// commit still runs when the client has gone away.
func (l *Layer) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
}
