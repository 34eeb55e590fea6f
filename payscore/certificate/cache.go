package certificate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	libRedis "github.com/LerianStudio/lib-payscore/payscore/redis"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by a Cache that holds no entry for a serial.
var ErrCacheMiss = errors.New("certificate: cache miss")

// KeyPrefix namespaces certificate entries in shared caches.
const KeyPrefix = "payscore:cert:"

// Cache persists PEM encoded certificates by serial number.
type Cache interface {
	Load(ctx context.Context, serial string) ([]byte, error)
	Store(ctx context.Context, serial string, certPEM []byte, ttl time.Duration) error
}

type memoryEntry struct {
	pem     []byte
	expires time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Load implements Cache.
func (m *MemoryCache) Load(_ context.Context, serial string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[serial]
	m.mu.RUnlock()

	if !ok || (!e.expires.IsZero() && !m.now().Before(e.expires)) {
		return nil, ErrCacheMiss
	}

	return append([]byte(nil), e.pem...), nil
}

// Store implements Cache. A non-positive ttl keeps the entry until overwritten.
func (m *MemoryCache) Store(_ context.Context, serial string, certPEM []byte, ttl time.Duration) error {
	e := memoryEntry{pem: append([]byte(nil), certPEM...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[serial] = e
	m.mu.Unlock()

	return nil
}

// RedisCache stores certificates under KeyPrefix+serial.
type RedisCache struct {
	conn *libRedis.Client
}

// NewRedisCache returns a Cache backed by conn.
func NewRedisCache(conn *libRedis.Client) (*RedisCache, error) {
	if conn == nil {
		return nil, libRedis.ErrNilClient
	}

	return &RedisCache{conn: conn}, nil
}

// Load implements Cache.
func (r *RedisCache) Load(ctx context.Context, serial string) ([]byte, error) {
	rdb, err := r.conn.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	data, err := rdb.Get(ctx, KeyPrefix+serial).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}

	if err != nil {
		return nil, fmt.Errorf("load certificate %s: %w", serial, err)
	}

	return data, nil
}

// Store implements Cache.
func (r *RedisCache) Store(ctx context.Context, serial string, certPEM []byte, ttl time.Duration) error {
	rdb, err := r.conn.GetClient(ctx)
	if err != nil {
		return err
	}

	if ttl < 0 {
		ttl = 0
	}

	if err := rdb.Set(ctx, KeyPrefix+serial, certPEM, ttl).Err(); err != nil {
		return fmt.Errorf("store certificate %s: %w", serial, err)
	}

	return nil
}
