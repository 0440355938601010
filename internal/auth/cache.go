package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// PermissionCache stores resolved permission sets by role.
//
// Entries are addressed by a stamp that changes whenever the role is
// invalidated. A resolver reads the stamp before loading from the store and
// writes the result under that stamp, so a load racing an invalidation lands
// under a stamp no later reader asks for.
type PermissionCache interface {
	// Stamp returns the current version stamp of roleID.
	Stamp(ctx context.Context, roleID uint) (string, error)
	// Get returns the set cached for roleID under stamp.
	Get(ctx context.Context, roleID uint, stamp string) (PermissionSet, bool, error)
	// Set caches set for roleID under stamp.
	Set(ctx context.Context, roleID uint, stamp string, set PermissionSet) error
	// Invalidate moves roleID to a new stamp.
	Invalidate(ctx context.Context, roleID uint) error
	// Purge moves every role to a new stamp.
	Purge(ctx context.Context) error
}

// MemoryCache is an in-process PermissionCache backed by an expiring LRU.
type MemoryCache struct {
	mu       sync.Mutex
	epoch    uint64
	versions map[uint]uint64
	lru      *expirable.LRU[string, PermissionSet]
}

// NewMemoryCache creates a cache holding up to size sets, each for at most ttl.
// A ttl of zero disables expiry.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		versions: make(map[uint]uint64),
		lru:      expirable.NewLRU[string, PermissionSet](size, nil, ttl),
	}
}

func memoryKey(roleID uint, stamp string) string {
	return strconv.FormatUint(uint64(roleID), 10) + "@" + stamp
}

func (m *MemoryCache) stampLocked(roleID uint) string {
	return strconv.FormatUint(m.epoch, 10) + "." + strconv.FormatUint(m.versions[roleID], 10)
}

// Stamp implements PermissionCache.
func (m *MemoryCache) Stamp(_ context.Context, roleID uint) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stampLocked(roleID), nil
}

// Get implements PermissionCache.
func (m *MemoryCache) Get(_ context.Context, roleID uint, stamp string) (PermissionSet, bool, error) {
	set, ok := m.lru.Get(memoryKey(roleID, stamp))

	return set, ok, nil
}

// Set implements PermissionCache.
func (m *MemoryCache) Set(_ context.Context, roleID uint, stamp string, set PermissionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// stale loads are dropped instead of occupying a slot
	if stamp != m.stampLocked(roleID) {
		return nil
	}

	m.lru.Add(memoryKey(roleID, stamp), set)

	return nil
}

// Invalidate implements PermissionCache.
func (m *MemoryCache) Invalidate(_ context.Context, roleID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lru.Remove(memoryKey(roleID, m.stampLocked(roleID)))
	m.versions[roleID]++

	return nil
}

// Purge implements PermissionCache.
func (m *MemoryCache) Purge(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.versions = make(map[uint]uint64)
	m.lru.Purge()

	return nil
}

// RedisCache is a PermissionCache shared by every instance connected to the same Redis.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a cache storing sets under prefix for at most ttl.
// A prefix without a hash tag is wrapped in braces, so the epoch and version keys read
// together by Stamp share one cluster slot.
func NewRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "newsdesk:perms"
	}

	return &RedisCache{client: client, prefix: hashTag(prefix), ttl: ttl}
}

func hashTag(prefix string) string {
	if open := strings.IndexByte(prefix, '{'); open >= 0 && strings.IndexByte(prefix[open+1:], '}') > 0 {
		return prefix
	}

	return "{" + prefix + "}"
}

func (r *RedisCache) epochKey() string {
	return r.prefix + ":epoch"
}

func (r *RedisCache) versionKey(roleID uint) string {
	return fmt.Sprintf("%s:role:%d:version", r.prefix, roleID)
}

func (r *RedisCache) setKey(roleID uint, stamp string) string {
	return fmt.Sprintf("%s:role:%d:perms:%s", r.prefix, roleID, stamp)
}

// Stamp implements PermissionCache.
func (r *RedisCache) Stamp(ctx context.Context, roleID uint) (string, error) {
	vals, err := r.client.MGet(ctx, r.epochKey(), r.versionKey(roleID)).Result()
	if err != nil {
		return "", fmt.Errorf("redis stamp: %w", err)
	}

	epoch, version := "0", "0"

	if s, ok := vals[0].(string); ok {
		epoch = s
	}

	if s, ok := vals[1].(string); ok {
		version = s
	}

	return epoch + "." + version, nil
}

// Get implements PermissionCache.
func (r *RedisCache) Get(ctx context.Context, roleID uint, stamp string) (PermissionSet, bool, error) {
	raw, err := r.client.Get(ctx, r.setKey(roleID, stamp)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, false, fmt.Errorf("redis decode: %w", err)
	}

	return NewPermissionSet(names...), true, nil
}

// Set implements PermissionCache.
func (r *RedisCache) Set(ctx context.Context, roleID uint, stamp string, set PermissionSet) error {
	raw, err := json.Marshal(set.Names())
	if err != nil {
		return fmt.Errorf("redis encode: %w", err)
	}

	if err := r.client.Set(ctx, r.setKey(roleID, stamp), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Invalidate implements PermissionCache.
func (r *RedisCache) Invalidate(ctx context.Context, roleID uint) error {
	if err := r.client.Incr(ctx, r.versionKey(roleID)).Err(); err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}

	return nil
}

// Purge implements PermissionCache.
func (r *RedisCache) Purge(ctx context.Context) error {
	if err := r.client.Incr(ctx, r.epochKey()).Err(); err != nil {
		return fmt.Errorf("redis purge: %w", err)
	}

	return nil
}
