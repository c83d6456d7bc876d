package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAdapter wraps *redis.Client to satisfy redisClient with plain Go
// return types, keeping WarmCache's dependency on go-redis's richer Cmd
// types confined to this one adapter.
type RedisAdapter struct{ Client *redis.Client }

func (a RedisAdapter) HSet(ctx context.Context, key string, values ...any) error {
	return a.Client.HSet(ctx, key, values...).Err()
}

func (a RedisAdapter) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return a.Client.HGetAll(ctx, key).Result()
}

func (a RedisAdapter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return a.Client.Expire(ctx, key, ttl).Err()
}

// LicenseTree is the memoized result of enumerating the license nodes
// reachable from a given starting node — the computation the query
// processor's licensing and restrictive-write rules repeat on every match
// against the same subtree.
type LicenseTree struct {
	RootID1    [32]byte
	LicenseIDs [][32]byte
	ComputedAt time.Time
}

// redisClient abstracts the Redis operations WarmCache uses. In production
// this is satisfied by *redis.Client; in tests by a mock, mirroring the
// narrow-interface style the rest of this codebase uses for its adapters.
type redisClient interface {
	HSet(ctx context.Context, key string, values ...any) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// invalidation is a request to drop one root's cached license tree,
// buffered through WarmCache's write goroutine the same way RedisWriter
// buffers book updates: callers that learn of an invalidating write (a new
// license node, a destroy request) must never block on Redis latency.
type invalidation struct {
	rootID1 [32]byte
}

// WarmCache memoizes LicenseTree computations in Redis under
// license_tree:{rootID1 hex}, with a bounded TTL so a missed invalidation
// self-heals instead of serving a stale tree forever. Writes are
// non-blocking: invalidations are buffered in an internal channel and
// drained by a dedicated goroutine, the pattern this codebase's broadcast
// writer uses for best-bid/ask persistence.
type WarmCache struct {
	client redisClient
	ttl    time.Duration
	buf    chan invalidation

	mu    sync.Mutex
	cache map[[32]byte]LicenseTree
}

// NewWarmCache constructs a WarmCache backed by client with the given TTL
// on cached entries.
func NewWarmCache(client redisClient, ttl time.Duration) *WarmCache {
	return &WarmCache{
		client: client,
		ttl:    ttl,
		buf:    make(chan invalidation, 1024),
		cache:  make(map[[32]byte]LicenseTree),
	}
}

// Run drains buffered invalidations into Redis until ctx is cancelled.
func (w *WarmCache) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case inv, ok := <-w.buf:
			if !ok {
				return
			}
			w.evict(ctx, inv.rootID1)
		}
	}
}

// Get returns the cached tree for rootID1 and whether it was present and
// still fresh, consulting Redis when the in-process cache has no entry.
func (w *WarmCache) Get(ctx context.Context, rootID1 [32]byte) (LicenseTree, bool, error) {
	w.mu.Lock()
	tree, ok := w.cache[rootID1]
	w.mu.Unlock()
	if ok {
		return tree, true, nil
	}

	key := treeKey(rootID1)
	fields, err := w.client.HGetAll(ctx, key)
	if err != nil {
		return LicenseTree{}, false, fmt.Errorf("store: warm cache get: %w", err)
	}
	if len(fields) == 0 {
		return LicenseTree{}, false, nil
	}

	decoded, err := decodeLicenseTree(rootID1, fields)
	if err != nil {
		return LicenseTree{}, false, err
	}
	w.mu.Lock()
	w.cache[rootID1] = decoded
	w.mu.Unlock()
	return decoded, true, nil
}

// Put stores tree both in the in-process cache and in Redis, refreshing
// the TTL.
func (w *WarmCache) Put(ctx context.Context, tree LicenseTree) error {
	w.mu.Lock()
	w.cache[tree.RootID1] = tree
	w.mu.Unlock()

	key := treeKey(tree.RootID1)
	values := make([]any, 0, 2+2*len(tree.LicenseIDs))
	values = append(values, "computedAt", tree.ComputedAt.UnixMilli())
	for i, id := range tree.LicenseIDs {
		values = append(values, fmt.Sprintf("license:%d", i), hex.EncodeToString(id[:]))
	}
	if err := w.client.HSet(ctx, key, values...); err != nil {
		return fmt.Errorf("store: warm cache put: %w", err)
	}
	w.client.Expire(ctx, key, w.ttl)
	return nil
}

// Invalidate buffers a request to evict rootID1's cached tree, dropping
// the oldest pending invalidation if the buffer is full — the same
// best-effort backpressure policy the teacher's broadcast writer applies.
func (w *WarmCache) Invalidate(rootID1 [32]byte) {
	w.mu.Lock()
	delete(w.cache, rootID1)
	w.mu.Unlock()

	inv := invalidation{rootID1: rootID1}
	select {
	case w.buf <- inv:
	default:
		select {
		case <-w.buf:
		default:
		}
		select {
		case w.buf <- inv:
		default:
		}
	}
}

func (w *WarmCache) evict(ctx context.Context, rootID1 [32]byte) {
	w.client.HSet(ctx, treeKey(rootID1), "computedAt", int64(0))
	w.client.Expire(ctx, treeKey(rootID1), 0)
}

func treeKey(rootID1 [32]byte) string {
	return "license_tree:" + hex.EncodeToString(rootID1[:])
}

func decodeLicenseTree(rootID1 [32]byte, fields map[string]string) (LicenseTree, error) {
	tree := LicenseTree{RootID1: rootID1}
	if raw, ok := fields["computedAt"]; ok {
		var ms int64
		if _, err := fmt.Sscanf(raw, "%d", &ms); err == nil {
			tree.ComputedAt = time.UnixMilli(ms)
		}
	}
	for k, v := range fields {
		if len(k) < 8 || k[:8] != "license:" {
			continue
		}
		raw, err := hex.DecodeString(v)
		if err != nil || len(raw) != 32 {
			return LicenseTree{}, fmt.Errorf("store: malformed license tree entry %q", k)
		}
		var id [32]byte
		copy(id[:], raw)
		tree.LicenseIDs = append(tree.LicenseIDs, id)
	}
	return tree, nil
}
