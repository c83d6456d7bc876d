package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: make(map[string]map[string]string)} }

func (f *fakeRedis) HSet(ctx context.Context, key string, values ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.data[key]
	if !ok {
		h = make(map[string]string)
		f.data[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		k := values[i].(string)
		h[k] = toString(values[i+1])
	}
	return nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return fmtInt(t)
	default:
		return ""
	}
}

func fmtInt(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf []byte
	for v > 0 {
		buf = append([]byte{byte('0' + v%10)}, buf...)
		v /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}

func (f *fakeRedis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.data[key]))
	for k, v := range f.data[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }

func TestWarmCachePutThenGetHitsInProcessCache(t *testing.T) {
	ctx := context.Background()
	wc := NewWarmCache(newFakeRedis(), time.Minute)

	tree := LicenseTree{RootID1: mkID(7), LicenseIDs: [][32]byte{mkID(1), mkID(2)}}
	if err := wc.Put(ctx, tree); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := wc.Get(ctx, mkID(7))
	if err != nil || !ok {
		t.Fatalf("Get = (%v, %v, %v), want found", got, ok, err)
	}
	if len(got.LicenseIDs) != 2 {
		t.Fatalf("expected 2 license ids, got %d", len(got.LicenseIDs))
	}
}

func TestWarmCacheGetFallsBackToRedisAcrossInstances(t *testing.T) {
	ctx := context.Background()
	backing := newFakeRedis()

	writer := NewWarmCache(backing, time.Minute)
	tree := LicenseTree{RootID1: mkID(3), LicenseIDs: [][32]byte{mkID(9)}}
	if err := writer.Put(ctx, tree); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reader := NewWarmCache(backing, time.Minute)
	got, ok, err := reader.Get(ctx, mkID(3))
	if err != nil || !ok {
		t.Fatalf("Get from a fresh WarmCache over the same backing store should hit Redis: (%v, %v, %v)", got, ok, err)
	}
	if len(got.LicenseIDs) != 1 || got.LicenseIDs[0] != mkID(9) {
		t.Fatalf("decoded tree does not match what was stored")
	}
}

func TestWarmCacheInvalidateClearsInProcessEntry(t *testing.T) {
	ctx := context.Background()
	wc := NewWarmCache(newFakeRedis(), time.Minute)
	tree := LicenseTree{RootID1: mkID(5)}
	wc.Put(ctx, tree)

	wc.Invalidate(mkID(5))

	wc.mu.Lock()
	_, stillCached := wc.cache[mkID(5)]
	wc.mu.Unlock()
	if stillCached {
		t.Fatalf("Invalidate should drop the in-process cache entry immediately")
	}
}
