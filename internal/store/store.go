// Package store defines the storage surface the query processor runs
// against — a small Driver interface plus an in-memory reference
// implementation used by tests — and a Redis-backed warm cache that
// memoizes the license trees the restrictive-write and licensing rules
// recompute on every match.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Record is one stored entity: its content-addressed id1, the raw
// (tag-prefixed) wire image a node.Decode or cert.Decode call can parse,
// and the parentId it was filed under — kept denormalized so the store
// layer never needs to decode an image to answer a parent-scoped query.
type Record struct {
	ID1      [32]byte
	ParentID [32]byte
	Image    []byte
}

// Driver is the storage surface the query processor depends on. TABLES
// lists the logical partitions a concrete driver maintains (e.g. "nodes",
// "certs", "destroyed") so a single driver instance can back more than one
// record family without the caller naming SQL tables directly.
type Driver interface {
	// CreateTables prepares whatever backing structures TABLES names.
	CreateTables(ctx context.Context) error

	// Put stores rec under table, keyed by its id1. A second Put for the
	// same id1 overwrites the previous image (content-addressing makes
	// this idempotent in practice — same id1 implies same image).
	Put(ctx context.Context, table string, rec Record) error

	// Get fetches the record with the given id1, or ok=false if absent.
	Get(ctx context.Context, table string, id1 [32]byte) (Record, bool, error)

	// ByParent returns records filed under parentID, ordered by id1 for a
	// stable page boundary, honoring limit/offset. limit<=0 means
	// unbounded.
	ByParent(ctx context.Context, table string, parentID [32]byte, limit, offset int) ([]Record, error)

	// ByParents batches ByParent across many parent ids in one call — the
	// level-synchronous query processor fetches an entire BFS frontier's
	// children at once rather than one parent at a time.
	ByParents(ctx context.Context, table string, parentIDs [][32]byte, limitPerParent int) (map[[32]byte][]Record, error)

	Close() error
}

// TABLES lists the logical partitions every Driver implementation must
// support.
var TABLES = []string{"nodes", "certs", "destroyed"}

// memDriver is an in-memory Driver used by tests and by any deployment
// small enough not to need persistence across restarts.
type memDriver struct {
	mu       sync.RWMutex
	tables   map[string]map[[32]byte]Record
	notifier *Notifier
}

// NewMemDriver constructs an empty in-memory Driver with no notification
// hook attached.
func NewMemDriver() Driver {
	return NewMemDriverWithNotifier(nil)
}

// NewMemDriverWithNotifier constructs an empty in-memory Driver that
// publishes every successful Put to notifier. Pass nil for no
// notifications, equivalent to NewMemDriver.
func NewMemDriverWithNotifier(notifier *Notifier) Driver {
	d := &memDriver{tables: make(map[string]map[[32]byte]Record), notifier: notifier}
	for _, t := range TABLES {
		d.tables[t] = make(map[[32]byte]Record)
	}
	return d
}

func (d *memDriver) CreateTables(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range TABLES {
		if _, ok := d.tables[t]; !ok {
			d.tables[t] = make(map[[32]byte]Record)
		}
	}
	return nil
}

func (d *memDriver) table(name string) (map[[32]byte]Record, error) {
	t, ok := d.tables[name]
	if !ok {
		return nil, fmt.Errorf("store: unknown table %q", name)
	}
	return t, nil
}

func (d *memDriver) Put(ctx context.Context, table string, rec Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.table(table)
	if err != nil {
		return err
	}
	t[rec.ID1] = rec
	if d.notifier != nil {
		d.notifier.Publish(table, rec)
	}
	return nil
}

func (d *memDriver) Get(ctx context.Context, table string, id1 [32]byte) (Record, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, err := d.table(table)
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := t[id1]
	return rec, ok, nil
}

func (d *memDriver) ByParent(ctx context.Context, table string, parentID [32]byte, limit, offset int) ([]Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, err := d.table(table)
	if err != nil {
		return nil, err
	}
	var matches []Record
	for _, rec := range t {
		if rec.ParentID == parentID {
			matches = append(matches, rec)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return string(matches[i].ID1[:]) < string(matches[j].ID1[:])
	})
	if offset > 0 {
		if offset >= len(matches) {
			return nil, nil
		}
		matches = matches[offset:]
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (d *memDriver) ByParents(ctx context.Context, table string, parentIDs [][32]byte, limitPerParent int) (map[[32]byte][]Record, error) {
	out := make(map[[32]byte][]Record, len(parentIDs))
	for _, pid := range parentIDs {
		recs, err := d.ByParent(ctx, table, pid, limitPerParent, 0)
		if err != nil {
			return nil, err
		}
		out[pid] = recs
	}
	return out, nil
}

func (d *memDriver) Close() error { return nil }
