package store

import (
	"log"
	"sync"
)

// Notifier is a many-to-many hub that fans out every successful Put to
// filtered subscribers (by table) and a unified "all" stream. It replaces
// the teacher's Broadcaster, which did the same job for exchange
// BookUpdates: Subscribe/SubscribeAll return buffered channels, and
// distribution is non-blocking — a slow subscriber gets its update
// dropped rather than stalling the writer that produced it.
type Notifier struct {
	mu   sync.RWMutex
	subs map[string][]chan Record

	allMu  sync.RWMutex
	allSub []chan Record
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string][]chan Record)}
}

// Subscribe returns a buffered channel that receives every Record
// published under table. The caller must drain it to avoid dropped
// notifications.
func (n *Notifier) Subscribe(table string) <-chan Record {
	ch := make(chan Record, 256)

	n.mu.Lock()
	n.subs[table] = append(n.subs[table], ch)
	n.mu.Unlock()

	return ch
}

// SubscribeAll returns a buffered channel that receives every published
// Record regardless of table.
func (n *Notifier) SubscribeAll() <-chan Record {
	ch := make(chan Record, 512)

	n.allMu.Lock()
	n.allSub = append(n.allSub, ch)
	n.allMu.Unlock()

	return ch
}

// Publish fans rec out to table's subscribers and the unified stream.
// Non-blocking: a subscriber that isn't keeping up loses the update
// rather than backing up the writer.
func (n *Notifier) Publish(table string, rec Record) {
	n.mu.RLock()
	for _, ch := range n.subs[table] {
		select {
		case ch <- rec:
		default:
			log.Printf("store: dropping notification for slow subscriber (table=%s)", table)
		}
	}
	n.mu.RUnlock()

	n.allMu.RLock()
	for _, ch := range n.allSub {
		select {
		case ch <- rec:
		default:
		}
	}
	n.allMu.RUnlock()
}
