package store

import (
	"context"
	"testing"
	"time"
)

func TestNotifier_SubscribeAllReceivesEveryTable(t *testing.T) {
	n := NewNotifier()
	all := n.SubscribeAll()

	driver := NewMemDriverWithNotifier(n)

	if err := driver.Put(context.Background(), "nodes", Record{ID1: [32]byte{1}}); err != nil {
		t.Fatalf("put nodes: %v", err)
	}
	if err := driver.Put(context.Background(), "certs", Record{ID1: [32]byte{2}}); err != nil {
		t.Fatalf("put certs: %v", err)
	}

	seen := map[[32]byte]bool{}
	for i := 0; i < 2; i++ {
		select {
		case rec := <-all:
			seen[rec.ID1] = true
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for notification %d", i+1)
		}
	}
	if !seen[[32]byte{1}] || !seen[[32]byte{2}] {
		t.Fatalf("expected both records on the unified stream, got %v", seen)
	}
}

func TestNotifier_SubscribeFiltersByTable(t *testing.T) {
	n := NewNotifier()
	nodesOnly := n.Subscribe("nodes")

	driver := NewMemDriverWithNotifier(n)
	if err := driver.Put(context.Background(), "certs", Record{ID1: [32]byte{9}}); err != nil {
		t.Fatalf("put certs: %v", err)
	}
	if err := driver.Put(context.Background(), "nodes", Record{ID1: [32]byte{7}}); err != nil {
		t.Fatalf("put nodes: %v", err)
	}

	select {
	case rec := <-nodesOnly:
		if rec.ID1 != [32]byte{7} {
			t.Fatalf("expected the nodes-table record, got %v", rec.ID1)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the filtered notification")
	}

	select {
	case rec := <-nodesOnly:
		t.Fatalf("unexpected second notification on filtered channel: %v", rec.ID1)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifier_DropsOnSlowSubscriberRatherThanBlocking(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe("nodes")

	driver := NewMemDriverWithNotifier(n)
	// Publish more than the channel's buffer without ever draining it;
	// Put must not block on a full subscriber channel.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			rec := Record{ID1: [32]byte{byte(i), byte(i >> 8)}}
			if err := driver.Put(context.Background(), "nodes", rec); err != nil {
				t.Errorf("put: %v", err)
			}
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Put blocked on a full subscriber channel")
	}
	_ = ch
}
