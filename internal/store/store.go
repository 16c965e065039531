// Package store owns automation record persistence and the change feed
// the scheduler reconciles against. Notifications carry full old/new
// snapshots and fire only when the snapshots actually differ.
package store

import (
	"context"
	"reflect"
	"sync"

	"webreplay/backend/internal/models"
)

// Snapshot is the full record state keyed by UID.
type Snapshot map[string]models.AutomationRecord

func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Change carries the state before and after a mutation.
type Change struct {
	Old Snapshot
	New Snapshot
}

type Store interface {
	// Load returns the full current snapshot.
	Load(ctx context.Context) (Snapshot, error)
	// Save upserts a record by UID.
	Save(ctx context.Context, rec models.AutomationRecord) error
	// Delete removes a record by UID. Unknown UIDs are a no-op.
	Delete(ctx context.Context, uid string) error
	// Subscribe registers a change listener; the returned func
	// unsubscribes. Listeners only fire when old and new snapshots
	// differ by deep equality.
	Subscribe(fn func(Change)) func()
}

// notifier implements the subscription half shared by both stores.
type notifier struct {
	mu   sync.Mutex
	subs map[int]func(Change)
	next int
}

func (n *notifier) subscribe(fn func(Change)) func() {
	n.mu.Lock()
	if n.subs == nil {
		n.subs = map[int]func(Change){}
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *notifier) emit(old, new Snapshot) {
	if reflect.DeepEqual(old, new) {
		return
	}
	n.mu.Lock()
	fns := make([]func(Change), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(Change{Old: old, New: new})
	}
}
