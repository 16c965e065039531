// Package messaging layers a correlated request/response protocol with
// depth-bounded broadcast over the only primitive frames share:
// asynchronous, fire-and-forget message posting between windows.
package messaging

import (
	"sync"

	"webreplay/backend/internal/dom"
)

// Bus models cross-window message passing. Delivery is asynchronous and
// unacknowledged: posting to a window nobody listens on is a silent
// no-op, exactly like postMessage into a frame that never loaded.
type Bus struct {
	mu   sync.RWMutex
	subs map[*dom.Window]map[int]func(from *dom.Window, data []byte)
	next int
}

func NewBus() *Bus {
	return &Bus{subs: map[*dom.Window]map[int]func(*dom.Window, []byte){}}
}

// Subscribe registers a raw message sink for a window. The returned
// func unsubscribes.
func (b *Bus) Subscribe(w *dom.Window, fn func(from *dom.Window, data []byte)) func() {
	b.mu.Lock()
	if b.subs[w] == nil {
		b.subs[w] = map[int]func(*dom.Window, []byte){}
	}
	id := b.next
	b.next++
	b.subs[w][id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs[w], id)
		b.mu.Unlock()
	}
}

// Post delivers data to every subscriber of the target window. The
// sender is carried alongside so a listener can reply, mirroring the
// source attribution of a message event.
func (b *Bus) Post(from, to *dom.Window, data []byte) {
	b.mu.RLock()
	sinks := make([]func(*dom.Window, []byte), 0, len(b.subs[to]))
	for _, fn := range b.subs[to] {
		sinks = append(sinks, fn)
	}
	b.mu.RUnlock()
	for _, fn := range sinks {
		go fn(from, data)
	}
}
