// Package observe is a small publish/subscribe hub used by the state holders
// so that renderers can react to state changes.
package observe

import "sync"

// Hub fans a snapshot out to every subscriber. The zero value is ready to use.
type Hub[S any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(S)
}

// Subscribe registers fn and returns a function that removes it.
func (h *Hub[S]) Subscribe(fn func(S)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(S))
	}
	id := h.next
	h.next++
	h.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers s to all subscribers. It must be called without holding
// the publisher's own state lock.
func (h *Hub[S]) Publish(s S) {
	h.mu.Lock()
	fns := make([]func(S), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
