package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Factory builds the workspace for a new id.
type Factory func(id string) *Workspace

type entry struct {
	ws       *Workspace
	lastSeen time.Time
	// restored is closed once the persisted token has been loaded.
	restored chan struct{}
}

// Registry keeps the live workspaces in memory and drops the ones that
// have been idle for longer than the configured timeout. Tokens outlive
// eviction when the factory wires a durable token repo.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	build   Factory
	idle    time.Duration
	now     func() time.Time
}

func NewRegistry(build Factory, idle time.Duration) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		build:   build,
		idle:    idle,
		now:     time.Now,
	}
}

// WithClock replaces time.Now, for tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// NewID returns a fresh workspace id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an id issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Open returns the workspace for id, creating and restoring it when it is
// not live. created reports whether a new workspace was built. A concurrent
// Open for an id still being restored waits for the restore to finish.
func (r *Registry) Open(ctx context.Context, id string) (ws *Workspace, created bool, err error) {
	if !ValidID(id) {
		return nil, false, fmt.Errorf("invalid workspace id %q", id)
	}

	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		e.lastSeen = r.now()
		r.mu.Unlock()
		select {
		case <-e.restored:
			return e.ws, false, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	e := &entry{ws: r.build(id), lastSeen: r.now(), restored: make(chan struct{})}
	r.entries[id] = e
	r.mu.Unlock()

	defer close(e.restored)
	if err := e.ws.Restore(ctx); err != nil {
		log.Warn().Err(err).Str("workspace", id).Msg("could not restore token")
	}
	return e.ws, true, nil
}

// Get returns a live workspace without creating one.
func (r *Registry) Get(id string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.ws, true
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Evict removes every workspace idle for longer than the timeout and
// returns how many were removed.
func (r *Registry) Evict() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.idle)
	n := 0
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// Run evicts idle workspaces every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Evict(); n > 0 {
				log.Debug().Int("evicted", n).Int("live", r.Len()).Msg("workspaces evicted")
			}
		}
	}
}
