// Package pageload holds the single page-ready flag shown as the loading
// overlay, and runs each page's ordered load hooks.
package pageload

import (
	"context"
	"sync"

	"github.com/jrsteele09/trigpoint-web/internal/observe"
	"github.com/rs/zerolog/log"
)

// DefaultMessage is shown while a page loads when nobody supplied a message.
const DefaultMessage = "Loading..."

// State is a snapshot of the overlay.
type State struct {
	Loading bool
	Message string
}

// Navigator is what the session manager and stores use to move the user
// around. Coordinator implements it.
type Navigator interface {
	// Redirect navigates without showing the overlay.
	Redirect(path string)
	// NavigateWithLoader shows the overlay with message, then navigates.
	NavigateWithLoader(path, message string)
	// Begin shows the overlay for the duration of an action. The returned
	// release is safe to call more than once.
	Begin(message string) (release func())
}

// Coordinator is the PageLoadCoordinator. It has two states, Loading and
// Ready, and starts Ready.
type Coordinator struct {
	mu       sync.Mutex
	state    State
	redirect string
	pending  bool
	gen      uint64

	hub observe.Hub[State]
}

var _ Navigator = (*Coordinator)(nil)

func NewCoordinator() *Coordinator {
	return &Coordinator{state: State{Message: DefaultMessage}}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Subscribe(fn func(State)) (cancel func()) {
	return c.hub.Subscribe(fn)
}

// NavigateWithLoader sets Loading with message, then issues the navigation.
func (c *Coordinator) NavigateWithLoader(path, message string) {
	if message == "" {
		message = DefaultMessage
	}
	c.mu.Lock()
	c.gen++
	c.state = State{Loading: true, Message: message}
	c.redirect, c.pending = path, true
	s := c.state
	c.mu.Unlock()

	log.Debug().Str("path", path).Str("message", message).Msg("navigate with loader")
	c.hub.Publish(s)
}

// Redirect issues a navigation and leaves the overlay alone.
func (c *Coordinator) Redirect(path string) {
	c.mu.Lock()
	c.redirect, c.pending = path, true
	c.mu.Unlock()

	log.Debug().Str("path", path).Msg("redirect")
}

// SignalReady clears the overlay. It is the last step of every hook chain.
func (c *Coordinator) SignalReady() {
	c.mu.Lock()
	changed := c.state.Loading
	c.state.Loading = false
	s := c.state
	c.mu.Unlock()

	if changed {
		c.hub.Publish(s)
	}
}

// Begin sets Loading with message and returns its release. Release clears
// the overlay unless a NavigateWithLoader happened in between, in which case
// the overlay belongs to the navigation and the next page clears it.
func (c *Coordinator) Begin(message string) (release func()) {
	if message == "" {
		message = DefaultMessage
	}
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state = State{Loading: true, Message: message}
	s := c.state
	c.mu.Unlock()
	c.hub.Publish(s)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if c.gen != gen {
				c.mu.Unlock()
				return
			}
			c.state.Loading = false
			s := c.state
			c.mu.Unlock()
			c.hub.Publish(s)
		})
	}
}

// TakeRedirect returns the pending navigation, if any, and clears it.
func (c *Coordinator) TakeRedirect() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path, ok := c.redirect, c.pending
	c.redirect, c.pending = "", false
	return path, ok
}

func (c *Coordinator) hasRedirect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Coordinator) startLoading() {
	c.mu.Lock()
	if c.state.Loading {
		c.mu.Unlock()
		return
	}
	c.state = State{Loading: true, Message: DefaultMessage}
	s := c.state
	c.mu.Unlock()
	c.hub.Publish(s)
}

// Run executes hooks in order. A hook that leaves a redirect pending stops
// the chain; later hooks never see an unauthenticated context. A hook error
// does not stop the chain, the hook has already recorded its own message.
// Run always finishes with SignalReady and returns the redirect, if any,
// which it consumes.
func (c *Coordinator) Run(ctx context.Context, hooks []Hook, params Params) (redirect string) {
	// A navigation left over from a previous action is stale once a page loads.
	c.TakeRedirect()
	defer c.SignalReady()

	if len(hooks) == 0 {
		return ""
	}
	c.startLoading()

	for i, hook := range hooks {
		if err := ctx.Err(); err != nil {
			log.Debug().Err(err).Int("hook", i).Msg("page load abandoned")
			break
		}
		if err := hook(ctx, params); err != nil {
			log.Debug().Err(err).Int("hook", i).Msg("page load hook failed")
		}
		if c.hasRedirect() {
			break
		}
	}

	redirect, _ = c.TakeRedirect()
	return redirect
}
