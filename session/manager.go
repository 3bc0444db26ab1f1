// Package session owns the authentication token and the flows that create
// and destroy it, and provides the guard every protected page runs first.
package session

import (
	"context"
	"sync"

	"github.com/jrsteele09/trigpoint-web/backend"
	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/internal/observe"
	"github.com/jrsteele09/trigpoint-web/pageload"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// AuthAPI is the part of the backend the session talks to.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*oauth2.Token, error)
	Register(ctx context.Context, email, password string) (*backend.RegisterResult, error)
	VerifyEmail(ctx context.Context, token string) (*backend.VerifyResult, error)
	CurrentUser(ctx context.Context, accessToken string) (*backend.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// State is a snapshot for renderers. The token itself is never exposed here.
type State struct {
	Authenticated bool
	User          *backend.User
	Busy          bool
	Message       string
	VerifySuccess bool
	JustVerified  bool
	// Email prefills the login form, e.g. after verification.
	Email      string
	ResetToken string
}

// Manager is the SessionManager of one workspace.
type Manager struct {
	api     AuthAPI
	nav     pageload.Navigator
	repo    TokenRepo
	repoKey string
	group   singleflight.Group

	mu            sync.Mutex
	token         *oauth2.Token
	user          *backend.User
	inflight      int
	message       string
	verifySuccess bool
	justVerified  bool
	email         string
	resetToken    string

	hub observe.Hub[State]
}

type Option func(*Manager)

// WithTokenRepo persists the token under key so it survives reloads.
func WithTokenRepo(repo TokenRepo, key string) Option {
	return func(m *Manager) {
		m.repo = repo
		m.repoKey = key
	}
}

func NewManager(api AuthAPI, nav pageload.Navigator, opts ...Option) *Manager {
	m := &Manager{api: api, nav: nav}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Manager) Subscribe(fn func(State)) (cancel func()) {
	return m.hub.Subscribe(fn)
}

// snapshot must be called with mu held.
func (m *Manager) snapshot() State {
	s := State{
		Authenticated: m.token != nil && m.user != nil,
		Busy:          m.inflight > 0,
		Message:       m.message,
		VerifySuccess: m.verifySuccess,
		JustVerified:  m.justVerified,
		Email:         m.email,
		ResetToken:    m.resetToken,
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// update applies fn under the lock and then notifies subscribers.
func (m *Manager) update(fn func()) {
	m.mu.Lock()
	fn()
	s := m.snapshot()
	m.mu.Unlock()
	m.hub.Publish(s)
}

// begin raises the busy flag and clears the message. The returned func
// lowers it and must be deferred. Busy stays raised until every overlapping
// flow has finished.
func (m *Manager) begin() (done func()) {
	m.update(func() {
		m.inflight++
		m.message = ""
	})
	return m.end
}

func (m *Manager) end() {
	m.update(func() { m.inflight-- })
}

func (m *Manager) setMessage(msg string) {
	m.update(func() { m.message = msg })
}

// AccessToken returns the bearer credential, or "" when signed out. Stores
// read it; only the Manager changes it.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil {
		return ""
	}
	return m.token.AccessToken
}

// Restore loads a previously persisted token. It does not contact the
// backend; the guard validates the token on the next protected page.
func (m *Manager) Restore(ctx context.Context) error {
	if m.repo == nil {
		return nil
	}
	tok, err := m.repo.Load(ctx, m.repoKey)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		log.Err(err).Str("workspace", m.repoKey).Msg("restore token")
		return err
	}
	m.update(func() { m.token = tok })
	return nil
}

func (m *Manager) storeToken(ctx context.Context, tok *oauth2.Token) {
	m.update(func() {
		m.token = tok
		m.user = nil
		m.justVerified = false
	})
	if m.repo == nil {
		return
	}
	if err := m.repo.Save(ctx, m.repoKey, tok); err != nil {
		log.Err(err).Str("workspace", m.repoKey).Msg("persist token")
	}
}

// clearToken drops token and identity. When only is non-empty the token is
// cleared only if it is still the current one, so a late failure for an old
// token cannot sign out a newer login.
func (m *Manager) clearToken(ctx context.Context, only string) {
	cleared := false
	m.update(func() {
		if only != "" && (m.token == nil || m.token.AccessToken != only) {
			return
		}
		m.token = nil
		m.user = nil
		cleared = true
	})
	if !cleared || m.repo == nil {
		return
	}
	if err := m.repo.Delete(ctx, m.repoKey); err != nil {
		log.Err(err).Str("workspace", m.repoKey).Msg("delete persisted token")
	}
}

// Invalidate tears the session down after the backend answered 401.
func (m *Manager) Invalidate(ctx context.Context) {
	log.Info().Str("workspace", m.repoKey).Msg("session invalidated")
	m.clearToken(ctx, "")
}

// fetchIdentity calls /auth/users/me for accessToken. Concurrent fetches for
// the same token share one request, which runs detached from any caller's
// cancellation and is bounded by the client's auth timeout. A failed fetch
// clears the token; a caller that gives up waiting gets its own ctx error
// and leaves the token alone.
func (m *Manager) fetchIdentity(ctx context.Context, accessToken string) (*backend.User, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(accessToken, func() (any, error) {
		user, err := m.api.CurrentUser(fetchCtx, accessToken)
		if err == nil && user == nil {
			err = apperrors.ErrMalformedResponse
		}
		if err != nil {
			m.clearToken(fetchCtx, accessToken)
			return nil, err
		}
		m.update(func() {
			if m.token != nil && m.token.AccessToken == accessToken {
				u := *user
				m.user = &u
			}
		})
		return user, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*backend.User), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
