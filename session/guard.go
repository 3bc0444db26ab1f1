package session

import (
	"context"

	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/internal/routes"
	"github.com/jrsteele09/trigpoint-web/pageload"
	"github.com/rs/zerolog/log"
)

// EnsureAuthenticatedOrRedirect is the authorization guard. Without a token
// it redirects to the login page without touching the network. With one it
// fetches the identity; on any failure the token is dropped and the user is
// sent to login. A caller whose ctx ends first gets the ctx error and no
// redirect. The busy flag is lowered on every path.
func (m *Manager) EnsureAuthenticatedOrRedirect(ctx context.Context) error {
	done := m.beginQuiet()
	defer done()

	m.mu.Lock()
	tok := m.token
	m.mu.Unlock()

	if tok == nil || tok.AccessToken == "" {
		m.nav.Redirect(routes.Login)
		return apperrors.ErrNotAuthenticated
	}
	if !tok.Valid() {
		log.Debug().Str("workspace", m.repoKey).Time("expiry", tok.Expiry).Msg("access token expired")
		m.clearToken(ctx, tok.AccessToken)
		m.nav.Redirect(routes.Login)
		return apperrors.ErrNotAuthenticated
	}

	if _, err := m.fetchIdentity(ctx, tok.AccessToken); err != nil {
		if ctx.Err() != nil {
			return err
		}
		log.Debug().Err(err).Str("workspace", m.repoKey).Msg("identity fetch failed")
		m.nav.Redirect(routes.Login)
		return err
	}
	return nil
}

// Guard is EnsureAuthenticatedOrRedirect as the first hook of a page.
func (m *Manager) Guard() pageload.Hook {
	return func(ctx context.Context, _ pageload.Params) error {
		return m.EnsureAuthenticatedOrRedirect(ctx)
	}
}

// beginQuiet raises the busy flag without touching the message, so the
// guard does not wipe a message set by the flow that redirected here.
func (m *Manager) beginQuiet() (done func()) {
	m.update(func() { m.inflight++ })
	return m.end
}
