package store

import (
	"context"

	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/internal/routes"
	"github.com/jrsteele09/trigpoint-web/pageload"
	"github.com/rs/zerolog/log"
)

// Credentials is the read-only view of the session the stores need. Only the
// session changes the token; a store may ask it to tear down after a 401.
type Credentials interface {
	AccessToken() string
	Invalidate(ctx context.Context)
}

// access bundles the token lookup and the failure policy shared by every
// holder in this package.
type access struct {
	creds Credentials
	nav   pageload.Navigator
}

// token returns the bearer token, or redirects to login when there is none.
func (a access) token() (string, error) {
	tok := a.creds.AccessToken()
	if tok == "" {
		a.nav.Redirect(routes.Login)
		return "", apperrors.ErrNotAuthenticated
	}
	return tok, nil
}

// failure applies the 401 policy and returns the user-visible message for err.
func (a access) failure(ctx context.Context, action string, err error) string {
	if apperrors.IsUnauthorized(err) {
		a.creds.Invalidate(ctx)
		a.nav.Redirect(routes.Login)
	}
	log.Debug().Err(err).Str("action", action).Msg("store action failed")
	return apperrors.StatusMessage(action, err)
}
