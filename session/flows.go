package session

import (
	"context"
	"strings"

	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/internal/routes"
	"github.com/jrsteele09/trigpoint-web/pageload"
)

const (
	msgSigningIn        = "Signing you in…"
	msgLoggingOut       = "Logging you out…"
	msgPasswordMismatch = "Passwords do not match."
	msgRegistered       = "Registered. Check your email to verify your address."
	msgRegisteredDev    = msgRegistered + " (Dev: verification token returned in response.)"
	msgResetSent        = "If that email exists, a reset link has been sent."
	msgMissingReset     = "Missing reset token."
	msgPasswordReset    = "Password reset. Redirecting to login..."
	msgVerified         = "Email verified. You can now log in."
	msgMissingResetURL  = "Missing reset token in URL."
	msgMissingVerifyURL = "Missing verification token in URL."
)

// Login exchanges credentials for a token, fetches the identity and sends
// the user to the landing page.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	release := m.nav.Begin(msgSigningIn)
	defer release()
	done := m.begin()
	defer done()

	email = strings.TrimSpace(email)
	m.update(func() { m.email = email })

	tok, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.setMessage(apperrors.StatusMessage("Login", err))
		return err
	}
	m.storeToken(ctx, tok)

	if _, err := m.fetchIdentity(ctx, tok.AccessToken); err != nil {
		m.setMessage(apperrors.StatusMessage("Login", err))
		return err
	}

	m.nav.Redirect(routes.Landing)
	return nil
}

// Register creates an account. Mismatched passwords fail locally.
func (m *Manager) Register(ctx context.Context, email, password, confirm string) error {
	done := m.begin()
	defer done()

	email = strings.TrimSpace(email)
	m.update(func() { m.email = email })

	if password != confirm {
		err := apperrors.Validation(msgPasswordMismatch)
		m.setMessage(msgPasswordMismatch)
		return err
	}

	res, err := m.api.Register(ctx, email, password)
	if err != nil {
		m.setMessage(apperrors.StatusMessage("Registration", err))
		return err
	}
	if res != nil && res.VerifyTokenDevOnly != "" {
		m.setMessage(msgRegisteredDev)
	} else {
		m.setMessage(msgRegistered)
	}
	return nil
}

// Logout clears everything the session holds, then navigates to login
// behind the overlay.
func (m *Manager) Logout(ctx context.Context) {
	m.clearToken(ctx, "")
	m.update(func() {
		m.justVerified = false
		m.verifySuccess = false
		m.email = ""
		m.message = ""
	})
	m.nav.NavigateWithLoader(routes.Login, msgLoggingOut)
}

// ResetForm clears the login form state. The login page runs it on load.
// A message set by a just-completed verification survives one visit.
func (m *Manager) ResetForm() {
	m.update(func() {
		if m.justVerified {
			m.justVerified = false
			return
		}
		m.email = ""
		m.message = ""
	})
}

func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	done := m.begin()
	defer done()

	email = strings.TrimSpace(email)
	m.update(func() { m.email = email })

	if err := m.api.ForgotPassword(ctx, email); err != nil {
		m.setMessage(apperrors.StatusMessage("Reset request", err))
		return err
	}
	m.setMessage(msgResetSent)
	return nil
}

// ResetPassword sets a new password. An empty token falls back to the one
// read from the reset link.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword, confirm string) error {
	done := m.begin()
	defer done()

	if token == "" {
		m.mu.Lock()
		token = m.resetToken
		m.mu.Unlock()
	}
	if token == "" {
		m.setMessage(msgMissingReset)
		return apperrors.Validation(msgMissingReset)
	}
	if newPassword != confirm {
		m.setMessage(msgPasswordMismatch)
		return apperrors.Validation(msgPasswordMismatch)
	}

	if err := m.api.ResetPassword(ctx, token, newPassword); err != nil {
		m.setMessage(apperrors.StatusMessage("Reset", err))
		return err
	}
	m.update(func() {
		m.resetToken = ""
		m.message = msgPasswordReset
	})
	m.nav.Redirect(routes.Login)
	return nil
}

// VerifyEmail confirms an address and sends the user to login with the
// email prefilled.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	done := m.begin()
	defer done()
	m.update(func() {
		m.verifySuccess = false
		m.justVerified = false
	})

	res, err := m.api.VerifyEmail(ctx, token)
	if err != nil {
		m.setMessage(apperrors.StatusMessage("Verification", err))
		return err
	}

	m.update(func() {
		m.message = msgVerified
		m.verifySuccess = true
		m.justVerified = true
		if res != nil && res.Email != "" {
			m.email = res.Email
		}
	})
	m.nav.Redirect(routes.Login)
	return nil
}

// LoadResetToken is the reset page hook reading ?token=.
func (m *Manager) LoadResetToken(_ context.Context, params pageload.Params) error {
	token := params.Get("token")
	if token == "" {
		m.setMessage(msgMissingResetURL)
		return apperrors.Validation(msgMissingResetURL)
	}
	m.update(func() {
		m.resetToken = token
		m.message = ""
	})
	return nil
}

// LoadVerifyToken is the verification page hook: it reads ?token= and
// verifies it.
func (m *Manager) LoadVerifyToken(ctx context.Context, params pageload.Params) error {
	token := params.Get("token")
	if token == "" {
		m.setMessage(msgMissingVerifyURL)
		return apperrors.Validation(msgMissingVerifyURL)
	}
	return m.VerifyEmail(ctx, token)
}
