package session_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/trigpoint-web/backend"
	"github.com/jrsteele09/trigpoint-web/backend/backendfake"
	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/pageload"
	"github.com/jrsteele09/trigpoint-web/session"
	"github.com/jrsteele09/trigpoint-web/session/tokenrepo"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var _ session.AuthAPI = (*backendfake.Backend)(nil)

type fixture struct {
	api  *backendfake.Backend
	nav  *pageload.Coordinator
	repo *tokenrepo.InMemoryRepo
	m    *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := backendfake.New()
	api.AddUser("rider@example.com", "pw")
	nav := pageload.NewCoordinator()
	repo := tokenrepo.NewInMemoryRepo()
	return &fixture{
		api:  api,
		nav:  nav,
		repo: repo,
		m:    session.NewManager(api, nav, session.WithTokenRepo(repo, "ws-1")),
	}
}

func (f *fixture) redirect(t *testing.T) string {
	t.Helper()
	path, ok := f.nav.TakeRedirect()
	require.True(t, ok, "expected a pending redirect")
	return path
}

func (f *fixture) requireSettled(t *testing.T) {
	t.Helper()
	require.False(t, f.m.State().Busy, "session busy flag left raised")
	require.False(t, f.nav.State().Loading, "page overlay left raised")
}

func TestGuard_NoToken(t *testing.T) {
	f := newFixture(t)

	for range 2 {
		err := f.m.EnsureAuthenticatedOrRedirect(context.Background())
		require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
		require.Equal(t, "/login", f.redirect(t))
		require.False(t, f.m.State().Busy)
	}
	require.Zero(t, f.api.TotalCalls())
}

func TestGuard_Invalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.m.Login(ctx, "rider@example.com", "pw"))
	f.redirect(t)
	f.api.RevokeToken(f.m.AccessToken())

	err := f.m.EnsureAuthenticatedOrRedirect(ctx)
	require.True(t, apperrors.IsUnauthorized(err))
	require.Equal(t, "/login", f.redirect(t))
	require.Empty(t, f.m.AccessToken())
	require.False(t, f.m.State().Authenticated)
	require.Nil(t, f.m.State().User)
	require.False(t, f.m.State().Busy)

	_, err = f.repo.Load(ctx, "ws-1")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	before := f.api.TotalCalls()
	err = f.m.EnsureAuthenticatedOrRedirect(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	require.Equal(t, "/login", f.redirect(t))
	require.Equal(t, before, f.api.TotalCalls())
}

func TestGuard_AnyIdentityFailureClearsToken(t *testing.T) {
	failures := map[string]error{
		"server error": &apperrors.RejectedError{Status: http.StatusInternalServerError},
		"timeout":      &apperrors.TransportError{Kind: apperrors.ErrTimeout, Cause: context.DeadlineExceeded},
		"unreachable":  &apperrors.TransportError{Kind: apperrors.ErrUnreachable, Cause: errors.New("connection refused")},
		"malformed":    apperrors.ErrMalformedResponse,
	}
	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.m.Login(ctx, "rider@example.com", "pw"))
			f.redirect(t)

			f.api.Fail(backendfake.OpCurrentUser, failure)
			require.Error(t, f.m.EnsureAuthenticatedOrRedirect(ctx))
			require.Equal(t, "/login", f.redirect(t))
			require.Empty(t, f.m.AccessToken())
			require.False(t, f.m.State().Busy)
		})
	}
}

func TestGuard_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tok := f.api.IssueToken("rider@example.com")
	require.NoError(t, f.repo.Save(ctx, "ws-1", backendToken(tok)))
	require.NoError(t, f.m.Restore(ctx))

	require.NoError(t, f.m.EnsureAuthenticatedOrRedirect(ctx))
	_, ok := f.nav.TakeRedirect()
	require.False(t, ok)

	st := f.m.State()
	require.True(t, st.Authenticated)
	require.Equal(t, "rider@example.com", st.User.Email)
	require.True(t, st.User.IsVerified())
	require.False(t, st.Busy)
}

func TestGuard_HookStopsPage(t *testing.T) {
	f := newFixture(t)
	fetched := false
	fetch := func(context.Context, pageload.Params) error {
		fetched = true
		return nil
	}

	redirect := f.nav.Run(context.Background(), []pageload.Hook{f.m.Guard(), fetch}, nil)
	require.Equal(t, "/login", redirect)
	require.False(t, fetched)
	f.requireSettled(t)
}

func TestGuard_CallerCancelKeepsSession(t *testing.T) {
	t.Run("cancelled during the identity fetch", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.m.Login(context.Background(), "rider@example.com", "pw"))
		f.redirect(t)
		tok := f.m.AccessToken()

		ctx, cancel := context.WithCancel(context.Background())
		f.api.Before(backendfake.OpCurrentUser, func(context.Context) { cancel() })

		_ = f.m.EnsureAuthenticatedOrRedirect(ctx)
		require.Equal(t, tok, f.m.AccessToken())
		stored, err := f.repo.Load(context.Background(), "ws-1")
		require.NoError(t, err)
		require.Equal(t, tok, stored.AccessToken)
		_, ok := f.nav.TakeRedirect()
		require.False(t, ok)
		require.False(t, f.m.State().Busy)
	})

	t.Run("second tab shares a fetch the first abandoned", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.m.Login(context.Background(), "rider@example.com", "pw"))
		f.redirect(t)
		tok := f.m.AccessToken()

		entered := make(chan struct{})
		release := make(chan struct{})
		var once sync.Once
		f.api.Before(backendfake.OpCurrentUser, func(context.Context) {
			once.Do(func() {
				close(entered)
				<-release
			})
		})

		ctxA, cancelA := context.WithCancel(context.Background())
		errA := make(chan error, 1)
		go func() { errA <- f.m.EnsureAuthenticatedOrRedirect(ctxA) }()
		<-entered
		cancelA()
		require.ErrorIs(t, <-errA, context.Canceled)

		errB := make(chan error, 1)
		go func() { errB <- f.m.EnsureAuthenticatedOrRedirect(context.Background()) }()
		require.Eventually(t, func() bool { return f.m.State().Busy }, time.Second, time.Millisecond)
		close(release)

		require.NoError(t, <-errB)
		require.Equal(t, tok, f.m.AccessToken())
		require.True(t, f.m.State().Authenticated)
		_, ok := f.nav.TakeRedirect()
		require.False(t, ok)
	})
}

func TestBusyCoversOverlappingFlows(t *testing.T) {
	f := newFixture(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.api.Before(backendfake.OpLogin, func(context.Context) {
		close(entered)
		<-release
	})

	loginErr := make(chan error, 1)
	go func() { loginErr <- f.m.Login(context.Background(), "rider@example.com", "pw") }()
	<-entered

	require.ErrorIs(t, f.m.EnsureAuthenticatedOrRedirect(context.Background()), apperrors.ErrNotAuthenticated)
	require.True(t, f.m.State().Busy, "login still in flight")

	close(release)
	require.NoError(t, <-loginErr)
	require.False(t, f.m.State().Busy)
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		var overlay []pageload.State
		f.nav.Subscribe(func(s pageload.State) { overlay = append(overlay, s) })

		require.NoError(t, f.m.Login(ctx, " rider@example.com ", "pw"))
		require.Equal(t, "/", f.redirect(t))
		f.requireSettled(t)
		require.Equal(t, pageload.State{Loading: true, Message: "Signing you in…"}, overlay[0])

		st := f.m.State()
		require.True(t, st.Authenticated)
		require.Equal(t, "rider@example.com", st.User.Email)
		require.Equal(t, 1, f.api.Calls(backendfake.OpCurrentUser))

		stored, err := f.repo.Load(ctx, "ws-1")
		require.NoError(t, err)
		require.Equal(t, f.m.AccessToken(), stored.AccessToken)
	})

	outcomes := []struct {
		name    string
		fail    error
		message string
	}{
		{"bad credentials", nil, "Login failed: Invalid credentials"},
		{"server error without detail", &apperrors.RejectedError{Status: 500}, "Login failed (status 500)"},
		{"timeout", &apperrors.TransportError{Kind: apperrors.ErrTimeout, Cause: context.DeadlineExceeded}, "Backend timeout – please try again."},
		{"unreachable", &apperrors.TransportError{Kind: apperrors.ErrUnreachable, Cause: errors.New("dial tcp: refused")}, "Error contacting backend: dial tcp: refused"},
	}
	for _, tc := range outcomes {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			password := "pw"
			if tc.fail != nil {
				f.api.Fail(backendfake.OpLogin, tc.fail)
			} else {
				password = "wrong"
			}

			require.Error(t, f.m.Login(context.Background(), "rider@example.com", password))
			require.Equal(t, tc.message, f.m.State().Message)
			require.Empty(t, f.m.AccessToken())
			f.requireSettled(t)
			_, ok := f.nav.TakeRedirect()
			require.False(t, ok)
		})
	}

	t.Run("identity fetch fails after login", func(t *testing.T) {
		f := newFixture(t)
		f.api.FailStatus(backendfake.OpCurrentUser, http.StatusInternalServerError, "")

		require.Error(t, f.m.Login(context.Background(), "rider@example.com", "pw"))
		require.Empty(t, f.m.AccessToken())
		require.Equal(t, "Login failed (status 500)", f.m.State().Message)
		f.requireSettled(t)
	})
}

func TestRegister(t *testing.T) {
	t.Run("password mismatch makes no call", func(t *testing.T) {
		f := newFixture(t)

		err := f.m.Register(context.Background(), "a@x.com", "p1", "p2")
		var validation *apperrors.ValidationError
		require.ErrorAs(t, err, &validation)
		require.Equal(t, "Passwords do not match.", f.m.State().Message)
		require.Zero(t, f.api.TotalCalls())
		f.requireSettled(t)
	})

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.m.Register(context.Background(), "new@x.com", "p1", "p1"))
		require.Equal(t, "Registered. Check your email to verify your address.", f.m.State().Message)
		require.Equal(t, "new@x.com", f.m.State().Email)
		f.requireSettled(t)
	})

	t.Run("dev token", func(t *testing.T) {
		f := newFixture(t)
		f.api.DevTokens = true
		require.NoError(t, f.m.Register(context.Background(), "new@x.com", "p1", "p1"))
		require.Equal(t, "Registered. Check your email to verify your address. (Dev: verification token returned in response.)",
			f.m.State().Message)
	})

	t.Run("rejected", func(t *testing.T) {
		f := newFixture(t)
		require.Error(t, f.m.Register(context.Background(), "rider@example.com", "p1", "p1"))
		require.Equal(t, "Registration failed: Email already registered", f.m.State().Message)
		f.requireSettled(t)
	})

	t.Run("timeout", func(t *testing.T) {
		f := newFixture(t)
		f.api.Fail(backendfake.OpRegister, &apperrors.TransportError{Kind: apperrors.ErrTimeout, Cause: context.DeadlineExceeded})
		require.Error(t, f.m.Register(context.Background(), "n@x.com", "p1", "p1"))
		require.Equal(t, "Backend timeout – please try again.", f.m.State().Message)
		f.requireSettled(t)
	})
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.Login(ctx, "rider@example.com", "pw"))
	f.redirect(t)

	f.m.Logout(ctx)

	require.Empty(t, f.m.AccessToken())
	require.False(t, f.m.State().Authenticated)
	require.Equal(t, pageload.State{Loading: true, Message: "Logging you out…"}, f.nav.State())
	require.Equal(t, "/login", f.redirect(t))

	_, err := f.repo.Load(ctx, "ws-1")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// The login page's load clears the overlay.
	f.nav.Run(ctx, []pageload.Hook{pageload.Ready}, nil)
	f.requireSettled(t)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("forgot", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.m.ForgotPassword(ctx, "nobody@x.com"))
		require.Equal(t, "If that email exists, a reset link has been sent.", f.m.State().Message)

		f.api.FailStatus(backendfake.OpForgotPassword, http.StatusTooManyRequests, "Slow down")
		require.Error(t, f.m.ForgotPassword(ctx, "rider@example.com"))
		require.Equal(t, "Reset request failed: Slow down", f.m.State().Message)
		f.requireSettled(t)
	})

	t.Run("missing token in url", func(t *testing.T) {
		f := newFixture(t)
		require.Error(t, f.m.LoadResetToken(ctx, pageload.Params{}))
		require.Equal(t, "Missing reset token in URL.", f.m.State().Message)

		require.Error(t, f.m.ResetPassword(ctx, "", "a", "a"))
		require.Equal(t, "Missing reset token.", f.m.State().Message)
		require.Zero(t, f.api.TotalCalls())
	})

	t.Run("mismatch", func(t *testing.T) {
		f := newFixture(t)
		require.Error(t, f.m.ResetPassword(ctx, "tok", "a", "b"))
		require.Equal(t, "Passwords do not match.", f.m.State().Message)
		require.Zero(t, f.api.TotalCalls())
	})

	t.Run("success via link", func(t *testing.T) {
		f := newFixture(t)
		token := f.api.ResetToken("rider@example.com")

		require.NoError(t, f.m.LoadResetToken(ctx, pageload.Params{"token": token}))
		require.Equal(t, token, f.m.State().ResetToken)

		require.NoError(t, f.m.ResetPassword(ctx, "", "new-pw", "new-pw"))
		require.Equal(t, "Password reset. Redirecting to login...", f.m.State().Message)
		require.Equal(t, "/login", f.redirect(t))
		require.Empty(t, f.m.State().ResetToken)
		f.requireSettled(t)

		require.NoError(t, f.m.Login(ctx, "rider@example.com", "new-pw"))
	})

	t.Run("rejected token", func(t *testing.T) {
		f := newFixture(t)
		require.Error(t, f.m.ResetPassword(ctx, "bogus", "a", "a"))
		require.Equal(t, "Reset failed: Invalid or expired token", f.m.State().Message)
		f.requireSettled(t)
	})
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("missing token", func(t *testing.T) {
		f := newFixture(t)
		require.Error(t, f.m.LoadVerifyToken(ctx, pageload.Params{}))
		require.Equal(t, "Missing verification token in URL.", f.m.State().Message)
		require.Zero(t, f.api.TotalCalls())
	})

	t.Run("success prefills login", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.m.Register(ctx, "new@x.com", "p1", "p1"))
		devToken := f.api.PendingVerification("new@x.com")
		require.NotEmpty(t, devToken)

		redirect := f.nav.Run(ctx, []pageload.Hook{f.m.LoadVerifyToken}, pageload.Params{"token": devToken})
		require.Equal(t, "/login", redirect)

		st := f.m.State()
		require.True(t, st.VerifySuccess)
		require.True(t, st.JustVerified)
		require.Equal(t, "Email verified. You can now log in.", st.Message)
		require.Equal(t, "new@x.com", st.Email)

		// The login page keeps the verification message for one visit.
		f.m.ResetForm()
		require.Equal(t, "Email verified. You can now log in.", f.m.State().Message)
		require.Equal(t, "new@x.com", f.m.State().Email)
		f.m.ResetForm()
		require.Empty(t, f.m.State().Message)
		require.Empty(t, f.m.State().Email)
	})

	t.Run("rejected", func(t *testing.T) {
		f := newFixture(t)
		require.Error(t, f.m.VerifyEmail(ctx, "bogus"))
		st := f.m.State()
		require.Equal(t, "Verification failed: Invalid or expired token", st.Message)
		require.False(t, st.VerifySuccess)
		require.False(t, st.Busy)
		_, ok := f.nav.TakeRedirect()
		require.False(t, ok)
	})
}

func TestInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.Login(ctx, "rider@example.com", "pw"))

	var last session.State
	f.m.Subscribe(func(s session.State) { last = s })
	f.m.Invalidate(ctx)

	require.Empty(t, f.m.AccessToken())
	require.False(t, last.Authenticated)
	_, err := f.repo.Load(ctx, "ws-1")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func backendToken(accessToken string) *oauth2.Token {
	return backend.NewToken(accessToken, "")
}

func TestRestore_NothingStored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Restore(context.Background()))
	require.Empty(t, f.m.AccessToken())

	m := session.NewManager(f.api, f.nav)
	require.NoError(t, m.Restore(context.Background()))
}
