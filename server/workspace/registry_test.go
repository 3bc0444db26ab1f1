package workspace_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/trigpoint-web/backend"
	"github.com/jrsteele09/trigpoint-web/backend/backendfake"
	"github.com/jrsteele09/trigpoint-web/server/workspace"
	"github.com/jrsteele09/trigpoint-web/session/tokenrepo"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var _ workspace.API = (*backendfake.Backend)(nil)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newRegistry(t *testing.T) (*workspace.Registry, *clock, *backendfake.Backend, *tokenrepo.InMemoryRepo) {
	t.Helper()
	api := backendfake.New()
	tokens := tokenrepo.NewInMemoryRepo()
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	reg := workspace.NewRegistry(func(id string) *workspace.Workspace {
		return workspace.New(id, workspace.Deps{API: api, Tokens: tokens, MediaBaseURL: "http://media.test"})
	}, time.Hour).WithClock(c.now)
	return reg, c, api, tokens
}

func TestRegistry_Open(t *testing.T) {
	ctx := context.Background()
	reg, _, _, _ := newRegistry(t)

	_, _, err := reg.Open(ctx, "not-a-uuid")
	require.Error(t, err)

	id := workspace.NewID()
	ws, created, err := reg.Open(ctx, id)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, id, ws.ID)

	again, created, err := reg.Open(ctx, id)
	require.NoError(t, err)
	require.False(t, created)
	require.Same(t, ws, again)
	require.Equal(t, 1, reg.Len())
}

// slowRepo holds Load until release is closed.
type slowRepo struct {
	*tokenrepo.InMemoryRepo
	loading chan struct{}
	release chan struct{}
}

func (r *slowRepo) Load(ctx context.Context, key string) (*oauth2.Token, error) {
	close(r.loading)
	<-r.release
	return r.InMemoryRepo.Load(ctx, key)
}

func TestRegistry_ConcurrentOpenWaitsForRestore(t *testing.T) {
	ctx := context.Background()
	api := backendfake.New()
	repo := &slowRepo{
		InMemoryRepo: tokenrepo.NewInMemoryRepo(),
		loading:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	reg := workspace.NewRegistry(func(id string) *workspace.Workspace {
		return workspace.New(id, workspace.Deps{API: api, Tokens: repo})
	}, time.Hour)

	id := workspace.NewID()
	access := api.IssueToken("rider@example.com")
	require.NoError(t, repo.Save(ctx, id, backend.NewToken(access, "")))

	first := make(chan *workspace.Workspace, 1)
	go func() {
		ws, _, _ := reg.Open(ctx, id)
		first <- ws
	}()
	<-repo.loading

	second := make(chan *workspace.Workspace, 1)
	go func() {
		ws, _, _ := reg.Open(ctx, id)
		second <- ws
	}()

	select {
	case <-second:
		t.Fatal("Open returned before the token was restored")
	case <-time.After(20 * time.Millisecond):
	}

	close(repo.release)
	ws := <-second
	require.Same(t, <-first, ws)
	require.NotNil(t, ws)
	require.Equal(t, access, ws.Session.AccessToken())
	require.Equal(t, 1, reg.Len())
}

func TestRegistry_EvictKeepsPersistedToken(t *testing.T) {
	ctx := context.Background()
	reg, c, api, tokens := newRegistry(t)

	id := workspace.NewID()
	access := api.IssueToken("rider@example.com")
	require.NoError(t, tokens.Save(ctx, id, backend.NewToken(access, "")))

	ws, _, err := reg.Open(ctx, id)
	require.NoError(t, err)
	require.Equal(t, access, ws.Session.AccessToken())

	other := workspace.NewID()
	c.t = c.t.Add(50 * time.Minute)
	_, _, err = reg.Open(ctx, other)
	require.NoError(t, err)

	c.t = c.t.Add(20 * time.Minute)
	require.Equal(t, 1, reg.Evict())
	_, ok := reg.Get(id)
	require.False(t, ok)
	_, ok = reg.Get(other)
	require.True(t, ok)

	restored, created, err := reg.Open(ctx, id)
	require.NoError(t, err)
	require.True(t, created)
	require.NotSame(t, ws, restored)
	require.Equal(t, access, restored.Session.AccessToken())
}

func TestWorkspace_StoresShareTheSession(t *testing.T) {
	ctx := context.Background()
	reg, _, api, _ := newRegistry(t)
	ws, _, err := reg.Open(ctx, workspace.NewID())
	require.NoError(t, err)

	api.AddUser("rider@example.com", "pw")
	require.NoError(t, ws.Session.Login(ctx, "rider@example.com", "pw"))
	require.NoError(t, ws.Bikes.LoadList(ctx))

	ws.Session.Logout(ctx)
	require.Empty(t, ws.Session.AccessToken())
	require.Error(t, ws.Bikes.LoadList(ctx))
	path, ok := ws.Nav.TakeRedirect()
	require.True(t, ok)
	require.Equal(t, "/login", path)
}
