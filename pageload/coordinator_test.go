package pageload_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/trigpoint-web/pageload"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_InitialState(t *testing.T) {
	c := pageload.NewCoordinator()
	require.Equal(t, pageload.State{Loading: false, Message: "Loading..."}, c.State())

	_, ok := c.TakeRedirect()
	require.False(t, ok)
}

func TestCoordinator_NavigateWithLoader(t *testing.T) {
	c := pageload.NewCoordinator()

	var seen []pageload.State
	cancel := c.Subscribe(func(s pageload.State) { seen = append(seen, s) })
	defer cancel()

	c.NavigateWithLoader("/login", "Logging you out…")
	require.Equal(t, pageload.State{Loading: true, Message: "Logging you out…"}, c.State())

	path, ok := c.TakeRedirect()
	require.True(t, ok)
	require.Equal(t, "/login", path)

	_, ok = c.TakeRedirect()
	require.False(t, ok)

	c.SignalReady()
	require.False(t, c.State().Loading)
	require.Equal(t, []pageload.State{
		{Loading: true, Message: "Logging you out…"},
		{Loading: false, Message: "Logging you out…"},
	}, seen)
}

func TestCoordinator_Begin(t *testing.T) {
	t.Run("release clears and is idempotent", func(t *testing.T) {
		c := pageload.NewCoordinator()
		release := c.Begin("Signing you in…")
		require.Equal(t, pageload.State{Loading: true, Message: "Signing you in…"}, c.State())

		release()
		release()
		require.False(t, c.State().Loading)
	})

	t.Run("navigation inside keeps the overlay", func(t *testing.T) {
		c := pageload.NewCoordinator()
		release := c.Begin("Signing you in…")
		c.NavigateWithLoader("/", "Loading bikes...")
		release()

		require.Equal(t, pageload.State{Loading: true, Message: "Loading bikes..."}, c.State())
	})

	t.Run("plain redirect inside is released", func(t *testing.T) {
		c := pageload.NewCoordinator()
		release := c.Begin("Signing you in…")
		c.Redirect("/")
		release()

		require.False(t, c.State().Loading)
		path, ok := c.TakeRedirect()
		require.True(t, ok)
		require.Equal(t, "/", path)
	})
}

func TestCoordinator_Run(t *testing.T) {
	t.Run("hooks run in order and end ready", func(t *testing.T) {
		c := pageload.NewCoordinator()
		var order []string
		var loadingDuring []bool
		hook := func(name string) pageload.Hook {
			return func(ctx context.Context, p pageload.Params) error {
				order = append(order, name+":"+p.Get("bike_id"))
				loadingDuring = append(loadingDuring, c.State().Loading)
				return nil
			}
		}

		redirect := c.Run(context.Background(), []pageload.Hook{hook("guard"), hook("detail"), hook("kinematics")},
			pageload.Params{"bike_id": "b1"})

		require.Empty(t, redirect)
		require.Equal(t, []string{"guard:b1", "detail:b1", "kinematics:b1"}, order)
		require.Equal(t, []bool{true, true, true}, loadingDuring)
		require.False(t, c.State().Loading)
	})

	t.Run("redirect short-circuits", func(t *testing.T) {
		c := pageload.NewCoordinator()
		fetched := false
		guard := func(ctx context.Context, p pageload.Params) error {
			c.Redirect("/login")
			return errors.New("not authenticated")
		}
		fetch := func(ctx context.Context, p pageload.Params) error {
			fetched = true
			return nil
		}

		redirect := c.Run(context.Background(), []pageload.Hook{guard, fetch}, nil)
		require.Equal(t, "/login", redirect)
		require.False(t, fetched)
		require.False(t, c.State().Loading)

		_, ok := c.TakeRedirect()
		require.False(t, ok)
	})

	t.Run("hook error does not stop the chain", func(t *testing.T) {
		c := pageload.NewCoordinator()
		ran := 0
		failing := func(ctx context.Context, p pageload.Params) error {
			ran++
			return errors.New("boom")
		}
		redirect := c.Run(context.Background(), []pageload.Hook{failing, failing}, nil)
		require.Empty(t, redirect)
		require.Equal(t, 2, ran)
		require.False(t, c.State().Loading)
	})

	t.Run("no hooks stays ready", func(t *testing.T) {
		c := pageload.NewCoordinator()
		var seen []pageload.State
		c.Subscribe(func(s pageload.State) { seen = append(seen, s) })

		require.Empty(t, pageload.Page{Route: "/register"}.Load(context.Background(), c, nil))
		require.False(t, c.State().Loading)
		require.Empty(t, seen)
	})

	t.Run("clears navigation overlay", func(t *testing.T) {
		c := pageload.NewCoordinator()
		c.NavigateWithLoader("/bikes", "Loading bikes...")

		c.Run(context.Background(), []pageload.Hook{pageload.Ready}, nil)
		require.False(t, c.State().Loading)
		_, ok := c.TakeRedirect()
		require.False(t, ok)
	})

	t.Run("cancelled context stops", func(t *testing.T) {
		c := pageload.NewCoordinator()
		ctx, cancel := context.WithCancel(context.Background())
		ran := 0
		hook := func(context.Context, pageload.Params) error {
			ran++
			cancel()
			return nil
		}
		c.Run(ctx, []pageload.Hook{hook, hook}, nil)
		require.Equal(t, 1, ran)
		require.False(t, c.State().Loading)
	})
}
