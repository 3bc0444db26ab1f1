// Package workspace holds the per-browser state: one session, one page load
// coordinator and the resource stores, all sharing the same navigator.
package workspace

import (
	"context"

	"github.com/jrsteele09/trigpoint-web/pageload"
	"github.com/jrsteele09/trigpoint-web/session"
	"github.com/jrsteele09/trigpoint-web/store"
)

// API is the backend surface a workspace needs.
type API interface {
	session.AuthAPI
	store.BikesAPI
	store.ShedsAPI
	store.KinematicsAPI
}

type Deps struct {
	API          API
	Tokens       session.TokenRepo
	MediaBaseURL string
}

type Workspace struct {
	ID         string
	Nav        *pageload.Coordinator
	Session    *session.Manager
	Bikes      *store.BikeStore
	Sheds      *store.ShedStore
	Shed       *store.Membership
	Kinematics *store.Kinematics
}

// New wires a workspace. The token, if any, is persisted under id.
func New(id string, deps Deps) *Workspace {
	nav := pageload.NewCoordinator()

	var opts []session.Option
	if deps.Tokens != nil {
		opts = append(opts, session.WithTokenRepo(deps.Tokens, id))
	}
	sess := session.NewManager(deps.API, nav, opts...)

	return &Workspace{
		ID:         id,
		Nav:        nav,
		Session:    sess,
		Bikes:      store.NewBikeStore(deps.API, sess, nav, deps.MediaBaseURL),
		Sheds:      store.NewShedStore(deps.API, sess, nav),
		Shed:       store.NewMembership(deps.API, sess, nav, deps.MediaBaseURL),
		Kinematics: store.NewKinematics(deps.API, sess, nav),
	}
}

// Restore picks up a token persisted by an earlier process.
func (w *Workspace) Restore(ctx context.Context) error {
	return w.Session.Restore(ctx)
}
