package store

import (
	"context"
	"slices"
	"sync"

	"github.com/jrsteele09/trigpoint-web/backend"
	"github.com/jrsteele09/trigpoint-web/internal/observe"
	"github.com/jrsteele09/trigpoint-web/pageload"
)

// KinematicsAPI runs the backend suspension solver.
type KinematicsAPI interface {
	Kinematics(ctx context.Context, accessToken, bikeID string) (*backend.Kinematics, error)
}

// KinematicsState is the solver result for the bike on the analyser page.
type KinematicsState struct {
	BikeID          string
	Steps           []backend.KinematicsStep
	RearAxlePointID string
	HasResult       bool
	SelectedStep    int
	Loading         bool
	Error           string
}

// Step returns the selected step, if there is one.
func (s KinematicsState) Step() (backend.KinematicsStep, bool) {
	if s.SelectedStep < 0 || s.SelectedStep >= len(s.Steps) {
		return backend.KinematicsStep{}, false
	}
	return s.Steps[s.SelectedStep], true
}

type Kinematics struct {
	api    KinematicsAPI
	access access

	mu       sync.Mutex
	state    KinematicsState
	inflight int

	hub observe.Hub[KinematicsState]
}

func NewKinematics(api KinematicsAPI, creds Credentials, nav pageload.Navigator) *Kinematics {
	return &Kinematics{api: api, access: access{creds: creds, nav: nav}}
}

func (k *Kinematics) State() KinematicsState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.snapshot()
}

func (k *Kinematics) Subscribe(fn func(KinematicsState)) (cancel func()) {
	return k.hub.Subscribe(fn)
}

func (k *Kinematics) snapshot() KinematicsState {
	s := k.state
	s.Steps = slices.Clone(s.Steps)
	s.Loading = k.inflight > 0
	return s
}

func (k *Kinematics) update(fn func()) {
	k.mu.Lock()
	fn()
	s := k.snapshot()
	k.mu.Unlock()
	k.hub.Publish(s)
}

// Load solves bikeID. An empty id is a no-op.
func (k *Kinematics) Load(ctx context.Context, bikeID string) error {
	if bikeID == "" {
		return nil
	}
	k.update(func() {
		k.inflight++
		k.state = KinematicsState{BikeID: bikeID}
	})
	defer k.update(func() { k.inflight-- })

	tok, err := k.access.token()
	if err != nil {
		return err
	}

	res, err := k.api.Kinematics(ctx, tok, bikeID)
	if err != nil {
		msg := k.access.failure(ctx, "Kinematics", err)
		k.update(func() {
			if k.state.BikeID == bikeID {
				k.state.Error = msg
			}
		})
		return err
	}

	k.update(func() {
		if k.state.BikeID != bikeID {
			return
		}
		k.state.Steps = res.Steps
		if res.RearAxlePointID != nil {
			k.state.RearAxlePointID = *res.RearAxlePointID
		}
		k.state.HasResult = len(res.Steps) > 0
	})
	return nil
}

// Hook solves the bike named by the route parameter param.
func (k *Kinematics) Hook(param string) pageload.Hook {
	return func(ctx context.Context, p pageload.Params) error {
		return k.Load(ctx, p.Get(param))
	}
}

// SelectStep moves the step slider, clamped to the available steps.
func (k *Kinematics) SelectStep(i int) {
	k.update(func() {
		switch n := len(k.state.Steps); {
		case n == 0 || i < 0:
			i = 0
		case i >= n:
			i = n - 1
		}
		k.state.SelectedStep = i
	})
}
