package store

import (
	"context"
	"slices"
	"sync"

	"github.com/jrsteele09/trigpoint-web/backend"
	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/internal/observe"
	"github.com/jrsteele09/trigpoint-web/pageload"
	"golang.org/x/sync/errgroup"
)

// MembershipAPI is what the shed detail page reads and writes.
type MembershipAPI interface {
	GetShed(ctx context.Context, accessToken, shedID string) (backend.Shed, error)
	ListShedBikes(ctx context.Context, accessToken, shedID string) ([]backend.Bike, error)
	ListBikes(ctx context.Context, accessToken string) ([]backend.Bike, error)
	AddBikeToShed(ctx context.Context, accessToken, shedID, bikeID string) error
	RemoveBikeFromShed(ctx context.Context, accessToken, shedID, bikeID string) error
}

// MembershipState is a snapshot of the shed detail page.
type MembershipState struct {
	ShedID          string
	Shed            *backend.Shed
	ShedBikes       []backend.Bike
	Available       []backend.Bike
	SelectedBikeIDs []string
	Filter          BikeFilter
	FilterOpen      bool
	Loading         bool
	Message         string
}

// Membership holds one shed, its bikes and the picker used to add or remove
// bikes.
type Membership struct {
	api    MembershipAPI
	access access
	enrich func(backend.Bike) backend.Bike

	toggleMu sync.Mutex

	mu       sync.Mutex
	gen      uint64
	state    MembershipState
	inflight int

	hub observe.Hub[MembershipState]
}

func NewMembership(api MembershipAPI, creds Credentials, nav pageload.Navigator, mediaBaseURL string) *Membership {
	return &Membership{
		api:    api,
		access: access{creds: creds, nav: nav},
		enrich: EnrichBike(mediaBaseURL),
	}
}

func (m *Membership) State() MembershipState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Membership) Subscribe(fn func(MembershipState)) (cancel func()) {
	return m.hub.Subscribe(fn)
}

func (m *Membership) snapshot() MembershipState {
	s := m.state
	s.ShedBikes = slices.Clone(s.ShedBikes)
	s.Available = slices.Clone(s.Available)
	s.SelectedBikeIDs = slices.Clone(s.SelectedBikeIDs)
	if s.Shed != nil {
		shed := *s.Shed
		s.Shed = &shed
	}
	s.Loading = m.inflight > 0
	return s
}

func (m *Membership) update(fn func()) {
	m.mu.Lock()
	fn()
	s := m.snapshot()
	m.mu.Unlock()
	m.hub.Publish(s)
}

func (m *Membership) begin() (done func()) {
	m.update(func() {
		m.inflight++
		m.state.Message = ""
	})
	return func() { m.update(func() { m.inflight-- }) }
}

// apply runs fn only if no newer Load started since gen. A late response for
// a shed the user already left is dropped.
func (m *Membership) apply(gen uint64, fn func()) {
	m.update(func() {
		if m.gen == gen {
			fn()
		}
	})
}

// Load fetches the shed, then its bikes and all of the user's bikes
// concurrently. The selection starts as the shed's current bikes.
func (m *Membership) Load(ctx context.Context, shedID string) error {
	done := m.begin()
	defer done()

	var gen uint64
	m.update(func() {
		m.gen++
		gen = m.gen
		filter, open := m.state.Filter, m.state.FilterOpen
		m.state = MembershipState{ShedID: shedID, Filter: filter, FilterOpen: open}
	})

	if shedID == "" {
		const msg = "No shed id in URL."
		m.apply(gen, func() { m.state.Message = msg })
		return apperrors.Validation(msg)
	}

	tok, err := m.access.token()
	if err != nil {
		return err
	}

	shed, err := m.api.GetShed(ctx, tok, shedID)
	if err != nil {
		msg := m.access.failure(ctx, "Load shed", err)
		m.apply(gen, func() { m.state.Message = msg })
		return err
	}
	m.apply(gen, func() { m.state.Shed = &shed })

	var (
		shedBikes, allBikes []backend.Bike
		shedErr, allErr     error
		g                   errgroup.Group
	)
	g.Go(func() error {
		shedBikes, shedErr = m.api.ListShedBikes(ctx, tok, shedID)
		return shedErr
	})
	g.Go(func() error {
		allBikes, allErr = m.api.ListBikes(ctx, tok)
		return allErr
	})
	_ = g.Wait()

	var msg string
	if shedErr != nil {
		msg = m.access.failure(ctx, "Load shed bikes", shedErr)
		shedBikes = nil
	}
	if allErr != nil {
		msg = m.access.failure(ctx, "Load bikes list", allErr)
		allBikes = nil
	}
	for i := range shedBikes {
		shedBikes[i] = m.enrich(shedBikes[i])
	}
	for i := range allBikes {
		allBikes[i] = m.enrich(allBikes[i])
	}

	m.apply(gen, func() {
		m.state.ShedBikes = shedBikes
		m.state.Available = allBikes
		m.state.SelectedBikeIDs = bikeIDs(shedBikes)
		m.state.Message = msg
	})
	if shedErr != nil {
		return shedErr
	}
	return allErr
}

// Hook loads the shed named by the route parameter param.
func (m *Membership) Hook(param string) pageload.Hook {
	return func(ctx context.Context, p pageload.Params) error {
		return m.Load(ctx, p.Get(param))
	}
}

// Toggle adds bikeID to the shed when it is not selected and removes it when
// it is. Local state changes only after the backend confirmed; on failure
// the selection and the shed's bikes are exactly as before. An empty shedID
// means the loaded shed.
func (m *Membership) Toggle(ctx context.Context, shedID, bikeID string) error {
	if !m.toggleMu.TryLock() {
		return apperrors.ErrBusy
	}
	defer m.toggleMu.Unlock()

	done := m.begin()
	defer done()

	m.mu.Lock()
	if shedID == "" {
		shedID = m.state.ShedID
	}
	gen := m.gen
	member := slices.Contains(m.state.SelectedBikeIDs, bikeID)
	m.mu.Unlock()

	if shedID == "" {
		const msg = "No shed id in URL."
		m.update(func() { m.state.Message = msg })
		return apperrors.Validation(msg)
	}

	tok, err := m.access.token()
	if err != nil {
		return err
	}

	if member {
		err = m.api.RemoveBikeFromShed(ctx, tok, shedID, bikeID)
	} else {
		err = m.api.AddBikeToShed(ctx, tok, shedID, bikeID)
	}
	if err != nil {
		msg := m.access.failure(ctx, "Update shed", err)
		m.apply(gen, func() { m.state.Message = msg })
		return err
	}

	m.apply(gen, func() {
		if member {
			m.state.SelectedBikeIDs = slices.DeleteFunc(slices.Clone(m.state.SelectedBikeIDs),
				func(id string) bool { return id == bikeID })
			m.state.ShedBikes = slices.DeleteFunc(slices.Clone(m.state.ShedBikes),
				func(b backend.Bike) bool { return b.ID == bikeID })
			return
		}
		m.state.SelectedBikeIDs = append(slices.Clone(m.state.SelectedBikeIDs), bikeID)
		if i := slices.IndexFunc(m.state.Available, func(b backend.Bike) bool { return b.ID == bikeID }); i >= 0 {
			m.state.ShedBikes = append(slices.Clone(m.state.ShedBikes), m.state.Available[i])
		}
	})
	return nil
}

func (m *Membership) SetFilter(f BikeFilter) {
	m.update(func() { m.state.Filter = f })
}

func (m *Membership) ToggleFilterOpen() {
	m.update(func() { m.state.FilterOpen = !m.state.FilterOpen })
}

// Filtered is the picker table: the available bikes narrowed by the filter.
func (m *Membership) Filtered() []backend.Bike {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FilterBikes(m.state.Available, m.state.Filter)
}

// Selected reports whether bikeID is currently in the shed.
func (m *Membership) Selected(bikeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.state.SelectedBikeIDs, bikeID)
}

// Clear drops the loaded shed, e.g. after it was deleted.
func (m *Membership) Clear() {
	m.update(func() {
		m.gen++
		m.state = MembershipState{Filter: m.state.Filter}
	})
}

func bikeIDs(bikes []backend.Bike) []string {
	ids := make([]string, 0, len(bikes))
	for _, b := range bikes {
		ids = append(ids, b.ID)
	}
	return ids
}
