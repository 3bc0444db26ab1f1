// Package store caches backend resources for the pages that show them and
// applies create, delete and membership changes to the cache once the
// backend confirms them.
package store

import (
	"context"
	"slices"
	"sync"

	"github.com/jrsteele09/trigpoint-web/backend"
	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/internal/observe"
	"github.com/jrsteele09/trigpoint-web/pageload"
)

// Entity is a record keyed by a server-issued identifier.
type Entity interface {
	EntityID() string
}

// Resource is the REST surface of one resource type.
type Resource[T Entity, In any] interface {
	List(ctx context.Context, accessToken string) ([]T, error)
	Get(ctx context.Context, accessToken, id string) (T, error)
	Create(ctx context.Context, accessToken string, in In) (T, error)
	Delete(ctx context.Context, accessToken, id string) error
}

// MediaUploader attaches a media file to an existing resource.
type MediaUploader interface {
	UploadMedia(ctx context.Context, accessToken, id string, media backend.Media) (warning string, err error)
}

// Labels are the user-visible strings of one resource type.
type Labels struct {
	Singular string // "bike"
	Plural   string // "bikes"

	Created            string
	CreatedWithMedia   string
	CreatedWithWarning string // formatted with the upload warning
	MediaFailed        string
	Deleted            string
	// LoadingDetail is the overlay message when navigating to a detail page.
	LoadingDetail string
}

// State is a snapshot of a Store.
type State[T Entity] struct {
	Items   []T
	Current *T
	Loading bool
	Message string
	Phase   CreatePhase
}

// Store is the ResourceStateStore for one resource type.
type Store[T Entity, In any] struct {
	res    Resource[T, In]
	media  MediaUploader
	access access
	labels Labels
	detail func(id string) string
	enrich func(T) T

	createMu sync.Mutex

	mu       sync.Mutex
	items    []T
	current  *T
	detailID string
	inflight int
	message  string
	phase    CreatePhase

	hub observe.Hub[State[T]]
}

// Config wires a Store. Media and Enrich are optional.
type Config[T Entity, In any] struct {
	Resource    Resource[T, In]
	Media       MediaUploader
	Credentials Credentials
	Navigator   pageload.Navigator
	Labels      Labels
	DetailRoute func(id string) string
	Enrich      func(T) T
}

func New[T Entity, In any](cfg Config[T, In]) *Store[T, In] {
	enrich := cfg.Enrich
	if enrich == nil {
		enrich = func(v T) T { return v }
	}
	return &Store[T, In]{
		res:    cfg.Resource,
		media:  cfg.Media,
		access: access{creds: cfg.Credentials, nav: cfg.Navigator},
		labels: cfg.Labels,
		detail: cfg.DetailRoute,
		enrich: enrich,
	}
}

func (s *Store[T, In]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store[T, In]) Subscribe(fn func(State[T])) (cancel func()) {
	return s.hub.Subscribe(fn)
}

func (s *Store[T, In]) snapshot() State[T] {
	st := State[T]{
		Items:   slices.Clone(s.items),
		Loading: s.inflight > 0,
		Message: s.message,
		Phase:   s.phase,
	}
	if s.current != nil {
		c := *s.current
		st.Current = &c
	}
	return st
}

func (s *Store[T, In]) update(fn func()) {
	s.mu.Lock()
	fn()
	st := s.snapshot()
	s.mu.Unlock()
	s.hub.Publish(st)
}

// begin marks an action in flight and clears the message. Loading stays set
// until every in-flight action has called its done.
func (s *Store[T, In]) begin() (done func()) {
	s.update(func() {
		s.inflight++
		s.message = ""
	})
	var once sync.Once
	return func() {
		once.Do(func() {
			s.update(func() { s.inflight-- })
		})
	}
}

func (s *Store[T, In]) setMessage(msg string) {
	s.update(func() { s.message = msg })
}

// LoadList fetches the collection, replacing the cached items.
func (s *Store[T, In]) LoadList(ctx context.Context) error {
	done := s.begin()
	defer done()

	tok, err := s.access.token()
	if err != nil {
		return err
	}

	items, err := s.res.List(ctx, tok)
	if err != nil {
		msg := s.access.failure(ctx, "Load "+s.labels.Plural, err)
		s.update(func() {
			s.items = nil
			s.message = msg
		})
		return err
	}

	for i := range items {
		items[i] = s.enrich(items[i])
	}
	s.update(func() { s.items = items })
	return nil
}

// LoadDetail fetches one item into Current. Failures clear Current and
// leave a message. A response for an id that is no longer the one being
// shown is dropped.
func (s *Store[T, In]) LoadDetail(ctx context.Context, id string) error {
	done := s.begin()
	defer done()
	s.update(func() {
		s.current = nil
		s.detailID = id
	})

	if id == "" {
		msg := "No " + s.labels.Singular + " id in URL."
		s.setMessage(msg)
		return apperrors.Validation(msg)
	}

	tok, err := s.access.token()
	if err != nil {
		return err
	}

	item, err := s.res.Get(ctx, tok, id)
	if err != nil {
		msg := s.access.failure(ctx, "Load "+s.labels.Singular, err)
		s.update(func() {
			if s.detailID == id {
				s.message = msg
			}
		})
		return err
	}

	item = s.enrich(item)
	s.update(func() {
		// A later LoadDetail for another id owns Current and the message now.
		if s.detailID == id {
			s.current = &item
		}
	})
	return nil
}

// Delete removes an item on the backend, and from the cache only once the
// backend confirmed it.
func (s *Store[T, In]) Delete(ctx context.Context, id string) error {
	done := s.begin()
	defer done()

	tok, err := s.access.token()
	if err != nil {
		return err
	}

	if err := s.res.Delete(ctx, tok, id); err != nil {
		s.setMessage(s.access.failure(ctx, "Delete "+s.labels.Singular, err))
		return err
	}

	s.update(func() {
		s.items = slices.DeleteFunc(slices.Clone(s.items), func(v T) bool { return v.EntityID() == id })
		if s.current != nil && (*s.current).EntityID() == id {
			s.current = nil
		}
		s.message = s.labels.Deleted
	})
	return nil
}

// View returns the cached items matching keep, in order.
func (s *Store[T, In]) View(keep func(T) bool) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(s.items))
	for _, v := range s.items {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// ListHook loads the collection as a page hook.
func (s *Store[T, In]) ListHook() pageload.Hook {
	return func(ctx context.Context, _ pageload.Params) error {
		return s.LoadList(ctx)
	}
}

// DetailHook loads the item named by the route parameter param.
func (s *Store[T, In]) DetailHook(param string) pageload.Hook {
	return func(ctx context.Context, p pageload.Params) error {
		return s.LoadDetail(ctx, p.Get(param))
	}
}
