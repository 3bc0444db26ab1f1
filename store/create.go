package store

import (
	"context"
	"fmt"

	"github.com/jrsteele09/trigpoint-web/backend"
	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/internal/routes"
)

// CreatePhase is the state of the create-with-media protocol.
//
//	Idle -> Creating -> Created | CreateFailed
//	Created -> UploadingMedia -> Done | MediaFailed
//	Created -> Done (no media)
type CreatePhase int

const (
	Idle CreatePhase = iota
	Creating
	Created
	CreateFailed
	UploadingMedia
	Done
	MediaFailed
)

func (p CreatePhase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Creating:
		return "creating"
	case Created:
		return "created"
	case CreateFailed:
		return "create-failed"
	case UploadingMedia:
		return "uploading-media"
	case Done:
		return "done"
	case MediaFailed:
		return "media-failed"
	}
	return fmt.Sprintf("CreatePhase(%d)", int(p))
}

// Terminal reports whether no further transition happens without a new Create.
func (p CreatePhase) Terminal() bool {
	return p == CreateFailed || p == Done || p == MediaFailed
}

func (s *Store[T, In]) setPhase(p CreatePhase) {
	s.update(func() { s.phase = p })
}

// ResetCreate returns the protocol to Idle, e.g. when the create form opens.
func (s *Store[T, In]) ResetCreate() {
	s.update(func() {
		s.phase = Idle
		s.message = ""
	})
}

// Create creates a resource and, when media is given and the store has an
// uploader, attaches it in a second call. The two steps are not atomic: a
// failed upload leaves the resource in place, returns its id together with a
// PartialSuccessError and still navigates to the detail page. The new item is
// appended to the cache; nothing is re-fetched. A Create while another is in
// flight on the same store returns ErrBusy.
func (s *Store[T, In]) Create(ctx context.Context, in In, media *backend.Media) (string, error) {
	if !s.createMu.TryLock() {
		return "", apperrors.ErrBusy
	}
	defer s.createMu.Unlock()

	done := s.begin()
	defer done()
	s.setPhase(Creating)

	tok, err := s.access.token()
	if err != nil {
		msg := apperrors.StatusMessage("Add "+s.labels.Singular, err)
		s.update(func() {
			s.phase = CreateFailed
			s.message = msg
		})
		return "", err
	}

	item, err := s.res.Create(ctx, tok, in)
	if err != nil {
		msg := s.access.failure(ctx, "Add "+s.labels.Singular, err)
		s.update(func() {
			s.phase = CreateFailed
			s.message = msg
		})
		return "", err
	}

	id := item.EntityID()
	if id == "" {
		s.update(func() {
			s.phase = CreateFailed
			s.message = capitalise(s.labels.Singular) + " created but response had no id."
		})
		return "", apperrors.Wrapf(apperrors.ErrMalformedResponse, "create %s", s.labels.Singular)
	}

	item = s.enrich(item)
	s.update(func() {
		s.items = append(s.items, item)
		s.phase = Created
	})

	msg := s.labels.Created
	var result error
	if media != nil && s.media != nil {
		s.setPhase(UploadingMedia)
		warning, err := s.media.UploadMedia(ctx, tok, id, *media)
		switch {
		case err != nil:
			msg = s.mediaFailedMessage(err)
			result = &apperrors.PartialSuccessError{ID: id, Step: "media upload", Cause: err}
		case warning != "":
			msg = fmt.Sprintf(s.labels.CreatedWithWarning, warning)
		default:
			msg = s.labels.CreatedWithMedia
		}
	}

	final := Done
	if result != nil {
		final = MediaFailed
	}
	s.update(func() {
		s.phase = final
		s.message = msg
	})

	if result != nil && apperrors.IsUnauthorized(result) {
		s.access.creds.Invalidate(ctx)
		s.access.nav.Redirect(routes.Login)
		return id, result
	}
	s.access.nav.NavigateWithLoader(s.detail(id), s.labels.LoadingDetail)
	return id, result
}

func (s *Store[T, In]) mediaFailedMessage(err error) string {
	if status := apperrors.Status(err); status > 0 {
		return fmt.Sprintf("%s (status %d).", s.labels.MediaFailed, status)
	}
	return s.labels.MediaFailed + ": " + apperrors.StatusMessage("Upload", err)
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
