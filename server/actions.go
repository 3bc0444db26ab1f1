package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/jrsteele09/trigpoint-web/backend"
	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/server/workspace"
	"github.com/jrsteele09/trigpoint-web/store"
	"github.com/rs/zerolog"
)

const (
	maxRequestBytes = store.MaxHeroBytes + 1<<20

	msgHeroTooLarge = "Image too large (max 5MB)."
	msgBusy         = "Still working on your last request."
)

// formError is a problem with the submitted form found before any backend
// call. It is shown next to the form rather than in a holder's message.
type formError struct {
	msg string
}

func (e formError) Error() string { return e.msg }

func invalid(err error) error {
	return formError{msg: apperrors.StatusMessage("Form", err)}
}

type actionFunc func(ctx context.Context, r *http.Request, ws *workspace.Workspace) error

// action runs fn for a form POST. A redirect left pending by fn is followed;
// otherwise p is rendered from the state fn left behind, without re-running
// the page's hooks.
func (s *Server) action(p page, fn actionFunc) http.HandlerFunc {
	return s.withWorkspace(func(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
		err := fn(r.Context(), r, ws)
		if path, ok := ws.Nav.TakeRedirect(); ok {
			s.redirect(w, r, ws, path)
			return
		}

		var fe formError
		switch {
		case err == nil:
			s.render(w, r, ws, p, http.StatusOK, "")
		case errors.As(err, &fe):
			s.render(w, r, ws, p, http.StatusOK, fe.msg)
		case errors.Is(err, apperrors.ErrBusy):
			s.render(w, r, ws, p, http.StatusConflict, msgBusy)
		default:
			zerolog.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("action failed")
			s.render(w, r, ws, p, http.StatusOK, "")
		}
	})
}

func loginAction(ctx context.Context, r *http.Request, ws *workspace.Workspace) error {
	return ws.Session.Login(ctx, r.FormValue("email"), r.FormValue("password"))
}

func registerAction(ctx context.Context, r *http.Request, ws *workspace.Workspace) error {
	return ws.Session.Register(ctx, r.FormValue("email"), r.FormValue("password"), r.FormValue("confirm_password"))
}

func logoutAction(ctx context.Context, _ *http.Request, ws *workspace.Workspace) error {
	ws.Session.Logout(ctx)
	return nil
}

func forgotAction(ctx context.Context, r *http.Request, ws *workspace.Workspace) error {
	return ws.Session.ForgotPassword(ctx, r.FormValue("email"))
}

func resetAction(ctx context.Context, r *http.Request, ws *workspace.Workspace) error {
	return ws.Session.ResetPassword(ctx, r.FormValue("token"), r.FormValue("password"), r.FormValue("confirm_password"))
}

func verifyAction(ctx context.Context, r *http.Request, ws *workspace.Workspace) error {
	return ws.Session.VerifyEmail(ctx, r.FormValue("token"))
}

func createBikeAction(ctx context.Context, r *http.Request, ws *workspace.Workspace) error {
	hero, err := heroUpload(r)
	if err != nil {
		return err
	}
	in, err := store.ParseBikeForm(r.FormValue("name"), r.FormValue("brand"), r.FormValue("model_year"))
	if err != nil {
		return invalid(err)
	}
	_, err = ws.Bikes.Create(ctx, in, hero)
	return err
}

// heroUpload reads the optional "hero" file of the new-bike form.
func heroUpload(r *http.Request) (*backend.Media, error) {
	file, header, err := r.FormFile("hero")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, formError{msg: "Could not read the uploaded image."}
	}
	defer file.Close()

	if header.Size > store.MaxHeroBytes {
		return nil, formError{msg: msgHeroTooLarge}
	}
	data, err := io.ReadAll(io.LimitReader(file, store.MaxHeroBytes+1))
	if err != nil {
		return nil, formError{msg: "Could not read the uploaded image."}
	}
	if len(data) > store.MaxHeroBytes {
		return nil, formError{msg: msgHeroTooLarge}
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &backend.Media{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func deleteBikeAction(ctx context.Context, r *http.Request, ws *workspace.Workspace) error {
	return ws.Bikes.Delete(ctx, r.PathValue(paramBikeID))
}

func selectStepAction(_ context.Context, r *http.Request, ws *workspace.Workspace) error {
	step, err := strconv.Atoi(r.FormValue("step"))
	if err != nil {
		return formError{msg: "Step must be a number."}
	}
	ws.Kinematics.SelectStep(step)
	return nil
}

func createShedAction(ctx context.Context, r *http.Request, ws *workspace.Workspace) error {
	in, err := store.NormalizeShedInput(r.FormValue("name"), r.FormValue("description"), r.FormValue("visibility"))
	if err != nil {
		return invalid(err)
	}
	_, err = ws.Sheds.Create(ctx, in, nil)
	return err
}

func deleteShedAction(ctx context.Context, r *http.Request, ws *workspace.Workspace) error {
	id := r.PathValue(paramShedID)
	if err := ws.Sheds.Delete(ctx, id); err != nil {
		return err
	}
	if ws.Shed.State().ShedID == id {
		ws.Shed.Clear()
	}
	return nil
}

func toggleShedBikeAction(ctx context.Context, r *http.Request, ws *workspace.Workspace) error {
	return ws.Shed.Toggle(ctx, r.PathValue(paramShedID), r.PathValue(paramBikeID))
}

func filterShedAction(_ context.Context, r *http.Request, ws *workspace.Workspace) error {
	ws.Shed.SetFilter(store.BikeFilter{
		Brand: r.FormValue("brand"),
		Model: r.FormValue("model"),
		Year:  r.FormValue("year"),
		Text:  r.FormValue("text"),
	})
	if r.FormValue("toggle_open") != "" {
		ws.Shed.ToggleFilterOpen()
	}
	return nil
}
