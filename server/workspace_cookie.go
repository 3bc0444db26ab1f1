package server

import (
	"net/http"

	"github.com/jrsteele09/trigpoint-web/server/workspace"
	"github.com/rs/zerolog"
)

// workspaceCookieName identifies the browser workspace.
const workspaceCookieName = "trigpoint_ws"

const workspaceCookieMaxAge = 30 * 24 * 60 * 60

func (s *Server) setWorkspaceCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     workspaceCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.GetSecureCookies() || getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   workspaceCookieMaxAge,
	})
}

type workspaceHandler func(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace)

// withWorkspace resolves the browser's workspace from its cookie, opening a
// new one when the cookie is missing or unknown.
func (s *Server) withWorkspace(next workspaceHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(workspaceCookieName); err == nil && workspace.ValidID(c.Value) {
			id = c.Value
		}
		fresh := id == ""
		if fresh {
			id = workspace.NewID()
		}

		ws, created, err := s.workspaces.Open(r.Context(), id)
		if err != nil {
			zerolog.Ctx(r.Context()).Err(err).Msg("open workspace")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if fresh || created {
			s.setWorkspaceCookie(w, r, id)
		}
		next(w, r, ws)
	}
}
