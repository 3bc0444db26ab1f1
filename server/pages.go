package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/trigpoint-web/pageload"
	"github.com/jrsteele09/trigpoint-web/server/workspace"
)

// page is a route's template and the hooks that run, in order, before it
// renders. A hook that leaves a redirect pending stops the page.
type page struct {
	template string
	title    string
	params   []string
	hooks    func(ws *workspace.Workspace) []pageload.Hook
}

func noHooks(*workspace.Workspace) []pageload.Hook { return nil }

var (
	landingPage = page{template: "landing.html", title: "Home", hooks: func(ws *workspace.Workspace) []pageload.Hook {
		return []pageload.Hook{ws.Session.Guard(), pageload.Ready}
	}}
	loginPage = page{template: "login.html", title: "Log in", hooks: func(ws *workspace.Workspace) []pageload.Hook {
		return []pageload.Hook{pageload.Ready, func(context.Context, pageload.Params) error {
			ws.Session.ResetForm()
			return nil
		}}
	}}
	registerPage = page{template: "register.html", title: "Register", hooks: noHooks}
	forgotPage   = page{template: "forgot.html", title: "Forgot password", hooks: noHooks}
	resetPage    = page{template: "reset.html", title: "Reset password", hooks: func(ws *workspace.Workspace) []pageload.Hook {
		return []pageload.Hook{ws.Session.LoadResetToken}
	}}
	verifyPage = page{template: "verify.html", title: "Verify email", hooks: func(ws *workspace.Workspace) []pageload.Hook {
		return []pageload.Hook{ws.Session.LoadVerifyToken}
	}}
	bikesPage = page{template: "bikes.html", title: "Bikes", hooks: func(ws *workspace.Workspace) []pageload.Hook {
		return []pageload.Hook{ws.Session.Guard(), ws.Bikes.ListHook(), pageload.Ready}
	}}
	bikeNewPage = page{template: "bike_new.html", title: "Add bike", hooks: func(ws *workspace.Workspace) []pageload.Hook {
		return []pageload.Hook{ws.Session.Guard(), func(context.Context, pageload.Params) error {
			ws.Bikes.ResetCreate()
			return nil
		}}
	}}
	bikeAnalyserPage = page{template: "bike_analyser.html", title: "Bike analyser", params: []string{paramBikeID},
		hooks: func(ws *workspace.Workspace) []pageload.Hook {
			return []pageload.Hook{
				ws.Session.Guard(),
				ws.Bikes.DetailHook(paramBikeID),
				ws.Kinematics.Hook(paramBikeID),
				pageload.Ready,
			}
		}}
	shedsPage = page{template: "sheds.html", title: "Sheds", hooks: func(ws *workspace.Workspace) []pageload.Hook {
		return []pageload.Hook{ws.Session.Guard(), ws.Sheds.ListHook(), pageload.Ready}
	}}
	shedPage = page{template: "shed.html", title: "Shed", params: []string{paramShedID},
		hooks: func(ws *workspace.Workspace) []pageload.Hook {
			return []pageload.Hook{ws.Session.Guard(), ws.Shed.Hook(paramShedID), pageload.Ready}
		}}
)

// pageParams collects the query string and the route's path values, the
// latter taking precedence.
func pageParams(r *http.Request, names []string) pageload.Params {
	params := pageload.Params{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	for _, name := range names {
		if v := r.PathValue(name); v != "" {
			params[name] = v
		}
	}
	return params
}

// pageHandler runs the page's hooks and then renders it, or follows the
// redirect a hook asked for.
func (s *Server) pageHandler(p page) http.HandlerFunc {
	return s.withWorkspace(func(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
		load := pageload.Page{Route: r.URL.Path, Title: p.title, Hooks: p.hooks(ws)}
		if redirect := load.Load(r.Context(), ws.Nav, pageParams(r, p.params)); redirect != "" {
			s.redirect(w, r, ws, redirect)
			return
		}
		s.render(w, r, ws, p, http.StatusOK, "")
	})
}

// redirect sends the browser to path. htmx requests get HX-Redirect; a
// navigation that raised the loading overlay also triggers pageLoading so
// the client can show it while the next page loads.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, path string) {
	if st := ws.Nav.State(); st.Loading {
		if trigger, err := json.Marshal(map[string]string{"pageLoading": st.Message}); err == nil {
			w.Header().Set("HX-Trigger", string(trigger))
		}
	}
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}
