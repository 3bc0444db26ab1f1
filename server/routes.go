package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/trigpoint-web/internal/routes"
	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	html := func(h http.HandlerFunc) http.HandlerFunc {
		return ChainMiddleware(h, s.HTMLMiddleWare()...)
	}
	get := func(path string, p page) {
		s.RegisterRouteFunc("GET "+path, html(s.pageHandler(p)))
	}
	post := func(path string, p page, fn actionFunc) {
		s.RegisterRouteFunc("POST "+path, html(s.action(p, fn)))
	}

	// Pages
	get(PageLanding, landingPage)
	get(routes.Login, loginPage)
	get(routes.Register, registerPage)
	get(routes.Forgot, forgotPage)
	get(routes.Reset, resetPage)
	get(routes.VerifyEmail, verifyPage)
	get(routes.Bikes, bikesPage)
	get(routes.BikeNew, bikeNewPage)
	get(PageBikeAnalyser, bikeAnalyserPage)
	get(routes.Sheds, shedsPage)
	get(PageShed, shedPage)

	// Session actions
	post(ActionLogin, loginPage, loginAction)
	post(ActionRegister, registerPage, registerAction)
	post(ActionLogout, loginPage, logoutAction)
	post(ActionForgot, forgotPage, forgotAction)
	post(ActionReset, resetPage, resetAction)
	post(ActionVerify, verifyPage, verifyAction)

	// Resource actions
	post(ActionBikeCreate, bikeNewPage, createBikeAction)
	post(ActionBikeDelete, bikesPage, deleteBikeAction)
	post(ActionBikeStep, bikeAnalyserPage, selectStepAction)
	post(ActionShedCreate, shedsPage, createShedAction)
	post(ActionShedDelete, shedsPage, deleteShedAction)
	post(ActionShedToggle, shedPage, toggleShedBikeAction)
	post(ActionShedFilter, shedPage, filterShedAction)

	s.RegisterRouteFunc("GET "+RouteStaticFile, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.PathValue("file"), "/")
		if name == "" || !s.assets.serve(w, r, name) {
			log.Debug().Str("file", name).Msg("static file not found")
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
		}
	}
}
