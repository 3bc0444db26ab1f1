package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/jrsteele09/trigpoint-web/internal/config"
	"github.com/jrsteele09/trigpoint-web/server/workspace"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env        string
	mux        *http.ServeMux
	handler    http.Handler
	routes     []string
	config     config.Config
	workspaces *workspace.Registry
	pages      *pageTemplates
	assets     *staticAssets
}

func New(cfg config.Config, workspaces *workspace.Registry) (*Server, error) {
	pages, err := parsePageTemplates()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	assets, err := loadStaticAssets()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to load static files: %w", err)
	}

	s := &Server{
		env:        cfg.GetEnv(),
		mux:        http.NewServeMux(),
		config:     cfg,
		workspaces: workspaces,
		pages:      pages,
		assets:     assets,
	}

	s.initRoutes()
	s.logRoutes()

	protect := csrf.Protect(cfg.GetCSRFKey(),
		csrf.Secure(cfg.GetSecureCookies()),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(s.csrfFailure)),
	)
	s.handler = protect(s.mux)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// gorilla/csrf assumes TLS unless told otherwise and then insists on a
	// Referer header.
	if r.TLS == nil && getScheme(r) == "http" {
		r = csrf.PlaintextHTTPRequest(r)
	}
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	}
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) csrfFailure(w http.ResponseWriter, r *http.Request) {
	log.Warn().Err(csrf.FailureReason(r)).Str("path", r.URL.Path).Msg("csrf check failed")
	http.Error(w, "Forbidden - the form has expired, reload the page and try again", http.StatusForbidden)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%s] %s", methodColour(method).Sprintf(" %-7s", method), path)
}

// getScheme reports the scheme the client used, honouring a proxy header.
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
