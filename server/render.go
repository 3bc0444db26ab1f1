package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/jrsteele09/trigpoint-web/backend"
	"github.com/jrsteele09/trigpoint-web/internal/routes"
	"github.com/jrsteele09/trigpoint-web/internal/utils"
	"github.com/jrsteele09/trigpoint-web/pageload"
	"github.com/jrsteele09/trigpoint-web/server/workspace"
	"github.com/jrsteele09/trigpoint-web/session"
	"github.com/jrsteele09/trigpoint-web/store"
	"github.com/rs/zerolog"
)

//go:embed templates/*
var templateFiles embed.FS

const contentTypeHTML = "text/html; charset=utf-8"

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

var templateFuncs = template.FuncMap{
	"bikeAnalyser": routes.BikeAnalyser,
	"shedPath":     routes.Shed,
	"deref":        utils.Value[string],
	"inc":          func(i int) int { return i + 1 },
	"contains":     slices.Contains[[]string],
}

// pageTemplates holds one template set per page, each being the layout
// plus the page's own blocks.
type pageTemplates struct {
	byName map[string]*template.Template
}

func parsePageTemplates() (*pageTemplates, error) {
	fsys := TemplateFilesFS()
	names, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, err
	}
	t := &pageTemplates{byName: make(map[string]*template.Template)}
	for _, name := range names {
		if name == "layout.html" {
			continue
		}
		tmpl, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(fsys, "layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		t.byName[name] = tmpl
	}
	return t, nil
}

// pageData is everything a page template can show. Each field is a
// snapshot taken after the page's hooks or the action finished.
type pageData struct {
	AppName    string
	Title      string
	Path       string
	CSRFField  template.HTML
	Nav        pageload.State
	Session    session.State
	Bikes      store.State[backend.Bike]
	Sheds      store.State[backend.Shed]
	Shed       store.MembershipState
	Picker     []backend.Bike
	Kinematics store.KinematicsState
	Step       *backend.KinematicsStep
	FormError  string
	Form       url.Values
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, p page, status int, formError string) {
	tmpl, ok := s.pages.byName[p.template]
	if !ok {
		zerolog.Ctx(r.Context()).Error().Str("template", p.template).Msg("unknown template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	data := pageData{
		AppName:    s.config.GetAppName(),
		Title:      p.title,
		Path:       r.URL.Path,
		CSRFField:  csrf.TemplateField(r),
		Nav:        ws.Nav.State(),
		Session:    ws.Session.State(),
		Bikes:      ws.Bikes.State(),
		Sheds:      ws.Sheds.State(),
		Shed:       ws.Shed.State(),
		Picker:     ws.Shed.Filtered(),
		Kinematics: ws.Kinematics.State(),
		FormError:  formError,
		Form:       r.PostForm,
	}
	if step, ok := data.Kinematics.Step(); ok {
		data.Step = &step
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		zerolog.Ctx(r.Context()).Err(err).Str("template", p.template).Msg("render page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func isHTMX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}
