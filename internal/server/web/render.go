package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/dmitrijs2005/yelpcamp/internal/server/flash"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
	"github.com/dmitrijs2005/yelpcamp/internal/server/session"
	"github.com/gorilla/csrf"
)

//go:embed templates
var templateFS embed.FS

const csrfField = "_csrf"

// View is the data every page template receives.
type View struct {
	Title       string
	CurrentUser *models.User
	Flash       flash.Messages
	CSRFField   template.HTML
	MapboxToken string
	Data        any
}

// ErrorPage is the Data of the error view.
type ErrorPage struct {
	Status  int
	Message string
}

type Renderer interface {
	Render(w http.ResponseWriter, status int, page string, v View) error
}

// TemplateRenderer renders pages named by their path under templates/
// without the extension, e.g. "campgrounds/show", inside the shared layout.
type TemplateRenderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"stars": func(n int) string {
		if n < 0 {
			n = 0
		}
		return strings.Repeat("★", n) + strings.Repeat("☆", max(5-n, 0))
	},
	"owns": func(u *models.User, ownerID string) bool {
		return u != nil && u.ID == ownerID
	},
	"price": func(p float64) string {
		return fmt.Sprintf("$%.2f", p)
	},
}

func NewTemplateRenderer() (*TemplateRenderer, error) {
	return newTemplateRenderer(templateFS)
}

func newTemplateRenderer(fsys fs.FS) (*TemplateRenderer, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(fsys, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	pages := map[string]*template.Template{}
	err = fs.WalkDir(fsys, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, "templates/"), ".html")
		if name == "layout" || strings.HasPrefix(name, "partials/") {
			return nil
		}

		t, err := base.Clone()
		if err != nil {
			return err
		}
		if _, err := t.ParseFS(fsys, p); err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}
		pages[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &TemplateRenderer{pages: pages}, nil
}

// Render executes the page into a buffer first so that a template error
// never leaves a half-written response.
func (t *TemplateRenderer) Render(w http.ResponseWriter, status int, page string, v View) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", v); err != nil {
		return fmt.Errorf("rendering %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (s *Server) view(r *http.Request, title string, data any) View {
	v := View{
		Title:       title,
		CurrentUser: session.CurrentUser(r.Context()),
		Flash:       flash.FromContext(r.Context()),
		MapboxToken: s.opts.MapboxToken,
		Data:        data,
	}
	if s.opts.CSRFEnabled {
		v.CSRFField = csrf.TemplateField(r)
	}
	return v
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, page, title string, data any) {
	if err := s.renderer.Render(w, http.StatusOK, page, s.view(r, title, data)); err != nil {
		s.fail(w, r, err)
	}
}
