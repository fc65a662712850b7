package view

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/inkwell-blog/inkwell/internal/i18n"
	"github.com/inkwell-blog/inkwell/internal/shared"
	"github.com/inkwell-blog/inkwell/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Locale      string
	Locales     []string
	Viewer      string
	IsAdmin     bool
	Data        any
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006")
		},
		"formatTime": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return "never"
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"join": strings.Join,
		"add":  func(a, b int) int { return a + b },
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// RenderStatus is Render with an explicit status code.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return e.templates.ExecuteTemplate(w, name, data)
}

// Base fills the fields every page shares from the request's session and locale. The
// flash message is consumed.
func Base(r *http.Request, csrf *shared.CSRFManager, title string) TemplateData {
	data := TemplateData{Title: title, CurrentPath: r.URL.Path, Locale: i18n.FromContext(r.Context())}
	sess := shared.RequestSession(r)
	if sess == nil {
		return data
	}
	if csrf != nil {
		data.CSRFToken, _ = csrf.EnsureToken(r.Context(), sess)
	}
	data.Flash = sess.PopFlash()
	data.Viewer = sess.Email()
	data.IsAdmin = sess.User() != "" && sess.Get(shared.SessionRoleKey) == "ADMIN"
	return data
}
