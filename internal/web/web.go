// Package web renders the HTML pages of the labelling tool.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"net/http"
	"strings"

	"github.com/straye-as/labelling-app/internal/analysis"
	"github.com/straye-as/labelling-app/internal/auth"
	"github.com/straye-as/labelling-app/internal/charts"
	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/service"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names
const (
	PageLogin    = "login"
	PageRegister = "register"
	PageLabel    = "label"
	PageAnalysis = "analysis"
	PageError    = "error"
)

var pages = []string{PageLogin, PageRegister, PageLabel, PageAnalysis, PageError}

// Page is the data of every rendered page
type Page struct {
	Title   string
	AppName string
	User    *auth.UserContext
	Flashes []service.Flash
	// Instructions and CategoryHelp are rendered markdown
	Instructions template.HTML
	CategoryHelp template.HTML
	Data         any
}

// ShowAnalysisLink reports whether the navigation links the analysis view
func (p *Page) ShowAnalysisLink() bool {
	return p.User.CanViewAnalysis()
}

// Renderer executes the embedded page templates
type Renderer struct {
	appName      string
	pages        map[string]*template.Template
	instructions template.HTML
	categoryHelp template.HTML
	logger       *zap.Logger
}

// NewRenderer parses the templates. instructions is markdown shown above the
// labelling forms, empty for none.
func NewRenderer(appName, instructions string, logger *zap.Logger) (*Renderer, error) {
	r := &Renderer{
		appName:      appName,
		pages:        make(map[string]*template.Template, len(pages)),
		instructions: Markdown(instructions),
		categoryHelp: Markdown(domain.ErrorCategoriesMarkdown()),
		logger:       logger,
	}
	for _, name := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes page with status. Template errors are logged and answered
// with 500 before anything is written.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page *Page) {
	t, ok := r.pages[name]
	if !ok {
		r.logger.Error("Unknown page", zap.String("page", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	page.AppName = r.appName
	if name == PageLabel {
		page.Instructions = r.instructions
		page.CategoryHelp = r.categoryHelp
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", page); err != nil {
		r.logger.Error("Failed to render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Static serves the embedded stylesheet
func Static() http.Handler {
	sub, _ := fs.Sub(staticFS, "static")
	return http.FileServer(http.FS(sub))
}

// Markdown renders src as HTML. Raw HTML in src is not passed through.
func Markdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

var funcs = template.FuncMap{
	"markdown":  Markdown,
	"heatColor": func(r float64) template.CSS { return template.CSS(charts.HeatColor(r)) },
	"textColor": func(r float64) template.CSS { return template.CSS(charts.TextColor(r)) },
	"add":       func(a, b int) int { return a + b },
	"percent":   func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"fixed":     formatFixed,
	"bound":     bound,
	"join":      strings.Join,
}

func formatFixed(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.2f", v)
}

func bound(p *float64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%g", *p)
}

// ChartView is one rendered score distribution
type ChartView struct {
	RunID string
	URL   string
}

// AnalysisData is the data of the analysis page
type AnalysisData struct {
	Report          *analysis.Report
	Charts          []ChartView
	SelectedColumns []string
	SelectedMetrics []string
	// Query repeats the selection for the export link
	Query template.URL
}

// Has reports whether list contains s
func (d *AnalysisData) Has(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// AuthData is the data of the login and registration pages
type AuthData struct {
	Next              string
	Username          string
	Email             string
	Name              string
	Error             string
	FieldErrors       map[string]string
	PasswordCriteria  []string
	AllowRegistration bool
}
