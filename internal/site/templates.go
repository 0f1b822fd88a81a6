package site

import (
	"embed"
	"html/template"
	"unicode/utf8"

	"github.com/teemow/autogmail/internal/dashboard"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page template names.
const (
	pageLanding   = "landing.html"
	pageLogin     = "login.html"
	pageDashboard = "dashboard.html"
	pageNotFound  = "404.html"
)

var templateFuncs = template.FuncMap{
	"displayName": dashboard.DisplayName,
	"initial":     initial,
}

func initial(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}
	return string(r)
}

func parseTemplates() (*template.Template, error) {
	return template.New("site").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

// pageData is the data every page template receives.
type pageData struct {
	Title    string
	SignedIn bool
	Error    string
	Notice   *dashboard.Notice
	State    dashboard.State
}
