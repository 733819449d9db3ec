package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[string]*template.Template{}

func init() {
	funcs := template.FuncMap{
		"pathEscape": url.PathEscape,
	}
	for _, name := range []string{"index", "table", "user_form", "rating_form", "marts"} {
		pages[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
}

// page is the data every template receives.
type page struct {
	Title   string
	Notices []Notice
	Menu    []Mart

	// table pages
	Table Table
	SQL   string
	// LinkColumn, when >= 0, links each row to the rating form for the
	// value of that column.
	LinkColumn int

	// forms
	Users    []User
	Titles   []string
	Selected string
	Nome     string
	Email    string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	p.Notices = append(popFlash(w, r), p.Notices...)
	p.Menu = marts

	t, ok := pages[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown page %q", name), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.Execute(w, p); err != nil {
		s.log.Errorf("render %s: %v", name, err)
	}
}
