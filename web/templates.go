package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

type Templates struct {
	base  *template.Template
	pages map[string]*PageTemplate
}

type PageTemplate struct {
	*template.Template
}

// NewTemplates parses the layout and builds one template set per page so
// pages can define the same block names.
func NewTemplates() *Templates {
	base := template.New("").Funcs(TemplateFuncs())
	base = template.Must(base.ParseFS(templateFS, "templates/layout.html"))

	pages := make(map[string]*PageTemplate)
	for _, page := range []string{"dashboard"} {
		clone := template.Must(base.Clone())
		template.Must(clone.ParseFS(templateFS, "templates/"+page+".html"))
		pages[page] = &PageTemplate{Template: clone}
	}

	return &Templates{
		base:  base,
		pages: pages,
	}
}

func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"unixMillis": func(ms int64) string {
			return time.UnixMilli(ms).Format("15:04:05.000")
		},
		"jsonPretty": func(data []byte) string {
			var out interface{}
			if err := json.Unmarshal(data, &out); err != nil {
				return string(data)
			}
			pretty, _ := json.MarshalIndent(out, "", "  ")
			return string(pretty)
		},
		"join": strings.Join,
	}
}

// Renders partial html (defined template blocks)
func (pt *PageTemplate) Render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pt.ExecuteTemplate(w, name, data)
	if err != nil {
		http.Error(w, "Template rendering error: "+err.Error(), http.StatusInternalServerError)
	}
}

// Renders entire page
func (pt *PageTemplate) RenderPage(w http.ResponseWriter, data interface{}) {
	pt.Render(w, "layout", data)
}

func (s *Server) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	page := s.templates.pages["dashboard"]
	data := map[string]any{
		"Status":   s.services.Status.GetStatus(),
		"Messages": s.services.Teleop.Messages(20),
	}
	if _, ok := r.Header["Hx-Request"]; ok {
		page.Render(w, "content", data)
		return
	}
	page.RenderPage(w, data)
}
