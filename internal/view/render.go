// internal/view/render.go
//
// Central view engine: template lookup, func-map injection, and an LRU of
// parsed *template.Template* sets.
//
// Public helpers
// --------------
//   - Register       – a component hands over its embedded templates.
//   - Render         – write rendered HTML to an http.ResponseWriter.
//   - RenderToString – return template.HTML (fragments, tests).
//
// Lookup
// ------
// Each component embeds `templates/*.html` and calls Register(name, fsys)
// from init().  All templates of one component are parsed as one set so
// sub-templates ({{ template "layout" . }}) work out-of-the-box.
//
// execName() chooses the template to execute:
//   – If the set contains "<name>.html", we run that (file has no define).
//   – Else we fall back to "<name>" (root template defined via {{ define }}).
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/yanizio/formaly/internal/cache"
)

var (
	mu      sync.RWMutex
	sources = map[string]fs.FS{}

	// Parsed sets per component; small, since there are few components.
	tmplLRU = cache.New[string, *template.Template](64, 0)
)

// Register makes comp's templates available.  fsys must contain a
// `templates` directory.
func Register(comp string, fsys fs.FS) {
	mu.Lock()
	sources[comp] = fsys
	mu.Unlock()
	tmplLRU.Remove(comp)
}

// Render executes the template and streams it to w with an HTML content
// type.  The page is rendered into a buffer first so a template error never
// leaves a half-written response.
func Render(w http.ResponseWriter, status int, comp, name string, data any) error {
	out, err := RenderToString(comp, name, data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write([]byte(out))
	return err
}

// RenderToString executes and returns HTML.
func RenderToString(comp, name string, data any) (template.HTML, error) {
	t, err := load(comp)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, execName(t, name), data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

//
// internal: load
//

func load(comp string) (*template.Template, error) {
	if t, ok := tmplLRU.Get(comp); ok {
		return t, nil
	}

	mu.RLock()
	fsys, ok := sources[comp]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("view: no templates registered for %q", comp)
	}

	t, err := template.New(comp).Funcs(funcMap()).ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse %s templates: %w", comp, err)
	}
	tmplLRU.Add(comp, t)
	return t, nil
}

//
// func-map builders
//

func funcMap() template.FuncMap {
	fm := template.FuncMap{
		"dict":       dict,
		"formatTime": formatTime,
	}
	for k, v := range respondentFuncMap() {
		fm[k] = v
	}
	return fm
}

//
// helpers
//

// execName picks the template name to execute.
//
// Priority:
//  1. If the set has "<name>.html" (file-based template), run that.
//  2. Otherwise, fall back to "<name>" (root template defined in code).
func execName(t *template.Template, name string) string {
	if tmpl := t.Lookup(name + ".html"); tmpl != nil {
		return name + ".html"
	}
	return name
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}

// formatTime renders t as "02/01/2006 15:04" in UTC; zero renders "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("02/01/2006 15:04")
}
