// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web applies every
// component's Migrations(), calls Init() with the shared service handles,
// and finally serves every component's Routes() from one handler mounted
// at "/".  chi refuses two mounts on the same pattern, so the handler asks
// each router in name order whether it matches the request.

package component

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

// Initializer is optional in spirit: every Component embeds it, but a
// component with nothing to wire may return nil.  cmd/web calls Init once,
// before Routes.
type Initializer interface {
	Init(Services) error
}

// Component contract.
//
// Migrations() may return nil if the component has no schema.
// Routes() should mount BOTH page and API endpoints, e.g:
//
//	r := chi.NewRouter()
//	r.Get("/f/{id}", getPage)
//	r.Route("/api", func(api chi.Router) { ... })
//	return r
type Component interface {
	Name() string
	Routes() chi.Router
	Migrations() []string
	Initializer
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component ordered by name, so migrations and
// mounting are deterministic.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Migrate runs every component's statements against db.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, c := range All() {
		for _, stmt := range c.Migrations() {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("component %s: migrate: %w", c.Name(), err)
			}
		}
	}
	return nil
}

// Boot initialises every component and returns a handler dispatching to
// their routers.
func Boot(svc Services) (http.Handler, error) {
	var routers []chi.Router
	for _, c := range All() {
		if err := c.Init(svc); err != nil {
			return nil, fmt.Errorf("component %s: init: %w", c.Name(), err)
		}
		routers = append(routers, c.Routes())
	}
	return dispatch(routers), nil
}

func dispatch(routers []chi.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, cr := range routers {
			if cr.Match(chi.NewRouteContext(), r.Method, r.URL.Path) {
				cr.ServeHTTP(w, r)
				return
			}
		}
		http.NotFound(w, r)
	})
}
