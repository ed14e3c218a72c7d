// internal/module/registry.go
//
// A super-light registry for operational endpoints: modules call
// Register(path, handler) in an init() function.  Dispatch looks up the
// exact URL path (no wildcards) before the component routers see the
// request and, if found, executes the handler.
//
// Handler signature:
//
//	func(info *requestinfo.Info, w http.ResponseWriter, r *http.Request)
//
// info is the respondent metadata requestinfo.Enrich attached upstream; it
// is nil when Dispatch runs without that middleware.
package module

import (
	"net/http"
	"sync"

	"github.com/yanizio/formaly/internal/requestinfo"
)

// Handler is what modules register.
type Handler func(*requestinfo.Info, http.ResponseWriter, *http.Request)

var (
	mu       sync.RWMutex
	registry = map[string]Handler{}
)

// Register is called from module init() functions.
func Register(path string, h Handler) {
	mu.Lock()
	registry[path] = h
	mu.Unlock()
}

// Lookup returns the handler for an exact path or nil.
func Lookup(path string) Handler {
	mu.RLock()
	defer mu.RUnlock()
	return registry[path]
}

// Dispatch serves registered paths and hands everything else to next.
func Dispatch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h := Lookup(r.URL.Path); h != nil {
			h(requestinfo.FromContext(r.Context()), w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
