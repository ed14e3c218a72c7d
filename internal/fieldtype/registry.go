// internal/fieldtype/registry.go
//
// Formaly – field type catalog: process-wide preset registry.
//
// Context
//   Presets come from an external source (see source.go).  The source may be
//   down, slow, or misconfigured; none of that is the builder's problem.  Any
//   failure degrades silently to the embedded table, logs at WARN, and bumps
//   formaly_registry_fallback_total.  Callers never see an error.
//
// Workflow
//   •  NewRegistry(src) wires a source; src may be nil (built-ins only).
//   •  Load(ctx) fetches once.  Concurrent first calls collapse through
//      singleflight so the source sees a single request.  The shared fetch
//      runs detached from the first caller's cancellation, bounded by
//      LoadTimeout, so one abandoned request cannot pin the fallback.
//   •  Presets, Preset, and Descriptors are synchronous reads.  Before Load
//      finishes they serve the built-in table.
//
//------------------------------------------------------------------------------

package fieldtype

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/formaly/internal/logger"
	"github.com/yanizio/formaly/internal/metrics"
)

// Source fetches preset descriptors from outside the process.
type Source interface {
	FetchPresets(ctx context.Context) ([]Preset, error)
}

var errNoSource = errors.New("no preset source configured")

// LoadTimeout bounds the shared fetch started by Load.
const LoadTimeout = 30 * time.Second

// Registry is safe for concurrent use.
type Registry struct {
	src Source
	sfg singleflight.Group

	mu       sync.RWMutex
	presets  []Preset
	byName   map[string]Preset
	loaded   bool
	fallback bool
}

// NewRegistry returns a registry primed with the built-in table.
func NewRegistry(src Source) *Registry {
	r := &Registry{src: src}
	r.install(Builtin(), false, false)
	return r
}

// Load fetches presets from the source exactly once per registry.  It always
// leaves the registry usable and returns the installed list.
func (r *Registry) Load(ctx context.Context) []Preset {
	r.mu.RLock()
	if r.loaded {
		defer r.mu.RUnlock()
		return append([]Preset(nil), r.presets...)
	}
	r.mu.RUnlock()

	_, _, _ = r.sfg.Do("presets", func() (any, error) {
		r.mu.RLock()
		done := r.loaded
		r.mu.RUnlock()
		if done {
			return nil, nil
		}

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoadTimeout)
		defer cancel()

		got, err := r.fetch(fctx)
		if err != nil {
			logger.FromContext(ctx).Warnw("preset source unavailable, using built-in table", "err", err)
			metrics.RegistryFallbackTotal.Inc()
			r.install(Builtin(), true, true)
			return nil, nil
		}
		r.install(got, true, false)
		logger.FromContext(ctx).Infow("presets loaded", "count", len(got))
		return nil, nil
	})

	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Preset(nil), r.presets...)
}

func (r *Registry) fetch(ctx context.Context) ([]Preset, error) {
	if r.src == nil {
		return nil, errNoSource
	}
	raw, err := r.src.FetchPresets(ctx)
	if err != nil {
		return nil, err
	}
	clean := sanitize(raw)
	if len(clean) == 0 {
		return nil, errors.New("preset source returned no usable presets")
	}
	return clean, nil
}

func (r *Registry) install(ps []Preset, loaded, fallback bool) {
	idx := make(map[string]Preset, len(ps))
	for _, p := range ps {
		idx[p.Name] = p
	}
	r.mu.Lock()
	r.presets = ps
	r.byName = idx
	r.loaded = loaded
	r.fallback = fallback
	r.mu.Unlock()
}

// Presets lists presets, optionally filtered by underlying HTML type.
func (r *Registry) Presets(t *Type) []Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filter(r.presets, t)
}

// Preset looks a preset up by name.
func (r *Registry) Preset(name string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// Descriptors lists the field-type palette.
func (r *Registry) Descriptors() []Descriptor { return Descriptors() }

// UsingFallback reports whether the last Load degraded to the built-ins.
func (r *Registry) UsingFallback() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}
