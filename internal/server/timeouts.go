// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
// Production hardening recommends:
//
//   • ReadTimeout        – abort slow-loris bodies (10 s)
//   • ReadHeaderTimeout  – abort slow-loris headers (5 s)
//   • WriteTimeout       – cap total response time (15 s)
//   • IdleTimeout        – close keep-alives on idle clients (60 s)
//
// The values come from the `http` config section; config.applyDefaults
// fills the ones an operator leaves out.  Run adds graceful shutdown on
// context cancellation so cmd/web stays short.
//

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yanizio/formaly/internal/config"
	"github.com/yanizio/formaly/internal/logger"
)

const shutdownGrace = 10 * time.Second

// New constructs an *http.Server from the http config section.
func New(cfg config.HTTP, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, srv *http.Server) error {
	log := logger.FromContext(ctx)
	errc := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Infow("shutting down", "grace", shutdownGrace)
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}
