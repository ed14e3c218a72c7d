// internal/middleware/requestlog.go
//
// Request-scoped logging.
//
// RequestLogger runs after chi's RequestID middleware.  It derives a child
// of the global sugared logger carrying `request_id`, stores it in the
// request context (logger.WithContext), and writes one INFO line per
// request with method, path, status, bytes, and duration.  Handlers,
// services, and the store pick the same logger up with logger.FromContext,
// so every line of one request shares the id.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/formaly/internal/logger"
)

// RequestLogger attaches a request logger and logs completion.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := zap.S().With("request_id", chimw.GetReqID(r.Context()))
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), log)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
