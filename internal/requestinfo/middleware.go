// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *Info.
//
/*
Context
--------
This handler sits high in the chain, right after the request logger and
before the component routers.  For every request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Extracts the left-most client IP from X-Forwarded-For or X-Real-IP,
     falling back to `r.RemoteAddr`.
  3. Performs a GeoLite2 lookup when a database is configured.
  4. Computes the respondent fingerprint.
  5. Stores an `*Info` value in `request.Context`, so the public form
     service can record it with a response without reparsing.

Instrumentation
---------------
At DEBUG level each invocation logs the client IP, country ISO, browser
family, device class, bot flag, and request path.

Notes
-----
  • Look-ups are read-only, so the middleware is safe under concurrency.
  • Oxford commas, two spaces after periods.  No em dash.
*/
package requestinfo

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yanizio/formaly/internal/logger"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich returns middleware that attaches *Info and forwards.  geo may be
// nil.
func Enrich(geo GeoLocator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := Collect(r, geo)

			logger.FromContext(r.Context()).Debugw("request info",
				"ip", info.IP,
				"country", info.Geo.CountryISO,
				"browser", info.UA.Browser,
				"device", info.UA.Device,
				"bot", info.UA.IsBot,
				"path", r.URL.Path,
			)

			next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
		})
	}
}

// Collect builds Info for r without touching the context.
func Collect(r *http.Request, geo GeoLocator) *Info {
	ip := clientIP(r)
	ua := parseUA(r.UserAgent(), r.Header.Get("Accept-Language"))

	info := &Info{
		IP:          ip,
		UA:          ua,
		Fingerprint: Fingerprint(ip, ua.Raw),
		Timestamp:   time.Now().UTC(),
	}
	if geo != nil {
		info.Geo = geo.Lookup(ip)
	}
	return info
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// clientIP extracts the left-most parseable address from X-Forwarded-For or
// X-Real-IP, falling back to r.RemoteAddr ("ip:port").
func clientIP(r *http.Request) net.IP {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip
			}
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return nil
}
