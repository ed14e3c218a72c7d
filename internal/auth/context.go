// internal/auth/context.go
//
// Owner identity helpers.
//
// Context
// -------
// Formaly does not authenticate anyone itself.  The identity gateway in
// front of the service verifies the session and forwards the owner's
// opaque user id in the `X-Formaly-User` header.  RequireUser lifts that
// id into the request context; owner-facing handlers read it back with
// UserID and scope every query to it.
//
// Usage
// -----
//
//	r.Use(auth.RequireUser)
//	owner, _ := auth.UserID(r.Context())
//
// Notes
// -----
// • Public respondent routes never mount RequireUser.
// • Oxford commas, two spaces after periods.

package auth

import (
	"context"
	"net/http"
	"strings"
)

// Header is the request header carrying the gateway-verified user id.
const Header = "X-Formaly-User"

// userKey is unexported to avoid context-key collisions.
type userKey struct{}

// WithUser returns a new context carrying the given userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID extracts the userID from ctx.  It returns ("", false) if no user is
// set.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// RequireUser rejects requests without an identity header with 401 and
// stores the id in the context otherwise.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(Header))
		if id == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), id)))
	})
}
