package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUserID(t *testing.T) {
	if _, ok := UserID(context.Background()); ok {
		t.Fatalf("empty context reported a user")
	}
	if _, ok := UserID(WithUser(context.Background(), "")); ok {
		t.Fatalf("blank id reported as a user")
	}
	id, ok := UserID(WithUser(context.Background(), "u-42"))
	if !ok || id != "u-42" {
		t.Fatalf("UserID = %q, %v", id, ok)
	}
}

func TestRequireUser(t *testing.T) {
	var seen string
	h := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/forms", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/forms", nil)
	req.Header.Set(Header, " owner-1 ")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen != "owner-1" {
		t.Fatalf("status = %d, user = %q", rec.Code, seen)
	}
}
