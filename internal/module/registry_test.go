package module

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yanizio/formaly/internal/requestinfo"
)

func TestDispatch(t *testing.T) {
	var seen *requestinfo.Info
	Register("/ops/ping", func(info *requestinfo.Info, w http.ResponseWriter, _ *http.Request) {
		seen = info
		_, _ = w.Write([]byte("pong"))
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Dispatch(next)

	info := &requestinfo.Info{IP: net.ParseIP("10.0.0.1")}
	req := httptest.NewRequest(http.MethodGet, "/ops/ping", nil)
	req = req.WithContext(requestinfo.WithInfo(req.Context(), info))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Body.String() != "pong" || seen != info {
		t.Fatalf("registered path: body=%q info=%v", rec.Body.String(), seen)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/ping/extra", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("prefix match leaked: %d", rec.Code)
	}
}
