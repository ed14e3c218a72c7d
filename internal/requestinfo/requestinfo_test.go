package requestinfo

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.6367.91 Safari/537.36"

type stubGeo map[string]Geo

func (s stubGeo) Lookup(ip net.IP) Geo { return s[ip.String()] }

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"xff first", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.9"},
		{"xff junk skipped", map[string]string{"X-Forwarded-For": "unknown, 198.51.100.4"}, "10.0.0.2:1234", "198.51.100.4"},
		{"real ip", map[string]string{"X-Real-Ip": "198.51.100.7"}, "10.0.0.2:1234", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tc.remote
		for k, v := range tc.header {
			r.Header.Set(k, v)
		}
		if got := clientIP(r); got.String() != tc.want {
			t.Errorf("%s: clientIP = %v, want %s", tc.name, got, tc.want)
		}
	}
}

func TestFingerprint(t *testing.T) {
	ip := net.ParseIP("192.0.2.1")
	a := Fingerprint(ip, chromeMac)
	if len(a) != 64 {
		t.Fatalf("fingerprint length = %d", len(a))
	}
	if a != Fingerprint(net.ParseIP("192.0.2.1"), chromeMac) {
		t.Fatalf("fingerprint not stable")
	}
	if a == Fingerprint(net.ParseIP("192.0.2.2"), chromeMac) {
		t.Fatalf("different IPs share a fingerprint")
	}
	if a == Fingerprint(ip, "curl/8.0") {
		t.Fatalf("different agents share a fingerprint")
	}
}

func TestPrimaryLang(t *testing.T) {
	for in, want := range map[string]string{
		"":                        "",
		"pt-BR,pt;q=0.9,en;q=0.8": "pt-br",
		"en;q=0.5":                "en",
	} {
		if got := primaryLang(in); got != want {
			t.Errorf("primaryLang(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnrich(t *testing.T) {
	var got *Info
	h := Enrich(stubGeo{"192.0.2.1": {CountryISO: "BR", City: "Recife"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
		}))

	r := httptest.NewRequest(http.MethodGet, "/f/abc", nil)
	r.RemoteAddr = "192.0.2.1:4000"
	r.Header.Set("User-Agent", chromeMac)
	r.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got == nil {
		t.Fatalf("Info not attached")
	}
	if got.Geo.CountryISO != "BR" {
		t.Errorf("country = %q", got.Geo.CountryISO)
	}
	if got.UA.Browser != "Chrome" || got.UA.Device != "Desktop" || got.UA.IsBot {
		t.Errorf("ua = %+v", got.UA)
	}
	if got.UA.PrimaryLang != "pt-br" {
		t.Errorf("lang = %q", got.UA.PrimaryLang)
	}
	if got.Fingerprint != Fingerprint(net.ParseIP("192.0.2.1"), chromeMac) {
		t.Errorf("fingerprint mismatch")
	}
}

func TestOpenGeo_EmptyPathDisables(t *testing.T) {
	g, err := OpenGeo("")
	if err != nil || g != nil {
		t.Fatalf("OpenGeo(\"\") = %v, %v", g, err)
	}
	if geo := g.Lookup(net.ParseIP("192.0.2.1")); geo != (Geo{}) {
		t.Fatalf("nil GeoDB returned %+v", geo)
	}
	if _, err := OpenGeo("/nonexistent/GeoLite2-City.mmdb"); err == nil {
		t.Fatalf("missing database accepted")
	}
}
