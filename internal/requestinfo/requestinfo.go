//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request respondent
//  metadata (user-agent summary, client IP, geolocation, and a duplicate
//  submission fingerprint).  These structs are inert.  They hold no
//  handles or large buffers, so they are safe to log, JSON-encode, or
//  persist next to a form response.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// UA holds the parsed user-agent properties stored with a response.
type UA struct {
	Raw         string `json:"-"`
	Browser     string `json:"browser,omitempty"` // "Chrome", "Firefox", "Safari", ...
	Version     string `json:"version,omitempty"` // "124.0.6367"
	OS          string `json:"os,omitempty"`      // "MacOSX", "Windows", "Android", ...
	OSVersion   string `json:"osVersion,omitempty"`
	Device      string `json:"device,omitempty"` // "Desktop", "Phone", "Tablet", ...
	IsBot       bool   `json:"isBot,omitempty"`
	PrimaryLang string `json:"lang,omitempty"` // first Accept-Language tag
}

// Geo holds IP-based geolocation hints.  Best-effort; empty when no
// database is configured or the address has no match.
type Geo struct {
	CountryISO string `json:"country,omitempty"`
	City       string `json:"city,omitempty"`
}

// Info is the respondent metadata attached to each request by Enrich.
type Info struct {
	IP          net.IP    `json:"ip,omitempty"`
	UA          UA        `json:"ua"`
	Geo         Geo       `json:"geo"`
	Fingerprint string    `json:"-"`
	Timestamp   time.Time `json:"-"`
}

//
//  -----------------------------
//  Geo lookups
//  -----------------------------
//

// GeoLocator resolves an address to Geo.  *GeoDB satisfies it; tests pass
// a stub.
type GeoLocator interface {
	Lookup(ip net.IP) Geo
}

// GeoDB wraps a GeoLite2-City reader.  Safe for concurrent reads.
type GeoDB struct {
	reader *geoip2.Reader
}

// OpenGeo opens the GeoLite2-City database at path.  An empty path returns
// (nil, nil), which disables lookups.
func OpenGeo(path string) (*GeoDB, error) {
	if path == "" {
		return nil, nil
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("requestinfo: open GeoLite2 DB: %w", err)
	}
	return &GeoDB{reader: r}, nil
}

// Lookup returns best-effort Geo data.  A nil receiver returns zero Geo.
func (g *GeoDB) Lookup(ip net.IP) Geo {
	if g == nil || g.reader == nil || ip == nil {
		return Geo{}
	}
	rec, err := g.reader.City(ip)
	if err != nil {
		return Geo{}
	}
	return Geo{
		CountryISO: rec.Country.IsoCode,
		City:       rec.City.Names["en"],
	}
}

// Close releases the underlying reader.
func (g *GeoDB) Close() error {
	if g == nil || g.reader == nil {
		return nil
	}
	return g.reader.Close()
}

//
//  -----------------------------
//  Public helpers: context
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// WithInfo returns a copy of ctx carrying info.  Enrich calls it; tests and
// the terminal client can call it directly.
func WithInfo(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

// FromContext returns the pointer previously stored by Enrich, or nil if
// the middleware has not run.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

// Fingerprint is the hex SHA-256 of the client address and the raw
// User-Agent header.  It identifies a respondent well enough to refuse a
// second response when a form disallows multiple submissions, and it is
// not reversible to either input.
func Fingerprint(ip net.IP, rawUA string) string {
	h := sha256.New()
	if ip != nil {
		h.Write([]byte(ip.String()))
	}
	h.Write([]byte{0})
	h.Write([]byte(rawUA))
	return hex.EncodeToString(h.Sum(nil))
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// parseUA converts a raw header into our UA struct using uasurfer.
func parseUA(uaHeader, acceptLang string) UA {
	u := uasurfer.Parse(uaHeader)

	return UA{
		Raw:         uaHeader,
		Browser:     strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:     trimVersion(u.Browser.Version),
		OS:          strings.TrimPrefix(u.OS.Name.String(), "OS"),
		OSVersion:   trimVersion(u.OS.Version),
		Device:      deviceTypeToString(u.DeviceType),
		IsBot:       u.IsBot(),
		PrimaryLang: primaryLang(acceptLang),
	}
}

// trimVersion renders "major.minor.patch" and trims trailing zero parts,
// e.g. 17.0.0 → "17", 17.3.0 → "17.3".  All zeros yield "".
func trimVersion(v uasurfer.Version) string {
	parts := []int{int(v.Major), int(v.Minor), int(v.Patch)}
	for len(parts) > 0 && parts[len(parts)-1] == 0 {
		parts = parts[:len(parts)-1]
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strconv.Itoa(p)
	}
	return strings.Join(out, ".")
}

// deviceTypeToString maps uasurfer.DeviceType to a user-friendly string.
func deviceTypeToString(dt uasurfer.DeviceType) string {
	switch dt {
	case uasurfer.DeviceComputer:
		return "Desktop"
	case uasurfer.DevicePhone:
		return "Phone"
	case uasurfer.DeviceTablet:
		return "Tablet"
	case uasurfer.DeviceConsole:
		return "Console"
	case uasurfer.DeviceWearable:
		return "Wearable"
	case uasurfer.DeviceTV:
		return "TV"
	default:
		return "Unknown"
	}
}

// primaryLang extracts the first language subtag before any ";q=" rule.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.ToLower(strings.TrimSpace(tag))
}
