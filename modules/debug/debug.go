// modules/debug/debug.go
//
// Diagnostic module that echoes what Formaly derives from the current
// request: client IP, parsed user agent, geo, and the respondent
// fingerprint a submission from this client would carry.  It answers only
// when http.debug is enabled; otherwise the path is a plain 404.
package debug

import (
	"encoding/json"
	"net/http"

	"github.com/yanizio/formaly/internal/config"
	"github.com/yanizio/formaly/internal/module"
	"github.com/yanizio/formaly/internal/requestinfo"
)

// Path is where the module answers.
const Path = "/debug/requestinfo"

func init() {
	module.Register(Path, handler)
}

// enabled is swapped in tests.
var enabled = func() bool {
	cfg := config.Get()
	return cfg != nil && cfg.HTTP.Debug
}

// handler writes a JSON blob with selected request fields.
func handler(info *requestinfo.Info, w http.ResponseWriter, r *http.Request) {
	if !enabled() || info == nil {
		http.NotFound(w, r)
		return
	}
	out := map[string]any{
		"ip":          info.IP.String(),
		"ua":          info.UA.Raw,
		"ua_parsed":   info.UA,
		"geo":         info.Geo,
		"fingerprint": info.Fingerprint,
		"at":          info.Timestamp,
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
