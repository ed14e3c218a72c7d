// internal/fieldtype/source.go
//
// Formaly – field type catalog: HTTP preset source.
//
// Context
//   The preset catalog is owned by another service and exposed as
//   `GET <url>` returning a JSON array of preset descriptors:
//
//      [{"name":"cpf","label":"CPF","htmlType":"text",
//        "placeholder":"000.000.000-00","category":"personal",
//        "validationHints":{"pattern":"^\\d{11}$"}}, …]
//
//   Any transport error, non-2xx status, or decode failure is returned as an
//   error; the Registry turns that into a silent fallback.
//
//------------------------------------------------------------------------------

package fieldtype

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBody caps the catalog response.
const maxBody = 1 << 20

// HTTPSource fetches presets from a JSON endpoint.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource returns a source with its own client bounded by timeout.
// An empty url yields nil so callers can pass the result straight to
// NewRegistry.
func NewHTTPSource(url string, timeout time.Duration) Source {
	if url == "" {
		return nil
	}
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: timeout}}
}

// FetchPresets implements Source.
func (s *HTTPSource) FetchPresets(ctx context.Context) ([]Preset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	cli := s.Client
	if cli == nil {
		cli = http.DefaultClient
	}
	resp, err := cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("preset source %s: status %d", s.URL, resp.StatusCode)
	}

	var out []Preset
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&out); err != nil {
		return nil, fmt.Errorf("preset source %s: decode: %w", s.URL, err)
	}
	return out, nil
}
