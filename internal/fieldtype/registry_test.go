package fieldtype

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestBuiltinTable(t *testing.T) {
	ps := Builtin()
	if len(ps) < 40 {
		t.Fatalf("built-in presets = %d, want at least 40", len(ps))
	}
	for _, p := range ps {
		if !p.HTMLType.Valid() {
			t.Errorf("preset %q has invalid type %q", p.Name, p.HTMLType)
		}
		if !knownCategory(p.Category) {
			t.Errorf("preset %q has unknown category %q", p.Name, p.Category)
		}
		if p.Label == "" {
			t.Errorf("preset %q has no label", p.Name)
		}
	}
	if p, ok := NewRegistry(nil).Preset("referral"); !ok || p.Label != "Como nos conheceu?" {
		t.Fatalf("referral preset = %+v, %v", p, ok)
	}
}

func TestSanitizeClearsBrokenPattern(t *testing.T) {
	got := sanitize([]Preset{{Name: "x", Label: "X", HTMLType: Text, ValidationHints: Hints{Pattern: "(["}}})
	if len(got) != 1 || got[0].ValidationHints.Pattern != "" {
		t.Fatalf("sanitize = %+v", got)
	}
}

func TestDescriptorsCoverEveryType(t *testing.T) {
	ds := Descriptors()
	if len(ds) != len(All()) {
		t.Fatalf("descriptors = %d, types = %d", len(ds), len(All()))
	}
	for i, tt := range All() {
		if ds[i].Type != tt {
			t.Errorf("descriptor %d = %q, want %q", i, ds[i].Type, tt)
		}
	}
}

func TestGrouped(t *testing.T) {
	in := []Preset{
		{Name: "a", Category: Other},
		{Name: "b", Category: Personal},
		{Name: "c", Category: "weird"},
		{Name: "d", Category: Personal},
	}
	got := Grouped(in)
	want := []Group{
		{Category: Personal, Presets: []Preset{in[1], in[3]}},
		{Category: Other, Presets: []Preset{in[0], in[2]}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Grouped mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_FilterByType(t *testing.T) {
	r := NewRegistry(nil)
	em := Email
	for _, p := range r.Presets(&em) {
		if p.HTMLType != Email {
			t.Fatalf("filtered list contains %q of type %q", p.Name, p.HTMLType)
		}
	}
	if len(r.Presets(nil)) != len(Builtin()) {
		t.Fatalf("unfiltered list differs from built-ins")
	}
}

type stubSource struct {
	calls atomic.Int32
	out   []Preset
	err   error
	delay time.Duration
}

func (s *stubSource) FetchPresets(context.Context) ([]Preset, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	return s.out, s.err
}

func TestRegistry_FallbackIsSilent(t *testing.T) {
	r := NewRegistry(&stubSource{err: errors.New("boom")})
	got := r.Load(context.Background())
	if len(got) != len(Builtin()) {
		t.Fatalf("fallback size = %d, want %d", len(got), len(Builtin()))
	}
	if !r.UsingFallback() {
		t.Fatalf("UsingFallback = false after failed load")
	}
	if _, ok := r.Preset("email"); !ok {
		t.Fatalf("built-in email preset missing after fallback")
	}
}

func TestRegistry_RemoteWinsAndDropsJunk(t *testing.T) {
	src := &stubSource{out: []Preset{
		{Name: "nif", Label: "NIF", HTMLType: Text, Category: Personal},
		{Name: "bad", Label: "Bad", HTMLType: "colour"},
		{Name: Custom, Label: "Custom", HTMLType: Text},
	}}
	r := NewRegistry(src)
	got := r.Load(context.Background())
	if len(got) != 1 || got[0].Name != "nif" {
		t.Fatalf("got %+v, want only nif", got)
	}
	if r.UsingFallback() {
		t.Fatalf("UsingFallback = true after good load")
	}
	if _, ok := r.Preset("email"); ok {
		t.Fatalf("remote list should replace built-ins")
	}
}

func TestRegistry_EmptyRemoteFallsBack(t *testing.T) {
	r := NewRegistry(&stubSource{out: []Preset{}})
	r.Load(context.Background())
	if !r.UsingFallback() {
		t.Fatalf("empty remote list should fall back")
	}
}

func TestRegistry_LoadsOnce(t *testing.T) {
	src := &stubSource{
		out:   []Preset{{Name: "x", Label: "X", HTMLType: Text}},
		delay: 20 * time.Millisecond,
	}
	r := NewRegistry(src)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Load(context.Background())
		}()
	}
	wg.Wait()
	r.Load(context.Background())

	if n := src.calls.Load(); n != 1 {
		t.Fatalf("source calls = %d, want 1", n)
	}
}

// ctxSource fails the way an HTTP client does when handed a dead context.
type ctxSource struct {
	deadline bool
}

func (s *ctxSource) FetchPresets(ctx context.Context) ([]Preset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, s.deadline = ctx.Deadline()
	return []Preset{{Name: "nif", Label: "NIF", HTMLType: Text, Category: Personal}}, nil
}

func TestRegistry_LoadSurvivesCancelledCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &ctxSource{}
	r := NewRegistry(src)
	r.Load(ctx)

	if r.UsingFallback() {
		t.Fatalf("cancelled caller pinned the fallback")
	}
	if _, ok := r.Preset("nif"); !ok {
		t.Fatalf("remote preset not installed")
	}
	if !src.deadline {
		t.Fatalf("shared fetch ran without a deadline")
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"cpf","label":"CPF","htmlType":"text","category":"personal","validationHints":{"pattern":"^\\d{11}$"}}]`))
	}))
	defer srv.Close()

	got, err := NewHTTPSource(srv.URL+"/field-types", time.Second).FetchPresets(context.Background())
	if err != nil {
		t.Fatalf("FetchPresets: %v", err)
	}
	want := []Preset{{
		Name: "cpf", Label: "CPF", HTMLType: Text, Category: Personal,
		ValidationHints: Hints{Pattern: `^\d{11}$`},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("FetchPresets mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewHTTPSource(srv.URL+"/broken", time.Second).FetchPresets(context.Background()); err == nil {
		t.Fatalf("expected error on 502")
	}
	if NewHTTPSource("", time.Second) != nil {
		t.Fatalf("empty url should yield a nil source")
	}
}
