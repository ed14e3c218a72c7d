// internal/fieldtype/preset.go
//
// Formaly – field type catalog: presets and their grouping.
//
// Context
//   A preset is a named default configuration layered onto one base Type:
//   “cpf” is a text field labelled “CPF” with a digit pattern, “email” is an
//   email field with a friendly placeholder.  Many presets share a Type and
//   no preset ever changes it.
//
//   The built-in table lives in presets.yaml and is embedded in the binary so
//   the registry always has something to fall back to.
//
//------------------------------------------------------------------------------

package fieldtype

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Custom is the sentinel preset name meaning “no preset”.
const Custom = "custom"

// Category groups presets for display.
type Category string

const (
	Personal      Category = "personal"
	Address       Category = "address"
	Professional  Category = "professional"
	Communication Category = "communication"
	Other         Category = "other"
)

// Categories returns the display order of preset groups.
func Categories() []Category {
	return []Category{Personal, Address, Professional, Communication, Other}
}

// Hints are the validation defaults a preset seeds into a field's config.
type Hints struct {
	MinLength int      `json:"minLength,omitempty" yaml:"min_length"`
	MaxLength int      `json:"maxLength,omitempty" yaml:"max_length"`
	Pattern   string   `json:"pattern,omitempty"   yaml:"pattern"`
	Min       *float64 `json:"min,omitempty"       yaml:"min"`
	Max       *float64 `json:"max,omitempty"       yaml:"max"`
}

// Empty reports whether no hint is set.
func (h Hints) Empty() bool {
	return h.MinLength == 0 && h.MaxLength == 0 && h.Pattern == "" && h.Min == nil && h.Max == nil
}

// Preset is read-only reference data.
type Preset struct {
	Name            string   `json:"name"            yaml:"name"`
	Label           string   `json:"label"           yaml:"label"`
	HTMLType        Type     `json:"htmlType"        yaml:"html_type"`
	Placeholder     string   `json:"placeholder"     yaml:"placeholder"`
	Category        Category `json:"category"        yaml:"category"`
	ValidationHints Hints    `json:"validationHints" yaml:"hints"`
}

// Group is one category of presets, in display order.
type Group struct {
	Category Category `json:"category"`
	Presets  []Preset `json:"presets"`
}

// Grouped projects presets onto Categories() order.  Unknown categories land
// in Other; empty groups are omitted.  Input order is kept inside a group.
func Grouped(presets []Preset) []Group {
	byCat := make(map[Category][]Preset)
	for _, p := range presets {
		c := p.Category
		if !knownCategory(c) {
			c = Other
		}
		byCat[c] = append(byCat[c], p)
	}

	var out []Group
	for _, c := range Categories() {
		if ps := byCat[c]; len(ps) > 0 {
			out = append(out, Group{Category: c, Presets: ps})
		}
	}
	return out
}

func knownCategory(c Category) bool {
	for _, k := range Categories() {
		if k == c {
			return true
		}
	}
	return false
}

// filter keeps presets whose HTMLType equals *t; nil keeps all.
func filter(presets []Preset, t *Type) []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		if t == nil || p.HTMLType == *t {
			out = append(out, p)
		}
	}
	return out
}

// sanitize drops presets a source should never have sent: blank names, the
// reserved Custom name, duplicates, or unknown types.  A pattern hint that
// does not compile is cleared.
func sanitize(in []Preset) []Preset {
	seen := make(map[string]struct{}, len(in))
	out := make([]Preset, 0, len(in))
	for _, p := range in {
		if p.Name == "" || p.Name == Custom || !p.HTMLType.Valid() {
			continue
		}
		if _, dup := seen[p.Name]; dup {
			continue
		}
		seen[p.Name] = struct{}{}
		if p.ValidationHints.Pattern != "" {
			if _, err := regexp.Compile(p.ValidationHints.Pattern); err != nil {
				p.ValidationHints.Pattern = ""
			}
		}
		out = append(out, p)
	}
	return out
}

/*──────────────────────────── built-in table ──────────────────────────────*/

//go:embed presets.yaml
var builtinYAML []byte

var builtin = mustParseBuiltin(builtinYAML)

// Builtin returns a copy of the embedded fallback table.
func Builtin() []Preset {
	return append([]Preset(nil), builtin...)
}

func mustParseBuiltin(raw []byte) []Preset {
	var doc struct {
		Presets []Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		panic(fmt.Sprintf("fieldtype: embedded presets.yaml: %v", err))
	}
	return sanitize(doc.Presets)
}
