// internal/form/field.go
//
// Formaly – forms core: field model and its single factory.
//
// Context
//   A Field is one editable slot on a form.  Its ID is minted once and keys
//   both builder edits and response payloads.  Its Type never changes.
//
//   Options exist iff the type is a choice type (select, radio, checkbox).
//   NewField is the only constructor, so the invariant holds from birth;
//   builder operations preserve it from there.
//
//   Type-specific constraints live in Config, a closed union:
//
//      text, email, phone, textarea → TextConfig
//      number                       → NumberConfig
//      everything else              → nil
//
//------------------------------------------------------------------------------

package form

import (
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/yanizio/formaly/internal/fieldtype"
)

// FieldType is the closed set of field kinds.
type FieldType = fieldtype.Type

// Field is the in-memory, render-friendly shape of one form field.
type Field struct {
	ID          string
	Type        FieldType
	Label       string
	Name        string
	Placeholder string
	Required    bool
	Options     []string
	PresetRef   string
	Config      Config
}

// Config is implemented by TextConfig and NumberConfig only.
type Config interface {
	appliesTo(t FieldType) bool
	clone() Config
}

// TextConfig constrains free-text fields.  Zero means unset.
type TextConfig struct {
	MinLength int
	MaxLength int
	Pattern   string
}

func (TextConfig) appliesTo(t FieldType) bool { return t.IsTextual() }
func (c TextConfig) clone() Config            { return c }

// NumberConfig bounds numeric fields.  Nil means unbounded.
type NumberConfig struct {
	Min *float64
	Max *float64
}

func (NumberConfig) appliesTo(t FieldType) bool { return t == fieldtype.Number }
func (c NumberConfig) clone() Config {
	return NumberConfig{Min: cloneFloat(c.Min), Max: cloneFloat(c.Max)}
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// placeholderOptions seeds every new choice field.
var placeholderOptions = []string{"Opção 1", "Opção 2", "Opção 3"}

// NewField builds a fresh field of type t with registry defaults.
func NewField(t FieldType) (Field, error) {
	d, ok := fieldtype.Describe(t)
	if !ok {
		return Field{}, ErrUnknownFieldType
	}
	f := Field{
		ID:    uuid.NewString(),
		Type:  t,
		Label: d.Label,
		Name:  DeriveName(d.Label),
	}
	if t.IsChoice() {
		f.Options = slices.Clone(placeholderOptions)
	}
	return f, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// DeriveName lowercases label and collapses whitespace runs into “_”.
func DeriveName(label string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(label)), "_")
}

// clone returns a deep copy so callers never alias builder state.
func (f Field) clone() Field {
	out := f
	out.Options = slices.Clone(f.Options)
	if f.Config != nil {
		out.Config = f.Config.clone()
	}
	return out
}

func cloneFields(in []Field) []Field {
	if in == nil {
		return nil
	}
	out := make([]Field, len(in))
	for i, f := range in {
		out[i] = f.clone()
	}
	return out
}

// configFromHints turns preset hints into the config shape of t.  A nil
// result means the hints carry nothing for that type.
func configFromHints(t FieldType, h fieldtype.Hints) Config {
	switch {
	case t.IsTextual() && (h.MinLength > 0 || h.MaxLength > 0 || h.Pattern != ""):
		return TextConfig{MinLength: h.MinLength, MaxLength: h.MaxLength, Pattern: h.Pattern}
	case t == fieldtype.Number && (h.Min != nil || h.Max != nil):
		return NumberConfig{Min: cloneFloat(h.Min), Max: cloneFloat(h.Max)}
	default:
		return nil
	}
}
