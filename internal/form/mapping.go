// internal/form/mapping.go
//
// Formaly – forms core: persistence shapes and the field mapping.
//
// Context
//   The forms service stores fields in a flattened shape: choice options are
//   folded into config.options, and every type-specific constraint shares one
//   optional config object.  The in-memory Field keeps options at the top
//   level and config as a typed union.
//
//   Flatten and Unflatten convert between the two.  The pair is lossless for
//   any field that honours the options and config invariants:
//
//      Unflatten(Flatten(fs)) == fs
//
//------------------------------------------------------------------------------

package form

import (
	"slices"
	"time"

	"github.com/yanizio/formaly/internal/fieldtype"
)

// PersistedConfig is the flattened constraint bag.
type PersistedConfig struct {
	Options   []string `json:"options,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
}

// PersistedField is one field as the forms service stores it.
type PersistedField struct {
	ID          string           `json:"id"`
	Type        FieldType        `json:"type"`
	Label       string           `json:"label"`
	Name        string           `json:"name"`
	Placeholder string           `json:"placeholder,omitempty"`
	Required    bool             `json:"required"`
	PresetRef   string           `json:"presetRef,omitempty"`
	Config      *PersistedConfig `json:"config,omitempty"`
}

// PersistedForm is the document as the forms service stores it.
//
// Password is write-only: a non-empty value sets a new access password.  On
// update an empty Password keeps the stored one unless ClearPassword is set.
// RequiresPassword is the read side.
type PersistedForm struct {
	ID                       string           `json:"id,omitempty"`
	OwnerID                  string           `json:"ownerId,omitempty"`
	Name                     string           `json:"name"`
	Description              string           `json:"description,omitempty"`
	Password                 string           `json:"password,omitempty"`
	ClearPassword            bool             `json:"clearPassword,omitempty"`
	RequiresPassword         bool             `json:"requiresPassword"`
	Fields                   []PersistedField `json:"fields"`
	ExpiresAt                *time.Time       `json:"expiresAt,omitempty"`
	MaxResponses             *int             `json:"maxResponses,omitempty"`
	AllowMultipleSubmissions bool             `json:"allowMultipleSubmissions"`
	SuccessMessage           string           `json:"successMessage,omitempty"`
	IsActive                 bool             `json:"isActive"`
	CreatedAt                time.Time        `json:"createdAt,omitempty"`
	UpdatedAt                time.Time        `json:"updatedAt,omitempty"`
}

// Flatten maps fields onto the persisted shape.
func Flatten(fields []Field) []PersistedField {
	out := make([]PersistedField, len(fields))
	for i, f := range fields {
		out[i] = PersistedField{
			ID:          f.ID,
			Type:        f.Type,
			Label:       f.Label,
			Name:        f.Name,
			Placeholder: f.Placeholder,
			Required:    f.Required,
			PresetRef:   f.PresetRef,
			Config:      flattenConfig(f),
		}
	}
	return out
}

func flattenConfig(f Field) *PersistedConfig {
	if f.Type.IsChoice() {
		return &PersistedConfig{Options: slices.Clone(f.Options)}
	}
	switch c := f.Config.(type) {
	case TextConfig:
		return &PersistedConfig{
			MinLength: optInt(c.MinLength),
			MaxLength: optInt(c.MaxLength),
			Pattern:   c.Pattern,
		}
	case NumberConfig:
		return &PersistedConfig{Min: cloneFloat(c.Min), Max: cloneFloat(c.Max)}
	default:
		return nil
	}
}

// Unflatten maps persisted fields back onto the in-memory shape.  Config
// entries that do not fit a field's type are dropped.
func Unflatten(in []PersistedField) []Field {
	out := make([]Field, len(in))
	for i, p := range in {
		f := Field{
			ID:          p.ID,
			Type:        p.Type,
			Label:       p.Label,
			Name:        p.Name,
			Placeholder: p.Placeholder,
			Required:    p.Required,
			PresetRef:   p.PresetRef,
		}
		if p.Type.IsChoice() {
			f.Options = []string{}
			if p.Config != nil && p.Config.Options != nil {
				f.Options = slices.Clone(p.Config.Options)
			}
		} else {
			f.Config = configFor(p.Type, p.Config)
		}
		out[i] = f
	}
	return out
}

// configFor builds the typed config of t from the flattened bag.
func configFor(t FieldType, pc *PersistedConfig) Config {
	if pc == nil {
		return nil
	}
	switch {
	case t.IsTextual():
		return TextConfig{MinLength: derefInt(pc.MinLength), MaxLength: derefInt(pc.MaxLength), Pattern: pc.Pattern}
	case t == fieldtype.Number:
		return NumberConfig{Min: cloneFloat(pc.Min), Max: cloneFloat(pc.Max)}
	default:
		return nil
	}
}

func optInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
