// internal/form/document.go
//
// Formaly – forms core: the form document and its save rules.
//
// Context
//   Document is the aggregate root the builder edits: metadata, an ordered
//   field list, and the advanced settings that gate the public form.
//
//   Save rules run on the persisted shape so the builder, the owner API, and
//   anything else that writes a form share one definition.  Only the first
//   violated rule is reported.
//
// Rules, in reporting order
//   1. name is 3–100 characters after trimming.
//   2. description is at most 500 characters.
//   3. password, when set, is 4–8 characters.
//   4. at least one field.
//   5. maxResponses, when set, is positive.
//   6. expiresAt, when set, lies in the future.
//   7. every field has a known type and a label.
//   8. every choice field has at least one option.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Settings are the advanced, form-level switches.
type Settings struct {
	ExpiresAt                *time.Time
	MaxResponses             *int
	AllowMultipleSubmissions bool
	SuccessMessage           string
	IsActive                 bool
}

// Document is the editable definition of one form.
type Document struct {
	ID          string
	Name        string
	Description string

	// Password holds a new plain-text password awaiting save.
	// RequiresPassword reports whether the saved or pending form has one.
	Password         string
	RequiresPassword bool

	Fields   []Field
	Settings Settings
}

func (d Document) clone() Document {
	out := d
	out.Fields = cloneFields(d.Fields)
	out.Settings.ExpiresAt = cloneTime(d.Settings.ExpiresAt)
	out.Settings.MaxResponses = cloneInt(d.Settings.MaxResponses)
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

/*──────────────────────────── save rules ──────────────────────────────────*/

// saveRules mirrors the struct-taggable subset of the rules.
type saveRules struct {
	Name         string           `validate:"min=3,max=100"`
	Description  string           `validate:"max=500"`
	Password     string           `validate:"omitempty,min=4,max=8"`
	Fields       []PersistedField `validate:"min=1"`
	MaxResponses *int             `validate:"omitempty,gt=0"`
}

var ruleMessages = map[string]DocumentError{
	"Name":         {Field: "name", Message: "Name must be between 3 and 100 characters."},
	"Description":  {Field: "description", Message: "Description must be at most 500 characters."},
	"Password":     {Field: "password", Message: "Password must be between 4 and 8 characters."},
	"Fields":       {Field: "fields", Message: "Add at least one field."},
	"MaxResponses": {Field: "maxResponses", Message: "Response limit must be a positive number."},
}

var docValidate = validator.New()

// CheckDocument returns the first save rule pf violates, as a DocumentError,
// or nil.  now anchors the expiry rule.
func CheckDocument(pf PersistedForm, now time.Time) error {
	r := saveRules{
		Name:         strings.TrimSpace(pf.Name),
		Description:  pf.Description,
		Password:     pf.Password,
		Fields:       pf.Fields,
		MaxResponses: pf.MaxResponses,
	}
	if err := docValidate.Struct(r); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			if de, ok := ruleMessages[ves[0].Field()]; ok {
				return de
			}
		}
		return err
	}

	if pf.ExpiresAt != nil && !pf.ExpiresAt.After(now) {
		return DocumentError{Field: "expiresAt", Message: "Expiry date must be in the future."}
	}

	for i, f := range pf.Fields {
		if !f.Type.Valid() {
			return DocumentError{
				Field:   fmt.Sprintf("fields[%d].type", i),
				Message: fmt.Sprintf("Field %d has an unknown type %q.", i+1, f.Type),
			}
		}
		if strings.TrimSpace(f.Label) == "" {
			return DocumentError{
				Field:   fmt.Sprintf("fields[%d].label", i),
				Message: fmt.Sprintf("Field %d needs a label.", i+1),
			}
		}
		if f.Type.IsChoice() && (f.Config == nil || len(f.Config.Options) == 0) {
			return DocumentError{
				Field:   fmt.Sprintf("fields[%d].options", i),
				Message: fmt.Sprintf("Field %q needs at least one option.", f.Label),
			}
		}
		if f.Config != nil && f.Config.Pattern != "" {
			if _, err := regexp.Compile(f.Config.Pattern); err != nil {
				return DocumentError{
					Field:   fmt.Sprintf("fields[%d].config.pattern", i),
					Message: fmt.Sprintf("Field %q has an invalid format pattern.", f.Label),
				}
			}
		}
	}
	return nil
}
