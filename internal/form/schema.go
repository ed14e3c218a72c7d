// internal/form/schema.go
//
// Formaly – forms core: response validator derived from the field list.
//
// Context
//   DeriveValidator turns the current field sequence into a Validator.  It is
//   cheap and deliberately uncached: callers derive a fresh one after every
//   edit, so a validator can never lag behind the fields it checks.
//
// Workflow
//   •  Validate evaluates every field independently (no short-circuit) so the
//      respondent sees all problems at once.
//   •  Errors come back in field order, one per failing field.
//   •  On success the clean payload holds only known field ids, with values
//      normalised: trimmed strings, []string for checkboxes, time.Time for
//      dates, and FileHandle for files.
//
// Rules
//   •  Optional fields accept absent or empty values.  A non-empty value on an
//      optional field is still checked for shape.
//   •  text, email, phone, number – non-empty string, numbers coerced.  email
//      must look like an address and number must parse.
//   •  textarea – non-empty string, honouring config lengths.
//   •  date – a real calendar date.
//   •  select, radio – one of the options.
//   •  checkbox – a list drawn from the options, non-empty when required.
//   •  file – a file handle.
//   •  anything else – “type not supported” for that field.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/formaly/internal/fieldtype"
)

// Payload maps field id to a value: string, []string, time.Time,
// FileHandle, a JSON-decoded equivalent, or nothing.
type Payload map[string]any

// FileHandle describes an uploaded file.  Contents stay with the transport.
type FileHandle struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

// DateLayout is the wire format of date values.
const DateLayout = "2006-01-02"

// Validator checks payloads against a fixed field sequence.
type Validator struct {
	fields []Field
}

// DeriveValidator snapshots fields into a Validator.
func DeriveValidator(fields []Field) *Validator {
	return &Validator{fields: cloneFields(fields)}
}

// Validate returns the clean payload and nil, or nil and every field error
// in field order.
func (v *Validator) Validate(p Payload) (Payload, []FieldError) {
	clean := make(Payload, len(v.fields))
	var errs []FieldError

	for _, f := range v.fields {
		val, present := normalise(f, p[f.ID])
		if !present {
			if f.Required {
				errs = append(errs, FieldError{f.ID, msgRequired})
			}
			continue
		}

		out, msg := check(f, val)
		if msg != "" {
			errs = append(errs, FieldError{f.ID, msg})
			continue
		}
		clean[f.ID] = out
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return clean, nil
}

const (
	msgRequired    = "This field is required."
	msgEmail       = "Enter a valid email address."
	msgNumber      = "Enter a valid number."
	msgDate        = "Enter a valid date."
	msgOption      = "Choose one of the available options."
	msgFile        = "Attach a file."
	msgPattern     = "Input does not match required format."
	msgInvalid     = "Invalid input."
	msgUnsupported = "Field type not supported: %q."
)

var shapeCheck = validator.New()

// normalise coerces raw into the canonical Go shape for f and reports
// whether a value is present at all.  Empty strings, empty lists, and nil
// count as absent; the caller decides whether absence is fine.
func normalise(f Field, raw any) (any, bool) {
	switch f.Type {
	case fieldtype.Checkbox:
		list, ok := asStrings(raw)
		if !ok {
			return raw, raw != nil
		}
		return list, len(list) > 0
	case fieldtype.File:
		switch fh := raw.(type) {
		case nil:
			return nil, false
		case FileHandle:
			return fh, fh.Name != ""
		case *FileHandle:
			if fh == nil {
				return nil, false
			}
			return *fh, fh.Name != ""
		case map[string]any:
			name, _ := fh["name"].(string)
			size, _ := fh["size"].(float64)
			ct, _ := fh["contentType"].(string)
			return FileHandle{Name: name, Size: int64(size), ContentType: ct}, name != ""
		default:
			return raw, true
		}
	case fieldtype.Date:
		if t, ok := raw.(time.Time); ok {
			return t, !t.IsZero()
		}
	}

	switch x := raw.(type) {
	case nil:
		return nil, false
	case string:
		s := strings.TrimSpace(x)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	default:
		return raw, true
	}
}

// asStrings accepts []string, []any of strings, or a lone string.
func asStrings(raw any) ([]string, bool) {
	switch x := raw.(type) {
	case nil:
		return nil, true
	case []string:
		out := make([]string, 0, len(x))
		for _, s := range x {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return []string{s}, true
		}
		return []string{}, true
	default:
		return nil, false
	}
}

// check applies the per-type rule to a present value.
func check(f Field, val any) (any, string) {
	switch f.Type {
	case fieldtype.Text, fieldtype.Phone, fieldtype.Textarea:
		s, ok := val.(string)
		if !ok {
			return nil, msgInvalid
		}
		if msg := textConstraints(f, s); msg != "" {
			return nil, msg
		}
		return s, ""

	case fieldtype.Email:
		s, ok := val.(string)
		if !ok || shapeCheck.Var(s, "email") != nil {
			return nil, msgEmail
		}
		if msg := textConstraints(f, s); msg != "" {
			return nil, msg
		}
		return s, ""

	case fieldtype.Number:
		s, ok := val.(string)
		if !ok {
			return nil, msgNumber
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, msgNumber
		}
		if msg := numberConstraints(f, n); msg != "" {
			return nil, msg
		}
		return s, ""

	case fieldtype.Date:
		switch d := val.(type) {
		case time.Time:
			return d, ""
		case string:
			if t, err := time.Parse(DateLayout, d); err == nil {
				return t, ""
			}
			if t, err := time.Parse(time.RFC3339, d); err == nil {
				return t, ""
			}
		}
		return nil, msgDate

	case fieldtype.Select, fieldtype.Radio:
		s, ok := val.(string)
		if !ok || !slices.Contains(f.Options, s) {
			return nil, msgOption
		}
		return s, ""

	case fieldtype.Checkbox:
		list, ok := val.([]string)
		if !ok {
			return nil, msgOption
		}
		for _, s := range list {
			if !slices.Contains(f.Options, s) {
				return nil, msgOption
			}
		}
		return list, ""

	case fieldtype.File:
		fh, ok := val.(FileHandle)
		if !ok || fh.Name == "" {
			return nil, msgFile
		}
		return fh, ""

	default:
		return nil, fmt.Sprintf(msgUnsupported, string(f.Type))
	}
}

func textConstraints(f Field, s string) string {
	c, ok := f.Config.(TextConfig)
	if !ok {
		return ""
	}
	n := utf8.RuneCountInString(s)
	if c.MinLength > 0 && n < c.MinLength {
		return fmt.Sprintf("Must be at least %d characters.", c.MinLength)
	}
	if c.MaxLength > 0 && n > c.MaxLength {
		return fmt.Sprintf("Must be at most %d characters.", c.MaxLength)
	}
	if c.Pattern != "" {
		re, err := regexp.Compile(c.Pattern)
		if err != nil || !re.MatchString(s) {
			return msgPattern
		}
	}
	return ""
}

func numberConstraints(f Field, n float64) string {
	c, ok := f.Config.(NumberConfig)
	if !ok {
		return ""
	}
	if c.Min != nil && n < *c.Min {
		return "Must be at least " + strconv.FormatFloat(*c.Min, 'f', -1, 64) + "."
	}
	if c.Max != nil && n > *c.Max {
		return "Must be at most " + strconv.FormatFloat(*c.Max, 'f', -1, 64) + "."
	}
	return ""
}
