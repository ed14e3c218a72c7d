// internal/form/capture.go
//
// Formaly – forms core: response capture and replay.
//
// Context
//   A Capture holds the values a respondent (or an owner editing a stored
//   response) has entered so far, plus the per-field messages from the last
//   failed submit.  Submit derives a validator from the fields at that moment,
//   validates, and only then hands the clean payload to the caller's
//   submitter.  Field messages stay in place until a submit succeeds.
//
//   Read-only captures replay a stored response: Set and Submit refuse, the
//   renderer disables inputs and offers a copy button per value.
//
// Workflow
//   •  NewCapture(fields, initial)
//   •  Set(id, value) while the respondent types.
//   •  Submit(ctx, fn) → ValidationError, fn's error, or nil.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"maps"
	"mime/multipart"
	"net/url"
	"slices"

	"github.com/yanizio/formaly/internal/fieldtype"
)

// SubmitFunc receives the validated payload.
type SubmitFunc func(ctx context.Context, clean Payload) error

// Capture is not safe for concurrent use.
type Capture struct {
	fields   []Field
	values   Payload
	errs     map[string]string
	readOnly bool
}

// NewCapture starts a capture over fields with optional initial values.
func NewCapture(fields []Field, initial Payload) *Capture {
	c := &Capture{
		fields: cloneFields(fields),
		values: make(Payload, len(fields)),
		errs:   make(map[string]string),
	}
	maps.Copy(c.values, initial)
	return c
}

// Fields returns the fields the capture renders.
func (c *Capture) Fields() []Field { return cloneFields(c.fields) }

// Values returns a copy of the current payload.
func (c *Capture) Values() Payload { return maps.Clone(c.values) }

// Errors returns a copy of the per-field messages from the last submit.
func (c *Capture) Errors() map[string]string { return maps.Clone(c.errs) }

// ReadOnly reports whether the capture refuses edits.
func (c *Capture) ReadOnly() bool { return c.readOnly }

// SetReadOnly toggles replay mode.
func (c *Capture) SetReadOnly(ro bool) { c.readOnly = ro }

// Set stores v for field id.
func (c *Capture) Set(id string, v any) error {
	if c.readOnly {
		return ErrReadOnly
	}
	if !slices.ContainsFunc(c.fields, func(f Field) bool { return f.ID == id }) {
		return ErrFieldNotFound
	}
	c.values[id] = v
	return nil
}

// Submit validates the payload and, when clean, passes it to fn.  A
// ValidationError from validation or from fn populates the field messages;
// any other failure leaves them as they were.
func (c *Capture) Submit(ctx context.Context, fn SubmitFunc) error {
	if c.readOnly {
		return ErrReadOnly
	}

	clean, errs := DeriveValidator(c.fields).Validate(c.values)
	if len(errs) > 0 {
		c.setErrors(errs)
		return ValidationError{Fields: errs}
	}

	if err := fn(ctx, clean); err != nil {
		if fe, ok := IsValidationError(err); ok {
			c.setErrors(fe)
		}
		return err
	}

	clear(c.errs)
	return nil
}

func (c *Capture) setErrors(errs []FieldError) {
	clear(c.errs)
	for _, e := range errs {
		c.errs[e.FieldID] = e.Message
	}
}

// PayloadFromValues reads a posted HTML form into a Payload keyed by field
// id.  Checkbox groups keep every checked value; file inputs become
// FileHandles.  files may be nil for urlencoded posts.
func PayloadFromValues(fields []Field, v url.Values, files map[string][]*multipart.FileHeader) Payload {
	p := make(Payload, len(fields))
	for _, f := range fields {
		switch f.Type {
		case fieldtype.Checkbox:
			if vals, ok := v[f.ID]; ok {
				p[f.ID] = slices.Clone(vals)
			}
		case fieldtype.File:
			if hs := files[f.ID]; len(hs) > 0 {
				h := hs[0]
				p[f.ID] = FileHandle{
					Name:        h.Filename,
					Size:        h.Size,
					ContentType: h.Header.Get("Content-Type"),
				}
			}
		default:
			if v.Has(f.ID) {
				p[f.ID] = v.Get(f.ID)
			}
		}
	}
	return p
}
