// internal/form/errors.go
//
// Formaly – forms core: error taxonomy.
//
// Context
//   Three families of failure cross package boundaries:
//
//   •  DocumentError – a save rule was violated.  Carries the first rule only.
//   •  ValidationError – a response payload failed one or more field rules.
//      Carries every failure, in field order.
//   •  Sentinels – collaborator outcomes the HTTP layer maps onto status
//      codes (not found, wrong password, closed, and so on).
//
//   Callers tell user errors from system failures with errors.Is / errors.As.
//
//------------------------------------------------------------------------------

package form

import "errors"

// Sentinel errors returned by the core and its collaborators.
var (
	ErrNotFound            = errors.New("form not found")
	ErrFieldNotFound       = errors.New("field not found")
	ErrPresetMismatch      = errors.New("preset does not apply to this field type")
	ErrUnknownPreset       = errors.New("unknown preset")
	ErrUnknownFieldType    = errors.New("unknown field type")
	ErrInvalidPatch        = errors.New("invalid field change")
	ErrWrongPassword       = errors.New("wrong form password")
	ErrFormClosed          = errors.New("form is not accepting responses")
	ErrResponseCapReached  = errors.New("form reached its response limit")
	ErrDuplicateSubmission = errors.New("response already submitted from this respondent")
	ErrReadOnly            = errors.New("response is read-only")
	ErrInvalidTransition   = errors.New("operation not allowed in the current state")
)

// FieldError describes one failed field rule so the renderer can place the
// message next to the offending control.
type FieldError struct {
	FieldID string `json:"fieldId"`
	Message string `json:"message"`
}

// ValidationError wraps []FieldError and satisfies the error interface.
type ValidationError struct{ Fields []FieldError }

func (ValidationError) Error() string { return "form validation failed" }

// IsValidationError reports whether err carries field errors and returns
// them.
func IsValidationError(err error) ([]FieldError, bool) {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, true
	}
	return nil, false
}

// DocumentError reports the first violated save rule.
type DocumentError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e DocumentError) Error() string { return e.Message }

// IsDocumentError reports whether err is a save-rule violation.
func IsDocumentError(err error) (DocumentError, bool) {
	var de DocumentError
	ok := errors.As(err, &de)
	return de, ok
}
