// internal/view/json.go
//
// JSON responses and the error → status mapping shared by every API.
//
// Context
// -------
// Handlers return domain errors; Error translates them once, here:
//
//	form.ValidationError      → 422 {error, fields}
//	form.DocumentError        → 422 {error, field}
//	form.ErrNotFound,
//	store.ErrResponseNotFound,
//	form.ErrFieldNotFound     → 404
//	form.ErrWrongPassword     → 403
//	form.ErrFormClosed,
//	form.ErrResponseCapReached,
//	form.ErrDuplicateSubmission → 409
//	bad input (ErrBadRequest,
//	ErrInvalidPatch, preset
//	and type errors)          → 400
//	anything else             → 500, generic message, logged at ERROR
//
// Notes
// -----
// • Request bodies are capped at 1 MiB and unknown JSON keys are refused,
//   so a typo in an ops batch fails loudly instead of being ignored.
// • Oxford commas, two spaces after periods.

package view

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/yanizio/formaly/internal/form"
	"github.com/yanizio/formaly/internal/logger"
	"github.com/yanizio/formaly/internal/store"
)

const maxBody = 1 << 20

// ErrBadRequest marks malformed input.  Wrap it with fmt.Errorf("%w: …").
var ErrBadRequest = errors.New("bad request")

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Field  string            `json:"field,omitempty"`
	Fields []form.FieldError `json:"fields,omitempty"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Decode reads one JSON document from r into v.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// Status maps err onto an HTTP status and body.
func Status(err error) (int, ErrorBody) {
	if fe, ok := form.IsValidationError(err); ok {
		return http.StatusUnprocessableEntity, ErrorBody{Error: err.Error(), Fields: fe}
	}
	if de, ok := form.IsDocumentError(err); ok {
		return http.StatusUnprocessableEntity, ErrorBody{Error: de.Message, Field: de.Field}
	}
	switch {
	case errors.Is(err, form.ErrNotFound),
		errors.Is(err, store.ErrResponseNotFound),
		errors.Is(err, form.ErrFieldNotFound):
		return http.StatusNotFound, ErrorBody{Error: err.Error()}
	case errors.Is(err, form.ErrWrongPassword):
		return http.StatusForbidden, ErrorBody{Error: err.Error()}
	case errors.Is(err, form.ErrFormClosed),
		errors.Is(err, form.ErrResponseCapReached),
		errors.Is(err, form.ErrDuplicateSubmission):
		return http.StatusConflict, ErrorBody{Error: err.Error()}
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, form.ErrInvalidPatch),
		errors.Is(err, form.ErrPresetMismatch),
		errors.Is(err, form.ErrUnknownPreset),
		errors.Is(err, form.ErrUnknownFieldType),
		errors.Is(err, form.ErrInvalidTransition):
		return http.StatusBadRequest, ErrorBody{Error: err.Error()}
	}
	return http.StatusInternalServerError, ErrorBody{Error: "internal error"}
}

// Error writes the mapped JSON error for err.  5xx causes are logged.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, body := Status(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Errorw("request failed", "path", r.URL.Path, "err", err)
	}
	JSON(w, status, body)
}
