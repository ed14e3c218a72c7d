// internal/client/client.go
//
// HTTP implementation of form.PublicForms.
//
// Context
// -------
// The terminal respondent runs a form.Flow against a remote Formaly.  This
// client speaks the public JSON API and turns its error bodies back into
// the core's sentinel errors, so the Flow sees the same outcomes it would
// see in-process:
//
//	404 → form.ErrNotFound
//	403 → form.ErrWrongPassword
//	409 → form.ErrFormClosed, ErrResponseCapReached, or ErrDuplicateSubmission
//	422 → form.ValidationError with the server's field messages
//
// Anything else surfaces as *StatusError.  Calls are not retried.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yanizio/formaly/internal/fieldtype"
	"github.com/yanizio/formaly/internal/form"
)

const maxBody = 1 << 20

// StatusError is an unexpected HTTP status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("formaly: HTTP %d: %s", e.Code, e.Message)
}

// Client is safe for concurrent use.
type Client struct {
	base string
	http *http.Client
}

var _ form.PublicForms = (*Client)(nil)

// New returns a client for the server at baseURL.  timeout 0 means 15s.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: invalid base url %q", baseURL)
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base: strings.TrimRight(u.String(), "/"),
		http: &http.Client{Timeout: timeout},
	}, nil
}

/*──────────────────────────── PublicForms ─────────────────────────────────*/

// GetPublicForm fetches the respondent view of id.
func (c *Client) GetPublicForm(ctx context.Context, id string) (form.PublicForm, error) {
	var pf form.PublicForm
	err := c.do(ctx, http.MethodGet, "/api/public/forms/"+url.PathEscape(id), nil, &pf)
	return pf, err
}

// ValidatePassword asks the server whether password opens id.
func (c *Client) ValidatePassword(ctx context.Context, id, password string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	err := c.do(ctx, http.MethodPost, "/api/public/forms/"+url.PathEscape(id)+"/password",
		map[string]string{"password": password}, &out)
	return out.Valid, err
}

// SubmitForm posts one answer set.
func (c *Client) SubmitForm(ctx context.Context, id string, sub form.Submission) (form.Receipt, error) {
	var r form.Receipt
	err := c.do(ctx, http.MethodPost, "/api/public/forms/"+url.PathEscape(id)+"/submissions", sub, &r)
	return r, err
}

/*──────────────────────────── catalog ─────────────────────────────────────*/

// Catalog is the field type palette with grouped presets.
type Catalog struct {
	Types   []fieldtype.Descriptor `json:"types"`
	Presets []fieldtype.Group      `json:"presets"`
}

// FieldTypes lists the palette.  A non-empty t filters presets by type.
func (c *Client) FieldTypes(ctx context.Context, t string) (Catalog, error) {
	path := "/api/field-types"
	if t != "" {
		path += "?type=" + url.QueryEscape(t)
	}
	var out Catalog
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

/*──────────────────────────── transport ───────────────────────────────────*/

// errorBody mirrors the server's error JSON.
type errorBody struct {
	Error  string            `json:"error"`
	Field  string            `json:"field,omitempty"`
	Fields []form.FieldError `json:"fields,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}

// conflicts are the 409 outcomes, matched on the server's message.
var conflicts = []error{
	form.ErrFormClosed,
	form.ErrResponseCapReached,
	form.ErrDuplicateSubmission,
}

func decodeError(code int, raw []byte) error {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)

	switch code {
	case http.StatusNotFound:
		return form.ErrNotFound
	case http.StatusForbidden:
		return form.ErrWrongPassword
	case http.StatusConflict:
		for _, e := range conflicts {
			if eb.Error == e.Error() {
				return e
			}
		}
		return form.ErrFormClosed
	case http.StatusUnprocessableEntity:
		if len(eb.Fields) > 0 {
			return form.ValidationError{Fields: eb.Fields}
		}
		if eb.Field != "" {
			return form.DocumentError{Field: eb.Field, Message: eb.Error}
		}
	}
	msg := eb.Error
	if msg == "" {
		msg = http.StatusText(code)
	}
	return &StatusError{Code: code, Message: msg}
}

// IsStatus reports whether err is a StatusError with code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
