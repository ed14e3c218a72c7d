// internal/store/responses.go
//
// Form responses.
//
// Context
// -------
// One row per accepted submission.  The cleaned payload produced by the
// form validator is stored as a JSON object keyed by field id; the
// respondent summary (country, browser, device) is stored beside it for the
// owner's response list.
//
// InsertResponse enforces the response cap and the one-response-per-
// respondent rule inside a transaction that locks the form row, so two
// concurrent submissions cannot both take the last slot.
//
// Notes
// -----
// • JSON round-trips turn time.Time into RFC 3339 strings and slices into
//   []any.  The validator accepts both shapes when an owner edits a
//   response.
// • Oxford commas, two spaces after periods.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yanizio/formaly/internal/form"
	"github.com/yanizio/formaly/internal/logger"
)

// ErrResponseNotFound is returned for unknown response ids.
var ErrResponseNotFound = errors.New("response not found")

// Respondent is the non-identifying summary stored with a response.
type Respondent struct {
	Country string `json:"country,omitempty"`
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Device  string `json:"device,omitempty"`
	Lang    string `json:"lang,omitempty"`
	IsBot   bool   `json:"isBot,omitempty"`
}

// Response is one stored submission.
type Response struct {
	ID          string       `json:"id"`
	FormID      string       `json:"formId"`
	Values      form.Payload `json:"values"`
	Fingerprint string       `json:"-"`
	Respondent  Respondent   `json:"respondent"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// InsertGuard carries the per-form limits InsertResponse enforces.
type InsertGuard struct {
	MaxResponses      *int
	UniqueFingerprint bool
}

const responseColumns = `id, form_id, answers, fingerprint, respondent, created_at, updated_at`

type responseRow struct {
	ID          string    `db:"id"`
	FormID      string    `db:"form_id"`
	Answers     []byte    `db:"answers"`
	Fingerprint string    `db:"fingerprint"`
	Respondent  []byte    `db:"respondent"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r responseRow) response() (Response, error) {
	out := Response{
		ID:          r.ID,
		FormID:      r.FormID,
		Fingerprint: r.Fingerprint,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if err := json.Unmarshal(r.Answers, &out.Values); err != nil {
		return Response{}, fmt.Errorf("store: decode response %s: %w", r.ID, err)
	}
	if len(r.Respondent) > 0 {
		if err := json.Unmarshal(r.Respondent, &out.Respondent); err != nil {
			return Response{}, fmt.Errorf("store: decode respondent of %s: %w", r.ID, err)
		}
	}
	return out, nil
}

// InsertResponse stores r under a fresh id after checking g.  It returns
// form.ErrNotFound, form.ErrResponseCapReached, or
// form.ErrDuplicateSubmission when a gate refuses.
func (s *Store) InsertResponse(ctx context.Context, r Response, g InsertGuard) (Response, error) {
	answers, err := json.Marshal(r.Values)
	if err != nil {
		return Response{}, fmt.Errorf("store: encode response: %w", err)
	}
	who, err := json.Marshal(r.Respondent)
	if err != nil {
		return Response{}, fmt.Errorf("store: encode respondent: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = tx.Rollback() }() // no-op after Commit

	var locked string
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM form WHERE id = ? FOR UPDATE`, r.FormID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Response{}, form.ErrNotFound
		}
		return Response{}, fmt.Errorf("store: lock form %s: %w", r.FormID, err)
	}

	if g.MaxResponses != nil {
		var n int
		if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM form_response WHERE form_id = ?`, r.FormID); err != nil {
			return Response{}, fmt.Errorf("store: count responses: %w", err)
		}
		if n >= *g.MaxResponses {
			return Response{}, form.ErrResponseCapReached
		}
	}

	if g.UniqueFingerprint && r.Fingerprint != "" {
		var seen int
		err := tx.GetContext(ctx, &seen,
			`SELECT 1 FROM form_response WHERE form_id = ? AND fingerprint = ? LIMIT 1`,
			r.FormID, r.Fingerprint)
		switch {
		case err == nil:
			return Response{}, form.ErrDuplicateSubmission
		case !errors.Is(err, sql.ErrNoRows):
			return Response{}, fmt.Errorf("store: fingerprint lookup: %w", err)
		}
	}

	now := s.now()
	r.ID = uuid.NewString()
	r.CreatedAt, r.UpdatedAt = now, now

	const q = `INSERT INTO form_response (` + responseColumns + `)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, r.ID, r.FormID, answers, r.Fingerprint, who, now, now); err != nil {
		return Response{}, fmt.Errorf("store: insert response: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Response{}, err
	}

	logger.FromContext(ctx).Infow("response stored", "form_id", r.FormID, "response_id", r.ID)
	return r, nil
}

// UpdateResponse replaces the answers of response id in form formID.
func (s *Store) UpdateResponse(ctx context.Context, formID, id string, values form.Payload) (Response, error) {
	answers, err := json.Marshal(values)
	if err != nil {
		return Response{}, fmt.Errorf("store: encode response: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE form_response SET answers = ?, updated_at = ? WHERE id = ? AND form_id = ?`,
		answers, s.now(), id, formID)
	if err != nil {
		return Response{}, fmt.Errorf("store: update response %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Response{}, ErrResponseNotFound
	}
	return s.GetResponse(ctx, formID, id)
}

// GetResponse returns one response of form formID.
func (s *Store) GetResponse(ctx context.Context, formID, id string) (Response, error) {
	const q = `SELECT ` + responseColumns + ` FROM form_response WHERE id = ? AND form_id = ? LIMIT 1`
	var row responseRow
	if err := s.db.GetContext(ctx, &row, q, id, formID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Response{}, ErrResponseNotFound
		}
		return Response{}, fmt.Errorf("store: get response %s: %w", id, err)
	}
	return row.response()
}

// ListResponses pages through the responses of formID, newest first.
func (s *Store) ListResponses(ctx context.Context, formID string, limit, offset int) ([]Response, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + responseColumns + `
                 FROM form_response
                WHERE form_id = ?
                ORDER BY created_at DESC
                LIMIT ? OFFSET ?`
	var rows []responseRow
	if err := s.db.SelectContext(ctx, &rows, q, formID, limit, offset); err != nil {
		return nil, fmt.Errorf("store: list responses: %w", err)
	}
	out := make([]Response, 0, len(rows))
	for _, row := range rows {
		r, err := row.response()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// CountResponses returns how many responses formID holds.
func (s *Store) CountResponses(ctx context.Context, formID string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM form_response WHERE form_id = ?`, formID); err != nil {
		return 0, fmt.Errorf("store: count responses: %w", err)
	}
	return n, nil
}

// HasFingerprint reports whether formID already holds a response from fp.
func (s *Store) HasFingerprint(ctx context.Context, formID, fp string) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one,
		`SELECT 1 FROM form_response WHERE form_id = ? AND fingerprint = ? LIMIT 1`, formID, fp)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("store: fingerprint lookup: %w", err)
	}
}
