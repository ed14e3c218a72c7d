// internal/store/forms.go
//
// MySQL-backed form repository.
//
// Context
// -------
// Store implements form.FormsService on top of sqlx.  Every write re-checks
// the document save rules so a caller that bypasses the builder (the JSON
// API, a script) cannot persist a document the builder would refuse.
//
// Access passwords are never stored in clear.  A non-empty
// PersistedForm.Password is hashed with bcrypt; ClearPassword removes the
// hash; otherwise an update keeps whatever hash is stored.
//
// Workflow
// --------
//   - Create  → INSERT with a fresh UUID and timestamps.
//   - Update  → UPDATE by id, then re-read so the caller sees stored state.
//   - GetByID → one row, form.ErrNotFound when missing.
//   - Delete  → DELETE by id; responses go with it (FK cascade).
//   - Clone   → copy named "<name> (cópia)", fresh field ids, inactive.
//   - List    → an owner's forms, most recently updated first.
//
// Notes
// -----
// • Owner scoping is the caller's job; see components/forms.
// • Oxford commas, two spaces after periods.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/formaly/internal/form"
	"github.com/yanizio/formaly/internal/logger"
)

// CloneSuffix is appended to the name of a cloned form.
const CloneSuffix = " (cópia)"

// maxNameRunes matches the form.name column and the document name rule.
const maxNameRunes = 100

// Store is safe for concurrent use.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// New wraps an open pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

/*──────────────────────────── row mapping ─────────────────────────────────*/

const formColumns = `id, owner_id, name, description, password_hash, fields,
        expires_at, max_responses, allow_multiple_submissions,
        success_message, is_active, created_at, updated_at`

type formRow struct {
	ID             string         `db:"id"`
	OwnerID        string         `db:"owner_id"`
	Name           string         `db:"name"`
	Description    string         `db:"description"`
	PasswordHash   sql.NullString `db:"password_hash"`
	Fields         []byte         `db:"fields"`
	ExpiresAt      sql.NullTime   `db:"expires_at"`
	MaxResponses   sql.NullInt64  `db:"max_responses"`
	AllowMultiple  bool           `db:"allow_multiple_submissions"`
	SuccessMessage string         `db:"success_message"`
	IsActive       bool           `db:"is_active"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r formRow) persisted() (form.PersistedForm, error) {
	var fields []form.PersistedField
	if err := json.Unmarshal(r.Fields, &fields); err != nil {
		return form.PersistedForm{}, fmt.Errorf("store: decode fields of form %s: %w", r.ID, err)
	}
	if fields == nil {
		fields = []form.PersistedField{}
	}
	pf := form.PersistedForm{
		ID:                       r.ID,
		OwnerID:                  r.OwnerID,
		Name:                     r.Name,
		Description:              r.Description,
		RequiresPassword:         r.PasswordHash.Valid && r.PasswordHash.String != "",
		Fields:                   fields,
		AllowMultipleSubmissions: r.AllowMultiple,
		SuccessMessage:           r.SuccessMessage,
		IsActive:                 r.IsActive,
		CreatedAt:                r.CreatedAt,
		UpdatedAt:                r.UpdatedAt,
	}
	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time
		pf.ExpiresAt = &t
	}
	if r.MaxResponses.Valid {
		n := int(r.MaxResponses.Int64)
		pf.MaxResponses = &n
	}
	return pf, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func encodeFields(fs []form.PersistedField) ([]byte, error) {
	if fs == nil {
		fs = []form.PersistedField{}
	}
	return json.Marshal(fs)
}

// HashPassword returns the bcrypt hash stored for an access password.
func HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

/*──────────────────────────── FormsService ────────────────────────────────*/

// Create inserts pf under a fresh id.  pf.OwnerID must be set.
func (s *Store) Create(ctx context.Context, pf form.PersistedForm) (form.PersistedForm, error) {
	now := s.now()
	if err := form.CheckDocument(pf, now); err != nil {
		return form.PersistedForm{}, err
	}
	if pf.OwnerID == "" {
		return form.PersistedForm{}, errors.New("store: create: owner id is required")
	}

	fields, err := encodeFields(pf.Fields)
	if err != nil {
		return form.PersistedForm{}, err
	}
	var hash sql.NullString
	if pf.Password != "" {
		h, err := HashPassword(pf.Password)
		if err != nil {
			return form.PersistedForm{}, err
		}
		hash = sql.NullString{String: h, Valid: true}
	}

	id := uuid.NewString()
	const q = `INSERT INTO form (` + formColumns + `)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		id, pf.OwnerID, pf.Name, pf.Description, hash, fields,
		nullTime(pf.ExpiresAt), nullInt(pf.MaxResponses), pf.AllowMultipleSubmissions,
		pf.SuccessMessage, pf.IsActive, now, now,
	); err != nil {
		return form.PersistedForm{}, fmt.Errorf("store: insert form: %w", err)
	}

	logger.FromContext(ctx).Infow("form created", "form_id", id, "owner", pf.OwnerID)

	out := pf
	out.ID = id
	out.Password = ""
	out.ClearPassword = false
	out.RequiresPassword = hash.Valid
	out.CreatedAt, out.UpdatedAt = now, now
	return out, nil
}

// Update overwrites the definition of form id.
func (s *Store) Update(ctx context.Context, id string, pf form.PersistedForm) (form.PersistedForm, error) {
	now := s.now()
	if err := form.CheckDocument(pf, now); err != nil {
		return form.PersistedForm{}, err
	}
	fields, err := encodeFields(pf.Fields)
	if err != nil {
		return form.PersistedForm{}, err
	}

	q := `UPDATE form
             SET name = ?, description = ?, fields = ?, expires_at = ?,
                 max_responses = ?, allow_multiple_submissions = ?,
                 success_message = ?, is_active = ?, updated_at = ?`
	args := []any{
		pf.Name, pf.Description, fields, nullTime(pf.ExpiresAt),
		nullInt(pf.MaxResponses), pf.AllowMultipleSubmissions,
		pf.SuccessMessage, pf.IsActive, now,
	}
	switch {
	case pf.Password != "":
		h, err := HashPassword(pf.Password)
		if err != nil {
			return form.PersistedForm{}, err
		}
		q += `, password_hash = ?`
		args = append(args, h)
	case pf.ClearPassword:
		q += `, password_hash = NULL`
	}
	q += ` WHERE id = ?`
	args = append(args, id)

	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return form.PersistedForm{}, fmt.Errorf("store: update form %s: %w", id, err)
	}
	logger.FromContext(ctx).Infow("form updated", "form_id", id)
	return s.GetByID(ctx, id)
}

func (s *Store) getRow(ctx context.Context, id string) (formRow, error) {
	const q = `SELECT ` + formColumns + ` FROM form WHERE id = ? LIMIT 1`
	var row formRow
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return formRow{}, form.ErrNotFound
		}
		return formRow{}, fmt.Errorf("store: get form %s: %w", id, err)
	}
	return row, nil
}

// GetByID returns one form or form.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (form.PersistedForm, error) {
	row, err := s.getRow(ctx, id)
	if err != nil {
		return form.PersistedForm{}, err
	}
	return row.persisted()
}

// Delete removes form id and, through the FK cascade, its responses.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM form WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete form %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return form.ErrNotFound
	}
	logger.FromContext(ctx).Infow("form deleted", "form_id", id)
	return nil
}

// Clone copies form id.  The copy gets fresh field ids, keeps the access
// password, and starts inactive so it is never public by accident.
func (s *Store) Clone(ctx context.Context, id string) (form.PersistedForm, error) {
	row, err := s.getRow(ctx, id)
	if err != nil {
		return form.PersistedForm{}, err
	}
	src, err := row.persisted()
	if err != nil {
		return form.PersistedForm{}, err
	}

	fields := make([]form.PersistedField, len(src.Fields))
	for i, f := range src.Fields {
		f.ID = uuid.NewString()
		fields[i] = f
	}
	enc, err := encodeFields(fields)
	if err != nil {
		return form.PersistedForm{}, err
	}

	now := s.now()
	cp := src
	cp.ID = uuid.NewString()
	cp.Name = cloneName(src.Name)
	cp.Fields = fields
	cp.IsActive = false
	cp.CreatedAt, cp.UpdatedAt = now, now

	const q = `INSERT INTO form (` + formColumns + `)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		cp.ID, cp.OwnerID, cp.Name, cp.Description, row.PasswordHash, enc,
		row.ExpiresAt, row.MaxResponses, cp.AllowMultipleSubmissions,
		cp.SuccessMessage, false, now, now,
	); err != nil {
		return form.PersistedForm{}, fmt.Errorf("store: clone form %s: %w", id, err)
	}
	logger.FromContext(ctx).Infow("form cloned", "form_id", id, "clone_id", cp.ID)
	return cp, nil
}

// cloneName appends CloneSuffix, cutting the base so the result still fits
// maxNameRunes.
func cloneName(name string) string {
	room := maxNameRunes - utf8.RuneCountInString(CloneSuffix)
	if r := []rune(name); len(r) > room {
		name = strings.TrimRight(string(r[:room]), " ")
	}
	return name + CloneSuffix
}

// List returns the forms owned by owner, most recently updated first.
func (s *Store) List(ctx context.Context, owner string) ([]form.PersistedForm, error) {
	const q = `SELECT ` + formColumns + `
                 FROM form
                WHERE owner_id = ?
                ORDER BY updated_at DESC`
	var rows []formRow
	if err := s.db.SelectContext(ctx, &rows, q, owner); err != nil {
		return nil, fmt.Errorf("store: list forms: %w", err)
	}
	out := make([]form.PersistedForm, 0, len(rows))
	for _, r := range rows {
		pf, err := r.persisted()
		if err != nil {
			return nil, err
		}
		out = append(out, pf)
	}
	return out, nil
}

// CheckPassword reports whether plain opens form id.  A form without a
// password accepts anything.
func (s *Store) CheckPassword(ctx context.Context, id, plain string) (bool, error) {
	var hash sql.NullString
	err := s.db.GetContext(ctx, &hash, `SELECT password_hash FROM form WHERE id = ? LIMIT 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, form.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("store: password of form %s: %w", id, err)
	}
	if !hash.Valid || hash.String == "" {
		return true, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(hash.String), []byte(plain)) == nil, nil
}
