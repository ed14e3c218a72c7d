// internal/form/builder.go
//
// Formaly – forms core: builder state machine.
//
// Context
//   A Builder owns one Document for the length of an editing session.  It is
//   the single source of truth for the builder, preview, and settings views;
//   each view reads through Document() or Fields() and gets a copy, so no view
//   can drift from the others.
//
//   Every operation is synchronous and all-or-nothing.  A rejected operation
//   leaves the document exactly as it was.  Operations return the updated
//   field sequence so callers can re-render without a second read.
//
//   ReorderByDrag is a full, idempotent reorder of the sequence.  Drag ticks
//   may arrive out of order or be dropped; each one is applied on its own
//   terms, never as a delta against the previous tick.
//
// Workflow
//   •  NewBuilder(reg)           → create mode, empty document.
//   •  HydrateBuilder(reg, pf)   → edit mode, document from storage.
//   •  AddField, RemoveField, MoveUp, MoveDown, ReorderByDrag, UpdateField,
//      ApplyPreset, UpdateSettings mutate the document.
//   •  Save(ctx, svc) flattens, checks save rules, then creates or updates.
//
// Notes
//   Builders are not safe for concurrent use; one editing session owns one
//   builder.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/yanizio/formaly/internal/fieldtype"
	"github.com/yanizio/formaly/internal/logger"
	"github.com/yanizio/formaly/internal/metrics"
)

// Mode tells Save whether to create or update.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// View is the active builder tab.  It is UI state, not document state.
type View string

const (
	ViewBuilder  View = "builder"
	ViewPreview  View = "preview"
	ViewSettings View = "settings"
)

// Builder edits one Document.
type Builder struct {
	presets PresetLookup
	mode    Mode
	view    View
	doc     Document
	now     func() time.Time
}

// NewBuilder starts an empty document in create mode.
func NewBuilder(presets PresetLookup) *Builder {
	return &Builder{
		presets: presets,
		mode:    ModeCreate,
		view:    ViewBuilder,
		doc:     Document{Settings: Settings{IsActive: true}},
		now:     time.Now,
	}
}

// HydrateBuilder opens a persisted document in edit mode.
func HydrateBuilder(presets PresetLookup, pf PersistedForm) *Builder {
	b := NewBuilder(presets)
	b.mode = ModeEdit
	b.doc = Document{
		ID:               pf.ID,
		Name:             pf.Name,
		Description:      pf.Description,
		RequiresPassword: pf.RequiresPassword,
		Fields:           Unflatten(pf.Fields),
		Settings: Settings{
			ExpiresAt:                cloneTime(pf.ExpiresAt),
			MaxResponses:             cloneInt(pf.MaxResponses),
			AllowMultipleSubmissions: pf.AllowMultipleSubmissions,
			SuccessMessage:           pf.SuccessMessage,
			IsActive:                 pf.IsActive,
		},
	}
	return b
}

// Mode reports create or edit.
func (b *Builder) Mode() Mode { return b.mode }

// Document returns a copy of the document.
func (b *Builder) Document() Document { return b.doc.clone() }

// Fields returns a copy of the field sequence.
func (b *Builder) Fields() []Field { return cloneFields(b.doc.Fields) }

// View returns the active tab.
func (b *Builder) View() View { return b.view }

// SetView switches tabs.  Unknown views are ignored.
func (b *Builder) SetView(v View) {
	switch v {
	case ViewBuilder, ViewPreview, ViewSettings:
		b.view = v
	}
}

/*──────────────────────────── field operations ────────────────────────────*/

// AddField appends a fresh field of type t.
func (b *Builder) AddField(t FieldType) ([]Field, error) {
	f, err := NewField(t)
	if err != nil {
		return b.Fields(), err
	}
	b.doc.Fields = append(b.doc.Fields, f)
	return b.Fields(), nil
}

// RemoveField deletes the field with id.  Unknown ids are a no-op.
func (b *Builder) RemoveField(id string) []Field {
	b.doc.Fields = slices.DeleteFunc(b.doc.Fields, func(f Field) bool { return f.ID == id })
	return b.Fields()
}

// MoveUp swaps the field at i with its predecessor.
func (b *Builder) MoveUp(i int) []Field {
	b.doc.Fields = moveUp(b.doc.Fields, i)
	return b.Fields()
}

// MoveDown swaps the field at i with its successor.
func (b *Builder) MoveDown(i int) []Field {
	b.doc.Fields = moveDown(b.doc.Fields, i)
	return b.Fields()
}

// ReorderByDrag moves the field at from to position to.
func (b *Builder) ReorderByDrag(from, to int) []Field {
	b.doc.Fields = reorder(b.doc.Fields, from, to)
	return b.Fields()
}

func moveUp(fs []Field, i int) []Field {
	if i <= 0 || i >= len(fs) {
		return fs
	}
	fs[i-1], fs[i] = fs[i], fs[i-1]
	return fs
}

func moveDown(fs []Field, i int) []Field {
	if i < 0 || i >= len(fs)-1 {
		return fs
	}
	fs[i], fs[i+1] = fs[i+1], fs[i]
	return fs
}

// reorder removes fs[from] and reinserts it at to.  Out-of-range indexes
// leave the sequence untouched.
func reorder(fs []Field, from, to int) []Field {
	if from == to || from < 0 || to < 0 || from >= len(fs) || to >= len(fs) {
		return fs
	}
	moved := fs[from]
	fs = slices.Delete(fs, from, from+1)
	return slices.Insert(fs, to, moved)
}

// FieldPatch is a shallow set of changes.  Nil members are left alone.
type FieldPatch struct {
	Label       *string          `json:"label,omitempty"`
	Name        *string          `json:"name,omitempty"`
	Placeholder *string          `json:"placeholder,omitempty"`
	Required    *bool            `json:"required,omitempty"`
	Options     []string         `json:"options,omitempty"`
	Config      *PersistedConfig `json:"config,omitempty"`
}

// UpdateField merges p into the field with id.
func (b *Builder) UpdateField(id string, p FieldPatch) ([]Field, error) {
	i := b.indexOf(id)
	if i < 0 {
		return b.Fields(), ErrFieldNotFound
	}
	f := b.doc.Fields[i].clone()

	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Placeholder != nil {
		f.Placeholder = *p.Placeholder
	}
	if p.Required != nil {
		f.Required = *p.Required
	}
	if p.Options != nil {
		if !f.Type.IsChoice() || len(p.Options) == 0 {
			return b.Fields(), ErrInvalidPatch
		}
		f.Options = slices.Clone(p.Options)
	}
	if p.Config != nil {
		if !f.Type.IsTextual() && f.Type != fieldtype.Number {
			return b.Fields(), ErrInvalidPatch
		}
		if p.Config.Pattern != "" {
			if _, err := regexp.Compile(p.Config.Pattern); err != nil {
				return b.Fields(), fmt.Errorf("%w: pattern: %v", ErrInvalidPatch, err)
			}
		}
		f.Config = configFor(f.Type, p.Config)
	}

	b.doc.Fields[i] = f
	return b.Fields(), nil
}

// ApplyPreset replaces label, placeholder, and constraints with a preset's.  The
// name "custom" only clears the preset reference.  A preset whose HTML type
// differs from the field's type is rejected with ErrPresetMismatch.
func (b *Builder) ApplyPreset(id, name string) ([]Field, error) {
	i := b.indexOf(id)
	if i < 0 {
		return b.Fields(), ErrFieldNotFound
	}
	f := b.doc.Fields[i]

	if name == fieldtype.Custom {
		f.PresetRef = ""
		b.doc.Fields[i] = f
		return b.Fields(), nil
	}

	p, ok := b.presets.Preset(name)
	if !ok {
		return b.Fields(), ErrUnknownPreset
	}
	if p.HTMLType != f.Type {
		return b.Fields(), ErrPresetMismatch
	}

	f = f.clone()
	f.PresetRef = p.Name
	f.Label = p.Label
	f.Placeholder = p.Placeholder
	f.Config = configFromHints(f.Type, p.ValidationHints)
	b.doc.Fields[i] = f
	return b.Fields(), nil
}

func (b *Builder) indexOf(id string) int {
	return slices.IndexFunc(b.doc.Fields, func(f Field) bool { return f.ID == id })
}

/*──────────────────────────── settings ────────────────────────────────────*/

// SettingsPatch changes form-level metadata.  Nil members are left alone.
// Password "" removes the access password.
type SettingsPatch struct {
	Name                     *string    `json:"name,omitempty"`
	Description              *string    `json:"description,omitempty"`
	Password                 *string    `json:"password,omitempty"`
	ExpiresAt                *time.Time `json:"expiresAt,omitempty"`
	ClearExpiresAt           bool       `json:"clearExpiresAt,omitempty"`
	MaxResponses             *int       `json:"maxResponses,omitempty"`
	ClearMaxResponses        bool       `json:"clearMaxResponses,omitempty"`
	AllowMultipleSubmissions *bool      `json:"allowMultipleSubmissions,omitempty"`
	SuccessMessage           *string    `json:"successMessage,omitempty"`
	IsActive                 *bool      `json:"isActive,omitempty"`
}

// UpdateSettings applies p.  Values are checked on Save, not here, so a
// half-typed name does not bounce.
func (b *Builder) UpdateSettings(p SettingsPatch) Document {
	d := &b.doc
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Password != nil {
		d.Password = *p.Password
		d.RequiresPassword = *p.Password != ""
	}
	switch {
	case p.ClearExpiresAt:
		d.Settings.ExpiresAt = nil
	case p.ExpiresAt != nil:
		d.Settings.ExpiresAt = cloneTime(p.ExpiresAt)
	}
	switch {
	case p.ClearMaxResponses:
		d.Settings.MaxResponses = nil
	case p.MaxResponses != nil:
		d.Settings.MaxResponses = cloneInt(p.MaxResponses)
	}
	if p.AllowMultipleSubmissions != nil {
		d.Settings.AllowMultipleSubmissions = *p.AllowMultipleSubmissions
	}
	if p.SuccessMessage != nil {
		d.Settings.SuccessMessage = *p.SuccessMessage
	}
	if p.IsActive != nil {
		d.Settings.IsActive = *p.IsActive
	}
	return b.Document()
}

/*──────────────────────────── save ────────────────────────────────────────*/

// Persisted maps the document onto the storage shape, defaulting blank
// names from labels.
func (b *Builder) Persisted() PersistedForm {
	fields := b.Fields()
	for i := range fields {
		if fields[i].Name == "" {
			fields[i].Name = DeriveName(fields[i].Label)
		}
	}
	d := b.doc
	return PersistedForm{
		ID:                       d.ID,
		Name:                     d.Name,
		Description:              d.Description,
		Password:                 d.Password,
		ClearPassword:            !d.RequiresPassword,
		RequiresPassword:         d.RequiresPassword,
		Fields:                   Flatten(fields),
		ExpiresAt:                cloneTime(d.Settings.ExpiresAt),
		MaxResponses:             cloneInt(d.Settings.MaxResponses),
		AllowMultipleSubmissions: d.Settings.AllowMultipleSubmissions,
		SuccessMessage:           d.Settings.SuccessMessage,
		IsActive:                 d.Settings.IsActive,
	}
}

// Save checks the save rules and hands the document to svc.  A rule
// violation returns a DocumentError before svc is called.  A collaborator
// failure leaves the builder untouched.
func (b *Builder) Save(ctx context.Context, svc FormsService) (PersistedForm, error) {
	log := logger.FromContext(ctx)
	pf := b.Persisted()

	if err := CheckDocument(pf, b.now()); err != nil {
		metrics.FormSaveRejectedTotal.Inc()
		log.Infow("form save rejected", "form_id", pf.ID, "err", err)
		return PersistedForm{}, err
	}

	var (
		saved PersistedForm
		err   error
	)
	if b.mode == ModeCreate {
		saved, err = svc.Create(ctx, pf)
	} else {
		saved, err = svc.Update(ctx, pf.ID, pf)
	}
	if err != nil {
		log.Errorw("form save failed", "form_id", pf.ID, "mode", b.mode, "err", err)
		return PersistedForm{}, err
	}

	metrics.FormsSavedTotal.WithLabelValues(string(b.mode)).Inc()
	log.Infow("form saved", "form_id", saved.ID, "mode", b.mode, "fields", len(saved.Fields))

	b.doc.ID = saved.ID
	b.doc.Password = ""
	b.doc.RequiresPassword = saved.RequiresPassword
	b.mode = ModeEdit
	return saved, nil
}
