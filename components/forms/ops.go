// components/forms/ops.go
//
// Builder ops endpoint.
//
// Context
// -------
// The browser builder edits locally and sends its edits as an ordered batch
// of builder operations.  The handler replays the batch on a form.Builder
// (fresh for POST /api/forms/ops, hydrated from the store for
// POST /api/forms/{id}/ops) and then saves through the owner-scoped store.
//
// A batch is all-or-nothing: the first failing op aborts with its index and
// nothing is saved.  `dryRun` replays and checks the save rules without
// saving, which backs the builder's live "can I save?" indicator.
//
// Ops
// ---
//
//	{"op":"addField","type":"email"}
//	{"op":"removeField","id":"…"}                 or "index":n
//	{"op":"moveUp","index":n}
//	{"op":"moveDown","index":n}
//	{"op":"reorder","from":a,"to":b}
//	{"op":"updateField","id":"…","patch":{…}}    or "index":n
//	{"op":"applyPreset","id":"…","preset":"cpf"} or "index":n
//	{"op":"updateSettings","settings":{…}}
//	{"op":"setView","view":"preview"}
//
// Field targets accept an index so a batch can address a field it added
// itself, whose id the client does not know yet.

package forms

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/formaly/internal/fieldtype"
	"github.com/yanizio/formaly/internal/form"
	"github.com/yanizio/formaly/internal/view"
)

type op struct {
	Op       string              `json:"op"`
	Type     fieldtype.Type      `json:"type,omitempty"`
	ID       string              `json:"id,omitempty"`
	Index    *int                `json:"index,omitempty"`
	From     int                 `json:"from,omitempty"`
	To       int                 `json:"to,omitempty"`
	Preset   string              `json:"preset,omitempty"`
	Patch    *form.FieldPatch    `json:"patch,omitempty"`
	Settings *form.SettingsPatch `json:"settings,omitempty"`
	View     form.View           `json:"view,omitempty"`
}

type opsRequest struct {
	Ops    []op `json:"ops"`
	DryRun bool `json:"dryRun,omitempty"`
}

type opsResponse struct {
	Form    form.PersistedForm  `json:"form"`
	View    form.View           `json:"view"`
	Saved   bool                `json:"saved"`
	Problem *form.DocumentError `json:"problem,omitempty"`
}

func (c *Component) handleOps(w http.ResponseWriter, r *http.Request) {
	var req opsRequest
	if err := view.Decode(r, &req); err != nil {
		view.Error(w, r, err)
		return
	}

	svc := c.owned(r)
	b := form.NewBuilder(c.presets)
	status := http.StatusCreated
	if id := chi.URLParam(r, "id"); id != "" {
		pf, err := svc.GetByID(r.Context(), id)
		if err != nil {
			view.Error(w, r, err)
			return
		}
		b = form.HydrateBuilder(c.presets, pf)
		status = http.StatusOK
	}

	for i, o := range req.Ops {
		if err := apply(b, o); err != nil {
			view.Error(w, r, fmt.Errorf("op %d (%s): %w", i, o.Op, err))
			return
		}
	}

	if req.DryRun {
		out := opsResponse{Form: b.Persisted(), View: b.View()}
		out.Form.Password = ""
		if de, ok := form.IsDocumentError(form.CheckDocument(b.Persisted(), c.now())); ok {
			out.Problem = &de
		}
		view.JSON(w, http.StatusOK, out)
		return
	}

	saved, err := b.Save(r.Context(), svc)
	if err != nil {
		view.Error(w, r, err)
		return
	}
	view.JSON(w, status, opsResponse{Form: saved, View: b.View(), Saved: true})
}

// apply replays one op on b.
func apply(b *form.Builder, o op) error {
	switch o.Op {
	case "addField":
		_, err := b.AddField(o.Type)
		return err
	case "removeField":
		id, err := target(b, o)
		if err != nil {
			return err
		}
		b.RemoveField(id)
	case "moveUp", "moveDown":
		if o.Index == nil {
			return fmt.Errorf("%w: index is required", view.ErrBadRequest)
		}
		if o.Op == "moveUp" {
			b.MoveUp(*o.Index)
		} else {
			b.MoveDown(*o.Index)
		}
	case "reorder":
		b.ReorderByDrag(o.From, o.To)
	case "updateField":
		if o.Patch == nil {
			return fmt.Errorf("%w: patch is required", view.ErrBadRequest)
		}
		id, err := target(b, o)
		if err != nil {
			return err
		}
		_, err = b.UpdateField(id, *o.Patch)
		return err
	case "applyPreset":
		id, err := target(b, o)
		if err != nil {
			return err
		}
		_, err = b.ApplyPreset(id, o.Preset)
		return err
	case "updateSettings":
		if o.Settings == nil {
			return fmt.Errorf("%w: settings is required", view.ErrBadRequest)
		}
		b.UpdateSettings(*o.Settings)
	case "setView":
		b.SetView(o.View)
	default:
		return fmt.Errorf("%w: unknown op %q", view.ErrBadRequest, o.Op)
	}
	return nil
}

// target resolves the field an op addresses, by id or by index.
func target(b *form.Builder, o op) (string, error) {
	if o.ID != "" {
		return o.ID, nil
	}
	fs := b.Fields()
	if o.Index != nil && *o.Index >= 0 && *o.Index < len(fs) {
		return fs[*o.Index].ID, nil
	}
	return "", form.ErrFieldNotFound
}
