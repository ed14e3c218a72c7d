// components/forms/responses.go
//
// Response listing, replay, and owner edits.
//
// Context
// -------
// Owners read responses as JSON or as an HTML replay of the original form:
// the renderer draws each field with the stored answer, read-only with a
// copy button per value.  `?edit=1` switches the same page to an editable
// form; a POST re-validates with the validator derived from the current
// definition and stores the cleaned payload.
//
// Edits go through form.Capture so the HTML and JSON paths share one
// validate-then-store sequence.  File answers are metadata only and cannot
// be replaced from the edit page; their stored value is carried over.

package forms

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/formaly/internal/fieldtype"
	"github.com/yanizio/formaly/internal/form"
	"github.com/yanizio/formaly/internal/logger"
	"github.com/yanizio/formaly/internal/store"
	"github.com/yanizio/formaly/internal/view"
)

const maxUpload = 10 << 20

// loadResponse resolves the owner's form and one of its responses.
func (c *Component) loadResponse(r *http.Request) (form.PersistedForm, store.Response, error) {
	pf, err := c.owned(r).GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return form.PersistedForm{}, store.Response{}, err
	}
	resp, err := c.store.GetResponse(r.Context(), pf.ID, chi.URLParam(r, "rid"))
	if err != nil {
		return form.PersistedForm{}, store.Response{}, err
	}
	return pf, resp, nil
}

// edit replays resp into a capture, applies set, and stores the result when
// it validates.
func (c *Component) edit(ctx context.Context, pf form.PersistedForm, resp store.Response, set func(*form.Capture)) (*form.Capture, store.Response, error) {
	capture := form.NewCapture(form.Unflatten(pf.Fields), resp.Values)
	set(capture)

	var saved store.Response
	err := capture.Submit(ctx, func(ctx context.Context, clean form.Payload) error {
		var err error
		saved, err = c.store.UpdateResponse(ctx, pf.ID, resp.ID, clean)
		return err
	})
	if err == nil {
		logger.FromContext(ctx).Infow("response edited", "form_id", pf.ID, "response_id", resp.ID)
	}
	return capture, saved, err
}

/*──────────────────────────── JSON ────────────────────────────────────────*/

func (c *Component) handleListResponses(w http.ResponseWriter, r *http.Request) {
	pf, err := c.owned(r).GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		view.Error(w, r, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	total, err := c.store.CountResponses(r.Context(), pf.ID)
	if err != nil {
		view.Error(w, r, err)
		return
	}
	items, err := c.store.ListResponses(r.Context(), pf.ID, limit, offset)
	if err != nil {
		view.Error(w, r, err)
		return
	}
	view.JSON(w, http.StatusOK, map[string]any{"total": total, "responses": items})
}

func (c *Component) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	_, resp, err := c.loadResponse(r)
	if err != nil {
		view.Error(w, r, err)
		return
	}
	view.JSON(w, http.StatusOK, resp)
}

func (c *Component) handleUpdateResponse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Values form.Payload `json:"values"`
	}
	if err := view.Decode(r, &body); err != nil {
		view.Error(w, r, err)
		return
	}
	pf, resp, err := c.loadResponse(r)
	if err != nil {
		view.Error(w, r, err)
		return
	}

	_, saved, err := c.edit(r.Context(), pf, resp, func(cp *form.Capture) {
		for _, f := range cp.Fields() {
			if v, ok := body.Values[f.ID]; ok {
				_ = cp.Set(f.ID, v)
			}
		}
	})
	if err != nil {
		view.Error(w, r, err)
		return
	}
	view.JSON(w, http.StatusOK, saved)
}

/*──────────────────────────── HTML ────────────────────────────────────────*/

type responsePage struct {
	Form     form.PersistedForm
	Response store.Response
	Body     any
	Editing  bool
	Saved    bool
}

func (c *Component) renderResponse(w http.ResponseWriter, r *http.Request, status int, pf form.PersistedForm, resp store.Response, cp *form.Capture) {
	opts := form.RenderOptions{
		Values:   cp.Values(),
		Errors:   cp.Errors(),
		ReadOnly: cp.ReadOnly(),
	}
	if !cp.ReadOnly() {
		tok, err := c.csrf.Generate(resp.ID)
		if err != nil {
			view.Error(w, r, err)
			return
		}
		opts.CSRFToken = tok
	}
	page := responsePage{
		Form:     pf,
		Response: resp,
		Body:     form.Render(cp.Fields(), opts),
		Editing:  !cp.ReadOnly(),
		Saved:    r.URL.Query().Get("saved") == "1",
	}
	if err := view.Render(w, status, "forms", "response", page); err != nil {
		logger.FromContext(r.Context()).Errorw("render response page", "err", err)
	}
}

func (c *Component) handleResponsePage(w http.ResponseWriter, r *http.Request) {
	pf, resp, err := c.loadResponse(r)
	if err != nil {
		c.pageError(w, r, err)
		return
	}
	cp := form.NewCapture(form.Unflatten(pf.Fields), resp.Values)
	cp.SetReadOnly(r.URL.Query().Get("edit") != "1")
	c.renderResponse(w, r, http.StatusOK, pf, resp, cp)
}

func (c *Component) handleResponsePagePost(w http.ResponseWriter, r *http.Request) {
	pf, resp, err := c.loadResponse(r)
	if err != nil {
		c.pageError(w, r, err)
		return
	}
	if err := r.ParseMultipartForm(maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if !c.csrf.Verify(resp.ID, r.PostFormValue("csrf_token")) {
		http.Error(w, "invalid or expired form token", http.StatusForbidden)
		return
	}

	var files map[string][]*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File
	}
	posted := form.PayloadFromValues(form.Unflatten(pf.Fields), r.PostForm, files)

	cp, _, err := c.edit(r.Context(), pf, resp, func(cp *form.Capture) {
		for _, f := range cp.Fields() {
			v, ok := posted[f.ID]
			if f.Type == fieldtype.File && !ok {
				continue
			}
			_ = cp.Set(f.ID, v)
		}
	})
	switch {
	case err == nil:
		http.Redirect(w, r, r.URL.Path+"?saved=1", http.StatusSeeOther)
	case isValidation(err):
		c.renderResponse(w, r, http.StatusUnprocessableEntity, pf, resp, cp)
	default:
		c.pageError(w, r, err)
	}
}

func isValidation(err error) bool {
	_, ok := form.IsValidationError(err)
	return ok
}

// pageError answers an HTML route with a plain status page.
func (c *Component) pageError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := view.Status(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Errorw("response page failed", "path", r.URL.Path, "err", err)
	}
	http.Error(w, body.Error, status)
}
