// components/forms/forms.go
//
// Formaly owner component: form CRUD, the builder ops endpoint, and
// response management.
//
// Context
// -------
// Everything here runs for an authenticated owner.  The identity gateway
// forwards the user id in X-Formaly-User; auth.RequireUser lifts it into the
// context and every handler builds an ownedForms scoped to it.
//
// Routes
// ------
//
//	GET    /api/forms                          list the owner's forms
//	POST   /api/forms                          create from a full document
//	POST   /api/forms/ops                      builder batch on a new form
//	GET    /api/forms/{id}                     one form
//	PUT    /api/forms/{id}                     replace a form
//	DELETE /api/forms/{id}                     delete a form and its responses
//	POST   /api/forms/{id}/clone               copy a form
//	POST   /api/forms/{id}/ops                 builder batch on a stored form
//	POST   /api/forms/{id}/validate            preview: validate a payload
//	GET    /api/forms/{id}/responses           page through responses
//	GET    /api/forms/{id}/responses/{rid}     one response
//	PUT    /api/forms/{id}/responses/{rid}     edit a response
//	GET    /forms/{id}/responses/{rid}         HTML view (?edit=1 to edit)
//	POST   /forms/{id}/responses/{rid}         HTML edit submit
//
//------------------------------------------------------------------------------

package forms

import (
	"context"
	"embed"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/formaly/internal/auth"
	"github.com/yanizio/formaly/internal/component"
	"github.com/yanizio/formaly/internal/form"
	"github.com/yanizio/formaly/internal/store"
	"github.com/yanizio/formaly/internal/view"
)

//go:embed templates/*.html
var templates embed.FS

// formStore is the slice of *store.Store this component uses.
type formStore interface {
	form.FormsService
	List(ctx context.Context, owner string) ([]form.PersistedForm, error)
	GetResponse(ctx context.Context, formID, id string) (store.Response, error)
	UpdateResponse(ctx context.Context, formID, id string, values form.Payload) (store.Response, error)
	ListResponses(ctx context.Context, formID string, limit, offset int) ([]store.Response, error)
	CountResponses(ctx context.Context, formID string) (int, error)
}

type invalidator interface {
	Invalidate(id string)
}

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component owns the /api/forms tree.
type Component struct {
	store   formStore
	public  invalidator
	presets form.PresetLookup
	csrf    *form.CSRF
	now     func() time.Time
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "forms" }

// Migrations returns the form and response tables.
func (c *Component) Migrations() []string { return store.Schema }

// Init wires the shared handles.
func (c *Component) Init(svc component.Services) error {
	c.store = svc.GetStore()
	c.public = svc.GetPublic()
	c.presets = svc.GetRegistry()
	c.csrf = svc.GetCSRF()
	c.now = time.Now
	return nil
}

// Routes builds and returns the router mounted at "/".
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)

		r.Route("/api/forms", func(r chi.Router) {
			r.Get("/", c.handleList)
			r.Post("/", c.handleCreate)
			r.Post("/ops", c.handleOps)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", c.handleGet)
				r.Put("/", c.handleUpdate)
				r.Delete("/", c.handleDelete)
				r.Post("/clone", c.handleClone)
				r.Post("/ops", c.handleOps)
				r.Post("/validate", c.handleValidate)

				r.Get("/responses", c.handleListResponses)
				r.Get("/responses/{rid}", c.handleGetResponse)
				r.Put("/responses/{rid}", c.handleUpdateResponse)
			})
		})

		r.Get("/forms/{id}/responses/{rid}", c.handleResponsePage)
		r.Post("/forms/{id}/responses/{rid}", c.handleResponsePagePost)
	})
	return r
}

// Register component at program start.
func init() {
	component.Register(&Component{})
	view.Register("forms", templates)
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// owned returns the store scoped to the request's owner.
func (c *Component) owned(r *http.Request) ownedForms {
	owner, _ := auth.UserID(r.Context())
	return ownedForms{st: c.store, pub: c.public, owner: owner}
}

/*──────────────────────────── form CRUD ───────────────────────────────────*/

func (c *Component) handleList(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.UserID(r.Context())
	list, err := c.store.List(r.Context(), owner)
	if err != nil {
		view.Error(w, r, err)
		return
	}
	view.JSON(w, http.StatusOK, map[string]any{"forms": list})
}

func (c *Component) handleCreate(w http.ResponseWriter, r *http.Request) {
	var pf form.PersistedForm
	if err := view.Decode(r, &pf); err != nil {
		view.Error(w, r, err)
		return
	}
	saved, err := c.owned(r).Create(r.Context(), pf)
	if err != nil {
		view.Error(w, r, err)
		return
	}
	view.JSON(w, http.StatusCreated, saved)
}

func (c *Component) handleGet(w http.ResponseWriter, r *http.Request) {
	pf, err := c.owned(r).GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		view.Error(w, r, err)
		return
	}
	view.JSON(w, http.StatusOK, pf)
}

func (c *Component) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var pf form.PersistedForm
	if err := view.Decode(r, &pf); err != nil {
		view.Error(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	pf.ID = id
	saved, err := c.owned(r).Update(r.Context(), id, pf)
	if err != nil {
		view.Error(w, r, err)
		return
	}
	view.JSON(w, http.StatusOK, saved)
}

func (c *Component) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := c.owned(r).Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		view.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Component) handleClone(w http.ResponseWriter, r *http.Request) {
	cp, err := c.owned(r).Clone(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		view.Error(w, r, err)
		return
	}
	view.JSON(w, http.StatusCreated, cp)
}

// handleValidate runs a payload through the validator derived from the
// stored definition.  It is the builder's preview tab: nothing is stored.
func (c *Component) handleValidate(w http.ResponseWriter, r *http.Request) {
	pf, err := c.owned(r).GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		view.Error(w, r, err)
		return
	}
	var p form.Payload
	if err := view.Decode(r, &p); err != nil {
		view.Error(w, r, err)
		return
	}
	clean, errs := form.DeriveValidator(form.Unflatten(pf.Fields)).Validate(p)
	if errs != nil {
		view.Error(w, r, form.ValidationError{Fields: errs})
		return
	}
	view.JSON(w, http.StatusOK, map[string]any{"values": clean})
}
