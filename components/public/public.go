// components/public/public.go
//
// Formaly public component: the respondent-facing JSON API, the
// server-rendered form pages, and the field type catalog.
//
// Context
// -------
// Nothing here needs an identity.  The JSON API is the HTTP face of
// form.PublicForms; internal/client speaks it from the terminal respondent.
// The HTML pages under /f/{id} drive a form.Flow per request, so the
// browser gets the same state machine, gates, and messages as every other
// respondent.
//
// Routes
// ------
//
//	GET  /api/public/forms/{id}              public definition
//	POST /api/public/forms/{id}/password     {"password"} → {"valid"}
//	POST /api/public/forms/{id}/submissions  Submission → 201 Receipt
//	GET  /api/field-types                    descriptors + grouped presets (?type=)
//	GET  /f/{id}                             form page (or password page)
//	POST /f/{id}/unlock                      password page submit
//	POST /f/{id}                             form page submit
//	GET  /assets/formaly.js                  copy-to-clipboard helper
//
//------------------------------------------------------------------------------

package public

import (
	"embed"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/formaly/internal/component"
	"github.com/yanizio/formaly/internal/fieldtype"
	"github.com/yanizio/formaly/internal/form"
	"github.com/yanizio/formaly/internal/view"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed assets/formaly.js
var script []byte

// catalog is the slice of *fieldtype.Registry this component reads.
type catalog interface {
	Presets(t *fieldtype.Type) []fieldtype.Preset
	Descriptors() []fieldtype.Descriptor
}

// tokens issues and checks the hidden form token.
type tokens interface {
	Generate(formID string) (string, error)
	Verify(formID, tok string) bool
}

var _ component.Component = (*Component)(nil)

// Component serves respondents.
type Component struct {
	forms   form.PublicForms
	catalog catalog
	csrf    tokens
}

// Name returns the canonical component key.
func (c *Component) Name() string { return "public" }

// Migrations is empty; the forms component owns the tables.
func (c *Component) Migrations() []string { return nil }

// Init wires the shared handles.
func (c *Component) Init(svc component.Services) error {
	c.forms = svc.GetPublic()
	c.catalog = svc.GetRegistry()
	c.csrf = svc.GetCSRF()
	return nil
}

// Routes builds the respondent router.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api/public/forms/{id}", func(r chi.Router) {
		r.Get("/", c.handleGetForm)
		r.Post("/password", c.handlePassword)
		r.Post("/submissions", c.handleSubmit)
	})
	r.Get("/api/field-types", c.handleFieldTypes)

	r.Get("/f/{id}", c.handlePage)
	r.Post("/f/{id}", c.handlePagePost)
	r.Post("/f/{id}/unlock", c.handleUnlock)

	r.Get("/assets/formaly.js", handleScript)
	return r
}

func init() {
	component.Register(&Component{})
	view.Register("public", templates)
}

/*──────────────────────────── JSON API ────────────────────────────────────*/

func (c *Component) handleGetForm(w http.ResponseWriter, r *http.Request) {
	pf, err := c.forms.GetPublicForm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		view.Error(w, r, err)
		return
	}
	view.JSON(w, http.StatusOK, pf)
}

func (c *Component) handlePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := view.Decode(r, &body); err != nil {
		view.Error(w, r, err)
		return
	}
	ok, err := c.forms.ValidatePassword(r.Context(), chi.URLParam(r, "id"), body.Password)
	if err != nil {
		view.Error(w, r, err)
		return
	}
	view.JSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

func (c *Component) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub form.Submission
	if err := view.Decode(r, &sub); err != nil {
		view.Error(w, r, err)
		return
	}
	receipt, err := c.forms.SubmitForm(r.Context(), chi.URLParam(r, "id"), sub)
	if err != nil {
		view.Error(w, r, err)
		return
	}
	view.JSON(w, http.StatusCreated, receipt)
}

// fieldTypes is the catalog payload the builder palette and the terminal
// respondent read.
type fieldTypes struct {
	Types   []fieldtype.Descriptor `json:"types"`
	Presets []fieldtype.Group      `json:"presets"`
}

func (c *Component) handleFieldTypes(w http.ResponseWriter, r *http.Request) {
	var filter *fieldtype.Type
	if q := r.URL.Query().Get("type"); q != "" {
		t := fieldtype.Type(q)
		if !t.Valid() {
			view.Error(w, r, form.ErrUnknownFieldType)
			return
		}
		filter = &t
	}
	view.JSON(w, http.StatusOK, fieldTypes{
		Types:   c.catalog.Descriptors(),
		Presets: fieldtype.Grouped(c.catalog.Presets(filter)),
	})
}

func handleScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(script)
}
