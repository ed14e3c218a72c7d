// components/public/pages.go
//
// Server-rendered respondent pages.
//
// Context
// -------
// Each request builds a fresh form.Flow and replays the respondent's
// progress into it: Load, then Unlock when the form has a password (the
// accepted password travels back in a hidden `_password` input), then Set
// for each posted value, then Submit.  The flow's resulting state picks the
// page:
//
//	NotFound          → message page, 404
//	PasswordRequired  → password page (403 after a wrong password)
//	Ready             → form page (422 with messages after a failed submit)
//	Submitted         → success page, with "send another" when allowed
//
// Closed, capped, or duplicate submissions end on the message page with
// 409.  Every POST carries a stateless token bound to the form id.

package public

import (
	"errors"
	"html/template"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/formaly/internal/form"
	"github.com/yanizio/formaly/internal/logger"
	"github.com/yanizio/formaly/internal/view"
)

const (
	maxUpload     = 10 << 20
	passwordInput = "_password"
)

// page is the data every public template receives.
type page struct {
	Form     form.PublicForm
	Body     template.HTML
	Token    string
	Password string
	Error    string
	Message  string
	Receipt  form.Receipt
}

// Portuguese copy shown to respondents.
const (
	msgNotFound   = "Formulário não encontrado."
	msgClosed     = "Este formulário não está mais aceitando respostas."
	msgDuplicate  = "Você já enviou uma resposta para este formulário."
	msgWrongPass  = "Senha incorreta."
	msgBadToken   = "A página expirou. Recarregue e tente novamente."
	msgUnexpected = "Não foi possível concluir a operação. Tente novamente."
)

/*──────────────────────────── handlers ────────────────────────────────────*/

func (c *Component) handlePage(w http.ResponseWriter, r *http.Request) {
	flow := form.NewFlow(c.forms, chi.URLParam(r, "id"))
	state, err := flow.Load(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.show(w, r, http.StatusOK, flow, state, "", "")
}

func (c *Component) handleUnlock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !c.csrf.Verify(id, r.PostFormValue("csrf_token")) {
		c.message(w, r, http.StatusForbidden, msgBadToken)
		return
	}

	flow := form.NewFlow(c.forms, id)
	if _, err := flow.Load(r.Context()); err != nil {
		c.fail(w, r, err)
		return
	}
	password := r.PostFormValue("password")
	state, err := flow.Unlock(r.Context(), password)
	switch {
	case errors.Is(err, form.ErrWrongPassword):
		c.show(w, r, http.StatusForbidden, flow, state, "", msgWrongPass)
	case errors.Is(err, form.ErrInvalidTransition):
		c.show(w, r, http.StatusOK, flow, flow.State(), "", "")
	case err != nil:
		c.fail(w, r, err)
	default:
		c.show(w, r, http.StatusOK, flow, state, password, "")
	}
}

func (c *Component) handlePagePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseMultipartForm(maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		c.message(w, r, http.StatusBadRequest, msgUnexpected)
		return
	}
	if !c.csrf.Verify(id, r.PostFormValue("csrf_token")) {
		c.message(w, r, http.StatusForbidden, msgBadToken)
		return
	}

	flow := form.NewFlow(c.forms, id)
	state, err := flow.Load(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}

	password := r.PostFormValue(passwordInput)
	if state == form.StatePasswordRequired {
		state, err = flow.Unlock(r.Context(), password)
		if errors.Is(err, form.ErrWrongPassword) {
			c.show(w, r, http.StatusForbidden, flow, state, "", msgWrongPass)
			return
		}
		if err != nil {
			c.fail(w, r, err)
			return
		}
	}
	if state != form.StateReady {
		c.show(w, r, http.StatusOK, flow, state, password, "")
		return
	}

	var files map[string][]*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File
	}
	posted := form.PayloadFromValues(flow.Fields(), r.PostForm, files)
	for _, f := range flow.Fields() {
		if v, ok := posted[f.ID]; ok {
			_ = flow.Set(f.ID, v)
		}
	}

	state, err = flow.Submit(r.Context())
	switch {
	case err == nil:
		c.show(w, r, http.StatusOK, flow, state, password, "")
	case isValidation(err):
		c.show(w, r, http.StatusUnprocessableEntity, flow, state, password, "")
	default:
		c.fail(w, r, err)
	}
}

/*──────────────────────────── rendering ───────────────────────────────────*/

// show renders the page for state.
func (c *Component) show(w http.ResponseWriter, r *http.Request, status int, flow *form.Flow, state form.State, password, errMsg string) {
	pf := flow.Form()
	p := page{Form: pf, Password: password, Error: errMsg}

	var name string
	switch state {
	case form.StateNotFound:
		c.message(w, r, http.StatusNotFound, msgNotFound)
		return
	case form.StatePasswordRequired:
		name = "password"
	case form.StateSubmitted:
		name = "success"
		p.Receipt = flow.Receipt()
	default:
		name = "form"
		p.Body = form.Render(flow.Fields(), form.RenderOptions{
			Values: flow.Values(),
			Errors: flow.Errors(),
		})
	}

	if name != "success" {
		tok, err := c.csrf.Generate(pf.ID)
		if err != nil {
			c.fail(w, r, err)
			return
		}
		p.Token = tok
	}
	c.render(w, r, status, name, p)
}

// message renders a single sentence page.
func (c *Component) message(w http.ResponseWriter, r *http.Request, status int, msg string) {
	c.render(w, r, status, "message", page{Message: msg})
}

// fail maps a collaborator error onto the message page.
func (c *Component) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := view.Status(err)
	msg := msgUnexpected
	switch {
	case errors.Is(err, form.ErrNotFound):
		msg = msgNotFound
	case errors.Is(err, form.ErrFormClosed), errors.Is(err, form.ErrResponseCapReached):
		msg = msgClosed
	case errors.Is(err, form.ErrDuplicateSubmission):
		msg = msgDuplicate
	case errors.Is(err, form.ErrWrongPassword):
		msg = msgWrongPass
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Errorw("public page failed", "path", r.URL.Path, "err", err)
	}
	c.message(w, r, status, msg)
}

func (c *Component) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	if err := view.Render(w, status, "public", name, p); err != nil {
		logger.FromContext(r.Context()).Errorw("render public page", "page", name, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func isValidation(err error) bool {
	_, ok := form.IsValidationError(err)
	return ok
}
