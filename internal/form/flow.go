// internal/form/flow.go
//
// Formaly – forms core: respondent flow.
//
// Context
//   Flow is the state machine a respondent walks through for one form:
//
//      Loading ──► NotFound
//         │
//         ├──► PasswordRequired ──(accepted)──► Ready
//         │         ▲      │
//         │         └──────┘ (rejected)
//         └──► Ready ──► Submitting ──► Submitted
//                ▲            │             │
//                └────────────┘             │ SubmitAnother
//              (validation or send failure) │ (multi-submit forms)
//                ▲──────────────────────────┘
//
//   Collaborator calls are made without holding the lock.  Each Load bumps a
//   generation counter; a completion whose generation is stale is dropped
//   rather than applied, so a slow earlier load can never overwrite a newer
//   one.
//
//   A collaborator failure that is not a known outcome leaves the state as
//   it was and is returned to the caller for display.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"
	"sync"
)

// State is a respondent flow state.
type State int

const (
	StateLoading State = iota
	StateNotFound
	StatePasswordRequired
	StateReady
	StateSubmitting
	StateSubmitted
)

var stateNames = [...]string{"loading", "not_found", "password_required", "ready", "submitting", "submitted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Flow drives one respondent session.  Safe for concurrent use.
type Flow struct {
	svc PublicForms
	id  string

	mu       sync.Mutex
	state    State
	gen      uint64
	form     PublicForm
	capture  *Capture
	password string
	receipt  Receipt
}

// NewFlow starts in Loading.
func NewFlow(svc PublicForms, formID string) *Flow {
	return &Flow{svc: svc, id: formID, state: StateLoading}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Form returns the loaded public form.
func (f *Flow) Form() PublicForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// Fields returns the loaded fields in render order.
func (f *Flow) Fields() []Field {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capture == nil {
		return nil
	}
	return f.capture.Fields()
}

// Values returns the payload entered so far.
func (f *Flow) Values() Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capture == nil {
		return nil
	}
	return f.capture.Values()
}

// Errors returns the field messages from the last submit.
func (f *Flow) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capture == nil {
		return nil
	}
	return f.capture.Errors()
}

// Receipt returns the acknowledgement of the last accepted submission.
func (f *Flow) Receipt() Receipt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipt
}

// Load fetches the form.  It may be called again from any state to restart.
func (f *Flow) Load(ctx context.Context) (State, error) {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.state = StateLoading
	f.mu.Unlock()

	pf, err := f.svc.GetPublicForm(ctx, f.id)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return f.state, nil
	}

	switch {
	case errors.Is(err, ErrNotFound):
		f.state = StateNotFound
		return f.state, nil
	case err != nil:
		return f.state, err
	}

	f.form = pf
	f.capture = NewCapture(Unflatten(pf.Fields), nil)
	f.password = ""
	f.receipt = Receipt{}
	if pf.RequiresPassword {
		f.state = StatePasswordRequired
	} else {
		f.state = StateReady
	}
	return f.state, nil
}

// Unlock checks password.  Accepted moves to Ready; rejected stays in
// PasswordRequired and returns ErrWrongPassword.
func (f *Flow) Unlock(ctx context.Context, password string) (State, error) {
	f.mu.Lock()
	if f.state != StatePasswordRequired {
		defer f.mu.Unlock()
		return f.state, ErrInvalidTransition
	}
	gen := f.gen
	f.mu.Unlock()

	ok, err := f.svc.ValidatePassword(ctx, f.id, password)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen || f.state != StatePasswordRequired {
		return f.state, nil
	}
	if err != nil {
		return f.state, err
	}
	if !ok {
		return f.state, ErrWrongPassword
	}
	f.password = password
	f.state = StateReady
	return f.state, nil
}

// Set records a value while Ready.
func (f *Flow) Set(fieldID string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateReady {
		return ErrInvalidTransition
	}
	return f.capture.Set(fieldID, v)
}

// Submit validates and sends the payload.  Validation failures return to
// Ready with field messages; so do send failures.
func (f *Flow) Submit(ctx context.Context) (State, error) {
	f.mu.Lock()
	if f.state != StateReady {
		defer f.mu.Unlock()
		return f.state, ErrInvalidTransition
	}
	f.state = StateSubmitting
	gen := f.gen
	capture := f.capture
	password := f.password
	f.mu.Unlock()

	var receipt Receipt
	err := capture.Submit(ctx, func(ctx context.Context, clean Payload) error {
		r, err := f.svc.SubmitForm(ctx, f.id, Submission{Values: clean, Password: password})
		receipt = r
		return err
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return f.state, nil
	}
	if err != nil {
		f.state = StateReady
		return f.state, err
	}
	f.receipt = receipt
	f.state = StateSubmitted
	return f.state, nil
}

// SubmitAnother returns a Submitted session to a blank Ready form when the
// form allows multiple submissions.
func (f *Flow) SubmitAnother() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateSubmitted || !f.form.AllowMultipleSubmissions {
		return f.state, ErrInvalidTransition
	}
	f.capture = NewCapture(f.capture.Fields(), nil)
	f.receipt = Receipt{}
	f.state = StateReady
	return f.state, nil
}
