// internal/form/collaborators.go
//
// Formaly – forms core: the contracts the core consumes.
//
// Context
//   The core never talks to a database or the network itself.  Persistence,
//   the public respondent endpoint, and the preset catalog sit behind the
//   interfaces below.  internal/store and internal/publicform implement them
//   in-process; internal/client implements PublicForms over HTTP for the
//   terminal respondent.
//
//------------------------------------------------------------------------------

package form

import (
	"context"

	"github.com/yanizio/formaly/internal/fieldtype"
)

// FormsService persists form documents.  Create and Update may return a
// DocumentError; the others return ErrNotFound for unknown ids.
type FormsService interface {
	Create(ctx context.Context, pf PersistedForm) (PersistedForm, error)
	Update(ctx context.Context, id string, pf PersistedForm) (PersistedForm, error)
	GetByID(ctx context.Context, id string) (PersistedForm, error)
	Delete(ctx context.Context, id string) error
	Clone(ctx context.Context, id string) (PersistedForm, error)
}

// PublicForm is what a respondent may see of a form.
type PublicForm struct {
	ID                       string           `json:"id"`
	Name                     string           `json:"name"`
	Description              string           `json:"description,omitempty"`
	Fields                   []PersistedField `json:"fields"`
	RequiresPassword         bool             `json:"requiresPassword"`
	AllowMultipleSubmissions bool             `json:"allowMultipleSubmissions"`
	SuccessMessage           string           `json:"successMessage,omitempty"`
}

// Submission is one respondent's answer set.
type Submission struct {
	Values   Payload `json:"values"`
	Password string  `json:"password,omitempty"`
}

// Receipt acknowledges an accepted submission.
type Receipt struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// PublicForms is the respondent-facing collaborator.
//
// GetPublicForm returns ErrNotFound for unknown or inactive forms.
// ValidatePassword reports acceptance; a false result is not an error.
// SubmitForm may return ValidationError, ErrWrongPassword, ErrFormClosed,
// ErrResponseCapReached, or ErrDuplicateSubmission.
type PublicForms interface {
	GetPublicForm(ctx context.Context, id string) (PublicForm, error)
	ValidatePassword(ctx context.Context, id, password string) (bool, error)
	SubmitForm(ctx context.Context, id string, sub Submission) (Receipt, error)
}

// PresetSource supplies preset descriptors to the registry.
type PresetSource = fieldtype.Source

// PresetLookup is the slice of the registry the builder needs.
type PresetLookup interface {
	Preset(name string) (fieldtype.Preset, bool)
}
