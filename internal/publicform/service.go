// internal/publicform/service.go
//
// Respondent-facing form service.
//
// Context
// -------
// Service implements form.PublicForms in-process on top of the store.  It
// is what the public JSON API, the server-rendered /f/{id} page, and (over
// HTTP) the terminal respondent talk to.
//
// Gates, evaluated on every call in this order:
//
//	inactive form            → form.ErrNotFound
//	expiresAt in the past    → form.ErrFormClosed
//	response cap reached     → form.ErrResponseCapReached
//	wrong access password    → form.ErrWrongPassword      (submit only)
//	payload fails validation → form.ValidationError       (submit only)
//	same respondent twice    → form.ErrDuplicateSubmission (single-response forms)
//
// The cap and duplicate gates are re-checked by the store inside the insert
// transaction; the early checks only spare the respondent a form they
// cannot send.
//
// Workflow
// --------
//   - Definitions are cached in an LRU keyed by form id.  Concurrent misses
//     for one id collapse through singleflight.
//   - Invalidate(id) drops an entry; the owner API calls it after every
//     update, delete, or activation change.
//   - Owner-provided prose (description, success message) is reduced to
//     plain text with bluemonday before it reaches a respondent.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package publicform

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/formaly/internal/cache"
	"github.com/yanizio/formaly/internal/form"
	"github.com/yanizio/formaly/internal/logger"
	"github.com/yanizio/formaly/internal/metrics"
	"github.com/yanizio/formaly/internal/requestinfo"
	"github.com/yanizio/formaly/internal/store"
)

// DefaultSuccessMessage acknowledges a response when the owner set none.
const DefaultSuccessMessage = "Resposta enviada com sucesso!"

// Repository is the slice of *store.Store the service needs.
type Repository interface {
	GetByID(ctx context.Context, id string) (form.PersistedForm, error)
	CheckPassword(ctx context.Context, id, plain string) (bool, error)
	CountResponses(ctx context.Context, formID string) (int, error)
	InsertResponse(ctx context.Context, r store.Response, g store.InsertGuard) (store.Response, error)
}

// Service is safe for concurrent use.
type Service struct {
	repo   Repository
	cache  *cache.LRU[string, form.PersistedForm]
	sfg    singleflight.Group
	policy *bluemonday.Policy
	now    func() time.Time
}

// New builds a Service.  size < 1 is raised to 1.
func New(repo Repository, size int, ttl time.Duration) *Service {
	if size < 1 {
		size = 1
	}
	return &Service{
		repo:   repo,
		cache:  cache.New[string, form.PersistedForm](size, ttl),
		policy: bluemonday.StrictPolicy(),
		now:    time.Now,
	}
}

var _ form.PublicForms = (*Service)(nil)

// Invalidate drops the cached definition of id.
func (s *Service) Invalidate(id string) {
	s.cache.Remove(id)
}

/*──────────────────────────── loading ─────────────────────────────────────*/

func (s *Service) load(ctx context.Context, id string) (form.PersistedForm, error) {
	if pf, ok := s.cache.Get(id); ok {
		metrics.PublicCacheHitsTotal.Inc()
		return pf, nil
	}
	metrics.PublicCacheMissesTotal.Inc()

	v, err, _ := s.sfg.Do(id, func() (any, error) {
		pf, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return form.PersistedForm{}, err
		}
		s.cache.Add(id, pf)
		return pf, nil
	})
	if err != nil {
		return form.PersistedForm{}, err
	}
	return v.(form.PersistedForm), nil
}

// open loads id and applies the availability gates.
func (s *Service) open(ctx context.Context, id string) (form.PersistedForm, error) {
	pf, err := s.load(ctx, id)
	if err != nil {
		return form.PersistedForm{}, err
	}
	if !pf.IsActive {
		return form.PersistedForm{}, form.ErrNotFound
	}
	if pf.ExpiresAt != nil && !s.now().Before(*pf.ExpiresAt) {
		return form.PersistedForm{}, form.ErrFormClosed
	}
	if pf.MaxResponses != nil {
		n, err := s.repo.CountResponses(ctx, id)
		if err != nil {
			return form.PersistedForm{}, err
		}
		if n >= *pf.MaxResponses {
			return form.PersistedForm{}, form.ErrResponseCapReached
		}
	}
	return pf, nil
}

// plain reduces owner prose to text.  The renderer escapes on output, so
// entities bluemonday produces are decoded again here.
func (s *Service) plain(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}

/*──────────────────────────── PublicForms ─────────────────────────────────*/

// GetPublicForm returns the respondent view of id.
func (s *Service) GetPublicForm(ctx context.Context, id string) (form.PublicForm, error) {
	pf, err := s.open(ctx, id)
	if err != nil {
		return form.PublicForm{}, err
	}
	return form.PublicForm{
		ID:                       pf.ID,
		Name:                     pf.Name,
		Description:              s.plain(pf.Description),
		Fields:                   pf.Fields,
		RequiresPassword:         pf.RequiresPassword,
		AllowMultipleSubmissions: pf.AllowMultipleSubmissions,
		SuccessMessage:           s.plain(pf.SuccessMessage),
	}, nil
}

// ValidatePassword reports whether password opens id.  Forms without a
// password accept anything.
func (s *Service) ValidatePassword(ctx context.Context, id, password string) (bool, error) {
	pf, err := s.open(ctx, id)
	if err != nil {
		return false, err
	}
	if !pf.RequiresPassword {
		return true, nil
	}
	return s.repo.CheckPassword(ctx, id, password)
}

// SubmitForm validates sub against the stored definition and records it.
func (s *Service) SubmitForm(ctx context.Context, id string, sub form.Submission) (form.Receipt, error) {
	log := logger.FromContext(ctx)

	pf, err := s.open(ctx, id)
	if err != nil {
		reject(err)
		return form.Receipt{}, err
	}

	if pf.RequiresPassword {
		ok, err := s.repo.CheckPassword(ctx, id, sub.Password)
		if err != nil {
			return form.Receipt{}, err
		}
		if !ok {
			reject(form.ErrWrongPassword)
			return form.Receipt{}, form.ErrWrongPassword
		}
	}

	clean, errs := form.DeriveValidator(form.Unflatten(pf.Fields)).Validate(sub.Values)
	if errs != nil {
		err := form.ValidationError{Fields: errs}
		reject(err)
		log.Infow("submission rejected", "form_id", id, "fields", len(errs))
		return form.Receipt{}, err
	}

	r := store.Response{FormID: id, Values: clean}
	if info := requestinfo.FromContext(ctx); info != nil {
		r.Fingerprint = info.Fingerprint
		r.Respondent = store.Respondent{
			Country: info.Geo.CountryISO,
			Browser: info.UA.Browser,
			OS:      info.UA.OS,
			Device:  info.UA.Device,
			Lang:    info.UA.PrimaryLang,
			IsBot:   info.UA.IsBot,
		}
	}

	saved, err := s.repo.InsertResponse(ctx, r, store.InsertGuard{
		MaxResponses:      pf.MaxResponses,
		UniqueFingerprint: !pf.AllowMultipleSubmissions,
	})
	if err != nil {
		reject(err)
		log.Infow("submission refused", "form_id", id, "err", err)
		return form.Receipt{}, err
	}

	metrics.SubmissionsTotal.Inc()
	msg := s.plain(pf.SuccessMessage)
	if msg == "" {
		msg = DefaultSuccessMessage
	}
	return form.Receipt{ID: saved.ID, Message: msg}, nil
}

// reject counts a refused submission under a short reason label.
func reject(err error) {
	reason := "error"
	if _, ok := form.IsValidationError(err); ok {
		reason = "validation"
	}
	switch {
	case errors.Is(err, form.ErrNotFound):
		reason = "not_found"
	case errors.Is(err, form.ErrFormClosed):
		reason = "closed"
	case errors.Is(err, form.ErrResponseCapReached):
		reason = "cap"
	case errors.Is(err, form.ErrDuplicateSubmission):
		reason = "duplicate"
	case errors.Is(err, form.ErrWrongPassword):
		reason = "password"
	}
	metrics.SubmissionRejectedTotal.WithLabelValues(reason).Inc()
}
