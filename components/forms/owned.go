// components/forms/owned.go
//
// Owner-scoped view of the store.
//
// Context
// -------
// The store is owner-agnostic.  ownedForms binds it to the user id the
// gateway forwarded, so every FormsService call a handler or the builder
// makes is implicitly scoped: another owner's form behaves exactly like a
// missing one (form.ErrNotFound), never like a forbidden one, so ids cannot
// be probed.
//
// Every successful write also drops the public definition cache for the
// form, so respondents see an edit, a deactivation, or a deletion on their
// next request.

package forms

import (
	"context"

	"github.com/yanizio/formaly/internal/form"
)

type ownedForms struct {
	st    formStore
	pub   invalidator
	owner string
}

var _ form.FormsService = ownedForms{}

func (o ownedForms) check(ctx context.Context, id string) (form.PersistedForm, error) {
	pf, err := o.st.GetByID(ctx, id)
	if err != nil {
		return form.PersistedForm{}, err
	}
	if pf.OwnerID != o.owner {
		return form.PersistedForm{}, form.ErrNotFound
	}
	return pf, nil
}

func (o ownedForms) Create(ctx context.Context, pf form.PersistedForm) (form.PersistedForm, error) {
	pf.OwnerID = o.owner
	return o.st.Create(ctx, pf)
}

func (o ownedForms) Update(ctx context.Context, id string, pf form.PersistedForm) (form.PersistedForm, error) {
	if _, err := o.check(ctx, id); err != nil {
		return form.PersistedForm{}, err
	}
	pf.OwnerID = o.owner
	saved, err := o.st.Update(ctx, id, pf)
	if err == nil {
		o.pub.Invalidate(id)
	}
	return saved, err
}

func (o ownedForms) GetByID(ctx context.Context, id string) (form.PersistedForm, error) {
	return o.check(ctx, id)
}

func (o ownedForms) Delete(ctx context.Context, id string) error {
	if _, err := o.check(ctx, id); err != nil {
		return err
	}
	if err := o.st.Delete(ctx, id); err != nil {
		return err
	}
	o.pub.Invalidate(id)
	return nil
}

func (o ownedForms) Clone(ctx context.Context, id string) (form.PersistedForm, error) {
	if _, err := o.check(ctx, id); err != nil {
		return form.PersistedForm{}, err
	}
	return o.st.Clone(ctx, id)
}
