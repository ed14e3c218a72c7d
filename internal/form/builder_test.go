package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yanizio/formaly/internal/fieldtype"
)

func TestNewField_OptionsInvariant(t *testing.T) {
	for _, ft := range fieldtype.All() {
		f, err := NewField(ft)
		if err != nil {
			t.Fatalf("NewField(%s): %v", ft, err)
		}
		if got, want := f.Options != nil, ft.IsChoice(); got != want {
			t.Errorf("NewField(%s).Options defined = %v, want %v", ft, got, want)
		}
		if f.ID == "" || f.Required {
			t.Errorf("NewField(%s) = %+v, want id set and optional", ft, f)
		}
		if f.Name != DeriveName(f.Label) {
			t.Errorf("NewField(%s).Name = %q, want derived from %q", ft, f.Name, f.Label)
		}
	}

	sel, _ := NewField(fieldtype.Select)
	if diff := cmp.Diff([]string{"Opção 1", "Opção 2", "Opção 3"}, sel.Options); diff != "" {
		t.Fatalf("seed options (-want +got):\n%s", diff)
	}

	if _, err := NewField("colour"); !errors.Is(err, ErrUnknownFieldType) {
		t.Fatalf("NewField(colour) err = %v", err)
	}
}

func TestNewField_UniqueIDs(t *testing.T) {
	a, _ := NewField(fieldtype.Text)
	b, _ := NewField(fieldtype.Text)
	if a.ID == b.ID {
		t.Fatalf("two fields share id %q", a.ID)
	}
}

func TestDeriveName(t *testing.T) {
	cases := map[string]string{
		"Nome completo":         "nome_completo",
		"  E-mail   do  Autor ": "e-mail_do_autor",
		"Texto\tlongo\n":        "texto_longo",
	}
	for in, want := range cases {
		if got := DeriveName(in); got != want {
			t.Errorf("DeriveName(%q) = %q, want %q", in, got, want)
		}
	}
}

// newTestBuilder returns a builder with n text fields.
func newTestBuilder(t *testing.T, n int) *Builder {
	t.Helper()
	b := NewBuilder(fieldtype.NewRegistry(nil))
	for i := 0; i < n; i++ {
		if _, err := b.AddField(fieldtype.Text); err != nil {
			t.Fatalf("AddField: %v", err)
		}
	}
	return b
}

func ids(fs []Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.ID
	}
	return out
}

func TestBuilder_MoveUpUndoesMoveDown(t *testing.T) {
	const n = 5
	for i := 0; i < n; i++ {
		b := newTestBuilder(t, n)
		orig := b.Fields()

		b.MoveDown(i)
		got := b.MoveUp(i + 1)

		if i == n-1 {
			// MoveDown at the last index is a no-op, and MoveUp(n) is out of range.
			if diff := cmp.Diff(ids(orig), ids(got)); diff != "" {
				t.Fatalf("boundary i=%d changed order (-want +got):\n%s", i, diff)
			}
			continue
		}
		if diff := cmp.Diff(orig, got); diff != "" {
			t.Fatalf("i=%d not restored (-want +got):\n%s", i, diff)
		}
	}
}

func TestBuilder_MoveBoundariesAreNoOps(t *testing.T) {
	b := newTestBuilder(t, 3)
	orig := ids(b.Fields())

	for _, got := range [][]Field{b.MoveUp(0), b.MoveDown(2), b.MoveUp(-1), b.MoveDown(7)} {
		if diff := cmp.Diff(orig, ids(got)); diff != "" {
			t.Fatalf("boundary move changed order (-want +got):\n%s", diff)
		}
	}
}

func TestBuilder_ReorderByDrag(t *testing.T) {
	b := newTestBuilder(t, 4)
	orig := ids(b.Fields())

	for i := range orig {
		if diff := cmp.Diff(orig, ids(b.ReorderByDrag(i, i))); diff != "" {
			t.Fatalf("ReorderByDrag(%d,%d) not idempotent:\n%s", i, i, diff)
		}
	}

	got := ids(b.ReorderByDrag(0, 2))
	want := []string{orig[1], orig[2], orig[0], orig[3]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ReorderByDrag(0,2) (-want +got):\n%s", diff)
	}

	// Repeating the same tick is a fresh reorder of the current sequence,
	// not an accumulated delta.
	got = ids(b.ReorderByDrag(2, 0))
	if diff := cmp.Diff(orig, got); diff != "" {
		t.Fatalf("ReorderByDrag(2,0) (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(orig, ids(b.ReorderByDrag(0, 9))); diff != "" {
		t.Fatalf("out-of-range drag changed order:\n%s", diff)
	}
}

func TestBuilder_RemoveField(t *testing.T) {
	b := newTestBuilder(t, 3)
	orig := b.Fields()

	got := b.RemoveField(orig[1].ID)
	if diff := cmp.Diff([]Field{orig[0], orig[2]}, got); diff != "" {
		t.Fatalf("RemoveField (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(got, b.RemoveField("missing")); diff != "" {
		t.Fatalf("RemoveField(missing) changed fields:\n%s", diff)
	}
}

func TestBuilder_FieldsAreCopies(t *testing.T) {
	b := NewBuilder(fieldtype.NewRegistry(nil))
	fs, _ := b.AddField(fieldtype.Radio)
	fs[0].Options[0] = "tampered"
	fs[0].Label = "tampered"

	got := b.Fields()[0]
	if got.Options[0] != "Opção 1" || got.Label == "tampered" {
		t.Fatalf("caller mutation leaked into builder: %+v", got)
	}
}

func TestBuilder_UpdateField(t *testing.T) {
	b := NewBuilder(fieldtype.NewRegistry(nil))
	fs, _ := b.AddField(fieldtype.Select)
	id := fs[0].ID

	label, req := "Cor favorita", true
	fs, err := b.UpdateField(id, FieldPatch{Label: &label, Required: &req, Options: []string{"Azul", "Verde"}})
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if fs[0].Label != label || !fs[0].Required {
		t.Fatalf("patch not applied: %+v", fs[0])
	}
	if diff := cmp.Diff([]string{"Azul", "Verde"}, fs[0].Options); diff != "" {
		t.Fatalf("options (-want +got):\n%s", diff)
	}

	before := b.Fields()
	if _, err := b.UpdateField(id, FieldPatch{Label: &label, Options: []string{}}); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("empty options err = %v, want ErrInvalidPatch", err)
	}
	if _, err := b.UpdateField(id, FieldPatch{Config: &PersistedConfig{Pattern: "x"}}); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("config on select err = %v, want ErrInvalidPatch", err)
	}
	if diff := cmp.Diff(before, b.Fields()); diff != "" {
		t.Fatalf("rejected patch mutated fields:\n%s", diff)
	}

	if _, err := b.UpdateField("missing", FieldPatch{}); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("missing id err = %v", err)
	}
}

func TestBuilder_UpdateFieldOptionsOnTextRejected(t *testing.T) {
	b := newTestBuilder(t, 1)
	id := b.Fields()[0].ID
	if _, err := b.UpdateField(id, FieldPatch{Options: []string{"A"}}); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("err = %v, want ErrInvalidPatch", err)
	}
	if b.Fields()[0].Options != nil {
		t.Fatalf("text field gained options")
	}
}

func TestBuilder_ApplyPreset(t *testing.T) {
	b := NewBuilder(fieldtype.NewRegistry(nil))
	b.AddField(fieldtype.Text)
	b.AddField(fieldtype.Email)
	fs := b.Fields()
	text, email := fs[0], fs[1]

	if _, err := b.ApplyPreset(text.ID, "email"); !errors.Is(err, ErrPresetMismatch) {
		t.Fatalf("email preset on text: err = %v, want ErrPresetMismatch", err)
	}
	if diff := cmp.Diff(fs, b.Fields()); diff != "" {
		t.Fatalf("rejected preset mutated fields:\n%s", diff)
	}

	got, err := b.ApplyPreset(email.ID, "email")
	if err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	p, _ := fieldtype.NewRegistry(nil).Preset("email")
	if got[1].Type != fieldtype.Email || got[1].Label != p.Label || got[1].Placeholder != p.Placeholder || got[1].PresetRef != "email" {
		t.Fatalf("preset not applied: %+v", got[1])
	}

	got, err = b.ApplyPreset(email.ID, fieldtype.Custom)
	if err != nil {
		t.Fatalf("ApplyPreset(custom): %v", err)
	}
	if got[1].PresetRef != "" || got[1].Label != p.Label {
		t.Fatalf("custom should only clear the reference: %+v", got[1])
	}

	if _, err := b.ApplyPreset(email.ID, "nope"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("unknown preset err = %v", err)
	}
}

func TestBuilder_ApplyPresetSeedsHints(t *testing.T) {
	b := newTestBuilder(t, 1)
	id := b.Fields()[0].ID
	got, err := b.ApplyPreset(id, "cpf")
	if err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	c, ok := got[0].Config.(TextConfig)
	if !ok || c.Pattern == "" {
		t.Fatalf("cpf hints not seeded: %#v", got[0].Config)
	}
}

func TestBuilder_ApplyPresetDropsStaleHints(t *testing.T) {
	b := newTestBuilder(t, 1)
	id := b.Fields()[0].ID
	if _, err := b.ApplyPreset(id, "cpf"); err != nil {
		t.Fatalf("ApplyPreset(cpf): %v", err)
	}
	got, err := b.ApplyPreset(id, "street")
	if err != nil {
		t.Fatalf("ApplyPreset(street): %v", err)
	}
	if got[0].Config != nil {
		t.Fatalf("cpf constraints survived a hint-less preset: %#v", got[0].Config)
	}
}

func TestBuilder_UpdateFieldRejectsBadPattern(t *testing.T) {
	b := newTestBuilder(t, 1)
	id := b.Fields()[0].ID
	before := b.Fields()

	if _, err := b.UpdateField(id, FieldPatch{Config: &PersistedConfig{Pattern: "(["}}); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("err = %v, want ErrInvalidPatch", err)
	}
	if diff := cmp.Diff(before, b.Fields()); diff != "" {
		t.Fatalf("rejected pattern mutated fields:\n%s", diff)
	}
	if _, err := b.UpdateField(id, FieldPatch{Config: &PersistedConfig{Pattern: `^\d+$`}}); err != nil {
		t.Fatalf("valid pattern rejected: %v", err)
	}
}

func TestCheckDocument_BadPattern(t *testing.T) {
	pf := PersistedForm{
		Name: "Cadastro",
		Fields: []PersistedField{
			{ID: "a", Type: fieldtype.Text, Label: "Nome", Name: "nome"},
			{ID: "b", Type: fieldtype.Text, Label: "CPF", Name: "cpf", Config: &PersistedConfig{Pattern: "(["}},
		},
	}
	de, ok := IsDocumentError(CheckDocument(pf, time.Now()))
	if !ok || de.Field != "fields[1].config.pattern" {
		t.Fatalf("CheckDocument = %+v, want fields[1].config.pattern", de)
	}

	pf.Fields[1].Config.Pattern = `^\d{11}$`
	if err := CheckDocument(pf, time.Now()); err != nil {
		t.Fatalf("valid pattern rejected: %v", err)
	}
}

func TestBuilder_SetViewKeepsFields(t *testing.T) {
	b := newTestBuilder(t, 2)
	before := b.Fields()
	for _, v := range []View{ViewPreview, ViewSettings, "bogus", ViewBuilder} {
		b.SetView(v)
		if diff := cmp.Diff(before, b.Fields()); diff != "" {
			t.Fatalf("SetView(%s) changed fields:\n%s", v, diff)
		}
	}
	if b.View() != ViewBuilder {
		t.Fatalf("view = %s", b.View())
	}
}

/*──────────────────────────── save ────────────────────────────────────────*/

type fakeForms struct {
	created []PersistedForm
	updated []PersistedForm
	err     error
}

func (f *fakeForms) Create(_ context.Context, pf PersistedForm) (PersistedForm, error) {
	f.created = append(f.created, pf)
	if f.err != nil {
		return PersistedForm{}, f.err
	}
	pf.ID = "form-1"
	pf.Password = ""
	return pf, nil
}

func (f *fakeForms) Update(_ context.Context, id string, pf PersistedForm) (PersistedForm, error) {
	f.updated = append(f.updated, pf)
	if f.err != nil {
		return PersistedForm{}, f.err
	}
	pf.ID = id
	pf.Password = ""
	return pf, nil
}

func (f *fakeForms) GetByID(context.Context, string) (PersistedForm, error) {
	return PersistedForm{}, ErrNotFound
}
func (f *fakeForms) Delete(context.Context, string) error { return nil }
func (f *fakeForms) Clone(context.Context, string) (PersistedForm, error) {
	return PersistedForm{}, ErrNotFound
}

func strPtr(s string) *string { return &s }

func TestBuilder_SaveRejectsShortNameBeforeCall(t *testing.T) {
	b := newTestBuilder(t, 1)
	b.UpdateSettings(SettingsPatch{Name: strPtr("ab")})

	svc := &fakeForms{}
	_, err := b.Save(context.Background(), svc)
	de, ok := IsDocumentError(err)
	if !ok || de.Field != "name" {
		t.Fatalf("err = %v, want name DocumentError", err)
	}
	if len(svc.created)+len(svc.updated) != 0 {
		t.Fatalf("collaborator called despite rule violation")
	}
}

func TestBuilder_SaveReportsFirstViolation(t *testing.T) {
	b := NewBuilder(fieldtype.NewRegistry(nil))
	b.UpdateSettings(SettingsPatch{Name: strPtr("x"), Password: strPtr("toolongpassword")})

	_, err := b.Save(context.Background(), &fakeForms{})
	if de, _ := IsDocumentError(err); de.Field != "name" {
		t.Fatalf("first violation = %+v, want name", de)
	}

	b.UpdateSettings(SettingsPatch{Name: strPtr("Pesquisa")})
	_, err = b.Save(context.Background(), &fakeForms{})
	if de, _ := IsDocumentError(err); de.Field != "password" {
		t.Fatalf("first violation = %+v, want password", de)
	}

	b.UpdateSettings(SettingsPatch{Password: strPtr("")})
	_, err = b.Save(context.Background(), &fakeForms{})
	if de, _ := IsDocumentError(err); de.Field != "fields" {
		t.Fatalf("first violation = %+v, want fields", de)
	}
}

func TestBuilder_SaveCreateThenUpdate(t *testing.T) {
	b := newTestBuilder(t, 1)
	id := b.Fields()[0].ID
	b.UpdateField(id, FieldPatch{Name: strPtr("")})
	b.UpdateSettings(SettingsPatch{Name: strPtr("Pesquisa de satisfação"), Password: strPtr("abcd")})

	svc := &fakeForms{}
	saved, err := b.Save(context.Background(), svc)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID != "form-1" || b.Mode() != ModeEdit || b.Document().ID != "form-1" {
		t.Fatalf("create not recorded: saved=%+v mode=%s", saved, b.Mode())
	}
	sent := svc.created[0]
	if sent.Fields[0].Name != "texto" {
		t.Fatalf("blank name not defaulted from label: %q", sent.Fields[0].Name)
	}
	if sent.Password != "abcd" || !sent.RequiresPassword {
		t.Fatalf("password not forwarded: %+v", sent)
	}
	if b.Document().Password != "" || !b.Document().RequiresPassword {
		t.Fatalf("builder should drop the plain password after save")
	}

	if _, err := b.Save(context.Background(), svc); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if len(svc.updated) != 1 || svc.updated[0].Password != "" || svc.updated[0].ClearPassword {
		t.Fatalf("update should keep the stored password: %+v", svc.updated)
	}
}

func TestBuilder_SaveFailureLeavesBuilder(t *testing.T) {
	b := newTestBuilder(t, 1)
	b.UpdateSettings(SettingsPatch{Name: strPtr("Cadastro")})
	before := b.Document()

	_, err := b.Save(context.Background(), &fakeForms{err: errors.New("503")})
	if err == nil {
		t.Fatalf("expected collaborator error")
	}
	if b.Mode() != ModeCreate {
		t.Fatalf("mode changed after failed save")
	}
	if diff := cmp.Diff(before, b.Document()); diff != "" {
		t.Fatalf("document changed after failed save:\n%s", diff)
	}
}

func TestBuilder_SaveRejectsPastExpiry(t *testing.T) {
	b := newTestBuilder(t, 1)
	past := time.Now().Add(-time.Hour)
	b.UpdateSettings(SettingsPatch{Name: strPtr("Cadastro"), ExpiresAt: &past})

	_, err := b.Save(context.Background(), &fakeForms{})
	if de, _ := IsDocumentError(err); de.Field != "expiresAt" {
		t.Fatalf("err = %v, want expiresAt", err)
	}
}

func TestHydrateBuilder(t *testing.T) {
	limit := 10
	pf := PersistedForm{
		ID:               "f1",
		Name:             "Inscrição",
		RequiresPassword: true,
		MaxResponses:     &limit,
		IsActive:         true,
		Fields: []PersistedField{
			{ID: "a", Type: fieldtype.Radio, Label: "Turno", Name: "turno", Config: &PersistedConfig{Options: []string{"Manhã", "Tarde"}}},
		},
	}
	b := HydrateBuilder(fieldtype.NewRegistry(nil), pf)
	if b.Mode() != ModeEdit {
		t.Fatalf("mode = %s", b.Mode())
	}
	got := b.Persisted()
	if got.ClearPassword || !got.RequiresPassword {
		t.Fatalf("hydrated password state lost: %+v", got)
	}
	if diff := cmp.Diff(pf.Fields, got.Fields); diff != "" {
		t.Fatalf("fields (-want +got):\n%s", diff)
	}

	limit = 99
	if *b.Document().Settings.MaxResponses != 10 {
		t.Fatalf("builder aliases caller's MaxResponses")
	}
}
