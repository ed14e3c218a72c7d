// internal/store/store_test.go
//
// Unit-tests for the form store using sqlmock.
//
// Run: go test ./internal/store -v

package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/formaly/internal/fieldtype"
	"github.com/yanizio/formaly/internal/form"
)

var fixedNow = time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet SQL expectations: %v", err)
		}
		db.Close()
	})
	s := New(sqlx.NewDb(db, "mysql"))
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

// bcryptOf matches a driver value that is the bcrypt hash of plain.
type bcryptOf string

func (b bcryptOf) Match(v driver.Value) bool {
	h, ok := v.(string)
	return ok && bcrypt.CompareHashAndPassword([]byte(h), []byte(b)) == nil
}

func validForm() form.PersistedForm {
	return form.PersistedForm{
		OwnerID: "owner-1",
		Name:    "Cadastro",
		Fields: []form.PersistedField{
			{ID: "f1", Type: fieldtype.Text, Label: "Nome", Name: "nome", Required: true},
			{ID: "f2", Type: fieldtype.Select, Label: "Cor", Name: "cor",
				Config: &form.PersistedConfig{Options: []string{"Azul", "Verde"}}},
		},
		IsActive: true,
	}
}

func columns(list string) []string {
	parts := strings.Split(list, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

const fieldsJSON = `[{"id":"f1","type":"text","label":"Nome","name":"nome","required":true},` +
	`{"id":"f2","type":"select","label":"Cor","name":"cor","required":false,"config":{"options":["Azul","Verde"]}}]`

func formRowValues(id string, hash any) []driver.Value {
	return []driver.Value{
		id, "owner-1", "Cadastro", "", hash, []byte(fieldsJSON),
		nil, int64(10), false, "Obrigado!", true, fixedNow, fixedNow,
	}
}

func TestCreate(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO form (`)).
		WithArgs(sqlmock.AnyArg(), "owner-1", "Cadastro", "", nil, sqlmock.AnyArg(),
			nil, nil, false, "", true, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	got, err := s.Create(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID == "" || got.RequiresPassword || !got.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestCreate_HashesPassword(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO form (`)).
		WithArgs(sqlmock.AnyArg(), "owner-1", "Cadastro", "", bcryptOf("s3nh4"), sqlmock.AnyArg(),
			nil, nil, false, "", true, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	pf := validForm()
	pf.Password = "s3nh4"
	got, err := s.Create(context.Background(), pf)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !got.RequiresPassword || got.Password != "" {
		t.Fatalf("password state leaked or lost: %+v", got)
	}
}

func TestCreate_RejectsInvalidDocument(t *testing.T) {
	s, _ := newStore(t)
	pf := validForm()
	pf.Name = "ab"
	_, err := s.Create(context.Background(), pf)
	if de, ok := form.IsDocumentError(err); !ok || de.Field != "name" {
		t.Fatalf("err = %v, want name DocumentError", err)
	}
}

func TestUpdate_PasswordHandling(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*form.PersistedForm)
		pattern string
	}{
		{"keep", func(*form.PersistedForm) {}, `updated_at = \? WHERE id = \?`},
		{"clear", func(pf *form.PersistedForm) { pf.ClearPassword = true }, `password_hash = NULL WHERE id = \?`},
		{"set", func(pf *form.PersistedForm) { pf.Password = "nova" }, `password_hash = \? WHERE id = \?`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, mock := newStore(t)
			mock.ExpectExec(`UPDATE form SET .*` + tc.pattern).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectQuery(regexp.QuoteMeta(`FROM form WHERE id = ?`)).
				WithArgs("form-1").
				WillReturnRows(sqlmock.NewRows(columns(formColumns)).AddRow(formRowValues("form-1", nil)...))

			pf := validForm()
			tc.mutate(&pf)
			got, err := s.Update(context.Background(), "form-1", pf)
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if got.ID != "form-1" {
				t.Fatalf("id = %q", got.ID)
			}
		})
	}
}

func TestGetByID(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM form WHERE id = ?`)).
		WithArgs("form-1").
		WillReturnRows(sqlmock.NewRows(columns(formColumns)).AddRow(formRowValues("form-1", "$2a$10$hash")...))

	got, err := s.GetByID(context.Background(), "form-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if diff := cmp.Diff(validForm().Fields, got.Fields); diff != "" {
		t.Fatalf("fields (-want +got):\n%s", diff)
	}
	if !got.RequiresPassword || got.MaxResponses == nil || *got.MaxResponses != 10 || got.ExpiresAt != nil {
		t.Fatalf("settings not mapped: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM form WHERE id = ?`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(columns(formColumns)))

	if _, err := s.GetByID(context.Background(), "nope"); !errors.Is(err, form.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM form WHERE id = ?`)).
		WithArgs("form-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM form WHERE id = ?`)).
		WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.Delete(context.Background(), "form-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(context.Background(), "gone"); !errors.Is(err, form.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestClone(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM form WHERE id = ?`)).
		WithArgs("form-1").
		WillReturnRows(sqlmock.NewRows(columns(formColumns)).AddRow(formRowValues("form-1", "$2a$10$hash")...))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO form (`)).
		WithArgs(sqlmock.AnyArg(), "owner-1", "Cadastro (cópia)", "", "$2a$10$hash", sqlmock.AnyArg(),
			nil, int64(10), false, "Obrigado!", false, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	cp, err := s.Clone(context.Background(), "form-1")
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if cp.ID == "form-1" || cp.IsActive || cp.Name != "Cadastro (cópia)" {
		t.Fatalf("clone = %+v", cp)
	}
	for i, f := range cp.Fields {
		if f.ID == validForm().Fields[i].ID {
			t.Fatalf("field %d kept its id", i)
		}
		if f.Label != validForm().Fields[i].Label {
			t.Fatalf("field %d label changed", i)
		}
	}
}

func TestClone_NameFitsLimit(t *testing.T) {
	long := strings.Repeat("á", maxNameRunes)
	want := strings.Repeat("á", maxNameRunes-utf8.RuneCountInString(CloneSuffix)) + CloneSuffix

	row := formRowValues("form-1", nil)
	row[2] = long
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM form WHERE id = ?`)).
		WithArgs("form-1").
		WillReturnRows(sqlmock.NewRows(columns(formColumns)).AddRow(row...))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO form (`)).
		WithArgs(sqlmock.AnyArg(), "owner-1", want, "", nil, sqlmock.AnyArg(),
			nil, int64(10), false, "Obrigado!", false, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	cp, err := s.Clone(context.Background(), "form-1")
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if n := utf8.RuneCountInString(cp.Name); n != maxNameRunes {
		t.Fatalf("clone name has %d runes, want %d", n, maxNameRunes)
	}
	if err := form.CheckDocument(cp, fixedNow); err != nil {
		t.Fatalf("clone breaks save rules: %v", err)
	}
}

func TestList(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(`FROM form WHERE owner_id = \? ORDER BY updated_at DESC`).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows(columns(formColumns)).
			AddRow(formRowValues("a", nil)...).
			AddRow(formRowValues("b", nil)...))

	got, err := s.List(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("List = %+v", got)
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3nh4")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	s, mock := newStore(t)
	q := regexp.QuoteMeta(`SELECT password_hash FROM form WHERE id = ?`)
	mock.ExpectQuery(q).WithArgs("f").WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow(hash))
	mock.ExpectQuery(q).WithArgs("f").WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow(hash))
	mock.ExpectQuery(q).WithArgs("open").WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow(nil))

	ctx := context.Background()
	if ok, err := s.CheckPassword(ctx, "f", "s3nh4"); !ok || err != nil {
		t.Fatalf("right password: %v, %v", ok, err)
	}
	if ok, err := s.CheckPassword(ctx, "f", "wrong"); ok || err != nil {
		t.Fatalf("wrong password: %v, %v", ok, err)
	}
	if ok, err := s.CheckPassword(ctx, "open", ""); !ok || err != nil {
		t.Fatalf("open form: %v, %v", ok, err)
	}
}

/*──────────────────────────── responses ───────────────────────────────────*/

func TestInsertResponse(t *testing.T) {
	s, mock := newStore(t)
	limit := 5

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM form WHERE id = ? FOR UPDATE`)).
		WithArgs("form-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("form-1"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM form_response`)).
		WithArgs("form-1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM form_response WHERE form_id = ? AND fingerprint = ?`)).
		WithArgs("form-1", "fp").WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO form_response (`)).
		WithArgs(sqlmock.AnyArg(), "form-1", []byte(`{"f1":"Ana"}`), "fp", sqlmock.AnyArg(), fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	r, err := s.InsertResponse(context.Background(),
		Response{FormID: "form-1", Values: form.Payload{"f1": "Ana"}, Fingerprint: "fp"},
		InsertGuard{MaxResponses: &limit, UniqueFingerprint: true})
	if err != nil {
		t.Fatalf("InsertResponse: %v", err)
	}
	if r.ID == "" || !r.CreatedAt.Equal(fixedNow) {
		t.Fatalf("response = %+v", r)
	}
}

func TestInsertResponse_Gates(t *testing.T) {
	limit := 3
	lock := regexp.QuoteMeta(`SELECT id FROM form WHERE id = ? FOR UPDATE`)
	count := regexp.QuoteMeta(`SELECT COUNT(*) FROM form_response`)
	dup := regexp.QuoteMeta(`SELECT 1 FROM form_response WHERE form_id = ? AND fingerprint = ?`)

	t.Run("cap", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("form-1"))
		mock.ExpectQuery(count).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
		mock.ExpectRollback()

		_, err := s.InsertResponse(context.Background(), Response{FormID: "form-1"}, InsertGuard{MaxResponses: &limit})
		if !errors.Is(err, form.ErrResponseCapReached) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("form-1"))
		mock.ExpectQuery(dup).WithArgs("form-1", "fp").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		mock.ExpectRollback()

		_, err := s.InsertResponse(context.Background(),
			Response{FormID: "form-1", Fingerprint: "fp"}, InsertGuard{UniqueFingerprint: true})
		if !errors.Is(err, form.ErrDuplicateSubmission) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("missing form", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err := s.InsertResponse(context.Background(), Response{FormID: "gone"}, InsertGuard{})
		if !errors.Is(err, form.ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestGetResponse(t *testing.T) {
	s, mock := newStore(t)
	cols := columns(responseColumns)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM form_response WHERE id = ? AND form_id = ?`)).
		WithArgs("r1", "form-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"r1", "form-1", []byte(`{"f1":"Ana","f3":["A","B"]}`), "fp",
			[]byte(`{"country":"BR","browser":"Chrome"}`), fixedNow, fixedNow))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM form_response WHERE id = ? AND form_id = ?`)).
		WithArgs("r2", "form-1").
		WillReturnRows(sqlmock.NewRows(cols))

	got, err := s.GetResponse(context.Background(), "form-1", "r1")
	if err != nil {
		t.Fatalf("GetResponse: %v", err)
	}
	want := form.Payload{"f1": "Ana", "f3": []any{"A", "B"}}
	if diff := cmp.Diff(want, got.Values); diff != "" {
		t.Fatalf("values (-want +got):\n%s", diff)
	}
	if got.Respondent.Country != "BR" {
		t.Fatalf("respondent = %+v", got.Respondent)
	}

	if _, err := s.GetResponse(context.Background(), "form-1", "r2"); !errors.Is(err, ErrResponseNotFound) {
		t.Fatalf("err = %v, want ErrResponseNotFound", err)
	}
}

func TestUpdateResponse_Missing(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE form_response SET answers = ?`)).
		WithArgs([]byte(`{"f1":"Bia"}`), fixedNow, "r9", "form-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.UpdateResponse(context.Background(), "form-1", "r9", form.Payload{"f1": "Bia"})
	if !errors.Is(err, ErrResponseNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestCountAndFingerprint(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM form_response WHERE form_id = ?`)).
		WithArgs("form-1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM form_response`)).
		WithArgs("form-1", "fp").WillReturnRows(sqlmock.NewRows([]string{"1"}))

	ctx := context.Background()
	if n, err := s.CountResponses(ctx, "form-1"); n != 7 || err != nil {
		t.Fatalf("CountResponses = %d, %v", n, err)
	}
	if seen, err := s.HasFingerprint(ctx, "form-1", "fp"); seen || err != nil {
		t.Fatalf("HasFingerprint = %v, %v", seen, err)
	}
}

func TestListResponses_ClampsLimit(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC LIMIT ? OFFSET ?`)).
		WithArgs("form-1", 50, 0).
		WillReturnRows(sqlmock.NewRows(columns(responseColumns)))

	got, err := s.ListResponses(context.Background(), "form-1", 0, -3)
	if err != nil || len(got) != 0 {
		t.Fatalf("ListResponses = %v, %v", got, err)
	}
}
