package associations

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"verein-backend/internal/platform/apierr"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewService(conn), mock
}

func sp(s string) *string { return &s }

func TestDeleteKeepsAssociationWithActiveMembers(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM members").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))

	if err := svc.Delete(context.Background(), 1); apierr.Status(err) != 409 {
		t.Fatalf("err = %v, want 409", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     int
	}{
		{"deleted", 1, 0},
		{"already gone", 0, 404},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, mock := newTestService(t)
			mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM members").WithArgs(int64(1)).
				WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
			mock.ExpectExec("UPDATE associations SET deleted_flag = 1").WithArgs(int64(1)).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			err := svc.Delete(context.Background(), 1)
			if tc.want == 0 && err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if tc.want != 0 && apierr.Status(err) != tc.want {
				t.Fatalf("err = %v, want %d", err, tc.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectExec("INSERT INTO associations").
		WithArgs("DITIB Muster e.V.", "Muster", nil, nil, time.Date(1985, 5, 1, 0, 0, 0, 0, time.UTC),
			nil, nil, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("FROM associations a WHERE a.association_id").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"association_id", "name", "short_name", "register_number", "tax_number",
			"founded_on", "purpose", "email", "phone", "website", "chairperson",
			"sepa_creditor_id", "active_members", "created_at", "updated_at",
		}).AddRow(1, "DITIB Muster e.V.", "Muster", nil, nil,
			time.Date(1985, 5, 1, 0, 0, 0, 0, time.UTC), nil, nil, nil, nil, nil,
			nil, 0, time.Now(), nil))

	res, err := svc.Create(context.Background(), CreateAssociationRequest{
		Name: "  DITIB Muster e.V. ", ShortName: sp("Muster"), FoundedOn: sp("1985-05-01"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.AssociationID != 1 || res.FoundedOn == nil || *res.FoundedOn != "1985-05-01" {
		t.Errorf("res = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateValidates(t *testing.T) {
	svc, mock := newTestService(t)
	cases := map[string]CreateAssociationRequest{
		"blank name": {Name: "  "},
		"bad date":   {Name: "Verein", FoundedOn: sp("01.05.1985")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), in); apierr.Status(err) != 400 {
				t.Errorf("err = %v, want 400", err)
			}
		})
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
