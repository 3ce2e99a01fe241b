package legal

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"verein-backend/internal/platform/apierr"
)

type fixedClock time.Time

func (f fixedClock) Now() time.Time { return time.Time(f) }

func sp(s string) *string { return &s }
func ip(n int64) *int64   { return &n }

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	svc := NewService(conn)
	svc.clock = fixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return svc, mock
}

func legalRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"legal_id", "association_id", "court_name", "court_register_number", "court_city", "registered_on",
		"tax_office_name", "tax_office_number", "tax_office_city", "tax_liable", "tax_exempt",
		"non_profit", "non_profit_until", "register_doc_path", "non_profit_doc_path", "tax_return_year",
		"note", "created_at", "updated_at", "name",
	})
}

func addLegal(rows *sqlmock.Rows, id, assoc int64, until any) *sqlmock.Rows {
	return rows.AddRow(id, assoc, "Amtsgericht Köln", "VR 1234", "Köln", nil,
		"Finanzamt Köln-Mitte", "214/5678/0000", "Köln", false, true,
		true, until, nil, nil, 2023,
		nil, time.Now(), nil, "Moscheeverein Köln")
}

func request() LegalRequest {
	return LegalRequest{
		AssociationID:       1,
		CourtName:           sp("Amtsgericht Köln"),
		CourtRegisterNumber: sp("VR 1234"),
		TaxExempt:           true,
		NonProfit:           true,
		NonProfitUntil:      sp("2025-12-31"),
	}
}

func TestCreate(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM associations").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("SELECT legal_id, deleted_flag FROM legal_data").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"legal_id", "deleted_flag"}))
	mock.ExpectExec("INSERT INTO legal_data").
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("WHERE l.legal_id = \\?").WithArgs(int64(4)).
		WillReturnRows(addLegal(legalRows(), 4, 1, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))

	res, err := svc.Create(context.Background(), request())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.LegalID != 4 || res.NonProfitUntil == nil || *res.NonProfitUntil != "2025-12-31" {
		t.Errorf("res = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateRejectsSecondRecord(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM associations").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("SELECT legal_id, deleted_flag FROM legal_data").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"legal_id", "deleted_flag"}).AddRow(3, false))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), request())
	if apierr.Status(err) != 409 {
		t.Fatalf("err = %v, want 409", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateRevivesDeletedRecord(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM associations").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("SELECT legal_id, deleted_flag FROM legal_data").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"legal_id", "deleted_flag"}).AddRow(3, true))
	mock.ExpectExec("UPDATE legal_data SET court_name").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("WHERE l.legal_id = \\?").WithArgs(int64(3)).
		WillReturnRows(addLegal(legalRows(), 3, 1, nil))

	res, err := svc.Create(context.Background(), request())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.LegalID != 3 {
		t.Errorf("legal_id = %d, want 3", res.LegalID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestLegalFromValidates(t *testing.T) {
	tests := []struct {
		name string
		edit func(*LegalRequest)
	}{
		{"no association", func(r *LegalRequest) { r.AssociationID = 0 }},
		{"bad date", func(r *LegalRequest) { r.RegisteredOn = sp("01.02.1990") }},
		{"until without non profit", func(r *LegalRequest) { r.NonProfit = false }},
		{"liable and exempt", func(r *LegalRequest) { r.TaxLiable = true }},
		{"tax year", func(r *LegalRequest) {
			y := 1800
			r.TaxReturnYear = &y
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request()
			tt.edit(&req)
			if _, err := legalFrom(req); apierr.Status(err) != 400 {
				t.Errorf("err = %v, want 400", err)
			}
		})
	}
}

func TestUpdateKeepsAssociation(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("WHERE l.legal_id = \\?").WithArgs(int64(3)).
		WillReturnRows(addLegal(legalRows(), 3, 1, nil))

	req := request()
	req.AssociationID = 2
	_, err := svc.Update(context.Background(), 3, req)
	if apierr.Status(err) != 422 {
		t.Fatalf("err = %v, want 422", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestExpiring(t *testing.T) {
	svc, mock := newTestService(t)

	threshold := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	rows := legalRows()
	addLegal(rows, 1, 1, time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC))
	addLegal(rows, 2, 2, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	mock.ExpectQuery("l.non_profit_until <= \\?").WithArgs(threshold).WillReturnRows(rows)

	got, err := svc.Expiring(context.Background(), 0, nil)
	if err != nil {
		t.Fatalf("Expiring: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Expired || got[0].DaysLeft != -10 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Expired || got[1].DaysLeft != 14 || got[1].AssociationName != "Moscheeverein Köln" {
		t.Errorf("second = %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestExpiringScoped(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("AND l.association_id = \\?").
		WithArgs(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), int64(7)).
		WillReturnRows(legalRows())

	got, err := svc.Expiring(context.Background(), 7, ip(7))
	if err != nil {
		t.Fatalf("Expiring: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d rows", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
