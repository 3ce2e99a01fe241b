package donations

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/apierr"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }
func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

var donatedOn = time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewService(conn), mock
}

// protocolRow has witnesses Ahmet (signed as given) and Fatma (unsigned).
func protocolRow(id int64, amount string, firstSigned bool, entryID any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"protocol_id", "association_id", "donated_on", "purpose", "category", "amount", "recorded_by",
		"witness1_name", "witness1_signed", "witness2_name", "witness2_signed", "witness3_name", "witness3_signed",
		"entry_id", "note", "created_at", "created_by", "updated_at",
	}).AddRow(id, 1, donatedOn, "Freitagskollekte", "KOLLEKTE", amount, "Kassenwart",
		"Ahmet", firstSigned, "Fatma", false, nil, false,
		entryID, nil, time.Now(), "staff", nil)
}

func detailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"detail_id", "protocol_id", "description", "unit_value", "quantity", "total"})
}

func expectGet(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("FROM donation_protocols WHERE protocol_id").WithArgs(int64(3)).WillReturnRows(rows)
	mock.ExpectQuery("FROM donation_details").WithArgs(int64(3)).WillReturnRows(detailRows())
}

func expectLock(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("FROM donation_protocols WHERE protocol_id = \\? AND deleted_flag = 0 FOR UPDATE").
		WithArgs(int64(3)).WillReturnRows(rows)
}

func TestProtocolFrom(t *testing.T) {
	notes := []DetailInput{{Description: "50-Euro-Schein", UnitValue: d("50"), Quantity: 2}, {Description: "Münzen", UnitValue: d("0.50"), Quantity: 9}}
	tests := []struct {
		name       string
		in         ProtocolRequest
		wantStatus int
		wantAmount string
	}{
		{"details are summed", ProtocolRequest{DonatedOn: "2024-04-12", Details: notes}, 0, "104.50"},
		{"matching amount", ProtocolRequest{DonatedOn: "2024-04-12", Details: notes, Amount: dp("104.5")}, 0, "104.50"},
		{"amount differs from details", ProtocolRequest{DonatedOn: "2024-04-12", Details: notes, Amount: dp("100")}, 422, ""},
		{"plain amount", ProtocolRequest{DonatedOn: "2024-04-12", Amount: dp("20")}, 0, "20"},
		{"no amount", ProtocolRequest{DonatedOn: "2024-04-12"}, 400, ""},
		{"bad date", ProtocolRequest{DonatedOn: "12.04.2024", Amount: dp("20")}, 400, ""},
		{"four witnesses", ProtocolRequest{DonatedOn: "2024-04-12", Amount: dp("20"), Witnesses: []string{"a", "b", "c", "d"}}, 400, ""},
		{"blank witness", ProtocolRequest{DonatedOn: "2024-04-12", Amount: dp("20"), Witnesses: []string{"a", " "}}, 400, ""},
		{"zero quantity", ProtocolRequest{DonatedOn: "2024-04-12", Details: []DetailInput{{Description: "x", UnitValue: d("1"), Quantity: 0}}}, 400, ""},
		{"sub-cent value", ProtocolRequest{DonatedOn: "2024-04-12", Details: []DetailInput{{Description: "x", UnitValue: d("0.005"), Quantity: 1}}}, 400, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, _, err := protocolFrom(tc.in, "staff")
			if tc.wantStatus != 0 {
				if apierr.Status(err) != tc.wantStatus {
					t.Fatalf("err = %v, want %d", err, tc.wantStatus)
				}
				return
			}
			if err != nil {
				t.Fatalf("protocolFrom: %v", err)
			}
			if !p.Amount.Equal(d(tc.wantAmount)) {
				t.Errorf("amount = %s, want %s", p.Amount, tc.wantAmount)
			}
		})
	}
}

func TestCreateStoresDetails(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO donation_protocols").
		WithArgs(int64(1), donatedOn, "Freitagskollekte", "KOLLEKTE", d("104.50"), nil, "Ahmet", "Fatma", nil, nil, "staff").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec("INSERT INTO donation_details").
		WithArgs(int64(3), "50-Euro-Schein", d("50"), 2, d("100")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO donation_details").
		WithArgs(int64(3), "Münzen", d("0.50"), 9, d("4.50")).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()
	expectGet(mock, protocolRow(3, "104.50", false, nil))

	purpose, category := "Freitagskollekte", "kollekte"
	res, err := svc.Create(context.Background(), ProtocolRequest{
		AssociationID: 1,
		DonatedOn:     "2024-04-12",
		Purpose:       &purpose,
		Category:      &category,
		Witnesses:     []string{"Ahmet", "Fatma"},
		Details: []DetailInput{
			{Description: "50-Euro-Schein", UnitValue: d("50"), Quantity: 2},
			{Description: "Münzen", UnitValue: d("0.50"), Quantity: 9},
		},
	}, "staff")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(res.Witnesses) != 2 || res.FullySigned {
		t.Errorf("witnesses = %+v signed = %v", res.Witnesses, res.FullySigned)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSign(t *testing.T) {
	t.Run("named witness", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectBegin()
		expectLock(mock, protocolRow(3, "20.00", true, nil))
		mock.ExpectExec("UPDATE donation_protocols SET witness2_signed = 1").WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		expectGet(mock, protocolRow(3, "20.00", true, nil))

		if _, err := svc.Sign(context.Background(), 3, 2); err != nil {
			t.Fatalf("Sign: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
	t.Run("unnamed witness", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectBegin()
		expectLock(mock, protocolRow(3, "20.00", false, nil))
		mock.ExpectRollback()

		if _, err := svc.Sign(context.Background(), 3, 3); apierr.Status(err) != 422 {
			t.Fatalf("err = %v, want 422", err)
		}
	})
	t.Run("signed twice", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectBegin()
		expectLock(mock, protocolRow(3, "20.00", true, nil))
		mock.ExpectRollback()

		if _, err := svc.Sign(context.Background(), 3, 1); apierr.Status(err) != 409 {
			t.Fatalf("err = %v, want 409", err)
		}
	})
	t.Run("position out of range", func(t *testing.T) {
		svc, _ := newTestService(t)
		if _, err := svc.Sign(context.Background(), 3, 4); apierr.Status(err) != 400 {
			t.Fatalf("err = %v, want 400", err)
		}
	})
}

func TestUpdateRejectsSignedProtocol(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectBegin()
	expectLock(mock, protocolRow(3, "20.00", true, nil))
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), 3, ProtocolRequest{DonatedOn: "2024-04-12", Amount: dp("25")}, "staff")
	if apierr.Status(err) != 409 {
		t.Fatalf("err = %v, want 409", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestBookCreatesCashEntry(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	expectLock(mock, protocolRow(3, "104.50", true, nil))
	mock.ExpectQuery("FROM ledger_accounts WHERE number").WithArgs("2100").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("FROM cashbook_closings").WithArgs(int64(1), 2024).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("MAX\\(voucher_no\\)").WithArgs(int64(1), 2024).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(11))
	mock.ExpectExec("INSERT INTO cashbook_entries").
		WithArgs(int64(1), 12, donatedOn, 2024, "2100", "Spendenprotokoll 12.04.2024 Freitagskollekte",
			d("104.50"), nil, nil, nil, "BAR", nil, nil, nil, nil, "staff").
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectExec("UPDATE donation_protocols SET entry_id").WithArgs(int64(77), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectGet(mock, protocolRow(3, "104.50", true, 77))

	ledger := "2100"
	res, err := svc.Book(context.Background(), 3, BookRequest{LedgerNumber: &ledger}, "staff")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if res.EntryID == nil || *res.EntryID != 77 {
		t.Errorf("entry = %v", res.EntryID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestBookRejectsEntryWithOtherAmount(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	expectLock(mock, protocolRow(3, "104.50", false, nil))
	mock.ExpectQuery("SELECT entry_id FROM cashbook_entries").WithArgs(int64(40)).
		WillReturnRows(sqlmock.NewRows([]string{"entry_id"}).AddRow(40))
	mock.ExpectQuery("FROM cashbook_entries e").WithArgs(int64(40)).
		WillReturnRows(sqlmock.NewRows([]string{
			"entry_id", "association_id", "voucher_no", "voucher_date", "fiscal_year", "ledger_number", "purpose",
			"cash_in", "cash_out", "bank_in", "bank_out", "method", "note", "member_id", "payment_id",
			"bank_transaction_id", "created_at", "created_by", "updated_at", "name",
		}).AddRow(40, 1, 5, donatedOn, 2024, "2100", "Kollekte",
			"100.00", nil, nil, nil, "BAR", nil, nil, nil,
			nil, time.Now(), nil, nil, "Spenden"))
	mock.ExpectRollback()

	entry := int64(40)
	_, err := svc.Book(context.Background(), 3, BookRequest{EntryID: &entry}, "staff")
	if apierr.Status(err) != 422 {
		t.Fatalf("err = %v, want 422", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestBookNeedsExactlyOneTarget(t *testing.T) {
	svc, _ := newTestService(t)
	entry, ledger := int64(40), "2100"
	for _, in := range []BookRequest{{}, {EntryID: &entry, LedgerNumber: &ledger}} {
		if _, err := svc.Book(context.Background(), 3, in, "staff"); apierr.Status(err) != 400 {
			t.Errorf("Book(%+v) err = %v, want 400", in, err)
		}
	}
}

func TestFullySigned(t *testing.T) {
	named := func(n string, signed bool) Witness {
		return Witness{Name: sql.NullString{String: n, Valid: true}, Signed: signed}
	}
	tests := []struct {
		name string
		w    [maxWitnesses]Witness
		want bool
	}{
		{"no witnesses", [maxWitnesses]Witness{}, false},
		{"one of two", [maxWitnesses]Witness{named("a", true), named("b", false)}, false},
		{"all named", [maxWitnesses]Witness{named("a", true), {}, named("c", true)}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Protocol{Witnesses: tc.w}
			if got := p.FullySigned(); got != tc.want {
				t.Errorf("FullySigned() = %v, want %v", got, tc.want)
			}
		})
	}
}
