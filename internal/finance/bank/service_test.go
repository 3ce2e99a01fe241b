package bank

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/payments"
	"verein-backend/internal/platform/apierr"
)

type fixedIDs string

func (f fixedIDs) New() string { return string(f) }

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	svc := NewService(conn, payments.NewService(conn, nil), nil)
	svc.ids = fixedIDs("01HZYX0000000000000000BATCH")
	return svc, mock
}

func accountRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"bank_account_id", "association_id", "iban", "bic", "account_holder", "bank_name", "description",
		"valid_from", "valid_to", "is_default", "is_active", "created_at", "updated_at",
	}).AddRow(3, 1, "DE89370400440532013000", nil, nil, nil, nil, nil, nil, true, true, time.Now(), nil)
}

func TestImportUnmatchedAndDuplicate(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("FROM bank_accounts WHERE bank_account_id").WithArgs(int64(3)).WillReturnRows(accountRow())
	mock.ExpectQuery("FROM members").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"member_id", "member_number", "first_name", "last_name"}))

	// row 1: new, no member
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM bank_transactions").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("INSERT INTO bank_transactions").WillReturnResult(sqlmock.NewResult(50, 1))
	mock.ExpectCommit()

	// row 2: already imported
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM bank_transactions").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectCommit()

	csv := "Buchungsdatum;Betrag;Empfaenger;Verwendungszweck;Referenz\n" +
		"05.02.2024;25,00;Unbekannt;Spende;R1\n" +
		"06.02.2024;30,00;Unbekannt;Spende;R2\n"
	res, err := svc.Import(context.Background(), 3, strings.NewReader(csv), "", "staff")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.TotalRows != 2 || res.UnmatchedCount != 1 || res.SkippedCount != 1 {
		t.Errorf("counts = %+v", res)
	}
	if res.ImportBatch != "01HZYX0000000000000000BATCH" {
		t.Errorf("batch = %q", res.ImportBatch)
	}
	if d := res.Details[0]; d.BankTransactionID == nil || *d.BankTransactionID != 50 || d.Status != RowUnmatched {
		t.Errorf("detail = %+v", d)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportRejectsBadFile(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery("FROM bank_accounts WHERE bank_account_id").WithArgs(int64(3)).WillReturnRows(accountRow())

	_, err := svc.Import(context.Background(), 3, strings.NewReader("foo;bar\n"), "", "staff")
	if apierr.Status(err) != 400 {
		t.Fatalf("err = %v, want 400", err)
	}
}

func TestMatchValidatesLengths(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Match(context.Background(), 50, MatchRequest{
		MemberID: 2,
		ClaimIDs: []int64{1, 2},
		Amounts:  []decimal.Decimal{decimal.NewFromInt(10)},
	}, "staff")
	if apierr.Status(err) != 400 {
		t.Fatalf("err = %v, want 400", err)
	}
}

func TestMatchRejectsMatchedTransaction(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT bank_transaction_id FROM bank_transactions").WithArgs(int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"bank_transaction_id"}).AddRow(50))
	mock.ExpectQuery("FROM bank_transactions t").WithArgs(int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{
			"bank_transaction_id", "association_id", "bank_account_id", "import_batch", "booked_on",
			"amount", "currency", "counterparty", "purpose", "reference", "status", "created_at",
			"iban", "payment_id", "member_id",
		}).AddRow(50, 1, 3, nil, time.Now(), "25.00", "EUR", nil, nil, nil, StatusMatched, time.Now(),
			"DE89370400440532013000", 9, 2))
	mock.ExpectRollback()

	_, err := svc.Match(context.Background(), 50, MatchRequest{MemberID: 2}, "staff")
	if apierr.Status(err) != 409 {
		t.Fatalf("err = %v, want 409", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportBooksMatchedRowFIFOWithCredit(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("FROM bank_accounts WHERE bank_account_id").WithArgs(int64(3)).WillReturnRows(accountRow())
	mock.ExpectQuery("FROM members").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"member_id", "member_number", "first_name", "last_name"}).
			AddRow(2, "M-10", "Ayse", "Yilmaz"))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM bank_transactions").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("INSERT INTO bank_transactions").WillReturnResult(sqlmock.NewResult(51, 1))
	mock.ExpectQuery("SELECT association_id FROM members").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("c.member_id = \\? AND c.status = 'OFFEN'").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"claim_id", "member_id", "association_id", "amount", "paid", "due_date", "status"}).
			AddRow(10, 2, 1, "20.00", "0.00", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), "OFFEN").
			AddRow(11, 2, 1, "20.00", "0.00", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), "OFFEN"))
	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectExec("INSERT INTO claim_allocations").
		WithArgs(int64(10), int64(100), sqlmock.AnyArg(), "staff").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO claim_allocations").
		WithArgs(int64(11), int64(100), sqlmock.AnyArg(), "staff").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("UPDATE claims SET status = 'BEZAHLT'").
		WithArgs(sqlmock.AnyArg(), int64(10), int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO credits").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("UPDATE bank_transactions SET status").WithArgs(StatusMatched, int64(51)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	csv := "Buchungsdatum;Betrag;Empfaenger;Verwendungszweck;Referenz\n" +
		"05.02.2024;45,00;Ayse Yilmaz;Beitrag M-10 Jan Feb;R7\n"
	res, err := svc.Import(context.Background(), 3, strings.NewReader(csv), "", "staff")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.SuccessCount != 1 || res.UnmatchedCount != 0 {
		t.Fatalf("counts = %+v", res)
	}
	d := res.Details[0]
	if d.Status != RowSuccess || d.MemberID == nil || *d.MemberID != 2 {
		t.Errorf("detail = %+v", d)
	}
	if d.PaymentID == nil || *d.PaymentID != 100 {
		t.Errorf("payment id = %v", d.PaymentID)
	}
	if d.Allocated == nil || !d.Allocated.Equal(decimal.NewFromInt(40)) {
		t.Errorf("allocated = %v", d.Allocated)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
