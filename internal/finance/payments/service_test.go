package payments

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/apierr"
)

type fixedIDs string

func (f fixedIDs) New() string { return string(f) }

type fixedClock time.Time

func (f fixedClock) Now() time.Time { return time.Time(f) }

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	svc := NewService(conn, nil)
	svc.ids = fixedIDs("01HZYX0000000000000000TEST")
	svc.clock = fixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return svc, mock
}

// money matches a decimal argument by value.
type money string

func (m money) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	got, err := decimal.NewFromString(s)
	return err == nil && got.Equal(d(string(m)))
}

func balanceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"claim_id", "member_id", "association_id", "amount", "paid", "due_date", "status"})
}

func paymentRow(id int64, amount, allocated, credit string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"payment_id", "payment_ref", "association_id", "member_id", "claim_id", "payment_type",
		"amount", "currency", "paid_on", "method", "bank_account_id", "bank_transaction_id",
		"reference", "note", "status", "created_at", "created_by",
		"member_number", "member_name", "allocated_amount", "credit_amount",
	}).AddRow(id, "01HZYX0000000000000000TEST", 1, 2, nil, "BEITRAG",
		amount, "EUR", day("2024-03-01"), MethodTransfer, nil, nil,
		nil, nil, StatusBooked, time.Now(), "staff",
		"M-00002", "Erika Muster", allocated, credit)
}

var paymentCols = []string{
	"payment_id", "payment_ref", "association_id", "member_id", "claim_id", "payment_type",
	"amount", "currency", "paid_on", "method", "bank_account_id", "bank_transaction_id",
	"reference", "note", "status", "created_at", "created_by",
	"member_number", "member_name", "allocated_amount", "credit_amount",
}

// paymentState returns payment 100 of member 2 with the given status and totals.
func paymentState(status string, bankTx any, amount, allocated, credit string) *sqlmock.Rows {
	return sqlmock.NewRows(paymentCols).AddRow(100, "01HZYX0000000000000000TEST", 1, 2, nil, "BEITRAG",
		amount, "EUR", day("2024-03-01"), MethodTransfer, nil, bankTx,
		nil, nil, status, time.Now(), "staff",
		"M-00002", "Erika Muster", allocated, credit)
}

func allocationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"allocation_id", "claim_id", "claim_number", "due_date", "amount", "created_at"})
}

// expectLockBooked covers the member and payment locks taken before changing
// a payment.
func expectLockBooked(mock sqlmock.Sqlmock, row func() *sqlmock.Rows) {
	mock.ExpectQuery("FROM payments p").WithArgs(int64(100)).WillReturnRows(row())
	mock.ExpectQuery("SELECT association_id FROM members").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("SELECT payment_id FROM payments").WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"payment_id"}).AddRow(100))
	mock.ExpectQuery("FROM payments p").WithArgs(int64(100)).WillReturnRows(row())
}

func TestCreateAutoAllocatesAndKeepsCredit(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM members").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("c.member_id = \\? AND c.status = 'OFFEN'").WithArgs(int64(2)).
		WillReturnRows(balanceRows().
			AddRow(10, 2, 1, "30.00", "10.00", day("2024-01-31"), "OFFEN").
			AddRow(11, 2, 1, "30.00", "0.00", day("2024-02-29"), "OFFEN"))
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectExec("INSERT INTO claim_allocations").
		WithArgs(int64(10), int64(100), sqlmock.AnyArg(), "staff").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO claim_allocations").
		WithArgs(int64(11), int64(100), sqlmock.AnyArg(), "staff").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("UPDATE claims SET status = 'BEZAHLT'").
		WithArgs(sqlmock.AnyArg(), int64(10), int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO credits").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM payments p").WithArgs(int64(100)).
		WillReturnRows(paymentRow(100, "60.00", "50.00", "10.00"))
	mock.ExpectQuery("FROM claim_allocations a").WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"allocation_id", "claim_id", "claim_number", "due_date", "amount", "created_at"}).
			AddRow(1, 10, "F-10", day("2024-01-31"), "20.00", time.Now()).
			AddRow(2, 11, "F-11", day("2024-02-29"), "30.00", time.Now()))

	res, err := svc.Create(context.Background(), CreatePaymentRequest{
		AssociationID: 1,
		MemberID:      2,
		Amount:        d("60"),
		PaidOn:        "2024-03-01",
		Method:        "ueberweisung",
		AutoAllocate:  true,
	}, "staff")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !res.Allocated.Equal(d("50")) || !res.Unallocated.Equal(d("10")) {
		t.Errorf("allocated = %s unallocated = %s", res.Allocated, res.Unallocated)
	}
	if !res.Percentage.Equal(d("83.33")) {
		t.Errorf("percentage = %s", res.Percentage)
	}
	if !res.CreditAmount.Equal(d("10")) || !res.FreeAmount.IsZero() {
		t.Errorf("credit = %s free = %s", res.CreditAmount, res.FreeAmount)
	}
	if res.CreditID == nil || *res.CreditID != 7 {
		t.Errorf("credit id = %v", res.CreditID)
	}
	if len(res.Allocations) != 2 {
		t.Errorf("allocations = %+v", res.Allocations)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateRollsBackWhenAllocationExceedsClaim(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM members").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("c.claim_id IN").WithArgs(int64(10)).
		WillReturnRows(balanceRows().AddRow(10, 2, 1, "30.00", "10.00", day("2024-01-31"), "OFFEN"))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), CreatePaymentRequest{
		AssociationID: 1,
		MemberID:      2,
		Amount:        d("50"),
		PaidOn:        "2024-03-01",
		Method:        "BAR",
		Allocations:   []AllocationInput{{ClaimID: 10, Amount: d("25")}},
	}, "staff")
	if apierr.Status(err) != 422 {
		t.Fatalf("err = %v, want 422", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateRejectsClaimOfOtherMember(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM members").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("c.claim_id IN").WithArgs(int64(10)).
		WillReturnRows(balanceRows().AddRow(10, 3, 1, "30.00", "0.00", day("2024-01-31"), "OFFEN"))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), CreatePaymentRequest{
		AssociationID: 1,
		MemberID:      2,
		Amount:        d("30"),
		PaidOn:        "2024-03-01",
		Method:        "BAR",
		Allocations:   []AllocationInput{{ClaimID: 10, Amount: d("30")}},
	}, "staff")
	if apierr.Status(err) != 422 {
		t.Fatalf("err = %v, want 422", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReverseRejectsReversedPayment(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments p").WithArgs(int64(100)).
		WillReturnRows(paymentRow(100, "60.00", "0.00", "0.00"))
	mock.ExpectQuery("SELECT association_id FROM members").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("SELECT payment_id FROM payments").WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"payment_id"}).AddRow(100))
	mock.ExpectQuery("FROM payments p").WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{
			"payment_id", "payment_ref", "association_id", "member_id", "claim_id", "payment_type",
			"amount", "currency", "paid_on", "method", "bank_account_id", "bank_transaction_id",
			"reference", "note", "status", "created_at", "created_by",
			"member_number", "member_name", "allocated_amount", "credit_amount",
		}).AddRow(100, "REF", 1, 2, nil, "BEITRAG", "60.00", "EUR", day("2024-03-01"), MethodCash,
			nil, nil, nil, nil, StatusReversed, time.Now(), nil, "M-00002", "Erika Muster", "0", "0"))
	mock.ExpectRollback()

	_, err := svc.Reverse(context.Background(), 100, nil, "staff")
	if apierr.Status(err) != 409 {
		t.Fatalf("err = %v, want 409", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestBookingFrom(t *testing.T) {
	no := false
	tests := []struct {
		name       string
		in         CreatePaymentRequest
		wantErr    bool
		wantCredit bool
	}{
		{"auto defaults to credit", CreatePaymentRequest{Amount: d("10"), PaidOn: "2024-01-01", Method: "bar", AutoAllocate: true}, false, true},
		{"auto without credit", CreatePaymentRequest{Amount: d("10"), PaidOn: "2024-01-01", Method: "BAR", AutoAllocate: true, RemainderAsCredit: &no}, false, false},
		{"plain payment", CreatePaymentRequest{Amount: d("10"), PaidOn: "2024-01-01", Method: "KARTE"}, false, false},
		{"zero amount", CreatePaymentRequest{Amount: d("0"), PaidOn: "2024-01-01", Method: "BAR"}, true, false},
		{"bad method", CreatePaymentRequest{Amount: d("10"), PaidOn: "2024-01-01", Method: "BITCOIN"}, true, false},
		{"bad date", CreatePaymentRequest{Amount: d("10"), PaidOn: "01.01.2024", Method: "BAR"}, true, false},
		{"explicit and auto", CreatePaymentRequest{Amount: d("10"), PaidOn: "2024-01-01", Method: "BAR", AutoAllocate: true,
			Allocations: []AllocationInput{{ClaimID: 1, Amount: d("5")}}}, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := bookingFrom(tc.in, "staff")
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if err == nil && b.RemainderAsCredit != tc.wantCredit {
				t.Errorf("remainder as credit = %v, want %v", b.RemainderAsCredit, tc.wantCredit)
			}
		})
	}
}

func TestReverseReopensClaimsVoidsCreditsAndReleasesBank(t *testing.T) {
	svc, mock := newTestService(t)
	booked := func() *sqlmock.Rows { return paymentState(StatusBooked, 55, "60.00", "50.00", "10.00") }

	mock.ExpectBegin()
	expectLockBooked(mock, booked)
	mock.ExpectQuery("SELECT DISTINCT claim_id FROM claim_allocations").WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"claim_id"}).AddRow(10).AddRow(11))
	mock.ExpectQuery("c.claim_id IN").WithArgs(int64(10), int64(11)).
		WillReturnRows(balanceRows().
			AddRow(10, 2, 1, "30.00", "20.00", day("2024-01-31"), "OFFEN").
			AddRow(11, 2, 1, "30.00", "30.00", day("2024-02-29"), "BEZAHLT"))
	mock.ExpectExec("DELETE FROM claim_allocations WHERE payment_id").WithArgs(int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE claims SET status = 'OFFEN'").WithArgs(int64(10), int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE credits SET amount = 0, deleted_flag = 1").WithArgs(int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bank_transactions SET status = 'IMPORTIERT'").WithArgs(int64(55)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE payments SET status = 'STORNIERT'").
		WithArgs("Storno: doppelt gebucht", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), "staff", int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM payments p").WithArgs(int64(100)).
		WillReturnRows(paymentState(StatusReversed, nil, "60.00", "0.00", "0.00"))
	mock.ExpectQuery("FROM claim_allocations a").WithArgs(int64(100)).WillReturnRows(allocationRows())

	reason := " doppelt gebucht "
	res, err := svc.Reverse(context.Background(), 100, &reason, "staff")
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if res.Status != StatusReversed || len(res.Allocations) != 0 || !res.Allocated.IsZero() {
		t.Errorf("res = %+v", res)
	}
	if res.BankTransactionID != nil {
		t.Errorf("bank transaction still linked: %v", *res.BankTransactionID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAddAllocationsSpendsOnlyFreeAmount(t *testing.T) {
	svc, mock := newTestService(t)
	// 60 paid, 20 allocated, 10 held as credit: 30 are free
	booked := func() *sqlmock.Rows { return paymentState(StatusBooked, nil, "60.00", "20.00", "10.00") }

	mock.ExpectBegin()
	expectLockBooked(mock, booked)
	mock.ExpectQuery("c.member_id = \\? AND c.status = 'OFFEN'").WithArgs(int64(2)).
		WillReturnRows(balanceRows().AddRow(12, 2, 1, "50.00", "0.00", day("2024-04-30"), "OFFEN"))
	mock.ExpectExec("INSERT INTO claim_allocations").
		WithArgs(int64(12), int64(100), money("30"), "staff").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM payments p").WithArgs(int64(100)).
		WillReturnRows(paymentState(StatusBooked, nil, "60.00", "50.00", "10.00"))
	mock.ExpectQuery("FROM claim_allocations a").WithArgs(int64(100)).
		WillReturnRows(allocationRows().AddRow(3, 12, "F-12", day("2024-04-30"), "30.00", time.Now()))

	res, err := svc.AddAllocations(context.Background(), 100, AddAllocationsRequest{AutoAllocate: true}, "staff")
	if err != nil {
		t.Fatalf("AddAllocations: %v", err)
	}
	if !res.FreeAmount.IsZero() || !res.Allocated.Equal(d("50")) {
		t.Errorf("free = %s allocated = %s", res.FreeAmount, res.Allocated)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAddAllocationsWithoutFreeAmount(t *testing.T) {
	svc, mock := newTestService(t)
	booked := func() *sqlmock.Rows { return paymentState(StatusBooked, nil, "60.00", "50.00", "10.00") }

	mock.ExpectBegin()
	expectLockBooked(mock, booked)
	mock.ExpectRollback()

	_, err := svc.AddAllocations(context.Background(), 100, AddAllocationsRequest{AutoAllocate: true}, "staff")
	if apierr.Status(err) != 422 {
		t.Fatalf("err = %v, want 422", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteAllocationReopensClaim(t *testing.T) {
	svc, mock := newTestService(t)
	booked := func() *sqlmock.Rows { return paymentState(StatusBooked, nil, "30.00", "30.00", "0.00") }

	mock.ExpectBegin()
	expectLockBooked(mock, booked)
	mock.ExpectQuery("SELECT claim_id FROM claim_allocations WHERE allocation_id").WithArgs(int64(3), int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"claim_id"}).AddRow(12))
	mock.ExpectQuery("c.claim_id IN").WithArgs(int64(12)).
		WillReturnRows(balanceRows().AddRow(12, 2, 1, "30.00", "30.00", day("2024-04-30"), "BEZAHLT"))
	mock.ExpectExec("DELETE FROM claim_allocations WHERE allocation_id").WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE claims SET status = 'OFFEN'").WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM payments p").WithArgs(int64(100)).
		WillReturnRows(paymentState(StatusBooked, nil, "30.00", "0.00", "0.00"))
	mock.ExpectQuery("FROM claim_allocations a").WithArgs(int64(100)).WillReturnRows(allocationRows())

	res, err := svc.DeleteAllocation(context.Background(), 100, 3)
	if err != nil {
		t.Fatalf("DeleteAllocation: %v", err)
	}
	if !res.FreeAmount.Equal(d("30")) {
		t.Errorf("free = %s", res.FreeAmount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteAllocationOfOtherPayment(t *testing.T) {
	svc, mock := newTestService(t)
	booked := func() *sqlmock.Rows { return paymentState(StatusBooked, nil, "30.00", "30.00", "0.00") }

	mock.ExpectBegin()
	expectLockBooked(mock, booked)
	mock.ExpectQuery("SELECT claim_id FROM claim_allocations WHERE allocation_id").WithArgs(int64(9), int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"claim_id"}))
	mock.ExpectRollback()

	if _, err := svc.DeleteAllocation(context.Background(), 100, 9); apierr.Status(err) != 404 {
		t.Fatalf("err = %v, want 404", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
