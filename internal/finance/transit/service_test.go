package transit

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/apierr"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }
func sp(s string) *string        { return &s }

var receivedOn = time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewService(conn), mock
}

func itemRow(id int64, received string, paid any, status string, inEntry, outEntry any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"item_id", "association_id", "ledger_number", "title", "received_on", "received_amount",
		"paid_on", "paid_amount", "recipient", "reference", "status", "in_entry_id", "out_entry_id",
		"note", "created_at", "updated_at", "name",
	}).AddRow(id, 1, "9091", "Zakat Sammlung", receivedOn, received,
		nil, paid, "DITIB", nil, status, inEntry, outEntry,
		nil, time.Now(), nil, "Durchlaufende Posten")
}

func expectLock(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT item_id FROM transit_items").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow(3))
	mock.ExpectQuery("WHERE t.item_id = \\?").WithArgs(int64(3)).WillReturnRows(rows)
}

// updateArgs matches an item update and pins the status.
func updateArgs(status string) []driver.Value {
	args := make([]driver.Value, 12)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	args[8] = status
	return args
}

func TestCreateBooksReceipt(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM ledger_accounts WHERE number").WithArgs("9091").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("FROM cashbook_closings").WithArgs(int64(1), 2024).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("MAX\\(voucher_no\\)").WithArgs(int64(1), 2024).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
	mock.ExpectExec("INSERT INTO cashbook_entries").
		WithArgs(int64(1), 5, receivedOn, 2024, "9091", "Durchlaufender Posten Zakat Sammlung",
			nil, nil, d("250.00"), nil, "UEBERWEISUNG", nil, nil, nil, nil, "staff").
		WillReturnResult(sqlmock.NewResult(80, 1))
	mock.ExpectExec("INSERT INTO transit_items").
		WithArgs(int64(1), "9091", "Zakat Sammlung", receivedOn, d("250.00"), "DITIB", nil, StatusOpen, int64(80), nil).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("WHERE t.item_id = \\?").WithArgs(int64(3)).
		WillReturnRows(itemRow(3, "250.00", nil, StatusOpen, 80, nil))

	res, err := svc.Create(context.Background(), ItemRequest{
		AssociationID: 1, LedgerNumber: "9091", Title: "Zakat Sammlung", ReceivedOn: "2024-04-10",
		ReceivedAmount: d("250.00"), Recipient: sp("DITIB"), Method: sp("ueberweisung"),
	}, "staff")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.InEntryID == nil || *res.InEntryID != 80 || !res.OpenAmount.Equal(d("250")) {
		t.Errorf("res = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateRejectsInactiveLedger(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM ledger_accounts WHERE number").WithArgs("9099").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), ItemRequest{
		AssociationID: 1, LedgerNumber: "9099", Title: "Hilfsfonds", ReceivedOn: "2024-04-10", ReceivedAmount: d("10"),
	}, "staff")
	if apierr.Status(err) != 422 {
		t.Fatalf("err = %v, want 422", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestClose(t *testing.T) {
	tests := []struct {
		name   string
		paid   string
		status string
	}{
		{"full payout", "100.00", StatusClosed},
		{"partial payout", "40.00", StatusPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newTestService(t)

			mock.ExpectBegin()
			expectLock(mock, itemRow(3, "100.00", nil, StatusOpen, nil, nil))
			mock.ExpectExec("UPDATE transit_items SET ledger_number").WithArgs(updateArgs(tt.status)...).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()
			mock.ExpectQuery("WHERE t.item_id = \\?").WithArgs(int64(3)).
				WillReturnRows(itemRow(3, "100.00", tt.paid, tt.status, nil, nil))

			res, err := svc.Close(context.Background(), 3, CloseRequest{PaidOn: "2024-04-20", PaidAmount: d(tt.paid)}, "staff")
			if err != nil {
				t.Fatalf("Close: %v", err)
			}
			if res.Status != tt.status {
				t.Errorf("status = %s, want %s", res.Status, tt.status)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestCloseBooksPayout(t *testing.T) {
	svc, mock := newTestService(t)
	paidOn := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	expectLock(mock, itemRow(3, "100.00", nil, StatusOpen, 80, nil))
	mock.ExpectQuery("FROM cashbook_closings").WithArgs(int64(1), 2024).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("MAX\\(voucher_no\\)").WithArgs(int64(1), 2024).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(6))
	mock.ExpectExec("INSERT INTO cashbook_entries").
		WithArgs(int64(1), 7, paidOn, 2024, "9091", "Weiterleitung Zakat Sammlung an DITIB",
			nil, d("100.00"), nil, nil, "BAR", "UE-17", nil, nil, nil, "staff").
		WillReturnResult(sqlmock.NewResult(81, 1))
	mock.ExpectExec("UPDATE transit_items SET ledger_number").WithArgs(updateArgs(StatusClosed)...).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("WHERE t.item_id = \\?").WithArgs(int64(3)).
		WillReturnRows(itemRow(3, "100.00", "100.00", StatusClosed, 80, 81))

	res, err := svc.Close(context.Background(), 3, CloseRequest{
		PaidOn: "2024-04-20", PaidAmount: d("100.00"), Reference: sp("UE-17"), Method: sp("BAR"),
	}, "staff")
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if res.OutEntryID == nil || *res.OutEntryID != 81 || !res.OpenAmount.IsZero() {
		t.Errorf("res = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCloseRejects(t *testing.T) {
	tests := []struct {
		name string
		row  *sqlmock.Rows
		req  CloseRequest
		want int
	}{
		{"already closed", itemRow(3, "100.00", "100.00", StatusClosed, nil, nil),
			CloseRequest{PaidOn: "2024-04-20", PaidAmount: d("100")}, 409},
		{"more than received", itemRow(3, "100.00", nil, StatusOpen, nil, nil),
			CloseRequest{PaidOn: "2024-04-20", PaidAmount: d("120")}, 422},
		{"before receipt", itemRow(3, "100.00", nil, StatusOpen, nil, nil),
			CloseRequest{PaidOn: "2024-04-01", PaidAmount: d("50")}, 400},
		{"payout booked twice", itemRow(3, "100.00", "40.00", StatusPartial, nil, 81),
			CloseRequest{PaidOn: "2024-04-20", PaidAmount: d("100"), Method: sp("BAR")}, 409},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newTestService(t)

			mock.ExpectBegin()
			expectLock(mock, tt.row)
			mock.ExpectRollback()

			_, err := svc.Close(context.Background(), 3, tt.req, "staff")
			if apierr.Status(err) != tt.want {
				t.Fatalf("err = %v, want %d", err, tt.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestUpdateKeepsBookedReceipt(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	expectLock(mock, itemRow(3, "100.00", nil, StatusOpen, 80, nil))
	mock.ExpectRollback()

	amount := d("90")
	_, err := svc.Update(context.Background(), 3, UpdateItemRequest{ReceivedAmount: &amount})
	if apierr.Status(err) != 409 {
		t.Fatalf("err = %v, want 409", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateRecomputesStatus(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	expectLock(mock, itemRow(3, "100.00", "40.00", StatusPartial, nil, nil))
	mock.ExpectExec("UPDATE transit_items SET ledger_number").WithArgs(updateArgs(StatusOpen)...).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("WHERE t.item_id = \\?").WithArgs(int64(3)).
		WillReturnRows(itemRow(3, "100.00", "0", StatusOpen, nil, nil))

	zero := d("0")
	res, err := svc.Update(context.Background(), 3, UpdateItemRequest{PaidAmount: &zero})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Status != StatusOpen {
		t.Errorf("status = %s", res.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteKeepsBookedItem(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	expectLock(mock, itemRow(3, "100.00", nil, StatusOpen, 80, nil))
	mock.ExpectRollback()

	if err := svc.Delete(context.Background(), 3); apierr.Status(err) != 409 {
		t.Fatalf("err = %v, want 409", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		paid decimal.NullDecimal
		want string
	}{
		{decimal.NullDecimal{}, StatusOpen},
		{decimal.NullDecimal{Decimal: d("0"), Valid: true}, StatusOpen},
		{decimal.NullDecimal{Decimal: d("0.01"), Valid: true}, StatusPartial},
		{decimal.NullDecimal{Decimal: d("50"), Valid: true}, StatusClosed},
	}
	for _, tt := range tests {
		if got := statusFor(d("50"), tt.paid); got != tt.want {
			t.Errorf("statusFor(%v) = %s, want %s", tt.paid, got, tt.want)
		}
	}
}

func TestByRecipient(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("GROUP BY r").WithArgs(UnknownRecipient, int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"r", "received", "paid", "open_amount", "n"}).
			AddRow("DITIB", "300.00", "100.00", "200.00", 2).
			AddRow(UnknownRecipient, "50.00", "0", "50.00", 1))

	got, err := svc.ByRecipient(context.Background(), 1)
	if err != nil {
		t.Fatalf("ByRecipient: %v", err)
	}
	if len(got) != 2 || got[0].Recipient != "DITIB" || !got[0].OpenAmount.Equal(d("200")) || got[1].Items != 1 {
		t.Errorf("got = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
