package claims

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/apierr"
)

func ip(n int) *int { return &n }

func TestCheckPeriod(t *testing.T) {
	tests := []struct {
		name                 string
		year, quarter, month *int
		wantErr              bool
	}{
		{"none", nil, nil, nil, false},
		{"year only", ip(2024), nil, nil, false},
		{"quarter", ip(2024), ip(2), nil, false},
		{"month", ip(2024), nil, ip(12), false},
		{"quarter out of range", ip(2024), ip(5), nil, true},
		{"month out of range", ip(2024), nil, ip(13), true},
		{"quarter and month", ip(2024), ip(1), ip(1), true},
		{"month without year", nil, nil, ip(3), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := checkPeriod(tc.year, tc.quarter, tc.month)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestToResponseDerivesState(t *testing.T) {
	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	d := decimal.RequireFromString
	tests := []struct {
		name        string
		status      string
		paid        string
		due         time.Time
		wantState   string
		wantRemain  string
		wantOverdue bool
	}{
		{"open overdue", StatusOpen, "0", today.AddDate(0, 0, -1), "OFFEN", "30", true},
		{"partial", StatusOpen, "10", today.AddDate(0, 1, 0), "TEILBEZAHLT", "20", false},
		{"paid", StatusPaid, "30", today.AddDate(0, -1, 0), "BEZAHLT", "0", false},
		{"cancelled", StatusCancelled, "0", today.AddDate(0, -1, 0), "STORNIERT", "0", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Claim{Amount: d("30"), Paid: d(tc.paid), Status: tc.status, DueDate: tc.due}
			res := c.toResponse(today)
			if res.State != tc.wantState {
				t.Errorf("state = %s, want %s", res.State, tc.wantState)
			}
			if !res.RemainingAmount.Equal(d(tc.wantRemain)) {
				t.Errorf("remaining = %s, want %s", res.RemainingAmount, tc.wantRemain)
			}
			if res.Overdue != tc.wantOverdue {
				t.Errorf("overdue = %v, want %v", res.Overdue, tc.wantOverdue)
			}
		})
	}
}

func claimRow(id int64, status string, paid string, allocations int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"claim_id", "association_id", "member_id", "claim_number", "claim_type", "amount",
		"currency", "due_date", "status", "period_year", "period_quarter", "period_month",
		"description", "paid_at", "created_at", "created_by", "updated_at",
		"member_number", "member_name", "paid_amount", "allocation_count",
	}).AddRow(id, 1, 2, "F-1", TypeFee, "30.00",
		"EUR", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), status, 2024, nil, nil,
		nil, nil, time.Now(), nil, nil,
		"M-00001", "Max Muster", paid, allocations)
}

func TestCancelRejectsAllocatedClaim(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	svc := NewService(conn)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT claim_id FROM claims").WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"claim_id"}).AddRow(4))
	mock.ExpectQuery("FROM claims c").WithArgs(int64(4)).
		WillReturnRows(claimRow(4, StatusOpen, "10.00", 1))
	mock.ExpectRollback()

	_, err = svc.Cancel(context.Background(), 4, "staff")
	if apierr.Status(err) != 409 {
		t.Fatalf("err = %v, want conflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateRejectsForeignMember(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	svc := NewService(conn)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM members").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(9))
	mock.ExpectRollback()

	_, err = svc.Create(context.Background(), CreateClaimRequest{
		AssociationID: 1, MemberID: 2, Amount: decimal.NewFromInt(30), DueDate: "2024-01-31",
	}, "staff")
	if apierr.Status(err) != 400 {
		t.Fatalf("err = %v, want invalid argument", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateValidatesBeforeTouchingDB(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	svc := NewService(conn)

	cases := []CreateClaimRequest{
		{AssociationID: 1, MemberID: 2, Amount: decimal.Zero, DueDate: "2024-01-31"},
		{AssociationID: 1, MemberID: 2, Amount: decimal.RequireFromString("1.234"), DueDate: "2024-01-31"},
		{AssociationID: 1, MemberID: 2, Amount: decimal.NewFromInt(5), DueDate: "31.01.2024"},
	}
	for _, in := range cases {
		if _, err := svc.Create(context.Background(), in, "staff"); apierr.Status(err) != 400 {
			t.Errorf("Create(%+v) err = %v, want 400", in, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRunBatchSkipsExistingPeriodClaims(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	svc := NewService(conn)

	mock.ExpectQuery("SELECT member_id, member_number, fee_amount FROM members").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"member_id", "member_number", "fee_amount"}).
			AddRow(2, "M-00002", "15.00").
			AddRow(3, "M-00003", "15.00").
			AddRow(4, "M-00004", nil))

	// member 2 already has the March fee
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM members").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM claims").
		WithArgs(int64(2), TypeFee, int64(2024), nil, int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM members").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM claims").
		WithArgs(int64(3), TypeFee, int64(2024), nil, int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("INSERT INTO claims").WillReturnResult(sqlmock.NewResult(40, 1))
	mock.ExpectCommit()

	res, err := svc.RunBatch(context.Background(), BatchRequest{
		AssociationID: 1, Year: 2024, Month: ip(3), DueDate: "2024-03-15",
	}, "staff")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if res.Created != 1 || res.Skipped != 2 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Items) != 3 {
		t.Fatalf("items = %+v", res.Items)
	}
	if it := res.Items[0]; it.Result != BatchSkipped || it.ClaimID != nil {
		t.Errorf("existing period item = %+v", it)
	}
	if it := res.Items[1]; it.Result != BatchCreated || it.ClaimID == nil || *it.ClaimID != 40 {
		t.Errorf("created item = %+v", it)
	}
	if it := res.Items[2]; it.Result != BatchSkipped || it.Message == nil {
		t.Errorf("member without fee = %+v", it)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
