package members

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/apierr"
)

func strp(s string) *string { return &s }

func TestApplyUpdate(t *testing.T) {
	now := time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)
	neg := decimal.RequireFromString("-1")
	fee := decimal.RequireFromString("12.50")

	tests := []struct {
		name    string
		in      UpdateMemberRequest
		wantErr bool
		check   func(t *testing.T, m *Member)
	}{
		{
			name: "rename",
			in:   UpdateMemberRequest{FirstName: strp(" Erika ")},
			check: func(t *testing.T, m *Member) {
				if m.FirstName != "Erika" {
					t.Errorf("first name = %q", m.FirstName)
				}
			},
		},
		{name: "empty last name", in: UpdateMemberRequest{LastName: strp("  ")}, wantErr: true},
		{name: "bad status", in: UpdateMemberRequest{Status: strp("GONE")}, wantErr: true},
		{name: "bad email", in: UpdateMemberRequest{Email: strp("nope")}, wantErr: true},
		{name: "bad date", in: UpdateMemberRequest{BirthDate: strp("17.05.1980")}, wantErr: true},
		{name: "negative fee", in: UpdateMemberRequest{FeeAmount: &neg}, wantErr: true},
		{name: "unknown period", in: UpdateMemberRequest{FeePeriod: strp("WEEKLY")}, wantErr: true},
		{
			name: "leaving sets left_on",
			in:   UpdateMemberRequest{Status: strp("ausgetreten")},
			check: func(t *testing.T, m *Member) {
				if m.Status != StatusLeft {
					t.Errorf("status = %s", m.Status)
				}
				if !m.LeftOn.Valid || m.LeftOn.Time.Format("2006-01-02") != "2024-05-17" {
					t.Errorf("left_on = %+v", m.LeftOn)
				}
			},
		},
		{
			name:    "left before joined",
			in:      UpdateMemberRequest{JoinedOn: strp("2020-01-01"), LeftOn: strp("2019-12-31")},
			wantErr: true,
		},
		{
			name: "fee and period",
			in:   UpdateMemberRequest{FeeAmount: &fee, FeePeriod: strp("jaehrlich")},
			check: func(t *testing.T, m *Member) {
				if !m.FeeAmount.Valid || !m.FeeAmount.Decimal.Equal(fee) || m.FeePeriod.String != PeriodYearly {
					t.Errorf("fee = %+v period = %+v", m.FeeAmount, m.FeePeriod)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := &Member{FirstName: "Max", LastName: "Muster", Status: StatusActive}
			err := applyUpdate(m, tc.in, now)
			if tc.wantErr {
				var api *apierr.APIError
				if !errors.As(err, &api) || api.Code != apierr.CodeInvalidArgument {
					t.Fatalf("err = %v, want INVALID_ARGUMENT", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if tc.check != nil {
				tc.check(t, m)
			}
		})
	}
}

func memberRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"member_id", "association_id", "member_number", "first_name", "last_name", "email", "phone",
		"birth_date", "joined_on", "left_on", "status", "fee_amount", "fee_period", "note",
		"created_at", "updated_at",
	})
}

func TestCreateGeneratesNumber(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	svc := NewService(conn)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM associations").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(3))
	mock.ExpectQuery("REGEXP").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(41))
	mock.ExpectExec("INSERT INTO members").
		WithArgs(int64(3), "M-00042", "Max", "Muster",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			StatusActive, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM members WHERE member_id").
		WithArgs(int64(9)).
		WillReturnRows(memberRows().AddRow(9, 3, "M-00042", "Max", "Muster", nil, nil,
			nil, nil, nil, StatusActive, nil, nil, nil, time.Now(), nil))

	res, err := svc.Create(context.Background(), CreateMemberRequest{
		AssociationID: 3, FirstName: "Max", LastName: "Muster",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.MemberNumber != "M-00042" || res.FullName != "Max Muster" {
		t.Errorf("res = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateUnknownAssociationRollsBack(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	svc := NewService(conn)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM associations").
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}))
	mock.ExpectRollback()

	_, err = svc.Create(context.Background(), CreateMemberRequest{
		AssociationID: 77, FirstName: "Max", LastName: "Muster",
	})
	if apierr.Status(err) != 404 {
		t.Fatalf("err = %v, want not found", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteWithOpenClaims(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	svc := NewService(conn)

	mock.ExpectQuery("SELECT COUNT").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

	err = svc.Delete(context.Background(), 5)
	if apierr.Status(err) != 409 {
		t.Fatalf("err = %v, want conflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
