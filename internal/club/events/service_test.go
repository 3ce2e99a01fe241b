package events

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"verein-backend/internal/finance/payments"
	"verein-backend/internal/platform/apierr"
)

type fixedIDs string

func (f fixedIDs) New() string { return string(f) }

type fixedClock time.Time

func (f fixedClock) Now() time.Time { return time.Time(f) }

var startsAt = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	svc := NewService(conn, payments.NewService(conn, nil))
	svc.ids = fixedIDs("01HZYX0000000000000000TEST")
	svc.clock = fixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return svc, mock
}

// eventRow is a priced event with a limit of 10 places.
func eventRow(participants, waitlisted int, membersOnly bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"event_id", "association_id", "title", "description", "starts_at", "ends_at", "location", "price",
		"max_participants", "members_only", "registration_required", "created_at", "updated_at",
		"participants", "waitlisted",
	}).AddRow(7, 1, "Sommerfest", nil, startsAt, nil, "Vereinsheim", "12.50",
		10, membersOnly, true, time.Now(), nil,
		participants, waitlisted)
}

func regRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"registration_id", "event_id", "member_id", "name", "email", "phone", "participants", "note",
		"status", "claim_id", "registered_at", "cancelled_at", "cancel_reason",
	})
}

func expectLockEvent(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT event_id FROM events").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow(7))
	mock.ExpectQuery("FROM events e WHERE e.event_id").WithArgs(int64(7)).WillReturnRows(rows)
}

func TestRegisterChargesConfirmedMember(t *testing.T) {
	svc, mock := newTestService(t)
	member, n := int64(2), 2

	mock.ExpectBegin()
	expectLockEvent(mock, eventRow(3, 0, true))
	mock.ExpectQuery("SELECT association_id FROM members").WithArgs(member).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("FROM event_registrations WHERE event_id = \\? AND member_id").WithArgs(int64(7), member).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("INSERT INTO claims").
		WithArgs(int64(1), member, "F-01HZYX0000000000000000TEST", "VERANSTALTUNG", "25", "EUR",
			sqlmock.AnyArg(), nil, nil, nil, "Sommerfest", "staff").
		WillReturnResult(sqlmock.NewResult(500, 1))
	mock.ExpectExec("INSERT INTO event_registrations").
		WithArgs(int64(7), member, nil, nil, nil, int64(n), nil, StatusRegistered, int64(500), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(30, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM event_registrations WHERE registration_id").WithArgs(int64(30)).
		WillReturnRows(regRows().AddRow(30, 7, member, nil, nil, nil, n, nil, StatusRegistered, 500, time.Now(), nil, nil))

	res, err := svc.Register(context.Background(), 7, RegisterRequest{MemberID: &member, Participants: &n}, "staff")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Status != StatusRegistered || res.ClaimID == nil || *res.ClaimID != 500 {
		t.Errorf("registration = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRegisterOverLimitGoesToWaitlist(t *testing.T) {
	svc, mock := newTestService(t)
	member, n := int64(2), 2

	mock.ExpectBegin()
	expectLockEvent(mock, eventRow(9, 0, false))
	mock.ExpectQuery("SELECT association_id FROM members").WithArgs(member).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("FROM event_registrations WHERE event_id = \\? AND member_id").WithArgs(int64(7), member).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("INSERT INTO event_registrations").
		WithArgs(int64(7), member, nil, nil, nil, int64(n), nil, StatusWaitlisted, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM event_registrations WHERE registration_id").WithArgs(int64(31)).
		WillReturnRows(regRows().AddRow(31, 7, member, nil, nil, nil, n, nil, StatusWaitlisted, nil, time.Now(), nil, nil))

	res, err := svc.Register(context.Background(), 7, RegisterRequest{MemberID: &member, Participants: &n}, "staff")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Status != StatusWaitlisted || res.ClaimID != nil {
		t.Errorf("registration = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRegisterRejections(t *testing.T) {
	member := int64(2)
	guest := "Max Gast"

	t.Run("guest on members-only event", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectBegin()
		expectLockEvent(mock, eventRow(0, 0, true))
		mock.ExpectRollback()

		_, err := svc.Register(context.Background(), 7, RegisterRequest{Name: &guest}, "staff")
		if apierr.Status(err) != 422 {
			t.Fatalf("err = %v, want 422", err)
		}
	})

	t.Run("member already registered", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectBegin()
		expectLockEvent(mock, eventRow(0, 0, false))
		mock.ExpectQuery("SELECT association_id FROM members").WithArgs(member).
			WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
		mock.ExpectQuery("FROM event_registrations WHERE event_id = \\? AND member_id").WithArgs(int64(7), member).
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
		mock.ExpectRollback()

		_, err := svc.Register(context.Background(), 7, RegisterRequest{MemberID: &member}, "staff")
		if apierr.Status(err) != 409 {
			t.Fatalf("err = %v, want 409", err)
		}
	})

	t.Run("member of another association", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectBegin()
		expectLockEvent(mock, eventRow(0, 0, false))
		mock.ExpectQuery("SELECT association_id FROM members").WithArgs(member).
			WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(9))
		mock.ExpectRollback()

		_, err := svc.Register(context.Background(), 7, RegisterRequest{MemberID: &member}, "staff")
		if apierr.Status(err) != 422 {
			t.Fatalf("err = %v, want 422", err)
		}
	})

	t.Run("guest without name", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Register(context.Background(), 7, RegisterRequest{}, "staff")
		if apierr.Status(err) != 400 {
			t.Fatalf("err = %v, want 400", err)
		}
	})
}

func TestCancelPromotesWaitlist(t *testing.T) {
	svc, mock := newTestService(t)
	reg := regRows().AddRow(30, 7, 2, nil, nil, nil, 2, nil, StatusRegistered, 500, time.Now(), nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM event_registrations WHERE registration_id").WithArgs(int64(30)).WillReturnRows(reg)
	expectLockEvent(mock, eventRow(10, 3, false))
	mock.ExpectQuery("FROM event_registrations WHERE registration_id").WithArgs(int64(30)).
		WillReturnRows(regRows().AddRow(30, 7, 2, nil, nil, nil, 2, nil, StatusRegistered, 500, time.Now(), nil, nil))
	mock.ExpectExec("UPDATE event_registrations SET status = 'STORNIERT'").
		WithArgs(sqlmock.AnyArg(), "krank", int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE claims c SET c.status = 'STORNIERT'").
		WithArgs("staff", int64(500)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("status = 'WARTELISTE' ORDER BY registered_at").WithArgs(int64(7)).
		WillReturnRows(regRows().
			AddRow(31, 7, 3, nil, nil, nil, 1, nil, StatusWaitlisted, nil, time.Now(), nil, nil).
			AddRow(32, 7, 4, nil, nil, nil, 2, nil, StatusWaitlisted, nil, time.Now(), nil, nil))
	mock.ExpectExec("INSERT INTO claims").WillReturnResult(sqlmock.NewResult(501, 1))
	mock.ExpectExec("UPDATE event_registrations SET status = 'ANGEMELDET'").
		WithArgs(int64(501), int64(31)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM event_registrations WHERE registration_id").WithArgs(int64(30)).
		WillReturnRows(regRows().AddRow(30, 7, 2, nil, nil, nil, 2, nil, StatusCancelled, 500, time.Now(), time.Now(), "krank"))

	reason := "krank"
	res, err := svc.Cancel(context.Background(), 30, &reason, "staff")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !res.ClaimCancelled {
		t.Error("claim not cancelled")
	}
	if len(res.Promoted) != 1 || res.Promoted[0] != 31 {
		t.Errorf("promoted = %v, want [31]", res.Promoted)
	}
	if res.Registration.Status != StatusCancelled {
		t.Errorf("status = %s", res.Registration.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCancelTwice(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM event_registrations WHERE registration_id").WithArgs(int64(30)).
		WillReturnRows(regRows().AddRow(30, 7, 2, nil, nil, nil, 1, nil, StatusCancelled, nil, time.Now(), time.Now(), nil))
	expectLockEvent(mock, eventRow(0, 0, false))
	mock.ExpectQuery("FROM event_registrations WHERE registration_id").WithArgs(int64(30)).
		WillReturnRows(regRows().AddRow(30, 7, 2, nil, nil, nil, 1, nil, StatusCancelled, nil, time.Now(), time.Now(), nil))
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), 30, nil, "staff")
	if apierr.Status(err) != 409 {
		t.Fatalf("err = %v, want 409", err)
	}
}

func TestFits(t *testing.T) {
	limited := Event{Participants: 8}
	limited.MaxParticipants.Int32, limited.MaxParticipants.Valid = 10, true
	if !limited.Fits(2) || limited.Fits(3) {
		t.Errorf("free = %d", limited.Free())
	}
	open := Event{Participants: 500}
	if !open.Fits(100) || open.Free() != -1 {
		t.Errorf("unlimited event rejected participants")
	}
}
