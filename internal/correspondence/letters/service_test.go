package letters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"verein-backend/internal/correspondence/messages"
	"verein-backend/internal/platform/apierr"
)

type fixedIDs string

func (f fixedIDs) New() string { return string(f) }

type fixedClock time.Time

func (f fixedClock) Now() time.Time { return time.Time(f) }

type sentMail struct{ to, subject, body string }

type fakeSender struct {
	sent []sentMail
	fail map[string]bool
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	if f.fail[to] {
		return errors.New("smtp: connection refused")
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func newTestService(t *testing.T, sender *fakeSender) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	svc := NewService(conn, messages.NewService(conn), nil, nil)
	if sender != nil {
		svc.mail = sender
	}
	svc.ids = fixedIDs("01HZYX0000000000000000MSG0")
	svc.clock = fixedClock(time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC))
	return svc, mock
}

func letterRow(id int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"letter_id", "letter_ref", "association_id", "template_id", "title", "subject", "body", "status",
		"sent_at", "created_at", "created_by", "updated_at", "recipients",
	}).AddRow(id, "REF", 1, nil, "Einladung", "Einladung für {{vorname}}",
		"Hallo {{vollname}}, Ihr Beitrag: {{beitragBetrag}} EUR", status,
		nil, time.Now(), "staff", nil, 0)
}

func recipientRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"member_id", "association_id", "member_number", "first_name", "last_name", "email", "fee_amount", "name", "short_name",
	})
}

func TestSendRendersAndMailsAfterCommit(t *testing.T) {
	sender := &fakeSender{fail: map[string]bool{"max@example.org": true}}
	svc, mock := newTestService(t, sender)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT letter_id FROM letters").WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"letter_id"}).AddRow(4))
	mock.ExpectQuery("FROM letters b WHERE b.letter_id = \\?").WithArgs(int64(4)).
		WillReturnRows(letterRow(4, StatusDraft))
	mock.ExpectQuery("FROM members m").WithArgs(int64(2), int64(3), int64(5)).
		WillReturnRows(recipientRows().
			AddRow(2, 1, "M-00002", "Erika", "Muster", "erika@example.org", "30.00", "Turnverein", "TV").
			AddRow(3, 1, "M-00003", "Hans", "Ohnemail", "", nil, "Turnverein", "TV").
			AddRow(5, 1, "M-00005", "Max", "Fehler", "max@example.org", "12.50", "Turnverein", "TV"))
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(sqlmock.AnyArg(), int64(4), int64(1), int64(2), "Einladung für Erika",
			"Hallo Erika Muster, Ihr Beitrag: 30,00 EUR", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(sqlmock.AnyArg(), int64(4), int64(1), int64(3), "Einladung für Hans",
			"Hallo Hans Ohnemail, Ihr Beitrag: 0,00 EUR", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(sqlmock.AnyArg(), int64(4), int64(1), int64(5), "Einladung für Max",
			"Hallo Max Fehler, Ihr Beitrag: 12,50 EUR", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec("UPDATE letters SET status = 'Gesendet'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Send(context.Background(), 4, SendRequest{MemberIDs: []int64{5, 2, 3, 2}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Sent != 3 || res.Mailed != 1 {
		t.Errorf("sent = %d mailed = %d", res.Sent, res.Mailed)
	}
	if len(sender.sent) != 1 || sender.sent[0].to != "erika@example.org" {
		t.Errorf("mails = %+v", sender.sent)
	}
	if !res.Messages[0].Mailed || res.Messages[1].Mailed || res.Messages[2].Mailed {
		t.Errorf("messages = %+v", res.Messages)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSendRejectsForeignMember(t *testing.T) {
	svc, mock := newTestService(t, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT letter_id FROM letters").
		WillReturnRows(sqlmock.NewRows([]string{"letter_id"}).AddRow(4))
	mock.ExpectQuery("FROM letters b WHERE b.letter_id = \\?").
		WillReturnRows(letterRow(4, StatusDraft))
	mock.ExpectQuery("FROM members m").
		WillReturnRows(recipientRows().
			AddRow(9, 2, "M-00009", "Fremd", "Mitglied", "", nil, "Anderer Verein", ""))
	mock.ExpectRollback()

	_, err := svc.Send(context.Background(), 4, SendRequest{MemberIDs: []int64{9}})
	if apierr.Status(err) != 422 {
		t.Fatalf("err = %v, want 422", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSendUnknownMember(t *testing.T) {
	svc, mock := newTestService(t, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT letter_id FROM letters").
		WillReturnRows(sqlmock.NewRows([]string{"letter_id"}).AddRow(4))
	mock.ExpectQuery("FROM letters b WHERE b.letter_id = \\?").
		WillReturnRows(letterRow(4, StatusDraft))
	mock.ExpectQuery("FROM members m").
		WillReturnRows(recipientRows())
	mock.ExpectRollback()

	_, err := svc.Send(context.Background(), 4, SendRequest{MemberIDs: []int64{77}})
	if apierr.Status(err) != 404 {
		t.Fatalf("err = %v, want 404", err)
	}
}

func TestUpdateSentLetter(t *testing.T) {
	svc, mock := newTestService(t, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT letter_id FROM letters").
		WillReturnRows(sqlmock.NewRows([]string{"letter_id"}).AddRow(4))
	mock.ExpectQuery("FROM letters b WHERE b.letter_id = \\?").
		WillReturnRows(letterRow(4, StatusSent))
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), 4, LetterRequest{Title: "Neu", Subject: "x", Body: "y"})
	if apierr.Status(err) != 409 {
		t.Fatalf("err = %v, want 409", err)
	}
}

func TestDeleteSystemTemplate(t *testing.T) {
	svc, mock := newTestService(t, nil)

	mock.ExpectQuery("FROM letter_templates WHERE template_id = \\?").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"template_id", "association_id", "name", "description", "subject", "body", "category",
			"is_system", "is_active", "created_at", "updated_at",
		}).AddRow(1, 1, "Willkommen", nil, "Willkommen", "Hallo", "Willkommen", true, true, time.Now(), nil))

	err := svc.DeleteTemplate(context.Background(), 1)
	if apierr.Status(err) != 403 {
		t.Fatalf("err = %v, want 403", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSendWithoutMembers(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Send(context.Background(), 4, SendRequest{MemberIDs: []int64{0, -1}})
	if apierr.Status(err) != 400 {
		t.Fatalf("err = %v, want 400", err)
	}
}
