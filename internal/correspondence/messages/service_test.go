package messages

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/web"
)

type fixedClock time.Time

func (f fixedClock) Now() time.Time { return time.Time(f) }

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	svc := NewService(conn)
	svc.clock = fixedClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	return svc, mock
}

var messageCols = []string{
	"message_id", "message_ref", "letter_id", "association_id", "member_id", "subject", "body",
	"sent_at", "is_read", "read_at", "name",
}

func TestMarkReadKeepsFirstReadTime(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE messages SET is_read = 1, read_at = COALESCE\\(read_at, \\?\\)").
		WithArgs(now, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM messages n").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow(5, "REF", 1, 1, 2, "Einladung", "Hallo", now, true, now, "Erika Muster"))

	res, err := svc.MarkRead(context.Background(), 5)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !res.IsRead || res.ReadAt == nil {
		t.Errorf("res = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMarkReadUnknownMessage(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("UPDATE messages SET is_read = 1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM messages n").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(messageCols))

	_, err := svc.MarkRead(context.Background(), 9)
	if apierr.Status(err) != 404 {
		t.Fatalf("err = %v, want 404", err)
	}
}

func TestListUnreadFiltersByMember(t *testing.T) {
	svc, mock := newTestService(t)
	member := int64(2)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM messages n .* n.member_id = \\? AND n.is_read = 0").
		WithArgs(member).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("ORDER BY n.sent_at DESC").
		WithArgs(member, 20, 0).
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow(5, "REF", 1, 1, 2, "Einladung", "Hallo", time.Now(), false, nil, "Erika Muster"))

	items, total, err := svc.List(context.Background(), SearchQuery{MemberID: &member, UnreadOnly: true},
		web.Page{Limit: 20, Offset: 0, Order: "desc"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].IsRead {
		t.Errorf("items = %+v total = %d", items, total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
