package letters

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"verein-backend/internal/correspondence/messages"
	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/ids"
	"verein-backend/internal/platform/mail"
	"verein-backend/internal/platform/metrics"
	"verein-backend/internal/platform/web"
)

type Service struct {
	db       *sql.DB
	store    *Store
	messages *messages.Service
	mail     mail.Sender
	ids      ids.IDGen
	clock    ids.Clock
	metrics  *metrics.Registry
}

// NewService wires letters. sender may be nil, then nothing is mailed.
func NewService(conn *sql.DB, msgs *messages.Service, sender mail.Sender, m *metrics.Registry) *Service {
	return &Service{
		db:       conn,
		store:    NewStore(),
		messages: msgs,
		mail:     sender,
		ids:      ids.ULIDGen{},
		clock:    ids.RealClock{},
		metrics:  m,
	}
}

var errAssociationRequired = apierr.Invalid("association_id is required")

// ===== templates =====

func templateFrom(in TemplateRequest) (*Template, error) {
	t := &Template{
		AssociationID: in.AssociationID,
		Name:          strings.TrimSpace(in.Name),
		Description:   db.NullString(in.Description),
		Subject:       strings.TrimSpace(in.Subject),
		Body:          in.Body,
		Category:      "Allgemein",
		IsActive:      true,
	}
	if t.AssociationID <= 0 {
		return nil, apierr.Invalid("association_id is required")
	}
	if t.Name == "" || t.Subject == "" || strings.TrimSpace(t.Body) == "" {
		return nil, apierr.Invalid("name, subject and body are required")
	}
	if in.Category != nil {
		if !categories[*in.Category] {
			return nil, apierr.Invalidf("unknown category %q", *in.Category)
		}
		t.Category = *in.Category
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	return t, nil
}

func (s *Service) CreateTemplate(ctx context.Context, in TemplateRequest) (TemplateResponse, error) {
	t, err := templateFrom(in)
	if err != nil {
		return TemplateResponse{}, err
	}
	id, err := s.store.InsertTemplate(ctx, s.db, t)
	if err != nil {
		return TemplateResponse{}, apierr.FromDB(err, "template")
	}
	return s.GetTemplate(ctx, id)
}

func (s *Service) GetTemplate(ctx context.Context, id int64) (TemplateResponse, error) {
	t, err := s.store.GetTemplate(ctx, s.db, id)
	if err != nil {
		return TemplateResponse{}, apierr.FromDB(err, "template")
	}
	return t.toResponse(), nil
}

func (s *Service) TemplateOwner(ctx context.Context, id int64) (int64, error) {
	t, err := s.store.GetTemplate(ctx, s.db, id)
	if err != nil {
		return 0, apierr.FromDB(err, "template")
	}
	return t.AssociationID, nil
}

func (s *Service) ListTemplates(ctx context.Context, q TemplateQuery) ([]TemplateResponse, error) {
	rows, err := s.store.ListTemplates(ctx, s.db, q)
	if err != nil {
		return nil, err
	}
	out := make([]TemplateResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse())
	}
	return out, nil
}

// UpdateTemplate keeps the association of the template.
func (s *Service) UpdateTemplate(ctx context.Context, id int64, in TemplateRequest) (TemplateResponse, error) {
	cur, err := s.store.GetTemplate(ctx, s.db, id)
	if err != nil {
		return TemplateResponse{}, apierr.FromDB(err, "template")
	}
	in.AssociationID = cur.AssociationID
	t, err := templateFrom(in)
	if err != nil {
		return TemplateResponse{}, err
	}
	t.TemplateID = id
	if err := s.store.UpdateTemplate(ctx, s.db, t); err != nil {
		return TemplateResponse{}, apierr.FromDB(err, "template")
	}
	return s.GetTemplate(ctx, id)
}

func (s *Service) DeleteTemplate(ctx context.Context, id int64) error {
	t, err := s.store.GetTemplate(ctx, s.db, id)
	if err != nil {
		return apierr.FromDB(err, "template")
	}
	if t.IsSystem {
		return apierr.Forbidden("system templates cannot be deleted")
	}
	return apierr.FromDB(s.store.SoftDeleteTemplate(ctx, s.db, id), "template")
}

// ===== letters =====

// letterFrom fills subject and body from the template when they are empty.
func (s *Service) letterFrom(ctx context.Context, conn db.DBTX, in LetterRequest) (*Letter, error) {
	l := &Letter{
		AssociationID: in.AssociationID,
		TemplateID:    db.NullInt64(in.TemplateID),
		Title:         strings.TrimSpace(in.Title),
		Subject:       strings.TrimSpace(in.Subject),
		Body:          in.Body,
	}
	if l.AssociationID <= 0 {
		return nil, apierr.Invalid("association_id is required")
	}
	if l.Title == "" {
		return nil, apierr.Invalid("title is required")
	}
	if in.TemplateID != nil {
		t, err := s.store.GetTemplate(ctx, conn, *in.TemplateID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.Unprocessable("template does not exist")
		}
		if err != nil {
			return nil, err
		}
		if t.AssociationID != l.AssociationID {
			return nil, apierr.Unprocessable("template belongs to another association")
		}
		if l.Subject == "" {
			l.Subject = t.Subject
		}
		if strings.TrimSpace(l.Body) == "" {
			l.Body = t.Body
		}
	}
	if l.Subject == "" || strings.TrimSpace(l.Body) == "" {
		return nil, apierr.Invalid("subject and body are required")
	}
	return l, nil
}

func (s *Service) Create(ctx context.Context, in LetterRequest, actor string) (LetterResponse, error) {
	l, err := s.letterFrom(ctx, s.db, in)
	if err != nil {
		return LetterResponse{}, err
	}
	l.LetterRef = s.ids.New()
	l.Status = StatusDraft
	l.CreatedBy = db.NullString(&actor)
	id, err := s.store.InsertLetter(ctx, s.db, l)
	if err != nil {
		return LetterResponse{}, apierr.FromDB(err, "letter")
	}
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (LetterResponse, error) {
	l, err := s.store.GetLetter(ctx, s.db, id)
	if err != nil {
		return LetterResponse{}, apierr.FromDB(err, "letter")
	}
	return l.toResponse(), nil
}

func (s *Service) Owner(ctx context.Context, id int64) (int64, error) {
	l, err := s.store.GetLetter(ctx, s.db, id)
	if err != nil {
		return 0, apierr.FromDB(err, "letter")
	}
	return l.AssociationID, nil
}

func (s *Service) List(ctx context.Context, q LetterQuery, p web.Page) ([]LetterResponse, int64, error) {
	rows, total, err := s.store.ListLetters(ctx, s.db, q, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]LetterResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse())
	}
	return out, total, nil
}

// Update edits a draft. Sent letters are frozen.
func (s *Service) Update(ctx context.Context, id int64, in LetterRequest) (LetterResponse, error) {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		cur, err := s.store.LockLetter(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.Status != StatusDraft {
			return apierr.Conflict("only drafts can be edited")
		}
		in.AssociationID = cur.AssociationID
		l, err := s.letterFrom(ctx, tx, in)
		if err != nil {
			return err
		}
		l.LetterID = id
		return s.store.UpdateDraft(ctx, tx, l)
	})
	if err != nil {
		return LetterResponse{}, apierr.FromDB(err, "letter")
	}
	return s.Get(ctx, id)
}

// Delete hides the letter. Messages already delivered stay in the inboxes.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return apierr.FromDB(s.store.SoftDeleteLetter(ctx, s.db, id), "letter")
}

// ===== sending =====

type delivery struct {
	msg messages.Message
	to  Recipient
}

func uniq(in []int64) []int64 {
	seen := make(map[int64]bool, len(in))
	out := make([]int64, 0, len(in))
	for _, id := range in {
		if id > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Service) recipients(ctx context.Context, conn db.DBTX, associationID int64, memberIDs []int64) ([]Recipient, error) {
	rs, err := s.store.Recipients(ctx, conn, memberIDs)
	if err != nil {
		return nil, err
	}
	if len(rs) != len(memberIDs) {
		return nil, apierr.NotFound("one or more members not found")
	}
	for _, r := range rs {
		if r.AssociationID != associationID {
			return nil, apierr.Unprocessablef("member %d belongs to another association", r.MemberID)
		}
	}
	return rs, nil
}

// deliverTx renders one message per member and marks the letter sent.
func (s *Service) deliverTx(ctx context.Context, tx db.DBTX, l *Letter, memberIDs []int64) ([]delivery, error) {
	rs, err := s.recipients(ctx, tx, l.AssociationID, memberIDs)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := make([]delivery, 0, len(rs))
	for _, r := range rs {
		m := messages.Message{
			MessageRef:    s.ids.New(),
			LetterID:      l.LetterID,
			AssociationID: l.AssociationID,
			MemberID:      r.MemberID,
			Subject:       Render(l.Subject, r, now),
			Body:          Render(l.Body, r, now),
			SentAt:        now,
		}
		if err := messages.InsertTx(ctx, tx, &m); err != nil {
			return nil, err
		}
		out = append(out, delivery{msg: m, to: r})
	}
	if err := s.store.MarkSent(ctx, tx, l.LetterID, now); err != nil {
		return nil, err
	}
	return out, nil
}

// Send delivers the letter to the members. A letter can be sent more than
// once, e.g. to members who joined later.
func (s *Service) Send(ctx context.Context, id int64, in SendRequest) (SendResponse, error) {
	memberIDs := uniq(in.MemberIDs)
	if len(memberIDs) == 0 {
		return SendResponse{}, apierr.Invalid("member_ids must not be empty")
	}
	var out []delivery
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		l, err := s.store.LockLetter(ctx, tx, id)
		if err != nil {
			return err
		}
		out, err = s.deliverTx(ctx, tx, l, memberIDs)
		return err
	})
	if err != nil {
		return SendResponse{}, apierr.FromDB(err, "letter")
	}
	return s.afterSend(ctx, id, out), nil
}

// QuickSend creates the letter and sends it in one transaction.
func (s *Service) QuickSend(ctx context.Context, in QuickSendRequest, actor string) (SendResponse, error) {
	memberIDs := uniq(in.MemberIDs)
	if len(memberIDs) == 0 {
		return SendResponse{}, apierr.Invalid("member_ids must not be empty")
	}
	var (
		id  int64
		out []delivery
	)
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		l, err := s.letterFrom(ctx, tx, in.LetterRequest)
		if err != nil {
			return err
		}
		l.LetterRef = s.ids.New()
		l.Status = StatusDraft
		l.CreatedBy = db.NullString(&actor)
		if id, err = s.store.InsertLetter(ctx, tx, l); err != nil {
			return err
		}
		l.LetterID = id
		out, err = s.deliverTx(ctx, tx, l, memberIDs)
		return err
	})
	if err != nil {
		return SendResponse{}, apierr.FromDB(err, "letter")
	}
	return s.afterSend(ctx, id, out), nil
}

// afterSend mails the committed messages. Mail failures are logged and
// counted; the messages stay delivered in the inbox.
func (s *Service) afterSend(ctx context.Context, letterID int64, out []delivery) SendResponse {
	log := zerolog.Ctx(ctx)
	res := SendResponse{LetterID: letterID, Status: StatusSent, Sent: len(out), Messages: make([]SentMessage, 0, len(out))}
	for _, d := range out {
		sm := SentMessage{
			MessageID:  d.msg.MessageID,
			MemberID:   d.to.MemberID,
			MemberName: strings.TrimSpace(d.to.FirstName + " " + d.to.LastName),
			Subject:    d.msg.Subject,
		}
		if s.mail != nil && d.to.Email != "" {
			if err := s.mail.Send(ctx, d.to.Email, d.msg.Subject, d.msg.Body); err != nil {
				log.Warn().Err(err).Int64("letter_id", letterID).Int64("member_id", d.to.MemberID).Msg("mail delivery failed")
				s.metrics.MailFailed()
			} else {
				sm.Mailed = true
				res.Mailed++
			}
		}
		res.Messages = append(res.Messages, sm)
	}
	s.metrics.MessagesSent(len(out))
	log.Info().Int64("letter_id", letterID).Int("sent", res.Sent).Int("mailed", res.Mailed).Msg("letter sent")
	return res
}

// Preview renders the letter for one member without storing anything.
func (s *Service) Preview(ctx context.Context, id, memberID int64) (PreviewResponse, error) {
	l, err := s.store.GetLetter(ctx, s.db, id)
	if err != nil {
		return PreviewResponse{}, apierr.FromDB(err, "letter")
	}
	rs, err := s.recipients(ctx, s.db, l.AssociationID, []int64{memberID})
	if err != nil {
		return PreviewResponse{}, err
	}
	now := s.clock.Now()
	return PreviewResponse{
		LetterID: id,
		MemberID: memberID,
		Subject:  Render(l.Subject, rs[0], now),
		Body:     Render(l.Body, rs[0], now),
	}, nil
}

func (s *Service) Statistics(ctx context.Context, associationID int64) (Statistics, error) {
	out := Statistics{AssociationID: associationID}
	var err error
	if out.Templates, out.Drafts, out.Sent, err = s.store.Counts(ctx, s.db, associationID); err != nil {
		return Statistics{}, err
	}
	if out.Messages, out.UnreadMessages, err = s.messages.Counts(ctx, associationID); err != nil {
		return Statistics{}, err
	}
	out.ReadMessages = out.Messages - out.UnreadMessages
	return out, nil
}
