package transit

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/allocation"
	"verein-backend/internal/finance/cashbook"
	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/web"
)

type Service struct {
	db      *sql.DB
	store   *Store
	entries *cashbook.Store
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, store: NewStore(), entries: cashbook.NewStore()}
}

// bookingMethod returns the cash book method, or "" when nothing is booked.
func bookingMethod(p *string) (string, error) {
	if p == nil || strings.TrimSpace(*p) == "" {
		return "", nil
	}
	m := strings.ToUpper(strings.TrimSpace(*p))
	if m != "BAR" && m != "UEBERWEISUNG" {
		return "", apierr.Invalid("method must be BAR or UEBERWEISUNG")
	}
	return m, nil
}

func parseDay(v, field string) (time.Time, error) {
	t, err := time.Parse(web.DateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, apierr.Invalidf("%s must be YYYY-MM-DD", field)
	}
	return t, nil
}

func (s *Service) checkLedger(ctx context.Context, conn db.DBTX, number string) error {
	ok, err := s.entries.ActiveLedger(ctx, conn, number)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.Unprocessable("ledger account is unknown or inactive")
	}
	return nil
}

// checkPaid validates a payout against the received amount.
func checkPaid(i *Item) error {
	if !i.PaidAmount.Valid {
		if i.PaidOn.Valid {
			return apierr.Invalid("paid_on needs paid_amount")
		}
		return nil
	}
	if i.PaidAmount.Decimal.IsNegative() || !i.PaidAmount.Decimal.Equal(i.PaidAmount.Decimal.Round(2)) {
		return apierr.Invalid("paid_amount must not be negative and have at most 2 decimals")
	}
	if i.PaidAmount.Decimal.GreaterThan(i.ReceivedAmount) {
		return apierr.Unprocessablef("paid_amount %s exceeds the received amount %s",
			i.PaidAmount.Decimal.StringFixed(2), i.ReceivedAmount.StringFixed(2))
	}
	if i.PaidOn.Valid && i.PaidOn.Time.Before(i.ReceivedOn) {
		return apierr.Invalid("paid_on is before received_on")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in ItemRequest, actor string) (ItemResponse, error) {
	if in.AssociationID <= 0 {
		return ItemResponse{}, apierr.Invalid("association_id is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return ItemResponse{}, apierr.Invalid("title is required")
	}
	received, err := parseDay(in.ReceivedOn, "received_on")
	if err != nil {
		return ItemResponse{}, err
	}
	if err := allocation.CheckAmount(in.ReceivedAmount); err != nil {
		return ItemResponse{}, err
	}
	method, err := bookingMethod(in.Method)
	if err != nil {
		return ItemResponse{}, err
	}
	it := &Item{
		AssociationID:  in.AssociationID,
		LedgerNumber:   strings.TrimSpace(in.LedgerNumber),
		Title:          title,
		ReceivedOn:     received,
		ReceivedAmount: in.ReceivedAmount,
		Recipient:      db.NullString(in.Recipient),
		Reference:      db.NullString(in.Reference),
		Status:         StatusOpen,
		Note:           db.NullString(in.Note),
	}

	var id int64
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if err := s.checkLedger(ctx, tx, it.LedgerNumber); err != nil {
			return err
		}
		if method != "" {
			cashIn, bankIn := cashbook.Incoming(method, it.ReceivedAmount)
			e := &cashbook.Entry{
				AssociationID: it.AssociationID,
				VoucherDate:   it.ReceivedOn,
				LedgerNumber:  it.LedgerNumber,
				Purpose:       "Durchlaufender Posten " + it.Title,
				CashIn:        cashIn,
				BankIn:        bankIn,
				Method:        sql.NullString{String: method, Valid: true},
				CreatedBy:     db.NullString(&actor),
			}
			if err := cashbook.InsertTx(ctx, tx, e); err != nil {
				return err
			}
			it.InEntryID = sql.NullInt64{Int64: e.EntryID, Valid: true}
		}
		var err error
		id, err = s.store.Insert(ctx, tx, it)
		return apierr.FromDB(err, "transit item")
	})
	if err != nil {
		return ItemResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("item_id", id).Int64("association_id", it.AssociationID).
		Str("amount", it.ReceivedAmount.StringFixed(2)).Msg("transit item created")
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (ItemResponse, error) {
	it, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return ItemResponse{}, apierr.FromDB(err, "transit item")
	}
	return it.toResponse(), nil
}

func (s *Service) Owner(ctx context.Context, id int64) (int64, error) {
	it, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return 0, apierr.FromDB(err, "transit item")
	}
	return it.AssociationID, nil
}

func (s *Service) List(ctx context.Context, q SearchQuery, p web.Page) ([]ItemResponse, int64, error) {
	if q.Status != nil {
		st := strings.ToUpper(*q.Status)
		if st != StatusOpen && st != StatusPartial && st != StatusClosed {
			return nil, 0, apierr.Invalid("status must be OFFEN, TEILWEISE or ABGESCHLOSSEN")
		}
	}
	rows, total, err := s.store.List(ctx, s.db, q, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ItemResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse())
	}
	return out, total, nil
}

// Update changes the given fields and recomputes the status. The received
// amount is fixed once the receipt is booked.
func (s *Service) Update(ctx context.Context, id int64, in UpdateItemRequest) (ItemResponse, error) {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		it, err := s.store.Lock(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "transit item")
		}
		if in.LedgerNumber != nil && strings.TrimSpace(*in.LedgerNumber) != it.LedgerNumber {
			it.LedgerNumber = strings.TrimSpace(*in.LedgerNumber)
			if err := s.checkLedger(ctx, tx, it.LedgerNumber); err != nil {
				return err
			}
		}
		if in.Title != nil {
			if it.Title = strings.TrimSpace(*in.Title); it.Title == "" {
				return apierr.Invalid("title must not be empty")
			}
		}
		if in.ReceivedOn != nil {
			if it.ReceivedOn, err = parseDay(*in.ReceivedOn, "received_on"); err != nil {
				return err
			}
		}
		if in.ReceivedAmount != nil && !in.ReceivedAmount.Equal(it.ReceivedAmount) {
			if it.InEntryID.Valid {
				return apierr.Conflict("received amount is booked in the cash book")
			}
			if err := allocation.CheckAmount(*in.ReceivedAmount); err != nil {
				return err
			}
			it.ReceivedAmount = *in.ReceivedAmount
		}
		if in.PaidOn != nil {
			if it.PaidOn, err = db.ParseDate(in.PaidOn); err != nil {
				return apierr.Invalid("paid_on must be YYYY-MM-DD")
			}
		}
		if in.PaidAmount != nil {
			if it.OutEntryID.Valid && !in.PaidAmount.Equal(it.PaidAmount.Decimal) {
				return apierr.Conflict("payout is booked in the cash book")
			}
			it.PaidAmount = decimal.NullDecimal{Decimal: *in.PaidAmount, Valid: true}
		}
		if in.Recipient != nil {
			it.Recipient = db.NullString(in.Recipient)
		}
		if in.Reference != nil {
			it.Reference = db.NullString(in.Reference)
		}
		if in.Note != nil {
			it.Note = db.NullString(in.Note)
		}
		if err := checkPaid(it); err != nil {
			return err
		}
		it.Status = statusFor(it.ReceivedAmount, it.PaidAmount)
		return s.store.Update(ctx, tx, it)
	})
	if err != nil {
		return ItemResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("item_id", id).Msg("transit item updated")
	return s.Get(ctx, id)
}

// Close records the payout. A full payout closes the item, a smaller one
// leaves it partial.
func (s *Service) Close(ctx context.Context, id int64, in CloseRequest, actor string) (ItemResponse, error) {
	paidOn, err := parseDay(in.PaidOn, "paid_on")
	if err != nil {
		return ItemResponse{}, err
	}
	if err := allocation.CheckAmount(in.PaidAmount); err != nil {
		return ItemResponse{}, err
	}
	method, err := bookingMethod(in.Method)
	if err != nil {
		return ItemResponse{}, err
	}
	var status string
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		it, err := s.store.Lock(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "transit item")
		}
		if it.Status == StatusClosed {
			return apierr.Conflict("transit item is already closed")
		}
		if method != "" && it.OutEntryID.Valid {
			return apierr.Conflict("payout is already booked in the cash book")
		}
		it.PaidOn = sql.NullTime{Time: paidOn, Valid: true}
		it.PaidAmount = decimal.NullDecimal{Decimal: in.PaidAmount, Valid: true}
		if in.Reference != nil {
			it.Reference = db.NullString(in.Reference)
		}
		if err := checkPaid(it); err != nil {
			return err
		}
		it.Status = statusFor(it.ReceivedAmount, it.PaidAmount)
		if method != "" {
			cashOut, bankOut := cashbook.Outgoing(method, in.PaidAmount)
			purpose := "Weiterleitung " + it.Title
			if it.Recipient.Valid {
				purpose += " an " + it.Recipient.String
			}
			e := &cashbook.Entry{
				AssociationID: it.AssociationID,
				VoucherDate:   paidOn,
				LedgerNumber:  it.LedgerNumber,
				Purpose:       purpose,
				CashOut:       cashOut,
				BankOut:       bankOut,
				Method:        sql.NullString{String: method, Valid: true},
				Note:          it.Reference,
				CreatedBy:     db.NullString(&actor),
			}
			if err := cashbook.InsertTx(ctx, tx, e); err != nil {
				return err
			}
			it.OutEntryID = sql.NullInt64{Int64: e.EntryID, Valid: true}
		}
		status = it.Status
		return s.store.Update(ctx, tx, it)
	})
	if err != nil {
		return ItemResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("item_id", id).Str("status", status).Msg("transit item closed")
	return s.Get(ctx, id)
}

// Delete removes an item without cash book entries.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		it, err := s.store.Lock(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "transit item")
		}
		if it.InEntryID.Valid || it.OutEntryID.Valid {
			return apierr.Conflict("transit item has cash book entries")
		}
		return s.store.SoftDelete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Int64("item_id", id).Msg("transit item deleted")
	return nil
}

func (s *Service) OpenTotal(ctx context.Context, associationID int64) (OpenTotalResponse, error) {
	total, err := s.store.OpenTotal(ctx, s.db, associationID)
	if err != nil {
		return OpenTotalResponse{}, err
	}
	return OpenTotalResponse{AssociationID: associationID, OpenAmount: total}, nil
}

func (s *Service) ByRecipient(ctx context.Context, associationID int64) ([]RecipientSummary, error) {
	return s.store.ByRecipient(ctx, s.db, associationID)
}
