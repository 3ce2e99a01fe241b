package cashbook

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/ids"
	"verein-backend/internal/platform/web"
)

type Service struct {
	db    *sql.DB
	store *Store
	clock ids.Clock
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, store: NewStore(), clock: ids.RealClock{}}
}

// ===== ledger accounts =====

func ledgerFrom(in LedgerAccountRequest) (*LedgerAccount, error) {
	l := &LedgerAccount{
		Number:       strings.TrimSpace(in.Number),
		Name:         strings.TrimSpace(in.Name),
		Area:         db.NullString(in.Area),
		Kind:         db.NullString(in.Kind),
		MainArea:     db.NullString(in.MainArea),
		MainAreaName: db.NullString(in.MainAreaName),
		IsActive:     true,
	}
	if l.Number == "" || l.Name == "" {
		return nil, apierr.Invalid("number and name are required")
	}
	if len(l.Number) > 10 {
		return nil, apierr.Invalid("number is longer than 10 characters")
	}
	if in.SortOrder != nil {
		l.SortOrder = *in.SortOrder
	}
	if in.IsActive != nil {
		l.IsActive = *in.IsActive
	}
	return l, nil
}

func (s *Service) CreateLedger(ctx context.Context, in LedgerAccountRequest) (LedgerAccountResponse, error) {
	l, err := ledgerFrom(in)
	if err != nil {
		return LedgerAccountResponse{}, err
	}
	id, err := s.store.InsertLedger(ctx, s.db, l)
	if err != nil {
		return LedgerAccountResponse{}, apierr.FromDB(err, "ledger account")
	}
	return s.GetLedger(ctx, id)
}

func (s *Service) GetLedger(ctx context.Context, id int64) (LedgerAccountResponse, error) {
	l, err := s.store.GetLedger(ctx, s.db, id)
	if err != nil {
		return LedgerAccountResponse{}, apierr.FromDB(err, "ledger account")
	}
	return l.toResponse(), nil
}

func (s *Service) ListLedgers(ctx context.Context, activeOnly bool, area *string) ([]LedgerAccountResponse, error) {
	rows, err := s.store.ListLedgers(ctx, s.db, activeOnly, area)
	if err != nil {
		return nil, err
	}
	out := make([]LedgerAccountResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse())
	}
	return out, nil
}

func (s *Service) UpdateLedger(ctx context.Context, id int64, in LedgerAccountRequest) (LedgerAccountResponse, error) {
	l, err := ledgerFrom(in)
	if err != nil {
		return LedgerAccountResponse{}, err
	}
	l.LedgerAccountID = id
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		cur, err := s.store.GetLedger(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.Number != l.Number {
			used, err := s.store.LedgerInUse(ctx, tx, cur.Number)
			if err != nil {
				return err
			}
			if used {
				return apierr.Conflict("ledger account has entries, number cannot change")
			}
		}
		return s.store.UpdateLedger(ctx, tx, l)
	})
	if err != nil {
		return LedgerAccountResponse{}, apierr.FromDB(err, "ledger account")
	}
	return s.GetLedger(ctx, id)
}

func (s *Service) DeleteLedger(ctx context.Context, id int64) error {
	l, err := s.store.GetLedger(ctx, s.db, id)
	if err != nil {
		return apierr.FromDB(err, "ledger account")
	}
	used, err := s.store.LedgerInUse(ctx, s.db, l.Number)
	if err != nil {
		return err
	}
	if used {
		return apierr.Conflict("ledger account has entries")
	}
	return apierr.FromDB(s.store.SoftDeleteLedger(ctx, s.db, id), "ledger account")
}

// ===== entries =====

var errMissingYear = apierr.Invalid("association_id and year are required")

var errOneAmount = apierr.Invalid("exactly one of cash_in, cash_out, bank_in, bank_out must be greater than zero")

// amounts checks that exactly one column is set and positive.
func amounts(in EntryRequest) (cashIn, cashOut, bankIn, bankOut decimal.NullDecimal, err error) {
	cols := []*decimal.Decimal{in.CashIn, in.CashOut, in.BankIn, in.BankOut}
	set := 0
	for _, v := range cols {
		if v == nil || v.IsZero() {
			continue
		}
		if !v.IsPositive() {
			return cashIn, cashOut, bankIn, bankOut, errOneAmount
		}
		if !v.Equal(v.Round(2)) {
			return cashIn, cashOut, bankIn, bankOut, apierr.Invalid("amounts have at most two decimal places")
		}
		set++
	}
	if set != 1 {
		return cashIn, cashOut, bankIn, bankOut, errOneAmount
	}
	pick := func(v *decimal.Decimal) decimal.NullDecimal {
		if v == nil || v.IsZero() {
			return decimal.NullDecimal{}
		}
		return decimal.NullDecimal{Decimal: *v, Valid: true}
	}
	return pick(in.CashIn), pick(in.CashOut), pick(in.BankIn), pick(in.BankOut), nil
}

func (s *Service) entryFrom(ctx context.Context, conn db.DBTX, in EntryRequest) (*Entry, error) {
	if in.AssociationID <= 0 {
		return nil, apierr.Invalid("association_id is required")
	}
	date, err := time.Parse(web.DateLayout, strings.TrimSpace(in.VoucherDate))
	if err != nil {
		return nil, apierr.Invalid("voucher_date must be YYYY-MM-DD")
	}
	purpose := strings.TrimSpace(in.Purpose)
	if purpose == "" {
		return nil, apierr.Invalid("purpose is required")
	}
	e := &Entry{
		AssociationID: in.AssociationID,
		VoucherDate:   date,
		LedgerNumber:  strings.TrimSpace(in.LedgerNumber),
		Purpose:       purpose,
		Method:        db.NullString(in.Method),
		Note:          db.NullString(in.Note),
		MemberID:      db.NullInt64(in.MemberID),
	}
	if e.CashIn, e.CashOut, e.BankIn, e.BankOut, err = amounts(in); err != nil {
		return nil, err
	}
	ok, err := s.store.ActiveLedger(ctx, conn, e.LedgerNumber)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.Unprocessablef("ledger account %q does not exist or is inactive", e.LedgerNumber)
	}
	return e, nil
}

func (s *Service) CreateEntry(ctx context.Context, in EntryRequest, actor string) (EntryResponse, error) {
	var id int64
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		e, err := s.entryFrom(ctx, tx, in)
		if err != nil {
			return err
		}
		e.CreatedBy = db.NullString(&actor)
		if err := InsertTx(ctx, tx, e); err != nil {
			return err
		}
		id = e.EntryID
		return nil
	})
	if err != nil {
		return EntryResponse{}, apierr.FromDB(err, "cashbook entry")
	}
	zerolog.Ctx(ctx).Info().Int64("entry_id", id).Int64("association_id", in.AssociationID).Msg("cashbook entry created")
	return s.GetEntry(ctx, id)
}

func (s *Service) GetEntry(ctx context.Context, id int64) (EntryResponse, error) {
	e, err := s.store.GetEntry(ctx, s.db, id)
	if err != nil {
		return EntryResponse{}, apierr.FromDB(err, "cashbook entry")
	}
	return e.toResponse(), nil
}

// EntryOwner returns the association of an entry for access checks.
func (s *Service) EntryOwner(ctx context.Context, id int64) (int64, error) {
	e, err := s.store.GetEntry(ctx, s.db, id)
	if err != nil {
		return 0, apierr.FromDB(err, "cashbook entry")
	}
	return e.AssociationID, nil
}

func (s *Service) ListEntries(ctx context.Context, q EntrySearchQuery, p web.Page) ([]EntryResponse, int64, error) {
	rows, total, err := s.store.ListEntries(ctx, s.db, q, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]EntryResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse())
	}
	return out, total, nil
}

// UpdateEntry rewrites an entry. The voucher number stays, so the date must
// remain in the entry's fiscal year, and closed years are read-only.
func (s *Service) UpdateEntry(ctx context.Context, id int64, in EntryRequest) (EntryResponse, error) {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		cur, err := s.store.LockEntry(ctx, tx, id)
		if err != nil {
			return err
		}
		in.AssociationID = cur.AssociationID
		e, err := s.entryFrom(ctx, tx, in)
		if err != nil {
			return err
		}
		if e.VoucherDate.Year() != cur.FiscalYear {
			return apierr.Unprocessablef("voucher_date must stay in fiscal year %d", cur.FiscalYear)
		}
		if err := s.writable(ctx, tx, cur); err != nil {
			return err
		}
		e.EntryID = id
		return s.store.UpdateEntry(ctx, tx, e, s.clock.Now())
	})
	if err != nil {
		return EntryResponse{}, apierr.FromDB(err, "cashbook entry")
	}
	return s.GetEntry(ctx, id)
}

func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		cur, err := s.store.LockEntry(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.writable(ctx, tx, cur); err != nil {
			return err
		}
		return s.store.SoftDeleteEntry(ctx, tx, id)
	})
	return apierr.FromDB(err, "cashbook entry")
}

func (s *Service) writable(ctx context.Context, tx db.DBTX, e *Entry) error {
	closed, err := ClosedTx(ctx, tx, e.AssociationID, e.FiscalYear)
	if err != nil {
		return err
	}
	if closed {
		return apierr.Conflict("fiscal year is closed")
	}
	return nil
}

// ===== summary =====

func (s *Service) Summary(ctx context.Context, associationID int64, year int) (YearSummary, error) {
	out := YearSummary{AssociationID: associationID, Year: year}
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		var err error
		out.CashIn, out.CashOut, out.BankIn, out.BankOut, err = s.store.Totals(ctx, tx, associationID, year)
		if err != nil {
			return err
		}
		out.ByAccount, err = s.store.TotalsByAccount(ctx, tx, associationID, year)
		return err
	})
	if err != nil {
		return YearSummary{}, err
	}
	out.TotalIncome = out.CashIn.Add(out.BankIn)
	out.TotalExpenses = out.CashOut.Add(out.BankOut)
	out.Result = out.TotalIncome.Sub(out.TotalExpenses)
	out.CashBalance = out.CashIn.Sub(out.CashOut)
	out.BankBalance = out.BankIn.Sub(out.BankOut)
	return out, nil
}

// ===== closings =====

// CreateClosing closes a fiscal year. Opening balances come from the request
// or else from the previous year's closing (zero when there is none); closing
// balances are the opening plus the year's net cash and bank movement.
func (s *Service) CreateClosing(ctx context.Context, in ClosingRequest) (ClosingResponse, error) {
	if in.Year < 1900 || in.Year > 9999 {
		return ClosingResponse{}, apierr.Invalid("year is out of range")
	}
	closedOn := s.clock.Now()
	if in.ClosedOn != nil {
		t, err := time.Parse(web.DateLayout, strings.TrimSpace(*in.ClosedOn))
		if err != nil {
			return ClosingResponse{}, apierr.Invalid("closed_on must be YYYY-MM-DD")
		}
		closedOn = t
	}
	if in.SavingsClosing != nil && in.SavingsClosing.IsNegative() {
		return ClosingResponse{}, apierr.Invalid("savings_closing must not be negative")
	}

	var id int64
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		closed, err := ClosedTx(ctx, tx, in.AssociationID, in.Year)
		if err != nil {
			return err
		}
		if closed {
			return apierr.Conflict("fiscal year is already closed")
		}

		c := &Closing{
			AssociationID:  in.AssociationID,
			Year:           in.Year,
			ClosedOn:       closedOn,
			SavingsClosing: db.NullDecimal(in.SavingsClosing),
			Note:           db.NullString(in.Note),
		}
		if in.CashOpening == nil || in.BankOpening == nil {
			prev, err := s.store.ClosingForYear(ctx, tx, in.AssociationID, in.Year-1)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				c.CashOpening, c.BankOpening = decimal.Zero, decimal.Zero
			case err != nil:
				return err
			default:
				c.CashOpening, c.BankOpening = prev.CashClosing, prev.BankClosing
			}
		}
		if in.CashOpening != nil {
			c.CashOpening = *in.CashOpening
		}
		if in.BankOpening != nil {
			c.BankOpening = *in.BankOpening
		}

		cashIn, cashOut, bankIn, bankOut, err := s.store.Totals(ctx, tx, in.AssociationID, in.Year)
		if err != nil {
			return err
		}
		c.CashClosing = c.CashOpening.Add(cashIn).Sub(cashOut)
		c.BankClosing = c.BankOpening.Add(bankIn).Sub(bankOut)

		id, err = s.store.InsertClosing(ctx, tx, c)
		return err
	})
	if err != nil {
		return ClosingResponse{}, apierr.FromDB(err, "closing")
	}
	zerolog.Ctx(ctx).Info().Int64("association_id", in.AssociationID).Int("year", in.Year).Msg("fiscal year closed")
	return s.GetClosing(ctx, id)
}

func (s *Service) GetClosing(ctx context.Context, id int64) (ClosingResponse, error) {
	c, err := s.store.GetClosing(ctx, s.db, id)
	if err != nil {
		return ClosingResponse{}, apierr.FromDB(err, "closing")
	}
	return c.toResponse(), nil
}

func (s *Service) ClosingOwner(ctx context.Context, id int64) (int64, error) {
	c, err := s.store.GetClosing(ctx, s.db, id)
	if err != nil {
		return 0, apierr.FromDB(err, "closing")
	}
	return c.AssociationID, nil
}

func (s *Service) ListClosings(ctx context.Context, associationID *int64) ([]ClosingResponse, error) {
	rows, err := s.store.ListClosings(ctx, s.db, associationID)
	if err != nil {
		return nil, err
	}
	out := make([]ClosingResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse())
	}
	return out, nil
}

// Audit marks a closing as checked by the auditors (Kassenprüfer).
func (s *Service) Audit(ctx context.Context, id int64, in AuditRequest) (ClosingResponse, error) {
	by := strings.TrimSpace(in.AuditedBy)
	if by == "" {
		return ClosingResponse{}, apierr.Invalid("audited_by is required")
	}
	if err := s.store.MarkAudited(ctx, s.db, id, by, s.clock.Now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, gerr := s.store.GetClosing(ctx, s.db, id); gerr == nil {
				return ClosingResponse{}, apierr.Conflict("closing is already audited")
			}
		}
		return ClosingResponse{}, apierr.FromDB(err, "closing")
	}
	return s.GetClosing(ctx, id)
}

// ReopenYear removes an unaudited closing so the year takes entries again.
func (s *Service) ReopenYear(ctx context.Context, id int64) error {
	if err := s.store.DeleteClosing(ctx, s.db, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, gerr := s.store.GetClosing(ctx, s.db, id); gerr == nil {
				return apierr.Conflict("audited closings cannot be reopened")
			}
		}
		return apierr.FromDB(err, "closing")
	}
	return nil
}
