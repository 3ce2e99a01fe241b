package bank

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/allocation"
	"verein-backend/internal/finance/payments"
	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/ids"
	"verein-backend/internal/platform/metrics"
	"verein-backend/internal/platform/web"
)

type Service struct {
	db       *sql.DB
	store    *Store
	payments *payments.Service
	ids      ids.IDGen
	metrics  *metrics.Registry
}

func NewService(conn *sql.DB, pay *payments.Service, m *metrics.Registry) *Service {
	return &Service{db: conn, store: NewStore(), payments: pay, ids: ids.ULIDGen{}, metrics: m}
}

// ===== accounts =====

func optDate(name string, p *string, dst *sql.NullTime) error {
	if p == nil {
		return nil
	}
	t, err := db.ParseDate(p)
	if err != nil {
		return apierr.Invalid(name + " must be YYYY-MM-DD")
	}
	*dst = t
	return nil
}

func checkAccount(a *Account) error {
	a.IBAN = NormalizeIBAN(a.IBAN)
	if err := CheckIBAN(a.IBAN); err != nil {
		return apierr.Invalid("iban is not a valid IBAN")
	}
	if a.BIC.Valid {
		a.BIC.String = strings.ToUpper(a.BIC.String)
		if n := len(a.BIC.String); n != 8 && n != 11 {
			return apierr.Invalid("bic must have 8 or 11 characters")
		}
	}
	if a.ValidFrom.Valid && a.ValidTo.Valid && a.ValidTo.Time.Before(a.ValidFrom.Time) {
		return apierr.Invalid("valid_to must not be before valid_from")
	}
	return nil
}

func (s *Service) CreateAccount(ctx context.Context, in CreateAccountRequest) (AccountResponse, error) {
	a := &Account{
		AssociationID: in.AssociationID,
		IBAN:          in.IBAN,
		BIC:           db.NullString(in.BIC),
		AccountHolder: db.NullString(in.AccountHolder),
		BankName:      db.NullString(in.BankName),
		Description:   db.NullString(in.Description),
		IsDefault:     in.IsDefault,
		IsActive:      in.IsActive == nil || *in.IsActive,
	}
	if err := optDate("valid_from", in.ValidFrom, &a.ValidFrom); err != nil {
		return AccountResponse{}, err
	}
	if err := optDate("valid_to", in.ValidTo, &a.ValidTo); err != nil {
		return AccountResponse{}, err
	}
	if err := checkAccount(a); err != nil {
		return AccountResponse{}, err
	}
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if err := s.store.InsertAccount(ctx, tx, a); err != nil {
			return apierr.FromDB(err, "bank account")
		}
		if a.IsDefault {
			return s.store.ClearDefault(ctx, tx, a.AssociationID, a.BankAccountID)
		}
		return nil
	})
	if err != nil {
		return AccountResponse{}, err
	}
	return s.GetAccount(ctx, a.BankAccountID)
}

func (s *Service) GetAccount(ctx context.Context, id int64) (AccountResponse, error) {
	a, err := s.store.GetAccount(ctx, s.db, id)
	if err != nil {
		return AccountResponse{}, apierr.FromDB(err, "bank account")
	}
	return a.toResponse(), nil
}

func (s *Service) ListAccounts(ctx context.Context, associationID *int64, activeOnly bool) ([]AccountResponse, error) {
	rows, err := s.store.ListAccounts(ctx, s.db, associationID, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]AccountResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse())
	}
	return out, nil
}

func (s *Service) UpdateAccount(ctx context.Context, id int64, in UpdateAccountRequest) (AccountResponse, error) {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		a, err := s.store.GetAccount(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "bank account")
		}
		if in.IBAN != nil {
			a.IBAN = *in.IBAN
		}
		if in.BIC != nil {
			a.BIC = db.NullString(in.BIC)
		}
		if in.AccountHolder != nil {
			a.AccountHolder = db.NullString(in.AccountHolder)
		}
		if in.BankName != nil {
			a.BankName = db.NullString(in.BankName)
		}
		if in.Description != nil {
			a.Description = db.NullString(in.Description)
		}
		if err := optDate("valid_from", in.ValidFrom, &a.ValidFrom); err != nil {
			return err
		}
		if err := optDate("valid_to", in.ValidTo, &a.ValidTo); err != nil {
			return err
		}
		if in.IsDefault != nil {
			a.IsDefault = *in.IsDefault
		}
		if in.IsActive != nil {
			a.IsActive = *in.IsActive
		}
		if err := checkAccount(a); err != nil {
			return err
		}
		if err := s.store.UpdateAccount(ctx, tx, a); err != nil {
			return apierr.FromDB(err, "bank account")
		}
		if a.IsDefault {
			return s.store.ClearDefault(ctx, tx, a.AssociationID, a.BankAccountID)
		}
		return nil
	})
	if err != nil {
		return AccountResponse{}, err
	}
	return s.GetAccount(ctx, id)
}

func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	return apierr.FromDB(s.store.SoftDeleteAccount(ctx, s.db, id), "bank account")
}

// AccountOwner returns the association of a bank account for access checks.
func (s *Service) AccountOwner(ctx context.Context, id int64) (int64, error) {
	a, err := s.store.GetAccount(ctx, s.db, id)
	if err != nil {
		return 0, apierr.FromDB(err, "bank account")
	}
	return a.AssociationID, nil
}

// ===== transactions =====

func (s *Service) GetTransaction(ctx context.Context, id int64) (TransactionResponse, error) {
	t, err := s.store.GetTransaction(ctx, s.db, id)
	if err != nil {
		return TransactionResponse{}, apierr.FromDB(err, "bank transaction")
	}
	return t.toResponse(), nil
}

func (s *Service) TransactionOwner(ctx context.Context, id int64) (int64, error) {
	t, err := s.store.GetTransaction(ctx, s.db, id)
	if err != nil {
		return 0, apierr.FromDB(err, "bank transaction")
	}
	return t.AssociationID, nil
}

func (s *Service) ListTransactions(ctx context.Context, q TxSearchQuery, p web.Page) ([]TransactionResponse, int64, error) {
	if q.Status != nil {
		st := strings.ToUpper(*q.Status)
		q.Status = &st
	}
	rows, total, err := s.store.ListTransactions(ctx, s.db, q, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]TransactionResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse())
	}
	return out, total, nil
}

// Unmatched returns the count and sum of incoming rows without a payment.
func (s *Service) Unmatched(ctx context.Context, associationID int64) (int64, decimal.Decimal, error) {
	return s.store.UnmatchedSummary(ctx, s.db, associationID)
}

// ===== import =====

// Import reads a statement file into the account. Every line runs in its own
// transaction: the bank row, and for a matched incoming line the payment with
// FIFO allocation and remainder credit, commit together or not at all. A
// failing line does not affect the others.
func (s *Service) Import(ctx context.Context, accountID int64, r io.Reader, charset, actor string) (ImportResponse, error) {
	log := zerolog.Ctx(ctx)
	acc, err := s.store.GetAccount(ctx, s.db, accountID)
	if err != nil {
		return ImportResponse{}, apierr.FromDB(err, "bank account")
	}
	if !acc.IsActive {
		return ImportResponse{}, apierr.Unprocessable("bank account is inactive")
	}
	rows, err := ParseStatement(r, charset)
	if err != nil {
		if errors.Is(err, ErrCharset) || errors.Is(err, ErrNoHeader) || errors.Is(err, ErrEmptyFile) {
			return ImportResponse{}, apierr.Invalid(err.Error())
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return ImportResponse{}, apierr.Invalid("statement: " + err.Error())
		}
		return ImportResponse{}, err
	}
	cands, err := s.store.Candidates(ctx, s.db, acc.AssociationID)
	if err != nil {
		return ImportResponse{}, err
	}
	matcher := NewMatcher(cands)

	out := ImportResponse{ImportBatch: s.ids.New(), TotalRows: len(rows), Details: make([]ImportDetail, 0, len(rows))}
	log.Info().Int64("bank_account_id", accountID).Int("rows", len(rows)).Int("members", len(cands)).
		Str("import_batch", out.ImportBatch).Msg("bank import started")

	for _, row := range rows {
		d := s.importRow(ctx, acc, out.ImportBatch, row, matcher, actor)
		s.metrics.BankRow(d.Status)
		out.add(d)
	}

	log.Info().Str("import_batch", out.ImportBatch).
		Int("success", out.SuccessCount).Int("skipped", out.SkippedCount).
		Int("unmatched", out.UnmatchedCount).Int("failed", out.FailedCount).
		Msg("bank import finished")
	return out, nil
}

func (s *Service) importRow(ctx context.Context, acc *Account, batch string, row StatementRow, m *Matcher, actor string) ImportDetail {
	d := ImportDetail{Row: row.Line, Counterparty: row.Counterparty, Purpose: row.Purpose, Reference: row.Reference}
	if row.Err != nil {
		d.Status, d.Message = RowFailed, row.Err.Error()
		return d
	}
	booked := row.BookedOn.Format(web.DateLayout)
	amount := row.Amount
	d.BookedOn, d.Amount = &booked, &amount
	if amount.IsZero() {
		d.Status, d.Message = RowSkipped, "zero amount"
		return d
	}

	var (
		booking *payments.BookResult
		cand    Candidate
		matched bool
	)
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		dup, err := s.store.Duplicate(ctx, tx, acc.BankAccountID, row)
		if err != nil {
			return err
		}
		if dup {
			d.Status, d.Message = RowSkipped, "duplicate transaction (already imported)"
			return nil
		}
		t := &Transaction{
			AssociationID: acc.AssociationID,
			BankAccountID: acc.BankAccountID,
			ImportBatch:   sql.NullString{String: batch, Valid: true},
			BookedOn:      row.BookedOn,
			Amount:        row.Amount,
			Currency:      "EUR",
			Counterparty:  db.NullString(&row.Counterparty),
			Purpose:       db.NullString(&row.Purpose),
			Reference:     db.NullString(&row.Reference),
			Status:        StatusImported,
		}
		if err := s.store.InsertTransaction(ctx, tx, t); err != nil {
			return err
		}
		d.BankTransactionID = &t.BankTransactionID

		if !amount.IsPositive() {
			d.Status, d.Message = RowSuccess, "outgoing transaction stored"
			return nil
		}
		cand, matched = m.Match(row.Counterparty, row.Purpose, row.Reference)
		if !matched {
			d.Status, d.Message = RowUnmatched, "no member match found, manual matching required"
			return nil
		}

		res, err := s.payments.BookTx(ctx, tx, payments.Booking{
			AssociationID:     acc.AssociationID,
			MemberID:          cand.MemberID,
			PaymentType:       "BEITRAG",
			Amount:            amount,
			Currency:          "EUR",
			PaidOn:            row.BookedOn,
			Method:            payments.MethodTransfer,
			BankAccountID:     &acc.BankAccountID,
			BankTransactionID: &t.BankTransactionID,
			Reference:         db.StringPtr(t.Reference),
			Note:              importNote(row.Purpose),
			AutoAllocate:      true,
			RemainderAsCredit: true,
			Actor:             actor,
		})
		if err != nil {
			return err
		}
		if err := s.store.SetStatus(ctx, tx, t.BankTransactionID, StatusMatched); err != nil {
			return err
		}
		booking = &res
		return nil
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int("row", row.Line).Msg("bank import row failed")
		return ImportDetail{
			Row: row.Line, BookedOn: d.BookedOn, Amount: d.Amount,
			Counterparty: row.Counterparty, Purpose: row.Purpose, Reference: row.Reference,
			Status: RowFailed, Message: err.Error(),
		}
	}
	if booking != nil {
		s.payments.Booked(ctx, *booking, "bank_import")
		alloc := booking.Plan.Allocated
		d.Status = RowSuccess
		d.Message = fmt.Sprintf("matched to member %s, %s allocated", cand.Name(), alloc.StringFixed(2))
		d.MemberID = &cand.MemberID
		d.MemberName = cand.Name()
		d.PaymentID = &booking.PaymentID
		d.Allocated = &alloc
	}
	return d
}

func importNote(purpose string) *string {
	n := truncate("Bankimport: "+purpose, 250)
	return &n
}

// Match books an unmatched incoming bank row as a payment of the member.
// Without claim ids the payment is allocated FIFO.
func (s *Service) Match(ctx context.Context, id int64, in MatchRequest, actor string) (MatchResponse, error) {
	if len(in.ClaimIDs) != len(in.Amounts) {
		return MatchResponse{}, apierr.Invalid("claim_ids and amounts must have the same length")
	}
	reqs := make([]allocation.Request, len(in.ClaimIDs))
	for i := range in.ClaimIDs {
		reqs[i] = allocation.Request{ClaimID: in.ClaimIDs[i], Amount: in.Amounts[i]}
	}
	remainder := in.RemainderAsCredit == nil || *in.RemainderAsCredit

	var (
		res    payments.BookResult
		amount decimal.Decimal
	)
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		t, err := s.store.LockTransaction(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "bank transaction")
		}
		if t.Status != StatusImported || t.PaymentID.Valid {
			return apierr.Conflict("bank transaction is already matched")
		}
		if !t.Amount.IsPositive() {
			return apierr.Unprocessable("only incoming transactions can be matched to a member")
		}
		amount = t.Amount
		note := "Manuell zugeordnet aus Bankbuchung"
		if t.Purpose.Valid {
			note += ": " + t.Purpose.String
		}
		note = truncate(note, 250)
		res, err = s.payments.BookTx(ctx, tx, payments.Booking{
			AssociationID:     t.AssociationID,
			MemberID:          in.MemberID,
			PaymentType:       "BEITRAG",
			Amount:            t.Amount,
			Currency:          t.Currency,
			PaidOn:            t.BookedOn,
			Method:            payments.MethodTransfer,
			BankAccountID:     &t.BankAccountID,
			BankTransactionID: &t.BankTransactionID,
			Reference:         db.StringPtr(t.Reference),
			Note:              &note,
			Allocations:       reqs,
			AutoAllocate:      len(reqs) == 0,
			RemainderAsCredit: remainder,
			LedgerNumber:      in.LedgerNumber,
			Actor:             actor,
		})
		if err != nil {
			return err
		}
		return s.store.SetStatus(ctx, tx, id, StatusMatched)
	})
	if err != nil {
		return MatchResponse{}, err
	}
	s.payments.Booked(ctx, res, "bank_match")

	out := MatchResponse{
		BankTransactionID: id,
		PaymentID:         res.PaymentID,
		PaymentRef:        res.PaymentRef,
		MatchedClaimIDs:   make([]int64, 0, len(res.Plan.Lines)),
		AllocatedAmount:   res.Plan.Allocated,
		RemainingAmount:   amount.Sub(res.Plan.Allocated),
		CreditID:          res.CreditID,
	}
	for _, l := range res.Plan.Lines {
		out.MatchedClaimIDs = append(out.MatchedClaimIDs, l.ClaimID)
	}
	return out, nil
}
