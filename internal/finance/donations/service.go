package donations

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

func protocolFrom(in ProtocolRequest, actor string) (*Protocol, []Detail, error) {
	on, err := time.Parse(web.DateLayout, strings.TrimSpace(in.DonatedOn))
	if err != nil {
		return nil, nil, apierr.Invalid("donated_on must be YYYY-MM-DD")
	}
	p := &Protocol{
		AssociationID: in.AssociationID,
		DonatedOn:     on,
		Purpose:       db.NullString(in.Purpose),
		Category:      db.NullString(in.Category),
		RecordedBy:    db.NullString(in.RecordedBy),
		Note:          db.NullString(in.Note),
		CreatedBy:     db.NullString(&actor),
	}
	if p.Category.Valid {
		p.Category.String = strings.ToUpper(p.Category.String)
	}
	if len(in.Witnesses) > maxWitnesses {
		return nil, nil, apierr.Invalidf("at most %d witnesses", maxWitnesses)
	}
	for i, name := range in.Witnesses {
		w := db.NullString(&name)
		if !w.Valid {
			return nil, nil, apierr.Invalid("witness names must not be empty")
		}
		p.Witnesses[i].Name = w
	}

	details := make([]Detail, 0, len(in.Details))
	sum := decimal.Zero
	for _, d := range in.Details {
		desc := strings.TrimSpace(d.Description)
		if desc == "" {
			return nil, nil, apierr.Invalid("detail description is required")
		}
		if d.Quantity < 1 {
			return nil, nil, apierr.Invalid("detail quantity must be at least 1")
		}
		if err := allocation.CheckAmount(d.UnitValue); err != nil {
			return nil, nil, apierr.Invalid("detail unit_value: " + err.Error())
		}
		total := d.UnitValue.Mul(decimal.NewFromInt(int64(d.Quantity)))
		details = append(details, Detail{Description: desc, UnitValue: d.UnitValue, Quantity: d.Quantity, Total: total})
		sum = sum.Add(total)
	}

	switch {
	case len(details) > 0:
		if in.Amount != nil && !in.Amount.Equal(sum) {
			return nil, nil, apierr.Unprocessablef("amount %s does not match the details total %s",
				in.Amount.StringFixed(2), sum.StringFixed(2))
		}
		p.Amount = sum
	case in.Amount != nil:
		if err := allocation.CheckAmount(*in.Amount); err != nil {
			return nil, nil, apierr.Invalid("amount: " + err.Error())
		}
		p.Amount = *in.Amount
	default:
		return nil, nil, apierr.Invalid("amount or details are required")
	}
	return p, details, nil
}

func (s *Service) Create(ctx context.Context, in ProtocolRequest, actor string) (ProtocolResponse, error) {
	if in.AssociationID == 0 {
		return ProtocolResponse{}, apierr.Invalid("association_id is required")
	}
	p, details, err := protocolFrom(in, actor)
	if err != nil {
		return ProtocolResponse{}, err
	}
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		id, err := s.store.Insert(ctx, tx, p)
		if err != nil {
			return apierr.FromDB(err, "association")
		}
		p.ProtocolID = id
		return s.store.InsertDetails(ctx, tx, id, details)
	})
	if err != nil {
		return ProtocolResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("protocol_id", p.ProtocolID).Str("amount", p.Amount.StringFixed(2)).
		Int("details", len(details)).Msg("donation protocol created")
	return s.Get(ctx, p.ProtocolID)
}

func (s *Service) Get(ctx context.Context, id int64) (ProtocolResponse, error) {
	p, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return ProtocolResponse{}, apierr.FromDB(err, "donation protocol")
	}
	if p.Details, err = s.store.Details(ctx, s.db, id); err != nil {
		return ProtocolResponse{}, err
	}
	return p.toResponse(), nil
}

func (s *Service) Owner(ctx context.Context, id int64) (int64, error) {
	p, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return 0, apierr.FromDB(err, "donation protocol")
	}
	return p.AssociationID, nil
}

func (s *Service) List(ctx context.Context, q SearchQuery, p web.Page) ([]ProtocolResponse, int64, error) {
	if q.Category != nil {
		c := strings.ToUpper(*q.Category)
		q.Category = &c
	}
	rows, total, err := s.store.List(ctx, s.db, q, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ProtocolResponse, len(rows))
	for i := range rows {
		out[i] = rows[i].toResponse()
	}
	return out, total, nil
}

// Update replaces an unsigned, unbooked protocol.
func (s *Service) Update(ctx context.Context, id int64, in ProtocolRequest, actor string) (ProtocolResponse, error) {
	upd, details, err := protocolFrom(in, actor)
	if err != nil {
		return ProtocolResponse{}, err
	}
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		cur, err := s.store.Lock(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "donation protocol")
		}
		if cur.Fixed() {
			return apierr.Conflict("protocol is signed or booked and can no longer be changed")
		}
		upd.ProtocolID, upd.AssociationID = cur.ProtocolID, cur.AssociationID
		if err := s.store.Update(ctx, tx, upd); err != nil {
			return err
		}
		return s.store.ReplaceDetails(ctx, tx, id, details)
	})
	if err != nil {
		return ProtocolResponse{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		p, err := s.store.Lock(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "donation protocol")
		}
		if p.Fixed() {
			return apierr.Conflict("protocol is signed or booked and can no longer be deleted")
		}
		return s.store.SoftDelete(ctx, tx, id)
	})
}

// Sign records the signature of witness 1..3.
func (s *Service) Sign(ctx context.Context, id int64, position int) (ProtocolResponse, error) {
	if position < 1 || position > maxWitnesses {
		return ProtocolResponse{}, apierr.Invalidf("witness must be 1..%d", maxWitnesses)
	}
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		p, err := s.store.Lock(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "donation protocol")
		}
		w := p.Witnesses[position-1]
		if !w.Name.Valid {
			return apierr.Unprocessablef("witness %d is not named on the protocol", position)
		}
		if w.Signed {
			return apierr.Conflict("witness has already signed")
		}
		return s.store.Sign(ctx, tx, id, position)
	})
	if err != nil {
		return ProtocolResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("protocol_id", id).Int("witness", position).Msg("donation protocol signed")
	return s.Get(ctx, id)
}

// Book ties the protocol to the cash book, either to an existing income
// entry of the same amount or to a new one on the given ledger account.
func (s *Service) Book(ctx context.Context, id int64, in BookRequest, actor string) (ProtocolResponse, error) {
	ledger := db.NullString(in.LedgerNumber)
	if (in.EntryID == nil) == !ledger.Valid {
		return ProtocolResponse{}, apierr.Invalid("either entry_id or ledger_number is required")
	}
	method := "BAR"
	if in.Method != nil {
		method = strings.ToUpper(strings.TrimSpace(*in.Method))
	}
	if method != "BAR" && method != "UEBERWEISUNG" {
		return ProtocolResponse{}, apierr.Invalid("method must be BAR or UEBERWEISUNG")
	}

	var entryID int64
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		p, err := s.store.Lock(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "donation protocol")
		}
		if p.EntryID.Valid {
			return apierr.Conflict("protocol is already booked")
		}
		if in.EntryID != nil {
			if entryID, err = s.linkExisting(ctx, tx, p, *in.EntryID); err != nil {
				return err
			}
		} else {
			if entryID, err = s.bookNew(ctx, tx, p, ledger.String, method, actor); err != nil {
				return err
			}
		}
		return s.store.LinkEntry(ctx, tx, id, entryID)
	})
	if err != nil {
		return ProtocolResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("protocol_id", id).Int64("entry_id", entryID).Msg("donation protocol booked")
	return s.Get(ctx, id)
}

func (s *Service) linkExisting(ctx context.Context, tx db.DBTX, p *Protocol, entryID int64) (int64, error) {
	e, err := s.entries.LockEntry(ctx, tx, entryID)
	if err != nil {
		return 0, apierr.FromDB(err, "cash book entry")
	}
	if e.AssociationID != p.AssociationID {
		return 0, apierr.Unprocessable("cash book entry belongs to another association")
	}
	income := e.CashIn.Decimal.Add(e.BankIn.Decimal)
	if !income.Equal(p.Amount) {
		return 0, apierr.Unprocessablef("cash book entry income %s differs from the protocol amount %s",
			income.StringFixed(2), p.Amount.StringFixed(2))
	}
	used, err := s.store.EntryLinked(ctx, tx, entryID)
	if err != nil {
		return 0, err
	}
	if used {
		return 0, apierr.Conflict("cash book entry is linked to another protocol")
	}
	return entryID, nil
}

func (s *Service) bookNew(ctx context.Context, tx db.DBTX, p *Protocol, ledger, method, actor string) (int64, error) {
	active, err := s.entries.ActiveLedger(ctx, tx, ledger)
	if err != nil {
		return 0, err
	}
	if !active {
		return 0, apierr.Unprocessable("ledger account is unknown or inactive")
	}
	purpose := "Spendenprotokoll " + p.DonatedOn.Format("02.01.2006")
	if p.Purpose.Valid {
		purpose += " " + p.Purpose.String
	}
	cashIn, bankIn := cashbook.Incoming(method, p.Amount)
	e := &cashbook.Entry{
		AssociationID: p.AssociationID,
		VoucherDate:   p.DonatedOn,
		LedgerNumber:  ledger,
		Purpose:       purpose,
		CashIn:        cashIn,
		BankIn:        bankIn,
		Method:        sql.NullString{String: method, Valid: true},
		CreatedBy:     db.NullString(&actor),
	}
	if err := cashbook.InsertTx(ctx, tx, e); err != nil {
		return 0, apierr.FromDB(err, "cash book entry")
	}
	return e.EntryID, nil
}

// Total sums the protocols of an association in an optional date range.
func (s *Service) Total(ctx context.Context, associationID int64, from, to *time.Time) (TotalResponse, error) {
	n, sum, err := s.store.Total(ctx, s.db, associationID, from, to)
	if err != nil {
		return TotalResponse{}, err
	}
	res := TotalResponse{AssociationID: associationID, Count: n, Total: sum}
	if from != nil {
		f := from.Format(web.DateLayout)
		res.From = &f
	}
	if to != nil {
		t := to.Format(web.DateLayout)
		res.To = &t
	}
	return res, nil
}

func (s *Service) CategorySummary(ctx context.Context, associationID int64, year int) (CategorySummary, error) {
	if year < 1900 || year > 2200 {
		return CategorySummary{}, apierr.Invalid("year is out of range")
	}
	cats, err := s.store.ByCategory(ctx, s.db, associationID, year)
	if err != nil {
		return CategorySummary{}, err
	}
	res := CategorySummary{AssociationID: associationID, Year: year, Categories: cats, Total: decimal.Zero}
	for _, c := range cats {
		res.Total = res.Total.Add(c.Total)
	}
	return res, nil
}
