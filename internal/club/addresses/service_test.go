package addresses

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/apierr"
)

func sp(s string) *string { return &s }
func ip(n int64) *int64   { return &n }

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewService(conn), mock
}

func addressRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"address_id", "association_id", "member_id", "address_type", "street", "house_number", "address_extra",
		"postal_code", "city", "district", "state", "country", "po_box", "phone", "fax", "email", "contact_person", "note",
		"latitude", "longitude", "valid_from", "valid_to", "is_default", "created_at", "updated_at",
	})
}

func addressRow(id int64, member any, isDefault bool) *sqlmock.Rows {
	return addressRows().AddRow(id, 1, member, TypePostal, "Hauptstr.", "5", nil,
		"50667", "Köln", nil, nil, nil, nil, nil, nil, nil, nil, nil,
		nil, nil, nil, nil, isDefault, time.Now(), nil)
}

// insertArgs matches an address insert and checks the default flag.
func insertArgs(isDefault bool) []driver.Value {
	args := make([]driver.Value, 22)
	for i := range args[:21] {
		args[i] = sqlmock.AnyArg()
	}
	args[21] = isDefault
	return args
}

func memberAddress() AddressRequest {
	return AddressRequest{
		AssociationID: 1, MemberID: ip(2),
		Street: sp("Hauptstr."), HouseNumber: sp("5"), PostalCode: sp("50667"), City: sp("Köln"),
	}
}

func TestCreateFirstAddressBecomesDefault(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM members").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM addresses").WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("INSERT INTO addresses").WithArgs(insertArgs(true)...).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM addresses WHERE address_id").WithArgs(int64(5)).
		WillReturnRows(addressRow(5, 2, true))

	res, err := svc.Create(context.Background(), memberAddress())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !res.IsDefault || res.Label != "Hauptstr. 5, 50667 Köln" {
		t.Errorf("res = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateNewDefaultReplacesOld(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM associations").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM addresses").WithArgs(int64(1), nil).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectExec("UPDATE addresses SET is_default = 0").WithArgs(int64(1), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO addresses").WithArgs(insertArgs(true)...).
		WillReturnResult(sqlmock.NewResult(6, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM addresses WHERE address_id").WithArgs(int64(6)).
		WillReturnRows(addressRow(6, nil, true))

	in := memberAddress()
	in.MemberID, in.IsDefault = nil, true
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateRejectsMemberOfOtherAssociation(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT association_id FROM members").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"association_id"}).AddRow(9))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), memberAddress())
	if apierr.Status(err) != 422 {
		t.Fatalf("err = %v, want 422", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAddressFrom(t *testing.T) {
	lat := decimal.NewFromInt(91)
	tests := []struct {
		name    string
		edit    func(*AddressRequest)
		wantErr bool
	}{
		{"complete", func(*AddressRequest) {}, false},
		{"po box only", func(r *AddressRequest) { r.Street, r.POBox = nil, sp("10 01 23") }, false},
		{"no street", func(r *AddressRequest) { r.Street = nil }, true},
		{"no city", func(r *AddressRequest) { r.City = sp("  ") }, true},
		{"short postal code", func(r *AddressRequest) { r.PostalCode = sp("5066") }, true},
		{"foreign postal code", func(r *AddressRequest) { r.PostalCode, r.Country = sp("1010"), sp("Österreich") }, false},
		{"unknown type", func(r *AddressRequest) { r.AddressType = sp("FERIEN") }, true},
		{"lower case type", func(r *AddressRequest) { r.AddressType = sp("rechnung") }, false},
		{"latitude out of range", func(r *AddressRequest) { r.Latitude = &lat }, true},
		{"validity reversed", func(r *AddressRequest) { r.ValidFrom, r.ValidTo = sp("2024-05-01"), sp("2024-04-30") }, true},
		{"bad date", func(r *AddressRequest) { r.ValidFrom = sp("01.05.2024") }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := memberAddress()
			tc.edit(&in)
			_, err := addressFrom(in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && apierr.Status(err) != 400 {
				t.Errorf("status = %d", apierr.Status(err))
			}
		})
	}
}

func TestSetDefaultClearsOwner(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM addresses WHERE address_id = \\? AND deleted_flag = 0 FOR UPDATE").WithArgs(int64(7)).
		WillReturnRows(addressRow(7, 2, false))
	mock.ExpectExec("UPDATE addresses SET is_default = 0").WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE addresses SET is_default = 1").WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM addresses WHERE address_id").WithArgs(int64(7)).
		WillReturnRows(addressRow(7, 2, true))

	res, err := svc.SetDefault(context.Background(), 7)
	if err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if !res.IsDefault {
		t.Errorf("res = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteMissingAddress(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectExec("UPDATE addresses SET deleted_flag = 1").WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := svc.Delete(context.Background(), 7); apierr.Status(err) != 404 {
		t.Fatalf("err = %v, want 404", err)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		a    Address
		want string
	}{
		{"street", Address{
			Street: sql.NullString{String: "Hauptstr.", Valid: true}, HouseNumber: sql.NullString{String: "5", Valid: true},
			PostalCode: sql.NullString{String: "50667", Valid: true}, City: sql.NullString{String: "Köln", Valid: true},
		}, "Hauptstr. 5, 50667 Köln"},
		{"po box abroad", Address{
			POBox:      sql.NullString{String: "12", Valid: true},
			PostalCode: sql.NullString{String: "1010", Valid: true}, City: sql.NullString{String: "Wien", Valid: true},
			Country: sql.NullString{String: "Österreich", Valid: true},
		}, "Postfach 12, 1010 Wien, Österreich"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Label(); got != tc.want {
				t.Errorf("Label() = %q, want %q", got, tc.want)
			}
		})
	}
}
