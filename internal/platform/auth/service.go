package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin    = "admin"
	RoleDernek   = "dernek"
	RoleMitglied = "mitglied"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrAuthFailed    = errors.New("authentication failed")
	ErrInvalidRole   = errors.New("invalid role")
	ErrWeakPassword  = errors.New("password must be at least 8 characters")
	ErrMissingID     = errors.New("id is required")
)

type AuthService interface {
	Login(ctx context.Context, id, password string) (string, error)
	Register(ctx context.Context, in RegisterInput) error
	Delete(ctx context.Context, id string) error
	ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error
}

type RegisterInput struct {
	ID            string
	Password      string
	Role          string
	AssociationID *int64
	MemberID      *int64
}

type Service struct {
	store  AccountStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(db *sql.DB, secret []byte, ttl time.Duration) *Service {
	return NewServiceWithStore(NewStore(db), secret, ttl)
}

func NewServiceWithStore(store AccountStore, secret []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{store: store, secret: secret, ttl: ttl, now: time.Now}
}

func (s *Service) Secret() []byte { return s.secret }

func (s *Service) Login(ctx context.Context, id, password string) (string, error) {
	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if acct == nil || acct.IsDisabled {
		return "", ErrAuthFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrAuthFailed
	}
	return s.issue(acct)
}

func (s *Service) issue(acct *Account) (string, error) {
	claims := jwt.MapClaims{
		"sub":  acct.ID,
		"role": acct.Role,
		"iat":  s.now().Unix(),
		"exp":  s.now().Add(s.ttl).Unix(),
	}
	if acct.AssociationID.Valid {
		claims["association_id"] = acct.AssociationID.Int64
	}
	if acct.MemberID.Valid {
		claims["member_id"] = acct.MemberID.Int64
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDernek, RoleMitglied:
		return true
	}
	return false
}

func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		return ErrMissingID
	}
	if in.Role == "" {
		in.Role = RoleMitglied
	}
	if !ValidRole(in.Role) {
		return ErrInvalidRole
	}
	// staff accounts are bound to one association, member accounts to one member
	if in.Role == RoleDernek && in.AssociationID == nil {
		return ErrInvalidRole
	}
	if in.Role == RoleMitglied && (in.AssociationID == nil || in.MemberID == nil) {
		return ErrInvalidRole
	}
	if len(in.Password) < 8 {
		return ErrWeakPassword
	}

	exists, err := s.store.GetByID(ctx, in.ID)
	if err != nil {
		return err
	}
	if exists != nil {
		return ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	acct := &Account{ID: in.ID, PasswordHash: string(hash), Role: in.Role}
	if in.AssociationID != nil {
		acct.AssociationID = sql.NullInt64{Int64: *in.AssociationID, Valid: true}
	}
	if in.MemberID != nil {
		acct.MemberID = sql.NullInt64{Int64: *in.MemberID, Valid: true}
	}
	return s.store.Create(ctx, acct)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrAuthFailed
	}
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	n, err := s.store.UpdatePassword(ctx, id, string(hash))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
