package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type memStore map[string]*Account

func (m memStore) GetByID(_ context.Context, id string) (*Account, error) { return m[id], nil }
func (m memStore) Create(_ context.Context, a *Account) error               { m[a.ID] = a; return nil }
func (m memStore) Delete(_ context.Context, id string) (int64, error) {
	if _, ok := m[id]; !ok {
		return 0, nil
	}
	delete(m, id)
	return 1, nil
}
func (m memStore) UpdatePassword(_ context.Context, id, hash string) (int64, error) {
	a, ok := m[id]
	if !ok {
		return 0, nil
	}
	a.PasswordHash = hash
	return 1, nil
}

var secret = []byte("0123456789abcdef0123456789abcdef")

func newAuth(t *testing.T) *Service {
	t.Helper()
	svc := NewServiceWithStore(memStore{}, secret, time.Hour)
	ctx := context.Background()
	assoc, member := int64(1), int64(2)
	for _, in := range []RegisterInput{
		{ID: "root", Password: "geheim123", Role: RoleAdmin},
		{ID: "kasse", Password: "geheim123", Role: RoleDernek, AssociationID: &assoc},
		{ID: "erika", Password: "geheim123", Role: RoleMitglied, AssociationID: &assoc, MemberID: &member},
	} {
		if err := svc.Register(ctx, in); err != nil {
			t.Fatalf("Register %s: %v", in.ID, err)
		}
	}
	return svc
}

func router(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("", RequireAuth(svc.Secret()))
	g.GET("/members/:id", RequireRole(RoleAdmin, RoleDernek), func(c *gin.Context) {
		if err := CheckAssociation(c, 1); err != nil {
			c.Status(http.StatusForbidden)
			return
		}
		c.Status(http.StatusOK)
	})
	g.GET("/me", func(c *gin.Context) {
		if err := CheckMember(c, 1, 2); err != nil {
			c.Status(http.StatusForbidden)
			return
		}
		c.JSON(http.StatusOK, PrincipalFrom(c))
	})
	return r
}

func TestRequireAuthAndRoles(t *testing.T) {
	svc := newAuth(t)
	r := router(svc)
	token := func(id string) string {
		tok, err := svc.Login(context.Background(), id, "geheim123")
		if err != nil {
			t.Fatalf("Login %s: %v", id, err)
		}
		return "Bearer " + tok
	}

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"not bearer", "/me", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"member reads self", "/me", token("erika"), http.StatusOK},
		{"member on staff route", "/members/2", token("erika"), http.StatusForbidden},
		{"staff on own association", "/members/2", token("kasse"), http.StatusOK},
		{"admin anywhere", "/members/2", token("root"), http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestExpiredToken(t *testing.T) {
	svc := newAuth(t)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := svc.Login(context.Background(), "root", "geheim123")
	if err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	router(svc).ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRegisterRules(t *testing.T) {
	svc := NewServiceWithStore(memStore{}, secret, time.Hour)
	assoc := int64(1)
	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"missing id", RegisterInput{Password: "geheim123"}, ErrMissingID},
		{"unknown role", RegisterInput{ID: "x", Password: "geheim123", Role: "kassierer"}, ErrInvalidRole},
		{"staff without association", RegisterInput{ID: "x", Password: "geheim123", Role: RoleDernek}, ErrInvalidRole},
		{"member without member id", RegisterInput{ID: "x", Password: "geheim123", Role: RoleMitglied, AssociationID: &assoc}, ErrInvalidRole},
		{"short password", RegisterInput{ID: "x", Password: "kurz", Role: RoleAdmin}, ErrWeakPassword},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Register(context.Background(), tc.in); err != tc.want {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPasswordIsHashed(t *testing.T) {
	store := memStore{}
	svc := NewServiceWithStore(store, secret, time.Hour)
	if err := svc.Register(context.Background(), RegisterInput{ID: "root", Password: "geheim123", Role: RoleAdmin}); err != nil {
		t.Fatal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(store["root"].PasswordHash), []byte("geheim123")); err != nil {
		t.Errorf("stored hash does not match: %v", err)
	}
	if _, err := svc.Login(context.Background(), "root", "falsch123"); err != ErrAuthFailed {
		t.Errorf("err = %v, want ErrAuthFailed", err)
	}
}
