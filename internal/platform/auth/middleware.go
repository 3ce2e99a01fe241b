package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"verein-backend/internal/platform/apierr"
)

const (
	CtxUserIDKey        = "user_id"
	CtxRoleKey          = "role"
	CtxAssociationIDKey = "association_id"
	CtxMemberIDKey      = "member_id"
)

// RequireAuth validates "Authorization: Bearer <token>" and stores the
// principal in the gin context.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			abort(c, http.StatusUnauthorized, apierr.CodeUnauthenticated, "missing Authorization header")
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, http.StatusUnauthorized, apierr.CodeUnauthenticated, "invalid Authorization header")
			return
		}

		tokenStr := strings.TrimSpace(parts[1])
		if tokenStr == "" {
			abort(c, http.StatusUnauthorized, apierr.CodeUnauthenticated, "empty token")
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			// pin the algorithm, rejects "none"
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || token == nil || !token.Valid {
			abort(c, http.StatusUnauthorized, apierr.CodeUnauthenticated, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abort(c, http.StatusUnauthorized, apierr.CodeUnauthenticated, "invalid claims")
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			abort(c, http.StatusUnauthorized, apierr.CodeUnauthenticated, "invalid sub")
			return
		}
		role, _ := claims["role"].(string)
		if !ValidRole(role) {
			abort(c, http.StatusUnauthorized, apierr.CodeUnauthenticated, "invalid role")
			return
		}

		c.Set(CtxUserIDKey, sub)
		c.Set(CtxRoleKey, role)
		// numeric claims decode as float64
		if v, ok := claims["association_id"].(float64); ok && v > 0 {
			c.Set(CtxAssociationIDKey, int64(v))
		}
		if v, ok := claims["member_id"].(float64); ok && v > 0 {
			c.Set(CtxMemberIDKey, int64(v))
		}
		c.Next()
	}
}

// RequireRole lets only the listed roles pass.
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{})
	for _, r := range roles {
		if r == "" {
			continue
		}
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(CtxRoleKey)
		if role == "" {
			abort(c, http.StatusForbidden, apierr.CodeForbidden, "missing role")
			return
		}
		if _, allowed := roleSet[role]; !allowed {
			abort(c, http.StatusForbidden, apierr.CodeForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, code apierr.Code, msg string) {
	c.AbortWithStatusJSON(status, apierr.New(code, msg))
}

// ===== principal helpers =====

type Principal struct {
	UserID        string
	Role          string
	AssociationID int64
	MemberID      int64
}

func PrincipalFrom(c *gin.Context) Principal {
	p := Principal{
		UserID: c.GetString(CtxUserIDKey),
		Role:   c.GetString(CtxRoleKey),
	}
	if v, ok := c.Get(CtxAssociationIDKey); ok {
		p.AssociationID, _ = v.(int64)
	}
	if v, ok := c.Get(CtxMemberIDKey); ok {
		p.MemberID, _ = v.(int64)
	}
	return p
}

// Actor is the value written to created_by/updated_by columns.
func Actor(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanAccess reports whether the principal may see rows of the association.
func (p Principal) CanAccess(associationID int64) bool {
	if p.IsAdmin() {
		return true
	}
	return p.AssociationID != 0 && p.AssociationID == associationID
}

// CheckAssociation returns a FORBIDDEN API error when the caller is scoped to
// another association.
func CheckAssociation(c *gin.Context, associationID int64) error {
	if !PrincipalFrom(c).CanAccess(associationID) {
		return apierr.Forbidden("association not accessible")
	}
	return nil
}

// ScopeAssociation narrows an optional association filter to the caller's
// own association for non-admin roles.
func ScopeAssociation(c *gin.Context, requested *int64) *int64 {
	p := PrincipalFrom(c)
	if p.IsAdmin() {
		return requested
	}
	id := p.AssociationID
	return &id
}

// CheckMember lets admins and staff of the member's association through,
// and members only for themselves.
func CheckMember(c *gin.Context, associationID, memberID int64) error {
	p := PrincipalFrom(c)
	if p.Role == RoleMitglied {
		if p.MemberID != memberID {
			return apierr.Forbidden("member not accessible")
		}
		return nil
	}
	return CheckAssociation(c, associationID)
}
