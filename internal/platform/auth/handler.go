package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"verein-backend/internal/platform/apierr"
)

type AuthHandler struct{ svc AuthService }

// RegisterPublicRoutes mounts login, which needs no token.
func RegisterPublicRoutes(r gin.IRoutes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	r.POST("/auth/login", h.Login)
}

// RegisterRoutes mounts the account management routes. Callers put them
// behind RequireAuth.
func RegisterRoutes(r gin.IRoutes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	r.POST("/auth/register", RequireRole(RoleAdmin, RoleDernek), h.Register)
	r.DELETE("/auth/accounts/:id", RequireRole(RoleAdmin), h.DeleteAccount)
	r.PATCH("/auth/accounts/:id/password", h.ChangePassword)
}

type LoginRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.New(apierr.CodeInvalidArgument, "invalid request"))
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.ID, req.Password)
	if err != nil {
		if !errors.Is(err, ErrAuthFailed) {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("login failed")
		}
		c.JSON(http.StatusUnauthorized, apierr.New(apierr.CodeUnauthenticated, "wrong id or password"))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, Message: "login successful"})
}

type RegisterRequest struct {
	ID            string  `json:"id" binding:"required"`
	Password      string  `json:"password" binding:"required"`
	Role          *string `json:"role,omitempty"` // defaults to mitglied
	AssociationID *int64  `json:"association_id,omitempty"`
	MemberID      *int64  `json:"member_id,omitempty"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.New(apierr.CodeInvalidArgument, "invalid request"))
		return
	}

	in := RegisterInput{
		ID:            req.ID,
		Password:      req.Password,
		AssociationID: req.AssociationID,
		MemberID:      req.MemberID,
	}
	if req.Role != nil {
		in.Role = *req.Role
	}

	// staff may only create member/staff accounts inside their own association
	p := PrincipalFrom(c)
	if !p.IsAdmin() {
		if in.Role == RoleAdmin || in.AssociationID == nil || *in.AssociationID != p.AssociationID {
			c.JSON(http.StatusForbidden, apierr.New(apierr.CodeForbidden, "not allowed to create this account"))
			return
		}
	}

	if err := h.svc.Register(c.Request.Context(), in); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyExists):
			c.JSON(http.StatusConflict, apierr.New(apierr.CodeConflict, "id already exists"))
		case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrWeakPassword), errors.Is(err, ErrMissingID):
			c.JSON(http.StatusBadRequest, apierr.New(apierr.CodeInvalidArgument, err.Error()))
		default:
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("register failed")
			c.JSON(http.StatusInternalServerError, apierr.New(apierr.CodeInternal, "register failed"))
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "registered"})
}

func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, apierr.New(apierr.CodeNotFound, "account not found"))
			return
		}
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("delete account failed")
		c.JSON(http.StatusInternalServerError, apierr.New(apierr.CodeInternal, "delete failed"))
		return
	}

	c.Status(http.StatusNoContent)
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	id := c.Param("id")
	p := PrincipalFrom(c)
	if p.UserID != id && !p.IsAdmin() {
		c.JSON(http.StatusForbidden, apierr.New(apierr.CodeForbidden, "forbidden"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.New(apierr.CodeInvalidArgument, "invalid request"))
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), id, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, apierr.New(apierr.CodeNotFound, "account not found"))
		case errors.Is(err, ErrAuthFailed):
			c.JSON(http.StatusUnauthorized, apierr.New(apierr.CodeUnauthenticated, "wrong password"))
		case errors.Is(err, ErrWeakPassword):
			c.JSON(http.StatusBadRequest, apierr.New(apierr.CodeInvalidArgument, err.Error()))
		default:
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("change password failed")
			c.JSON(http.StatusInternalServerError, apierr.New(apierr.CodeInternal, "change password failed"))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}
