package credits

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/members/:member_id/credits", h.List)
	r.GET("/members/:member_id/credit-balance", h.Balance)
	r.POST("/members/:member_id/credits/apply", h.Apply)
}

func RegisterSelfRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/me/credits", h.ListOwn)
	r.GET("/me/credit-balance", h.BalanceOwn)
}

func (h *Handler) memberID(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "member_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	assoc, err := h.svc.Owner(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	if err := auth.CheckMember(c, assoc, id); err != nil {
		web.Fail(c, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) list(c *gin.Context, memberID int64) {
	q := SearchQuery{MemberID: memberID, IncludeUsed: c.Query("include_used") == "true"}
	items, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) List(c *gin.Context) {
	id, ok := h.memberID(c)
	if !ok {
		return
	}
	h.list(c, id)
}

func (h *Handler) ListOwn(c *gin.Context) {
	h.list(c, auth.PrincipalFrom(c).MemberID)
}

func (h *Handler) balance(c *gin.Context, memberID int64) {
	res, err := h.svc.Balance(c.Request.Context(), memberID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Balance(c *gin.Context) {
	id, ok := h.memberID(c)
	if !ok {
		return
	}
	h.balance(c, id)
}

func (h *Handler) BalanceOwn(c *gin.Context) {
	h.balance(c, auth.PrincipalFrom(c).MemberID)
}

func (h *Handler) Apply(c *gin.Context) {
	id, ok := h.memberID(c)
	if !ok {
		return
	}
	var req ApplyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			web.BadJSON(c, err)
			return
		}
	}
	res, err := h.svc.Apply(c.Request.Context(), id, req, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
