package reports

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/members/:member_id/finance-summary", h.MemberSummary)
	r.GET("/associations/:association_id/finance-dashboard", h.Dashboard)
}

func RegisterSelfRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/me/finance-summary", h.OwnSummary)
}

func (h *Handler) MemberSummary(c *gin.Context) {
	id, err := web.ParamID(c, "member_id")
	if err != nil {
		web.Fail(c, err)
		return
	}
	assoc, err := h.svc.MemberOwner(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	if err := auth.CheckMember(c, assoc, id); err != nil {
		web.Fail(c, err)
		return
	}
	h.summary(c, id)
}

func (h *Handler) OwnSummary(c *gin.Context) {
	h.summary(c, auth.PrincipalFrom(c).MemberID)
}

func (h *Handler) summary(c *gin.Context, memberID int64) {
	res, err := h.svc.MemberSummary(c.Request.Context(), memberID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Dashboard(c *gin.Context) {
	id, err := web.ParamID(c, "association_id")
	if err != nil {
		web.Fail(c, err)
		return
	}
	if err := auth.CheckAssociation(c, id); err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.Dashboard(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
