package legal

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/legal-data", h.Create)
	r.GET("/legal-data/by-association", h.GetByAssociation)
	r.GET("/legal-data/expiring", h.Expiring)
	r.GET("/legal-data/:legal_id", h.Get)
	r.PUT("/legal-data/:legal_id", h.Update)
	r.DELETE("/legal-data/:legal_id", h.Delete)
}

func (h *Handler) load(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "legal_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	assoc, err := h.svc.Owner(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	if err := auth.CheckAssociation(c, assoc); err != nil {
		web.Fail(c, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) Create(c *gin.Context) {
	var req LegalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	if err := auth.CheckAssociation(c, req.AssociationID); err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/legal-data/"+strconv.FormatInt(res.LegalID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.load(c)
	if !ok {
		return
	}
	res, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetByAssociation(c *gin.Context) {
	assoc := auth.ScopeAssociation(c, web.QueryID(c, "association_id"))
	if assoc == nil {
		web.Fail(c, apierr.Invalid("association_id is required"))
		return
	}
	res, err := h.svc.GetByAssociation(c.Request.Context(), *assoc)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Expiring lists non-profit recognitions ending within ?days (default 30).
func (h *Handler) Expiring(c *gin.Context) {
	days := 0
	if v := web.QueryInt(c, "days"); v != nil {
		days = *v
	}
	items, err := h.svc.Expiring(c.Request.Context(), days, auth.ScopeAssociation(c, web.QueryID(c, "association_id")))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := h.load(c)
	if !ok {
		return
	}
	var req LegalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
