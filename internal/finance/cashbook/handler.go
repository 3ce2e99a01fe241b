package cashbook

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/ledger-accounts", h.ListLedgers)
	r.GET("/ledger-accounts/:ledger_account_id", h.GetLedger)

	r.POST("/cashbook/entries", h.CreateEntry)
	r.GET("/cashbook/entries", h.ListEntries)
	r.GET("/cashbook/entries/:entry_id", h.GetEntry)
	r.PUT("/cashbook/entries/:entry_id", h.UpdateEntry)
	r.DELETE("/cashbook/entries/:entry_id", h.DeleteEntry)
	r.GET("/cashbook/summary", h.Summary)

	r.POST("/cashbook/closings", h.CreateClosing)
	r.GET("/cashbook/closings", h.ListClosings)
	r.GET("/cashbook/closings/:closing_id", h.GetClosing)
	r.POST("/cashbook/closings/:closing_id/audit", h.Audit)
	r.DELETE("/cashbook/closings/:closing_id", h.Reopen)
}

// RegisterAdminRoutes exposes the chart of accounts, which is shared by all
// associations.
func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/ledger-accounts", h.CreateLedger)
	r.PUT("/ledger-accounts/:ledger_account_id", h.UpdateLedger)
	r.DELETE("/ledger-accounts/:ledger_account_id", h.DeleteLedger)
}

// ===== ledger accounts =====

func (h *Handler) CreateLedger(c *gin.Context) {
	var req LedgerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.CreateLedger(c.Request.Context(), req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/ledger-accounts/"+strconv.FormatInt(res.LedgerAccountID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetLedger(c *gin.Context) {
	id, err := web.ParamID(c, "ledger_account_id")
	if err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.GetLedger(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListLedgers(c *gin.Context) {
	items, err := h.svc.ListLedgers(c.Request.Context(), c.Query("all") != "true", web.QueryString(c, "area"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) UpdateLedger(c *gin.Context) {
	id, err := web.ParamID(c, "ledger_account_id")
	if err != nil {
		web.Fail(c, err)
		return
	}
	var req LedgerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.UpdateLedger(c.Request.Context(), id, req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteLedger(c *gin.Context) {
	id, err := web.ParamID(c, "ledger_account_id")
	if err != nil {
		web.Fail(c, err)
		return
	}
	if err := h.svc.DeleteLedger(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ===== entries =====

func (h *Handler) entryID(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "entry_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	assoc, err := h.svc.EntryOwner(c.Request.Context(), id)
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

func (h *Handler) CreateEntry(c *gin.Context) {
	var req EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	if err := auth.CheckAssociation(c, req.AssociationID); err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.CreateEntry(c.Request.Context(), req, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/cashbook/entries/"+strconv.FormatInt(res.EntryID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetEntry(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetEntry(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListEntries(c *gin.Context) {
	q := EntrySearchQuery{
		AssociationID: auth.ScopeAssociation(c, web.QueryID(c, "association_id")),
		Year:          web.QueryInt(c, "year"),
		From:          web.QueryDate(c, "from"),
		To:            web.QueryDate(c, "to"),
		LedgerNumber:  web.QueryString(c, "ledger_number"),
		Method:        web.QueryString(c, "method"),
	}
	p := web.PageFromQuery(c, "asc")
	items, total, err := h.svc.ListEntries(c.Request.Context(), q, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

func (h *Handler) UpdateEntry(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	var req EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.UpdateEntry(c.Request.Context(), id, req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteEntry(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteEntry(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Summary(c *gin.Context) {
	assoc := web.QueryID(c, "association_id")
	year := web.QueryInt(c, "year")
	if assoc == nil || year == nil {
		web.Fail(c, errMissingYear)
		return
	}
	if err := auth.CheckAssociation(c, *assoc); err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.Summary(c.Request.Context(), *assoc, *year)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ===== closings =====

func (h *Handler) closingID(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "closing_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	assoc, err := h.svc.ClosingOwner(c.Request.Context(), id)
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

func (h *Handler) CreateClosing(c *gin.Context) {
	var req ClosingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	if err := auth.CheckAssociation(c, req.AssociationID); err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.CreateClosing(c.Request.Context(), req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/cashbook/closings/"+strconv.FormatInt(res.ClosingID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListClosings(c *gin.Context) {
	items, err := h.svc.ListClosings(c.Request.Context(), auth.ScopeAssociation(c, web.QueryID(c, "association_id")))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) GetClosing(c *gin.Context) {
	id, ok := h.closingID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetClosing(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Audit(c *gin.Context) {
	id, ok := h.closingID(c)
	if !ok {
		return
	}
	var req AuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.Audit(c.Request.Context(), id, req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Reopen(c *gin.Context) {
	id, ok := h.closingID(c)
	if !ok {
		return
	}
	if err := h.svc.ReopenYear(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
