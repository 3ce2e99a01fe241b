package transit

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

	r.POST("/transit-items", h.Create)
	r.GET("/transit-items", h.List)
	r.GET("/transit-items/open-total", h.OpenTotal)
	r.GET("/transit-items/recipients", h.ByRecipient)
	r.GET("/transit-items/:item_id", h.Get)
	r.PUT("/transit-items/:item_id", h.Update)
	r.POST("/transit-items/:item_id/close", h.Close)
	r.DELETE("/transit-items/:item_id", h.Delete)
}

func (h *Handler) load(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "item_id")
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

func (h *Handler) association(c *gin.Context) (int64, bool) {
	assoc := auth.ScopeAssociation(c, web.QueryID(c, "association_id"))
	if assoc == nil {
		web.Fail(c, apierr.Invalid("association_id is required"))
		return 0, false
	}
	return *assoc, true
}

func (h *Handler) Create(c *gin.Context) {
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	if err := auth.CheckAssociation(c, req.AssociationID); err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/transit-items/"+strconv.FormatInt(res.ItemID, 10))
	c.JSON(http.StatusCreated, res)
}

// List filters by ?status, ?ledger_number and ?open=true.
func (h *Handler) List(c *gin.Context) {
	q := SearchQuery{
		AssociationID: auth.ScopeAssociation(c, web.QueryID(c, "association_id")),
		Status:        web.QueryString(c, "status"),
		LedgerNumber:  web.QueryString(c, "ledger_number"),
		OpenOnly:      web.QueryBool(c, "open"),
	}
	p := web.PageFromQuery(c, "desc")
	items, total, err := h.svc.List(c.Request.Context(), q, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

func (h *Handler) OpenTotal(c *gin.Context) {
	assoc, ok := h.association(c)
	if !ok {
		return
	}
	res, err := h.svc.OpenTotal(c.Request.Context(), assoc)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ByRecipient(c *gin.Context) {
	assoc, ok := h.association(c)
	if !ok {
		return
	}
	items, err := h.svc.ByRecipient(c.Request.Context(), assoc)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
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

func (h *Handler) Update(c *gin.Context) {
	id, ok := h.load(c)
	if !ok {
		return
	}
	var req UpdateItemRequest
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

func (h *Handler) Close(c *gin.Context) {
	id, ok := h.load(c)
	if !ok {
		return
	}
	var req CloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.Close(c.Request.Context(), id, req, auth.Actor(c))
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
