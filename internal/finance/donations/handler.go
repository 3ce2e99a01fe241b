package donations

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts the donation protocol endpoints for staff.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/donations", h.Create)
	r.GET("/donations", h.List)
	r.GET("/donations/total", h.Total)
	r.GET("/donations/categories", h.Categories)
	r.GET("/donations/:protocol_id", h.Get)
	r.PUT("/donations/:protocol_id", h.Update)
	r.DELETE("/donations/:protocol_id", h.Delete)
	r.POST("/donations/:protocol_id/sign", h.Sign)
	r.POST("/donations/:protocol_id/book", h.Book)
}

func (h *Handler) load(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "protocol_id")
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

// association resolves the required association filter of summaries.
func association(c *gin.Context) (int64, bool) {
	assoc := auth.ScopeAssociation(c, web.QueryID(c, "association_id"))
	if assoc == nil {
		web.Fail(c, apierr.Invalid("association_id is required"))
		return 0, false
	}
	return *assoc, true
}

func (h *Handler) Create(c *gin.Context) {
	var req ProtocolRequest
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
	c.Header("Location", "/donations/"+strconv.FormatInt(res.ProtocolID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) List(c *gin.Context) {
	q := SearchQuery{
		AssociationID: auth.ScopeAssociation(c, web.QueryID(c, "association_id")),
		From:          web.QueryDate(c, "from"),
		To:            web.QueryDate(c, "to"),
		Category:      web.QueryString(c, "category"),
	}
	p := web.PageFromQuery(c, "desc")
	items, total, err := h.svc.List(c.Request.Context(), q, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

func (h *Handler) Total(c *gin.Context) {
	assoc, ok := association(c)
	if !ok {
		return
	}
	res, err := h.svc.Total(c.Request.Context(), assoc, web.QueryDate(c, "from"), web.QueryDate(c, "to"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Categories sums ?year (default: current year) per category.
func (h *Handler) Categories(c *gin.Context) {
	assoc, ok := association(c)
	if !ok {
		return
	}
	year := time.Now().Year()
	if y := web.QueryInt(c, "year"); y != nil {
		year = *y
	}
	res, err := h.svc.CategorySummary(c.Request.Context(), assoc, year)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
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
	var req ProtocolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.Update(c.Request.Context(), id, req, auth.Actor(c))
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

func (h *Handler) Sign(c *gin.Context) {
	id, ok := h.load(c)
	if !ok {
		return
	}
	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.Sign(c.Request.Context(), id, req.Witness)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Book(c *gin.Context) {
	id, ok := h.load(c)
	if !ok {
		return
	}
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.Book(c.Request.Context(), id, req, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
