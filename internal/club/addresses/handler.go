package addresses

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts the address endpoints for staff.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/addresses", h.Create)
	r.GET("/addresses", h.List)
	r.GET("/addresses/default", h.Default)
	r.GET("/addresses/:address_id", h.Get)
	r.PUT("/addresses/:address_id", h.Update)
	r.POST("/addresses/:address_id/default", h.SetDefault)
	r.DELETE("/addresses/:address_id", h.Delete)
}

func RegisterSelfRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/me/addresses", h.ListOwn)
}

func (h *Handler) load(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "address_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	assoc, member, err := h.svc.Owner(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	if err := auth.CheckMember(c, assoc, member); err != nil {
		web.Fail(c, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) Create(c *gin.Context) {
	var req AddressRequest
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
	c.Header("Location", "/addresses/"+strconv.FormatInt(res.AddressID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) List(c *gin.Context) {
	q := SearchQuery{
		AssociationID: auth.ScopeAssociation(c, web.QueryID(c, "association_id")),
		MemberID:      web.QueryID(c, "member_id"),
		AddressType:   web.QueryString(c, "address_type"),
	}
	p := web.PageFromQuery(c, "asc")
	items, total, err := h.svc.List(c.Request.Context(), q, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

func (h *Handler) ListOwn(c *gin.Context) {
	pr := auth.PrincipalFrom(c)
	q := SearchQuery{AssociationID: &pr.AssociationID, MemberID: &pr.MemberID}
	p := web.PageFromQuery(c, "asc")
	items, total, err := h.svc.List(c.Request.Context(), q, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

// Default answers the default address of ?member_id, or of the association.
func (h *Handler) Default(c *gin.Context) {
	assoc := auth.ScopeAssociation(c, web.QueryID(c, "association_id"))
	if assoc == nil {
		web.Fail(c, apierr.Invalid("association_id is required"))
		return
	}
	res, err := h.svc.Default(c.Request.Context(), *assoc, web.QueryID(c, "member_id"))
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
	var req AddressRequest
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

func (h *Handler) SetDefault(c *gin.Context) {
	id, ok := h.load(c)
	if !ok {
		return
	}
	res, err := h.svc.SetDefault(c.Request.Context(), id)
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
