package payments

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

	r.POST("/payments", h.Create)
	r.GET("/payments", h.List)
	r.GET("/payments/:payment_id", h.Get)
	r.GET("/payment-refs/:payment_ref", h.GetByRef)
	r.POST("/payments/:payment_id/allocations", h.AddAllocations)
	r.DELETE("/payments/:payment_id/allocations/:allocation_id", h.DeleteAllocation)
	r.POST("/payments/:payment_id/reverse", h.Reverse)
}

// RegisterSelfRoutes lets a member list their own payments.
func RegisterSelfRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/me/payments", h.ListOwn)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreatePaymentRequest
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
	c.Header("Location", "/payments/"+strconv.FormatInt(res.PaymentID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) paymentID(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "payment_id")
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

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.paymentID(c)
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

func (h *Handler) GetByRef(c *gin.Context) {
	res, err := h.svc.GetByRef(c.Request.Context(), c.Param("payment_ref"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	if err := auth.CheckMember(c, res.AssociationID, res.MemberID); err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func searchFromQuery(c *gin.Context) SearchQuery {
	return SearchQuery{
		AssociationID:  web.QueryID(c, "association_id"),
		MemberID:       web.QueryID(c, "member_id"),
		Status:         web.QueryString(c, "status"),
		Method:         web.QueryString(c, "method"),
		From:           web.QueryDate(c, "from"),
		To:             web.QueryDate(c, "to"),
		HasUnallocated: web.QueryBool(c, "has_unallocated"),
	}
}

func (h *Handler) List(c *gin.Context) {
	q := searchFromQuery(c)
	q.AssociationID = auth.ScopeAssociation(c, q.AssociationID)
	p := web.PageFromQuery(c, "desc")
	items, total, err := h.svc.List(c.Request.Context(), q, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

func (h *Handler) ListOwn(c *gin.Context) {
	q := searchFromQuery(c)
	pr := auth.PrincipalFrom(c)
	q.AssociationID, q.MemberID = &pr.AssociationID, &pr.MemberID
	p := web.PageFromQuery(c, "desc")
	items, total, err := h.svc.List(c.Request.Context(), q, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

func (h *Handler) AddAllocations(c *gin.Context) {
	id, ok := h.paymentID(c)
	if !ok {
		return
	}
	var req AddAllocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.AddAllocations(c.Request.Context(), id, req, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteAllocation(c *gin.Context) {
	id, ok := h.paymentID(c)
	if !ok {
		return
	}
	allocID, err := web.ParamID(c, "allocation_id")
	if err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.DeleteAllocation(c.Request.Context(), id, allocID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type reverseRequest struct {
	Reason *string `json:"reason,omitempty"`
}

func (h *Handler) Reverse(c *gin.Context) {
	id, ok := h.paymentID(c)
	if !ok {
		return
	}
	var req reverseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			web.BadJSON(c, err)
			return
		}
	}
	res, err := h.svc.Reverse(c.Request.Context(), id, req.Reason, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
