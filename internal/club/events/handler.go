package events

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts the event endpoints for staff.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/events", h.Create)
	r.GET("/events", h.List)
	r.GET("/events/:event_id", h.Get)
	r.PUT("/events/:event_id", h.Update)
	r.DELETE("/events/:event_id", h.Delete)
	r.POST("/events/:event_id/registrations", h.Register)
	r.GET("/events/:event_id/registrations", h.ListRegistrations)
	r.GET("/event-registrations/:registration_id", h.GetRegistration)
	r.POST("/event-registrations/:registration_id/cancel", h.Cancel)
	r.POST("/events/:event_id/payments", h.RecordPayment)
	r.GET("/events/:event_id/payments", h.ListPayments)
	r.GET("/events/:event_id/payments/total", h.PaymentTotal)
	r.GET("/event-payments/:event_payment_id", h.GetPayment)
	r.DELETE("/event-payments/:event_payment_id", h.DeletePayment)
}

func RegisterSelfRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/me/events", h.ListOwnAssociation)
	r.GET("/me/event-registrations", h.ListOwnRegistrations)
	r.POST("/me/events/:event_id/register", h.RegisterSelf)
	r.POST("/me/event-registrations/:registration_id/cancel", h.Cancel)
}

func (h *Handler) eventID(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "event_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	assoc, err := h.svc.EventOwner(c.Request.Context(), id)
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

func (h *Handler) registrationID(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "registration_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	assoc, member, err := h.svc.RegistrationOwner(c.Request.Context(), id)
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
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	if err := auth.CheckAssociation(c, req.AssociationID); err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.CreateEvent(c.Request.Context(), req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/events/"+strconv.FormatInt(res.EventID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetEvent(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) list(c *gin.Context, assoc *int64) {
	q := EventQuery{
		AssociationID: assoc,
		From:          web.QueryDate(c, "from"),
		To:            web.QueryDate(c, "to"),
		Upcoming:      web.QueryBool(c, "upcoming"),
	}
	p := web.PageFromQuery(c, "asc")
	items, total, err := h.svc.ListEvents(c.Request.Context(), q, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

func (h *Handler) List(c *gin.Context) {
	h.list(c, auth.ScopeAssociation(c, web.QueryID(c, "association_id")))
}

func (h *Handler) ListOwnAssociation(c *gin.Context) {
	pr := auth.PrincipalFrom(c)
	h.list(c, &pr.AssociationID)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.UpdateEvent(c.Request.Context(), id, req, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteEvent(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) register(c *gin.Context, id int64, req RegisterRequest) {
	res, err := h.svc.Register(c.Request.Context(), id, req, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/event-registrations/"+strconv.FormatInt(res.RegistrationID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Register(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	h.register(c, id, req)
}

// RegisterSelf registers the calling member.
func (h *Handler) RegisterSelf(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	var req RegisterRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			web.BadJSON(c, err)
			return
		}
	}
	pr := auth.PrincipalFrom(c)
	req.MemberID = &pr.MemberID
	h.register(c, id, req)
}

func (h *Handler) ListRegistrations(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	res, err := h.svc.ListRegistrations(c.Request.Context(), id, web.QueryString(c, "status"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListOwnRegistrations(c *gin.Context) {
	res, err := h.svc.MemberRegistrations(c.Request.Context(), auth.PrincipalFrom(c).MemberID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetRegistration(c *gin.Context) {
	id, ok := h.registrationID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetRegistration(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := h.registrationID(c)
	if !ok {
		return
	}
	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			web.BadJSON(c, err)
			return
		}
	}
	res, err := h.svc.Cancel(c.Request.Context(), id, req.Reason, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) paymentID(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "event_payment_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	assoc, err := h.svc.PaymentOwner(c.Request.Context(), id)
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

func (h *Handler) RecordPayment(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	var req EventPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.RecordPayment(c.Request.Context(), id, req, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/event-payments/"+strconv.FormatInt(res.EventPaymentID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListPayments(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	items, err := h.svc.ListPayments(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) PaymentTotal(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}
	res, err := h.svc.PaymentTotal(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := h.paymentID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetPayment(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeletePayment(c *gin.Context) {
	id, ok := h.paymentID(c)
	if !ok {
		return
	}
	if err := h.svc.DeletePayment(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
