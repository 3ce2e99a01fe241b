package members

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts the staff endpoints.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/members", h.Create)
	r.GET("/members", h.List)
	r.GET("/members/:member_id", h.Get)
	r.PUT("/members/:member_id", h.Update)
	r.DELETE("/members/:member_id", h.Delete)
}

// RegisterSelfRoutes mounts the self-service profile for member accounts.
func RegisterSelfRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/me", h.Me)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateMemberRequest
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
	c.Header("Location", "/members/"+strconv.FormatInt(res.MemberID, 10))
	c.JSON(http.StatusCreated, res)
}

// load resolves the path member and checks the caller may see it.
func (h *Handler) load(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "member_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	m, err := h.svc.Lookup(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	if err := auth.CheckMember(c, m.AssociationID, m.MemberID); err != nil {
		web.Fail(c, err)
		return 0, false
	}
	return id, true
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

func (h *Handler) List(c *gin.Context) {
	q := SearchQuery{
		AssociationID: auth.ScopeAssociation(c, web.QueryID(c, "association_id")),
		Status:        web.QueryString(c, "status"),
		Q:             web.QueryString(c, "q"),
	}
	p := web.PageFromQuery(c, "asc")
	items, total, err := h.svc.List(c.Request.Context(), q, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := h.load(c)
	if !ok {
		return
	}
	var req UpdateMemberRequest
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

func (h *Handler) Me(c *gin.Context) {
	p := auth.PrincipalFrom(c)
	res, err := h.svc.Get(c.Request.Context(), p.MemberID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
