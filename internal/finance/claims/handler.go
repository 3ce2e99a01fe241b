package claims

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

	r.POST("/claims", h.Create)
	r.POST("/claims/batch", h.RunBatch)
	r.GET("/claims", h.List)
	r.GET("/claims/:claim_id", h.Get)
	r.PUT("/claims/:claim_id", h.Update)
	r.POST("/claims/:claim_id/cancel", h.Cancel)
	r.DELETE("/claims/:claim_id", h.Delete)
}

// RegisterSelfRoutes lets a member list their own claims.
func RegisterSelfRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/me/claims", h.ListOwn)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateClaimRequest
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
	c.Header("Location", "/claims/"+strconv.FormatInt(res.ClaimID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) RunBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	if err := auth.CheckAssociation(c, req.AssociationID); err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.RunBatch(c.Request.Context(), req, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) claimID(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "claim_id")
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
	id, ok := h.claimID(c)
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

func searchFromQuery(c *gin.Context) SearchQuery {
	return SearchQuery{
		AssociationID: web.QueryID(c, "association_id"),
		MemberID:      web.QueryID(c, "member_id"),
		Status:        web.QueryString(c, "status"),
		ClaimType:     web.QueryString(c, "claim_type"),
		Year:          web.QueryInt(c, "year"),
		Overdue:       web.QueryBool(c, "overdue"),
	}
}

func (h *Handler) List(c *gin.Context) {
	q := searchFromQuery(c)
	q.AssociationID = auth.ScopeAssociation(c, q.AssociationID)
	p := web.PageFromQuery(c, "asc")
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
	p := web.PageFromQuery(c, "asc")
	items, total, err := h.svc.List(c.Request.Context(), q, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}
	var req UpdateClaimRequest
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

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}
	res, err := h.svc.Cancel(c.Request.Context(), id, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, auth.Actor(c)); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
