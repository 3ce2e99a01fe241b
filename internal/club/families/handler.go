package families

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

	r.POST("/family-links", h.Create)
	r.GET("/family-links", h.ByMember)
	r.GET("/family-links/children", h.Children)
	r.GET("/family-links/:family_id", h.Get)
	r.PUT("/family-links/:family_id", h.Update)
	r.DELETE("/family-links/:family_id", h.Delete)
}

func RegisterSelfRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/me/family", h.Own)
}

// member reads a member id from the query and checks access to it.
func (h *Handler) member(c *gin.Context, name string) (int64, bool) {
	id := web.QueryID(c, name)
	if id == nil {
		web.Fail(c, apierr.Invalid(name+" is required"))
		return 0, false
	}
	assoc, err := h.svc.MemberAssociation(c.Request.Context(), *id)
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	if err := auth.CheckAssociation(c, assoc); err != nil {
		web.Fail(c, err)
		return 0, false
	}
	return *id, true
}

func (h *Handler) load(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "family_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	assoc, _, err := h.svc.Owner(c.Request.Context(), id)
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
	var req LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	assoc, err := h.svc.MemberAssociation(c.Request.Context(), req.MemberID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	if err := auth.CheckAssociation(c, assoc); err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/family-links/"+strconv.FormatInt(res.FamilyID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ByMember(c *gin.Context) {
	id, ok := h.member(c, "member_id")
	if !ok {
		return
	}
	res, err := h.svc.ByMember(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Children(c *gin.Context) {
	id, ok := h.member(c, "parent_member_id")
	if !ok {
		return
	}
	res, err := h.svc.Children(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Own(c *gin.Context) {
	res, err := h.svc.ByMember(c.Request.Context(), auth.PrincipalFrom(c).MemberID)
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
	var req UpdateLinkRequest
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
