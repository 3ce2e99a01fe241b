package associations

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts the association endpoints. Create and delete are
// admin only; staff may read and update their own association.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/associations", h.List)
	r.GET("/associations/:association_id", h.Get)
	r.PUT("/associations/:association_id", auth.RequireRole(auth.RoleAdmin, auth.RoleDernek), h.Update)
	r.POST("/associations", auth.RequireRole(auth.RoleAdmin), h.Create)
	r.DELETE("/associations/:association_id", auth.RequireRole(auth.RoleAdmin), h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateAssociationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/associations/"+strconv.FormatInt(res.AssociationID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := web.ParamID(c, "association_id")
	if err != nil {
		web.Fail(c, err)
		return
	}
	if err := auth.CheckAssociation(c, id); err != nil {
		web.Fail(c, err)
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
	q := SearchQuery{Name: web.QueryString(c, "name")}
	p := web.PageFromQuery(c, "asc")
	scope := auth.ScopeAssociation(c, nil)
	items, total, err := h.svc.List(c.Request.Context(), q, scope, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := web.ParamID(c, "association_id")
	if err != nil {
		web.Fail(c, err)
		return
	}
	if err := auth.CheckAssociation(c, id); err != nil {
		web.Fail(c, err)
		return
	}
	var req UpdateAssociationRequest
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
	id, err := web.ParamID(c, "association_id")
	if err != nil {
		web.Fail(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
