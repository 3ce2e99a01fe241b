package letters

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

	r.POST("/letter-templates", h.CreateTemplate)
	r.GET("/letter-templates", h.ListTemplates)
	r.GET("/letter-templates/:template_id", h.GetTemplate)
	r.PUT("/letter-templates/:template_id", h.UpdateTemplate)
	r.DELETE("/letter-templates/:template_id", h.DeleteTemplate)

	r.POST("/letters", h.Create)
	r.GET("/letters", h.List)
	r.GET("/letters/statistics", h.Statistics)
	r.POST("/letters/quick-send", h.QuickSend)
	r.GET("/letters/:letter_id", h.Get)
	r.PUT("/letters/:letter_id", h.Update)
	r.DELETE("/letters/:letter_id", h.Delete)
	r.POST("/letters/:letter_id/send", h.Send)
	r.GET("/letters/:letter_id/preview/:member_id", h.Preview)
}

// ===== templates =====

func (h *Handler) templateID(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "template_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	assoc, err := h.svc.TemplateOwner(c.Request.Context(), id)
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

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	if err := auth.CheckAssociation(c, req.AssociationID); err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/letter-templates/"+strconv.FormatInt(res.TemplateID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetTemplate(c *gin.Context) {
	id, ok := h.templateID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetTemplate(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListTemplates(c *gin.Context) {
	q := TemplateQuery{
		AssociationID: auth.ScopeAssociation(c, web.QueryID(c, "association_id")),
		Category:      web.QueryString(c, "category"),
		ActiveOnly:    web.QueryBool(c, "active"),
	}
	items, err := h.svc.ListTemplates(c.Request.Context(), q)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	id, ok := h.templateID(c)
	if !ok {
		return
	}
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.UpdateTemplate(c.Request.Context(), id, req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	id, ok := h.templateID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteTemplate(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ===== letters =====

func (h *Handler) letterID(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "letter_id")
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

func (h *Handler) Create(c *gin.Context) {
	var req LetterRequest
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
	c.Header("Location", "/letters/"+strconv.FormatInt(res.LetterID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.letterID(c)
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
	q := LetterQuery{
		AssociationID: auth.ScopeAssociation(c, web.QueryID(c, "association_id")),
		Status:        web.QueryString(c, "status"),
	}
	p := web.PageFromQuery(c, "desc")
	items, total, err := h.svc.List(c.Request.Context(), q, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := h.letterID(c)
	if !ok {
		return
	}
	var req LetterRequest
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
	id, ok := h.letterID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Send(c *gin.Context) {
	id, ok := h.letterID(c)
	if !ok {
		return
	}
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.Send(c.Request.Context(), id, req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) QuickSend(c *gin.Context) {
	var req QuickSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	if err := auth.CheckAssociation(c, req.AssociationID); err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.QuickSend(c.Request.Context(), req, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Preview(c *gin.Context) {
	id, ok := h.letterID(c)
	if !ok {
		return
	}
	memberID, err := web.ParamID(c, "member_id")
	if err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.Preview(c.Request.Context(), id, memberID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Statistics(c *gin.Context) {
	assoc := web.QueryID(c, "association_id")
	if assoc == nil {
		pr := auth.PrincipalFrom(c)
		if pr.IsAdmin() {
			web.Fail(c, errAssociationRequired)
			return
		}
		assoc = &pr.AssociationID
	}
	if err := auth.CheckAssociation(c, *assoc); err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.Statistics(c.Request.Context(), *assoc)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
