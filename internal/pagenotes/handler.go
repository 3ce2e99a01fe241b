package pagenotes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

// RegisterRoutes is open to every signed-in role. Non-admins only see their
// own notes.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/page-notes", h.Create)
	r.GET("/page-notes/mine", h.ListOwn)
	r.GET("/page-notes/page", h.ListByPage)
	r.GET("/page-notes/:note_id", h.Get)
	r.PUT("/page-notes/:note_id", h.Update)
	r.DELETE("/page-notes/:note_id", h.Delete)
}

func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/page-notes", h.List)
	r.GET("/page-notes/statistics", h.Statistics)
	r.POST("/page-notes/:note_id/complete", h.Complete)
}

// noteID resolves the path id. ownerOnly also locks admins out, which is how
// editing works: only the author rewrites a note.
func (h *Handler) noteID(c *gin.Context, ownerOnly bool) (int64, bool) {
	id, err := web.ParamID(c, "note_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	owner, err := h.svc.Owner(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	p := auth.PrincipalFrom(c)
	if owner != p.UserID && (ownerOnly || !p.IsAdmin()) {
		web.Fail(c, apierr.Forbidden("page note not accessible"))
		return 0, false
	}
	return id, true
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/page-notes/"+strconv.FormatInt(res.NoteID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.noteID(c, false)
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
		Status:     web.QueryString(c, "status"),
		Category:   web.QueryString(c, "category"),
		Priority:   web.QueryString(c, "priority"),
		PageURL:    web.QueryString(c, "page_url"),
		UserID:     web.QueryString(c, "user_id"),
		EntityType: web.QueryString(c, "entity_type"),
		EntityID:   web.QueryID(c, "entity_id"),
	}
}

func (h *Handler) list(c *gin.Context, q SearchQuery) {
	p := web.PageFromQuery(c, "desc")
	items, total, err := h.svc.List(c.Request.Context(), q, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

func (h *Handler) List(c *gin.Context) {
	h.list(c, searchFromQuery(c))
}

func (h *Handler) ListOwn(c *gin.Context) {
	q := searchFromQuery(c)
	user := auth.Actor(c)
	q.UserID = &user
	h.list(c, q)
}

func (h *Handler) ListByPage(c *gin.Context) {
	q := searchFromQuery(c)
	if q.PageURL == nil {
		web.Fail(c, apierr.Invalid("page_url is required"))
		return
	}
	if p := auth.PrincipalFrom(c); !p.IsAdmin() {
		q.UserID = &p.UserID
	}
	h.list(c, q)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := h.noteID(c, true)
	if !ok {
		return
	}
	var req UpdateRequest
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

func (h *Handler) Complete(c *gin.Context) {
	id, err := web.ParamID(c, "note_id")
	if err != nil {
		web.Fail(c, err)
		return
	}
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.Complete(c.Request.Context(), id, req, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.noteID(c, false)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Statistics(c *gin.Context) {
	res, err := h.svc.Statistics(c.Request.Context())
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
