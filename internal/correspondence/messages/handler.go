package messages

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/web"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/messages", h.List)
	r.GET("/messages/:message_id", h.Get)
	r.DELETE("/messages/:message_id", h.Delete)
	r.GET("/members/:member_id/messages/unread-count", h.MemberUnreadCount)
}

// RegisterSelfRoutes is the member inbox.
func RegisterSelfRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/me/messages", h.ListOwn)
	r.GET("/me/messages/unread", h.ListOwnUnread)
	r.GET("/me/messages/unread-count", h.OwnUnreadCount)
	r.GET("/me/messages/:message_id", h.Get)
	r.POST("/me/messages/:message_id/read", h.MarkRead)
	r.POST("/me/messages/read-all", h.MarkAllRead)
	r.DELETE("/me/messages/:message_id", h.Delete)
}

func (h *Handler) messageID(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "message_id")
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
	id, ok := h.messageID(c)
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
	h.list(c, SearchQuery{
		AssociationID: auth.ScopeAssociation(c, web.QueryID(c, "association_id")),
		MemberID:      web.QueryID(c, "member_id"),
		LetterID:      web.QueryID(c, "letter_id"),
		UnreadOnly:    web.QueryBool(c, "unread"),
	})
}

func (h *Handler) ListOwn(c *gin.Context) {
	pr := auth.PrincipalFrom(c)
	h.list(c, SearchQuery{MemberID: &pr.MemberID, UnreadOnly: web.QueryBool(c, "unread")})
}

func (h *Handler) ListOwnUnread(c *gin.Context) {
	pr := auth.PrincipalFrom(c)
	h.list(c, SearchQuery{MemberID: &pr.MemberID, UnreadOnly: true})
}

func (h *Handler) unreadCount(c *gin.Context, memberID int64) {
	n, err := h.svc.UnreadCount(c.Request.Context(), memberID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member_id": memberID, "unread": n})
}

func (h *Handler) OwnUnreadCount(c *gin.Context) {
	h.unreadCount(c, auth.PrincipalFrom(c).MemberID)
}

func (h *Handler) MemberUnreadCount(c *gin.Context) {
	id, err := web.ParamID(c, "member_id")
	if err != nil {
		web.Fail(c, err)
		return
	}
	assoc, err := h.svc.MemberOwner(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	if err := auth.CheckAssociation(c, assoc); err != nil {
		web.Fail(c, err)
		return
	}
	h.unreadCount(c, id)
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := h.messageID(c)
	if !ok {
		return
	}
	res, err := h.svc.MarkRead(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	memberID := auth.PrincipalFrom(c).MemberID
	n, err := h.svc.MarkAllRead(c.Request.Context(), memberID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member_id": memberID, "marked": n})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.messageID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
