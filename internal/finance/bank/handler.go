package bank

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/web"
)

const maxStatementSize = 10 << 20

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/bank-accounts", h.ListAccounts)
	r.POST("/bank-accounts", h.CreateAccount)
	r.GET("/bank-accounts/:bank_account_id", h.GetAccount)
	r.PUT("/bank-accounts/:bank_account_id", h.UpdateAccount)
	r.DELETE("/bank-accounts/:bank_account_id", h.DeleteAccount)
	r.POST("/bank-accounts/:bank_account_id/import", h.Import)

	r.GET("/bank-transactions", h.ListTransactions)
	r.GET("/bank-transactions/unmatched", h.ListUnmatched)
	r.GET("/bank-transactions/:bank_transaction_id", h.GetTransaction)
	r.POST("/bank-transactions/:bank_transaction_id/match", h.Match)
}

// ===== accounts =====

func (h *Handler) accountID(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "bank_account_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	assoc, err := h.svc.AccountOwner(c.Request.Context(), id)
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

func (h *Handler) ListAccounts(c *gin.Context) {
	assoc := auth.ScopeAssociation(c, web.QueryID(c, "association_id"))
	items, err := h.svc.ListAccounts(c.Request.Context(), assoc, c.Query("active") == "true")
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	if err := auth.CheckAssociation(c, req.AssociationID); err != nil {
		web.Fail(c, err)
		return
	}
	res, err := h.svc.CreateAccount(c.Request.Context(), req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.Header("Location", "/bank-accounts/"+strconv.FormatInt(res.BankAccountID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetAccount(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetAccount(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateAccount(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}
	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.UpdateAccount(c.Request.Context(), id, req)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteAccount(c.Request.Context(), id); err != nil {
		web.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Import takes a multipart upload: field "file" and optional "charset".
func (h *Handler) Import(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		web.Fail(c, apierr.Invalid("file is required"))
		return
	}
	if fh.Size == 0 {
		web.Fail(c, apierr.Invalid("file is empty"))
		return
	}
	if fh.Size > maxStatementSize {
		web.Fail(c, apierr.Invalid("file must be smaller than 10 MB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		web.Fail(c, err)
		return
	}
	defer f.Close()

	res, err := h.svc.Import(c.Request.Context(), id, f, c.PostForm("charset"), auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ===== transactions =====

func (h *Handler) transactionID(c *gin.Context) (int64, bool) {
	id, err := web.ParamID(c, "bank_transaction_id")
	if err != nil {
		web.Fail(c, err)
		return 0, false
	}
	assoc, err := h.svc.TransactionOwner(c.Request.Context(), id)
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

func (h *Handler) list(c *gin.Context, unmatched bool) {
	q := TxSearchQuery{
		AssociationID: auth.ScopeAssociation(c, web.QueryID(c, "association_id")),
		BankAccountID: web.QueryID(c, "bank_account_id"),
		Status:        web.QueryString(c, "status"),
		From:          web.QueryDate(c, "from"),
		To:            web.QueryDate(c, "to"),
		Unmatched:     unmatched,
	}
	p := web.PageFromQuery(c, "desc")
	items, total, err := h.svc.ListTransactions(c.Request.Context(), q, p)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.List(c, items, total, p)
}

func (h *Handler) ListTransactions(c *gin.Context) { h.list(c, web.QueryBool(c, "unmatched")) }

func (h *Handler) ListUnmatched(c *gin.Context) { h.list(c, true) }

func (h *Handler) GetTransaction(c *gin.Context) {
	id, ok := h.transactionID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetTransaction(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Match(c *gin.Context) {
	id, ok := h.transactionID(c)
	if !ok {
		return
	}
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadJSON(c, err)
		return
	}
	res, err := h.svc.Match(c.Request.Context(), id, req, auth.Actor(c))
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
