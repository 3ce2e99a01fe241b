package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"verein-backend/internal/platform/apierr"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
	DateLayout   = "2006-01-02"
)

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}

// Normalize clamps limit/offset and lowercases order.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if strings.ToLower(p.Order) == "asc" {
		p.Order = "asc"
	} else {
		p.Order = "desc"
	}
	return p
}

// SQLOrder returns ASC or DESC.
func (p Page) SQLOrder() string {
	if strings.ToLower(p.Order) == "asc" {
		return "ASC"
	}
	return "DESC"
}

func PageFromQuery(c *gin.Context, defaultOrder string) Page {
	return Page{
		Limit:  AtoiDef(c.Query("limit"), DefaultLimit),
		Offset: AtoiDef(c.Query("offset"), 0),
		Order:  strings.ToLower(c.DefaultQuery("order", defaultOrder)),
	}.Normalize()
}

func AtoiDef(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}

func NextOffset(total int64, p Page) int {
	n := p.Offset + p.Limit
	if n >= int(total) {
		return 0
	}
	return n
}

// List writes the standard list envelope.
func List(c *gin.Context, items any, total int64, p Page) {
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total, "next_offset": NextOffset(total, p)})
}

// ParamID parses a positive int64 path parameter.
func ParamID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.Invalid(name + " must be a positive number")
	}
	return id, nil
}

// QueryID parses an optional int64 query parameter. Malformed values are ignored.
func QueryID(c *gin.Context, name string) *int64 {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func QueryInt(c *gin.Context, name string) *int {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func QueryDate(c *gin.Context, name string) *time.Time {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return nil
	}
	return &t
}

func QueryString(c *gin.Context, name string) *string {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	return &v
}

func QueryBool(c *gin.Context, name string) bool {
	v := c.Query(name)
	return v == "true" || v == "1"
}

// BadJSON answers a failed bind.
func BadJSON(c *gin.Context, err error) {
	zerolog.Ctx(c.Request.Context()).Debug().Err(err).Msg("bind failed")
	c.JSON(http.StatusBadRequest, apierr.New(apierr.CodeInvalidArgument, "invalid json"))
}

// Fail writes err as an API error body. Non-API errors are logged.
func Fail(c *gin.Context, err error) {
	status := apierr.Status(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).
			Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, apierr.From(err))
}
