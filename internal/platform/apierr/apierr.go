package apierr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	mysql "github.com/go-sql-driver/mysql"
)

// ===== Error model =====
type Code string

const (
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeUnprocessableEntity Code = "UNPROCESSABLE_ENTITY"
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeInternal            Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func Invalid(msg string) *APIError       { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func NotFound(msg string) *APIError      { return &APIError{Code: CodeNotFound, Message: msg} }
func Conflict(msg string) *APIError      { return &APIError{Code: CodeConflict, Message: msg} }
func Unprocessable(msg string) *APIError { return &APIError{Code: CodeUnprocessableEntity, Message: msg} }
func Unauthenticated(msg string) *APIError {
	return &APIError{Code: CodeUnauthenticated, Message: msg}
}
func Forbidden(msg string) *APIError { return &APIError{Code: CodeForbidden, Message: msg} }
func Internal(msg string) *APIError  { return &APIError{Code: CodeInternal, Message: msg} }

func Invalidf(format string, args ...any) *APIError {
	return Invalid(fmt.Sprintf(format, args...))
}

func Unprocessablef(format string, args ...any) *APIError {
	return Unprocessable(fmt.Sprintf(format, args...))
}

func Status(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		case CodeUnprocessableEntity:
			return http.StatusUnprocessableEntity
		case CodeUnauthenticated:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// FromDB translates driver level errors into API errors. what names the
// entity for not-found messages.
func FromDB(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return NotFound(what + " not found")
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1062: // duplicate key
			return Conflict(what + " already exists")
		case 1451: // row is referenced
			return Conflict(what + " is still referenced")
		case 1452: // foreign key constraint fails
			return Invalid("referenced record for " + what + " does not exist")
		case 3819: // check constraint violated
			return Unprocessable(what + " violates a check constraint")
		}
	}
	return err
}

// ===== Response body =====

type Body struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func New(code Code, msg string) Body {
	var e Body
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

// From builds the response body. Unknown errors are reported as INTERNAL
// without leaking their text.
func From(err error) Body {
	var api *APIError
	if errors.As(err, &api) {
		return New(api.Code, api.Message)
	}
	return New(CodeInternal, "internal error")
}
