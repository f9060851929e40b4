package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/service"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// StatusFor maps a domain error kind to an HTTP status.
func StatusFor(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation, service.KindRange, service.KindDuplicate,
		service.KindReference, service.KindMissingField, service.KindConflict:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindAuthorization:
		return http.StatusForbidden
	case service.KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as JSON. Domain errors keep their kind and field
// messages, request binding failures become validation errors and anything
// else is logged and hidden behind a 500.
func RespondError(c *gin.Context, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		c.JSON(StatusFor(se.Kind), ErrorResponse{Error: string(se.Kind), Message: se.Message, Fields: se.Fields})
		return
	}

	if fields := service.FieldErrors(err); fields != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(service.KindValidation), Message: "invalid request", Fields: fields})
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(service.KindValidation),
			Message: "invalid request",
			Fields:  map[string]string{typeErr.Field: "Incorrect type. Expected " + typeErr.Type.String() + "."},
		})
		return
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(service.KindValidation), Message: "malformed request body"})
		return
	}

	logging.Error().Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Msg("request failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "internal server error"})
}

// Recovery turns panics into logged 500 responses.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logging.Error().
					Interface("panic", r).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "internal server error"})
			}
		}()
		c.Next()
	}
}
