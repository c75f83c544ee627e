// Package httpapi is the HTTP surface of docgate: a gin router with the
// authentication and role gates, the handlers and the JSON envelope.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/docgate/docgate/internal/common"
	"github.com/gin-gonic/gin"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
	Debug   string `json:"debug,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorConflict), errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, common.ErrorRangeNotSatisfiable):
		return http.StatusRequestedRangeNotSatisfiable
	default:
		return http.StatusInternalServerError
	}
}

func ok(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

// fail writes err as an error envelope and aborts the chain. Unexpected
// errors are logged; their text only reaches the client in debug mode.
func (a *API) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := &errorBody{Message: common.Message(err)}

	if status == http.StatusInternalServerError {
		a.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}
	if a.debug {
		body.Debug = err.Error()
	}

	c.AbortWithStatusJSON(status, envelope{Success: false, Error: body})
}

func badRequest(msg string) error {
	return common.NewError(common.ErrorInvalidInput, msg)
}
