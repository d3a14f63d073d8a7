package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrimitra/agrimitra/internal/apperr"
)

// APIResponse is the standard success response shape.
type APIResponse struct {
	Data    any    `json:"data"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Path    string `json:"path"`
}

// APIError is the standard error response shape. Reason carries the
// optional client-visible detail (e.g. the pest-photo rejection reason).
type APIError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Path    string `json:"path"`
	Status  int    `json:"status"`
}

// pathFromContext returns the request path from Echo context.
func pathFromContext(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().URL.Path
}

// OK sends a 200 response with data.
func OK(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusOK, APIResponse{
		Data:    data,
		Status:  http.StatusOK,
		Message: message,
		Path:    pathFromContext(c),
	})
}

// Created sends a 201 response with data.
func Created(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusCreated, APIResponse{
		Data:    data,
		Status:  http.StatusCreated,
		Message: message,
		Path:    pathFromContext(c),
	})
}

// Error sends a JSON error response using APIError.
func Error(c echo.Context, status int, message, errDetail string) error {
	return c.JSON(status, APIError{
		Message: message,
		Error:   errDetail,
		Path:    pathFromContext(c),
		Status:  status,
	})
}

// BadRequest sends 400 with message and error detail.
func BadRequest(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusBadRequest, message, errDetail)
}

// Unauthorized sends 401 with message and error detail.
func Unauthorized(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusUnauthorized, message, errDetail)
}

// NotFound sends 404 with message and error detail.
func NotFound(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusNotFound, message, errDetail)
}

// InternalError sends 500 with message and error detail.
func InternalError(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusInternalServerError, message, errDetail)
}

// FromAppError maps a classified error to its HTTP response. Causes
// wrapped inside the error never reach the body; only Kind, Message and
// the optional Reason do.
func FromAppError(c echo.Context, err *apperr.Error) error {
	status := err.Kind.HTTPStatus()
	return c.JSON(status, APIError{
		Message: err.Message,
		Error:   err.Kind.String(),
		Reason:  err.Reason,
		Path:    pathFromContext(c),
		Status:  status,
	})
}
