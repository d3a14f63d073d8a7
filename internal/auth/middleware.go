package auth

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/agrimitra/agrimitra/internal/response"
)

const principalKey = "principal"

// Middleware extracts and verifies the bearer token and stores the
// principal on the echo context. Requests without a valid credential are
// rejected before the handler runs.
func Middleware(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, aerr := FromHeader(v, c.Request().Header.Get(echo.HeaderAuthorization))
			if aerr != nil {
				return response.FromAppError(c, aerr)
			}
			c.Set(principalKey, uid)
			return next(c)
		}
	}
}

// Principal returns the authenticated caller's ID from the context, or
// uuid.Nil when the route ran without the auth middleware.
func Principal(c echo.Context) uuid.UUID {
	if v, ok := c.Get(principalKey).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}
