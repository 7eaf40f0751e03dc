package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// staffMiddleware lets through tokens holding any of roles; staff and admin by default.
func staffMiddleware(roles ...string) echo.MiddlewareFunc {
	if len(roles) == 0 {
		roles = []string{RoleStaff, RoleAdmin}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claimsHaveAnyRole(claims, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
