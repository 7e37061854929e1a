package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/devicemanager/api/internal/core/auth"
	"github.com/devicemanager/api/internal/core/domain"
)

// RBAC rejects requests whose role is outside policy before the handler
// runs. Ownership is left to the service, which knows the resource.
func RBAC(policy auth.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !policy.Allows(claims.Role) {
				return domain.ErrUnauthorized
			}
			return next(c)
		}
	}
}
