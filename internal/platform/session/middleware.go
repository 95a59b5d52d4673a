package session

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ehr/patientflow/internal/platform/apperr"
)

// Middleware verifies the bearer token and stores the session on the
// request context.
func Middleware(m *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return apperr.HTTPError(apperr.Unauthorized("missing authorization header"))
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return apperr.HTTPError(apperr.Unauthorized("invalid authorization format"))
			}

			s, err := m.Verify(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				return apperr.HTTPError(err)
			}

			c.Set("user_id", s.Email())
			c.SetRequest(c.Request().WithContext(WithSession(c.Request().Context(), s)))
			return next(c)
		}
	}
}

// RequireRole allows the request through only for sessions holding one of
// roles.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := FromContext(c.Request().Context())
			if !ok {
				return apperr.HTTPError(apperr.Unauthorized("no session"))
			}
			if !s.HasRole(roles...) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("required role: %s", strings.Join(names, " or ")))
			}
			return next(c)
		}
	}
}

// RequireDepartment limits department staff to the department named by
// the path parameter param.
func RequireDepartment(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := FromContext(c.Request().Context())
			if !ok {
				return apperr.HTTPError(apperr.Unauthorized("no session"))
			}
			if !s.CanAccessDepartment(c.Param(param)) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("department %q is not assigned to this session", c.Param(param)))
			}
			return next(c)
		}
	}
}
