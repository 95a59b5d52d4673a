package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/platform/apperr"
	"github.com/ehr/patientflow/internal/platform/session"
)

// Recovery turns a handler panic into a 500 with the standard error body.
// The log line names the signed-in actor when there is one.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)

					evt := logger.Error()
					if s, ok := session.FromContext(c.Request().Context()); ok {
						evt = evt.Str("actor", s.Actor()).Stringer("role", s.Role())
					}
					evt.
						Str("request_id", requestID(c)).
						Str("method", c.Request().Method).
						Str("route", c.Path()).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(stack[:n])).
						Msg("panic recovered")

					err = echo.NewHTTPError(http.StatusInternalServerError, apperr.Body{
						Kind:    apperr.KindUnknown.String(),
						Message: "internal server error",
					})
				}
			}()
			return next(c)
		}
	}
}
