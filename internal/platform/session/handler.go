package session

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/platform/apperr"
)

type Handler struct {
	manager *Manager
	logger  zerolog.Logger
}

func NewHandler(m *Manager, logger zerolog.Logger) *Handler {
	return &Handler{manager: m, logger: logger}
}

// RegisterRoutes mounts login on public and the session endpoints on
// protected, which must already run Middleware.
func (h *Handler) RegisterRoutes(public, protected *echo.Group) {
	public.POST("/auth/login", h.Login)
	protected.POST("/auth/logout", h.Logout)
	protected.GET("/auth/session", h.Current)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	View
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := h.manager.Login(c.Request().Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, ErrRoleNotPermitted):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case apperr.KindOf(err) == apperr.KindUnauthorized:
		return echo.NewHTTPError(http.StatusUnauthorized, "Login failed. Please check your credentials.")
	default:
		return apperr.HTTPError(err)
	}

	h.logger.Info().
		Str("session_id", res.Session.ID()).
		Str("role", res.Session.Role().String()).
		Str("department", res.Session.Department()).
		Msg("session opened")
	return c.JSON(http.StatusOK, loginResponse{Token: res.Token, View: res.Session.View()})
}

func (h *Handler) Logout(c echo.Context) error {
	s, _ := FromContext(c.Request().Context())
	if err := h.manager.Logout(c.Request().Context(), s); err != nil {
		return apperr.HTTPError(err)
	}
	h.logger.Info().Str("session_id", s.ID()).Msg("session closed")
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Current(c echo.Context) error {
	s, ok := FromContext(c.Request().Context())
	if !ok {
		return apperr.HTTPError(apperr.Unauthorized("no session"))
	}
	return c.JSON(http.StatusOK, s.View())
}
