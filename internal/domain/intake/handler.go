package intake

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/patientflow/internal/platform/apperr"
	"github.com/ehr/patientflow/internal/platform/session"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	search := api.Group("", session.RequireRole(session.RoleReception, session.RoleConsultation))
	search.GET("/patients/search/:query", h.SearchPatient)

	reception := api.Group("", session.RequireRole(session.RoleReception))
	reception.POST("/patients", h.RegisterPatient)

	triage := api.Group("", session.RequireRole(session.RoleConsultation))
	triage.POST("/consultations", h.CreateConsultation)
}

func (h *Handler) SearchPatient(c echo.Context) error {
	p, err := h.svc.Search(c.Request().Context(), c.Param("query"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var reg Registration
	if err := c.Bind(&reg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Register(c.Request().Context(), &reg)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) CreateConsultation(c echo.Context) error {
	var cons Consultation
	if err := c.Bind(&cons); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Consult(c.Request().Context(), &cons); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, &cons)
}
