package department

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ehr/patientflow/internal/domain/labtemplate"
	"github.com/ehr/patientflow/internal/domain/visit"
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
	staff := api.Group("", session.RequireRole(session.RoleDepartment))
	staff.GET("/wards", h.ListWards)
	staff.GET("/wards/:id/beds", h.ListBeds)
	staff.GET("/lab-tests", h.ListLabTests)

	dept := staff.Group("/departments/:name", session.RequireDepartment("name"))
	dept.GET("/visits", h.ListVisits)
	dept.GET("/visits/:id", h.GetVisit)
	dept.POST("/visits/:id/lab-referral", h.ReferToLab)
	dept.POST("/visits/:id/admission", h.Admit)
	dept.POST("/visits/:id/ward-discharge", h.DischargeFromWard)
	dept.POST("/visits/:id/prescription", h.Prescribe)
	dept.POST("/visits/:id/complete", h.Complete)
}

func (h *Handler) ListVisits(c echo.Context) error {
	f := ListFilter{Query: c.QueryParam("q")}
	if v := c.QueryParam("lab_ready"); v != "" {
		ready, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid lab_ready")
		}
		f.LabReady = ready
	}
	visits, err := h.svc.ListVisits(c.Request().Context(), c.Param("name"), f)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, visits)
}

func (h *Handler) GetVisit(c echo.Context) error {
	v, err := h.svc.Visit(c.Request().Context(), c.Param("name"), c.Param("id"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

type referralRequest struct {
	Tests labtemplate.RequestedTests `json:"tests"`
}

func (h *Handler) ReferToLab(c echo.Context) error {
	var req referralRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.ReferToLab(c.Request().Context(), c.Param("name"), c.Param("id"), req.Tests)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

type admissionRequest struct {
	WardID string `json:"wardId"`
	BedID  string `json:"bedId"`
}

func (h *Handler) Admit(c echo.Context) error {
	var req admissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.Admit(c.Request().Context(), c.Param("name"), c.Param("id"), req.WardID, req.BedID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) DischargeFromWard(c echo.Context) error {
	v, err := h.svc.DischargeFromWard(c.Request().Context(), c.Param("name"), c.Param("id"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

type prescriptionRequest struct {
	Medications []visit.Medication `json:"medications"`
}

func (h *Handler) Prescribe(c echo.Context) error {
	var req prescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.Prescribe(c.Request().Context(), c.Param("name"), c.Param("id"), req.Medications)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Complete(c echo.Context) error {
	v, err := h.svc.Complete(c.Request().Context(), c.Param("name"), c.Param("id"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListWards(c echo.Context) error {
	wards, err := h.svc.Wards(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, wards)
}

func (h *Handler) ListBeds(c echo.Context) error {
	beds, err := h.svc.Beds(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, beds)
}

func (h *Handler) ListLabTests(c echo.Context) error {
	names := h.svc.LabTests(c.QueryParam("q"))
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, names)
}
