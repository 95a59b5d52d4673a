package pharmacy

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/patientflow/internal/platform/apperr"
	"github.com/ehr/patientflow/internal/platform/session"
	"github.com/ehr/patientflow/pkg/pagination"
)

// PageSize is the number of prescriptions listed per page.
const PageSize = 5

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/pharmacy", session.RequireRole(session.RolePharmacy))
	g.GET("/medicines", h.ListMedicines)
	g.POST("/medicines", h.AddMedicine)
	g.GET("/prescriptions", h.ListPrescriptions)
	g.GET("/prescriptions/:id", h.GetPrescription)
	g.POST("/prescriptions/:id/fulfill", h.Fulfill)
	g.POST("/prescriptions/:id/discharge", h.Discharge)
	g.DELETE("/prescriptions/:id", h.DeletePrescription)
}

func (h *Handler) ListMedicines(c echo.Context) error {
	meds, err := h.svc.Medicines(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, meds)
}

func (h *Handler) AddMedicine(c echo.Context) error {
	var m Medicine
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, err := h.svc.AddMedicine(c.Request().Context(), &m)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	list, err := h.svc.Prescriptions(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	pg := pagination.FromContext(c, PageSize)
	resp := pagination.Slice(list, pg)
	resp.Links = pg.Links(c.Request().URL.Path, c.QueryParams(), resp.Total)
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	p, err := h.svc.Prescription(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type availabilityRequest struct {
	Availability Availability `json:"availability"`
}

func (h *Handler) Fulfill(c echo.Context) error {
	var req availabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.Fulfill(c.Request().Context(), c.Param("id"), req.Availability)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) Discharge(c echo.Context) error {
	var req availabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.Discharge(c.Request().Context(), c.Param("id"), req.Availability)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeletePrescription(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
