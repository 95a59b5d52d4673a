package laboratory

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/patientflow/internal/domain/labtemplate"
	"github.com/ehr/patientflow/internal/platform/apperr"
	"github.com/ehr/patientflow/internal/platform/session"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	lab := api.Group("/laboratory", session.RequireRole(session.RoleLaboratory))
	lab.GET("/referrals", h.ListReferrals)
	lab.GET("/referrals/:id/form", h.GetForm)
	lab.POST("/referrals/:id/results", h.SubmitResults)
	lab.DELETE("/referrals/:id", h.DeleteReferral)
	lab.GET("/templates", h.ListTemplates)
	lab.GET("/templates/:name", h.GetTemplate)

	// Payment is confirmed at the lab desk or by the payment clerk.
	pay := api.Group("/laboratory", session.RequireRole(session.RoleLaboratory, session.RolePayment))
	pay.POST("/referrals/:id/payment", h.ConfirmPayment)

	// Department staff download their patients' reports too.
	export := api.Group("/laboratory", session.RequireRole(session.RoleLaboratory, session.RoleDepartment))
	export.GET("/results/:patientId/export", h.ExportResults)
}

type referralView struct {
	*Referral
	Gate labtemplate.Gate `json:"gate"`
}

func (h *Handler) ListReferrals(c echo.Context) error {
	refs, err := h.svc.Referrals(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	out := make([]referralView, 0, len(refs))
	for _, r := range refs {
		out = append(out, referralView{Referral: r, Gate: r.Gate()})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetForm(c echo.Context) error {
	form, err := h.svc.Form(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, form)
}

func (h *Handler) ConfirmPayment(c echo.Context) error {
	ref, err := h.svc.ConfirmPayment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, referralView{Referral: ref, Gate: ref.Gate()})
}

type resultsRequest struct {
	Entries labtemplate.ResultEntry `json:"entries"`
}

func (h *Handler) SubmitResults(c echo.Context) error {
	var req resultsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sub, err := h.svc.SubmitResultsByID(c.Request().Context(), c.Param("id"), req.Entries)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, sub)
}

func (h *Handler) DeleteReferral(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Templates())
}

func (h *Handler) GetTemplate(c echo.Context) error {
	tpl, err := h.svc.Template(c.Param("name"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, tpl)
}

func (h *Handler) ExportResults(c echo.Context) error {
	patientID := c.Param("patientId")
	dept := c.QueryParam("department")
	if dept == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "department is required")
	}
	if s, ok := session.FromContext(c.Request().Context()); ok && s.Role() == session.RoleDepartment && !s.CanAccessDepartment(dept) {
		return echo.NewHTTPError(http.StatusForbidden, "department is not assigned to this session")
	}

	data, err := h.svc.Export(c.Request().Context(), patientID, dept)
	if err != nil {
		return apperr.HTTPError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", "lab-results-"+patientID+".xlsx"))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}
