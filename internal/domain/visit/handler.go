package visit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/patientflow/internal/platform/apperr"
)

type Handler struct {
	history *HistoryService
}

func NewHandler(history *HistoryService) *Handler {
	return &Handler{history: history}
}

// RegisterRoutes mounts the read-only visit endpoints. Callers apply the
// role guard to api.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/visits/:id/status-history", h.GetStatusHistory)
	api.GET("/visit-statuses", h.ListStatuses)
}

func (h *Handler) GetStatusHistory(c echo.Context) error {
	history, err := h.history.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	if history == nil {
		history = []*StatusChange{}
	}
	return c.JSON(http.StatusOK, history)
}

type statusView struct {
	Status  Status   `json:"status"`
	Allowed []Status `json:"allowed"`
}

// ListStatuses exposes the transition table so screens only offer legal
// actions.
func (h *Handler) ListStatuses(c echo.Context) error {
	out := make([]statusView, 0, len(Statuses))
	for _, s := range Statuses {
		out = append(out, statusView{Status: s, Allowed: Allowed(s)})
	}
	return c.JSON(http.StatusOK, out)
}
