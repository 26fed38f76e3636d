package handlers

import (
	"net/http"

	"cyber_case_app_go/db"
	"cyber_case_app_go/services"

	"github.com/labstack/echo/v4"
)

// MuleIndicators scores an account number or UPI ID for mule behaviour
func (h *Handler) MuleIndicators(c echo.Context) error {
	report, err := services.MuleIndicators(db.DB, actorFrom(c), c.Param("identifier"))
	if err != nil {
		return h.fail(err, "Not found")
	}
	return c.JSON(http.StatusOK, report)
}

// RepeatEntities lists accounts and UPI IDs seen in more than one case
func (h *Handler) RepeatEntities(c echo.Context) error {
	entities, err := services.RepeatEntities(db.DB, actorFrom(c))
	if err != nil {
		return h.fail(err, "Not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"repeat_entities": entities,
		"count":           len(entities),
	})
}

// Dashboard returns case and request counts for the caller's jurisdiction
func (h *Handler) Dashboard(c echo.Context) error {
	dashboard, err := services.BuildDashboard(db.DB, actorFrom(c))
	if err != nil {
		return h.fail(err, "Not found")
	}
	return c.JSON(http.StatusOK, dashboard)
}
