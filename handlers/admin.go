package handlers

import (
	"net/http"

	"cyber_case_app_go/db"
	"cyber_case_app_go/services"

	"github.com/labstack/echo/v4"
)

// ListAuditLogs returns filtered and paginated audit logs
func (h *Handler) ListAuditLogs(c echo.Context) error {
	page, pageSize := pageParams(c)

	filters := services.AuditLogFilters{
		UserID:       c.QueryParam("user_id"),
		ResourceType: c.QueryParam("resource_type"),
		Action:       c.QueryParam("action"),
		CaseID:       c.QueryParam("case_id"),
		SearchQuery:  c.QueryParam("search"),
	}
	from, err := services.ParseDate("date_from", c.QueryParam("date_from"))
	if err != nil {
		return h.fail(err, "")
	}
	if from != nil {
		filters.DateFrom = *from
	}
	to, err := services.ParseDate("date_to", c.QueryParam("date_to"))
	if err != nil {
		return h.fail(err, "")
	}
	if to != nil {
		filters.DateTo = services.EndOfDay(*to)
	}

	logs, total, err := services.ListAuditLogs(db.DB, filters, page, pageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch audit logs")
	}
	return c.JSON(http.StatusOK, Page{Items: logs, Total: total, Page: page, PageSize: pageSize})
}

// ListUsers returns every officer account
func (h *Handler) ListUsers(c echo.Context) error {
	page, pageSize := pageParams(c)
	users, total, err := services.ListUsers(db.DB, page, pageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch users")
	}
	return c.JSON(http.StatusOK, Page{Items: users, Total: total, Page: page, PageSize: pageSize})
}

// SecurityAlerts returns the alerts raised for repeated failed logins and
// out-of-jurisdiction access
func (h *Handler) SecurityAlerts(c echo.Context) error {
	alerts := services.Monitor.RecentAlerts()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
