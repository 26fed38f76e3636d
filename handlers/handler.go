package handlers

import (
	"strconv"

	"cyber_case_app_go/config"
	"cyber_case_app_go/middleware"
	"cyber_case_app_go/services"

	"github.com/labstack/echo/v4"
)

// Handler holds the long-lived services the HTTP handlers call into. The
// database is the global db.DB.
type Handler struct {
	Config  *config.Config
	Vault   *services.EvidenceVault
	Tokens  *services.TokenIssuer
	Search  *services.SearchService
	Locator *services.IPLocator
}

// fail translates a service error
func (h *Handler) fail(err error, notFound string) error {
	return serviceError(h.Config, err, notFound)
}

// Page is the paginated list envelope
type Page struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func actorFrom(c echo.Context) *services.Actor {
	return middleware.GetActor(c)
}
