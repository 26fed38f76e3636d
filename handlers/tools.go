package handlers

import (
	"net/http"

	"cyber_case_app_go/services"

	"github.com/labstack/echo/v4"
)

// IPLookup geolocates an IP address or domain
func (h *Handler) IPLookup(c echo.Context) error {
	query := c.QueryParam("ip")
	if query == "" {
		query = c.QueryParam("query")
	}
	location, err := h.Locator.Lookup(c.Request().Context(), query)
	if err != nil {
		return h.fail(err, "Not found")
	}
	return c.JSON(http.StatusOK, location)
}

// TowerDump intersects the identifiers of several uploaded dumps
func (h *Handler) TowerDump(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Multipart form with files is required")
	}

	policy := h.Vault.Policy()
	var files []services.TabularFile
	for _, fh := range form.File["files"] {
		if err := policy.ValidateDeclaredSize(fh.Size); err != nil {
			return h.fail(err, "")
		}
		src, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Could not read uploaded file")
		}
		content, err := policy.ReadAll(src)
		src.Close()
		if err != nil {
			return h.fail(err, "")
		}
		files = append(files, services.TabularFile{Filename: fh.Filename, Content: content})
	}

	result, err := services.AnalyzeTowerDump(files)
	if err != nil {
		return h.fail(err, "")
	}
	return c.JSON(http.StatusOK, result)
}
