package handlers

import (
	"net/http"

	"cyber_case_app_go/services"

	"github.com/labstack/echo/v4"
)

// UniversalSearch looks an identifier up across every visible record
func (h *Handler) UniversalSearch(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		query = c.QueryParam("q")
	}
	resp, err := h.Search.Search(c.Request().Context(), actorFrom(c), query, c.QueryParam("search_type"))
	if err != nil {
		return h.fail(err, "Not found")
	}
	return c.JSON(http.StatusOK, resp)
}

// CorrelateMobile is the older mobile-only search path
func (h *Handler) CorrelateMobile(c echo.Context) error {
	resp, err := h.Search.Search(c.Request().Context(), actorFrom(c), c.Param("mobile"), services.SearchTypeMobile)
	if err != nil {
		return h.fail(err, "Not found")
	}
	return c.JSON(http.StatusOK, resp)
}

// Investigation returns everything known about one identifier with a risk profile
func (h *Handler) Investigation(c echo.Context) error {
	result, err := h.Search.Investigate(c.Request().Context(), actorFrom(c), c.QueryParam("identifier"))
	if err != nil {
		return h.fail(err, "Not found")
	}
	return c.JSON(http.StatusOK, result)
}

// NetworkGraph returns the case/mobile/account graph around an identifier
func (h *Handler) NetworkGraph(c echo.Context) error {
	graph, err := h.Search.BuildNetworkGraph(c.Request().Context(), actorFrom(c), c.QueryParam("identifier"))
	if err != nil {
		return h.fail(err, "Not found")
	}
	return c.JSON(http.StatusOK, graph)
}

// FileSearch searches every identifier found in an uploaded CSV or Excel file
func (h *Handler) FileSearch(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "File is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Could not read uploaded file")
	}
	defer src.Close()

	policy := h.Vault.Policy()
	if err := policy.ValidateDeclaredSize(fh.Size); err != nil {
		return h.fail(err, "")
	}
	content, err := policy.ReadAll(src)
	if err != nil {
		return h.fail(err, "")
	}

	result, err := h.Search.FileSearch(c.Request().Context(), actorFrom(c), fh.Filename, content)
	if err != nil {
		return h.fail(err, "Not found")
	}
	return c.JSON(http.StatusOK, result)
}

// AnalyzeCDR summarises a CDR evidence file
func (h *Handler) AnalyzeCDR(c echo.Context) error {
	analysis, err := h.Vault.AnalyzeCDREvidence(c.Request().Context(), actorFrom(c), c.Param("evidence_id"))
	if err != nil {
		return h.fail(err, "Evidence not found")
	}
	return c.JSON(http.StatusOK, analysis)
}
