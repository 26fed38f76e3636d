package handlers

import (
	"net/http"

	"cyber_case_app_go/db"
	"cyber_case_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type createCaseRequest struct {
	FIRNumber      string          `json:"fir_number"`
	CaseType       string          `json:"case_type"`
	CaseCategory   string          `json:"case_category"`
	AmountInvolved decimal.Decimal `json:"amount_involved"`
	Description    string          `json:"description"`
	PoliceStation  string          `json:"police_station"`
}

// CreateCase registers a new FIR
func (h *Handler) CreateCase(c echo.Context) error {
	var req createCaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	created, err := services.CreateCase(db.DB, actorFrom(c), services.CaseInput{
		FIRNumber:      req.FIRNumber,
		CaseType:       req.CaseType,
		CaseCategory:   req.CaseCategory,
		AmountInvolved: req.AmountInvolved,
		Description:    req.Description,
		PoliceStation:  req.PoliceStation,
	})
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusCreated, created)
}

// ListCases returns the cases visible to the caller
func (h *Handler) ListCases(c echo.Context) error {
	page, pageSize := pageParams(c)
	filters := services.CaseFilters{
		Status:   c.QueryParam("status"),
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
	}

	cases, total, err := services.ListCases(db.DB, actorFrom(c), filters, page, pageSize)
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusOK, Page{Items: cases, Total: total, Page: page, PageSize: pageSize})
}

// GetCase returns one case in the caller's jurisdiction
func (h *Handler) GetCase(c echo.Context) error {
	found, err := services.LoadCaseForActor(db.DB, actorFrom(c), c.Param("id"))
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusOK, found)
}

type caseStatusRequest struct {
	Status string `json:"status"`
}

// UpdateCaseStatus moves a case along its lifecycle
func (h *Handler) UpdateCaseStatus(c echo.Context) error {
	var req caseStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Status == "" {
		req.Status = c.QueryParam("status")
	}

	updated, err := services.UpdateCaseStatus(db.DB, actorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusOK, updated)
}
