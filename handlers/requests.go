package handlers

import (
	"fmt"
	"net/http"

	"cyber_case_app_go/db"
	"cyber_case_app_go/services"

	"github.com/labstack/echo/v4"
)

type telecomRequestBody struct {
	CaseID        string   `json:"case_id"`
	MobileNumber  string   `json:"mobile_number"`
	MobileNumbers []string `json:"mobile_numbers"`
	RequestType   string   `json:"request_type"`
	Reason        string   `json:"reason"`
}

// CreateTelecomRequest files a CDR/CAF/IPDR/SDR request for one number
func (h *Handler) CreateTelecomRequest(c echo.Context) error {
	var req telecomRequestBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	created, err := services.CreateTelecomRequest(db.DB, actorFrom(c), services.TelecomRequestInput{
		CaseID:       req.CaseID,
		MobileNumber: req.MobileNumber,
		RequestType:  req.RequestType,
		Reason:       req.Reason,
	})
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusCreated, created)
}

// CreateTelecomBatch files one request per number, grouped by provider
func (h *Handler) CreateTelecomBatch(c echo.Context) error {
	var req telecomRequestBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	result, err := services.CreateTelecomBatch(db.DB, actorFrom(c), services.TelecomBatchInput{
		CaseID:        req.CaseID,
		MobileNumbers: req.MobileNumbers,
		RequestType:   req.RequestType,
		Reason:        req.Reason,
	})
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusCreated, result)
}

func requestFilters(c echo.Context) services.RequestFilters {
	return services.RequestFilters{CaseID: c.QueryParam("case_id"), Status: c.QueryParam("status")}
}

// ListTelecomRequests lists telecom requests on visible cases
func (h *Handler) ListTelecomRequests(c echo.Context) error {
	page, pageSize := pageParams(c)
	items, total, err := services.ListTelecomRequests(db.DB, actorFrom(c), requestFilters(c), page, pageSize)
	if err != nil {
		return h.fail(err, "Request not found")
	}
	return c.JSON(http.StatusOK, Page{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// GetTelecomRequest returns one telecom request on a visible case
func (h *Handler) GetTelecomRequest(c echo.Context) error {
	r, err := services.GetTelecomRequest(db.DB, actorFrom(c), c.Param("id"))
	if err != nil {
		return h.fail(err, "Telecom request not found")
	}
	return c.JSON(http.StatusOK, r)
}

// GetBankRequest returns one bank request on a visible case
func (h *Handler) GetBankRequest(c echo.Context) error {
	r, err := services.GetBankRequest(db.DB, actorFrom(c), c.Param("id"))
	if err != nil {
		return h.fail(err, "Bank request not found")
	}
	return c.JSON(http.StatusOK, r)
}

// GetNPCIRequest returns one NPCI request on a visible case
func (h *Handler) GetNPCIRequest(c echo.Context) error {
	r, err := services.GetNPCIRequest(db.DB, actorFrom(c), c.Param("id"))
	if err != nil {
		return h.fail(err, "NPCI request not found")
	}
	return c.JSON(http.StatusOK, r)
}

// GetFreezeRequest returns one freeze request on a visible case
func (h *Handler) GetFreezeRequest(c echo.Context) error {
	r, err := services.GetFreezeRequest(db.DB, actorFrom(c), c.Param("id"))
	if err != nil {
		return h.fail(err, "Freeze request not found")
	}
	return c.JSON(http.StatusOK, r)
}

type reviewBody struct {
	Reason string `json:"reason"`
}

// review approves or rejects any kind of pending request
func (h *Handler) review(kind services.RequestKind, approve bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req reviewBody
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
		}
		if req.Reason == "" {
			req.Reason = c.QueryParam("reason")
		}

		id := c.Param("id")
		if err := services.ReviewRequest(db.DB, actorFrom(c), kind, id, approve, req.Reason); err != nil {
			return h.fail(err, kind.Label+" not found")
		}

		verb := "approved"
		if !approve {
			verb = "rejected"
		}
		return c.JSON(http.StatusOK, map[string]string{
			"id":      id,
			"status":  verb,
			"message": fmt.Sprintf("%s %s", kind.Label, verb),
		})
	}
}

// DispatchTelecomRequest marks an approved request as sent to the provider
func (h *Handler) DispatchTelecomRequest(c echo.Context) error {
	id := c.Param("id")
	if err := services.DispatchTelecomRequest(db.DB, actorFrom(c), id); err != nil {
		return h.fail(err, "Telecom request not found")
	}
	updated, err := services.GetTelecomRequest(db.DB, actorFrom(c), id)
	if err != nil {
		return h.fail(err, "Telecom request not found")
	}
	return c.JSON(http.StatusOK, updated)
}

// UploadTelecomResponse stores the provider's reply file
func (h *Handler) UploadTelecomResponse(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "File is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Could not read uploaded file")
	}
	defer src.Close()

	updated, err := h.Vault.AttachTelecomResponse(c.Request().Context(), actorFrom(c), c.Param("id"), fh.Filename, fh.Size, src)
	if err != nil {
		return h.fail(err, "Telecom request not found")
	}
	return c.JSON(http.StatusOK, updated)
}

// DownloadTelecomResponse returns the verified provider reply
func (h *Handler) DownloadTelecomResponse(c echo.Context) error {
	resp, err := h.Vault.OpenTelecomResponse(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return h.fail(err, "Telecom response not found")
	}
	setDisposition(c, "attachment", resp.Filename)
	return c.Blob(http.StatusOK, resp.MediaType, resp.Content)
}

type bankRequestBody struct {
	CaseID            string `json:"case_id"`
	FinancialEntityID string `json:"financial_entity_id"`
	BankName          string `json:"bank_name"`
	AccountNumber     string `json:"account_number"`
	RequestType       string `json:"request_type"`
	Reason            string `json:"reason"`
	PeriodFrom        string `json:"period_from"`
	PeriodTo          string `json:"period_to"`
}

// CreateBankRequest asks a bank for KYC or statements
func (h *Handler) CreateBankRequest(c echo.Context) error {
	var req bankRequestBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	from, err := services.ParseDate("period_from", req.PeriodFrom)
	if err != nil {
		return h.fail(err, "")
	}
	to, err := services.ParseDate("period_to", req.PeriodTo)
	if err != nil {
		return h.fail(err, "")
	}

	created, err := services.CreateBankRequest(db.DB, actorFrom(c), services.BankRequestInput{
		CaseID:            req.CaseID,
		FinancialEntityID: req.FinancialEntityID,
		BankName:          req.BankName,
		AccountNumber:     req.AccountNumber,
		RequestType:       req.RequestType,
		Reason:            req.Reason,
		PeriodFrom:        from,
		PeriodTo:          to,
	})
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusCreated, created)
}

// ListBankRequests lists bank requests on visible cases
func (h *Handler) ListBankRequests(c echo.Context) error {
	page, pageSize := pageParams(c)
	items, total, err := services.ListBankRequests(db.DB, actorFrom(c), requestFilters(c), page, pageSize)
	if err != nil {
		return h.fail(err, "Bank request not found")
	}
	return c.JSON(http.StatusOK, Page{Items: items, Total: total, Page: page, PageSize: pageSize})
}

type npciRequestBody struct {
	CaseID               string `json:"case_id"`
	FinancialEntityID    string `json:"financial_entity_id"`
	UPIID                string `json:"upi_id"`
	TransactionReference string `json:"transaction_reference"`
	RequestType          string `json:"request_type"`
	Reason               string `json:"reason"`
}

// CreateNPCIRequest asks NPCI for UPI transaction data
func (h *Handler) CreateNPCIRequest(c echo.Context) error {
	var req npciRequestBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	created, err := services.CreateNPCIRequest(db.DB, actorFrom(c), services.NPCIRequestInput{
		CaseID:               req.CaseID,
		FinancialEntityID:    req.FinancialEntityID,
		UPIID:                req.UPIID,
		TransactionReference: req.TransactionReference,
		RequestType:          req.RequestType,
		Reason:               req.Reason,
	})
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusCreated, created)
}

// ListNPCIRequests lists NPCI requests on visible cases
func (h *Handler) ListNPCIRequests(c echo.Context) error {
	page, pageSize := pageParams(c)
	items, total, err := services.ListNPCIRequests(db.DB, actorFrom(c), requestFilters(c), page, pageSize)
	if err != nil {
		return h.fail(err, "NPCI request not found")
	}
	return c.JSON(http.StatusOK, Page{Items: items, Total: total, Page: page, PageSize: pageSize})
}

type freezeRequestBody struct {
	CaseID            string `json:"case_id"`
	FinancialEntityID string `json:"financial_entity_id"`
	BankName          string `json:"bank_name"`
	AccountNumber     string `json:"account_number"`
	UrgencyLevel      string `json:"urgency_level"`
	Justification     string `json:"justification"`
}

// CreateFreezeRequest generates a debit-freeze notice
func (h *Handler) CreateFreezeRequest(c echo.Context) error {
	var req freezeRequestBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	created, err := services.CreateFreezeRequest(db.DB, actorFrom(c), services.FreezeRequestInput{
		CaseID:            req.CaseID,
		FinancialEntityID: req.FinancialEntityID,
		BankName:          req.BankName,
		AccountNumber:     req.AccountNumber,
		UrgencyLevel:      req.UrgencyLevel,
		Justification:     req.Justification,
	})
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusCreated, created)
}

// ListFreezeRequests lists freeze notices on visible cases
func (h *Handler) ListFreezeRequests(c echo.Context) error {
	page, pageSize := pageParams(c)
	items, total, err := services.ListFreezeRequests(db.DB, actorFrom(c), requestFilters(c), page, pageSize)
	if err != nil {
		return h.fail(err, "Freeze request not found")
	}
	return c.JSON(http.StatusOK, Page{Items: items, Total: total, Page: page, PageSize: pageSize})
}

type freezeStatusBody struct {
	Status        string `json:"status"`
	BankReference string `json:"bank_reference"`
}

// UpdateFreezeStatus records that a notice was sent, confirmed or expired
func (h *Handler) UpdateFreezeStatus(c echo.Context) error {
	var req freezeStatusBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	updated, err := services.UpdateFreezeStatus(db.DB, actorFrom(c), c.Param("id"), req.Status, req.BankReference)
	if err != nil {
		return h.fail(err, "Freeze request not found")
	}
	return c.JSON(http.StatusOK, updated)
}
