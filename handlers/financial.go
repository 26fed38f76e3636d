package handlers

import (
	"net/http"
	"time"

	"cyber_case_app_go/db"
	"cyber_case_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type financialEntityBody struct {
	CaseID            string          `json:"case_id"`
	EntityType        string          `json:"entity_type"`
	BankName          string          `json:"bank_name"`
	AccountNumber     string          `json:"account_number"`
	IFSCCode          string          `json:"ifsc_code"`
	AccountHolderName string          `json:"account_holder_name"`
	UPIID             string          `json:"upi_id"`
	WalletProvider    string          `json:"wallet_provider"`
	TransactionID     string          `json:"transaction_id"`
	TransactionDate   *time.Time      `json:"transaction_date"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
}

// CreateFinancialEntity links an account, UPI ID or wallet to a case
func (h *Handler) CreateFinancialEntity(c echo.Context) error {
	var req financialEntityBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	entity, err := services.CreateFinancialEntity(db.DB, actorFrom(c), services.FinancialEntityInput{
		CaseID:            req.CaseID,
		EntityType:        req.EntityType,
		BankName:          req.BankName,
		AccountNumber:     req.AccountNumber,
		IFSCCode:          req.IFSCCode,
		AccountHolderName: req.AccountHolderName,
		UPIID:             req.UPIID,
		WalletProvider:    req.WalletProvider,
		TransactionID:     req.TransactionID,
		TransactionDate:   req.TransactionDate,
		TransactionAmount: req.TransactionAmount,
	})
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusCreated, entity)
}

// ListFinancialEntities lists the entities of a case
func (h *Handler) ListFinancialEntities(c echo.Context) error {
	entities, err := services.ListFinancialEntities(db.DB, actorFrom(c), c.Param("case_id"))
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusOK, entities)
}

// VerifyFinancialEntity marks an entity verified or flagged
func (h *Handler) VerifyFinancialEntity(c echo.Context) error {
	var req verificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Status == "" {
		req.Status = c.QueryParam("status")
	}

	entity, err := services.VerifyFinancialEntity(db.DB, actorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		return h.fail(err, "Financial entity not found")
	}
	return c.JSON(http.StatusOK, entity)
}

// DeleteFinancialEntity removes an entity no request refers to
func (h *Handler) DeleteFinancialEntity(c echo.Context) error {
	if err := services.DeleteFinancialEntity(db.DB, actorFrom(c), c.Param("id")); err != nil {
		return h.fail(err, "Financial entity not found")
	}
	return c.NoContent(http.StatusNoContent)
}

type transactionEventBody struct {
	CaseID                string          `json:"case_id"`
	FinancialEntityID     string          `json:"financial_entity_id"`
	EventType             string          `json:"event_type"`
	EventTimestamp        time.Time       `json:"event_timestamp"`
	Amount                decimal.Decimal `json:"amount"`
	Narrative             string          `json:"narrative"`
	SourceIdentifier      string          `json:"source_identifier"`
	DestinationIdentifier string          `json:"destination_identifier"`
}

// AddTransactionEvent records one step of the money trail
func (h *Handler) AddTransactionEvent(c echo.Context) error {
	var req transactionEventBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	event, err := services.AddTransactionEvent(db.DB, actorFrom(c), services.TransactionEventInput{
		CaseID:                req.CaseID,
		FinancialEntityID:     req.FinancialEntityID,
		EventType:             req.EventType,
		EventTimestamp:        req.EventTimestamp,
		Amount:                req.Amount,
		Narrative:             req.Narrative,
		SourceIdentifier:      req.SourceIdentifier,
		DestinationIdentifier: req.DestinationIdentifier,
	})
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusCreated, event)
}

// Timeline returns the annotated money trail of a case
func (h *Handler) Timeline(c echo.Context) error {
	timeline, err := services.BuildTimeline(db.DB, actorFrom(c), c.Param("case_id"))
	if err != nil {
		return h.fail(err, "Case not found")
	}
	return c.JSON(http.StatusOK, timeline)
}
