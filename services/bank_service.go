package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cyber_case_app_go/models"

	"gorm.io/gorm"
)

// caseEntity loads a financial entity that must belong to the case
func caseEntity(db *gorm.DB, caseID, entityID string) (*models.FinancialEntity, error) {
	if entityID == "" {
		return nil, ErrNoFinancialEntity
	}
	var entity models.FinancialEntity
	err := db.Where("id = ? AND case_id = ?", entityID, caseID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoFinancialEntity
		}
		return nil, fmt.Errorf("failed to load financial entity: %w", err)
	}
	return &entity, nil
}

func derefOr(p *string, fallback string) string {
	if p != nil && *p != "" {
		return *p
	}
	return fallback
}

// BankRequestInput asks a bank for KYC or statements
type BankRequestInput struct {
	CaseID            string
	FinancialEntityID string
	BankName          string
	AccountNumber     string
	RequestType       string
	Reason            string
	PeriodFrom        *time.Time
	PeriodTo          *time.Time
}

// CreateBankRequest files a pending bank request. SI and above; the case
// must already hold the financial entity being asked about.
func CreateBankRequest(db *gorm.DB, actor *Actor, input BankRequestInput) (*models.BankRequest, error) {
	if err := requireRank(actor, models.RoleSI); err != nil {
		return nil, err
	}
	requestType := strings.ToUpper(strings.TrimSpace(input.RequestType))
	if !models.IsValidBankRequestType(requestType) {
		return nil, NewValidationError("request_type", "request type must be KYC, STATEMENT or BOTH")
	}
	if input.PeriodFrom != nil && input.PeriodTo != nil && input.PeriodTo.Before(*input.PeriodFrom) {
		return nil, NewValidationError("period_to", "period end is before period start")
	}

	c, err := LoadCaseForActor(db, actor, input.CaseID)
	if err != nil {
		return nil, err
	}
	entity, err := caseEntity(db, c.ID, input.FinancialEntityID)
	if err != nil {
		return nil, err
	}

	account := strings.TrimSpace(input.AccountNumber)
	if account == "" {
		account = derefOr(entity.AccountNumber, "")
	}
	if err := ValidateAccountNumber(account); err != nil {
		return nil, err
	}
	bank := SanitizeText(input.BankName)
	if bank == "" {
		bank = derefOr(entity.BankName, "")
	}
	if bank == "" {
		return nil, NewValidationError("bank_name", "bank name is required")
	}

	req := &models.BankRequest{
		CaseID:            c.ID,
		FinancialEntityID: entity.ID,
		BankName:          bank,
		AccountNumber:     account,
		RequestType:       requestType,
		Reason:            SanitizeText(input.Reason),
		PeriodFrom:        input.PeriodFrom,
		PeriodTo:          input.PeriodTo,
		Status:            models.RequestStatusPending,
		CreatedByID:       actor.User.ID,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return fmt.Errorf("failed to create bank request: %w", err)
		}
		return RecordAuditEvent(tx, actor.Audit, AuditEvent{
			Action:       models.AuditActionCreateRequest,
			ResourceType: BankRequests.Resource,
			ResourceID:   req.ID,
			CaseID:       c.ID,
			Details:      fmt.Sprintf("%s request to %s for %s on FIR %s", req.RequestType, req.BankName, MaskAccount(req.AccountNumber), c.FIRNumber),
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListBankRequests pages through bank requests on visible cases
func ListBankRequests(db *gorm.DB, actor *Actor, filters RequestFilters, page, pageSize int) ([]models.BankRequest, int64, error) {
	var requests []models.BankRequest
	total, err := listScopedRequests(db, actor, BankRequests, filters, page, pageSize, &requests)
	return requests, total, err
}

// NPCIRequestInput asks NPCI for UPI transaction data
type NPCIRequestInput struct {
	CaseID               string
	FinancialEntityID    string
	UPIID                string
	TransactionReference string
	RequestType          string
	Reason               string
}

// CreateNPCIRequest files a pending NPCI request. SI and above; the case
// must already hold the UPI entity being asked about.
func CreateNPCIRequest(db *gorm.DB, actor *Actor, input NPCIRequestInput) (*models.NPCIRequest, error) {
	if err := requireRank(actor, models.RoleSI); err != nil {
		return nil, err
	}
	requestType := strings.ToUpper(strings.TrimSpace(input.RequestType))
	if requestType == "" {
		requestType = models.NPCIRequestTransactionDetails
	}
	if !models.IsValidNPCIRequestType(requestType) {
		return nil, NewValidationError("request_type", "request type must be TRANSACTION_DETAILS or FULL_HISTORY")
	}

	c, err := LoadCaseForActor(db, actor, input.CaseID)
	if err != nil {
		return nil, err
	}
	entity, err := caseEntity(db, c.ID, input.FinancialEntityID)
	if err != nil {
		return nil, err
	}

	upi := strings.ToLower(strings.TrimSpace(input.UPIID))
	if upi == "" {
		upi = derefOr(entity.UPIID, "")
	}
	if !upiPattern.MatchString(upi) {
		return nil, NewValidationError("upi_id", "a valid UPI ID is required")
	}

	req := &models.NPCIRequest{
		CaseID:               c.ID,
		FinancialEntityID:    entity.ID,
		UPIID:                upi,
		TransactionReference: ptrIfNotEmpty(SanitizeText(input.TransactionReference)),
		RequestType:          requestType,
		Reason:               SanitizeText(input.Reason),
		Status:               models.RequestStatusPending,
		CreatedByID:          actor.User.ID,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return fmt.Errorf("failed to create NPCI request: %w", err)
		}
		return RecordAuditEvent(tx, actor.Audit, AuditEvent{
			Action:       models.AuditActionCreateRequest,
			ResourceType: NPCIRequests.Resource,
			ResourceID:   req.ID,
			CaseID:       c.ID,
			Details:      fmt.Sprintf("NPCI %s request for %s on FIR %s", req.RequestType, req.UPIID, c.FIRNumber),
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListNPCIRequests pages through NPCI requests on visible cases
func ListNPCIRequests(db *gorm.DB, actor *Actor, filters RequestFilters, page, pageSize int) ([]models.NPCIRequest, int64, error) {
	var requests []models.NPCIRequest
	total, err := listScopedRequests(db, actor, NPCIRequests, filters, page, pageSize, &requests)
	return requests, total, err
}

// GetBankRequest returns one bank request on a visible case
func GetBankRequest(db *gorm.DB, actor *Actor, id string) (*models.BankRequest, error) {
	return getScopedRequest[models.BankRequest](db, actor, BankRequests, id)
}

// GetNPCIRequest returns one NPCI request on a visible case
func GetNPCIRequest(db *gorm.DB, actor *Actor, id string) (*models.NPCIRequest, error) {
	return getScopedRequest[models.NPCIRequest](db, actor, NPCIRequests, id)
}
