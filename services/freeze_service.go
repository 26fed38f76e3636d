package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cyber_case_app_go/models"

	"gorm.io/gorm"
)

// FreezeRequests share scoped listing and single reads with the other request tables
var FreezeRequests = RequestKind{Table: "freeze_requests", Resource: "freeze_request", Label: "Freeze request"}

// FreezeRequestInput is an urgent debit-freeze notice
type FreezeRequestInput struct {
	CaseID            string
	FinancialEntityID string
	BankName          string
	AccountNumber     string
	UrgencyLevel      string
	Justification     string
}

// CreateFreezeRequest generates a freeze notice. SI and above. Audit rows
// carry only the last four digits of the account.
func CreateFreezeRequest(db *gorm.DB, actor *Actor, input FreezeRequestInput) (*models.FreezeRequest, error) {
	if err := requireRank(actor, models.RoleSI); err != nil {
		return nil, fmt.Errorf("%w: contact your SHO", err)
	}
	urgency := strings.ToLower(strings.TrimSpace(input.UrgencyLevel))
	if urgency == "" {
		urgency = models.UrgencyHigh
	}
	if !models.IsValidUrgency(urgency) {
		return nil, NewValidationError("urgency_level", "urgency must be high or critical")
	}
	justification := SanitizeText(input.Justification)
	if justification == "" {
		return nil, NewValidationError("justification", "justification is required")
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

	freeze := &models.FreezeRequest{
		CaseID:            c.ID,
		FinancialEntityID: entity.ID,
		BankName:          bank,
		AccountNumber:     account,
		UrgencyLevel:      urgency,
		Justification:     justification,
		CreatedByID:       actor.User.ID,
		Status:            models.FreezeStatusGenerated,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(freeze).Error; err != nil {
			return fmt.Errorf("failed to create freeze request: %w", err)
		}
		return RecordAuditEvent(tx, actor.Audit, AuditEvent{
			Action:       models.AuditActionCreateFreeze,
			ResourceType: FreezeRequests.Resource,
			ResourceID:   freeze.ID,
			CaseID:       c.ID,
			Details: fmt.Sprintf("URGENT: freeze generated for FIR %s. Bank: %s, Account: %s, Urgency: %s",
				c.FIRNumber, bank, MaskAccount(account), urgency),
		})
	})
	if err != nil {
		return nil, err
	}
	return freeze, nil
}

// ListFreezeRequests pages through freeze requests on visible cases
func ListFreezeRequests(db *gorm.DB, actor *Actor, filters RequestFilters, page, pageSize int) ([]models.FreezeRequest, int64, error) {
	var requests []models.FreezeRequest
	total, err := listScopedRequests(db, actor, FreezeRequests, filters, page, pageSize, &requests)
	return requests, total, err
}

// IsValidFreezeTransition reports whether a freeze may move between statuses.
// A notice goes out, is confirmed by the bank, or lapses.
func IsValidFreezeTransition(from, to string) bool {
	switch to {
	case models.FreezeStatusSent:
		return from == models.FreezeStatusGenerated
	case models.FreezeStatusConfirmed:
		return from == models.FreezeStatusSent
	case models.FreezeStatusExpired:
		return from == models.FreezeStatusGenerated || from == models.FreezeStatusSent
	}
	return false
}

// GetFreezeRequest returns one freeze request on a visible case
func GetFreezeRequest(db *gorm.DB, actor *Actor, id string) (*models.FreezeRequest, error) {
	return getScopedRequest[models.FreezeRequest](db, actor, FreezeRequests, id)
}

// UpdateFreezeStatus records the bank's progress on a freeze. SI and above.
func UpdateFreezeStatus(db *gorm.DB, actor *Actor, id, status, bankReference string) (*models.FreezeRequest, error) {
	if err := requireRank(actor, models.RoleSI); err != nil {
		return nil, err
	}
	if !models.IsValidFreezeStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var freeze models.FreezeRequest
	if err := db.First(&freeze, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load freeze request: %w", err)
	}
	c, err := LoadCaseForActor(db, actor, freeze.CaseID)
	if err != nil {
		return nil, err
	}
	if !IsValidFreezeTransition(freeze.Status, status) {
		return nil, fmt.Errorf("%w: freeze request is %s", ErrInvalidTransition, freeze.Status)
	}

	now := time.Now()
	updates := map[string]interface{}{"status": status}
	switch status {
	case models.FreezeStatusSent:
		updates["freeze_initiated_at"] = now
	case models.FreezeStatusConfirmed:
		updates["freeze_confirmed_at"] = now
		if ref := SanitizeText(bankReference); ref != "" {
			updates["bank_reference_number"] = ref
		}
	}

	old := freeze.Status
	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.FreezeRequest{}).Where("id = ? AND status = ?", freeze.ID, old).Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update freeze request: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: freeze request changed concurrently", ErrInvalidTransition)
		}
		details := fmt.Sprintf("Freeze on %s (FIR %s) now %s", MaskAccount(freeze.AccountNumber), c.FIRNumber, status)
		if ref, ok := updates["bank_reference_number"]; ok {
			details += fmt.Sprintf(", bank ref %s", ref)
		}
		return RecordAuditEvent(tx, actor.Audit, AuditEvent{
			Action:       models.AuditActionUpdateFreezeStatus,
			ResourceType: FreezeRequests.Resource,
			ResourceID:   freeze.ID,
			CaseID:       c.ID,
			Details:      details,
			OldValues:    map[string]string{"status": old},
			NewValues:    map[string]string{"status": status},
		})
	})
	if err != nil {
		return nil, err
	}

	if err := db.First(&freeze, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload freeze request: %w", err)
	}
	return &freeze, nil
}
