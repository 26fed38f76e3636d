package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cyber_case_app_go/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	upiPattern  = regexp.MustCompile(`^[\w.\-]{2,256}@[A-Za-z]{2,64}$`)
	ifscPattern = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
)

// MaskAccount keeps the last four digits of an account number
func MaskAccount(account string) string {
	if len(account) <= 4 {
		return "***" + account
	}
	return "***" + account[len(account)-4:]
}

// FinancialEntityInput describes an account, UPI ID or wallet to link
type FinancialEntityInput struct {
	CaseID            string
	EntityType        string
	BankName          string
	AccountNumber     string
	IFSCCode          string
	AccountHolderName string
	UPIID             string
	WalletProvider    string
	TransactionID     string
	TransactionDate   *time.Time
	TransactionAmount decimal.Decimal
}

func (in *FinancialEntityInput) validate() error {
	if !models.IsValidEntityType(in.EntityType) {
		return NewValidationError("entity_type", "unknown entity type %q", in.EntityType)
	}
	in.AccountNumber = strings.TrimSpace(in.AccountNumber)
	in.UPIID = strings.ToLower(strings.TrimSpace(in.UPIID))
	in.IFSCCode = strings.ToUpper(strings.TrimSpace(in.IFSCCode))

	switch in.EntityType {
	case models.EntityTypeBankAccount:
		if in.AccountNumber == "" {
			return NewValidationError("account_number", "account number is required for a bank account")
		}
	case models.EntityTypeUPIID:
		if in.UPIID == "" {
			return NewValidationError("upi_id", "UPI ID is required")
		}
	}
	if in.AccountNumber != "" {
		if err := ValidateAccountNumber(in.AccountNumber); err != nil {
			return err
		}
	}
	if in.UPIID != "" && !upiPattern.MatchString(in.UPIID) {
		return NewValidationError("upi_id", "invalid UPI ID format")
	}
	if in.IFSCCode != "" && !ifscPattern.MatchString(in.IFSCCode) {
		return NewValidationError("ifsc_code", "invalid IFSC code")
	}
	if in.TransactionAmount.IsNegative() {
		return NewValidationError("transaction_amount", "amount cannot be negative")
	}
	return nil
}

// CreateFinancialEntity links a financial identifier to a case. SI and above.
func CreateFinancialEntity(db *gorm.DB, actor *Actor, input FinancialEntityInput) (*models.FinancialEntity, error) {
	if err := requireRank(actor, models.RoleSI); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	c, err := LoadCaseForActor(db, actor, input.CaseID)
	if err != nil {
		return nil, err
	}

	entity := &models.FinancialEntity{
		CaseID:             c.ID,
		EntityType:         input.EntityType,
		BankName:           ptrIfNotEmpty(SanitizeText(input.BankName)),
		AccountNumber:      ptrIfNotEmpty(input.AccountNumber),
		IFSCCode:           ptrIfNotEmpty(input.IFSCCode),
		AccountHolderName:  ptrIfNotEmpty(SanitizeText(input.AccountHolderName)),
		UPIID:              ptrIfNotEmpty(input.UPIID),
		WalletProvider:     ptrIfNotEmpty(SanitizeText(input.WalletProvider)),
		TransactionID:      ptrIfNotEmpty(SanitizeText(input.TransactionID)),
		TransactionDate:    input.TransactionDate,
		TransactionAmount:  input.TransactionAmount,
		AddedByID:          actor.User.ID,
		VerificationStatus: models.EntityStatusPending,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entity).Error; err != nil {
			return fmt.Errorf("failed to create financial entity: %w", err)
		}
		return RecordAuditEvent(tx, actor.Audit, AuditEvent{
			Action:       models.AuditActionCreateEntity,
			ResourceType: "financial_entity",
			ResourceID:   entity.ID,
			CaseID:       c.ID,
			Details:      fmt.Sprintf("Added %s to FIR %s, amount %s", entity.EntityType, c.FIRNumber, entity.TransactionAmount.StringFixed(2)),
		})
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// ListFinancialEntities returns the entities of a case in scope
func ListFinancialEntities(db *gorm.DB, actor *Actor, caseID string) ([]models.FinancialEntity, error) {
	if _, err := LoadCaseForActor(db, actor, caseID); err != nil {
		return nil, err
	}
	var entities []models.FinancialEntity
	if err := db.Where("case_id = ?", caseID).Order("created_at ASC").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("failed to list financial entities: %w", err)
	}
	return entities, nil
}

func loadEntityForActor(db *gorm.DB, actor *Actor, id string) (*models.FinancialEntity, *models.Case, error) {
	var entity models.FinancialEntity
	if err := db.First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to load financial entity: %w", err)
	}
	c, err := LoadCaseForActor(db, actor, entity.CaseID)
	if err != nil {
		return nil, nil, err
	}
	return &entity, c, nil
}

// VerifyFinancialEntity marks a pending entity verified or flagged. SHO and above.
func VerifyFinancialEntity(db *gorm.DB, actor *Actor, id, status string) (*models.FinancialEntity, error) {
	if err := requireRank(actor, models.RoleSHO); err != nil {
		return nil, err
	}
	if status == "" {
		status = models.EntityStatusVerified
	}
	if status != models.EntityStatusVerified && status != models.EntityStatusFlagged {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	entity, c, err := loadEntityForActor(db, actor, id)
	if err != nil {
		return nil, err
	}
	if entity.VerificationStatus != models.EntityStatusPending {
		return nil, fmt.Errorf("%w: entity is already %s", ErrInvalidTransition, entity.VerificationStatus)
	}

	old := entity.VerificationStatus
	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.FinancialEntity{}).
			Where("id = ? AND verification_status = ?", entity.ID, models.EntityStatusPending).
			Update("verification_status", status)
		if result.Error != nil {
			return fmt.Errorf("failed to verify financial entity: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: entity is no longer pending", ErrInvalidTransition)
		}
		return RecordAuditEvent(tx, actor.Audit, AuditEvent{
			Action:       models.AuditActionVerifyEntity,
			ResourceType: "financial_entity",
			ResourceID:   entity.ID,
			CaseID:       c.ID,
			Details:      fmt.Sprintf("Financial entity %s marked %s", entity.Identifier(), status),
			OldValues:    map[string]string{"verification_status": old},
			NewValues:    map[string]string{"verification_status": status},
		})
	})
	if err != nil {
		return nil, err
	}
	entity.VerificationStatus = status
	return entity, nil
}

// DeleteFinancialEntity removes an entity added in error. SI and above.
// Entities referenced by a bank, NPCI or freeze request are kept.
func DeleteFinancialEntity(db *gorm.DB, actor *Actor, id string) error {
	if err := requireRank(actor, models.RoleSI); err != nil {
		return err
	}
	entity, c, err := loadEntityForActor(db, actor, id)
	if err != nil {
		return err
	}

	for _, model := range []interface{}{&models.BankRequest{}, &models.NPCIRequest{}, &models.FreezeRequest{}} {
		var refs int64
		if err := db.Model(model).Where("financial_entity_id = ?", entity.ID).Count(&refs).Error; err != nil {
			return fmt.Errorf("failed to check references: %w", err)
		}
		if refs > 0 {
			return NewValidationError("financial_entity_id", "entity is referenced by existing requests and cannot be deleted")
		}
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.TransactionEvent{}).Where("financial_entity_id = ?", entity.ID).
			Update("financial_entity_id", nil).Error; err != nil {
			return fmt.Errorf("failed to unlink timeline events: %w", err)
		}
		if err := tx.Delete(entity).Error; err != nil {
			return fmt.Errorf("failed to delete financial entity: %w", err)
		}
		return RecordAuditEvent(tx, actor.Audit, AuditEvent{
			Action:       models.AuditActionDeleteEntity,
			ResourceType: "financial_entity",
			ResourceID:   entity.ID,
			CaseID:       c.ID,
			Details:      fmt.Sprintf("Removed %s %s from FIR %s", entity.EntityType, MaskAccount(entity.Identifier()), c.FIRNumber),
		})
	})
}

// TransactionEventInput is one step of the money trail
type TransactionEventInput struct {
	CaseID                string
	FinancialEntityID     string
	EventType             string
	EventTimestamp        time.Time
	Amount                decimal.Decimal
	Narrative             string
	SourceIdentifier      string
	DestinationIdentifier string
}

// AddTransactionEvent records a timeline event. SI and above.
func AddTransactionEvent(db *gorm.DB, actor *Actor, input TransactionEventInput) (*models.TransactionEvent, error) {
	if err := requireRank(actor, models.RoleSI); err != nil {
		return nil, err
	}
	if !models.IsValidEventType(input.EventType) {
		return nil, NewValidationError("event_type", "unknown event type %q", input.EventType)
	}
	if input.EventTimestamp.IsZero() {
		return nil, NewValidationError("event_timestamp", "event time is required")
	}
	if input.Amount.IsNegative() {
		return nil, NewValidationError("amount", "amount cannot be negative")
	}

	c, err := LoadCaseForActor(db, actor, input.CaseID)
	if err != nil {
		return nil, err
	}

	event := &models.TransactionEvent{
		CaseID:                c.ID,
		EventType:             input.EventType,
		EventTimestamp:        input.EventTimestamp,
		Amount:                input.Amount,
		Narrative:             SanitizeText(input.Narrative),
		SourceIdentifier:      ptrIfNotEmpty(strings.TrimSpace(input.SourceIdentifier)),
		DestinationIdentifier: ptrIfNotEmpty(strings.TrimSpace(input.DestinationIdentifier)),
		RecordedByID:          actor.User.ID,
	}

	if input.FinancialEntityID != "" {
		var count int64
		if err := db.Model(&models.FinancialEntity{}).
			Where("id = ? AND case_id = ?", input.FinancialEntityID, c.ID).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check financial entity: %w", err)
		}
		if count == 0 {
			return nil, ErrNoFinancialEntity
		}
		event.FinancialEntityID = &input.FinancialEntityID
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("failed to add timeline event: %w", err)
		}
		return RecordAuditEvent(tx, actor.Audit, AuditEvent{
			Action:       models.AuditActionAddTransaction,
			ResourceType: "transaction_event",
			ResourceID:   event.ID,
			CaseID:       c.ID,
			Details:      fmt.Sprintf("%s of %s on FIR %s", event.EventType, event.Amount.StringFixed(2), c.FIRNumber),
		})
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// TimelineEntry is one event with its offset from the first event
type TimelineEntry struct {
	models.TransactionEvent
	RelativeTime string          `json:"relative_time"`
	RunningTotal decimal.Decimal `json:"running_total"`
}

// Timeline is the chronological money trail of a case
type Timeline struct {
	CaseID      string          `json:"case_id"`
	FIRNumber   string          `json:"fir_number"`
	TotalEvents int             `json:"total_events"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Events      []TimelineEntry `json:"timeline"`
}

// BuildTimeline orders a case's events by time and annotates them
func BuildTimeline(db *gorm.DB, actor *Actor, caseID string) (*Timeline, error) {
	c, err := LoadCaseForActor(db, actor, caseID)
	if err != nil {
		return nil, err
	}

	var events []models.TransactionEvent
	if err := db.Where("case_id = ?", c.ID).Order("event_timestamp ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}

	timeline := &Timeline{CaseID: c.ID, FIRNumber: c.FIRNumber, TotalEvents: len(events), Events: make([]TimelineEntry, 0, len(events))}
	running := decimal.Zero
	for _, e := range events {
		running = running.Add(e.Amount)
		timeline.Events = append(timeline.Events, TimelineEntry{
			TransactionEvent: e,
			RelativeTime:     RelativeTime(events[0].EventTimestamp, e.EventTimestamp),
			RunningTotal:     running,
		})
	}
	timeline.TotalAmount = running
	return timeline, nil
}

// RelativeTime renders the offset of t from start as +N minutes/hours/days
func RelativeTime(start, t time.Time) string {
	delta := t.Sub(start)
	switch {
	case delta < time.Hour:
		return fmt.Sprintf("+%d minutes", int(delta.Minutes()))
	case delta < 24*time.Hour:
		return fmt.Sprintf("+%d hours", int(delta.Hours()))
	default:
		return fmt.Sprintf("+%d days", int(delta.Hours()/24))
	}
}
