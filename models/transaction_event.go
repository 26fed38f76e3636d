package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction timeline event types
const (
	EventCallReceived    = "call_received"
	EventMessageReceived = "message_received"
	EventPayment         = "payment"
	EventWithdrawal      = "withdrawal"
	EventTransfer        = "transfer"
	EventAccountOpened   = "account_opened"
	EventContactBlocked  = "contact_blocked"
	EventComplaintFiled  = "complaint_filed"
)

// TransactionEvent is one step in the money trail of a fraud case
type TransactionEvent struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	CaseID            string  `gorm:"type:uuid;not null;index" json:"case_id"`
	FinancialEntityID *string `gorm:"type:uuid;index" json:"financial_entity_id,omitempty"`

	EventType             string          `gorm:"not null" json:"event_type"`
	EventTimestamp        time.Time       `gorm:"not null;index" json:"event_timestamp"`
	Amount                decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"amount"`
	Narrative             string          `gorm:"type:text" json:"narrative"`
	SourceIdentifier      *string         `json:"source_identifier,omitempty"`
	DestinationIdentifier *string         `json:"destination_identifier,omitempty"`
	RecordedByID          string          `gorm:"type:uuid;not null" json:"recorded_by_id"`

	Case *Case `gorm:"foreignKey:CaseID" json:"-"`
}

// BeforeCreate hook to generate UUID
func (t *TransactionEvent) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for TransactionEvent model
func (TransactionEvent) TableName() string {
	return "transaction_timeline"
}

// IsValidEventType checks if an event type string is valid
func IsValidEventType(t string) bool {
	switch t {
	case EventCallReceived, EventMessageReceived, EventPayment, EventWithdrawal,
		EventTransfer, EventAccountOpened, EventContactBlocked, EventComplaintFiled:
		return true
	}
	return false
}
