package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Freeze request statuses
const (
	FreezeStatusGenerated = "generated"
	FreezeStatusSent      = "sent"
	FreezeStatusConfirmed = "confirmed"
	FreezeStatusExpired   = "expired"
)

// Urgency levels
const (
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// FreezeRequest is an urgent debit-freeze notice to a bank (Section 102 CrPC)
type FreezeRequest struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID            string `gorm:"type:uuid;not null;index" json:"case_id"`
	FinancialEntityID string `gorm:"type:uuid;not null" json:"financial_entity_id"`

	BankName      string `gorm:"not null" json:"bank_name"`
	AccountNumber string `gorm:"not null" json:"account_number"`
	UrgencyLevel  string `gorm:"not null;default:high" json:"urgency_level"`
	Justification string `gorm:"type:text" json:"justification"`
	CreatedByID   string `gorm:"type:uuid;not null" json:"created_by_id"`

	Status              string     `gorm:"not null;default:generated;index" json:"status"`
	FreezeInitiatedAt   *time.Time `json:"freeze_initiated_at,omitempty"`
	FreezeConfirmedAt   *time.Time `json:"freeze_confirmed_at,omitempty"`
	BankReferenceNumber *string    `json:"bank_reference_number,omitempty"`

	Case *Case `gorm:"foreignKey:CaseID" json:"-"`
}

// BeforeCreate hook to generate UUID
func (f *FreezeRequest) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for FreezeRequest model
func (FreezeRequest) TableName() string {
	return "freeze_requests"
}

// IsValidFreezeStatus checks if a freeze status update target is valid
func IsValidFreezeStatus(status string) bool {
	switch status {
	case FreezeStatusSent, FreezeStatusConfirmed, FreezeStatusExpired:
		return true
	}
	return false
}

// IsValidUrgency checks if an urgency level is valid
func IsValidUrgency(level string) bool {
	return level == UrgencyHigh || level == UrgencyCritical
}
