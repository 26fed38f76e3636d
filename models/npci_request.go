package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NPCI request types
const (
	NPCIRequestTransactionDetails = "TRANSACTION_DETAILS"
	NPCIRequestFullHistory        = "FULL_HISTORY"
)

// NPCIRequest asks NPCI for UPI transaction details
type NPCIRequest struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID            string `gorm:"type:uuid;not null;index" json:"case_id"`
	FinancialEntityID string `gorm:"type:uuid;not null" json:"financial_entity_id"`

	UPIID                string  `gorm:"not null" json:"upi_id"`
	TransactionReference *string `json:"transaction_reference,omitempty"`
	RequestType          string  `gorm:"not null" json:"request_type"`
	Reason               string  `gorm:"type:text" json:"reason"`
	Status               string  `gorm:"not null;default:pending;index" json:"status"`
	CreatedByID          string  `gorm:"type:uuid;not null" json:"created_by_id"`

	ReviewerID      *string    `gorm:"type:uuid" json:"reviewer_id,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason,omitempty"`

	Case *Case `gorm:"foreignKey:CaseID" json:"-"`
}

// BeforeCreate hook to generate UUID
func (n *NPCIRequest) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for NPCIRequest model
func (NPCIRequest) TableName() string {
	return "npci_requests"
}

// IsValidNPCIRequestType checks if an NPCI request type is valid
func IsValidNPCIRequestType(t string) bool {
	return t == NPCIRequestTransactionDetails || t == NPCIRequestFullHistory
}
