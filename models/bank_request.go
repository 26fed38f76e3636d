package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bank request types
const (
	BankRequestKYC       = "KYC"
	BankRequestStatement = "STATEMENT"
	BankRequestBoth      = "BOTH"
)

// BankRequest asks a bank for KYC details or statements of an account
type BankRequest struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID            string `gorm:"type:uuid;not null;index" json:"case_id"`
	FinancialEntityID string `gorm:"type:uuid;not null" json:"financial_entity_id"`

	BankName      string     `gorm:"not null" json:"bank_name"`
	AccountNumber string     `gorm:"not null" json:"account_number"`
	RequestType   string     `gorm:"not null" json:"request_type"`
	Reason        string     `gorm:"type:text" json:"reason"`
	PeriodFrom    *time.Time `json:"period_from,omitempty"`
	PeriodTo      *time.Time `json:"period_to,omitempty"`
	Status        string     `gorm:"not null;default:pending;index" json:"status"`
	CreatedByID   string     `gorm:"type:uuid;not null" json:"created_by_id"`

	ReviewerID      *string    `gorm:"type:uuid" json:"reviewer_id,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason,omitempty"`

	Case *Case `gorm:"foreignKey:CaseID" json:"-"`
}

// BeforeCreate hook to generate UUID
func (b *BankRequest) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for BankRequest model
func (BankRequest) TableName() string {
	return "bank_requests"
}

// IsValidBankRequestType checks if a bank request type is valid
func IsValidBankRequestType(t string) bool {
	return t == BankRequestKYC || t == BankRequestStatement || t == BankRequestBoth
}
