package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Financial entity types
const (
	EntityTypeBankAccount    = "bank_account"
	EntityTypeUPIID          = "upi_id"
	EntityTypeWallet         = "wallet"
	EntityTypeCryptoWallet   = "crypto_wallet"
	EntityTypePaymentGateway = "payment_gateway"
)

// Financial entity verification statuses
const (
	EntityStatusPending  = "pending"
	EntityStatusVerified = "verified"
	EntityStatusFlagged  = "flagged"
)

// FinancialEntity is a bank account, UPI ID or wallet linked to a case
type FinancialEntity struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID     string `gorm:"type:uuid;not null;index" json:"case_id"`
	EntityType string `gorm:"not null" json:"entity_type"`

	// Bank account
	BankName          *string `json:"bank_name,omitempty"`
	AccountNumber     *string `gorm:"index" json:"account_number,omitempty"`
	IFSCCode          *string `json:"ifsc_code,omitempty"`
	AccountHolderName *string `json:"account_holder_name,omitempty"`

	// UPI / wallet
	UPIID          *string `gorm:"index" json:"upi_id,omitempty"`
	WalletProvider *string `json:"wallet_provider,omitempty"`

	// Transaction
	TransactionID     *string         `gorm:"index" json:"transaction_id,omitempty"`
	TransactionDate   *time.Time      `json:"transaction_date,omitempty"`
	TransactionAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"transaction_amount"`

	AddedByID          string `gorm:"type:uuid;not null" json:"added_by_id"`
	VerificationStatus string `gorm:"not null;default:pending" json:"verification_status"`

	Case *Case `gorm:"foreignKey:CaseID" json:"-"`
}

// BeforeCreate hook to generate UUID
func (f *FinancialEntity) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for FinancialEntity model
func (FinancialEntity) TableName() string {
	return "financial_entities"
}

// Identifier returns the UPI ID if present, otherwise the account number
func (f *FinancialEntity) Identifier() string {
	if f.UPIID != nil && *f.UPIID != "" {
		return *f.UPIID
	}
	if f.AccountNumber != nil {
		return *f.AccountNumber
	}
	return ""
}

// IsValidEntityType checks if an entity type string is valid
func IsValidEntityType(t string) bool {
	switch t {
	case EntityTypeBankAccount, EntityTypeUPIID, EntityTypeWallet, EntityTypeCryptoWallet, EntityTypePaymentGateway:
		return true
	}
	return false
}
