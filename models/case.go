package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Case status constants
const (
	CaseStatusActive             = "active"
	CaseStatusUnderInvestigation = "under_investigation"
	CaseStatusChargesheeted      = "chargesheeted"
	CaseStatusClosed             = "closed"
)

// Case categories
const (
	CaseCategoryFinancial    = "financial"
	CaseCategoryNonFinancial = "non_financial"
)

// Case types
const (
	CaseTypeUPIFraud          = "upi_fraud"
	CaseTypeBankTransferFraud = "bank_transfer_fraud"
	CaseTypeWalletFraud       = "wallet_fraud"
	CaseTypeLoanAppScam       = "loan_app_scam"
	CaseTypeInvestmentFraud   = "investment_fraud"
	CaseTypeCryptoFraud       = "crypto_fraud"
	CaseTypeHarassment        = "harassment"
	CaseTypeSextortion        = "sextortion"
	CaseTypeFakeProfile       = "fake_profile"
	CaseTypeEmailHack         = "email_hack"
	CaseTypeImpersonation     = "impersonation"
	CaseTypePhishing          = "phishing"
	CaseTypeFraud             = "fraud"
	CaseTypeFinancialFraud    = "financial_fraud" // legacy rows
	CaseTypeOther             = "other"
)

// Case is an FIR under investigation. The unit columns are copied from the
// creating officer and never recomputed.
type Case struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	FIRNumber      string          `gorm:"uniqueIndex;not null" json:"fir_number"`
	CaseType       string          `gorm:"not null;default:other" json:"case_type"`
	CaseCategory   *string         `json:"case_category,omitempty"`
	AmountInvolved decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"amount_involved"`
	Description    string          `gorm:"type:text" json:"description"`
	Status         string          `gorm:"not null;default:active;index" json:"status"`
	OwnerID        string          `gorm:"type:uuid;not null;index" json:"owner_id"`

	// Hierarchy
	PoliceStation string `gorm:"index" json:"police_station"`
	SubDivision   string `gorm:"index" json:"sub_division"`
	DistrictName  string `gorm:"index" json:"district_name"`
	RangeName     string `gorm:"index" json:"range_name"`
	ZoneName      string `gorm:"index" json:"zone_name"`

	Owner *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Case model
func (Case) TableName() string {
	return "cases"
}

// IsValidCaseStatus checks if a status string is valid
func IsValidCaseStatus(status string) bool {
	switch status {
	case CaseStatusActive, CaseStatusUnderInvestigation, CaseStatusChargesheeted, CaseStatusClosed:
		return true
	}
	return false
}

// IsValidCaseType checks if a case type string is valid
func IsValidCaseType(caseType string) bool {
	switch caseType {
	case CaseTypeUPIFraud, CaseTypeBankTransferFraud, CaseTypeWalletFraud, CaseTypeLoanAppScam,
		CaseTypeInvestmentFraud, CaseTypeCryptoFraud, CaseTypeHarassment, CaseTypeSextortion,
		CaseTypeFakeProfile, CaseTypeEmailHack, CaseTypeImpersonation, CaseTypePhishing,
		CaseTypeFraud, CaseTypeFinancialFraud, CaseTypeOther:
		return true
	}
	return false
}

// IsValidCaseCategory checks if a category string is valid
func IsValidCaseCategory(category string) bool {
	return category == CaseCategoryFinancial || category == CaseCategoryNonFinancial
}
