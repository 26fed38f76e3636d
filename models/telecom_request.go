package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Telecom request types
const (
	TelecomRequestCDR  = "CDR"
	TelecomRequestCAF  = "CAF"
	TelecomRequestIPDR = "IPDR"
	TelecomRequestSDR  = "SDR"
)

// TelecomRequest asks a telecom provider for subscriber or call records of a
// mobile number. Visibility follows the parent case.
type TelecomRequest struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID       string `gorm:"type:uuid;not null;index" json:"case_id"`
	MobileNumber string `gorm:"not null;index" json:"mobile_number"`
	Provider     string `json:"provider"`
	RequestType  string `gorm:"not null" json:"request_type"`
	Status       string `gorm:"not null;default:pending;index" json:"status"`
	Reason       string `gorm:"type:text" json:"reason"`
	CreatedByID  string `gorm:"type:uuid;not null" json:"created_by_id"`

	// Approval workflow
	ReviewerID      *string    `gorm:"type:uuid" json:"reviewer_id,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason,omitempty"`
	DispatchedAt    *time.Time `json:"dispatched_at,omitempty"`

	// Provider response, stored encrypted
	ResponseKey      *string    `json:"-"`
	ResponseHash     *string    `json:"response_hash,omitempty"`
	ResponseFilename *string    `json:"response_filename,omitempty"`
	RespondedAt      *time.Time `json:"responded_at,omitempty"`

	Case *Case `gorm:"foreignKey:CaseID" json:"case,omitempty"`
}

// BeforeCreate hook to generate UUID
func (r *TelecomRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for TelecomRequest model
func (TelecomRequest) TableName() string {
	return "telecom_requests"
}

// IsValidTelecomRequestType checks if a request type string is valid
func IsValidTelecomRequestType(t string) bool {
	switch t {
	case TelecomRequestCDR, TelecomRequestCAF, TelecomRequestIPDR, TelecomRequestSDR:
		return true
	}
	return false
}
