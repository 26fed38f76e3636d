package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Evidence verification statuses
const (
	EvidencePending  = "pending"
	EvidenceVerified = "verified"
	EvidenceRejected = "rejected"
)

// Evidence is an encrypted file attached to a case. Only the verification
// columns change after creation.
type Evidence struct {
	ID         string    `gorm:"type:uuid;primarykey" json:"id"`
	UploadedAt time.Time `gorm:"autoCreateTime;index" json:"uploaded_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	CaseID           string `gorm:"type:uuid;not null;index" json:"case_id"`
	FileType         string `gorm:"not null" json:"file_type"` // e.g. CDR_CSV, CAF_PDF
	StorageKey       string `gorm:"not null" json:"-"`         // {sha256}_{sanitized name}
	FileHash         string `gorm:"size:64;not null;index" json:"file_hash"`
	OriginalFilename string `gorm:"not null" json:"original_filename"`
	FileSize         int64  `json:"file_size"`

	UploadedByID       string     `gorm:"type:uuid;not null;index" json:"uploaded_by_id"`
	UploadedByRank     Role       `gorm:"type:varchar(32)" json:"uploaded_by_rank"`
	VerificationStatus string     `gorm:"not null;default:pending;index" json:"verification_status"`
	VerifiedByID       *string    `gorm:"type:uuid" json:"verified_by_id,omitempty"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`

	Case     *Case `gorm:"foreignKey:CaseID" json:"-"`
	Uploader *User `gorm:"foreignKey:UploadedByID" json:"-"`
}

// BeforeCreate hook to generate UUID
func (e *Evidence) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Evidence model
func (Evidence) TableName() string {
	return "evidence"
}

// IsValidVerificationTransition reports whether pending evidence may move to status
func IsValidVerificationTransition(from, to string) bool {
	return from == EvidencePending && (to == EvidenceVerified || to == EvidenceRejected)
}
