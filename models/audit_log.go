package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAuditImmutable is returned by the ORM hooks on any update or delete
var ErrAuditImmutable = errors.New("audit log entries are append-only")

// AuditAction represents the type of operation performed
type AuditAction string

const (
	AuditActionLogin              AuditAction = "LOGIN"
	AuditActionLoginFailed        AuditAction = "LOGIN_FAILED"
	AuditActionPasswordChange     AuditAction = "PASSWORD_CHANGE"
	AuditActionRegisterUser       AuditAction = "REGISTER_USER"
	AuditActionCreateCase         AuditAction = "CREATE_CASE"
	AuditActionUpdateCaseStatus   AuditAction = "UPDATE_CASE_STATUS"
	AuditActionUploadEvidence     AuditAction = "UPLOAD_EVIDENCE"
	AuditActionDownloadEvidence   AuditAction = "DOWNLOAD_EVIDENCE"
	AuditActionViewEvidence       AuditAction = "VIEW_EVIDENCE"
	AuditActionVerifyEvidence     AuditAction = "VERIFY_EVIDENCE"
	AuditActionIntegrityFailure   AuditAction = "INTEGRITY_FAILURE"
	AuditActionCreateRequest      AuditAction = "CREATE_REQUEST"
	AuditActionApproveRequest     AuditAction = "APPROVE_REQUEST"
	AuditActionRejectRequest      AuditAction = "REJECT_REQUEST"
	AuditActionDispatchRequest    AuditAction = "DISPATCH_REQUEST"
	AuditActionUploadResponse     AuditAction = "UPLOAD_RESPONSE"
	AuditActionDownloadResponse   AuditAction = "DOWNLOAD_RESPONSE"
	AuditActionCreateEntity       AuditAction = "CREATE_FINANCIAL_ENTITY"
	AuditActionVerifyEntity       AuditAction = "VERIFY_FINANCIAL_ENTITY"
	AuditActionDeleteEntity       AuditAction = "DELETE_FINANCIAL_ENTITY"
	AuditActionAddTransaction     AuditAction = "ADD_TRANSACTION_EVENT"
	AuditActionCreateFreeze       AuditAction = "CREATE_FREEZE_REQUEST"
	AuditActionUpdateFreezeStatus AuditAction = "UPDATE_FREEZE_STATUS"
	AuditActionSearch             AuditAction = "SEARCH"
	AuditActionAccessDenied       AuditAction = "ACCESS_DENIED"
)

// AuditLog represents an immutable record of an action on the system
type AuditLog struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_audit_created_at" json:"timestamp"`

	// Actor identification
	UserID   *string `gorm:"type:uuid;index:idx_audit_user" json:"user_id,omitempty"`
	UserName string  `gorm:"not null" json:"user_name"` // Denormalized for historical accuracy
	UserRole string  `gorm:"not null" json:"user_role"` // Denormalized

	// Target resource
	ResourceType string  `gorm:"index:idx_audit_resource" json:"resource_type,omitempty"` // e.g. "Case", "Evidence"
	ResourceID   string  `gorm:"index:idx_audit_resource" json:"resource_id,omitempty"`
	CaseID       *string `gorm:"type:uuid;index" json:"case_id,omitempty"`

	// Operation details
	Action  AuditAction `gorm:"not null;index:idx_audit_action" json:"action"`
	Details string      `gorm:"type:text" json:"details,omitempty"`

	// Change tracking (for status transitions)
	OldValues string `gorm:"type:text" json:"old_values,omitempty"` // JSON encoded
	NewValues string `gorm:"type:text" json:"new_values,omitempty"` // JSON encoded

	// Request metadata (optional)
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// AuditChange represents a single field change
type AuditChange struct {
	Field string
	Old   interface{}
	New   interface{}
}

// Changes parses OldValues and NewValues into a slice of AuditChange
func (a *AuditLog) Changes() []AuditChange {
	var changes []AuditChange
	oldMap := make(map[string]interface{})
	newMap := make(map[string]interface{})

	if a.OldValues != "" {
		_ = json.Unmarshal([]byte(a.OldValues), &oldMap)
	}
	if a.NewValues != "" {
		_ = json.Unmarshal([]byte(a.NewValues), &newMap)
	}

	keys := make(map[string]struct{})
	for k := range oldMap {
		keys[k] = struct{}{}
	}
	for k := range newMap {
		keys[k] = struct{}{}
	}

	for k := range keys {
		if o, n := oldMap[k], newMap[k]; !reflect.DeepEqual(o, n) {
			changes = append(changes, AuditChange{Field: k, Old: o, New: n})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

// BeforeCreate generates UUID
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate prevents modification of audit logs
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}

// BeforeDelete prevents deletion of audit logs
func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditImmutable
}

// TableName specifies the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}
