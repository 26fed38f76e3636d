package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cyber_case_app_go/models"

	"gorm.io/gorm"
)

// AuditContext contains contextual information for audit logging
type AuditContext struct {
	UserID    string
	UserName  string
	UserRole  string
	IPAddress string
	UserAgent string
}

// AuditContextFor builds an AuditContext for a user outside an HTTP request
func AuditContextFor(user *models.User) AuditContext {
	if user == nil {
		return AuditContext{UserName: "anonymous", UserRole: "none"}
	}
	return AuditContext{UserID: user.ID, UserName: user.Username, UserRole: string(user.Role)}
}

// Actor is the authenticated officer performing an operation
type Actor struct {
	User  *models.User
	Scope AccessScope
	Audit AuditContext
}

// NewActor resolves the scope and audit context of a user
func NewActor(user *models.User, policy ScopePolicy) *Actor {
	return &Actor{User: user, Scope: ResolveScope(user, policy), Audit: AuditContextFor(user)}
}

// AuditEvent describes one audit row
type AuditEvent struct {
	Action       models.AuditAction
	ResourceType string
	ResourceID   string
	CaseID       string
	Details      string
	OldValues    interface{}
	NewValues    interface{}
}

// RecordAuditEvent appends an audit row synchronously. Callers that must not
// succeed without their audit trail pass the transaction they mutate in.
func RecordAuditEvent(db *gorm.DB, ctx AuditContext, event AuditEvent) error {
	var oldJSON, newJSON string

	if event.OldValues != nil {
		if bytes, err := json.Marshal(event.OldValues); err == nil {
			oldJSON = string(bytes)
		}
	}
	if event.NewValues != nil {
		if bytes, err := json.Marshal(event.NewValues); err == nil {
			newJSON = string(bytes)
		}
	}

	userName := ctx.UserName
	if userName == "" {
		userName = "anonymous"
	}
	userRole := ctx.UserRole
	if userRole == "" {
		userRole = "none"
	}

	auditLog := models.AuditLog{
		UserID:       ptrIfNotEmpty(ctx.UserID),
		UserName:     userName,
		UserRole:     userRole,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		CaseID:       ptrIfNotEmpty(event.CaseID),
		Action:       event.Action,
		Details:      event.Details,
		OldValues:    oldJSON,
		NewValues:    newJSON,
		IPAddress:    ctx.IPAddress,
		UserAgent:    ctx.UserAgent,
	}

	if err := db.Create(&auditLog).Error; err != nil {
		log.Printf("[AUDIT] Failed to create audit log: %v", err)
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// LogSecurityEvent writes a security event to stdout and to the audit trail
// and feeds the security monitor. Failures to persist are logged only.
func LogSecurityEvent(db *gorm.DB, ctx AuditContext, action models.AuditAction, resourceType, resourceID, details string) {
	log.Printf("[SECURITY] %s | User: %s (%s) | %s %s | Details: %s", action, ctx.UserName, ctx.UserRole, resourceType, resourceID, details)
	Monitor.Track(action, ctx)

	_ = RecordAuditEvent(db, ctx, AuditEvent{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	})
}

// ptrIfNotEmpty returns a pointer to the string if not empty, nil otherwise
func ptrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetResourceAuditHistory retrieves the audit history for a specific resource
func GetResourceAuditHistory(db *gorm.DB, resourceType, resourceID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := db.Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

// AuditLogFilters contains filter options for audit log queries
type AuditLogFilters struct {
	UserID       string
	ResourceType string
	Action       string
	CaseID       string
	DateFrom     time.Time
	DateTo       time.Time
	SearchQuery  string
}

// ListAuditLogs retrieves paginated audit logs, newest first
func ListAuditLogs(db *gorm.DB, filters AuditLogFilters, page, pageSize int) ([]models.AuditLog, int64, error) {
	query := db.Model(&models.AuditLog{})

	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.CaseID != "" {
		query = query.Where("case_id = ?", filters.CaseID)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}
	if filters.SearchQuery != "" {
		searchPattern := "%" + filters.SearchQuery + "%"
		query = query.Where("details LIKE ? OR user_name LIKE ?", searchPattern, searchPattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AuditLog
	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&logs).Error

	return logs, total, err
}
