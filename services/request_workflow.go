package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cyber_case_app_go/models"

	"gorm.io/gorm"
)

// RequestKind identifies one of the outbound request tables that share the
// pending/approved/rejected workflow
type RequestKind struct {
	Table    string
	Resource string
	Label    string
}

var (
	TelecomRequests = RequestKind{Table: "telecom_requests", Resource: "telecom_request", Label: "Telecom request"}
	BankRequests    = RequestKind{Table: "bank_requests", Resource: "bank_request", Label: "Bank request"}
	NPCIRequests    = RequestKind{Table: "npci_requests", Resource: "npci_request", Label: "NPCI request"}
)

type requestState struct {
	ID     string
	CaseID string
	Status string
}

// loadRequestState reads the workflow columns of a request and checks the
// scope of its parent case
func loadRequestState(db *gorm.DB, actor *Actor, kind RequestKind, id string) (*requestState, *models.Case, error) {
	var state requestState
	err := db.Table(kind.Table).Select("id", "case_id", "status").Where("id = ?", id).Take(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to load %s: %w", kind.Resource, err)
	}

	c, err := LoadCaseForActor(db, actor, state.CaseID)
	if err != nil {
		return nil, nil, err
	}
	return &state, c, nil
}

// getScopedRequest loads one request whose parent case the actor can see.
// Out-of-scope requests fail exactly like missing ones.
func getScopedRequest[T any](db *gorm.DB, actor *Actor, kind RequestKind, id string) (*T, error) {
	state, _, err := loadRequestState(db, actor, kind, id)
	if err != nil {
		return nil, err
	}
	var r T
	if err := db.First(&r, "id = ?", state.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load %s: %w", kind.Resource, err)
	}
	return &r, nil
}

// transition moves a request from its current status to `to`. The update is
// guarded on the old status so concurrent reviewers cannot both win.
func transition(tx *gorm.DB, actor *Actor, kind RequestKind, state *requestState, to string, columns map[string]interface{}, action models.AuditAction, details string) error {
	if !models.IsValidRequestTransition(state.Status, to) {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, strings.ToLower(kind.Label), state.Status)
	}

	updates := map[string]interface{}{"status": to, "updated_at": time.Now()}
	for k, v := range columns {
		updates[k] = v
	}

	result := tx.Table(kind.Table).Where("id = ? AND status = ?", state.ID, state.Status).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update %s: %w", kind.Resource, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, strings.ToLower(kind.Label))
	}

	return RecordAuditEvent(tx, actor.Audit, AuditEvent{
		Action:       action,
		ResourceType: kind.Resource,
		ResourceID:   state.ID,
		CaseID:       state.CaseID,
		Details:      details,
		OldValues:    map[string]string{"status": state.Status},
		NewValues:    map[string]string{"status": to},
	})
}

// ReviewRequest approves or rejects a pending request. SHO and above. A
// rejection must carry a reason.
func ReviewRequest(db *gorm.DB, actor *Actor, kind RequestKind, id string, approve bool, reason string) error {
	if err := requireRank(actor, models.RoleSHO); err != nil {
		return fmt.Errorf("%w: only Inspector (SHO) and above can review requests", err)
	}

	reason = SanitizeText(reason)
	if !approve && reason == "" {
		return NewValidationError("reason", "a rejection reason is required")
	}

	state, c, err := loadRequestState(db, actor, kind, id)
	if err != nil {
		return err
	}

	to, action := models.RequestStatusApproved, models.AuditActionApproveRequest
	columns := map[string]interface{}{"reviewer_id": actor.User.ID, "reviewed_at": time.Now()}
	details := fmt.Sprintf("%s approved for FIR %s", kind.Label, c.FIRNumber)
	if !approve {
		to, action = models.RequestStatusRejected, models.AuditActionRejectRequest
		columns["rejection_reason"] = reason
		details = fmt.Sprintf("%s rejected for FIR %s: %s", kind.Label, c.FIRNumber, reason)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		return transition(tx, actor, kind, state, to, columns, action, details)
	})
}

// RequestFilters narrows request listings
type RequestFilters struct {
	CaseID string
	Status string
}

// listScopedRequests pages through a request table restricted to the
// actor's visible cases
func listScopedRequests(db *gorm.DB, actor *Actor, kind RequestKind, filters RequestFilters, page, pageSize int, dest interface{}) (int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	query := actor.Scope.ApplyViaCase(db.Table(kind.Table), kind.Table)
	if filters.CaseID != "" {
		query = query.Where(kind.Table+".case_id = ?", filters.CaseID)
	}
	if filters.Status != "" {
		query = query.Where(kind.Table+".status = ?", filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", kind.Table, err)
	}
	err := query.Order(kind.Table + ".created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(dest).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", kind.Table, err)
	}
	return total, nil
}
