package services

import (
	"errors"
	"fmt"
	"strings"

	"cyber_case_app_go/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Roles allowed to register a new FIR. Supervisory ranks review cases but
// do not open them.
var caseCreatorRoles = []models.Role{
	models.RoleConstable,
	models.RoleHeadConstable,
	models.RoleSI,
	models.RoleOfficer,
}

// LoadCaseForActor fetches a case and applies the actor's scope. A case
// outside the scope is reported as ErrOutOfScope and the denial is audited.
func LoadCaseForActor(db *gorm.DB, actor *Actor, caseID string) (*models.Case, error) {
	var c models.Case
	if err := db.First(&c, "id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	if err := actor.Scope.Check(&c); err != nil {
		RecordAuthorizationDecision("scope", false)
		LogSecurityEvent(db, actor.Audit, models.AuditActionAccessDenied, "case", c.ID,
			fmt.Sprintf("case outside %s scope (%s=%q)", actor.Scope.Level, actor.Scope.Column, actor.Scope.Value))
		return nil, err
	}
	RecordAuthorizationDecision("scope", true)
	return &c, nil
}

// requireRank checks a rank threshold and counts the decision
func requireRank(actor *Actor, min models.Role) error {
	err := RequireRank(actor.User, min)
	RecordAuthorizationDecision("rank", err == nil)
	return err
}

// CaseInput is the data needed to open a case
type CaseInput struct {
	FIRNumber      string
	CaseType       string
	CaseCategory   string
	AmountInvolved decimal.Decimal
	Description    string
	PoliceStation  string // only used when the creator has no station
}

// CreateCase opens a case. Its hierarchy columns are copied from the
// creator's posting and are never recomputed.
func CreateCase(db *gorm.DB, actor *Actor, input CaseInput) (*models.Case, error) {
	if err := RequireRole(actor.User, caseCreatorRoles...); err != nil {
		RecordAuthorizationDecision("role", false)
		return nil, fmt.Errorf("%w: only station officers can create cases", err)
	}

	fir := strings.ToUpper(strings.TrimSpace(input.FIRNumber))
	if err := ValidateFIRNumber(fir); err != nil {
		return nil, err
	}

	caseType := input.CaseType
	if caseType == "" {
		caseType = models.CaseTypeOther
	}
	if !models.IsValidCaseType(caseType) {
		return nil, NewValidationError("case_type", "unknown case type %q", caseType)
	}

	var category *string
	if input.CaseCategory != "" {
		if !models.IsValidCaseCategory(input.CaseCategory) {
			return nil, NewValidationError("case_category", "unknown case category %q", input.CaseCategory)
		}
		category = &input.CaseCategory
	}

	if input.AmountInvolved.IsNegative() {
		return nil, NewValidationError("amount_involved", "amount cannot be negative")
	}

	var count int64
	if err := db.Model(&models.Case{}).Where("fir_number = ?", fir).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check FIR number: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateFIR
	}

	creator := actor.User
	station := creator.StationName
	if station == "" {
		station = SanitizeText(input.PoliceStation)
	}

	c := &models.Case{
		FIRNumber:      fir,
		CaseType:       caseType,
		CaseCategory:   category,
		AmountInvolved: input.AmountInvolved,
		Description:    SanitizeText(input.Description),
		Status:         models.CaseStatusActive,
		OwnerID:        creator.ID,
		PoliceStation:  station,
		SubDivision:    creator.SubDivision,
		DistrictName:   creator.DistrictName,
		RangeName:      creator.RangeName,
		ZoneName:       creator.ZoneName,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("failed to create case: %w", err)
		}
		return RecordAuditEvent(tx, actor.Audit, AuditEvent{
			Action:       models.AuditActionCreateCase,
			ResourceType: "case",
			ResourceID:   c.ID,
			CaseID:       c.ID,
			Details:      fmt.Sprintf("Created case FIR %s at %s", c.FIRNumber, c.PoliceStation),
			NewValues:    map[string]interface{}{"fir_number": c.FIRNumber, "case_type": c.CaseType, "police_station": c.PoliceStation},
		})
	})
	if err != nil {
		return nil, err
	}

	RecordCaseCreated(c.CaseType)
	return c, nil
}

// CaseFilters narrows ListCases
type CaseFilters struct {
	Status   string
	Category string
	Search   string
}

// ListCases returns the page of cases visible to the actor, newest first
func ListCases(db *gorm.DB, actor *Actor, filters CaseFilters, page, pageSize int) ([]models.Case, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	query := actor.Scope.ApplyToCases(db.Model(&models.Case{}))
	if filters.Status != "" {
		query = query.Where("cases.status = ?", filters.Status)
	}
	if filters.Category != "" {
		query = query.Where("cases.case_category = ?", filters.Category)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where("cases.fir_number LIKE ? OR cases.description LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cases: %w", err)
	}

	var cases []models.Case
	err := query.Order("cases.created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&cases).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cases: %w", err)
	}
	return cases, total, nil
}

// UpdateCaseStatus moves a case to a new status. SI and above.
func UpdateCaseStatus(db *gorm.DB, actor *Actor, caseID, status string) (*models.Case, error) {
	if err := requireRank(actor, models.RoleSI); err != nil {
		return nil, err
	}
	if !models.IsValidCaseStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	c, err := LoadCaseForActor(db, actor, caseID)
	if err != nil {
		return nil, err
	}

	oldStatus := c.Status
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(c).Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to update case status: %w", err)
		}
		return RecordAuditEvent(tx, actor.Audit, AuditEvent{
			Action:       models.AuditActionUpdateCaseStatus,
			ResourceType: "case",
			ResourceID:   c.ID,
			CaseID:       c.ID,
			Details:      fmt.Sprintf("Case %s status %s -> %s", c.FIRNumber, oldStatus, status),
			OldValues:    map[string]string{"status": oldStatus},
			NewValues:    map[string]string{"status": status},
		})
	})
	if err != nil {
		return nil, err
	}
	c.Status = status
	return c, nil
}

// VisibleCaseIDs returns a subquery selecting the ids of cases in scope
func VisibleCaseIDs(db *gorm.DB, actor *Actor) *gorm.DB {
	return actor.Scope.ApplyToCases(db.Model(&models.Case{}).Select("cases.id"))
}

// normalizePage clamps pagination arguments
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
