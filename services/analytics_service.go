package services

import (
	"fmt"
	"sort"
	"strings"

	"cyber_case_app_go/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Mule classifications
const (
	MuleSuspected = "SUSPECTED_MULE_ACCOUNT"
	MuleFlagged   = "FLAGGED_FOR_REVIEW"
	MuleNormal    = "NORMAL"
)

var (
	highVolumeInflow   = decimal.NewFromInt(100000)
	rapidOutflowCutoff = decimal.NewFromInt(80)
	hundred            = decimal.NewFromInt(100)
)

// MuleFinancials are the money flows through an identifier
type MuleFinancials struct {
	TotalInflow  decimal.Decimal `json:"total_inflow"`
	TotalOutflow decimal.Decimal `json:"total_outflow"`
	OutflowRatio decimal.Decimal `json:"outflow_ratio"`
}

// MuleReport is the rule-based assessment of an account or UPI ID
type MuleReport struct {
	Identifier       string          `json:"identifier"`
	Status           string          `json:"status,omitempty"`
	Classification   string          `json:"classification,omitempty"`
	RiskScore        int             `json:"risk_score"`
	Indicators       []string        `json:"indicators"`
	LinkedCasesCount int             `json:"linked_cases_count"`
	FinancialData    *MuleFinancials `json:"financial_data,omitempty"`
	LinkedFIRNumbers []string        `json:"linked_fir_numbers"`
	Note             string          `json:"note,omitempty"`
}

// scopedEntities returns a query over financial entities on visible cases
func scopedEntities(db *gorm.DB, actor *Actor) *gorm.DB {
	return actor.Scope.ApplyViaCase(db.Model(&models.FinancialEntity{}), "financial_entities")
}

// MuleIndicators scores an account number or UPI ID seen in the actor's cases.
// An identifier with no visible entity yields Status "not_found".
func MuleIndicators(db *gorm.DB, actor *Actor, identifier string) (*MuleReport, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, NewValidationError("identifier", "account number or UPI ID is required")
	}
	report := &MuleReport{Identifier: identifier, Indicators: []string{}, LinkedFIRNumbers: []string{}}

	var entities []models.FinancialEntity
	err := scopedEntities(db, actor).
		Where("financial_entities.account_number = ? OR financial_entities.upi_id = ?", identifier, strings.ToLower(identifier)).
		Find(&entities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load financial entities: %w", err)
	}
	if len(entities) == 0 {
		report.Status = "not_found"
		return report, nil
	}

	entityIDs := make([]string, 0, len(entities))
	caseIDs := make([]string, 0, len(entities))
	seen := map[string]bool{}
	for _, e := range entities {
		entityIDs = append(entityIDs, e.ID)
		if !seen[e.CaseID] {
			seen[e.CaseID] = true
			caseIDs = append(caseIDs, e.CaseID)
		}
	}

	var events []models.TransactionEvent
	if err := db.Where("financial_entity_id IN ?", entityIDs).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	inflow, outflow := decimal.Zero, decimal.Zero
	for _, e := range events {
		switch e.EventType {
		case models.EventPayment:
			inflow = inflow.Add(e.Amount)
		case models.EventWithdrawal, models.EventTransfer:
			outflow = outflow.Add(e.Amount)
		}
	}
	ratio := decimal.Zero
	if inflow.IsPositive() {
		ratio = outflow.Div(inflow).Mul(hundred)
	}

	if len(caseIDs) >= 3 {
		report.Indicators = append(report.Indicators, "MULTIPLE_VICTIMS")
		report.RiskScore += 40
	}
	if ratio.GreaterThan(rapidOutflowCutoff) {
		report.Indicators = append(report.Indicators, "RAPID_WITHDRAWAL")
		report.RiskScore += 30
	}
	if inflow.GreaterThan(highVolumeInflow) {
		report.Indicators = append(report.Indicators, "HIGH_VOLUME")
		report.RiskScore += 20
	}

	switch {
	case report.RiskScore >= 50:
		report.Classification = MuleSuspected
	case report.RiskScore >= 30:
		report.Classification = MuleFlagged
	default:
		report.Classification = MuleNormal
	}

	report.LinkedCasesCount = len(caseIDs)
	report.FinancialData = &MuleFinancials{TotalInflow: inflow, TotalOutflow: outflow, OutflowRatio: ratio.Round(2)}
	if err := db.Model(&models.Case{}).Where("id IN ?", caseIDs).Order("fir_number").
		Pluck("fir_number", &report.LinkedFIRNumbers).Error; err != nil {
		return nil, fmt.Errorf("failed to load linked FIRs: %w", err)
	}
	report.Note = "Rule-based indicators only."
	return report, nil
}

// RepeatEntity is an account or UPI ID found in more than one case
type RepeatEntity struct {
	Type             string   `json:"type"`
	Identifier       string   `json:"identifier"`
	LinkedCasesCount int      `json:"linked_cases_count"`
	FIRNumbers       []string `json:"fir_numbers"`
	AlertLevel       string   `json:"alert_level"`
}

type entityCaseRow struct {
	AccountNumber *string
	BankName      *string
	UPIID         *string `gorm:"column:upi_id"`
	FIRNumber     string
}

// RepeatEntities lists identifiers appearing in two or more visible cases,
// most widespread first. Account numbers are masked.
func RepeatEntities(db *gorm.DB, actor *Actor) ([]RepeatEntity, error) {
	var rows []entityCaseRow
	err := scopedEntities(db, actor).
		Select("financial_entities.account_number, financial_entities.bank_name, financial_entities.upi_id, cases.fir_number").
		Joins("JOIN cases ON cases.id = financial_entities.case_id AND cases.deleted_at IS NULL").
		Order("cases.fir_number").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load financial entities: %w", err)
	}

	type group struct {
		entity RepeatEntity
		firs   map[string]bool
	}
	groups := map[string]*group{}
	var order []string
	add := func(key, kind, label, fir string) {
		g, ok := groups[key]
		if !ok {
			g = &group{entity: RepeatEntity{Type: kind, Identifier: label}, firs: map[string]bool{}}
			groups[key] = g
			order = append(order, key)
		}
		if !g.firs[fir] {
			g.firs[fir] = true
			g.entity.FIRNumbers = append(g.entity.FIRNumbers, fir)
		}
	}
	for _, r := range rows {
		if r.AccountNumber != nil && *r.AccountNumber != "" {
			bank := derefOr(r.BankName, "unknown bank")
			add("acct:"+*r.AccountNumber+"|"+bank, "BANK_ACCOUNT",
				fmt.Sprintf("%s (%s)", MaskAccount(*r.AccountNumber), bank), r.FIRNumber)
		}
		if r.UPIID != nil && *r.UPIID != "" {
			add("upi:"+*r.UPIID, "UPI_ID", *r.UPIID, r.FIRNumber)
		}
	}

	repeats := []RepeatEntity{}
	for _, key := range order {
		g := groups[key]
		count := len(g.entity.FIRNumbers)
		if count < 2 {
			continue
		}
		g.entity.LinkedCasesCount = count
		g.entity.AlertLevel = "MEDIUM"
		if count >= 4 {
			g.entity.AlertLevel = "HIGH"
		}
		repeats = append(repeats, g.entity)
	}
	sort.SliceStable(repeats, func(i, j int) bool {
		return repeats[i].LinkedCasesCount > repeats[j].LinkedCasesCount
	})
	return repeats, nil
}

// FreezeSummary counts freeze notices by outcome
type FreezeSummary struct {
	Total     int64 `json:"total"`
	Confirmed int64 `json:"confirmed"`
	Pending   int64 `json:"pending"`
}

// Dashboard is the summary shown on an officer's landing page
type Dashboard struct {
	TotalCases         int64            `json:"total_cases"`
	CasesByStatus      map[string]int64 `json:"cases_by_status"`
	FinancialCases     int64            `json:"total_financial_cases"`
	AmountAtRisk       decimal.Decimal  `json:"amount_at_risk"`
	PendingRequests    map[string]int64 `json:"pending_requests"`
	BankRequestsSent   int64            `json:"bank_requests_sent"`
	FreezeRequests     FreezeSummary    `json:"freeze_requests"`
	FraudTypeBreakdown map[string]int64 `json:"top_fraud_types"`
}

type statusCount struct {
	Status string
	Count  int64
}

// BuildDashboard aggregates the visible cases. The amount at risk sums
// amount_involved per financial case so entities are not double counted.
func BuildDashboard(db *gorm.DB, actor *Actor) (*Dashboard, error) {
	dash := &Dashboard{
		CasesByStatus:      map[string]int64{},
		PendingRequests:    map[string]int64{},
		FraudTypeBreakdown: map[string]int64{},
	}
	cases := func() *gorm.DB { return actor.Scope.ApplyToCases(db.Model(&models.Case{})) }

	var byStatus []statusCount
	if err := cases().Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to count cases: %w", err)
	}
	for _, g := range byStatus {
		dash.CasesByStatus[g.Status] = g.Count
		dash.TotalCases += g.Count
	}

	var financial []models.Case
	if err := cases().Where("case_category = ?", models.CaseCategoryFinancial).
		Select("id", "case_type", "amount_involved").Find(&financial).Error; err != nil {
		return nil, fmt.Errorf("failed to load financial cases: %w", err)
	}
	dash.FinancialCases = int64(len(financial))
	dash.AmountAtRisk = decimal.Zero
	for _, c := range financial {
		dash.AmountAtRisk = dash.AmountAtRisk.Add(c.AmountInvolved)
		dash.FraudTypeBreakdown[c.CaseType]++
	}

	for _, kind := range []RequestKind{TelecomRequests, BankRequests, NPCIRequests} {
		var count int64
		err := actor.Scope.ApplyViaCase(db.Table(kind.Table), kind.Table).
			Where(kind.Table+".status = ?", models.RequestStatusPending).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", kind.Table, err)
		}
		dash.PendingRequests[kind.Resource] = count
	}

	if err := actor.Scope.ApplyViaCase(db.Table(BankRequests.Table), BankRequests.Table).
		Count(&dash.BankRequestsSent).Error; err != nil {
		return nil, fmt.Errorf("failed to count bank requests: %w", err)
	}

	freezes := func() *gorm.DB {
		return actor.Scope.ApplyViaCase(db.Table(FreezeRequests.Table), FreezeRequests.Table)
	}
	if err := freezes().Count(&dash.FreezeRequests.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count freeze requests: %w", err)
	}
	if err := freezes().Where(FreezeRequests.Table+".status = ?", models.FreezeStatusConfirmed).
		Count(&dash.FreezeRequests.Confirmed).Error; err != nil {
		return nil, fmt.Errorf("failed to count freeze requests: %w", err)
	}
	dash.FreezeRequests.Pending = dash.FreezeRequests.Total - dash.FreezeRequests.Confirmed

	return dash, nil
}
