package services

import (
	"testing"
	"time"

	"cyber_case_app_go/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuleIndicators(t *testing.T) {
	db := setupServiceDB(t)
	dgp := createOfficer(t, db, "dgp", models.RoleDGP, posting{})
	sp := createOfficer(t, db, "sp_lucknow", models.RoleSP, kotwali)
	sho := createOfficer(t, db, "sho_kotwali", models.RoleSHO, kotwali)

	cases := []*models.Case{
		createCase(t, db, "FIR-1/2024", dgp, kotwali),
		createCase(t, db, "FIR-2/2024", dgp, kotwali),
		createCase(t, db, "FIR-3/2024", dgp, hazratganj),
		createCase(t, db, "FIR-4/2024", dgp, civilLines),
	}
	var first *models.FinancialEntity
	for _, c := range cases {
		e := addEntity(t, db, actorFor(dgp), c.ID, FinancialEntityInput{
			EntityType: models.EntityTypeBankAccount, BankName: "HDFC Bank", AccountNumber: "123456789012",
		})
		if first == nil {
			first = e
		}
	}

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for eventType, amount := range map[string]int64{
		models.EventPayment:    150000,
		models.EventWithdrawal: 100000,
		models.EventTransfer:   30000,
	} {
		_, err := AddTransactionEvent(db, actorFor(dgp), TransactionEventInput{
			CaseID: cases[0].ID, FinancialEntityID: first.ID, EventType: eventType,
			EventTimestamp: at, Amount: decimal.NewFromInt(amount),
		})
		require.NoError(t, err)
	}

	report, err := MuleIndicators(db, actorFor(sp), "123456789012")
	require.NoError(t, err)
	assert.Equal(t, 3, report.LinkedCasesCount)
	assert.Equal(t, []string{"FIR-1/2024", "FIR-2/2024", "FIR-3/2024"}, report.LinkedFIRNumbers)
	assert.Equal(t, []string{"MULTIPLE_VICTIMS", "RAPID_WITHDRAWAL", "HIGH_VOLUME"}, report.Indicators)
	assert.Equal(t, 90, report.RiskScore)
	assert.Equal(t, MuleSuspected, report.Classification)
	assert.True(t, report.FinancialData.OutflowRatio.Equal(decimal.RequireFromString("86.67")))

	report, err = MuleIndicators(db, actorFor(sho), "123456789012")
	require.NoError(t, err)
	assert.Equal(t, 2, report.LinkedCasesCount)
	assert.Equal(t, 50, report.RiskScore)
	assert.Equal(t, MuleSuspected, report.Classification)

	report, err = MuleIndicators(db, actorFor(sho), "999999999999")
	require.NoError(t, err)
	assert.Equal(t, "not_found", report.Status)

	_, err = MuleIndicators(db, actorFor(sho), "  ")
	assert.True(t, IsValidationError(err))
}

func TestMuleClassificationThresholds(t *testing.T) {
	db := setupServiceDB(t)
	dgp := createOfficer(t, db, "dgp", models.RoleDGP, posting{})
	c := createCase(t, db, "FIR-9/2024", dgp, kotwali)
	e := addEntity(t, db, actorFor(dgp), c.ID, FinancialEntityInput{EntityType: models.EntityTypeUPIID, UPIID: "mule@ybl"})

	for _, ev := range []struct {
		kind   string
		amount int64
	}{{models.EventPayment, 10000}, {models.EventWithdrawal, 9000}} {
		_, err := AddTransactionEvent(db, actorFor(dgp), TransactionEventInput{
			CaseID: c.ID, FinancialEntityID: e.ID, EventType: ev.kind,
			EventTimestamp: time.Now(), Amount: decimal.NewFromInt(ev.amount),
		})
		require.NoError(t, err)
	}

	report, err := MuleIndicators(db, actorFor(dgp), "MULE@ybl")
	require.NoError(t, err)
	assert.Equal(t, []string{"RAPID_WITHDRAWAL"}, report.Indicators)
	assert.Equal(t, 30, report.RiskScore)
	assert.Equal(t, MuleFlagged, report.Classification)
}

func TestMuleRapidWithdrawalBoundary(t *testing.T) {
	tests := []struct {
		name       string
		withdrawal int64
		indicators []string
		ratio      string
	}{
		{"exactly 80 percent", 80000, []string{}, "80"},
		{"just over 80 percent", 80004, []string{"RAPID_WITHDRAWAL"}, "80"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupServiceDB(t)
			dgp := createOfficer(t, db, "dgp", models.RoleDGP, posting{})
			c := createCase(t, db, "FIR-12/2024", dgp, kotwali)
			e := addEntity(t, db, actorFor(dgp), c.ID, FinancialEntityInput{
				EntityType: models.EntityTypeBankAccount, BankName: "SBI", AccountNumber: "555566667777",
			})

			for kind, amount := range map[string]int64{models.EventPayment: 100000, models.EventWithdrawal: tt.withdrawal} {
				_, err := AddTransactionEvent(db, actorFor(dgp), TransactionEventInput{
					CaseID: c.ID, FinancialEntityID: e.ID, EventType: kind,
					EventTimestamp: time.Now(), Amount: decimal.NewFromInt(amount),
				})
				require.NoError(t, err)
			}

			report, err := MuleIndicators(db, actorFor(dgp), "555566667777")
			require.NoError(t, err)
			assert.Equal(t, tt.indicators, report.Indicators)
			assert.True(t, report.FinancialData.OutflowRatio.Equal(decimal.RequireFromString(tt.ratio)),
				"reported ratio %s", report.FinancialData.OutflowRatio)
		})
	}
}

func TestRepeatEntities(t *testing.T) {
	db := setupServiceDB(t)
	dgp := createOfficer(t, db, "dgp", models.RoleDGP, posting{})
	sho := createOfficer(t, db, "sho", models.RoleSHO, kotwali)

	var cases []*models.Case
	for i, p := range []posting{kotwali, kotwali, kotwali, kotwali, civilLines} {
		cases = append(cases, createCase(t, db, "FIR-"+string(rune('A'+i))+"/2024", dgp, p))
	}
	for _, c := range cases {
		addEntity(t, db, actorFor(dgp), c.ID, FinancialEntityInput{
			EntityType: models.EntityTypeBankAccount, BankName: "SBI", AccountNumber: "987654321098",
		})
	}
	for _, c := range cases[3:] {
		addEntity(t, db, actorFor(dgp), c.ID, FinancialEntityInput{EntityType: models.EntityTypeUPIID, UPIID: "loan@paytm"})
	}
	addEntity(t, db, actorFor(dgp), cases[0].ID, FinancialEntityInput{EntityType: models.EntityTypeUPIID, UPIID: "once@okicici"})

	all, err := RepeatEntities(db, actorFor(dgp))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "BANK_ACCOUNT", all[0].Type)
	assert.Equal(t, "***1098 (SBI)", all[0].Identifier)
	assert.Equal(t, 5, all[0].LinkedCasesCount)
	assert.Equal(t, "HIGH", all[0].AlertLevel)
	assert.Equal(t, "UPI_ID", all[1].Type)
	assert.Equal(t, "loan@paytm", all[1].Identifier)
	assert.Equal(t, "MEDIUM", all[1].AlertLevel)

	scoped, err := RepeatEntities(db, actorFor(sho))
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, 4, scoped[0].LinkedCasesCount)
	assert.NotContains(t, scoped[0].FIRNumbers, "FIR-E/2024")
}

func TestBuildDashboard(t *testing.T) {
	db := setupServiceDB(t)
	si := createOfficer(t, db, "si", models.RoleSI, kotwali)
	sho := createOfficer(t, db, "sho", models.RoleSHO, kotwali)
	other := createOfficer(t, db, "si_cl", models.RoleSI, civilLines)

	a := createCase(t, db, "FIR-1/2024", si, kotwali)
	b := createCase(t, db, "FIR-2/2024", si, kotwali)
	createCase(t, db, "FIR-3/2024", si, kotwali)
	foreign := createCase(t, db, "FIR-4/2024", other, civilLines)
	for _, c := range []*models.Case{a, b, foreign} {
		require.NoError(t, db.Model(c).Update("case_category", models.CaseCategoryFinancial).Error)
	}
	require.NoError(t, db.Model(b).Updates(map[string]interface{}{
		"status": models.CaseStatusClosed, "amount_involved": decimal.RequireFromString("1250.50"),
	}).Error)

	_, err := CreateTelecomRequest(db, actorFor(si), TelecomRequestInput{
		CaseID: a.ID, MobileNumber: "9876543210", RequestType: "CDR", Reason: "Caller trace",
	})
	require.NoError(t, err)
	_, err = CreateTelecomRequest(db, actorFor(other), TelecomRequestInput{
		CaseID: foreign.ID, MobileNumber: "9876543211", RequestType: "CDR", Reason: "Caller trace",
	})
	require.NoError(t, err)

	entity := addEntity(t, db, actorFor(si), a.ID, FinancialEntityInput{
		EntityType: models.EntityTypeBankAccount, BankName: "SBI", AccountNumber: "123456789012",
	})
	freeze, err := CreateFreezeRequest(db, actorFor(si), FreezeRequestInput{CaseID: a.ID, FinancialEntityID: entity.ID, Justification: "Stop debit"})
	require.NoError(t, err)
	_, err = UpdateFreezeStatus(db, actorFor(si), freeze.ID, models.FreezeStatusSent, "")
	require.NoError(t, err)
	_, err = UpdateFreezeStatus(db, actorFor(si), freeze.ID, models.FreezeStatusConfirmed, "")
	require.NoError(t, err)
	_, err = CreateBankRequest(db, actorFor(si), BankRequestInput{CaseID: a.ID, FinancialEntityID: entity.ID, RequestType: "KYC"})
	require.NoError(t, err)

	dash, err := BuildDashboard(db, actorFor(sho))
	require.NoError(t, err)
	assert.Equal(t, int64(3), dash.TotalCases)
	assert.Equal(t, int64(2), dash.CasesByStatus[models.CaseStatusActive])
	assert.Equal(t, int64(1), dash.CasesByStatus[models.CaseStatusClosed])
	assert.Equal(t, int64(2), dash.FinancialCases)
	assert.True(t, dash.AmountAtRisk.Equal(decimal.RequireFromString("26250.50")), dash.AmountAtRisk.String())
	assert.Equal(t, int64(1), dash.PendingRequests[TelecomRequests.Resource])
	assert.Equal(t, int64(1), dash.PendingRequests[BankRequests.Resource])
	assert.Equal(t, int64(0), dash.PendingRequests[NPCIRequests.Resource])
	assert.Equal(t, int64(1), dash.BankRequestsSent)
	assert.Equal(t, FreezeSummary{Total: 1, Confirmed: 1, Pending: 0}, dash.FreezeRequests)
	assert.Equal(t, int64(2), dash.FraudTypeBreakdown[models.CaseTypeUPIFraud])
}
