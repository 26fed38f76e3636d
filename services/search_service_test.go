package services

import (
	"context"
	"testing"
	"time"

	"cyber_case_app_go/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDetectSearchType(t *testing.T) {
	tests := []struct {
		query    string
		expected string
	}{
		{"9876543210", SearchTypeMobile},
		{"+91-9876543210", SearchTypeMobile},
		{"fraud@ybl", SearchTypeUPI},
		{"ravi.kumar@okaxis", SearchTypeUPI},
		{"ravi@example.com", SearchTypeEmail},
		{"FIR-12/2024", SearchTypeFIR},
		{"123/2024", SearchTypeFIR},
		{"123456789", SearchTypeAccount},
		{"Ramesh", SearchTypeName},
		{"12345", SearchTypeName},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectSearchType(tt.query))
		})
	}
}

// searchFixture holds two stations sharing a suspect number and UPI ID
type searchFixture struct {
	db      *gorm.DB
	sho     *models.User
	dgp     *models.User
	kotwali *models.Case
	civil   *models.Case
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()
	db := setupServiceDB(t)
	f := &searchFixture{
		db:  db,
		sho: createOfficer(t, db, "sho_kotwali", models.RoleSHO, kotwali),
		dgp: createOfficer(t, db, "dgp", models.RoleDGP, posting{}),
	}
	f.kotwali = createCase(t, db, "FIR-11/2024", f.dgp, kotwali)
	f.civil = createCase(t, db, "FIR-22/2024", f.dgp, civilLines)
	require.NoError(t, db.Model(f.kotwali).Update("description", "Caller posing as Ramesh from KYC desk").Error)
	require.NoError(t, db.Model(f.civil).Update("amount_involved", decimal.NewFromInt(600000)).Error)

	for _, c := range []*models.Case{f.kotwali, f.civil} {
		_, err := CreateTelecomRequest(db, actorFor(f.dgp), TelecomRequestInput{
			CaseID: c.ID, MobileNumber: "9876543210", RequestType: "CDR", Reason: "Suspect number",
		})
		require.NoError(t, err)
		addEntity(t, db, actorFor(f.dgp), c.ID, FinancialEntityInput{
			EntityType: models.EntityTypeUPIID, UPIID: "ramesh.kyc@ybl", AccountHolderName: "Ramesh Gupta",
		})
	}
	_, err := CreateTelecomRequest(db, actorFor(f.dgp), TelecomRequestInput{
		CaseID: f.civil.ID, MobileNumber: "9123456780", RequestType: "CAF", Reason: "Associate",
	})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Evidence{
		CaseID: f.kotwali.ID, FileType: "CDR_CSV", StorageKey: "k", FileHash: "h",
		OriginalFilename: "ramesh_cdr.csv", UploadedByID: f.dgp.ID, VerificationStatus: models.EvidencePending,
	}).Error)
	return f
}

func TestUniversalSearch(t *testing.T) {
	f := newSearchFixture(t)
	svc := NewSearchService(f.db)
	ctx := context.Background()

	t.Run("mobile search is scoped", func(t *testing.T) {
		resp, err := svc.Search(ctx, actorFor(f.sho), "+91 98765 43210", "")
		require.NoError(t, err)
		assert.Equal(t, SearchTypeMobile, resp.SearchType)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, f.kotwali.ID, resp.Matches[0].CaseID)
		assert.Equal(t, 1, resp.Summary["telecom_requests"])

		resp, err = svc.Search(ctx, actorFor(f.dgp), "9876543210", SearchTypeAuto)
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("upi search", func(t *testing.T) {
		resp, err := svc.Search(ctx, actorFor(f.dgp), "RAMESH.KYC@ybl", "")
		require.NoError(t, err)
		assert.Equal(t, SearchTypeUPI, resp.SearchType)
		require.Equal(t, 2, resp.Count)
		for _, m := range resp.Matches {
			assert.Equal(t, SourceFinancial, m.Source)
			assert.Equal(t, "UPI ID", m.MatchType)
		}
	})

	t.Run("name search dedupes per case source and match type", func(t *testing.T) {
		resp, err := svc.Search(ctx, actorFor(f.sho), "ramesh", "")
		require.NoError(t, err)
		assert.Equal(t, SearchTypeName, resp.SearchType)
		assert.Equal(t, 1, resp.Summary["financial_entities"])
		assert.Equal(t, 1, resp.Summary["case_records"])
		assert.Equal(t, 1, resp.Summary["evidence_files"])
		for _, m := range resp.Matches {
			assert.Equal(t, f.kotwali.ID, m.CaseID)
		}
	})

	t.Run("fir search", func(t *testing.T) {
		resp, err := svc.Search(ctx, actorFor(f.sho), "FIR-22/2024", "")
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Count)

		resp, err = svc.Search(ctx, actorFor(f.dgp), "FIR-22/2024", "")
		require.NoError(t, err)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "FIR Number", resp.Matches[0].MatchType)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		resp, err := svc.Search(ctx, actorFor(f.dgp), "%", SearchTypeName)
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Count)
	})

	_, err := svc.Search(ctx, actorFor(f.dgp), "   ", "")
	assert.True(t, IsValidationError(err))
	assert.Equal(t, int64(7), countAudit(t, f.db, models.AuditActionSearch))
}

func TestScoreRisk(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	recent := now.Add(-48 * time.Hour)

	low := ScoreRisk(1, decimal.NewFromInt(5000), 1, nil, now)
	assert.Equal(t, RiskBreakdown{RepeatOffense: 0, MoneyFlow: 0, Network: 20}, low.Breakdown)
	assert.Equal(t, 6, low.Score)
	assert.Equal(t, "LOW", low.Level)
	assert.Empty(t, low.Tags)

	high := ScoreRisk(3, decimal.NewFromInt(600000), 6, &recent, now)
	assert.Equal(t, RiskBreakdown{RepeatOffense: 60, MoneyFlow: 60, Network: 60}, high.Breakdown)
	assert.Equal(t, 60, high.Score)
	assert.Equal(t, "HIGH", high.Level)
	assert.Equal(t, []string{"REPEAT OFFENDER", "HIGH VALUE TARGET", "ACTIVE RECENTLY"}, high.Tags)

	capped := ScoreRisk(8, decimal.NewFromInt(5000000), 20, nil, now)
	assert.Equal(t, 99, capped.Score)
	assert.Equal(t, "CRITICAL", capped.Level)
	assert.Equal(t, "IMMEDIATE ACTION", capped.Priority)
}

func TestInvestigate(t *testing.T) {
	f := newSearchFixture(t)
	svc := NewSearchService(f.db)

	inv, err := svc.Investigate(context.Background(), actorFor(f.dgp), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, 2, inv.Summary.TotalCases)
	assert.Len(t, inv.TelecomRequests, 2)
	assert.Len(t, inv.EvidenceFiles, 1)
	assert.ElementsMatch(t, []string{"FIR-11/2024", "FIR-22/2024"}, inv.Summary.FIRNumbers)
	assert.True(t, inv.Summary.TotalAmount.Equal(decimal.NewFromInt(625000)))
	assert.Contains(t, inv.RiskProfile.Tags, "REPEAT OFFENDER")
	assert.Contains(t, inv.RiskProfile.Tags, "HIGH VALUE TARGET")

	scoped, err := svc.Investigate(context.Background(), actorFor(f.sho), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, []string{f.kotwali.ID}, scoped.Summary.CaseIDs)
	assert.NotContains(t, scoped.RiskProfile.Tags, "REPEAT OFFENDER")
}

func TestBuildNetworkGraph(t *testing.T) {
	f := newSearchFixture(t)
	svc := NewSearchService(f.db)
	ctx := context.Background()

	graph, err := svc.BuildNetworkGraph(ctx, actorFor(f.dgp), "9876543210")
	require.NoError(t, err)

	groups := map[string]int{}
	for _, n := range graph.Nodes {
		groups[n.Group]++
		if n.ID == "MOB_9876543210" {
			assert.True(t, n.Highlight)
		}
	}
	assert.Equal(t, map[string]int{NodeCase: 2, NodeMobile: 2, NodeFinancial: 1}, groups)
	// each case links to the shared mobile and UPI ID, the civil case also to its second number
	assert.Len(t, graph.Edges, 5)

	empty, err := svc.BuildNetworkGraph(ctx, actorFor(f.sho), "9123456780")
	require.NoError(t, err)
	require.Len(t, empty.Nodes, 1)
	assert.Equal(t, NodeSearch, empty.Nodes[0].Group)
	assert.Empty(t, empty.Edges)

	none, err := svc.BuildNetworkGraph(ctx, actorFor(f.dgp), "")
	require.NoError(t, err)
	assert.Empty(t, none.Nodes)
}
