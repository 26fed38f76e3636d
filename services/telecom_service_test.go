package services

import (
	"context"
	"strings"
	"testing"

	"cyber_case_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectTSP(t *testing.T) {
	tests := map[string]string{
		"9876543210":    TSPAirtel,
		"+919012345678": TSPAirtel,
		"6312345678":    TSPJio,
		"7712345678":    TSPJio,
		"8512345678":    TSPVi,
		"9412345678":    TSPBSNL,
		"9312345678":    TSPUnknown,
		"":              TSPUnknown,
	}
	for mobile, want := range tests {
		assert.Equal(t, want, DetectTSP(mobile), mobile)
	}
	assert.Equal(t, "9876543210", LocalMobile("+91 98765-43210"))
}

func TestTelecomRequestWorkflow(t *testing.T) {
	db := setupServiceDB(t)
	constable := createOfficer(t, db, "ct", models.RoleConstable, kotwali)
	sho := createOfficer(t, db, "sho", models.RoleSHO, kotwali)
	otherSHO := createOfficer(t, db, "sho_civil", models.RoleSHO, civilLines)
	c := createCase(t, db, "FIR-1/2024", constable, kotwali)

	req, err := CreateTelecomRequest(db, actorFor(constable), TelecomRequestInput{
		CaseID: c.ID, MobileNumber: "+91 98765 43210", RequestType: "cdr", Reason: "Fraud caller",
	})
	require.NoError(t, err)
	assert.Equal(t, "9876543210", req.MobileNumber)
	assert.Equal(t, TSPAirtel, req.Provider)
	assert.Equal(t, models.TelecomRequestCDR, req.RequestType)
	assert.Equal(t, models.RequestStatusPending, req.Status)

	t.Run("constable cannot approve inside own station", func(t *testing.T) {
		err := ReviewRequest(db, actorFor(constable), TelecomRequests, req.ID, true, "")
		assert.ErrorIs(t, err, ErrInsufficientRank)
	})

	t.Run("SHO of another station cannot approve", func(t *testing.T) {
		err := ReviewRequest(db, actorFor(otherSHO), TelecomRequests, req.ID, true, "")
		assert.ErrorIs(t, err, ErrOutOfScope)
	})

	t.Run("dispatch requires approval", func(t *testing.T) {
		assert.ErrorIs(t, DispatchTelecomRequest(db, actorFor(sho), req.ID), ErrInvalidTransition)
	})

	require.NoError(t, ReviewRequest(db, actorFor(sho), TelecomRequests, req.ID, true, ""))
	assert.ErrorIs(t, ReviewRequest(db, actorFor(sho), TelecomRequests, req.ID, false, "late"), ErrInvalidTransition)
	require.NoError(t, DispatchTelecomRequest(db, actorFor(sho), req.ID))

	stored, err := GetTelecomRequest(db, actorFor(sho), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusDispatched, stored.Status)
	require.NotNil(t, stored.ReviewerID)
	assert.Equal(t, sho.ID, *stored.ReviewerID)
	assert.NotNil(t, stored.DispatchedAt)

	assert.Equal(t, int64(1), countAudit(t, db, models.AuditActionCreateRequest))
	assert.Equal(t, int64(1), countAudit(t, db, models.AuditActionApproveRequest))
	assert.Equal(t, int64(1), countAudit(t, db, models.AuditActionDispatchRequest))
}

func TestRejectRequestNeedsReason(t *testing.T) {
	db := setupServiceDB(t)
	sho := createOfficer(t, db, "sho", models.RoleSHO, kotwali)
	c := createCase(t, db, "FIR-1/2024", sho, kotwali)
	req, err := CreateTelecomRequest(db, actorFor(sho), TelecomRequestInput{
		CaseID: c.ID, MobileNumber: "9412345678", RequestType: "CAF", Reason: "Subscriber details",
	})
	require.NoError(t, err)

	assert.True(t, IsValidationError(ReviewRequest(db, actorFor(sho), TelecomRequests, req.ID, false, "  ")))
	require.NoError(t, ReviewRequest(db, actorFor(sho), TelecomRequests, req.ID, false, "Duplicate of earlier notice"))

	stored, err := GetTelecomRequest(db, actorFor(sho), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, stored.Status)
	require.NotNil(t, stored.RejectionReason)
	assert.Equal(t, "Duplicate of earlier notice", *stored.RejectionReason)
}

func TestCreateTelecomBatch(t *testing.T) {
	db := setupServiceDB(t)
	si := createOfficer(t, db, "si", models.RoleSI, kotwali)
	c := createCase(t, db, "FIR-1/2024", si, kotwali)

	result, err := CreateTelecomBatch(db, actorFor(si), TelecomBatchInput{
		CaseID:        c.ID,
		MobileNumbers: []string{"9876543210", "7012345678", "", "8812345678", "+919876543210", "9912345678"},
		RequestType:   "CDR",
		Reason:        "Linked numbers",
	})
	require.NoError(t, err)
	assert.Len(t, result.Requests, 4)
	assert.ElementsMatch(t, []string{"9876543210", "9912345678"}, result.Groups[TSPAirtel])
	assert.Equal(t, []string{"7012345678"}, result.Groups[TSPJio])
	assert.Equal(t, []string{"8812345678"}, result.Groups[TSPVi])

	_, err = CreateTelecomBatch(db, actorFor(si), TelecomBatchInput{
		CaseID: c.ID, MobileNumbers: []string{"9876543210", "12345"}, RequestType: "CDR", Reason: "x",
	})
	assert.True(t, IsValidationError(err))

	requests, total, err := ListTelecomRequests(db, actorFor(si), RequestFilters{CaseID: c.ID}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, requests, 4)

	outsider := createOfficer(t, db, "si_civil", models.RoleSI, civilLines)
	_, total, err = ListTelecomRequests(db, actorFor(outsider), RequestFilters{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestTelecomResponseRoundTrip(t *testing.T) {
	f := newVaultFixture(t)
	sho := createOfficer(t, f.db, "sho", models.RoleSHO, kotwali)
	req, err := CreateTelecomRequest(f.db, actorFor(f.si), TelecomRequestInput{
		CaseID: f.kotCase.ID, MobileNumber: "9876543210", RequestType: "CDR", Reason: "Caller records",
	})
	require.NoError(t, err)

	_, err = f.vault.AttachTelecomResponse(context.Background(), actorFor(f.si), req.ID, "reply.csv", -1, strings.NewReader(cdrContent))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 0, storedFiles(t, f.dir))

	require.NoError(t, ReviewRequest(f.db, actorFor(sho), TelecomRequests, req.ID, true, ""))

	updated, err := f.vault.AttachTelecomResponse(context.Background(), actorFor(f.si), req.ID, "reply.csv", -1, strings.NewReader(cdrContent))
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, updated.Status)
	require.NotNil(t, updated.ResponseHash)
	assert.Equal(t, HashContent([]byte(cdrContent)), *updated.ResponseHash)

	resp, err := f.vault.OpenTelecomResponse(context.Background(), actorFor(f.si), req.ID)
	require.NoError(t, err)
	assert.Equal(t, cdrContent, string(resp.Content))
	assert.Equal(t, "reply.csv", resp.Filename)
	assert.Equal(t, int64(1), countAudit(t, f.db, models.AuditActionDownloadResponse))
}
