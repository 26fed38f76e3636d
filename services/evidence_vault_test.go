package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cyber_case_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockAlertNotifier struct {
	mock.Mock
}

func (m *MockAlertNotifier) NotifyIntegrityFailure(ctx context.Context, alert IntegrityAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

type vaultFixture struct {
	db      *gorm.DB
	dir     string
	vault   *EvidenceVault
	cipher  *EvidenceCipher
	alerts  *MockAlertNotifier
	si      *models.User
	kotCase *models.Case
}

func newVaultFixture(t *testing.T) *vaultFixture {
	t.Helper()
	db := setupServiceDB(t)
	dir := t.TempDir()
	cipher := newTestCipher(t)
	alerts := &MockAlertNotifier{}
	policy := UploadPolicy{AllowedExtensions: []string{".csv", ".pdf", ".txt", ".xlsx"}, MaxBytes: 1024}

	si := createOfficer(t, db, "si_kotwali", models.RoleSI, kotwali)
	kotCase := createCase(t, db, "FIR-101/2024", si, kotwali)

	return &vaultFixture{
		db:      db,
		dir:     dir,
		vault:   NewEvidenceVault(db, NewLocalStorage(dir), cipher, policy, alerts),
		cipher:  cipher,
		alerts:  alerts,
		si:      si,
		kotCase: kotCase,
	}
}

func (f *vaultFixture) ingest(t *testing.T, actor *Actor, name, content string) *models.Evidence {
	t.Helper()
	ev, err := f.vault.Ingest(context.Background(), actor, IngestRequest{
		CaseID:   f.kotCase.ID,
		FileType: "cdr_csv",
		Filename: name,
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	})
	require.NoError(t, err)
	return ev
}

func storedFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}

const cdrContent = "calling_number,called_number,duration\n9876543210,9123456780,45\n"

func TestEvidenceVaultRoundTrip(t *testing.T) {
	f := newVaultFixture(t)
	actor := actorFor(f.si)

	ev := f.ingest(t, actor, "calls.csv", cdrContent)

	assert.Equal(t, HashContent([]byte(cdrContent)), ev.FileHash)
	assert.Equal(t, ev.FileHash+"_calls.csv", ev.StorageKey)
	assert.Equal(t, "CDR_CSV", ev.FileType)
	assert.Equal(t, models.EvidenceVerified, ev.VerificationStatus)
	assert.Equal(t, models.RoleSI, ev.UploadedByRank)

	raw, err := os.ReadFile(filepath.Join(f.dir, ev.StorageKey))
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("9876543210")), "stored object must be encrypted")

	got, err := f.vault.Retrieve(context.Background(), actor, ev.ID, models.AuditActionDownloadEvidence)
	require.NoError(t, err)
	assert.Equal(t, cdrContent, string(got.Content))
	assert.Equal(t, "text/csv", got.MediaType)
	assert.Equal(t, ev.FileHash, HashContent(got.Content))

	assert.Equal(t, int64(1), countAudit(t, f.db, models.AuditActionUploadEvidence))
	assert.Equal(t, int64(1), countAudit(t, f.db, models.AuditActionDownloadEvidence))
	f.alerts.AssertNotCalled(t, "NotifyIntegrityFailure", mock.Anything, mock.Anything)
}

func TestEvidenceVaultInitialStatusByRank(t *testing.T) {
	f := newVaultFixture(t)
	constable := createOfficer(t, f.db, "ct_kotwali", models.RoleConstable, kotwali)
	headConstable := createOfficer(t, f.db, "hc_kotwali", models.RoleHeadConstable, kotwali)
	sho := createOfficer(t, f.db, "sho_kotwali", models.RoleSHO, kotwali)

	assert.Equal(t, models.EvidencePending, f.ingest(t, actorFor(constable), "a.txt", "one").VerificationStatus)
	assert.Equal(t, models.EvidencePending, f.ingest(t, actorFor(headConstable), "b.txt", "two").VerificationStatus)
	assert.Equal(t, models.EvidenceVerified, f.ingest(t, actorFor(f.si), "c.txt", "three").VerificationStatus)
	assert.Equal(t, models.EvidenceVerified, f.ingest(t, actorFor(sho), "d.txt", "four").VerificationStatus)
}

func TestEvidenceVaultTamperedCiphertext(t *testing.T) {
	f := newVaultFixture(t)
	actor := actorFor(f.si)
	ev := f.ingest(t, actor, "calls.csv", cdrContent)

	path := filepath.Join(f.dir, ev.StorageKey)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	f.alerts.On("NotifyIntegrityFailure", mock.Anything, mock.MatchedBy(func(a IntegrityAlert) bool {
		return a.EvidenceID == ev.ID && a.FIRNumber == f.kotCase.FIRNumber
	})).Return(nil).Once()

	got, err := f.vault.Retrieve(context.Background(), actor, ev.ID, models.AuditActionViewEvidence)
	assert.ErrorIs(t, err, ErrIntegrityFailure)
	assert.Nil(t, got)

	assert.Equal(t, int64(1), countAudit(t, f.db, models.AuditActionIntegrityFailure))
	assert.Equal(t, int64(0), countAudit(t, f.db, models.AuditActionViewEvidence))
	f.alerts.AssertExpectations(t)
}

func TestEvidenceVaultHashMismatch(t *testing.T) {
	f := newVaultFixture(t)
	actor := actorFor(f.si)
	ev := f.ingest(t, actor, "calls.csv", cdrContent)

	// A well-formed ciphertext of different content
	forged, err := f.cipher.Encrypt([]byte("calling_number,called_number\n9000000000,9111111111\n"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, ev.StorageKey), forged, 0o600))

	f.alerts.On("NotifyIntegrityFailure", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	_, err = f.vault.Retrieve(context.Background(), actor, ev.ID, models.AuditActionDownloadEvidence)
	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ev.FileHash, ie.Expected)
	assert.NotEmpty(t, ie.Actual)
	assert.NotEqual(t, ie.Expected, ie.Actual)
	assert.Equal(t, int64(1), countAudit(t, f.db, models.AuditActionIntegrityFailure))
}

func TestEvidenceVaultUnreadableObjects(t *testing.T) {
	f := newVaultFixture(t)
	actor := actorFor(f.si)

	t.Run("truncated ciphertext", func(t *testing.T) {
		ev := f.ingest(t, actor, "short.txt", "short file")
		require.NoError(t, os.WriteFile(filepath.Join(f.dir, ev.StorageKey), []byte("tampered bytes"), 0o600))
		f.alerts.On("NotifyIntegrityFailure", mock.Anything, mock.Anything).Return(nil).Once()

		content, err := f.vault.Retrieve(context.Background(), actor, ev.ID, models.AuditActionDownloadEvidence)
		assert.Nil(t, content)
		assert.ErrorIs(t, err, ErrIntegrityFailure)
		assert.NotErrorIs(t, err, ErrDecryptionFailed)
		var ie *IntegrityError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, ev.FileHash, ie.Expected)
		assert.Equal(t, int64(1), countAudit(t, f.db, models.AuditActionIntegrityFailure))
		f.alerts.AssertNumberOfCalls(t, "NotifyIntegrityFailure", 1)
	})

	t.Run("missing object", func(t *testing.T) {
		ev := f.ingest(t, actor, "gone.txt", "gone file")
		require.NoError(t, os.Remove(filepath.Join(f.dir, ev.StorageKey)))

		_, err := f.vault.Retrieve(context.Background(), actor, ev.ID, models.AuditActionDownloadEvidence)
		assert.ErrorIs(t, err, ErrStoredFileMissing)
	})

	t.Run("unknown evidence", func(t *testing.T) {
		_, err := f.vault.Retrieve(context.Background(), actor, "does-not-exist", models.AuditActionDownloadEvidence)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	// only the truncated object counts as an integrity failure
	assert.Equal(t, int64(1), countAudit(t, f.db, models.AuditActionIntegrityFailure))
}

func TestEvidenceVaultRejectsBeforeWriting(t *testing.T) {
	f := newVaultFixture(t)
	actor := actorFor(f.si)
	big := strings.Repeat("9876543210,", 200)

	tests := []struct {
		name    string
		req     IngestRequest
		wantErr error
	}{
		{
			name:    "declared size over ceiling",
			req:     IngestRequest{Filename: "big.csv", Size: 4096, Content: strings.NewReader(big)},
			wantErr: ErrFileTooLarge,
		},
		{
			name:    "undeclared size over ceiling",
			req:     IngestRequest{Filename: "big.csv", Size: -1, Content: strings.NewReader(big)},
			wantErr: ErrFileTooLarge,
		},
		{
			name:    "extension not allowed",
			req:     IngestRequest{Filename: "payload.exe", Size: 3, Content: strings.NewReader("MZ!")},
			wantErr: ErrFileTypeNotAllowed,
		},
		{
			name:    "no extension",
			req:     IngestRequest{Filename: "README", Size: 3, Content: strings.NewReader("abc")},
			wantErr: ErrFileTypeNotAllowed,
		},
		{
			name:    "empty file",
			req:     IngestRequest{Filename: "empty.txt", Size: 0, Content: strings.NewReader("")},
			wantErr: ErrEmptyFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.CaseID = f.kotCase.ID
			tt.req.FileType = "OTHER"
			ev, err := f.vault.Ingest(context.Background(), actor, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, ev)
		})
	}

	assert.Equal(t, 0, storedFiles(t, f.dir))
	var rows int64
	require.NoError(t, f.db.Model(&models.Evidence{}).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)
	assert.Equal(t, int64(0), countAudit(t, f.db, models.AuditActionUploadEvidence))
}

func TestEvidenceVaultScope(t *testing.T) {
	f := newVaultFixture(t)
	ev := f.ingest(t, actorFor(f.si), "calls.csv", cdrContent)

	outsider := actorFor(createOfficer(t, f.db, "si_civil", models.RoleSI, civilLines))

	_, err := f.vault.Ingest(context.Background(), outsider, IngestRequest{
		CaseID: f.kotCase.ID, FileType: "OTHER", Filename: "x.txt", Size: 1, Content: strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, ErrOutOfScope)

	_, err = f.vault.Retrieve(context.Background(), outsider, ev.ID, models.AuditActionDownloadEvidence)
	assert.ErrorIs(t, err, ErrOutOfScope)

	_, err = f.vault.ListForCase(outsider, f.kotCase.ID)
	assert.ErrorIs(t, err, ErrOutOfScope)

	assert.Equal(t, int64(3), countAudit(t, f.db, models.AuditActionAccessDenied))
	assert.Equal(t, int64(0), countAudit(t, f.db, models.AuditActionDownloadEvidence))

	sp := actorFor(createOfficer(t, f.db, "sp_lucknow", models.RoleSP, kotwali))
	items, err := f.vault.ListForCase(sp, f.kotCase.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestEvidenceVaultDeduplicatesStoredObjects(t *testing.T) {
	f := newVaultFixture(t)
	actor := actorFor(f.si)

	first := f.ingest(t, actor, "calls.csv", cdrContent)
	second := f.ingest(t, actor, "calls.csv", cdrContent)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.StorageKey, second.StorageKey)
	assert.Equal(t, 1, storedFiles(t, f.dir))

	t.Run("corrupt existing object is not reused", func(t *testing.T) {
		path := filepath.Join(f.dir, first.StorageKey)
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0x01
		require.NoError(t, os.WriteFile(path, raw, 0o600))

		f.alerts.On("NotifyIntegrityFailure", mock.Anything, mock.Anything).Return(nil).Once()

		_, err = f.vault.Ingest(context.Background(), actor, IngestRequest{
			CaseID: f.kotCase.ID, FileType: "CDR", Filename: "calls.csv", Size: -1, Content: strings.NewReader(cdrContent),
		})
		assert.ErrorIs(t, err, ErrIntegrityFailure)
		assert.Equal(t, int64(1), countAudit(t, f.db, models.AuditActionIntegrityFailure))
		assert.Equal(t, int64(2), countAudit(t, f.db, models.AuditActionUploadEvidence))
	})
}

func TestEvidenceVaultUpdateVerification(t *testing.T) {
	f := newVaultFixture(t)
	constable := createOfficer(t, f.db, "ct_kotwali", models.RoleConstable, kotwali)
	sho := createOfficer(t, f.db, "sho_kotwali", models.RoleSHO, kotwali)
	ev := f.ingest(t, actorFor(constable), "screenshot.pdf", "%PDF-1.4 fake")
	require.Equal(t, models.EvidencePending, ev.VerificationStatus)

	_, err := f.vault.UpdateVerification(actorFor(f.si), ev.ID, models.EvidenceVerified)
	assert.ErrorIs(t, err, ErrInsufficientRank)

	_, err = f.vault.UpdateVerification(actorFor(sho), ev.ID, "approved")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	updated, err := f.vault.UpdateVerification(actorFor(sho), ev.ID, models.EvidenceRejected)
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceRejected, updated.VerificationStatus)
	require.NotNil(t, updated.VerifiedByID)
	assert.Equal(t, sho.ID, *updated.VerifiedByID)

	_, err = f.vault.UpdateVerification(actorFor(sho), ev.ID, models.EvidenceVerified)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, int64(1), countAudit(t, f.db, models.AuditActionVerifyEvidence))
}

func TestEvidenceVaultKeepsNonASCIIFilename(t *testing.T) {
	f := newVaultFixture(t)
	actor := actorFor(f.si)

	ev := f.ingest(t, actor, "बयान.pdf", "statement of complainant")
	assert.Equal(t, "बयान.pdf", ev.OriginalFilename)
	assert.True(t, strings.HasSuffix(ev.StorageKey, "_बयान.pdf"))

	rec, err := f.vault.Retrieve(context.Background(), actor, ev.ID, models.AuditActionViewEvidence)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", rec.MediaType)
	assert.Equal(t, []byte("statement of complainant"), rec.Content)
}

func TestMediaTypeFor(t *testing.T) {
	assert.Equal(t, "text/csv", MediaTypeFor("CDR.CSV"))
	assert.Equal(t, "application/pdf", MediaTypeFor("notice.pdf"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", MediaTypeFor("dump.xlsx"))
	assert.Equal(t, "image/png", MediaTypeFor("screenshot.png"))
	assert.Equal(t, "application/octet-stream", MediaTypeFor("blob"))
}
