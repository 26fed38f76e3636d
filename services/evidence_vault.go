package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"cyber_case_app_go/models"

	"gorm.io/gorm"
)

const sealedContentType = "application/octet-stream"

// IntegrityError is a stored object whose content no longer matches its
// recorded digest. It unwraps to ErrIntegrityFailure.
type IntegrityError struct {
	Expected string
	Actual   string // empty when the ciphertext failed authentication
}

func (e *IntegrityError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("%s: stored ciphertext is malformed or failed authentication (recorded %s)", ErrIntegrityFailure, e.Expected)
	}
	return fmt.Sprintf("%s: recorded %s, computed %s", ErrIntegrityFailure, e.Expected, e.Actual)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrityFailure
}

// EvidenceVault stores case files encrypted and hands them back only after
// the plaintext digest has been verified.
type EvidenceVault struct {
	db      *gorm.DB
	storage StorageProvider
	cipher  *EvidenceCipher
	policy  UploadPolicy
	alerts  AlertNotifier
}

// NewEvidenceVault wires the vault. alerts may be nil.
func NewEvidenceVault(db *gorm.DB, storage StorageProvider, cipher *EvidenceCipher, policy UploadPolicy, alerts AlertNotifier) *EvidenceVault {
	return &EvidenceVault{db: db, storage: storage, cipher: cipher, policy: policy, alerts: alerts}
}

// Policy returns the upload limits enforced by the vault
func (v *EvidenceVault) Policy() UploadPolicy {
	return v.policy
}

// IngestRequest is one uploaded evidence file
type IngestRequest struct {
	CaseID   string
	FileType string
	Filename string
	Size     int64 // declared size, -1 when unknown
	Content  io.Reader
}

// sealedObject is plaintext that has been hashed, encrypted and stored
type sealedObject struct {
	Key   string
	Hash  string
	Size  int64
	wrote bool
}

// seal hashes data, encrypts it and stores it under {hash}_{name}. An object
// already stored under that key is reused only if it still opens to the same
// digest.
func (v *EvidenceVault) seal(ctx context.Context, data []byte, filename string) (*sealedObject, error) {
	hash := HashContent(data)
	obj := &sealedObject{Key: EvidenceStorageKey(hash, filename), Hash: hash, Size: int64(len(data))}

	exists, err := v.storage.Exists(ctx, obj.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to check storage: %w", err)
	}
	if exists {
		if _, err := v.open(ctx, obj.Key, hash); err != nil {
			return nil, err
		}
		return obj, nil
	}

	sealed, err := v.cipher.Encrypt(data)
	if err != nil {
		return nil, err
	}
	if _, err := v.storage.UploadReader(ctx, bytes.NewReader(sealed), obj.Key, sealedContentType, int64(len(sealed))); err != nil {
		return nil, err
	}
	obj.wrote = true
	return obj, nil
}

// discard removes an object written by seal when the surrounding
// transaction did not commit
func (v *EvidenceVault) discard(ctx context.Context, obj *sealedObject) {
	if obj == nil || !obj.wrote {
		return
	}
	if err := v.storage.Delete(ctx, obj.Key); err != nil {
		log.Printf("[WARNING] Failed to remove orphaned object %s: %v", obj.Key, err)
	}
}

// open loads, decrypts and re-hashes a stored object
func (v *EvidenceVault) open(ctx context.Context, key, expectedHash string) ([]byte, error) {
	sealed, err := readObject(ctx, v.storage, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, ErrStoredFileMissing
		}
		return nil, err
	}

	plaintext, err := v.cipher.Decrypt(sealed)
	if err != nil {
		// the key is checked at startup, so a stored object that is too
		// short or fails authentication was altered after ingest
		if errors.Is(err, ErrCiphertextAuthentication) || errors.Is(err, ErrInvalidCiphertext) {
			return nil, &IntegrityError{Expected: expectedHash}
		}
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	if actual := HashContent(plaintext); actual != expectedHash {
		return nil, &IntegrityError{Expected: expectedHash, Actual: actual}
	}
	return plaintext, nil
}

// integrityIncident describes what failed verification and where
type integrityIncident struct {
	ResourceType string
	ResourceID   string
	Case         *models.Case
	Filename     string
	Err          *IntegrityError
}

// reportIntegrityFailure writes exactly one INTEGRITY_FAILURE audit row and
// alerts supervisors. Alert delivery errors are logged only.
func (v *EvidenceVault) reportIntegrityFailure(ctx context.Context, actor *Actor, inc integrityIncident) {
	caseID, fir := "", ""
	if inc.Case != nil {
		caseID, fir = inc.Case.ID, inc.Case.FIRNumber
	}

	log.Printf("[INTEGRITY] %s %s failed verification: %v", inc.ResourceType, inc.ResourceID, inc.Err)
	RecordEvidenceRetrieval("integrity_failure")

	err := RecordAuditEvent(v.db, actor.Audit, AuditEvent{
		Action:       models.AuditActionIntegrityFailure,
		ResourceType: inc.ResourceType,
		ResourceID:   inc.ResourceID,
		CaseID:       caseID,
		Details:      inc.Err.Error(),
		NewValues:    map[string]string{"expected_hash": inc.Err.Expected, "actual_hash": inc.Err.Actual},
	})
	if err != nil {
		log.Printf("[INTEGRITY] Could not audit failure on %s %s: %v", inc.ResourceType, inc.ResourceID, err)
	}

	if v.alerts == nil {
		return
	}
	alert := IntegrityAlert{
		EvidenceID:   inc.ResourceID,
		CaseID:       caseID,
		FIRNumber:    fir,
		Filename:     inc.Filename,
		ExpectedHash: inc.Err.Expected,
		ActualHash:   inc.Err.Actual,
		RequestedBy:  actor.Audit.UserName,
		OccurredAt:   time.Now(),
	}
	if err := v.alerts.NotifyIntegrityFailure(ctx, alert); err != nil {
		log.Printf("[INTEGRITY] Failed to send alert for %s: %v", inc.ResourceID, err)
	}
}

// Ingest validates, hashes, encrypts and records one evidence file. Nothing
// is written to storage or the database until every check has passed.
func (v *EvidenceVault) Ingest(ctx context.Context, actor *Actor, req IngestRequest) (*models.Evidence, error) {
	if actor.User.Role.Rank() == 0 {
		RecordAuthorizationDecision("role", false)
		return nil, ErrRoleNotPermitted
	}

	c, err := LoadCaseForActor(v.db, actor, req.CaseID)
	if err != nil {
		return nil, err
	}

	fileType := strings.ToUpper(SanitizeText(req.FileType))
	if fileType == "" {
		return nil, NewValidationError("file_type", "file type is required")
	}
	if err := v.policy.ValidateName(req.Filename); err != nil {
		return nil, err
	}
	if err := v.policy.ValidateDeclaredSize(req.Size); err != nil {
		return nil, err
	}
	data, err := v.policy.ReadAll(req.Content)
	if err != nil {
		return nil, err
	}

	obj, err := v.seal(ctx, data, req.Filename)
	if err != nil {
		var ie *IntegrityError
		if errors.As(err, &ie) {
			v.reportIntegrityFailure(ctx, actor, integrityIncident{
				ResourceType: "storage_object",
				ResourceID:   EvidenceStorageKey(HashContent(data), req.Filename),
				Case:         c,
				Filename:     req.Filename,
				Err:          ie,
			})
		}
		return nil, err
	}

	status := models.EvidencePending
	if actor.User.Role.AtLeast(models.RoleSI) {
		status = models.EvidenceVerified
	}

	ev := &models.Evidence{
		CaseID:             c.ID,
		FileType:           fileType,
		StorageKey:         obj.Key,
		FileHash:           obj.Hash,
		OriginalFilename:   SanitizeFilename(req.Filename),
		FileSize:           obj.Size,
		UploadedByID:       actor.User.ID,
		UploadedByRank:     actor.User.Role,
		VerificationStatus: status,
	}

	err = v.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ev).Error; err != nil {
			return fmt.Errorf("failed to record evidence: %w", err)
		}
		return RecordAuditEvent(tx, actor.Audit, AuditEvent{
			Action:       models.AuditActionUploadEvidence,
			ResourceType: "evidence",
			ResourceID:   ev.ID,
			CaseID:       c.ID,
			Details:      fmt.Sprintf("Uploaded %s (%s, %d bytes) to FIR %s", ev.OriginalFilename, ev.FileType, ev.FileSize, c.FIRNumber),
			NewValues:    map[string]interface{}{"file_hash": ev.FileHash, "verification_status": status},
		})
	})
	if err != nil {
		v.discard(ctx, obj)
		return nil, err
	}

	RecordEvidenceIngested(status, len(data))
	return ev, nil
}

// RetrievedEvidence is verified plaintext ready to be served
type RetrievedEvidence struct {
	Evidence  *models.Evidence
	Case      *models.Case
	Content   []byte
	MediaType string
}

// Retrieve returns the plaintext of an evidence file after checking scope
// and re-verifying its digest. action is DOWNLOAD_EVIDENCE or VIEW_EVIDENCE.
// Content is never returned without its audit row.
func (v *EvidenceVault) Retrieve(ctx context.Context, actor *Actor, evidenceID string, action models.AuditAction) (*RetrievedEvidence, error) {
	var ev models.Evidence
	if err := v.db.First(&ev, "id = ?", evidenceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load evidence: %w", err)
	}

	c, err := LoadCaseForActor(v.db, actor, ev.CaseID)
	if err != nil {
		return nil, err
	}

	content, err := v.open(ctx, ev.StorageKey, ev.FileHash)
	if err != nil {
		var ie *IntegrityError
		if errors.As(err, &ie) {
			v.reportIntegrityFailure(ctx, actor, integrityIncident{
				ResourceType: "evidence",
				ResourceID:   ev.ID,
				Case:         c,
				Filename:     ev.OriginalFilename,
				Err:          ie,
			})
			return nil, err
		}
		RecordEvidenceRetrieval("error")
		log.Printf("[ERROR] Evidence %s could not be opened: %v", ev.ID, err)
		return nil, err
	}

	err = RecordAuditEvent(v.db, actor.Audit, AuditEvent{
		Action:       action,
		ResourceType: "evidence",
		ResourceID:   ev.ID,
		CaseID:       c.ID,
		Details:      fmt.Sprintf("%s %s from FIR %s (hash verified)", action, ev.OriginalFilename, c.FIRNumber),
	})
	if err != nil {
		RecordEvidenceRetrieval("error")
		return nil, err
	}

	RecordEvidenceRetrieval("ok")
	return &RetrievedEvidence{
		Evidence:  &ev,
		Case:      c,
		Content:   content,
		MediaType: MediaTypeFor(ev.OriginalFilename),
	}, nil
}

// ListForCase returns the evidence metadata of a case in scope
func (v *EvidenceVault) ListForCase(actor *Actor, caseID string) ([]models.Evidence, error) {
	if _, err := LoadCaseForActor(v.db, actor, caseID); err != nil {
		return nil, err
	}

	var items []models.Evidence
	if err := v.db.Where("case_id = ?", caseID).Order("uploaded_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	return items, nil
}

// UpdateVerification confirms or rejects pending evidence. SHO and above.
func (v *EvidenceVault) UpdateVerification(actor *Actor, evidenceID, status string) (*models.Evidence, error) {
	if err := requireRank(actor, models.RoleSHO); err != nil {
		return nil, err
	}
	if status != models.EvidenceVerified && status != models.EvidenceRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var ev models.Evidence
	if err := v.db.First(&ev, "id = ?", evidenceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load evidence: %w", err)
	}

	c, err := LoadCaseForActor(v.db, actor, ev.CaseID)
	if err != nil {
		return nil, err
	}

	if !models.IsValidVerificationTransition(ev.VerificationStatus, status) {
		return nil, fmt.Errorf("%w: evidence is already %s", ErrInvalidTransition, ev.VerificationStatus)
	}

	now := time.Now()
	err = v.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Evidence{}).
			Where("id = ? AND verification_status = ?", ev.ID, models.EvidencePending).
			Updates(map[string]interface{}{
				"verification_status": status,
				"verified_by_id":      actor.User.ID,
				"verified_at":         now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update verification: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: evidence is no longer pending", ErrInvalidTransition)
		}
		return RecordAuditEvent(tx, actor.Audit, AuditEvent{
			Action:       models.AuditActionVerifyEvidence,
			ResourceType: "evidence",
			ResourceID:   ev.ID,
			CaseID:       c.ID,
			Details:      fmt.Sprintf("Evidence %s marked %s", ev.OriginalFilename, status),
			OldValues:    map[string]string{"verification_status": ev.VerificationStatus},
			NewValues:    map[string]string{"verification_status": status},
		})
	})
	if err != nil {
		return nil, err
	}

	ev.VerificationStatus = status
	ev.VerifiedByID = &actor.User.ID
	ev.VerifiedAt = &now
	return &ev, nil
}

var mediaTypes = map[string]string{
	".csv":  "text/csv",
	".txt":  "text/plain",
	".pdf":  "application/pdf",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".zip":  "application/zip",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
}

// MediaTypeFor infers the content type of a file from its original name
func MediaTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
