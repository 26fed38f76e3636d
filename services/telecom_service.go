package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cyber_case_app_go/models"

	"gorm.io/gorm"
)

// Telecom service providers
const (
	TSPAirtel  = "Airtel"
	TSPJio     = "Jio"
	TSPVi      = "Vodafone Idea"
	TSPBSNL    = "BSNL"
	TSPUnknown = "Unknown TSP"
)

var tspPrefixes = map[string]string{
	"98": TSPAirtel, "99": TSPAirtel, "90": TSPAirtel, "95": TSPAirtel,
	"63": TSPJio, "70": TSPJio, "71": TSPJio, "72": TSPJio, "73": TSPJio,
	"74": TSPJio, "75": TSPJio, "76": TSPJio, "77": TSPJio, "78": TSPJio, "79": TSPJio,
	"80": TSPVi, "81": TSPVi, "82": TSPVi, "83": TSPVi, "84": TSPVi,
	"85": TSPVi, "86": TSPVi, "87": TSPVi, "88": TSPVi, "89": TSPVi,
	"94": TSPBSNL,
}

// LocalMobile strips separators and the country code, leaving 10 digits
// for a valid Indian mobile
func LocalMobile(mobile string) string {
	m := NormalizeMobile(mobile)
	m = strings.TrimPrefix(m, "+")
	if len(m) == 12 && strings.HasPrefix(m, "91") {
		m = m[2:]
	}
	return m
}

// DetectTSP guesses the provider from the first two digits. Porting makes
// this a hint only.
func DetectTSP(mobile string) string {
	m := LocalMobile(mobile)
	if len(m) < 2 {
		return TSPUnknown
	}
	if tsp, ok := tspPrefixes[m[:2]]; ok {
		return tsp
	}
	return TSPUnknown
}

// TelecomRequestInput is one request for subscriber or call data
type TelecomRequestInput struct {
	CaseID       string
	MobileNumber string
	RequestType  string
	Reason       string
}

func validateTelecomInput(requestType, reason string) (string, string, error) {
	requestType = strings.ToUpper(strings.TrimSpace(requestType))
	if !models.IsValidTelecomRequestType(requestType) {
		return "", "", NewValidationError("request_type", "request type must be CDR, CAF, IPDR or SDR")
	}
	reason = SanitizeText(reason)
	if reason == "" {
		return "", "", NewValidationError("reason", "a reason is required")
	}
	return requestType, reason, nil
}

func createTelecomRequests(db *gorm.DB, actor *Actor, c *models.Case, requestType, reason string, mobiles []string) ([]models.TelecomRequest, error) {
	requests := make([]models.TelecomRequest, 0, len(mobiles))
	for _, m := range mobiles {
		requests = append(requests, models.TelecomRequest{
			CaseID:       c.ID,
			MobileNumber: LocalMobile(m),
			Provider:     DetectTSP(m),
			RequestType:  requestType,
			Status:       models.RequestStatusPending,
			Reason:       reason,
			CreatedByID:  actor.User.ID,
		})
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for i := range requests {
			r := &requests[i]
			if err := tx.Create(r).Error; err != nil {
				return fmt.Errorf("failed to create telecom request: %w", err)
			}
			err := RecordAuditEvent(tx, actor.Audit, AuditEvent{
				Action:       models.AuditActionCreateRequest,
				ResourceType: TelecomRequests.Resource,
				ResourceID:   r.ID,
				CaseID:       c.ID,
				Details:      fmt.Sprintf("%s request for %s (%s) on FIR %s", r.RequestType, r.MobileNumber, r.Provider, c.FIRNumber),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// CreateTelecomRequest files a pending request for one mobile number
func CreateTelecomRequest(db *gorm.DB, actor *Actor, input TelecomRequestInput) (*models.TelecomRequest, error) {
	requestType, reason, err := validateTelecomInput(input.RequestType, input.Reason)
	if err != nil {
		return nil, err
	}
	if err := ValidateMobileNumber(input.MobileNumber); err != nil {
		return nil, err
	}

	c, err := LoadCaseForActor(db, actor, input.CaseID)
	if err != nil {
		return nil, err
	}

	requests, err := createTelecomRequests(db, actor, c, requestType, reason, []string{input.MobileNumber})
	if err != nil {
		return nil, err
	}
	return &requests[0], nil
}

// TelecomBatchInput requests the same data for several numbers
type TelecomBatchInput struct {
	CaseID        string
	MobileNumbers []string
	RequestType   string
	Reason        string
}

// TelecomBatchResult lists the created requests grouped by provider
type TelecomBatchResult struct {
	Requests []models.TelecomRequest `json:"requests"`
	Groups   map[string][]string     `json:"groups"`
}

// CreateTelecomBatch files one request per number and reports the provider
// grouping used to prepare consolidated notices. Every number must be valid.
func CreateTelecomBatch(db *gorm.DB, actor *Actor, input TelecomBatchInput) (*TelecomBatchResult, error) {
	requestType, reason, err := validateTelecomInput(input.RequestType, input.Reason)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var mobiles []string
	for _, raw := range input.MobileNumbers {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if err := ValidateMobileNumber(raw); err != nil {
			return nil, NewValidationError("mobile_numbers", "invalid mobile number %q", raw)
		}
		local := LocalMobile(raw)
		if seen[local] {
			continue
		}
		seen[local] = true
		mobiles = append(mobiles, local)
	}
	if len(mobiles) == 0 {
		return nil, NewValidationError("mobile_numbers", "at least one mobile number is required")
	}

	c, err := LoadCaseForActor(db, actor, input.CaseID)
	if err != nil {
		return nil, err
	}

	requests, err := createTelecomRequests(db, actor, c, requestType, reason, mobiles)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]string)
	for _, r := range requests {
		groups[r.Provider] = append(groups[r.Provider], r.MobileNumber)
	}
	return &TelecomBatchResult{Requests: requests, Groups: groups}, nil
}

// ListTelecomRequests pages through requests on visible cases
func ListTelecomRequests(db *gorm.DB, actor *Actor, filters RequestFilters, page, pageSize int) ([]models.TelecomRequest, int64, error) {
	var requests []models.TelecomRequest
	total, err := listScopedRequests(db, actor, TelecomRequests, filters, page, pageSize, &requests)
	return requests, total, err
}

// GetTelecomRequest loads one request inside the actor's scope
func GetTelecomRequest(db *gorm.DB, actor *Actor, id string) (*models.TelecomRequest, error) {
	r, _, err := getTelecomRequest(db, actor, id)
	return r, err
}

func getTelecomRequest(db *gorm.DB, actor *Actor, id string) (*models.TelecomRequest, *models.Case, error) {
	var r models.TelecomRequest
	if err := db.First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to load telecom request: %w", err)
	}
	c, err := LoadCaseForActor(db, actor, r.CaseID)
	if err != nil {
		return nil, nil, err
	}
	return &r, c, nil
}

// DispatchTelecomRequest records that an approved notice was sent to the
// provider. SHO and above.
func DispatchTelecomRequest(db *gorm.DB, actor *Actor, id string) error {
	if err := requireRank(actor, models.RoleSHO); err != nil {
		return err
	}
	state, c, err := loadRequestState(db, actor, TelecomRequests, id)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		return transition(tx, actor, TelecomRequests, state, models.RequestStatusDispatched,
			map[string]interface{}{"dispatched_at": time.Now()},
			models.AuditActionDispatchRequest,
			fmt.Sprintf("Telecom request dispatched for FIR %s", c.FIRNumber))
	})
}

// AttachTelecomResponse stores the provider's reply encrypted and completes
// the request. SI and above.
func (v *EvidenceVault) AttachTelecomResponse(ctx context.Context, actor *Actor, id, filename string, size int64, content io.Reader) (*models.TelecomRequest, error) {
	if err := requireRank(actor, models.RoleSI); err != nil {
		return nil, err
	}
	state, c, err := loadRequestState(v.db, actor, TelecomRequests, id)
	if err != nil {
		return nil, err
	}
	if !models.IsValidRequestTransition(state.Status, models.RequestStatusCompleted) {
		return nil, fmt.Errorf("%w: only approved or dispatched requests accept a response", ErrInvalidTransition)
	}

	if err := v.policy.ValidateName(filename); err != nil {
		return nil, err
	}
	if err := v.policy.ValidateDeclaredSize(size); err != nil {
		return nil, err
	}
	data, err := v.policy.ReadAll(content)
	if err != nil {
		return nil, err
	}

	obj, err := v.seal(ctx, data, filename)
	if err != nil {
		var ie *IntegrityError
		if errors.As(err, &ie) {
			v.reportIntegrityFailure(ctx, actor, integrityIncident{
				ResourceType: "storage_object", ResourceID: EvidenceStorageKey(HashContent(data), filename),
				Case: c, Filename: filename, Err: ie,
			})
		}
		return nil, err
	}

	name := SanitizeFilename(filename)
	err = v.db.Transaction(func(tx *gorm.DB) error {
		return transition(tx, actor, TelecomRequests, state, models.RequestStatusCompleted,
			map[string]interface{}{
				"response_key":      obj.Key,
				"response_hash":     obj.Hash,
				"response_filename": name,
				"responded_at":      time.Now(),
			},
			models.AuditActionUploadResponse,
			fmt.Sprintf("Provider response %s attached for FIR %s", name, c.FIRNumber))
	})
	if err != nil {
		v.discard(ctx, obj)
		return nil, err
	}

	var r models.TelecomRequest
	if err := v.db.First(&r, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload telecom request: %w", err)
	}
	return &r, nil
}

// TelecomResponse is a verified provider reply
type TelecomResponse struct {
	Filename  string
	MediaType string
	Content   []byte
}

// OpenTelecomResponse returns the provider reply after verifying its digest
func (v *EvidenceVault) OpenTelecomResponse(ctx context.Context, actor *Actor, id string) (*TelecomResponse, error) {
	r, c, err := getTelecomRequest(v.db, actor, id)
	if err != nil {
		return nil, err
	}
	if r.ResponseKey == nil || r.ResponseHash == nil {
		return nil, fmt.Errorf("%w: no response has been uploaded", ErrNotFound)
	}
	filename := ""
	if r.ResponseFilename != nil {
		filename = *r.ResponseFilename
	}

	content, err := v.open(ctx, *r.ResponseKey, *r.ResponseHash)
	if err != nil {
		var ie *IntegrityError
		if errors.As(err, &ie) {
			v.reportIntegrityFailure(ctx, actor, integrityIncident{
				ResourceType: TelecomRequests.Resource, ResourceID: r.ID, Case: c, Filename: filename, Err: ie,
			})
		}
		return nil, err
	}

	if err := RecordAuditEvent(v.db, actor.Audit, AuditEvent{
		Action:       models.AuditActionDownloadResponse,
		ResourceType: TelecomRequests.Resource,
		ResourceID:   r.ID,
		CaseID:       r.CaseID,
		Details:      fmt.Sprintf("Downloaded provider response %s (hash verified)", filename),
	}); err != nil {
		return nil, err
	}

	return &TelecomResponse{Filename: filename, MediaType: MediaTypeFor(filename), Content: content}, nil
}
