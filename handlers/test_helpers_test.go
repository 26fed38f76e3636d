package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cyber_case_app_go/config"
	"cyber_case_app_go/db"
	"cyber_case_app_go/middleware"
	"cyber_case_app_go/models"
	"cyber_case_app_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []services.IntegrityAlert
}

func (n *recordingNotifier) NotifyIntegrityFailure(ctx context.Context, alert services.IntegrityAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique shared memory name to isolate tests
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	require.NoError(t, testDB.AutoMigrate(
		&models.User{},
		&models.Case{},
		&models.Evidence{},
		&models.TelecomRequest{},
		&models.FinancialEntity{},
		&models.TransactionEvent{},
		&models.BankRequest{},
		&models.NPCIRequest{},
		&models.FreezeRequest{},
		&models.AuditLog{},
	))

	// Set global DB
	db.DB = testDB
	return testDB
}

type testApp struct {
	db       *gorm.DB
	e        *echo.Echo
	h        *Handler
	cfg      *config.Config
	storeDir string
	alerts   *recordingNotifier
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	testDB := setupTestDB(t)

	cfg := &config.Config{
		Environment:      "test",
		UnsetScopePolicy: config.UnsetScopeClosed,
		ScopeDenialMode:  config.ScopeDenialNotFound,
		GeoLookupURL:     "http://127.0.0.1:1/%s",
		GeoLookupTimeout: time.Second,
	}

	key, err := services.GenerateEncryptionKey()
	require.NoError(t, err)
	cipher, err := services.NewEvidenceCipherFromBase64(key)
	require.NoError(t, err)

	dir := t.TempDir()
	alerts := &recordingNotifier{}
	policy := services.UploadPolicy{AllowedExtensions: []string{".csv", ".pdf", ".txt", ".xlsx"}, MaxBytes: 1024}

	h := &Handler{
		Config:  cfg,
		Vault:   services.NewEvidenceVault(testDB, services.NewLocalStorage(dir), cipher, policy, alerts),
		Tokens:  services.NewTokenIssuer("handler-test-signing-key-0123456789", time.Hour),
		Search:  services.NewSearchService(testDB),
		Locator: services.NewIPLocator(cfg),
	}

	e := echo.New()
	h.Routes(e, middleware.NewLoginRateLimiter(5))

	return &testApp{db: testDB, e: e, h: h, cfg: cfg, storeDir: dir, alerts: alerts}
}

var (
	kotwali    = models.User{StationName: "Kotwali", SubDivision: "Sadar", DistrictName: "Lucknow", RangeName: "Lucknow Range", ZoneName: "Central Zone"}
	civilLines = models.User{StationName: "Civil Lines", SubDivision: "City North", DistrictName: "Prayagraj", RangeName: "Prayagraj Range", ZoneName: "Central Zone"}
)

func (a *testApp) officer(t *testing.T, username string, role models.Role, posting models.User) *models.User {
	t.Helper()
	hashed, err := services.HashPassword("pass1234")
	require.NoError(t, err)
	u := &models.User{
		Username:       username,
		FullName:       username,
		HashedPassword: hashed,
		Role:           role,
		IsActive:       true,
		StationName:    posting.StationName,
		SubDivision:    posting.SubDivision,
		DistrictName:   posting.DistrictName,
		RangeName:      posting.RangeName,
		ZoneName:       posting.ZoneName,
	}
	require.NoError(t, a.db.Create(u).Error)
	return u
}

func (a *testApp) caseAt(t *testing.T, fir string, owner *models.User) *models.Case {
	t.Helper()
	c := &models.Case{
		FIRNumber:      fir,
		CaseType:       models.CaseTypeUPIFraud,
		AmountInvolved: decimal.NewFromInt(25000),
		Status:         models.CaseStatusActive,
		OwnerID:        owner.ID,
		PoliceStation:  owner.StationName,
		SubDivision:    owner.SubDivision,
		DistrictName:   owner.DistrictName,
		RangeName:      owner.RangeName,
		ZoneName:       owner.ZoneName,
	}
	require.NoError(t, a.db.Create(c).Error)
	return c
}

func (a *testApp) token(t *testing.T, u *models.User) string {
	t.Helper()
	token, _, err := a.h.Tokens.Issue(u)
	require.NoError(t, err)
	return token
}

// do sends a request through the full router as user (nil for anonymous)
func (a *testApp) do(t *testing.T, method, path string, body io.Reader, contentType string, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if user != nil {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.token(t, user))
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) doJSON(t *testing.T, method, path string, payload interface{}, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return a.do(t, method, path, body, echo.MIMEApplicationJSON, user)
}

type upload struct {
	field, name string
	content     []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func auditCount(t *testing.T, testDB *gorm.DB, action models.AuditAction) int64 {
	t.Helper()
	var n int64
	require.NoError(t, testDB.Model(&models.AuditLog{}).Where("action = ?", action).Count(&n).Error)
	return n
}
