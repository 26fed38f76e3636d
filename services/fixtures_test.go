package services

import (
	"fmt"
	"testing"

	"cyber_case_app_go/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// posting is an officer's place in the hierarchy
type posting struct {
	Station     string
	SubDivision string
	District    string
	Range       string
	Zone        string
}

var (
	kotwali    = posting{"Kotwali", "Sadar", "Lucknow", "Lucknow Range", "Central Zone"}
	civilLines = posting{"Civil Lines", "City North", "Prayagraj", "Prayagraj Range", "Central Zone"}
	hazratganj = posting{"Hazratganj", "Sadar", "Lucknow", "Lucknow Range", "Central Zone"}
	cantonment = posting{"Cantonment", "Cantt", "Varanasi", "Varanasi Range", "Eastern Zone"}
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:mem_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
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
	return db
}

func createOfficer(t *testing.T, db *gorm.DB, username string, role models.Role, p posting) *models.User {
	t.Helper()
	u := &models.User{
		Username:       username,
		FullName:       username,
		HashedPassword: "x",
		Role:           role,
		IsActive:       true,
		StationName:    p.Station,
		SubDivision:    p.SubDivision,
		DistrictName:   p.District,
		RangeName:      p.Range,
		ZoneName:       p.Zone,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createCase(t *testing.T, db *gorm.DB, fir string, owner *models.User, p posting) *models.Case {
	t.Helper()
	c := &models.Case{
		FIRNumber:      fir,
		CaseType:       models.CaseTypeUPIFraud,
		AmountInvolved: decimal.NewFromInt(25000),
		Status:         models.CaseStatusActive,
		OwnerID:        owner.ID,
		PoliceStation:  p.Station,
		SubDivision:    p.SubDivision,
		DistrictName:   p.District,
		RangeName:      p.Range,
		ZoneName:       p.Zone,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func actorFor(u *models.User) *Actor {
	return NewActor(u, ScopePolicy{})
}

func countAudit(t *testing.T, db *gorm.DB, action models.AuditAction) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("action = ?", action).Count(&n).Error)
	return n
}

func strPtr(s string) *string {
	return &s
}
