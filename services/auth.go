package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cyber_case_app_go/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BcryptCost is the cost factor for bcrypt hashing
const BcryptCost = 10

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword verifies a password against a hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// timingHash is compared against when the username is unknown so both
// failure paths cost one bcrypt comparison
var timingHash, _ = HashPassword("timing-mitigation-placeholder")

// Authenticate checks credentials and stamps the login time. Both outcomes
// are audited; the message never says which half was wrong.
func Authenticate(db *gorm.DB, username, password string, audit AuditContext) (*models.User, error) {
	username = strings.TrimSpace(username)

	var user models.User
	err := db.Where("username = ?", username).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err != nil {
		CheckPassword(password, timingHash)
	}
	if err != nil || !CheckPassword(password, user.HashedPassword) {
		RecordLoginAttempt("failure")
		audit.UserName = username
		LogSecurityEvent(db, audit, models.AuditActionLoginFailed, "user", user.ID, "invalid credentials")
		return nil, ErrInvalidCredential
	}

	audit.UserID, audit.UserName, audit.UserRole = user.ID, user.Username, string(user.Role)
	if !user.IsActive {
		RecordLoginAttempt("inactive")
		LogSecurityEvent(db, audit, models.AuditActionLoginFailed, "user", user.ID, "inactive account")
		return nil, ErrInactiveUser
	}

	now := time.Now()
	if err := db.Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	user.LastLoginAt = &now

	RecordLoginAttempt("success")
	if err := RecordAuditEvent(db, audit, AuditEvent{
		Action:       models.AuditActionLogin,
		ResourceType: "user",
		ResourceID:   user.ID,
		Details:      "User logged in",
	}); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword replaces the actor's password after checking the old one
func ChangePassword(db *gorm.DB, actor *Actor, oldPassword, newPassword string) error {
	if !CheckPassword(oldPassword, actor.User.HashedPassword) {
		return NewValidationError("old_password", "current password is incorrect")
	}
	if oldPassword == newPassword {
		return NewValidationError("new_password", "new password must differ from the current one")
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hashed, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(actor.User).Update("hashed_password", hashed).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return RecordAuditEvent(tx, actor.Audit, AuditEvent{
			Action:       models.AuditActionPasswordChange,
			ResourceType: "user",
			ResourceID:   actor.User.ID,
			Details:      "Password changed",
		})
	})
}

// RegisterInput describes a new officer account
type RegisterInput struct {
	Username     string
	Password     string
	FullName     string
	Role         string
	BadgeNumber  string
	StationName  string
	SubDivision  string
	DistrictName string
	RangeName    string
	ZoneName     string
	StateName    string
}

// RegisterUser creates an account. Admin only.
func RegisterUser(db *gorm.DB, actor *Actor, input RegisterInput) (*models.User, error) {
	if err := RequireRole(actor.User, models.RoleAdmin); err != nil {
		return nil, fmt.Errorf("%w: only administrators can register users", err)
	}
	return CreateUser(db, actor.Audit, input)
}

// CreateUser validates and stores a new account. It is shared by the
// registration endpoint and the bootstrap command.
func CreateUser(db *gorm.DB, audit AuditContext, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if !models.IsValidRole(input.Role) {
		return nil, NewValidationError("role", "unknown role %q", input.Role)
	}

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateUsername
	}

	hashed, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:       username,
		FullName:       SanitizeText(input.FullName),
		HashedPassword: hashed,
		Role:           models.Role(input.Role),
		IsActive:       true,
		BadgeNumber:    ptrIfNotEmpty(strings.TrimSpace(input.BadgeNumber)),
		StationName:    SanitizeText(input.StationName),
		SubDivision:    SanitizeText(input.SubDivision),
		DistrictName:   SanitizeText(input.DistrictName),
		RangeName:      SanitizeText(input.RangeName),
		ZoneName:       SanitizeText(input.ZoneName),
		StateName:      SanitizeText(input.StateName),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return RecordAuditEvent(tx, audit, AuditEvent{
			Action:       models.AuditActionRegisterUser,
			ResourceType: "user",
			ResourceID:   user.ID,
			Details:      fmt.Sprintf("Registered %s as %s", user.Username, user.Role),
			NewValues:    map[string]string{"role": string(user.Role), "station_name": user.StationName},
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns every account ordered by username
func ListUsers(db *gorm.DB, page, pageSize int) ([]models.User, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := db.Order("username ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error
	return users, total, err
}
