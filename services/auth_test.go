package services

import (
	"testing"
	"time"

	"cyber_case_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("Kotwali2024")
	require.NoError(t, err)
	assert.NotEqual(t, "Kotwali2024", hash)
	assert.True(t, CheckPassword("Kotwali2024", hash))
	assert.False(t, CheckPassword("kotwali2024", hash))
}

func TestAuthenticate(t *testing.T) {
	db := setupServiceDB(t)
	admin := &models.User{Role: models.RoleAdmin, Username: "root"}
	_, err := CreateUser(db, AuditContextFor(admin), RegisterInput{
		Username: "si_verma", Password: "pin1234", Role: "si", StationName: "Kotwali",
	})
	require.NoError(t, err)

	ctx := AuditContext{IPAddress: "10.0.0.5"}

	t.Run("success", func(t *testing.T) {
		user, err := Authenticate(db, "si_verma", "pin1234", ctx)
		require.NoError(t, err)
		assert.Equal(t, models.RoleSI, user.Role)
		require.NotNil(t, user.LastLoginAt)
		assert.Equal(t, int64(1), countAudit(t, db, models.AuditActionLogin))
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		_, err := Authenticate(db, "si_verma", "wrong", ctx)
		assert.ErrorIs(t, err, ErrInvalidCredential)
		_, err = Authenticate(db, "ghost", "pin1234", ctx)
		assert.ErrorIs(t, err, ErrInvalidCredential)
		assert.Equal(t, int64(2), countAudit(t, db, models.AuditActionLoginFailed))
	})

	t.Run("inactive user", func(t *testing.T) {
		require.NoError(t, db.Model(&models.User{}).Where("username = ?", "si_verma").Update("is_active", false).Error)
		_, err := Authenticate(db, "si_verma", "pin1234", ctx)
		assert.ErrorIs(t, err, ErrInactiveUser)
	})
}

func TestRegisterUser(t *testing.T) {
	db := setupServiceDB(t)
	admin := createOfficer(t, db, "admin", models.RoleAdmin, posting{})
	sho := createOfficer(t, db, "sho", models.RoleSHO, kotwali)

	input := RegisterInput{Username: "ct_ram", Password: "abcd12", FullName: "Ram Singh", Role: "constable", StationName: "Kotwali"}

	_, err := RegisterUser(db, actorFor(sho), input)
	assert.ErrorIs(t, err, ErrRoleNotPermitted)

	user, err := RegisterUser(db, actorFor(admin), input)
	require.NoError(t, err)
	assert.Equal(t, models.RoleConstable, user.Role)
	assert.Equal(t, "Kotwali", user.StationName)
	assert.Nil(t, user.BadgeNumber)

	_, err = RegisterUser(db, actorFor(admin), input)
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	input.Username, input.Role = "someone", "inspector"
	_, err = RegisterUser(db, actorFor(admin), input)
	assert.True(t, IsValidationError(err))

	assert.Equal(t, int64(1), countAudit(t, db, models.AuditActionRegisterUser))
}

func TestChangePassword(t *testing.T) {
	db := setupServiceDB(t)
	admin := &models.User{Role: models.RoleAdmin}
	user, err := CreateUser(db, AuditContextFor(admin), RegisterInput{Username: "hc_das", Password: "old123", Role: "head_constable"})
	require.NoError(t, err)
	actor := actorFor(user)

	assert.True(t, IsValidationError(ChangePassword(db, actor, "nope", "new123")))
	assert.True(t, IsValidationError(ChangePassword(db, actor, "old123", "old123")))
	assert.True(t, IsValidationError(ChangePassword(db, actor, "old123", "ab")))
	assert.True(t, IsValidationError(ChangePassword(db, actor, "old123", "has space")))

	require.NoError(t, ChangePassword(db, actor, "old123", "new123"))

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.True(t, CheckPassword("new123", stored.HashedPassword))
	assert.Equal(t, int64(1), countAudit(t, db, models.AuditActionPasswordChange))
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("a-test-secret-that-is-long-enough-32", 30*time.Minute)
	user := &models.User{Username: "si_verma", Role: models.RoleSI}

	token, expires, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expires, 5*time.Second)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "si_verma", claims.Subject)
	assert.Equal(t, "si", claims.Role)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer("another-secret-that-is-long-enough-32", time.Minute)
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewTokenIssuer("a-test-secret-that-is-long-enough-32", -time.Minute)
		old, _, err := expired.Issue(user)
		require.NoError(t, err)
		_, err = issuer.Parse(old)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
