package services

// Password/PIN requirements: length and charset only
const (
	MinPasswordLength = 4
	MaxPasswordLength = 20
)

// ValidatePassword checks if the password meets the policy
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return NewValidationError("password", "password/PIN must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return NewValidationError("password", "password/PIN must not exceed %d characters", MaxPasswordLength)
	}
	if !alnumPassword.MatchString(password) {
		return NewValidationError("password", "password/PIN must contain only letters and numbers")
	}
	return nil
}
