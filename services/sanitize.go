package services

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

const maxTextLength = 5000

var (
	strictPolicy = bluemonday.StrictPolicy()

	mobilePattern   = regexp.MustCompile(`^(\+91|91)?[6-9]\d{9}$`)
	mobileStrip     = regexp.MustCompile(`[\s\-()]`)
	firPattern      = regexp.MustCompile(`^[A-Z0-9\-/]+$`)
	accountPattern  = regexp.MustCompile(`^\d{9,18}$`)
	alnumPassword   = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{3,50}$`)
)

// SanitizeText strips markup and control characters from free text and
// bounds its length. Newlines and tabs survive.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	if len(text) > maxTextLength {
		text = text[:maxTextLength]
	}
	text = strings.ReplaceAll(text, "\x00", "")
	text = strictPolicy.Sanitize(text)
	// StrictPolicy escapes entities; keep the stored value readable
	text = html.UnescapeString(text)

	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, text)

	return strings.TrimSpace(text)
}

// NormalizeMobile removes separators from a mobile number
func NormalizeMobile(mobile string) string {
	return mobileStrip.ReplaceAllString(strings.TrimSpace(mobile), "")
}

// ValidateMobileNumber accepts 10-digit Indian mobiles with optional +91/91 prefix
func ValidateMobileNumber(mobile string) error {
	if !mobilePattern.MatchString(NormalizeMobile(mobile)) {
		return NewValidationError("mobile_number", "invalid mobile number format, use a 10-digit Indian mobile number")
	}
	return nil
}

// ValidateFIRNumber checks FIR length and characters
func ValidateFIRNumber(fir string) error {
	switch {
	case len(fir) < 3:
		return NewValidationError("fir_number", "FIR number is too short")
	case len(fir) > 50:
		return NewValidationError("fir_number", "FIR number is too long")
	case !firPattern.MatchString(strings.ToUpper(fir)):
		return NewValidationError("fir_number", "FIR number contains invalid characters")
	}
	return nil
}

// ValidateAccountNumber accepts 9 to 18 digit bank account numbers
func ValidateAccountNumber(account string) error {
	if !accountPattern.MatchString(account) {
		return NewValidationError("account_number", "account number must be 9 to 18 digits")
	}
	return nil
}

// ValidateUsername checks username characters and length
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return NewValidationError("username", "username must be 3-50 letters, digits, dots, dashes or underscores")
	}
	return nil
}
