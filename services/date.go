package services

import (
	"time"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// ParseDate parses an optional YYYY-MM-DD or RFC 3339 value. An empty value
// yields nil; anything else that does not parse is a ValidationError on field.
func ParseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, NewValidationError(field, "invalid date %q, expected YYYY-MM-DD", value)
}

// EndOfDay returns the last second of t's day
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
