package shared

import (
	"strings"
	"time"
)

// DateOnly is the wire format for calendar dates.
const DateOnly = "2006-01-02"

// ParseDate reads a calendar date, accepting a bare date or a full
// RFC3339 timestamp. Empty input parses to the zero time without error.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateOnly, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
