package server

import (
	"errors"
	"strings"
	"time"
)

const (
	dateOnlyLayout = "2006-01-02"
	dayFirstLayout = "02-01-2006"
)

var errInvalidTime = errors.New("invalid_time")

// parseCalendarDate accepts DD-MM-YYYY first, then YYYY-MM-DD and RFC 3339.
func parseCalendarDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, errInvalidTime
	}
	for _, layout := range []string{dayFirstLayout, dateOnlyLayout, time.RFC3339} {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errInvalidTime
}

func parseOptionalCalendarDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := parseCalendarDate(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
