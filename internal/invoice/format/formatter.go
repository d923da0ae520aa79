// Package format builds and parses human-readable invoice identifiers.
//
// Every function here is pure: no database access and no clock reads.
package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SuffixWidth is the fixed width of the numeric sequence suffix.
	SuffixWidth = 4
	// MaxSuffix is the largest sequence that fits SuffixWidth digits.
	MaxSuffix = 9999

	dayPrefixMarker = "INV"
)

// Layouts accepted by DayPrefix.
const (
	LayoutDDMMYY   = "020106"
	LayoutYYYYMMDD = "20060102"
)

var (
	ErrSuffixOutOfRange        = errors.New("suffix_out_of_range")
	ErrInvalidIdentifierFormat = errors.New("invalid_identifier_format")
)

// PeriodPrefix returns MMM-YYDD, where DD is the day of month.
// 2025-01-07 yields JAN-2507.
func PeriodPrefix(date time.Time) string {
	return strings.ToUpper(date.Format("Jan")) + "-" + date.Format("06") + date.Format("02")
}

// DayPrefix returns INV followed by the date in layout. An empty layout
// falls back to LayoutDDMMYY.
func DayPrefix(date time.Time, layout string) string {
	if strings.TrimSpace(layout) == "" {
		layout = LayoutDDMMYY
	}
	return dayPrefixMarker + date.Format(layout)
}

// BillIDPrefix is the prefix shared by every bill ID created on date.
func BillIDPrefix(date time.Time, layout string) string {
	return DayPrefix(date, layout) + "-"
}

// FormatSuffix zero pads n to SuffixWidth digits.
func FormatSuffix(n int) (string, error) {
	if n < 1 || n > MaxSuffix {
		return "", fmt.Errorf("%w: %d", ErrSuffixOutOfRange, n)
	}
	return fmt.Sprintf("%0*d", SuffixWidth, n), nil
}

// ParseSuffix reads the trailing SuffixWidth characters of identifier as an
// unsigned decimal.
func ParseSuffix(identifier string) (int, error) {
	if len(identifier) < SuffixWidth {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifierFormat, identifier)
	}
	tail := identifier[len(identifier)-SuffixWidth:]
	for _, r := range tail {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifierFormat, identifier)
		}
	}
	n, err := strconv.Atoi(tail)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifierFormat, identifier)
	}
	return n, nil
}

// Compose joins prefix and the formatted suffix for n.
func Compose(prefix string, n int) (string, error) {
	suffix, err := FormatSuffix(n)
	if err != nil {
		return "", err
	}
	return prefix + suffix, nil
}
