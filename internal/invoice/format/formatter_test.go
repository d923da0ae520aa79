package format

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodPrefixUsesDayOfMonth(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC), "JAN-2507"},
		{time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC), "DEC-2531"},
		{time.Date(2009, time.February, 1, 0, 0, 0, 0, time.UTC), "FEB-0901"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PeriodPrefix(tc.date))
	}
}

func TestDayPrefixLayouts(t *testing.T) {
	date := time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "INV040325", DayPrefix(date, LayoutDDMMYY))
	assert.Equal(t, "INV040325", DayPrefix(date, ""))
	assert.Equal(t, "INV20250304", DayPrefix(date, LayoutYYYYMMDD))
	assert.Equal(t, "INV040325-", BillIDPrefix(date, LayoutDDMMYY))
}

func TestFormatSuffix(t *testing.T) {
	got, err := FormatSuffix(7)
	require.NoError(t, err)
	assert.Equal(t, "0007", got)

	got, err = FormatSuffix(MaxSuffix)
	require.NoError(t, err)
	assert.Equal(t, "9999", got)

	_, err = FormatSuffix(10000)
	assert.True(t, errors.Is(err, ErrSuffixOutOfRange))

	_, err = FormatSuffix(0)
	assert.True(t, errors.Is(err, ErrSuffixOutOfRange))
}

func TestParseSuffix(t *testing.T) {
	n, err := ParseSuffix("JAN-25070042")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = ParseSuffix("0000")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for _, bad := range []string{"", "123", "JAN-2507ABCD", "JAN-2507+123", "JAN-2507-001"} {
		_, err := ParseSuffix(bad)
		assert.Truef(t, errors.Is(err, ErrInvalidIdentifierFormat), "input %q", bad)
	}
}

func TestComposeRoundTrip(t *testing.T) {
	prefix := PeriodPrefix(time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC))
	for _, n := range []int{1, 8, 123, 9999} {
		id, err := Compose(prefix, n)
		require.NoError(t, err)
		assert.Len(t, id, len(prefix)+SuffixWidth)

		parsed, err := ParseSuffix(id)
		require.NoError(t, err)
		assert.Equal(t, n, parsed)
	}

	_, err := Compose(prefix, 10000)
	assert.ErrorIs(t, err, ErrSuffixOutOfRange)
}
