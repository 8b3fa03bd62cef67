package hours_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/hours-bank/hours"
)

// =============================================================================
// CLOCK PARSING TESTS
// =============================================================================

func TestParseClock_Valid(t *testing.T) {
	cases := []struct {
		in   string
		want hours.MinuteOfDay
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"18:30", 1110},
		{"23:59", 1439},
	}
	for _, tc := range cases {
		got, err := hours.ParseClock(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.in, got.String())
	}
}

func TestParseClock_Invalid(t *testing.T) {
	for _, in := range []string{"", "9:00", "24:00", "12:60", "12-30", "12:345"} {
		_, err := hours.ParseClock(in)
		assert.ErrorIs(t, err, hours.ErrValidation, in)
	}
}

func TestParseClock_RejectsPartialMatches(t *testing.T) {
	// Inputs where only a prefix or suffix scans as a number must not
	// slip through as a shorter time.
	for _, in := range []string{"12:3a", "1a:30", " 9:00", "09:0 ", "+2:30", "12:-5"} {
		_, err := hours.ParseClock(in)
		assert.ErrorIs(t, err, hours.ErrValidation, in)
	}
}

// =============================================================================
// WRAP RULE TESTS
// =============================================================================

func TestWrappedHours_SameDay(t *testing.T) {
	// GIVEN: A plain 09:00-18:00 working day
	start, _ := hours.ParseClock("09:00")
	end, _ := hours.ParseClock("18:00")

	// THEN: 9 hours
	assert.Equal(t, "9", hours.WrappedHours(start, end).String())
}

func TestWrappedHours_CrossesMidnight(t *testing.T) {
	// GIVEN: A night shift from 22:00 to 06:00
	start, _ := hours.ParseClock("22:00")
	end, _ := hours.ParseClock("06:00")

	// THEN: 8 hours, not -16
	assert.Equal(t, "8", hours.WrappedHours(start, end).String())
}

func TestWrappedHours_FractionalHours(t *testing.T) {
	// GIVEN: 09:15 to 17:45
	start, _ := hours.ParseClock("09:15")
	end, _ := hours.ParseClock("17:45")

	// THEN: 8.5 hours, exact
	assert.True(t, hours.WrappedHours(start, end).Equal(dec("8.5")))
}

// =============================================================================
// DATE AND MONTH PARSING TESTS
// =============================================================================

func TestParseDate(t *testing.T) {
	date, err := hours.ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", date)
	assert.Equal(t, "2025-03", hours.MonthOf(date))

	for _, in := range []string{"", "2025-3-10", "2025-13-01", "10/03/2025"} {
		_, err := hours.ParseDate(in)
		assert.ErrorIs(t, err, hours.ErrValidation, in)
	}
}

func TestParseMonth(t *testing.T) {
	month, err := hours.ParseMonth("2025-03")
	require.NoError(t, err)
	assert.Equal(t, "2025-03", month)

	for _, in := range []string{"", "2025-3", "2025-00", "2025-03-10"} {
		_, err := hours.ParseMonth(in)
		assert.ErrorIs(t, err, hours.ErrValidation, in)
	}
}
