/*
clock.go - Wall-clock and calendar primitives

PURPOSE:
  Parsing and arithmetic for the three time shapes the engine deals with:
  - MinuteOfDay: HH:MM wall-clock times (record start/end)
  - Dates: YYYY-MM-DD calendar days (opaque strings past validation)
  - Months: YYYY-MM prefixes used for goals and aggregation

THE WRAP RULE:
  A record's total is the wrapped difference between end and start:

    totalMinutes = (end - start + 1440) mod 1440

  A negative raw difference means the interval crossed midnight, so 24h
  is added. 22:00-06:00 is 8 hours, not -16. start == end is rejected:
  zero-length records are invalid, and a full 24h shift must be split.

SEE ALSO:
  - ledger.go: Applies the wrap rule on create/update
*/
package hours

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MINUTE OF DAY - HH:MM wall-clock times
// =============================================================================

const minutesPerDay = 24 * 60

// MinuteOfDay is a wall-clock time as minutes since midnight, [0, 1440).
type MinuteOfDay int

// ParseClock parses an HH:MM string into a MinuteOfDay. The shape is
// checked byte by byte: no leading whitespace, no trailing garbage, no
// single-digit hours.
func ParseClock(s string) (MinuteOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, invalid("time", fmt.Sprintf("%q is not HH:MM", s))
	}
	for _, i := range [...]int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, invalid("time", fmt.Sprintf("%q is not HH:MM", s))
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, invalid("time", fmt.Sprintf("%q is out of range", s))
	}
	return MinuteOfDay(h*60 + m), nil
}

func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

var sixty = decimal.NewFromInt(60)

// WrappedHours computes the interval length in hours, treating a negative
// raw difference as crossing midnight.
func WrappedHours(start, end MinuteOfDay) decimal.Decimal {
	mins := (int(end) - int(start) + minutesPerDay) % minutesPerDay
	return decimal.NewFromInt(int64(mins)).Div(sixty)
}

// =============================================================================
// DATES AND MONTHS
// =============================================================================

// ParseDate validates a YYYY-MM-DD calendar date and returns it normalized.
func ParseDate(s string) (string, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", invalid("date", fmt.Sprintf("%q is not YYYY-MM-DD", s))
	}
	return t.Format("2006-01-02"), nil
}

// ParseMonth validates a YYYY-MM month and returns it normalized.
func ParseMonth(s string) (string, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return "", invalid("month", fmt.Sprintf("%q is not YYYY-MM", s))
	}
	return t.Format("2006-01"), nil
}

// MonthOf returns the YYYY-MM prefix of a valid YYYY-MM-DD date.
func MonthOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}
