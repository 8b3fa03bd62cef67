/*
Package hours provides the hours accounting and approval engine.

PURPOSE:
  This package contains the logic-dense core of the hours bank: the time
  ledger (dated work/time-off intervals and their totals), the approval
  state machine for monthly goals and hour conversions, and the
  extra-hours aggregator that rolls everything into a single available
  balance per user.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeRecord: One logged work or time-off interval
  - MonthlyGoal: A requested/approved hour target for a calendar month
  - HourConversion: A request to redeem extra hours as money or time off
  - AccumulatedHours: Derived per-user rollup (never persisted)

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every hour and money amount
  2. Explicit callers: every mutation takes an identity.Principal
  3. Derived values: AccumulatedHours is recomputed, never stored
  4. External system of record: the store is the only shared state

SEE ALSO:
  - clock.go: HH:MM parsing and the midnight wrap rule
  - ledger.go: TimeRecord lifecycle and daily/monthly totals
  - approval.go: Goal/conversion submission and decisions
  - aggregate.go: AccumulatedHours computation and conversion caps
*/
package hours

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RECORD TYPES
// =============================================================================

type RecordType string

const (
	RecordWork    RecordType = "work"
	RecordTimeOff RecordType = "time_off"
)

func (t RecordType) Valid() bool { return t == RecordWork || t == RecordTimeOff }

// TimeRecord is one logged interval. Start/End are minutes-of-day parsed
// from HH:MM; TotalHours is derived via the wrap rule and kept in sync by
// the ledger on every create/update.
type TimeRecord struct {
	ID          string
	UserID      string
	Name        string // display label, informational
	Date        string // YYYY-MM-DD
	Type        RecordType
	Start       MinuteOfDay
	End         MinuteOfDay
	TotalHours  decimal.Decimal
	Description string
	CreatedAt   time.Time
}

// Month returns the YYYY-MM prefix of the record's date.
func (r TimeRecord) Month() string { return MonthOf(r.Date) }

// =============================================================================
// MONTHLY GOAL
// =============================================================================

// MaxGoalHours is the ceiling on a monthly goal: hours in a 31-day month.
const MaxGoalHours = 744

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// MonthlyGoal is a requested or approved hour target for one calendar
// month. Several historical requests may exist for the same (user, month);
// only the most recently approved one is authoritative for accounting.
type MonthlyGoal struct {
	ID          string
	UserID      string
	Month       string // YYYY-MM
	HoursGoal   decimal.Decimal
	Status      Status
	RequestedBy string
	ApprovedBy  *string
	ApprovedAt  *time.Time
	CreatedAt   time.Time
}

// =============================================================================
// HOUR CONVERSION
// =============================================================================

type ConversionType string

const (
	ConversionMoney   ConversionType = "money"
	ConversionTimeOff ConversionType = "time_off"
)

func (t ConversionType) Valid() bool { return t == ConversionMoney || t == ConversionTimeOff }

// HourConversion redeems accumulated extra hours as money or reserved
// time off. SourceRecordID links the pre-approved conversions that the
// ledger generates automatically for time_off records.
type HourConversion struct {
	ID             string
	UserID         string
	Hours          decimal.Decimal
	Amount         decimal.Decimal // money value; zero for time_off
	Type           ConversionType
	Date           string // YYYY-MM-DD
	Status         Status
	RequestedBy    string
	ApprovedBy     *string
	ApprovedAt     *time.Time
	SourceRecordID string
	CreatedAt      time.Time
}

// =============================================================================
// ACCUMULATED HOURS - Derived rollup, never persisted
// =============================================================================

// AccumulatedHours is the per-user rollup combining the ledger, approved
// goals, and approved conversions.
//
// Available is the RAW value and may be negative (an admin can
// force-approve conversions past the balance). Display clamping to zero
// is a presentation concern; callers that need it use DisplayAvailable.
type AccumulatedHours struct {
	UserID           string
	TotalExtra       decimal.Decimal
	ConvertedToMoney decimal.Decimal
	UsedForTimeOff   decimal.Decimal
	Available        decimal.Decimal
	Months           []MonthExtra
}

// DisplayAvailable clamps the available balance at zero for presentation.
func (a AccumulatedHours) DisplayAvailable() decimal.Decimal {
	if a.Available.IsNegative() {
		return decimal.Zero
	}
	return a.Available
}

// MonthExtra is one month's contribution to the rollup.
type MonthExtra struct {
	Month string // YYYY-MM
	Net   decimal.Decimal
	Goal  decimal.Decimal // zero when no approved goal
	Extra decimal.Decimal // positive excess over the goal, zero otherwise
}
