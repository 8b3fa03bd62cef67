/*
aggregate.go - Extra-hours aggregator

PURPOSE:
  Computes the per-user AccumulatedHours rollup on demand:

    1. Group the user's records by month; net = work - time_off.
    2. For each month, look up the authoritative approved goal.
    3. A month contributes (net - goal) when net > goal AND goal > 0.
       No approved goal means no extra hours for that month, however
       much was worked: there is no target to exceed.
    4. ConvertedToMoney = approved money conversions.
    5. UsedForTimeOff  = approved time_off conversions (explicit and
       auto-generated alike; both carry status approved).
    6. Available = TotalExtra - ConvertedToMoney - UsedForTimeOff, RAW.
       May go negative when an admin force-approves past the balance;
       clamping to zero is presentation-only (DisplayAvailable).

  The rollup is recomputed from the store on every call. Nothing is
  incrementally maintained and nothing is cached.

SEE ALSO:
  - ledger.go: MonthlyNet grouping
  - approval.go: Uses ValidateConversion to cap new requests
*/
package hours

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator computes AccumulatedHours rollups. It is a pure function
// over the store and holds no state of its own.
type Aggregator struct {
	Store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{Store: store}
}

// Accumulated computes the full rollup for one user.
func (a *Aggregator) Accumulated(ctx context.Context, userID string) (*AccumulatedHours, error) {
	return a.accumulated(ctx, a.Store, userID)
}

// accumulated is the store-parameterized implementation so conversion
// submission can run it inside a transaction (see approval.go).
func (a *Aggregator) accumulated(ctx context.Context, s Store, userID string) (*AccumulatedHours, error) {
	records, err := s.ListRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	months, net := MonthlyNet(records)

	acc := &AccumulatedHours{
		UserID:           userID,
		TotalExtra:       decimal.Zero,
		ConvertedToMoney: decimal.Zero,
		UsedForTimeOff:   decimal.Zero,
	}

	for _, month := range months {
		goal, err := s.AuthoritativeGoal(ctx, userID, month)
		if err != nil {
			return nil, fmt.Errorf("load goal for %s: %w", month, err)
		}

		entry := MonthExtra{Month: month, Net: net[month], Goal: decimal.Zero, Extra: decimal.Zero}
		if goal != nil {
			entry.Goal = goal.HoursGoal
		}
		if entry.Goal.IsPositive() && entry.Net.GreaterThan(entry.Goal) {
			entry.Extra = entry.Net.Sub(entry.Goal)
			acc.TotalExtra = acc.TotalExtra.Add(entry.Extra)
		}
		acc.Months = append(acc.Months, entry)
	}

	conversions, err := s.ListConversions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load conversions: %w", err)
	}
	for _, c := range conversions {
		if c.Status != StatusApproved {
			continue
		}
		switch c.Type {
		case ConversionMoney:
			acc.ConvertedToMoney = acc.ConvertedToMoney.Add(c.Hours)
		case ConversionTimeOff:
			acc.UsedForTimeOff = acc.UsedForTimeOff.Add(c.Hours)
		}
	}

	acc.Available = acc.TotalExtra.Sub(acc.ConvertedToMoney).Sub(acc.UsedForTimeOff)
	return acc, nil
}

// =============================================================================
// CONVERSION VALIDATION
// =============================================================================

// ValidateConversion checks a new conversion request against the balance
// recomputed at call time. The hours bound only protects against honest
// overdraw; admins decide pending requests regardless of balance.
func (a *Aggregator) ValidateConversion(ctx context.Context, userID string, hoursRequested decimal.Decimal, kind ConversionType, amount decimal.Decimal) error {
	return a.validateConversion(ctx, a.Store, userID, hoursRequested, kind, amount)
}

func (a *Aggregator) validateConversion(ctx context.Context, s Store, userID string, hoursRequested decimal.Decimal, kind ConversionType, amount decimal.Decimal) error {
	if !kind.Valid() {
		return invalid("type", fmt.Sprintf("%q is not money or time_off", kind))
	}
	if !hoursRequested.IsPositive() {
		return invalid("hours", "must be greater than zero")
	}
	if kind == ConversionMoney && !amount.IsPositive() {
		return invalid("amount", "must be greater than zero for money conversions")
	}

	acc, err := a.accumulated(ctx, s, userID)
	if err != nil {
		return err
	}
	if hoursRequested.GreaterThan(acc.Available) {
		return &InsufficientHoursError{
			UserID:    userID,
			Requested: hoursRequested,
			Available: acc.Available,
		}
	}
	return nil
}
