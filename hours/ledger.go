/*
ledger.go - Time ledger: record lifecycle and totals

PURPOSE:
  Stores, retrieves, and aggregates dated work/time-off intervals.
  TotalHours is always derived from start/end via the wrap rule; callers
  never supply it.

AUTO TIME-OFF CONVERSION:
  Adding a time_off record also creates a linked, pre-approved
  HourConversion for the same hour amount: time taken off is immediately
  treated as used balance. Updates and deletes keep the link in sync via
  SourceRecordID: editing a time_off record adjusts the conversion,
  retyping it to work or deleting it removes the conversion. All of these
  are primary writes followed by a best-effort secondary write - if the
  conversion write fails the record stands, the failure is logged, and
  nothing is rolled back. The conversion is derived bookkeeping, not a
  correctness requirement of the ledger.

OWNERSHIP:
  Mutations require the caller to own the record; admins bypass. A
  non-owner gets ErrNotFound rather than ErrForbidden so record ids do
  not leak existence.

SEE ALSO:
  - clock.go: Wrap rule and input parsing
  - aggregate.go: Consumes monthly totals
*/
package hours

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/hours-bank/identity"
)

// =============================================================================
// TIME LEDGER
// =============================================================================

// TimeLedger manages the lifecycle of time records.
type TimeLedger struct {
	Store  Store
	Logger *log.Logger // receives swallowed secondary-write failures
	Now    func() time.Time
}

func NewTimeLedger(store Store) *TimeLedger {
	return &TimeLedger{Store: store, Logger: log.Default(), Now: time.Now}
}

// NewRecord is the input to AddRecord. Start/End are HH:MM strings;
// UserID defaults to the caller when empty.
type NewRecord struct {
	UserID      string
	Name        string
	Date        string
	Type        RecordType
	Start       string
	End         string
	Description string
}

// AddRecord validates and persists a new record. For time_off records it
// also creates the linked pre-approved conversion (best-effort).
func (l *TimeLedger) AddRecord(ctx context.Context, caller identity.Principal, in NewRecord) (*TimeRecord, error) {
	userID := in.UserID
	if userID == "" {
		userID = caller.SubjectID
	}
	if userID != caller.SubjectID && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may log hours for another user", ErrForbidden)
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, invalid("type", fmt.Sprintf("%q is not work or time_off", in.Type))
	}
	start, err := ParseClock(in.Start)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(in.End)
	if err != nil {
		return nil, err
	}
	if start == end {
		return nil, invalid("time", "start and end are equal, zero-length records are invalid")
	}

	record := TimeRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        in.Name,
		Date:        date,
		Type:        in.Type,
		Start:       start,
		End:         end,
		TotalHours:  WrappedHours(start, end),
		Description: in.Description,
		CreatedAt:   l.Now(),
	}

	if err := l.Store.PutRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("persist record: %w", err)
	}

	if record.Type == RecordTimeOff {
		l.autoConvertTimeOff(ctx, caller, record)
	}

	return &record, nil
}

// autoConvertTimeOff performs the best-effort secondary write for time_off
// records. Failures are logged, never propagated: the primary record write
// already succeeded and must not appear to fail.
func (l *TimeLedger) autoConvertTimeOff(ctx context.Context, caller identity.Principal, record TimeRecord) {
	now := l.Now()
	actor := caller.SubjectID
	conversion := HourConversion{
		ID:             uuid.NewString(),
		UserID:         record.UserID,
		Hours:          record.TotalHours,
		Amount:         decimal.Zero,
		Type:           ConversionTimeOff,
		Date:           record.Date,
		Status:         StatusApproved,
		RequestedBy:    actor,
		ApprovedBy:     &actor,
		ApprovedAt:     &now,
		SourceRecordID: record.ID,
		CreatedAt:      now,
	}

	if err := l.Store.PutConversion(ctx, conversion); err != nil {
		l.logf("time ledger: auto time-off conversion for record %s failed: %v", record.ID, err)
	}
}

// syncLinkedConversion reconciles the auto-generated conversion after an
// update or delete, keyed by SourceRecordID. Best-effort, same as the
// original write.
func (l *TimeLedger) syncLinkedConversion(ctx context.Context, caller identity.Principal, record TimeRecord, removed bool) {
	linked, err := l.findLinkedConversion(ctx, record)
	if err != nil {
		l.logf("time ledger: conversion lookup for record %s failed: %v", record.ID, err)
		return
	}

	switch {
	case removed || record.Type != RecordTimeOff:
		if linked != nil {
			if err := l.Store.DeleteConversion(ctx, linked.ID); err != nil {
				l.logf("time ledger: removing conversion %s for record %s failed: %v", linked.ID, record.ID, err)
			}
		}
	case linked == nil:
		// A work record retyped to time_off gains its conversion here.
		l.autoConvertTimeOff(ctx, caller, record)
	default:
		linked.Hours = record.TotalHours
		linked.Date = record.Date
		if err := l.Store.PutConversion(ctx, *linked); err != nil {
			l.logf("time ledger: updating conversion %s for record %s failed: %v", linked.ID, record.ID, err)
		}
	}
}

func (l *TimeLedger) findLinkedConversion(ctx context.Context, record TimeRecord) (*HourConversion, error) {
	conversions, err := l.Store.ListConversions(ctx, record.UserID)
	if err != nil {
		return nil, err
	}
	for i := range conversions {
		if conversions[i].SourceRecordID == record.ID {
			return &conversions[i], nil
		}
	}
	return nil, nil
}

// RecordUpdate holds the mutable fields of a record. Nil means unchanged.
type RecordUpdate struct {
	Name        *string
	Date        *string
	Type        *RecordType
	Start       *string
	End         *string
	Description *string
}

// UpdateRecord applies updates to an owned record, recomputing TotalHours
// when start or end change.
func (l *TimeLedger) UpdateRecord(ctx context.Context, caller identity.Principal, id string, up RecordUpdate) (*TimeRecord, error) {
	record, err := l.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if up.Name != nil {
		record.Name = *up.Name
	}
	if up.Date != nil {
		date, err := ParseDate(*up.Date)
		if err != nil {
			return nil, err
		}
		record.Date = date
	}
	if up.Type != nil {
		if !up.Type.Valid() {
			return nil, invalid("type", fmt.Sprintf("%q is not work or time_off", *up.Type))
		}
		record.Type = *up.Type
	}
	if up.Start != nil {
		start, err := ParseClock(*up.Start)
		if err != nil {
			return nil, err
		}
		record.Start = start
	}
	if up.End != nil {
		end, err := ParseClock(*up.End)
		if err != nil {
			return nil, err
		}
		record.End = end
	}
	if up.Description != nil {
		record.Description = *up.Description
	}

	if record.Start == record.End {
		return nil, invalid("time", "start and end are equal, zero-length records are invalid")
	}
	record.TotalHours = WrappedHours(record.Start, record.End)

	if err := l.Store.PutRecord(ctx, *record); err != nil {
		return nil, fmt.Errorf("persist record: %w", err)
	}
	l.syncLinkedConversion(ctx, caller, *record, false)
	return record, nil
}

// DeleteRecord permanently deletes an owned record, along with its linked
// conversion when one exists. No soft-delete.
func (l *TimeLedger) DeleteRecord(ctx context.Context, caller identity.Principal, id string) error {
	record, err := l.loadOwned(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := l.Store.DeleteRecord(ctx, id); err != nil {
		return err
	}
	l.syncLinkedConversion(ctx, caller, *record, true)
	return nil
}

// loadOwned fetches a record and enforces the ownership rule.
func (l *TimeLedger) loadOwned(ctx context.Context, caller identity.Principal, id string) (*TimeRecord, error) {
	record, err := l.Store.GetRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: record %s", ErrNotFound, id)
	}
	if record.UserID != caller.SubjectID && !caller.IsAdmin() {
		// Non-owners see missing, not forbidden.
		return nil, fmt.Errorf("%w: record %s", ErrNotFound, id)
	}
	return record, nil
}

// ListRecords returns all of a user's records, newest-first.
func (l *TimeLedger) ListRecords(ctx context.Context, userID string) ([]TimeRecord, error) {
	return l.Store.ListRecords(ctx, userID)
}

// =============================================================================
// TOTALS
// =============================================================================

// DailyTotal sums TotalHours over records matching the date exactly.
// Per-record totals are non-negative; callers wanting hours net of time
// off apply the sign themselves (see NetTotal).
func (l *TimeLedger) DailyTotal(ctx context.Context, userID, date string) (decimal.Decimal, error) {
	date, err := ParseDate(date)
	if err != nil {
		return decimal.Zero, err
	}
	records, err := l.Store.ListRecords(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, r := range records {
		if r.Date == date {
			total = total.Add(r.TotalHours)
		}
	}
	return total, nil
}

// MonthlyTotal returns the month's net hours: work minus time off.
func (l *TimeLedger) MonthlyTotal(ctx context.Context, userID, month string) (decimal.Decimal, error) {
	month, err := ParseMonth(month)
	if err != nil {
		return decimal.Zero, err
	}
	records, err := l.Store.ListRecords(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, r := range records {
		if r.Month() == month {
			total = total.Add(NetTotal(r))
		}
	}
	return total, nil
}

// NetTotal returns a record's signed contribution to net hours: work is
// positive, time off negative.
func NetTotal(r TimeRecord) decimal.Decimal {
	if r.Type == RecordTimeOff {
		return r.TotalHours.Neg()
	}
	return r.TotalHours
}

// MonthlyNet groups records by month and returns each month's net hours,
// with months sorted ascending. Used by the aggregator and rankings.
func MonthlyNet(records []TimeRecord) ([]string, map[string]decimal.Decimal) {
	net := make(map[string]decimal.Decimal)
	for _, r := range records {
		m := r.Month()
		net[m] = net[m].Add(NetTotal(r))
	}

	months := make([]string, 0, len(net))
	for m := range net {
		months = append(months, m)
	}
	sort.Strings(months)
	return months, net
}

func (l *TimeLedger) logf(format string, args ...any) {
	if l.Logger != nil {
		l.Logger.Printf(format, args...)
	}
}
