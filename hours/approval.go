/*
approval.go - Goal & conversion approval state machine

PURPOSE:
  Governs the lifecycle shared by monthly goals and hour conversions:

      pending ──▶ approved   (terminal)
              └─▶ rejected   (terminal)

  Terminal states never transition again for a given id; superseding a
  rejection means submitting a fresh request. The semantics are identical
  for both entity kinds; operations are parameterized by ApprovalKind.

ADMIN BYPASS:
  A submission authored by an admin is created already approved, with
  ApprovedBy/ApprovedAt set to the submitter. No pending state is ever
  observable for it.

CONVERSION SUBMISSION:
  The balance check and the insert run inside one store transaction when
  the store supports it, closing the read-then-write window where two
  concurrent requests could both validate against the same snapshot.

SEE ALSO:
  - aggregate.go: Balance validation for conversions
  - store.go: Ordering contracts for pending listings
*/
package hours

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/hours-bank/identity"
)

// =============================================================================
// KINDS AND ACTIONS
// =============================================================================

type ApprovalKind string

const (
	ApprovalGoal       ApprovalKind = "goal"
	ApprovalConversion ApprovalKind = "conversion"
)

func (k ApprovalKind) Valid() bool { return k == ApprovalGoal || k == ApprovalConversion }

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// =============================================================================
// APPROVAL SERVICE
// =============================================================================

// ApprovalService handles submission and decision of goals and conversions.
type ApprovalService struct {
	Store      Store
	Aggregator *Aggregator
	Directory  Directory
	Now        func() time.Time
}

func NewApprovalService(store Store, agg *Aggregator, dir Directory) *ApprovalService {
	return &ApprovalService{Store: store, Aggregator: agg, Directory: dir, Now: time.Now}
}

// SubmitGoal creates a monthly goal request. Admin submissions are created
// approved; a second pending goal for the same (user, month) conflicts.
func (s *ApprovalService) SubmitGoal(ctx context.Context, requester identity.Principal, userID, month string, hoursGoal decimal.Decimal) (*MonthlyGoal, error) {
	if userID == "" {
		userID = requester.SubjectID
	}
	if userID != requester.SubjectID && !requester.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may request goals for another user", ErrForbidden)
	}

	month, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	if !hoursGoal.IsPositive() {
		return nil, invalid("hoursGoal", "must be greater than zero")
	}
	if hoursGoal.GreaterThan(decimal.NewFromInt(MaxGoalHours)) {
		return nil, invalid("hoursGoal", fmt.Sprintf("must not exceed %d, the hours in a month", MaxGoalHours))
	}

	pending, err := s.Store.HasPendingGoal(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("check pending goals: %w", err)
	}
	if pending {
		return nil, fmt.Errorf("%w: a goal for %s is already awaiting a decision", ErrConflict, month)
	}

	now := s.Now()
	goal := MonthlyGoal{
		ID:          uuid.NewString(),
		UserID:      userID,
		Month:       month,
		HoursGoal:   hoursGoal,
		Status:      StatusPending,
		RequestedBy: requester.SubjectID,
		CreatedAt:   now,
	}
	s.applyAdminBypass(&goal.Status, &goal.ApprovedBy, &goal.ApprovedAt, requester, now)

	if err := s.Store.PutGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("persist goal: %w", err)
	}
	return &goal, nil
}

// NewConversion is the input to SubmitConversion.
type NewConversion struct {
	UserID string
	Hours  decimal.Decimal
	Amount decimal.Decimal
	Type   ConversionType
	Date   string
}

// SubmitConversion creates a conversion request, capped by the available
// balance recomputed inside the same store transaction as the insert.
func (s *ApprovalService) SubmitConversion(ctx context.Context, requester identity.Principal, in NewConversion) (*HourConversion, error) {
	userID := in.UserID
	if userID == "" {
		userID = requester.SubjectID
	}
	if userID != requester.SubjectID && !requester.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may request conversions for another user", ErrForbidden)
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	conversion := HourConversion{
		ID:          uuid.NewString(),
		UserID:      userID,
		Hours:       in.Hours,
		Amount:      in.Amount,
		Type:        in.Type,
		Date:        date,
		Status:      StatusPending,
		RequestedBy: requester.SubjectID,
		CreatedAt:   now,
	}
	if conversion.Type == ConversionTimeOff {
		conversion.Amount = decimal.Zero
	}
	s.applyAdminBypass(&conversion.Status, &conversion.ApprovedBy, &conversion.ApprovedAt, requester, now)

	err = withTx(ctx, s.Store, func(tx Store) error {
		if err := s.Aggregator.validateConversion(ctx, tx, userID, in.Hours, in.Type, in.Amount); err != nil {
			return err
		}
		return tx.PutConversion(ctx, conversion)
	})
	if err != nil {
		return nil, err
	}
	return &conversion, nil
}

// applyAdminBypass marks an admin-authored submission as already approved.
func (s *ApprovalService) applyAdminBypass(status *Status, approvedBy **string, approvedAt **time.Time, requester identity.Principal, now time.Time) {
	if !requester.IsAdmin() {
		return
	}
	subject := requester.SubjectID
	at := now
	*status = StatusApproved
	*approvedBy = &subject
	*approvedAt = &at
}

// =============================================================================
// DECISIONS
// =============================================================================

// Decide transitions a pending goal or conversion to approved or rejected.
// Re-deciding a decided entity fails with ErrInvalidState and leaves the
// first decision untouched.
func (s *ApprovalService) Decide(ctx context.Context, admin identity.Principal, kind ApprovalKind, id string, action Action) error {
	if !admin.IsAdmin() {
		return fmt.Errorf("%w: only admins may decide requests", ErrForbidden)
	}
	if action != ActionApprove && action != ActionReject {
		return invalid("action", fmt.Sprintf("%q is not approve or reject", action))
	}

	next := StatusApproved
	if action == ActionReject {
		next = StatusRejected
	}
	now := s.Now()
	subject := admin.SubjectID

	switch kind {
	case ApprovalGoal:
		goal, err := s.Store.GetGoal(ctx, id)
		if err != nil {
			return fmt.Errorf("load goal: %w", err)
		}
		if goal == nil {
			return fmt.Errorf("%w: goal %s", ErrNotFound, id)
		}
		if goal.Status != StatusPending {
			return &InvalidStateError{ID: id, Status: goal.Status}
		}
		goal.Status = next
		goal.ApprovedBy = &subject
		goal.ApprovedAt = &now
		return s.Store.PutGoal(ctx, *goal)

	case ApprovalConversion:
		conversion, err := s.Store.GetConversion(ctx, id)
		if err != nil {
			return fmt.Errorf("load conversion: %w", err)
		}
		if conversion == nil {
			return fmt.Errorf("%w: conversion %s", ErrNotFound, id)
		}
		if conversion.Status != StatusPending {
			return &InvalidStateError{ID: id, Status: conversion.Status}
		}
		conversion.Status = next
		conversion.ApprovedBy = &subject
		conversion.ApprovedAt = &now
		return s.Store.PutConversion(ctx, *conversion)

	default:
		return invalid("kind", fmt.Sprintf("%q is not goal or conversion", kind))
	}
}

// =============================================================================
// PENDING LISTINGS
// =============================================================================

// PendingItem is one entry in the admin approval queue, annotated with the
// requester's display name.
type PendingItem struct {
	Kind          ApprovalKind
	ID            string
	UserID        string
	RequesterName string
	Month         string          // goals only
	Hours         decimal.Decimal // goal target or conversion hours
	Amount        decimal.Decimal // money conversions only
	Type          ConversionType  // conversions only
	CreatedAt     time.Time
}

// ListPending returns the pending queue for one kind, newest-first. Name
// resolution failures degrade to "Unknown", never fail the listing.
func (s *ApprovalService) ListPending(ctx context.Context, kind ApprovalKind) ([]PendingItem, error) {
	switch kind {
	case ApprovalGoal:
		goals, err := s.Store.ListPendingGoals(ctx)
		if err != nil {
			return nil, fmt.Errorf("load pending goals: %w", err)
		}
		items := make([]PendingItem, 0, len(goals))
		for _, g := range goals {
			items = append(items, PendingItem{
				Kind:          ApprovalGoal,
				ID:            g.ID,
				UserID:        g.UserID,
				RequesterName: s.displayName(ctx, g.UserID),
				Month:         g.Month,
				Hours:         g.HoursGoal,
				CreatedAt:     g.CreatedAt,
			})
		}
		return items, nil

	case ApprovalConversion:
		conversions, err := s.Store.ListPendingConversions(ctx)
		if err != nil {
			return nil, fmt.Errorf("load pending conversions: %w", err)
		}
		items := make([]PendingItem, 0, len(conversions))
		for _, c := range conversions {
			items = append(items, PendingItem{
				Kind:          ApprovalConversion,
				ID:            c.ID,
				UserID:        c.UserID,
				RequesterName: s.displayName(ctx, c.UserID),
				Hours:         c.Hours,
				Amount:        c.Amount,
				Type:          c.Type,
				CreatedAt:     c.CreatedAt,
			})
		}
		return items, nil

	default:
		return nil, invalid("kind", fmt.Sprintf("%q is not goal or conversion", kind))
	}
}

func (s *ApprovalService) displayName(ctx context.Context, userID string) string {
	if s.Directory == nil {
		return "Unknown"
	}
	name, err := s.Directory.DisplayName(ctx, userID)
	if err != nil || name == "" {
		return "Unknown"
	}
	return name
}
