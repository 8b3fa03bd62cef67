package hours_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/hours-bank/hours"
	"github.com/warp/hours-bank/hours/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// names is a static Directory for pending-queue annotation.
type names map[string]string

func (n names) DisplayName(_ context.Context, userID string) (string, error) {
	return n[userID], nil
}

func newTestApprovals(t *testing.T) (*hours.ApprovalService, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := hours.NewApprovalService(mem, hours.NewAggregator(mem), names{"alice": "Alice"})
	return svc, mem
}

// =============================================================================
// GOAL SUBMISSION TESTS
// =============================================================================

func TestApprovals_SubmitGoal_StartsPending(t *testing.T) {
	// GIVEN: A collaborator
	svc, _ := newTestApprovals(t)

	// WHEN: Alice requests a 176h goal for March
	goal, err := svc.SubmitGoal(context.Background(), alice, "", "2025-03", dec("176"))

	// THEN: Pending, attributed, undecided
	require.NoError(t, err)
	assert.Equal(t, hours.StatusPending, goal.Status)
	assert.Equal(t, "alice", goal.UserID)
	assert.Equal(t, "alice", goal.RequestedBy)
	assert.Nil(t, goal.ApprovedBy)
}

func TestApprovals_SubmitGoal_AdminBypass(t *testing.T) {
	// WHEN: An admin submits a goal
	svc, _ := newTestApprovals(t)
	goal, err := svc.SubmitGoal(context.Background(), admin, "", "2025-03", dec("176"))

	// THEN: Created directly approved; no pending state is ever observable
	require.NoError(t, err)
	assert.Equal(t, hours.StatusApproved, goal.Status)
	require.NotNil(t, goal.ApprovedBy)
	assert.Equal(t, "root", *goal.ApprovedBy)
	assert.NotNil(t, goal.ApprovedAt)
}

func TestApprovals_SubmitGoal_DuplicatePendingConflicts(t *testing.T) {
	// GIVEN: A pending goal for March
	svc, _ := newTestApprovals(t)
	ctx := context.Background()
	_, err := svc.SubmitGoal(ctx, alice, "", "2025-03", dec("176"))
	require.NoError(t, err)

	// WHEN: Alice submits another March goal before a decision
	_, err = svc.SubmitGoal(ctx, alice, "", "2025-03", dec("180"))

	// THEN: Conflict; a different month is fine
	assert.ErrorIs(t, err, hours.ErrConflict)
	_, err = svc.SubmitGoal(ctx, alice, "", "2025-04", dec("176"))
	assert.NoError(t, err)
}

func TestApprovals_SubmitGoal_Validation(t *testing.T) {
	svc, _ := newTestApprovals(t)
	ctx := context.Background()

	_, err := svc.SubmitGoal(ctx, alice, "", "March", dec("176"))
	assert.ErrorIs(t, err, hours.ErrValidation)

	_, err = svc.SubmitGoal(ctx, alice, "", "2025-03", dec("0"))
	assert.ErrorIs(t, err, hours.ErrValidation)

	// 744 is the hours in a 31-day month; one past it fails
	_, err = svc.SubmitGoal(ctx, alice, "", "2025-03", dec("745"))
	assert.ErrorIs(t, err, hours.ErrValidation)
	_, err = svc.SubmitGoal(ctx, alice, "", "2025-03", dec("744"))
	assert.NoError(t, err)

	// Only admins submit for someone else
	_, err = svc.SubmitGoal(ctx, bob, "alice", "2025-05", dec("176"))
	assert.ErrorIs(t, err, hours.ErrForbidden)
}

// =============================================================================
// CONVERSION SUBMISSION TESTS
// =============================================================================

func TestApprovals_SubmitConversion_BalanceCapped(t *testing.T) {
	// GIVEN: 24h of extra hours
	svc, mem := newTestApprovals(t)
	seedMonth(t, mem, "alice", "2025-03", 25)
	approvedGoal(t, mem, "alice", "2025-03", "176")
	ctx := context.Background()

	// WHEN: Requesting within the balance
	conversion, err := svc.SubmitConversion(ctx, alice, hours.NewConversion{
		Hours: dec("10"), Amount: dec("500"), Type: hours.ConversionMoney, Date: "2025-04-01",
	})

	// THEN: Pending request created
	require.NoError(t, err)
	assert.Equal(t, hours.StatusPending, conversion.Status)

	// AND: Overdrawing fails even while the first is still pending,
	// because pending conversions do not reduce the balance
	_, err = svc.SubmitConversion(ctx, alice, hours.NewConversion{
		Hours: dec("25"), Amount: dec("1250"), Type: hours.ConversionMoney, Date: "2025-04-02",
	})
	assert.ErrorIs(t, err, hours.ErrInsufficientHours)
}

func TestApprovals_SubmitConversion_TimeOffZeroesAmount(t *testing.T) {
	// GIVEN: Extra hours in the bank
	svc, mem := newTestApprovals(t)
	seedMonth(t, mem, "alice", "2025-03", 25)
	approvedGoal(t, mem, "alice", "2025-03", "176")

	// WHEN: Requesting time off with a stray amount attached
	conversion, err := svc.SubmitConversion(context.Background(), alice, hours.NewConversion{
		Hours: dec("8"), Amount: dec("999"), Type: hours.ConversionTimeOff, Date: "2025-04-01",
	})

	// THEN: The amount is dropped; time off carries no money value
	require.NoError(t, err)
	assert.True(t, conversion.Amount.IsZero())
}

func TestApprovals_SubmitConversion_AdminBypass(t *testing.T) {
	svc, mem := newTestApprovals(t)
	seedMonth(t, mem, "alice", "2025-03", 25)
	approvedGoal(t, mem, "alice", "2025-03", "176")

	conversion, err := svc.SubmitConversion(context.Background(), admin, hours.NewConversion{
		UserID: "alice", Hours: dec("10"), Amount: dec("500"),
		Type: hours.ConversionMoney, Date: "2025-04-01",
	})
	require.NoError(t, err)
	assert.Equal(t, hours.StatusApproved, conversion.Status)
}

// =============================================================================
// DECISION TESTS
// =============================================================================

func TestApprovals_Decide_ApproveAndReject(t *testing.T) {
	// GIVEN: Two pending goals
	svc, mem := newTestApprovals(t)
	ctx := context.Background()
	g1, err := svc.SubmitGoal(ctx, alice, "", "2025-03", dec("176"))
	require.NoError(t, err)
	g2, err := svc.SubmitGoal(ctx, alice, "", "2025-04", dec("176"))
	require.NoError(t, err)

	// WHEN: One approved, one rejected
	require.NoError(t, svc.Decide(ctx, admin, hours.ApprovalGoal, g1.ID, hours.ActionApprove))
	require.NoError(t, svc.Decide(ctx, admin, hours.ApprovalGoal, g2.ID, hours.ActionReject))

	// THEN: Statuses and audit fields are set
	got1, err := mem.GetGoal(ctx, g1.ID)
	require.NoError(t, err)
	assert.Equal(t, hours.StatusApproved, got1.Status)
	require.NotNil(t, got1.ApprovedBy)
	assert.Equal(t, "root", *got1.ApprovedBy)

	got2, err := mem.GetGoal(ctx, g2.ID)
	require.NoError(t, err)
	assert.Equal(t, hours.StatusRejected, got2.Status)
}

func TestApprovals_Decide_TerminalStatesAreTerminal(t *testing.T) {
	// GIVEN: An approved goal
	svc, mem := newTestApprovals(t)
	ctx := context.Background()
	goal, err := svc.SubmitGoal(ctx, alice, "", "2025-03", dec("176"))
	require.NoError(t, err)
	require.NoError(t, svc.Decide(ctx, admin, hours.ApprovalGoal, goal.ID, hours.ActionApprove))

	// WHEN: Re-deciding it
	err = svc.Decide(ctx, admin, hours.ApprovalGoal, goal.ID, hours.ActionReject)

	// THEN: Rejected with the terminal status reported, first decision intact
	require.ErrorIs(t, err, hours.ErrInvalidState)
	var stateErr *hours.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, hours.StatusApproved, stateErr.Status)

	got, err := mem.GetGoal(ctx, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, hours.StatusApproved, got.Status)
}

func TestApprovals_Decide_Guards(t *testing.T) {
	svc, _ := newTestApprovals(t)
	ctx := context.Background()
	goal, err := svc.SubmitGoal(ctx, alice, "", "2025-03", dec("176"))
	require.NoError(t, err)

	// Non-admins may not decide
	assert.ErrorIs(t, svc.Decide(ctx, alice, hours.ApprovalGoal, goal.ID, hours.ActionApprove), hours.ErrForbidden)
	// Unknown action
	assert.ErrorIs(t, svc.Decide(ctx, admin, hours.ApprovalGoal, goal.ID, "maybe"), hours.ErrValidation)
	// Unknown kind
	assert.ErrorIs(t, svc.Decide(ctx, admin, "raise", goal.ID, hours.ActionApprove), hours.ErrValidation)
	// Missing id
	assert.ErrorIs(t, svc.Decide(ctx, admin, hours.ApprovalGoal, "nope", hours.ActionApprove), hours.ErrNotFound)
}

// =============================================================================
// PENDING QUEUE TESTS
// =============================================================================

func TestApprovals_ListPending_AnnotatesNames(t *testing.T) {
	// GIVEN: A pending goal from Alice and one from an unknown user
	svc, _ := newTestApprovals(t)
	ctx := context.Background()
	_, err := svc.SubmitGoal(ctx, alice, "", "2025-03", dec("176"))
	require.NoError(t, err)
	_, err = svc.SubmitGoal(ctx, bob, "", "2025-03", dec("160"))
	require.NoError(t, err)

	// WHEN: Listing pending goals
	items, err := svc.ListPending(ctx, hours.ApprovalGoal)
	require.NoError(t, err)

	// THEN: Newest first, names resolved with "Unknown" fallback
	require.Len(t, items, 2)
	assert.Equal(t, "bob", items[0].UserID)
	assert.Equal(t, "Unknown", items[0].RequesterName)
	assert.Equal(t, "alice", items[1].UserID)
	assert.Equal(t, "Alice", items[1].RequesterName)
}

func TestApprovals_ListPending_ExcludesDecided(t *testing.T) {
	svc, mem := newTestApprovals(t)
	seedMonth(t, mem, "alice", "2025-03", 25)
	approvedGoal(t, mem, "alice", "2025-03", "176")
	ctx := context.Background()

	conversion, err := svc.SubmitConversion(ctx, alice, hours.NewConversion{
		Hours: dec("5"), Amount: dec("250"), Type: hours.ConversionMoney, Date: "2025-04-01",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Decide(ctx, admin, hours.ApprovalConversion, conversion.ID, hours.ActionApprove))

	items, err := svc.ListPending(ctx, hours.ApprovalConversion)
	require.NoError(t, err)
	assert.Empty(t, items)
}
