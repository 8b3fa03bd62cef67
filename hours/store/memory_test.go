package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/hours-bank/hours"
	"github.com/warp/hours-bank/hours/store"
)

func approvedGoal(id, userID, month string, goal int64, createdAt time.Time) hours.MonthlyGoal {
	return hours.MonthlyGoal{
		ID:        id,
		UserID:    userID,
		Month:     month,
		HoursGoal: decimal.NewFromInt(goal),
		Status:    hours.StatusApproved,
		CreatedAt: createdAt,
	}
}

func TestMemory_AuthoritativeGoal_LatestCreatedWins(t *testing.T) {
	// GIVEN: Two approved goals for the same month, inserted out of
	// creation order
	mem := store.NewMemory()
	ctx := context.Background()
	newer := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	older := newer.Add(-48 * time.Hour)
	require.NoError(t, mem.PutGoal(ctx, approvedGoal("g-newer", "alice", "2025-03", 160, newer)))
	require.NoError(t, mem.PutGoal(ctx, approvedGoal("g-older", "alice", "2025-03", 120, older)))

	// WHEN: Resolving the authoritative goal
	got, err := mem.AuthoritativeGoal(ctx, "alice", "2025-03")

	// THEN: The latest CreatedAt wins even though it was inserted first
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "g-newer", got.ID)
}

func TestMemory_AuthoritativeGoal_InsertionOrderBreaksTies(t *testing.T) {
	// GIVEN: Two approved goals sharing the exact same CreatedAt
	mem := store.NewMemory()
	ctx := context.Background()
	at := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	require.NoError(t, mem.PutGoal(ctx, approvedGoal("g-first", "alice", "2025-03", 120, at)))
	require.NoError(t, mem.PutGoal(ctx, approvedGoal("g-second", "alice", "2025-03", 160, at)))

	// WHEN: Resolving the authoritative goal
	got, err := mem.AuthoritativeGoal(ctx, "alice", "2025-03")

	// THEN: The later insertion wins the tie
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "g-second", got.ID)
}

func TestMemory_AuthoritativeGoal_IgnoresPending(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	pending := approvedGoal("g-pending", "alice", "2025-03", 200, time.Now())
	pending.Status = hours.StatusPending
	require.NoError(t, mem.PutGoal(ctx, pending))

	got, err := mem.AuthoritativeGoal(ctx, "alice", "2025-03")
	require.NoError(t, err)
	assert.Nil(t, got)
}
