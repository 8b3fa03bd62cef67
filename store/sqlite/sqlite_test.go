package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/hours-bank/hours"
	"github.com/warp/hours-bank/identity"
	"github.com/warp/hours-bank/reports"
	"github.com/warp/hours-bank/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleRecord(id, userID, date string) hours.TimeRecord {
	return hours.TimeRecord{
		ID:          id,
		UserID:      userID,
		Name:        "Development",
		Date:        date,
		Type:        hours.RecordWork,
		Start:       555, // 09:15
		End:         1065,
		TotalHours:  dec("8.5"),
		Description: "sprint work",
		CreatedAt:   time.Now(),
	}
}

// =============================================================================
// TIME RECORD TESTS
// =============================================================================

func TestSQLite_RecordRoundTrip(t *testing.T) {
	// GIVEN: A record with a fractional total
	store := newTestStore(t)
	ctx := context.Background()
	original := sampleRecord("r1", "alice", "2025-03-10")
	require.NoError(t, store.PutRecord(ctx, original))

	// WHEN: Reading it back
	got, err := store.GetRecord(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)

	// THEN: Date, type, start, end, and total survive exactly
	assert.Equal(t, original.Date, got.Date)
	assert.Equal(t, original.Type, got.Type)
	assert.Equal(t, original.Start, got.Start)
	assert.Equal(t, original.End, got.End)
	assert.True(t, got.TotalHours.Equal(dec("8.5")))
	assert.Equal(t, original.Description, got.Description)
}

func TestSQLite_RecordUpsertAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	record := sampleRecord("r1", "alice", "2025-03-10")
	require.NoError(t, store.PutRecord(ctx, record))

	// Upsert keeps the id and changes fields
	record.Date = "2025-03-11"
	record.TotalHours = dec("4")
	require.NoError(t, store.PutRecord(ctx, record))
	got, err := store.GetRecord(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11", got.Date)
	assert.True(t, got.TotalHours.Equal(dec("4")))

	// Delete removes it
	require.NoError(t, store.DeleteRecord(ctx, "r1"))
	got, err = store.GetRecord(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ListRecords_NewestFirst(t *testing.T) {
	// GIVEN: Records inserted out of date order, plus one for another user
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutRecord(ctx, sampleRecord("r1", "alice", "2025-03-11")))
	require.NoError(t, store.PutRecord(ctx, sampleRecord("r2", "alice", "2025-03-10")))
	require.NoError(t, store.PutRecord(ctx, sampleRecord("r3", "alice", "2025-03-12")))
	require.NoError(t, store.PutRecord(ctx, sampleRecord("r4", "bob", "2025-03-12")))

	// WHEN: Listing Alice's records
	records, err := store.ListRecords(ctx, "alice")
	require.NoError(t, err)

	// THEN: Her three records, newest date first
	require.Len(t, records, 3)
	assert.Equal(t, "r3", records[0].ID)
	assert.Equal(t, "r1", records[1].ID)
	assert.Equal(t, "r2", records[2].ID)
}

// =============================================================================
// GOAL TESTS
// =============================================================================

func putTestGoal(t *testing.T, store *sqlite.Store, id, userID, month string, status hours.Status, goal string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, store.PutGoal(context.Background(), hours.MonthlyGoal{
		ID: id, UserID: userID, Month: month, HoursGoal: dec(goal),
		Status: status, RequestedBy: userID, CreatedAt: createdAt,
	}))
}

func TestSQLite_AuthoritativeGoal_LatestApprovedWins(t *testing.T) {
	// GIVEN: A goal history for one month: approved, rejected, approved again
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	putTestGoal(t, store, "g1", "alice", "2025-03", hours.StatusApproved, "160", base)
	putTestGoal(t, store, "g2", "alice", "2025-03", hours.StatusRejected, "200", base.Add(time.Hour))
	putTestGoal(t, store, "g3", "alice", "2025-03", hours.StatusApproved, "176", base.Add(2*time.Hour))

	// WHEN: Resolving the authoritative goal
	goal, err := store.AuthoritativeGoal(ctx, "alice", "2025-03")
	require.NoError(t, err)

	// THEN: The most recently created approved goal
	require.NotNil(t, goal)
	assert.Equal(t, "g3", goal.ID)
	assert.True(t, goal.HoursGoal.Equal(dec("176")))

	// AND: No approved goal for another month
	goal, err = store.AuthoritativeGoal(ctx, "alice", "2025-04")
	require.NoError(t, err)
	assert.Nil(t, goal)
}

func TestSQLite_HasPendingGoal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	putTestGoal(t, store, "g1", "alice", "2025-03", hours.StatusPending, "176", now)
	putTestGoal(t, store, "g2", "alice", "2025-04", hours.StatusApproved, "176", now)

	pending, err := store.HasPendingGoal(ctx, "alice", "2025-03")
	require.NoError(t, err)
	assert.True(t, pending)

	pending, err = store.HasPendingGoal(ctx, "alice", "2025-04")
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestSQLite_GoalDecisionFieldsRoundTrip(t *testing.T) {
	// GIVEN: A pending goal later decided
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	putTestGoal(t, store, "g1", "alice", "2025-03", hours.StatusPending, "176", now)

	goal, err := store.GetGoal(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, goal)
	assert.Nil(t, goal.ApprovedBy)

	approver := "root"
	goal.Status = hours.StatusApproved
	goal.ApprovedBy = &approver
	goal.ApprovedAt = &now
	require.NoError(t, store.PutGoal(ctx, *goal))

	// THEN: Decision fields survive the round trip
	got, err := store.GetGoal(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, hours.StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, "root", *got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, got.ApprovedAt.Equal(now))
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestSQLite_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: An empty store
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("validation failed downstream")

	// WHEN: A transaction writes a conversion and then fails
	err := store.WithTx(ctx, func(tx hours.Store) error {
		if err := tx.PutConversion(ctx, hours.HourConversion{
			ID: "c1", UserID: "alice", Hours: dec("5"), Amount: dec("250"),
			Type: hours.ConversionMoney, Date: "2025-04-01",
			Status: hours.StatusPending, RequestedBy: "alice", CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		return boom
	})

	// THEN: The error surfaces and the write is gone
	require.ErrorIs(t, err, boom)
	got, err := store.GetConversion(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_WithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx hours.Store) error {
		return tx.PutConversion(ctx, hours.HourConversion{
			ID: "c1", UserID: "alice", Hours: dec("5"), Amount: dec("250"),
			Type: hours.ConversionMoney, Date: "2025-04-01",
			Status: hours.StatusPending, RequestedBy: "alice", CreatedAt: time.Now(),
		})
	})
	require.NoError(t, err)

	got, err := store.GetConversion(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Hours.Equal(dec("5")))
}

// =============================================================================
// IDENTITY TESTS
// =============================================================================

func TestSQLite_UserRoundTripAndListing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.PutUser(ctx, identity.User{
		SubjectID: "u1", Email: "zoe@example.com", Name: "Zoe",
		Role: identity.RoleAdmin, Authorized: true, CreatedAt: now,
	}))
	require.NoError(t, store.PutUser(ctx, identity.User{
		SubjectID: "u2", Email: "amy@example.com", Role: identity.RoleCollaborator,
		Authorized: true, CreatedAt: now,
	}))
	require.NoError(t, store.PutUser(ctx, identity.User{
		SubjectID: "u3", Email: "guest@example.com", Role: identity.RoleCollaborator,
		Authorized: false, CreatedAt: now,
	}))

	// Lookup by id and email
	user, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, identity.RoleAdmin, user.Role)

	user, err = store.GetUserByEmail(ctx, "amy@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u2", user.SubjectID)

	// Listing excludes unauthorized users, ordered by email
	users, err := store.ListAuthorizedUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "amy@example.com", users[0].Email)
	assert.Equal(t, "zoe@example.com", users[1].Email)

	count, err := store.CountAuthorizedUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// DisplayName prefers name, falls back to email
	name, err := store.DisplayName(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Zoe", name)
	name, err = store.DisplayName(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "amy@example.com", name)
}

func TestSQLite_PreAuthorizedEmails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.IsPreAuthorized(ctx, "new@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.AddPreAuthorizedEmail(ctx, "new@example.com"))
	// Adding twice is idempotent
	require.NoError(t, store.AddPreAuthorizedEmail(ctx, "new@example.com"))

	ok, err = store.IsPreAuthorized(ctx, "new@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

// =============================================================================
// REPORT AND SETTINGS TESTS
// =============================================================================

func TestSQLite_ReportsAndSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutReport(ctx, reports.Report{
		ID: "rep1", UserID: "alice", Month: "2025-03",
		Prompt: "summarize", Content: "Great month.", CreatedBy: "root", CreatedAt: time.Now(),
	}))
	stored, err := store.ListReports(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Great month.", stored[0].Content)

	// Settings: absent, then upserted
	settings, err := store.GetSettings(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, settings)

	require.NoError(t, store.PutSettings(ctx, reports.Settings{
		UserID: "alice", Repository: "acme/app", Branch: "main", Author: "alice",
	}))
	require.NoError(t, store.PutSettings(ctx, reports.Settings{
		UserID: "alice", Repository: "acme/app", Branch: "develop", Author: "alice",
	}))

	settings, err = store.GetSettings(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, "develop", settings.Branch)
}
