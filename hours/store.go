/*
store.go - Persistence interfaces for the hours engine

PURPOSE:
  Defines the boundary between the engine and its system of record.
  The production implementation is store/sqlite; hours/store provides an
  in-memory implementation for tests.

  The document-store collections map one entity type each: time records,
  monthly goals, hour conversions. Queries the engine needs are equality
  filters plus fixed orderings - nothing richer.

ORDERING CONTRACTS:
  ListRecords:            newest-first by date, then by creation order
  ListPending*:           newest-first by creation time
  AuthoritativeGoal:      most recently created APPROVED goal for the month

TRANSACTIONS:
  TxStore is optional. When available, conversion submission runs its
  balance check and insert inside one transaction so two concurrent
  requests cannot both validate against the same stale balance.

SEE ALSO:
  - store/memory.go: In-memory implementation
  - store/sqlite/sqlite.go: Production implementation
*/
package hours

import "context"

// =============================================================================
// STORE INTERFACES
// =============================================================================

// RecordStore persists time records.
type RecordStore interface {
	PutRecord(ctx context.Context, r TimeRecord) error
	GetRecord(ctx context.Context, id string) (*TimeRecord, error)
	DeleteRecord(ctx context.Context, id string) error

	// ListRecords returns all of a user's records, newest-first by date
	// then by creation order.
	ListRecords(ctx context.Context, userID string) ([]TimeRecord, error)
}

// GoalStore persists monthly goals.
type GoalStore interface {
	PutGoal(ctx context.Context, g MonthlyGoal) error
	GetGoal(ctx context.Context, id string) (*MonthlyGoal, error)
	ListGoals(ctx context.Context, userID string) ([]MonthlyGoal, error)
	ListPendingGoals(ctx context.Context) ([]MonthlyGoal, error)

	// AuthoritativeGoal returns the most recently created approved goal
	// for (userID, month), or nil when none is approved.
	AuthoritativeGoal(ctx context.Context, userID, month string) (*MonthlyGoal, error)

	// HasPendingGoal reports whether a pending goal exists for (userID, month).
	HasPendingGoal(ctx context.Context, userID, month string) (bool, error)
}

// ConversionStore persists hour conversions.
type ConversionStore interface {
	PutConversion(ctx context.Context, c HourConversion) error
	GetConversion(ctx context.Context, id string) (*HourConversion, error)
	DeleteConversion(ctx context.Context, id string) error
	ListConversions(ctx context.Context, userID string) ([]HourConversion, error)
	ListPendingConversions(ctx context.Context) ([]HourConversion, error)
}

// Store is the full persistence surface the engine needs.
type Store interface {
	RecordStore
	GoalStore
	ConversionStore
}

// TxStore extends Store with transaction support. WithTx executes fn
// against a transactional view; an error rolls everything back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// withTx runs fn transactionally when the store supports it, otherwise
// directly. The read-then-write conversion check degrades gracefully on
// plain stores (the documented race stays open there).
func withTx(ctx context.Context, s Store, fn func(Store) error) error {
	if tx, ok := s.(TxStore); ok {
		return tx.WithTx(ctx, fn)
	}
	return fn(s)
}

// =============================================================================
// DIRECTORY - Display-name resolution for pending listings
// =============================================================================

// Directory resolves a user id to a display name. Listings degrade to a
// placeholder when resolution fails; they never fail wholesale over a
// missing name.
type Directory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}
