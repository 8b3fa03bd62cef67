// Package store provides hours.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/hours-bank/hours"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	records     map[string]hours.TimeRecord
	goals       map[string]hours.MonthlyGoal
	conversions map[string]hours.HourConversion

	// seq preserves insertion order for creation-order tie-breaks.
	seq     map[string]int
	nextSeq int

	// FailConversions makes PutConversion fail; used to exercise the
	// best-effort secondary write in ledger tests.
	FailConversions error
}

func NewMemory() *Memory {
	return &Memory{
		records:     make(map[string]hours.TimeRecord),
		goals:       make(map[string]hours.MonthlyGoal),
		conversions: make(map[string]hours.HourConversion),
		seq:         make(map[string]int),
	}
}

func (m *Memory) bump(id string) {
	if _, ok := m.seq[id]; !ok {
		m.nextSeq++
		m.seq[id] = m.nextSeq
	}
}

// =============================================================================
// RECORDS
// =============================================================================

func (m *Memory) PutRecord(_ context.Context, r hours.TimeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
	m.bump(r.ID)
	return nil
}

func (m *Memory) GetRecord(_ context.Context, id string) (*hours.TimeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.records[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *Memory) DeleteRecord(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *Memory) ListRecords(_ context.Context, userID string) ([]hours.TimeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []hours.TimeRecord
	for _, r := range m.records {
		if r.UserID == userID {
			result = append(result, r)
		}
	}
	// Newest-first by date, then by creation order.
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date > result[j].Date
		}
		return m.seq[result[i].ID] > m.seq[result[j].ID]
	})
	return result, nil
}

// =============================================================================
// GOALS
// =============================================================================

func (m *Memory) PutGoal(_ context.Context, g hours.MonthlyGoal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals[g.ID] = g
	m.bump(g.ID)
	return nil
}

func (m *Memory) GetGoal(_ context.Context, id string) (*hours.MonthlyGoal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.goals[id]; ok {
		return &g, nil
	}
	return nil, nil
}

func (m *Memory) ListGoals(_ context.Context, userID string) ([]hours.MonthlyGoal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []hours.MonthlyGoal
	for _, g := range m.goals {
		if g.UserID == userID {
			result = append(result, g)
		}
	}
	m.sortGoals(result)
	return result, nil
}

func (m *Memory) ListPendingGoals(_ context.Context) ([]hours.MonthlyGoal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []hours.MonthlyGoal
	for _, g := range m.goals {
		if g.Status == hours.StatusPending {
			result = append(result, g)
		}
	}
	m.sortGoals(result)
	return result, nil
}

func (m *Memory) AuthoritativeGoal(_ context.Context, userID, month string) (*hours.MonthlyGoal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Latest CreatedAt wins, insertion order breaks ties. Matches the
	// created_at DESC, rowid DESC ordering of the sqlite store.
	var best *hours.MonthlyGoal
	for id := range m.goals {
		g := m.goals[id]
		if g.UserID != userID || g.Month != month || g.Status != hours.StatusApproved {
			continue
		}
		if best == nil || g.CreatedAt.After(best.CreatedAt) ||
			(g.CreatedAt.Equal(best.CreatedAt) && m.seq[g.ID] > m.seq[best.ID]) {
			gg := g
			best = &gg
		}
	}
	return best, nil
}

func (m *Memory) HasPendingGoal(_ context.Context, userID, month string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, g := range m.goals {
		if g.UserID == userID && g.Month == month && g.Status == hours.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) sortGoals(goals []hours.MonthlyGoal) {
	sort.Slice(goals, func(i, j int) bool {
		return m.seq[goals[i].ID] > m.seq[goals[j].ID]
	})
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func (m *Memory) PutConversion(_ context.Context, c hours.HourConversion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailConversions != nil {
		return m.FailConversions
	}
	m.conversions[c.ID] = c
	m.bump(c.ID)
	return nil
}

func (m *Memory) DeleteConversion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversions, id)
	return nil
}

func (m *Memory) GetConversion(_ context.Context, id string) (*hours.HourConversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.conversions[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) ListConversions(_ context.Context, userID string) ([]hours.HourConversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []hours.HourConversion
	for _, c := range m.conversions {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	m.sortConversions(result)
	return result, nil
}

func (m *Memory) ListPendingConversions(_ context.Context) ([]hours.HourConversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []hours.HourConversion
	for _, c := range m.conversions {
		if c.Status == hours.StatusPending {
			result = append(result, c)
		}
	}
	m.sortConversions(result)
	return result, nil
}

func (m *Memory) sortConversions(conversions []hours.HourConversion) {
	sort.Slice(conversions, func(i, j int) bool {
		return m.seq[conversions[i].ID] > m.seq[conversions[j].ID]
	})
}

// Compile-time check that Memory implements hours.Store.
var _ hours.Store = (*Memory)(nil)
