/*
ranking.go - Monthly ranking across authorized users

PURPOSE:
  Orders all authorized users by net hours worked in a month, annotated
  with goal attainment and extra hours. Months without an approved goal
  report zero attainment and zero extra hours - the same rule the
  aggregator applies. No default goal is substituted anywhere.
*/
package reports

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/hours-bank/hours"
)

// RankingEntry is one user's row in the monthly ranking.
type RankingEntry struct {
	UserID     string
	Name       string
	Email      string
	Net        decimal.Decimal
	Goal       decimal.Decimal // zero when no approved goal
	Attainment decimal.Decimal // percent, zero when no approved goal
	Extra      decimal.Decimal
}

// Ranking computes the month's ranking, ordered by net hours descending
// with email as a stable tie-break.
func (s *Service) Ranking(ctx context.Context, month string) ([]RankingEntry, error) {
	month, err := hours.ParseMonth(month)
	if err != nil {
		return nil, err
	}

	users, err := s.Users.ListAuthorizedUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	entries := make([]RankingEntry, 0, len(users))
	for _, u := range users {
		records, err := s.Hours.ListRecords(ctx, u.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("load records for %s: %w", u.SubjectID, err)
		}
		stats := monthStats(records, month)

		entry := RankingEntry{
			UserID: u.SubjectID,
			Name:   u.Name,
			Email:  u.Email,
			Net:    stats.Net,
		}

		goal, err := s.Hours.AuthoritativeGoal(ctx, u.SubjectID, month)
		if err != nil {
			return nil, fmt.Errorf("load goal for %s: %w", u.SubjectID, err)
		}
		if goal != nil {
			entry.Goal = goal.HoursGoal
			entry.Attainment = attainmentPercent(stats.Net, goal.HoursGoal)
			if stats.Net.GreaterThan(goal.HoursGoal) {
				entry.Extra = stats.Net.Sub(goal.HoursGoal)
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Net.Equal(entries[j].Net) {
			return entries[i].Net.GreaterThan(entries[j].Net)
		}
		return entries[i].Email < entries[j].Email
	})
	return entries, nil
}

// monthStatsResult carries a user's per-month ledger facts.
type monthStatsResult struct {
	Net            decimal.Decimal
	TimeOff        decimal.Decimal
	TimeOffEntries int
}

func monthStats(records []hours.TimeRecord, month string) monthStatsResult {
	stats := monthStatsResult{Net: decimal.Zero, TimeOff: decimal.Zero}
	for _, r := range records {
		if r.Month() != month {
			continue
		}
		stats.Net = stats.Net.Add(hours.NetTotal(r))
		if r.Type == hours.RecordTimeOff {
			stats.TimeOff = stats.TimeOff.Add(r.TotalHours)
			stats.TimeOffEntries++
		}
	}
	return stats
}

var hundred = decimal.NewFromInt(100)

func attainmentPercent(net, goal decimal.Decimal) decimal.Decimal {
	if !goal.IsPositive() {
		return decimal.Zero
	}
	return net.Mul(hundred).Div(goal).Round(1)
}
