/*
Package reports builds performance summaries and monthly rankings.

PURPOSE:
  The admin-facing reporting surface of the hours bank:
  - Monthly ranking of all authorized users by net hours worked
  - AI-written performance summaries, generated from ledger totals and
    goal attainment and persisted for later reading
  - Commit-history prefill for record descriptions

  Generation and commit lookup are external collaborators behind small
  interfaces; this package only assembles prompts and stores results.

SEE ALSO:
  - ranking.go: Ranking computation
  - commits.go: Commit source interface and prefill
*/
package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/hours-bank/hours"
	"github.com/warp/hours-bank/identity"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Generator produces prose from a free-text prompt. No schema beyond
// plain text; failures surface as ErrReportGenerationFailed.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrReportGenerationFailed wraps generator failures.
var ErrReportGenerationFailed = errors.New("report generation failed")

// Report is a stored AI-written performance summary.
type Report struct {
	ID        string
	UserID    string
	Month     string // YYYY-MM
	Prompt    string
	Content   string
	CreatedBy string
	CreatedAt time.Time
}

// ReportStore persists generated reports (the aiReports collection).
type ReportStore interface {
	PutReport(ctx context.Context, r Report) error
	ListReports(ctx context.Context, userID string) ([]Report, error)
}

// UserLister exposes the authorized-user listing the ranking needs.
type UserLister interface {
	ListAuthorizedUsers(ctx context.Context) ([]identity.User, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service assembles rankings and performance summaries.
type Service struct {
	Hours      hours.Store
	Aggregator *hours.Aggregator
	Reports    ReportStore
	Generator  Generator
	Users      UserLister
	Now        func() time.Time
}

func NewService(store hours.Store, agg *hours.Aggregator, reportStore ReportStore, gen Generator, users UserLister) *Service {
	return &Service{
		Hours:      store,
		Aggregator: agg,
		Reports:    reportStore,
		Generator:  gen,
		Users:      users,
		Now:        time.Now,
	}
}

// GenerateSummary builds a performance prompt for (userID, month), asks
// the generator for prose, and persists the result. Admin-only.
func (s *Service) GenerateSummary(ctx context.Context, caller identity.Principal, userID, month string) (*Report, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may generate reports", hours.ErrForbidden)
	}
	month, err := hours.ParseMonth(month)
	if err != nil {
		return nil, err
	}

	prompt, err := s.buildPrompt(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	content, err := s.Generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportGenerationFailed, err)
	}

	report := Report{
		ID:        uuid.NewString(),
		UserID:    userID,
		Month:     month,
		Prompt:    prompt,
		Content:   content,
		CreatedBy: caller.SubjectID,
		CreatedAt: s.Now(),
	}
	if err := s.Reports.PutReport(ctx, report); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}
	return &report, nil
}

// ListReports returns stored reports for a user, as persisted order.
func (s *Service) ListReports(ctx context.Context, userID string) ([]Report, error) {
	return s.Reports.ListReports(ctx, userID)
}

// buildPrompt summarizes the month's accounting facts as plain text.
// A month without an approved goal is stated as such; it never borrows a
// default target.
func (s *Service) buildPrompt(ctx context.Context, userID, month string) (string, error) {
	records, err := s.Hours.ListRecords(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load records: %w", err)
	}

	stats := monthStats(records, month)

	goal, err := s.Hours.AuthoritativeGoal(ctx, userID, month)
	if err != nil {
		return "", fmt.Errorf("load goal: %w", err)
	}

	acc, err := s.Aggregator.Accumulated(ctx, userID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a short performance summary for an employee covering %s.\n", month)
	fmt.Fprintf(&b, "Worked hours (net of time off): %s\n", stats.Net.String())
	fmt.Fprintf(&b, "Time off taken: %sh across %d entries\n", stats.TimeOff.String(), stats.TimeOffEntries)
	if goal != nil {
		fmt.Fprintf(&b, "Approved monthly goal: %sh (attainment %s%%)\n",
			goal.HoursGoal.String(), attainmentPercent(stats.Net, goal.HoursGoal).String())
	} else {
		b.WriteString("No approved monthly goal was set for this month.\n")
	}
	fmt.Fprintf(&b, "Accumulated extra hours across all months: %s\n", acc.TotalExtra.String())
	b.WriteString("Tone: factual and encouraging. Do not invent activities beyond these numbers.")
	return b.String(), nil
}
