/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Hour and money amounts are serialized as decimal strings, never JSON
  numbers, so clients cannot accumulate float drift.

AVAILABLE BALANCE:
  AccumulatedDTO carries both the raw available balance (may be
  negative after an admin force-approval) and the zero-clamped display
  value. The raw value is the accounting truth; the clamped one is what
  dashboards show.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/hours-bank/hours"
	"github.com/warp/hours-bank/identity"
	"github.com/warp/hours-bank/reports"
)

// =============================================================================
// TIME RECORDS
// =============================================================================

type RecordDTO struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name,omitempty"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Start       string `json:"start_time"`
	End         string `json:"end_time"`
	TotalHours  string `json:"total_hours"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toRecordDTO(r hours.TimeRecord) RecordDTO {
	return RecordDTO{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Date:        r.Date,
		Type:        string(r.Type),
		Start:       r.Start.String(),
		End:         r.End.String(),
		TotalHours:  r.TotalHours.String(),
		Description: r.Description,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

type CreateRecordRequest struct {
	UserID      string `json:"user_id,omitempty"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Start       string `json:"start_time"`
	End         string `json:"end_time"`
	Description string `json:"description"`
}

type UpdateRecordRequest struct {
	Name        *string `json:"name,omitempty"`
	Date        *string `json:"date,omitempty"`
	Type        *string `json:"type,omitempty"`
	Start       *string `json:"start_time,omitempty"`
	End         *string `json:"end_time,omitempty"`
	Description *string `json:"description,omitempty"`
}

// =============================================================================
// GOALS AND CONVERSIONS
// =============================================================================

type GoalDTO struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Month       string  `json:"month"`
	HoursGoal   string  `json:"hours_goal"`
	Status      string  `json:"status"`
	RequestedBy string  `json:"requested_by"`
	ApprovedBy  *string `json:"approved_by,omitempty"`
	ApprovedAt  *string `json:"approved_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func toGoalDTO(g hours.MonthlyGoal) GoalDTO {
	return GoalDTO{
		ID:          g.ID,
		UserID:      g.UserID,
		Month:       g.Month,
		HoursGoal:   g.HoursGoal.String(),
		Status:      string(g.Status),
		RequestedBy: g.RequestedBy,
		ApprovedBy:  g.ApprovedBy,
		ApprovedAt:  formatTimePtr(g.ApprovedAt),
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
	}
}

type SubmitGoalRequest struct {
	UserID    string `json:"user_id,omitempty"`
	Month     string `json:"month"`
	HoursGoal string `json:"hours_goal"`
}

type ConversionDTO struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	Hours          string  `json:"hours"`
	Amount         string  `json:"amount"`
	Type           string  `json:"type"`
	Date           string  `json:"date"`
	Status         string  `json:"status"`
	RequestedBy    string  `json:"requested_by"`
	ApprovedBy     *string `json:"approved_by,omitempty"`
	ApprovedAt     *string `json:"approved_at,omitempty"`
	SourceRecordID string  `json:"source_record_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

func toConversionDTO(c hours.HourConversion) ConversionDTO {
	return ConversionDTO{
		ID:             c.ID,
		UserID:         c.UserID,
		Hours:          c.Hours.String(),
		Amount:         c.Amount.String(),
		Type:           string(c.Type),
		Date:           c.Date,
		Status:         string(c.Status),
		RequestedBy:    c.RequestedBy,
		ApprovedBy:     c.ApprovedBy,
		ApprovedAt:     formatTimePtr(c.ApprovedAt),
		SourceRecordID: c.SourceRecordID,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
}

type SubmitConversionRequest struct {
	UserID string `json:"user_id,omitempty"`
	Hours  string `json:"hours"`
	Amount string `json:"amount,omitempty"`
	Type   string `json:"type"`
	Date   string `json:"date"`
}

type DecideRequest struct {
	Action string `json:"action"` // approve | reject
}

type PendingItemDTO struct {
	Kind          string `json:"kind"`
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	RequesterName string `json:"requester_name"`
	Month         string `json:"month,omitempty"`
	Hours         string `json:"hours"`
	Amount        string `json:"amount,omitempty"`
	Type          string `json:"type,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toPendingItemDTO(p hours.PendingItem) PendingItemDTO {
	dto := PendingItemDTO{
		Kind:          string(p.Kind),
		ID:            p.ID,
		UserID:        p.UserID,
		RequesterName: p.RequesterName,
		Month:         p.Month,
		Hours:         p.Hours.String(),
		Type:          string(p.Type),
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
	if !p.Amount.IsZero() {
		dto.Amount = p.Amount.String()
	}
	return dto
}

// =============================================================================
// ACCUMULATED HOURS
// =============================================================================

type AccumulatedDTO struct {
	UserID           string          `json:"user_id"`
	TotalExtra       string          `json:"total_extra_hours"`
	ConvertedToMoney string          `json:"converted_to_money"`
	UsedForTimeOff   string          `json:"used_for_time_off"`
	Available        string          `json:"available_hours"`
	RawAvailable     string          `json:"raw_available_hours"`
	Months           []MonthExtraDTO `json:"months"`
}

type MonthExtraDTO struct {
	Month string `json:"month"`
	Net   string `json:"net_hours"`
	Goal  string `json:"goal_hours"`
	Extra string `json:"extra_hours"`
}

func toAccumulatedDTO(a hours.AccumulatedHours) AccumulatedDTO {
	months := make([]MonthExtraDTO, len(a.Months))
	for i, m := range a.Months {
		months[i] = MonthExtraDTO{
			Month: m.Month,
			Net:   m.Net.String(),
			Goal:  m.Goal.String(),
			Extra: m.Extra.String(),
		}
	}
	return AccumulatedDTO{
		UserID:           a.UserID,
		TotalExtra:       a.TotalExtra.String(),
		ConvertedToMoney: a.ConvertedToMoney.String(),
		UsedForTimeOff:   a.UsedForTimeOff.String(),
		Available:        a.DisplayAvailable().String(),
		RawAvailable:     a.Available.String(),
		Months:           months,
	}
}

// =============================================================================
// USERS, REPORTS, RANKINGS
// =============================================================================

type UserDTO struct {
	SubjectID  string `json:"subject_id"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	Role       string `json:"role"`
	Authorized bool   `json:"authorized"`
}

func toUserDTO(u identity.User) UserDTO {
	return UserDTO{
		SubjectID:  u.SubjectID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       string(u.Role),
		Authorized: u.Authorized,
	}
}

type SetRoleRequest struct {
	Role       string `json:"role"`
	Authorized *bool  `json:"authorized,omitempty"`
}

type PreAuthorizeRequest struct {
	Email string `json:"email"`
}

type ReportDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Month     string `json:"month"`
	Content   string `json:"content"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

func toReportDTO(r reports.Report) ReportDTO {
	return ReportDTO{
		ID:        r.ID,
		UserID:    r.UserID,
		Month:     r.Month,
		Content:   r.Content,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

type GenerateReportRequest struct {
	UserID string `json:"user_id"`
	Month  string `json:"month"`
}

type RankingEntryDTO struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email"`
	Net        string `json:"net_hours"`
	Goal       string `json:"goal_hours"`
	Attainment string `json:"attainment_percent"`
	Extra      string `json:"extra_hours"`
}

func toRankingEntryDTO(e reports.RankingEntry) RankingEntryDTO {
	return RankingEntryDTO{
		UserID:     e.UserID,
		Name:       e.Name,
		Email:      e.Email,
		Net:        e.Net.String(),
		Goal:       e.Goal.String(),
		Attainment: e.Attainment.String(),
		Extra:      e.Extra.String(),
	}
}

type SettingsDTO struct {
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
	Author     string `json:"author"`
}

type TokenRequest struct {
	SubjectID string `json:"subject_id"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
