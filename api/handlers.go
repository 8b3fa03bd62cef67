/*
handlers.go - HTTP API handlers for the hours bank

PURPOSE:
  Exposes the hours engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Auth:
    POST   /api/auth/token                 Mint a dev token (bundled verifier)
    GET    /api/me                         Current principal

  Records:
    GET    /api/records                    List own records (admin: ?user_id=)
    POST   /api/records                    Create record (auto time-off conversion)
    PUT    /api/records/{id}               Update (ownership enforced)
    DELETE /api/records/{id}               Delete
    GET    /api/records/daily              Daily total (?date=)
    GET    /api/records/monthly            Monthly net total (?month=)

  Accounting:
    GET    /api/accumulated                AccumulatedHours rollup
    POST   /api/goals                      Submit monthly goal
    GET    /api/goals                      List own goals (admin: ?user_id=)
    POST   /api/conversions                Submit conversion (balance-capped)
    GET    /api/conversions                List own conversions

  Admin:
    GET    /api/approvals/pending          Pending queue (?kind=goal|conversion)
    POST   /api/approvals/{kind}/{id}/decide  Approve or reject
    GET    /api/users                      List authorized users
    POST   /api/users/{id}/role            Set role/authorization
    POST   /api/preauthorized              Add pre-authorized email
    GET    /api/rankings                   Monthly ranking (?month=)
    POST   /api/reports                    Generate AI summary
    GET    /api/reports                    List stored reports (?user_id=)

  Settings:
    GET    /api/settings                   Commit-prefill settings
    PUT    /api/settings                   Update settings
    GET    /api/commits                    Commit prefill text (?from=&to=)

ERROR HANDLING:
  Domain errors map to status codes via errors.Is:
    ErrValidation        400    ErrConflict, ErrInvalidState   409
    ErrUnauthenticated   401    ErrInsufficientHours           422
    ErrForbidden         403    ErrUpstream, generation        502
    ErrNotFound          404    anything else                  500

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Principal extraction
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/hours-bank/hours"
	"github.com/warp/hours-bank/identity"
	"github.com/warp/hours-bank/reports"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger     *hours.TimeLedger
	Approvals  *hours.ApprovalService
	Aggregator *hours.Aggregator
	Identity   *identity.Service
	Tokens     *identity.TokenService
	Users      identity.Store
	Reports    *reports.Service
	Prefill    *reports.CommitPrefill
	Settings   reports.SettingsStore
}

// =============================================================================
// AUTH
// =============================================================================

// MintToken issues a dev token for the bundled verifier. Deployments
// fronted by a real identity provider disable this route.
func (h *Handler) MintToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.SubjectID == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "subject_id and email are required", nil)
		return
	}

	role := identity.RoleCollaborator
	if req.Role == string(identity.RoleAdmin) {
		role = identity.RoleAdmin
	}
	token, err := h.Tokens.Mint(identity.User{SubjectID: req.SubjectID, Email: req.Email, Role: role})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mint token", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Me returns the authenticated principal.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	writeJSON(w, http.StatusOK, map[string]string{
		"subject_id": p.SubjectID,
		"email":      p.Email,
		"role":       string(p.Role),
	})
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// targetUser resolves which user a read targets: the caller, unless an
// admin asks for someone else via ?user_id=.
func targetUser(r *http.Request) (string, error) {
	p := principalFrom(r)
	requested := r.URL.Query().Get("user_id")
	if requested == "" || requested == p.SubjectID {
		return p.SubjectID, nil
	}
	if !p.IsAdmin() {
		return "", hours.ErrForbidden
	}
	return requested, nil
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	records, err := h.Ledger.ListRecords(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]RecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	record, err := h.Ledger.AddRecord(r.Context(), principalFrom(r), hours.NewRecord{
		UserID:      req.UserID,
		Name:        req.Name,
		Date:        req.Date,
		Type:        hours.RecordType(req.Type),
		Start:       req.Start,
		End:         req.End,
		Description: req.Description,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordDTO(*record))
}

func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req UpdateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	update := hours.RecordUpdate{
		Name:        req.Name,
		Date:        req.Date,
		Start:       req.Start,
		End:         req.End,
		Description: req.Description,
	}
	if req.Type != nil {
		t := hours.RecordType(*req.Type)
		update.Type = &t
	}

	record, err := h.Ledger.UpdateRecord(r.Context(), principalFrom(r), chi.URLParam(r, "id"), update)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(*record))
}

func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.DeleteRecord(r.Context(), principalFrom(r), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DailyTotal(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	total, err := h.Ledger.DailyTotal(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"total_hours": total.String()})
}

func (h *Handler) MonthlyTotal(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	total, err := h.Ledger.MonthlyTotal(r.Context(), userID, r.URL.Query().Get("month"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"net_hours": total.String()})
}

func (h *Handler) Accumulated(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	acc, err := h.Aggregator.Accumulated(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccumulatedDTO(*acc))
}

// =============================================================================
// GOAL AND CONVERSION HANDLERS
// =============================================================================

func (h *Handler) SubmitGoal(w http.ResponseWriter, r *http.Request) {
	var req SubmitGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	hoursGoal, err := decimal.NewFromString(req.HoursGoal)
	if err != nil {
		writeError(w, http.StatusBadRequest, "hours_goal must be a decimal number", err)
		return
	}

	goal, err := h.Approvals.SubmitGoal(r.Context(), principalFrom(r), req.UserID, req.Month, hoursGoal)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalDTO(*goal))
}

// ListGoals returns the user's full goal history, or just the
// authoritative approved goal when ?month= is given.
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if month := r.URL.Query().Get("month"); month != "" {
		goal, err := h.Approvals.Store.AuthoritativeGoal(r.Context(), userID, month)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if goal == nil {
			writeJSON(w, http.StatusOK, []GoalDTO{})
			return
		}
		writeJSON(w, http.StatusOK, []GoalDTO{toGoalDTO(*goal)})
		return
	}

	goals, err := h.Approvals.Store.ListGoals(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]GoalDTO, len(goals))
	for i, g := range goals {
		dtos[i] = toGoalDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SubmitConversion(w http.ResponseWriter, r *http.Request) {
	var req SubmitConversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	hoursRequested, err := decimal.NewFromString(req.Hours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "hours must be a decimal number", err)
		return
	}
	amount := decimal.Zero
	if req.Amount != "" {
		amount, err = decimal.NewFromString(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "amount must be a decimal number", err)
			return
		}
	}

	conversion, err := h.Approvals.SubmitConversion(r.Context(), principalFrom(r), hours.NewConversion{
		UserID: req.UserID,
		Hours:  hoursRequested,
		Amount: amount,
		Type:   hours.ConversionType(req.Type),
		Date:   req.Date,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConversionDTO(*conversion))
}

func (h *Handler) ListConversions(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	conversions, err := h.Approvals.Store.ListConversions(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]ConversionDTO, len(conversions))
	for i, c := range conversions {
		dtos[i] = toConversionDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// APPROVAL HANDLERS (admin)
// =============================================================================

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	kind := hours.ApprovalKind(r.URL.Query().Get("kind"))
	items, err := h.Approvals.ListPending(r.Context(), kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]PendingItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toPendingItemDTO(item)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Approvals.Decide(r.Context(), principalFrom(r),
		hours.ApprovalKind(chi.URLParam(r, "kind")), chi.URLParam(r, "id"), hours.Action(req.Action))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "decided"})
}

// =============================================================================
// USER ADMIN HANDLERS
// =============================================================================

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListAuthorizedUsers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	var req SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	caller := principalFrom(r)
	subjectID := chi.URLParam(r, "id")

	if req.Role != "" {
		if err := h.Identity.SetRole(r.Context(), caller, subjectID, identity.Role(req.Role)); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.Authorized != nil {
		if err := h.Identity.SetAuthorized(r.Context(), caller, subjectID, *req.Authorized); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) PreAuthorize(w http.ResponseWriter, r *http.Request) {
	var req PreAuthorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Identity.PreAuthorize(r.Context(), principalFrom(r), req.Email); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "pre-authorized"})
}

// =============================================================================
// REPORT AND RANKING HANDLERS
// =============================================================================

func (h *Handler) Ranking(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Reports.Ranking(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]RankingEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toRankingEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	report, err := h.Reports.GenerateSummary(r.Context(), principalFrom(r), req.UserID, req.Month)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReportDTO(*report))
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	stored, err := h.Reports.ListReports(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]ReportDTO, len(stored))
	for i, rep := range stored {
		dtos[i] = toReportDTO(rep)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SETTINGS AND COMMIT PREFILL
// =============================================================================

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.GetSettings(r.Context(), principalFrom(r).SubjectID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if settings == nil {
		settings = &reports.Settings{}
	}
	writeJSON(w, http.StatusOK, SettingsDTO{
		Repository: settings.Repository,
		Branch:     settings.Branch,
		Author:     settings.Author,
	})
}

func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Settings.PutSettings(r.Context(), reports.Settings{
		UserID:     principalFrom(r).SubjectID,
		Repository: req.Repository,
		Branch:     req.Branch,
		Author:     req.Author,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *Handler) CommitPrefill(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD", err)
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD", err)
		return
	}

	description, err := h.Prefill.Description(r.Context(), principalFrom(r).SubjectID, from, to)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to fetch commit history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": description})
}

// =============================================================================
// ERROR MAPPING AND JSON HELPERS
// =============================================================================

// writeDomainError maps engine errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var insufficientErr *hours.InsufficientHoursError

	switch {
	case errors.Is(err, hours.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, identity.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Unauthenticated", err)
	case errors.Is(err, hours.ErrForbidden), errors.Is(err, identity.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, hours.ErrNotFound), errors.Is(err, identity.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, hours.ErrConflict), errors.Is(err, hours.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.As(err, &insufficientErr):
		writeError(w, http.StatusUnprocessableEntity, insufficientErr.Error(), nil)
	case errors.Is(err, reports.ErrReportGenerationFailed), errors.Is(err, hours.ErrUpstream):
		writeError(w, http.StatusBadGateway, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
