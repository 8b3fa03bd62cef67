/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements every persistence surface of the hours bank over one
  database: hours.Store/TxStore (records, goals, conversions),
  identity.Store (users, pre-authorized emails), and the report and
  settings stores. In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  time_records:           One row per logged interval
  monthly_goals:          Goal requests, full history including rejected
  hour_conversions:       Conversion requests and auto-generated ones
  users:                  Identity records behind principals
  user_settings:          Commit-prefill configuration
  ai_reports:             Generated performance summaries
  pre_authorized_emails:  Signup allow-list

DATES AND AMOUNTS:
  Calendar dates and months are stored as their canonical strings
  (YYYY-MM-DD, YYYY-MM); timestamps as RFC3339Nano; decimal amounts as
  TEXT via decimal.String(). Round-tripping a record preserves date,
  type, start, end, and total exactly - no timestamp-conversion drift.

MISSING TABLES:
  List queries treat "no such table" as an empty result so first-run
  reads degrade gracefully instead of failing.

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers
  don't block and crash recovery improves.

SEE ALSO:
  - hours/store.go: Interface definitions and ordering contracts
  - hours/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/hours-bank/hours"
	"github.com/warp/hours-bank/identity"
	"github.com/warp/hours-bank/reports"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS time_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		record_type TEXT NOT NULL,
		start_min INTEGER NOT NULL,
		end_min INTEGER NOT NULL,
		total_hours TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_time_records_user_date
		ON time_records(user_id, date DESC);

	CREATE TABLE IF NOT EXISTS monthly_goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		month TEXT NOT NULL,
		hours_goal TEXT NOT NULL,
		status TEXT NOT NULL,
		requested_by TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_monthly_goals_user_month
		ON monthly_goals(user_id, month, status);
	CREATE INDEX IF NOT EXISTS idx_monthly_goals_status
		ON monthly_goals(status);

	CREATE TABLE IF NOT EXISTS hour_conversions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		hours TEXT NOT NULL,
		amount TEXT NOT NULL,
		conversion_type TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		requested_by TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		source_record_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_hour_conversions_user
		ON hour_conversions(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_hour_conversions_status
		ON hour_conversions(status);

	CREATE TABLE IF NOT EXISTS users (
		subject_id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		authorized INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_settings (
		user_id TEXT PRIMARY KEY,
		repository TEXT NOT NULL DEFAULT '',
		branch TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS ai_reports (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		month TEXT NOT NULL,
		prompt TEXT NOT NULL,
		content TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ai_reports_user
		ON ai_reports(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS pre_authorized_emails (
		email TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// QUERIER - Shared by the store and its transactional view
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isMissingTable reports whether err is a "no such table" failure, which
// list queries degrade to an empty result.
func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// =============================================================================
// TIME RECORDS
// =============================================================================

func (s *Store) PutRecord(ctx context.Context, r hours.TimeRecord) error {
	return putRecord(ctx, s.db, r)
}

func putRecord(ctx context.Context, q querier, r hours.TimeRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO time_records
			(id, user_id, name, date, record_type, start_min, end_min, total_hours, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			date = excluded.date,
			record_type = excluded.record_type,
			start_min = excluded.start_min,
			end_min = excluded.end_min,
			total_hours = excluded.total_hours,
			description = excluded.description`,
		r.ID, r.UserID, r.Name, r.Date, string(r.Type), int(r.Start), int(r.End),
		r.TotalHours.String(), r.Description, r.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) GetRecord(ctx context.Context, id string) (*hours.TimeRecord, error) {
	return getRecord(ctx, s.db, id)
}

func getRecord(ctx context.Context, q querier, id string) (*hours.TimeRecord, error) {
	rows, err := q.QueryContext(ctx, recordSelect+` WHERE id = ?`, id)
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	r, err := scanRecord(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	return deleteRecord(ctx, s.db, id)
}

func deleteRecord(ctx context.Context, q querier, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM time_records WHERE id = ?`, id)
	return err
}

func (s *Store) ListRecords(ctx context.Context, userID string) ([]hours.TimeRecord, error) {
	return listRecords(ctx, s.db, userID)
}

func listRecords(ctx context.Context, q querier, userID string) ([]hours.TimeRecord, error) {
	rows, err := q.QueryContext(ctx,
		recordSelect+` WHERE user_id = ? ORDER BY date DESC, created_at DESC, rowid DESC`, userID)
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var records []hours.TimeRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

const recordSelect = `
	SELECT id, user_id, name, date, record_type, start_min, end_min, total_hours, description, created_at
	FROM time_records`

func scanRecord(rows *sql.Rows) (hours.TimeRecord, error) {
	var r hours.TimeRecord
	var recordType, totalHours, createdAt string
	var start, end int

	if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Date, &recordType,
		&start, &end, &totalHours, &r.Description, &createdAt); err != nil {
		return r, err
	}

	r.Type = hours.RecordType(recordType)
	r.Start = hours.MinuteOfDay(start)
	r.End = hours.MinuteOfDay(end)

	total, err := decimal.NewFromString(totalHours)
	if err != nil {
		return r, fmt.Errorf("parse total_hours %q: %w", totalHours, err)
	}
	r.TotalHours = total

	r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return r, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return r, nil
}

// =============================================================================
// MONTHLY GOALS
// =============================================================================

func (s *Store) PutGoal(ctx context.Context, g hours.MonthlyGoal) error {
	return putGoal(ctx, s.db, g)
}

func putGoal(ctx context.Context, q querier, g hours.MonthlyGoal) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO monthly_goals
			(id, user_id, month, hours_goal, status, requested_by, approved_by, approved_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			approved_by = excluded.approved_by,
			approved_at = excluded.approved_at`,
		g.ID, g.UserID, g.Month, g.HoursGoal.String(), string(g.Status), g.RequestedBy,
		nullString(g.ApprovedBy), nullTime(g.ApprovedAt), g.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) GetGoal(ctx context.Context, id string) (*hours.MonthlyGoal, error) {
	return getGoal(ctx, s.db, id)
}

func getGoal(ctx context.Context, q querier, id string) (*hours.MonthlyGoal, error) {
	goals, err := queryGoals(ctx, q, goalSelect+` WHERE id = ?`, id)
	if err != nil || len(goals) == 0 {
		return nil, err
	}
	return &goals[0], nil
}

func (s *Store) ListGoals(ctx context.Context, userID string) ([]hours.MonthlyGoal, error) {
	return queryGoals(ctx, s.db,
		goalSelect+` WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
}

func (s *Store) ListPendingGoals(ctx context.Context) ([]hours.MonthlyGoal, error) {
	return listPendingGoals(ctx, s.db)
}

func listPendingGoals(ctx context.Context, q querier) ([]hours.MonthlyGoal, error) {
	return queryGoals(ctx, q,
		goalSelect+` WHERE status = ? ORDER BY created_at DESC, rowid DESC`, string(hours.StatusPending))
}

func (s *Store) AuthoritativeGoal(ctx context.Context, userID, month string) (*hours.MonthlyGoal, error) {
	return authoritativeGoal(ctx, s.db, userID, month)
}

func authoritativeGoal(ctx context.Context, q querier, userID, month string) (*hours.MonthlyGoal, error) {
	goals, err := queryGoals(ctx, q, goalSelect+`
		WHERE user_id = ? AND month = ? AND status = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		userID, month, string(hours.StatusApproved))
	if err != nil || len(goals) == 0 {
		return nil, err
	}
	return &goals[0], nil
}

func (s *Store) HasPendingGoal(ctx context.Context, userID, month string) (bool, error) {
	return hasPendingGoal(ctx, s.db, userID, month)
}

func hasPendingGoal(ctx context.Context, q querier, userID, month string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM monthly_goals
		WHERE user_id = ? AND month = ? AND status = ?`,
		userID, month, string(hours.StatusPending)).Scan(&count)
	if err != nil {
		if isMissingTable(err) {
			return false, nil
		}
		return false, err
	}
	return count > 0, nil
}

const goalSelect = `
	SELECT id, user_id, month, hours_goal, status, requested_by, approved_by, approved_at, created_at
	FROM monthly_goals`

func queryGoals(ctx context.Context, q querier, query string, args ...any) ([]hours.MonthlyGoal, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var goals []hours.MonthlyGoal
	for rows.Next() {
		var g hours.MonthlyGoal
		var hoursGoal, status, createdAt string
		var approvedBy, approvedAt sql.NullString

		if err := rows.Scan(&g.ID, &g.UserID, &g.Month, &hoursGoal, &status,
			&g.RequestedBy, &approvedBy, &approvedAt, &createdAt); err != nil {
			return nil, err
		}

		g.HoursGoal, err = decimal.NewFromString(hoursGoal)
		if err != nil {
			return nil, fmt.Errorf("parse hours_goal %q: %w", hoursGoal, err)
		}
		g.Status = hours.Status(status)
		g.ApprovedBy = fromNullString(approvedBy)
		g.ApprovedAt, err = fromNullTime(approvedAt)
		if err != nil {
			return nil, err
		}
		g.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// =============================================================================
// HOUR CONVERSIONS
// =============================================================================

func (s *Store) PutConversion(ctx context.Context, c hours.HourConversion) error {
	return putConversion(ctx, s.db, c)
}

func putConversion(ctx context.Context, q querier, c hours.HourConversion) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO hour_conversions
			(id, user_id, hours, amount, conversion_type, date, status, requested_by,
			 approved_by, approved_at, source_record_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			approved_by = excluded.approved_by,
			approved_at = excluded.approved_at`,
		c.ID, c.UserID, c.Hours.String(), c.Amount.String(), string(c.Type), c.Date,
		string(c.Status), c.RequestedBy, nullString(c.ApprovedBy), nullTime(c.ApprovedAt),
		c.SourceRecordID, c.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) GetConversion(ctx context.Context, id string) (*hours.HourConversion, error) {
	return getConversion(ctx, s.db, id)
}

func (s *Store) DeleteConversion(ctx context.Context, id string) error {
	return deleteConversion(ctx, s.db, id)
}

func deleteConversion(ctx context.Context, q querier, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM hour_conversions WHERE id = ?`, id)
	return err
}

func getConversion(ctx context.Context, q querier, id string) (*hours.HourConversion, error) {
	conversions, err := queryConversions(ctx, q, conversionSelect+` WHERE id = ?`, id)
	if err != nil || len(conversions) == 0 {
		return nil, err
	}
	return &conversions[0], nil
}

func (s *Store) ListConversions(ctx context.Context, userID string) ([]hours.HourConversion, error) {
	return listConversions(ctx, s.db, userID)
}

func listConversions(ctx context.Context, q querier, userID string) ([]hours.HourConversion, error) {
	return queryConversions(ctx, q,
		conversionSelect+` WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
}

func (s *Store) ListPendingConversions(ctx context.Context) ([]hours.HourConversion, error) {
	return listPendingConversions(ctx, s.db)
}

func listPendingConversions(ctx context.Context, q querier) ([]hours.HourConversion, error) {
	return queryConversions(ctx, q,
		conversionSelect+` WHERE status = ? ORDER BY created_at DESC, rowid DESC`,
		string(hours.StatusPending))
}

const conversionSelect = `
	SELECT id, user_id, hours, amount, conversion_type, date, status, requested_by,
	       approved_by, approved_at, source_record_id, created_at
	FROM hour_conversions`

func queryConversions(ctx context.Context, q querier, query string, args ...any) ([]hours.HourConversion, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var conversions []hours.HourConversion
	for rows.Next() {
		var c hours.HourConversion
		var hoursVal, amount, conversionType, status, createdAt string
		var approvedBy, approvedAt sql.NullString

		if err := rows.Scan(&c.ID, &c.UserID, &hoursVal, &amount, &conversionType, &c.Date,
			&status, &c.RequestedBy, &approvedBy, &approvedAt, &c.SourceRecordID, &createdAt); err != nil {
			return nil, err
		}

		c.Hours, err = decimal.NewFromString(hoursVal)
		if err != nil {
			return nil, fmt.Errorf("parse hours %q: %w", hoursVal, err)
		}
		c.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		c.Type = hours.ConversionType(conversionType)
		c.Status = hours.Status(status)
		c.ApprovedBy = fromNullString(approvedBy)
		c.ApprovedAt, err = fromNullTime(approvedAt)
		if err != nil {
			return nil, err
		}
		c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		conversions = append(conversions, c)
	}
	return conversions, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn against a transactional view of the hours store.
// An error from fn rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(hours.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&txView{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// txView implements hours.Store over an open transaction.
type txView struct {
	tx *sql.Tx
}

func (v *txView) PutRecord(ctx context.Context, r hours.TimeRecord) error {
	return putRecord(ctx, v.tx, r)
}
func (v *txView) GetRecord(ctx context.Context, id string) (*hours.TimeRecord, error) {
	return getRecord(ctx, v.tx, id)
}
func (v *txView) DeleteRecord(ctx context.Context, id string) error {
	return deleteRecord(ctx, v.tx, id)
}
func (v *txView) ListRecords(ctx context.Context, userID string) ([]hours.TimeRecord, error) {
	return listRecords(ctx, v.tx, userID)
}
func (v *txView) PutGoal(ctx context.Context, g hours.MonthlyGoal) error {
	return putGoal(ctx, v.tx, g)
}
func (v *txView) GetGoal(ctx context.Context, id string) (*hours.MonthlyGoal, error) {
	return getGoal(ctx, v.tx, id)
}
func (v *txView) ListGoals(ctx context.Context, userID string) ([]hours.MonthlyGoal, error) {
	return queryGoals(ctx, v.tx, goalSelect+` WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
}
func (v *txView) ListPendingGoals(ctx context.Context) ([]hours.MonthlyGoal, error) {
	return listPendingGoals(ctx, v.tx)
}
func (v *txView) AuthoritativeGoal(ctx context.Context, userID, month string) (*hours.MonthlyGoal, error) {
	return authoritativeGoal(ctx, v.tx, userID, month)
}
func (v *txView) HasPendingGoal(ctx context.Context, userID, month string) (bool, error) {
	return hasPendingGoal(ctx, v.tx, userID, month)
}
func (v *txView) PutConversion(ctx context.Context, c hours.HourConversion) error {
	return putConversion(ctx, v.tx, c)
}
func (v *txView) GetConversion(ctx context.Context, id string) (*hours.HourConversion, error) {
	return getConversion(ctx, v.tx, id)
}
func (v *txView) DeleteConversion(ctx context.Context, id string) error {
	return deleteConversion(ctx, v.tx, id)
}
func (v *txView) ListConversions(ctx context.Context, userID string) ([]hours.HourConversion, error) {
	return listConversions(ctx, v.tx, userID)
}
func (v *txView) ListPendingConversions(ctx context.Context) ([]hours.HourConversion, error) {
	return listPendingConversions(ctx, v.tx)
}

// =============================================================================
// USERS (identity.Store)
// =============================================================================

func (s *Store) PutUser(ctx context.Context, u identity.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (subject_id, email, name, role, authorized, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			role = excluded.role,
			authorized = excluded.authorized`,
		u.SubjectID, u.Email, u.Name, string(u.Role), boolToInt(u.Authorized),
		u.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) GetUser(ctx context.Context, subjectID string) (*identity.User, error) {
	return s.queryOneUser(ctx, userSelect+` WHERE subject_id = ?`, subjectID)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	return s.queryOneUser(ctx, userSelect+` WHERE email = ?`, email)
}

func (s *Store) ListAuthorizedUsers(ctx context.Context) ([]identity.User, error) {
	return s.queryUsers(ctx, userSelect+` WHERE authorized = 1 ORDER BY email`)
}

func (s *Store) CountAuthorizedUsers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE authorized = 1`).Scan(&count)
	if err != nil {
		if isMissingTable(err) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

const userSelect = `
	SELECT subject_id, email, name, role, authorized, created_at FROM users`

func (s *Store) queryOneUser(ctx context.Context, query string, args ...any) (*identity.User, error) {
	users, err := s.queryUsers(ctx, query, args...)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return &users[0], nil
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...any) ([]identity.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var users []identity.User
	for rows.Next() {
		var u identity.User
		var role, createdAt string
		var authorized int

		if err := rows.Scan(&u.SubjectID, &u.Email, &u.Name, &role, &authorized, &createdAt); err != nil {
			return nil, err
		}
		u.Role = identity.Role(role)
		u.Authorized = authorized != 0
		u.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DisplayName implements hours.Directory: name first, email as fallback.
func (s *Store) DisplayName(ctx context.Context, userID string) (string, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	if user.Name != "" {
		return user.Name, nil
	}
	return user.Email, nil
}

func (s *Store) IsPreAuthorized(ctx context.Context, email string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pre_authorized_emails WHERE email = ?`, email).Scan(&count)
	if err != nil {
		if isMissingTable(err) {
			return false, nil
		}
		return false, err
	}
	return count > 0, nil
}

func (s *Store) AddPreAuthorizedEmail(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pre_authorized_emails (email, created_at) VALUES (?, ?)
		ON CONFLICT(email) DO NOTHING`,
		email, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// =============================================================================
// AI REPORTS (reports.ReportStore)
// =============================================================================

func (s *Store) PutReport(ctx context.Context, r reports.Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_reports (id, user_id, month, prompt, content, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Month, r.Prompt, r.Content, r.CreatedBy,
		r.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) ListReports(ctx context.Context, userID string) ([]reports.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, month, prompt, content, created_by, created_at
		FROM ai_reports WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var result []reports.Report
	for rows.Next() {
		var r reports.Report
		var createdAt string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Month, &r.Prompt, &r.Content, &r.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// =============================================================================
// USER SETTINGS (reports.SettingsStore)
// =============================================================================

func (s *Store) GetSettings(ctx context.Context, userID string) (*reports.Settings, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, repository, branch, author FROM user_settings WHERE user_id = ?`, userID)
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var settings reports.Settings
	if err := rows.Scan(&settings.UserID, &settings.Repository, &settings.Branch, &settings.Author); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Store) PutSettings(ctx context.Context, settings reports.Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, repository, branch, author)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			repository = excluded.repository,
			branch = excluded.branch,
			author = excluded.author`,
		settings.UserID, settings.Repository, settings.Branch, settings.Author)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func fromNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", ns.String, err)
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time interface checks.
var (
	_ hours.TxStore         = (*Store)(nil)
	_ hours.Directory       = (*Store)(nil)
	_ identity.Store        = (*Store)(nil)
	_ reports.ReportStore   = (*Store)(nil)
	_ reports.SettingsStore = (*Store)(nil)
)
