package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appraise/internal/domain/evaluation"
	"appraise/internal/domain/schedule"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	var employeeID string
	err := s.DB.QueryRow(ctx, "SELECT id FROM employees WHERE tenant_id = $1 AND user_id = $2", tenantID, userID).Scan(&employeeID)
	return employeeID, err
}

// count runs a single COUNT query. Every dashboard number funnels through
// here so the metrics below stay one-liners.
func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) PendingSelf(ctx context.Context, tenantID, employeeID string) (int, error) {
	return s.count(ctx,
		"SELECT COUNT(1) FROM evaluations WHERE tenant_id = $1 AND employee_id = $2 AND status IN ($3,$4)",
		tenantID, employeeID, evaluation.StatusNotStarted, evaluation.StatusDraft)
}

func (s *Store) AwaitingManager(ctx context.Context, tenantID, employeeID string) (int, error) {
	return s.count(ctx,
		"SELECT COUNT(1) FROM evaluations WHERE tenant_id = $1 AND employee_id = $2 AND status = $3",
		tenantID, employeeID, evaluation.StatusSelfSubmitted)
}

func (s *Store) CompletedForEmployee(ctx context.Context, tenantID, employeeID string) (int, error) {
	return s.count(ctx,
		"SELECT COUNT(1) FROM evaluations WHERE tenant_id = $1 AND employee_id = $2 AND status = $3",
		tenantID, employeeID, evaluation.StatusCompleted)
}

func (s *Store) ReviewsWaiting(ctx context.Context, tenantID, managerEmployeeID string) (int, error) {
	return s.count(ctx,
		"SELECT COUNT(1) FROM evaluations WHERE tenant_id = $1 AND manager_id = $2 AND status = $3",
		tenantID, managerEmployeeID, evaluation.StatusSelfSubmitted)
}

func (s *Store) FinalizeWaiting(ctx context.Context, tenantID, managerEmployeeID string) (int, error) {
	return s.count(ctx,
		"SELECT COUNT(1) FROM evaluations WHERE tenant_id = $1 AND manager_id = $2 AND status = $3",
		tenantID, managerEmployeeID, evaluation.StatusManagerReviewed)
}

func (s *Store) TeamEvaluations(ctx context.Context, tenantID, managerEmployeeID string) (int, error) {
	return s.count(ctx,
		"SELECT COUNT(1) FROM evaluations WHERE tenant_id = $1 AND manager_id = $2",
		tenantID, managerEmployeeID)
}

func (s *Store) ActiveCampaigns(ctx context.Context, tenantID string) (int, error) {
	return s.count(ctx,
		"SELECT COUNT(1) FROM campaigns WHERE tenant_id = $1 AND status = $2",
		tenantID, "active")
}

func (s *Store) OpenEvaluations(ctx context.Context, tenantID string) (int, error) {
	return s.count(ctx,
		"SELECT COUNT(1) FROM evaluations WHERE tenant_id = $1 AND status <> $2",
		tenantID, evaluation.StatusCompleted)
}

func (s *Store) OverdueTasks(ctx context.Context, tenantID string, now time.Time) (int, error) {
	return s.count(ctx,
		"SELECT COUNT(1) FROM scheduled_tasks WHERE tenant_id = $1 AND status = $2 AND scheduled_at <= $3",
		tenantID, schedule.StatusPending, now)
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

func (s *Store) StatusBreakdown(ctx context.Context, tenantID, campaignID string) ([]StatusCount, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT status, COUNT(1)
    FROM evaluations
    WHERE tenant_id = $1 AND campaign_id = $2
    GROUP BY status
    ORDER BY status
  `, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// JobRun is one recorded background execution, with its details JSON
// decoded for the response.
type JobRun struct {
	ID          string         `json:"id"`
	JobType     string         `json:"jobType"`
	Status      string         `json:"status"`
	Details     map[string]any `json:"details"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt"`
}

type JobRunFilter struct {
	JobType     string
	Status      string
	StartedFrom *time.Time
	StartedTo   *time.Time
}

// where renders the filter with $1 reserved for the tenant so callers can
// append their own pagination placeholders after the returned args.
func (f JobRunFilter) where(tenantID string) (string, []any) {
	conds := []string{"tenant_id = $1"}
	args := []any{tenantID}

	if v := strings.TrimSpace(f.JobType); v != "" {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("job_type = $%d", len(args)))
	}
	if v := strings.TrimSpace(f.Status); v != "" {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.StartedFrom != nil && !f.StartedFrom.IsZero() {
		args = append(args, *f.StartedFrom)
		conds = append(conds, fmt.Sprintf("started_at >= $%d", len(args)))
	}
	if f.StartedTo != nil && !f.StartedTo.IsZero() {
		args = append(args, *f.StartedTo)
		conds = append(conds, fmt.Sprintf("started_at <= $%d", len(args)))
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

const jobRunColumns = "id, job_type, status, COALESCE(details_json, '{}'::jsonb), started_at, completed_at"

func scanJobRun(row pgx.Row) (JobRun, error) {
	var run JobRun
	var detailsRaw []byte
	if err := row.Scan(&run.ID, &run.JobType, &run.Status, &detailsRaw, &run.StartedAt, &run.CompletedAt); err != nil {
		return JobRun{}, err
	}
	run.Details = decodeDetails(detailsRaw)
	return run, nil
}

func (s *Store) ListJobRuns(ctx context.Context, tenantID string, filter JobRunFilter, limit, offset int) ([]JobRun, error) {
	where, args := filter.where(tenantID)
	query := fmt.Sprintf("SELECT %s FROM job_runs%s ORDER BY started_at DESC LIMIT $%d OFFSET $%d",
		jobRunColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []JobRun
	for rows.Next() {
		run, err := scanJobRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) CountJobRuns(ctx context.Context, tenantID string, filter JobRunFilter) (int, error) {
	where, args := filter.where(tenantID)
	return s.count(ctx, "SELECT COUNT(1) FROM job_runs"+where, args...)
}

func (s *Store) JobRunByID(ctx context.Context, tenantID, runID string) (JobRun, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+jobRunColumns+" FROM job_runs WHERE tenant_id = $1 AND id = $2", tenantID, runID)
	return scanJobRun(row)
}

// decodeDetails tolerates malformed stored JSON; a run row should never
// make the listing fail.
func decodeDetails(raw []byte) map[string]any {
	details := map[string]any{}
	if len(raw) == 0 {
		return details
	}
	if err := json.Unmarshal(raw, &details); err != nil {
		return map[string]any{"raw": string(raw)}
	}
	return details
}
