package schedule

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Plan inserts task rows, skipping any that collide on the uniqueness key
// (campaign, period, type, calendar date). Republished campaigns therefore
// only add tasks for dates that do not have one yet. Returns how many rows
// were actually inserted.
func (s *Store) Plan(ctx context.Context, tenantID string, tasks []Task) (int, error) {
	planned := 0
	for _, task := range tasks {
		cmd, err := s.DB.Exec(ctx, `
    INSERT INTO scheduled_tasks (tenant_id, campaign_id, period_id, task_type, scheduled_at, scheduled_date, status)
    VALUES ($1,$2,$3,$4,$5,$5::date,$6)
    ON CONFLICT (campaign_id, COALESCE(period_id::text, ''), task_type, scheduled_date) DO NOTHING
  `, tenantID, task.CampaignID, nullIfEmpty(task.PeriodID), task.Type, task.ScheduledAt, StatusPending)
		if err != nil {
			return planned, err
		}
		planned += int(cmd.RowsAffected())
	}
	return planned, nil
}

// DuePending returns pending tasks whose time has come, oldest first. The
// runner dispatches across every tenant, so rows carry their tenant id.
func (s *Store) DuePending(ctx context.Context, now time.Time, limit int) ([]Task, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, tenant_id, campaign_id, COALESCE(period_id::text, ''), task_type,
           scheduled_at, status, executed_at, COALESCE(last_error, ''), created_at
    FROM scheduled_tasks
    WHERE status = $1 AND scheduled_at <= $2
    ORDER BY scheduled_at
    LIMIT $3
  `, StatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var task Task
		if err := rows.Scan(&task.ID, &task.TenantID, &task.CampaignID, &task.PeriodID, &task.Type,
			&task.ScheduledAt, &task.Status, &task.ExecutedAt, &task.LastError, &task.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (s *Store) ListByCampaign(ctx context.Context, tenantID, campaignID string) ([]Task, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, tenant_id, campaign_id, COALESCE(period_id::text, ''), task_type,
           scheduled_at, status, executed_at, COALESCE(last_error, ''), created_at
    FROM scheduled_tasks
    WHERE tenant_id = $1 AND campaign_id = $2
    ORDER BY scheduled_at
  `, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var task Task
		if err := rows.Scan(&task.ID, &task.TenantID, &task.CampaignID, &task.PeriodID, &task.Type,
			&task.ScheduledAt, &task.Status, &task.ExecutedAt, &task.LastError, &task.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (s *Store) MarkExecuted(ctx context.Context, taskID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE scheduled_tasks
    SET status = $1, executed_at = now(), last_error = NULL
    WHERE id = $2
  `, StatusExecuted, taskID)
	return err
}

func (s *Store) MarkError(ctx context.Context, taskID string, cause error) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE scheduled_tasks
    SET status = $1, executed_at = now(), last_error = $2
    WHERE id = $3
  `, StatusError, cause.Error(), taskID)
	return err
}

// PendingCloseAfter counts close tasks still pending for the campaign after
// the given time. A close handler only shuts the campaign when this drops
// to zero, so multi-period campaigns stay active between rounds.
func (s *Store) PendingCloseAfter(ctx context.Context, tenantID, campaignID string, after time.Time) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM scheduled_tasks
    WHERE tenant_id = $1 AND campaign_id = $2 AND task_type = $3 AND status = $4 AND scheduled_at > $5
  `, tenantID, campaignID, TaskClose, StatusPending, after).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
