package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appraise/internal/domain/calendar"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateCampaign(ctx context.Context, tenantID string, c Campaign) (string, error) {
	var excludedJSON []byte
	var err error
	if len(c.ExcludedEmployeeIDs) > 0 {
		if excludedJSON, err = json.Marshal(c.ExcludedEmployeeIDs); err != nil {
			return "", err
		}
	}

	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO campaigns (tenant_id, name, description, group_id, kind, document_ref, calendar_id,
                           days_to_initiate, days_to_close, reminder_count,
                           excluded_ids_json, exclude_short_tenure, publish_mode, status, owner_user_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
    RETURNING id
  `, tenantID, c.Name, nullIfEmpty(c.Description), c.GroupID, c.Kind,
		nullIfEmpty(c.DocumentRef), nullIfEmpty(c.CalendarID),
		c.Defaults.DaysToInitiate, c.Defaults.DaysToClose, c.Defaults.ReminderCount,
		excludedJSON, c.ExcludeShortTenure, c.PublishMode, c.Status, c.OwnerUserID).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetCampaign(ctx context.Context, tenantID, campaignID string) (*Campaign, error) {
	var c Campaign
	var excludedJSON []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, tenant_id, name, COALESCE(description, ''), group_id, kind,
           COALESCE(document_ref, ''), COALESCE(calendar_id::text, ''),
           days_to_initiate, days_to_close, reminder_count,
           excluded_ids_json, exclude_short_tenure, publish_mode, status, owner_user_id,
           published_at, closed_at, created_at, updated_at
    FROM campaigns
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, campaignID).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Description, &c.GroupID, &c.Kind,
		&c.DocumentRef, &c.CalendarID,
		&c.Defaults.DaysToInitiate, &c.Defaults.DaysToClose, &c.Defaults.ReminderCount,
		&excludedJSON, &c.ExcludeShortTenure, &c.PublishMode, &c.Status, &c.OwnerUserID,
		&c.PublishedAt, &c.ClosedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(excludedJSON, &c.ExcludedEmployeeIDs); err != nil {
		c.ExcludedEmployeeIDs = nil
	}

	ids, err := s.CampaignQuestionnaireIDs(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	c.QuestionnaireIDs = ids
	return &c, nil
}

// ListCampaigns returns light rows without questionnaire bindings; the
// detail view loads those.
func (s *Store) ListCampaigns(ctx context.Context, tenantID, status string, limit, offset int) ([]Campaign, error) {
	query := `
    SELECT id, tenant_id, name, COALESCE(description, ''), group_id, kind,
           COALESCE(document_ref, ''), COALESCE(calendar_id::text, ''),
           days_to_initiate, days_to_close, reminder_count,
           excluded_ids_json, exclude_short_tenure, publish_mode, status, owner_user_id,
           published_at, closed_at, created_at, updated_at
    FROM campaigns
    WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, status)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Campaign
	for rows.Next() {
		var c Campaign
		var excludedJSON []byte
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.Name, &c.Description, &c.GroupID, &c.Kind,
			&c.DocumentRef, &c.CalendarID,
			&c.Defaults.DaysToInitiate, &c.Defaults.DaysToClose, &c.Defaults.ReminderCount,
			&excludedJSON, &c.ExcludeShortTenure, &c.PublishMode, &c.Status, &c.OwnerUserID,
			&c.PublishedAt, &c.ClosedAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(excludedJSON, &c.ExcludedEmployeeIDs); err != nil {
			c.ExcludedEmployeeIDs = nil
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCampaign(ctx context.Context, tenantID, campaignID string, c Campaign) error {
	var excludedJSON []byte
	var err error
	if len(c.ExcludedEmployeeIDs) > 0 {
		if excludedJSON, err = json.Marshal(c.ExcludedEmployeeIDs); err != nil {
			return err
		}
	}

	cmd, err := s.DB.Exec(ctx, `
    UPDATE campaigns
    SET name = $1, description = $2, group_id = $3, kind = $4, document_ref = $5, calendar_id = $6,
        days_to_initiate = $7, days_to_close = $8, reminder_count = $9,
        excluded_ids_json = $10, exclude_short_tenure = $11, publish_mode = $12, updated_at = now()
    WHERE tenant_id = $13 AND id = $14
  `, c.Name, nullIfEmpty(c.Description), c.GroupID, c.Kind,
		nullIfEmpty(c.DocumentRef), nullIfEmpty(c.CalendarID),
		c.Defaults.DaysToInitiate, c.Defaults.DaysToClose, c.Defaults.ReminderCount,
		excludedJSON, c.ExcludeShortTenure, c.PublishMode, tenantID, campaignID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

func (s *Store) MarkPublished(ctx context.Context, tenantID, campaignID string) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE campaigns
    SET status = $1, published_at = COALESCE(published_at, now()), updated_at = now()
    WHERE tenant_id = $2 AND id = $3
  `, StatusActive, tenantID, campaignID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

func (s *Store) MarkClosed(ctx context.Context, tenantID, campaignID string) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE campaigns
    SET status = $1, closed_at = now(), updated_at = now()
    WHERE tenant_id = $2 AND id = $3
  `, StatusClosed, tenantID, campaignID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

func (s *Store) HasEvaluations(ctx context.Context, tenantID, campaignID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM evaluations
    WHERE tenant_id = $1 AND campaign_id = $2
  `, tenantID, campaignID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// BindPeriods replaces the campaign's period selection. Each binding may
// carry per-period overrides of the timing defaults; nil override values
// fall back to the campaign defaults at resolution time.
func (s *Store) BindPeriods(ctx context.Context, tenantID, campaignID string, overrides []calendar.PeriodTimingOverride) error {
	if _, err := s.DB.Exec(ctx, `
    DELETE FROM campaign_periods
    USING campaigns c
    WHERE campaign_periods.campaign_id = c.id AND c.tenant_id = $1 AND c.id = $2
  `, tenantID, campaignID); err != nil {
		return err
	}

	for _, o := range overrides {
		cmd, err := s.DB.Exec(ctx, `
    INSERT INTO campaign_periods (campaign_id, period_id, days_to_initiate, days_to_close, reminder_count)
    SELECT c.id, p.id, $1, $2, $3
    FROM campaigns c
    JOIN calendar_periods p ON p.calendar_id = c.calendar_id
    WHERE c.tenant_id = $4 AND c.id = $5 AND p.id = $6
  `, o.DaysToInitiate, o.DaysToClose, o.ReminderCount, tenantID, campaignID, o.PeriodID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrPeriodNotInCalendar, o.PeriodID)
		}
	}
	return nil
}

func (s *Store) PeriodOverrides(ctx context.Context, tenantID, campaignID string) ([]calendar.PeriodTimingOverride, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT cp.period_id, cp.days_to_initiate, cp.days_to_close, cp.reminder_count
    FROM campaign_periods cp
    JOIN campaigns c ON c.id = cp.campaign_id
    WHERE c.tenant_id = $1 AND cp.campaign_id = $2
  `, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []calendar.PeriodTimingOverride
	for rows.Next() {
		var o calendar.PeriodTimingOverride
		if err := rows.Scan(&o.PeriodID, &o.DaysToInitiate, &o.DaysToClose, &o.ReminderCount); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
