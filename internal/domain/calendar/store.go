package calendar

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateCalendar(ctx context.Context, tenantID string, c Calendar) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO frequency_calendars (tenant_id, name, description)
    VALUES ($1,$2,$3)
    RETURNING id
  `, tenantID, c.Name, c.Description).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetCalendar(ctx context.Context, tenantID, calendarID string) (*Calendar, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id, name, COALESCE(description, ''), created_at, updated_at
    FROM frequency_calendars
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, calendarID)

	var c Calendar
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCalendarNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCalendars(ctx context.Context, tenantID string, limit, offset int) ([]Calendar, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, COALESCE(description, ''), created_at, updated_at
    FROM frequency_calendars
    WHERE tenant_id = $1
    ORDER BY name
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Calendar
	for rows.Next() {
		var c Calendar
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCalendar(ctx context.Context, tenantID, calendarID string, c Calendar) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE frequency_calendars
    SET name = $1,
        description = $2,
        updated_at = now()
    WHERE tenant_id = $3 AND id = $4
  `, c.Name, c.Description, tenantID, calendarID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCalendarNotFound
	}
	return nil
}

func (s *Store) CreatePeriod(ctx context.Context, tenantID string, p Period) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO calendar_periods (calendar_id, name, start_date, end_date)
    SELECT c.id, $3, $4, $5
    FROM frequency_calendars c
    WHERE c.tenant_id = $1 AND c.id = $2
    RETURNING id
  `, tenantID, p.CalendarID, p.Name, p.StartDate, p.EndDate).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrCalendarNotFound
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListPeriods(ctx context.Context, tenantID, calendarID string) ([]Period, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT p.id, p.calendar_id, p.name, p.start_date, p.end_date, p.created_at
    FROM calendar_periods p
    JOIN frequency_calendars c ON c.id = p.calendar_id
    WHERE c.tenant_id = $1 AND p.calendar_id = $2
    ORDER BY p.start_date
  `, tenantID, calendarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.CalendarID, &p.Name, &p.StartDate, &p.EndDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) PeriodsByIDs(ctx context.Context, tenantID string, periodIDs []string) ([]Period, error) {
	if len(periodIDs) == 0 {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT p.id, p.calendar_id, p.name, p.start_date, p.end_date, p.created_at
    FROM calendar_periods p
    JOIN frequency_calendars c ON c.id = p.calendar_id
    WHERE c.tenant_id = $1 AND p.id = ANY($2)
    ORDER BY p.start_date
  `, tenantID, periodIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.CalendarID, &p.Name, &p.StartDate, &p.EndDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
