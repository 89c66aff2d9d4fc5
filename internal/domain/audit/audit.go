package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// exportCap bounds CSV downloads so a busy tenant cannot stream the
// whole table in one request.
const exportCap = 10000

type Event struct {
	ID         string          `json:"id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	ActorID    string          `json:"actorId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorUser  string
}

// where renders the filter as a WHERE clause. Placeholders start at $1 for
// the tenant, so callers append their own LIMIT arguments after these.
func (f Filter) where(tenantID string) (string, []any) {
	conds := []string{"tenant_id = $1"}
	args := []any{tenantID}

	add := func(cond, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	add("action = $%d", f.Action)
	add("entity_type = $%d", f.EntityType)
	add("entity_id::text = $%d", f.EntityID)
	add("actor_user_id::text = $%d", f.ActorUser)

	return " WHERE " + strings.Join(conds, " AND "), args
}

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

// Record writes one immutable trail row. Callers pass nil before/after when
// the action has no meaningful diff.
func (s *Service) Record(ctx context.Context, tenantID, actorID, action, entityType, entityID, reqID, clientIP string, before, after any) error {
	beforeJSON, err := marshalDiff(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalDiff(after)
	if err != nil {
		return err
	}

	const query = `
    INSERT INTO audit_events (tenant_id, actor_user_id, action, entity_type, entity_id, request_id, ip, before_json, after_json)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `
	_, err = s.DB.Exec(ctx, query, tenantID, actorID, action, entityType, entityID, reqID, clientIP, beforeJSON, afterJSON)
	return err
}

func marshalDiff(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (s *Service) Count(ctx context.Context, tenantID string, filter Filter) (int, error) {
	where, args := filter.where(tenantID)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM audit_events"+where, args...).Scan(&total)
	return total, err
}

func (s *Service) List(ctx context.Context, tenantID string, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	cols := "id, actor_user_id, action, entity_type, entity_id, request_id, ip, created_at"
	if includeDetails {
		cols += ", before_json, after_json"
	}
	where, args := filter.where(tenantID)
	query := fmt.Sprintf("SELECT %s FROM audit_events%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		cols, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		dest := []any{&e.ID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &e.RequestID, &e.IP, &e.CreatedAt}
		if includeDetails {
			dest = append(dest, &e.Before, &e.After)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListExport returns the newest matching rows without diffs, capped for
// download.
func (s *Service) ListExport(ctx context.Context, tenantID string, filter Filter) ([]Event, error) {
	return s.List(ctx, tenantID, filter, false, exportCap, 0)
}
