package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) GetEvaluation(ctx context.Context, tenantID, evaluationID string) (*Evaluation, error) {
	var ev Evaluation
	var selfJSON, managerJSON []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, tenant_id, employee_id, manager_id,
           COALESCE(campaign_id::text, ''),
           COALESCE(review_cycle_id::text, ''),
           self_evaluation_json, self_submitted_at,
           manager_evaluation_json, manager_submitted_at,
           overall_rating, status,
           meeting_scheduled_at, COALESCE(meeting_notes, ''), meeting_completed_at,
           show_notes_to_employee, finalized_at,
           calibrated_rating, COALESCE(calibration_remarks, ''),
           COALESCE(calibrated_by::text, ''), calibrated_at,
           created_at, updated_at
    FROM evaluations
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, evaluationID).Scan(
		&ev.ID, &ev.TenantID, &ev.EmployeeID, &ev.ManagerID,
		&ev.CampaignID, &ev.ReviewCycleID,
		&selfJSON, &ev.SelfSubmittedAt,
		&managerJSON, &ev.ManagerSubmittedAt,
		&ev.OverallRating, &ev.Status,
		&ev.MeetingScheduledAt, &ev.MeetingNotes, &ev.MeetingCompletedAt,
		&ev.ShowNotesToEmployee, &ev.FinalizedAt,
		&ev.CalibratedRating, &ev.CalibrationRemarks,
		&ev.CalibratedBy, &ev.CalibratedAt,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEvaluationNotFound
	}
	if err != nil {
		return nil, err
	}
	ev.SelfEvaluation, ev.selfEvaluationRaw = decodeResponses(ev.ID, "self_evaluation_json", selfJSON)
	ev.ManagerEvaluation, ev.managerEvaluationRaw = decodeResponses(ev.ID, "manager_evaluation_json", managerJSON)
	ev.DeriveMeetingStatus()
	return &ev, nil
}

// decodeResponses decodes one stored payload column. A malformed payload is
// logged and carried as raw bytes so a later full-row write preserves it
// instead of nulling it out.
func decodeResponses(evaluationID, column string, raw []byte) (*ResponseSet, json.RawMessage) {
	if len(raw) == 0 {
		return nil, nil
	}
	var set *ResponseSet
	if err := json.Unmarshal(raw, &set); err != nil {
		slog.Warn("evaluation payload failed to decode",
			"evaluationId", evaluationID, "column", column, "err", err)
		return nil, json.RawMessage(raw)
	}
	return set, nil
}

// encodeResponses is the write-side counterpart: a decoded payload wins,
// otherwise the raw bytes carried from the read are written back untouched.
func encodeResponses(set *ResponseSet, raw json.RawMessage) ([]byte, error) {
	if set != nil {
		return json.Marshal(set)
	}
	return raw, nil
}

// UpdateEvaluation writes the full row, predicated on the status the
// caller read. A row that moved under the caller matches zero rows and
// surfaces as ErrEvaluationStale so the losing actor retries instead of
// silently overwriting the winner.
func (s *Store) UpdateEvaluation(ctx context.Context, tenantID string, ev *Evaluation, fromStatus string) error {
	selfJSON, err := encodeResponses(ev.SelfEvaluation, ev.selfEvaluationRaw)
	if err != nil {
		return err
	}
	managerJSON, err := encodeResponses(ev.ManagerEvaluation, ev.managerEvaluationRaw)
	if err != nil {
		return err
	}

	cmd, err := s.DB.Exec(ctx, `
    UPDATE evaluations
    SET self_evaluation_json = $1,
        self_submitted_at = $2,
        manager_evaluation_json = $3,
        manager_submitted_at = $4,
        overall_rating = $5,
        status = $6,
        meeting_scheduled_at = $7,
        meeting_notes = $8,
        meeting_completed_at = $9,
        show_notes_to_employee = $10,
        finalized_at = $11,
        calibrated_rating = $12,
        calibration_remarks = $13,
        calibrated_by = $14,
        calibrated_at = $15,
        updated_at = now()
    WHERE tenant_id = $16 AND id = $17 AND status = $18
  `,
		selfJSON, ev.SelfSubmittedAt, managerJSON, ev.ManagerSubmittedAt,
		ev.OverallRating, ev.Status,
		ev.MeetingScheduledAt, nullIfEmpty(ev.MeetingNotes), ev.MeetingCompletedAt,
		ev.ShowNotesToEmployee, ev.FinalizedAt,
		ev.CalibratedRating, nullIfEmpty(ev.CalibrationRemarks),
		nullIfEmpty(ev.CalibratedBy), ev.CalibratedAt,
		tenantID, ev.ID, fromStatus,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var count int
		if err := s.DB.QueryRow(ctx,
			"SELECT COUNT(1) FROM evaluations WHERE tenant_id = $1 AND id = $2",
			tenantID, ev.ID).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return ErrEvaluationStale
		}
		return ErrEvaluationNotFound
	}
	return nil
}

func (s *Store) EvaluationExists(ctx context.Context, tenantID, employeeID, campaignID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM evaluations
    WHERE tenant_id = $1 AND employee_id = $2 AND campaign_id = $3
  `, tenantID, employeeID, campaignID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateEvaluation inserts one not_started row. The unique key on
// (employee_id, campaign_id) is the authoritative duplicate guard; a
// concurrent insert surfaces here as created=false, not as an error.
func (s *Store) CreateEvaluation(ctx context.Context, tenantID, employeeID, managerID, campaignID string) (bool, error) {
	cmd, err := s.DB.Exec(ctx, `
    INSERT INTO evaluations (tenant_id, employee_id, manager_id, campaign_id, status)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (employee_id, campaign_id) WHERE campaign_id IS NOT NULL DO NOTHING
  `, tenantID, employeeID, managerID, campaignID, StatusNotStarted)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *Store) List(ctx context.Context, tenantID string, f Filter, limit, offset int) ([]Evaluation, error) {
	query := `
    SELECT id, tenant_id, employee_id, manager_id,
           COALESCE(campaign_id::text, ''),
           COALESCE(review_cycle_id::text, ''),
           self_evaluation_json, self_submitted_at,
           manager_evaluation_json, manager_submitted_at,
           overall_rating, status,
           meeting_scheduled_at, COALESCE(meeting_notes, ''), meeting_completed_at,
           show_notes_to_employee, finalized_at,
           calibrated_rating, COALESCE(calibration_remarks, ''),
           COALESCE(calibrated_by::text, ''), calibrated_at,
           created_at, updated_at
    FROM evaluations
    WHERE tenant_id = $1`
	args := []any{tenantID}
	if f.CampaignID != "" {
		query += fmt.Sprintf(" AND campaign_id::text = $%d", len(args)+1)
		args = append(args, f.CampaignID)
	}
	if f.EmployeeID != "" {
		query += fmt.Sprintf(" AND employee_id::text = $%d", len(args)+1)
		args = append(args, f.EmployeeID)
	}
	if f.ManagerID != "" {
		query += fmt.Sprintf(" AND manager_id::text = $%d", len(args)+1)
		args = append(args, f.ManagerID)
	}
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, f.Status)
	}
	if f.SelfOrManagedBy != "" {
		query += fmt.Sprintf(" AND (manager_id::text = $%d OR employee_id::text = $%d)", len(args)+1, len(args)+1)
		args = append(args, f.SelfOrManagedBy)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		var ev Evaluation
		var selfJSON, managerJSON []byte
		if err := rows.Scan(
			&ev.ID, &ev.TenantID, &ev.EmployeeID, &ev.ManagerID,
			&ev.CampaignID, &ev.ReviewCycleID,
			&selfJSON, &ev.SelfSubmittedAt,
			&managerJSON, &ev.ManagerSubmittedAt,
			&ev.OverallRating, &ev.Status,
			&ev.MeetingScheduledAt, &ev.MeetingNotes, &ev.MeetingCompletedAt,
			&ev.ShowNotesToEmployee, &ev.FinalizedAt,
			&ev.CalibratedRating, &ev.CalibrationRemarks,
			&ev.CalibratedBy, &ev.CalibratedAt,
			&ev.CreatedAt, &ev.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ev.SelfEvaluation, ev.selfEvaluationRaw = decodeResponses(ev.ID, "self_evaluation_json", selfJSON)
		ev.ManagerEvaluation, ev.managerEvaluationRaw = decodeResponses(ev.ID, "manager_evaluation_json", managerJSON)
		ev.DeriveMeetingStatus()
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) ListByCampaign(ctx context.Context, tenantID, campaignID string) ([]Evaluation, error) {
	return s.List(ctx, tenantID, Filter{CampaignID: campaignID}, 10000, 0)
}

func (s *Store) QuestionCountForCampaign(ctx context.Context, campaignID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(jsonb_array_length(q.questions_json)), 0)
    FROM campaign_questionnaires cq
    JOIN questionnaires q ON q.id = cq.questionnaire_id
    WHERE cq.campaign_id = $1
  `, campaignID).Scan(&count)
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
