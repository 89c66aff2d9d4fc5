package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateQuestionnaire(ctx context.Context, tenantID, name string, ratingJSON, questionsJSON []byte) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO questionnaires (tenant_id, name, rating_scale_json, questions_json)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, tenantID, name, ratingJSON, questionsJSON).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListQuestionnaires(ctx context.Context, tenantID string) ([]Questionnaire, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, rating_scale_json, questions_json, created_at
    FROM questionnaires
    WHERE tenant_id = $1
    ORDER BY created_at DESC
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Questionnaire
	for rows.Next() {
		var q Questionnaire
		var ratingJSON, questionsJSON []byte
		if err := rows.Scan(&q.ID, &q.Name, &ratingJSON, &questionsJSON, &q.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(ratingJSON, &q.RatingScale); err != nil {
			q.RatingScale = nil
		}
		if err := json.Unmarshal(questionsJSON, &q.Questions); err != nil {
			q.Questions = nil
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) GetQuestionnaire(ctx context.Context, tenantID, questionnaireID string) (*Questionnaire, error) {
	var q Questionnaire
	var ratingJSON, questionsJSON []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, rating_scale_json, questions_json, created_at
    FROM questionnaires
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, questionnaireID).Scan(&q.ID, &q.Name, &ratingJSON, &questionsJSON, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuestionnaireNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ratingJSON, &q.RatingScale); err != nil {
		q.RatingScale = nil
	}
	if err := json.Unmarshal(questionsJSON, &q.Questions); err != nil {
		q.Questions = nil
	}
	return &q, nil
}

func (s *Store) DeleteQuestionnaire(ctx context.Context, tenantID, questionnaireID string) error {
	var attached int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM campaign_questionnaires
    WHERE questionnaire_id = $1
  `, questionnaireID).Scan(&attached); err != nil {
		return err
	}
	if attached > 0 {
		return ErrQuestionnaireInUse
	}

	cmd, err := s.DB.Exec(ctx, `
    DELETE FROM questionnaires
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, questionnaireID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrQuestionnaireNotFound
	}
	return nil
}

// AttachQuestionnaires replaces the campaign's questionnaire bindings,
// keeping the order the caller supplied.
func (s *Store) AttachQuestionnaires(ctx context.Context, tenantID, campaignID string, questionnaireIDs []string) error {
	if _, err := s.DB.Exec(ctx, `
    DELETE FROM campaign_questionnaires
    USING campaigns c
    WHERE campaign_questionnaires.campaign_id = c.id AND c.tenant_id = $1 AND c.id = $2
  `, tenantID, campaignID); err != nil {
		return err
	}

	for i, questionnaireID := range questionnaireIDs {
		cmd, err := s.DB.Exec(ctx, `
    INSERT INTO campaign_questionnaires (campaign_id, questionnaire_id, position)
    SELECT c.id, q.id, $1
    FROM campaigns c
    JOIN questionnaires q ON q.tenant_id = c.tenant_id
    WHERE c.tenant_id = $2 AND c.id = $3 AND q.id = $4
  `, i, tenantID, campaignID, questionnaireID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrQuestionnaireNotFound, questionnaireID)
		}
	}
	return nil
}

func (s *Store) CampaignQuestionnaireIDs(ctx context.Context, campaignID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT questionnaire_id
    FROM campaign_questionnaires
    WHERE campaign_id = $1
    ORDER BY position
  `, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
