package campaign

import (
	"fmt"
	"time"

	"appraise/internal/domain/calendar"
	"appraise/internal/domain/evaluation"
)

// Campaign is one appraisal drive against a group: what gets evaluated
// (kind plus questionnaires or a document), who (the group minus
// exclusions) and when (a frequency calendar or the timing defaults).
type Campaign struct {
	ID                  string                  `json:"id"`
	TenantID            string                  `json:"-"`
	Name                string                  `json:"name"`
	Description         string                  `json:"description,omitempty"`
	GroupID             string                  `json:"groupId"`
	Kind                string                  `json:"kind"`
	QuestionnaireIDs    []string                `json:"questionnaireIds,omitempty"`
	DocumentRef         string                  `json:"documentRef,omitempty"`
	CalendarID          string                  `json:"calendarId,omitempty"`
	Defaults            calendar.TimingDefaults `json:"timingDefaults"`
	ExcludedEmployeeIDs []string                `json:"excludedEmployeeIds,omitempty"`
	ExcludeShortTenure  bool                    `json:"excludeShortTenure"`
	PublishMode         string                  `json:"publishMode"`
	Status              string                  `json:"status"`
	OwnerUserID         string                  `json:"ownerUserId"`
	PublishedAt         *time.Time              `json:"publishedAt,omitempty"`
	ClosedAt            *time.Time              `json:"closedAt,omitempty"`
	CreatedAt           time.Time               `json:"createdAt"`
	UpdatedAt           time.Time               `json:"updatedAt"`
}

func (c Campaign) validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCampaign)
	}
	if c.GroupID == "" {
		return fmt.Errorf("%w: groupId is required", ErrInvalidCampaign)
	}
	if !ValidKind(c.Kind) {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCampaign, c.Kind)
	}
	if !ValidPublishMode(c.PublishMode) {
		return fmt.Errorf("%w: unknown publish mode %q", ErrInvalidCampaign, c.PublishMode)
	}
	if c.Defaults.DaysToInitiate < 0 || c.Defaults.DaysToClose < 0 || c.Defaults.ReminderCount < 0 {
		return fmt.Errorf("%w: timing offsets must be zero or positive", ErrInvalidCampaign)
	}
	return nil
}

// structural reports whether the fields locked after leaving draft differ.
func (c Campaign) structuralChange(updated Campaign) bool {
	return updated.GroupID != c.GroupID ||
		updated.Kind != c.Kind ||
		updated.CalendarID != c.CalendarID ||
		updated.PublishMode != c.PublishMode
}

// PublishResult summarizes one publish call: what was generated right away
// and how many follow-up tasks were planned.
type PublishResult struct {
	CampaignID   string                     `json:"campaignId"`
	Mode         string                     `json:"mode"`
	Generated    *evaluation.GenerateResult `json:"generated,omitempty"`
	TasksPlanned int                        `json:"tasksPlanned"`
}

type Questionnaire struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	RatingScale []RatingLevel `json:"ratingScale,omitempty"`
	Questions   []Question    `json:"questions"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type RatingLevel struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Kind string `json:"kind,omitempty"`
}
