package schedule

import "time"

// Task is one dated unit of campaign work: spawn the evaluations, nudge
// whoever is late, or close the round. PeriodID is empty for campaigns
// without a frequency calendar.
type Task struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"-"`
	CampaignID  string     `json:"campaignId"`
	PeriodID    string     `json:"periodId,omitempty"`
	Type        string     `json:"type"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	Status      string     `json:"status"`
	ExecutedAt  *time.Time `json:"executedAt,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
