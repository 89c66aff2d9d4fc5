package evaluation

import (
	"encoding/json"
	"fmt"
	"time"
)

type Evaluation struct {
	ID                  string       `json:"id"`
	TenantID            string       `json:"-"`
	EmployeeID          string       `json:"employeeId"`
	ManagerID           string       `json:"managerId"`
	CampaignID          string       `json:"campaignId,omitempty"`
	ReviewCycleID       string       `json:"reviewCycleId,omitempty"`
	SelfEvaluation      *ResponseSet `json:"selfEvaluation,omitempty"`
	SelfSubmittedAt     *time.Time   `json:"selfSubmittedAt,omitempty"`
	ManagerEvaluation   *ResponseSet `json:"managerEvaluation,omitempty"`
	ManagerSubmittedAt  *time.Time   `json:"managerSubmittedAt,omitempty"`
	OverallRating       *float64     `json:"overallRating,omitempty"`
	Status              string       `json:"status"`
	MeetingStatus       string       `json:"meetingStatus"`
	MeetingScheduledAt  *time.Time   `json:"meetingScheduledAt,omitempty"`
	MeetingNotes        string       `json:"meetingNotes,omitempty"`
	MeetingCompletedAt  *time.Time   `json:"meetingCompletedAt,omitempty"`
	ShowNotesToEmployee bool         `json:"showNotesToEmployee"`
	FinalizedAt         *time.Time   `json:"finalizedAt,omitempty"`
	CalibratedRating    *float64     `json:"calibratedRating,omitempty"`
	CalibrationRemarks  string       `json:"calibrationRemarks,omitempty"`
	CalibratedBy        string       `json:"calibratedBy,omitempty"`
	CalibratedAt        *time.Time   `json:"calibratedAt,omitempty"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`

	// Raw bytes of a stored payload that failed to decode, carried so a
	// full-row write preserves the column instead of nulling it.
	selfEvaluationRaw    json.RawMessage
	managerEvaluationRaw json.RawMessage
}

// ResponseSet is the versioned payload holding one side of an evaluation.
type ResponseSet struct {
	Version  int      `json:"version"`
	Answers  []Answer `json:"answers"`
	Comments string   `json:"comments,omitempty"`
}

type Answer struct {
	QuestionID string   `json:"questionId"`
	Answer     string   `json:"answer"`
	Rating     *float64 `json:"rating,omitempty"`
}

// Validate checks the payload shape. expectedAnswers > 0 enforces full
// questionnaire coverage and is only applied on submission, not on draft
// saves.
func (r ResponseSet) Validate(requireAnswers bool, expectedAnswers int) error {
	if r.Version != SupportedResponseVersion {
		return fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, r.Version)
	}
	if requireAnswers && len(r.Answers) == 0 {
		return ErrNoAnswers
	}
	if requireAnswers && expectedAnswers > 0 && len(r.Answers) != expectedAnswers {
		return fmt.Errorf("%w: want %d answers, got %d", ErrAnswerCountMismatch, expectedAnswers, len(r.Answers))
	}
	return nil
}

// DeriveMeetingStatus computes the orthogonal meeting sub-state from the two
// meeting timestamps.
func (e *Evaluation) DeriveMeetingStatus() {
	switch {
	case e.MeetingCompletedAt != nil:
		e.MeetingStatus = MeetingCompleted
	case e.MeetingScheduledAt != nil:
		e.MeetingStatus = MeetingScheduled
	default:
		e.MeetingStatus = MeetingUnscheduled
	}
}

// Patch carries the writable fields a transition may supply. Pointer fields
// distinguish "not sent" from zero values so the field mask can reject
// exactly what the actor tried to write.
type Patch struct {
	SelfEvaluation      *ResponseSet `json:"selfEvaluation,omitempty"`
	ManagerEvaluation   *ResponseSet `json:"managerEvaluation,omitempty"`
	OverallRating       *float64     `json:"overallRating,omitempty"`
	MeetingScheduledAt  *time.Time   `json:"meetingScheduledAt,omitempty"`
	MeetingNotes        *string      `json:"meetingNotes,omitempty"`
	ShowNotesToEmployee *bool        `json:"showNotesToEmployee,omitempty"`
	CalibratedRating    *float64     `json:"calibratedRating,omitempty"`
	CalibrationRemarks  *string      `json:"calibrationRemarks,omitempty"`
}

type GenerateFailure struct {
	EmployeeID string `json:"employeeId"`
	Reason     string `json:"reason"`
}

type GenerateResult struct {
	TotalEligible int               `json:"totalEligible"`
	Created       int               `json:"created"`
	Skipped       int               `json:"skipped"`
	Failures      []GenerateFailure `json:"failures,omitempty"`
}

type Filter struct {
	CampaignID string
	EmployeeID string
	ManagerID  string
	Status     string
	// SelfOrManagedBy scopes the listing to rows where the employee either
	// owns the evaluation or manages it; managers get both slices at once.
	SelfOrManagedBy string
}
