package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"appraise/internal/domain/auth"
	"appraise/internal/domain/group"
	"appraise/internal/domain/notifications"
)

// Notifier is the slice of the notification service the lifecycle needs.
// Fan-out failures are logged, never returned; delivery is not part of
// lifecycle correctness.
type Notifier interface {
	Create(ctx context.Context, tenantID, userID, ntype, title, body string) error
}

// Directory resolves employee ids to login user ids for notification
// targeting.
type Directory interface {
	UserIDByEmployeeID(ctx context.Context, tenantID, employeeID string) (string, error)
}

// Actor identifies who is performing a gated mutation. EmployeeID is empty
// for accounts without an employee record (system admins).
type Actor struct {
	UserID     string
	EmployeeID string
	RoleName   string
}

type Service struct {
	store     StoreAPI
	notifier  Notifier
	directory Directory
}

func NewService(store StoreAPI, notifier Notifier, directory Directory) *Service {
	return &Service{store: store, notifier: notifier, directory: directory}
}

func (s *Service) Get(ctx context.Context, tenantID, evaluationID string, actor Actor) (*Evaluation, error) {
	ev, err := s.store.GetEvaluation(ctx, tenantID, evaluationID)
	if err != nil {
		return nil, err
	}
	isOwner := actor.EmployeeID != "" && ev.EmployeeID == actor.EmployeeID
	isManager := actor.EmployeeID != "" && ev.ManagerID == actor.EmployeeID
	if !auth.Elevated(actor.RoleName) && !isOwner && !isManager {
		return nil, fmt.Errorf("%w: read", ErrActorNotAllowed)
	}
	RedactForViewer(ev, actor)
	return ev, nil
}

func (s *Service) List(ctx context.Context, tenantID string, f Filter, actor Actor, limit, offset int) ([]Evaluation, error) {
	out, err := s.store.List(ctx, tenantID, f, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range out {
		RedactForViewer(&out[i], actor)
	}
	return out, nil
}

func (s *Service) ListByCampaign(ctx context.Context, tenantID, campaignID string) ([]Evaluation, error) {
	return s.store.ListByCampaign(ctx, tenantID, campaignID)
}

// RedactForViewer blanks meeting notes for the owning employee until the
// manager opts into sharing them.
func RedactForViewer(ev *Evaluation, actor Actor) {
	if auth.Elevated(actor.RoleName) {
		return
	}
	if actor.EmployeeID != "" && ev.ManagerID == actor.EmployeeID {
		return
	}
	if !ev.ShowNotesToEmployee {
		ev.MeetingNotes = ""
	}
}

// Transition is the single write path for evaluations: it loads the row,
// checks the transition guard and the per-role field mask, applies the
// patch, runs the action's own preconditions and stamps, persists, then
// fans out notifications.
func (s *Service) Transition(ctx context.Context, tenantID, evaluationID string, action Action, patch Patch, actor Actor, now time.Time) (*Evaluation, error) {
	ev, err := s.store.GetEvaluation(ctx, tenantID, evaluationID)
	if err != nil {
		return nil, err
	}

	isOwner := actor.EmployeeID != "" && ev.EmployeeID == actor.EmployeeID
	isManager := actor.EmployeeID != "" && ev.ManagerID == actor.EmployeeID

	if err := CanTransition(action, ev.Status, actor.RoleName, isOwner, isManager); err != nil {
		return nil, err
	}
	if violations := MaskViolations(patch, AllowedFields(actor.RoleName, isOwner, isManager)); len(violations) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotAllowed, joinFields(violations))
	}

	applyPatch(ev, patch)

	switch action {
	case ActionSaveSelf:
		if patch.SelfEvaluation != nil {
			if err := patch.SelfEvaluation.Validate(false, 0); err != nil {
				return nil, err
			}
		}
	case ActionSubmitSelf:
		if ev.SelfEvaluation == nil {
			return nil, fmt.Errorf("%w: self evaluation", ErrResponseMissing)
		}
		expected, err := s.expectedAnswers(ctx, ev.CampaignID)
		if err != nil {
			return nil, err
		}
		if err := ev.SelfEvaluation.Validate(true, expected); err != nil {
			return nil, err
		}
		ev.SelfSubmittedAt = &now
	case ActionSaveManager:
		if patch.ManagerEvaluation != nil {
			if err := patch.ManagerEvaluation.Validate(false, 0); err != nil {
				return nil, err
			}
		}
	case ActionSubmitManager:
		if ev.ManagerEvaluation == nil {
			return nil, fmt.Errorf("%w: manager evaluation", ErrResponseMissing)
		}
		expected, err := s.expectedAnswers(ctx, ev.CampaignID)
		if err != nil {
			return nil, err
		}
		if err := ev.ManagerEvaluation.Validate(true, expected); err != nil {
			return nil, err
		}
		ev.ManagerSubmittedAt = &now
	case ActionScheduleMeeting:
		if ev.MeetingScheduledAt == nil {
			return nil, ErrMeetingTimeRequired
		}
	case ActionRecordMeeting:
		if ev.MeetingScheduledAt == nil {
			return nil, ErrMeetingNotScheduled
		}
		ev.MeetingCompletedAt = &now
	case ActionFinalize:
		if ev.SelfSubmittedAt == nil {
			return nil, ErrSelfNotSubmitted
		}
		if ev.ManagerSubmittedAt == nil {
			return nil, ErrManagerNotSubmitted
		}
		ev.FinalizedAt = &now
	case ActionCalibrate:
		if ev.CalibratedRating == nil {
			return nil, ErrCalibrationIncomplete
		}
		ev.CalibratedBy = actor.UserID
		ev.CalibratedAt = &now
	}

	fromStatus := ev.Status
	ev.Status = NextStatus(action, ev.Status)
	ev.DeriveMeetingStatus()

	// The status read above predicates the write; a row another actor moved
	// in the meantime comes back as ErrEvaluationStale instead of being
	// overwritten.
	if err := s.store.UpdateEvaluation(ctx, tenantID, ev, fromStatus); err != nil {
		return nil, err
	}

	s.notifyTransition(ctx, tenantID, ev, action)
	return ev, nil
}

// Generate creates one not_started evaluation per eligible member, assigning
// the member's manager or the fallback. Per-member failures are recorded and
// the batch keeps going; a second invocation for the same campaign only adds
// skips.
func (s *Service) Generate(ctx context.Context, tenantID, campaignID, campaignName string, members []group.Member, fallbackManagerID string) (*GenerateResult, error) {
	result := &GenerateResult{TotalEligible: len(members)}
	for _, m := range members {
		managerID := m.ManagerID
		if managerID == "" {
			managerID = fallbackManagerID
		}
		if managerID == "" {
			slog.Warn("evaluation generation skipped member without manager",
				"employeeId", m.EmployeeID, "campaignId", campaignID)
			result.Failures = append(result.Failures, GenerateFailure{
				EmployeeID: m.EmployeeID,
				Reason:     "no manager assigned and no fallback manager",
			})
			continue
		}

		exists, err := s.store.EvaluationExists(ctx, tenantID, m.EmployeeID, campaignID)
		if err != nil {
			slog.Warn("evaluation existence check failed",
				"employeeId", m.EmployeeID, "campaignId", campaignID, "err", err)
			result.Failures = append(result.Failures, GenerateFailure{EmployeeID: m.EmployeeID, Reason: err.Error()})
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		created, err := s.store.CreateEvaluation(ctx, tenantID, m.EmployeeID, managerID, campaignID)
		if err != nil {
			slog.Warn("evaluation creation failed",
				"employeeId", m.EmployeeID, "campaignId", campaignID, "err", err)
			result.Failures = append(result.Failures, GenerateFailure{EmployeeID: m.EmployeeID, Reason: err.Error()})
			continue
		}
		if !created {
			result.Skipped++
			continue
		}
		result.Created++

		if m.UserID != "" {
			s.notify(ctx, tenantID, m.UserID, notifications.TypeEvaluationAssigned,
				"Appraisal assigned", fmt.Sprintf("You have a new evaluation in %s.", campaignName))
		}
	}
	return result, nil
}

// Progress builds the read-side projection for one campaign over the full
// group roster.
func (s *Service) Progress(ctx context.Context, tenantID, campaignID string, members []group.Member) (*Progress, error) {
	evals, err := s.store.ListByCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	progress := BuildProgress(campaignID, members, evals)
	return &progress, nil
}

func (s *Service) expectedAnswers(ctx context.Context, campaignID string) (int, error) {
	if campaignID == "" {
		return 0, nil
	}
	return s.store.QuestionCountForCampaign(ctx, campaignID)
}

func (s *Service) notifyTransition(ctx context.Context, tenantID string, ev *Evaluation, action Action) {
	switch action {
	case ActionSubmitSelf:
		s.notifyEmployee(ctx, tenantID, ev.ManagerID, notifications.TypeSelfSubmitted,
			"Self evaluation submitted", "A team member submitted their self evaluation.")
	case ActionSubmitManager:
		s.notifyEmployee(ctx, tenantID, ev.EmployeeID, notifications.TypeManagerReviewed,
			"Manager review submitted", "Your manager completed their review.")
	case ActionScheduleMeeting:
		s.notifyEmployee(ctx, tenantID, ev.EmployeeID, notifications.TypeMeetingInvite,
			"Appraisal meeting scheduled", "Your appraisal meeting has been scheduled.")
	case ActionFinalize:
		s.notifyEmployee(ctx, tenantID, ev.EmployeeID, notifications.TypeEvaluationCompleted,
			"Evaluation completed", "Your evaluation has been finalized.")
	case ActionCalibrate:
		s.notifyEmployee(ctx, tenantID, ev.EmployeeID, notifications.TypeEvaluationCalibrated,
			"Evaluation calibrated", "Your evaluation rating was calibrated.")
	}
}

func (s *Service) notifyEmployee(ctx context.Context, tenantID, employeeID, ntype, title, body string) {
	if s.directory == nil || employeeID == "" {
		return
	}
	userID, err := s.directory.UserIDByEmployeeID(ctx, tenantID, employeeID)
	if err != nil || userID == "" {
		return
	}
	s.notify(ctx, tenantID, userID, ntype, title, body)
}

func (s *Service) notify(ctx context.Context, tenantID, userID, ntype, title, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Create(ctx, tenantID, userID, ntype, title, body); err != nil {
		slog.Warn("evaluation notification failed", "type", ntype, "err", err)
	}
}

func applyPatch(ev *Evaluation, p Patch) {
	if p.SelfEvaluation != nil {
		ev.SelfEvaluation = p.SelfEvaluation
	}
	if p.ManagerEvaluation != nil {
		ev.ManagerEvaluation = p.ManagerEvaluation
	}
	if p.OverallRating != nil {
		ev.OverallRating = p.OverallRating
	}
	if p.MeetingScheduledAt != nil {
		ev.MeetingScheduledAt = p.MeetingScheduledAt
	}
	if p.MeetingNotes != nil {
		ev.MeetingNotes = *p.MeetingNotes
	}
	if p.ShowNotesToEmployee != nil {
		ev.ShowNotesToEmployee = *p.ShowNotesToEmployee
	}
	if p.CalibratedRating != nil {
		ev.CalibratedRating = p.CalibratedRating
	}
	if p.CalibrationRemarks != nil {
		ev.CalibrationRemarks = *p.CalibrationRemarks
	}
}

func joinFields(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}
