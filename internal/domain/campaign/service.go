package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"appraise/internal/domain/calendar"
	"appraise/internal/domain/evaluation"
	"appraise/internal/domain/group"
	"appraise/internal/domain/notifications"
	"appraise/internal/domain/schedule"
)

// StoreAPI is the persistence slice the service depends on; *Store
// satisfies it.
type StoreAPI interface {
	CreateCampaign(ctx context.Context, tenantID string, c Campaign) (string, error)
	GetCampaign(ctx context.Context, tenantID, campaignID string) (*Campaign, error)
	ListCampaigns(ctx context.Context, tenantID, status string, limit, offset int) ([]Campaign, error)
	UpdateCampaign(ctx context.Context, tenantID, campaignID string, c Campaign) error
	MarkPublished(ctx context.Context, tenantID, campaignID string) error
	MarkClosed(ctx context.Context, tenantID, campaignID string) error
	HasEvaluations(ctx context.Context, tenantID, campaignID string) (bool, error)
	BindPeriods(ctx context.Context, tenantID, campaignID string, overrides []calendar.PeriodTimingOverride) error
	PeriodOverrides(ctx context.Context, tenantID, campaignID string) ([]calendar.PeriodTimingOverride, error)
	AttachQuestionnaires(ctx context.Context, tenantID, campaignID string, questionnaireIDs []string) error
	CreateQuestionnaire(ctx context.Context, tenantID, name string, ratingJSON, questionsJSON []byte) (string, error)
	ListQuestionnaires(ctx context.Context, tenantID string) ([]Questionnaire, error)
	GetQuestionnaire(ctx context.Context, tenantID, questionnaireID string) (*Questionnaire, error)
	DeleteQuestionnaire(ctx context.Context, tenantID, questionnaireID string) error
}

// GroupResolver supplies rosters; the group service satisfies it.
type GroupResolver interface {
	EligibleMembers(ctx context.Context, tenantID, groupID string, rules group.ExclusionRules, now time.Time) ([]group.Member, int, error)
	ListMembers(ctx context.Context, tenantID, groupID string) ([]group.Member, error)
}

// PeriodSource lists the bound calendar's periods.
type PeriodSource interface {
	ListPeriods(ctx context.Context, tenantID, calendarID string) ([]calendar.Period, error)
	PeriodsByIDs(ctx context.Context, tenantID string, periodIDs []string) ([]calendar.Period, error)
}

// Evaluations is the slice of the evaluation service the campaign
// lifecycle drives.
type Evaluations interface {
	Generate(ctx context.Context, tenantID, campaignID, campaignName string, members []group.Member, fallbackManagerID string) (*evaluation.GenerateResult, error)
	ListByCampaign(ctx context.Context, tenantID, campaignID string) ([]evaluation.Evaluation, error)
	Progress(ctx context.Context, tenantID, campaignID string, members []group.Member) (*evaluation.Progress, error)
}

// TaskPlanner persists follow-up intent records; the schedule store
// satisfies it.
type TaskPlanner interface {
	Plan(ctx context.Context, tenantID string, tasks []schedule.Task) (int, error)
	PendingCloseAfter(ctx context.Context, tenantID, campaignID string, after time.Time) (int, error)
}

// Directory maps between login users and employee records.
type Directory interface {
	EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error)
	UserIDByEmployeeID(ctx context.Context, tenantID, employeeID string) (string, error)
}

type Notifier interface {
	Create(ctx context.Context, tenantID, userID, ntype, title, body string) error
}

type Service struct {
	store     StoreAPI
	groups    GroupResolver
	periods   PeriodSource
	evals     Evaluations
	tasks     TaskPlanner
	directory Directory
	notifier  Notifier
}

func NewService(store StoreAPI, groups GroupResolver, periods PeriodSource, evals Evaluations, tasks TaskPlanner, directory Directory, notifier Notifier) *Service {
	return &Service{
		store:     store,
		groups:    groups,
		periods:   periods,
		evals:     evals,
		tasks:     tasks,
		directory: directory,
		notifier:  notifier,
	}
}

func (s *Service) Create(ctx context.Context, tenantID string, c Campaign) (string, error) {
	if c.PublishMode == "" {
		c.PublishMode = PublishNow
	}
	if c.Status == "" {
		c.Status = StatusDraft
	}
	if err := c.validate(); err != nil {
		return "", err
	}
	id, err := s.store.CreateCampaign(ctx, tenantID, c)
	if err != nil {
		return "", err
	}
	if len(c.QuestionnaireIDs) > 0 {
		if err := s.store.AttachQuestionnaires(ctx, tenantID, id, c.QuestionnaireIDs); err != nil {
			return "", err
		}
	}
	return id, nil
}

func (s *Service) Get(ctx context.Context, tenantID, campaignID string) (*Campaign, error) {
	return s.store.GetCampaign(ctx, tenantID, campaignID)
}

func (s *Service) List(ctx context.Context, tenantID, status string, limit, offset int) ([]Campaign, error) {
	return s.store.ListCampaigns(ctx, tenantID, status, limit, offset)
}

// Update rewrites the campaign configuration. Structural fields (group,
// kind, calendar, publish mode) are locked once the campaign leaves draft,
// and the group reference is locked as soon as evaluations exist.
func (s *Service) Update(ctx context.Context, tenantID, campaignID string, updated Campaign) error {
	current, err := s.store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return err
	}
	if updated.PublishMode == "" {
		updated.PublishMode = current.PublishMode
	}
	if err := updated.validate(); err != nil {
		return err
	}
	if current.Status != StatusDraft && current.structuralChange(updated) {
		return ErrNotDraft
	}
	if updated.GroupID != current.GroupID {
		has, err := s.store.HasEvaluations(ctx, tenantID, campaignID)
		if err != nil {
			return err
		}
		if has {
			return ErrGroupImmutable
		}
	}
	if err := s.store.UpdateCampaign(ctx, tenantID, campaignID, updated); err != nil {
		return err
	}
	if updated.QuestionnaireIDs != nil {
		return s.store.AttachQuestionnaires(ctx, tenantID, campaignID, updated.QuestionnaireIDs)
	}
	return nil
}

func (s *Service) BindPeriods(ctx context.Context, tenantID, campaignID string, overrides []calendar.PeriodTimingOverride) error {
	c, err := s.store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return err
	}
	if c.CalendarID == "" {
		return fmt.Errorf("%w: no calendar bound", ErrInvalidCampaign)
	}
	for _, o := range overrides {
		if (o.DaysToInitiate != nil && *o.DaysToInitiate < 0) ||
			(o.DaysToClose != nil && *o.DaysToClose < 0) ||
			(o.ReminderCount != nil && *o.ReminderCount < 0) {
			return fmt.Errorf("%w: timing offsets must be zero or positive", ErrInvalidCampaign)
		}
	}
	return s.store.BindPeriods(ctx, tenantID, campaignID, overrides)
}

// Publish activates the campaign. In `now` mode evaluations spawn
// immediately and only reminder and close tasks are planned; in
// `as_per_calendar` mode the initiate tasks are planned too and generation
// waits for the runner. Publishing again is safe: generation skips existing
// rows and planning skips existing task dates.
func (s *Service) Publish(ctx context.Context, tenantID, campaignID, actorUserID string, now time.Time) (*PublishResult, error) {
	c, err := s.store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusClosed {
		return nil, ErrAlreadyClosed
	}

	timings, err := s.resolveTimings(ctx, c, now)
	if err != nil {
		return nil, err
	}

	result := &PublishResult{CampaignID: c.ID, Mode: c.PublishMode}

	if c.PublishMode == PublishNow {
		gen, err := s.generate(ctx, c, actorUserID, now)
		if err != nil {
			return nil, err
		}
		result.Generated = gen
	}

	planned, err := s.tasks.Plan(ctx, tenantID, schedule.BuildTasks(c.ID, timings, c.PublishMode == PublishPerCalendar))
	if err != nil {
		return nil, err
	}
	result.TasksPlanned = planned

	if err := s.store.MarkPublished(ctx, tenantID, c.ID); err != nil {
		return nil, err
	}
	return result, nil
}

// Close shuts the campaign. Evaluation rows survive as historical record.
func (s *Service) Close(ctx context.Context, tenantID, campaignID string) error {
	c, err := s.store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return err
	}
	if c.Status == StatusClosed {
		return ErrAlreadyClosed
	}
	return s.store.MarkClosed(ctx, tenantID, campaignID)
}

// Progress reports completion over the full group roster, not just the
// eligible subset, so excluded members show up as not_started.
func (s *Service) Progress(ctx context.Context, tenantID, campaignID string) (*evaluation.Progress, error) {
	c, err := s.store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	members, err := s.groups.ListMembers(ctx, tenantID, c.GroupID)
	if err != nil {
		return nil, err
	}
	return s.evals.Progress(ctx, tenantID, campaignID, members)
}

// Generate runs evaluation generation on demand for an already published
// campaign, with the caller as the fallback manager.
func (s *Service) Generate(ctx context.Context, tenantID, campaignID, actorUserID string, now time.Time) (*evaluation.GenerateResult, error) {
	c, err := s.store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusClosed {
		return nil, ErrAlreadyClosed
	}
	return s.generate(ctx, c, actorUserID, now)
}

// ExecuteTask runs one due scheduled task. Initiate spawns the period's
// evaluations, reminder nudges whoever is late, close shuts the campaign
// once no later close task remains.
func (s *Service) ExecuteTask(ctx context.Context, task schedule.Task, now time.Time) error {
	c, err := s.store.GetCampaign(ctx, task.TenantID, task.CampaignID)
	if err != nil {
		return err
	}

	switch task.Type {
	case schedule.TaskInitiate:
		if c.Status == StatusClosed {
			return fmt.Errorf("%w: initiate skipped", ErrAlreadyClosed)
		}
		_, err := s.generate(ctx, c, c.OwnerUserID, now)
		return err
	case schedule.TaskReminder:
		if c.Status != StatusActive {
			return nil
		}
		return s.remind(ctx, c)
	case schedule.TaskClose:
		remaining, err := s.tasks.PendingCloseAfter(ctx, task.TenantID, task.CampaignID, task.ScheduledAt)
		if err != nil {
			return err
		}
		if remaining > 0 || c.Status == StatusClosed {
			return nil
		}
		return s.store.MarkClosed(ctx, task.TenantID, task.CampaignID)
	default:
		return fmt.Errorf("unknown task type %q", task.Type)
	}
}

func (s *Service) CreateQuestionnaire(ctx context.Context, tenantID, name string, ratingJSON, questionsJSON []byte) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: questionnaire name is required", ErrInvalidCampaign)
	}
	return s.store.CreateQuestionnaire(ctx, tenantID, name, ratingJSON, questionsJSON)
}

func (s *Service) ListQuestionnaires(ctx context.Context, tenantID string) ([]Questionnaire, error) {
	return s.store.ListQuestionnaires(ctx, tenantID)
}

func (s *Service) GetQuestionnaire(ctx context.Context, tenantID, questionnaireID string) (*Questionnaire, error) {
	return s.store.GetQuestionnaire(ctx, tenantID, questionnaireID)
}

func (s *Service) DeleteQuestionnaire(ctx context.Context, tenantID, questionnaireID string) error {
	return s.store.DeleteQuestionnaire(ctx, tenantID, questionnaireID)
}

func (s *Service) resolveTimings(ctx context.Context, c *Campaign, now time.Time) ([]calendar.PeriodTiming, error) {
	if c.CalendarID == "" {
		return []calendar.PeriodTiming{calendar.SyntheticTiming(c.Defaults, now)}, nil
	}
	overrides, err := s.store.PeriodOverrides(ctx, c.TenantID, c.ID)
	if err != nil {
		return nil, err
	}
	var periods []calendar.Period
	if len(overrides) > 0 {
		ids := make([]string, len(overrides))
		for i, o := range overrides {
			ids[i] = o.PeriodID
		}
		periods, err = s.periods.PeriodsByIDs(ctx, c.TenantID, ids)
	} else {
		periods, err = s.periods.ListPeriods(ctx, c.TenantID, c.CalendarID)
	}
	if err != nil {
		return nil, err
	}
	return calendar.ResolveTimings(periods, c.Defaults, overrides, now), nil
}

func (s *Service) generate(ctx context.Context, c *Campaign, actorUserID string, now time.Time) (*evaluation.GenerateResult, error) {
	rules := group.ExclusionRules{
		ExcludedEmployeeIDs:       c.ExcludedEmployeeIDs,
		ExcludeTenureUnderOneYear: c.ExcludeShortTenure,
	}
	eligible, rosterTotal, err := s.groups.EligibleMembers(ctx, c.TenantID, c.GroupID, rules, now)
	if err != nil {
		return nil, err
	}

	gen, err := s.evals.Generate(ctx, c.TenantID, c.ID, c.Name, eligible, s.fallbackManager(ctx, c, actorUserID))
	if err != nil {
		return nil, err
	}
	gen.Skipped += rosterTotal - len(eligible)
	return gen, nil
}

// fallbackManager picks who receives employees without a reporting line:
// the acting user's employee record if one exists, else the campaign
// owner's. An empty return leaves those members as recorded failures.
func (s *Service) fallbackManager(ctx context.Context, c *Campaign, actorUserID string) string {
	if s.directory == nil {
		return ""
	}
	if actorUserID != "" {
		if id, err := s.directory.EmployeeIDByUserID(ctx, c.TenantID, actorUserID); err == nil && id != "" {
			return id
		}
	}
	if c.OwnerUserID != "" && c.OwnerUserID != actorUserID {
		if id, err := s.directory.EmployeeIDByUserID(ctx, c.TenantID, c.OwnerUserID); err == nil && id != "" {
			return id
		}
	}
	return ""
}

func (s *Service) remind(ctx context.Context, c *Campaign) error {
	evals, err := s.evals.ListByCampaign(ctx, c.TenantID, c.ID)
	if err != nil {
		return err
	}
	for _, ev := range evals {
		switch ev.Status {
		case evaluation.StatusNotStarted, evaluation.StatusDraft:
			s.notifyEmployee(ctx, c.TenantID, ev.EmployeeID,
				"Appraisal reminder", fmt.Sprintf("Your self evaluation for %s is still pending.", c.Name))
		case evaluation.StatusSelfSubmitted:
			s.notifyEmployee(ctx, c.TenantID, ev.ManagerID,
				"Appraisal reminder", fmt.Sprintf("A review in %s is waiting on you.", c.Name))
		case evaluation.StatusManagerReviewed:
			s.notifyEmployee(ctx, c.TenantID, ev.ManagerID,
				"Appraisal reminder", fmt.Sprintf("An evaluation in %s is ready to finalize.", c.Name))
		}
	}
	return nil
}

func (s *Service) notifyEmployee(ctx context.Context, tenantID, employeeID, title, body string) {
	if s.notifier == nil || s.directory == nil || employeeID == "" {
		return
	}
	userID, err := s.directory.UserIDByEmployeeID(ctx, tenantID, employeeID)
	if err != nil || userID == "" {
		return
	}
	if err := s.notifier.Create(ctx, tenantID, userID, notifications.TypeEvaluationReminder, title, body); err != nil {
		slog.Warn("campaign reminder failed", "userId", userID, "err", err)
	}
}
