package evaluation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"appraise/internal/domain/auth"
	"appraise/internal/domain/group"
	"appraise/internal/domain/notifications"
)

type fakeStore struct {
	evals     map[string]*Evaluation
	questions int
	nextID    int
	createErr error
	// beforeUpdate runs just before the write lands, simulating another
	// actor committing between the caller's read and its write.
	beforeUpdate func(f *fakeStore)
}

func (f *fakeStore) GetEvaluation(_ context.Context, tenantID, evaluationID string) (*Evaluation, error) {
	ev, ok := f.evals[evaluationID]
	if !ok || ev.TenantID != tenantID {
		return nil, ErrEvaluationNotFound
	}
	clone := *ev
	return &clone, nil
}

func (f *fakeStore) UpdateEvaluation(_ context.Context, tenantID string, ev *Evaluation, fromStatus string) error {
	if f.beforeUpdate != nil {
		hook := f.beforeUpdate
		f.beforeUpdate = nil
		hook(f)
	}
	current, ok := f.evals[ev.ID]
	if !ok || current.TenantID != tenantID {
		return ErrEvaluationNotFound
	}
	if current.Status != fromStatus {
		return ErrEvaluationStale
	}
	clone := *ev
	f.evals[ev.ID] = &clone
	return nil
}

func (f *fakeStore) EvaluationExists(_ context.Context, tenantID, employeeID, campaignID string) (bool, error) {
	for _, ev := range f.evals {
		if ev.TenantID == tenantID && ev.EmployeeID == employeeID && ev.CampaignID == campaignID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateEvaluation(_ context.Context, tenantID, employeeID, managerID, campaignID string) (bool, error) {
	if f.createErr != nil {
		return false, f.createErr
	}
	for _, ev := range f.evals {
		if ev.EmployeeID == employeeID && ev.CampaignID == campaignID {
			return false, nil
		}
	}
	f.nextID++
	id := fmt.Sprintf("ev-%d", f.nextID)
	f.evals[id] = &Evaluation{
		ID: id, TenantID: tenantID, EmployeeID: employeeID, ManagerID: managerID,
		CampaignID: campaignID, Status: StatusNotStarted, CreatedAt: time.Now(),
	}
	return true, nil
}

func (f *fakeStore) List(_ context.Context, tenantID string, flt Filter, _, _ int) ([]Evaluation, error) {
	var out []Evaluation
	for _, ev := range f.evals {
		if ev.TenantID != tenantID {
			continue
		}
		if flt.CampaignID != "" && ev.CampaignID != flt.CampaignID {
			continue
		}
		if flt.EmployeeID != "" && ev.EmployeeID != flt.EmployeeID {
			continue
		}
		if flt.ManagerID != "" && ev.ManagerID != flt.ManagerID {
			continue
		}
		if flt.Status != "" && ev.Status != flt.Status {
			continue
		}
		if flt.SelfOrManagedBy != "" && ev.ManagerID != flt.SelfOrManagedBy && ev.EmployeeID != flt.SelfOrManagedBy {
			continue
		}
		out = append(out, *ev)
	}
	return out, nil
}

func (f *fakeStore) ListByCampaign(ctx context.Context, tenantID, campaignID string) ([]Evaluation, error) {
	return f.List(ctx, tenantID, Filter{CampaignID: campaignID}, 0, 0)
}

func (f *fakeStore) QuestionCountForCampaign(_ context.Context, _ string) (int, error) {
	return f.questions, nil
}

func (f *fakeStore) seed(ev Evaluation) {
	clone := ev
	f.evals[ev.ID] = &clone
}

type notified struct {
	UserID string
	Type   string
}

type fakeNotifier struct {
	events []notified
	err    error
}

func (f *fakeNotifier) Create(_ context.Context, _, userID, ntype, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, notified{UserID: userID, Type: ntype})
	return nil
}

type fakeDirectory struct {
	users map[string]string
}

func (f *fakeDirectory) UserIDByEmployeeID(_ context.Context, _, employeeID string) (string, error) {
	return f.users[employeeID], nil
}

func newLifecycleFixture() (*Service, *fakeStore, *fakeNotifier) {
	store := &fakeStore{evals: map[string]*Evaluation{}, questions: 2}
	notifier := &fakeNotifier{}
	directory := &fakeDirectory{users: map[string]string{"e1": "u-emp", "m1": "u-mgr"}}
	return NewService(store, notifier, directory), store, notifier
}

func answerList(n int) []Answer {
	out := make([]Answer, n)
	for i := range out {
		out[i] = Answer{QuestionID: fmt.Sprintf("q%d", i+1), Answer: "done"}
	}
	return out
}

var (
	ownerActor   = Actor{UserID: "u-emp", EmployeeID: "e1", RoleName: auth.RoleEmployee}
	managerActor = Actor{UserID: "u-mgr", EmployeeID: "m1", RoleName: auth.RoleManager}
	hrActor      = Actor{UserID: "u-hr", RoleName: auth.RoleHR}
)

func TestTransitionFullLifecycle(t *testing.T) {
	svc, store, notifier := newLifecycleFixture()
	store.seed(Evaluation{ID: "ev1", TenantID: "t1", EmployeeID: "e1", ManagerID: "m1", CampaignID: "c1", Status: StatusNotStarted})
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	ev, err := svc.Transition(ctx, "t1", "ev1", ActionSaveSelf,
		Patch{SelfEvaluation: &ResponseSet{Version: 1, Answers: answerList(1)}}, ownerActor, now)
	if err != nil {
		t.Fatalf("save_self: %v", err)
	}
	if ev.Status != StatusDraft {
		t.Fatalf("expected draft after save_self, got %s", ev.Status)
	}

	ev, err = svc.Transition(ctx, "t1", "ev1", ActionSubmitSelf,
		Patch{SelfEvaluation: &ResponseSet{Version: 1, Answers: answerList(2)}}, ownerActor, now)
	if err != nil {
		t.Fatalf("submit_self: %v", err)
	}
	if ev.Status != StatusSelfSubmitted {
		t.Fatalf("expected self_submitted, got %s", ev.Status)
	}
	if ev.SelfSubmittedAt == nil || !ev.SelfSubmittedAt.Equal(now) {
		t.Fatalf("expected self submission stamp %v, got %v", now, ev.SelfSubmittedAt)
	}

	rating := 4.0
	ev, err = svc.Transition(ctx, "t1", "ev1", ActionSaveManager,
		Patch{ManagerEvaluation: &ResponseSet{Version: 1, Answers: answerList(2)}, OverallRating: &rating}, managerActor, now)
	if err != nil {
		t.Fatalf("save_manager: %v", err)
	}
	if ev.Status != StatusSelfSubmitted {
		t.Fatalf("expected save_manager to keep self_submitted, got %s", ev.Status)
	}

	ev, err = svc.Transition(ctx, "t1", "ev1", ActionSubmitManager, Patch{}, managerActor, now)
	if err != nil {
		t.Fatalf("submit_manager: %v", err)
	}
	if ev.Status != StatusManagerReviewed {
		t.Fatalf("expected manager_reviewed, got %s", ev.Status)
	}
	if ev.ManagerSubmittedAt == nil {
		t.Fatal("expected manager submission stamp")
	}

	meeting := now.Add(72 * time.Hour)
	ev, err = svc.Transition(ctx, "t1", "ev1", ActionScheduleMeeting,
		Patch{MeetingScheduledAt: &meeting}, managerActor, now)
	if err != nil {
		t.Fatalf("schedule_meeting: %v", err)
	}
	if ev.MeetingStatus != MeetingScheduled {
		t.Fatalf("expected scheduled meeting state, got %s", ev.MeetingStatus)
	}
	if ev.Status != StatusManagerReviewed {
		t.Fatalf("expected scheduling to keep manager_reviewed, got %s", ev.Status)
	}

	notes := "discussed growth areas"
	ev, err = svc.Transition(ctx, "t1", "ev1", ActionRecordMeeting,
		Patch{MeetingNotes: &notes}, managerActor, now)
	if err != nil {
		t.Fatalf("record_meeting: %v", err)
	}
	if ev.MeetingStatus != MeetingCompleted || ev.MeetingCompletedAt == nil {
		t.Fatalf("expected completed meeting state, got %s", ev.MeetingStatus)
	}

	ev, err = svc.Transition(ctx, "t1", "ev1", ActionFinalize, Patch{}, managerActor, now)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if ev.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", ev.Status)
	}
	if ev.FinalizedAt == nil {
		t.Fatal("expected finalized stamp")
	}

	calibrated := 4.5
	ev, err = svc.Transition(ctx, "t1", "ev1", ActionCalibrate,
		Patch{CalibratedRating: &calibrated}, hrActor, now)
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	if ev.Status != StatusCompleted {
		t.Fatalf("expected calibrate to keep completed, got %s", ev.Status)
	}
	if ev.CalibratedBy != "u-hr" || ev.CalibratedAt == nil {
		t.Fatalf("expected calibration audit stamps, got by=%q at=%v", ev.CalibratedBy, ev.CalibratedAt)
	}

	wantNotified := []notified{
		{UserID: "u-mgr", Type: notifications.TypeSelfSubmitted},
		{UserID: "u-emp", Type: notifications.TypeManagerReviewed},
		{UserID: "u-emp", Type: notifications.TypeMeetingInvite},
		{UserID: "u-emp", Type: notifications.TypeEvaluationCompleted},
		{UserID: "u-emp", Type: notifications.TypeEvaluationCalibrated},
	}
	if len(notifier.events) != len(wantNotified) {
		t.Fatalf("expected %d notifications, got %+v", len(wantNotified), notifier.events)
	}
	for i, want := range wantNotified {
		if notifier.events[i] != want {
			t.Fatalf("notification %d: expected %+v, got %+v", i, want, notifier.events[i])
		}
	}
}

func TestTransitionLosesRaceWithoutClobbering(t *testing.T) {
	svc, store, _ := newLifecycleFixture()
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	submitted := now.Add(-time.Hour)

	store.seed(Evaluation{ID: "ev1", TenantID: "t1", EmployeeID: "e1", ManagerID: "m1", CampaignID: "c1",
		Status: StatusSelfSubmitted, SelfSubmittedAt: &submitted,
		SelfEvaluation: &ResponseSet{Version: 1, Answers: answerList(2)}})

	// Another session commits submit_manager between this caller's read and
	// its write. The slow save_manager must lose instead of rolling the row
	// back to its stale snapshot.
	store.beforeUpdate = func(f *fakeStore) {
		row := f.evals["ev1"]
		row.Status = StatusManagerReviewed
		row.ManagerSubmittedAt = &now
	}

	rating := 3.5
	_, err := svc.Transition(ctx, "t1", "ev1", ActionSaveManager,
		Patch{ManagerEvaluation: &ResponseSet{Version: 1, Answers: answerList(2)}, OverallRating: &rating}, managerActor, now)
	if !errors.Is(err, ErrEvaluationStale) {
		t.Fatalf("expected stale-write error, got %v", err)
	}

	row := store.evals["ev1"]
	if row.Status != StatusManagerReviewed || row.ManagerSubmittedAt == nil {
		t.Fatalf("winning submission was clobbered: status=%s stamp=%v", row.Status, row.ManagerSubmittedAt)
	}
	if row.ManagerEvaluation != nil {
		t.Fatal("losing write must not land its payload")
	}
}

func TestTransitionFinalizeRequiresBothSubmissions(t *testing.T) {
	svc, store, _ := newLifecycleFixture()
	ctx := context.Background()
	now := time.Now()
	selfDone := now.Add(-time.Hour)

	store.seed(Evaluation{ID: "ev1", TenantID: "t1", EmployeeID: "e1", ManagerID: "m1",
		Status: StatusSelfSubmitted, SelfSubmittedAt: &selfDone})

	_, err := svc.Transition(ctx, "t1", "ev1", ActionFinalize, Patch{}, hrActor, now)
	if !errors.Is(err, ErrManagerNotSubmitted) {
		t.Fatalf("expected manager-not-submitted, got %v", err)
	}

	store.seed(Evaluation{ID: "ev2", TenantID: "t1", EmployeeID: "e1", ManagerID: "m1",
		Status: StatusManagerReviewed, ManagerSubmittedAt: &selfDone})
	_, err = svc.Transition(ctx, "t1", "ev2", ActionFinalize, Patch{}, hrActor, now)
	if !errors.Is(err, ErrSelfNotSubmitted) {
		t.Fatalf("expected self-not-submitted, got %v", err)
	}

	store.seed(Evaluation{ID: "ev3", TenantID: "t1", EmployeeID: "e1", ManagerID: "m1",
		Status: StatusManagerReviewed, SelfSubmittedAt: &selfDone, ManagerSubmittedAt: &selfDone})
	ev, err := svc.Transition(ctx, "t1", "ev3", ActionFinalize, Patch{}, hrActor, now)
	if err != nil {
		t.Fatalf("finalize with both submissions: %v", err)
	}
	if ev.Status != StatusCompleted || ev.FinalizedAt == nil {
		t.Fatalf("expected completed with finalized stamp, got %+v", ev)
	}
}

func TestTransitionCalibrationGate(t *testing.T) {
	svc, store, _ := newLifecycleFixture()
	ctx := context.Background()
	now := time.Now()
	rating := 3.8

	store.seed(Evaluation{ID: "ev1", TenantID: "t1", EmployeeID: "e1", ManagerID: "m1", Status: StatusCompleted})

	_, err := svc.Transition(ctx, "t1", "ev1", ActionCalibrate, Patch{CalibratedRating: &rating}, ownerActor, now)
	if !errors.Is(err, ErrActorNotAllowed) {
		t.Fatalf("expected the employee calibration to be rejected, got %v", err)
	}

	_, err = svc.Transition(ctx, "t1", "ev1", ActionCalibrate, Patch{}, hrActor, now)
	if !errors.Is(err, ErrCalibrationIncomplete) {
		t.Fatalf("expected missing-rating rejection, got %v", err)
	}

	ev, err := svc.Transition(ctx, "t1", "ev1", ActionCalibrate, Patch{CalibratedRating: &rating}, hrActor, now)
	if err != nil {
		t.Fatalf("hr calibrate: %v", err)
	}
	if ev.CalibratedRating == nil || *ev.CalibratedRating != rating {
		t.Fatalf("expected calibrated rating %v, got %v", rating, ev.CalibratedRating)
	}
	if ev.CalibratedBy != "u-hr" || ev.CalibratedAt == nil {
		t.Fatalf("expected calibration attribution, got by=%q at=%v", ev.CalibratedBy, ev.CalibratedAt)
	}
}

func TestTransitionRejectsFieldsOutsideMask(t *testing.T) {
	svc, store, _ := newLifecycleFixture()
	ctx := context.Background()
	rating := 5.0

	store.seed(Evaluation{ID: "ev1", TenantID: "t1", EmployeeID: "e1", ManagerID: "m1", Status: StatusDraft})

	_, err := svc.Transition(ctx, "t1", "ev1", ActionSaveSelf,
		Patch{SelfEvaluation: &ResponseSet{Version: 1, Answers: answerList(1)}, OverallRating: &rating},
		ownerActor, time.Now())
	if !errors.Is(err, ErrFieldNotAllowed) {
		t.Fatalf("expected field mask rejection, got %v", err)
	}

	stored := store.evals["ev1"]
	if stored.OverallRating != nil || stored.SelfEvaluation != nil {
		t.Fatalf("expected the rejected patch to leave the row untouched, got %+v", stored)
	}
}

func TestTransitionMeetingPreconditions(t *testing.T) {
	svc, store, _ := newLifecycleFixture()
	ctx := context.Background()
	now := time.Now()

	store.seed(Evaluation{ID: "ev1", TenantID: "t1", EmployeeID: "e1", ManagerID: "m1", Status: StatusManagerReviewed})

	_, err := svc.Transition(ctx, "t1", "ev1", ActionRecordMeeting, Patch{}, managerActor, now)
	if !errors.Is(err, ErrMeetingNotScheduled) {
		t.Fatalf("expected meeting-not-scheduled, got %v", err)
	}

	_, err = svc.Transition(ctx, "t1", "ev1", ActionScheduleMeeting, Patch{}, managerActor, now)
	if !errors.Is(err, ErrMeetingTimeRequired) {
		t.Fatalf("expected meeting-time-required, got %v", err)
	}

	meeting := now.Add(24 * time.Hour)
	ev, err := svc.Transition(ctx, "t1", "ev1", ActionScheduleMeeting, Patch{MeetingScheduledAt: &meeting}, managerActor, now)
	if err != nil {
		t.Fatalf("schedule_meeting: %v", err)
	}
	if ev.MeetingStatus != MeetingScheduled {
		t.Fatalf("expected scheduled, got %s", ev.MeetingStatus)
	}

	ev, err = svc.Transition(ctx, "t1", "ev1", ActionRecordMeeting, Patch{}, managerActor, now)
	if err != nil {
		t.Fatalf("record_meeting: %v", err)
	}
	if ev.MeetingCompletedAt == nil || ev.MeetingStatus != MeetingCompleted {
		t.Fatalf("expected completed meeting, got %+v", ev)
	}
}

func TestTransitionRejectsUnsupportedPayloadVersion(t *testing.T) {
	svc, store, _ := newLifecycleFixture()

	store.seed(Evaluation{ID: "ev1", TenantID: "t1", EmployeeID: "e1", ManagerID: "m1", CampaignID: "c1", Status: StatusDraft})

	_, err := svc.Transition(context.Background(), "t1", "ev1", ActionSubmitSelf,
		Patch{SelfEvaluation: &ResponseSet{Version: 2, Answers: answerList(2)}}, ownerActor, time.Now())
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected unsupported version, got %v", err)
	}
}

func TestTransitionSubmitRequiresEveryAnswer(t *testing.T) {
	svc, store, _ := newLifecycleFixture()
	store.questions = 3
	ctx := context.Background()

	store.seed(Evaluation{ID: "ev1", TenantID: "t1", EmployeeID: "e1", ManagerID: "m1", CampaignID: "c1", Status: StatusDraft})

	_, err := svc.Transition(ctx, "t1", "ev1", ActionSubmitSelf,
		Patch{SelfEvaluation: &ResponseSet{Version: 1, Answers: answerList(2)}}, ownerActor, time.Now())
	if !errors.Is(err, ErrAnswerCountMismatch) {
		t.Fatalf("expected answer count mismatch, got %v", err)
	}

	_, err = svc.Transition(ctx, "t1", "ev1", ActionSubmitSelf,
		Patch{SelfEvaluation: &ResponseSet{Version: 1}}, ownerActor, time.Now())
	if !errors.Is(err, ErrNoAnswers) {
		t.Fatalf("expected no-answers rejection, got %v", err)
	}

	ev, err := svc.Transition(ctx, "t1", "ev1", ActionSubmitSelf,
		Patch{SelfEvaluation: &ResponseSet{Version: 1, Answers: answerList(3)}}, ownerActor, time.Now())
	if err != nil {
		t.Fatalf("submit with full answers: %v", err)
	}
	if ev.Status != StatusSelfSubmitted {
		t.Fatalf("expected self_submitted, got %s", ev.Status)
	}
}

func TestTransitionWithoutCampaignSkipsAnswerCountCheck(t *testing.T) {
	svc, store, _ := newLifecycleFixture()
	store.questions = 5

	store.seed(Evaluation{ID: "ev1", TenantID: "t1", EmployeeID: "e1", ManagerID: "m1", Status: StatusDraft})

	ev, err := svc.Transition(context.Background(), "t1", "ev1", ActionSubmitSelf,
		Patch{SelfEvaluation: &ResponseSet{Version: 1, Answers: answerList(1)}}, ownerActor, time.Now())
	if err != nil {
		t.Fatalf("expected ad hoc submission to pass, got %v", err)
	}
	if ev.Status != StatusSelfSubmitted {
		t.Fatalf("expected self_submitted, got %s", ev.Status)
	}
}

func TestTransitionSurvivesNotifierFailure(t *testing.T) {
	svc, store, notifier := newLifecycleFixture()
	notifier.err = errors.New("smtp down")

	store.seed(Evaluation{ID: "ev1", TenantID: "t1", EmployeeID: "e1", ManagerID: "m1", Status: StatusDraft})

	ev, err := svc.Transition(context.Background(), "t1", "ev1", ActionSubmitSelf,
		Patch{SelfEvaluation: &ResponseSet{Version: 1, Answers: answerList(2)}}, ownerActor, time.Now())
	if err != nil {
		t.Fatalf("expected transition to survive notifier failure, got %v", err)
	}
	if ev.Status != StatusSelfSubmitted {
		t.Fatalf("expected self_submitted, got %s", ev.Status)
	}
}

func TestGenerateAssignsManagersAndRecordsFailures(t *testing.T) {
	svc, store, notifier := newLifecycleFixture()
	members := []group.Member{
		{EmployeeID: "e1", UserID: "u-emp", ManagerID: "m1"},
		{EmployeeID: "e2"},
		{EmployeeID: "e3", ManagerID: "m3"},
	}

	result, err := svc.Generate(context.Background(), "t1", "c1", "Annual 2026", members, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.TotalEligible != 3 || result.Created != 2 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Failures) != 1 || result.Failures[0].EmployeeID != "e2" {
		t.Fatalf("expected one failure for e2, got %+v", result.Failures)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != notifications.TypeEvaluationAssigned {
		t.Fatalf("expected one assignment notification, got %+v", notifier.events)
	}

	var found bool
	for _, ev := range store.evals {
		if ev.EmployeeID == "e3" {
			found = true
			if ev.ManagerID != "m3" {
				t.Fatalf("expected e3 assigned to m3, got %s", ev.ManagerID)
			}
			if ev.Status != StatusNotStarted {
				t.Fatalf("expected not_started, got %s", ev.Status)
			}
		}
	}
	if !found {
		t.Fatal("expected an evaluation row for e3")
	}
}

func TestGenerateFallbackManager(t *testing.T) {
	svc, store, _ := newLifecycleFixture()
	members := []group.Member{{EmployeeID: "e9"}}

	result, err := svc.Generate(context.Background(), "t1", "c1", "Annual 2026", members, "mgr-fallback")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Created != 1 || len(result.Failures) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	for _, ev := range store.evals {
		if ev.EmployeeID == "e9" && ev.ManagerID != "mgr-fallback" {
			t.Fatalf("expected fallback manager, got %s", ev.ManagerID)
		}
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	svc, _, notifier := newLifecycleFixture()
	members := []group.Member{
		{EmployeeID: "e1", UserID: "u-emp", ManagerID: "m1"},
		{EmployeeID: "e3", ManagerID: "m3"},
	}
	ctx := context.Background()

	first, err := svc.Generate(ctx, "t1", "c1", "Annual 2026", members, "")
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if first.Created != 2 {
		t.Fatalf("expected 2 created, got %+v", first)
	}

	second, err := svc.Generate(ctx, "t1", "c1", "Annual 2026", members, "")
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if second.Created != 0 || second.Skipped != 2 {
		t.Fatalf("expected rerun to only skip, got %+v", second)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("expected no duplicate assignment notifications, got %+v", notifier.events)
	}
}

func TestGetRedactsMeetingNotesForOwner(t *testing.T) {
	svc, store, _ := newLifecycleFixture()
	ctx := context.Background()

	store.seed(Evaluation{ID: "ev1", TenantID: "t1", EmployeeID: "e1", ManagerID: "m1",
		Status: StatusCompleted, MeetingNotes: "calibration pending", ShowNotesToEmployee: false})

	ev, err := svc.Get(ctx, "t1", "ev1", ownerActor)
	if err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if ev.MeetingNotes != "" {
		t.Fatalf("expected notes hidden from the owner, got %q", ev.MeetingNotes)
	}

	ev, err = svc.Get(ctx, "t1", "ev1", managerActor)
	if err != nil {
		t.Fatalf("manager get: %v", err)
	}
	if ev.MeetingNotes != "calibration pending" {
		t.Fatalf("expected manager to read notes, got %q", ev.MeetingNotes)
	}

	store.evals["ev1"].ShowNotesToEmployee = true
	ev, err = svc.Get(ctx, "t1", "ev1", ownerActor)
	if err != nil {
		t.Fatalf("owner get after sharing: %v", err)
	}
	if ev.MeetingNotes != "calibration pending" {
		t.Fatalf("expected shared notes visible, got %q", ev.MeetingNotes)
	}

	outsider := Actor{UserID: "u-x", EmployeeID: "e99", RoleName: auth.RoleEmployee}
	if _, err := svc.Get(ctx, "t1", "ev1", outsider); !errors.Is(err, ErrActorNotAllowed) {
		t.Fatalf("expected outsider read to be rejected, got %v", err)
	}
}

func TestProgressOverRoster(t *testing.T) {
	svc, store, _ := newLifecycleFixture()
	members := []group.Member{{EmployeeID: "e1"}, {EmployeeID: "e2"}}

	store.seed(Evaluation{ID: "ev1", TenantID: "t1", EmployeeID: "e1", CampaignID: "c1", Status: StatusCompleted})

	progress, err := svc.Progress(context.Background(), "t1", "c1", members)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.TotalEmployees != 2 || progress.CompletedEvaluations != 1 || progress.Percentage != 50 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
}
