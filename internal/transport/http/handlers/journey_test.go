package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"appraise/internal/domain/auth"
	"appraise/internal/domain/campaign"
	"appraise/internal/domain/evaluation"
)

// TestAppraisalCampaignJourney drives a campaign end to end: seed accounts,
// build a roster and questionnaire, publish, walk one evaluation through
// self review, manager review, meeting and calibration, then let the due
// task close the campaign.
func TestAppraisalCampaignJourney(t *testing.T) {
	app, ts, cfg := startServer(t)

	client := ts.Client()
	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	tenantID := getTenantID(t, app, cfg.SeedTenantName)

	suffix := time.Now().UnixNano()
	managerEmail := fmt.Sprintf("manager-journey-%d@example.com", suffix)
	managerPassword := "Manager123!"
	managerUserID := createUserWithRole(t, app, tenantID, auth.RoleManager, managerEmail, managerPassword)
	managerEmployeeID := createEmployeeWithUser(t, client, ts.URL, adminToken, managerUserID, "", managerEmail)

	employeeEmail := fmt.Sprintf("employee-journey-%d@example.com", suffix)
	employeePassword := "Employee123!"
	employeeUserID := createUserWithRole(t, app, tenantID, auth.RoleEmployee, employeeEmail, employeePassword)
	employeeID := createEmployeeWithUser(t, client, ts.URL, adminToken, employeeUserID, managerEmployeeID, employeeEmail)

	groupID := createGroup(t, client, ts.URL, adminToken, fmt.Sprintf("Journey Group %d", suffix))
	addGroupMember(t, client, ts.URL, adminToken, groupID, employeeID)

	questionnaireID := createQuestionnaire(t, client, ts.URL, adminToken)
	campaignID := createCampaign(t, client, ts.URL, adminToken, fmt.Sprintf("Journey Campaign %d", suffix), groupID, questionnaireID)

	publishKey := fmt.Sprintf("journey-publish-%d", suffix)
	first := publishCampaign(t, client, ts.URL, adminToken, campaignID, publishKey)
	if mode, _ := first["mode"].(string); mode != campaign.PublishNow {
		t.Fatalf("expected publish mode %s, got %v", campaign.PublishNow, first["mode"])
	}
	generated, _ := first["generated"].(map[string]any)
	if generated == nil {
		t.Fatal("expected publish to generate evaluations")
	}
	if created, _ := generated["created"].(float64); created != 1 {
		t.Fatalf("expected 1 generated evaluation, got %v", generated["created"])
	}
	if planned, _ := first["tasksPlanned"].(float64); planned != 1 {
		t.Fatalf("expected 1 planned task, got %v", first["tasksPlanned"])
	}

	// The same key must replay the stored result, not generate twice.
	replay := publishCampaign(t, client, ts.URL, adminToken, campaignID, publishKey)
	replayGenerated, _ := replay["generated"].(map[string]any)
	if replayGenerated == nil {
		t.Fatal("expected replay to return the stored publish result")
	}
	if created, _ := replayGenerated["created"].(float64); created != 1 {
		t.Fatalf("expected replay to report the original creation count, got %v", replayGenerated["created"])
	}

	evals := listEvaluations(t, client, ts.URL, adminToken, campaignID)
	if len(evals) != 1 {
		t.Fatalf("expected one evaluation after idempotent replay, got %d", len(evals))
	}
	evaluationID, _ := evals[0]["id"].(string)
	if evaluationID == "" {
		t.Fatal("expected evaluation id")
	}
	if status, _ := evals[0]["status"].(string); status != evaluation.StatusNotStarted {
		t.Fatalf("expected status %s, got %v", evaluation.StatusNotStarted, evals[0]["status"])
	}
	if got, _ := evals[0]["employeeId"].(string); got != employeeID {
		t.Fatalf("expected evaluation for employee %s, got %v", employeeID, evals[0]["employeeId"])
	}
	if got, _ := evals[0]["managerId"].(string); got != managerEmployeeID {
		t.Fatalf("expected evaluation manager %s, got %v", managerEmployeeID, evals[0]["managerId"])
	}

	employeeToken := login(t, client, ts.URL, employeeEmail, employeePassword)
	ev := patchEvaluation(t, client, ts.URL, employeeToken, evaluationID, "self", map[string]any{
		"selfEvaluation": map[string]any{
			"version": evaluation.SupportedResponseVersion,
			"answers": []map[string]any{
				{"questionId": "q1", "answer": "Shipped the billing migration."},
				{"questionId": "q2", "answer": "", "rating": 4},
			},
		},
	})
	if status, _ := ev["status"].(string); status != evaluation.StatusDraft {
		t.Fatalf("expected status %s after self save, got %v", evaluation.StatusDraft, ev["status"])
	}

	ev = postEvaluation(t, client, ts.URL, employeeToken, evaluationID, "self/submit", map[string]any{})
	if status, _ := ev["status"].(string); status != evaluation.StatusSelfSubmitted {
		t.Fatalf("expected status %s after self submit, got %v", evaluation.StatusSelfSubmitted, ev["status"])
	}

	managerToken := login(t, client, ts.URL, managerEmail, managerPassword)
	ev = patchEvaluation(t, client, ts.URL, managerToken, evaluationID, "review", map[string]any{
		"managerEvaluation": map[string]any{
			"version": evaluation.SupportedResponseVersion,
			"answers": []map[string]any{
				{"questionId": "q1", "answer": "Delivered the migration with no regressions."},
				{"questionId": "q2", "answer": "", "rating": 4},
			},
		},
		"overallRating": 4,
	})
	if status, _ := ev["status"].(string); status != evaluation.StatusSelfSubmitted {
		t.Fatalf("expected manager save to keep status %s, got %v", evaluation.StatusSelfSubmitted, ev["status"])
	}

	ev = postEvaluation(t, client, ts.URL, managerToken, evaluationID, "review/submit", map[string]any{})
	if status, _ := ev["status"].(string); status != evaluation.StatusManagerReviewed {
		t.Fatalf("expected status %s after review submit, got %v", evaluation.StatusManagerReviewed, ev["status"])
	}

	meetingAt := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	ev = postEvaluation(t, client, ts.URL, managerToken, evaluationID, "meeting/schedule", map[string]any{
		"meetingScheduledAt": meetingAt,
	})
	if got, _ := ev["meetingStatus"].(string); got != evaluation.MeetingScheduled {
		t.Fatalf("expected meeting status %s, got %v", evaluation.MeetingScheduled, ev["meetingStatus"])
	}

	ev = postEvaluation(t, client, ts.URL, managerToken, evaluationID, "meeting/complete", map[string]any{})
	if got, _ := ev["meetingStatus"].(string); got != evaluation.MeetingCompleted {
		t.Fatalf("expected meeting status %s, got %v", evaluation.MeetingCompleted, ev["meetingStatus"])
	}

	ev = postEvaluation(t, client, ts.URL, managerToken, evaluationID, "finalize", map[string]any{})
	if status, _ := ev["status"].(string); status != evaluation.StatusCompleted {
		t.Fatalf("expected status %s after finalize, got %v", evaluation.StatusCompleted, ev["status"])
	}

	ev = postEvaluation(t, client, ts.URL, adminToken, evaluationID, "calibrate", map[string]any{
		"calibratedRating":   4.5,
		"calibrationRemarks": "Aligned with the department curve.",
	})
	if rating, _ := ev["calibratedRating"].(float64); rating != 4.5 {
		t.Fatalf("expected calibrated rating 4.5, got %v", ev["calibratedRating"])
	}
	if status, _ := ev["status"].(string); status != evaluation.StatusCompleted {
		t.Fatalf("expected calibration to keep status %s, got %v", evaluation.StatusCompleted, ev["status"])
	}

	progress := getCampaignProgress(t, client, ts.URL, adminToken, campaignID)
	if total, _ := progress["totalEmployees"].(float64); total != 1 {
		t.Fatalf("expected 1 employee in progress, got %v", progress["totalEmployees"])
	}
	if completed, _ := progress["completedEvaluations"].(float64); completed != 1 {
		t.Fatalf("expected 1 completed evaluation, got %v", progress["completedEvaluations"])
	}
	if pct, _ := progress["percentage"].(float64); pct != 100 {
		t.Fatalf("expected 100 percent completion, got %v", progress["percentage"])
	}

	notificationsList := listNotifications(t, client, ts.URL, employeeToken)
	if len(notificationsList) == 0 {
		t.Fatal("expected lifecycle notifications for the employee")
	}

	auditEvents := listAuditEvents(t, client, ts.URL, adminToken, "campaigns.publish", campaignID)
	if len(auditEvents) == 0 {
		t.Fatal("expected an audit event for the publish")
	}

	runSummary := runDueTasks(t, client, ts.URL, adminToken)
	if executed, _ := runSummary["executed"].(float64); executed < 1 {
		t.Fatalf("expected the close task to execute, got %v", runSummary["executed"])
	}

	c := getCampaign(t, client, ts.URL, adminToken, campaignID)
	if status, _ := c["status"].(string); status != campaign.StatusClosed {
		t.Fatalf("expected campaign status %s after close task, got %v", campaign.StatusClosed, c["status"])
	}
}

func postEvaluation(t *testing.T, client *http.Client, baseURL, token, evaluationID, step string, body any) map[string]any {
	t.Helper()
	return dataMap(t, postJSON(t, client, baseURL+"/api/v1/evaluations/"+evaluationID+"/"+step, token, body))
}

func getCampaign(t *testing.T, client *http.Client, baseURL, token, campaignID string) map[string]any {
	t.Helper()
	return dataMap(t, getJSON(t, client, baseURL+"/api/v1/campaigns/"+campaignID, token))
}

func getCampaignProgress(t *testing.T, client *http.Client, baseURL, token, campaignID string) map[string]any {
	t.Helper()
	return dataMap(t, getJSON(t, client, baseURL+"/api/v1/campaigns/"+campaignID+"/progress", token))
}

func listNotifications(t *testing.T, client *http.Client, baseURL, token string) []map[string]any {
	t.Helper()
	return dataList(t, getJSON(t, client, baseURL+"/api/v1/notifications", token))
}

func listAuditEvents(t *testing.T, client *http.Client, baseURL, token, action, entityID string) []map[string]any {
	t.Helper()
	return dataList(t, getJSON(t, client, baseURL+"/api/v1/audit/events?action="+action+"&entityId="+entityID, token))
}

func runDueTasks(t *testing.T, client *http.Client, baseURL, token string) map[string]any {
	t.Helper()
	return dataMap(t, postJSON(t, client, baseURL+"/api/v1/tasks/run", token, map[string]any{}))
}
