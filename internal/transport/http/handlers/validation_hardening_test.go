package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"testing"
	"time"
)

// TestInvalidPayloadsReportOffendingFields sends broken input to the write
// endpoints and checks each rejection names the fields that failed instead
// of returning a bare error.
func TestInvalidPayloadsReportOffendingFields(t *testing.T) {
	_, ts, cfg := startServer(t)

	client := ts.Client()
	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	suffix := time.Now().UnixNano()

	resp := postJSONStatus(t, client, ts.URL+"/api/v1/employees", adminToken, map[string]any{"status": "retired"}, http.StatusBadRequest)
	wantIssues(t, resp, "firstName", "lastName", "email", "status")

	calendarID := createdID(t, postJSON(t, client, ts.URL+"/api/v1/calendars", adminToken, map[string]any{
		"name": fmt.Sprintf("Hardening FY %d", suffix),
	}))
	resp = postJSONStatus(t, client, ts.URL+"/api/v1/calendars/"+calendarID+"/periods", adminToken, map[string]any{
		"name":      "Inverted Quarter",
		"startDate": "2026-04-10",
		"endDate":   "2026-04-01",
	}, http.StatusBadRequest)
	wantIssues(t, resp, "startDate", "endDate")

	resp = postJSONStatus(t, client, ts.URL+"/api/v1/questionnaires", adminToken, map[string]any{}, http.StatusBadRequest)
	wantIssues(t, resp, "name", "questions")

	resp = postJSONStatus(t, client, ts.URL+"/api/v1/campaigns", adminToken, map[string]any{
		"name":    fmt.Sprintf("Hardening Campaign %d", suffix),
		"groupId": "not-a-group",
		"kind":    "vibes",
	}, http.StatusBadRequest)
	if code := envelopeErrorCode(t, resp); code != "invalid_campaign" {
		t.Fatalf("expected invalid_campaign error, got %q", code)
	}

	resp = postJSONStatus(t, client, ts.URL+"/api/v1/auth/reset", "", map[string]any{
		"token":       "bogus",
		"newPassword": "short1",
	}, http.StatusBadRequest)
	if code := envelopeErrorCode(t, resp); code != "weak_password" {
		t.Fatalf("expected weak_password error, got %q", code)
	}
}

// fieldIssues extracts the field names carried in a validation_error.
func fieldIssues(t *testing.T, env envelope) []string {
	t.Helper()
	if code := envelopeErrorCode(t, env); code != "validation_error" {
		t.Fatalf("expected validation_error, got %+v", env.Error)
	}
	raw, err := json.Marshal(env.Error)
	if err != nil {
		t.Fatalf("failed to remarshal error: %v", err)
	}
	var parsed struct {
		Details struct {
			Fields []struct {
				Field string `json:"field"`
			} `json:"fields"`
		} `json:"details"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("failed to decode validation details %s: %v", string(raw), err)
	}
	fields := make([]string, 0, len(parsed.Details.Fields))
	for _, issue := range parsed.Details.Fields {
		fields = append(fields, issue.Field)
	}
	return fields
}

func wantIssues(t *testing.T, env envelope, fields ...string) {
	t.Helper()
	got := fieldIssues(t, env)
	for _, field := range fields {
		if !slices.Contains(got, field) {
			t.Fatalf("expected a validation issue for %q, got %v", field, got)
		}
	}
}
