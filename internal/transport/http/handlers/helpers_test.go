package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"appraise/internal/app/server"
	"appraise/internal/domain/auth"
	"appraise/internal/domain/campaign"
	"appraise/internal/platform/config"
)

// envelope mirrors the wrapper every endpoint writes.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

// startServer boots the full app against TEST_DATABASE_URL and skips the
// test when the variable is unset.
func startServer(t *testing.T) (*server.App, *httptest.Server, config.Config) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return app, ts, cfg
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		DataEncryptionKey:  "0123456789abcdef0123456789abcdef",
		Environment:        "test",
		SeedTenantName:     "Test Tenant",
		SeedAdminEmail:     "admin@test.local",
		SeedAdminPassword:  "ChangeMe123!",
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		TaskRunnerBatch:    50,
		SessionTTL:         time.Hour,
	}
}

// Status markers for doJSON: statusOK fails on any error status, statusAny
// skips the check entirely.
const (
	statusAny = -1
	statusOK  = 0
)

// doJSON issues one API request and decodes the envelope.
func doJSON(t *testing.T, client *http.Client, method, url, token string, body any, headers map[string]string, want int) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}

	switch {
	case want == statusAny:
	case want == statusOK && resp.StatusCode >= 400:
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	case want > 0 && resp.StatusCode != want:
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode envelope %q: %v", string(raw), err)
	}
	return resp.StatusCode, env
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	_, env := doJSON(t, client, http.MethodPost, url, token, body, nil, statusOK)
	return env
}

func patchJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	_, env := doJSON(t, client, http.MethodPatch, url, token, body, nil, statusOK)
	return env
}

func getJSON(t *testing.T, client *http.Client, url, token string) envelope {
	t.Helper()
	_, env := doJSON(t, client, http.MethodGet, url, token, nil, nil, statusOK)
	return env
}

func postJSONStatus(t *testing.T, client *http.Client, url, token string, body any, want int) envelope {
	t.Helper()
	_, env := doJSON(t, client, http.MethodPost, url, token, body, nil, want)
	return env
}

func patchJSONStatus(t *testing.T, client *http.Client, url, token string, body any, want int) envelope {
	t.Helper()
	_, env := doJSON(t, client, http.MethodPatch, url, token, body, nil, want)
	return env
}

func getJSONStatus(t *testing.T, client *http.Client, url, token string, want int) envelope {
	t.Helper()
	_, env := doJSON(t, client, http.MethodGet, url, token, nil, nil, want)
	return env
}

// decodeData unmarshals the envelope payload into out.
func decodeData(t *testing.T, env envelope, out any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("failed to decode response data %q: %v", string(env.Data), err)
	}
}

func dataMap(t *testing.T, env envelope) map[string]any {
	t.Helper()
	var data map[string]any
	decodeData(t, env, &data)
	return data
}

func dataList(t *testing.T, env envelope) []map[string]any {
	t.Helper()
	var data []map[string]any
	decodeData(t, env, &data)
	return data
}

// createdID pulls the generated id out of a create response.
func createdID(t *testing.T, env envelope) string {
	t.Helper()
	id, _ := dataMap(t, env)["id"].(string)
	if id == "" {
		t.Fatalf("expected an id in %s", string(env.Data))
	}
	return id
}

func envelopeErrorCode(t *testing.T, env envelope) string {
	t.Helper()
	errMap, ok := env.Error.(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %v", env.Error)
	}
	code, _ := errMap["code"].(string)
	return code
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	payload := dataMap(t, postJSON(t, client, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}))
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("expected token")
	}
	return token
}

func getTenantID(t *testing.T, app *server.App, tenantName string) string {
	t.Helper()
	var tenantID string
	if err := app.DB.QueryRow(context.Background(), "SELECT id FROM tenants WHERE name = $1", tenantName).Scan(&tenantID); err != nil {
		t.Fatalf("failed to load tenant: %v", err)
	}
	return tenantID
}

// createUserWithRole inserts the account directly; there is no public
// signup endpoint to drive this through.
func createUserWithRole(t *testing.T, app *server.App, tenantID, roleName, email, password string) string {
	t.Helper()
	ctx := context.Background()
	var roleID string
	if err := app.DB.QueryRow(ctx, "SELECT id FROM roles WHERE tenant_id = $1 AND name = $2", tenantID, roleName).Scan(&roleID); err != nil {
		t.Fatalf("failed to load role: %v", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	var userID string
	if err := app.DB.QueryRow(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, role_id)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, tenantID, email, hash, roleID).Scan(&userID); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return userID
}

func createEmployeeWithUser(t *testing.T, client *http.Client, baseURL, token, userID, managerID, email string) string {
	t.Helper()
	payload := map[string]any{
		"userId":    userID,
		"firstName": "Test",
		"lastName":  "Employee",
		"email":     email,
		"jobTitle":  "Engineer",
		"status":    "active",
	}
	if managerID != "" {
		payload["managerId"] = managerID
	}
	return createdID(t, postJSON(t, client, baseURL+"/api/v1/employees", token, payload))
}

func createGroup(t *testing.T, client *http.Client, baseURL, token, name string) string {
	t.Helper()
	return createdID(t, postJSON(t, client, baseURL+"/api/v1/groups", token, map[string]any{
		"name":        name,
		"description": "Integration test roster",
	}))
}

func addGroupMember(t *testing.T, client *http.Client, baseURL, token, groupID, employeeID string) {
	t.Helper()
	postJSON(t, client, baseURL+"/api/v1/groups/"+groupID+"/members", token, map[string]any{
		"employeeId": employeeID,
	})
}

// createQuestionnaire seeds a two question form, one free text and one on
// the rating scale, so response validation has both kinds to chew on.
func createQuestionnaire(t *testing.T, client *http.Client, baseURL, token string) string {
	t.Helper()
	return createdID(t, postJSON(t, client, baseURL+"/api/v1/questionnaires", token, map[string]any{
		"name": "Annual Review",
		"ratingScale": []map[string]any{
			{"value": 1, "label": "Needs improvement"},
			{"value": 3, "label": "Meets expectations"},
			{"value": 5, "label": "Outstanding"},
		},
		"questions": []map[string]any{
			{"id": "q1", "text": "What went well this period?", "kind": "text"},
			{"id": "q2", "text": "Rate overall delivery against goals.", "kind": "rating"},
		},
	}))
}

// createCampaign uses zero day offsets so the close task is due as soon as
// the campaign is published.
func createCampaign(t *testing.T, client *http.Client, baseURL, token, name, groupID, questionnaireID string) string {
	t.Helper()
	return createdID(t, postJSON(t, client, baseURL+"/api/v1/campaigns", token, map[string]any{
		"name":             name,
		"groupId":          groupID,
		"kind":             campaign.KindQuestionnaire,
		"questionnaireIds": []string{questionnaireID},
		"daysToInitiate":   0,
		"daysToClose":      0,
		"reminderCount":    0,
		"publishMode":      campaign.PublishNow,
	}))
}

func publishCampaign(t *testing.T, client *http.Client, baseURL, token, campaignID, idempotencyKey string) map[string]any {
	t.Helper()
	_, env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/campaigns/"+campaignID+"/publish", token, map[string]any{}, map[string]string{
		"Idempotency-Key": idempotencyKey,
	}, http.StatusOK)
	return dataMap(t, env)
}

func listEvaluations(t *testing.T, client *http.Client, baseURL, token, campaignID string) []map[string]any {
	t.Helper()
	return dataList(t, getJSON(t, client, baseURL+"/api/v1/evaluations?campaignId="+campaignID, token))
}

func getEvaluation(t *testing.T, client *http.Client, baseURL, token, evaluationID string) map[string]any {
	t.Helper()
	return dataMap(t, getJSON(t, client, baseURL+"/api/v1/evaluations/"+evaluationID, token))
}

func patchEvaluation(t *testing.T, client *http.Client, baseURL, token, evaluationID, step string, body any) map[string]any {
	t.Helper()
	return dataMap(t, patchJSON(t, client, baseURL+"/api/v1/evaluations/"+evaluationID+"/"+step, token, body))
}
