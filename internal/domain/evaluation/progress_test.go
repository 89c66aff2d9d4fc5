package evaluation

import (
	"testing"
	"time"

	"appraise/internal/domain/group"
)

func TestBuildProgressCountsAndPercentage(t *testing.T) {
	members := []group.Member{
		{EmployeeID: "e1", FirstName: "Asha", LastName: "Perera", Email: "asha@example.com"},
		{EmployeeID: "e2", FirstName: "Ben", LastName: "Silva", Email: "ben@example.com"},
		{EmployeeID: "e3", FirstName: "Cara", LastName: "Dias", Email: "cara@example.com"},
	}
	evals := []Evaluation{
		{ID: "ev1", EmployeeID: "e1", Status: StatusCompleted},
		{ID: "ev2", EmployeeID: "e2", Status: StatusCompleted},
		{ID: "ev3", EmployeeID: "e3", Status: StatusSelfSubmitted},
	}

	progress := BuildProgress("c1", members, evals)
	if progress.TotalEmployees != 3 {
		t.Fatalf("expected 3 employees, got %d", progress.TotalEmployees)
	}
	if progress.CompletedEvaluations != 2 {
		t.Fatalf("expected 2 completed, got %d", progress.CompletedEvaluations)
	}
	if progress.Percentage != 67 {
		t.Fatalf("expected 67 percent, got %d", progress.Percentage)
	}
	if len(progress.Employees) != 3 {
		t.Fatalf("expected a row per member, got %d", len(progress.Employees))
	}
	if !progress.Employees[0].IsCompleted || progress.Employees[2].IsCompleted {
		t.Fatalf("unexpected completion flags: %+v", progress.Employees)
	}
}

func TestBuildProgressZeroMembers(t *testing.T) {
	progress := BuildProgress("c1", nil, nil)
	if progress.TotalEmployees != 0 || progress.CompletedEvaluations != 0 || progress.Percentage != 0 {
		t.Fatalf("expected zero counts, got %+v", progress)
	}
	if len(progress.Employees) != 0 {
		t.Fatalf("expected empty breakdown, got %+v", progress.Employees)
	}
}

func TestBuildProgressMemberWithoutRow(t *testing.T) {
	members := []group.Member{{EmployeeID: "e1"}, {EmployeeID: "e2"}}
	evals := []Evaluation{{ID: "ev1", EmployeeID: "e1", Status: StatusDraft}}

	progress := BuildProgress("c1", members, evals)
	if progress.Employees[1].Status != StatusNotStarted {
		t.Fatalf("expected missing row to report not_started, got %s", progress.Employees[1].Status)
	}
	if progress.Employees[1].Evaluation != nil {
		t.Fatal("expected no evaluation attached for the missing row")
	}
	if progress.Employees[0].Status != StatusDraft {
		t.Fatalf("expected draft, got %s", progress.Employees[0].Status)
	}
}

func TestBuildProgressLatestRowWins(t *testing.T) {
	older := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	members := []group.Member{{EmployeeID: "e1"}}
	evals := []Evaluation{
		{ID: "ev-old", EmployeeID: "e1", Status: StatusCompleted, CreatedAt: older},
		{ID: "ev-new", EmployeeID: "e1", Status: StatusDraft, CreatedAt: newer},
	}

	progress := BuildProgress("c1", members, evals)
	if progress.Employees[0].Evaluation == nil || progress.Employees[0].Evaluation.ID != "ev-new" {
		t.Fatalf("expected the most recent row, got %+v", progress.Employees[0].Evaluation)
	}
	if progress.CompletedEvaluations != 0 {
		t.Fatalf("expected the superseded completed row to not count, got %d", progress.CompletedEvaluations)
	}
}
