package group

import (
	"testing"
	"time"
)

func datePtr(t time.Time) *time.Time {
	return &t
}

func TestFilterEligibleSkipsInactive(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	members := []Member{
		{EmployeeID: "e1", Status: "active"},
		{EmployeeID: "e2", Status: "inactive"},
	}

	out := FilterEligible(members, ExclusionRules{}, now)
	if len(out) != 1 || out[0].EmployeeID != "e1" {
		t.Fatalf("expected only active member, got %+v", out)
	}
}

func TestFilterEligibleExplicitExclusions(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	members := []Member{
		{EmployeeID: "e1", Status: "active"},
		{EmployeeID: "e2", Status: "active"},
		{EmployeeID: "e3", Status: "active"},
	}
	rules := ExclusionRules{ExcludedEmployeeIDs: []string{"e2"}}

	out := FilterEligible(members, rules, now)
	if len(out) != 2 {
		t.Fatalf("expected 2 members, got %d", len(out))
	}
	for _, m := range out {
		if m.EmployeeID == "e2" {
			t.Fatal("excluded member survived the filter")
		}
	}
}

func TestFilterEligibleShortTenure(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	members := []Member{
		{EmployeeID: "veteran", Status: "active", StartDate: datePtr(now.AddDate(-3, 0, 0))},
		{EmployeeID: "newcomer", Status: "active", StartDate: datePtr(now.AddDate(0, -6, 0))},
		{EmployeeID: "exactly-one-year", Status: "active", StartDate: datePtr(now.AddDate(-1, 0, 0))},
		{EmployeeID: "no-start-date", Status: "active"},
	}
	rules := ExclusionRules{ExcludeTenureUnderOneYear: true}

	out := FilterEligible(members, rules, now)
	if len(out) != 3 {
		t.Fatalf("expected 3 members, got %d: %+v", len(out), out)
	}
	for _, m := range out {
		if m.EmployeeID == "newcomer" {
			t.Fatal("short-tenure member survived the filter")
		}
	}
}

func TestFilterEligibleTenureRuleDisabled(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	members := []Member{
		{EmployeeID: "newcomer", Status: "active", StartDate: datePtr(now.AddDate(0, -1, 0))},
	}

	out := FilterEligible(members, ExclusionRules{}, now)
	if len(out) != 1 {
		t.Fatalf("expected newcomer kept when rule disabled, got %d", len(out))
	}
}

func TestFilterEligibleEmptyGroup(t *testing.T) {
	out := FilterEligible(nil, ExclusionRules{ExcludeTenureUnderOneYear: true}, time.Now())
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %d", len(out))
	}
}
