package shared

import "testing"

func TestValidatorCollectsAndSortsIssues(t *testing.T) {
	v := NewValidator()
	if v.HasIssues() {
		t.Fatal("fresh validator should have no issues")
	}

	v.Required("name", "  ", "name is required")
	v.Required("email", "a@b.test", "email is required")
	v.Enum("status", "retired", []string{"active", "inactive"}, "must be active or inactive")
	v.Enum("kind", "ACTIVE", []string{"active"}, "unknown kind")
	v.Add("zeta", "last field")
	v.Add("alpha", "first field")

	issues := v.Issues()
	if len(issues) != 4 {
		t.Fatalf("expected 4 issues, got %d: %+v", len(issues), issues)
	}
	if issues[0].Field != "alpha" || issues[len(issues)-1].Field != "zeta" {
		t.Fatalf("expected issues sorted by field, got %+v", issues)
	}
	for _, issue := range issues {
		if issue.Field == "email" || issue.Field == "kind" {
			t.Fatalf("unexpected issue for valid field %q", issue.Field)
		}
	}
}

func TestValidatorDateRules(t *testing.T) {
	v := NewValidator()

	start, ok := v.Date("startDate", "2026-04-10")
	if !ok || start.IsZero() {
		t.Fatalf("expected valid start date, issues: %+v", v.Issues())
	}
	end, ok := v.Date("endDate", "2026-04-01")
	if !ok {
		t.Fatalf("expected valid end date, issues: %+v", v.Issues())
	}

	v.DateOrder("startDate", start, "endDate", end)
	issues := v.Issues()
	if len(issues) != 2 {
		t.Fatalf("expected an issue per date field, got %+v", issues)
	}

	v2 := NewValidator()
	if _, ok := v2.Date("when", "not-a-date"); ok {
		t.Fatal("expected invalid date to be rejected")
	}
	if !v2.HasIssues() {
		t.Fatal("expected an issue for the invalid date")
	}
}

func TestParseDateAcceptsBothFormats(t *testing.T) {
	if _, err := ParseDate("2026-08-25"); err != nil {
		t.Fatalf("date-only parse failed: %v", err)
	}
	if _, err := ParseDate("2026-08-25T10:30:00Z"); err != nil {
		t.Fatalf("rfc3339 parse failed: %v", err)
	}
	parsed, err := ParseDate("")
	if err != nil || !parsed.IsZero() {
		t.Fatalf("empty input should parse to zero time, got %v %v", parsed, err)
	}
	if _, err := ParseDate("25/08/2026"); err == nil {
		t.Fatal("expected unsupported format to fail")
	}
}
