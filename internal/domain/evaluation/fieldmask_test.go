package evaluation

import (
	"testing"

	"appraise/internal/domain/auth"
)

func TestAllowedFieldsOwner(t *testing.T) {
	allowed := AllowedFields(auth.RoleEmployee, true, false)
	if _, ok := allowed[FieldSelfEvaluation]; !ok {
		t.Fatal("expected owner to write selfEvaluation")
	}
	for _, f := range []Field{FieldManagerEvaluation, FieldOverallRating, FieldMeetingNotes, FieldCalibratedRating} {
		if _, ok := allowed[f]; ok {
			t.Fatalf("owner must not write %s", f)
		}
	}
}

func TestAllowedFieldsManager(t *testing.T) {
	allowed := AllowedFields(auth.RoleManager, false, true)
	for _, f := range []Field{FieldManagerEvaluation, FieldOverallRating, FieldMeetingScheduledAt, FieldMeetingNotes, FieldShowNotesToEmployee} {
		if _, ok := allowed[f]; !ok {
			t.Fatalf("expected manager to write %s", f)
		}
	}
	if _, ok := allowed[FieldSelfEvaluation]; ok {
		t.Fatal("manager must not write the employee's self evaluation")
	}
	if _, ok := allowed[FieldCalibratedRating]; ok {
		t.Fatal("manager must not write calibration fields")
	}
}

func TestAllowedFieldsMergeForManagerOwnRow(t *testing.T) {
	allowed := AllowedFields(auth.RoleManager, true, true)
	if _, ok := allowed[FieldSelfEvaluation]; !ok {
		t.Fatal("manager acting on their own row keeps the self side")
	}
	if _, ok := allowed[FieldManagerEvaluation]; !ok {
		t.Fatal("manager acting on their own row keeps the review side")
	}
}

func TestAllowedFieldsElevated(t *testing.T) {
	for _, role := range []string{auth.RoleHR, auth.RoleAdmin, auth.RoleSuperAdmin} {
		allowed := AllowedFields(role, false, false)
		if len(allowed) != len(allFields) {
			t.Fatalf("expected %s to write every field, got %d of %d", role, len(allowed), len(allFields))
		}
	}
}

func TestMaskViolationsReportsEveryOffendingField(t *testing.T) {
	rating := 4.2
	notes := "observed"
	patch := Patch{
		SelfEvaluation: &ResponseSet{Version: SupportedResponseVersion},
		OverallRating:  &rating,
		MeetingNotes:   &notes,
	}

	violations := MaskViolations(patch, AllowedFields(auth.RoleEmployee, true, false))
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %v", violations)
	}
	seen := map[Field]bool{}
	for _, f := range violations {
		seen[f] = true
	}
	if !seen[FieldOverallRating] || !seen[FieldMeetingNotes] {
		t.Fatalf("expected overallRating and meetingNotes violations, got %v", violations)
	}
}

func TestMaskViolationsEmptyWhenWithinMask(t *testing.T) {
	patch := Patch{SelfEvaluation: &ResponseSet{Version: SupportedResponseVersion}}
	if violations := MaskViolations(patch, AllowedFields(auth.RoleEmployee, true, false)); len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
}
