package auth

import (
	"slices"
	"testing"
)

func TestRoleGrantsAreKnownPermissions(t *testing.T) {
	for role, grants := range RolePermissions {
		if len(grants) == 0 {
			t.Fatalf("role %s grants nothing", role)
		}
		for _, perm := range grants {
			if !slices.Contains(DefaultPermissions, perm) {
				t.Fatalf("role %s grants undeclared permission %s", role, perm)
			}
		}
	}
}

func TestDefaultPermissionsUnique(t *testing.T) {
	sorted := slices.Clone(DefaultPermissions)
	slices.Sort(sorted)
	if len(slices.Compact(sorted)) != len(DefaultPermissions) {
		t.Fatal("permission catalog contains duplicates")
	}
}

func TestAdminHoldsEveryPermission(t *testing.T) {
	for _, perm := range DefaultPermissions {
		if !slices.Contains(RolePermissions[RoleAdmin], perm) {
			t.Fatalf("admin role is missing %s", perm)
		}
	}
}

func TestEmployeeCannotManage(t *testing.T) {
	denied := []string{
		PermCampaignsManage,
		PermCampaignsPublish,
		PermEvaluationsCalibrate,
		PermGroupsManage,
		PermSystemAdmin,
	}
	for _, perm := range denied {
		if slices.Contains(RolePermissions[RoleEmployee], perm) {
			t.Fatalf("employee role must not hold %s", perm)
		}
	}
}

func TestHRHoldsCalibration(t *testing.T) {
	if !slices.Contains(RolePermissions[RoleHR], PermEvaluationsCalibrate) {
		t.Fatal("hr role must hold evaluations.calibrate")
	}
}

func TestSuperAdminIsSystemOnly(t *testing.T) {
	grants := RolePermissions[RoleSuperAdmin]
	if len(grants) != 1 || grants[0] != PermSystemAdmin {
		t.Fatalf("super admin should hold admin.system only, got %v", grants)
	}
}
