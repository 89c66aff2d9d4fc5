package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"appraise/internal/domain/auth"
	"appraise/internal/platform/config"
)

// Seed makes the minimum viable tenant: permissions, roles with their
// grants, and the configured admin accounts. Every step is idempotent so
// it can run on each boot.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	tenantID, err := ensureTenant(ctx, pool, cfg.SeedTenantName)
	if err != nil {
		return err
	}

	if err := ensurePermissions(ctx, pool); err != nil {
		return err
	}

	roleIDs, err := ensureRoles(ctx, pool, tenantID)
	if err != nil {
		return err
	}

	if err := ensureRolePermissions(ctx, pool, roleIDs); err != nil {
		return err
	}

	if err := ensureAdminUser(ctx, pool, tenantID, roleIDs[auth.RoleHR], cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}

	if cfg.SeedSystemAdminEmail != "" {
		_ = ensureAdminUser(ctx, pool, tenantID, roleIDs[auth.RoleSuperAdmin], cfg.SeedSystemAdminEmail, cfg.SeedSystemAdminPassword)
	}

	if cfg.SeedDemoData {
		if err := ensureDemoData(ctx, pool, tenantID); err != nil {
			return err
		}
	}

	return nil
}

// ensureTenant upserts by name; the DO UPDATE arm makes RETURNING yield
// the id on the conflict path too.
func ensureTenant(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, `
    INSERT INTO tenants (name) VALUES ($1)
    ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
    RETURNING id
  `, name).Scan(&id)
	return id, err
}

func ensurePermissions(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
    INSERT INTO permissions (key)
    SELECT unnest($1::text[])
    ON CONFLICT (key) DO NOTHING
  `, auth.DefaultPermissions)
	return err
}

func ensureRoles(ctx context.Context, pool *pgxpool.Pool, tenantID string) (map[string]string, error) {
	roleIDs := make(map[string]string, len(auth.RolePermissions))
	for roleName := range auth.RolePermissions {
		var id string
		err := pool.QueryRow(ctx, `
      INSERT INTO roles (tenant_id, name) VALUES ($1, $2)
      ON CONFLICT (tenant_id, name) DO UPDATE SET name = EXCLUDED.name
      RETURNING id
    `, tenantID, roleName).Scan(&id)
		if err != nil {
			return nil, err
		}
		roleIDs[roleName] = id
	}
	return roleIDs, nil
}

func ensureRolePermissions(ctx context.Context, pool *pgxpool.Pool, roleIDs map[string]string) error {
	for roleName, perms := range auth.RolePermissions {
		var known int
		if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM permissions WHERE key = ANY($1)", perms).Scan(&known); err != nil {
			return err
		}
		if known != len(perms) {
			return fmt.Errorf("role %s references unknown permissions", roleName)
		}

		if _, err := pool.Exec(ctx, `
      INSERT INTO role_permissions (role_id, permission_id)
      SELECT $1, id FROM permissions WHERE key = ANY($2)
      ON CONFLICT DO NOTHING
    `, roleIDs[roleName], perms); err != nil {
			return err
		}
	}
	return nil
}

// ensureAdminUser creates the account only when absent; an existing
// user's password is never overwritten.
func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, tenantID, roleID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var existing int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE tenant_id = $1 AND email = $2", tenantID, email).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, role_id)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (email) DO NOTHING
  `, tenantID, email, hash, roleID)
	return err
}

// ensureDemoData loads a small sample org: one department, a manager with
// two reports (one recent hire for tenure-rule demos), a group over all
// three, a quarterly calendar and a starter questionnaire. It only runs on
// an empty employee directory.
func ensureDemoData(ctx context.Context, pool *pgxpool.Pool, tenantID string) error {
	var existing int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE tenant_id = $1", tenantID).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	var departmentID string
	if err := pool.QueryRow(ctx,
		"INSERT INTO departments (tenant_id, name) VALUES ($1, $2) RETURNING id",
		tenantID, "Engineering").Scan(&departmentID); err != nil {
		return err
	}

	now := time.Now()
	var managerID string
	if err := pool.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, first_name, last_name, email, job_title, department_id, start_date)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, tenantID, "Dana", "Lee", "dana.lee@example.com", "Engineering Manager", departmentID, now.AddDate(-3, 0, 0)).Scan(&managerID); err != nil {
		return err
	}

	reports := []struct {
		first, last, email, title string
		startDate                 time.Time
	}{
		{"Sam", "Ortiz", "sam.ortiz@example.com", "Software Engineer", now.AddDate(-2, 0, 0)},
		{"Priya", "Nair", "priya.nair@example.com", "Software Engineer", now.AddDate(0, -3, 0)},
	}
	employeeIDs := []string{managerID}
	for _, r := range reports {
		var id string
		if err := pool.QueryRow(ctx, `
      INSERT INTO employees (tenant_id, first_name, last_name, email, job_title, department_id, manager_id, start_date)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
      RETURNING id
    `, tenantID, r.first, r.last, r.email, r.title, departmentID, managerID, r.startDate).Scan(&id); err != nil {
			return err
		}
		employeeIDs = append(employeeIDs, id)
	}

	var groupID string
	if err := pool.QueryRow(ctx,
		"INSERT INTO appraisal_groups (tenant_id, name, description) VALUES ($1, $2, $3) RETURNING id",
		tenantID, "Engineering Annual", "Everyone in engineering").Scan(&groupID); err != nil {
		return err
	}
	for _, employeeID := range employeeIDs {
		if _, err := pool.Exec(ctx,
			"INSERT INTO appraisal_group_members (group_id, employee_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			groupID, employeeID); err != nil {
			return err
		}
	}

	var calendarID string
	if err := pool.QueryRow(ctx,
		"INSERT INTO frequency_calendars (tenant_id, name, description) VALUES ($1, $2, $3) RETURNING id",
		tenantID, "Quarterly", "Calendar-year quarters").Scan(&calendarID); err != nil {
		return err
	}
	year := now.Year()
	quarters := []struct {
		name         string
		start, until time.Time
	}{
		{"Q1", time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(year, 3, 31, 0, 0, 0, 0, time.UTC)},
		{"Q2", time.Date(year, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(year, 6, 30, 0, 0, 0, 0, time.UTC)},
		{"Q3", time.Date(year, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(year, 9, 30, 0, 0, 0, 0, time.UTC)},
		{"Q4", time.Date(year, 10, 1, 0, 0, 0, 0, time.UTC), time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, q := range quarters {
		if _, err := pool.Exec(ctx,
			"INSERT INTO calendar_periods (calendar_id, name, start_date, end_date) VALUES ($1, $2, $3, $4)",
			calendarID, q.name, q.start, q.until); err != nil {
			return err
		}
	}

	ratingScale, _ := json.Marshal([]map[string]any{
		{"value": 1, "label": "Needs improvement"},
		{"value": 2, "label": "Developing"},
		{"value": 3, "label": "Meets expectations"},
		{"value": 4, "label": "Exceeds expectations"},
		{"value": 5, "label": "Outstanding"},
	})
	questions, _ := json.Marshal([]map[string]any{
		{"id": "q1", "text": "What went well this period?", "kind": "text"},
		{"id": "q2", "text": "What could have gone better?", "kind": "text"},
		{"id": "q3", "text": "Rate overall delivery against goals.", "kind": "rating"},
	})
	if _, err := pool.Exec(ctx,
		"INSERT INTO questionnaires (tenant_id, name, rating_scale_json, questions_json) VALUES ($1, $2, $3, $4)",
		tenantID, "Annual Review", ratingScale, questions); err != nil {
		return err
	}

	return nil
}
