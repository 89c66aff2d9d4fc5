package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// exists wraps the COUNT probe shared by the membership checks below.
func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	return s.exists(ctx, `
    SELECT COUNT(1)
    FROM role_permissions rp
    JOIN permissions p ON rp.permission_id = p.id
    WHERE rp.role_id = $1 AND p.key = $2
  `, roleID, permission)
}

func (s *Store) UserExists(ctx context.Context, tenantID, userID string) (bool, error) {
	return s.exists(ctx, "SELECT COUNT(1) FROM users WHERE tenant_id = $1 AND id = $2", tenantID, userID)
}

// employeeColumns matches scanEmployee; keep the two in sync.
const employeeColumns = `id,
         COALESCE(user_id::text, ''),
         COALESCE(employee_number, ''),
         first_name, last_name, email,
         COALESCE(phone, ''),
         COALESCE(job_title, ''),
         COALESCE(department_id::text, ''),
         COALESCE(manager_id::text, ''),
         start_date, end_date, status, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(
		&emp.ID, &emp.UserID, &emp.EmployeeNumber, &emp.FirstName, &emp.LastName, &emp.Email,
		&emp.Phone, &emp.JobTitle, &emp.DepartmentID, &emp.ManagerID,
		&emp.StartDate, &emp.EndDate, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt,
	)
	return emp, err
}

func (s *Store) GetEmployee(ctx context.Context, tenantID, employeeID string) (*Employee, error) {
	row := s.DB.QueryRow(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE tenant_id = $1 AND id = $2",
		tenantID, employeeID)
	emp, err := scanEmployee(row)
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (s *Store) GetEmployeeByUserID(ctx context.Context, tenantID, userID string) (*Employee, error) {
	row := s.DB.QueryRow(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE tenant_id = $1 AND user_id = $2",
		tenantID, userID)
	emp, err := scanEmployee(row)
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (s *Store) ListEmployees(ctx context.Context, tenantID, status string) ([]Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees WHERE tenant_id = $1"
	args := []any{tenantID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY last_name, first_name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) CreateEmployee(ctx context.Context, tenantID string, emp Employee) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, user_id, employee_number, first_name, last_name, email, phone,
      job_title, department_id, manager_id, start_date, end_date, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    RETURNING id
  `,
		tenantID, nullIfEmpty(emp.UserID), nullIfEmpty(emp.EmployeeNumber), emp.FirstName, emp.LastName, emp.Email, emp.Phone,
		emp.JobTitle, nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.ManagerID),
		emp.StartDate, emp.EndDate, emp.Status,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, tenantID, employeeID string, emp Employee) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET employee_number = $1,
        first_name = $2,
        last_name = $3,
        email = $4,
        phone = $5,
        job_title = $6,
        department_id = $7,
        manager_id = $8,
        start_date = $9,
        end_date = $10,
        status = $11,
        updated_at = now()
    WHERE tenant_id = $12 AND id = $13
  `,
		emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.Email, emp.Phone, emp.JobTitle,
		nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.ManagerID),
		emp.StartDate, emp.EndDate, emp.Status, tenantID, employeeID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx,
		"SELECT id FROM employees WHERE tenant_id = $1 AND user_id = $2",
		tenantID, userID).Scan(&id)
	return id, err
}

func (s *Store) UserIDByEmployeeID(ctx context.Context, tenantID, employeeID string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx,
		"SELECT COALESCE(user_id::text, '') FROM employees WHERE tenant_id = $1 AND id = $2",
		tenantID, employeeID).Scan(&userID)
	return userID, err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
