package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"appraise/internal/domain/auth"
)

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrEmployeeHidden marks records outside the caller's visibility scope.
	ErrEmployeeHidden = errors.New("employee not visible")
)

// Viewer scopes directory reads to the caller. Employees see themselves,
// managers additionally see their direct reports, hr and admin see the
// whole tenant.
type Viewer struct {
	UserID   string
	RoleName string
}

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	return s.store.HasPermission(ctx, roleID, permission)
}

func (s *Service) UserExists(ctx context.Context, tenantID, userID string) (bool, error) {
	return s.store.UserExists(ctx, tenantID, userID)
}

func (s *Service) GetEmployeeByUserID(ctx context.Context, tenantID, userID string) (*Employee, error) {
	return s.store.GetEmployeeByUserID(ctx, tenantID, userID)
}

// selfEmployeeID resolves the viewer's own employee record; accounts
// without one (system admins) resolve to empty.
func (s *Service) selfEmployeeID(ctx context.Context, tenantID string, viewer Viewer) string {
	id, err := s.store.EmployeeIDByUserID(ctx, tenantID, viewer.UserID)
	if err != nil {
		return ""
	}
	return id
}

func visibleTo(viewer Viewer, selfEmployeeID string, emp Employee) bool {
	if auth.Elevated(viewer.RoleName) {
		return true
	}
	if emp.UserID == viewer.UserID {
		return true
	}
	return viewer.RoleName == auth.RoleManager && selfEmployeeID != "" && emp.ManagerID == selfEmployeeID
}

func (s *Service) ListEmployees(ctx context.Context, tenantID, status string, viewer Viewer) ([]Employee, error) {
	employees, err := s.store.ListEmployees(ctx, tenantID, status)
	if err != nil {
		return nil, err
	}
	if auth.Elevated(viewer.RoleName) {
		return employees, nil
	}

	selfID := s.selfEmployeeID(ctx, tenantID, viewer)
	visible := make([]Employee, 0, len(employees))
	for _, emp := range employees {
		if visibleTo(viewer, selfID, emp) {
			visible = append(visible, emp)
		}
	}
	return visible, nil
}

func (s *Service) GetEmployee(ctx context.Context, tenantID, employeeID string, viewer Viewer) (*Employee, error) {
	emp, err := s.store.GetEmployee(ctx, tenantID, employeeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	if !visibleTo(viewer, s.selfEmployeeID(ctx, tenantID, viewer), *emp) {
		return nil, ErrEmployeeHidden
	}
	return emp, nil
}

func (s *Service) CreateEmployee(ctx context.Context, tenantID string, emp Employee) (string, error) {
	if emp.Status == "" {
		emp.Status = EmployeeStatusActive
	}
	return s.store.CreateEmployee(ctx, tenantID, emp)
}

// UpdateEmployee replaces the record and returns the previous state so
// callers can record the diff.
func (s *Service) UpdateEmployee(ctx context.Context, tenantID, employeeID string, emp Employee) (*Employee, error) {
	previous, err := s.store.GetEmployee(ctx, tenantID, employeeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	if err := s.store.UpdateEmployee(ctx, tenantID, employeeID, emp); err != nil {
		return nil, err
	}
	return previous, nil
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	return s.store.EmployeeIDByUserID(ctx, tenantID, userID)
}

func (s *Service) UserIDByEmployeeID(ctx context.Context, tenantID, employeeID string) (string, error) {
	return s.store.UserIDByEmployeeID(ctx, tenantID, employeeID)
}

func (s *Service) ListDepartments(ctx context.Context, tenantID string, limit, offset int) ([]Department, error) {
	return s.store.ListDepartments(ctx, tenantID, limit, offset)
}

func (s *Service) CreateDepartment(ctx context.Context, tenantID string, dep Department) (string, error) {
	return s.store.CreateDepartment(ctx, tenantID, dep)
}

func (s *Service) ListRoles(ctx context.Context, tenantID string) ([]Role, error) {
	return s.store.ListRoles(ctx, tenantID)
}

func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}
