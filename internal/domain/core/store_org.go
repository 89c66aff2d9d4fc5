package core

import "context"

func (s *Store) ListDepartments(ctx context.Context, tenantID string, limit, offset int) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name,
           COALESCE(parent_id::text, ''),
           COALESCE(manager_id::text, ''),
           created_at
    FROM departments
    WHERE tenant_id = $1
    ORDER BY name
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var dep Department
		if err := rows.Scan(&dep.ID, &dep.Name, &dep.ParentID, &dep.ManagerID, &dep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, rows.Err()
}

func (s *Store) CreateDepartment(ctx context.Context, tenantID string, dep Department) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (tenant_id, name, parent_id, manager_id)
    VALUES ($1, $2, $3, $4)
    RETURNING id
  `, tenantID, dep.Name, nullIfEmpty(dep.ParentID), nullIfEmpty(dep.ManagerID)).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListRoles(ctx context.Context, tenantID string) ([]Role, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.id, r.name, COUNT(rp.permission_id)
    FROM roles r
    LEFT JOIN role_permissions rp ON rp.role_id = r.id
    WHERE r.tenant_id = $1
    GROUP BY r.id, r.name
    ORDER BY r.name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.PermissionCount); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (s *Store) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, key, COALESCE(description, '')
    FROM permissions
    ORDER BY key
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Key, &perm.Description); err != nil {
			return nil, err
		}
		out = append(out, perm)
	}
	return out, rows.Err()
}
