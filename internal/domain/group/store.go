package group

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateGroup(ctx context.Context, tenantID string, g Group) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO appraisal_groups (tenant_id, name, description, owner_user_id, status)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, tenantID, g.Name, g.Description, nullIfEmpty(g.OwnerUserID), g.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetGroup(ctx context.Context, tenantID, groupID string) (*Group, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT g.id, g.name, COALESCE(g.description, ''),
           COALESCE(g.owner_user_id::text, ''), g.status,
           (SELECT COUNT(1) FROM appraisal_group_members m WHERE m.group_id = g.id),
           g.created_at, g.updated_at
    FROM appraisal_groups g
    WHERE g.tenant_id = $1 AND g.id = $2
  `, tenantID, groupID)

	var g Group
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.OwnerUserID, &g.Status, &g.MemberCount, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) ListGroups(ctx context.Context, tenantID string, limit, offset int) ([]Group, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT g.id, g.name, COALESCE(g.description, ''),
           COALESCE(g.owner_user_id::text, ''), g.status,
           (SELECT COUNT(1) FROM appraisal_group_members m WHERE m.group_id = g.id),
           g.created_at, g.updated_at
    FROM appraisal_groups g
    WHERE g.tenant_id = $1
    ORDER BY g.name
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.OwnerUserID, &g.Status, &g.MemberCount, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) UpdateGroup(ctx context.Context, tenantID, groupID string, g Group) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE appraisal_groups
    SET name = $1,
        description = $2,
        status = $3,
        updated_at = now()
    WHERE tenant_id = $4 AND id = $5
  `, g.Name, g.Description, g.Status, tenantID, groupID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, tenantID, groupID string) error {
	cmd, err := s.DB.Exec(ctx, `
    DELETE FROM appraisal_groups
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, groupID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func (s *Store) GroupInUse(ctx context.Context, tenantID, groupID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM campaigns
    WHERE tenant_id = $1 AND group_id = $2
  `, tenantID, groupID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) AddMember(ctx context.Context, tenantID, groupID, employeeID, addedBy string) error {
	cmd, err := s.DB.Exec(ctx, `
    INSERT INTO appraisal_group_members (group_id, employee_id, added_by)
    SELECT g.id, $3, $4
    FROM appraisal_groups g
    WHERE g.tenant_id = $1 AND g.id = $2
    ON CONFLICT (group_id, employee_id) DO NOTHING
  `, tenantID, groupID, employeeID, nullIfEmpty(addedBy))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMemberExists
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, tenantID, groupID, employeeID string) error {
	_, err := s.DB.Exec(ctx, `
    DELETE FROM appraisal_group_members m
    USING appraisal_groups g
    WHERE m.group_id = g.id AND g.tenant_id = $1 AND g.id = $2 AND m.employee_id = $3
  `, tenantID, groupID, employeeID)
	return err
}

func (s *Store) ListMembers(ctx context.Context, tenantID, groupID string) ([]Member, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id,
           COALESCE(e.user_id::text, ''),
           e.first_name, e.last_name, e.email,
           COALESCE(e.manager_id::text, ''),
           e.status, e.start_date,
           COALESCE(m.added_by::text, ''), m.added_at
    FROM appraisal_group_members m
    JOIN appraisal_groups g ON g.id = m.group_id
    JOIN employees e ON e.id = m.employee_id
    WHERE g.tenant_id = $1 AND g.id = $2
    ORDER BY e.last_name, e.first_name
  `, tenantID, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(
			&m.EmployeeID, &m.UserID, &m.FirstName, &m.LastName, &m.Email,
			&m.ManagerID, &m.Status, &m.StartDate, &m.AddedBy, &m.AddedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
