package group

import (
	"context"
	"time"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, tenantID string, g Group) (string, error) {
	if g.Status == "" {
		g.Status = StatusActive
	}
	return s.store.CreateGroup(ctx, tenantID, g)
}

func (s *Service) Get(ctx context.Context, tenantID, groupID string) (*Group, error) {
	return s.store.GetGroup(ctx, tenantID, groupID)
}

func (s *Service) List(ctx context.Context, tenantID string, limit, offset int) ([]Group, error) {
	return s.store.ListGroups(ctx, tenantID, limit, offset)
}

func (s *Service) Update(ctx context.Context, tenantID, groupID string, g Group) error {
	return s.store.UpdateGroup(ctx, tenantID, groupID, g)
}

// Delete refuses to drop a group that campaigns still reference so past
// appraisal rounds keep their membership history.
func (s *Service) Delete(ctx context.Context, tenantID, groupID string) error {
	inUse, err := s.store.GroupInUse(ctx, tenantID, groupID)
	if err != nil {
		return err
	}
	if inUse {
		return ErrGroupInUse
	}
	return s.store.DeleteGroup(ctx, tenantID, groupID)
}

func (s *Service) AddMember(ctx context.Context, tenantID, groupID, employeeID, addedBy string) error {
	if _, err := s.store.GetGroup(ctx, tenantID, groupID); err != nil {
		return err
	}
	return s.store.AddMember(ctx, tenantID, groupID, employeeID, addedBy)
}

func (s *Service) RemoveMember(ctx context.Context, tenantID, groupID, employeeID string) error {
	if _, err := s.store.GetGroup(ctx, tenantID, groupID); err != nil {
		return err
	}
	return s.store.RemoveMember(ctx, tenantID, groupID, employeeID)
}

func (s *Service) ListMembers(ctx context.Context, tenantID, groupID string) ([]Member, error) {
	if _, err := s.store.GetGroup(ctx, tenantID, groupID); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, tenantID, groupID)
}

// EligibleMembers loads the group roster and applies campaign exclusion
// rules. It also returns the unfiltered roster size so callers can account
// for rule-excluded members as skips. An empty result is valid; callers
// decide whether that is worth a warning.
func (s *Service) EligibleMembers(ctx context.Context, tenantID, groupID string, rules ExclusionRules, now time.Time) ([]Member, int, error) {
	if _, err := s.store.GetGroup(ctx, tenantID, groupID); err != nil {
		return nil, 0, err
	}
	members, err := s.store.ListMembers(ctx, tenantID, groupID)
	if err != nil {
		return nil, 0, err
	}
	return FilterEligible(members, rules, now), len(members), nil
}
