package reports

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"appraise/internal/domain/campaign"
	"appraise/internal/domain/evaluation"
)

// CampaignSource is the slice of the campaign service the reports need;
// progress is computed over the full group roster there.
type CampaignSource interface {
	Get(ctx context.Context, tenantID, campaignID string) (*campaign.Campaign, error)
	Progress(ctx context.Context, tenantID, campaignID string) (*evaluation.Progress, error)
}

type Service struct {
	Store     *Store
	Campaigns CampaignSource
}

func NewService(store *Store, campaigns CampaignSource) *Service {
	return &Service{Store: store, Campaigns: campaigns}
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	return s.Store.EmployeeIDByUserID(ctx, tenantID, userID)
}

// EmployeeDashboardFor reports the caller's own appraisal workload. Users
// without an employee record get zeros rather than an error.
func (s *Service) EmployeeDashboardFor(ctx context.Context, tenantID, userID string) (map[string]any, error) {
	employeeID, err := s.Store.EmployeeIDByUserID(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EmployeeDashboard(0, 0, 0), nil
		}
		return nil, err
	}
	pendingSelf, err := s.Store.PendingSelf(ctx, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	awaitingManager, err := s.Store.AwaitingManager(ctx, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	completed, err := s.Store.CompletedForEmployee(ctx, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	return EmployeeDashboard(pendingSelf, awaitingManager, completed), nil
}

func (s *Service) ManagerDashboardFor(ctx context.Context, tenantID, userID string) (map[string]any, error) {
	managerEmployeeID, err := s.Store.EmployeeIDByUserID(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ManagerDashboard(0, 0, 0), nil
		}
		return nil, err
	}
	reviewsWaiting, err := s.Store.ReviewsWaiting(ctx, tenantID, managerEmployeeID)
	if err != nil {
		return nil, err
	}
	toFinalize, err := s.Store.FinalizeWaiting(ctx, tenantID, managerEmployeeID)
	if err != nil {
		return nil, err
	}
	teamEvaluations, err := s.Store.TeamEvaluations(ctx, tenantID, managerEmployeeID)
	if err != nil {
		return nil, err
	}
	return ManagerDashboard(reviewsWaiting, toFinalize, teamEvaluations), nil
}

func (s *Service) HRDashboardFor(ctx context.Context, tenantID string, now time.Time) (map[string]any, error) {
	activeCampaigns, err := s.Store.ActiveCampaigns(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	openEvaluations, err := s.Store.OpenEvaluations(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	overdueTasks, err := s.Store.OverdueTasks(ctx, tenantID, now)
	if err != nil {
		return nil, err
	}
	return HRDashboard(activeCampaigns, openEvaluations, overdueTasks), nil
}

func (s *Service) JobRuns(ctx context.Context, tenantID string, filter JobRunFilter, limit, offset int) ([]JobRun, error) {
	return s.Store.ListJobRuns(ctx, tenantID, filter, limit, offset)
}

func (s *Service) CountJobRuns(ctx context.Context, tenantID string, filter JobRunFilter) (int, error) {
	return s.Store.CountJobRuns(ctx, tenantID, filter)
}

func (s *Service) JobRunByID(ctx context.Context, tenantID, runID string) (JobRun, error) {
	return s.Store.JobRunByID(ctx, tenantID, runID)
}
