package evaluation

import "context"

type StoreAPI interface {
	GetEvaluation(ctx context.Context, tenantID, evaluationID string) (*Evaluation, error)
	UpdateEvaluation(ctx context.Context, tenantID string, ev *Evaluation, fromStatus string) error
	EvaluationExists(ctx context.Context, tenantID, employeeID, campaignID string) (bool, error)
	CreateEvaluation(ctx context.Context, tenantID, employeeID, managerID, campaignID string) (bool, error)
	List(ctx context.Context, tenantID string, f Filter, limit, offset int) ([]Evaluation, error)
	ListByCampaign(ctx context.Context, tenantID, campaignID string) ([]Evaluation, error)
	QuestionCountForCampaign(ctx context.Context, campaignID string) (int, error)
}
