package evaluation

import (
	"math"

	"appraise/internal/domain/group"
)

type ProgressItem struct {
	EmployeeID  string      `json:"employeeId"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Email       string      `json:"email"`
	Status      string      `json:"status"`
	IsCompleted bool        `json:"isCompleted"`
	Evaluation  *Evaluation `json:"evaluation,omitempty"`
}

type Progress struct {
	CampaignID           string         `json:"campaignId"`
	TotalEmployees       int            `json:"totalEmployees"`
	CompletedEvaluations int            `json:"completedEvaluations"`
	Percentage           int            `json:"percentage"`
	Employees            []ProgressItem `json:"employees"`
}

// BuildProgress projects the campaign state over the full group roster.
// Employees without an evaluation row report not_started; where duplicate
// rows exist the most recently created one wins. A zero-member roster yields
// zero counts without a division error.
func BuildProgress(campaignID string, members []group.Member, evals []Evaluation) Progress {
	latest := make(map[string]*Evaluation, len(evals))
	for i := range evals {
		ev := &evals[i]
		current, ok := latest[ev.EmployeeID]
		if !ok || ev.CreatedAt.After(current.CreatedAt) {
			latest[ev.EmployeeID] = ev
		}
	}

	out := Progress{
		CampaignID: campaignID,
		Employees:  make([]ProgressItem, 0, len(members)),
	}
	for _, m := range members {
		item := ProgressItem{
			EmployeeID: m.EmployeeID,
			FirstName:  m.FirstName,
			LastName:   m.LastName,
			Email:      m.Email,
			Status:     StatusNotStarted,
		}
		if ev, ok := latest[m.EmployeeID]; ok {
			item.Evaluation = ev
			item.Status = ev.Status
			item.IsCompleted = ev.Status == StatusCompleted
		}
		if item.IsCompleted {
			out.CompletedEvaluations++
		}
		out.Employees = append(out.Employees, item)
	}
	out.TotalEmployees = len(members)
	if out.TotalEmployees > 0 {
		out.Percentage = int(math.Round(float64(out.CompletedEvaluations) / float64(out.TotalEmployees) * 100))
	}
	return out
}
