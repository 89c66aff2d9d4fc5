package group

import "time"

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerUserID string    `json:"ownerUserId"`
	Status      string    `json:"status"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Member is one group assignment joined with the employee fields the
// eligibility filter and the evaluation generator need.
type Member struct {
	EmployeeID string     `json:"employeeId"`
	UserID     string     `json:"userId"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Email      string     `json:"email"`
	ManagerID  string     `json:"managerId"`
	Status     string     `json:"status"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	AddedBy    string     `json:"addedBy"`
	AddedAt    time.Time  `json:"addedAt"`
}

type ExclusionRules struct {
	ExcludedEmployeeIDs       []string
	ExcludeTenureUnderOneYear bool
}
