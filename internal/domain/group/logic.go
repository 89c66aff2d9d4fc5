package group

import "time"

// FilterEligible reduces a member list to the employees an appraisal round
// should cover: active employees, minus explicit exclusions, minus employees
// with under a year of tenure when the campaign asks for that. Members
// without a recorded start date are kept since their tenure cannot be
// proven short.
func FilterEligible(members []Member, rules ExclusionRules, now time.Time) []Member {
	excluded := make(map[string]struct{}, len(rules.ExcludedEmployeeIDs))
	for _, id := range rules.ExcludedEmployeeIDs {
		excluded[id] = struct{}{}
	}
	oneYearAgo := now.AddDate(-1, 0, 0)

	out := make([]Member, 0, len(members))
	for _, m := range members {
		if m.Status != "active" {
			continue
		}
		if _, skip := excluded[m.EmployeeID]; skip {
			continue
		}
		if rules.ExcludeTenureUnderOneYear && m.StartDate != nil && m.StartDate.After(oneYearAgo) {
			continue
		}
		out = append(out, m)
	}
	return out
}
