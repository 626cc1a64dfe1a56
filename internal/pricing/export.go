package pricing

// ScheduleRow is one line of the payment schedule handed to the external
// PDF collaborator.
type ScheduleRow struct {
	MilestoneName string  `json:"milestone_name"`
	Amount        float64 `json:"amount"`
}

// ScopeRow is one line of the scope-of-work list handed to the external
// PDF collaborator.
type ScopeRow struct {
	Item        string `json:"item"`
	Description string `json:"description"`
}

// BuildPaymentSchedule resolves every milestone price into presentation rows,
// in milestone order.
func BuildPaymentSchedule(milestones []Milestone, cfg Config) []ScheduleRow {
	feeBase := FeeBase(milestones)
	rows := make([]ScheduleRow, 0, len(milestones))
	for _, m := range milestones {
		rows = append(rows, ScheduleRow{
			MilestoneName: m.Name,
			Amount:        ResolvePrice(m, feeBase, cfg),
		})
	}
	return rows
}

// BuildScopeRows converts scope items into presentation rows, in item order.
func BuildScopeRows(items []ScopeItem) []ScopeRow {
	rows := make([]ScopeRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, ScopeRow{Item: it.Title, Description: it.Description})
	}
	return rows
}
