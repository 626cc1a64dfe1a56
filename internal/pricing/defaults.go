package pricing

import "github.com/google/uuid"

// Default names used when a document is first opened for a project with no
// saved data.
const (
	defaultInitialFeeName      = "Initial Fee"
	defaultFinalInspectionName = "Final Inspection"
)

// DefaultMilestones synthesizes the initial milestone list for a document:
// an initial fee, one milestone per subcontractor fee item, one combined
// equipment & materials milestone, one milestone per additional expense, and
// a final inspection. Markup is left unset so the config default applies.
func DefaultMilestones(e Expenses, cfg Config) []Milestone {
	milestones := []Milestone{{
		ID:   uuid.NewString(),
		Name: defaultInitialFeeName,
		Type: MilestoneInitialFee,
	}}

	for _, it := range e.SubcontractorFees {
		id := it.ID
		milestones = append(milestones, Milestone{
			ID:                 uuid.NewString(),
			Name:               it.Name,
			Type:               MilestoneSubcontractor,
			Cost:               it.Cost(),
			SubcontractorFeeID: &id,
		})
	}

	if equipmentCost := sumCosts(e.Equipment) + sumCosts(e.Materials); equipmentCost > 0 {
		milestones = append(milestones, Milestone{
			ID:   uuid.NewString(),
			Name: TitleEquipmentMaterials,
			Type: MilestoneEquipmentMaterials,
			Cost: equipmentCost,
		})
	}

	for _, it := range e.Additional {
		id := it.ID
		milestones = append(milestones, Milestone{
			ID:                  uuid.NewString(),
			Name:                it.Name,
			Type:                MilestoneAdditional,
			Cost:                it.Cost(),
			AdditionalExpenseID: &id,
		})
	}

	milestones = append(milestones, Milestone{
		ID:   uuid.NewString(),
		Name: defaultFinalInspectionName,
		Type: MilestoneFinalInspection,
	})

	for i := range milestones {
		milestones[i].Sequence = i
	}
	return milestones
}

// DefaultScope synthesizes the initial scope-of-work list from scratch.
func DefaultScope(e Expenses, cfg Config) []ScopeItem {
	return SynthesizeScope(e, cfg, nil)
}
