package pricing

import (
	"errors"
	"testing"
)

// Reference scenario: $1,700 of milestone costs, 20% initial fee, 30% default
// markup, 80% final fee.
func referenceMilestones() []Milestone {
	return []Milestone{
		{Name: "Initial Fee", Type: MilestoneInitialFee, Sequence: 0},
		{Name: "Electrical", Type: MilestoneSubcontractor, Cost: 1000, Sequence: 1},
		{Name: "Equipment & Materials", Type: MilestoneEquipmentMaterials, Cost: 500, Sequence: 2},
		{Name: "Debris haul", Type: MilestoneAdditional, Cost: 200, Sequence: 3},
		{Name: "Final Inspection", Type: MilestoneFinalInspection, Sequence: 4},
	}
}

func TestComputeTotals_ReferenceScenario(t *testing.T) {
	totals := ComputeTotals(referenceMilestones(), testConfig(), 1700)

	// 340 + 1300 + 650 + 260 + 1360
	nearlyEqual(t, "customerTotal", totals.CustomerTotal, 3910)
	nearlyEqual(t, "profit", totals.Profit, 2210)
	nearlyEqual(t, "margin", totals.ProfitMarginPercent, 2210.0/3910.0*100)
	nearlyEqual(t, "effectiveMarkup", totals.EffectiveMarkupPercent, 130)
}

func TestComputeTotals_ZeroGuards(t *testing.T) {
	totals := ComputeTotals(nil, testConfig(), 0)

	nearlyEqual(t, "customerTotal", totals.CustomerTotal, 0)
	nearlyEqual(t, "margin", totals.ProfitMarginPercent, 0)
	nearlyEqual(t, "effectiveMarkup", totals.EffectiveMarkupPercent, 0)
}

func TestComputeTotals_RecomputesAfterMutation(t *testing.T) {
	milestones := referenceMilestones()
	before := ComputeTotals(milestones, testConfig(), 1700)

	milestones[1].FlatPriceOverride = ptr(1500)
	after := ComputeTotals(milestones, testConfig(), 1700)

	nearlyEqual(t, "after override", after.CustomerTotal, before.CustomerTotal+200)

	milestones[1].FlatPriceOverride = nil
	reverted := ComputeTotals(milestones, testConfig(), 1700)
	nearlyEqual(t, "after clearing", reverted.CustomerTotal, before.CustomerTotal)
}

func TestCanGenerate_BlocksNonPositiveTotal(t *testing.T) {
	if err := CanGenerate(Totals{CustomerTotal: 0}); !errors.Is(err, ErrNothingToBill) {
		t.Fatalf("expected ErrNothingToBill, got %v", err)
	}
	if err := CanGenerate(Totals{CustomerTotal: -10}); !errors.Is(err, ErrNothingToBill) {
		t.Fatalf("expected ErrNothingToBill, got %v", err)
	}
	if err := CanGenerate(Totals{CustomerTotal: 3910}); err != nil {
		t.Fatalf("positive total must be allowed, got %v", err)
	}
}

func TestBuildPaymentSchedule_MatchesResolvedPrices(t *testing.T) {
	rows := BuildPaymentSchedule(referenceMilestones(), testConfig())

	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	nearlyEqual(t, "initial fee row", rows[0].Amount, 340)
	nearlyEqual(t, "final inspection row", rows[4].Amount, 1360)
	if rows[1].MilestoneName != "Electrical" {
		t.Fatalf("unexpected row name %q", rows[1].MilestoneName)
	}
}
