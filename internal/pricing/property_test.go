package pricing

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestResolvePrice_FeeClampInvariant property-tests the fee pricing rule over
// random percent/min/max/base combinations: without an override the resolved
// price always lands inside [min, max].
func TestResolvePrice_FeeClampInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 500; trial++ {
		cfg := Config{
			InitialFeePercent: rng.Float64()*150 - 25, // may be negative: fallback path
			InitialFeeMin:     rng.Float64() * 2000,
			FinalFeePercent:   rng.Float64()*150 - 25,
			FinalFeeMin:       rng.Float64() * 2000,
		}
		if rng.Intn(2) == 1 {
			cfg.InitialFeeMax = cfg.InitialFeeMin + rng.Float64()*5000
			cfg.FinalFeeMax = cfg.FinalFeeMin + rng.Float64()*5000
		}
		feeBase := rng.Float64() * 100000

		for _, m := range []Milestone{{Type: MilestoneInitialFee}, {Type: MilestoneFinalInspection}} {
			price := ResolvePrice(m, feeBase, cfg)

			min, max := cfg.InitialFeeMin, cfg.InitialFeeMax
			if m.Type == MilestoneFinalInspection {
				min, max = cfg.FinalFeeMin, cfg.FinalFeeMax
			}
			assert.GreaterOrEqual(t, price, min,
				"trial %d %s: price %f below min %f (base %f)", trial, m.Type, price, min, feeBase)
			if max > 0 {
				assert.LessOrEqual(t, price, max,
					"trial %d %s: price %f above max %f (base %f)", trial, m.Type, price, max, feeBase)
			}
			assert.GreaterOrEqual(t, price, 0.0, "trial %d %s: negative price", trial, m.Type)
		}
	}
}

// TestResolvePrice_MarkupInvariant verifies that non-fee milestones without an
// override always resolve to cost * (1 + markup/100).
func TestResolvePrice_MarkupInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	types := []MilestoneType{MilestoneSubcontractor, MilestoneEquipmentMaterials, MilestoneAdditional, MilestoneCustom}

	for trial := 0; trial < 500; trial++ {
		cfg := Config{DefaultMarkupPercent: rng.Float64() * 100}
		m := Milestone{
			Type: types[rng.Intn(len(types))],
			Cost: rng.Float64() * 50000,
		}
		markup := cfg.DefaultMarkupPercent
		if rng.Intn(2) == 1 {
			own := rng.Float64() * 100
			m.MarkupPercent = &own
			markup = own
		}

		price := ResolvePrice(m, rng.Float64()*100000, cfg)
		want := m.Cost * (1 + markup/100)
		assert.InDelta(t, want, price, 1e-6, "trial %d: type %s cost %f markup %f", trial, m.Type, m.Cost, markup)
	}
}

// TestComputeTotals_SumInvariant verifies the customer total always equals
// the sum of independently resolved milestone prices, within a cent.
func TestComputeTotals_SumInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	types := []MilestoneType{
		MilestoneInitialFee, MilestoneFinalInspection, MilestoneSubcontractor,
		MilestoneEquipmentMaterials, MilestoneAdditional, MilestoneCustom,
	}

	for trial := 0; trial < 200; trial++ {
		cfg := Config{
			DefaultMarkupPercent: rng.Float64() * 100,
			InitialFeePercent:    rng.Float64() * 50,
			FinalFeePercent:      rng.Float64() * 100,
		}

		milestones := make([]Milestone, rng.Intn(10)+1)
		for i := range milestones {
			milestones[i] = Milestone{Type: types[rng.Intn(len(types))], Cost: rng.Float64() * 10000, Sequence: i}
			if rng.Intn(4) == 0 {
				override := rng.Float64() * 10000
				milestones[i].FlatPriceOverride = &override
			}
		}

		totals := ComputeTotals(milestones, cfg, rng.Float64()*50000)

		feeBase := FeeBase(milestones)
		sum := 0.0
		for _, m := range milestones {
			sum += ResolvePrice(m, feeBase, cfg)
		}
		assert.InDelta(t, sum, totals.CustomerTotal, 0.01, "trial %d", trial)
	}
}

// TestMoveMilestone_PermutationInvariant verifies a move never loses, adds or
// alters elements: the multiset of ids and costs is preserved.
func TestMoveMilestone_PermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(31))

	for trial := 0; trial < 200; trial++ {
		size := rng.Intn(12) + 1
		milestones := make([]Milestone, size)
		for i := range milestones {
			milestones[i] = Milestone{
				ID:       string(rune('a' + i)),
				Type:     MilestoneCustom,
				Cost:     math.Floor(rng.Float64() * 1000),
				Sequence: i,
			}
		}

		moved := MoveMilestone(milestones, rng.Intn(size), rng.Intn(size))

		assert.Len(t, moved, size, "trial %d", trial)

		costsByID := make(map[string]float64, size)
		for _, m := range milestones {
			costsByID[m.ID] = m.Cost
		}
		seen := make(map[string]bool, size)
		for i, m := range moved {
			assert.False(t, seen[m.ID], "trial %d: duplicate id %s", trial, m.ID)
			seen[m.ID] = true
			assert.Equal(t, costsByID[m.ID], m.Cost, "trial %d: cost changed for %s", trial, m.ID)
			assert.Equal(t, i, m.Sequence, "trial %d: sequence not renumbered", trial)
		}
	}
}
