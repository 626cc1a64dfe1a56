package pricing

import "errors"

// ErrNothingToBill blocks document generation when the resolved customer
// total is not positive.
var ErrNothingToBill = errors.New("customer total must be greater than zero")

// Totals contains the roll-up values of a priced document.
type Totals struct {
	CustomerTotal          float64
	Profit                 float64
	ProfitMarginPercent    float64
	EffectiveMarkupPercent float64
}

// ComputeTotals resolves every milestone price and aggregates the customer
// total, profit against totalCost, margin and effective markup. It is a pure
// recompute over the current list: nothing is cached between calls.
func ComputeTotals(milestones []Milestone, cfg Config, totalCost float64) Totals {
	feeBase := FeeBase(milestones)

	customerTotal := 0.0
	for _, m := range milestones {
		customerTotal += ResolvePrice(m, feeBase, cfg)
	}

	t := Totals{
		CustomerTotal: customerTotal,
		Profit:        customerTotal - totalCost,
	}
	if customerTotal > 0 {
		t.ProfitMarginPercent = t.Profit / customerTotal * 100
	}
	if totalCost > 0 {
		t.EffectiveMarkupPercent = t.Profit / totalCost * 100
	}
	return t
}

// CanGenerate authorizes final document generation. It is the only
// user-facing validation the engine performs.
func CanGenerate(t Totals) error {
	if t.CustomerTotal <= 0 {
		return ErrNothingToBill
	}
	return nil
}
