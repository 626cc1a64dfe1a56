package pricing

// Category identifies one of the four project expense buckets.
type Category string

const (
	CategorySubcontractorFee Category = "subcontractor_fee"
	CategoryEquipment        Category = "equipment"
	CategoryMaterial         Category = "material"
	CategoryAdditional       Category = "additional"
)

// ExpenseLineItem is one raw expense record produced by project expense
// tracking. It is read-only input: the engine never mutates it.
type ExpenseLineItem struct {
	ID       int64
	Name     string
	Quantity float64
	Unit     string
	Expected *float64
	Actual   *float64
}

// Cost returns the effective cost of the item: actual if present, else
// expected, else 0. Negative values are coerced to 0.
func (it ExpenseLineItem) Cost() float64 {
	var value float64
	switch {
	case it.Actual != nil:
		value = *it.Actual
	case it.Expected != nil:
		value = *it.Expected
	}
	if value < 0 {
		return 0
	}
	return value
}

// Expenses groups the four categorized expense collections of a project.
type Expenses struct {
	SubcontractorFees []ExpenseLineItem
	Equipment         []ExpenseLineItem
	Materials         []ExpenseLineItem
	Additional        []ExpenseLineItem
}

// CostSummary contains the aggregate cost figures of a project.
type CostSummary struct {
	Total      float64
	ByCategory map[Category]float64
}

// AggregateCosts sums every expense item into a total and a per-category
// breakdown. No category can contribute a negative amount.
func AggregateCosts(e Expenses) CostSummary {
	byCategory := map[Category]float64{
		CategorySubcontractorFee: sumCosts(e.SubcontractorFees),
		CategoryEquipment:        sumCosts(e.Equipment),
		CategoryMaterial:         sumCosts(e.Materials),
		CategoryAdditional:       sumCosts(e.Additional),
	}

	total := 0.0
	for _, v := range byCategory {
		total += v
	}

	return CostSummary{Total: total, ByCategory: byCategory}
}

func sumCosts(items []ExpenseLineItem) float64 {
	total := 0.0
	for _, it := range items {
		total += it.Cost()
	}
	return total
}
