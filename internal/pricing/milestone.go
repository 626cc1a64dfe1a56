package pricing

// MilestoneType identifies how a payment milestone derives its price.
type MilestoneType string

const (
	MilestoneInitialFee         MilestoneType = "initial_fee"
	MilestoneFinalInspection    MilestoneType = "final_inspection"
	MilestoneSubcontractor      MilestoneType = "subcontractor"
	MilestoneEquipmentMaterials MilestoneType = "equipment_materials"
	MilestoneAdditional         MilestoneType = "additional"
	MilestoneCustom             MilestoneType = "custom"
)

// IsFee reports whether the type is priced as a percentage of the fee base
// instead of its own cost.
func (t MilestoneType) IsFee() bool {
	return t == MilestoneInitialFee || t == MilestoneFinalInspection
}

// Valid reports whether t is one of the known milestone types.
func (t MilestoneType) Valid() bool {
	switch t {
	case MilestoneInitialFee, MilestoneFinalInspection, MilestoneSubcontractor,
		MilestoneEquipmentMaterials, MilestoneAdditional, MilestoneCustom:
		return true
	}
	return false
}

// Milestone is one payment installment on a document.
//
// Cost and MarkupPercent only matter for non-fee types. A nil MarkupPercent
// means "use the config default". FlatPriceOverride, when set, short-circuits
// every computation; clearing it reverts the milestone to the computed price.
type Milestone struct {
	ID                  string
	Name                string
	Type                MilestoneType
	Cost                float64
	MarkupPercent       *float64
	FlatPriceOverride   *float64
	Sequence            int
	SubcontractorFeeID  *int64
	AdditionalExpenseID *int64
}

// Config is the pricing configuration snapshot read from company settings.
// A Min of <= 0 clamps at 0; a Max of <= 0 means unbounded.
type Config struct {
	DefaultMarkupPercent float64

	InitialFeePercent float64
	InitialFeeMin     float64
	InitialFeeMax     float64

	FinalFeePercent float64
	FinalFeeMin     float64
	FinalFeeMax     float64

	IncludeSubcontractor      bool
	IncludeEquipmentMaterials bool
	IncludeAdditional         bool
}

// Fallback percents used when the configured fee percent is absent or not
// positive. Misconfigured settings must degrade, never fail.
const (
	fallbackInitialFeePercent = 20.0
	fallbackFinalFeePercent   = 80.0
)

// FeeBase returns the sum of Cost over every non-fee milestone. This is the
// percentage base for the two fee milestones. Note it is the milestone-level
// cost sum, which can diverge from the raw expense total when milestones do
// not cover every expense item.
func FeeBase(milestones []Milestone) float64 {
	base := 0.0
	for _, m := range milestones {
		if m.Type.IsFee() {
			continue
		}
		if m.Cost > 0 {
			base += m.Cost
		}
	}
	return base
}

// ResolvePrice computes the customer-facing price of one milestone.
//
// Precedence: flat override first (any type), then percentage-of-base with
// min/max clamp for fee types, then cost plus markup for everything else.
func ResolvePrice(m Milestone, feeBase float64, cfg Config) float64 {
	if m.FlatPriceOverride != nil {
		return *m.FlatPriceOverride
	}

	switch m.Type {
	case MilestoneInitialFee:
		percent := feePercentOr(cfg.InitialFeePercent, fallbackInitialFeePercent)
		return clampFee(feeBase*percent/100, cfg.InitialFeeMin, cfg.InitialFeeMax)
	case MilestoneFinalInspection:
		percent := feePercentOr(cfg.FinalFeePercent, fallbackFinalFeePercent)
		return clampFee(feeBase*percent/100, cfg.FinalFeeMin, cfg.FinalFeeMax)
	case MilestoneSubcontractor, MilestoneEquipmentMaterials, MilestoneAdditional, MilestoneCustom:
		markup := cfg.DefaultMarkupPercent
		if m.MarkupPercent != nil {
			markup = *m.MarkupPercent
		}
		cost := m.Cost
		if cost < 0 {
			cost = 0
		}
		return cost * (1 + markup/100)
	}

	return 0
}

func feePercentOr(configured, fallback float64) float64 {
	if configured > 0 {
		return configured
	}
	return fallback
}

func clampFee(amount, min, max float64) float64 {
	if min < 0 {
		min = 0
	}
	if amount < min {
		amount = min
	}
	if max > 0 && amount > max {
		amount = max
	}
	return amount
}
