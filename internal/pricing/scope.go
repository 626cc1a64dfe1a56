package pricing

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Fixed titles of the auto-generated scope-of-work categories. Any item whose
// title matches one of these is owned by the synthesizer; everything else is
// user-authored and never touched.
const (
	TitleSubcontractorWork  = "Subcontractor Work"
	TitleEquipmentMaterials = "Equipment & Materials"
	TitleAdditionalServices = "Additional Services"
)

// ScopeItem is one line of scope-of-work text on a document.
type ScopeItem struct {
	ID            string
	Title         string
	Description   string
	AutoGenerated bool
	Sequence      int
}

// SynthesizeScope rebuilds the auto-generated scope items from the current
// expenses and merges them into the existing list.
//
// For each enabled category with at least one contributing item: if an item
// with the matching fixed title already exists its description is replaced in
// place, otherwise a new item is appended. Empty categories synthesize
// nothing. User-authored items keep their position and content.
func SynthesizeScope(e Expenses, cfg Config, existing []ScopeItem) []ScopeItem {
	merged := make([]ScopeItem, len(existing))
	copy(merged, existing)

	sections := []struct {
		title   string
		enabled bool
		items   []ExpenseLineItem
	}{
		{TitleSubcontractorWork, cfg.IncludeSubcontractor, e.SubcontractorFees},
		{TitleEquipmentMaterials, cfg.IncludeEquipmentMaterials, append(append([]ExpenseLineItem{}, e.Equipment...), e.Materials...)},
		{TitleAdditionalServices, cfg.IncludeAdditional, e.Additional},
	}

	for _, section := range sections {
		if !section.enabled {
			continue
		}
		description := bulletList(section.items)
		if description == "" {
			continue
		}

		if i := indexByTitle(merged, section.title); i >= 0 {
			merged[i].Description = description
			merged[i].AutoGenerated = true
			continue
		}

		merged = append(merged, ScopeItem{
			ID:            uuid.NewString(),
			Title:         section.title,
			Description:   description,
			AutoGenerated: true,
		})
	}

	for i := range merged {
		merged[i].Sequence = i
	}
	return merged
}

func indexByTitle(items []ScopeItem, title string) int {
	for i, it := range items {
		if it.Title == title {
			return i
		}
	}
	return -1
}

func bulletList(items []ExpenseLineItem) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			continue
		}
		lines = append(lines, bulletLine(it))
	}
	return strings.Join(lines, "\n")
}

func bulletLine(it ExpenseLineItem) string {
	if it.Quantity <= 0 || it.Unit == "" {
		return "• " + it.Name
	}
	return "• " + it.Name + " (" + formatQuantity(it.Quantity) + " " + pluralUnit(it.Unit, it.Quantity) + ")"
}

func pluralUnit(unit string, quantity float64) string {
	if quantity == 1 || strings.HasSuffix(unit, "s") {
		return unit
	}
	return unit + "s"
}

func formatQuantity(quantity float64) string {
	return strconv.FormatFloat(quantity, 'f', -1, 64)
}
