package pricing

import "github.com/google/uuid"

// moveItem removes the element at from and reinserts it at to. Every other
// element keeps its relative order. Out-of-range indexes return an unchanged
// copy.
func moveItem[T any](items []T, from, to int) []T {
	moved := make([]T, len(items))
	copy(moved, items)

	if from < 0 || from >= len(moved) || to < 0 || to >= len(moved) || from == to {
		return moved
	}

	item := moved[from]
	moved = append(moved[:from], moved[from+1:]...)

	tail := make([]T, 0, len(items))
	tail = append(tail, moved[:to]...)
	tail = append(tail, item)
	tail = append(tail, moved[to:]...)
	return tail
}

// MoveMilestone reorders one milestone and renumbers every sequence.
func MoveMilestone(milestones []Milestone, from, to int) []Milestone {
	moved := moveItem(milestones, from, to)
	for i := range moved {
		moved[i].Sequence = i
	}
	return moved
}

// MoveScopeItem reorders one scope item and renumbers every sequence.
func MoveScopeItem(items []ScopeItem, from, to int) []ScopeItem {
	moved := moveItem(items, from, to)
	for i := range moved {
		moved[i].Sequence = i
	}
	return moved
}

// ImportMilestone copies a milestone from another project's saved document.
// Name, type, cost and expense back-references are copied verbatim; the item
// gets a fresh local id and the importing document's default markup. The
// source flat override is dropped. No de-duplication happens: importing the
// same milestone twice yields two entries.
func ImportMilestone(src Milestone, defaultMarkup float64) Milestone {
	markup := defaultMarkup
	imported := Milestone{
		ID:            uuid.NewString(),
		Name:          src.Name,
		Type:          src.Type,
		Cost:          src.Cost,
		MarkupPercent: &markup,
	}
	if src.SubcontractorFeeID != nil {
		id := *src.SubcontractorFeeID
		imported.SubcontractorFeeID = &id
	}
	if src.AdditionalExpenseID != nil {
		id := *src.AdditionalExpenseID
		imported.AdditionalExpenseID = &id
	}
	return imported
}

// ImportScopeItem copies a scope item from another project's saved document
// with a fresh local id. Imported items are always user-owned from the
// importing document's point of view.
func ImportScopeItem(src ScopeItem) ScopeItem {
	return ScopeItem{
		ID:          uuid.NewString(),
		Title:       src.Title,
		Description: src.Description,
	}
}

// AppendMilestones appends imported milestones and renumbers sequences.
func AppendMilestones(existing, imported []Milestone) []Milestone {
	merged := make([]Milestone, 0, len(existing)+len(imported))
	merged = append(merged, existing...)
	merged = append(merged, imported...)
	for i := range merged {
		merged[i].Sequence = i
	}
	return merged
}

// AppendScopeItems appends imported scope items and renumbers sequences.
func AppendScopeItems(existing, imported []ScopeItem) []ScopeItem {
	merged := make([]ScopeItem, 0, len(existing)+len(imported))
	merged = append(merged, existing...)
	merged = append(merged, imported...)
	for i := range merged {
		merged[i].Sequence = i
	}
	return merged
}
