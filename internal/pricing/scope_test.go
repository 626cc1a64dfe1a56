package pricing

import (
	"strings"
	"testing"
)

func TestSynthesizeScope_BulletFormatting(t *testing.T) {
	expenses := Expenses{
		Equipment: []ExpenseLineItem{
			{Name: "Excavator", Quantity: 2, Unit: "day", Expected: ptr(400)},
			{Name: "Scaffolding", Quantity: 1, Unit: "set", Expected: ptr(100)},
		},
		Materials: []ExpenseLineItem{
			{Name: "Concrete mix", Expected: ptr(200)},
		},
	}

	items := SynthesizeScope(expenses, testConfig(), nil)

	if len(items) != 1 {
		t.Fatalf("expected 1 scope item, got %d", len(items))
	}
	if items[0].Title != TitleEquipmentMaterials {
		t.Fatalf("unexpected title %q", items[0].Title)
	}

	want := "• Excavator (2 days)\n• Scaffolding (1 set)\n• Concrete mix"
	if items[0].Description != want {
		t.Fatalf("unexpected description:\n%s\nwant:\n%s", items[0].Description, want)
	}
	if !items[0].AutoGenerated {
		t.Fatal("synthesized item must be auto-generated")
	}
}

func TestSynthesizeScope_UnitAlreadyPluralIsKept(t *testing.T) {
	expenses := Expenses{
		Equipment: []ExpenseLineItem{{Name: "Ladders", Quantity: 3, Unit: "units", Expected: ptr(60)}},
	}

	items := SynthesizeScope(expenses, testConfig(), nil)

	if !strings.Contains(items[0].Description, "(3 units)") {
		t.Fatalf("unit must not be double-pluralized: %q", items[0].Description)
	}
}

func TestSynthesizeScope_EmptyCategoryProducesNoItem(t *testing.T) {
	expenses := Expenses{
		SubcontractorFees: []ExpenseLineItem{{Name: "Electrical", Expected: ptr(1000)}},
	}

	items := SynthesizeScope(expenses, testConfig(), nil)

	if len(items) != 1 {
		t.Fatalf("expected only the subcontractor item, got %d", len(items))
	}
	if items[0].Title != TitleSubcontractorWork {
		t.Fatalf("unexpected title %q", items[0].Title)
	}
}

func TestSynthesizeScope_DisabledCategoryIsSkipped(t *testing.T) {
	cfg := testConfig()
	cfg.IncludeSubcontractor = false

	expenses := Expenses{
		SubcontractorFees: []ExpenseLineItem{{Name: "Electrical", Expected: ptr(1000)}},
	}

	if items := SynthesizeScope(expenses, cfg, nil); len(items) != 0 {
		t.Fatalf("disabled category must synthesize nothing, got %d items", len(items))
	}
}

func TestSynthesizeScope_ReplacesExistingAutoItemInPlace(t *testing.T) {
	existing := []ScopeItem{
		{ID: "a", Title: "Cleanup", Description: "Final site cleanup", Sequence: 0},
		{ID: "b", Title: TitleSubcontractorWork, Description: "• old text", AutoGenerated: true, Sequence: 1},
		{ID: "c", Title: "Warranty", Description: "1 year workmanship", Sequence: 2},
	}
	expenses := Expenses{
		SubcontractorFees: []ExpenseLineItem{{Name: "Plumbing rough-in", Expected: ptr(900)}},
	}

	items := SynthesizeScope(expenses, testConfig(), existing)

	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[1].ID != "b" || items[1].Description != "• Plumbing rough-in" {
		t.Fatalf("auto item must be replaced in place: %+v", items[1])
	}
	if items[0].Description != "Final site cleanup" || items[2].Description != "1 year workmanship" {
		t.Fatal("manual items must not be touched")
	}
	if items[0].Sequence != 0 || items[1].Sequence != 1 || items[2].Sequence != 2 {
		t.Fatalf("sequences must stay contiguous: %+v", items)
	}
}

func TestSynthesizeScope_AppendsNewCategoryAtEnd(t *testing.T) {
	existing := []ScopeItem{
		{ID: "a", Title: "Cleanup", Description: "Final site cleanup", Sequence: 0},
	}
	expenses := Expenses{
		Additional: []ExpenseLineItem{{Name: "Permit filing", Expected: ptr(150)}},
	}

	items := SynthesizeScope(expenses, testConfig(), existing)

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[1].Title != TitleAdditionalServices || items[1].Sequence != 1 {
		t.Fatalf("synthesized item must be appended last: %+v", items[1])
	}
	if items[1].ID == "" {
		t.Fatal("appended item must get a fresh id")
	}
}

func TestSynthesizeScope_ItemsWithoutNameAreSkipped(t *testing.T) {
	expenses := Expenses{
		Additional: []ExpenseLineItem{{Name: "  ", Expected: ptr(10)}},
	}

	if items := SynthesizeScope(expenses, testConfig(), nil); len(items) != 0 {
		t.Fatalf("nameless items must not produce bullets, got %+v", items)
	}
}
