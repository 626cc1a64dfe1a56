package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func validSettingsForm() url.Values {
	return url.Values{
		"default_markup_percent":      {"30"},
		"initial_fee_percent":         {"20"},
		"initial_fee_min":             {"500"},
		"initial_fee_max":             {"0"},
		"final_fee_percent":           {"80"},
		"final_fee_min":               {"0"},
		"final_fee_max":               {"0"},
		"include_subcontractor":       {"1"},
		"include_equipment_materials": {"1"},
	}
}

func TestParseSettingsFormReadsValuesAndCheckboxes(t *testing.T) {
	settings, err := parseSettingsForm(newSettingsFormRequest(t, validSettingsForm()))
	if err != nil {
		t.Fatalf("parseSettingsForm returned error: %v", err)
	}

	if settings.DefaultMarkupPercent != 30 || settings.InitialFeePercent != 20 || settings.FinalFeePercent != 80 {
		t.Fatalf("unexpected percents: %+v", settings)
	}
	if settings.InitialFeeMin != 500 {
		t.Fatalf("expected initial_fee_min 500, got %v", settings.InitialFeeMin)
	}
	if !settings.IncludeSubcontractor || !settings.IncludeEquipmentMaterials {
		t.Fatalf("expected checked sections included: %+v", settings)
	}
	if settings.IncludeAdditional {
		t.Fatal("expected unchecked include_additional to be false")
	}
}

func TestParseSettingsFormRejectsBadInput(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(url.Values)
		fragment string
	}{
		{"non numeric percent", func(f url.Values) { f.Set("default_markup_percent", "treinta") }, "numérico"},
		{"percent above 100", func(f url.Values) { f.Set("initial_fee_percent", "101") }, "entre 0 y 100"},
		{"negative min", func(f url.Values) { f.Set("final_fee_min", "-1") }, "mayor o igual a 0"},
		{"max below min", func(f url.Values) {
			f.Set("initial_fee_min", "500")
			f.Set("initial_fee_max", "100")
		}, "initial_fee_max"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := validSettingsForm()
			tc.mutate(form)

			_, err := parseSettingsForm(newSettingsFormRequest(t, form))
			if err == nil || !strings.Contains(err.Error(), tc.fragment) {
				t.Fatalf("expected error containing %q, got %v", tc.fragment, err)
			}
		})
	}
}

func TestCompanySettingsSingletonRoundTrip(t *testing.T) {
	db := newDocumentsTestDB(t)
	srv := &server{db: db, logger: zap.NewNop()}

	// First read creates the singleton with zero values.
	initial, err := srv.getCompanySettings()
	if err != nil {
		t.Fatalf("getCompanySettings returned error: %v", err)
	}
	if initial.DefaultMarkupPercent != 0 || !initial.IncludeSubcontractor {
		t.Fatalf("unexpected initial settings: %+v", initial)
	}

	updated := initial
	updated.DefaultMarkupPercent = 35
	updated.InitialFeePercent = 15
	updated.FinalFeeMax = 10000
	updated.IncludeAdditional = false
	if err := srv.updateCompanySettings(updated); err != nil {
		t.Fatalf("updateCompanySettings returned error: %v", err)
	}

	reloaded, err := srv.getCompanySettings()
	if err != nil {
		t.Fatalf("getCompanySettings after update returned error: %v", err)
	}
	if reloaded.DefaultMarkupPercent != 35 || reloaded.InitialFeePercent != 15 || reloaded.FinalFeeMax != 10000 {
		t.Fatalf("settings did not round-trip: %+v", reloaded)
	}
	if reloaded.IncludeAdditional {
		t.Fatal("expected include_additional to persist as false")
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM company_settings`).Scan(&count); err != nil {
		t.Fatalf("count settings rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single settings row, got %d", count)
	}
}

func newSettingsFormRequest(t *testing.T, form url.Values) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/admin/settings", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := req.ParseForm(); err != nil {
		t.Fatalf("failed to parse form: %v", err)
	}
	return req
}
