package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Construvia/obras/internal/pricing"
)

type settingsViewData struct {
	baseViewData
	Settings pricing.Config
}

func (s *server) handleSettingsForm(w http.ResponseWriter, r *http.Request) {
	settings, err := s.getCompanySettings()
	if err != nil {
		http.Error(w, "failed to load company settings", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, "admin_settings.html", settingsViewData{Settings: settings})
}

func (s *server) handleSettingsSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	settings, validationErr := parseSettingsForm(r)
	if validationErr != nil {
		w.WriteHeader(http.StatusBadRequest)
		s.renderTemplate(w, "admin_settings.html", settingsViewData{
			baseViewData: baseViewData{ErrorMessage: validationErr.Error()},
			Settings:     settings,
		})
		return
	}

	if err := s.updateCompanySettings(settings); err != nil {
		http.Error(w, "failed to save company settings", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, "admin_settings.html", settingsViewData{
		baseViewData: baseViewData{SuccessMessage: "Configuración guardada correctamente."},
		Settings:     settings,
	})
}

func parseSettingsForm(r *http.Request) (pricing.Config, error) {
	settings := pricing.Config{
		IncludeSubcontractor:      r.FormValue("include_subcontractor") == "1",
		IncludeEquipmentMaterials: r.FormValue("include_equipment_materials") == "1",
		IncludeAdditional:         r.FormValue("include_additional") == "1",
	}

	var err error
	if settings.DefaultMarkupPercent, err = parsePercent(r.FormValue("default_markup_percent"), "default_markup_percent"); err != nil {
		return settings, err
	}
	if settings.InitialFeePercent, err = parsePercent(r.FormValue("initial_fee_percent"), "initial_fee_percent"); err != nil {
		return settings, err
	}
	if settings.InitialFeeMin, err = parseNonNegativeFloat(r.FormValue("initial_fee_min"), "initial_fee_min"); err != nil {
		return settings, err
	}
	if settings.InitialFeeMax, err = parseNonNegativeFloat(r.FormValue("initial_fee_max"), "initial_fee_max"); err != nil {
		return settings, err
	}
	if settings.FinalFeePercent, err = parsePercent(r.FormValue("final_fee_percent"), "final_fee_percent"); err != nil {
		return settings, err
	}
	if settings.FinalFeeMin, err = parseNonNegativeFloat(r.FormValue("final_fee_min"), "final_fee_min"); err != nil {
		return settings, err
	}
	if settings.FinalFeeMax, err = parseNonNegativeFloat(r.FormValue("final_fee_max"), "final_fee_max"); err != nil {
		return settings, err
	}

	if settings.InitialFeeMax > 0 && settings.InitialFeeMax < settings.InitialFeeMin {
		return settings, fmt.Errorf("initial_fee_max debe ser mayor o igual a initial_fee_min")
	}
	if settings.FinalFeeMax > 0 && settings.FinalFeeMax < settings.FinalFeeMin {
		return settings, fmt.Errorf("final_fee_max debe ser mayor o igual a final_fee_min")
	}

	return settings, nil
}

func (s *server) ensureCompanySettings() error {
	_, err := s.db.Exec(`
		INSERT INTO company_settings (
			id,
			default_markup_percent,
			initial_fee_percent,
			initial_fee_min,
			initial_fee_max,
			final_fee_percent,
			final_fee_min,
			final_fee_max,
			include_subcontractor,
			include_equipment_materials,
			include_additional
		) VALUES (1, 0, 0, 0, 0, 0, 0, 0, TRUE, TRUE, TRUE)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("insert default company_settings: %w", err)
	}
	return nil
}

func (s *server) getCompanySettings() (pricing.Config, error) {
	if err := s.ensureCompanySettings(); err != nil {
		return pricing.Config{}, err
	}

	var settings pricing.Config
	err := s.db.QueryRow(`
		SELECT
			default_markup_percent,
			initial_fee_percent,
			initial_fee_min,
			initial_fee_max,
			final_fee_percent,
			final_fee_min,
			final_fee_max,
			include_subcontractor,
			include_equipment_materials,
			include_additional
		FROM company_settings
		WHERE id = 1
	`).Scan(
		&settings.DefaultMarkupPercent,
		&settings.InitialFeePercent,
		&settings.InitialFeeMin,
		&settings.InitialFeeMax,
		&settings.FinalFeePercent,
		&settings.FinalFeeMin,
		&settings.FinalFeeMax,
		&settings.IncludeSubcontractor,
		&settings.IncludeEquipmentMaterials,
		&settings.IncludeAdditional,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pricing.Config{}, fmt.Errorf("company_settings singleton not found")
		}
		return pricing.Config{}, fmt.Errorf("query company_settings: %w", err)
	}
	return settings, nil
}

func (s *server) updateCompanySettings(settings pricing.Config) error {
	if err := s.ensureCompanySettings(); err != nil {
		return err
	}

	_, err := s.db.Exec(`
		UPDATE company_settings
		SET
			default_markup_percent = ?,
			initial_fee_percent = ?,
			initial_fee_min = ?,
			initial_fee_max = ?,
			final_fee_percent = ?,
			final_fee_min = ?,
			final_fee_max = ?,
			include_subcontractor = ?,
			include_equipment_materials = ?,
			include_additional = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`,
		settings.DefaultMarkupPercent,
		settings.InitialFeePercent,
		settings.InitialFeeMin,
		settings.InitialFeeMax,
		settings.FinalFeePercent,
		settings.FinalFeeMin,
		settings.FinalFeeMax,
		settings.IncludeSubcontractor,
		settings.IncludeEquipmentMaterials,
		settings.IncludeAdditional,
	)
	if err != nil {
		return fmt.Errorf("update company_settings: %w", err)
	}

	return nil
}
