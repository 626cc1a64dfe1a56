package seed

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// Default pricing settings for a fresh installation.
const (
	defaultMarkupPercent   = 30
	defaultInitialFeePct   = 20
	defaultFinalFeePct     = 80
	defaultDemoProjectName = "Proyecto Demo"
	defaultDemoClientName  = "Cliente Demo"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := seedAdmin(tx, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureCompanySettings(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureDemoProject(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func seedAdmin(tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, hashPassword(password)); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

// hashPassword must stay in sync with the credential check in cmd/server.
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func ensureCompanySettings(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM company_settings WHERE id = 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check company settings existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
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
		)
		VALUES (1, ?, ?, 0, 0, ?, 0, 0, TRUE, TRUE, TRUE)
	`, defaultMarkupPercent, defaultInitialFeePct, defaultFinalFeePct); err != nil {
		return fmt.Errorf("insert company settings singleton: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureDemoProject(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM projects WHERE name = ? LIMIT 1)`, defaultDemoProjectName).Scan(&exists); err != nil {
		return fmt.Errorf("check demo project existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO projects (name, client, notes)
		VALUES (?, ?, '')
	`, defaultDemoProjectName, defaultDemoClientName); err != nil {
		return fmt.Errorf("insert demo project: %w", err)
	}
	stats.Inserts++
	return nil
}
