package seed

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Construvia/obras/internal/db"
	"github.com/Construvia/obras/internal/migrations"
)

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	cfg := Config{
		AdminEmail:    "admin@construvia.co",
		AdminPassword: "12345",
	}

	for i := 0; i < 10; i++ {
		stats, err := Run(database, cfg)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != 3 {
				t.Fatalf("expected 3 inserts in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM users WHERE email = ?`, "admin@construvia.co", 1)
	assertCount(t, database, `SELECT COUNT(*) FROM company_settings WHERE id = 1`, nil, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM projects WHERE name = ?`, "Proyecto Demo", 1)

	var hash string
	if err := database.QueryRow(`SELECT password_hash FROM users WHERE email = ?`, "admin@construvia.co").Scan(&hash); err != nil {
		t.Fatalf("query admin hash: %v", err)
	}
	if hash != hashPassword("12345") {
		t.Fatalf("expected admin hash to match password")
	}

	var markup float64
	if err := database.QueryRow(`SELECT default_markup_percent FROM company_settings WHERE id = 1`).Scan(&markup); err != nil {
		t.Fatalf("query default markup: %v", err)
	}
	if markup != 30 {
		t.Fatalf("expected default markup 30, got %v", markup)
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
