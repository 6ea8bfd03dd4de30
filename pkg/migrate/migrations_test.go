package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/tablebook-backend/pkg/migrate"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	if err := migrate.Validate(migrate.Embedded()); err != nil {
		t.Fatalf("Validate embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(onDisk) != len(embedded) {
		t.Fatalf("expected %d embedded migrations, got %d", len(onDisk), len(embedded))
	}
}

func TestValidateRejectsDuplicateVersions(t *testing.T) {
	body := []byte("-- +goose Up\n-- +goose Down\n")
	fsys := fstest.MapFS{
		"20260101000000_first.sql":  {Data: body},
		"20260101000000_second.sql": {Data: body},
	}
	if err := migrate.Validate(fsys); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestValidateRequiresDownSection(t *testing.T) {
	fsys := fstest.MapFS{
		"20260101000000_first.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
	}
	if err := migrate.Validate(fsys); err == nil {
		t.Fatal("expected missing down marker error")
	}
}

func TestCatalogMigrationEnforcesInventoryConstraints(t *testing.T) {
	content := readMigration(t, "*_create_catalog.sql")
	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_event_tables_table ON event_tables (table_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_event_tables_event_table ON event_tables (event_id, table_id)",
		"CONSTRAINT chk_products_stock_non_negative CHECK (stock >= 0)",
		"CHECK (status IN ('AVAILABLE', 'BOOKED', 'UNAVAILABLE'))",
		"DROP TABLE IF EXISTS event_tables",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestTicketMigrationIsOnePerReservation(t *testing.T) {
	content := readMigration(t, "*_create_tickets.sql")
	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_tickets_reservation ON tickets (reservation_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_tickets_code ON tickets (ticket_code)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Ticket Scans!")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_ticket_scans.sql") {
		t.Fatalf("unexpected path %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
