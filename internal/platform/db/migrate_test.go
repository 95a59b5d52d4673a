package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test file %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadMigrations(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_history.sql": "-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;\n",
		"002_index.sql":   "CREATE INDEX i ON a (id);",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}

	first := migrations[0]
	if first.Version != 1 || first.Name != "001_history.sql" {
		t.Errorf("unexpected first migration %+v", first)
	}
	if first.Up != "CREATE TABLE a (id INT);" {
		t.Errorf("unexpected up SQL %q", first.Up)
	}
	if first.Down != "DROP TABLE a;" {
		t.Errorf("unexpected down SQL %q", first.Down)
	}
	if migrations[1].Up != "CREATE INDEX i ON a (id);" || migrations[1].Down != "" {
		t.Errorf("unexpected second migration %+v", migrations[1])
	}
}

func TestLoadMigrations_SortOrder(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"010_tables.sql": "SELECT 10;",
		"002_second.sql": "SELECT 2;",
		"001_first.sql":  "SELECT 1;",
		"005_middle.sql": "SELECT 5;",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	expectedVersions := []int{1, 2, 5, 10}
	if len(migrations) != len(expectedVersions) {
		t.Fatalf("expected %d migrations, got %d", len(expectedVersions), len(migrations))
	}
	for i, expected := range expectedVersions {
		if migrations[i].Version != expected {
			t.Errorf("migration[%d]: expected version %d, got %d", i, expected, migrations[i].Version)
		}
	}
}

func TestLoadMigrations_InvalidFilename(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_valid.sql":      "SELECT 1;",
		"readme.sql":         "-- this has no version prefix",
		"notes.txt":          "not a sql file",
		"abc_invalid.sql":    "-- non-numeric prefix",
		"002_also_valid.sql": "SELECT 2;",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 valid migrations, got %d", len(migrations))
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_a.sql": "SELECT 1;",
		"1_b.sql":   "SELECT 1;",
	})
	if _, err := NewMigrator(nil, dir).LoadMigrations(); err == nil {
		t.Error("expected error for duplicate version")
	}
}

func TestLoadMigrations_NonExistentDir(t *testing.T) {
	if _, err := NewMigrator(nil, "/nonexistent/path/that/does/not/exist").LoadMigrations(); err == nil {
		t.Error("expected error for non-existent directory")
	}
}

func TestLoadMigrations_ShippedHistory(t *testing.T) {
	migrations, err := NewMigrator(nil, filepath.Join("..", "..", "..", "migrations")).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) == 0 || migrations[0].Down == "" {
		t.Errorf("expected the history migration with a down section, got %+v", migrations)
	}
}

func sampleMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "001_a.sql", Up: "A", Down: "undo A"},
		{Version: 2, Name: "002_b.sql", Up: "B", Down: "undo B"},
		{Version: 3, Name: "003_c.sql", Up: "C"},
	}
}

func TestPendingAndStatus(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	applied := map[int]time.Time{1: at}

	p := pending(sampleMigrations(), applied)
	if len(p) != 2 || p[0].Version != 2 || p[1].Version != 3 {
		t.Errorf("unexpected pending %+v", p)
	}

	statuses := statusOf(sampleMigrations(), applied)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Applied || statuses[0].AppliedAt == nil || !statuses[0].AppliedAt.Equal(at) {
		t.Errorf("expected migration 001 applied at %s, got %+v", at, statuses[0])
	}
	if statuses[1].Applied || statuses[1].AppliedAt != nil {
		t.Errorf("expected migration 002 pending, got %+v", statuses[1])
	}
}

func TestRollbackPlan(t *testing.T) {
	now := time.Now()

	plan, err := rollbackPlan(sampleMigrations(), map[int]time.Time{1: now, 2: now}, 1)
	if err != nil {
		t.Fatalf("rollbackPlan() error: %v", err)
	}
	if len(plan) != 1 || plan[0].Version != 2 {
		t.Errorf("expected newest applied first, got %+v", plan)
	}

	plan, _ = rollbackPlan(sampleMigrations(), map[int]time.Time{1: now, 2: now}, 5)
	if len(plan) != 2 || plan[1].Version != 1 {
		t.Errorf("expected both applied migrations, got %+v", plan)
	}

	if _, err := rollbackPlan(sampleMigrations(), map[int]time.Time{3: now}, 1); err == nil {
		t.Error("expected error for migration without down section")
	}
	if _, err := rollbackPlan(sampleMigrations(), nil, 0); err == nil {
		t.Error("expected error for zero steps")
	}
}
