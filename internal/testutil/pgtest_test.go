package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUpSection(t *testing.T) {
	full := "-- +goose Up\nCREATE TABLE t (id TEXT);\n\n-- +goose Down\nDROP TABLE IF EXISTS t;\n"
	got := upSection(full)
	if strings.Contains(got, "DROP TABLE") {
		t.Errorf("Down statements leaked into the Up section: %q", got)
	}
	if !strings.Contains(got, "CREATE TABLE") {
		t.Errorf("Up statements missing: %q", got)
	}

	upOnly := "-- +goose Up\nCREATE TABLE t (id TEXT);\n"
	if upSection(upOnly) != upOnly {
		t.Error("a migration without a Down section should pass through unchanged")
	}
}

func TestMigrations_CarryBothSections(t *testing.T) {
	dir := findMigrationsDir(t)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(data), marker) {
				t.Errorf("%s missing %q", e.Name(), marker)
			}
		}
	}
}
