package storage

import (
	"path/filepath"
	"testing"
)

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	for i := 0; i < 2; i++ {
		version, err := RunMigrations(path)
		if err != nil {
			t.Fatalf("run %d: RunMigrations() error = %v", i+1, err)
		}
		if version != 1 {
			t.Errorf("run %d: schema version = %d, want 1", i+1, version)
		}
	}
}
