package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/store"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		app     *config.Config
		want    Config
		wantErr string
	}{
		{
			name:    "nil config",
			app:     nil,
			wantErr: "app config is nil",
		},
		{
			name:    "unknown backend",
			app:     &config.Config{DataBackend: "sheets"},
			wantErr: `invalid backend type "sheets": must be one of memory, sqlite, postgres`,
		},
		{
			name:    "sqlite without path",
			app:     &config.Config{DataBackend: "sqlite", SQLiteDBPath: "  "},
			wantErr: "SQLite database path is required for sqlite backend",
		},
		{
			name: "type is case-insensitive",
			app:  &config.Config{DataBackend: " SQLite ", SQLiteDBPath: " /tmp/l.db "},
			want: Config{Type: SQLiteBackend, SQLiteDBPath: "/tmp/l.db"},
		},
		{
			name: "sqlite",
			app:  &config.Config{DataBackend: "sqlite", SQLiteDBPath: "/tmp/l.db", DatabaseURL: "ignored"},
			want: Config{Type: SQLiteBackend, SQLiteDBPath: "/tmp/l.db", DatabaseURL: "ignored"},
		},
		{
			name: "postgres",
			app:  &config.Config{DataBackend: "postgres", DatabaseURL: "postgres://localhost/ledger"},
			want: Config{Type: PostgresBackend, DatabaseURL: "postgres://localhost/ledger"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.app)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("FromAppConfig() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("FromAppConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite with path", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBackendType(t *testing.T) {
	if got := strings.Join(TypeNames(), ","); got != "memory,sqlite,postgres" {
		t.Errorf("TypeNames() = %s", got)
	}
	if MemoryBackend.Durable() || !SQLiteBackend.Durable() || !PostgresBackend.Durable() {
		t.Error("only sqlite and postgres are durable")
	}
}

func TestFactory_CreateBackend(t *testing.T) {
	f := NewFactory(log.Discard())
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatal(err)
		}
		defer res.Cleanup()
		exerciseStore(t, res.Store)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.db")
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		if err != nil {
			t.Fatal(err)
		}
		defer res.Cleanup()
		exerciseStore(t, res.Store)
	})

	t.Run("invalid config", func(t *testing.T) {
		if _, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func exerciseStore(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	acct := core.Account{ID: "a1", Name: "Wallet", Balance: core.Cents(100), OpeningBalance: core.Cents(100)}
	if err := st.Update(ctx, func(tx store.Tx) error { return tx.InsertAccount(ctx, acct) }); err != nil {
		t.Fatalf("insert account: %v", err)
	}
	err := st.View(ctx, func(tx store.ReadTx) error {
		got, err := tx.GetAccountByName(ctx, "Wallet")
		if err != nil {
			return err
		}
		if got.ID != "a1" || got.Balance.Cents != 100 {
			t.Errorf("unexpected account: %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
