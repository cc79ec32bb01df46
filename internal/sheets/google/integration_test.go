//go:build integration

package google

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
)

// Integration tests require a real spreadsheet shared with a service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_AppendRows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx := context.Background()
	exp, err := New(ctx, Options{
		SpreadsheetID:   spreadsheetID,
		TransactionsTab: os.Getenv("GOOGLE_SHEET_NAME"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}, log.Discard())
	if err != nil {
		t.Skipf("credentials unavailable: %v", err)
	}

	now := time.Now()
	ref, err := exp.AppendTransaction(ctx, "transaction.recorded", core.Transaction{
		ID:          "integration-" + now.Format("150405"),
		Type:        core.Expense,
		Amount:      core.Cents(1234),
		Category:    "other",
		Division:    core.Personal,
		Description: "Integration test row",
		AccountName: "Integration",
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}
	if !strings.Contains(ref, "!") {
		t.Errorf("expected an A1 range reference, got %q", ref)
	}
	t.Logf("appended %s", ref)
}
