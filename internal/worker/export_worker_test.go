package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/events"
	"ledger/internal/log"
	sheetsmem "ledger/internal/sheets/memory"
	"ledger/internal/services"
	"ledger/internal/store/memory"
)

type fixture struct {
	ledger   *services.Ledger
	recorder *sheetsmem.Recorder
	worker   *ExportWorker
	events   []events.Event
}

func newFixture(t *testing.T, batchSize int) *fixture {
	t.Helper()
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	l := services.New(memory.New(), services.Options{
		Clock:  func() time.Time { return now },
		Logger: log.Discard(),
	})
	t.Cleanup(func() { l.Close() })

	f := &fixture{ledger: l, recorder: sheetsmem.New(time.UTC)}
	f.worker = NewExportWorker(l.Transactions, l.Transfers, f.recorder, batchSize, log.Discard())
	l.Events().Subscribe(func(_ context.Context, e events.Event) error {
		f.events = append(f.events, e)
		return nil
	})
	return f
}

// deliver sends every captured event through the JSON wire form.
func (f *fixture) deliver(t *testing.T) {
	t.Helper()
	for _, e := range f.events {
		body, err := amqp.NewLedgerEventMessage(e).ToJSON()
		if err != nil {
			t.Fatal(err)
		}
		msg, err := amqp.LedgerEventMessageFromJSON(body)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.worker.HandleEvent(context.Background(), msg); err != nil {
			t.Fatalf("HandleEvent(%s): %v", e.Kind, err)
		}
	}
	f.events = nil
}

func TestExportWorker_HandleEvent(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	if _, err := f.ledger.Accounts.Create(ctx, "Bank", core.Cents(100000)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Accounts.Create(ctx, "Wallet", core.Cents(0)); err != nil {
		t.Fatal(err)
	}
	txn, err := f.ledger.Transactions.Record(ctx, core.TransactionInput{
		Type: core.Expense, Amount: core.Cents(1250), Category: "food", AccountRef: "Bank",
	})
	if err != nil {
		t.Fatal(err)
	}
	desc := "groceries"
	if _, err := f.ledger.Transactions.Update(ctx, txn.ID, core.TransactionPatch{Description: &desc}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Transfers.Transfer(ctx, "Bank", "Wallet", core.Cents(5000)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Budgets.Create(ctx, "food", core.Cents(20000), core.MonthlyPeriod); err != nil {
		t.Fatal(err)
	}

	f.deliver(t)

	rows := f.recorder.Transactions()
	if len(rows) != 2 {
		t.Fatalf("got %d transaction rows, want 2", len(rows))
	}
	if rows[0][2] != "transaction.recorded" || rows[1][2] != "transaction.updated" {
		t.Errorf("unexpected events: %v / %v", rows[0][2], rows[1][2])
	}
	if rows[1][7] != "Bank" || rows[1][8] != "12.50" || rows[1][9] != "groceries" {
		t.Errorf("updated row = %v", rows[1])
	}

	transfers := f.recorder.Transfers()
	if len(transfers) != 1 || transfers[0][2] != "Bank" || transfers[0][3] != "Wallet" || transfers[0][4] != "50.00" {
		t.Fatalf("transfer rows = %v", transfers)
	}
}

func TestExportWorker_MissingEntityIsAcknowledged(t *testing.T) {
	f := newFixture(t, 0)
	msg := &amqp.LedgerEventMessage{Kind: string(events.TransactionRecorded), EntityID: "gone"}

	if err := f.worker.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("missing entity should be skipped, got %v", err)
	}
	msg = &amqp.LedgerEventMessage{Kind: string(events.TransferCompleted), EntityID: "gone"}
	if err := f.worker.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("missing transfer should be skipped, got %v", err)
	}
	if len(f.recorder.Transactions())+len(f.recorder.Transfers()) != 0 {
		t.Fatal("nothing should be exported")
	}
}

func TestExportWorker_SinkFailureIsReturned(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	if _, err := f.ledger.Accounts.Create(ctx, "Bank", core.Cents(0)); err != nil {
		t.Fatal(err)
	}
	txn, err := f.ledger.Transactions.Record(ctx, core.TransactionInput{
		Type: core.Income, Amount: core.Cents(100), Category: "salary", AccountRef: "Bank",
	})
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("rate limited")
	f.recorder.FailNext(boom)
	msg := &amqp.LedgerEventMessage{Kind: string(events.TransactionRecorded), EntityID: txn.ID}
	if err := f.worker.HandleEvent(ctx, msg); !errors.Is(err, boom) {
		t.Fatalf("HandleEvent() error = %v, want sink failure for requeue", err)
	}
	if err := f.worker.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("redelivery should succeed: %v", err)
	}
}

func TestExportWorker_Backfill(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	if _, err := f.ledger.Accounts.Create(ctx, "Bank", core.Cents(100000)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := f.ledger.Transactions.Record(ctx, core.TransactionInput{
			Type: core.Expense, Amount: core.Cents(int64(100 * (i + 1))), Category: "fuel", AccountRef: "Bank",
		}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := f.worker.Backfill(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 || len(f.recorder.Transactions()) != 5 {
		t.Fatalf("backfilled %d rows, recorded %d", n, len(f.recorder.Transactions()))
	}

	f.recorder.FailNext(errors.New("quota"))
	n, err = f.worker.Backfill(ctx, time.Time{})
	if err == nil || n != 0 {
		t.Fatalf("Backfill() = %d, %v; want failure on first row", n, err)
	}

	n, err = f.worker.Backfill(ctx, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || n != 0 {
		t.Fatalf("future cutoff: %d, %v", n, err)
	}
}

func TestExportWorker_SkipsKindsWithoutRows(t *testing.T) {
	f := newFixture(t, 0)
	for _, k := range []events.Kind{events.AccountCreated, events.BudgetCreated, events.BudgetDeleted, "unknown.kind"} {
		if err := f.worker.HandleEvent(context.Background(), &amqp.LedgerEventMessage{Kind: string(k), EntityID: "x"}); err != nil {
			t.Errorf("HandleEvent(%s) = %v", k, err)
		}
	}
}
