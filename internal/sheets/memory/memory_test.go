package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger/internal/core"
)

func TestRecorderAppend(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	ref, err := r.AppendTransaction(ctx, "transaction.recorded", core.Transaction{ID: "t1", Amount: core.Cents(123)})
	if err != nil || ref != "mem:transactions:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, err = r.AppendTransfer(ctx, core.Transfer{ID: "tr1", Amount: core.Cents(5)})
	if err != nil || ref != "mem:transfers:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	rows := r.Transactions()
	if len(rows) != 1 || rows[0][3] != "t1" || rows[0][8] != "1.23" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if got := r.Transfers(); len(got) != 1 || got[0][4] != "0.05" {
		t.Fatalf("unexpected transfer rows: %v", got)
	}
}

func TestRecorderFailNext(t *testing.T) {
	r := New(time.UTC)
	boom := errors.New("quota exceeded")
	r.FailNext(boom)

	if _, err := r.AppendTransaction(context.Background(), "x", core.Transaction{ID: "t1"}); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if len(r.Transactions()) != 0 {
		t.Fatal("failed append must not record a row")
	}
	if _, err := r.AppendTransaction(context.Background(), "x", core.Transaction{ID: "t1"}); err != nil {
		t.Fatalf("failure should apply once: %v", err)
	}
}
