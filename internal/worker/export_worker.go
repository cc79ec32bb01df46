package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/events"
	"ledger/internal/log"
	"ledger/internal/sheets"
	"ledger/internal/trace"
)

const defaultBatchSize = 50

// Readers the worker needs from the ledger. The services satisfy them.
type (
	TransactionReader interface {
		Get(ctx context.Context, id string) (core.Transaction, error)
		List(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
	}

	TransferReader interface {
		Get(ctx context.Context, transferID string) (core.Transfer, error)
	}
)

// ExportWorker appends the ledger rows named by change events to a sheet.
// Events carry ids only; the current row is read back from the ledger.
type ExportWorker struct {
	transactions TransactionReader
	transfers    TransferReader
	sheets       sheets.LedgerWriter
	batchSize    int
	log          *log.Logger
}

func NewExportWorker(transactions TransactionReader, transfers TransferReader, writer sheets.LedgerWriter, batchSize int, logger *log.Logger) *ExportWorker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = log.FromDefault(log.ComponentWorker)
	}
	return &ExportWorker{
		transactions: transactions,
		transfers:    transfers,
		sheets:       writer,
		batchSize:    batchSize,
		log:          logger,
	}
}

// HandleEvent exports the entity behind msg. Kinds without a sheet row are
// acknowledged and skipped. An entity missing from the ledger is skipped
// too, since redelivery cannot make it appear.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	timer := trace.Start()
	ctx = trace.EnsureID(ctx)
	kind := events.Kind(msg.Kind)
	fields := log.NewFields().WithOperation(log.OpExport)
	fields[log.FieldEventKind] = msg.Kind

	var (
		ref string
		err error
	)
	switch kind {
	case events.TransactionRecorded, events.TransactionUpdated:
		ref, err = w.exportTransaction(ctx, string(kind), msg.EntityID)
	case events.TransferCompleted:
		ref, err = w.exportTransfer(ctx, msg.EntityID)
	default:
		w.log.DebugContext(ctx, "Skipping event without sheet row", fields.ToSlice()...)
		return nil
	}

	if errors.Is(err, core.ErrNotFound) {
		w.log.WarnContext(ctx, "Exported entity no longer exists",
			fields.WithError(err, core.Kind(err)).ToSlice()...)
		return nil
	}
	if err != nil {
		return err
	}
	fields[log.FieldDuration] = timer.Elapsed().Milliseconds()
	w.log.InfoContext(ctx, "Exported ledger row", append(fields.ToSlice(), "row", ref)...)
	return nil
}

func (w *ExportWorker) exportTransaction(ctx context.Context, event, id string) (string, error) {
	t, err := w.transactions.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get transaction %s: %w", id, err)
	}
	ref, err := w.sheets.AppendTransaction(ctx, event, t)
	if err != nil {
		return "", fmt.Errorf("append transaction %s: %w", id, err)
	}
	return ref, nil
}

func (w *ExportWorker) exportTransfer(ctx context.Context, id string) (string, error) {
	tr, err := w.transfers.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get transfer %s: %w", id, err)
	}
	ref, err := w.sheets.AppendTransfer(ctx, tr)
	if err != nil {
		return "", fmt.Errorf("append transfer %s: %w", id, err)
	}
	return ref, nil
}

// Backfill exports every transaction created at or after since, oldest
// first, in batches. It is a recovery path for events lost while the
// worker was down and returns the number of rows written.
func (w *ExportWorker) Backfill(ctx context.Context, since time.Time) (int, error) {
	txns, err := w.transactions.List(ctx, core.TransactionFilter{From: since, Order: core.OldestFirst})
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	if len(txns) == 0 {
		return 0, nil
	}
	w.log.InfoContext(ctx, "Backfilling transactions", "count", len(txns), "batch_size", w.batchSize)

	written := 0
	for start := 0; start < len(txns); start += w.batchSize {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		end := min(start+w.batchSize, len(txns))
		for _, t := range txns[start:end] {
			if _, err := w.sheets.AppendTransaction(ctx, string(events.TransactionRecorded), t); err != nil {
				return written, fmt.Errorf("append transaction %s: %w", t.ID, err)
			}
			written++
		}
		w.log.DebugContext(ctx, "Backfill batch exported", "rows", written)
	}
	return written, nil
}
