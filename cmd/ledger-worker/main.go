package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	"ledger/internal/log"
	gsheet "ledger/internal/sheets/google"
	"ledger/internal/worker"
)

func main() {
	backfillSince := flag.String("backfill-since", "", "export transactions created on or after this date (YYYY-MM-DD) before consuming")
	flag.Parse()

	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	logger.Info("Starting ledger-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	loc, _ := cfg.Location()

	// The worker only reads the ledger; it must not republish what it reads.
	ledgerCfg := *cfg
	ledgerCfg.AMQPURL = ""
	app, err := cli.OpenLedger(context.Background(), &ledgerCfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()

	exporter, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		TransactionsTab: cfg.GoogleSheetName,
		TransfersTab:    cfg.GoogleTransfersSheetName,
		Location:        loc,
		WritesPerMinute: cfg.GoogleWritesPerMinute,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger.WithComponent(log.ComponentSheets))
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
		os.Exit(1)
	}
	defer exporter.Close()
	logger.Info("Google Sheets exporter initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"writes_per_minute", cfg.GoogleWritesPerMinute)

	exportWorker := worker.NewExportWorker(app.Ledger.Transactions, app.Ledger.Transfers, exporter,
		cfg.ExportBatchSize, logger.WithComponent(log.ComponentWorker))

	if *backfillSince != "" {
		since, err := time.ParseInLocation(time.DateOnly, *backfillSince, loc)
		if err != nil {
			logger.Error("Invalid -backfill-since date", log.FieldError, err)
			os.Exit(1)
		}
		n, err := exportWorker.Backfill(context.Background(), since)
		if err != nil {
			logger.Error("Backfill failed", log.FieldError, err, "rows", n)
			os.Exit(1)
		}
		logger.Info("Backfill complete", "rows", n)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := amqpClient.ConsumeEvents(ctx, exportWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
