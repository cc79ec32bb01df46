package main

import (
	"context"
	"fmt"
	"os"

	"ledger/internal/cli"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/trace"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "help" || os.Args[1] == "-h" || os.Args[1] == "--help" {
		usage(os.Stdout)
		return
	}

	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	// Records go to stderr so command output stays clean.
	logger := cli.SetupLogger(level, os.Stderr)

	cfg := cli.LoadAndValidateConfig(logger)
	ctx := trace.EnsureID(context.Background())
	app, err := cli.OpenLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err)
		os.Exit(1)
	}
	loc, _ := cfg.Location()

	e := &env{ledger: app.Ledger, out: os.Stdout, loc: loc}
	timer := trace.Start()
	err = run(ctx, e, os.Args[1:])
	fields := log.NewFields().WithOperation(os.Args[1]).WithError(err, core.Kind(err))
	fields[log.FieldDuration] = timer.Elapsed().Milliseconds()
	logger.Log(ctx, trace.Level(err, core.IsDomainError), "Command finished", fields.ToSlice()...)
	if cerr := app.Close(); cerr != nil {
		logger.Warn("Failed to close ledger", log.FieldError, cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy onto distinct process exit statuses.
func exitCode(err error) int {
	switch core.Kind(err) {
	case "":
		return 0
	case "invalid_input", "invalid_transfer":
		return 2
	case "not_found":
		return 3
	case "insufficient_funds":
		return 4
	case "edit_window_expired":
		return 5
	case "duplicate_name":
		return 6
	default:
		return 1
	}
}
