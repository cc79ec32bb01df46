package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/ratelimit"
	ports "ledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	valueInputOption = "USER_ENTERED"
	insertDataOption = "INSERT_ROWS"
)

// Options configures an Exporter. Sheet names without a leading year are
// prefixed with the current year, so each year's rows land in their own tab.
type Options struct {
	SpreadsheetID   string
	TransactionsTab string
	TransfersTab    string
	Location        *time.Location
	// WritesPerMinute throttles appends; zero disables throttling.
	WritesPerMinute int

	// Service account credentials: inline JSON wins over a file path.
	CredentialsJSON string
	CredentialsFile string
}

// Exporter appends ledger rows to a Google spreadsheet.
type Exporter struct {
	svc             *gsheet.Service
	spreadsheetID   string
	transactionsTab string
	transfersTab    string
	loc             *time.Location
	limiter         *ratelimit.Limiter
	log             *log.Logger
}

// Ensure interface conformance
var _ ports.LedgerWriter = (*Exporter)(nil)

// New creates an Exporter authenticated with service account credentials.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Exporter, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentials(opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newExporter(svc, opts, time.Now().Year(), logger), nil
}

func newExporter(svc *gsheet.Service, opts Options, year int, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.FromDefault(log.ComponentSheets)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	txTab := strings.TrimSpace(opts.TransactionsTab)
	if txTab == "" {
		txTab = "Transactions"
	}
	trTab := strings.TrimSpace(opts.TransfersTab)
	if trTab == "" {
		trTab = "Transfers"
	}
	e := &Exporter{
		svc:             svc,
		spreadsheetID:   strings.TrimSpace(opts.SpreadsheetID),
		transactionsTab: yearPrefixedName(txTab, year),
		transfersTab:    yearPrefixedName(trTab, year),
		loc:             loc,
		log:             logger,
	}
	if opts.WritesPerMinute > 0 {
		e.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.WritesPerMinute})
	}
	return e
}

// Close stops the write throttle.
func (e *Exporter) Close() {
	if e.limiter != nil {
		e.limiter.Stop()
	}
}

// credentials resolves the service account key from options, falling back
// to GOOGLE_APPLICATION_CREDENTIALS.
func credentials(opts Options) ([]byte, error) {
	if js := strings.TrimSpace(opts.CredentialsJSON); js != "" {
		return []byte(js), nil
	}
	path := strings.TrimSpace(opts.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func (e *Exporter) AppendTransaction(ctx context.Context, event string, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", fmt.Errorf("%w: transaction without id", core.ErrInvalidInput)
	}
	return e.append(ctx, e.transactionsTab, ports.TransactionRow(event, t, e.loc))
}

func (e *Exporter) AppendTransfer(ctx context.Context, tr core.Transfer) (string, error) {
	if tr.ID == "" {
		return "", fmt.Errorf("%w: transfer without id", core.ErrInvalidInput)
	}
	return e.append(ctx, e.transfersTab, ports.TransferRow(tr, e.loc))
}

func (e *Exporter) append(ctx context.Context, tab string, row []any) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if e.limiter != nil {
		if !e.limiter.Allow(e.spreadsheetID) {
			e.log.DebugContext(ctx, "Sheets write quota reached, waiting", "tab", tab)
			if err := e.limiter.Wait(ctx, e.spreadsheetID); err != nil {
				return "", fmt.Errorf("wait for sheets quota: %w", err)
			}
		}
	}
	rng := fmt.Sprintf("%s!A:%s", tab, columnName(len(row)))
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", tab, err)
	}
	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	e.log.DebugContext(ctx, "Appended sheet row", "range", ref)
	return ref, nil
}

// columnName converts a 1-based column index to its A1 letters.
func columnName(n int) string {
	if n < 1 {
		return "A"
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
