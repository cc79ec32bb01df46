package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/services"
)

type env struct {
	ledger *services.Ledger
	out    io.Writer
	loc    *time.Location
}

type command struct {
	summary string
	run     func(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error
}

var commands = map[string]command{
	"account-create": {"create an account with an opening balance", cmdAccountCreate},
	"accounts":       {"list accounts and net worth", cmdAccounts},
	"record":         {"record an income or expense", cmdRecord},
	"update":         {"edit a transaction inside its edit window", cmdUpdate},
	"transactions":   {"list transactions matching filters", cmdTransactions},
	"edit-status":    {"show how long a transaction stays editable", cmdEditStatus},
	"transfer":       {"move funds between two accounts", cmdTransfer},
	"transfers":      {"list transfer legs, newest first", cmdTransfers},
	"summary":        {"income and expense totals for a range", cmdSummary},
	"categories":     {"expense totals by category", cmdCategories},
	"dashboard":      {"summary, categories and recent activity", cmdDashboard},
	"budget-create":  {"define a spending ceiling for an expense category", cmdBudgetCreate},
	"budget-delete":  {"remove a budget", cmdBudgetDelete},
	"budgets":        {"evaluate every budget", cmdBudgets},
	"audit":          {"recompute balances from history", cmdAudit},
}

var errUsage = fmt.Errorf("%w: usage", core.ErrInvalidInput)

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: ledger <command> [flags]")
	fmt.Fprintln(w)
	tw := newTable(w)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", name, commands[name].summary)
	}
	tw.Flush()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'ledger <command> -h' for the flags of a command.")
}

func run(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		usage(e.out)
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(e.out)
		return fmt.Errorf("%w: unknown command %q", core.ErrInvalidInput, args[0])
	}
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(e.out)
	err := cmd.run(ctx, e, fs, args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", core.ErrInvalidInput, fs.Args())
	}
	return nil
}

// visited returns the names of the flags set on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: -%s is required", core.ErrInvalidInput, name)
	}
	return nil
}

// parseDate accepts YYYY-MM-DD (midnight in loc) or RFC 3339.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD or RFC 3339", core.ErrInvalidInput, s)
	}
	return t.In(loc), nil
}

// parseDateTo treats a bare date as the whole of that day.
func parseDateTo(s string, loc *time.Location) (time.Time, error) {
	t, err := parseDate(s, loc)
	if err != nil {
		return t, err
	}
	if _, derr := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc); derr == nil {
		return core.EndOfDay(t), nil
	}
	return t, nil
}

func cmdAccountCreate(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	name := fs.String("name", "", "account name (unique, case-sensitive)")
	opening := fs.String("opening", "0", "opening balance, may be negative")
	if err := parse(fs, args); err != nil {
		return err
	}
	amount, err := core.ParseSignedAmount(*opening)
	if err != nil {
		return err
	}
	a, err := e.ledger.Accounts.Create(ctx, *name, amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "created account %s (%s) balance %s\n", a.Name, a.ID, a.Balance)
	return nil
}

func cmdAccounts(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	if err := parse(fs, args); err != nil {
		return err
	}
	accounts, err := e.ledger.Accounts.List(ctx)
	if err != nil {
		return err
	}
	total, err := e.ledger.Accounts.NetWorth(ctx)
	if err != nil {
		return err
	}
	printAccounts(e.out, accounts, total)
	return nil
}

func cmdRecord(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	typ := fs.String("type", "", "income or expense")
	amount := fs.String("amount", "", "positive amount, e.g. 12.50")
	category := fs.String("category", "", "category tag")
	division := fs.String("division", "personal", "personal or office")
	desc := fs.String("desc", "", "description")
	account := fs.String("account", "", "account id or name")
	date := fs.String("date", "", "business date, defaults to today")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("amount", *amount); err != nil {
		return err
	}
	m, err := core.ParseAmount(*amount)
	if err != nil {
		return err
	}
	in := core.TransactionInput{
		Type:        core.TransactionType(*typ),
		Amount:      m,
		Category:    *category,
		Division:    core.Division(*division),
		Description: *desc,
		AccountRef:  *account,
	}
	if *date != "" {
		if in.OccurredAt, err = parseDate(*date, e.loc); err != nil {
			return err
		}
	}
	t, err := e.ledger.Transactions.Record(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "recorded %s %s %s on %s (%s)\n", t.Type, t.Amount, t.Category, t.AccountName, t.ID)
	return nil
}

func cmdUpdate(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	id := fs.String("id", "", "transaction id")
	typ := fs.String("type", "", "income or expense")
	amount := fs.String("amount", "", "positive amount")
	category := fs.String("category", "", "category tag")
	division := fs.String("division", "", "personal or office")
	desc := fs.String("desc", "", "description")
	account := fs.String("account", "", "account id or name")
	date := fs.String("date", "", "business date")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}

	var patch core.TransactionPatch
	set := visited(fs)
	if set["type"] {
		t := core.TransactionType(*typ)
		patch.Type = &t
	}
	if set["amount"] {
		m, err := core.ParseAmount(*amount)
		if err != nil {
			return err
		}
		patch.Amount = &m
	}
	if set["category"] {
		patch.Category = category
	}
	if set["division"] {
		d := core.Division(*division)
		patch.Division = &d
	}
	if set["desc"] {
		patch.Description = desc
	}
	if set["account"] {
		patch.AccountRef = account
	}
	if set["date"] {
		t, err := parseDate(*date, e.loc)
		if err != nil {
			return err
		}
		patch.OccurredAt = &t
	}

	t, err := e.ledger.Transactions.Update(ctx, *id, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "updated %s: %s %s %s on %s\n", t.ID, t.Type, t.Amount, t.Category, t.AccountName)
	return nil
}

func cmdTransactions(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	typ := fs.String("type", "", "income or expense")
	category := fs.String("category", "", "category tag")
	division := fs.String("division", "", "personal or office")
	account := fs.String("account", "", "account id or name")
	from := fs.String("from", "", "created on or after (YYYY-MM-DD)")
	to := fs.String("to", "", "created on or before (YYYY-MM-DD, whole day)")
	text := fs.String("text", "", "matches description, category or account name")
	order := fs.String("order", "newest", "newest or oldest")
	limit := fs.Int("limit", 0, "maximum rows, 0 for all")
	if err := parse(fs, args); err != nil {
		return err
	}
	f := core.TransactionFilter{
		Type:     core.TransactionType(*typ),
		Category: *category,
		Division: core.Division(*division),
		Account:  *account,
		Text:     *text,
		Order:    core.SortOrder(*order),
		Limit:    *limit,
	}
	var err error
	if *from != "" {
		if f.From, err = parseDate(*from, e.loc); err != nil {
			return err
		}
	}
	if *to != "" {
		if f.To, err = parseDateTo(*to, e.loc); err != nil {
			return err
		}
	}
	txns, err := e.ledger.Transactions.List(ctx, f)
	if err != nil {
		return err
	}
	printTransactions(e.out, txns, e.loc)
	return nil
}

func cmdEditStatus(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	id := fs.String("id", "", "transaction id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	st, err := e.ledger.Transactions.EditStatus(ctx, *id)
	if err != nil {
		return err
	}
	if !st.Editable {
		fmt.Fprintf(e.out, "%s can no longer be edited (window closed %s)\n",
			st.TransactionID, st.EditableUntil.In(e.loc).Format(time.DateTime))
		return nil
	}
	fmt.Fprintf(e.out, "%s editable for %s (about %dh), until %s\n",
		st.TransactionID, st.Remaining.Round(time.Minute), st.RemainingHours,
		st.EditableUntil.In(e.loc).Format(time.DateTime))
	return nil
}

func cmdTransfer(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	from := fs.String("from", "", "source account id or name")
	to := fs.String("to", "", "destination account id or name")
	amount := fs.String("amount", "", "positive amount")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("amount", *amount); err != nil {
		return err
	}
	m, err := core.ParseAmount(*amount)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidTransfer, err)
	}
	tr, err := e.ledger.Transfers.Transfer(ctx, *from, *to, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "transferred %s from %s to %s (%s)\n", tr.Amount, *from, *to, tr.ID)
	return nil
}

func cmdTransfers(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	account := fs.String("account", "", "account id or name, empty for all")
	if err := parse(fs, args); err != nil {
		return err
	}
	legs, err := e.ledger.Transfers.List(ctx, *account)
	if err != nil {
		return err
	}
	printTransferLegs(e.out, legs, e.loc)
	return nil
}

func rangeFlag(fs *flag.FlagSet, def string) *string {
	return fs.String("range", def, "daily, weekly, monthly or yearly")
}

func cmdSummary(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	r := rangeFlag(fs, "monthly")
	if err := parse(fs, args); err != nil {
		return err
	}
	rng, err := core.ParseRange(*r)
	if err != nil {
		return err
	}
	sum, err := e.ledger.Aggregates.Summary(ctx, rng)
	if err != nil {
		return err
	}
	printSummary(e.out, sum, e.loc)
	return nil
}

func cmdCategories(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	r := rangeFlag(fs, "")
	if err := parse(fs, args); err != nil {
		return err
	}
	var (
		cats []core.CategoryAmount
		err  error
	)
	if *r == "" {
		cats, err = e.ledger.Aggregates.CategorySummary(ctx)
	} else {
		var rng core.Range
		if rng, err = core.ParseRange(*r); err != nil {
			return err
		}
		cats, err = e.ledger.Aggregates.CategorySummaryIn(ctx, rng)
	}
	if err != nil {
		return err
	}
	return printCategories(e.out, cats)
}

func cmdDashboard(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	r := rangeFlag(fs, "monthly")
	if err := parse(fs, args); err != nil {
		return err
	}
	rng, err := core.ParseRange(*r)
	if err != nil {
		return err
	}
	d, err := e.ledger.Aggregates.Dashboard(ctx, rng)
	if err != nil {
		return err
	}
	printSummary(e.out, d.Summary, e.loc)
	fmt.Fprintf(e.out, "savings rate: %s%%\n\n", d.SavingsRate.StringFixed(2))
	if err := printCategories(e.out, d.Categories); err != nil {
		return err
	}
	fmt.Fprintln(e.out)
	printTransactions(e.out, d.Recent, e.loc)
	return nil
}

func cmdBudgetCreate(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	category := fs.String("category", "", "expense category")
	amount := fs.String("amount", "", "positive spending ceiling")
	period := fs.String("period", "monthly", "weekly or monthly")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("amount", *amount); err != nil {
		return err
	}
	m, err := core.ParseAmount(*amount)
	if err != nil {
		return err
	}
	b, err := e.ledger.Budgets.Create(ctx, *category, m, core.Period(*period))
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "created %s budget %s for %s: %s\n", b.Period, b.ID, b.Category, b.Amount)
	return nil
}

func cmdBudgetDelete(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	id := fs.String("id", "", "budget id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	if err := e.ledger.Budgets.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "deleted budget %s\n", *id)
	return nil
}

func cmdBudgets(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	if err := parse(fs, args); err != nil {
		return err
	}
	o, err := e.ledger.Budgets.StatusAll(ctx)
	if err != nil {
		return err
	}
	printBudgets(e.out, o)
	return nil
}

func cmdAudit(ctx context.Context, e *env, fs *flag.FlagSet, args []string) error {
	if err := parse(fs, args); err != nil {
		return err
	}
	entries, err := e.ledger.Accounts.Audit(ctx)
	if err != nil {
		return err
	}
	drifted := printAudit(e.out, entries)
	if drifted > 0 {
		return fmt.Errorf("%d account(s) drifted from their history", drifted)
	}
	return nil
}
