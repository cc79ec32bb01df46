package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"ledger/internal/core"
	"ledger/internal/services"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printAccounts(w io.Writer, accounts []core.Account, total core.Money) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tBALANCE")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.Name, a.Balance)
	}
	fmt.Fprintf(tw, "\tNET WORTH\t%s\n", total)
	tw.Flush()
}

func printTransactions(w io.Writer, txns []core.Transaction, loc *time.Location) {
	if len(txns) == 0 {
		fmt.Fprintln(w, "no transactions")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "CREATED\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDIVISION\tACCOUNT\tDESCRIPTION\tID")
	for _, t := range txns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.CreatedAt.In(loc).Format(time.DateTime),
			t.OccurredAt.In(loc).Format(time.DateOnly),
			t.Type, t.Amount, t.Category, t.Division, t.AccountName, t.Description, t.ID)
	}
	tw.Flush()
}

func printTransferLegs(w io.Writer, legs []core.TransferEntry, loc *time.Location) {
	if len(legs) == 0 {
		fmt.Fprintln(w, "no transfers")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "CREATED\tACCOUNT\tDIRECTION\tAMOUNT\tTRANSFER")
	for _, e := range legs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.In(loc).Format(time.DateTime), e.AccountName, e.Direction, e.Amount, e.TransferID)
	}
	tw.Flush()
}

func printSummary(w io.Writer, s core.Summary, loc *time.Location) {
	fmt.Fprintf(w, "%s: %s to %s\n", s.Range,
		s.Window.Start.In(loc).Format(time.DateTime), s.Window.End.In(loc).Format(time.DateTime))
	tw := newTable(w)
	fmt.Fprintf(tw, "income\t%s\n", s.Income)
	fmt.Fprintf(tw, "expense\t%s\n", s.Expense)
	fmt.Fprintf(tw, "net\t%s\n", s.Net())
	fmt.Fprintf(tw, "transactions\t%d\n", s.Count)
	tw.Flush()
}

func printCategories(w io.Writer, cats []core.CategoryAmount) error {
	if len(cats) == 0 {
		fmt.Fprintln(w, "no expenses")
		return nil
	}
	total, err := core.TotalOf(cats)
	if err != nil {
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "CATEGORY\tAMOUNT\tCOUNT")
	for _, c := range cats {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Category, c.Amount, c.Count)
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t\n", total)
	return tw.Flush()
}

func printBudgets(w io.Writer, o core.BudgetOverview) {
	if len(o.Reports) == 0 {
		fmt.Fprintln(w, "no budgets")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "CATEGORY\tPERIOD\tBUDGET\tSPENT\tREMAINING\tUSED\tSTATE\tID")
	for _, r := range o.Reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s%%\t%s\t%s\n",
			r.Budget.Category, r.Budget.Period, r.Budget.Amount, r.Spent, r.Remaining,
			r.Percentage.StringFixed(1), r.State, r.Budget.ID)
	}
	tw.Flush()
	fmt.Fprintf(w, "total %s of %s spent, %d warning, %d exceeded\n",
		o.TotalSpent, o.TotalBudget, o.Warning, o.Exceeded)
}

// printAudit lists every account and returns how many have drifted.
func printAudit(w io.Writer, entries []services.AuditEntry) int {
	drifted := 0
	tw := newTable(w)
	fmt.Fprintln(tw, "ACCOUNT\tSTORED\tEXPECTED\tDRIFT")
	for _, e := range entries {
		status := "ok"
		if !e.Consistent() {
			drifted++
			status = e.Drift().String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Account.Name, e.Account.Balance, e.Expected, status)
	}
	tw.Flush()
	return drifted
}
