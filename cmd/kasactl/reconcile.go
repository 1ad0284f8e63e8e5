package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"wykonczymy/internal/authz"
	"wykonczymy/internal/models"
	"wykonczymy/internal/pagination"
	"wykonczymy/internal/services"
)

type reconcileCmd struct{}

func (*reconcileCmd) Name() string { return "reconcile" }
func (*reconcileCmd) Synopsis() string {
	return "recompute every register balance and investment total and correct drift"
}
func (*reconcileCmd) Usage() string {
	return `kasactl reconcile

  Rebuilds stored balances from the transaction log, writes the corrections
  and prints every mismatch found. Exits 1 if another run holds the lock.
`
}

func (*reconcileCmd) SetFlags(*flag.FlagSet) {}

func (*reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	status, _ := runReconciliation(ctx, true)
	return status
}

type verifyCmd struct {
	strict bool
}

func (*verifyCmd) Name() string { return "verify" }
func (*verifyCmd) Synopsis() string {
	return "report balance drift without correcting it"
}
func (*verifyCmd) Usage() string {
	return `kasactl verify [-strict]

  Same computation as reconcile, but nothing is written. With -strict the
  command exits 1 when any mismatch is found, for use as a monitoring probe.
`
}

func (c *verifyCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.strict, "strict", false, "Exit with failure if any mismatch is found.")
}

func (c *verifyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	status, mismatches := runReconciliation(ctx, false)
	if status == subcommands.ExitSuccess && c.strict && mismatches > 0 {
		return subcommands.ExitFailure
	}
	return status
}

// runReconciliation performs one run as the system actor and prints it.
func runReconciliation(ctx context.Context, apply bool) (subcommands.ExitStatus, int) {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure, 0
	}
	defer a.close()

	var result *services.ReconciliationResult
	if apply {
		result, err = a.reconciliation.RecalculateAll(ctx, authz.SystemActor)
	} else {
		result, err = a.reconciliation.Verify(ctx, authz.SystemActor)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure, 0
	}

	printResult(os.Stdout, result)
	return subcommands.ExitSuccess, len(result.Mismatches)
}

func printResult(out io.Writer, r *services.ReconciliationResult) {
	mode := "verify"
	if r.Applied {
		mode = "reconcile"
	}
	fmt.Fprintf(out, "%s run %s: %d registers, %d investments, %d transactions in %s\n",
		mode, r.RunID, r.RegistersChecked, r.InvestmentsChecked, r.TransactionsRead,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	if len(r.Mismatches) == 0 {
		fmt.Fprintln(out, "no mismatches")
		return
	}
	printReports(out, r.Mismatches)
}

func printReports(out io.Writer, reports []models.ReconciliationReport) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "KIND\tENTITY\tFIELD\tSTORED\tLOG\tDRIFT\tAPPLIED\t")
	for _, m := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%v\t\n",
			m.EntityKind, m.EntityID, m.Field,
			m.Previous.Format(), m.Recalculated.Format(), m.Drift().Format(), m.Applied)
	}
	_ = w.Flush()
}

type reportsCmd struct {
	runID string
	limit int
}

func (*reportsCmd) Name() string { return "reports" }
func (*reportsCmd) Synopsis() string {
	return "list stored reconciliation mismatches"
}
func (*reportsCmd) Usage() string {
	return `kasactl reports [-run <run id>] [-n <count>]

  Prints the most recent mismatch rows, optionally of a single run.
`
}

func (c *reportsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.runID, "run", "", "Only rows of this run.")
	f.IntVar(&c.limit, "n", 50, "Number of rows to print (max 100).")
}

func (c *reportsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	page, err := a.reconciliation.ListReports(ctx, authz.SystemActor, pagination.PageRequest{Page: 1, PageSize: c.limit}, c.runID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if len(page.Data) == 0 {
		fmt.Println("no reports")
		return subcommands.ExitSuccess
	}
	printReports(os.Stdout, page.Data)
	fmt.Printf("%d of %d rows\n", len(page.Data), page.TotalItems)
	return subcommands.ExitSuccess
}
