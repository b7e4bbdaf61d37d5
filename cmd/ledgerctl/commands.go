package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"finledger/internal/core"
	"finledger/internal/ledger"
	"finledger/internal/services"
	"finledger/internal/storage"
)

type reportCmd struct {
	periodFlags
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print the financial statement of a period" }
func (*reportCmd) Usage() string {
	return `ledgerctl report [-month <1-12>] [-year <yyyy>]

  Prints income, costs, deductions and net profit for the period. Without
  flags the statement covers the whole history.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	period, err := c.period()
	if err != nil {
		return fail(err)
	}
	svc, _, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer svc.Close()

	fmt.Printf("Statement %s (ledger version %d)\n\n", period.Label(), svc.Version())
	if err := writeStats(os.Stdout, svc.ReportStats(period), *currency); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type statsCmd struct{}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "print lifetime figures and running totals" }
func (*statsCmd) Usage() string {
	return `ledgerctl stats

  Prints the lifetime statement followed by the cached running totals.
`
}

func (*statsCmd) SetFlags(*flag.FlagSet) {}

func (*statsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, _, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer svc.Close()

	if err := writeStats(os.Stdout, svc.FinancialStats(), *currency); err != nil {
		return fail(err)
	}
	t := svc.Totals()
	fmt.Printf("\nBalance %s  income %s  expenses %s  invested %s\n",
		formatMoney(t.Balance, *currency),
		formatMoney(t.Income, *currency),
		formatMoney(t.Expenses, *currency),
		formatMoney(t.Invested, *currency))
	fmt.Printf("Partner percentages sum to %.2f%%\n", svc.PercentageSum())
	return subcommands.ExitSuccess
}

type partnersCmd struct {
	periodFlags
}

func (*partnersCmd) Name() string     { return "partners" }
func (*partnersCmd) Synopsis() string { return "print each partner's share and available balance" }
func (*partnersCmd) Usage() string {
	return `ledgerctl partners [-month <1-12>] [-year <yyyy>]
`
}

func (c *partnersCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *partnersCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	period, err := c.period()
	if err != nil {
		return fail(err)
	}
	svc, _, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer svc.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PARTNER\tPCT\tSHARE\tWITHDRAWN\tAVAILABLE")
	for _, b := range svc.PartnerBalances(period) {
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\n", b.Name, b.Percentage,
			formatMoney(b.Share, *currency),
			formatMoney(b.Withdrawn, *currency),
			formatMoney(b.Available, *currency))
	}
	if err := tw.Flush(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type duesCmd struct {
	days int
}

func (*duesCmd) Name() string     { return "dues" }
func (*duesCmd) Synopsis() string { return "list recurring fixed costs falling due soon" }
func (*duesCmd) Usage() string {
	return `ledgerctl dues [-days <n>]
`
}

func (c *duesCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 7, "Look-ahead window in days")
}

func (c *duesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.days < 0 {
		return fail(fmt.Errorf("days must not be negative"))
	}
	svc, _, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer svc.Close()

	dues := svc.Dues(time.Now(), time.Duration(c.days)*24*time.Hour)
	if len(dues) == 0 {
		fmt.Printf("Nothing due in the next %d days\n", c.days)
		return subcommands.ExitSuccess
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DUE\tCATEGORY\tFREQUENCY\tAMOUNT\tDESCRIPTION")
	for _, d := range dues {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.DueDate, d.Category, d.Frequency,
			formatMoney(d.Amount, *currency), d.Description)
	}
	if err := tw.Flush(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type verifyCmd struct{}

func (*verifyCmd) Name() string     { return "verify" }
func (*verifyCmd) Synopsis() string { return "check the cached totals against a replay of the log" }
func (*verifyCmd) Usage() string {
	return `ledgerctl verify

  Replays every transaction from zero and compares the result with the
  stored running totals. Exits non-zero on a mismatch.
`
}

func (*verifyCmd) SetFlags(*flag.FlagSet) {}

func (*verifyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, _, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer svc.Close()

	if v, dirty, err := storage.SchemaVersion(databasePath()); err == nil {
		fmt.Printf("Schema version %d (dirty: %t)\n", v, dirty)
	}

	if err := svc.Verify(); err != nil {
		var inv *ledger.InvariantError
		if errors.As(err, &inv) {
			fmt.Printf("MISMATCH cached balance %s, replayed %s\n",
				formatMoney(inv.Cached.Balance, *currency),
				formatMoney(inv.Replayed.Balance, *currency))
		}
		return fail(err)
	}
	fmt.Printf("OK: %d transactions replay to the stored totals (version %d)\n",
		len(svc.Transactions()), svc.Version())
	return subcommands.ExitSuccess
}

type historyCmd struct {
	limit int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "show the most recent ledger changes" }
func (*historyCmd) Usage() string {
	return `ledgerctl history [-n <count>]
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 20, "Number of changes to show")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, repo, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer svc.Close()

	changes, err := repo.Changes(ctx, c.limit)
	if err != nil {
		return fail(err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tWHEN\tOPERATION\tBALANCE")
	for _, ch := range changes {
		balance := ch.Balance
		if m, err := core.ParseMoney(balance); err == nil {
			balance = formatMoney(m, *currency)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", ch.Version, ch.CreatedAt.Format(time.RFC3339), ch.Operation, balance)
	}
	if err := tw.Flush(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type resetCmd struct {
	confirm bool
}

func (*resetCmd) Name() string     { return "reset" }
func (*resetCmd) Synopsis() string { return "wipe the ledger back to its defaults" }
func (*resetCmd) Usage() string {
	return `ledgerctl reset -confirm

  Destroys every record and restores the default partners, catalogs and
  configuration. Stop the server first; it would otherwise keep serving
  its in-memory state.
`
}

func (c *resetCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.confirm, "confirm", false, "Required to actually reset")
}

func (c *resetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, _, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer svc.Close()

	if err := svc.Reset(ctx, c.confirm); err != nil {
		if errors.Is(err, services.ErrResetNotConfirmed) {
			fmt.Fprintln(os.Stderr, "refusing to reset without -confirm")
			return subcommands.ExitUsageError
		}
		return fail(err)
	}
	fmt.Printf("Ledger reset (version %d)\n", svc.Version())
	return subcommands.ExitSuccess
}
