package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/google/subcommands"

	"finledger/internal/cli"
	"finledger/internal/config"
	"finledger/internal/core"
	"finledger/internal/ledger"
	applog "finledger/internal/log"
	"finledger/internal/services"
	"finledger/internal/storage"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&reportCmd{}, "reports")
	c.Register(&statsCmd{}, "reports")
	c.Register(&partnersCmd{}, "reports")
	c.Register(&duesCmd{}, "reports")

	c.Register(&verifyCmd{}, "maintenance")
	c.Register(&historyCmd{}, "maintenance")
	c.Register(&resetCmd{}, "maintenance")
}

// a short lived process, globals are fine

var currency = flag.String("currency", money.EUR, "ISO 4217 code used to display amounts")
var dbPath = flag.String("db", "", "SQLite database path (default: SQLITE_DB_PATH)")

var errNoDatabase = errors.New("ledgerctl needs a SQLite database; set SQLITE_DB_PATH or -db")

// openLedger opens the database and restores the stored ledger. The caller
// closes the returned service, which closes the repository.
func openLedger(ctx context.Context) (*services.LedgerService, *storage.SQLiteRepository, error) {
	path := databasePath()
	if path == "" {
		return nil, nil, errNoDatabase
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	logger := newLogger()
	repo, err := storage.NewSQLiteRepository(path, logger.WithComponent(applog.ComponentStorage).Slog())
	if err != nil {
		return nil, nil, err
	}
	store := ledger.New(ledger.WithLogger(logger.WithComponent(applog.ComponentLedger).Slog()))
	svc := services.NewLedgerService(store, repo, nil, nil, logger.Slog())
	if err := svc.Load(ctx); err != nil {
		svc.Close()
		return nil, nil, err
	}
	return svc, repo, nil
}

// databasePath is -db, falling back to the server configuration.
func databasePath() string {
	if *dbPath != "" {
		return *dbPath
	}
	cli.LoadEnvFile()
	return config.Load().SQLiteDBPath
}

// newLogger logs to stderr so command output stays clean. LOG_LEVEL
// defaults to warn here.
func newLogger() *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Component = applog.ComponentCLI
	cfg.Output = os.Stderr
	cfg.Level = applog.ParseLevel("warn")
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.Level = applog.ParseLevel(lvl)
	}
	return applog.New(cfg)
}

// formatMoney renders m in the display currency. Unknown currency codes fall
// back to the plain two-decimal form.
func formatMoney(m core.Money, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return m.String() + " " + code
	}
	minor := m.Decimal().Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}

// periodFlags are the human-facing -month (1-12) and -year filters.
type periodFlags struct {
	month int
	year  int
}

func (p *periodFlags) set(f *flag.FlagSet) {
	f.IntVar(&p.month, "month", 0, "Month 1-12 (0 for the whole year or all time)")
	f.IntVar(&p.year, "year", 0, "Year (0 for all time)")
}

func (p *periodFlags) period() (core.Period, error) {
	var month, year *int
	if p.month != 0 {
		if p.month < 1 || p.month > 12 {
			return core.Period{}, fmt.Errorf("%w: month %d", core.ErrInvalidPeriod, p.month)
		}
		idx := p.month - 1
		month = &idx
	}
	if p.year != 0 {
		year = &p.year
	}
	return core.PeriodFromIndex(month, year)
}

func writeStats(w io.Writer, s core.Stats, code string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	rows := []struct {
		label string
		value core.Money
	}{
		{"Income", s.Income},
		{"Fixed costs", s.FixedCosts},
		{"Variable costs", s.VariableCosts},
		{"Expenses", s.Expenses},
		{"Operating result", s.OperatingResult},
		{"Emergency fund", s.EmergencyFundDeduction},
		{"Reinvestment", s.ReinvestmentDeduction},
		{"Investments", s.Investments},
		{"Net profit", s.NetProfit},
		{"Withdrawals", s.Withdrawals},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t\n", r.label, formatMoney(r.value, code))
	}
	return tw.Flush()
}
