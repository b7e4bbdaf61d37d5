package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"finledger/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	n := 0
	return New(
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		}),
		WithClock(func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC) }),
	)
}

func money(s string) core.Money { return core.MustParseMoney(s) }

func date(s string) core.Date { return core.MustParseDate(s) }

func assertMoney(t *testing.T, name string, got core.Money, want string) {
	t.Helper()
	if !got.Equal(money(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func assertVerified(t *testing.T, s *Store) {
	t.Helper()
	if err := s.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestNewStoreDefaults(t *testing.T) {
	s := newTestStore(t)
	snap := s.Snapshot()

	if len(snap.Partners) != 2 {
		t.Fatalf("expected 2 default partners, got %d", len(snap.Partners))
	}
	for _, p := range snap.Partners {
		if p.Percentage != 50 {
			t.Errorf("partner %s percentage = %v, want 50", p.Name, p.Percentage)
		}
	}
	if snap.Config.EmergencyFundPercentage != 15 || snap.Config.ReinvestmentPercentage != 0 {
		t.Errorf("unexpected default config %+v", snap.Config)
	}
	if len(snap.Catalog.Services) != len(DefaultServices) {
		t.Errorf("services = %v", snap.Catalog.Services)
	}
	if s.Version() != 0 {
		t.Errorf("Version = %d, want 0", s.Version())
	}
	assertVerified(t, s)
}

func TestApplyEffects(t *testing.T) {
	tests := []struct {
		name                                 string
		tx                                   core.Transaction
		balance, income, expenses, invested string
	}{
		{
			name:    "generic income",
			tx:      core.Transaction{Type: core.IncomeTx, Amount: money("100"), Date: date("2026-01-10")},
			balance: "100", income: "100", expenses: "0", invested: "0",
		},
		{
			name:    "variable cost",
			tx:      core.Transaction{Type: core.VariableCost, Amount: money("40.50"), Date: date("2026-01-10"), Category: "Supplies"},
			balance: "-40.50", income: "0", expenses: "40.50", invested: "0",
		},
		{
			name:    "fixed cost",
			tx:      core.Transaction{Type: core.FixedCostTx, Amount: money("20"), Date: date("2026-01-10"), Category: "Hosting"},
			balance: "-20", income: "0", expenses: "20", invested: "0",
		},
		{
			name:    "investment",
			tx:      core.Transaction{Type: core.InvestmentTx, Amount: money("300"), Date: date("2026-01-10")},
			balance: "-300", income: "0", expenses: "0", invested: "300",
		},
		{
			name:    "generic expense",
			tx:      core.Transaction{Type: core.ExpenseTx, Amount: money("7"), Date: date("2026-01-10")},
			balance: "-7", income: "0", expenses: "7", invested: "0",
		},
		{
			name:    "project income for unknown project",
			tx:      core.Transaction{Type: core.ProjectIncome, Amount: money("250"), Date: date("2026-01-10"), ProjectID: "missing"},
			balance: "250", income: "250", expenses: "0", invested: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			res, err := s.Apply(context.Background(), tt.tx)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if res.Transaction.ID == "" {
				t.Error("expected generated transaction id")
			}
			tot := s.Totals()
			assertMoney(t, "balance", tot.Balance, tt.balance)
			assertMoney(t, "income", tot.Income, tt.income)
			assertMoney(t, "expenses", tot.Expenses, tt.expenses)
			assertMoney(t, "invested", tot.Invested, tt.invested)
			if got := len(s.Transactions()); got != 1 {
				t.Errorf("log length = %d, want 1", got)
			}
			assertVerified(t, s)
		})
	}
}

func TestApplyRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"negative amount", core.Transaction{Type: core.IncomeTx, Amount: money("10").Neg(), Date: date("2026-01-01")}, ErrInvalidAmount},
		{"unknown type", core.Transaction{Type: "gift", Amount: money("10"), Date: date("2026-01-01")}, ErrInvalidTransaction},
		{"missing date", core.Transaction{Type: core.IncomeTx, Amount: money("10")}, ErrInvalidTransaction},
		{"income on payment date", core.Transaction{Type: core.IncomeTx, Amount: money("50"), PaymentDate: date("2026-03-10")}, core.ErrInvalidDate},
		{"variable cost on payment date", core.Transaction{Type: core.VariableCost, Amount: money("100"), PaymentDate: date("2026-03-10")}, core.ErrInvalidDate},
		{"investment on payment date", core.Transaction{Type: core.InvestmentTx, Amount: money("10"), PaymentDate: date("2026-03-10")}, ErrInvalidTransaction},
		{"project income on payment date", core.Transaction{Type: core.ProjectIncome, ProjectID: "p1", Amount: money("70"), PaymentDate: date("2026-03-10")}, ErrInvalidTransaction},
		{"project income without project", core.Transaction{Type: core.ProjectIncome, Amount: money("10"), Date: date("2026-01-01")}, ErrInvalidTransaction},
		{"withdrawal on generic path", core.Transaction{Type: core.WithdrawalTx, Amount: money("10"), Date: date("2026-01-01")}, ErrUseWithdrawal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			_, err := s.Apply(context.Background(), tt.tx)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Apply error = %v, want %v", err, tt.want)
			}
			if len(s.Transactions()) != 0 {
				t.Error("rejected transaction must not reach the log")
			}
			if s.Version() != 0 {
				t.Error("rejected transaction must not publish a new version")
			}
		})
	}
}

func TestApplyDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tx := core.Transaction{ID: "t1", Type: core.IncomeTx, Amount: money("10"), Date: date("2026-01-01")}
	if _, err := s.Apply(ctx, tx); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := s.Apply(ctx, tx); !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected ErrDuplicateTransaction, got %v", err)
	}
	assertMoney(t, "income", s.Totals().Income, "10")
}

func TestFixedCostCatalogGrowth(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Apply(ctx, core.Transaction{
		Type:        core.FixedCostTx,
		Amount:      money("12"),
		PaymentDate: date("2026-02-05"),
		Category:    "Coworking",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.CatalogUpdated {
		t.Error("expected catalog update for new category")
	}
	if !s.Catalog().HasService("Coworking") {
		t.Error("services catalog should contain Coworking")
	}
	fc := s.FixedCosts()
	if len(fc) != 1 || fc[0].Date.String() != "2026-02-05" {
		t.Fatalf("payment date should be normalized into date, got %+v", fc)
	}

	res, err = s.Apply(ctx, core.Transaction{Type: core.FixedCostTx, Amount: money("12"), Date: date("2026-03-05"), Category: "hosting"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.CatalogUpdated {
		t.Error("known category must not update the catalog")
	}
}

func TestApplyReverseIdentity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p, err := s.CreateProject(ctx, ProjectInput{Name: "Site", Type: "Web", AgreedAmount: money("1000")})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	partnerID := s.Partners()[0].ID
	if _, err := s.Apply(ctx, core.Transaction{Type: core.IncomeTx, Amount: money("900"), Date: date("2026-01-02")}); err != nil {
		t.Fatal(err)
	}

	txs := []core.Transaction{
		{Type: core.ProjectIncome, Amount: money("400"), Date: date("2026-01-03"), ProjectID: p.ID, Description: "deposit"},
		{Type: core.FixedCostTx, Amount: money("30"), Date: date("2026-01-04"), Category: "Hosting"},
		{Type: core.VariableCost, Amount: money("15.25"), Date: date("2026-01-05"), Category: "Transport"},
		{Type: core.InvestmentTx, Amount: money("100"), Date: date("2026-01-06")},
		{Type: core.ExpenseTx, Amount: money("3"), Date: date("2026-01-07")},
	}

	for _, tx := range txs {
		t.Run(string(tx.Type), func(t *testing.T) {
			before := s.Snapshot()
			res, err := s.Apply(ctx, tx)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			reversed, found, err := s.Reverse(ctx, res.Transaction.ID)
			if err != nil || !found {
				t.Fatalf("Reverse: found=%v err=%v", found, err)
			}
			if reversed.ID != res.Transaction.ID {
				t.Errorf("reversed %s, want %s", reversed.ID, res.Transaction.ID)
			}
			after := s.Snapshot()
			if !after.Totals.Equal(before.Totals) {
				t.Errorf("totals %+v, want %+v", after.Totals, before.Totals)
			}
			if len(after.Transactions) != len(before.Transactions) {
				t.Errorf("log length %d, want %d", len(after.Transactions), len(before.Transactions))
			}
			if got, want := len(after.project(p.ID).History), len(before.project(p.ID).History); got != want {
				t.Errorf("history length %d, want %d", got, want)
			}
			if len(after.FixedCosts) != len(before.FixedCosts) ||
				len(after.VariableCosts) != len(before.VariableCosts) ||
				len(after.Investments) != len(before.Investments) {
				t.Error("record collections not restored")
			}
			assertVerified(t, s)
		})
	}

	t.Run("withdrawal", func(t *testing.T) {
		before := s.Snapshot()
		tx, err := s.AddWithdrawal(ctx, partnerID, money("50"), date("2026-01-08"))
		if err != nil {
			t.Fatalf("AddWithdrawal: %v", err)
		}
		if _, found, err := s.Reverse(ctx, tx.ID); err != nil || !found {
			t.Fatalf("Reverse: found=%v err=%v", found, err)
		}
		after := s.Snapshot()
		if !after.Totals.Equal(before.Totals) {
			t.Errorf("totals %+v, want %+v", after.Totals, before.Totals)
		}
		if len(after.partner(partnerID).Withdrawals) != 0 {
			t.Error("withdrawal entry not purged")
		}
	})
}

func TestReverseRemovesOnlyMatchingHistoryEntry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p, _ := s.CreateProject(ctx, ProjectInput{Name: "Twin", Type: "Design"})

	a, err := s.RecordPayment(ctx, p.ID, money("100"), date("2026-04-01"), "same")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.RecordPayment(ctx, p.ID, money("100"), date("2026-04-01"), "same")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Reverse(ctx, a.Transaction.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Project(p.ID)
	if len(got.History) != 1 || got.History[0].TransactionID != b.Transaction.ID {
		t.Fatalf("history = %+v, want only %s", got.History, b.Transaction.ID)
	}
}

func TestReverseUnknownIsNoop(t *testing.T) {
	s := newTestStore(t)
	_, found, err := s.Reverse(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if found {
		t.Error("unknown id reported as found")
	}
	if s.Version() != 0 {
		t.Error("no-op reverse must not publish a version")
	}
}

func TestReplayEquivalence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p, _ := s.CreateProject(ctx, ProjectInput{Name: "App", Type: "Mobile"})

	steps := []core.Transaction{
		{Type: core.ProjectIncome, Amount: money("1200"), Date: date("2026-01-10"), ProjectID: p.ID},
		{Type: core.IncomeTx, Amount: money("80.10"), Date: date("2026-01-11")},
		{Type: core.FixedCostTx, Amount: money("49.99"), Date: date("2026-01-12"), Category: "Software"},
		{Type: core.VariableCost, Amount: money("12.01"), Date: date("2026-02-01")},
		{Type: core.InvestmentTx, Amount: money("200"), Date: date("2026-02-02")},
		{Type: core.ProjectIncome, Amount: money("300"), Date: date("2026-02-03"), ProjectID: "stale"},
		{Type: core.ExpenseTx, Amount: money("0"), Date: date("2026-02-04")},
	}
	var ids []string
	for _, tx := range steps {
		res, err := s.Apply(ctx, tx)
		if err != nil {
			t.Fatalf("Apply %s: %v", tx.Type, err)
		}
		ids = append(ids, res.Transaction.ID)
		assertVerified(t, s)
	}
	if _, err := s.AddWithdrawal(ctx, s.Partners()[1].ID, money("75"), date("2026-02-05")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Reverse(ctx, ids[2]); err != nil {
		t.Fatal(err)
	}

	replayed := Replay(s.Transactions())
	if !replayed.Equal(s.Totals()) {
		t.Fatalf("replayed %+v, cached %+v", replayed, s.Totals())
	}
	assertMoney(t, "balance", s.Totals().Balance, "1293.09")
	assertMoney(t, "income", s.Totals().Income, "1580.10")
	assertMoney(t, "expenses", s.Totals().Expenses, "12.01")
	assertMoney(t, "invested", s.Totals().Invested, "200")
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	ctx := context.Background()
	s := New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.Apply(ctx, core.Transaction{Type: core.IncomeTx, Amount: money("1.10"), Date: date("2026-06-01")}); err != nil {
					t.Errorf("Apply: %v", err)
					return
				}
				_ = s.ReportStats(core.ForYear(2026))
			}
		}()
	}
	wg.Wait()

	assertMoney(t, "income", s.Totals().Income, "440")
	if got := s.Version(); got != workers*perWorker {
		t.Errorf("Version = %d, want %d", got, workers*perWorker)
	}
	assertVerified(t, s)
}

func TestOnChangeListener(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var ops []string
	var versions []uint64
	s.OnChange(func(_ context.Context, op string, snap Snapshot) {
		ops = append(ops, op)
		versions = append(versions, snap.Version)
	})

	if _, err := s.Apply(ctx, core.Transaction{Type: core.IncomeTx, Amount: money("5"), Date: date("2026-01-01")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Apply(ctx, core.Transaction{Type: "bogus"}); err == nil {
		t.Fatal("expected error")
	}
	if _, _, err := s.Reverse(ctx, "unknown"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFinancialConfig(ctx, core.FinancialConfig{EmergencyFundPercentage: 10, ReinvestmentPercentage: 5}); err != nil {
		t.Fatal(err)
	}

	if len(ops) != 2 || ops[0] != "apply:income" || ops[1] != "set_config" {
		t.Fatalf("ops = %v", ops)
	}
	if versions[0] != 1 || versions[1] != 2 {
		t.Errorf("versions = %v", versions)
	}
}

func TestRestoreVerifiesSnapshot(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	if _, err := src.Apply(ctx, core.Transaction{Type: core.IncomeTx, Amount: money("10"), Date: date("2026-01-01")}); err != nil {
		t.Fatal(err)
	}
	snap := src.Snapshot()

	dst := newTestStore(t)
	if err := dst.Restore(ctx, snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !dst.Totals().Equal(snap.Totals) || dst.Version() != snap.Version {
		t.Error("restored state differs from snapshot")
	}

	snap.Totals.Balance = money("999")
	err := dst.Restore(ctx, snap)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
	var inv *InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("expected *InvariantError, got %T", err)
	}
	assertMoney(t, "replayed balance", inv.Replayed.Balance, "10")
}

func TestSnapshotIsIsolated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p, _ := s.CreateProject(ctx, ProjectInput{Name: "Iso", Type: "Web"})
	if _, err := s.RecordPayment(ctx, p.ID, money("10"), date("2026-01-01"), ""); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	snap.Projects[0].History[0].Amount = money("1000")
	snap.Partners[0].Name = "changed"

	got, _ := s.Project(p.ID)
	assertMoney(t, "history amount", got.History[0].Amount, "10")
	if s.Partners()[0].Name == "changed" {
		t.Error("snapshot shares partner storage with the store")
	}
}

func TestResetAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if _, err := s.CreateProject(ctx, ProjectInput{Name: "Gone", Type: "Web"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Apply(ctx, core.Transaction{Type: core.FixedCostTx, Amount: money("5"), Date: date("2026-01-01"), Category: "Extra"}); err != nil {
		t.Fatal(err)
	}
	v := s.Version()

	if err := s.ResetAll(ctx); err != nil {
		t.Fatalf("ResetAll: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Projects) != 0 || len(snap.Transactions) != 0 || len(snap.FixedCosts) != 0 {
		t.Error("records survived reset")
	}
	if snap.Catalog.HasService("Extra") {
		t.Error("catalog not reset")
	}
	if len(snap.Partners) != 2 {
		t.Errorf("partners = %d, want 2", len(snap.Partners))
	}
	if snap.Version != v+1 {
		t.Errorf("Version = %d, want %d", snap.Version, v+1)
	}
	assertMoney(t, "balance", snap.Totals.Balance, "0")
}

func TestSetFinancialConfigValidation(t *testing.T) {
	s := newTestStore(t)
	err := s.SetFinancialConfig(context.Background(), core.FinancialConfig{EmergencyFundPercentage: 120})
	if !errors.Is(err, ErrInvalidPercentage) {
		t.Fatalf("expected ErrInvalidPercentage, got %v", err)
	}
}
