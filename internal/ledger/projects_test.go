package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"finledger/internal/core"
)

func TestCreateProjectCustomIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	want := []string{"NCW0001", "NCW0002", "NCW0003"}
	for i, w := range want {
		p, err := s.CreateProject(ctx, ProjectInput{Name: "Site", Type: "Web"})
		if err != nil {
			t.Fatalf("CreateProject %d: %v", i, err)
		}
		if p.CustomID != w {
			t.Errorf("project %d custom id = %s, want %s", i, p.CustomID, w)
		}
		if p.History == nil || len(p.History) != 0 {
			t.Errorf("new project history = %v, want empty", p.History)
		}
	}

	p, err := s.CreateProject(ctx, ProjectInput{Name: "Odd", Type: "UnknownType"})
	if err != nil {
		t.Fatal(err)
	}
	if p.CustomID != "NCX0001" {
		t.Errorf("fallback custom id = %s, want NCX0001", p.CustomID)
	}
	if p.Status != "Pending" {
		t.Errorf("default status = %q, want Pending", p.Status)
	}
}

func TestProjectPrefix(t *testing.T) {
	tests := map[string]string{
		"Web":        "NCW",
		"Mobile":     "NCM",
		"Design":     "NCD",
		"Marketing":  "NCK",
		"Consulting": "NCC",
		"":           "NCX",
		"web":        "NCX",
	}
	for in, want := range tests {
		if got := ProjectPrefix(in); got != want {
			t.Errorf("ProjectPrefix(%q) = %s, want %s", in, got, want)
		}
	}
}

// The sequence comes from the live count, so a deleted number can be handed
// out again.
func TestCustomIDReuseAfterDeletion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	first, _ := s.CreateProject(ctx, ProjectInput{Name: "A", Type: "Web"})
	_, _ = s.CreateProject(ctx, ProjectInput{Name: "B", Type: "Web"})
	if err := s.DeleteProject(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	p, _ := s.CreateProject(ctx, ProjectInput{Name: "C", Type: "Web"})
	if p.CustomID != "NCW0002" {
		t.Errorf("custom id = %s, want NCW0002", p.CustomID)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateProject(context.Background(), ProjectInput{Name: "  "}); !errors.Is(err, ErrInvalidProject) {
		t.Errorf("expected ErrInvalidProject, got %v", err)
	}
	_, err := s.CreateProject(context.Background(), ProjectInput{Name: "x", AgreedAmount: money("5").Neg()})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestChangeStatusKeepsTotals(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p, _ := s.CreateProject(ctx, ProjectInput{Name: "Brand", Type: "Design"})
	if _, err := s.RecordPayment(ctx, p.ID, money("500"), date("2026-05-01"), ""); err != nil {
		t.Fatal(err)
	}
	before := s.Totals()

	if err := s.ChangeStatus(ctx, p.ID, "Completed"); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	got, _ := s.Project(p.ID)
	if got.Status != "Completed" {
		t.Errorf("status = %s", got.Status)
	}
	if !s.Totals().Equal(before) {
		t.Error("status change must not touch totals")
	}
	if err := s.ChangeStatus(ctx, "missing", "Completed"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestUpdateProject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p, _ := s.CreateProject(ctx, ProjectInput{Name: "Old", Type: "Web", AgreedAmount: money("100")})

	name := "New"
	amount := money("250")
	got, err := s.UpdateProject(ctx, p.ID, ProjectUpdate{Name: &name, AgreedAmount: &amount})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if got.Name != "New" || !got.AgreedAmount.Equal(amount) {
		t.Errorf("unexpected project %+v", got)
	}
	if got.CustomID != p.CustomID {
		t.Errorf("custom id changed from %s to %s", p.CustomID, got.CustomID)
	}
}

func TestRecordPaymentUnknownProject(t *testing.T) {
	s := newTestStore(t)
	_, err := s.RecordPayment(context.Background(), "missing", money("1"), date("2026-01-01"), "")
	if !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestDeleteProjectReversesIncome(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	keep, _ := s.CreateProject(ctx, ProjectInput{Name: "Keep", Type: "Web"})
	if _, err := s.RecordPayment(ctx, keep.ID, money("700"), date("2026-01-20"), ""); err != nil {
		t.Fatal(err)
	}
	p, err := s.CreateProject(ctx, ProjectInput{Name: "Shop", Type: "Web", AgreedAmount: money("5000")})
	if err != nil {
		t.Fatal(err)
	}
	for _, amt := range []string{"2000", "1500"} {
		if _, err := s.RecordPayment(ctx, p.ID, money(amt), date("2026-02-01"), "installment"); err != nil {
			t.Fatal(err)
		}
	}
	proj, _ := s.Project(p.ID)
	assertMoney(t, "paid", proj.Paid(), "3500")
	assertMoney(t, "outstanding", proj.Outstanding(), "1500")

	before := s.Totals()
	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	after := s.Totals()

	assertMoney(t, "income delta", before.Income.Sub(after.Income), "3500")
	assertMoney(t, "balance delta", before.Balance.Sub(after.Balance), "3500")
	for _, tx := range s.Transactions() {
		if tx.ProjectID == p.ID {
			t.Errorf("transaction %s still references deleted project", tx.ID)
		}
	}
	if _, err := s.Project(p.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("project still present: %v", err)
	}
	assertVerified(t, s)

	if err := s.DeleteProject(ctx, p.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("second delete: expected ErrProjectNotFound, got %v", err)
	}
}

func TestDeleteProjectReversesOtherReferences(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p, _ := s.CreateProject(ctx, ProjectInput{Name: "Ads", Type: "Marketing"})
	if _, err := s.RecordPayment(ctx, p.ID, money("1000"), date("2026-03-01"), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Apply(ctx, core.Transaction{Type: core.VariableCost, Amount: money("120"), Date: date("2026-03-02"), ProjectID: p.ID}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Transactions()); n != 0 {
		t.Errorf("log length = %d, want 0", n)
	}
	if n := len(s.Snapshot().VariableCosts); n != 0 {
		t.Errorf("variable costs = %d, want 0", n)
	}
	tot := s.Totals()
	assertMoney(t, "balance", tot.Balance, "0")
	assertMoney(t, "expenses", tot.Expenses, "0")
	assertVerified(t, s)
}

func TestRecordPaymentRacingDelete(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		s := newTestStore(t)
		p, err := s.CreateProject(ctx, ProjectInput{Name: "Shop", Type: "Web"})
		if err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		var payErr, delErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, payErr = s.RecordPayment(ctx, p.ID, money("70"), date("2026-03-10"), "")
		}()
		go func() {
			defer wg.Done()
			delErr = s.DeleteProject(ctx, p.ID)
		}()
		wg.Wait()

		if delErr != nil {
			t.Fatalf("DeleteProject: %v", delErr)
		}
		if payErr != nil && !errors.Is(payErr, ErrProjectNotFound) {
			t.Fatalf("RecordPayment: %v", payErr)
		}
		// a payment either lands before the delete and goes with it, or fails
		assertMoney(t, "income", s.Totals().Income, "0")
		if n := len(s.Transactions()); n != 0 {
			t.Fatalf("%d transactions left after delete", n)
		}
		assertVerified(t, s)
	}
}

func TestDeleteProjectRemovesLoggedIncome(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	p, _ := src.CreateProject(ctx, ProjectInput{Name: "Shop", Type: "Web"})
	if _, err := src.RecordPayment(ctx, p.ID, money("500"), date("2026-02-01"), ""); err != nil {
		t.Fatal(err)
	}

	// history carries an entry no transaction backs
	snap := src.Snapshot()
	snap.Projects[0].History = append(snap.Projects[0].History, core.Payment{
		Date: date("2026-02-15"), Amount: money("200"), TransactionID: "imported",
	})
	s := newTestStore(t)
	if err := s.Restore(ctx, snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	assertMoney(t, "income", s.Totals().Income, "0")
	assertMoney(t, "balance", s.Totals().Balance, "0")
	assertVerified(t, s)
}
