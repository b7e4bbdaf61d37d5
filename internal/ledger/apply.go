package ledger

import (
	"context"
	"fmt"
	"slices"

	"finledger/internal/core"
)

// ApplyResult describes the side effects of Apply.
type ApplyResult struct {
	Transaction core.Transaction `json:"transaction"`
	// CatalogUpdated is set when a fixed cost introduced a new service.
	CatalogUpdated bool `json:"catalogUpdated"`
	// ProjectFound is false for project income whose project does not exist.
	ProjectFound bool `json:"projectFound"`
}

// effect is the change a transaction makes to the running totals. Apply adds
// it, Reverse subtracts it and Replay folds it.
func effect(tx core.Transaction) Totals {
	d := Totals{Balance: core.Zero, Income: core.Zero, Expenses: core.Zero, Invested: core.Zero}
	switch tx.Type {
	case core.ProjectIncome, core.IncomeTx:
		d.Income = tx.Amount
		d.Balance = tx.Amount
	case core.InvestmentTx:
		d.Invested = tx.Amount
		d.Balance = tx.Amount.Neg()
	case core.WithdrawalTx:
		d.Balance = tx.Amount.Neg()
	default:
		d.Expenses = tx.Amount
		d.Balance = tx.Amount.Neg()
	}
	return d
}

// Replay folds the transaction log from an empty state.
func Replay(txs []core.Transaction) Totals {
	t := Totals{Balance: core.Zero, Income: core.Zero, Expenses: core.Zero, Invested: core.Zero}
	for _, tx := range txs {
		t = t.Add(effect(tx))
	}
	return t
}

// Apply validates tx, appends it to the log and applies its effects. Partner
// withdrawals go through AddWithdrawal instead.
func (s *Store) Apply(ctx context.Context, tx core.Transaction) (ApplyResult, error) {
	return s.apply(ctx, tx, false)
}

// apply books tx. With requireProject set, project income for a project that
// does not exist at mutation time fails with ErrProjectNotFound.
func (s *Store) apply(ctx context.Context, tx core.Transaction, requireProject bool) (ApplyResult, error) {
	if tx.Type == core.WithdrawalTx {
		return ApplyResult{}, ErrUseWithdrawal
	}
	if tx.Type == core.FixedCostTx && tx.Date.IsEmpty() {
		tx.Date = tx.PaymentDate
	}
	if err := tx.Validate(); err != nil {
		return ApplyResult{}, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if tx.ID == "" {
		tx.ID = s.newID()
	}

	var res ApplyResult
	err := s.mutate(ctx, "apply:"+string(tx.Type), func(st *Snapshot) error {
		if st.transactionIndex(tx.ID) >= 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateTransaction, tx.ID)
		}
		if requireProject && st.project(tx.ProjectID) == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, tx.ProjectID)
		}
		res = s.applyTransaction(ctx, st, tx)
		return nil
	})
	if err != nil {
		return ApplyResult{}, err
	}
	return res, nil
}

func (s *Store) applyTransaction(ctx context.Context, st *Snapshot, tx core.Transaction) ApplyResult {
	res := ApplyResult{Transaction: tx, ProjectFound: true}
	st.Transactions = append(st.Transactions, tx)

	switch tx.Type {
	case core.ProjectIncome:
		if p := st.project(tx.ProjectID); p != nil {
			p.History = append(p.History, core.Payment{
				Date:          tx.Date,
				Amount:        tx.Amount,
				Note:          tx.Description,
				TransactionID: tx.ID,
			})
		} else {
			res.ProjectFound = false
			s.logger.WarnContext(ctx, "Project income recorded for unknown project",
				"transaction_id", tx.ID,
				"project_id", tx.ProjectID)
		}
	case core.FixedCostTx:
		fc := core.FixedCost{
			ID:            tx.ID,
			TransactionID: tx.ID,
			Amount:        tx.Amount,
			Date:          tx.Date,
			PaymentDate:   tx.PaymentDate,
			Category:      tx.Category,
			Description:   tx.Description,
		}
		if tx.Recurrence != nil {
			r := *tx.Recurrence
			fc.Recurrence = &r
		}
		st.FixedCosts = append(st.FixedCosts, fc)
		if tx.Category != "" && !st.Catalog.HasService(tx.Category) {
			st.Catalog.Services = append(st.Catalog.Services, tx.Category)
			res.CatalogUpdated = true
		}
	case core.VariableCost:
		st.VariableCosts = append(st.VariableCosts, core.VariableCostRecord{
			ID:            tx.ID,
			TransactionID: tx.ID,
			Amount:        tx.Amount,
			Date:          tx.Date,
			Type:          tx.Category,
			Description:   tx.Description,
		})
	case core.InvestmentTx:
		st.Investments = append(st.Investments, core.Investment{
			ID:            tx.ID,
			TransactionID: tx.ID,
			Amount:        tx.Amount,
			Date:          tx.Date,
			Type:          tx.Category,
			Description:   tx.Description,
		})
	case core.WithdrawalTx:
		if p := st.partner(tx.PartnerID); p != nil {
			p.Withdrawals = append(p.Withdrawals, core.Withdrawal{
				Amount:        tx.Amount,
				Date:          tx.Date,
				TransactionID: tx.ID,
			})
		}
	}

	st.Totals = st.Totals.Add(effect(tx))
	return res
}

// Reverse removes the transaction from the log and undoes its effects. An
// unknown id is not an error: the call is logged and reported as not found.
func (s *Store) Reverse(ctx context.Context, id string) (core.Transaction, bool, error) {
	var (
		reversed core.Transaction
		found    bool
	)
	err := s.mutate(ctx, "reverse", func(st *Snapshot) error {
		tx, ok := s.reverseTransaction(st, id)
		if !ok {
			return errNoChange
		}
		reversed, found = tx, true
		return nil
	})
	if err != nil {
		return core.Transaction{}, false, err
	}
	if !found {
		s.logger.InfoContext(ctx, "Reverse of unknown transaction ignored", "transaction_id", id)
	}
	return reversed, found, nil
}

func (s *Store) reverseTransaction(st *Snapshot, id string) (core.Transaction, bool) {
	i := st.transactionIndex(id)
	if i < 0 {
		return core.Transaction{}, false
	}
	tx := st.Transactions[i]
	st.Transactions = slices.Delete(st.Transactions, i, i+1)

	switch tx.Type {
	case core.ProjectIncome:
		if p := st.project(tx.ProjectID); p != nil {
			p.History = slices.DeleteFunc(p.History, func(h core.Payment) bool { return h.TransactionID == id })
		}
	case core.FixedCostTx:
		st.FixedCosts = slices.DeleteFunc(st.FixedCosts, func(f core.FixedCost) bool { return f.TransactionID == id })
	case core.VariableCost:
		st.VariableCosts = slices.DeleteFunc(st.VariableCosts, func(v core.VariableCostRecord) bool { return v.TransactionID == id })
	case core.InvestmentTx:
		st.Investments = slices.DeleteFunc(st.Investments, func(v core.Investment) bool { return v.TransactionID == id })
	case core.WithdrawalTx:
		if p := st.partner(tx.PartnerID); p != nil {
			p.Withdrawals = slices.DeleteFunc(p.Withdrawals, func(w core.Withdrawal) bool { return w.TransactionID == id })
		}
	}

	st.Totals = st.Totals.Sub(effect(tx))
	return tx, true
}
