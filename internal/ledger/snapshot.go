package ledger

import (
	"slices"

	"finledger/internal/core"
)

// Totals are the running aggregates maintained by the applier. They must
// always equal Replay of the transaction log.
type Totals struct {
	Balance  core.Money `json:"balance"`
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
	// Invested accumulates investment outflow. It is not the emergency fund
	// deduction computed by the aggregator.
	Invested core.Money `json:"invested"`
}

func (t Totals) Add(d Totals) Totals {
	return Totals{
		Balance:  t.Balance.Add(d.Balance),
		Income:   t.Income.Add(d.Income),
		Expenses: t.Expenses.Add(d.Expenses),
		Invested: t.Invested.Add(d.Invested),
	}
}

func (t Totals) Sub(d Totals) Totals {
	return Totals{
		Balance:  t.Balance.Sub(d.Balance),
		Income:   t.Income.Sub(d.Income),
		Expenses: t.Expenses.Sub(d.Expenses),
		Invested: t.Invested.Sub(d.Invested),
	}
}

func (t Totals) Equal(o Totals) bool {
	return t.Balance.Equal(o.Balance) &&
		t.Income.Equal(o.Income) &&
		t.Expenses.Equal(o.Expenses) &&
		t.Invested.Equal(o.Invested)
}

// Snapshot is the full state of the ledger. It is what the persistence layer
// stores and what Restore accepts.
type Snapshot struct {
	Version       uint64                    `json:"version"`
	Projects      []core.Project            `json:"projects"`
	FixedCosts    []core.FixedCost          `json:"fixedCosts"`
	VariableCosts []core.VariableCostRecord `json:"variableCosts"`
	Investments   []core.Investment         `json:"investments"`
	Partners      []core.Partner            `json:"partners"`
	Transactions  []core.Transaction        `json:"transactions"`
	Config        core.FinancialConfig      `json:"config"`
	Catalog       core.Catalog              `json:"catalog"`
	Totals        Totals                    `json:"totals"`
}

// Clone returns a deep copy that shares no slices with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Projects = make([]core.Project, len(s.Projects))
	for i, p := range s.Projects {
		p.History = slices.Clone(p.History)
		out.Projects[i] = p
	}
	out.FixedCosts = make([]core.FixedCost, len(s.FixedCosts))
	for i, f := range s.FixedCosts {
		if f.Recurrence != nil {
			r := *f.Recurrence
			f.Recurrence = &r
		}
		out.FixedCosts[i] = f
	}
	out.VariableCosts = slices.Clone(s.VariableCosts)
	out.Investments = slices.Clone(s.Investments)
	out.Partners = make([]core.Partner, len(s.Partners))
	for i, p := range s.Partners {
		p.Withdrawals = slices.Clone(p.Withdrawals)
		out.Partners[i] = p
	}
	out.Transactions = make([]core.Transaction, len(s.Transactions))
	for i, tx := range s.Transactions {
		if tx.Recurrence != nil {
			r := *tx.Recurrence
			tx.Recurrence = &r
		}
		out.Transactions[i] = tx
	}
	out.Catalog = core.Catalog{
		Services:          slices.Clone(s.Catalog.Services),
		ProjectTypes:      slices.Clone(s.Catalog.ProjectTypes),
		ProjectStatuses:   slices.Clone(s.Catalog.ProjectStatuses),
		VariableCostTypes: slices.Clone(s.Catalog.VariableCostTypes),
	}
	return out
}

// Verify checks the central invariant: cached totals equal a replay of the
// transaction log.
func (s Snapshot) Verify() error {
	replayed := Replay(s.Transactions)
	if !replayed.Equal(s.Totals) {
		return &InvariantError{Cached: s.Totals, Replayed: replayed}
	}
	return nil
}

func (s *Snapshot) project(id string) *core.Project {
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			return &s.Projects[i]
		}
	}
	return nil
}

func (s *Snapshot) partner(id string) *core.Partner {
	for i := range s.Partners {
		if s.Partners[i].ID == id {
			return &s.Partners[i]
		}
	}
	return nil
}

func (s *Snapshot) transactionIndex(id string) int {
	return slices.IndexFunc(s.Transactions, func(tx core.Transaction) bool { return tx.ID == id })
}
