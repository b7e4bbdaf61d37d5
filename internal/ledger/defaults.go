package ledger

import "finledger/internal/core"

var (
	DefaultServices          = []string{"Hosting", "Domain", "Software", "Internet", "Office"}
	DefaultProjectTypes      = []string{"Web", "Mobile", "Design", "Marketing", "Consulting"}
	DefaultProjectStatuses   = []string{"Pending", "In Progress", "Completed", "Cancelled"}
	DefaultVariableCostTypes = []string{"Supplies", "Transport", "Marketing", "Freelance", "Other"}
)

const (
	DefaultEmergencyFundPercentage = 15
	DefaultReinvestmentPercentage  = 0
)

// DefaultSnapshot is the state of a new ledger: default catalogs, two
// partners sharing profit equally and no records.
func DefaultSnapshot(newID func() string) Snapshot {
	return Snapshot{
		Projects:      []core.Project{},
		FixedCosts:    []core.FixedCost{},
		VariableCosts: []core.VariableCostRecord{},
		Investments:   []core.Investment{},
		Partners: []core.Partner{
			{ID: newID(), Name: "Partner 1", Percentage: 50, Withdrawals: []core.Withdrawal{}},
			{ID: newID(), Name: "Partner 2", Percentage: 50, Withdrawals: []core.Withdrawal{}},
		},
		Transactions: []core.Transaction{},
		Config: core.FinancialConfig{
			EmergencyFundPercentage: DefaultEmergencyFundPercentage,
			ReinvestmentPercentage:  DefaultReinvestmentPercentage,
		},
		Catalog: core.Catalog{
			Services:          append([]string(nil), DefaultServices...),
			ProjectTypes:      append([]string(nil), DefaultProjectTypes...),
			ProjectStatuses:   append([]string(nil), DefaultProjectStatuses...),
			VariableCostTypes: append([]string(nil), DefaultVariableCostTypes...),
		},
		Totals: Totals{Balance: core.Zero, Income: core.Zero, Expenses: core.Zero, Invested: core.Zero},
	}
}
