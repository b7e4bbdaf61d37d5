package ledger

import (
	"finledger/internal/core"
)

// ComputeStats derives the financial statement of a period from the raw
// records of snap. It never reads the cached totals, so the same snapshot and
// period always give the same result.
func ComputeStats(snap Snapshot, period core.Period) core.Stats {
	income := core.Zero
	for _, p := range snap.Projects {
		for _, h := range p.History {
			if period.Contains(h.Date) {
				income = income.Add(h.Amount)
			}
		}
	}
	// project income is read from the histories above
	for _, tx := range snap.Transactions {
		if tx.Type == core.IncomeTx && tx.ProjectID == "" && period.Contains(tx.Date) {
			income = income.Add(tx.Amount)
		}
	}

	fixed := core.Zero
	for _, f := range snap.FixedCosts {
		if period.Contains(f.EffectiveDate()) {
			fixed = fixed.Add(f.Amount)
		}
	}
	variable := core.Zero
	for _, v := range snap.VariableCosts {
		if period.Contains(v.Date) {
			variable = variable.Add(v.Amount)
		}
	}
	invested := core.Zero
	for _, i := range snap.Investments {
		if period.Contains(i.Date) {
			invested = invested.Add(i.Amount)
		}
	}
	withdrawn := core.Zero
	for _, p := range snap.Partners {
		withdrawn = withdrawn.Add(p.Withdrawn(period))
	}

	return buildStats(snap.Config, income, fixed, variable, invested, withdrawn)
}

// ComputeLifetimeStats applies the same formula as ComputeStats to all-time
// inputs, taking income from the cached totals.
func ComputeLifetimeStats(snap Snapshot) core.Stats {
	fixed := core.Zero
	for _, f := range snap.FixedCosts {
		fixed = fixed.Add(f.Amount)
	}
	variable := core.Zero
	for _, v := range snap.VariableCosts {
		variable = variable.Add(v.Amount)
	}
	invested := core.Zero
	for _, i := range snap.Investments {
		invested = invested.Add(i.Amount)
	}
	withdrawn := core.Zero
	for _, p := range snap.Partners {
		withdrawn = withdrawn.Add(p.Withdrawn(core.AllTime()))
	}
	return buildStats(snap.Config, snap.Totals.Income, fixed, variable, invested, withdrawn)
}

func buildStats(cfg core.FinancialConfig, income, fixed, variable, invested, withdrawn core.Money) core.Stats {
	expenses := fixed.Add(variable)
	operating := income.Sub(expenses)
	base := operating.NonNegative()
	emergency := base.Percent(cfg.EmergencyFundPercentage)
	reinvest := base.Percent(cfg.ReinvestmentPercentage)

	return core.Stats{
		Income:                 income,
		Expenses:               expenses,
		FixedCosts:             fixed,
		VariableCosts:          variable,
		Investments:            invested,
		OperatingResult:        operating,
		NetProfit:              operating.Sub(emergency).Sub(reinvest).Sub(invested),
		EmergencyFundDeduction: emergency,
		ReinvestmentDeduction:  reinvest,
		Withdrawals:            withdrawn,
	}
}

// ComputePartnerBalances splits net profit by partner percentage. Available
// may be negative when a partner withdrew more than the share.
func ComputePartnerBalances(snap Snapshot, period core.Period, netProfit core.Money) []core.PartnerBalance {
	out := make([]core.PartnerBalance, 0, len(snap.Partners))
	for _, p := range snap.Partners {
		share := netProfit.Percent(p.Percentage)
		withdrawn := p.Withdrawn(period)
		out = append(out, core.PartnerBalance{
			PartnerID:  p.ID,
			Name:       p.Name,
			Percentage: p.Percentage,
			Share:      share,
			Withdrawn:  withdrawn,
			Available:  share.Sub(withdrawn),
		})
	}
	return out
}

// ReportStats computes the statement of a period over the current state.
func (s *Store) ReportStats(period core.Period) core.Stats {
	return ComputeStats(*s.current(), period)
}

// FinancialStats computes the lifetime statement.
func (s *Store) FinancialStats() core.Stats {
	return ComputeLifetimeStats(*s.current())
}

// PartnerBalances computes every partner's share of the period's net profit.
// The all-time period uses the lifetime statement.
func (s *Store) PartnerBalances(period core.Period) []core.PartnerBalance {
	snap := *s.current()
	var stats core.Stats
	if period.Year == nil && period.Month == nil {
		stats = ComputeLifetimeStats(snap)
	} else {
		stats = ComputeStats(snap, period)
	}
	return ComputePartnerBalances(snap, period, stats.NetProfit)
}
