package core

// Stats is the financial breakdown produced for a period or for the whole
// lifetime of the ledger. Field names are part of the export contract.
type Stats struct {
	Income                 Money `json:"income"`
	Expenses               Money `json:"expenses"`
	FixedCosts             Money `json:"fixedCosts"`
	VariableCosts          Money `json:"variableCosts"`
	Investments            Money `json:"investments"`
	OperatingResult        Money `json:"operatingResult"`
	NetProfit              Money `json:"netProfit"`
	EmergencyFundDeduction Money `json:"emergencyFundDeduction"`
	ReinvestmentDeduction  Money `json:"reinvestmentDeduction"`
	Withdrawals            Money `json:"withdrawals"`
}

// PartnerBalance is a partner's share of net profit and what is left of it.
type PartnerBalance struct {
	PartnerID  string  `json:"partnerId"`
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
	Share      Money   `json:"share"`
	Withdrawn  Money   `json:"withdrawn"`
	Available  Money   `json:"available"`
}

// DueItem is a fixed cost falling due on DueDate.
type DueItem struct {
	FixedCostID string    `json:"fixedCostId"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      Money     `json:"amount"`
	Frequency   Frequency `json:"frequency"`
	DueDate     Date      `json:"dueDate"`
}
