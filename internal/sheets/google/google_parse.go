package google

import (
	"fmt"
	"strings"

	"finledger/internal/core"
	ports "finledger/internal/sheets"
)

// reportHeaders is the first row of the reports sheet. The order is the
// column order written by WriteReport.
var reportHeaders = []string{
	"Period",
	"Income",
	"Expenses",
	"Fixed Costs",
	"Variable Costs",
	"Investments",
	"Operating Result",
	"Emergency Fund",
	"Reinvestment",
	"Net Profit",
	"Withdrawals",
}

func headerRow() []any {
	row := make([]any, len(reportHeaders))
	for i, h := range reportHeaders {
		row[i] = h
	}
	return row
}

func reportRow(label string, s core.Stats) []any {
	return []any{
		label,
		s.Income.String(),
		s.Expenses.String(),
		s.FixedCosts.String(),
		s.VariableCosts.String(),
		s.Investments.String(),
		s.OperatingResult.String(),
		s.EmergencyFundDeduction.String(),
		s.ReinvestmentDeduction.String(),
		s.NetProfit.String(),
		s.Withdrawals.String(),
	}
}

// findLabelRow returns the 1-based sheet row holding label in column A, or
// -1. The header row never matches.
func findLabelRow(values [][]any, label string) int {
	for i, row := range values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == label {
			return i + 1
		}
	}
	return -1
}

// parseReports converts a values matrix (as returned by Sheets API) into
// reports. Columns are located by header so reordered sheets still parse.
func parseReports(values [][]any) ([]ports.Report, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	cols := make([]int, len(reportHeaders))
	var missing []string
	for i, h := range reportHeaders {
		cols[i] = indexOf(headers, h)
		if cols[i] == -1 {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected report header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	out := make([]ports.Report, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		label := safeGet(row, cols[0])
		if label == "" {
			continue
		}
		amounts := make([]core.Money, len(reportHeaders)-1)
		for j := range amounts {
			amounts[j] = parseAmount(safeGet(row, cols[j+1]))
		}
		out = append(out, ports.Report{
			Label: label,
			Stats: core.Stats{
				Income:                 amounts[0],
				Expenses:               amounts[1],
				FixedCosts:             amounts[2],
				VariableCosts:          amounts[3],
				Investments:            amounts[4],
				OperatingResult:        amounts[5],
				EmergencyFundDeduction: amounts[6],
				ReinvestmentDeduction:  amounts[7],
				NetProfit:              amounts[8],
				Withdrawals:            amounts[9],
			},
		})
	}
	return out, nil
}

// parseAmount reads a cell written by reportRow. Operating result and net
// profit may be negative, so this does not go through core.ParseMoney.
func parseAmount(s string) core.Money {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Zero
	}
	neg := strings.HasPrefix(s, "-")
	m, err := core.ParseMoney(strings.TrimPrefix(s, "-"))
	if err != nil {
		return core.Zero
	}
	if neg {
		return m.Neg()
	}
	return m
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
