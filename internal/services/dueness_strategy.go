// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for fixed-cost due dates. Each
// frequency (monthly, quarterly, annual) has its own strategy that finds the
// next payment date of a recurrence.

package services

import (
	"fmt"
	"sort"
	"time"

	"finledger/internal/core"
)

// DueDateStrategy computes payment dates for one frequency.
type DueDateStrategy interface {
	// NextDue returns the first payment date on or after from, or a zero
	// Date when the recurrence has ended before then.
	NextDue(r core.Recurrence, from core.Date) core.Date
}

// MonthlyStrategy pays every month on PaymentDay.
type MonthlyStrategy struct{}

func (MonthlyStrategy) NextDue(r core.Recurrence, from core.Date) core.Date {
	return nextEvery(r, from, 1)
}

// QuarterlyStrategy pays every third month, counting from the start month.
type QuarterlyStrategy struct{}

func (QuarterlyStrategy) NextDue(r core.Recurrence, from core.Date) core.Date {
	return nextEvery(r, from, 3)
}

// AnnualStrategy pays once a year in the start month.
type AnnualStrategy struct{}

func (AnnualStrategy) NextDue(r core.Recurrence, from core.Date) core.Date {
	return nextEvery(r, from, 12)
}

// nextEvery walks occurrences spaced step months apart from the start month.
// PaymentDay is clamped to the length of each month.
func nextEvery(r core.Recurrence, from core.Date, step int) core.Date {
	if r.StartDate.IsZero() || step < 1 {
		return core.Date{}
	}
	target := from
	if target.Before(r.StartDate.Time) {
		target = r.StartDate
	}

	startMonths := r.StartDate.Year()*12 + int(r.StartDate.Month()) - 1
	targetMonths := target.Year()*12 + int(target.Month()) - 1
	k := 0
	if diff := targetMonths - startMonths; diff > 0 {
		k = diff / step
	}

	for {
		due := occurrence(startMonths+k*step, r.PaymentDay)
		if !due.Before(target.Time) {
			if !r.EndDate.IsZero() && due.After(r.EndDate.Time) {
				return core.Date{}
			}
			return due
		}
		k++
	}
}

// occurrence is day (clamped) of the month numbered months since year 0.
func occurrence(months, day int) core.Date {
	year, month := months/12, time.Month(months%12+1)
	if last := daysIn(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return core.NewDate(year, month, day)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dueStrategies maps frequencies to their strategies.
var dueStrategies = map[core.Frequency]DueDateStrategy{
	core.Monthly:   MonthlyStrategy{},
	core.Quarterly: QuarterlyStrategy{},
	core.Annual:    AnnualStrategy{},
}

// GetDueStrategy returns the strategy for a frequency.
// Returns an error if the frequency is not supported.
func GetDueStrategy(frequency core.Frequency) (DueDateStrategy, error) {
	strategy, ok := dueStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return strategy, nil
}

// UpcomingDues lists recurring fixed costs falling due between now and
// now+horizon, both inclusive, ordered by due date. Costs without a
// recurrence or with an unknown frequency are skipped.
func UpcomingDues(costs []core.FixedCost, now core.Date, horizon time.Duration) []core.DueItem {
	until := core.DateOf(now.Add(horizon))
	var out []core.DueItem
	for _, fc := range costs {
		if fc.Recurrence == nil {
			continue
		}
		strategy, err := GetDueStrategy(fc.Recurrence.Frequency)
		if err != nil {
			continue
		}
		due := strategy.NextDue(*fc.Recurrence, now)
		if due.IsZero() || due.After(until.Time) {
			continue
		}
		out = append(out, core.DueItem{
			FixedCostID: fc.ID,
			Category:    fc.Category,
			Description: fc.Description,
			Amount:      fc.Amount,
			Frequency:   fc.Recurrence.Frequency,
			DueDate:     due,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate.Time) {
			return out[i].DueDate.Before(out[j].DueDate.Time)
		}
		return out[i].FixedCostID < out[j].FixedCostID
	})
	return out
}
