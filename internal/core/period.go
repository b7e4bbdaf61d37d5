package core

import (
	"fmt"
	"time"
)

// Period is an optional (month, year) filter. A nil axis matches everything.
type Period struct {
	Month *time.Month
	Year  *int
}

// AllTime matches every date.
func AllTime() Period { return Period{} }

// ForYear matches every month of year.
func ForYear(year int) Period { return Period{Year: &year} }

// ForMonth matches a single month of a year.
func ForMonth(month time.Month, year int) Period { return Period{Month: &month, Year: &year} }

// PeriodFromIndex builds a Period from a 0-indexed month (0 = January), as
// used on the wire by report clients.
func PeriodFromIndex(monthIndex, year *int) (Period, error) {
	var p Period
	if monthIndex != nil {
		if *monthIndex < 0 || *monthIndex > 11 {
			return Period{}, fmt.Errorf("%w: month index %d", ErrInvalidPeriod, *monthIndex)
		}
		m := time.Month(*monthIndex + 1)
		p.Month = &m
	}
	if year != nil {
		y := *year
		p.Year = &y
	}
	return p, nil
}

// Contains reports whether d falls in the period. Empty dates never match a
// bounded period.
func (p Period) Contains(d Date) bool {
	if p.Year == nil && p.Month == nil {
		return true
	}
	if d.IsZero() {
		return false
	}
	if p.Year != nil && d.Year() != *p.Year {
		return false
	}
	if p.Month != nil && d.Month() != *p.Month {
		return false
	}
	return true
}

// Label is a short human label ("2026-01", "2026", "all").
func (p Period) Label() string {
	switch {
	case p.Year != nil && p.Month != nil:
		return fmt.Sprintf("%04d-%02d", *p.Year, int(*p.Month))
	case p.Year != nil:
		return fmt.Sprintf("%04d", *p.Year)
	case p.Month != nil:
		return fmt.Sprintf("*-%02d", int(*p.Month))
	default:
		return "all"
	}
}
