package services

import (
	"testing"
	"time"

	"finledger/internal/core"
)

func recurrence(freq core.Frequency, day int, start, end string) core.Recurrence {
	r := core.Recurrence{Frequency: freq, PaymentDay: day, StartDate: core.MustParseDate(start)}
	if end != "" {
		r.EndDate = core.MustParseDate(end)
	}
	return r
}

func TestMonthlyStrategy_NextDue(t *testing.T) {
	strategy := MonthlyStrategy{}

	tests := []struct {
		name string
		r    core.Recurrence
		from string
		want string
	}{
		{
			name: "same month, day ahead",
			r:    recurrence(core.Monthly, 20, "2026-01-01", ""),
			from: "2026-03-10",
			want: "2026-03-20",
		},
		{
			name: "due today",
			r:    recurrence(core.Monthly, 10, "2026-01-01", ""),
			from: "2026-03-10",
			want: "2026-03-10",
		},
		{
			name: "day passed - next month",
			r:    recurrence(core.Monthly, 5, "2026-01-01", ""),
			from: "2026-03-10",
			want: "2026-04-05",
		},
		{
			name: "day clamped to february",
			r:    recurrence(core.Monthly, 31, "2026-01-01", ""),
			from: "2026-02-01",
			want: "2026-02-28",
		},
		{
			name: "leap year february",
			r:    recurrence(core.Monthly, 30, "2028-01-01", ""),
			from: "2028-02-01",
			want: "2028-02-29",
		},
		{
			name: "before start uses start",
			r:    recurrence(core.Monthly, 5, "2026-06-20", ""),
			from: "2026-01-01",
			want: "2026-07-05",
		},
		{
			name: "year rollover",
			r:    recurrence(core.Monthly, 15, "2026-01-01", ""),
			from: "2026-12-20",
			want: "2027-01-15",
		},
		{
			name: "ended",
			r:    recurrence(core.Monthly, 15, "2026-01-01", "2026-03-31"),
			from: "2026-04-01",
			want: "",
		},
		{
			name: "last payment on end date",
			r:    recurrence(core.Monthly, 31, "2026-01-01", "2026-03-31"),
			from: "2026-03-01",
			want: "2026-03-31",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strategy.NextDue(tt.r, core.MustParseDate(tt.from))
			if got.String() != tt.want {
				t.Errorf("MonthlyStrategy.NextDue() = %q, want %q", got.String(), tt.want)
			}
		})
	}
}

func TestQuarterlyStrategy_NextDue(t *testing.T) {
	strategy := QuarterlyStrategy{}
	r := recurrence(core.Quarterly, 10, "2026-02-01", "")

	tests := []struct {
		from string
		want string
	}{
		{"2026-01-15", "2026-02-10"},
		{"2026-02-10", "2026-02-10"},
		{"2026-02-11", "2026-05-10"},
		{"2026-04-30", "2026-05-10"},
		{"2026-11-11", "2027-02-10"},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			got := strategy.NextDue(r, core.MustParseDate(tt.from))
			if got.String() != tt.want {
				t.Errorf("QuarterlyStrategy.NextDue(%s) = %q, want %q", tt.from, got.String(), tt.want)
			}
		})
	}
}

func TestAnnualStrategy_NextDue(t *testing.T) {
	strategy := AnnualStrategy{}

	tests := []struct {
		name string
		r    core.Recurrence
		from string
		want string
	}{
		{"this year", recurrence(core.Annual, 15, "2025-06-01", ""), "2026-03-01", "2026-06-15"},
		{"passed this year", recurrence(core.Annual, 15, "2025-06-01", ""), "2026-07-01", "2027-06-15"},
		{"leap day clamped", recurrence(core.Annual, 29, "2028-02-01", ""), "2029-01-01", "2029-02-28"},
		{"ended", recurrence(core.Annual, 1, "2020-01-01", "2025-12-31"), "2026-01-01", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strategy.NextDue(tt.r, core.MustParseDate(tt.from))
			if got.String() != tt.want {
				t.Errorf("AnnualStrategy.NextDue() = %q, want %q", got.String(), tt.want)
			}
		})
	}
}

func TestGetDueStrategy(t *testing.T) {
	tests := []struct {
		frequency core.Frequency
		wantType  string
		wantErr   bool
	}{
		{core.Monthly, "MonthlyStrategy", false},
		{core.Quarterly, "QuarterlyStrategy", false},
		{core.Annual, "AnnualStrategy", false},
		{core.Frequency("Weekly"), "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			strategy, err := GetDueStrategy(tt.frequency)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetDueStrategy() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			var name string
			switch strategy.(type) {
			case MonthlyStrategy:
				name = "MonthlyStrategy"
			case QuarterlyStrategy:
				name = "QuarterlyStrategy"
			case AnnualStrategy:
				name = "AnnualStrategy"
			}
			if name != tt.wantType {
				t.Errorf("GetDueStrategy() = %T, want %s", strategy, tt.wantType)
			}
		})
	}
}

func TestUpcomingDues(t *testing.T) {
	monthly := recurrence(core.Monthly, 5, "2026-01-01", "")
	annual := recurrence(core.Annual, 20, "2025-03-01", "")
	far := recurrence(core.Monthly, 28, "2026-01-01", "")

	costs := []core.FixedCost{
		{ID: "hosting", Category: "Hosting", Amount: core.MustParseMoney("29.90"), Recurrence: &monthly},
		{ID: "domain", Category: "Domain", Amount: core.MustParseMoney("12"), Recurrence: &annual},
		{ID: "office", Category: "Office", Amount: core.MustParseMoney("800"), Recurrence: &far},
		{ID: "one-off", Category: "Software", Amount: core.MustParseMoney("99")},
	}

	now := core.MustParseDate("2026-03-01")
	got := UpcomingDues(costs, now, 21*24*time.Hour)

	if len(got) != 2 {
		t.Fatalf("UpcomingDues() returned %d items, want 2: %+v", len(got), got)
	}
	if got[0].FixedCostID != "hosting" || got[0].DueDate.String() != "2026-03-05" {
		t.Errorf("first due = %+v", got[0])
	}
	if got[1].FixedCostID != "domain" || got[1].DueDate.String() != "2026-03-20" {
		t.Errorf("second due = %+v", got[1])
	}
	if got[0].Frequency != core.Monthly || !got[0].Amount.Equal(core.MustParseMoney("29.90")) {
		t.Errorf("item fields not copied: %+v", got[0])
	}

	if dues := UpcomingDues(costs, now, 0); len(dues) != 0 {
		t.Errorf("zero horizon returned %+v", dues)
	}
}
