package main

import (
	"bytes"
	"strings"
	"testing"

	"finledger/internal/core"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount string
		code   string
		want   string
	}{
		{"1234.5", "USD", "$1,234.50"},
		{"0", "USD", "$0.00"},
		{"12.345", "USD", "$12.35"},
		{"10", "XXX-unknown", "10.00 XXX-unknown"},
	}
	for _, tt := range tests {
		if got := formatMoney(core.MustParseMoney(tt.amount), tt.code); got != tt.want {
			t.Errorf("formatMoney(%s, %s) = %q, want %q", tt.amount, tt.code, got, tt.want)
		}
	}
}

func TestPeriodFlags(t *testing.T) {
	tests := []struct {
		month, year int
		want        string
		wantErr     bool
	}{
		{0, 0, "all", false},
		{0, 2026, "2026", false},
		{3, 2026, "2026-03", false},
		{12, 2025, "2025-12", false},
		{13, 2026, "", true},
	}
	for _, tt := range tests {
		p := periodFlags{month: tt.month, year: tt.year}
		got, err := p.period()
		if (err != nil) != tt.wantErr {
			t.Fatalf("period(%d, %d) error = %v", tt.month, tt.year, err)
		}
		if err == nil && got.Label() != tt.want {
			t.Errorf("period(%d, %d) = %q, want %q", tt.month, tt.year, got.Label(), tt.want)
		}
	}
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	stats := core.Stats{
		Income:    core.MustParseMoney("1000"),
		NetProfit: core.MustParseMoney("850"),
	}
	if err := writeStats(&buf, stats, "USD"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Income", "$1,000.00", "Net profit", "$850.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
