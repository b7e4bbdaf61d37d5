package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"finledger/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheet serves the two values endpoints used by Client over one grid.
type fakeSheet struct {
	mu      sync.Mutex
	rows    [][]any
	updates []string
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rng, ok := strings.Cut(r.URL.Path, "/values/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": f.rows})
	case http.MethodPut:
		var vr struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		row := rowOf(rng)
		for len(f.rows) < row {
			f.rows = append(f.rows, []any{})
		}
		f.rows[row-1] = vr.Values[0]
		f.updates = append(f.updates, rng)
		json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// rowOf extracts n from "Sheet!An:Kn".
func rowOf(rng string) int {
	_, cells, _ := strings.Cut(rng, "!")
	first, _, _ := strings.Cut(cells, ":")
	n, _ := strconv.Atoi(strings.TrimLeft(first, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	return n
}

func newFakeClient(t *testing.T) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return New(svc, "sheet-id", "Reports"), fake
}

func sampleStats(income string) core.Stats {
	return core.Stats{
		Income:                 core.MustParseMoney(income),
		Expenses:               core.MustParseMoney("150"),
		FixedCosts:             core.MustParseMoney("100"),
		VariableCosts:          core.MustParseMoney("50"),
		OperatingResult:        core.MustParseMoney(income).Sub(core.MustParseMoney("150")),
		EmergencyFundDeduction: core.MustParseMoney("12.75"),
		NetProfit:              core.MustParseMoney(income).Sub(core.MustParseMoney("162.75")),
	}
}

func TestWriteReport_HeaderAndUpsert(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)

	ref, err := c.WriteReport(ctx, "2026-01", sampleStats("1000"))
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if ref != "Reports!A2:K2" {
		t.Errorf("ref = %q, want Reports!A2:K2", ref)
	}
	if _, err := c.WriteReport(ctx, "2026-02", sampleStats("500")); err != nil {
		t.Fatal(err)
	}
	// rewriting a label updates in place
	ref, err = c.WriteReport(ctx, "2026-01", sampleStats("1200"))
	if err != nil {
		t.Fatal(err)
	}
	if ref != "Reports!A2:K2" {
		t.Errorf("upsert ref = %q, want Reports!A2:K2", ref)
	}
	if len(fake.rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(fake.rows))
	}

	reports, err := c.ListReports(ctx)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(reports))
	}
	if reports[0].Label != "2026-01" || !reports[0].Stats.Income.Equal(core.MustParseMoney("1200")) {
		t.Errorf("first report = %+v", reports[0])
	}
	if !reports[1].Stats.NetProfit.Equal(core.MustParseMoney("337.25")) {
		t.Errorf("net profit = %s, want 337.25", reports[1].Stats.NetProfit)
	}
}

func TestWriteReport_Validation(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Reports"}
	if _, err := c.WriteReport(context.Background(), " ", core.Stats{}); err == nil {
		t.Error("expected error for empty label")
	}
	if _, err := c.WriteReport(context.Background(), "2026", core.Stats{}); err == nil {
		t.Error("expected error without a service")
	}
	if _, err := c.ListReports(context.Background()); err == nil {
		t.Error("expected error without a service")
	}
}

func TestParseReports(t *testing.T) {
	values := [][]any{
		{"Net Profit", "Period", "Income", "Expenses", "Fixed Costs", "Variable Costs", "Investments",
			"Operating Result", "Emergency Fund", "Reinvestment", "Withdrawals"},
		{"-25.50", "2026-03", "100", "125.50", "100", "25.50", "0", "-25.50", "0", "0", "0"},
		{"", "", "", ""},
	}
	reports, err := parseReports(values)
	if err != nil {
		t.Fatalf("parseReports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
	r := reports[0]
	if r.Label != "2026-03" {
		t.Errorf("label = %q", r.Label)
	}
	if !r.Stats.NetProfit.Equal(core.MustParseMoney("25.50").Neg()) {
		t.Errorf("net profit = %s, want -25.50", r.Stats.NetProfit)
	}
	if !r.Stats.VariableCosts.Equal(core.MustParseMoney("25.50")) {
		t.Errorf("variable costs = %s", r.Stats.VariableCosts)
	}
}

func TestParseReports_MissingHeader(t *testing.T) {
	_, err := parseReports([][]any{{"Period", "Income"}})
	if err == nil || !strings.Contains(err.Error(), "unexpected report header") {
		t.Fatalf("expected header error, got %v", err)
	}
	if reports, err := parseReports(nil); err != nil || reports != nil {
		t.Errorf("empty sheet: %v %v", reports, err)
	}
}

func TestFindLabelRow(t *testing.T) {
	values := [][]any{{"Period"}, {"2026-01"}, {}, {" 2026 "}}
	tests := []struct {
		label string
		want  int
	}{
		{"2026-01", 2},
		{"2026", 4},
		{"Period", -1},
		{"2025", -1},
	}
	for _, tt := range tests {
		if got := findLabelRow(values, tt.label); got != tt.want {
			t.Errorf("findLabelRow(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}

func TestNewSheetsService_Credentials(t *testing.T) {
	ctx := context.Background()

	if _, err := newSheetsService(ctx, Credentials{}); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("expected missing credentials error, got %v", err)
	}

	missing := filepath.Join(t.TempDir(), "nope.json")
	if _, err := newSheetsService(ctx, Credentials{File: missing}); err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("expected read error, got %v", err)
	}

	if _, err := NewClient(ctx, "  ", "Reports", Credentials{JSON: "{}"}); err == nil {
		t.Error("expected error for missing spreadsheet id")
	}
}

func TestNew_DefaultSheetName(t *testing.T) {
	c := New(nil, "id", "")
	if c.sheetName != "Reports" {
		t.Errorf("sheetName = %q", c.sheetName)
	}
	if lastColumn() != "K" {
		t.Errorf("lastColumn() = %q", lastColumn())
	}
}
