package sheets

import (
	"context"

	"finledger/internal/core"
)

// Report is one exported statement row, keyed by its period label.
type Report struct {
	Label string
	Stats core.Stats
}

// Ports for outbound adapters.
type (
	// ReportWriter stores the statement for a period. Writing a label that is
	// already present overwrites it.
	ReportWriter interface {
		WriteReport(ctx context.Context, label string, stats core.Stats) (rowRef string, err error)
	}

	ReportLister interface {
		ListReports(ctx context.Context) ([]Report, error)
	}
)
