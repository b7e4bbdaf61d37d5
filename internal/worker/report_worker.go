// Package worker exports ledger statements to the report sheet in response
// to ledger change events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/ledger"
	applog "finledger/internal/log"
	"finledger/internal/sheets"
)

// SnapshotLoader reads the last persisted ledger state.
type SnapshotLoader interface {
	LoadInitial(ctx context.Context) (*ledger.Snapshot, error)
}

// ReportWorker writes the current month, current year and lifetime
// statements whenever the ledger changes.
type ReportWorker struct {
	source SnapshotLoader
	writer sheets.ReportWriter
	now    func() time.Time

	mu           sync.Mutex
	lastExported uint64
}

func NewReportWorker(source SnapshotLoader, writer sheets.ReportWriter) *ReportWorker {
	return &ReportWorker{
		source: source,
		writer: writer,
		now:    time.Now,
	}
}

// HandleLedgerChanged processes a single ledger change message from AMQP
func (w *ReportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		applog.FieldVersion, msg.Version,
		applog.FieldOperation, msg.Operation)

	snap, err := w.source.LoadInitial(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		slog.WarnContext(ctx, "No persisted ledger, nothing to export", applog.FieldVersion, msg.Version)
		return nil
	}
	if snap.Version < msg.Version {
		// the snapshot save failed or lags; export what is stored
		slog.WarnContext(ctx, "Persisted ledger is behind the change message",
			"stored_version", snap.Version,
			applog.FieldVersion, msg.Version)
	}

	return w.ExportSnapshot(ctx, *snap)
}

// StartupExport exports the persisted ledger once, recovering from changes
// announced while the worker was down.
func (w *ReportWorker) StartupExport(ctx context.Context) error {
	snap, err := w.source.LoadInitial(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot for startup export: %w", err)
	}
	if snap == nil {
		slog.InfoContext(ctx, "No persisted ledger found on startup")
		return nil
	}
	return w.ExportSnapshot(ctx, *snap)
}

// ExportSnapshot writes the statements of snap. Versions that were already
// exported are skipped.
func (w *ReportWorker) ExportSnapshot(ctx context.Context, snap ledger.Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if snap.Version != 0 && snap.Version <= w.lastExported {
		slog.DebugContext(ctx, "Ledger version already exported", applog.FieldVersion, snap.Version)
		return nil
	}

	now := w.now()
	month := core.ForMonth(now.Month(), now.Year())
	year := core.ForYear(now.Year())
	reports := []struct {
		label string
		stats core.Stats
	}{
		{month.Label(), ledger.ComputeStats(snap, month)},
		{year.Label(), ledger.ComputeStats(snap, year)},
		{core.AllTime().Label(), ledger.ComputeLifetimeStats(snap)},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range reports {
		r := r
		g.Go(func() error {
			ref, err := w.writer.WriteReport(gctx, r.label, r.stats)
			if err != nil {
				return fmt.Errorf("write report %s: %w", r.label, err)
			}
			slog.DebugContext(gctx, "Report exported",
				applog.FieldPeriod, r.label,
				"sheets_ref", ref)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.lastExported = snap.Version
	slog.InfoContext(ctx, "Ledger statements exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldVersion, snap.Version,
		"reports", len(reports))
	return nil
}
