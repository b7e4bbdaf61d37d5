package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finledger/internal/core"
	applog "finledger/internal/log"
	"finledger/internal/storage"
)

// DueProcessorConfig holds configuration for the due processor
type DueProcessorConfig struct {
	// Interval is how often upcoming dues are projected (default: 1h)
	Interval time.Duration

	// Horizon is how far ahead a fixed cost counts as upcoming (default: 7 days)
	Horizon time.Duration
}

// DefaultDueProcessorConfig returns sensible defaults
func DefaultDueProcessorConfig() DueProcessorConfig {
	return DueProcessorConfig{
		Interval: time.Hour,
		Horizon:  7 * 24 * time.Hour,
	}
}

// FixedCostSource provides the current fixed costs.
type FixedCostSource interface {
	FixedCosts(ctx context.Context) ([]core.FixedCost, error)
}

// FixedCostSourceFunc adapts a function to FixedCostSource.
type FixedCostSourceFunc func(ctx context.Context) ([]core.FixedCost, error)

func (f FixedCostSourceFunc) FixedCosts(ctx context.Context) ([]core.FixedCost, error) {
	return f(ctx)
}

// RepositoryFixedCosts reads fixed costs from the last persisted snapshot,
// for processes that do not own the ledger store.
func RepositoryFixedCosts(repo storage.SnapshotRepository) FixedCostSource {
	return FixedCostSourceFunc(func(ctx context.Context) ([]core.FixedCost, error) {
		snap, err := repo.LoadInitial(ctx)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			return nil, nil
		}
		return snap.FixedCosts, nil
	})
}

// DuePublisher delivers due notices.
type DuePublisher interface {
	PublishDueNotice(ctx context.Context, item core.DueItem) error
}

// DueProcessor periodically projects recurring fixed costs and publishes a
// notice for each payment entering the horizon. A payment is announced once
// per process lifetime.
type DueProcessor struct {
	source    FixedCostSource
	publisher DuePublisher
	config    DueProcessorConfig
	now       func() time.Time

	notifiedMu sync.Mutex
	notified   map[string]core.Date

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewDueProcessor creates a new due processor
func NewDueProcessor(source FixedCostSource, publisher DuePublisher, config DueProcessorConfig) *DueProcessor {
	return &DueProcessor{
		source:    source,
		publisher: publisher,
		config:    config,
		now:       time.Now,
		notified:  make(map[string]core.Date),
	}
}

// ProcessDue publishes notices for payments due within the horizon of now
// that were not announced yet. It returns the number of notices published.
func (p *DueProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.source == nil || p.publisher == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	costs, err := p.source.FixedCosts(ctx)
	if err != nil {
		return 0, fmt.Errorf("load fixed costs: %w", err)
	}

	today := core.DateOf(now)
	dues := UpcomingDues(costs, today, p.config.Horizon)

	p.notifiedMu.Lock()
	defer p.notifiedMu.Unlock()

	// forget payments that are behind us
	for key, due := range p.notified {
		if due.Before(today.Time) {
			delete(p.notified, key)
		}
	}

	published := 0
	for _, item := range dues {
		key := item.FixedCostID + "|" + item.DueDate.String()
		if _, seen := p.notified[key]; seen {
			continue
		}
		if err := p.publisher.PublishDueNotice(ctx, item); err != nil {
			slog.ErrorContext(ctx, "Failed to publish due notice",
				applog.FieldError, err,
				applog.FieldFixedCostID, item.FixedCostID,
				applog.FieldDueDate, item.DueDate.String())
			continue
		}
		p.notified[key] = item.DueDate
		published++
	}

	slog.InfoContext(ctx, "Due projection complete",
		applog.FieldOperation, applog.OpProject,
		"upcoming", len(dues),
		"published", published,
		"horizon", p.config.Horizon)

	return published, nil
}

// Start begins the processing loop. Returns an error if already running.
func (p *DueProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("due processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Due processor started",
		"interval", p.config.Interval,
		"horizon", p.config.Horizon)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *DueProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Due processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Due processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *DueProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *DueProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Process immediately on startup
	p.tick(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *DueProcessor) tick(ctx context.Context) {
	if _, err := p.ProcessDue(ctx, p.now()); err != nil {
		slog.ErrorContext(ctx, "Due projection failed", applog.FieldError, err)
	}
}
