package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finledger/internal/cache"
	"finledger/internal/core"
	"finledger/internal/ledger"
	applog "finledger/internal/log"
	"finledger/internal/storage"
)

// ErrResetNotConfirmed is returned by Reset without the confirm flag.
var ErrResetNotConfirmed = errors.New("reset requires confirmation")

const (
	eventBuffer    = 64
	publishTimeout = 10 * time.Second
)

// ChangePublisher announces committed ledger versions.
type ChangePublisher interface {
	PublishLedgerChanged(ctx context.Context, version uint64, op string) error
}

// LedgerService orchestrates the ledger store with persistence, change
// events and cached reports. Every mutation of the embedded store is saved
// to the repository before the writer lock is released; events are
// published in the background.
type LedgerService struct {
	*ledger.Store

	repo      storage.SnapshotRepository
	publisher ChangePublisher
	reports   *ReportCache
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool
	events chan changeEvent
	done   chan struct{}
}

type changeEvent struct {
	version uint64
	op      string
}

// NewLedgerService wires store to its collaborators. repo, publisher and
// reports may be nil.
func NewLedgerService(store *ledger.Store, repo storage.SnapshotRepository, publisher ChangePublisher, reports *ReportCache, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	if reports == nil {
		reports = NewReportCache(64, 5*time.Minute)
	}
	s := &LedgerService{
		Store:     store,
		repo:      repo,
		publisher: publisher,
		reports:   reports,
		logger:    logger,
		events:    make(chan changeEvent, eventBuffer),
		done:      make(chan struct{}),
	}
	store.OnChange(s.onChange)
	go s.publishLoop()
	return s
}

// Load restores the persisted snapshot. With nothing stored the store keeps
// its defaults.
func (s *LedgerService) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	snap, err := s.repo.LoadInitial(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if snap == nil {
		s.logger.InfoContext(ctx, "No stored ledger, starting from defaults")
		return nil
	}
	if err := s.Restore(ctx, *snap); err != nil {
		return err
	}
	s.reports.Invalidate()
	return nil
}

func (s *LedgerService) onChange(ctx context.Context, op string, snap ledger.Snapshot) {
	if s.repo != nil {
		if err := s.repo.Save(ctx, op, snap); err != nil {
			s.logger.ErrorContext(ctx, "Failed to persist ledger snapshot",
				applog.FieldError, err,
				applog.FieldOperation, applog.OpPersist,
				applog.FieldVersion, snap.Version,
				"change", op)
		}
	}

	s.reports.Invalidate()

	if s.publisher == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- changeEvent{version: snap.Version, op: op}:
	default:
		// consumers re-read the whole ledger, a later event covers this one
		s.logger.WarnContext(ctx, "Change event buffer full, event dropped",
			applog.FieldVersion, snap.Version,
			"change", op)
	}
}

func (s *LedgerService) publishLoop() {
	defer close(s.done)
	for ev := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := s.publisher.PublishLedgerChanged(ctx, ev.version, ev.op); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish ledger change",
				applog.FieldError, err,
				applog.FieldOperation, applog.OpPublish,
				applog.FieldVersion, ev.version)
		}
		cancel()
	}
}

// ReportStats is the cached period statement.
func (s *LedgerService) ReportStats(period core.Period) core.Stats {
	return s.reports.Stats(s.Version(), "period:"+period.Label(), func() core.Stats {
		return s.Store.ReportStats(period)
	})
}

// FinancialStats is the cached lifetime statement.
func (s *LedgerService) FinancialStats() core.Stats {
	return s.reports.Stats(s.Version(), "lifetime", s.Store.FinancialStats)
}

// PartnerBalances is the cached partner allocation for a period.
func (s *LedgerService) PartnerBalances(period core.Period) []core.PartnerBalance {
	return s.reports.PartnerBalances(s.Version(), period.Label(), func() []core.PartnerBalance {
		return s.Store.PartnerBalances(period)
	})
}

// RegisterCaches hands the report caches to m for periodic cleanup.
func (s *LedgerService) RegisterCaches(m *cache.Manager) {
	s.reports.Register(m)
}

// Dues lists recurring fixed costs due within horizon of now.
func (s *LedgerService) Dues(now time.Time, horizon time.Duration) []core.DueItem {
	return UpcomingDues(s.FixedCosts(), core.DateOf(now), horizon)
}

// Reset wipes the ledger back to defaults when confirm is set.
func (s *LedgerService) Reset(ctx context.Context, confirm bool) error {
	if !confirm {
		return ErrResetNotConfirmed
	}
	s.logger.WarnContext(ctx, "Resetting ledger to defaults", applog.FieldVersion, s.Version())
	return s.ResetAll(ctx)
}

// Close flushes pending change events and closes the repository.
func (s *LedgerService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()
	<-s.done

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			return fmt.Errorf("close ledger service: %w", err)
		}
	}
	return nil
}
