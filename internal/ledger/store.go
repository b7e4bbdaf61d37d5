// Package ledger holds the authoritative state of the business ledger and the
// only operations allowed to change it.
//
// Every mutation is serialized through a single writer. Each mutation works on
// a private copy of the state and publishes it atomically, so readers always
// see either the state before or after a mutation and can compute reports
// without holding a lock.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"finledger/internal/core"
)

// ChangeListener is called after every successful mutation with the newly
// published snapshot. The snapshot is shared and must be treated as read-only.
type ChangeListener func(ctx context.Context, op string, snap Snapshot)

// Store is the single owner of the ledger state.
type Store struct {
	writeMu sync.Mutex // serializes mutations and their notifications

	mu    sync.RWMutex
	state *Snapshot // published, never modified after publication

	listeners []ChangeListener
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

type Option func(*Store)

// WithLogger sets the logger used for ledger events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces the UUID generator used for new records.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock replaces time.Now, used to stamp new projects.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// New creates a store initialized with the default catalogs, partners and
// configuration.
func New(opts ...Option) *Store {
	s := &Store{
		logger: slog.Default(),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	def := DefaultSnapshot(s.newID)
	s.state = &def
	return s
}

// OnChange registers a listener. Listeners run in registration order on the
// goroutine of the mutating caller.
func (s *Store) OnChange(l ChangeListener) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// current returns the published state. Callers must not modify it.
func (s *Store) current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	return s.current().Clone()
}

// Version is incremented by every successful mutation.
func (s *Store) Version() uint64 {
	return s.current().Version
}

// Restore replaces the whole state, typically at startup with the snapshot
// loaded by the persistence layer. Snapshots whose totals do not match their
// transaction log are refused. Listeners are not notified.
func (s *Store) Restore(ctx context.Context, snap Snapshot) error {
	if err := snap.Verify(); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	next := snap.Clone()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	s.state = &next
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "Ledger restored",
		"version", next.Version,
		"transactions", len(next.Transactions),
		"projects", len(next.Projects))
	return nil
}

// ResetAll discards every record and returns the store to its defaults. The
// operation cannot be undone; confirmation belongs to the caller.
func (s *Store) ResetAll(ctx context.Context) error {
	return s.mutate(ctx, "reset", func(st *Snapshot) error {
		def := DefaultSnapshot(s.newID)
		def.Version = st.Version
		*st = def
		return nil
	})
}

// Verify replays the transaction log against the cached totals.
func (s *Store) Verify() error {
	return s.current().Verify()
}

// errNoChange lets a mutation finish successfully without publishing a new
// version.
var errNoChange = errors.New("no change")

// mutate runs fn on a private copy of the state and publishes it when fn
// succeeds. A failing fn leaves the published state untouched.
func (s *Store) mutate(ctx context.Context, op string, fn func(st *Snapshot) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.current().Clone()
	if err := fn(&next); err != nil {
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}
	next.Version++

	s.mu.Lock()
	s.state = &next
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Ledger mutation applied",
		"operation", op,
		"version", next.Version)

	for _, l := range s.listeners {
		l(ctx, op, next)
	}
	return nil
}

// SetFinancialConfig replaces the deduction percentages.
func (s *Store) SetFinancialConfig(ctx context.Context, cfg core.FinancialConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.mutate(ctx, "set_config", func(st *Snapshot) error {
		st.Config = cfg
		return nil
	})
}

// Totals returns the cached running aggregates.
func (s *Store) Totals() Totals {
	return s.current().Totals
}

// Transactions returns a copy of the audit log.
func (s *Store) Transactions() []core.Transaction {
	return s.Snapshot().Transactions
}

// FixedCosts returns a copy of the fixed cost records.
func (s *Store) FixedCosts() []core.FixedCost {
	return s.Snapshot().FixedCosts
}

// Catalog returns a copy of the catalogs.
func (s *Store) Catalog() core.Catalog {
	return s.Snapshot().Catalog
}
