// Package storage persists ledger snapshots in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"finledger/internal/ledger"

	_ "modernc.org/sqlite"
)

// SnapshotRepository is the persistence collaborator of the ledger store.
type SnapshotRepository interface {
	// LoadInitial returns the stored snapshot, or nil when nothing was saved.
	LoadInitial(ctx context.Context) (*ledger.Snapshot, error)
	Save(ctx context.Context, op string, snap ledger.Snapshot) error
	Close() error
}

// Change is one row of the mutation journal.
type Change struct {
	Version   uint64
	Operation string
	Balance   string
	CreatedAt time.Time
}

type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ SnapshotRepository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// single writer; the store already serializes mutations
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadInitial implements SnapshotRepository
func (r *SQLiteRepository) LoadInitial(ctx context.Context) (*ledger.Snapshot, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT snapshot FROM ledger_state WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap ledger.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	r.logger.InfoContext(ctx, "Ledger snapshot loaded from SQLite",
		"version", snap.Version,
		"transactions", len(snap.Transactions))
	return &snap, nil
}

// Save implements SnapshotRepository. Snapshots older than the stored one are
// ignored so a late writer cannot roll the state back.
func (r *SQLiteRepository) Save(ctx context.Context, op string, snap ledger.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_state (id, version, snapshot, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at
		WHERE excluded.version >= ledger_state.version`,
		snap.Version, string(data), now)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		r.logger.WarnContext(ctx, "Stale snapshot not saved", "version", snap.Version)
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO ledger_changes (version, operation, balance, created_at)
		VALUES (?, ?, ?, ?)`,
		snap.Version, op, snap.Totals.Balance.String(), now); err != nil {
		return fmt.Errorf("record change: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	r.logger.DebugContext(ctx, "Ledger snapshot saved to SQLite",
		"version", snap.Version,
		"operation", op)
	return nil
}

// Changes returns the most recent journal rows, newest first.
func (r *SQLiteRepository) Changes(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT version, operation, balance, created_at
		FROM ledger_changes
		ORDER BY version DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var (
			c       Change
			created string
		)
		if err := rows.Scan(&c.Version, &c.Operation, &c.Balance, &created); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return out, nil
}

// MemoryRepository keeps the last snapshot in memory. It backs
// DATA_BACKEND=memory and tests.
type MemoryRepository struct {
	mu    sync.Mutex
	snap  *ledger.Snapshot
	saves int
}

var _ SnapshotRepository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) LoadInitial(context.Context) (*ledger.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, nil
	}
	s := m.snap.Clone()
	return &s, nil
}

func (m *MemoryRepository) Save(_ context.Context, _ string, snap ledger.Snapshot) error {
	s := snap.Clone()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = &s
	m.saves++
	return nil
}

// Saves is the number of successful Save calls.
func (m *MemoryRepository) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryRepository) Close() error { return nil }
