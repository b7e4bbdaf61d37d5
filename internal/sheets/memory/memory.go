// Package memory is an in-process report sink used when Sheets export is
// not configured, and in tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"finledger/internal/core"
	ports "finledger/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	order  []string
	byKey  map[string]core.Stats
	writes int
}

var (
	_ ports.ReportWriter = (*Store)(nil)
	_ ports.ReportLister = (*Store)(nil)
)

func New() *Store {
	return &Store{byKey: make(map[string]core.Stats)}
}

// WriteReport stores the statement and returns a synthetic row reference.
func (s *Store) WriteReport(_ context.Context, label string, stats core.Stats) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", errors.New("empty report label")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[label]; !ok {
		s.order = append(s.order, label)
	}
	s.byKey[label] = stats
	s.writes++
	return fmt.Sprintf("mem:%s", label), nil
}

// ListReports returns reports in first-written order.
func (s *Store) ListReports(_ context.Context) ([]ports.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.Report, 0, len(s.order))
	for _, label := range s.order {
		out = append(out, ports.Report{Label: label, Stats: s.byKey[label]})
	}
	return out, nil
}

// Report returns the stored statement for label.
func (s *Store) Report(label string) (core.Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byKey[label]
	return st, ok
}

// Writes counts WriteReport calls, including overwrites.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
