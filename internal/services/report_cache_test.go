package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"finledger/internal/cache"
	"finledger/internal/core"
)

func TestReportCache_VersionedKeys(t *testing.T) {
	c := NewReportCache(8, time.Minute)
	calls := 0
	compute := func() core.Stats {
		calls++
		return core.Stats{Income: core.MoneyFromInt(int64(calls))}
	}

	a := c.Stats(1, "2026", compute)
	b := c.Stats(1, "2026", compute)
	if calls != 1 || !a.Income.Equal(b.Income) {
		t.Fatalf("calls = %d, a=%s b=%s", calls, a.Income, b.Income)
	}
	c.Stats(2, "2026", compute)
	if calls != 2 {
		t.Errorf("new version should recompute, calls = %d", calls)
	}

	c.Invalidate()
	c.Stats(2, "2026", compute)
	if calls != 3 {
		t.Errorf("Invalidate should drop entries, calls = %d", calls)
	}
}

func TestReportCache_SharesConcurrentMisses(t *testing.T) {
	c := NewReportCache(8, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() []core.PartnerBalance {
		calls.Add(1)
		<-release
		return []core.PartnerBalance{{Name: "Partner 1"}}
	}

	var wg sync.WaitGroup
	results := make([][]core.PartnerBalance, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.PartnerBalances(3, "all", compute)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("compute ran %d times, want 1", n)
	}
	for i, r := range results {
		if len(r) != 1 || r[0].Name != "Partner 1" {
			t.Errorf("result %d = %+v", i, r)
		}
	}
}

func TestReportCache_Register(t *testing.T) {
	c := NewReportCache(8, time.Nanosecond)
	c.Stats(1, "x", func() core.Stats { return core.Stats{} })
	time.Sleep(time.Millisecond)

	m := cache.NewManager(nil)
	c.Register(m)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("CleanNow() = %d, want 1", n)
	}
}
