package orchestrator

import (
	"context"
	"testing"
	"time"
)

func TestCollectYearsFullRange(t *testing.T) {
	precise := newFakePrecise()
	collector := testCollector(precise, 4)

	got := collector.CollectYears(context.Background(), cacheLoc, cacheDay, 5, 5)
	if len(got) != 5 {
		t.Fatalf("collected %d observations, want 5", len(got))
	}

	dates := make(map[string]bool)
	for _, obs := range got {
		dates[obs.Date] = true
		if obs.Precip != 2.0 || obs.TempMax != 30.0 {
			t.Fatalf("unexpected observation values: %+v", obs)
		}
	}
	for _, want := range []string{"2020-06-15", "2021-06-15", "2022-06-15", "2023-06-15", "2024-06-15"} {
		if !dates[want] {
			t.Errorf("missing observation for %s", want)
		}
	}
}

func TestCollectYearsSkipsYearsWithoutGranules(t *testing.T) {
	precise := newFakePrecise()
	precise.missingYears[2022] = true
	precise.missingYears[2023] = true
	collector := testCollector(precise, 4)

	got := collector.CollectYears(context.Background(), cacheLoc, cacheDay, 5, 5)
	if len(got) != 3 {
		t.Fatalf("collected %d observations, want 3", len(got))
	}
	for _, obs := range got {
		if obs.Date == "2022-06-15" || obs.Date == "2023-06-15" {
			t.Fatalf("observation for a granule-less year: %s", obs.Date)
		}
	}
}

func TestCollectYearsStopsAtSufficiency(t *testing.T) {
	precise := newFakePrecise()
	collector := testCollector(precise, 4)

	got := collector.CollectYears(context.Background(), cacheLoc, cacheDay, 10, 3)
	if len(got) != 3 {
		t.Fatalf("collected %d observations, want exactly 3 at sufficiency", len(got))
	}
}

func TestCollectYearsBoundedConcurrency(t *testing.T) {
	precise := newFakePrecise()
	precise.readDelay = 5 * time.Millisecond
	collector := testCollector(precise, 3)

	got := collector.CollectYears(context.Background(), cacheLoc, cacheDay, 12, 12)
	if len(got) != 12 {
		t.Fatalf("collected %d observations, want 12", len(got))
	}

	// Each in-flight year holds one slot and issues two reads.
	if max := precise.maxConcurrentReads(); max > 6 {
		t.Fatalf("observed %d concurrent reads, limit allows 6", max)
	}
}

func TestCollectYearsCancelledContext(t *testing.T) {
	precise := newFakePrecise()
	collector := testCollector(precise, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := collector.CollectYears(ctx, cacheLoc, cacheDay, 5, 5)
	if len(got) != 0 {
		t.Fatalf("cancelled collect returned %d observations, want 0", len(got))
	}
}

func TestCollectYearsReturnsPromptlyWhenBlocked(t *testing.T) {
	precise := newFakePrecise()
	precise.blockReads = true
	collector := testCollector(precise, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	started := time.Now()
	got := collector.CollectYears(ctx, cacheLoc, cacheDay, 5, 5)
	if len(got) != 0 {
		t.Fatalf("blocked collect returned %d observations, want 0", len(got))
	}
	if elapsed := time.Since(started); elapsed > 500*time.Millisecond {
		t.Fatalf("collect took %v after context expiry", elapsed)
	}
}
