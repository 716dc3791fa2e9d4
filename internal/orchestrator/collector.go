package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/climate"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/source"
)

// Collector fans a historical range out into per-year fetches under the
// shared extraction semaphore, consumes completions in arrival order, and
// stops early once enough observations have accumulated.
type Collector struct {
	cache   *SearchCache
	fetcher *unitFetcher
	nowYear func() int
}

// NewCollector creates a Collector over the precise source. concurrency
// bounds simultaneous per-year extractions for the lifetime of the collector,
// shared across every batch rather than reset per year.
func NewCollector(precise source.PreciseSource, ttl time.Duration, concurrency, searchConcurrency int) *Collector {
	return &Collector{
		cache:   NewSearchCache(precise, ttl, searchConcurrency),
		fetcher: newUnitFetcher(precise, concurrency),
		nowYear: func() int { return time.Now().UTC().Year() },
	}
}

// Cache exposes the search cache for the janitor.
func (c *Collector) Cache() *SearchCache {
	return c.cache
}

type unitResult struct {
	obs climate.Observation
	ok  bool
}

// CollectYears fetches the requested calendar day for each of the last
// yearsBack years. Handles are resolved once for the whole batch; years
// without any handle never consume a task slot. Once sufficiency observations
// have arrived, all pending work is cancelled and the collected slice is
// returned immediately; stragglers finish into a buffered channel and are
// discarded without being awaited. The returned order is completion order and
// carries no guarantee.
func (c *Collector) CollectYears(ctx context.Context, loc climate.Location, day climate.CalendarDay, yearsBack, sufficiency int) []climate.Observation {
	started := time.Now()

	// Most recent years first: recent data has better availability.
	current := c.nowYear()
	years := make([]int, 0, yearsBack)
	for year := current - 1; year >= current-yearsBack; year-- {
		years = append(years, year)
	}

	precipRefs, thermoRefs := c.cache.Resolve(ctx, loc, day, years)

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered to the maximum number of tasks so cancelled stragglers can
	// complete and be dropped without anyone receiving from them.
	results := make(chan unitResult, len(years))
	launched := 0

	for _, year := range years {
		var precipRef, thermoRef *source.GranuleRef
		if ref, ok := precipRefs[year]; ok {
			r := ref
			precipRef = &r
		}
		if ref, ok := thermoRefs[year]; ok {
			r := ref
			thermoRef = &r
		}
		if precipRef == nil && thermoRef == nil {
			continue
		}

		launched++
		year := year
		go func() {
			obs, ok := c.fetcher.FetchYear(batchCtx, loc, day, year, precipRef, thermoRef)
			results <- unitResult{obs: obs, ok: ok}
		}()
	}

	var collected []climate.Observation
	for done := 0; done < launched; done++ {
		select {
		case <-ctx.Done():
			return collected
		case r := <-results:
			if !r.ok {
				continue
			}
			collected = append(collected, r.obs)
			if sufficiency > 0 && len(collected) >= sufficiency {
				cancel()
				log.Printf("collector: %d/%d points after %.2fs, cancelling %d pending",
					len(collected), launched, time.Since(started).Seconds(), launched-done-1)
				return collected
			}
		}
	}

	log.Printf("collector: %d/%d years yielded data in %.2fs", len(collected), len(years), time.Since(started).Seconds())
	return collected
}
