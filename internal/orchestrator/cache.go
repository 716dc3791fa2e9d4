package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/climate"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/metrics"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/source"
)

// searchEntry holds resolved granule handles for one canonical query. Replaced
// wholesale on expiry, never merged.
type searchEntry struct {
	precip  map[int]source.GranuleRef
	thermo  map[int]source.GranuleRef
	created time.Time
}

// SearchCache memoizes granule search results per canonical (location, day,
// year-range) query with a TTL. Searches run under their own semaphore, wider
// than the extraction bound since search calls are cheap.
type SearchCache struct {
	mu      sync.RWMutex
	entries map[string]*searchEntry

	precise source.PreciseSource
	ttl     time.Duration
	sem     chan struct{}
	now     func() time.Time
}

// NewSearchCache creates a cache backed by the given precise source.
func NewSearchCache(precise source.PreciseSource, ttl time.Duration, searchConcurrency int) *SearchCache {
	if searchConcurrency < 1 {
		searchConcurrency = 1
	}
	return &SearchCache{
		entries: make(map[string]*searchEntry),
		precise: precise,
		ttl:     ttl,
		sem:     make(chan struct{}, searchConcurrency),
		now:     time.Now,
	}
}

// Resolve returns per-year granule handles for both variables. A fresh cache
// hit never contacts the upstream; a miss searches every (year, variable)
// pair, tolerating individual failures as absence. The result is committed to
// the cache only when the batch ran to completion: a cancelled search must not
// poison the shared state.
func (c *SearchCache) Resolve(ctx context.Context, loc climate.Location, day climate.CalendarDay, years []int) (map[int]source.GranuleRef, map[int]source.GranuleRef) {
	key := cacheKey(loc, day, years)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.created) < c.ttl {
		metrics.SearchCacheLookups.WithLabelValues("hit").Inc()
		return copyRefs(entry.precip), copyRefs(entry.thermo)
	}
	metrics.SearchCacheLookups.WithLabelValues("miss").Inc()

	entry = c.searchAll(ctx, loc, day, years)

	if ctx.Err() == nil {
		c.mu.Lock()
		c.entries[key] = entry
		c.mu.Unlock()
	}

	return copyRefs(entry.precip), copyRefs(entry.thermo)
}

// PurgeExpired drops expired entries and returns how many were removed.
func (c *SearchCache) PurgeExpired() int {
	cutoff := c.now().Add(-c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.created.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// searchAll fans out one search per (year, variable) under the search
// semaphore and gathers whatever succeeded.
func (c *SearchCache) searchAll(ctx context.Context, loc climate.Location, day climate.CalendarDay, years []int) *searchEntry {
	entry := &searchEntry{
		precip:  make(map[int]source.GranuleRef),
		thermo:  make(map[int]source.GranuleRef),
		created: c.now(),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, year := range years {
		for _, variable := range []source.Variable{source.VariablePrecip, source.VariableThermo} {
			year, variable := year, variable
			wg.Add(1)
			go func() {
				defer wg.Done()

				select {
				case c.sem <- struct{}{}:
					defer func() { <-c.sem }()
				case <-ctx.Done():
					return
				}

				ref, ok := c.searchOne(ctx, loc, day, year, variable)
				if !ok {
					return
				}

				mu.Lock()
				if variable == source.VariablePrecip {
					entry.precip[year] = ref
				} else {
					entry.thermo[year] = ref
				}
				mu.Unlock()
			}()
		}
	}
	wg.Wait()

	return entry
}

// searchOne resolves a single (year, variable) pair to at most one granule.
// Failure and emptiness both mean absence.
func (c *SearchCache) searchOne(ctx context.Context, loc climate.Location, day climate.CalendarDay, year int, v source.Variable) (source.GranuleRef, bool) {
	start := time.Date(year, time.Month(day.Month), day.Day, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	refs, err := c.precise.SearchGranules(ctx, loc, start, end, v)
	if err != nil {
		log.Printf("search %s %d-%02d-%02d failed: %v", v, year, day.Month, day.Day, err)
		return source.GranuleRef{}, false
	}
	if len(refs) == 0 {
		return source.GranuleRef{}, false
	}
	return refs[0], true
}

// cacheKey canonicalizes a query: location rounded to two decimals plus the
// day and the year range bounds.
func cacheKey(loc climate.Location, day climate.CalendarDay, years []int) string {
	minYear, maxYear := years[0], years[0]
	for _, y := range years[1:] {
		if y < minYear {
			minYear = y
		}
		if y > maxYear {
			maxYear = y
		}
	}
	return fmt.Sprintf("%.2f:%.2f:%02d-%02d:%d-%d", loc.Lat, loc.Lon, day.Month, day.Day, minYear, maxYear)
}

func copyRefs(src map[int]source.GranuleRef) map[int]source.GranuleRef {
	dst := make(map[int]source.GranuleRef, len(src))
	for year, ref := range src {
		dst[year] = ref
	}
	return dst
}
