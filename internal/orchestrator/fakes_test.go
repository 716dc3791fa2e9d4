package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/climate"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/source"
)

// fakePrecise is an in-memory PreciseSource. By default every year resolves
// to one granule per variable and every read succeeds instantly.
type fakePrecise struct {
	mu          sync.Mutex
	searchCalls int
	readCalls   int
	inFlight    int
	maxInFlight int

	// missingYears lists years that resolve to no granules at all.
	missingYears map[int]bool
	// blockReads makes reads hang until the context is cancelled.
	blockReads bool
	readDelay  time.Duration
	searchErr  error

	precipValue float64
	tempMax     float64
}

func newFakePrecise() *fakePrecise {
	return &fakePrecise{
		missingYears: make(map[int]bool),
		precipValue:  2.0,
		tempMax:      30.0,
	}
}

func (f *fakePrecise) SearchGranules(ctx context.Context, loc climate.Location, start, end time.Time, v source.Variable) ([]source.GranuleRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.searchCalls++
	missing := f.missingYears[start.UTC().Year()]
	err := f.searchErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if missing {
		return nil, nil
	}
	return []source.GranuleRef{{
		ID:       "granule",
		URL:      "https://example.test/granule",
		Year:     start.UTC().Year(),
		Variable: v,
	}}, nil
}

func (f *fakePrecise) ReadPrecip(ctx context.Context, ref source.GranuleRef, loc climate.Location) (float64, error) {
	if err := f.trackRead(ctx); err != nil {
		return 0, err
	}
	return f.precipValue, nil
}

func (f *fakePrecise) ReadThermo(ctx context.Context, ref source.GranuleRef, loc climate.Location) (source.Thermo, error) {
	if err := f.trackRead(ctx); err != nil {
		return source.Thermo{}, err
	}
	return source.Thermo{TempMax: f.tempMax, TempMin: f.tempMax - 10, WindSpeed: 4}, nil
}

func (f *fakePrecise) trackRead(ctx context.Context) error {
	f.mu.Lock()
	f.readCalls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	block := f.blockReads
	delay := f.readDelay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return ctx.Err()
}

func (f *fakePrecise) searches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls
}

func (f *fakePrecise) maxConcurrentReads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// fakeFast is an in-memory FastSource returning a fixed series.
type fakeFast struct {
	mu    sync.Mutex
	calls int

	obs []climate.Observation
	err error
}

func (f *fakeFast) Name() string { return "NASA POWER" }

func (f *fakeFast) FetchSeries(ctx context.Context, loc climate.Location, day climate.CalendarDay, yearsBack int) ([]climate.Observation, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.obs, nil
}

func (f *fakeFast) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastObs(n int) []climate.Observation {
	out := make([]climate.Observation, n)
	for i := range out {
		out[i] = climate.Observation{
			Date:      "2020-06-15",
			TempMax:   28,
			TempMin:   18,
			Precip:    1.5,
			WindSpeed: 3,
		}
	}
	return out
}

var errUpstream = errors.New("upstream unavailable")

func testCollector(precise source.PreciseSource, concurrency int) *Collector {
	c := NewCollector(precise, time.Minute, concurrency, 8)
	c.nowYear = func() int { return 2025 }
	return c
}

func testQuery(yearsBack int, mode climate.Mode) climate.Query {
	return climate.Query{
		Location:  climate.Location{Lat: 40.71, Lon: -74.01},
		Day:       climate.CalendarDay{Month: 6, Day: 15},
		YearsBack: yearsBack,
		Mode:      mode,
	}
}
