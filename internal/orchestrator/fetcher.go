package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/climate"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/source"
)

// unitFetcher extracts both variables for a single historical year. One slot
// of the shared extraction semaphore is held around all I/O for the year.
type unitFetcher struct {
	precise source.PreciseSource
	sem     chan struct{}
}

func newUnitFetcher(precise source.PreciseSource, concurrency int) *unitFetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &unitFetcher{
		precise: precise,
		sem:     make(chan struct{}, concurrency),
	}
}

// FetchYear reads precipitation and temperature/wind for one year. A read
// failure for either variable is absence of that variable, not failure of the
// unit; an observation is returned only when at least one variable yielded
// data, with the missing half zeroed.
func (f *unitFetcher) FetchYear(ctx context.Context, loc climate.Location, day climate.CalendarDay, year int, precipRef, thermoRef *source.GranuleRef) (climate.Observation, bool) {
	select {
	case f.sem <- struct{}{}:
		defer func() { <-f.sem }()
	case <-ctx.Done():
		return climate.Observation{}, false
	}

	var (
		wg     sync.WaitGroup
		precip *float64
		thermo *source.Thermo
	)

	if precipRef != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, err := f.precise.ReadPrecip(ctx, *precipRef, loc)
			if err != nil {
				log.Printf("precip read %d failed: %v", year, err)
				return
			}
			precip = &val
		}()
	}

	if thermoRef != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, err := f.precise.ReadThermo(ctx, *thermoRef, loc)
			if err != nil {
				log.Printf("thermo read %d failed: %v", year, err)
				return
			}
			thermo = &val
		}()
	}

	wg.Wait()

	if precip == nil && thermo == nil {
		return climate.Observation{}, false
	}

	obs := climate.Observation{
		Date: fmt.Sprintf("%04d-%02d-%02d", year, day.Month, day.Day),
	}
	if precip != nil {
		obs.Precip = *precip
	}
	if thermo != nil {
		obs.TempMax = thermo.TempMax
		obs.TempMin = thermo.TempMin
		obs.WindSpeed = thermo.WindSpeed
	}
	return obs, true
}
