package source

import (
	"context"
	"time"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/climate"
)

// Variable identifies one of the two logical precise-source variables.
type Variable string

const (
	// VariablePrecip is IMERG daily precipitation.
	VariablePrecip Variable = "precipitation"
	// VariableThermo is MERRA-2 hourly temperature and wind.
	VariableThermo Variable = "thermo"
)

// GranuleRef is an opaque handle to one discrete unit of precise-source data
// for a given year and variable. Produced by search, consumed by reads, never
// mutated.
type GranuleRef struct {
	ID       string
	URL      string
	Year     int
	Variable Variable
}

// Thermo is the temperature/wind half of an observation.
type Thermo struct {
	TempMax   float64
	TempMin   float64
	WindSpeed float64
}

// PreciseSource is the satellite-derived collaborator. Search and reads are
// independently failable per (year, variable); callers treat failures as
// absence.
type PreciseSource interface {
	SearchGranules(ctx context.Context, loc climate.Location, start, end time.Time, v Variable) ([]GranuleRef, error)
	ReadPrecip(ctx context.Context, ref GranuleRef, loc climate.Location) (float64, error)
	ReadThermo(ctx context.Context, ref GranuleRef, loc climate.Location) (Thermo, error)
}

// FastSource is the pre-aggregated climatology collaborator. One call returns
// the full historical series; its internal failure modes collapse to a single
// success/failure outcome.
type FastSource interface {
	Name() string
	FetchSeries(ctx context.Context, loc climate.Location, day climate.CalendarDay, yearsBack int) ([]climate.Observation, error)
}
