package climate

import (
	"fmt"
	"time"
)

// Mode selects which upstream path(s) a query exercises.
type Mode string

const (
	// ModeFast queries NASA POWER only.
	ModeFast Mode = "fast"
	// ModePrecise tries Earthdata Cloud first and falls back to POWER.
	ModePrecise Mode = "precise"
	// ModeHybrid races both sources and keeps both results.
	ModeHybrid Mode = "hybrid"
)

// ParseMode normalizes a user-supplied mode string. Empty defaults to precise.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModePrecise, nil
	case ModeFast, ModePrecise, ModeHybrid:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want fast, precise or hybrid)", s)
	}
}

// Location is a geographic point.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", l.Lat)
	}
	if l.Lon < -180 || l.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", l.Lon)
	}
	return nil
}

// CalendarDay is a month/day pair with no year attached.
type CalendarDay struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (d CalendarDay) Validate() error {
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("month %d out of range [1,12]", d.Month)
	}
	if d.Day < 1 || d.Day > 31 {
		return fmt.Errorf("day %d out of range [1,31]", d.Day)
	}
	return nil
}

// Query is the immutable input to the orchestrator.
type Query struct {
	Location  Location
	Day       CalendarDay
	YearsBack int
	Mode      Mode
}

func (q Query) Validate() error {
	if err := q.Location.Validate(); err != nil {
		return err
	}
	if err := q.Day.Validate(); err != nil {
		return err
	}
	if q.YearsBack < 1 {
		return fmt.Errorf("years_back must be at least 1, got %d", q.YearsBack)
	}
	return nil
}

// Observation is one reconciled day of historical weather. Fields for a
// variable the source could not provide default to zero so the record stays
// total.
type Observation struct {
	Date      string  `json:"date"`
	TempMax   float64 `json:"temp_max"`
	TempMin   float64 `json:"temp_min"`
	Precip    float64 `json:"precip"`
	WindSpeed float64 `json:"windspeed"`
}

// SourceResult is the outcome of querying one source for a full historical
// range.
type SourceResult struct {
	Source       string        `json:"source"`
	Observations []Observation `json:"observations,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
}

// Comparison summarizes how the two sources disagree, by aggregate statistics
// rather than paired dates (the sources rarely succeed for the same years).
type Comparison struct {
	MeanAbsDiffPrecip  float64 `json:"mean_abs_diff_precip"`
	MeanAbsDiffTempMax float64 `json:"mean_abs_diff_temp_max"`
	PrecisePoints      int     `json:"precise_points"`
	FastPoints         int     `json:"fast_points"`
}

// HybridDetail carries both source results for hybrid mode.
type HybridDetail struct {
	Precise    SourceResult `json:"precise"`
	Fast       SourceResult `json:"fast"`
	Comparison *Comparison  `json:"comparison,omitempty"`
}

// DecisionRecord is the final result of one orchestrated query. Primary is
// always populated; when every source failed it carries Success=false rather
// than being absent. Hybrid is nil outside hybrid mode, so the two-sided
// fields are omitted by type rather than by optional-key convention.
type DecisionRecord struct {
	RequestID      string        `json:"request_id"`
	Mode           Mode          `json:"mode"`
	Primary        SourceResult  `json:"primary"`
	FallbackUsed   bool          `json:"fallback_used"`
	FallbackReason string        `json:"fallback_reason,omitempty"`
	Hybrid         *HybridDetail `json:"hybrid,omitempty"`
}
