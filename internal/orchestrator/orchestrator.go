package orchestrator

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/climate"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/metrics"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/source"
)

const preciseLabel = "NASA GPM IMERG + MERRA-2 (Earthdata Cloud)"

// Config carries the orchestration policy knobs.
type Config struct {
	// PreciseDeadline timeboxes the whole precise path per request.
	PreciseDeadline time.Duration
	// MinViablePoints is the smallest precise result worth preferring over
	// the fast source.
	MinViablePoints int
	// SufficiencyRatio is the fraction of requested years after which the
	// collector stops waiting for stragglers.
	SufficiencyRatio float64
}

// Orchestrator drives the per-mode fetch policy and reconciles the outcomes
// into a DecisionRecord. All failure composition happens here; callers never
// see an error, only a degraded record.
type Orchestrator struct {
	collector *Collector
	fast      source.FastSource
	cfg       Config
}

// New creates an Orchestrator.
func New(collector *Collector, fast source.FastSource, cfg Config) *Orchestrator {
	if cfg.MinViablePoints < 1 {
		cfg.MinViablePoints = 1
	}
	return &Orchestrator{
		collector: collector,
		fast:      fast,
		cfg:       cfg,
	}
}

// Collector exposes the underlying collector for composition (janitor wiring).
func (o *Orchestrator) Collector() *Collector {
	return o.collector
}

// Decide runs the query through its mode's state machine. Each mode is a
// strictly linear sequence with no retries; failures degrade to the next tier
// rather than propagating.
func (o *Orchestrator) Decide(ctx context.Context, q climate.Query) climate.DecisionRecord {
	var record climate.DecisionRecord
	switch q.Mode {
	case climate.ModeFast:
		record = o.decideFast(ctx, q)
	case climate.ModeHybrid:
		record = o.decideHybrid(ctx, q)
	default:
		record = o.decidePrecise(ctx, q)
	}

	primary := "fast"
	if record.Primary.Source == preciseLabel {
		primary = "precise"
	}
	if !record.Primary.Success {
		primary = "none"
	}
	metrics.DecisionsTotal.WithLabelValues(string(q.Mode), primary).Inc()
	return record
}

// decideFast queries POWER only.
func (o *Orchestrator) decideFast(ctx context.Context, q climate.Query) climate.DecisionRecord {
	fast := o.fetchFast(ctx, q)
	return newDecision(climate.ModeFast, fast)
}

// decidePrecise tries the timeboxed precise path and falls back to POWER on
// timeout, error, or an insufficient point count.
func (o *Orchestrator) decidePrecise(ctx context.Context, q climate.Query) climate.DecisionRecord {
	precise := o.fetchPrecise(ctx, q)
	if precise.Success && len(precise.Observations) >= o.cfg.MinViablePoints {
		return newDecision(climate.ModePrecise, precise)
	}

	reason := o.degradeReason(precise)
	log.Printf("precise path degraded (%s); falling back to %s", reason, o.fast.Name())
	metrics.FallbacksTotal.WithLabelValues(fallbackLabel(precise)).Inc()

	fast := o.fetchFast(ctx, q)
	record := newDecision(climate.ModePrecise, fast)
	record.FallbackUsed = true
	record.FallbackReason = reason
	return record
}

// decideHybrid launches both paths, awaits the fast result first and holds
// it, then awaits the precise path up to its own deadline. Precise is always
// preferred when it produced a viable result; both results are retained.
func (o *Orchestrator) decideHybrid(ctx context.Context, q climate.Query) climate.DecisionRecord {
	preciseCh := make(chan climate.SourceResult, 1)
	go func() {
		preciseCh <- o.fetchPrecise(ctx, q)
	}()

	fast := o.fetchFast(ctx, q)
	precise := <-preciseCh

	return reconcileHybrid(precise, fast, o.degradeReason(precise), o.cfg.MinViablePoints)
}

// fetchPrecise runs the collector under the timebox and normalizes the
// outcome into a SourceResult.
func (o *Orchestrator) fetchPrecise(ctx context.Context, q climate.Query) climate.SourceResult {
	started := time.Now()

	outcome := Timebox(ctx, o.cfg.PreciseDeadline, func(opCtx context.Context) ([]climate.Observation, error) {
		return o.collector.CollectYears(opCtx, q.Location, q.Day, q.YearsBack, o.sufficiency(q.YearsBack)), nil
	})

	result := climate.SourceResult{
		Source:  preciseLabel,
		Elapsed: time.Since(started),
	}
	switch {
	case outcome.TimedOut:
		result.Error = fmt.Sprintf("timed out after %s", o.cfg.PreciseDeadline)
	case outcome.Err != nil:
		result.Error = outcome.Err.Error()
	default:
		result.Observations = outcome.Value
		result.Success = len(outcome.Value) > 0
		if !result.Success {
			result.Error = "no granules yielded data"
		}
	}
	return result
}

// fetchFast queries POWER for the whole series in one logical call.
func (o *Orchestrator) fetchFast(ctx context.Context, q climate.Query) climate.SourceResult {
	started := time.Now()

	observations, err := o.fast.FetchSeries(ctx, q.Location, q.Day, q.YearsBack)

	result := climate.SourceResult{
		Source:       o.fast.Name(),
		Observations: observations,
		Elapsed:      time.Since(started),
		Success:      err == nil && len(observations) > 0,
	}
	switch {
	case err != nil:
		result.Error = err.Error()
		result.Observations = nil
	case len(observations) == 0:
		result.Error = "no data points returned"
	}
	return result
}

// sufficiency computes the early-return threshold for a batch, never below
// the minimum viable count and never above the requested years.
func (o *Orchestrator) sufficiency(yearsBack int) int {
	threshold := int(math.Ceil(o.cfg.SufficiencyRatio * float64(yearsBack)))
	if threshold < o.cfg.MinViablePoints {
		threshold = o.cfg.MinViablePoints
	}
	if threshold > yearsBack {
		threshold = yearsBack
	}
	return threshold
}

// degradeReason describes why a precise result is not usable as primary.
func (o *Orchestrator) degradeReason(precise climate.SourceResult) string {
	if precise.Error != "" {
		return precise.Error
	}
	if len(precise.Observations) < o.cfg.MinViablePoints {
		return fmt.Sprintf("insufficient data: %d points, need %d", len(precise.Observations), o.cfg.MinViablePoints)
	}
	return ""
}

func fallbackLabel(precise climate.SourceResult) string {
	switch {
	case strings.HasPrefix(precise.Error, "timed out"):
		return "timeout"
	case precise.Success:
		return "insufficient_data"
	default:
		return "error"
	}
}
