package orchestrator

import (
	"github.com/google/uuid"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/climate"
)

// newDecision builds a single-source DecisionRecord. Primary is populated
// even when the source failed, so the caller always has a result to report.
func newDecision(mode climate.Mode, primary climate.SourceResult) climate.DecisionRecord {
	return climate.DecisionRecord{
		RequestID: uuid.NewString(),
		Mode:      mode,
		Primary:   primary,
	}
}

// reconcileHybrid merges both source results into one record. The precise
// result is primary whenever it is viable; otherwise the fast result takes
// over with the precise failure recorded as the fallback reason. The
// comparison is computed only when both sides succeeded with data, regardless
// of which one ended up primary.
func reconcileHybrid(precise, fast climate.SourceResult, degradeReason string, minViable int) climate.DecisionRecord {
	primary := precise
	fallbackUsed := false
	if !precise.Success || len(precise.Observations) < minViable {
		primary = fast
		fallbackUsed = true
	}

	record := newDecision(climate.ModeHybrid, primary)
	record.FallbackUsed = fallbackUsed
	if fallbackUsed {
		record.FallbackReason = degradeReason
	}
	record.Hybrid = &climate.HybridDetail{
		Precise:    precise,
		Fast:       fast,
		Comparison: hybridComparison(precise, fast),
	}
	return record
}

func hybridComparison(precise, fast climate.SourceResult) *climate.Comparison {
	if !precise.Success || !fast.Success {
		return nil
	}
	return climate.Compare(precise.Observations, fast.Observations)
}
