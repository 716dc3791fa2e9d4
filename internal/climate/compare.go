package climate

import "math"

// Compare computes the cross-source comparison between a precise and a fast
// observation list. Returns nil when either side is empty, since aggregate
// differences over nothing are meaningless.
func Compare(precise, fast []Observation) *Comparison {
	if len(precise) == 0 || len(fast) == 0 {
		return nil
	}

	var pPrecip, pTempMax float64
	for _, obs := range precise {
		pPrecip += obs.Precip
		pTempMax += obs.TempMax
	}
	pn := float64(len(precise))

	var fPrecip, fTempMax float64
	for _, obs := range fast {
		fPrecip += obs.Precip
		fTempMax += obs.TempMax
	}
	fn := float64(len(fast))

	return &Comparison{
		MeanAbsDiffPrecip:  math.Abs(pPrecip/pn - fPrecip/fn),
		MeanAbsDiffTempMax: math.Abs(pTempMax/pn - fTempMax/fn),
		PrecisePoints:      len(precise),
		FastPoints:         len(fast),
	}
}
