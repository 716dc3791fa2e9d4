package climate

// Probability returns the fraction of observations matching the predicate.
// Empty data yields 0.
func Probability(data []Observation, predicate func(Observation) bool) float64 {
	if len(data) == 0 {
		return 0.0
	}
	matching := 0
	for _, obs := range data {
		if predicate(obs) {
			matching++
		}
	}
	return float64(matching) / float64(len(data))
}
