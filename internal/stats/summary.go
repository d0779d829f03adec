package stats

import "math"

// FitnessSummary condenses a best-score history. Scores are errors, so
// Improvement is positive when the run got better.
type FitnessSummary struct {
	Generations int     `json:"generations"`
	InitialBest float64 `json:"initial_best"`
	FinalBest   float64 `json:"final_best"`
	Improvement float64 `json:"improvement"`
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
}

// Summarize ignores non-finite entries when computing the moments.
func Summarize(history []float64) FitnessSummary {
	summary := FitnessSummary{Generations: len(history)}
	if len(history) == 0 {
		return summary
	}
	summary.InitialBest = history[0]
	summary.FinalBest = history[len(history)-1]
	summary.Improvement = summary.InitialBest - summary.FinalBest

	summary.Min = math.Inf(1)
	summary.Max = math.Inf(-1)
	sum, count := 0.0, 0
	for _, v := range history {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		count++
		summary.Min = math.Min(summary.Min, v)
		summary.Max = math.Max(summary.Max, v)
	}
	if count == 0 {
		summary.Mean = math.Inf(1)
		return summary
	}
	summary.Mean = sum / float64(count)
	variance := 0.0
	for _, v := range history {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		d := v - summary.Mean
		variance += d * d
	}
	summary.Std = math.Sqrt(variance / float64(count))
	return summary
}

// Finite maps non-finite fields to math.MaxFloat64 for JSON encoding.
func (s FitnessSummary) Finite() FitnessSummary {
	s.InitialBest = finite(s.InitialBest)
	s.FinalBest = finite(s.FinalBest)
	s.Improvement = finite(s.Improvement)
	s.Mean = finite(s.Mean)
	s.Min = finite(s.Min)
	s.Max = finite(s.Max)
	return s
}

// AverageCurve averages several best-score histories position by position.
// Shorter histories stop contributing once exhausted, which happens when a
// run converged early.
func AverageCurve(histories [][]float64) []float64 {
	longest := 0
	for _, h := range histories {
		if len(h) > longest {
			longest = len(h)
		}
	}
	curve := make([]float64, 0, longest)
	for i := 0; i < longest; i++ {
		sum, count := 0.0, 0
		for _, h := range histories {
			if i < len(h) {
				sum += h[i]
				count++
			}
		}
		curve = append(curve, sum/float64(count))
	}
	return curve
}
