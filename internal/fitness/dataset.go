// Package fitness scores candidate expressions against labelled probes and
// ranks populations for the evolution loop.
package fitness

import (
	"fmt"
	"math"
	"sort"

	"symreg/internal/expr"
)

// Probe is one labelled example: the inputs and the value the hidden
// function produced for them.
type Probe struct {
	Context  expr.Context `json:"context"`
	Expected float64      `json:"expected"`
}

type Dataset []Probe

// Variables returns the names bound by the first probe, in sorted order.
func (d Dataset) Variables() []string {
	if len(d) == 0 {
		return nil
	}
	names := make([]string, 0, len(d[0].Context))
	for name := range d[0].Context {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Metric string

const (
	// AbsoluteError sums |predicted - expected| over the dataset.
	AbsoluteError Metric = "abs"
	// SquaredError sums (predicted - expected)^2 over the dataset.
	SquaredError Metric = "squared"
)

func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case "", AbsoluteError:
		return AbsoluteError, nil
	case SquaredError:
		return SquaredError, nil
	default:
		return "", fmt.Errorf("unsupported fitness metric: %s", name)
	}
}

// Score evaluates e on every probe and accumulates the deviation. A
// non-finite total is reported as +Inf so it ranks last.
func Score(e expr.Expr, dataset Dataset, metric Metric) (float64, error) {
	total := 0.0
	for i, probe := range dataset {
		predicted, err := e.Evaluate(probe.Context)
		if err != nil {
			return 0, fmt.Errorf("probe %d: %w", i, err)
		}
		delta := predicted - probe.Expected
		switch metric {
		case SquaredError:
			total += delta * delta
		default:
			total += math.Abs(delta)
		}
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return math.Inf(1), nil
	}
	return total, nil
}
