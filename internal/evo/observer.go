package evo

import (
	"time"

	"symreg/internal/expr"
)

// OffspringCounts records how the ranked population was produced.
type OffspringCounts struct {
	Seed  int `json:"seed"`
	Elite int `json:"elite"`
	Bred  int `json:"bred"`
	Fresh int `json:"fresh"`
}

// GenerationReport is emitted once per ranking pass. It is observational
// only; observers cannot influence the run.
type GenerationReport struct {
	Generation   int
	BestScore    float64
	Best         expr.Expr
	Diagnostics  GenerationDiagnostics
	RankDuration time.Duration
}

type Observer interface {
	ObserveGeneration(report GenerationReport)
}

type ObserverFunc func(report GenerationReport)

func (f ObserverFunc) ObserveGeneration(report GenerationReport) {
	f(report)
}
