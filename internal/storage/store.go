package storage

import (
	"context"
	"errors"

	"symreg/internal/evo"
)

var ErrRunNotFound = errors.New("run not found")

// Store defines transaction-like persistence operations for evolution run records.
// Populations are never stored; a run is summarized by its record, its
// best-score history and its per-generation diagnostics.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, id string) (RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]RunRecord, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []evo.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]evo.GenerationDiagnostics, bool, error)
}
