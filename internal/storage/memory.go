package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"symreg/internal/evo"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]RunRecord
	history     map[string][]float64
	diagnostics map[string][]evo.GenerationDiagnostics
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.runs = make(map[string]RunRecord)
	s.history = make(map[string][]float64)
	s.diagnostics = make(map[string][]evo.GenerationDiagnostics)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInit(); err != nil {
		return err
	}
	if run.ID == "" {
		return errors.New("run id is required")
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return RunRecord{}, false, err
	}
	run, ok := s.runs[id]
	if !ok {
		return RunRecord{}, false, nil
	}
	return cloneRun(run), true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return nil, err
	}
	runs := make([]RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, cloneRun(run))
	}
	sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) SaveFitnessHistory(_ context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInit(); err != nil {
		return err
	}
	copied := append([]float64(nil), history...)
	s.history[runID] = copied
	return nil
}

func (s *MemoryStore) GetFitnessHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return nil, false, err
	}
	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	copied := append([]float64(nil), history...)
	return copied, true, nil
}

func (s *MemoryStore) SaveGenerationDiagnostics(_ context.Context, runID string, diagnostics []evo.GenerationDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInit(); err != nil {
		return err
	}
	copied := append([]evo.GenerationDiagnostics(nil), diagnostics...)
	s.diagnostics[runID] = copied
	return nil
}

func (s *MemoryStore) GetGenerationDiagnostics(_ context.Context, runID string) ([]evo.GenerationDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return nil, false, err
	}
	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	copied := append([]evo.GenerationDiagnostics(nil), diagnostics...)
	return copied, true, nil
}

func (s *MemoryStore) checkInit() error {
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	return nil
}

// sortRuns orders runs oldest first, breaking ties by id.
func sortRuns(runs []RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.Before(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}
