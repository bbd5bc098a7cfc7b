package storage

import (
	"context"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]TrainingRun
	history     map[string]EpochHistory
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]TrainingRun)
	s.history = make(map[string]EpochHistory)
	return nil
}

func (s *MemoryStore) SaveTrainingRun(_ context.Context, run TrainingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetTrainingRun(_ context.Context, id string) (TrainingRun, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListTrainingRuns(_ context.Context) ([]TrainingRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]TrainingRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, nil
}

func (s *MemoryStore) SaveEpochHistory(_ context.Context, history EpochHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[history.RunID] = copyEpochHistory(history)
	return nil
}

func (s *MemoryStore) GetEpochHistory(_ context.Context, runID string) (EpochHistory, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[runID]
	if !ok {
		return EpochHistory{}, false, nil
	}
	return copyEpochHistory(history), true, nil
}

func copyEpochHistory(history EpochHistory) EpochHistory {
	copied := history
	copied.Columns = append([]string(nil), history.Columns...)
	copied.Rows = make([][]float64, len(history.Rows))
	for i, row := range history.Rows {
		copied.Rows[i] = append([]float64(nil), row...)
	}
	return copied
}
