package memory

import (
	"context"
	"sort"
	"sync"

	"nestor-insights/internal/models"
	"nestor-insights/internal/patterns"
	"nestor-insights/internal/storage"
)

// PatternStore история паттернов в памяти процесса
type PatternStore struct {
	mu     sync.RWMutex
	byUser map[string][]models.HealthPattern
}

func NewPatternStore() *PatternStore {
	return &PatternStore{byUser: make(map[string][]models.HealthPattern)}
}

var _ storage.PatternStore = (*PatternStore)(nil)

// Merge сливает обнаруженные паттерны с историей пользователя
func (s *PatternStore) Merge(_ context.Context, userID string, detected []models.HealthPattern) ([]models.HealthPattern, error) {
	if userID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := patterns.Merge(s.byUser[userID], detected)
	s.byUser[userID] = merged
	return copyPatterns(merged), nil
}

func (s *PatternStore) ListByUser(_ context.Context, userID string) ([]models.HealthPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyPatterns(s.byUser[userID]), nil
}

// copyPatterns копия, упорядоченная по FirstDetected, затем по ID
func copyPatterns(in []models.HealthPattern) []models.HealthPattern {
	out := make([]models.HealthPattern, len(in))
	for i, p := range in {
		p.Metrics = append([]string(nil), p.Metrics...)
		out[i] = p
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].FirstDetected.Equal(out[j].FirstDetected) {
			return out[i].FirstDetected.Before(out[j].FirstDetected)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
