package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"nestor-insights/internal/models"
	"nestor-insights/internal/storage"
)

// AssessmentStore анкеты в памяти процесса
type AssessmentStore struct {
	mu    sync.RWMutex
	byID  map[string]*models.Assessment
	byDay map[string]map[time.Time]string // пользователь -> день -> id анкеты
}

func NewAssessmentStore() *AssessmentStore {
	return &AssessmentStore{
		byID:  make(map[string]*models.Assessment),
		byDay: make(map[string]map[time.Time]string),
	}
}

var _ storage.AssessmentStore = (*AssessmentStore)(nil)

// Upsert сохраняет анкету, заменяя анкету пользователя за тот же день
func (s *AssessmentStore) Upsert(_ context.Context, a *models.Assessment) error {
	if err := storage.ValidateAssessment(a); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	day := storage.DayOf(a.Date)
	days := s.byDay[a.UserID]

	if existing, ok := days[day]; ok {
		a.ID = existing
	} else if a.ID == "" {
		a.ID = uuid.New().String()
	} else if _, taken := s.byID[a.ID]; taken {
		// ID занят другим пользователем или днем, как нарушение первичного ключа в Postgres
		return storage.ErrInvalidInput
	}

	if days == nil {
		days = make(map[time.Time]string)
		s.byDay[a.UserID] = days
	}

	stored := copyAssessment(*a)
	s.byID[a.ID] = &stored
	days[day] = a.ID
	return nil
}

func (s *AssessmentStore) GetByID(_ context.Context, id string) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := copyAssessment(*a)
	return &out, nil
}

// ListByUser анкеты начиная с since по возрастанию даты
func (s *AssessmentStore) ListByUser(_ context.Context, userID string, since time.Time) ([]models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Assessment{}
	for _, id := range s.byDay[userID] {
		a := s.byID[id]
		if a.Date.Before(since) {
			continue
		}
		out = append(out, copyAssessment(*a))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func copyAssessment(a models.Assessment) models.Assessment {
	a.Responses = append([]models.AssessmentResponse(nil), a.Responses...)
	if a.ReadinessScore != nil {
		score := *a.ReadinessScore
		a.ReadinessScore = &score
	}
	return a
}
