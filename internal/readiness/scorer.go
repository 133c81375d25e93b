// Package readiness сворачивает ответы ежедневной анкеты в оценку готовности 0-100.
package readiness

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"nestor-insights/internal/models"
)

// Шкала ответов анкеты
const (
	ScaleMin     = 1.0
	ScaleMax     = 5.0
	NeutralValue = 3.0
)

// Границы оценки готовности
const (
	MinScore = 0
	MaxScore = 100
)

// ValidScore попадает ли оценка в 0-100
func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}

// Weights таблица весов по категориям вопросов.
// Хранится как конфигурация, чтобы ее можно было настраивать без изменения кода.
type Weights map[string]float64

// DefaultWeights таблица весов, сохраняющая сопоставимость оценок между версиями
func DefaultWeights() Weights {
	return Weights{
		models.QuestionSleepQuality: 0.25,
		models.QuestionEnergy:       0.20,
		models.QuestionSoreness:     0.15,
		models.QuestionStress:       0.15,
		models.QuestionMood:         0.15,
		models.QuestionMotivation:   0.10,
	}
}

// inverted категории, где высокий ответ означает худшее состояние
var inverted = map[string]bool{
	models.QuestionSoreness: true,
	models.QuestionStress:   true,
}

// Validate проверяет таблицу весов
func (w Weights) Validate() error {
	if len(w) == 0 {
		return errors.New("weights table is empty")
	}
	total := 0.0
	for category, weight := range w {
		if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return fmt.Errorf("invalid weight %v for %q", weight, category)
		}
		total += weight
	}
	if total == 0 {
		return errors.New("weights sum to zero")
	}
	return nil
}

// Categories категории таблицы в стабильном порядке
func (w Weights) Categories() []string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scorer вычисляет оценку готовности по фиксированной таблице весов
type Scorer struct {
	weights Weights
}

// NewScorer создает оценщик. Пустая таблица заменяется таблицей по умолчанию.
func NewScorer(weights Weights) (*Scorer, error) {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("readiness weights: %w", err)
	}

	copied := make(Weights, len(weights))
	for k, v := range weights {
		copied[k] = v
	}
	return &Scorer{weights: copied}, nil
}

// Default оценщик с таблицей по умолчанию
func Default() *Scorer {
	s, _ := NewScorer(DefaultWeights())
	return s
}

// Weights копия таблицы весов
func (s *Scorer) Weights() Weights {
	out := make(Weights, len(s.weights))
	for k, v := range s.weights {
		out[k] = v
	}
	return out
}

// Score оценка готовности 0-100. Отсутствующие или некорректные ответы
// принимаются за нейтральную середину шкалы.
func (s *Scorer) Score(a models.Assessment) int {
	var weighted, total float64

	for _, category := range s.weights.Categories() {
		weight := s.weights[category]

		value, ok := a.Response(category)
		if !ok || value < ScaleMin || value > ScaleMax || math.IsNaN(value) {
			value = NeutralValue
		}

		normalized := (value - ScaleMin) / (ScaleMax - ScaleMin) * 100
		if inverted[category] {
			normalized = 100 - normalized
		}

		weighted += weight * normalized
		total += weight
	}

	if total == 0 {
		return 50
	}
	return int(math.Round(weighted / total))
}

// ScoreOrStored использует сохраненную оценку, если она есть, приводя ее к 0-100
func (s *Scorer) ScoreOrStored(a models.Assessment) int {
	if a.ReadinessScore != nil {
		return min(max(*a.ReadinessScore, MinScore), MaxScore)
	}
	return s.Score(a)
}
