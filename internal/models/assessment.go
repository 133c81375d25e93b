package models

import "time"

// Категории вопросов ежедневной анкеты
const (
	QuestionSleepQuality = "sleepQuality"
	QuestionEnergy       = "energy"
	QuestionSoreness     = "soreness"
	QuestionStress       = "stress"
	QuestionMood         = "mood"
	QuestionMotivation   = "motivation"
)

// AssessmentResponse ответ на один вопрос (шкала 1-5)
type AssessmentResponse struct {
	QuestionID string  `json:"questionId"`
	Category   string  `json:"category"`
	Value      float64 `json:"value"`
}

// Assessment ежедневная самооценка пользователя
type Assessment struct {
	ID             string               `json:"id,omitempty"`
	UserID         string               `json:"userId,omitempty"`
	Date           time.Time            `json:"date"`
	Responses      []AssessmentResponse `json:"responses"`
	ReadinessScore *int                 `json:"readinessScore,omitempty"`
	CompletedAt    time.Time            `json:"completedAt"`
}

// Response возвращает значение ответа по категории
func (a *Assessment) Response(category string) (float64, bool) {
	for _, r := range a.Responses {
		if r.Category == category {
			return r.Value, true
		}
	}
	return 0, false
}

// PatternType тип обнаруженного паттерна
type PatternType string

const (
	PatternCorrelation PatternType = "correlation"
	PatternTrend       PatternType = "trend"
	PatternStreak      PatternType = "streak"
	PatternWeekly      PatternType = "weekly"
)

// HealthPattern повторяющаяся закономерность в истории анкет
type HealthPattern struct {
	ID            string      `json:"id"`
	Type          PatternType `json:"type"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Metrics       []string    `json:"metrics"`
	Strength      float64     `json:"strength"`
	Confidence    float64     `json:"confidence"`
	SampleSize    int         `json:"sampleSize"`
	Occurrences   int         `json:"occurrences"`
	FirstDetected time.Time   `json:"firstDetected"`
	LastDetected  time.Time   `json:"lastDetected"`
}
