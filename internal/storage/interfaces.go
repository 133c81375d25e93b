// Package storage интерфейсы хранения анкет и истории паттернов.
package storage

import (
	"context"
	"time"

	"nestor-insights/internal/models"
)

// AssessmentStore ежедневные анкеты
type AssessmentStore interface {
	// Upsert одна анкета на пользователя и календарный день:
	// повторная отправка за тот же день заменяет первую и сохраняет ее ID.
	Upsert(ctx context.Context, a *models.Assessment) error

	// GetByID возвращает ErrNotFound, если анкеты нет
	GetByID(ctx context.Context, id string) (*models.Assessment, error)

	// ListByUser анкеты начиная с since по возрастанию даты
	ListByUser(ctx context.Context, userID string, since time.Time) ([]models.Assessment, error)
}

// PatternStore история обнаруженных паттернов
type PatternStore interface {
	// Merge сливает паттерны с историей по ID. Сохраненные паттерны не удаляются,
	// повторно обнаруженные увеличивают Occurrences. Возвращает историю после слияния.
	Merge(ctx context.Context, userID string, detected []models.HealthPattern) ([]models.HealthPattern, error)

	// ListByUser история по FirstDetected, затем по ID
	ListByUser(ctx context.Context, userID string) ([]models.HealthPattern, error)
}

// DayOf календарный день t в UTC, ключ уникальности анкеты
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateAssessment проверяет обязательные поля
func ValidateAssessment(a *models.Assessment) error {
	if a == nil || a.UserID == "" || a.Date.IsZero() {
		return ErrInvalidInput
	}
	return nil
}
