package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"nestor-insights/internal/models"
	"nestor-insights/internal/storage"
)

// AssessmentStore анкеты в таблице assessments
type AssessmentStore struct {
	pool *Pool
}

func NewAssessmentStore(pool *Pool) *AssessmentStore {
	return &AssessmentStore{pool: pool}
}

var _ storage.AssessmentStore = (*AssessmentStore)(nil)

// Upsert сохраняет анкету. Повтор за тот же день обновляет запись, ее ID записывается в a.
// ID, уже занятый другой записью, дает ErrInvalidInput.
func (s *AssessmentStore) Upsert(ctx context.Context, a *models.Assessment) error {
	if err := storage.ValidateAssessment(a); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return fmt.Errorf("encode responses: %w", err)
	}

	var completedAt *time.Time
	if !a.CompletedAt.IsZero() {
		completedAt = &a.CompletedAt
	}

	query := `
		INSERT INTO assessments (
			id, user_id, day, date, responses, readiness_score, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, day) DO UPDATE SET
			date            = EXCLUDED.date,
			responses       = EXCLUDED.responses,
			readiness_score = EXCLUDED.readiness_score,
			completed_at    = EXCLUDED.completed_at,
			updated_at      = now()
		RETURNING id
	`

	err = s.pool.QueryRow(ctx, query,
		a.ID,
		a.UserID,
		storage.DayOf(a.Date),
		a.Date,
		responses,
		a.ReadinessScore,
		completedAt,
	).Scan(&a.ID)
	if err != nil {
		return storageError("upsert assessment", err)
	}
	return nil
}

func (s *AssessmentStore) GetByID(ctx context.Context, id string) (*models.Assessment, error) {
	query := `
		SELECT id, user_id, date, responses, readiness_score, completed_at
		FROM assessments
		WHERE id = $1
	`

	a, err := scanAssessment(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, storageError("get assessment", err)
	}
	return a, nil
}

// ListByUser анкеты пользователя начиная с since по возрастанию даты
func (s *AssessmentStore) ListByUser(ctx context.Context, userID string, since time.Time) ([]models.Assessment, error) {
	query := `
		SELECT id, user_id, date, responses, readiness_score, completed_at
		FROM assessments
		WHERE user_id = $1 AND date >= $2
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, storageError("list assessments", err)
	}
	defer rows.Close()

	out := []models.Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}
	return out, nil
}

func scanAssessment(row pgx.Row) (*models.Assessment, error) {
	var (
		a           models.Assessment
		responses   []byte
		completedAt *time.Time
	)

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Date,
		&responses,
		&a.ReadinessScore,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(responses, &a.Responses); err != nil {
		return nil, fmt.Errorf("decode responses: %w", err)
	}
	a.Date = a.Date.UTC()
	if completedAt != nil {
		a.CompletedAt = completedAt.UTC()
	}
	return &a, nil
}
