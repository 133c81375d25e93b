package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nestor-insights/internal/models"
	"nestor-insights/internal/storage"
)

// PatternStore история паттернов в таблице health_patterns
type PatternStore struct {
	pool *Pool
}

func NewPatternStore(pool *Pool) *PatternStore {
	return &PatternStore{pool: pool}
}

var _ storage.PatternStore = (*PatternStore)(nil)

// Merge сливает обнаруженные паттерны с историей в одной транзакции.
// Правила конфликта те же, что в patterns.Merge.
func (s *PatternStore) Merge(ctx context.Context, userID string, detected []models.HealthPattern) ([]models.HealthPattern, error) {
	if userID == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO health_patterns (
			user_id, pattern_id, type, title, description, metrics,
			strength, confidence, sample_size, occurrences, first_detected, last_detected
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, pattern_id) DO UPDATE SET
			description    = EXCLUDED.description,
			strength       = EXCLUDED.strength,
			confidence     = EXCLUDED.confidence,
			sample_size    = EXCLUDED.sample_size,
			occurrences    = health_patterns.occurrences + EXCLUDED.occurrences,
			first_detected = LEAST(health_patterns.first_detected, EXCLUDED.first_detected),
			last_detected  = GREATEST(health_patterns.last_detected, EXCLUDED.last_detected)
	`

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range detected {
			occurrences := p.Occurrences
			if occurrences == 0 {
				occurrences = 1
			}
			metrics := p.Metrics
			if metrics == nil {
				metrics = []string{}
			}
			batch.Queue(query,
				userID,
				p.ID,
				string(p.Type),
				p.Title,
				p.Description,
				metrics,
				p.Strength,
				p.Confidence,
				p.SampleSize,
				occurrences,
				p.FirstDetected,
				p.LastDetected,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return nil, storageError("merge patterns", err)
	}

	return s.ListByUser(ctx, userID)
}

// ListByUser история по first_detected, затем по ID
func (s *PatternStore) ListByUser(ctx context.Context, userID string) ([]models.HealthPattern, error) {
	query := `
		SELECT pattern_id, type, title, description, metrics, strength, confidence,
		       sample_size, occurrences, first_detected, last_detected
		FROM health_patterns
		WHERE user_id = $1
		ORDER BY first_detected ASC, pattern_id ASC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, storageError("list patterns", err)
	}
	defer rows.Close()

	out := []models.HealthPattern{}
	for rows.Next() {
		var (
			p   models.HealthPattern
			typ string
		)
		err := rows.Scan(
			&p.ID,
			&typ,
			&p.Title,
			&p.Description,
			&p.Metrics,
			&p.Strength,
			&p.Confidence,
			&p.SampleSize,
			&p.Occurrences,
			&p.FirstDetected,
			&p.LastDetected,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		p.Type = models.PatternType(typ)
		p.FirstDetected = p.FirstDetected.UTC()
		p.LastDetected = p.LastDetected.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patterns: %w", err)
	}
	return out, nil
}
