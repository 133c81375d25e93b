package patterns

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestor-insights/internal/models"
)

// 2025-03-03 понедельник
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func withScores(scores ...int) []models.Assessment {
	history := make([]models.Assessment, len(scores))
	for i, s := range scores {
		score := s
		history[i] = models.Assessment{
			ID:             "a" + strconv.Itoa(i),
			UserID:         "user-1",
			Date:           monday.AddDate(0, 0, i),
			ReadinessScore: &score,
		}
	}
	return history
}

func ids(patterns []models.HealthPattern) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, p.ID)
	}
	return out
}

func find(t *testing.T, patterns []models.HealthPattern, id string) models.HealthPattern {
	t.Helper()
	for _, p := range patterns {
		if p.ID == id {
			return p
		}
	}
	require.Failf(t, "pattern not found", "id %q in %v", id, ids(patterns))
	return models.HealthPattern{}
}

func TestDetectAll_ShortHistory(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)

	patterns := d.DetectAll(withScores(30, 30))
	require.NotNil(t, patterns)
	assert.Empty(t, patterns)

	assert.Empty(t, d.DetectAll(nil))
}

func TestDetectAll_LowReadinessStreak(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)

	history := withScores(80, 40, 45, 30, 70)
	patterns := d.DetectAll(history)

	assert.Equal(t, []string{IDLowReadinessStreak}, ids(patterns))
	p := patterns[0]
	assert.Equal(t, models.PatternStreak, p.Type)
	assert.Equal(t, 3.0, p.Strength)
	assert.Equal(t, 1, p.Occurrences)
	assert.Equal(t, history[1].Date, p.FirstDetected)
	assert.Equal(t, history[4].Date, p.LastDetected)
}

func TestDetectAll_StreakTooShort(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)
	assert.Empty(t, d.DetectAll(withScores(80, 40, 45, 70, 30)))
}

func TestDetectAll_DecliningTrend(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)

	patterns := d.DetectAll(withScores(90, 85, 80, 75, 70, 65, 60, 55, 50, 45))

	p := find(t, patterns, IDReadinessDeclining)
	assert.Equal(t, models.PatternTrend, p.Type)
	assert.InDelta(t, -5.0, p.Strength, 1e-9)
	assert.InDelta(t, 1.0, p.Confidence, 1e-9)
	assert.NotContains(t, ids(patterns), IDReadinessImproving)
}

func TestDetectAll_ImprovingTrend(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)

	patterns := d.DetectAll(withScores(55, 58, 61, 64, 67, 70, 73, 76))
	p := find(t, patterns, IDReadinessImproving)
	assert.InDelta(t, 3.0, p.Strength, 1e-9)
}

func TestDetectAll_TrendNeedsMinHistory(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)
	patterns := d.DetectAll(withScores(90, 80, 70, 60))
	assert.NotContains(t, ids(patterns), IDReadinessDeclining)
}

func TestDetectAll_StressMoodInverse(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)

	stress := []float64{1, 2, 3, 4, 5, 1, 2, 3}
	history := make([]models.Assessment, len(stress))
	for i, s := range stress {
		history[i] = models.Assessment{
			Date: monday.AddDate(0, 0, i),
			Responses: []models.AssessmentResponse{
				{QuestionID: "q1", Category: models.QuestionStress, Value: s},
				{QuestionID: "q2", Category: models.QuestionMood, Value: 6 - s},
			},
		}
	}

	p := find(t, d.DetectAll(history), IDStressMoodInverse)
	assert.InDelta(t, -1.0, p.Strength, 1e-9)
	assert.Equal(t, len(stress), p.SampleSize)
	assert.Equal(t, []string{models.QuestionStress, models.QuestionMood}, p.Metrics)
}

func TestDetectAll_SleepPrecedesReadiness(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)

	// качество сна в день i определяет готовность в день i+1
	sleep := []float64{5, 1, 4, 2, 5, 1, 3, 5, 2, 4}
	history := make([]models.Assessment, len(sleep))
	for i, s := range sleep {
		score := 50
		if i > 0 {
			score = int(sleep[i-1] * 20)
		}
		history[i] = models.Assessment{
			Date:           monday.AddDate(0, 0, i),
			ReadinessScore: &score,
			Responses: []models.AssessmentResponse{
				{QuestionID: "q1", Category: models.QuestionSleepQuality, Value: s},
			},
		}
	}

	p := find(t, d.DetectAll(history), IDSleepPrecedesReadiness)
	assert.Equal(t, models.PatternCorrelation, p.Type)
	assert.InDelta(t, 1.0, p.Strength, 1e-9)
	assert.Equal(t, len(sleep)-1, p.SampleSize)
}

func TestDetectAll_WeekdayDip(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)

	scores := make([]int, 14)
	for i := range scores {
		scores[i] = 80
		if i%7 == 0 {
			scores[i] = 40
		}
	}

	p := find(t, d.DetectAll(withScores(scores...)), "weekday-dip-monday")
	assert.Equal(t, models.PatternWeekly, p.Type)
	assert.Equal(t, 2, p.SampleSize)
	assert.InDelta(t, 1040.0/14.0-40, p.Strength, 1e-9)
}

func TestDetectAll_UsesComputedReadiness(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)

	// все ответы худшие: готовность 0 без сохраненной оценки
	worst := []models.AssessmentResponse{
		{Category: models.QuestionSleepQuality, Value: 1},
		{Category: models.QuestionEnergy, Value: 1},
		{Category: models.QuestionSoreness, Value: 5},
		{Category: models.QuestionStress, Value: 5},
		{Category: models.QuestionMood, Value: 1},
		{Category: models.QuestionMotivation, Value: 1},
	}
	history := []models.Assessment{
		{Date: monday, Responses: worst},
		{Date: monday.AddDate(0, 0, 1), Responses: worst},
		{Date: monday.AddDate(0, 0, 2), Responses: worst},
	}

	assert.Contains(t, ids(d.DetectAll(history)), IDLowReadinessStreak)
}

func TestDetectAll_Deterministic(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)
	history := withScores(90, 40, 35, 30, 65, 60, 55, 50, 45, 40, 80, 30, 30, 30)

	first := d.DetectAll(history)
	second := d.DetectAll(history)
	assert.Equal(t, first, second)
}

func TestDetectAll_SortsByDate(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)

	history := withScores(80, 40, 45, 30, 70)
	shuffled := []models.Assessment{history[3], history[0], history[4], history[2], history[1]}

	assert.Equal(t, d.DetectAll(history), d.DetectAll(shuffled))
}
