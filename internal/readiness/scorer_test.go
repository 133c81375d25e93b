package readiness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestor-insights/internal/models"
)

func assessment(values map[string]float64) models.Assessment {
	var a models.Assessment
	for category, v := range values {
		a.Responses = append(a.Responses, models.AssessmentResponse{
			QuestionID: "q-" + category,
			Category:   category,
			Value:      v,
		})
	}
	return a
}

func TestDefaultWeights_SumToOne(t *testing.T) {
	sum := 0.0
	for _, w := range DefaultWeights() {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.Len(t, DefaultWeights(), 6)
}

func TestScore(t *testing.T) {
	scorer := Default()

	tests := []struct {
		name     string
		values   map[string]float64
		expected int
	}{
		{
			name:     "no responses is neutral",
			values:   map[string]float64{},
			expected: 50,
		},
		{
			name: "best possible day",
			values: map[string]float64{
				models.QuestionSleepQuality: 5,
				models.QuestionEnergy:       5,
				models.QuestionSoreness:     1,
				models.QuestionStress:       1,
				models.QuestionMood:         5,
				models.QuestionMotivation:   5,
			},
			expected: 100,
		},
		{
			name: "worst possible day",
			values: map[string]float64{
				models.QuestionSleepQuality: 1,
				models.QuestionEnergy:       1,
				models.QuestionSoreness:     5,
				models.QuestionStress:       5,
				models.QuestionMood:         1,
				models.QuestionMotivation:   1,
			},
			expected: 0,
		},
		{
			// sleep 75*0.25 + остальное нейтрально 50*0.75 = 56.25
			name:     "good sleep only",
			values:   map[string]float64{models.QuestionSleepQuality: 4},
			expected: 56,
		},
		{
			// stress 4 -> 25*0.15 + 50*0.85 = 46.25
			name:     "elevated stress only",
			values:   map[string]float64{models.QuestionStress: 4},
			expected: 46,
		},
		{
			name:     "out of range answers are neutral",
			values:   map[string]float64{models.QuestionEnergy: 9, models.QuestionMood: 0},
			expected: 50,
		},
		{
			name:     "unknown categories are ignored",
			values:   map[string]float64{"hydration": 5},
			expected: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scorer.Score(assessment(tt.values)))
		})
	}
}

func TestScoreOrStored(t *testing.T) {
	scorer := Default()
	stored := 88

	a := assessment(map[string]float64{models.QuestionEnergy: 1})
	a.ReadinessScore = &stored
	assert.Equal(t, 88, scorer.ScoreOrStored(a))

	a.ReadinessScore = nil
	assert.Equal(t, scorer.Score(a), scorer.ScoreOrStored(a))
}

func TestScoreOrStored_ClampsStored(t *testing.T) {
	scorer := Default()
	a := assessment(map[string]float64{models.QuestionEnergy: 3})

	for stored, want := range map[int]int{500: 100, 101: 100, 100: 100, 0: 0, -1: 0, -40: 0} {
		v := stored
		a.ReadinessScore = &v
		assert.Equal(t, want, scorer.ScoreOrStored(a), "stored %d", stored)
	}
}

func TestValidScore(t *testing.T) {
	assert.True(t, ValidScore(0))
	assert.True(t, ValidScore(100))
	assert.False(t, ValidScore(-1))
	assert.False(t, ValidScore(101))
}

func TestNewScorer_CustomWeights(t *testing.T) {
	scorer, err := NewScorer(Weights{models.QuestionMood: 1})
	require.NoError(t, err)

	assert.Equal(t, 75, scorer.Score(assessment(map[string]float64{models.QuestionMood: 4})))

	// вызывающий не может изменить таблицу оценщика
	w := scorer.Weights()
	w[models.QuestionMood] = 0
	assert.Equal(t, 1.0, scorer.Weights()[models.QuestionMood])
}

func TestNewScorer_InvalidWeights(t *testing.T) {
	_, err := NewScorer(Weights{models.QuestionMood: -0.5})
	assert.Error(t, err)

	_, err = NewScorer(Weights{models.QuestionMood: 0})
	assert.Error(t, err)

	s, err := NewScorer(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights(), s.Weights())
}
