package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestor-insights/internal/models"
)

func TestMerge(t *testing.T) {
	t0 := monday
	t1 := monday.AddDate(0, 0, 7)
	t2 := monday.AddDate(0, 0, 14)

	existing := []models.HealthPattern{
		{ID: IDLowReadinessStreak, Title: "old", Description: "old", Occurrences: 2, FirstDetected: t0, LastDetected: t1, Strength: 3},
		{ID: IDStressMoodInverse, Occurrences: 1, FirstDetected: t0, LastDetected: t0},
	}
	detected := []models.HealthPattern{
		{ID: IDLowReadinessStreak, Title: "new", Description: "new", Occurrences: 1, FirstDetected: t1, LastDetected: t2, Strength: 5},
		{ID: IDReadinessDeclining, FirstDetected: t1, LastDetected: t2},
	}

	merged := Merge(existing, detected)
	require.Len(t, merged, 3)

	streak := merged[0]
	assert.Equal(t, IDLowReadinessStreak, streak.ID)
	assert.Equal(t, 3, streak.Occurrences)
	assert.Equal(t, t0, streak.FirstDetected)
	assert.Equal(t, t2, streak.LastDetected)
	assert.Equal(t, "old", streak.Title)
	assert.Equal(t, "new", streak.Description)
	assert.Equal(t, 5.0, streak.Strength)

	// не найденный повторно паттерн сохраняется как есть
	assert.Equal(t, existing[1], merged[1])

	assert.Equal(t, IDReadinessDeclining, merged[2].ID)
	assert.Equal(t, 1, merged[2].Occurrences)

	// исходный срез не меняется
	assert.Equal(t, 2, existing[0].Occurrences)
}

func TestMerge_Empty(t *testing.T) {
	assert.Empty(t, Merge(nil, nil))

	detected := []models.HealthPattern{{ID: "x"}}
	merged := Merge(nil, detected)
	require.Len(t, merged, 1)
	assert.Equal(t, 1, merged[0].Occurrences)
}

func TestMerge_OlderDetectionKeepsLastDetected(t *testing.T) {
	later := monday.AddDate(0, 0, 30)
	existing := []models.HealthPattern{{ID: "x", Occurrences: 1, FirstDetected: monday, LastDetected: later}}
	detected := []models.HealthPattern{{ID: "x", Occurrences: 1, FirstDetected: monday, LastDetected: monday.AddDate(0, 0, 3)}}

	merged := Merge(existing, detected)
	assert.Equal(t, later, merged[0].LastDetected)
	assert.Equal(t, 2, merged[0].Occurrences)
}
