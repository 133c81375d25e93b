package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestor-insights/internal/models"
	"nestor-insights/internal/storage"
)

func TestPatternStore_Merge(t *testing.T) {
	store := NewPatternStore()
	ctx := context.Background()

	first := []models.HealthPattern{
		{ID: "low-readiness-streak", Occurrences: 1, FirstDetected: day0, LastDetected: day0, Metrics: []string{"readiness"}},
	}
	merged, err := store.Merge(ctx, "user-1", first)
	require.NoError(t, err)
	require.Len(t, merged, 1)

	later := day0.AddDate(0, 0, 7)
	second := []models.HealthPattern{
		{ID: "low-readiness-streak", Occurrences: 1, FirstDetected: later, LastDetected: later},
		{ID: "stress-mood-inverse", Occurrences: 1, FirstDetected: later, LastDetected: later},
	}
	merged, err = store.Merge(ctx, "user-1", second)
	require.NoError(t, err)
	require.Len(t, merged, 2)

	assert.Equal(t, "low-readiness-streak", merged[0].ID)
	assert.Equal(t, 2, merged[0].Occurrences)
	assert.Equal(t, day0, merged[0].FirstDetected)
	assert.Equal(t, later, merged[0].LastDetected)
	assert.Equal(t, "stress-mood-inverse", merged[1].ID)

	// пустое обнаружение не удаляет историю
	merged, err = store.Merge(ctx, "user-1", nil)
	require.NoError(t, err)
	assert.Len(t, merged, 2)

	list, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, merged, list)

	other, err := store.ListByUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestPatternStore_InvalidUser(t *testing.T) {
	_, err := NewPatternStore().Merge(context.Background(), "", nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
