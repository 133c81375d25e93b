package handlers

import (
	"context"
	"sync"
	"time"

	"nestor-insights/internal/models"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	readings []models.Reading
	full     bool
}

func (a *fakeAnalyzer) AddReading(r models.Reading) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.full {
		return false
	}
	a.readings = append(a.readings, r)
	return true
}

func (a *fakeAnalyzer) GetStats() map[string]interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return map[string]interface{}{"queued": len(a.readings)}
}

type fakeCache struct {
	mu          sync.Mutex
	readings    []models.Reading
	insights    map[string]*models.HealthInsightsResult
	anomalies   map[string][]models.AnomalyResult
	invalidated []string
	storeErr    error
	pingErr     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		insights:  map[string]*models.HealthInsightsResult{},
		anomalies: map[string][]models.AnomalyResult{},
	}
}

func (c *fakeCache) StoreReadings(_ context.Context, readings ...models.Reading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.storeErr != nil {
		return c.storeErr
	}
	c.readings = append(c.readings, readings...)
	return nil
}

func (c *fakeCache) LoadSeries(_ context.Context, userID string, since time.Time) (*models.HealthDataSeries, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	series := &models.HealthDataSeries{}
	for _, r := range c.readings {
		if r.UserID != userID || r.Timestamp.Before(since) {
			continue
		}
		if err := series.Append(r.Metric, r.HealthDataPoint); err != nil {
			return nil, err
		}
	}
	return series, nil
}

func (c *fakeCache) StoreInsights(_ context.Context, userID string, frame models.TimeFrame, result *models.HealthInsightsResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insights[userID+":"+string(frame)] = result
	return nil
}

func (c *fakeCache) GetInsights(_ context.Context, userID string, frame models.TimeFrame) (*models.HealthInsightsResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.insights[userID+":"+string(frame)]
	return r, ok, nil
}

func (c *fakeCache) InvalidateInsights(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userID)
	for _, frame := range []models.TimeFrame{models.TimeFrameDay, models.TimeFrameWeek, models.TimeFrameMonth} {
		delete(c.insights, userID+":"+string(frame))
	}
	return nil
}

func (c *fakeCache) GetRecentAnomalies(_ context.Context, userID string, limit int) ([]models.AnomalyResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.anomalies[userID]
	if len(list) > limit {
		list = list[:limit]
	}
	return append([]models.AnomalyResult{}, list...), nil
}

func (c *fakeCache) Ping(context.Context) error { return c.pingErr }

func (c *fakeCache) GetStats() map[string]interface{} {
	return map[string]interface{}{"total_conns": 1}
}
