package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"nestor-insights/internal/models"
)

// Options параметры подключения и хранения
type Options struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	Retention   time.Duration
	InsightsTTL time.Duration
}

// RedisCache хранит показания пользователей, отчеты и аномалии
type RedisCache struct {
	client      *redis.Client
	retention   time.Duration
	insightsTTL time.Duration
}

// NewRedisCache создает новый Redis кэш
func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, error) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 100
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: 10,
		MaxRetries:   3,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisCache(client, opts), nil
}

func newRedisCache(client *redis.Client, opts Options) *RedisCache {
	if opts.Retention <= 0 {
		opts.Retention = 90 * 24 * time.Hour
	}
	if opts.InsightsTTL <= 0 {
		opts.InsightsTTL = 15 * time.Minute
	}
	return &RedisCache{
		client:      client,
		retention:   opts.Retention,
		insightsTTL: opts.InsightsTTL,
	}
}

func readingsKey(userID, metric string) string {
	return fmt.Sprintf("readings:%s:%s", userID, metric)
}

func insightsKey(userID string, frame models.TimeFrame) string {
	return fmt.Sprintf("insights:%s:%s", userID, frame)
}

func anomalyKey(userID, metric string, ts time.Time) string {
	return fmt.Sprintf("anomaly:%s:%s:%d", userID, metric, ts.UnixMilli())
}

func anomalyListKey(userID string) string {
	return fmt.Sprintf("anomaly_list:%s", userID)
}

// StoreReadings сохраняет показания в sorted set по пользователю и метрике.
// Точки старше срока хранения относительно самого нового показания удаляются.
func (r *RedisCache) StoreReadings(ctx context.Context, readings ...models.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	latest := map[string]time.Time{}
	pipe := r.client.Pipeline()
	for _, reading := range readings {
		data, err := json.Marshal(reading.HealthDataPoint)
		if err != nil {
			return fmt.Errorf("failed to marshal reading: %w", err)
		}

		key := readingsKey(reading.UserID, reading.Metric)
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(reading.Timestamp.UnixMilli()),
			Member: data,
		})
		if reading.Timestamp.After(latest[key]) {
			latest[key] = reading.Timestamp
		}
	}

	for key, ts := range latest {
		cutoff := ts.Add(-r.retention).UnixMilli()
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
		pipe.Expire(ctx, key, r.retention)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store readings: %w", err)
	}
	return nil
}

// LoadSeries собирает ряды пользователя с момента since
func (r *RedisCache) LoadSeries(ctx context.Context, userID string, since time.Time) (*models.HealthDataSeries, error) {
	lower := "-inf"
	if !since.IsZero() {
		lower = strconv.FormatInt(since.UnixMilli(), 10)
	}

	pipe := r.client.Pipeline()
	cmds := make(map[string]*redis.StringSliceCmd, len(models.AllMetrics))
	for _, metric := range models.AllMetrics {
		cmds[metric] = pipe.ZRangeByScore(ctx, readingsKey(userID, metric), &redis.ZRangeBy{
			Min: lower,
			Max: "+inf",
		})
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}

	series := &models.HealthDataSeries{}
	for _, metric := range models.AllMetrics {
		for _, raw := range cmds[metric].Val() {
			var p models.HealthDataPoint
			if err := json.Unmarshal([]byte(raw), &p); err != nil {
				return nil, fmt.Errorf("failed to unmarshal %s reading: %w", metric, err)
			}
			if err := series.Append(metric, p); err != nil {
				return nil, err
			}
		}
	}
	return series, nil
}

// StoreInsights кэширует отчет пользователя на время insightsTTL
func (r *RedisCache) StoreInsights(ctx context.Context, userID string, frame models.TimeFrame, result *models.HealthInsightsResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal insights: %w", err)
	}
	return r.client.Set(ctx, insightsKey(userID, frame), data, r.insightsTTL).Err()
}

// GetInsights возвращает кэшированный отчет. ok=false при промахе.
func (r *RedisCache) GetInsights(ctx context.Context, userID string, frame models.TimeFrame) (*models.HealthInsightsResult, bool, error) {
	data, err := r.client.Get(ctx, insightsKey(userID, frame)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get insights: %w", err)
	}

	var result models.HealthInsightsResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal insights: %w", err)
	}
	return &result, true, nil
}

// InvalidateInsights удаляет отчеты пользователя по всем горизонтам
func (r *RedisCache) InvalidateInsights(ctx context.Context, userID string) error {
	keys := []string{
		insightsKey(userID, models.TimeFrameDay),
		insightsKey(userID, models.TimeFrameWeek),
		insightsKey(userID, models.TimeFrameMonth),
	}
	return r.client.Del(ctx, keys...).Err()
}

// StoreAnomaly сохраняет аномалию и индексирует ее по времени
func (r *RedisCache) StoreAnomaly(ctx context.Context, userID string, anomaly models.AnomalyResult) error {
	key := anomalyKey(userID, anomaly.Metric, anomaly.Timestamp)

	data, err := json.Marshal(anomaly)
	if err != nil {
		return fmt.Errorf("failed to marshal anomaly: %w", err)
	}

	// Добавляем в sorted set для легкого извлечения
	score := float64(anomaly.Timestamp.UnixMilli())
	listKey := anomalyListKey(userID)

	pipe := r.client.Pipeline()
	pipe.Set(ctx, key, data, r.retention)
	pipe.ZAdd(ctx, listKey, redis.Z{Score: score, Member: key})
	pipe.Expire(ctx, listKey, r.retention)

	_, err = pipe.Exec(ctx)
	return err
}

// GetRecentAnomalies получает последние аномалии пользователя, новые первыми
func (r *RedisCache) GetRecentAnomalies(ctx context.Context, userID string, limit int) ([]models.AnomalyResult, error) {
	if limit <= 0 {
		return []models.AnomalyResult{}, nil
	}

	keys, err := r.client.ZRevRange(ctx, anomalyListKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get anomalies: %w", err)
	}
	if len(keys) == 0 {
		return []models.AnomalyResult{}, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get anomalies: %w", err)
	}

	out := make([]models.AnomalyResult, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// ключ истек
			continue
		}
		var a models.AnomalyResult
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal anomaly: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Close закрывает соединение с Redis
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Ping проверяет доступность Redis
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// GetStats возвращает статистику Redis
func (r *RedisCache) GetStats() map[string]interface{} {
	stats := r.client.PoolStats()

	return map[string]interface{}{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}
