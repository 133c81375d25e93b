package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestor-insights/internal/insights"
	"nestor-insights/internal/models"
)

func TestLoadBytes_Defaults(t *testing.T) {
	cfg, err := LoadBytes(nil)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Analyzer, cfg.Analyzer)
	assert.Equal(t, def.Features, cfg.Features)
	assert.Equal(t, def.Patterns, cfg.Patterns)
	assert.Equal(t, models.TimeFrameWeek, cfg.Insights.TimeFrame)
	assert.Equal(t, insights.PolicyPriority, cfg.Insights.Policy)
	assert.False(t, cfg.Postgres.Enabled())
}

func TestLoadBytes_YAML(t *testing.T) {
	yaml := []byte(`
server:
  port: "9090"
  read_timeout: 3s
analyzer:
  window_size: 20
  threshold: 3
  idle_ttl: 2h
insights:
  recommendation_policy: static
  timeframe: month
  anomaly_sigma: 2.5
  weights:
    sleep: 1
    activity: 1
readiness:
  weights:
    energy: 1
postgres:
  dsn: postgres://u:p@localhost/db
`)
	cfg, err := LoadBytes(yaml)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 20, cfg.Analyzer.WindowSize)
	assert.Equal(t, 3.0, cfg.Analyzer.Threshold)
	assert.Equal(t, 2*time.Hour, cfg.Analyzer.IdleTTL)
	assert.Equal(t, insights.PolicyStatic, cfg.Insights.Policy)
	assert.Equal(t, models.TimeFrameMonth, cfg.Insights.TimeFrame)
	assert.Equal(t, 2.5, cfg.Insights.AnomalySigma)
	assert.Len(t, cfg.Insights.Weights, 2)
	assert.Equal(t, 1.0, cfg.Readiness.Weights[models.QuestionEnergy])
	assert.True(t, cfg.Postgres.Enabled())
}

func TestLoadBytes_EnvOverridesFile(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("ANALYZER_WINDOW_SIZE", "30")
	t.Setenv("REDIS_INSIGHTS_TTL", "1m")
	t.Setenv("LOGGING_FORMAT", "console")

	cfg, err := LoadBytes([]byte("server:\n  port: \"9090\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 30, cfg.Analyzer.WindowSize)
	assert.Equal(t, time.Minute, cfg.Redis.InsightsTTL)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadBytes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown policy", yaml: "insights:\n  recommendation_policy: random\n"},
		{name: "unknown category weight", yaml: "insights:\n  weights:\n    hydration: 1\n"},
		{name: "bad timeframe", yaml: "insights:\n  timeframe: decade\n"},
		{name: "window too small", yaml: "analyzer:\n  window_size: 1\n"},
		{name: "negative idle ttl", yaml: "analyzer:\n  idle_ttl: -1h\n"},
		{name: "negative readiness weight", yaml: "readiness:\n  weights:\n    energy: -1\n"},
		{name: "bad log level", yaml: "logging:\n  level: loud\n"},
		{name: "broken yaml", yaml: "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stream:\n  buffer_size: 8\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Stream.BufferSize)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(t.TempDir())
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.port", envKey("SERVER_PORT"))
	assert.Equal(t, "analyzer.window_size", envKey("ANALYZER_WINDOW_SIZE"))
	assert.Equal(t, "", envKey("HOME"))
	assert.Equal(t, "", envKey("GOPATH_BIN"))
	assert.Equal(t, "", envKey("SERVER_"))
}
