package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestor-insights/internal/features"
	"nestor-insights/internal/models"
)

var base = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// run выполняет команду и возвращает stdout
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeJSON(t *testing.T, name string, v interface{}) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func daily(typ string, values ...float64) []models.HealthDataPoint {
	out := make([]models.HealthDataPoint, len(values))
	for i, v := range values {
		out[i] = models.HealthDataPoint{Type: typ, Value: v, Timestamp: base.AddDate(0, 0, i-len(values)+1)}
	}
	return out
}

func assessment(day int, value float64) models.Assessment {
	inverse := 6 - value
	return models.Assessment{
		Date: base.AddDate(0, 0, -day),
		Responses: []models.AssessmentResponse{
			{QuestionID: "q1", Category: models.QuestionSleepQuality, Value: value},
			{QuestionID: "q2", Category: models.QuestionEnergy, Value: value},
			{QuestionID: "q3", Category: models.QuestionSoreness, Value: inverse},
			{QuestionID: "q4", Category: models.QuestionStress, Value: inverse},
			{QuestionID: "q5", Category: models.QuestionMood, Value: value},
			{QuestionID: "q6", Category: models.QuestionMotivation, Value: value},
		},
	}
}

func TestRootCmd_Commands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"insights", "features", "feature-info", "readiness", "patterns"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	flags := newRootCmd().PersistentFlags()
	for _, name := range []string{"config", "timeframe", "pretty", "verbose"} {
		assert.NotNil(t, flags.Lookup(name), "missing flag %s", name)
	}
}

func TestInsightsCmd(t *testing.T) {
	path := writeJSON(t, "series.json", map[string]interface{}{
		"series": models.HealthDataSeries{
			HeartRate: daily("", 62, 64, 63, 65, 61),
			Sleep:     daily("", 7.5, 8, 7, 7.8, 8.1),
		},
	})

	out, err := run(t, "", "insights", path)
	require.NoError(t, err)

	var result models.HealthInsightsResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.NotEmpty(t, result.ID)
	assert.GreaterOrEqual(t, result.OverallScore, 0)
	assert.LessOrEqual(t, result.OverallScore, 100)
	assert.NotEmpty(t, result.Summary)
}

func TestInsightsCmd_BareSeriesFromStdin(t *testing.T) {
	series := models.HealthDataSeries{Steps: daily("", 4000, 6000, 8000, 10000)}
	data, err := json.Marshal(series)
	require.NoError(t, err)

	out, err := run(t, string(data), "insights", "-", "--timeframe", "month", "--pretty")
	require.NoError(t, err)
	assert.Contains(t, out, "\n  \"overallScore\"")
}

func TestInsightsCmd_InvalidTimeFrame(t *testing.T) {
	path := writeJSON(t, "series.json", models.HealthDataSeries{})

	_, err := run(t, "", "insights", path, "--timeframe", "year")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --timeframe")
}

func TestInsightsCmd_MissingFile(t *testing.T) {
	_, err := run(t, "", "insights", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFeaturesCmd(t *testing.T) {
	// 36 отсчетов: два окна по 24 с шагом 12
	var data features.BiometricData
	for i := 0; i < 36; i++ {
		data.HeartRate = append(data.HeartRate, 60+float64(i%5))
		data.Steps = append(data.Steps, float64(10*i))
		data.Timestamps = append(data.Timestamps, base.Add(time.Duration(i)*time.Minute))
	}

	out, err := run(t, "", "features", writeJSON(t, "bio.json", data))
	require.NoError(t, err)

	var result features.BiometricFeatures
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 36, result.SampleCount)
	assert.NotEmpty(t, result.FeatureNames)
}

func TestFeaturesCmd_NoTimestamps(t *testing.T) {
	_, err := run(t, "", "features", writeJSON(t, "bio.json", features.BiometricData{HeartRate: []float64{60}}))
	assert.Error(t, err)
}

func TestFeatureInfoCmd(t *testing.T) {
	out, err := run(t, "", "feature-info")
	require.NoError(t, err)

	var info struct {
		WindowSize int                    `json:"windowSize"`
		StepSize   int                    `json:"stepSize"`
		Features   []features.FeatureInfo `json:"features"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Positive(t, info.WindowSize)
	assert.Positive(t, info.StepSize)
	assert.NotEmpty(t, info.Features)
}

func TestReadinessCmd(t *testing.T) {
	out, err := run(t, "", "readiness", writeJSON(t, "a.json", assessment(0, 1)))
	require.NoError(t, err)

	var got map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 0, got["readinessScore"])

	out, err = run(t, "", "readiness", writeJSON(t, "b.json", assessment(0, 5)))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 100, got["readinessScore"])
}

func TestPatternsCmd_Streak(t *testing.T) {
	history := []models.Assessment{assessment(3, 1), assessment(2, 1), assessment(1, 1)}

	out, err := run(t, "", "patterns", writeJSON(t, "history.json", history))
	require.NoError(t, err)

	var detected []models.HealthPattern
	require.NoError(t, json.Unmarshal([]byte(out), &detected))
	require.NotEmpty(t, detected)

	var types []models.PatternType
	for _, p := range detected {
		types = append(types, p.Type)
	}
	assert.Contains(t, types, models.PatternStreak)
}

func TestConfigFlag_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("insights:\n  recommendation_policy: alphabetical\n"), 0o600))

	_, err := run(t, "", "feature-info", "--config", path)
	assert.Error(t, err)
}
