package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nestor-insights/internal/features"
	"nestor-insights/internal/insights"
	"nestor-insights/internal/models"
	"nestor-insights/internal/patterns"
	"nestor-insights/internal/readiness"
)

// insightsInput файл команды insights. Допускается и голый HealthDataSeries.
type insightsInput struct {
	Series  *models.HealthDataSeries       `json:"series"`
	Options models.GenerateInsightsOptions `json:"options"`
}

func newInsightsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insights <series.json>",
		Short: "Generate a health insights report",
		Long: `Generate a health insights report from a JSON file of the form
{"series": {...}, "options": {...}}. A bare series object is accepted too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRaw(cmd, args[0])
			if err != nil {
				return err
			}
			var in insightsInput
			if err := decodeInput(args[0], raw, &in); err != nil {
				return err
			}
			if in.Series == nil {
				var bare models.HealthDataSeries
				if err := decodeInput(args[0], raw, &bare); err != nil {
					return err
				}
				in.Series = &bare
			}

			frame, err := opts.frame(in.Options.TimeFrame)
			if err != nil {
				return err
			}
			in.Options.TimeFrame = frame

			engineCfg := opts.cfg.Insights.Config
			engineCfg.Logger = opts.logger
			engine, err := insights.NewEngine(engineCfg)
			if err != nil {
				return err
			}

			result, err := engine.Generate(cmd.Context(), in.Series, in.Options)
			if err != nil {
				return err
			}
			return opts.writeOutput(cmd, result)
		},
	}
}

// frame выбирает горизонт: флаг, затем файл, затем конфигурация
func (o *cliOptions) frame(fromFile models.TimeFrame) (models.TimeFrame, error) {
	if o.timeFrame != "" {
		tf := models.TimeFrame(o.timeFrame)
		if !tf.Valid() {
			return "", fmt.Errorf("invalid --timeframe %q: must be day, week or month", o.timeFrame)
		}
		return tf, nil
	}
	if fromFile.Valid() {
		return fromFile, nil
	}
	return o.cfg.Insights.TimeFrame, nil
}

func newFeaturesCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "features <biometrics.json>",
		Short: "Extract windowed features from raw biometric series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data features.BiometricData
			if err := readInput(cmd, args[0], &data); err != nil {
				return err
			}
			out, err := features.NewExtractor(opts.cfg.Features).Extract(data)
			if err != nil {
				return err
			}
			return opts.writeOutput(cmd, out)
		},
	}
}

func newFeatureInfoCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "feature-info",
		Short: "Describe the features produced by the extractor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := features.NewExtractor(opts.cfg.Features)
			return opts.writeOutput(cmd, map[string]interface{}{
				"windowSize": e.WindowSize(),
				"stepSize":   e.StepSize(),
				"features":   e.FeatureInfo(),
			})
		},
	}
}

func newReadinessCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "readiness <assessment.json>",
		Short: "Compute the readiness score of a daily assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var a models.Assessment
			if err := readInput(cmd, args[0], &a); err != nil {
				return err
			}
			scorer, err := readiness.NewScorer(opts.cfg.Readiness.Weights)
			if err != nil {
				return err
			}
			return opts.writeOutput(cmd, map[string]int{"readinessScore": scorer.Score(a)})
		},
	}
}

func newPatternsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "patterns <history.json>",
		Short: "Detect recurring patterns in an assessment history",
		Long:  "Detect recurring patterns in a JSON array of daily assessments.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var history []models.Assessment
			if err := readInput(cmd, args[0], &history); err != nil {
				return err
			}
			scorer, err := readiness.NewScorer(opts.cfg.Readiness.Weights)
			if err != nil {
				return err
			}
			detected := patterns.NewDetector(opts.cfg.Patterns, scorer).DetectAll(history)
			return opts.writeOutput(cmd, detected)
		},
	}
}
