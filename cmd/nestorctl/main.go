package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nestor-insights/internal/config"
	"nestor-insights/internal/logging"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cliOptions общие флаги всех команд
type cliOptions struct {
	configPath string
	timeFrame  string
	pretty     bool
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "nestorctl",
		Short: "Run health insights analytics over local JSON files",
		Long: `nestorctl runs the biometric analytics pipeline locally: insights reports,
feature extraction, readiness scoring and pattern detection.

Input files are JSON; use "-" to read from stdin.

Examples:
  # Weekly insights report
  nestorctl insights series.json --pretty

  # Monthly report with custom weights
  nestorctl insights series.json --timeframe month --config nestor.yaml

  # Readiness score of one assessment
  cat assessment.json | nestorctl readiness -`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (environment variables override it)")
	root.PersistentFlags().StringVar(&opts.timeFrame, "timeframe", "", "Analysis horizon: day, week or month")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "Indent JSON output")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newInsightsCmd(opts),
		newFeaturesCmd(opts),
		newFeatureInfoCmd(opts),
		newReadinessCmd(opts),
		newPatternsCmd(opts),
	)
	return root
}

// load читает конфигурацию и создает логгер
func (o *cliOptions) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg

	logCfg := logging.Config{Level: "warn", Format: logging.FormatConsole}
	if o.verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg, "nestorctl")
	if err != nil {
		return err
	}
	o.logger = logger
	return nil
}

// readInput читает файл или stdin ("-") и декодирует JSON в v
func readInput(cmd *cobra.Command, path string, v interface{}) error {
	raw, err := readRaw(cmd, path)
	if err != nil {
		return err
	}
	return decodeInput(path, raw, v)
}

func readRaw(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return raw, nil
}

func decodeInput(path string, raw []byte, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// writeOutput печатает результат в JSON
func (o *cliOptions) writeOutput(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if o.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
