// Command trainer runs the offline model jobs: fitting the crop ensemble,
// comparing candidate models and scoring a saved artifact.
//
// Usage:
//
//	trainer train --config training.yaml
//	trainer compare --dataset datasets_all.xlsx --report compare.yaml
//	trainer evaluate --model-dir models --dataset holdout.csv
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/agromind-service/internal/observability"
	"github.com/couchcryptid/agromind-service/internal/training"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "trainer",
		Short:        "Train, compare and evaluate crop recommendation models",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "training config file (YAML); AGROMIND_TRAIN_* env vars override it")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format: json or text")

	root.AddCommand(newTrainCmd(opts), newCompareCmd(opts), newEvaluateCmd(opts))
	return root
}

// jobFlags are the config keys a command line may override.
type jobFlags struct {
	dataset string
	output  string
	report  string
}

func (f *jobFlags) register(cmd *cobra.Command, withOutput bool) {
	cmd.Flags().StringVar(&f.dataset, "dataset", "", "training spreadsheet (.xlsx or .csv)")
	cmd.Flags().StringVar(&f.report, "report", "", "write a YAML report to this path")
	if withOutput {
		cmd.Flags().StringVar(&f.output, "output", "", "artifact output directory")
	}
}

// load reads the config file and env, then applies explicitly set flags.
func (f *jobFlags) load(cmd *cobra.Command, opts *rootOptions) (training.Config, error) {
	cfg, err := training.LoadConfig(opts.configPath)
	if err != nil {
		return training.Config{}, err
	}
	if cmd.Flags().Changed("dataset") {
		cfg.Dataset = f.dataset
	}
	if cmd.Flags().Changed("report") {
		cfg.Report = f.report
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = f.output
	}
	return cfg, cfg.Validate()
}

func newTrainCmd(opts *rootOptions) *cobra.Command {
	flags := &jobFlags{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the voting ensemble and save the model artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(cmd, opts)
			if err != nil {
				return err
			}
			logger := observability.NewLogger(opts.logLevel, opts.logFormat)
			report, err := training.Train(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model saved to %s: accuracy %.4f, macro F1 %.4f (%d train / %d test rows)\n",
				report.ModelDir, report.Test.Accuracy, report.Test.MacroF1, report.TrainSamples, report.TestSamples)
			return nil
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newCompareCmd(opts *rootOptions) *cobra.Command {
	flags := &jobFlags{}
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Score a decision tree, random forest, gradient boosting and the ensemble on one split",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(cmd, opts)
			if err != nil {
				return err
			}
			logger := observability.NewLogger(opts.logLevel, opts.logFormat)
			report, err := training.Compare(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-20s %9s %9s %9s %10s\n", "model", "accuracy", "macro_f1", "wtd_f1", "train_s")
			for _, m := range report.Models {
				fmt.Fprintf(out, "%-20s %9.4f %9.4f %9.4f %10.2f\n", m.Model, m.Accuracy, m.MacroF1, m.WeightedF1, m.TrainSeconds)
			}
			return nil
		},
	}
	flags.register(cmd, false)
	return cmd
}

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	var modelDir, datasetPath, reportPath string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a saved model artifact against a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := observability.NewLogger(opts.logLevel, opts.logFormat)
			report, err := training.Evaluate(cmd.Context(), modelDir, datasetPath, reportPath, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s on %s: accuracy %.4f, macro F1 %.4f (%d rows, %d skipped)\n",
				report.Model, report.Dataset, report.Scores.Accuracy, report.Scores.MacroF1, report.Scores.Samples, report.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&modelDir, "model-dir", "models", "artifact directory")
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset to score (.xlsx or .csv)")
	cmd.Flags().StringVar(&reportPath, "report", "", "write a YAML report to this path")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}
