package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"record-sync/core/config"
	"record-sync/core/logger"
	"record-sync/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncMapping string
	syncJSON    bool
)

// syncCmd runs one reconciliation cycle and exits.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation cycle now",
	Long: `Runs a single reconciliation cycle for every mapping, or only for the one
named with --mapping, and prints the cycle reports.

Examples:
  # Reconcile every mapping
  sync

  # Reconcile contacts only, JSON output
  sync --mapping contacts --json`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncMapping, "mapping", "", "Reconcile only this mapping")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "Print the reports as JSON")
	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	eng, err := newEngine(ctx, cfg, l)
	if err != nil {
		return err
	}

	var (
		reports []*reconcile.CycleReport
		runErr  error
	)
	if syncMapping != "" {
		report, err := eng.runner.RunMapping(ctx, syncMapping)
		if report != nil {
			reports = append(reports, report)
		}
		runErr = err
	} else {
		reports, runErr = eng.runner.RunAll(ctx)
	}

	if syncJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("failed to encode reports: %w", err)
		}
	} else {
		for _, r := range reports {
			if r != nil {
				printCycleReport(l, r)
			}
		}
	}

	if runErr != nil {
		return fmt.Errorf("reconciliation failed: %w", runErr)
	}
	return nil
}

// printCycleReport prints a cycle report using the logger.
func printCycleReport(l *zap.Logger, r *reconcile.CycleReport) {
	l = logger.WithMapping(l, r.Mapping)
	l.Info("Cycle report",
		zap.Time("window_after", r.Window.After),
		zap.Time("window_before", r.Window.Before),
		zap.Int("collected", r.Collected),
		zap.Int("unpaired", r.Unpaired),
		zap.Int("created", r.Created),
		zap.Int("updated", r.Updated),
		zap.Int("removed", r.Removed),
		zap.Int("skipped", r.Skipped),
		zap.Int("failures", len(r.Failures)),
		zap.Time("advanced", r.Advanced),
		zap.Duration("duration", r.Duration),
	)
	for _, f := range r.Failures {
		l.Warn("Record failed",
			zap.String("key", f.Key.String()),
			zap.String("operation", f.Operation),
			zap.String("side", f.Side.String()),
			zap.String("error", f.Message),
		)
	}
	if r.Error != "" {
		l.Error("Cycle stopped early", zap.String("error", r.Error))
	}
}
