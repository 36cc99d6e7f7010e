package cmd

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"record-sync/core/config"
	"record-sync/core/logger"
	"record-sync/core/windowstore"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	windowMapping string
	yesConfirm    bool
)

// windowCmd is the parent command for window operations.
var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Inspect or reset the stored reconciliation windows",
}

// windowShowCmd prints the stored window ends.
var windowShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored window end of every mapping, or of --mapping",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, l, err := loadCLI()
		if err != nil {
			return err
		}
		defer l.Sync()

		windows, err := openWindowStoreFor(cmd, cfg)
		if err != nil {
			return err
		}

		if windowMapping != "" {
			end, err := windows.Load(ctx, windowMapping)
			if err != nil {
				return fmt.Errorf("failed to load window: %w", err)
			}
			logWindow(l, windowMapping, end)
			return nil
		}

		all, err := windows.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list windows: %w", err)
		}
		if len(all) == 0 {
			l.Info("No windows stored yet")
		}
		for _, name := range slices.Sorted(maps.Keys(all)) {
			logWindow(l, name, all[name])
		}
		return nil
	},
}

// windowResetCmd forgets the stored window of one mapping.
var windowResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the window of --mapping so the next cycle rescans every record",
	RunE: func(cmd *cobra.Command, args []string) error {
		if windowMapping == "" {
			return fmt.Errorf("--mapping is required")
		}
		cfg, l, err := loadCLI()
		if err != nil {
			return err
		}
		defer l.Sync()

		windows, err := openWindowStoreFor(cmd, cfg)
		if err != nil {
			return err
		}

		if !confirmDestructiveAction() {
			l.Warn("Operation cancelled by user. No changes were made.")
			return nil
		}
		if err := windows.Reset(cmd.Context(), windowMapping); err != nil {
			return fmt.Errorf("failed to reset window: %w", err)
		}
		l.Info("Window reset", zap.String("mapping", windowMapping))
		return nil
	},
}

func init() {
	windowCmd.PersistentFlags().StringVar(&windowMapping, "mapping", "", "Mapping name")
	windowResetCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm the reset (non-interactive)")
	windowCmd.AddCommand(windowShowCmd, windowResetCmd)
	RootCmd.AddCommand(windowCmd)
}

func loadCLI() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, l, nil
}

// openWindowStoreFor opens the window backend, connecting to the database
// only when the backend lives there.
func openWindowStoreFor(cmd *cobra.Command, cfg *config.Config) (windowstore.Store, error) {
	if cfg.Tracker.Backend != windowstore.BackendDatabase && cfg.Tracker.Backend != "" {
		return openWindowStore(cmd.Context(), cfg, nil)
	}
	db, err := connectDatabase(cfg)
	if err != nil {
		return nil, err
	}
	return openWindowStore(cmd.Context(), cfg, db)
}

func logWindow(l *zap.Logger, mapping string, end time.Time) {
	if end.IsZero() {
		l.Info("Window", zap.String("mapping", mapping), zap.String("end", "none"))
		return
	}
	l.Info("Window", zap.String("mapping", mapping), zap.Time("end", end))
}

// confirmDestructiveAction asks for an explicit "yes" unless --yes was given.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
