package cmd

import (
	"fmt"

	"record-sync/feature/mappings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var mappingsFile string

// mappingsCmd is the parent command for mapping definition operations.
var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Work with mapping definitions",
}

// mappingsValidateCmd loads the definitions, builds every record type and
// checks that the mapped fields exist on both stores.
var mappingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the mapping definitions against both stores",
	Long: `Parses the mappings file, connects to the local database and the remote API,
and checks every mapped field, lookup column and association.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, l, err := loadCLI()
		if err != nil {
			return err
		}
		defer l.Sync()

		if mappingsFile != "" {
			cfg.Sync.MappingsFile = mappingsFile
		}

		file, err := mappings.Load(cfg.Sync.MappingsFile)
		if err != nil {
			return fmt.Errorf("failed to load mappings: %w", err)
		}
		l.Info("Parsed mappings file",
			zap.String("path", cfg.Sync.MappingsFile),
			zap.Int("mappings", len(file.Mappings)))

		eng, err := newEngine(ctx, cfg, l)
		if err != nil {
			return err
		}
		for _, m := range eng.registry.Mappings() {
			l.Info("Mapping valid",
				zap.String("mapping", m.Name),
				zap.String("local", m.Local.Name()),
				zap.String("remote", m.Remote.Name()),
				zap.String("strategy", m.Strategy.Name()),
				zap.Int("fields", len(m.Attributes.Fields())),
				zap.Int("associations", len(m.Associations)))
		}
		return nil
	},
}

func init() {
	mappingsValidateCmd.Flags().StringVar(&mappingsFile, "file", "", "Mappings file (defaults to SYNC_MAPPINGS_FILE)")
	mappingsCmd.AddCommand(mappingsValidateCmd)
	RootCmd.AddCommand(mappingsCmd)
}
