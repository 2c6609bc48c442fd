package cmd

import (
	"github.com/spf13/cobra"

	"github.com/youcefh/backsnap/internal/operations"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy without running any backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := operations.NewManager(cmd.Context(), cfg,
			operations.WithDryRun(DryRun),
		)
		if err != nil {
			return err
		}
		return m.PruneAll()
	},
}
