package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/youcefh/backsnap/internal/config"
	"github.com/youcefh/backsnap/internal/operations"
)

var keepLast int

var backupCmd = &cobra.Command{
	Use:   "backup [SRC DEST]",
	Short: "Prune stale snapshots, then back up each configured job",
	Long: `With SRC and DEST, backs up that single directory pair with a fixed
keep-last retention of --keep snapshots. With no arguments, processes
every job from the config file (-c), using its retention section.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("%w: expected no arguments or exactly SRC DEST, got %d", errBadArgs, len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveJobs(args)
		if err != nil {
			return err
		}
		m, err := operations.NewManager(cmd.Context(), cfg,
			operations.WithDryRun(DryRun),
		)
		if err != nil {
			return err
		}
		return m.RunAll()
	},
}

// resolveJobs builds the effective configuration: a single synthetic job
// from two positional paths, or the full job list from the config file.
func resolveJobs(args []string) (config.Config, error) {
	if len(args) == 2 {
		cfg := config.Config{
			Retention: config.RetentionConfig{
				Policy:   config.PolicyFixed,
				KeepLast: keepLast,
			},
			Backups: []config.Job{{SrcDir: args[0], DestDir: args[1]}},
		}
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
		if err := initLogging(cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}
	return loadConfig()
}

func init() {
	backupCmd.Flags().
		IntVar(&keepLast, "keep", 7, "snapshots to keep in two-argument mode")
}
