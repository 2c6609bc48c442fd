package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/youcefh/backsnap/internal/config"
	"github.com/youcefh/backsnap/internal/logger"
	"github.com/youcefh/backsnap/internal/operations"
)

var (
	// ConfigFile is the path to the JSON (or YAML) configuration.
	ConfigFile string
	// DryRun reports planned deletions and transfers without acting.
	DryRun bool

	rootCmd = &cobra.Command{
		Use:   "backsnap",
		Short: "Directory-tree backups over rsync with snapshot retention",
		Long: `backsnap backs up directory trees through the system rsync binary and
prunes old dated snapshots under each destination, using either a
fixed keep-last count or grandfather-father-son tiered retention.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command with signal-driven cancellation: an
// interrupt kills any in-flight rsync subprocess and exits non-zero.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	logger.Cleanup()
	if err == nil {
		return
	}

	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "backsnap: interrupted, terminating")
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	if errors.Is(err, errBadArgs) || errors.Is(err, operations.ErrInvalidJob) {
		_ = rootCmd.Usage()
	}
	os.Exit(1)
}

// errBadArgs marks missing or malformed command-line input.
var errBadArgs = errors.New("invalid arguments")

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&ConfigFile, "config", "c", "", "path to JSON config file")
	rootCmd.PersistentFlags().
		BoolVar(&DryRun, "dry-run", false, "report actions without performing them")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(listCmd)
}

// loadConfig resolves the job list from --config and initializes logging
// per its log section.
func loadConfig() (config.Config, error) {
	var cfg config.Config
	if ConfigFile == "" {
		return cfg, fmt.Errorf("%w: config file is required (-c flag)", errBadArgs)
	}
	if err := cfg.Load(ConfigFile); err != nil {
		return cfg, err
	}
	if err := initLogging(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// initLogging builds the process logger from the config's log section.
// An unwritable log path is fatal before anything destructive runs.
func initLogging(cfg config.Config) error {
	opts := []logger.Option{logger.WithLevel(cfg.Log.Level)}
	if cfg.Log.File != "" {
		opts = append(opts, logger.WithFile(cfg.Log.File, cfg.Log.MaxSizeKB))
	}
	if _, err := logger.Init(opts...); err != nil {
		return err
	}
	return nil
}
