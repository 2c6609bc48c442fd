package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/youcefh/backsnap/internal/snapshot"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the dated snapshots under each configured destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DESTINATION\tSNAPSHOT")
		for _, job := range cfg.Backups {
			dates := snapshot.List(job.DestDir)
			if len(dates) == 0 {
				fmt.Fprintf(tw, "%s\t-\n", job.DestDir)
				continue
			}
			for _, d := range dates {
				fmt.Fprintf(tw, "%s\t%s\n", job.DestDir, d)
			}
		}
		return tw.Flush()
	},
}
