package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func NewStatsCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show project statistics",
		Args:  cobra.NoArgs,
		RunE:  makeStatsRunner(connect),
	}
}

func makeStatsRunner(connect connectFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, cfg, err := connect(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		stats, err := client.Stats(cmd.Context(), cfg.Project)
		if err != nil {
			return fmt.Errorf("project stats: %w", err)
		}

		if asJSON {
			return writeJSON(cmd, stats)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Project:  %s\n", stats.Project)
		fmt.Fprintf(w, "Memories: %d\n", stats.TotalMemories)
		fmt.Fprintf(w, "Sessions: %d\n", stats.TotalSessions)
		fmt.Fprintf(w, "Size:     %d bytes\n", stats.TotalSizeBytes)
		fmt.Fprintf(w, "Created:  %s\n", formatUnix(stats.CreatedAt))
		fmt.Fprintf(w, "Updated:  %s\n", formatUnix(stats.LastUpdated))
		return nil
	}
}

func formatUnix(ts uint64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}
