package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func NewHealthCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE:  makeHealthRunner(connect),
	}
}

func makeHealthRunner(connect connectFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, _, err := connect(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		health, err := client.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("health check: %w", err)
		}

		if asJSON {
			return writeJSON(cmd, health)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Status:  %s\n", health.Status)
		fmt.Fprintf(w, "Version: %s\n", health.Version)
		fmt.Fprintf(w, "Uptime:  %s\n", time.Duration(health.Uptime)*time.Second)

		keys := make([]string, 0, len(health.MemoryUsage))
		for k := range health.MemoryUsage {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %d\n", k, health.MemoryUsage[k])
		}
		return nil
	}
}
