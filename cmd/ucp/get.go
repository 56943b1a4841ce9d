package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewGetCmd(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Retrieve a memory",
		Long:  `Retrieve and display the content of a memory.`,
		Args:  cobra.ExactArgs(1),
		RunE:  makeGetRunner(connect),
	}

	return cmd
}

func makeGetRunner(connect connectFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id := args[0]
		asJSON, _ := cmd.Flags().GetBool("json")

		client, cfg, err := connect(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		mem, err := client.Get(cmd.Context(), cfg.Project, id)
		if err != nil {
			return fmt.Errorf("get memory: %w", err)
		}

		if asJSON {
			return writeJSON(cmd, mem)
		}

		fmt.Fprintln(cmd.OutOrStdout(), mem.Content)
		return nil
	}
}
