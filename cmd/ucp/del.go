package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewDelCmd(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "del <id>",
		Aliases: []string{"delete", "rm"},
		Short:   "Delete a memory",
		Long:    `Delete a memory by id.`,
		Args:    cobra.ExactArgs(1),
		RunE:    makeDelRunner(connect),
	}

	return cmd
}

func makeDelRunner(connect connectFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id := args[0]

		client, cfg, err := connect(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Delete(cmd.Context(), cfg.Project, id); err != nil {
			return fmt.Errorf("delete memory: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
		return nil
	}
}
