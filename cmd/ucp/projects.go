package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewProjectsCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects known to the server",
		Args:  cobra.NoArgs,
		RunE:  makeProjectsRunner(connect),
	}
}

func makeProjectsRunner(connect connectFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, _, err := connect(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		projects, err := client.ListProjects(cmd.Context())
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		if asJSON {
			return writeJSON(cmd, projects)
		}
		for _, p := range projects {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	}
}
