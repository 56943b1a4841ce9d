package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ucp",
		Short:         "Client for the UCP memory server",
		Long:          `Store, search and stream agent memories held by a UCP server.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)
	setHelpWithExternals(rootCmd)

	if a != nil {
		a.version = version
		addSubcommands(rootCmd, a)
	}

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("scope", "", "Config scope (global|project)")
	cmd.PersistentFlags().String("base-url", "", "Server base URL")
	cmd.PersistentFlags().String("api-key", "", "API key sent as bearer token")
	cmd.PersistentFlags().StringP("project", "p", "", "Project to operate on")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log requests to stderr")
}

func addSubcommands(root *cobra.Command, a *app) {
	connect := a.connect

	root.AddCommand(
		NewInitCmd(a.resolver),
		NewConfigCmd(a.loadConfig, a.resolver),
		NewStoreCmd(connect),
		NewGetCmd(connect),
		NewDelCmd(connect),
		NewSearchCmd(connect),
		NewProjectsCmd(connect),
		NewStatsCmd(connect),
		NewHealthCmd(connect),
		NewImportCmd(connect),
		NewWatchCmd(connect),
	)
}

func setHelpWithExternals(cmd *cobra.Command) {
	defaultHelp := cmd.HelpFunc()

	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		defaultHelp(c, args)
		printExternalCommands(c)
	})
}

func printExternalCommands(cmd *cobra.Command) {
	externals := listExternalCommands()
	if len(externals) == 0 {
		return
	}

	fmt.Fprintln(cmd.OutOrStdout(), "\nExternal commands (ucp-*):")
	for _, name := range externals {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
	}
}
