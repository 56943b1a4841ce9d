package main

import (
	"fmt"
	"strings"

	"github.com/4thel00z/ucp/internal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type configLoader func(cmd *cobra.Command) (*internal.Config, internal.Scope, error)

func NewConfigCmd(load configLoader, resolver *internal.ScopeResolver) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage client configuration",
	}

	cmd.AddCommand(NewInitCmd(resolver), newConfigShowCmd(load), newConfigPathCmd(load))
	return cmd
}

func newConfigShowCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after merging the config file, UCP_* variables and flags. The API key is masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := load(cmd)
			if err != nil {
				return err
			}

			shown := *cfg
			shown.APIKey = maskSecret(shown.APIKey)

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd, shown)
			}

			data, err := yaml.Marshal(&shown)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigPathCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, scope, err := load(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", scope.ConfigPath(), scope.Type)
			return nil
		},
	}
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
