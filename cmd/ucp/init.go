package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/4thel00z/ucp/internal"
	"github.com/spf13/cobra"
)

func NewInitCmd(resolver *internal.ScopeResolver) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize client configuration",
		Long:  `Create a .ucp directory holding a config.yaml with default connection settings.`,
		RunE:  makeInitRunner(resolver),
	}

	cmd.Flags().Bool("global", false, "Initialize global scope (~/.ucp)")
	return cmd
}

func makeInitRunner(resolver *internal.ScopeResolver) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		isGlobal, _ := cmd.Flags().GetBool("global")

		var scope internal.Scope
		if isGlobal {
			scope = resolver.Global()
		} else {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			scope = internal.Scope{
				Type:    internal.ScopeProject,
				Path:    cwd,
				UcpPath: filepath.Join(cwd, internal.ScopeDirName),
			}
		}

		if _, err := os.Stat(scope.ConfigPath()); err == nil {
			return fmt.Errorf("already initialized at %s", scope.UcpPath)
		}

		cfg := internal.DefaultConfig()
		if scope.Type == internal.ScopeProject {
			cfg.Project = filepath.Base(scope.Path)
		}
		if err := internal.SaveConfig(scope, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Initialized ucp config at %s\n", scope.ConfigPath())
		return nil
	}
}
