package main

import (
	"encoding/json"
	"fmt"

	"github.com/4thel00z/ucp/internal"
	v1 "github.com/4thel00z/ucp/pkg/v1"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// connectFunc resolves configuration for cmd and returns a ready client.
type connectFunc func(cmd *cobra.Command) (*v1.Client, *internal.Config, error)

type app struct {
	resolver *internal.ScopeResolver
	getenv   func(string) string
	version  string
}

// loadConfig layers the scope's config file, UCP_* variables and flags, in
// increasing precedence.
func (a *app) loadConfig(cmd *cobra.Command) (*internal.Config, internal.Scope, error) {
	scopeHint, _ := cmd.Flags().GetString("scope")
	scope := a.resolver.Resolve(scopeHint)

	cfg, err := internal.LoadConfig(scope)
	if err != nil {
		return nil, scope, err
	}
	if err := internal.ApplyEnv(cfg, a.getenv); err != nil {
		return nil, scope, err
	}
	applyFlags(cmd, cfg)
	return cfg, scope, nil
}

func applyFlags(cmd *cobra.Command, cfg *internal.Config) {
	if v, _ := cmd.Flags().GetString("base-url"); v != "" {
		cfg.BaseURL = v
	}
	if v, _ := cmd.Flags().GetString("api-key"); v != "" {
		cfg.APIKey = v
	}
	if v, _ := cmd.Flags().GetString("project"); v != "" {
		cfg.Project = v
	}
}

func (a *app) connect(cmd *cobra.Command) (*v1.Client, *internal.Config, error) {
	cfg, _, err := a.loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	conn := cfg.ClientConfig()
	conn.UserAgent = "ucp/" + a.version
	opts := []v1.Option{
		v1.WithConfig(conn),
		v1.WithLogger(logger),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, v1.WithRateLimit(cfg.RateLimit, 1))
	}

	client, err := v1.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
