package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/4thel00z/ucp/internal"
)

const externalPrefix = "ucp-"

func findExternal(name string) (string, error) {
	binary := externalPrefix + name
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("unknown command %q: %s not found in PATH", name, binary)
	}
	return path, nil
}

func listExternalCommands() []string {
	var commands []string
	seen := make(map[string]bool)

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := externalName(dir, entry)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			commands = append(commands, name)
		}
	}
	return commands
}

// externalName returns the subcommand name for an executable ucp-* entry, or
// "" when entry is not one.
func externalName(dir string, entry os.DirEntry) string {
	if entry.IsDir() || !strings.HasPrefix(entry.Name(), externalPrefix) {
		return ""
	}

	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	if err != nil || info.Mode()&0111 == 0 {
		return ""
	}
	return strings.TrimPrefix(entry.Name(), externalPrefix)
}

func executeExternal(ctx context.Context, name string, args []string, version string) error {
	binaryPath, err := findExternal(name)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, binaryPath, args...)
	cmd.Env = externalEnv(os.Environ(), newApp(), version)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

// externalEnv extends base with the resolved scope and connection settings.
// The API key is not exported; plugins read it from UCP_API_KEY or the config
// file themselves.
func externalEnv(base []string, a *app, version string) []string {
	scope := a.resolver.Resolve("")
	cfg, err := internal.LoadConfig(scope)
	if err != nil {
		cfg = internal.DefaultConfig()
	}
	_ = internal.ApplyEnv(cfg, a.getenv)

	vars := a.resolver.EnvVars(scope, cfg, version)
	env := append([]string(nil), base...)
	for _, k := range sortedKeys(vars) {
		env = append(env, k+"="+vars[k])
	}
	return env
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
