package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/4thel00z/ucp/internal"
	"github.com/charmbracelet/fang"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches to a ucp-* plugin when one matches the first argument and to
// the builtin commands otherwise. SIGINT and SIGTERM cancel the context, which
// stops watch and open search streams.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if name, ok := externalTarget(args); ok {
		err := executeExternal(ctx, name, args[1:], version)
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "ucp %s: %v\n", name, err)
		}
		return exitCode(err)
	}

	rootCmd := NewRootCmd(version, newApp())
	rootCmd.SetArgs(args)
	if err := fang.Execute(ctx, rootCmd); err != nil {
		return 1
	}
	return 0
}

func externalTarget(args []string) (string, bool) {
	if len(args) == 0 || args[0] == "" || args[0][0] == '-' {
		return "", false
	}
	if _, err := findExternal(args[0]); err != nil {
		return "", false
	}
	return args[0], true
}

// exitCode mirrors a plugin's exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}

func newApp() *app {
	return &app{
		resolver: internal.NewScopeResolver(),
		getenv:   os.Getenv,
	}
}
