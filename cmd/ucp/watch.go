package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/4thel00z/ucp/internal"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func NewWatchCmd(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Store files as memories when they change",
		Long: `Watch a directory tree and store every file that is created or written
as a new memory. Changes are batched over the debounce window.`,
		Args: cobra.ExactArgs(1),
		RunE: makeWatchRunner(connect),
	}

	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Debounce window for batching changes")
	cmd.Flags().String("session", "", "Session the memories belong to")
	cmd.Flags().StringSliceP("tag", "t", nil, "Tag to attach to every memory")
	return cmd
}

func makeWatchRunner(connect connectFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		debounce, _ := cmd.Flags().GetDuration("debounce")
		session, _ := cmd.Flags().GetString("session")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		root, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolve %s: %w", args[0], err)
		}
		matcher, err := internal.NewIgnoreMatcher(root)
		if err != nil {
			return fmt.Errorf("load ignore rules: %w", err)
		}

		client, cfg, err := connect(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()

		if err := addWatchDirs(watcher, root, matcher); err != nil {
			return fmt.Errorf("add watch dirs: %w", err)
		}

		svc := internal.NewImportService(client)
		opts := internal.ImportOptions{Project: cfg.Project, Session: session, Tags: tags}

		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes...\n", root)

		timer := time.NewTimer(time.Hour)
		timer.Stop()
		changed := make(map[string]struct{})

		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if !matcher.MatchDir(event.Name) {
							_ = addWatchDirs(watcher, event.Name, matcher)
						}
						continue
					}
				}
				if shouldIgnoreEvent(event, matcher) {
					continue
				}
				if len(changed) == 0 {
					timer.Reset(debounce)
				}
				changed[event.Name] = struct{}{}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
			case <-timer.C:
				for _, path := range drainChanged(changed) {
					mem, err := svc.StoreFile(cmd.Context(), path, opts)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", path, mem.ID)
				}
			}
		}
	}
}

func addWatchDirs(watcher *fsnotify.Watcher, root string, matcher *internal.IgnoreMatcher) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && matcher.MatchDir(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func shouldIgnoreEvent(event fsnotify.Event, matcher *internal.IgnoreMatcher) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return true
	}
	return matcher.Match(event.Name)
}

// drainChanged empties the set and returns its paths in sorted order.
func drainChanged(changed map[string]struct{}) []string {
	paths := make([]string, 0, len(changed))
	for p := range changed {
		paths = append(paths, p)
		delete(changed, p)
	}
	sort.Strings(paths)
	return paths
}
