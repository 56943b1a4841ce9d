package main

import (
	"fmt"
	"os"

	"github.com/4thel00z/ucp/internal"
	"github.com/spf13/cobra"
)

func NewImportCmd(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <paths...>",
		Short: "Store local files as memories",
		Long: `Walk the given files and directories and store every text file as a
memory. Paths matched by .ucpignore in the current directory are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: makeImportRunner(connect),
	}

	cmd.Flags().Int("concurrency", internal.DefaultImportConcurrency, "Number of files stored in parallel")
	cmd.Flags().String("session", "", "Session the memories belong to")
	cmd.Flags().StringSliceP("tag", "t", nil, "Tag to attach to every memory")
	return cmd
}

func makeImportRunner(connect connectFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		session, _ := cmd.Flags().GetString("session")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		asJSON, _ := cmd.Flags().GetBool("json")

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		matcher, err := internal.NewIgnoreMatcher(cwd)
		if err != nil {
			return fmt.Errorf("load ignore rules: %w", err)
		}

		files, err := internal.CollectFiles(args, matcher)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import")
			return nil
		}

		client, cfg, err := connect(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		svc := internal.NewImportService(client)
		results, err := svc.Import(cmd.Context(), files, internal.ImportOptions{
			Project:     cfg.Project,
			Session:     session,
			Tags:        tags,
			Concurrency: concurrency,
		})
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}

		if asJSON {
			return writeJSON(cmd, importReport(results))
		}

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Path, r.Err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", r.Path, r.ID)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d files\n", len(results)-failed, len(results))

		if failed > 0 {
			return fmt.Errorf("%d files failed to import", failed)
		}
		return nil
	}
}

type importEntry struct {
	Path  string `json:"path"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

func importReport(results []internal.ImportResult) []importEntry {
	out := make([]importEntry, len(results))
	for i, r := range results {
		out[i] = importEntry{Path: r.Path, ID: r.ID}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}
