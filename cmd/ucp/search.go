package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/4thel00z/ucp/internal"
	v1 "github.com/4thel00z/ucp/pkg/v1"
	"github.com/spf13/cobra"
)

const defaultSearchLimit = 10

func NewSearchCmd(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search memories by similarity",
		Long: `Run a similarity search in the current project.

With --stream, results are printed as the server produces them. Lines the
server sends malformed are reported on stderr and skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: makeSearchRunner(connect),
	}

	cmd.Flags().Uint32P("limit", "n", defaultSearchLimit, "Maximum number of results")
	cmd.Flags().Float64("threshold", 0, "Minimum similarity score")
	cmd.Flags().String("session", "", "Restrict to a session")
	cmd.Flags().StringSliceP("tag", "t", nil, "Restrict to memories carrying these tags")
	cmd.Flags().Bool("stream", false, "Stream results as NDJSON")
	return cmd
}

func makeSearchRunner(connect connectFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetUint32("limit")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		session, _ := cmd.Flags().GetString("session")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		stream, _ := cmd.Flags().GetBool("stream")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, cfg, err := connect(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		query := internal.VectorQuery{
			Project:   cfg.Project,
			Query:     strings.Join(args, " "),
			Limit:     limit,
			Threshold: threshold,
			Tags:      tags,
		}
		if session != "" {
			query.Session = &session
		}

		if stream {
			return streamResults(cmd, client, query, asJSON)
		}

		results, err := client.Search(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if asJSON {
			return writeJSON(cmd, results)
		}

		if len(results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No results found")
			return nil
		}
		for _, mem := range results {
			printResult(cmd.OutOrStdout(), mem)
		}
		return nil
	}
}

func streamResults(cmd *cobra.Command, client *v1.Client, query internal.VectorQuery, asJSON bool) error {
	stream, err := client.StreamSearch(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	defer stream.Close()

	for mem, err := range stream.All() {
		var decodeErr *internal.DecodeError
		if errors.As(err, &decodeErr) {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipping: %v\n", err)
			continue
		}
		if err != nil {
			return fmt.Errorf("search stream: %w", err)
		}

		if asJSON {
			if err := writeJSON(cmd, mem); err != nil {
				return err
			}
			continue
		}
		printResult(cmd.OutOrStdout(), mem)
	}
	return nil
}

func printResult(w io.Writer, mem internal.Memory) {
	score := "-"
	if mem.Score != nil {
		score = fmt.Sprintf("%.3f", *mem.Score)
	}
	fmt.Fprintf(w, "%s (%s): %s\n", mem.ID, score, firstLine(mem.Content))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
