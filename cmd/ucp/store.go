package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/4thel00z/ucp/internal"
	"github.com/spf13/cobra"
)

func NewStoreCmd(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store [content]",
		Short: "Store a memory",
		Long:  `Store a new memory in the current project. Reads from stdin if content is not provided.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  makeStoreRunner(connect),
	}

	cmd.Flags().String("session", "", "Session the memory belongs to")
	cmd.Flags().StringSliceP("tag", "t", nil, "Tag to attach (repeatable)")
	cmd.Flags().StringToString("meta", nil, "Metadata key=value; values that parse as JSON are kept as JSON")
	return cmd
}

func makeStoreRunner(connect connectFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		content, err := resolveContent(cmd, args)
		if err != nil {
			return err
		}

		session, _ := cmd.Flags().GetString("session")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		meta, _ := cmd.Flags().GetStringToString("meta")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, cfg, err := connect(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		mem, err := client.Store(cmd.Context(), internal.MemoryRequest{
			Project:  cfg.Project,
			Session:  session,
			Content:  content,
			Metadata: parseMetadata(meta),
			Tags:     tags,
		})
		if err != nil {
			return fmt.Errorf("store memory: %w", err)
		}

		if asJSON {
			return writeJSON(cmd, mem)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", mem.ID)
		return nil
	}
}

func resolveContent(cmd *cobra.Command, args []string) (string, error) {
	if len(args) >= 1 {
		return args[0], nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func parseMetadata(kv map[string]string) internal.Metadata {
	if len(kv) == 0 {
		return nil
	}
	meta := make(internal.Metadata, len(kv))
	for k, v := range kv {
		if json.Valid([]byte(v)) {
			meta[k] = json.RawMessage(v)
			continue
		}
		raw, _ := json.Marshal(v)
		meta[k] = raw
	}
	return meta
}
