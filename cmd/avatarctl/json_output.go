package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON prints v indented on the command's stdout for --json output.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeJSONList prints items as a JSON array; an empty listing is [] rather
// than null so scripts can iterate it unconditionally.
func writeJSONList[T any](cmd *cobra.Command, items []T) error {
	if items == nil {
		items = []T{}
	}
	return writeJSON(cmd, items)
}
