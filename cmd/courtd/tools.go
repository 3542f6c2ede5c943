package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-court-backend/internal/tools"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the judge's action schemas as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tools.Schemas())
		},
	}
}
