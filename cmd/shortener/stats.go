package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/darkodi/snip/internal/model"
)

var statsCmd = &cobra.Command{
	Use:   "stats <short_code>",
	Short: "Print click statistics for a short code as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		mapping, err := a.redirector.Stats(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(model.NewStatsResponse(mapping))
	},
}
