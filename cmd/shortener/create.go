package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var createURL string

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Shorten a long URL.",
	Long: `Shortens a long URL and prints its short code and short URL.
Running it again with the same URL prints the same code.

Example:
  shortener create --url="https://www.google.com/search?q=go+lang"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if createURL == "" {
			return errors.New("the --url flag is required")
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		resp, err := a.shortener.Shorten(cmd.Context(), a.baseURL(), createURL)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Short code: %s\nShort URL:  %s\n", resp.ShortCode, resp.ShortURL)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createURL, "url", "", "long URL to shorten (required)")
	createCmd.MarkFlagRequired("url")
}
