package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"jwpub/internal/discovery"
)

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	var maxNotFound int

	cmd := &cobra.Command{
		Use:   "discover <pub> <language>",
		Short: "List published issues of a publication",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			threshold := cfg.Discovery.MaxNotFound
			if cmd.Flags().Changed("max-not-found") {
				threshold = maxNotFound
			}

			httpClient := &http.Client{Timeout: time.Duration(cfg.Discovery.RequestTimeout) * time.Second}
			client := discovery.NewClient(cfg.Discovery.Endpoint, httpClient, threshold, ctx.loggerValue())
			cursor := discovery.CursorFor(args[0], cfg.Discovery.StartYear, cfg.Discovery.StartMonth)

			found, err := client.Discover(cmd.Context(), args[0], args[1], cursor)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No published issues found.")
				return nil
			}

			rows := make([][]string, 0, len(found))
			for _, pub := range found {
				download := pub.JWPubURL
				if download == "" {
					download = "(none)"
				}
				rows = append(rows, []string{pub.Pub, pub.Issue, pub.Language, download})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Pub", "Issue", "Language", "Container"}, rows, 1))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxNotFound, "max-not-found", 0, "Consecutive misses before stopping (default from config)")
	return cmd
}
