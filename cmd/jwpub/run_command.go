package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jwpub/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var maxNotFound int

	cmd := &cobra.Command{
		Use:   "run <pub> <language>",
		Short: "Discover, download, and extract every published issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-not-found") {
				cfg.Discovery.MaxNotFound = maxNotFound
			}

			p := pipeline.New(cfg, ctx.loggerValue())
			result, err := p.Run(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"Discovered %d, extracted %d, failed %d, skipped %d\n",
				result.Discovered, result.Succeeded, result.Failed, result.Skipped)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxNotFound, "max-not-found", 0, "Consecutive misses before discovery stops (default from config)")
	return cmd
}
