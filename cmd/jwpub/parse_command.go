package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"jwpub/internal/config"
	"jwpub/internal/pipeline"
)

func newParseCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "parse <container.jwpub>",
		Short: "Extract a local publication container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			input, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("container file: %w", err)
			}

			target := strings.TrimSpace(outputDir)
			if target == "" {
				base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
				target = filepath.Join(cfg.Paths.OutputDir, base)
			} else if target, err = config.ExpandPath(target); err != nil {
				return err
			}

			p := pipeline.New(cfg, ctx.loggerValue())
			m, err := p.ProcessFile(cmd.Context(), input, target)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %s %s: %d documents -> %s\n",
				m.Publication, m.Issue, len(m.Documents), target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: <output_dir>/<container name>)")
	return cmd
}
