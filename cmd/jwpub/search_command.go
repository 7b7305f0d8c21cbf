package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jwpub/internal/manifest"
	"jwpub/internal/searchidx"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search previously extracted documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			root := strings.TrimSpace(dir)
			if root == "" {
				root = cfg.Paths.OutputDir
			}

			index, indexed, err := buildIndex(root)
			if err != nil {
				return err
			}
			if indexed == 0 {
				return fmt.Errorf("no manifests found under %s", root)
			}

			results := index.Search(strings.Join(args, " "))
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
				return nil
			}
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}

			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{
					strconv.Itoa(result.Score),
					strconv.Itoa(result.Document.ID),
					result.Document.Title,
					truncate(result.Document.Text, 80),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Score", "Document", "Title", "Preview"}, rows, 0, 1))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory tree containing manifests (default: output_dir)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results to show")
	return cmd
}

// truncate shortens s to at most max runes, marking elided text. Byte slicing
// would split multibyte characters at the boundary.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

// buildIndex loads every manifest under root and indexes its documents.
// Returns the number of manifests indexed.
func buildIndex(root string) (*searchidx.Index, int, error) {
	index := searchidx.New()
	manifests := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != manifest.FileName {
			return nil
		}
		m, err := manifest.Load(path)
		if err != nil {
			return err
		}
		manifests++
		for _, doc := range m.Documents {
			index.AddDocument(doc.ID, doc.Title, doc.HTML)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan manifests under %s: %w", root, err)
	}
	return index, manifests, nil
}
