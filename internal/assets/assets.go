// Package assets copies media entries out of a container's inner archive into
// an issue's output directory. File names are preserved exactly; they are the
// join key with the rewritten src attributes in normalized HTML.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jwpub/internal/archive"
)

// imageExtensions lists the media entry suffixes extracted from containers.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
}

// IsImage reports whether the entry name carries a known image extension.
func IsImage(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extract copies every image entry of the inner archive into dir, creating it
// if absent. Existing files are overwritten, so re-running a batch is safe.
// Returns the written paths in archive order.
func Extract(inner *archive.Archive, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create assets directory %q: %w", dir, err)
	}

	var written []string
	for _, name := range inner.Names() {
		if !IsImage(name) {
			continue
		}
		base, ok := archive.SafeBaseName(name)
		if !ok {
			return nil, fmt.Errorf("unsafe asset entry name %q", name)
		}
		data, err := inner.Entry(name)
		if err != nil {
			return nil, fmt.Errorf("extract asset %q: %w", name, err)
		}
		path := filepath.Join(dir, base)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write asset %q: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
