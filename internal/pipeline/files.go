package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

func writeDownload(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write container %q: %w", path, err)
	}
	return nil
}
