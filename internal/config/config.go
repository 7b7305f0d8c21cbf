package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir   string `toml:"output_dir"`
	DownloadDir string `toml:"download_dir"`
	LogDir      string `toml:"log_dir"`
}

// Discovery contains configuration for the publication discovery loop.
type Discovery struct {
	Endpoint       string `toml:"endpoint"`
	MaxNotFound    int    `toml:"max_not_found"`
	StartYear      int    `toml:"start_year"`
	StartMonth     int    `toml:"start_month"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Fetch contains configuration for container downloads.
type Fetch struct {
	MaxDownloadMiB int `toml:"max_download_mib"`
	Retries        int `toml:"retries"`
	RequestTimeout int `toml:"request_timeout"`
}

// Pipeline contains configuration for container processing.
type Pipeline struct {
	DocumentWorkers int `toml:"document_workers"`
	MaxEntryMiB     int `toml:"max_entry_mib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for jwpub.
//
// Configuration sections by subsystem:
//   - Paths: output, download, and log directories
//   - Discovery: pub-media endpoint and issue iteration limits
//   - Fetch: download size caps and retry policy
//   - Pipeline: per-publication worker pool and archive entry caps
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Discovery Discovery `toml:"discovery"`
	Fetch     Fetch     `toml:"fetch"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/jwpub/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The second return is the resolved
// path, the third reports whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("jwpub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return err
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Discovery.Endpoint = strings.TrimSpace(c.Discovery.Endpoint)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// Validate checks configuration values for consistency.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return fmt.Errorf("config: paths.output_dir must not be empty")
	}
	if c.Discovery.Endpoint == "" {
		return fmt.Errorf("config: discovery.endpoint must not be empty")
	}
	if c.Discovery.MaxNotFound < 1 {
		return fmt.Errorf("config: discovery.max_not_found must be at least 1, got %d", c.Discovery.MaxNotFound)
	}
	if c.Discovery.StartMonth < 1 || c.Discovery.StartMonth > 12 {
		return fmt.Errorf("config: discovery.start_month must be within 1-12, got %d", c.Discovery.StartMonth)
	}
	if c.Fetch.MaxDownloadMiB < 1 {
		return fmt.Errorf("config: fetch.max_download_mib must be at least 1, got %d", c.Fetch.MaxDownloadMiB)
	}
	if c.Pipeline.DocumentWorkers < 1 {
		return fmt.Errorf("config: pipeline.document_workers must be at least 1, got %d", c.Pipeline.DocumentWorkers)
	}
	if c.Pipeline.MaxEntryMiB < 1 {
		return fmt.Errorf("config: pipeline.max_entry_mib must be at least 1, got %d", c.Pipeline.MaxEntryMiB)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// EnsureDirectories creates the directories a batch run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.DownloadDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
