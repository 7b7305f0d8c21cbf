package config

const (
	defaultOutputDir      = "~/.local/share/jwpub/output"
	defaultDownloadDir    = "~/.local/share/jwpub/downloads"
	defaultLogDir         = "~/.local/share/jwpub/logs"
	defaultEndpoint       = "https://b.jw-cdn.org/apis/pub-media/GETPUBMEDIALINKS"
	defaultMaxNotFound    = 1
	defaultStartYear      = 2023
	defaultStartMonth     = 1
	defaultRequestTimeout = 30
	defaultMaxDownloadMiB = 256
	defaultFetchRetries   = 2
	defaultDocWorkers     = 4
	defaultMaxEntryMiB    = 128
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
		},
		Discovery: Discovery{
			Endpoint:       defaultEndpoint,
			MaxNotFound:    defaultMaxNotFound,
			StartYear:      defaultStartYear,
			StartMonth:     defaultStartMonth,
			RequestTimeout: defaultRequestTimeout,
		},
		Fetch: Fetch{
			MaxDownloadMiB: defaultMaxDownloadMiB,
			Retries:        defaultFetchRetries,
			RequestTimeout: defaultRequestTimeout,
		},
		Pipeline: Pipeline{
			DocumentWorkers: defaultDocWorkers,
			MaxEntryMiB:     defaultMaxEntryMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
