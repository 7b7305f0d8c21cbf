package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"jwpub/internal/discovery"
	"jwpub/internal/fetch"
	"jwpub/internal/logging"
)

// ErrBatchFailed reports a batch in which every discovered publication failed.
var ErrBatchFailed = errors.New("no publication processed successfully")

// ErrBatchLocked reports a concurrent batch already holding the output lock.
var ErrBatchLocked = errors.New("another batch is running against this output directory")

// BatchResult summarizes one batch run.
type BatchResult struct {
	Discovered int
	Succeeded  int
	Failed     int
	Skipped    int
}

// Run discovers every published issue of the given publication/language pair
// and processes each in sequence. One publication's failure is logged and
// does not affect the others; cancellation is honored between publications,
// never mid-decryption.
func (p *Pipeline) Run(ctx context.Context, pubCode, languageCode string) (BatchResult, error) {
	var result BatchResult

	if err := p.cfg.EnsureDirectories(); err != nil {
		return result, err
	}

	// One batch per output directory at a time; interleaved runs could
	// tear each other's manifests.
	lock := flock.New(filepath.Join(p.cfg.Paths.OutputDir, ".jwpub.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return result, fmt.Errorf("acquire output lock: %w", err)
	}
	if !locked {
		return result, ErrBatchLocked
	}
	defer lock.Unlock()

	runID := uuid.NewString()
	logger := p.logger.With("run", runID, "pub", pubCode, "language", languageCode)
	logger.Info("batch started")

	httpClient := &http.Client{Timeout: time.Duration(p.cfg.Discovery.RequestTimeout) * time.Second}
	finder := discovery.NewClient(p.cfg.Discovery.Endpoint, httpClient, p.cfg.Discovery.MaxNotFound, p.logger)
	cursor := discovery.CursorFor(pubCode, p.cfg.Discovery.StartYear, p.cfg.Discovery.StartMonth)

	found, err := finder.Discover(ctx, pubCode, languageCode, cursor)
	if err != nil {
		return result, err
	}
	result.Discovered = len(found)
	if len(found) == 0 {
		logger.Warn("no published issues discovered")
		return result, nil
	}

	downloadClient := &http.Client{Timeout: time.Duration(p.cfg.Fetch.RequestTimeout) * time.Second}
	fetcher := fetch.NewClient(downloadClient, int64(p.cfg.Fetch.MaxDownloadMiB)<<20, p.cfg.Fetch.Retries)

	for _, pub := range found {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if pub.JWPubURL == "" {
			result.Skipped++
			logger.Warn("issue has no container download", "issue", pub.Issue)
			continue
		}
		if err := p.processDiscovered(ctx, fetcher, pub); err != nil {
			result.Failed++
			logger.Error("publication skipped",
				"issue", pub.Issue, "reason", classify(err), logging.Error(err))
			continue
		}
		result.Succeeded++
	}

	logger.Info("batch finished",
		"discovered", result.Discovered, "succeeded", result.Succeeded,
		"failed", result.Failed, "skipped", result.Skipped)

	if result.Succeeded == 0 {
		return result, fmt.Errorf("%w: %d attempted", ErrBatchFailed, result.Failed)
	}
	return result, nil
}

func (p *Pipeline) processDiscovered(ctx context.Context, fetcher *fetch.Client, pub discovery.DiscoveredPublication) error {
	data, err := fetcher.Download(ctx, pub.JWPubURL)
	if err != nil {
		return err
	}

	// Keep the raw container alongside the extracted output.
	if p.cfg.Paths.DownloadDir != "" {
		name := fmt.Sprintf("%s_%s_%s.jwpub", pub.Pub, pub.Language, pub.Issue)
		if err := writeDownload(filepath.Join(p.cfg.Paths.DownloadDir, name), data); err != nil {
			p.logger.Warn("container not persisted", "issue", pub.Issue, logging.Error(err))
		}
	}

	outputDir := filepath.Join(p.cfg.Paths.OutputDir,
		fmt.Sprintf("%s_%s_%s", pub.Pub, pub.Language, pub.Issue))
	_, err = p.ProcessContainer(ctx, data, outputDir)
	return err
}
