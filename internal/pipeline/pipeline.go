// Package pipeline sequences one publication's processing: container open,
// asset extraction, database load, key derivation, per-document decryption
// and normalization, and manifest serialization. Batch runs isolate failures
// to the publication that caused them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"jwpub/internal/archive"
	"jwpub/internal/assets"
	"jwpub/internal/config"
	"jwpub/internal/jwcrypto"
	"jwpub/internal/logging"
	"jwpub/internal/manifest"
	"jwpub/internal/normalize"
	"jwpub/internal/pubdb"
)

// Pipeline processes publication containers according to configuration.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New builds a pipeline. A nil logger discards output.
func New(cfg *config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{cfg: cfg, logger: logging.WithComponent(logger, "pipeline")}
}

// ProcessFile parses a local container file into outputDir.
func (p *Pipeline) ProcessFile(ctx context.Context, path, outputDir string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read container %q: %w", path, err)
	}
	return p.ProcessContainer(ctx, data, outputDir)
}

// ProcessContainer runs the full per-publication sequence over raw container
// bytes and writes manifest.json plus an assets/ directory under outputDir.
func (p *Pipeline) ProcessContainer(ctx context.Context, data []byte, outputDir string) (*manifest.Manifest, error) {
	maxEntry := int64(p.cfg.Pipeline.MaxEntryMiB) << 20

	outer, err := archive.Open(data, maxEntry)
	if err != nil {
		return nil, fmt.Errorf("open container: %w", err)
	}
	if !outer.Has("manifest.json") {
		p.logger.Warn("container has no publisher manifest.json entry")
	}

	inner, err := outer.Nested("contents")
	if err != nil {
		return nil, fmt.Errorf("open contents archive: %w", err)
	}

	// Asset extraction and database load read disjoint entries and can
	// overlap; the zip reader is safe for concurrent entry opens.
	var store *pubdb.Store
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		_, err := assets.Extract(inner, filepath.Join(outputDir, "assets"))
		return err
	})
	group.Go(func() error {
		dbName, err := inner.FindSuffix(".db")
		if err != nil {
			return fmt.Errorf("locate database entry: %w", err)
		}
		dbBytes, err := inner.Entry(dbName)
		if err != nil {
			return fmt.Errorf("extract database entry: %w", err)
		}
		if err := groupCtx.Err(); err != nil {
			return err
		}
		store, err = pubdb.Open(dbBytes)
		return err
	})
	if err := group.Wait(); err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	defer store.Close()

	meta, err := store.PublicationMetadata(ctx)
	if err != nil {
		return nil, err
	}
	secret := jwcrypto.DeriveSecret(meta.PubCard())
	class := pubdb.ClassForSymbol(meta.Symbol)

	rows, err := store.DocumentsByClass(ctx, class)
	if err != nil {
		return nil, err
	}

	documents := p.processDocuments(ctx, rows, secret)

	m := &manifest.Manifest{
		Publication: meta.Symbol,
		Year:        meta.Year,
		Issue:       meta.IssueTagNumber,
		Language:    strconv.Itoa(meta.MepsLanguageIndex),
		Title:       manifestTitle(meta, documents),
		Documents:   documents,
	}
	m.Stamp(time.Now())

	path, err := m.Write(outputDir)
	if err != nil {
		return nil, err
	}
	p.logger.Info("manifest written",
		"path", path, "publication", meta.Symbol, "issue", meta.IssueTagNumber,
		"documents", len(documents))
	return m, nil
}

// processDocuments decrypts and normalizes rows across a bounded worker pool.
// A document that fails to decrypt or inflate is logged and skipped; the rest
// of the publication still processes. Output order follows row order.
func (p *Pipeline) processDocuments(ctx context.Context, rows []pubdb.DocumentRow, secret jwcrypto.Secret) []manifest.Document {
	results := make([]*manifest.Document, len(rows))

	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(p.cfg.Pipeline.DocumentWorkers)
	for i, row := range rows {
		if len(row.Content) == 0 {
			continue
		}
		i, row := i, row
		group.Go(func() error {
			html, err := jwcrypto.DecryptInflate(row.Content, secret)
			if err != nil {
				p.logger.Error("document decode failed", "document", row.ID, logging.Error(err))
				return nil
			}
			doc, err := normalize.Parse(html, row.ID, row.Title)
			if err != nil {
				// Degraded extraction: keep the raw document, record the reason.
				p.logger.Warn("document normalization degraded", "document", row.ID, logging.Error(err))
			}
			results[i] = &doc
			return nil
		})
	}
	_ = group.Wait()

	documents := make([]manifest.Document, 0, len(rows))
	for _, doc := range results {
		if doc != nil {
			documents = append(documents, *doc)
		}
	}
	return documents
}

func manifestTitle(meta pubdb.PublicationMeta, documents []manifest.Document) string {
	for _, doc := range documents {
		if doc.Title != "" {
			return doc.Title
		}
	}
	return meta.Symbol + " " + meta.IssueTagNumber
}

// classify maps a processing error to the log reason recorded for a skipped
// publication.
func classify(err error) string {
	switch {
	case errors.Is(err, archive.ErrCorrupt):
		return "archive corrupt"
	case errors.Is(err, archive.ErrEntryNotFound):
		return "entry not found"
	case errors.Is(err, archive.ErrEntryTooLarge):
		return "entry too large"
	case errors.Is(err, jwcrypto.ErrCrypto):
		return "decrypt failed"
	case errors.Is(err, jwcrypto.ErrInflate):
		return "inflate failed"
	case errors.Is(err, pubdb.ErrQuery):
		return "database query failed"
	default:
		return "processing failed"
	}
}
