package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jwpub/internal/manifest"
	"jwpub/internal/pipeline"
	"jwpub/internal/pubdb"
	"jwpub/internal/testsupport"
)

const weekOneHTML = `<html><body>
<h1>Treasures From God's Word</h1>
<p>First study paragraph.</p>
<p>Second study paragraph.</p>
<a href="bible://v1/40024014">Matthew 24:14</a>
<img src="jwpub-media://images/z.jpg" alt="Study scene" width="640" height="480">
</body></html>`

func TestProcessContainerEndToEnd(t *testing.T) {
	spec := testsupport.ContainerSpec{
		MepsLanguageIndex: 1,
		Symbol:            "mwb",
		Year:              2025,
		IssueTagNumber:    "202500",
		Documents: []testsupport.ContainerDocument{
			{MepsDocumentID: 101, Title: "Week One", HTML: weekOneHTML, Class: pubdb.ClassMeetingWorkbook},
			{MepsDocumentID: 999, Title: "Other Class", HTML: "<p>ignored</p>", Class: 7},
		},
		Media: map[string][]byte{"images/z.jpg": {0xff, 0xd8, 0xff, 0xe0}},
	}
	container := testsupport.BuildContainer(t, spec)

	cfg := testsupport.NewConfig(t)
	outputDir := filepath.Join(cfg.Paths.OutputDir, "mwb_S_202500")

	p := pipeline.New(cfg, nil)
	m, err := p.ProcessContainer(context.Background(), container, outputDir)
	if err != nil {
		t.Fatalf("ProcessContainer failed: %v", err)
	}

	if m.Publication != "mwb" || m.Year != 2025 || m.Issue != "202500" || m.Language != "1" {
		t.Fatalf("unexpected manifest header: %+v", m)
	}
	if m.ExtractedAt == "" {
		t.Fatal("extractedAt must be stamped")
	}
	if len(m.Documents) != 1 {
		t.Fatalf("expected exactly one matching-class document, got %d", len(m.Documents))
	}

	doc := m.Documents[0]
	if doc.Title != "Treasures From God's Word" {
		t.Fatalf("unexpected document title: %q", doc.Title)
	}
	if len(doc.Paragraphs) != 2 || doc.Paragraphs[0] != "First study paragraph." {
		t.Fatalf("unexpected paragraphs: %+v", doc.Paragraphs)
	}
	if len(doc.References) != 1 || doc.References[0].Kind != manifest.ReferenceBible {
		t.Fatalf("unexpected references: %+v", doc.References)
	}
	if len(doc.Assets) != 1 || doc.Assets[0].FileName != "z.jpg" || doc.Assets[0].Kind != manifest.AssetImage {
		t.Fatalf("unexpected assets: %+v", doc.Assets)
	}
	if !strings.Contains(doc.HTML, `src="./assets/z.jpg"`) {
		t.Fatalf("image src not rewritten: %s", doc.HTML)
	}

	// Every image asset must correspond to an extracted file.
	if _, err := os.Stat(filepath.Join(outputDir, "assets", "z.jpg")); err != nil {
		t.Fatalf("asset file missing: %v", err)
	}

	// The written manifest must round-trip.
	loaded, err := manifest.Load(filepath.Join(outputDir, manifest.FileName))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Documents) != 1 || loaded.Documents[0].ID != 101 {
		t.Fatalf("round-tripped manifest mismatch: %+v", loaded)
	}
}

func TestProcessContainerSkipsEmptyContent(t *testing.T) {
	spec := testsupport.ContainerSpec{
		MepsLanguageIndex: 1,
		Symbol:            "mwb",
		Year:              2025,
		IssueTagNumber:    "202500",
		Documents: []testsupport.ContainerDocument{
			{MepsDocumentID: 1, Title: "Empty", HTML: "", Class: pubdb.ClassMeetingWorkbook},
			{MepsDocumentID: 2, Title: "Full", HTML: "<h1>Real</h1><p>text here</p>", Class: pubdb.ClassMeetingWorkbook},
		},
	}
	container := testsupport.BuildContainer(t, spec)

	cfg := testsupport.NewConfig(t)
	p := pipeline.New(cfg, nil)
	m, err := p.ProcessContainer(context.Background(), container, filepath.Join(cfg.Paths.OutputDir, "x"))
	if err != nil {
		t.Fatalf("ProcessContainer failed: %v", err)
	}
	if len(m.Documents) != 1 || m.Documents[0].ID != 2 {
		t.Fatalf("empty-content document must be skipped: %+v", m.Documents)
	}
}

func TestProcessContainerRejectsMissingContents(t *testing.T) {
	outer := testsupport.BuildZip(t, map[string][]byte{"manifest.json": []byte("{}")})

	cfg := testsupport.NewConfig(t)
	p := pipeline.New(cfg, nil)
	if _, err := p.ProcessContainer(context.Background(), outer, cfg.Paths.OutputDir); err == nil {
		t.Fatal("expected failure for container without contents entry")
	}
}

func TestProcessContainerRejectsGarbage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := pipeline.New(cfg, nil)
	if _, err := p.ProcessContainer(context.Background(), []byte("garbage"), cfg.Paths.OutputDir); err == nil {
		t.Fatal("expected failure for non-zip input")
	}
}

func TestProcessFile(t *testing.T) {
	spec := testsupport.ContainerSpec{
		MepsLanguageIndex: 1,
		Symbol:            "w",
		Year:              2025,
		IssueTagNumber:    "202503",
		Documents: []testsupport.ContainerDocument{
			{MepsDocumentID: 3, Title: "Study", HTML: "<h1>Study Article</h1><p>body</p>", Class: pubdb.ClassStudyArticle},
		},
	}
	container := testsupport.BuildContainer(t, spec)

	path := filepath.Join(t.TempDir(), "w_S_202503.jwpub")
	if err := os.WriteFile(path, container, 0o644); err != nil {
		t.Fatalf("write container file: %v", err)
	}

	cfg := testsupport.NewConfig(t)
	p := pipeline.New(cfg, nil)
	m, err := p.ProcessFile(context.Background(), path, filepath.Join(cfg.Paths.OutputDir, "w"))
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if m.Publication != "w" || len(m.Documents) != 1 {
		t.Fatalf("unexpected manifest: %+v", m)
	}
}
