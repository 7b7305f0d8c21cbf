package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"jwpub/internal/pipeline"
	"jwpub/internal/pubdb"
	"jwpub/internal/testsupport"
)

// batchFixture wires a discovery endpoint and a CDN serving the given
// containers, keyed by issue code.
func batchFixture(t *testing.T, containers map[string][]byte) (endpoint string, cleanup func()) {
	t.Helper()

	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issue := filepath.Base(r.URL.Path)
		data, ok := containers[issue]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	}))

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issue := r.URL.Query().Get("issue")
		lang := r.URL.Query().Get("langwritten")
		if _, ok := containers[issue]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"files":{"%s":{"JWPUB":[{"file":{"url":"%s/%s"}}]}}}`, lang, cdn.URL, issue)
	}))

	return api.URL, func() {
		api.Close()
		cdn.Close()
	}
}

func workbookContainer(t *testing.T, issueTag string) []byte {
	t.Helper()
	return testsupport.BuildContainer(t, testsupport.ContainerSpec{
		MepsLanguageIndex: 1,
		Symbol:            "mwb",
		Year:              2025,
		IssueTagNumber:    issueTag,
		Documents: []testsupport.ContainerDocument{
			{MepsDocumentID: 1, Title: "Week", HTML: "<h1>Week</h1><p>text</p>", Class: pubdb.ClassMeetingWorkbook},
		},
	})
}

func TestRunProcessesDiscoveredIssues(t *testing.T) {
	containers := map[string][]byte{
		"202501": workbookContainer(t, "202501"),
		"202503": workbookContainer(t, "202503"),
	}
	endpoint, cleanup := batchFixture(t, containers)
	defer cleanup()

	cfg := testsupport.NewConfig(t)
	cfg.Discovery.Endpoint = endpoint
	cfg.Discovery.StartYear = 2025
	cfg.Discovery.StartMonth = 1

	p := pipeline.New(cfg, nil)
	result, err := p.Run(context.Background(), "mwb", "S")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Discovered != 2 || result.Succeeded != 2 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	for _, issue := range []string{"202501", "202503"} {
		dir := filepath.Join(cfg.Paths.OutputDir, "mwb_S_"+issue)
		if _, err := os.Stat(filepath.Join(dir, "manifest.json")); err != nil {
			t.Fatalf("manifest missing for %s: %v", issue, err)
		}
		download := filepath.Join(cfg.Paths.DownloadDir, "mwb_S_"+issue+".jwpub")
		if _, err := os.Stat(download); err != nil {
			t.Fatalf("raw container not persisted for %s: %v", issue, err)
		}
	}
}

func TestRunIsolatesFailedPublications(t *testing.T) {
	containers := map[string][]byte{
		"202501": []byte("not a zip archive"),
		"202503": workbookContainer(t, "202503"),
	}
	endpoint, cleanup := batchFixture(t, containers)
	defer cleanup()

	cfg := testsupport.NewConfig(t)
	cfg.Discovery.Endpoint = endpoint
	cfg.Discovery.StartYear = 2025
	cfg.Discovery.StartMonth = 1

	p := pipeline.New(cfg, nil)
	result, err := p.Run(context.Background(), "mwb", "S")
	if err != nil {
		t.Fatalf("one failure must not fail the batch: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRunFailsWhenNothingSucceeds(t *testing.T) {
	containers := map[string][]byte{"202501": []byte("corrupt")}
	endpoint, cleanup := batchFixture(t, containers)
	defer cleanup()

	cfg := testsupport.NewConfig(t)
	cfg.Discovery.Endpoint = endpoint
	cfg.Discovery.StartYear = 2025
	cfg.Discovery.StartMonth = 1

	p := pipeline.New(cfg, nil)
	_, err := p.Run(context.Background(), "mwb", "S")
	if !errors.Is(err, pipeline.ErrBatchFailed) {
		t.Fatalf("expected ErrBatchFailed, got %v", err)
	}
}

func TestRunReportsEmptyDiscovery(t *testing.T) {
	endpoint, cleanup := batchFixture(t, map[string][]byte{})
	defer cleanup()

	cfg := testsupport.NewConfig(t)
	cfg.Discovery.Endpoint = endpoint

	p := pipeline.New(cfg, nil)
	result, err := p.Run(context.Background(), "mwb", "S")
	if err != nil {
		t.Fatalf("empty discovery is not an error: %v", err)
	}
	if result.Discovered != 0 || result.Succeeded != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
