package discovery_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"jwpub/internal/discovery"
)

func payloadFor(lang, url string) string {
	return fmt.Sprintf(`{"files":{"%s":{"JWPUB":[{"file":{"url":"%s"}}]}}}`, lang, url)
}

func TestCursorCodeAndStepping(t *testing.T) {
	monthly := discovery.NewCursor(2025, 11, false)
	if monthly.Code() != "202511" {
		t.Fatalf("unexpected code: %s", monthly.Code())
	}
	next := monthly.Next().Next()
	if next.Code() != "202601" {
		t.Fatalf("expected year rollover to 202601, got %s", next.Code())
	}

	bimonthly := discovery.NewCursor(2025, 2, true)
	if bimonthly.Code() != "202501" {
		t.Fatalf("bimonthly start must align to odd month, got %s", bimonthly.Code())
	}
	if bimonthly.Next().Code() != "202503" {
		t.Fatalf("bimonthly step must be +2, got %s", bimonthly.Next().Code())
	}

	rollover := discovery.IssueCursor{Year: 2025, Month: 11, Step: 2}
	if rollover.Next().Code() != "202601" {
		t.Fatalf("bimonthly rollover failed: %s", rollover.Next().Code())
	}
}

func TestDiscoverStopsAtFirstMissByDefault(t *testing.T) {
	published := map[string]bool{"202501": true, "202503": true}
	var probes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		issue := r.URL.Query().Get("issue")
		if !published[issue] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, payloadFor("S", "https://cdn.example/"+issue+".jwpub"))
	}))
	defer server.Close()

	client := discovery.NewClient(server.URL, server.Client(), 1, nil)
	found, err := client.Discover(context.Background(), "mwb", "S", discovery.NewCursor(2025, 1, true))
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 issues, got %+v", found)
	}
	if found[0].Issue != "202501" || found[1].Issue != "202503" {
		t.Fatalf("unexpected issues: %+v", found)
	}
	if found[0].JWPubURL != "https://cdn.example/202501.jwpub" {
		t.Fatalf("unexpected url: %s", found[0].JWPubURL)
	}
	// 202501 hit, 202503 hit, 202505 miss -> stop.
	if probes.Load() != 3 {
		t.Fatalf("expected exactly 3 probes, got %d", probes.Load())
	}
}

func TestDiscoverToleratesGapsWithHigherThreshold(t *testing.T) {
	published := map[string]bool{"202501": true, "202505": true}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issue := r.URL.Query().Get("issue")
		if !published[issue] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, payloadFor("S", "u"))
	}))
	defer server.Close()

	client := discovery.NewClient(server.URL, server.Client(), 2, nil)
	found, err := client.Discover(context.Background(), "mwb", "S", discovery.NewCursor(2025, 1, true))
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected gap-spanning discovery to find 2 issues, got %+v", found)
	}
}

func TestDiscoverIgnoresResponsesForOtherLanguages(t *testing.T) {
	var probes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if probes.Add(1) == 1 {
			fmt.Fprint(w, payloadFor("E", "u"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := discovery.NewClient(server.URL, server.Client(), 1, nil)
	found, err := client.Discover(context.Background(), "w", "S", discovery.NewCursor(2025, 1, false))
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("payload without the requested language must count as a miss, got %+v", found)
	}
}

func TestDiscoverNeverReturnsDuplicates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issue := r.URL.Query().Get("issue")
		if issue == "202501" || issue == "202502" {
			// Endpoint answers both probes with the same issue payload.
			fmt.Fprint(w, payloadFor("S", "u"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := discovery.NewClient(server.URL, server.Client(), 1, nil)
	found, err := client.Discover(context.Background(), "w", "S", discovery.NewCursor(2025, 1, false))
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	triples := make(map[string]int)
	for _, pub := range found {
		triples[pub.Pub+"|"+pub.Issue+"|"+pub.Language]++
	}
	for key, count := range triples {
		if count > 1 {
			t.Fatalf("duplicate triple %s returned %d times", key, count)
		}
	}
}

func TestDiscoverHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payloadFor("S", "u"))
	}))
	defer server.Close()

	client := discovery.NewClient(server.URL, server.Client(), 1, nil)
	if _, err := client.Discover(ctx, "w", "S", discovery.NewCursor(2025, 1, false)); err == nil {
		t.Fatal("expected context error")
	}
}

func TestCursorForSelectsBimonthlyForGuides(t *testing.T) {
	if got := discovery.CursorFor("mwb", 2025, 1); got.Step != 2 {
		t.Fatalf("mwb must be bimonthly, got step %d", got.Step)
	}
	if got := discovery.CursorFor("w", 2025, 1); got.Step != 1 {
		t.Fatalf("w must be monthly, got step %d", got.Step)
	}
}
