// Package discovery walks candidate issues of a publication against the
// pub-media endpoint, collecting download URLs until a run of not-found
// responses signals the end of the published sequence.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"jwpub/internal/fetch"
	"jwpub/internal/logging"
)

// ErrEndpoint reports a discovery request that could not even be constructed.
// Ordinary not-found responses are not errors; they are the loop's designed
// termination signal.
var ErrEndpoint = errors.New("discovery endpoint error")

// DiscoveredPublication identifies one published issue and where to download
// it. Immutable once discovered.
type DiscoveredPublication struct {
	Pub      string
	Issue    string
	Language string
	JWPubURL string
	EPubURL  string
}

// Client queries the pub-media endpoint. Issues are probed strictly
// sequentially because the stopping condition depends on each previous
// result.
type Client struct {
	endpoint    string
	doer        fetch.HTTPDoer
	maxNotFound int
	maxIssues   int
	logger      *slog.Logger
}

// NewClient builds a discovery client. maxNotFound is the number of
// consecutive misses that stops the walk (minimum 1).
func NewClient(endpoint string, doer fetch.HTTPDoer, maxNotFound int, logger *slog.Logger) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	if maxNotFound < 1 {
		maxNotFound = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		endpoint:    strings.TrimRight(endpoint, "?"),
		doer:        doer,
		maxNotFound: maxNotFound,
		maxIssues:   600,
		logger:      logging.WithComponent(logger, "discovery"),
	}
}

// apiResponse mirrors the pub-media JSON shape: a files object keyed by
// language code.
type apiResponse struct {
	Files map[string]languageFiles `json:"files"`
}

type languageFiles struct {
	JWPub []publicationFile `json:"JWPUB"`
	EPub  []publicationFile `json:"EPUB"`
}

type publicationFile struct {
	File fileInfo `json:"file"`
}

type fileInfo struct {
	URL string `json:"url"`
}

// Discover walks issues from the cursor's start position, returning every
// published issue found before the miss threshold was reached. A transport
// error counts as a miss (logged, not fatal) but never resets the counter.
// The result never contains duplicate (pub, issue, language) triples.
func (c *Client) Discover(ctx context.Context, pubCode, languageCode string, cursor IssueCursor) ([]DiscoveredPublication, error) {
	var found []DiscoveredPublication
	seen := make(map[string]struct{})

	misses := 0
	for probes := 0; misses < c.maxNotFound && probes < c.maxIssues; probes++ {
		if err := ctx.Err(); err != nil {
			return found, err
		}

		issue := cursor.Code()
		pub, ok, err := c.probe(ctx, pubCode, languageCode, issue)
		switch {
		case err != nil:
			misses++
			c.logger.Warn("probe failed", "pub", pubCode, "issue", issue, logging.Error(err))
		case !ok:
			misses++
			c.logger.Debug("issue not published", "pub", pubCode, "issue", issue)
		default:
			misses = 0
			key := pub.Pub + "|" + pub.Issue + "|" + pub.Language
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				found = append(found, pub)
				c.logger.Info("issue found", "pub", pubCode, "issue", issue, "language", languageCode)
			}
		}

		cursor = cursor.Next()
	}

	return found, nil
}

func (c *Client) probe(ctx context.Context, pubCode, languageCode, issue string) (DiscoveredPublication, bool, error) {
	query := url.Values{}
	query.Set("langwritten", languageCode)
	query.Set("pub", pubCode)
	query.Set("output", "json")
	query.Set("issue", issue)

	requestURL := c.endpoint + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return DiscoveredPublication{}, false, fmt.Errorf("%w: build request: %v", ErrEndpoint, err)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return DiscoveredPublication{}, false, fmt.Errorf("%w: %v", ErrEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Expected for unpublished issues; a plain miss, not an error.
		io.Copy(io.Discard, resp.Body)
		return DiscoveredPublication{}, false, nil
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return DiscoveredPublication{}, false, fmt.Errorf("%w: decode response: %v", ErrEndpoint, err)
	}

	langFiles, ok := payload.Files[languageCode]
	if !ok {
		return DiscoveredPublication{}, false, nil
	}

	pub := DiscoveredPublication{Pub: pubCode, Issue: issue, Language: languageCode}
	if len(langFiles.JWPub) > 0 {
		pub.JWPubURL = langFiles.JWPub[0].File.URL
	}
	if len(langFiles.EPub) > 0 {
		pub.EPubURL = langFiles.EPub[0].File.URL
	}
	return pub, true, nil
}

// CursorFor builds the starting cursor for a publication symbol: guide
// publications (mwb family) are bimonthly, everything else monthly.
func CursorFor(pubCode string, startYear, startMonth int) IssueCursor {
	bimonthly := strings.Contains(strings.ToLower(pubCode), "mwb")
	return NewCursor(startYear, startMonth, bimonthly)
}
