// Package fetch downloads container binaries over HTTP with bounded retries
// and an up-front size cap.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ErrNetwork reports a download that failed after exhausting retries, or a
// non-success status. It abandons only the current publication.
var ErrNetwork = errors.New("network fetch failed")

// ErrTooLarge reports a response body exceeding the configured cap.
var ErrTooLarge = errors.New("download exceeds size limit")

// HTTPDoer describes the HTTP client used for downloads.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client downloads binary resources into memory or onto disk.
type Client struct {
	doer     HTTPDoer
	maxBytes int64
	retries  int
	backoff  time.Duration
}

// NewClient builds a download client. maxBytes caps the response body;
// retries is the number of additional attempts for transient failures.
func NewClient(doer HTTPDoer, maxBytes int64, retries int) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	if retries < 0 {
		retries = 0
	}
	return &Client{doer: doer, maxBytes: maxBytes, retries: retries, backoff: time.Second}
}

// Download fetches the resource into memory.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
		data, retryable, err := c.attempt(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

// DownloadFile fetches the resource and writes it to path, creating parent
// directories as needed.
func (c *Client) DownloadFile(ctx context.Context, url, path string) error {
	data, err := c.Download(ctx, url)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write download %q: %w", path, err)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, url string) (data []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		// Transport-level failures (timeout, DNS) are the retryable class.
		return nil, true, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= http.StatusInternalServerError
		return nil, retryable, fmt.Errorf("%w: %s returned %d", ErrNetwork, url, resp.StatusCode)
	}
	if c.maxBytes > 0 && resp.ContentLength > c.maxBytes {
		return nil, false, fmt.Errorf("%w: %s declares %d bytes", ErrTooLarge, url, resp.ContentLength)
	}

	limit := c.maxBytes
	if limit <= 0 {
		limit = 1 << 40
	}
	data, err = io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}
	if int64(len(data)) > limit {
		return nil, false, fmt.Errorf("%w: %s", ErrTooLarge, url)
	}
	return data, false, nil
}
