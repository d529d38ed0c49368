// Package providers implements the per-source fetchers behind the catalog
// cache. Each provider speaks one upstream schema and hands raw records to
// catalog.Normalize; none of them retries — the cache falls back to the last
// good snapshot on failure.
package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseSize = 20 << 20 // 20MB

func defaultClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// get performs a bounded GET and returns the body bytes for 2xx responses.
func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/html, application/x-yaml;q=0.9, */*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", url, err)
	}
	return body, nil
}
