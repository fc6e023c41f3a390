// Package images retrieves and decodes externally hosted images.
package images

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	// Decoders for the formats generation services produce.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Result is a successfully fetched and decoded image.
type Result struct {
	Image  image.Image
	Format string
}

// Fetcher downloads image bytes over HTTP and decodes them.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a Fetcher. A nil client gets a 30s-timeout default.
func NewFetcher(httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{httpClient: httpClient}
}

// Fetch retrieves url and decodes the body. Any failure — network, non-2xx
// status, non-image or corrupt bytes — comes back as an error for the caller
// to report; Fetch itself never panics and callers treat an error as
// "image absent".
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	img, format, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}

	return &Result{Image: img, Format: format}, nil
}
