// Package http provides an HTTP-based fetcher for report assets. Item
// thumbnails are served from Mercari's image CDN and need neither JavaScript
// rendering nor session cookies, so they bypass the browser entirely.
package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kimata/merhist"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = 10 * time.Second

// maxImageBytes caps a single image download. Thumbnails are small; anything
// beyond this is not worth embedding.
const maxImageBytes = 4 << 20

// ImageFetcher retrieves image bytes from URLs using plain HTTP requests.
type ImageFetcher struct {
	client  *http.Client
	timeout time.Duration
}

// Option configures an ImageFetcher.
type Option func(*ImageFetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *ImageFetcher) {
		f.timeout = d
	}
}

// NewImageFetcher creates a new HTTP-based ImageFetcher.
func NewImageFetcher(opts ...Option) *ImageFetcher {
	f := &ImageFetcher{
		timeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout: f.timeout,
	}

	return f
}

// Fetch retrieves the raw bytes from the given URL.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, merhist.WrapErrorf(err, merhist.EFETCH, "building request for %s", url)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, merhist.WrapErrorf(err, merhist.EFETCH, "fetching %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, merhist.Errorf(merhist.EFETCH, "fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, merhist.WrapErrorf(err, merhist.EFETCH, "reading %s", url)
	}
	if len(data) > maxImageBytes {
		return nil, merhist.Errorf(merhist.EFETCH, "fetching %s: response exceeds %d bytes", url, maxImageBytes)
	}

	return data, nil
}
