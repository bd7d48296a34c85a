package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ChristianF88/cidrfold/config"
)

// MaxBodySize caps how much of a response body is read.
const MaxBodySize = 10 << 20

// HTTPFetcher downloads a feed and parses it in one of the JSON formats or as
// a line list.
type HTTPFetcher struct {
	name   string
	url    string
	format config.Format
	client *http.Client
}

func NewHTTPFetcher(name, url string, format config.Format, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		name:   name,
		url:    url,
		format: format,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Name() string { return f.name }

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", f.url, err)
	}
	req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("downloading %s: unexpected status %s", f.url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.url, err)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", f.url, MaxBodySize)
	}

	tokens, err := Parse(f.format, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.url, err)
	}
	return tokens, nil
}
