package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultUserAgent = "sbahn-delays/1.0"

type GetOptions struct {
	MaxSize  int
	Timeout  time.Duration
	Cache    bool
	CacheTTL time.Duration
}

// A thing capable of downloading a file, optionally with caching
type Downloader interface {
	Get(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error)
}

// Returned when the server answers with anything but 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// Gets a file. Doesn't cache.
func HTTPGet(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error) {
	client := &http.Client{
		Timeout: options.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	var reader io.Reader = resp.Body
	if options.MaxSize > 0 {
		// One extra byte to detect oversized bodies.
		reader = io.LimitReader(resp.Body, int64(options.MaxSize)+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	if options.MaxSize > 0 && len(body) > options.MaxSize {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, options.MaxSize)
	}

	return body, nil
}
