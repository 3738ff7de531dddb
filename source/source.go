package source

// Observation sources for the poller, and a sink that republishes
// stored records.

import (
	"context"
	"fmt"
	"time"

	"sbahn.dev/delays/downloader"
	"sbahn.dev/delays/model"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxSize  = 10 * 1024 * 1024
	DefaultTimezone = "Europe/Berlin"
)

type Source interface {
	Fetch(ctx context.Context) ([]model.Observation, error)
}

// Loads name as a location, falling back to DefaultTimezone when
// empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return loc, nil
}

// Shared transport settings.
type fetcher struct {
	Downloader downloader.Downloader
	Headers    map[string]string
	Timeout    time.Duration
	MaxSize    int

	// Responses younger than this are served from the downloader's
	// cache. Zero disables caching.
	CacheTTL time.Duration
}

func newFetcher() fetcher {
	return fetcher{
		Downloader: downloader.NewMemoryDownloader(),
		Headers:    map[string]string{},
		Timeout:    DefaultTimeout,
		MaxSize:    DefaultMaxSize,
	}
}

func (f *fetcher) get(ctx context.Context, url string, extra map[string]string) ([]byte, error) {
	headers := make(map[string]string, len(f.Headers)+len(extra))
	for k, v := range f.Headers {
		headers[k] = v
	}
	for k, v := range extra {
		headers[k] = v
	}

	return f.Downloader.Get(ctx, url, headers, downloader.GetOptions{
		MaxSize:  f.MaxSize,
		Timeout:  f.Timeout,
		Cache:    f.CacheTTL > 0,
		CacheTTL: f.CacheTTL,
	})
}
