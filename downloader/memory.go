package downloader

import (
	"context"
	"sync"
	"time"
)

// Caches successful responses in memory, keyed on URL. Failed
// requests are never cached.
type MemoryDownloader struct {
	mutex sync.Mutex
	cache map[string]cacheEntry

	// Overridable for tests
	TimeNow func() time.Time
	Fetch   func(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error)
}

type cacheEntry struct {
	data       []byte
	expiration time.Time
}

func NewMemoryDownloader() *MemoryDownloader {
	return &MemoryDownloader{
		cache:   map[string]cacheEntry{},
		TimeNow: time.Now,
		Fetch:   HTTPGet,
	}
}

func (d *MemoryDownloader) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	if options.Cache {
		d.mutex.Lock()
		entry, ok := d.cache[url]
		d.mutex.Unlock()

		if ok && entry.expiration.After(d.TimeNow()) {
			return entry.data, nil
		}
	}

	body, err := d.Fetch(ctx, url, headers, options)
	if err != nil {
		return nil, err
	}

	if options.Cache {
		d.mutex.Lock()
		d.cache[url] = cacheEntry{
			data:       body,
			expiration: d.TimeNow().Add(options.CacheTTL),
		}
		d.mutex.Unlock()
	}

	return body, nil
}
