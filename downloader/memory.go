package downloader

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Caches downloaded files in memory. Concurrent requests for the same
// URL share a single download.
type MemoryDownloader struct {
	mutex sync.Mutex
	cache map[string]downloaderCacheEntry
	group singleflight.Group

	TimeNow func() time.Time
}

func NewMemoryDownloader() *MemoryDownloader {
	return &MemoryDownloader{
		cache:   make(map[string]downloaderCacheEntry),
		TimeNow: time.Now,
	}
}

type downloaderCacheEntry struct {
	data       []byte
	expiration time.Time
}

func (d *MemoryDownloader) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	key := requestKey(url, headers, options)

	if options.Cache {
		d.mutex.Lock()
		entry, ok := d.cache[key]
		d.mutex.Unlock()
		if ok && entry.expiration.After(d.TimeNow()) {
			return entry.data, nil
		}
	}

	body, err, _ := d.group.Do(key, func() (interface{}, error) {
		return HTTPGet(ctx, url, headers, options)
	})
	if err != nil {
		return nil, err
	}
	data := body.([]byte)

	if options.Cache {
		d.mutex.Lock()
		d.cache[key] = downloaderCacheEntry{
			data:       data,
			expiration: d.TimeNow().Add(options.CacheTTL),
		}
		d.mutex.Unlock()
	}

	return data, nil
}
