package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tidbyt.dev/gtfsmeta/digest"
)

const indexFile = "index.json"

// Filesystem keeps downloaded archives as files in a directory. It
// serves as a Downloader with an on-disk cache, and as the store for
// archives awaiting hashing and parsing.
type Filesystem struct {
	Dir     string
	Records map[string]fsRecord
	Logger  *slog.Logger

	mutex sync.Mutex
}

type fsRecord struct {
	File        string `json:"file"`
	RetrievedAt string `json:"retrieved_at"`
}

func NewFilesystem(dir string) (*Filesystem, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	fs := &Filesystem{
		Dir:     dir,
		Records: map[string]fsRecord{},
		Logger:  slog.Default(),
	}

	err := fs.load()
	if err != nil {
		return nil, err
	}

	return fs, nil
}

func (f *Filesystem) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {

	f.mutex.Lock()
	defer f.mutex.Unlock()

	reqKey := requestKey(url, headers, options)

	if options.Cache {
		if record, found := f.Records[reqKey]; found {
			retrievedAt, err := time.Parse(time.RFC3339, record.RetrievedAt)
			if err != nil {
				return nil, err
			}
			if retrievedAt.Add(options.CacheTTL).After(time.Now()) {
				body, err := os.ReadFile(filepath.Join(f.Dir, record.File))
				if err == nil {
					f.Logger.Debug("cache hit", "url", url)
					return body, nil
				}
				f.Logger.Warn("cached file unreadable", "url", url, "error", err)
			} else {
				f.Logger.Debug("cache expired", "url", url)
			}
		}
	}

	body, err := HTTPGet(ctx, url, headers, options)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}

	if options.Cache {
		key, err := digest.ComputeHash(strings.NewReader(reqKey))
		if err != nil {
			return nil, err
		}
		file := "cache_" + key
		if err := os.WriteFile(filepath.Join(f.Dir, file), body, 0644); err != nil {
			return nil, fmt.Errorf("writing cache file: %w", err)
		}
		f.Records[reqKey] = fsRecord{
			File:        file,
			RetrievedAt: time.Now().UTC().Format(time.RFC3339),
		}
		err = f.save()
		if err != nil {
			return nil, fmt.Errorf("saving: %w", err)
		}
	}

	return body, nil
}

// Save writes an archive into the directory under the given name and
// returns its path.
func (f *Filesystem) Save(name string, body []byte) (string, error) {
	if name == "" || name == indexFile || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid archive name '%s'", name)
	}

	path := filepath.Join(f.Dir, name)
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", fmt.Errorf("writing archive: %w", err)
	}
	return path, nil
}

// Remove deletes an archive written by Save. Missing files are not an
// error.
func (f *Filesystem) Remove(path string) error {
	if filepath.Dir(path) != filepath.Clean(f.Dir) {
		return fmt.Errorf("%s is not in %s", path, f.Dir)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing archive: %w", err)
	}
	return nil
}

func (f *Filesystem) load() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	path := filepath.Join(f.Dir, indexFile)
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading: %w", err)
	}

	err = json.Unmarshal(buf, &f.Records)
	if err != nil {
		return fmt.Errorf("unmarshalling: %w", err)
	}

	return nil
}

func (f *Filesystem) save() error {
	buf, err := json.Marshal(f.Records)
	if err != nil {
		return fmt.Errorf("marshalling: %w", err)
	}

	err = os.WriteFile(filepath.Join(f.Dir, indexFile), buf, 0644)
	if err != nil {
		return fmt.Errorf("writing: %w", err)
	}

	return nil
}
