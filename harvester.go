package gtfsmeta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tidbyt.dev/gtfsmeta/downloader"
	"tidbyt.dev/gtfsmeta/model"
	"tidbyt.dev/gtfsmeta/storage"
)

const (
	DefaultRefreshInterval = 12 * time.Hour
	DefaultTimeout         = 60 * time.Second
	DefaultMaxSize         = 800 << 20 // 800 MB
)

// Harvester downloads the sources registered in storage and runs new
// versions through the pipeline.
type Harvester struct {
	RefreshInterval time.Duration
	Timeout         time.Duration
	MaxSize         int
	Downloader      downloader.Downloader

	// Downloads are served from the Downloader's cache for this
	// long. Zero disables caching.
	CacheTTL time.Duration

	// Keep archives in the work directory after processing.
	KeepArchives bool

	Logger *slog.Logger

	TimeNow     func() time.Time
	NewEntityID func() (string, error)

	storage  storage.Storage
	archives *downloader.Filesystem
	pipeline *Pipeline
}

// Creates a new Harvester on top of the given storage. Archives are
// kept in archives while being processed.
func NewHarvester(s storage.Storage, archives *downloader.Filesystem, pipeline *Pipeline) *Harvester {
	return &Harvester{
		RefreshInterval: DefaultRefreshInterval,
		Timeout:         DefaultTimeout,
		MaxSize:         DefaultMaxSize,
		Downloader:      downloader.NewMemoryDownloader(),
		Logger:          slog.Default(),
		TimeNow:         time.Now,
		NewEntityID:     newEntityID,

		storage:  s,
		archives: archives,
		pipeline: pipeline,
	}
}

func newEntityID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Registers a source, or updates its name, URL and headers.
func (h *Harvester) AddSource(src storage.Source) error {
	src.RefreshedAt = time.Time{}
	if err := h.storage.WriteSource(src); err != nil {
		return fmt.Errorf("writing source %s: %w", src.ID, err)
	}
	return nil
}

// Refreshes any sources that might need refreshing. If force is
// set, all sources are refreshed regardless of when they last were.
//
// Results are returned for every version that was downloaded. The
// error joins download failures; failures further down the pipeline
// are recorded in the results.
func (h *Harvester) Refresh(ctx context.Context, force bool) ([]*Result, error) {
	sources, err := h.storage.ListSources("")
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	now := h.TimeNow().UTC()

	errs := []error{}
	versions := []*model.DatasetVersionInfo{}
	refreshed := []storage.Source{}

	defer func() {
		if h.KeepArchives {
			return
		}
		for _, info := range versions {
			if err := h.archives.Remove(info.ArchivePath); err != nil {
				h.logger().Warn("removing archive", "path", info.ArchivePath, "error", err)
			}
		}
	}()

	for _, src := range sources {
		if !force && src.RefreshedAt.After(now.Add(-h.RefreshInterval)) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := h.download(ctx, src, now)
		if err != nil {
			h.logger().Error("downloading source", "source_id", src.ID, "url", src.URL, "error", err)
			errs = append(errs, fmt.Errorf("refreshing source %s: %w", src.ID, err))
			continue
		}
		versions = append(versions, info)
		refreshed = append(refreshed, src)
	}

	results, err := h.pipeline.Run(ctx, versions)
	if err != nil {
		return results, errors.Join(append(errs, err)...)
	}

	// Sources are marked as refreshed even if their archive turned
	// out to be broken.
	for _, src := range refreshed {
		src.RefreshedAt = now
		if err := h.storage.WriteSource(src); err != nil {
			errs = append(errs, fmt.Errorf("writing source %s: %w", src.ID, err))
		}
	}

	return results, errors.Join(errs...)
}

// Downloads a source's archive into the work directory, and collects
// what is known about its earlier versions.
func (h *Harvester) download(ctx context.Context, src storage.Source, now time.Time) (*model.DatasetVersionInfo, error) {
	body, err := h.Downloader.Get(ctx, src.URL, src.Headers, downloader.GetOptions{
		Cache:    h.CacheTTL > 0,
		CacheTTL: h.CacheTTL,
		Timeout:  h.Timeout,
		MaxSize:  h.MaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", src.URL, err)
	}

	path, err := h.archives.Save(fmt.Sprintf("%s_%s.zip", src.ID, now.Format("20060102T150405Z")), body)
	if err != nil {
		return nil, err
	}

	hashes, codes, err := storage.KnownVersions(h.storage, src.ID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}

	entityID, err := h.NewEntityID()
	if err != nil {
		return nil, fmt.Errorf("generating entity id: %w", err)
	}

	name := src.Name
	if name == "" {
		name = src.ID
	}

	return &model.DatasetVersionInfo{
		EntityID:             entityID,
		SourceID:             src.ID,
		SourceName:           name,
		URL:                  src.URL,
		ArchivePath:          path,
		DownloadDate:         now,
		PreviousHashes:       hashes,
		PreviousVersionCodes: codes,
	}, nil
}

func (h *Harvester) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}
