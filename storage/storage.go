package storage

import (
	"errors"
	"time"

	"tidbyt.dev/gtfsmeta/model"
)

var ErrNotFound = errors.New("not found")

// Storage is the catalog of harvested dataset versions.
type Storage interface {
	// Retrieves metadata for all dataset versions matching the
	// given filter, most recently retrieved first.
	ListVersions(filter ListVersionsFilter) ([]*model.FeedMetadata, error)

	// Writes a metadata record. If a record with the same source
	// and hash exists, it is updated.
	WriteFeedMetadata(metadata *model.FeedMetadata) error

	// Deletes the metadata record for a source and hash. Returns
	// ErrNotFound if there is no such record.
	DeleteFeedMetadata(sourceID string, hash string) error

	// Retrieves the source with the given ID. If the ID is
	// blank, all sources are returned.
	ListSources(id string) ([]Source, error)

	// Writes a Source record. If a record with the same ID
	// exists, it is updated. A zero RefreshedAt leaves the
	// stored value unchanged.
	WriteSource(src Source) error

	Close() error
}

type ListVersionsFilter struct {
	// If set, only include versions of the given source.
	SourceID string

	// If set, only include versions with the given hash.
	Hash string
}

// A dataset source: a URL serving a static GTFS archive, optionally
// requiring HTTP headers (holding API keys, typically).
type Source struct {
	ID          string
	Name        string
	URL         string
	Headers     map[string]string
	RefreshedAt time.Time
}

// Hashes and entity IDs of all known versions of a source, in the
// shape DatasetVersionInfo wants them. The two slices are aligned;
// versions without an entity ID give "".
func KnownVersions(s Storage, sourceID string) ([]string, []string, error) {
	versions, err := s.ListVersions(ListVersionsFilter{SourceID: sourceID})
	if err != nil {
		return nil, nil, err
	}

	hashes := make([]string, 0, len(versions))
	codes := make([]string, 0, len(versions))
	for _, v := range versions {
		hashes = append(hashes, v.Hash)
		codes = append(codes, v.EntityID)
	}
	return hashes, codes, nil
}
