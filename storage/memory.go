package storage

import (
	"fmt"
	"sort"
	"sync"

	"tidbyt.dev/gtfsmeta/model"
)

// In memory implementation of Storage below

type memoryVersionKey struct {
	SourceID string
	Hash     string
}

type MemoryStorage struct {
	mu       sync.Mutex
	Versions map[memoryVersionKey]*model.FeedMetadata
	Sources  map[string]Source
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		Versions: map[memoryVersionKey]*model.FeedMetadata{},
		Sources:  map[string]Source{},
	}
}

func (s *MemoryStorage) ListVersions(filter ListVersionsFilter) ([]*model.FeedMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := []*model.FeedMetadata{}
	for _, metadata := range s.Versions {
		if filter.SourceID != "" && metadata.SourceID != filter.SourceID {
			continue
		}
		if filter.Hash != "" && metadata.Hash != filter.Hash {
			continue
		}
		m := *metadata
		versions = append(versions, &m)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].RetrievedAt.After(versions[j].RetrievedAt)
	})
	return versions, nil
}

func (s *MemoryStorage) WriteFeedMetadata(metadata *model.FeedMetadata) error {
	if metadata.SourceID == "" || metadata.Hash == "" {
		return fmt.Errorf("metadata lacks source or hash")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := *metadata
	s.Versions[memoryVersionKey{m.SourceID, m.Hash}] = &m
	return nil
}

func (s *MemoryStorage) DeleteFeedMetadata(sourceID string, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryVersionKey{sourceID, hash}
	if _, found := s.Versions[key]; !found {
		return fmt.Errorf("version %s of %s: %w", hash, sourceID, ErrNotFound)
	}
	delete(s.Versions, key)
	return nil
}

func (s *MemoryStorage) ListSources(id string) ([]Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sources := []Source{}
	for _, src := range s.Sources {
		if id != "" && src.ID != id {
			continue
		}
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].ID < sources[j].ID
	})
	return sources, nil
}

func (s *MemoryStorage) WriteSource(src Source) error {
	if src.ID == "" {
		return fmt.Errorf("source lacks id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, found := s.Sources[src.ID]; found && src.RefreshedAt.IsZero() {
		src.RefreshedAt = existing.RefreshedAt
	}
	headers := make(map[string]string, len(src.Headers))
	for k, v := range src.Headers {
		headers[k] = v
	}
	src.Headers = headers
	s.Sources[src.ID] = src
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
