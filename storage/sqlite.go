package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"tidbyt.dev/gtfsmeta/model"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStorage struct {
	SQLiteConfig

	db *sql.DB
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = directory + "/gtfsmeta.db"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each connection to :memory: is its own database.
	if !onDisk {
		db.SetMaxOpenConns(1)
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS version (
    source_id TEXT NOT NULL,
    hash TEXT NOT NULL,
    source_name TEXT NOT NULL,
    version_name TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    retrieved_at TIMESTAMP NOT NULL,
    main_timezone TEXT,
    other_timezones TEXT,
    country_codes TEXT,
    main_language_code TEXT,
    start_service_date TEXT,
    end_service_date TEXT,
    start_timestamp TEXT,
    end_timestamp TEXT,
    bounding_box TEXT,
    bounding_octagon TEXT,
    agencies_count INTEGER,
    routes_count_by_type TEXT,
    stops_count_by_type TEXT,
PRIMARY KEY (source_id, hash)
);

CREATE TABLE IF NOT EXISTS source (
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    url TEXT NOT NULL,
    headers TEXT NOT NULL,
    refreshed_at TIMESTAMP,
PRIMARY KEY (id)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db: db,
	}, nil
}

func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing db: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListVersions(filter ListVersionsFilter) ([]*model.FeedMetadata, error) {
	where, params := versionFilter(filter, func(int) string { return "?" })
	query := "SELECT" + versionColumns + "\nFROM version" + where + " ORDER BY retrieved_at DESC"

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	defer rows.Close()

	versions := []*model.FeedMetadata{}
	for rows.Next() {
		row := &versionRow{}
		if err := row.scan(rows); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		m, err := row.metadata()
		if err != nil {
			return nil, fmt.Errorf("version %s of %s: %w", row.Hash, row.SourceID, err)
		}
		versions = append(versions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating versions: %w", err)
	}

	return versions, nil
}

func (s *SQLiteStorage) WriteFeedMetadata(metadata *model.FeedMetadata) error {
	row, err := toVersionRow(metadata)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
INSERT INTO version (`+versionColumns+`
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (source_id, hash) DO UPDATE SET
    source_name = excluded.source_name,
    version_name = excluded.version_name,
    entity_id = excluded.entity_id,
    retrieved_at = excluded.retrieved_at,
    main_timezone = excluded.main_timezone,
    other_timezones = excluded.other_timezones,
    country_codes = excluded.country_codes,
    main_language_code = excluded.main_language_code,
    start_service_date = excluded.start_service_date,
    end_service_date = excluded.end_service_date,
    start_timestamp = excluded.start_timestamp,
    end_timestamp = excluded.end_timestamp,
    bounding_box = excluded.bounding_box,
    bounding_octagon = excluded.bounding_octagon,
    agencies_count = excluded.agencies_count,
    routes_count_by_type = excluded.routes_count_by_type,
    stops_count_by_type = excluded.stops_count_by_type
`, row.values()...)
	if err != nil {
		return fmt.Errorf("writing feed metadata: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteFeedMetadata(sourceID string, hash string) error {
	res, err := s.db.Exec(`DELETE FROM version WHERE source_id = ? AND hash = ?`, sourceID, hash)
	if err != nil {
		return fmt.Errorf("deleting feed metadata: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting feed metadata: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("version %s of %s: %w", hash, sourceID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) ListSources(id string) ([]Source, error) {
	query := `SELECT id, name, url, headers, refreshed_at FROM source`
	params := []interface{}{}
	if id != "" {
		query += " WHERE id = ?"
		params = append(params, id)
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	sources := []Source{}
	for rows.Next() {
		var src Source
		var headers string
		var refreshedAt sql.NullTime
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &headers, &refreshedAt); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		src.Headers, err = DeserializeHeaders(headers)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.ID, err)
		}
		if refreshedAt.Valid {
			src.RefreshedAt = refreshedAt.Time.UTC()
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}

	return sources, nil
}

func (s *SQLiteStorage) WriteSource(src Source) error {
	if src.ID == "" {
		return fmt.Errorf("source lacks id")
	}

	var refreshedAt sql.NullTime
	if !src.RefreshedAt.IsZero() {
		refreshedAt = sql.NullTime{Time: src.RefreshedAt.UTC(), Valid: true}
	}

	_, err := s.db.Exec(`
INSERT INTO source (id, name, url, headers, refreshed_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    url = excluded.url,
    headers = excluded.headers,
    refreshed_at = COALESCE(excluded.refreshed_at, source.refreshed_at)`,
		src.ID, src.Name, src.URL, SerializeHeaders(src.Headers), refreshedAt)
	if err != nil {
		return fmt.Errorf("writing source: %w", err)
	}
	return nil
}

