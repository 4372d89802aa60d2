package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"tidbyt.dev/gtfsmeta/model"
)

// Columns of the version table, in the order used by both SQL
// implementations.
const versionColumns = `
    source_id,
    hash,
    source_name,
    version_name,
    entity_id,
    retrieved_at,
    main_timezone,
    other_timezones,
    country_codes,
    main_language_code,
    start_service_date,
    end_service_date,
    start_timestamp,
    end_timestamp,
    bounding_box,
    bounding_octagon,
    agencies_count,
    routes_count_by_type,
    stops_count_by_type`

// versionRow is FeedMetadata flattened into SQL column values.
// Collections are stored as JSON, and unset fields as NULL.
type versionRow struct {
	SourceID          string
	Hash              string
	SourceName        string
	VersionName       string
	EntityID          string
	RetrievedAt       time.Time
	MainTimezone      sql.NullString
	OtherTimezones    sql.NullString
	CountryCodes      sql.NullString
	MainLanguageCode  sql.NullString
	StartServiceDate  sql.NullString
	EndServiceDate    sql.NullString
	StartTimestamp    sql.NullString
	EndTimestamp      sql.NullString
	BoundingBox       sql.NullString
	BoundingOctagon   sql.NullString
	AgenciesCount     sql.NullInt64
	RoutesCountByType sql.NullString
	StopsCountByType  sql.NullString
}

func (r *versionRow) values() []interface{} {
	return []interface{}{
		r.SourceID,
		r.Hash,
		r.SourceName,
		r.VersionName,
		r.EntityID,
		r.RetrievedAt.UTC(),
		r.MainTimezone,
		r.OtherTimezones,
		r.CountryCodes,
		r.MainLanguageCode,
		r.StartServiceDate,
		r.EndServiceDate,
		r.StartTimestamp,
		r.EndTimestamp,
		r.BoundingBox,
		r.BoundingOctagon,
		r.AgenciesCount,
		r.RoutesCountByType,
		r.StopsCountByType,
	}
}

func (r *versionRow) scan(rows *sql.Rows) error {
	return rows.Scan(
		&r.SourceID,
		&r.Hash,
		&r.SourceName,
		&r.VersionName,
		&r.EntityID,
		&r.RetrievedAt,
		&r.MainTimezone,
		&r.OtherTimezones,
		&r.CountryCodes,
		&r.MainLanguageCode,
		&r.StartServiceDate,
		&r.EndServiceDate,
		&r.StartTimestamp,
		&r.EndTimestamp,
		&r.BoundingBox,
		&r.BoundingOctagon,
		&r.AgenciesCount,
		&r.RoutesCountByType,
		&r.StopsCountByType,
	)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullJSON[T any](v T, set bool) (sql.NullString, error) {
	if !set {
		return sql.NullString{}, nil
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(buf), Valid: true}, nil
}

func fromJSON(s sql.NullString, dst interface{}) error {
	if !s.Valid {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dst)
}

func toVersionRow(m *model.FeedMetadata) (*versionRow, error) {
	r := &versionRow{
		SourceID:         m.SourceID,
		Hash:             m.Hash,
		SourceName:       m.SourceName,
		VersionName:      m.VersionName,
		EntityID:         m.EntityID,
		RetrievedAt:      m.RetrievedAt,
		MainTimezone:     nullString(m.MainTimezone),
		MainLanguageCode: nullString(m.MainLanguageCode),
		StartServiceDate: nullString(m.StartServiceDate),
		EndServiceDate:   nullString(m.EndServiceDate),
		StartTimestamp:   nullString(m.StartTimestamp),
		EndTimestamp:     nullString(m.EndTimestamp),
	}
	if m.AgenciesCount != nil {
		r.AgenciesCount = sql.NullInt64{Int64: int64(*m.AgenciesCount), Valid: true}
	}

	var err error
	if r.OtherTimezones, err = nullJSON(m.OtherTimezones, m.OtherTimezones != nil); err != nil {
		return nil, fmt.Errorf("encoding other_timezones: %w", err)
	}
	if r.CountryCodes, err = nullJSON(m.CountryCodes, m.CountryCodes != nil); err != nil {
		return nil, fmt.Errorf("encoding country_codes: %w", err)
	}
	if r.BoundingBox, err = nullJSON(m.BoundingBox, m.BoundingBox != nil); err != nil {
		return nil, fmt.Errorf("encoding bounding_box: %w", err)
	}
	if r.BoundingOctagon, err = nullJSON(m.BoundingOctagon, m.BoundingOctagon != nil); err != nil {
		return nil, fmt.Errorf("encoding bounding_octagon: %w", err)
	}
	if r.RoutesCountByType, err = nullJSON(m.RoutesCountByType, m.RoutesCountByType != nil); err != nil {
		return nil, fmt.Errorf("encoding routes_count_by_type: %w", err)
	}
	if r.StopsCountByType, err = nullJSON(m.StopsCountByType, m.StopsCountByType != nil); err != nil {
		return nil, fmt.Errorf("encoding stops_count_by_type: %w", err)
	}

	return r, nil
}

func (r *versionRow) metadata() (*model.FeedMetadata, error) {
	m := &model.FeedMetadata{
		SourceID:         r.SourceID,
		Hash:             r.Hash,
		SourceName:       r.SourceName,
		VersionName:      r.VersionName,
		EntityID:         r.EntityID,
		RetrievedAt:      r.RetrievedAt.UTC(),
		MainTimezone:     stringPtr(r.MainTimezone),
		MainLanguageCode: stringPtr(r.MainLanguageCode),
		StartServiceDate: stringPtr(r.StartServiceDate),
		EndServiceDate:   stringPtr(r.EndServiceDate),
		StartTimestamp:   stringPtr(r.StartTimestamp),
		EndTimestamp:     stringPtr(r.EndTimestamp),
	}
	if r.AgenciesCount.Valid {
		count := int(r.AgenciesCount.Int64)
		m.AgenciesCount = &count
	}

	for name, c := range map[string]struct {
		src sql.NullString
		dst interface{}
	}{
		"other_timezones":      {r.OtherTimezones, &m.OtherTimezones},
		"country_codes":        {r.CountryCodes, &m.CountryCodes},
		"bounding_box":         {r.BoundingBox, &m.BoundingBox},
		"bounding_octagon":     {r.BoundingOctagon, &m.BoundingOctagon},
		"routes_count_by_type": {r.RoutesCountByType, &m.RoutesCountByType},
		"stops_count_by_type":  {r.StopsCountByType, &m.StopsCountByType},
	} {
		if err := fromJSON(c.src, c.dst); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
	}

	return m, nil
}

// Builds the WHERE clause for a version filter. placeholder renders
// the n:th (1-based) query parameter.
func versionFilter(filter ListVersionsFilter, placeholder func(n int) string) (string, []interface{}) {
	conditions := []string{}
	params := []interface{}{}
	if filter.SourceID != "" {
		params = append(params, filter.SourceID)
		conditions = append(conditions, "source_id = "+placeholder(len(params)))
	}
	if filter.Hash != "" {
		params = append(params, filter.Hash)
		conditions = append(conditions, "hash = "+placeholder(len(params)))
	}
	if len(conditions) == 0 {
		return "", params
	}
	return " WHERE " + strings.Join(conditions, " AND "), params
}

func SerializeHeaders(headers map[string]string) string {
	var keys []string
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", url.QueryEscape(k), url.QueryEscape(headers[k])))
	}
	return strings.Join(pairs, "&")
}

func DeserializeHeaders(serialized string) (map[string]string, error) {
	headers := map[string]string{}
	if serialized == "" {
		return headers, nil
	}

	for _, pair := range strings.Split(serialized, "&") {
		parts := strings.Split(pair, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid header: %s", pair)
		}
		key, err := url.QueryUnescape(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid header: %s", pair)
		}
		headers[key], err = url.QueryUnescape(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid header: %s", pair)
		}
	}
	return headers, nil
}
