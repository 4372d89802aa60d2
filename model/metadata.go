package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Keys of FeedMetadata.StopsCountByType.
const (
	StopKeyStop     = "stop"
	StopKeyStation  = "station"
	StopKeyEntrance = "entrance"
)

// Metadata computed for a single version of a GTFS feed.
//
// Scalar fields are nil until set, and collections are nil until
// set. Each field is written by exactly one processor.
type FeedMetadata struct {
	SourceID    string    `json:"source_id"`
	SourceName  string    `json:"source_name"`
	Hash        string    `json:"hash"`
	VersionName string    `json:"version_name"`
	EntityID    string    `json:"entity_id"`
	RetrievedAt time.Time `json:"retrieved_at"`

	MainTimezone     *string  `json:"main_timezone"`
	OtherTimezones   []string `json:"other_timezones"`
	CountryCodes     []string `json:"country_codes"`
	MainLanguageCode *string  `json:"main_language_code"`

	// ISO 8601 dates (2006-01-02)
	StartServiceDate *string `json:"start_service_date"`
	EndServiceDate   *string `json:"end_service_date"`

	// ISO 8601 date-time with UTC offset (2006-01-02T15:04:05-07:00)
	StartTimestamp *string `json:"start_timestamp"`
	EndTimestamp   *string `json:"end_timestamp"`

	BoundingBox     []Corner `json:"bounding_box"`
	BoundingOctagon []Corner `json:"bounding_octagon"`

	AgenciesCount     *int           `json:"agencies_count"`
	RoutesCountByType map[string]int `json:"routes_count_by_type"`
	StopsCountByType  map[string]int `json:"stops_count_by_type"`
}

// NewFeedMetadata returns a metadata record with identity fields set
// and everything else unset.
func NewFeedMetadata(info *DatasetVersionInfo) *FeedMetadata {
	return &FeedMetadata{
		SourceID:    info.SourceID,
		SourceName:  info.SourceName,
		Hash:        info.Hash,
		VersionName: info.VersionName(),
		EntityID:    info.EntityID,
		RetrievedAt: info.DownloadDate,
	}
}

// Str returns the value of an optional string field, or "" if unset.
func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// A labeled corner of a bounding shape.
type Corner struct {
	Label     string  `json:"label"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DMS renders latitude and longitude as degrees, minutes, seconds and
// hemisphere, e.g. 45°30'31.997"N.
func (c Corner) DMS() (string, string) {
	return formatDMS(c.Latitude, "N", "S"), formatDMS(c.Longitude, "E", "W")
}

// MarshalJSON adds the DMS renderings next to the decimal degrees.
// They are ignored when unmarshaling.
func (c Corner) MarshalJSON() ([]byte, error) {
	type corner Corner
	lat, lon := c.DMS()
	return json.Marshal(struct {
		corner
		LatitudeDMS  string `json:"latitude_dms"`
		LongitudeDMS string `json:"longitude_dms"`
	}{corner(c), lat, lon})
}

func formatDMS(v float64, pos string, neg string) string {
	hemisphere := pos
	if v < 0 {
		hemisphere = neg
		v = -v
	}

	// Work in milliseconds of arc so rounding can't produce 60.000".
	total := int64(math.Round(v * 3600 * 1000))
	deg := total / (3600 * 1000)
	mins := (total / (60 * 1000)) % 60
	ms := total % (60 * 1000)

	return fmt.Sprintf("%d°%d'%d.%03d\"%s", deg, mins, ms/1000, ms%1000, hemisphere)
}

// Bookkeeping for one version of a dataset source, from before
// download until the catalog write completes.
type DatasetVersionInfo struct {
	EntityID     string
	SourceID     string
	SourceName   string
	URL          string
	ArchivePath  string
	DownloadDate time.Time
	Hash         string

	// Hashes of versions already in the catalog, and their entity
	// codes at the same positions.
	PreviousHashes       []string
	PreviousVersionCodes []string
}

// KnownEntityID returns the entity code of the previously seen version
// with the given hash, or "" if there is none.
func (v *DatasetVersionInfo) KnownEntityID(hash string) string {
	for i, h := range v.PreviousHashes {
		if h == hash && i < len(v.PreviousVersionCodes) {
			return v.PreviousVersionCodes[i]
		}
	}
	return ""
}

// VersionName is the human readable name of the version: source
// name, download date and a truncated hash.
func (v *DatasetVersionInfo) VersionName() string {
	hash := v.Hash
	if len(hash) > 10 {
		hash = hash[:10]
	}
	return fmt.Sprintf("%s_%s_%s", v.SourceName, v.DownloadDate.Format("2006-01-02"), hash)
}
