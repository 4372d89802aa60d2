// Package feed holds the in-memory representation of a parsed GTFS
// archive together with the metadata being computed for it.
package feed

import (
	"tidbyt.dev/gtfsmeta/model"
)

// Table is one GTFS file. Columns records which columns the file's
// header declared, so that an absent column can be told apart from a
// column with blank values.
type Table[T any] struct {
	Columns map[string]bool
	Rows    []T
}

// NewTable returns a table with the given header and rows.
func NewTable[T any](columns []string, rows []T) *Table[T] {
	t := &Table[T]{
		Columns: make(map[string]bool, len(columns)),
		Rows:    rows,
	}
	for _, c := range columns {
		t.Columns[c] = true
	}
	return t
}

// Has reports whether the table is present and declares all the
// given columns.
func (t *Table[T]) Has(columns ...string) bool {
	if t == nil {
		return false
	}
	for _, c := range columns {
		if !t.Columns[c] {
			return false
		}
	}
	return true
}

// Empty is true for absent tables and tables without rows.
func (t *Table[T]) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// Feed is a parsed GTFS archive. Any table may be nil. The tables
// are never modified once the feed is built; processors only write
// to Metadata.
type Feed struct {
	Agency        *Table[model.Agency]
	Stops         *Table[model.Stop]
	Routes        *Table[model.Route]
	Trips         *Table[model.Trip]
	StopTimes     *Table[model.StopTime]
	Calendar      *Table[model.Calendar]
	CalendarDates *Table[model.CalendarDate]
	FeedInfo      *Table[model.FeedInfo]

	Metadata *model.FeedMetadata
}

// Valid reports whether f is well formed enough for processing.
func (f *Feed) Valid() bool {
	return f != nil && f.Metadata != nil
}
