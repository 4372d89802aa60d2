package process

import (
	"fmt"
	"time"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

// MetadataField names a string field of model.FeedMetadata written by
// the date and timestamp processors.
type MetadataField int

const (
	FieldStartServiceDate MetadataField = iota
	FieldEndServiceDate
	FieldStartTimestamp
	FieldEndTimestamp
)

var fieldSetters = map[MetadataField]func(*model.FeedMetadata, string){
	FieldStartServiceDate: func(m *model.FeedMetadata, v string) { m.StartServiceDate = &v },
	FieldEndServiceDate:   func(m *model.FeedMetadata, v string) { m.EndServiceDate = &v },
	FieldStartTimestamp:   func(m *model.FeedMetadata, v string) { m.StartTimestamp = &v },
	FieldEndTimestamp:     func(m *model.FeedMetadata, v string) { m.EndTimestamp = &v },
}

func (f MetadataField) set(m *model.FeedMetadata, v string) {
	fieldSetters[f](m, v)
}

// Boundary describes one end of a feed's service period: which dates
// to look at, which stop_times column to read, how to pick a single
// value, and where the results go.
type Boundary struct {
	DateType       DateType
	SourceColumn   TimeColumn
	Aggregate      Aggregate
	DateField      MetadataField
	TimestampField MetadataField
}

var (
	StartBoundary = Boundary{
		DateType:       StartDate,
		SourceColumn:   ArrivalTime,
		Aggregate:      AggregateMin,
		DateField:      FieldStartServiceDate,
		TimestampField: FieldStartTimestamp,
	}
	EndBoundary = Boundary{
		DateType:       EndDate,
		SourceColumn:   DepartureTime,
		Aggregate:      AggregateMax,
		DateField:      FieldEndServiceDate,
		TimestampField: FieldEndTimestamp,
	}
)

// BoundaryDate sets the first or last service date. A range declared
// in feed_info.txt takes precedence over the calendars.
func BoundaryDate(b Boundary) ProcessFunc {
	return guard(func(f *feed.Feed) error {
		date, ok := FeedDeclaredDate(f, b.DateType)
		if !ok {
			date, ok = DatesForServiceType(f, b.DateType).Pick(b.Aggregate)
		}
		if !ok {
			return nil
		}
		iso, ok := ISODate(date)
		if !ok {
			return nil
		}
		b.DateField.set(f.Metadata, iso)
		return nil
	})
}

// BoundaryTimestamp sets the first arrival or last departure on the boundary
// service date, in local time with its UTC offset.
func BoundaryTimestamp(b Boundary, clock OffsetClock, now func() time.Time) ProcessFunc {
	if now == nil {
		now = time.Now
	}
	return guard(func(f *feed.Feed) error {
		dates := DatesForServiceType(f, b.DateType)
		date, ok := dates.Pick(b.Aggregate)
		if !ok {
			return nil
		}

		offset, ok := boundaryTime(StopTimesForDate(f, dates, date, b.SourceColumn), b)
		if !ok {
			return nil
		}

		tz, _ := MainTimezone(f)
		ts, err := FormatTimestamp(date, offset, tz, clock, now())
		if err != nil {
			return err
		}
		b.TimestampField.set(f.Metadata, ts)
		return nil
	})
}

// Earliest (or latest) parseable time in the boundary's column.
func boundaryTime(stopTimes []model.StopTime, b Boundary) (time.Duration, bool) {
	var best time.Duration
	found := false
	for i := range stopTimes {
		d, err := model.ParseGTFSTime(b.SourceColumn.value(&stopTimes[i]))
		if err != nil {
			continue
		}
		if !found ||
			(b.Aggregate == AggregateMin && d < best) ||
			(b.Aggregate == AggregateMax && d > best) {
			best, found = d, true
		}
	}
	return best, found
}

// FormatTimestamp renders the time at the given offset into service
// date (YYYYMMDD) in timezone tz, as YYYY-MM-DDThh:mm:ss followed by
// the UTC offset. Offsets of 24h or more roll into the following
// days. The date and time are those written in the feed, even when
// they fall in a DST gap; the offset is then the one in effect just
// before the transition, so 02:30 on a spring-forward day in
// America/Montreal renders as 02:30:00-05:00 (03:30 EDT). With
// ClockNow the UTC offset is the one in effect at now rather than at
// the instant itself. An empty or unknown tz gives a timestamp
// without offset.
func FormatTimestamp(date string, offset time.Duration, tz string, clock OffsetClock, now time.Time) (string, error) {
	day, ok := parseDate(date)
	if !ok {
		return "", fmt.Errorf("invalid service date '%s'", date)
	}

	// Calendar arithmetic only; no zone involved.
	wall := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, int(offset/time.Second), 0, time.UTC)

	at := now
	if clock != ClockNow {
		loc := time.UTC
		if tz != "" {
			if l, err := time.LoadLocation(tz); err == nil {
				loc = l
			}
		}
		// Gap times resolve to either side of the transition. An
		// hour earlier is before it.
		at = time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
		if !sameWallClock(at, wall) {
			at = at.Add(-time.Hour)
		}
	}

	return wall.Format("2006-01-02T15:04:05") + UTCOffset(tz, at), nil
}

func sameWallClock(t time.Time, wall time.Time) bool {
	return t.Hour() == wall.Hour() && t.Minute() == wall.Minute() && t.Day() == wall.Day()
}
