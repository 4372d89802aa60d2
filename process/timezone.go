package process

import (
	"fmt"
	"time"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

// OffsetClock decides which instant a timestamp's UTC offset is
// computed for. This matters for timezones with daylight saving.
type OffsetClock int

const (
	// Offset in effect at the timestamp itself.
	ClockServiceDate OffsetClock = iota

	// Offset in effect when the metadata is computed. Matches
	// metadata published by earlier versions of the harvester.
	ClockNow
)

// ZeroOffset is written instead of "+00:00" for UTC.
const ZeroOffset = "±00:00"

// TimeColumn is a stop_times.txt time column.
type TimeColumn int

const (
	ArrivalTime TimeColumn = iota
	DepartureTime
)

func (c TimeColumn) String() string {
	if c == DepartureTime {
		return "departure_time"
	}
	return "arrival_time"
}

func (c TimeColumn) value(st *model.StopTime) string {
	if c == DepartureTime {
		return st.Departure
	}
	return st.Arrival
}

// MainTimezone returns the first agency_timezone in agency.txt. GTFS
// requires all agencies in a feed to share a timezone.
func MainTimezone(f *feed.Feed) (string, bool) {
	if !f.Agency.Has("agency_timezone") || f.Agency.Empty() {
		return "", false
	}
	tz := f.Agency.Rows[0].Timezone
	return tz, tz != ""
}

// UTCOffset returns the offset of timezone tz from UTC at the given
// instant, formatted as "+HH:MM" or "-HH:MM". UTC itself gives
// ZeroOffset. An unknown timezone gives "".
func UTCOffset(tz string, at time.Time) string {
	if tz == "" {
		return ""
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return ""
	}
	_, seconds := at.In(loc).Zone()
	return FormatOffset(seconds)
}

// FormatOffset formats an offset given in seconds east of UTC.
func FormatOffset(seconds int) string {
	if seconds == 0 {
		return ZeroOffset
	}
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}

// StopTimesForDate returns the stop_times of trips on services active
// on date (YYYYMMDD) according to dates. Rows lacking a trip or
// service reference, or a value in column, are skipped.
func StopTimesForDate(f *feed.Feed, dates ServiceDates, date string, column TimeColumn) []model.StopTime {
	services := dates.ServiceIDs(date)
	if len(services) == 0 {
		return nil
	}

	if !f.Trips.Has("trip_id", "service_id") {
		return nil
	}
	trips := map[string]bool{}
	for _, t := range f.Trips.Rows {
		if t.ID == "" || t.ServiceID == "" {
			continue
		}
		if services[t.ServiceID] {
			trips[t.ID] = true
		}
	}
	if len(trips) == 0 {
		return nil
	}

	if !f.StopTimes.Has("trip_id", column.String()) {
		return nil
	}
	stopTimes := []model.StopTime{}
	for i := range f.StopTimes.Rows {
		st := &f.StopTimes.Rows[i]
		if !trips[st.TripID] || column.value(st) == "" {
			continue
		}
		stopTimes = append(stopTimes, *st)
	}

	return stopTimes
}
