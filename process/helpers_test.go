package process

import (
	"time"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

func newFeed() *feed.Feed {
	return &feed.Feed{Metadata: &model.FeedMetadata{SourceID: "src"}}
}

func weekdays(days ...time.Weekday) int8 {
	var w int8
	for _, d := range days {
		w |= 1 << d
	}
	return w
}

var allWeek = weekdays(
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
)

func calendarTable(rows ...model.Calendar) *feed.Table[model.Calendar] {
	return feed.NewTable([]string{
		"service_id", "start_date", "end_date",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	}, rows)
}

func calendarDatesTable(rows ...model.CalendarDate) *feed.Table[model.CalendarDate] {
	return feed.NewTable([]string{"service_id", "date", "exception_type"}, rows)
}

func stopsTable(stops ...model.Stop) *feed.Table[model.Stop] {
	return feed.NewTable([]string{"stop_id", "stop_lat", "stop_lon", "location_type"}, stops)
}

func stopAt(id string, lat, lon float64) model.Stop {
	return model.Stop{ID: id, Lat: lat, Lon: lon, HasLocation: true}
}

// Saturday 2020-10-10 service, one trip departing at 05:00 local time
// in Montreal.
func montrealFeed() *feed.Feed {
	f := newFeed()
	f.Agency = feed.NewTable(
		[]string{"agency_name", "agency_url", "agency_timezone"},
		[]model.Agency{{Name: "STM", URL: "http://stm.info", Timezone: "America/Montreal"}},
	)
	f.Calendar = calendarTable(model.Calendar{
		ServiceID: "S1",
		StartDate: "20201010",
		EndDate:   "20201010",
		Weekday:   weekdays(time.Saturday),
	})
	f.Trips = feed.NewTable(
		[]string{"route_id", "service_id", "trip_id"},
		[]model.Trip{{ID: "T1", RouteID: "R1", ServiceID: "S1"}},
	)
	f.StopTimes = feed.NewTable(
		[]string{"trip_id", "stop_id", "stop_sequence", "arrival_time", "departure_time"},
		[]model.StopTime{{TripID: "T1", StopID: "s", StopSequence: 1, Arrival: "05:00:00", Departure: "05:00:00"}},
	)
	return f
}

type fakeResolver struct {
	codes map[Coordinate]string
	calls int
	err   error
}

func (r *fakeResolver) CountryCode(lat, lon float64) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return r.codes[Coordinate{lat, lon}], nil
}
