package process

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

var winterClock = func() time.Time {
	return time.Date(2021, 1, 15, 12, 0, 0, 0, time.UTC)
}

func allProcessors(resolver CountryResolver) []Processor {
	return Processors(Config{
		RouteTypeKeys: NewRouteTypeKeys(nil),
		Countries:     resolver,
		Now:           winterClock,
	})
}

func TestProcessorsRejectInvalidFeed(t *testing.T) {
	for _, p := range allProcessors(&fakeResolver{}) {
		_, err := p.Process(nil)
		assert.ErrorIs(t, err, ErrInvalidFeed, p.Name)

		_, err = p.Process(&feed.Feed{})
		assert.ErrorIs(t, err, ErrInvalidFeed, p.Name)
	}
}

func TestProcessorsEmptyFeed(t *testing.T) {
	resolver := &fakeResolver{}
	f := newFeed()
	for _, p := range allProcessors(resolver) {
		out, err := p.Process(f)
		require.NoError(t, err, p.Name)
		assert.Same(t, f, out)
	}

	assert.Equal(t, &model.FeedMetadata{SourceID: "src"}, f.Metadata)
	assert.Equal(t, 0, resolver.calls)
}

func TestProcessorsEmptyTables(t *testing.T) {
	f := newFeed()
	f.Agency = feed.NewTable([]string{"agency_name", "agency_timezone", "agency_lang"}, []model.Agency{})
	f.Stops = stopsTable()
	f.Routes = feed.NewTable([]string{"route_id", "route_type"}, []model.Route{})
	f.Calendar = calendarTable()
	f.CalendarDates = calendarDatesTable()

	for _, p := range allProcessors(&fakeResolver{}) {
		_, err := p.Process(f)
		require.NoError(t, err, p.Name)
	}

	m := f.Metadata
	assert.Equal(t, 0, *m.AgenciesCount)
	assert.Equal(t, map[string]int{}, m.RoutesCountByType)
	assert.Equal(t, map[string]int{"stop": 0, "station": 0, "entrance": 0}, m.StopsCountByType)
	assert.Nil(t, m.MainLanguageCode)
	assert.Nil(t, m.MainTimezone)
	assert.Nil(t, m.OtherTimezones)
	assert.Nil(t, m.CountryCodes)
	assert.Nil(t, m.StartServiceDate)
	assert.Nil(t, m.EndServiceDate)
	assert.Nil(t, m.StartTimestamp)
	assert.Nil(t, m.EndTimestamp)
	assert.Nil(t, m.BoundingBox)
	assert.Nil(t, m.BoundingOctagon)
}

func TestAgenciesCount(t *testing.T) {
	f := newFeed()
	f.Agency = feed.NewTable(
		[]string{"agency_id", "agency_name"},
		[]model.Agency{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}, {ID: "3"}},
	)
	_, err := AgenciesCount()(f)
	require.NoError(t, err)
	require.NotNil(t, f.Metadata.AgenciesCount)
	assert.Equal(t, 3, *f.Metadata.AgenciesCount)

	// No agency_name column
	f = newFeed()
	f.Agency = feed.NewTable([]string{"agency_id"}, []model.Agency{{ID: "1"}})
	_, err = AgenciesCount()(f)
	require.NoError(t, err)
	assert.Nil(t, f.Metadata.AgenciesCount)
}

func routesWithTypes(types ...model.RouteType) *feed.Table[model.Route] {
	routes := []model.Route{}
	for _, rt := range types {
		routes = append(routes, model.Route{Type: rt})
	}
	return feed.NewTable([]string{"route_id", "route_type"}, routes)
}

func TestRoutesCountByType(t *testing.T) {
	f := newFeed()
	f.Routes = routesWithTypes(0, 2, 5, 0, 12, 1, 0, 0, 0)

	_, err := RoutesCountByType(NewRouteTypeKeys(nil))(f)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"tram":       5,
		"subway":     1,
		"rail":       1,
		"cable_tram": 1,
		"monorail":   1,
	}, f.Metadata.RoutesCountByType)

	for key, count := range f.Metadata.RoutesCountByType {
		assert.NotZero(t, count, key)
	}
}

func TestRoutesCountByTypeExtendedAndUnknown(t *testing.T) {
	f := newFeed()
	f.Routes = routesWithTypes(3, 700, 715, 109, 1000, 800, model.RouteTypeUnknown, 1700, 8)

	_, err := RoutesCountByType(NewRouteTypeKeys(nil))(f)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"bus":         3,
		"rail":        1,
		"ferry":       1,
		"trolley_bus": 1,
	}, f.Metadata.RoutesCountByType)
}

func TestRoutesCountByTypeOverrides(t *testing.T) {
	keys := NewRouteTypeKeys(map[model.RouteType]string{
		model.RouteTypeBus: "Q5638",
		model.RouteType(9): "ignored",
		model.RouteTypeTram: "",
	})

	f := newFeed()
	f.Routes = routesWithTypes(3, 3, 0)
	_, err := RoutesCountByType(keys)(f)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Q5638": 2, "tram": 1}, f.Metadata.RoutesCountByType)
}

func TestRoutesCountByTypeMissingColumn(t *testing.T) {
	f := newFeed()
	f.Routes = feed.NewTable([]string{"route_id"}, []model.Route{{ID: "r"}})
	_, err := RoutesCountByType(NewRouteTypeKeys(nil))(f)
	require.NoError(t, err)
	assert.Nil(t, f.Metadata.RoutesCountByType)
}

func TestStopsCountByType(t *testing.T) {
	// The last stop had a blank location_type.
	types := []model.LocationType{0, 2, 1, 0, 0, 1, 0, 0, 0, 3, 4}
	stops := []model.Stop{}
	for _, lt := range types {
		stops = append(stops, model.Stop{LocationType: lt})
	}

	f := newFeed()
	f.Stops = stopsTable(stops...)
	_, err := StopsCountByType()(f)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"stop":     6,
		"station":  2,
		"entrance": 1,
	}, f.Metadata.StopsCountByType)
}

func TestMainLanguageCode(t *testing.T) {
	for _, tc := range []struct {
		columns  []string
		langs    []string
		expected string
	}{
		{[]string{"agency_name", "agency_lang"}, []string{"fr", "en"}, "fr"},
		{[]string{"agency_name", "agency_lang"}, []string{"EN-us"}, "en-US"},
		{[]string{"agency_name", "agency_lang"}, []string{"pt_BR"}, "pt-BR"},
		{[]string{"agency_name", "agency_lang"}, []string{"12"}, ""},
		{[]string{"agency_name", "agency_lang"}, []string{""}, ""},
		{[]string{"agency_name"}, []string{"fr"}, ""},
	} {
		agencies := []model.Agency{}
		for _, l := range tc.langs {
			agencies = append(agencies, model.Agency{Name: "a", Lang: l})
		}
		f := newFeed()
		f.Agency = feed.NewTable(tc.columns, agencies)

		_, err := MainLanguageCode()(f)
		require.NoError(t, err)
		if tc.expected == "" {
			assert.Nil(t, f.Metadata.MainLanguageCode, tc.langs)
		} else {
			require.NotNil(t, f.Metadata.MainLanguageCode, tc.langs)
			assert.Equal(t, tc.expected, *f.Metadata.MainLanguageCode)
		}
	}
}

func TestTimezones(t *testing.T) {
	f := newFeed()
	f.Agency = feed.NewTable(
		[]string{"agency_name", "agency_timezone"},
		[]model.Agency{{Name: "a", Timezone: "America/Montreal"}},
	)
	f.Stops = feed.NewTable(
		[]string{"stop_id", "stop_timezone"},
		[]model.Stop{
			{ID: "1", Timezone: "America/Toronto"},
			{ID: "2", Timezone: "America/Montreal"},
			{ID: "3", Timezone: ""},
			{ID: "4", Timezone: "America/New_York"},
			{ID: "5", Timezone: "America/Toronto"},
		},
	)

	_, err := Timezones()(f)
	require.NoError(t, err)
	assert.Equal(t, "America/Montreal", model.Str(f.Metadata.MainTimezone))
	assert.Equal(t, []string{"America/New_York", "America/Toronto"}, f.Metadata.OtherTimezones)
	assert.NotContains(t, f.Metadata.OtherTimezones, "America/Montreal")
}

func TestTimezonesWithoutStopTimezone(t *testing.T) {
	f := newFeed()
	f.Agency = feed.NewTable(
		[]string{"agency_name", "agency_timezone"},
		[]model.Agency{{Name: "a", Timezone: "Europe/Oslo"}},
	)
	f.Stops = stopsTable(stopAt("1", 1, 1))

	_, err := Timezones()(f)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Oslo", model.Str(f.Metadata.MainTimezone))
	assert.Equal(t, []string{}, f.Metadata.OtherTimezones)
}

func TestCountryCodes(t *testing.T) {
	resolver := &fakeResolver{codes: map[Coordinate]string{
		{45.5, -73.6}: "CA",
		{45.0, -73.4}: "US",
		{44.9, -73.3}: "US",
	}}

	f := newFeed()
	f.Stops = stopsTable(
		stopAt("1", 45.0, -73.4),
		stopAt("2", 45.5, -73.6),
		stopAt("3", 45.5, -73.6),
		stopAt("4", 44.9, -73.3),
		stopAt("5", 0, -30), // at sea
		model.Stop{ID: "6"},
	)

	_, err := CountryCodes(resolver)(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"CA", "US"}, f.Metadata.CountryCodes)
	assert.Equal(t, 4, resolver.calls)
}

func TestCountryCodesSkipped(t *testing.T) {
	resolver := &fakeResolver{}

	f := newFeed()
	_, err := CountryCodes(resolver)(f)
	require.NoError(t, err)
	assert.Nil(t, f.Metadata.CountryCodes)

	f.Stops = feed.NewTable([]string{"stop_id", "stop_name"}, []model.Stop{{ID: "1"}})
	_, err = CountryCodes(resolver)(f)
	require.NoError(t, err)
	assert.Nil(t, f.Metadata.CountryCodes)

	f.Stops = stopsTable(stopAt("1", 1, 1))
	_, err = CountryCodes(nil)(f)
	require.NoError(t, err)
	assert.Nil(t, f.Metadata.CountryCodes)

	assert.Equal(t, 0, resolver.calls)
}

func TestCountryCodesResolverError(t *testing.T) {
	boom := errors.New("boom")
	f := newFeed()
	f.Stops = stopsTable(stopAt("1", 1, 1))

	_, err := CountryCodes(&fakeResolver{err: boom})(f)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, f.Metadata.CountryCodes)
}

func TestServiceDates(t *testing.T) {
	f := newFeed()
	f.Calendar = calendarTable(
		model.Calendar{ServiceID: "a", StartDate: "20200106", EndDate: "20200630", Weekday: weekdays(time.Monday)},
		model.Calendar{ServiceID: "b", StartDate: "20200301", EndDate: "20201231", Weekday: allWeek},
	)

	_, err := BoundaryDate(StartBoundary)(f)
	require.NoError(t, err)
	_, err = BoundaryDate(EndBoundary)(f)
	require.NoError(t, err)

	assert.Equal(t, "2020-01-06", model.Str(f.Metadata.StartServiceDate))
	assert.Equal(t, "2020-12-31", model.Str(f.Metadata.EndServiceDate))
	assert.LessOrEqual(t, *f.Metadata.StartServiceDate, *f.Metadata.EndServiceDate)
}

func TestServiceDatesFromFeedInfo(t *testing.T) {
	f := newFeed()
	f.Calendar = calendarTable(
		model.Calendar{ServiceID: "a", StartDate: "20200106", EndDate: "20200630", Weekday: allWeek},
	)
	f.FeedInfo = feed.NewTable(
		[]string{"feed_publisher_name", "feed_start_date", "feed_end_date"},
		[]model.FeedInfo{{PublisherName: "p", StartDate: "20200101", EndDate: "20210101"}},
	)

	_, err := BoundaryDate(StartBoundary)(f)
	require.NoError(t, err)
	_, err = BoundaryDate(EndBoundary)(f)
	require.NoError(t, err)

	assert.Equal(t, "2020-01-01", model.Str(f.Metadata.StartServiceDate))
	assert.Equal(t, "2021-01-01", model.Str(f.Metadata.EndServiceDate))
}

func TestTimestampsMontreal(t *testing.T) {
	for _, tc := range []struct {
		clock OffsetClock
		end   string
	}{
		{ClockNow, "2020-10-10T05:00:00-05:00"},
		{ClockServiceDate, "2020-10-10T05:00:00-04:00"},
	} {
		f := montrealFeed()
		_, err := BoundaryTimestamp(EndBoundary, tc.clock, winterClock)(f)
		require.NoError(t, err)
		assert.Equal(t, tc.end, model.Str(f.Metadata.EndTimestamp))

		_, err = BoundaryTimestamp(StartBoundary, tc.clock, winterClock)(f)
		require.NoError(t, err)
		assert.Equal(t, tc.end, model.Str(f.Metadata.StartTimestamp))
	}
}

func TestTimestampsPickExtremes(t *testing.T) {
	f := montrealFeed()
	f.Trips = feed.NewTable(
		[]string{"route_id", "service_id", "trip_id"},
		[]model.Trip{{ID: "T1", ServiceID: "S1"}, {ID: "T2", ServiceID: "S1"}},
	)
	f.StopTimes = feed.NewTable(
		[]string{"trip_id", "stop_id", "stop_sequence", "arrival_time", "departure_time"},
		[]model.StopTime{
			{TripID: "T1", StopSequence: 1, Arrival: "06:15:00", Departure: "06:16:00"},
			{TripID: "T1", StopSequence: 2, Arrival: "6:05:00", Departure: "07:00:00"},
			{TripID: "T2", StopSequence: 1, Arrival: "bogus", Departure: "25:10:00"},
			{TripID: "T2", StopSequence: 2, Arrival: "23:00:00", Departure: ""},
		},
	)

	for _, p := range []ProcessFunc{
		BoundaryTimestamp(StartBoundary, ClockServiceDate, winterClock),
		BoundaryTimestamp(EndBoundary, ClockServiceDate, winterClock),
	} {
		_, err := p(f)
		require.NoError(t, err)
	}

	assert.Equal(t, "2020-10-10T06:05:00-04:00", model.Str(f.Metadata.StartTimestamp))
	assert.Equal(t, "2020-10-11T01:10:00-04:00", model.Str(f.Metadata.EndTimestamp))
}

func TestTimestampsMissingData(t *testing.T) {
	for name, mutate := range map[string]func(f *feed.Feed){
		"no calendar":   func(f *feed.Feed) { f.Calendar = nil },
		"no trips":      func(f *feed.Feed) { f.Trips = nil },
		"no stop times": func(f *feed.Feed) { f.StopTimes = nil },
		"blank times": func(f *feed.Feed) {
			f.StopTimes = feed.NewTable(
				[]string{"trip_id", "arrival_time", "departure_time"},
				[]model.StopTime{{TripID: "T1"}},
			)
		},
	} {
		f := montrealFeed()
		mutate(f)
		for _, b := range []Boundary{StartBoundary, EndBoundary} {
			_, err := BoundaryTimestamp(b, ClockServiceDate, winterClock)(f)
			require.NoError(t, err, name)
		}
		assert.Nil(t, f.Metadata.StartTimestamp, name)
		assert.Nil(t, f.Metadata.EndTimestamp, name)
	}
}

func TestTimestampWithoutTimezone(t *testing.T) {
	f := montrealFeed()
	f.Agency = nil

	_, err := BoundaryTimestamp(EndBoundary, ClockServiceDate, winterClock)(f)
	require.NoError(t, err)
	assert.Equal(t, "2020-10-10T05:00:00", model.Str(f.Metadata.EndTimestamp))
}

func TestBoundingShapes(t *testing.T) {
	f := newFeed()
	f.Stops = stopsTable(stopAt("1", 0, 1), stopAt("2", 1, 2), stopAt("3", 2, 1), stopAt("4", 1, 0))

	_, err := BoundingShape(BoundaryBox)(f)
	require.NoError(t, err)
	_, err = BoundingShape(BoundaryOctagon)(f)
	require.NoError(t, err)

	assert.Len(t, f.Metadata.BoundingBox, 4)
	assert.Len(t, f.Metadata.BoundingOctagon, 8)
	assert.Equal(t, BoundingBox(StopCoordinates(f)), f.Metadata.BoundingBox)
	assert.Equal(t, BoundingOctagon(StopCoordinates(f)), f.Metadata.BoundingOctagon)
}

func TestBoundingShapesNoStops(t *testing.T) {
	f := newFeed()
	f.Stops = stopsTable()

	for _, kind := range []BoundaryKind{BoundaryBox, BoundaryOctagon} {
		_, err := BoundingShape(kind)(f)
		require.NoError(t, err)
	}
	assert.Nil(t, f.Metadata.BoundingBox)
	assert.Nil(t, f.Metadata.BoundingOctagon)
}

func TestProcessorsFullFeed(t *testing.T) {
	f := montrealFeed()
	f.Agency = feed.NewTable(
		[]string{"agency_name", "agency_url", "agency_timezone", "agency_lang"},
		[]model.Agency{{Name: "STM", Timezone: "America/Montreal", Lang: "fr"}},
	)
	f.Routes = routesWithTypes(1, 3, 3)
	f.Stops = stopsTable(stopAt("s", 45.5, -73.6), stopAt("t", 45.4, -73.5))

	resolver := &fakeResolver{codes: map[Coordinate]string{
		{45.5, -73.6}: "CA",
		{45.4, -73.5}: "CA",
	}}

	names := []string{}
	for _, p := range allProcessors(resolver) {
		names = append(names, p.Name)
		_, err := p.Process(f)
		require.NoError(t, err, p.Name)
	}
	assert.Equal(t, []string{
		"agencies_count",
		"routes_count_by_type",
		"stops_count_by_type",
		"main_language_code",
		"timezones",
		"country_codes",
		"start_service_date",
		"end_service_date",
		"start_timestamp",
		"end_timestamp",
		"bounding_box",
		"bounding_octagon",
	}, names)

	m := f.Metadata
	assert.Equal(t, 1, *m.AgenciesCount)
	assert.Equal(t, map[string]int{"subway": 1, "bus": 2}, m.RoutesCountByType)
	assert.Equal(t, map[string]int{"stop": 2, "station": 0, "entrance": 0}, m.StopsCountByType)
	assert.Equal(t, "fr", model.Str(m.MainLanguageCode))
	assert.Equal(t, "America/Montreal", model.Str(m.MainTimezone))
	assert.Equal(t, []string{}, m.OtherTimezones)
	assert.Equal(t, []string{"CA"}, m.CountryCodes)
	assert.Equal(t, "2020-10-10", model.Str(m.StartServiceDate))
	assert.Equal(t, "2020-10-10", model.Str(m.EndServiceDate))
	assert.Equal(t, "2020-10-10T05:00:00-04:00", model.Str(m.StartTimestamp))
	assert.Equal(t, "2020-10-10T05:00:00-04:00", model.Str(m.EndTimestamp))
	assert.Len(t, m.BoundingBox, 4)
	assert.Len(t, m.BoundingOctagon, 8)
}
