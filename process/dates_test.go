package process

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

func TestDatesForServiceTypeCalendar(t *testing.T) {
	f := newFeed()
	// 2020-01-01 is a Wednesday, 2020-12-31 a Thursday.
	f.Calendar = calendarTable(model.Calendar{
		ServiceID: "S1",
		StartDate: "20200101",
		EndDate:   "20201231",
		Weekday:   allWeek,
	})

	start := DatesForServiceType(f, StartDate)
	assert.Equal(t, []string{
		"20200101", "20200102", "20200103", "20200104",
		"20200105", "20200106", "20200107",
	}, start.Dates())

	end := DatesForServiceType(f, EndDate)
	assert.Equal(t, []string{
		"20201225", "20201226", "20201227", "20201228",
		"20201229", "20201230", "20201231",
	}, end.Dates())

	first, ok := start.Pick(AggregateMin)
	assert.True(t, ok)
	assert.Equal(t, "20200101", first)
	last, ok := end.Pick(AggregateMax)
	assert.True(t, ok)
	assert.Equal(t, "20201231", last)
}

func TestDatesForServiceTypeWeekdays(t *testing.T) {
	f := newFeed()
	f.Calendar = calendarTable(
		// Mondays and Fridays from Wednesday 2020-01-01 to Wednesday 2020-01-29
		model.Calendar{
			ServiceID: "weekdays",
			StartDate: "20200101",
			EndDate:   "20200129",
			Weekday:   weekdays(time.Monday, time.Friday),
		},
		// Runs on Sundays, but the period holds none
		model.Calendar{
			ServiceID: "short",
			StartDate: "20200106",
			EndDate:   "20200108",
			Weekday:   weekdays(time.Sunday),
		},
	)

	assert.Equal(t, ServiceDates{
		{"weekdays", "20200103"}: {},
		{"weekdays", "20200106"}: {},
	}, DatesForServiceType(f, StartDate))

	assert.Equal(t, ServiceDates{
		{"weekdays", "20200124"}: {},
		{"weekdays", "20200127"}: {},
	}, DatesForServiceType(f, EndDate))
}

func TestDatesForServiceTypeExceptions(t *testing.T) {
	f := newFeed()
	f.Calendar = calendarTable(model.Calendar{
		ServiceID: "S1",
		StartDate: "20201010",
		EndDate:   "20201010",
		Weekday:   weekdays(time.Saturday),
	})
	f.CalendarDates = calendarDatesTable(
		model.CalendarDate{ServiceID: "S1", Date: "20201010", ExceptionType: model.ExceptionTypeRemoved},
		model.CalendarDate{ServiceID: "S2", Date: "20201009", ExceptionType: model.ExceptionTypeAdded},
		model.CalendarDate{ServiceID: "S2", Date: "20201009", ExceptionType: model.ExceptionTypeAdded},
		model.CalendarDate{ServiceID: "S3", Date: "20201011", ExceptionType: 0},
		model.CalendarDate{ServiceID: "", Date: "20201012", ExceptionType: model.ExceptionTypeAdded},
		model.CalendarDate{ServiceID: "S4", Date: "", ExceptionType: model.ExceptionTypeAdded},
		model.CalendarDate{ServiceID: "S5", Date: "2020-10-12", ExceptionType: model.ExceptionTypeAdded},
	)

	for _, dateType := range []DateType{StartDate, EndDate} {
		assert.Equal(t, ServiceDates{{"S2", "20201009"}: {}}, DatesForServiceType(f, dateType))
	}
}

func TestDatesForServiceTypeOnlyCalendarDates(t *testing.T) {
	f := newFeed()
	f.CalendarDates = calendarDatesTable(
		model.CalendarDate{ServiceID: "a", Date: "20210301", ExceptionType: model.ExceptionTypeAdded},
		model.CalendarDate{ServiceID: "b", Date: "20210215", ExceptionType: model.ExceptionTypeAdded},
	)

	dates := DatesForServiceType(f, StartDate)
	assert.Equal(t, []string{"20210215", "20210301"}, dates.Dates())
	assert.Equal(t, map[string]bool{"b": true}, dates.ServiceIDs("20210215"))
}

func TestDatesForServiceTypeEmpty(t *testing.T) {
	f := newFeed()
	assert.Empty(t, DatesForServiceType(f, StartDate))

	f.Calendar = calendarTable()
	f.CalendarDates = calendarDatesTable()
	assert.Empty(t, DatesForServiceType(f, EndDate))

	_, ok := DatesForServiceType(f, EndDate).Pick(AggregateMax)
	assert.False(t, ok)
}

func TestDatesForServiceTypeBadCalendarRows(t *testing.T) {
	f := newFeed()
	f.Calendar = calendarTable(
		model.Calendar{ServiceID: "", StartDate: "20200101", EndDate: "20200131", Weekday: allWeek},
		model.Calendar{ServiceID: "nodays", StartDate: "20200101", EndDate: "20200131"},
		model.Calendar{ServiceID: "nostart", StartDate: "", EndDate: "20200131", Weekday: allWeek},
		model.Calendar{ServiceID: "badend", StartDate: "20200101", EndDate: "2020013", Weekday: allWeek},
	)

	start := DatesForServiceType(f, StartDate)
	assert.Equal(t, map[string]bool{"badend": true}, start.ServiceIDs("20200101"))
	assert.Len(t, start, 7)

	end := DatesForServiceType(f, EndDate)
	assert.Equal(t, map[string]bool{"nostart": true}, end.ServiceIDs("20200131"))
	assert.Len(t, end, 7)
}

func TestFeedDeclaredDate(t *testing.T) {
	f := newFeed()
	_, ok := FeedDeclaredDate(f, StartDate)
	assert.False(t, ok)

	f.FeedInfo = feed.NewTable(
		[]string{"feed_publisher_name", "feed_start_date", "feed_end_date"},
		[]model.FeedInfo{
			{PublisherName: "a", StartDate: "20200301", EndDate: "20201231"},
			{PublisherName: "b", StartDate: "20200201", EndDate: "20201130"},
			{PublisherName: "c", StartDate: "", EndDate: "garbage"},
		},
	)

	start, ok := FeedDeclaredDate(f, StartDate)
	assert.True(t, ok)
	assert.Equal(t, "20200201", start)

	end, ok := FeedDeclaredDate(f, EndDate)
	assert.True(t, ok)
	assert.Equal(t, "20201231", end)

	// Declared column, but only blank values
	f.FeedInfo = feed.NewTable(
		[]string{"feed_publisher_name", "feed_start_date"},
		[]model.FeedInfo{{PublisherName: "a"}},
	)
	_, ok = FeedDeclaredDate(f, StartDate)
	assert.False(t, ok)
	_, ok = FeedDeclaredDate(f, EndDate)
	assert.False(t, ok)
}

func TestISODate(t *testing.T) {
	d, ok := ISODate("20201010")
	assert.True(t, ok)
	assert.Equal(t, "2020-10-10", d)

	for _, bad := range []string{"", "2020-10-10", "20201310", "202010101", "abcdefgh"} {
		_, ok := ISODate(bad)
		assert.False(t, ok, bad)
	}
}
