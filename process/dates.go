package process

import (
	"sort"
	"time"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

// DateType selects which end of a feed's service period is wanted.
type DateType int

const (
	StartDate DateType = iota
	EndDate
)

// Aggregate picks one value out of many.
type Aggregate int

const (
	AggregateMin Aggregate = iota
	AggregateMax
)

const gtfsDate = "20060102"

// A service running on a date (YYYYMMDD).
type ServiceDate struct {
	ServiceID string
	Date      string
}

// ServiceDates is a set of service/date pairs.
type ServiceDates map[ServiceDate]struct{}

func (s ServiceDates) add(serviceID, date string) {
	s[ServiceDate{serviceID, date}] = struct{}{}
}

func (s ServiceDates) remove(serviceID, date string) {
	delete(s, ServiceDate{serviceID, date})
}

// Dates returns the distinct dates in the set, in ascending order.
func (s ServiceDates) Dates() []string {
	seen := map[string]bool{}
	dates := []string{}
	for sd := range s {
		if !seen[sd.Date] {
			seen[sd.Date] = true
			dates = append(dates, sd.Date)
		}
	}
	sort.Strings(dates)
	return dates
}

// ServiceIDs returns the services active on date.
func (s ServiceDates) ServiceIDs(date string) map[string]bool {
	ids := map[string]bool{}
	for sd := range s {
		if sd.Date == date {
			ids[sd.ServiceID] = true
		}
	}
	return ids
}

// Pick returns the earliest or latest date in the set. False if the
// set is empty.
func (s ServiceDates) Pick(agg Aggregate) (string, bool) {
	dates := s.Dates()
	if len(dates) == 0 {
		return "", false
	}
	if agg == AggregateMax {
		return dates[len(dates)-1], true
	}
	return dates[0], true
}

func parseDate(s string) (time.Time, bool) {
	if len(s) != len(gtfsDate) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(gtfsDate, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DatesForServiceType computes the service/date pairs at the start
// or end of the feed's service period.
//
// Each calendar.txt row contributes the first (StartDate) or last
// (EndDate) date each of its weekdays is served, counting from the
// row's start_date or end_date. calendar_dates.txt exceptions are
// then applied: additions are inserted and removals deleted. Pairs
// without a service_id or a valid date are never included. The
// result is empty if the feed has neither table.
func DatesForServiceType(f *feed.Feed, dateType DateType) ServiceDates {
	dates := ServiceDates{}

	if !f.Calendar.Empty() {
		for i := range f.Calendar.Rows {
			expandCalendar(dates, &f.Calendar.Rows[i], dateType)
		}
	}

	if !f.CalendarDates.Empty() {
		for _, cd := range f.CalendarDates.Rows {
			if cd.ServiceID == "" {
				continue
			}
			if _, ok := parseDate(cd.Date); !ok {
				continue
			}
			switch cd.ExceptionType {
			case model.ExceptionTypeAdded:
				dates.add(cd.ServiceID, cd.Date)
			case model.ExceptionTypeRemoved:
				dates.remove(cd.ServiceID, cd.Date)
			}
		}
	}

	return dates
}

// Walks a week from the row's anchor date (forwards from start_date,
// backwards from end_date) and records each active weekday. Dates
// outside the row's own period are skipped.
func expandCalendar(dates ServiceDates, c *model.Calendar, dateType DateType) {
	if c.ServiceID == "" || c.Weekday == 0 {
		return
	}

	start, hasStart := parseDate(c.StartDate)
	end, hasEnd := parseDate(c.EndDate)

	anchor, ok, step := start, hasStart, 1
	if dateType == EndDate {
		anchor, ok, step = end, hasEnd, -1
	}
	if !ok {
		return
	}

	for i := 0; i < 7; i++ {
		day := anchor.AddDate(0, 0, i*step)
		if !c.Active(day.Weekday()) {
			continue
		}
		if hasStart && day.Before(start) {
			continue
		}
		if hasEnd && day.After(end) {
			continue
		}
		dates.add(c.ServiceID, day.Format(gtfsDate))
	}
}

// FeedDeclaredDate returns the feed-wide validity boundary from
// feed_info.txt, if the feed declares one. Where several rows are
// present the earliest start or latest end wins.
func FeedDeclaredDate(f *feed.Feed, dateType DateType) (string, bool) {
	column := "feed_start_date"
	if dateType == EndDate {
		column = "feed_end_date"
	}
	if !f.FeedInfo.Has(column) {
		return "", false
	}

	found := ""
	for _, fi := range f.FeedInfo.Rows {
		d := fi.StartDate
		if dateType == EndDate {
			d = fi.EndDate
		}
		if _, ok := parseDate(d); !ok {
			continue
		}
		if found == "" ||
			(dateType == StartDate && d < found) ||
			(dateType == EndDate && d > found) {
			found = d
		}
	}

	return found, found != ""
}

// ISODate converts YYYYMMDD to YYYY-MM-DD.
func ISODate(date string) (string, bool) {
	t, ok := parseDate(date)
	if !ok {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
