package parse

import (
	"strings"
	"time"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

type CalendarCSV struct {
	ServiceID string `csv:"service_id"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	Monday    string `csv:"monday"`
	Tuesday   string `csv:"tuesday"`
	Wednesday string `csv:"wednesday"`
	Thursday  string `csv:"thursday"`
	Friday    string `csv:"friday"`
	Saturday  string `csv:"saturday"`
	Sunday    string `csv:"sunday"`
}

func ParseCalendar(data []byte) (*feed.Table[model.Calendar], error) {
	header, calendarCsv, err := readCSV[CalendarCSV](data)
	if err != nil {
		return nil, err
	}

	calendars := make([]model.Calendar, 0, len(calendarCsv))
	for _, c := range calendarCsv {
		var weekday int8
		for day, flag := range map[time.Weekday]string{
			time.Monday:    c.Monday,
			time.Tuesday:   c.Tuesday,
			time.Wednesday: c.Wednesday,
			time.Thursday:  c.Thursday,
			time.Friday:    c.Friday,
			time.Saturday:  c.Saturday,
			time.Sunday:    c.Sunday,
		} {
			if v, ok := parseInt(flag); ok && v == 1 {
				weekday |= 1 << day
			}
		}

		calendars = append(calendars, model.Calendar{
			ServiceID: strings.TrimSpace(c.ServiceID),
			StartDate: strings.TrimSpace(c.StartDate),
			EndDate:   strings.TrimSpace(c.EndDate),
			Weekday:   weekday,
		})
	}

	return feed.NewTable(header, calendars), nil
}
