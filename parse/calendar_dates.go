package parse

import (
	"strings"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

type CalendarDateCSV struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType string `csv:"exception_type"`
}

// Rows with an unknown exception_type are kept with a zero type, and
// are ignored when service dates are computed.
func ParseCalendarDates(data []byte) (*feed.Table[model.CalendarDate], error) {
	header, calendarDateCsv, err := readCSV[CalendarDateCSV](data)
	if err != nil {
		return nil, err
	}

	calendarDates := make([]model.CalendarDate, 0, len(calendarDateCsv))
	for _, cd := range calendarDateCsv {
		var exceptionType model.ExceptionType
		if t, ok := parseInt(cd.ExceptionType); ok && (t == 1 || t == 2) {
			exceptionType = model.ExceptionType(t)
		}

		calendarDates = append(calendarDates, model.CalendarDate{
			ServiceID:     strings.TrimSpace(cd.ServiceID),
			Date:          strings.TrimSpace(cd.Date),
			ExceptionType: exceptionType,
		})
	}

	return feed.NewTable(header, calendarDates), nil
}
