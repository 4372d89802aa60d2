package parse

import (
	"strings"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

type StopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  string `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
}

// Times are kept as given. They are only interpreted when metadata
// is computed, and only for the handful of rows that matter.
func ParseStopTimes(data []byte) (*feed.Table[model.StopTime], error) {
	header, stopTimeCsv, err := readCSV[StopTimeCSV](data)
	if err != nil {
		return nil, err
	}

	stopTimes := make([]model.StopTime, 0, len(stopTimeCsv))
	for _, st := range stopTimeCsv {
		seq, _ := parseInt(st.StopSequence)
		if seq < 0 {
			seq = 0
		}

		stopTimes = append(stopTimes, model.StopTime{
			TripID:       strings.TrimSpace(st.TripID),
			StopID:       strings.TrimSpace(st.StopID),
			StopSequence: uint32(seq),
			Arrival:      strings.TrimSpace(st.ArrivalTime),
			Departure:    strings.TrimSpace(st.DepartureTime),
		})
	}

	return feed.NewTable(header, stopTimes), nil
}
