package parse

import (
	"strings"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

type StopCSV struct {
	ID   string `csv:"stop_id"`
	Code string `csv:"stop_code"`
	Name string `csv:"stop_name"`
	Lat  string `csv:"stop_lat"`
	Lon  string `csv:"stop_lon"`
	// ZoneID        string  `csv:"zone_id"`
	// URL           string  `csv:"stop_url"`
	LocationType  string `csv:"location_type"`
	ParentStation string `csv:"parent_station"`
	Timezone      string `csv:"stop_timezone"`
	// WheelchairBoarding string `csv:"wheelchair_boarding"`
	// LevelID       string  `csv:"level_id"`
}

func ParseStops(data []byte) (*feed.Table[model.Stop], error) {
	header, stopCsv, err := readCSV[StopCSV](data)
	if err != nil {
		return nil, err
	}

	stops := make([]model.Stop, 0, len(stopCsv))
	for _, st := range stopCsv {
		stop := model.Stop{
			ID:            strings.TrimSpace(st.ID),
			Code:          st.Code,
			Name:          st.Name,
			ParentStation: strings.TrimSpace(st.ParentStation),
			Timezone:      strings.TrimSpace(st.Timezone),
		}

		lat, latOK := parseFloat(st.Lat)
		lon, lonOK := parseFloat(st.Lon)
		if latOK && lonOK {
			stop.Lat = lat
			stop.Lon = lon
			stop.HasLocation = true
		}

		// A blank location_type means a stop (or platform).
		if lt, ok := parseInt(st.LocationType); ok {
			stop.LocationType = model.LocationType(lt)
		}

		stops = append(stops, stop)
	}

	return feed.NewTable(header, stops), nil
}
