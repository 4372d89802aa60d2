package parse

import (
	"strings"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

type TripCSV struct {
	ID        string `csv:"trip_id"`
	RouteID   string `csv:"route_id"`
	ServiceID string `csv:"service_id"`
	// Headsign             string `csv:"trip_headsign"`
	// DirectionID          int8   `csv:"direction_id"`
	// ShapeID              string `csv:"shape_id"`
}

func ParseTrips(data []byte) (*feed.Table[model.Trip], error) {
	header, tripCsv, err := readCSV[TripCSV](data)
	if err != nil {
		return nil, err
	}

	trips := make([]model.Trip, 0, len(tripCsv))
	for _, t := range tripCsv {
		trips = append(trips, model.Trip{
			ID:        strings.TrimSpace(t.ID),
			RouteID:   strings.TrimSpace(t.RouteID),
			ServiceID: strings.TrimSpace(t.ServiceID),
		})
	}

	return feed.NewTable(header, trips), nil
}
