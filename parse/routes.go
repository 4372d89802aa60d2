package parse

import (
	"strings"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

type RouteCSV struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Type      string `csv:"route_type"`
	// Desc      string `csv:"route_desc"`
	// URL       string `csv:"route_url"`
	// Color     string `csv:"route_color"`
	// TextColor string `csv:"route_text_color"`
}

func ParseRoutes(data []byte) (*feed.Table[model.Route], error) {
	header, routeCsv, err := readCSV[RouteCSV](data)
	if err != nil {
		return nil, err
	}

	routes := make([]model.Route, 0, len(routeCsv))
	for _, r := range routeCsv {
		routeType := model.RouteTypeUnknown
		if t, ok := parseInt(r.Type); ok {
			routeType = model.RouteType(t)
		}

		routes = append(routes, model.Route{
			ID:        strings.TrimSpace(r.ID),
			AgencyID:  strings.TrimSpace(r.AgencyID),
			ShortName: r.ShortName,
			LongName:  r.LongName,
			Type:      routeType,
		})
	}

	return feed.NewTable(header, routes), nil
}
