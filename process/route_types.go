package process

import (
	"tidbyt.dev/gtfsmeta/model"
)

// RouteTypeKeys names each basic route type in routes-by-type counts.
// It is built once at startup and not modified afterwards.
type RouteTypeKeys struct {
	keys map[model.RouteType]string
}

var defaultRouteTypeKeys = map[model.RouteType]string{
	model.RouteTypeTram:       "tram",
	model.RouteTypeSubway:     "subway",
	model.RouteTypeRail:       "rail",
	model.RouteTypeBus:        "bus",
	model.RouteTypeFerry:      "ferry",
	model.RouteTypeCable:      "cable_tram",
	model.RouteTypeAerial:     "aerial_lift",
	model.RouteTypeFunicular:  "funicular",
	model.RouteTypeTrolleybus: "trolley_bus",
	model.RouteTypeMonorail:   "monorail",
}

// NewRouteTypeKeys returns the default keys with overrides applied.
// Overrides for types that aren't basic GTFS route types are ignored.
func NewRouteTypeKeys(overrides map[model.RouteType]string) RouteTypeKeys {
	keys := make(map[model.RouteType]string, len(defaultRouteTypeKeys))
	for t, k := range defaultRouteTypeKeys {
		keys[t] = k
	}
	for t, k := range overrides {
		if _, ok := keys[t]; ok && k != "" {
			keys[t] = k
		}
	}
	return RouteTypeKeys{keys: keys}
}

// Key returns the name for a route type, folding extended types onto
// basic ones.
func (r RouteTypeKeys) Key(t model.RouteType) (string, bool) {
	keys := r.keys
	if keys == nil {
		keys = defaultRouteTypeKeys
	}
	k, ok := keys[t.Basic()]
	return k, ok
}
