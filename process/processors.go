// Package process derives metadata fields from a parsed GTFS feed.
//
// Each field has its own processor. A processor reads the feed's
// tables and writes one field (or a closely related pair) of the
// feed's metadata. When the data a field needs is missing from the
// feed, the field is left unset and no error is returned.
package process

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/text/language"

	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

// ErrInvalidFeed is returned when a processor is handed a nil feed, or
// a feed without metadata.
var ErrInvalidFeed = errors.New("invalid feed representation")

// ProcessFunc updates f.Metadata and returns f.
type ProcessFunc func(f *feed.Feed) (*feed.Feed, error)

// Processor is a named ProcessFunc.
type Processor struct {
	Name    string
	Process ProcessFunc
}

type Config struct {
	RouteTypeKeys RouteTypeKeys

	// Countries resolves stop coordinates to country codes. When
	// nil, country codes are not computed.
	Countries CountryResolver

	Clock OffsetClock

	// Defaults to time.Now.
	Now func() time.Time
}

// Processors returns every processor, in the order they should run.
func Processors(cfg Config) []Processor {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return []Processor{
		{"agencies_count", AgenciesCount()},
		{"routes_count_by_type", RoutesCountByType(cfg.RouteTypeKeys)},
		{"stops_count_by_type", StopsCountByType()},
		{"main_language_code", MainLanguageCode()},
		{"timezones", Timezones()},
		{"country_codes", CountryCodes(cfg.Countries)},
		{"start_service_date", BoundaryDate(StartBoundary)},
		{"end_service_date", BoundaryDate(EndBoundary)},
		{"start_timestamp", BoundaryTimestamp(StartBoundary, cfg.Clock, cfg.Now)},
		{"end_timestamp", BoundaryTimestamp(EndBoundary, cfg.Clock, cfg.Now)},
		{BoundaryBox.String(), BoundingShape(BoundaryBox)},
		{BoundaryOctagon.String(), BoundingShape(BoundaryOctagon)},
	}
}

func guard(fn func(f *feed.Feed) error) ProcessFunc {
	return func(f *feed.Feed) (*feed.Feed, error) {
		if !f.Valid() {
			return nil, ErrInvalidFeed
		}
		if err := fn(f); err != nil {
			return f, err
		}
		return f, nil
	}
}

func AgenciesCount() ProcessFunc {
	return guard(func(f *feed.Feed) error {
		if !f.Agency.Has("agency_name") {
			return nil
		}
		count := len(f.Agency.Rows)
		f.Metadata.AgenciesCount = &count
		return nil
	})
}

// RoutesCountByType counts routes per mode. Modes without routes are
// left out.
func RoutesCountByType(keys RouteTypeKeys) ProcessFunc {
	return guard(func(f *feed.Feed) error {
		if !f.Routes.Has("route_type") {
			return nil
		}
		counts := map[string]int{}
		for _, r := range f.Routes.Rows {
			if key, ok := keys.Key(r.Type); ok {
				counts[key]++
			}
		}
		f.Metadata.RoutesCountByType = counts
		return nil
	})
}

// StopsCountByType counts stops, stations and entrances. Generic
// nodes and boarding areas belong to a stop or station and aren't
// counted.
func StopsCountByType() ProcessFunc {
	return guard(func(f *feed.Feed) error {
		if f.Stops == nil {
			return nil
		}
		counts := map[string]int{
			model.StopKeyStop:     0,
			model.StopKeyStation:  0,
			model.StopKeyEntrance: 0,
		}
		for _, s := range f.Stops.Rows {
			switch s.LocationType {
			case model.LocationTypeStop:
				counts[model.StopKeyStop]++
			case model.LocationTypeStation:
				counts[model.StopKeyStation]++
			case model.LocationTypeEntranceExit:
				counts[model.StopKeyEntrance]++
			}
		}
		f.Metadata.StopsCountByType = counts
		return nil
	})
}

// MainLanguageCode is the first agency_lang, as a canonical BCP 47
// tag. Values that don't parse as a language are ignored.
func MainLanguageCode() ProcessFunc {
	return guard(func(f *feed.Feed) error {
		if !f.Agency.Has("agency_lang") || f.Agency.Empty() {
			return nil
		}
		raw := f.Agency.Rows[0].Lang
		if raw == "" {
			return nil
		}
		tag, err := language.Parse(raw)
		if err != nil {
			return nil
		}
		code := tag.String()
		f.Metadata.MainLanguageCode = &code
		return nil
	})
}

// Timezones sets the main timezone and the other timezones used by
// stops, if any.
func Timezones() ProcessFunc {
	return guard(func(f *feed.Feed) error {
		main, ok := MainTimezone(f)
		if !ok {
			return nil
		}

		others := []string{}
		if f.Stops.Has("stop_timezone") {
			seen := map[string]bool{main: true}
			for _, s := range f.Stops.Rows {
				if s.Timezone != "" && !seen[s.Timezone] {
					seen[s.Timezone] = true
					others = append(others, s.Timezone)
				}
			}
			sort.Strings(others)
		}

		f.Metadata.MainTimezone = &main
		f.Metadata.OtherTimezones = others
		return nil
	})
}

// CountryCodes sets the sorted list of countries stops are located in.
func CountryCodes(resolver CountryResolver) ProcessFunc {
	return guard(func(f *feed.Feed) error {
		if resolver == nil {
			return nil
		}
		coords := StopCoordinates(f)
		if len(coords) == 0 {
			return nil
		}

		looked := map[Coordinate]bool{}
		found := map[string]bool{}
		for _, c := range coords {
			if looked[c] {
				continue
			}
			looked[c] = true

			code, err := resolver.CountryCode(c.Lat, c.Lon)
			if err != nil {
				return fmt.Errorf("resolving country: %w", err)
			}
			if code != "" {
				found[code] = true
			}
		}

		codes := make([]string, 0, len(found))
		for code := range found {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		f.Metadata.CountryCodes = codes
		return nil
	})
}

// BoundingShape sets the bounding shape of the given kind.
func BoundingShape(kind BoundaryKind) ProcessFunc {
	shape, ok := boundaryShapes[kind]
	if !ok {
		panic(fmt.Sprintf("unknown boundary kind %d", kind))
	}
	return guard(func(f *feed.Feed) error {
		coords := StopCoordinates(f)
		if len(coords) == 0 {
			return nil
		}
		shape.set(f.Metadata, shape.corners(coords))
		return nil
	})
}
