package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Holds all external facing types and constants.

type LocationType int

const (
	LocationTypeStop LocationType = iota
	LocationTypeStation
	LocationTypeEntranceExit
	LocationTypeGenericNode
	LocationTypeBoardingArea
)

type RouteType int

const (
	RouteTypeUnknown    RouteType = -1
	RouteTypeTram       RouteType = 0
	RouteTypeSubway     RouteType = 1
	RouteTypeRail       RouteType = 2
	RouteTypeBus        RouteType = 3
	RouteTypeFerry      RouteType = 4
	RouteTypeCable      RouteType = 5
	RouteTypeAerial     RouteType = 6
	RouteTypeFunicular  RouteType = 7
	RouteTypeTrolleybus RouteType = 11
	RouteTypeMonorail   RouteType = 12
)

// Basic folds the extended (hierarchical) route types onto the basic
// GTFS modes. Returns RouteTypeUnknown if there is no sensible
// mapping.
func (t RouteType) Basic() RouteType {
	switch {
	case t >= 0 && t <= 7, t == 11, t == 12:
		return t
	case t >= 100 && t < 200:
		return RouteTypeRail
	case t >= 200 && t < 300:
		return RouteTypeBus
	case t >= 400 && t <= 404:
		return RouteTypeSubway
	case t == 405:
		return RouteTypeMonorail
	case t >= 700 && t < 800:
		return RouteTypeBus
	case t == 800:
		return RouteTypeTrolleybus
	case t >= 900 && t < 1000:
		return RouteTypeTram
	case t >= 1000 && t < 1100, t == 1200:
		return RouteTypeFerry
	case t >= 1300 && t < 1400:
		return RouteTypeAerial
	case t == 1400:
		return RouteTypeFunicular
	}
	return RouteTypeUnknown
}

type ExceptionType int8

const (
	ExceptionTypeAdded   ExceptionType = 1
	ExceptionTypeRemoved ExceptionType = 2
)

type Agency struct {
	ID       string
	Name     string
	URL      string
	Timezone string
	Lang     string
}

type Calendar struct {
	ServiceID string
	StartDate string
	EndDate   string
	Weekday   int8
}

// Active reports whether the calendar runs on the given weekday.
func (c *Calendar) Active(day time.Weekday) bool {
	return c.Weekday&(1<<day) != 0
}

type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType ExceptionType
}

type Stop struct {
	ID            string
	Code          string
	Name          string
	Lat           float64
	Lon           float64
	HasLocation   bool
	LocationType  LocationType
	ParentStation string
	Timezone      string
}

type Trip struct {
	ID        string
	RouteID   string
	ServiceID string
}

type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Type      RouteType
}

// StopTime keeps arrival and departure as given in the feed
// ("H:MM:SS", possibly beyond 24:00:00). Blank means not set.
type StopTime struct {
	TripID       string
	StopID       string
	StopSequence uint32
	Arrival      string
	Departure    string
}

type FeedInfo struct {
	PublisherName string
	PublisherURL  string
	Lang          string
	StartDate     string
	EndDate       string
	Version       string
}

// ParseGTFSTime parses a stop_times style "H:MM:SS" into the time
// elapsed since the start of the service day.
func ParseGTFSTime(s string) (time.Duration, error) {
	split := strings.Split(strings.TrimSpace(s), ":")
	if len(split) != 3 {
		return 0, fmt.Errorf("found %d parts in '%s'", len(split), s)
	}

	hms := [3]int{}
	for i, str := range split {
		j, err := strconv.Atoi(str)
		if err != nil {
			return 0, fmt.Errorf("non-integer in '%s' pos %d", s, i)
		}
		hms[i] = j
	}

	if hms[0] < 0 || hms[0] > 99 {
		return 0, fmt.Errorf("invalid hour in '%s'", s)
	}
	if hms[1] < 0 || hms[1] > 59 {
		return 0, fmt.Errorf("invalid minute in '%s'", s)
	}
	if hms[2] < 0 || hms[2] > 59 {
		return 0, fmt.Errorf("invalid second in '%s'", s)
	}

	return time.Duration(hms[0])*time.Hour +
		time.Duration(hms[1])*time.Minute +
		time.Duration(hms[2])*time.Second, nil
}
