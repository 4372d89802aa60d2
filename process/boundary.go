package process

import (
	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
)

// Corner labels. Box corners are named by compass direction.
// Octagon corners are named by the bounding box edge they sit on,
// then the end of that edge they are closest to, so the octagon's
// corners on the south and north edges reuse the box names.
const (
	CornerSouthEast = "south_east"
	CornerSouthWest = "south_west"
	CornerNorthWest = "north_west"
	CornerNorthEast = "north_east"

	CornerEastSouth = "east_south"
	CornerWestSouth = "west_south"
	CornerWestNorth = "west_north"
	CornerEastNorth = "east_north"
)

type Coordinate struct {
	Lat float64
	Lon float64
}

// StopCoordinates returns the location of every stop that has one,
// in file order.
func StopCoordinates(f *feed.Feed) []Coordinate {
	if !f.Stops.Has("stop_lat", "stop_lon") {
		return nil
	}
	coords := []Coordinate{}
	for _, s := range f.Stops.Rows {
		if s.HasLocation {
			coords = append(coords, Coordinate{s.Lat, s.Lon})
		}
	}
	return coords
}

type extent struct {
	minLat, maxLat, minLon, maxLon float64
}

func extentOf(coords []Coordinate) extent {
	e := extent{coords[0].Lat, coords[0].Lat, coords[0].Lon, coords[0].Lon}
	for _, c := range coords[1:] {
		if c.Lat < e.minLat {
			e.minLat = c.Lat
		}
		if c.Lat > e.maxLat {
			e.maxLat = c.Lat
		}
		if c.Lon < e.minLon {
			e.minLon = c.Lon
		}
		if c.Lon > e.maxLon {
			e.maxLon = c.Lon
		}
	}
	return e
}

// BoundingBox returns the 4 corners of the smallest box holding all
// coordinates, clockwise from the south-east corner. Nil if coords is
// empty.
func BoundingBox(coords []Coordinate) []model.Corner {
	if len(coords) == 0 {
		return nil
	}
	e := extentOf(coords)
	return []model.Corner{
		{Label: CornerSouthEast, Latitude: e.minLat, Longitude: e.maxLon},
		{Label: CornerSouthWest, Latitude: e.minLat, Longitude: e.minLon},
		{Label: CornerNorthWest, Latitude: e.maxLat, Longitude: e.minLon},
		{Label: CornerNorthEast, Latitude: e.maxLat, Longitude: e.maxLon},
	}
}

// Finds the coordinate with the lowest (or highest) score. The first
// one found wins ties.
func extreme(coords []Coordinate, score func(Coordinate) float64, highest bool) Coordinate {
	best := coords[0]
	bestScore := score(best)
	for _, c := range coords[1:] {
		s := score(c)
		if (highest && s > bestScore) || (!highest && s < bestScore) {
			best, bestScore = c, s
		}
	}
	return best
}

func latPlusLon(c Coordinate) float64  { return c.Lat + c.Lon }
func latMinusLon(c Coordinate) float64 { return c.Lat - c.Lon }

// BoundingOctagon returns the 8 corners of an octagon holding all
// coordinates. It is the bounding box with each of its corners cut
// off by a diagonal line through the stop furthest into that corner.
//
// Corners are clockwise, starting at the lower corner on the east
// edge (quadrant 4). Nil if coords is empty.
func BoundingOctagon(coords []Coordinate) []model.Corner {
	if len(coords) == 0 {
		return nil
	}
	e := extentOf(coords)

	q4 := latMinusLon(extreme(coords, latMinusLon, false))
	q3 := latPlusLon(extreme(coords, latPlusLon, false))
	q2 := latMinusLon(extreme(coords, latMinusLon, true))
	q1 := latPlusLon(extreme(coords, latPlusLon, true))

	return []model.Corner{
		{Label: CornerEastSouth, Latitude: q4 + e.maxLon, Longitude: e.maxLon},
		{Label: CornerSouthEast, Latitude: e.minLat, Longitude: e.minLat - q4},
		{Label: CornerSouthWest, Latitude: e.minLat, Longitude: q3 - e.minLat},
		{Label: CornerWestSouth, Latitude: q3 - e.minLon, Longitude: e.minLon},
		{Label: CornerWestNorth, Latitude: q2 + e.minLon, Longitude: e.minLon},
		{Label: CornerNorthWest, Latitude: e.maxLat, Longitude: e.maxLat - q2},
		{Label: CornerNorthEast, Latitude: e.maxLat, Longitude: q1 - e.maxLat},
		{Label: CornerEastNorth, Latitude: q1 - e.maxLon, Longitude: e.maxLon},
	}
}

// BoundaryKind selects a bounding shape.
type BoundaryKind int

const (
	BoundaryBox BoundaryKind = iota
	BoundaryOctagon
)

type boundaryShape struct {
	name    string
	corners func([]Coordinate) []model.Corner
	set     func(*model.FeedMetadata, []model.Corner)
}

var boundaryShapes = map[BoundaryKind]boundaryShape{
	BoundaryBox: {
		name:    "bounding_box",
		corners: BoundingBox,
		set:     func(m *model.FeedMetadata, c []model.Corner) { m.BoundingBox = c },
	},
	BoundaryOctagon: {
		name:    "bounding_octagon",
		corners: BoundingOctagon,
		set:     func(m *model.FeedMetadata, c []model.Corner) { m.BoundingOctagon = c },
	},
}

func (k BoundaryKind) String() string {
	return boundaryShapes[k].name
}
