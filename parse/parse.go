package parse

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"tidbyt.dev/gtfsmeta/feed"
)

// These are the files we load from static archives. All of them are
// optional.
var staticFiles = []string{
	"agency.txt",
	"stops.txt",
	"routes.txt",
	"trips.txt",
	"stop_times.txt",
	"calendar.txt",
	"calendar_dates.txt",
	"feed_info.txt",
}

// ParseStaticFile reads and parses the GTFS archive at path.
func ParseStaticFile(path string) (*feed.Feed, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseStatic(buf)
}

// ParseStatic loads a zipped GTFS feed into memory. Missing files
// result in nil tables; nothing beyond CSV well-formedness is
// validated.
func ParseStatic(buf []byte) (*feed.Feed, error) {
	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("unzipping: %w", err)
	}

	wanted := map[string]bool{}
	for _, name := range staticFiles {
		wanted[name] = true
	}

	file := map[string][]byte{}
	for _, f := range r.File {
		// There should not be any subdirectories. But, some
		// agencies don't care.
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		fName := path[len(path)-1]

		if !wanted[fName] {
			continue
		}
		if _, seen := file[fName]; seen {
			continue
		}

		data, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		file[fName] = data
	}

	f := &feed.Feed{}

	if data, ok := file["agency.txt"]; ok {
		f.Agency, err = ParseAgency(data)
		if err != nil {
			return nil, errors.Wrap(err, "parsing agency.txt")
		}
	}
	if data, ok := file["stops.txt"]; ok {
		f.Stops, err = ParseStops(data)
		if err != nil {
			return nil, errors.Wrap(err, "parsing stops.txt")
		}
	}
	if data, ok := file["routes.txt"]; ok {
		f.Routes, err = ParseRoutes(data)
		if err != nil {
			return nil, errors.Wrap(err, "parsing routes.txt")
		}
	}
	if data, ok := file["trips.txt"]; ok {
		f.Trips, err = ParseTrips(data)
		if err != nil {
			return nil, errors.Wrap(err, "parsing trips.txt")
		}
	}
	if data, ok := file["stop_times.txt"]; ok {
		f.StopTimes, err = ParseStopTimes(data)
		if err != nil {
			return nil, errors.Wrap(err, "parsing stop_times.txt")
		}
	}
	if data, ok := file["calendar.txt"]; ok {
		f.Calendar, err = ParseCalendar(data)
		if err != nil {
			return nil, errors.Wrap(err, "parsing calendar.txt")
		}
	}
	if data, ok := file["calendar_dates.txt"]; ok {
		f.CalendarDates, err = ParseCalendarDates(data)
		if err != nil {
			return nil, errors.Wrap(err, "parsing calendar_dates.txt")
		}
	}
	if data, ok := file["feed_info.txt"]; ok {
		f.FeedInfo, err = ParseFeedInfo(data)
		if err != nil {
			return nil, errors.Wrap(err, "parsing feed_info.txt")
		}
	}

	return f, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
