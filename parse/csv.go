package parse

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"
)

// Lazy quotes are required (at least) to survive sloppy use of
// quotes. The BOM reader strips unicode BOMs if present. Ragged rows
// are tolerated.
func newCSVReader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(bom.NewReader(in))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	return r
}

// Reads the header and all rows of a CSV file. An empty file yields
// no columns and no rows.
func readCSV[T any](data []byte) ([]string, []*T, error) {
	header, err := newCSVReader(bytes.NewReader(data)).Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := []*T{}
	if err := gocsv.UnmarshalCSV(newCSVReader(bytes.NewReader(data)), &rows); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling csv: %w", err)
	}

	return header, rows, nil
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		// Some exporters write integers as floats ("1.0").
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	}
	return i, true
}
