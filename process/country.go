package process

import (
	"errors"
	"fmt"

	"github.com/sams96/rgeo"
)

// CountryResolver maps a coordinate to an ISO 3166-1 alpha-2 country
// code. Points outside any country (at sea) give "".
type CountryResolver interface {
	CountryCode(lat, lon float64) (string, error)
}

// RGeoResolver reverse geocodes offline using Natural Earth country
// polygons.
type RGeoResolver struct {
	r *rgeo.Rgeo
}

// NewRGeoResolver loads the 1:10m country dataset. This takes a
// moment, so build one resolver and share it.
func NewRGeoResolver() (*RGeoResolver, error) {
	r, err := rgeo.New(rgeo.Countries10)
	if err != nil {
		return nil, fmt.Errorf("loading country polygons: %w", err)
	}
	return &RGeoResolver{r: r}, nil
}

func (g *RGeoResolver) CountryCode(lat, lon float64) (string, error) {
	loc, err := g.r.ReverseGeocode([]float64{lon, lat})
	if errors.Is(err, rgeo.ErrLocationNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reverse geocoding %f,%f: %w", lat, lon, err)
	}
	return loc.CountryCode2, nil
}
