package rename

import (
	"github.com/sams96/rgeo"
	"github.com/twpayne/go-geom"

	"mediashift/internal/exif"
)

// CityGeocoder resolves nearest city names fully offline from an embedded
// dataset. It always answers for valid coordinates; open water comes back
// as an empty name.
type CityGeocoder struct {
	r *rgeo.Rgeo
}

// NewCityGeocoder loads the cities dataset. This is the expensive part, so
// callers keep one geocoder per batch.
func NewCityGeocoder() (*CityGeocoder, error) {
	r, err := rgeo.New(rgeo.Cities10)
	if err != nil {
		return nil, err
	}
	return &CityGeocoder{r: r}, nil
}

// Places returns one name per coordinate pair, in input order.
func (g *CityGeocoder) Places(coords []exif.Coordinates) ([]string, error) {
	names := make([]string, len(coords))
	for i, c := range coords {
		loc, err := g.r.ReverseGeocode(geom.Coord{c.Longitude, c.Latitude})
		if err != nil {
			continue
		}
		names[i] = loc.City
	}
	return names, nil
}
