package exif

import (
	"fmt"
	"strconv"
	"strings"
)

// GPSRole says which coordinate component a GPS field carries.
type GPSRole int

const (
	RoleLatitude GPSRole = iota
	RoleLongitude
	RoleAltitude
)

// GPSField describes one GPS-related metadata slot. Embedded fields live in
// nested telemetry streams (action cameras) that only deep extraction can
// see; the writing backend cannot clear them.
type GPSField struct {
	Name     string
	Role     GPSRole
	Embedded bool
}

// GPSFields is the priority-ordered GPS catalogue.
var GPSFields = []GPSField{
	{Name: "EXIF:GPSLatitude", Role: RoleLatitude},
	{Name: "EXIF:GPSLongitude", Role: RoleLongitude},
	{Name: "EXIF:GPSAltitude", Role: RoleAltitude},
	{Name: "Composite:GPSLatitude", Role: RoleLatitude},
	{Name: "Composite:GPSLongitude", Role: RoleLongitude},
	{Name: "Composite:GPSAltitude", Role: RoleAltitude},
	{Name: "GoPro:GPSLatitude", Role: RoleLatitude, Embedded: true},
	{Name: "GoPro:GPSLongitude", Role: RoleLongitude, Embedded: true},
	{Name: "GoPro:GPSAltitude", Role: RoleAltitude, Embedded: true},
}

// GPSFieldNamed looks a GPS field spec up by name.
func GPSFieldNamed(name string) (GPSField, bool) {
	for _, f := range GPSFields {
		if f.Name == name {
			return f, true
		}
	}
	return GPSField{}, false
}

// Coordinates is a resolved latitude/longitude pair for one file.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// CoordinatesFrom scans the GPS catalogue in priority order and returns the
// first present latitude/longitude pair. ok is false when the snapshot has
// no usable pair, which is common and not an error.
func CoordinatesFrom(snap Snapshot) (Coordinates, bool) {
	var (
		coords   Coordinates
		lat, lng bool
	)
	for _, f := range GPSFields {
		val, ok := snap[f.Name]
		if !ok {
			continue
		}
		switch {
		case f.Role == RoleLatitude && !lat:
			v, err := parseCoordinate(val)
			if err != nil {
				continue
			}
			coords.Latitude, lat = v, true
		case f.Role == RoleLongitude && !lng:
			v, err := parseCoordinate(val)
			if err != nil {
				continue
			}
			coords.Longitude, lng = v, true
		}
		if lat && lng {
			return coords, true
		}
	}
	return Coordinates{}, false
}

// parseCoordinate accepts both decimal degrees ("41.748") and the backend's
// DMS notation (`41 deg 44' 53.2" N`).
func parseCoordinate(val string) (float64, error) {
	val = strings.TrimSpace(val)
	if v, err := strconv.ParseFloat(val, 64); err == nil {
		return v, nil
	}
	return parseDMS(val)
}

// parseDMS parses a string like `2 deg 38' 40.34" E`.
func parseDMS(val string) (float64, error) {
	chunks := strings.Fields(val)
	if len(chunks) != 5 {
		return 0, fmt.Errorf("cannot parse GPS coordinate %q", val)
	}

	deg, err := strconv.ParseFloat(strings.Trim(chunks[0], " '\""), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse GPS coordinate %q: %w", val, err)
	}
	minutes, err := strconv.ParseFloat(strings.Trim(chunks[2], " '\""), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse GPS coordinate %q: %w", val, err)
	}
	seconds, err := strconv.ParseFloat(strings.Trim(chunks[3], " '\""), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse GPS coordinate %q: %w", val, err)
	}

	coord := deg + minutes/60 + seconds/3600

	// N is "+", S is "-"; E is "+", W is "-".
	switch strings.ToUpper(chunks[4]) {
	case "S", "W":
		coord = -coord
	}

	return coord, nil
}
