// Package capture derives the authoritative capture instant and UTC offset
// of a media file from its metadata snapshot. Everything here is pure:
// snapshots go in, values come out, and "no answer" is an ok=false result,
// not an error.
package capture

import (
	"fmt"
	"time"

	"github.com/bradfitz/latlong"

	"mediashift/internal/exif"
)

// Offset is a fixed UTC offset. No DST rules are modeled; a file captured
// in summer Paris simply has offset +02:00.
type Offset time.Duration

// ParseOffset parses a signed "+HH:MM" offset string.
func ParseOffset(s string) (Offset, error) {
	var sign rune
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%c%02d:%02d", &sign, &hh, &mm); err != nil {
		return 0, fmt.Errorf("cannot parse UTC offset %q: %w", s, err)
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	switch sign {
	case '+':
	case '-':
		d = -d
	default:
		return 0, fmt.Errorf("cannot parse UTC offset %q: bad sign %q", s, sign)
	}
	return Offset(d), nil
}

func (o Offset) String() string {
	d := time.Duration(o)
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	return fmt.Sprintf("%s%02d:%02d", sign, int(d.Hours()), int(d.Minutes())%60)
}

// Location returns a fixed-zone location for the offset.
func (o Offset) Location() *time.Location {
	return time.FixedZone("UTC"+o.String(), int(time.Duration(o)/time.Second))
}

// UnknownTimezoneError reports coordinates that map to no known zone. It is
// distinct from having no GPS data at all, which is an ok=false result.
type UnknownTimezoneError struct {
	Coords exif.Coordinates
}

func (e *UnknownTimezoneError) Error() string {
	return fmt.Sprintf("no timezone known for coordinates (%f, %f)", e.Coords.Latitude, e.Coords.Longitude)
}

// ResolveTimezone determines the file's UTC offset. First success wins:
//
//  1. GPS coordinates mapped to an IANA zone (when useGPS is set). GPS
//     dominates any embedded offset metadata, mirroring what consumer
//     photo libraries do. A failed zone lookup is UnknownTimezoneError and
//     does not fall through; callers wanting a fallback retry with useGPS
//     off.
//  2. A dedicated signed-offset field.
//  3. The first present self-describing field (timezone info, not
//     UTC-normalized).
//  4. The wall-clock difference between the first UTC-normalized field and
//     the first offset-less field.
//
// ok is false when no strategy applies, which is typical for action-camera
// video.
func ResolveTimezone(snap exif.Snapshot, useGPS bool) (Offset, bool, error) {
	if useGPS {
		if coords, found := exif.CoordinatesFrom(snap); found {
			return zoneOffset(snap, coords)
		}
	}

	for _, name := range exif.OffsetFields {
		if val, ok := snap[name]; ok {
			off, err := ParseOffset(val)
			if err != nil {
				continue
			}
			return off, true, nil
		}
	}

	for _, f := range exif.Fields {
		if !f.HasTimezone || f.IsUTC {
			continue
		}
		val, ok := snap[f.Name]
		if !ok {
			continue
		}
		t, err := f.Parse(val)
		if err != nil {
			continue
		}
		_, secs := t.Zone()
		return Offset(time.Duration(secs) * time.Second), true, nil
	}

	if off, ok := differenceOffset(snap); ok {
		return off, true, nil
	}

	return 0, false, nil
}

// zoneOffset maps coordinates to an IANA zone and evaluates its offset at
// the file's capture instant, so a May photo gets the summer offset no
// matter when the tool runs. Without a resolvable capture instant the
// current offset is used.
func zoneOffset(snap exif.Snapshot, coords exif.Coordinates) (Offset, bool, error) {
	zone := latlong.LookupZoneName(coords.Latitude, coords.Longitude)
	if zone == "" {
		return 0, false, &UnknownTimezoneError{Coords: coords}
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return 0, false, &UnknownTimezoneError{Coords: coords}
	}

	at := time.Now()
	if naive, ok := naiveDatetime(snap); ok {
		at = time.Date(naive.Year(), naive.Month(), naive.Day(),
			naive.Hour(), naive.Minute(), naive.Second(), 0, loc)
	}

	_, secs := at.In(loc).Zone()
	return Offset(time.Duration(secs) * time.Second), true, nil
}

// differenceOffset derives the offset as naive-minus-UTC between the first
// UTC-normalized full-date field (millisecond fields excluded) and the
// first field carrying no timezone info at all. The result intentionally
// keeps sub-hour precision.
func differenceOffset(snap exif.Snapshot) (Offset, bool) {
	var utcTime time.Time
	haveUTC := false
	for _, f := range exif.Fields {
		if !f.IsUTC || !f.HasDate || f.HasMillis {
			continue
		}
		val, ok := snap[f.Name]
		if !ok {
			continue
		}
		t, err := f.Parse(val)
		if err != nil {
			continue
		}
		utcTime, haveUTC = t.UTC(), true
		break
	}
	if !haveUTC {
		return 0, false
	}

	naive, ok := naiveDatetime(snap)
	if !ok {
		return 0, false
	}

	return Offset(naive.Sub(utcTime)), true
}

// naiveDatetime returns the first present offset-less full timestamp,
// represented as a wall clock in the UTC location.
func naiveDatetime(snap exif.Snapshot) (time.Time, bool) {
	for _, f := range exif.Fields {
		if f.HasTimezone || !f.HasTime {
			continue
		}
		val, ok := snap[f.Name]
		if !ok {
			continue
		}
		t, err := f.Parse(val)
		if err != nil {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}
