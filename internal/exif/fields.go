// Package exif is the static catalogue of metadata fields the rest of the
// program reasons about: which tags carry a capture timestamp, which carry
// GPS data, and what shape their values have. The catalogue is read-only
// after process start; order encodes priority (first listed, first used).
package exif

import (
	"strings"
	"time"
)

// TimestampField describes one timestamp-bearing metadata slot. The
// structural flags fully determine how its value is parsed and serialized;
// there is no per-field parsing logic anywhere else.
type TimestampField struct {
	Name        string
	HasDate     bool
	HasTime     bool
	HasTimezone bool
	HasMillis   bool
	IsUTC       bool
}

// Is reports field identity, which is by name only. Two specs with the
// same name refer to the same metadata slot regardless of their flags.
func (f TimestampField) Is(other TimestampField) bool {
	return f.Name == other.Name
}

// Layout returns the serialization layout derived from the field's flags,
// e.g. "2006:01:02 15:04:05.000Z07:00" for a millisecond-precision field
// with timezone info.
func (f TimestampField) Layout() string {
	var layout string
	if f.HasDate {
		layout = "2006:01:02"
	}
	if f.HasTime {
		if layout != "" {
			layout += " "
		}
		layout += "15:04:05"
		if f.HasMillis {
			layout += ".000"
		}
	}
	if f.HasTimezone {
		layout += "Z07:00"
	}
	return layout
}

// Parse converts a raw tag value into a time.Time. Values of offset-less
// fields come back in the UTC location but represent a naive wall-clock
// reading. Offset-capable fields whose value happens to lack the offset
// are taken as UTC, which is what the backend itself assumes.
func (f TimestampField) Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	layout := f.Layout()
	// Fractional seconds in the wild carry one to three digits.
	parseLayout := strings.Replace(layout, ".000", ".999", 1)

	t, err := time.Parse(parseLayout, value)
	if err != nil && f.HasTimezone {
		naked := strings.TrimSuffix(parseLayout, "Z07:00")
		if t2, err2 := time.Parse(naked, value); err2 == nil {
			return t2, nil
		}
	}
	return t, err
}

// Unparse serializes a datetime per the field's own rules: a field flagged
// IsUTC is always written in UTC, everything else keeps the zone it is
// handed.
func (f TimestampField) Unparse(t time.Time) string {
	if f.HasTime && f.IsUTC {
		t = t.UTC()
	}
	return t.Format(f.Layout())
}

// PhotoFields and VideoFields are the two priority-ordered sub-catalogues.
// The most camera-reliable fields come first; resolution code takes the
// first present field and never looks further.
var PhotoFields = []TimestampField{
	{Name: "EXIF:ModifyDate", HasDate: true, HasTime: true},
	{Name: "EXIF:DateTimeOriginal", HasDate: true, HasTime: true},
	{Name: "EXIF:CreateDate", HasDate: true, HasTime: true},
	{Name: "EXIF:GPSDateStamp", HasDate: true},
	{Name: "Composite:SubSecCreateDate", HasDate: true, HasTime: true, HasMillis: true},
	{Name: "Composite:SubSecDateTimeOriginal", HasDate: true, HasTime: true, HasMillis: true},
	{Name: "Composite:SubSecModifyDate", HasDate: true, HasTime: true, HasMillis: true},
	{Name: "Composite:GPSDateTime", HasDate: true, HasTime: true, HasTimezone: true, IsUTC: true},
	{Name: "Composite:GPSDateTimeCreated", HasDate: true, HasTime: true, HasTimezone: true},
	{Name: "XMP:DateTimeDigitized", HasDate: true, HasTime: true, HasTimezone: true},
	{Name: "XMP:DateTimeOriginal", HasDate: true, HasTime: true, HasTimezone: true},
	{Name: "XMP:GPSDateTime", HasDate: true, HasTime: true, HasTimezone: true, IsUTC: true},
}

var VideoFields = []TimestampField{
	{Name: "QuickTime:CreateDate", HasDate: true, HasTime: true},
	{Name: "QuickTime:ModifyDate", HasDate: true, HasTime: true},
	{Name: "QuickTime:TrackCreateDate", HasDate: true, HasTime: true},
	{Name: "QuickTime:TrackModifyDate", HasDate: true, HasTime: true},
	{Name: "QuickTime:MediaCreateDate", HasDate: true, HasTime: true},
	{Name: "QuickTime:MediaModifyDate", HasDate: true, HasTime: true},
}

// Fields is the full catalogue, photo fields first.
var Fields = append(append([]TimestampField{}, PhotoFields...), VideoFields...)

// OffsetFields are the dedicated signed-offset tags ("+02:00" style),
// in priority order.
var OffsetFields = []string{
	"EXIF:OffsetTimeOriginal",
	"EXIF:OffsetTime",
	"EXIF:OffsetTimeDigitized",
}

// Snapshot is one file's metadata as returned by the backend: a flat
// mapping from group-qualified tag name to raw string value. Snapshots are
// produced fresh on every query and must be treated as immutable.
type Snapshot map[string]string

func (s Snapshot) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// First returns the first field of the given catalogue present in the
// snapshot, along with its raw value.
func (s Snapshot) First(fields []TimestampField) (TimestampField, string, bool) {
	for _, f := range fields {
		if v, ok := s[f.Name]; ok {
			return f, v, true
		}
	}
	return TimestampField{}, "", false
}
