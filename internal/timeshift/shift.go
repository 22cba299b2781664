// Package timeshift rewrites the timestamp and GPS field set of media
// files through the metadata backend: relative shifts, absolute writes,
// timezone declaration, UTC normalization of video fields, and GPS
// removal. Every operation takes a sequence of paths; lifting a single
// path into a one-element slice is the caller's job.
package timeshift

import (
	"fmt"
	"math"
	"time"

	"mediashift/internal/capture"
	"mediashift/internal/exif"
	"mediashift/internal/organize"
)

// Backend is the slice of the metadata tool the engine needs. Both calls
// fail with the backend's NotFound error, before any process invocation,
// when a path does not exist.
type Backend interface {
	Extract(paths ...string) ([]exif.Snapshot, error)
	Write(directives []string, paths []string, overwrite bool) error
}

// Options apply to every engine operation.
type Options struct {
	// Fields restricts the operation to a sub-catalogue; nil means the
	// full catalogue.
	Fields []exif.TimestampField
	// Backup takes a `.backup` sibling copy of each file before
	// writing.
	Backup bool
}

func (o Options) fields() []exif.TimestampField {
	if o.Fields == nil {
		return exif.Fields
	}
	return o.Fields
}

// Engine drives the backend. The backend always overwrites in place; when
// backups are requested the engine takes its own `.backup` siblings first.
type Engine struct {
	backend Backend
}

func New(backend Backend) *Engine {
	return &Engine{backend: backend}
}

// Shift moves every targeted field present on every file by delta, using
// the backend's relative increment/decrement primitive: some fields resist
// absolute-value writes but accept relative shifts, so values are never
// computed and rewritten wholesale. Date-only fields get the delta rounded
// to the nearest whole day, which keeps a small shift near midnight from
// leaving them a day out of step with the full timestamp fields. All of a
// file's fields are updated in one backend invocation.
func (e *Engine) Shift(paths []string, delta time.Duration, opts Options) error {
	snaps, err := e.backend.Extract(paths...)
	if err != nil {
		return err
	}

	for i, path := range paths {
		directives := shiftDirectives(snaps[i], delta, opts.fields())
		if len(directives) == 0 {
			continue
		}
		if opts.Backup {
			if _, err := organize.Backup(path); err != nil {
				return err
			}
		}
		if err := e.backend.Write(directives, []string{path}, true); err != nil {
			return err
		}
	}

	return nil
}

// SetAbsolute writes the same literal instant into every targeted field,
// each serialized per its own format and UTC rules. This destroys existing
// timezone-offset information on fields that do not encode it separately;
// callers that need the offset preserved re-apply SetTimezone afterwards.
// That ordering is a documented contract of the operation.
func (e *Engine) SetAbsolute(paths []string, t time.Time, opts Options) error {
	var directives []string
	for _, f := range opts.fields() {
		directives = append(directives, fmt.Sprintf("-%s=%s", f.Name, f.Unparse(t)))
	}

	if opts.Backup {
		for _, path := range paths {
			if _, err := organize.Backup(path); err != nil {
				return err
			}
		}
	}

	return e.backend.Write(directives, paths, true)
}

// SetTimezoneOptions extends Options for SetTimezone.
type SetTimezoneOptions struct {
	Options
	// QuickTimeUTC additionally switches the backend into its own UTC
	// handling for the video fields it manages natively.
	QuickTimeUTC bool
}

// SetTimezone declares the given offset on every targeted field without
// shifting any wall-clock value. Offset-capable fields get a string
// substitution replacing their encoded offset with the new one; this
// assumes the existing offset is +00:00 and is undefined otherwise.
// Offset-less fields get the offset appended to their existing local value
// via the backend's template substitution. The dedicated signed-offset
// tags are rewritten outright.
func (e *Engine) SetTimezone(paths []string, off capture.Offset, opts SetTimezoneOptions) error {
	var directives []string
	if opts.QuickTimeUTC {
		directives = append(directives, "-api", "QuickTimeUTC")
	}
	for _, f := range opts.fields() {
		switch {
		case f.IsUTC:
			// The backend derives these; rewriting them would fight it.
		case f.HasTimezone:
			directives = append(directives,
				fmt.Sprintf("-%s<${%s;s/\\+00:00$/%s/}", f.Name, f.Name, off))
		default:
			directives = append(directives,
				fmt.Sprintf("-%s<${%s}%s", f.Name, f.Name, off))
		}
	}
	for _, name := range exif.OffsetFields {
		directives = append(directives, fmt.Sprintf("-%s=%s", name, off))
	}

	if opts.Backup {
		for _, path := range paths {
			if _, err := organize.Backup(path); err != nil {
				return err
			}
		}
	}

	return e.backend.Write(directives, paths, true)
}

// VideoToUTC re-expresses a video file's locally-encoded timestamps in UTC
// by shifting the video-specific fields by the negated resolved offset.
// Photo-style fields are untouched. When the timezone cannot be resolved,
// coerce falls back to the host machine's offset; otherwise the resolution
// failure propagates.
func (e *Engine) VideoToUTC(path string, coerce bool, opts Options) error {
	snap, err := e.extractOne(path)
	if err != nil {
		return err
	}

	off, ok, err := capture.ResolveTimezone(snap, true)
	if err != nil || !ok {
		if !coerce {
			if err != nil {
				return err
			}
			return fmt.Errorf("cannot resolve timezone of %s", path)
		}
		_, secs := time.Now().Zone()
		off = capture.Offset(time.Duration(secs) * time.Second)
	}

	opts.Fields = exif.VideoFields
	return e.Shift([]string{path}, -time.Duration(off), opts)
}

// Target is a human-supplied reference time, e.g. read off a photographed
// clock. HasDate is false when only a clock time was given.
type Target struct {
	Time    time.Time
	HasDate bool
}

// ShiftToTarget computes the delta that brings the reference file's capture
// time onto target and applies it to all paths: the "synchronize against a
// photographed clock" workflow. A date-less target borrows the reference's
// date, and a target with zero seconds borrows the reference's seconds:
// a clock read by a human rarely has seconds precision, and letting it
// default to zero would introduce false drift.
func (e *Engine) ShiftToTarget(paths []string, referencePath string, target Target, opts Options) error {
	snap, err := e.extractOne(referencePath)
	if err != nil {
		return err
	}

	res, ok := capture.Datetime(snap, capture.DatetimeOptions{})
	if !ok {
		return fmt.Errorf("no capture datetime found for reference %s", referencePath)
	}
	ref := res.Time

	t := target.Time
	if !target.HasDate {
		t = time.Date(ref.Year(), ref.Month(), ref.Day(),
			t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	}
	if t.Second() == 0 {
		t = time.Date(t.Year(), t.Month(), t.Day(),
			t.Hour(), t.Minute(), ref.Second(), 0, time.UTC)
	}

	return e.Shift(paths, t.Sub(ref), opts)
}

// RemoveGPS clears every non-embedded GPS field on every file. If any
// present GPS field is embedded-only, the whole operation aborts before
// anything is written: partially cleared GPS is worse than none, since it
// can mislead timezone resolution later.
func (e *Engine) RemoveGPS(paths []string, opts Options) error {
	snaps, err := e.backend.Extract(paths...)
	if err != nil {
		return err
	}

	perFile := make([][]string, len(paths))
	for i, snap := range snaps {
		for _, f := range exif.GPSFields {
			if !snap.Has(f.Name) {
				continue
			}
			if f.Embedded {
				return &ProtectedAttributeError{Path: paths[i], Field: f.Name}
			}
			perFile[i] = append(perFile[i], fmt.Sprintf("-%s=", f.Name))
		}
	}

	for i, path := range paths {
		if len(perFile[i]) == 0 {
			continue
		}
		if opts.Backup {
			if _, err := organize.Backup(path); err != nil {
				return err
			}
		}
		if err := e.backend.Write(perFile[i], []string{path}, true); err != nil {
			return err
		}
	}

	return nil
}

// shiftDirectives builds the backend's relative-shift directives for the
// targeted fields present in snap. Date-only fields get the delta rounded
// to a whole number of days, anchored at the file's capture time: a -20
// minute shift at 00:00:00 moves the full timestamps to the previous day,
// so the date-only fields must follow with a full -1 day rather than stay
// a day ahead.
func shiftDirectives(snap exif.Snapshot, delta time.Duration, fields []exif.TimestampField) []string {
	dayShift, haveDayShift := time.Duration(0), false
	if res, ok := capture.Datetime(snap, capture.DatetimeOptions{}); ok {
		dayShift, haveDayShift = dayDelta(res.Time, delta), true
	}

	var directives []string
	for _, f := range fields {
		if !snap.Has(f.Name) {
			continue
		}
		d := delta
		if !f.HasTime {
			if haveDayShift {
				d = dayShift
			} else {
				d = roundToDay(d)
			}
			if d == 0 {
				continue
			}
		}
		op := "+="
		if d < 0 {
			op = "-="
			d = -d
		}
		directives = append(directives, fmt.Sprintf("-%s%s%s", f.Name, op, shiftValue(d)))
	}
	return directives
}

// dayDelta is the whole-day displacement the shift causes at the given
// capture instant: the calendar-date difference between t and t+delta.
func dayDelta(t time.Time, delta time.Duration) time.Duration {
	shifted := t.Add(delta)
	a := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, time.UTC)
	return b.Sub(a)
}

// shiftValue renders a positive duration in the backend's shift notation,
// "Y:M:D HH:MM:SS".
func shiftValue(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	return fmt.Sprintf("0:0:%d %d:%d:%d", days, h, m, s)
}

// roundToDay rounds a delta to the nearest whole day, ties away from zero.
func roundToDay(d time.Duration) time.Duration {
	days := math.Round(d.Hours() / 24)
	return time.Duration(days) * 24 * time.Hour
}

func (e *Engine) extractOne(path string) (exif.Snapshot, error) {
	snaps, err := e.backend.Extract(path)
	if err != nil {
		return nil, err
	}
	return snaps[0], nil
}
