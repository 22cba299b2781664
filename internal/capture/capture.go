package capture

import (
	"time"

	"mediashift/internal/exif"
)

// DatetimeOptions controls how the resolved capture datetime is expressed.
type DatetimeOptions struct {
	// WithTimezone keeps whatever offset the winning field carries.
	// When unset, the offset is stripped and a naive wall clock is
	// returned regardless of source.
	WithTimezone bool
	// ForceTimezone stamps a naive winning value with the offset from
	// ResolveTimezone. Implies WithTimezone.
	ForceTimezone bool
	// UseGPS is passed through to ResolveTimezone when ForceTimezone
	// triggers a resolution.
	UseGPS bool
}

// Resolution is one file's resolved capture datetime. Aware says whether
// Time carries a meaningful UTC offset.
type Resolution struct {
	Time  time.Time
	Aware bool
}

// Datetime resolves the capture datetime of one snapshot: the parsed value
// of the first present catalogue field. ok is false when no recognized
// field is present, which excludes the file from downstream operations but
// is not an error.
func Datetime(snap exif.Snapshot, opts DatetimeOptions) (Resolution, bool) {
	field, val, ok := snap.First(exif.Fields)
	if !ok {
		return Resolution{}, false
	}
	t, err := field.Parse(val)
	if err != nil {
		return Resolution{}, false
	}

	res := Resolution{Time: t, Aware: field.HasTimezone}

	if opts.ForceTimezone && !res.Aware {
		if off, ok, err := ResolveTimezone(snap, opts.UseGPS); err == nil && ok {
			res.Time = stamp(t, off)
			res.Aware = true
		}
	} else if !opts.WithTimezone && !opts.ForceTimezone {
		res.Time = StripZone(t)
		res.Aware = false
	}

	return res, true
}

// Datetimes is the batch form: one result per snapshot, same order.
// Each file is independent.
func Datetimes(snaps []exif.Snapshot, opts DatetimeOptions) ([]Resolution, []bool) {
	results := make([]Resolution, len(snaps))
	oks := make([]bool, len(snaps))
	for i, snap := range snaps {
		results[i], oks[i] = Datetime(snap, opts)
	}
	return results, oks
}

// Consistent checks cross-field agreement of every parsed timestamp in the
// snapshot against the first one. Fields whose date/time granularity does
// not match the reference are incomparable and skipped. Values are
// normalized to the resolved offset (or stripped when timezoneAware is
// off), truncated below the second, and allowed to disagree by at most one
// second: sources disagree at sub-second granularity even when correct.
func Consistent(snap exif.Snapshot, timezoneAware bool) bool {
	type parsed struct {
		field exif.TimestampField
		t     time.Time
	}

	var values []parsed
	for _, f := range exif.Fields {
		val, ok := snap[f.Name]
		if !ok {
			continue
		}
		t, err := f.Parse(val)
		if err != nil {
			continue
		}
		values = append(values, parsed{field: f, t: t})
	}
	if len(values) < 2 {
		return true
	}

	var off Offset
	haveOff := false
	if timezoneAware {
		o, ok, err := ResolveTimezone(snap, true)
		if err != nil {
			// Coordinates with no known zone must not silence the
			// remaining strategies.
			o, ok, err = ResolveTimezone(snap, false)
		}
		if err == nil && ok {
			off, haveOff = o, true
		}
	}

	normalize := func(p parsed) time.Time {
		t := p.t
		if timezoneAware && haveOff && p.field.HasTimezone {
			t = t.In(off.Location())
		}
		return StripZone(t).Truncate(time.Second)
	}

	ref := values[0]
	refWall := normalize(ref)
	for _, v := range values[1:] {
		if v.field.HasDate != ref.field.HasDate || v.field.HasTime != ref.field.HasTime {
			continue
		}
		diff := normalize(v).Sub(refWall)
		if diff < 0 {
			diff = -diff
		}
		if diff > time.Second {
			return false
		}
	}

	return true
}

// StripZone drops the offset but keeps the wall clock, yielding the naive
// reading of t in the UTC location.
func StripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func stamp(t time.Time, off Offset) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), off.Location())
}
