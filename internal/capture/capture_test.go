package capture

import (
	"testing"
	"time"

	"mediashift/internal/exif"
)

func TestDatetimeFieldPriority(t *testing.T) {
	snap := exif.Snapshot{
		"EXIF:ModifyDate":       "2023:06:01 12:00:00",
		"EXIF:DateTimeOriginal": "2023:05:17 09:30:03",
		"QuickTime:CreateDate":  "2022:04:30 09:33:07",
	}
	res, ok := Datetime(snap, DatetimeOptions{})
	if !ok {
		t.Fatal("expected a resolution")
	}
	// EXIF:ModifyDate comes first in the catalogue.
	want := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	if !res.Time.Equal(want) {
		t.Errorf("got %v, want %v", res.Time, want)
	}
	if res.Aware {
		t.Error("naive source must not come back aware")
	}
}

func TestDatetimeStripsZoneByDefault(t *testing.T) {
	snap := exif.Snapshot{
		"XMP:DateTimeOriginal": "2023:05:17 09:30:03+02:00",
	}
	res, ok := Datetime(snap, DatetimeOptions{})
	if !ok {
		t.Fatal("expected a resolution")
	}
	if res.Aware {
		t.Error("default mode must strip the offset")
	}
	if res.Time.Hour() != 9 {
		t.Errorf("wall clock must survive the strip, got hour %d", res.Time.Hour())
	}
}

func TestDatetimeWithTimezone(t *testing.T) {
	snap := exif.Snapshot{
		"XMP:DateTimeOriginal": "2023:05:17 09:30:03+02:00",
	}
	res, ok := Datetime(snap, DatetimeOptions{WithTimezone: true})
	if !ok || !res.Aware {
		t.Fatalf("ok=%v aware=%v", ok, res.Aware)
	}
	if _, secs := res.Time.Zone(); secs != 2*3600 {
		t.Errorf("offset = %d seconds", secs)
	}
}

func TestDatetimeForceTimezone(t *testing.T) {
	snap := exif.Snapshot{
		"EXIF:DateTimeOriginal":   "2023:05:17 09:30:03",
		"EXIF:OffsetTimeOriginal": "+08:00",
	}
	res, ok := Datetime(snap, DatetimeOptions{ForceTimezone: true})
	if !ok || !res.Aware {
		t.Fatalf("ok=%v aware=%v", ok, res.Aware)
	}
	if res.Time.Hour() != 9 {
		t.Errorf("stamping must keep the wall clock, got hour %d", res.Time.Hour())
	}
	if _, secs := res.Time.Zone(); secs != 8*3600 {
		t.Errorf("offset = %d seconds", secs)
	}
}

func TestDatetimeForceTimezoneUnresolved(t *testing.T) {
	snap := exif.Snapshot{
		"EXIF:DateTimeOriginal": "2023:05:17 09:30:03",
	}
	res, ok := Datetime(snap, DatetimeOptions{ForceTimezone: true})
	if !ok {
		t.Fatal("expected a resolution")
	}
	if res.Aware {
		t.Error("no resolvable timezone, result must stay naive")
	}
}

func TestDatetimeNone(t *testing.T) {
	if _, ok := Datetime(exif.Snapshot{"EXIF:Make": "HUAWEI"}, DatetimeOptions{}); ok {
		t.Error("no timestamp fields, expected ok=false")
	}
}

func TestDatetimeUnparseableValue(t *testing.T) {
	if _, ok := Datetime(exif.Snapshot{"EXIF:DateTimeOriginal": "not a date"}, DatetimeOptions{}); ok {
		t.Error("garbage in the winning field, expected ok=false")
	}
}

func TestDatetimesKeepsOrder(t *testing.T) {
	snaps := []exif.Snapshot{
		{"EXIF:DateTimeOriginal": "2023:05:17 09:30:03"},
		{"EXIF:Make": "HUAWEI"},
		{"QuickTime:CreateDate": "2022:04:30 09:33:07"},
	}
	results, oks := Datetimes(snaps, DatetimeOptions{})
	if len(results) != 3 || len(oks) != 3 {
		t.Fatalf("lengths %d/%d", len(results), len(oks))
	}
	if !oks[0] || oks[1] || !oks[2] {
		t.Errorf("oks = %v", oks)
	}
	if results[2].Time.Year() != 2022 {
		t.Errorf("order not preserved: %v", results[2].Time)
	}
}

func TestConsistentAgreeing(t *testing.T) {
	snap := exif.Snapshot{
		"EXIF:DateTimeOriginal": "2023:05:17 09:30:03",
		"EXIF:CreateDate":       "2023:05:17 09:30:03",
	}
	if !Consistent(snap, false) {
		t.Error("identical values reported inconsistent")
	}
}

func TestConsistentOneSecondTolerance(t *testing.T) {
	snap := exif.Snapshot{
		"EXIF:DateTimeOriginal": "2023:05:17 09:30:03",
		"EXIF:CreateDate":       "2023:05:17 09:30:04",
	}
	if !Consistent(snap, false) {
		t.Error("one second of drift must be tolerated")
	}

	snap["EXIF:CreateDate"] = "2023:05:17 09:30:05"
	if Consistent(snap, false) {
		t.Error("two seconds of drift must fail")
	}
}

func TestConsistentSkipsGranularityMismatch(t *testing.T) {
	snap := exif.Snapshot{
		"EXIF:DateTimeOriginal": "2023:05:17 09:30:03",
		"EXIF:GPSDateStamp":     "2023:05:18",
	}
	if !Consistent(snap, false) {
		t.Error("a date-only field is incomparable, not inconsistent")
	}
}

func TestConsistentTimezoneAware(t *testing.T) {
	// Naive local wall clock plus a UTC GPS clock two hours behind.
	// Comparable only once both are read in the resolved timezone.
	snap := exif.Snapshot{
		"EXIF:DateTimeOriginal": "2023:05:17 09:30:03",
		"Composite:GPSDateTime": "2023:05:17 07:30:03Z",
	}
	if !Consistent(snap, true) {
		t.Error("aware comparison must reconcile UTC against local")
	}
	if Consistent(snap, false) {
		t.Error("naive comparison sees a two hour gap")
	}
}

func TestConsistentUnknownZoneFallsBackToOffsetField(t *testing.T) {
	// Open-ocean coordinates resolve to no zone; the offset field must
	// still reconcile the UTC GPS clock against the local wall clock.
	snap := exif.Snapshot{
		"EXIF:DateTimeOriginal":   "2023:05:17 09:30:03",
		"Composite:GPSDateTime":   "2023:05:17 07:30:03Z",
		"EXIF:OffsetTimeOriginal": "+02:00",
		"EXIF:GPSLatitude":        "0.0",
		"EXIF:GPSLongitude":       "-140.0",
	}
	if !Consistent(snap, true) {
		t.Error("unresolvable GPS zone must not disable timezone normalization")
	}
}

func TestConsistentSingleField(t *testing.T) {
	snap := exif.Snapshot{"EXIF:DateTimeOriginal": "2023:05:17 09:30:03"}
	if !Consistent(snap, true) {
		t.Error("one value is trivially consistent")
	}
}

func TestStripZone(t *testing.T) {
	in := time.Date(2023, 5, 17, 9, 30, 3, 0, time.FixedZone("UTC+02:00", 2*3600))
	out := StripZone(in)
	if out.Location() != time.UTC {
		t.Error("expected the UTC location")
	}
	if out.Hour() != 9 || out.Minute() != 30 {
		t.Errorf("wall clock changed: %v", out)
	}
}
