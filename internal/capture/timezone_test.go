package capture

import (
	"errors"
	"testing"
	"time"

	"mediashift/internal/exif"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"+02:00", 2 * time.Hour},
		{"-05:30", -(5*time.Hour + 30*time.Minute)},
		{"+00:00", 0},
	}
	for _, tt := range tests {
		got, err := ParseOffset(tt.in)
		if err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if time.Duration(got) != tt.want {
			t.Errorf("ParseOffset(%q) = %v, want %v", tt.in, time.Duration(got), tt.want)
		}
	}

	if _, err := ParseOffset("garbage"); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestOffsetString(t *testing.T) {
	if got := (Offset(2 * time.Hour)).String(); got != "+02:00" {
		t.Errorf("got %q", got)
	}
	if got := (Offset(-(5*time.Hour + 30*time.Minute))).String(); got != "-05:30" {
		t.Errorf("got %q", got)
	}
}

func TestResolveTimezoneExplicitOffsetField(t *testing.T) {
	snap := exif.Snapshot{
		"EXIF:DateTimeOriginal":   "2023:05:17 09:30:03",
		"EXIF:OffsetTimeOriginal": "+08:00",
	}
	off, ok, err := ResolveTimezone(snap, true)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if time.Duration(off) != 8*time.Hour {
		t.Errorf("got %v", time.Duration(off))
	}
}

func TestResolveTimezoneSelfDescribingField(t *testing.T) {
	snap := exif.Snapshot{
		"Composite:GPSDateTimeCreated": "2023:05:17 09:30:03+03:00",
	}
	off, ok, err := ResolveTimezone(snap, true)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if time.Duration(off) != 3*time.Hour {
		t.Errorf("got %v", time.Duration(off))
	}
}

func TestResolveTimezoneDifferencing(t *testing.T) {
	snap := exif.Snapshot{
		"EXIF:DateTimeOriginal": "2023:05:17 09:30:03",
		"Composite:GPSDateTime": "2023:05:17 07:30:03Z",
	}
	off, ok, err := ResolveTimezone(snap, true)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if time.Duration(off) != 2*time.Hour {
		t.Errorf("got %v", time.Duration(off))
	}
}

func TestResolveTimezoneDifferencingKeepsSubHourResidue(t *testing.T) {
	snap := exif.Snapshot{
		"EXIF:DateTimeOriginal": "2023:05:17 09:30:03",
		"Composite:GPSDateTime": "2023:05:17 07:30:02Z",
	}
	off, ok, err := ResolveTimezone(snap, true)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	// Intentionally not rounded to whole hours.
	if time.Duration(off) != 2*time.Hour+time.Second {
		t.Errorf("got %v", time.Duration(off))
	}
}

func TestResolveTimezoneNone(t *testing.T) {
	snap := exif.Snapshot{
		"QuickTime:CreateDate": "2022:04:30 09:33:07",
	}
	off, ok, err := ResolveTimezone(snap, true)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Errorf("expected no result, got %v", time.Duration(off))
	}
}

func TestResolveTimezoneGPSDominates(t *testing.T) {
	// Zonza, Corsica in May: CEST, +02:00. The explicit offset field
	// says +08:00 but GPS wins while it is present.
	snap := exif.Snapshot{
		"EXIF:DateTimeOriginal":   "2023:05:17 09:30:03",
		"EXIF:OffsetTimeOriginal": "+08:00",
		"EXIF:GPSLatitude":        "41.7485",
		"EXIF:GPSLongitude":       "9.1703",
	}
	off, ok, err := ResolveTimezone(snap, true)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if time.Duration(off) != 2*time.Hour {
		t.Errorf("got %v, want +02:00", time.Duration(off))
	}

	// With GPS disabled the explicit offset field takes over.
	off, ok, err = ResolveTimezone(snap, false)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if time.Duration(off) != 8*time.Hour {
		t.Errorf("got %v, want +08:00", time.Duration(off))
	}
}

func TestResolveTimezoneGPSUsesCaptureInstant(t *testing.T) {
	// Same place in January: CET, +01:00, no matter when the tool runs.
	snap := exif.Snapshot{
		"EXIF:DateTimeOriginal": "2023:01:15 09:30:03",
		"EXIF:GPSLatitude":      "41.7485",
		"EXIF:GPSLongitude":     "9.1703",
	}
	off, ok, err := ResolveTimezone(snap, true)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if time.Duration(off) != time.Hour {
		t.Errorf("got %v, want +01:00", time.Duration(off))
	}
}

func TestResolveTimezoneUnknownZone(t *testing.T) {
	// Open Pacific: valid coordinates, no zone. This must surface as
	// UnknownTimezoneError and not fall through to the offset field.
	snap := exif.Snapshot{
		"EXIF:OffsetTimeOriginal": "+08:00",
		"EXIF:GPSLatitude":        "0.0",
		"EXIF:GPSLongitude":       "-140.0",
	}
	_, _, err := ResolveTimezone(snap, true)
	var unknown *UnknownTimezoneError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTimezoneError, got %v", err)
	}

	// Callers wanting the fallback retry without GPS.
	off, ok, err := ResolveTimezone(snap, false)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if time.Duration(off) != 8*time.Hour {
		t.Errorf("got %v", time.Duration(off))
	}
}
