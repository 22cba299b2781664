package rename

import (
	"strings"

	"mediashift/internal/exif"
)

// DeviceName derives the device segment from a snapshot: capitalized make
// plus model when present, joined by underscores. GoPro footage carries no
// EXIF make/model at all, so the presence of any GoPro-group field yields
// the literal "GoPro". Empty means the segment is omitted.
func DeviceName(snap exif.Snapshot) string {
	var parts []string
	if mk := snap["EXIF:Make"]; mk != "" {
		parts = append(parts, sanitize(capitalize(mk)))
	}
	if model := snap["EXIF:Model"]; model != "" {
		parts = append(parts, sanitize(model))
	}
	if hasGoProField(snap) {
		parts = append(parts, "GoPro")
	}
	return strings.Join(parts, "_")
}

func hasGoProField(snap exif.Snapshot) bool {
	for key := range snap {
		if strings.Contains(strings.ToLower(key), "gopro") {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
