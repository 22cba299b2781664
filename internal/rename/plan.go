// Package rename composes canonical filenames from resolved capture
// timestamp, place and device, and resolves name collisions
// deterministically.
package rename

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gosimple/slug"

	"mediashift/internal/capture"
	"mediashift/internal/exif"
)

func init() {
	// Place and device segments keep their casing ("Zonza", not "zonza").
	slug.Lowercase = false
}

// Extractor is the slice of the metadata backend the builder needs.
type Extractor interface {
	Extract(paths ...string) ([]exif.Snapshot, error)
}

// Geocoder resolves nearest place names for coordinates, batched. An empty
// name means nothing is known for that coordinate.
type Geocoder interface {
	Places(coords []exif.Coordinates) ([]string, error)
}

// Options controls plan building.
type Options struct {
	// Suffixless strips extensions before comparing and writing names,
	// so one plan can be reused for sidecar files sharing a stem.
	Suffixless bool
	// SkipGPS disables GPS-based timezone resolution for the stem.
	SkipGPS bool
}

// Plan maps original paths to their target paths. No two entries resolve
// to the same final name.
type Plan map[string]string

// Builder builds rename plans from metadata snapshots.
type Builder struct {
	backend Extractor
	geo     Geocoder
}

// NewBuilder returns a Builder. geo may be nil, in which case place
// segments are omitted.
func NewBuilder(backend Extractor, geo Geocoder) *Builder {
	return &Builder{backend: backend, geo: geo}
}

// Build computes the rename plan for paths. Files with no resolvable
// capture datetime are left out of the plan; that is expected, not an
// error. Collisions are broken by sorting originals lexicographically by
// filename and suffixing every member after the first with -1, -2, ...,
// skipping suffixed names another file genuinely resolves to, so the
// outcome does not depend on input order and no two entries share a
// final name.
func (b *Builder) Build(paths []string, opts Options) (Plan, error) {
	snaps, err := b.backend.Extract(paths...)
	if err != nil {
		return nil, err
	}

	// One geocoder call for the whole batch; files without coordinates
	// are not sent at all.
	var coords []exif.Coordinates
	coordIdx := make([]int, len(snaps))
	for i, snap := range snaps {
		coordIdx[i] = -1
		if c, ok := exif.CoordinatesFrom(snap); ok {
			coordIdx[i] = len(coords)
			coords = append(coords, c)
		}
	}
	var places []string
	if len(coords) > 0 && b.geo != nil {
		if places, err = b.geo.Places(coords); err != nil {
			return nil, err
		}
	}

	type candidate struct {
		src  string
		stem string
		ext  string
	}

	var candidates []candidate
	for i, snap := range snaps {
		res, ok := capture.Datetime(snap, capture.DatetimeOptions{
			ForceTimezone: true,
			UseGPS:        !opts.SkipGPS,
		})
		if !ok {
			continue
		}

		parts := []string{stampSegment(res)}
		if j := coordIdx[i]; j >= 0 && j < len(places) && places[j] != "" {
			parts = append(parts, sanitize(places[j]))
		}
		if dev := DeviceName(snap); dev != "" {
			parts = append(parts, dev)
		}

		c := candidate{src: paths[i], stem: strings.Join(parts, "-")}
		if !opts.Suffixless {
			c.ext = filepath.Ext(paths[i])
		}
		candidates = append(candidates, c)
	}

	groups := make(map[string][]candidate)
	for _, c := range candidates {
		groups[c.stem+c.ext] = append(groups[c.stem+c.ext], c)
	}

	// Every group's first member keeps the genuine name, so all genuine
	// names are claimed up front; a collision suffix may never shadow one.
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	taken := make(map[string]bool, len(candidates))
	for _, key := range keys {
		taken[key] = true
	}

	plan := make(Plan, len(candidates))
	for _, key := range keys {
		group := groups[key]
		sort.Slice(group, func(i, j int) bool {
			return filepath.Base(group[i].src) < filepath.Base(group[j].src)
		})
		suffix := 0
		for n, c := range group {
			name := c.stem + c.ext
			if n > 0 {
				for {
					suffix++
					name = fmt.Sprintf("%s-%d%s", c.stem, suffix, c.ext)
					if !taken[name] {
						break
					}
				}
			}
			taken[name] = true
			plan[c.src] = filepath.Join(filepath.Dir(c.src), name)
		}
	}

	return plan, nil
}

// stampSegment renders "2023-05-17_09-30-03_p0200"; the offset token is
// omitted for naive timestamps.
func stampSegment(res capture.Resolution) string {
	s := res.Time.Format("2006-01-02_15-04-05")
	if res.Aware {
		_, secs := res.Time.Zone()
		s += offsetToken(secs)
	}
	return s
}

func offsetToken(secs int) string {
	sign := "p"
	if secs < 0 {
		sign = "m"
		secs = -secs
	}
	return fmt.Sprintf("_%s%02d%02d", sign, secs/3600, (secs%3600)/60)
}

func sanitize(s string) string {
	return slug.Make(s)
}
