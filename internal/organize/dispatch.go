package organize

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"mediashift/internal/logging"
)

// Dispatch files canonically named media (YYYY-MM-... prefix) into
// outDir/YYYY/MM/. Files whose names do not parse, or that no longer
// exist, are skipped with a diagnostic. With backup set, files are copied
// instead of moved, leaving the originals in place.
func Dispatch(paths []string, outDir string, backup bool) (Stats, error) {
	log := logging.Log
	var stats Stats

	for _, p := range paths {
		name := filepath.Base(p)

		year, month, ok := dateBucket(name)
		if !ok {
			log.Warn("could not parse date from filename, skipping", zap.String("path", p))
			stats.Skipped++
			continue
		}
		if !pathExists(p) {
			log.Warn("source missing, skipping", zap.String("path", p))
			stats.Skipped++
			continue
		}

		destDir := filepath.Join(outDir, year, month)
		if err := EnsureDir(destDir); err != nil {
			return stats, err
		}

		dest := filepath.Join(destDir, name)
		var err error
		if backup {
			err = CopyFile(p, dest)
		} else {
			err = MoveFile(p, dest)
		}
		if err != nil {
			log.Warn("dispatch failed, skipping", zap.String("path", p), zap.Error(err))
			stats.Skipped++
			continue
		}

		stats.Done++
	}

	return stats, nil
}

// dateBucket extracts the year and month from a "YYYY-MM-..." filename.
func dateBucket(name string) (year, month string, ok bool) {
	parts := strings.SplitN(name, "-", 3)
	if len(parts) < 3 {
		return "", "", false
	}
	year, month = parts[0], parts[1]
	if len(year) != 4 || !allDigits(year) {
		return "", "", false
	}
	if len(month) != 2 || !allDigits(month) {
		return "", "", false
	}
	return year, month, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
