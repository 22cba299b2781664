// Package organize executes rename plans and files media into date-bucketed
// directories. Per-file failures are diagnostics, not batch failures.
package organize

import (
	"fmt"
	"io"
	"os"
)

const (
	dirPerms  = 0o755
	filePerms = 0o644

	// BackupSuffix names the sibling copy taken before a destructive
	// operation. Backups are never auto-deleted.
	BackupSuffix = ".backup"
)

// EnsureDir creates dir if absent. Already existing is not an error.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, dirPerms)
}

// CopyFile copies src to dest, truncating dest if it exists.
func CopyFile(src, dest string) error {
	s, err := os.Open(src)
	if err != nil {
		return err
	}
	defer s.Close()

	d, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerms)
	if err != nil {
		return err
	}
	if _, err := io.Copy(d, s); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}

// MoveFile renames src to dest.
func MoveFile(src, dest string) error {
	return os.Rename(src, dest)
}

// Backup writes the `<name>.backup` sibling copy of path and returns the
// backup's path.
func Backup(path string) (string, error) {
	backup := path + BackupSuffix
	if err := CopyFile(path, backup); err != nil {
		return "", fmt.Errorf("creating backup of %s: %w", path, err)
	}
	return backup, nil
}

// MoveWithBackup is the all-or-nothing rename primitive: copy-to-backup,
// move, and on a failed move restore the backup to the original location
// before the error propagates. A failed rename never leaves the source
// missing with the destination absent.
func MoveWithBackup(src, dest string, backup bool) error {
	var backupPath string
	if backup {
		var err error
		if backupPath, err = Backup(src); err != nil {
			return err
		}
	}

	if err := MoveFile(src, dest); err != nil {
		if backupPath != "" {
			if restoreErr := MoveFile(backupPath, src); restoreErr != nil {
				return fmt.Errorf("move failed (%v) and restoring backup failed: %w", err, restoreErr)
			}
		}
		return err
	}

	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
