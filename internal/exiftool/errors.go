package exiftool

import "fmt"

// NotFoundError reports a path that does not exist. It is raised before
// the backend is invoked, whose own diagnostic is less specific.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// CountMismatchError reports a backend result count that disagrees with
// the input count. This should never happen for existing files; when it
// does, the batch aborts rather than misaligning results.
type CountMismatchError struct {
	Want int
	Got  int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("exiftool returned %d records for %d files", e.Got, e.Want)
}

// NoMetadataError reports that the backend returned no record for a
// single-file query.
type NoMetadataError struct {
	Path string
}

func (e *NoMetadataError) Error() string {
	return fmt.Sprintf("no metadata found for %s", e.Path)
}

// AmbiguousMetadataError reports multiple records for a single-file query.
type AmbiguousMetadataError struct {
	Path  string
	Count int
}

func (e *AmbiguousMetadataError) Error() string {
	return fmt.Sprintf("found %d sources of metadata for %s", e.Count, e.Path)
}
