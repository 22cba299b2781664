package timeshift

import "fmt"

// ProtectedAttributeError reports an attempted mutation of an
// embedded-only field, which the writing backend cannot touch. The
// operation that hit it was aborted as a whole.
type ProtectedAttributeError struct {
	Path  string
	Field string
}

func (e *ProtectedAttributeError) Error() string {
	return fmt.Sprintf("%s: %s is embedded and cannot be modified", e.Path, e.Field)
}
