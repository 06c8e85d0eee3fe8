// Package uid generates and validates the opaque identifiers used for
// request tracing.
package uid

import "github.com/google/uuid"

// New returns a fresh random identifier.
func New() string {
	return uuid.New().String()
}

// IsValid reports whether id parses as an identifier produced by New.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
