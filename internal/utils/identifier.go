package utils

import "github.com/google/uuid"

// IsUUID reports whether s has the canonical 36-character UUID shape.
// Identifiers in that space belong to the persistent store; everything
// else is transient-store native.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
