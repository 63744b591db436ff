package blob

import (
	"errors"
	"fmt"
	"strings"
)

const maxIDLength = 128

// ErrInvalidID is returned when a blob id cannot be used as a flat filename.
var ErrInvalidID = errors.New("blob: invalid id")

// ValidateID rejects ids that could escape the flat blob directory or are
// not portable filenames. Ids are generated server-side for fetches but
// client-supplied for uploads, so this runs on every operation.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("empty id: %w", ErrInvalidID)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("id longer than %d characters: %w", maxIDLength, ErrInvalidID)
	}
	if strings.ContainsAny(id, "/\\\x00") {
		return fmt.Errorf("id contains path separators: %w", ErrInvalidID)
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("relative path traversal not allowed: %w", ErrInvalidID)
	}
	if strings.HasPrefix(id, ".") {
		return fmt.Errorf("id cannot start with a dot: %w", ErrInvalidID)
	}
	for i, r := range id {
		if !isValidIDChar(r) {
			return fmt.Errorf("invalid character %q at position %d: %w", r, i, ErrInvalidID)
		}
	}
	return nil
}

// isValidIDChar reports whether r is a valid character in a blob id.
func isValidIDChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r == '-' || r == '_' || r == '.'
}

func validateID(id string) error { return ValidateID(id) }
