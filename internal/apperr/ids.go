package apperr

import (
	"strings"

	"github.com/google/uuid"
)

// CheckID rejects identifiers that are not UUIDs before they reach the
// database.
func CheckID(id, what string) error {
	if strings.TrimSpace(id) == "" {
		return BadRequest("missing " + what + " id")
	}
	if _, err := uuid.Parse(id); err != nil {
		return BadRequest("invalid " + what + " id")
	}
	return nil
}
