// Package types holds shared primitives used across the orchestration core:
// run and step identifiers and the structured error type.
package types

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID identifies a mission run, event, or approval. IDs are canonical UUID
// strings; the zero value means "no ID" and serializes as JSON null.
type ID string

// NewID returns a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// ParseID validates s as a UUID and returns it in canonical form.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("id is empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("id %q is not a valid UUID: %w", s, err)
	}
	return ID(parsed.String()), nil
}

func (id ID) String() string { return string(id) }

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool { return id == "" }

// MarshalJSON writes the ID as a string, or null when unset.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON reads a string into the ID. Non-empty values must parse as
// UUIDs; the empty string stays the zero ID.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("id must be a JSON string: %w", err)
	}
	if s == "" {
		*id = ""
		return nil
	}
	parsed, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
