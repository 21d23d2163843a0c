package core

import "github.com/google/uuid"

// NewID generates a new unique identifier.
//
// Used for session ids, patient ids, alert ids and report ids throughout the
// engine. Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }
