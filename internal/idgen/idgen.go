// Package idgen provides identifier generation for newly created nodes.
// Policy is explicitly out of scope for the core (spec.md §1); this package
// is the injectable default the rest of the module builds against.
package idgen

import "github.com/google/uuid"

// Generator produces fresh, never-reused identifiers.
type Generator interface {
	New() string
}

// UUID generates RFC 4122 v4 identifiers via github.com/google/uuid.
type UUID struct{}

// New returns a new UUID generator.
func New() Generator { return UUID{} }

func (UUID) New() string { return uuid.New().String() }
