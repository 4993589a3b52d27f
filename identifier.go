package sluice

import "sync/atomic"

// OperatorID is the globally unique identifier of an operator within one plan graph
type OperatorID uint64

// FragmentID is the globally unique identifier of a fragment within one plan graph
type FragmentID uint64

// EdgeID is the globally unique identifier of an edge within one plan graph
type EdgeID uint64

// An IDSource produces unique, monotonically increasing 64-bit
// identifiers. Identifiers from one IDSource are unique across every
// plan graph lowered with it, so independent planning runs may share a
// single IDSource when a common identifier namespace is required.
// Implementations must be safe for concurrent use. Zero is never
// produced and is reserved to mean "unset".
type IDSource interface {
	Next() uint64
}

// CreateIDSource is a factory for IDSources, counting up from 1
func CreateIDSource() IDSource {
	return &atomicIDSource{}
}

type atomicIDSource struct {
	next uint64
}

// Next returns the next unused identifier from this IDSource
func (s *atomicIDSource) Next() uint64 {
	return atomic.AddUint64(&s.next, 1)
}
