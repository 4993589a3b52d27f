package errors

import (
	"fmt"
)

// MalformedPlanError occurs when the input operator tree is structurally defective,
// such as containing a cycle, a nil child reference, or an unknown operator kind.
// It always indicates a bug in the upstream optimizer and is never retried.
type MalformedPlanError struct {
	OperatorID uint64 // zero when the defect is found before identifier assignment
	Path       string // slash-separated operator kinds from the root to the defect
	Reason     string
}

// Error returns a textual representation of this MalformedPlanError
func (e MalformedPlanError) Error() string {
	if e.OperatorID > 0 {
		return fmt.Sprintf("Malformed plan at operator %d (%s): %s", e.OperatorID, e.Path, e.Reason)
	}
	return fmt.Sprintf("Malformed plan at %s: %s", e.Path, e.Reason)
}

// InvalidFragmentationError occurs when fragmentation violates a structural invariant,
// such as producing a fragment with more than one root operator, duplicate identifiers,
// or a cycle in the contracted fragment graph. It always indicates a planner bug.
type InvalidFragmentationError struct {
	FragmentID  uint64
	OperatorIDs []uint64 // the operators involved in the violation, if any
	Reason      string
}

// Error returns a textual representation of this InvalidFragmentationError
func (e InvalidFragmentationError) Error() string {
	if len(e.OperatorIDs) > 0 {
		return fmt.Sprintf("Invalid fragmentation of fragment %d (operators %v): %s", e.FragmentID, e.OperatorIDs, e.Reason)
	}
	return fmt.Sprintf("Invalid fragmentation of fragment %d: %s", e.FragmentID, e.Reason)
}

// SerializationError occurs when a fragment graph cannot be serialized or
// deserialized, such as when an identifier is referenced but never defined.
// It always indicates a defect in the fragment builder and is fatal.
type SerializationError struct {
	Reference uint64 // the identifier which was referenced but never defined, if any
	Reason    string
}

// Error returns a textual representation of this SerializationError
func (e SerializationError) Error() string {
	if e.Reference > 0 {
		return fmt.Sprintf("Cannot serialize plan graph (identifier %d): %s", e.Reference, e.Reason)
	}
	return fmt.Sprintf("Cannot serialize plan graph: %s", e.Reason)
}
