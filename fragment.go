package sluice

// A ChildRef references one input of an AnnotatedOperator: either
// another operator within the same fragment, or the edge an exchange
// child was lowered into. Exactly one of the two fields is set.
type ChildRef struct {
	OperatorID OperatorID
	EdgeID     EdgeID
}

// An AnnotatedOperator is an operator which has been assigned a
// globally unique identifier during lowering. Inputs are referenced
// solely by identifier, never by structural position.
type AnnotatedOperator struct {
	ID       OperatorID
	Kind     OperatorKind
	Variant  ExchangeVariant
	Schema   Schema
	Attrs    map[string]string
	Children []ChildRef
}

// An Edge is a data-flow link between two fragments, produced by
// lowering an exchange operator. Source is the upstream (producing)
// fragment and Target the downstream (consuming) one.
type Edge struct {
	ID           EdgeID
	OperatorID   OperatorID // the exchange operator this edge replaced
	Source       FragmentID
	Target       FragmentID
	Distribution Distribution
}

// A Fragment is a maximal subtree of the plan executed within one
// worker without cross-process exchange. Fragments contain only
// non-exchange operators; exchanges become the edges between them.
type Fragment interface {
	ID() FragmentID                            // ID returns the identifier of this Fragment
	RootOperatorID() OperatorID                // RootOperatorID returns the identifier of the single root operator of this Fragment
	Operators() []AnnotatedOperator            // Operators returns the operators of this Fragment in pre-order
	NumOperators() int                         // NumOperators returns the number of operators in this Fragment
	GetOperator(id OperatorID) (AnnotatedOperator, error) // GetOperator returns the operator with the given identifier
	UpstreamEdgeIDs() []EdgeID                 // UpstreamEdgeIDs returns the edges feeding data into this Fragment, in input order
	DownstreamEdgeID() EdgeID                  // DownstreamEdgeID returns the edge this Fragment feeds, or zero for the root Fragment
}

// A FragmentGraph is the result of lowering a StreamingPlan: a directed
// acyclic graph of fragments connected by typed edges, every part of
// which carries a globally unique identifier.
type FragmentGraph interface {
	RunID() string                             // RunID returns the identifier of the planning run which produced this graph
	Fingerprint() uint64                       // Fingerprint returns the structural hash of the operator tree this graph was lowered from
	RootFragmentID() FragmentID                // RootFragmentID returns the identifier of the fragment containing the plan root
	NumFragments() int                         // NumFragments returns the number of fragments in this graph
	Fragments() []Fragment                     // Fragments returns the fragments of this graph in ascending identifier order
	Edges() []Edge                             // Edges returns the edges of this graph in ascending identifier order
	GetFragment(id FragmentID) (Fragment, error) // GetFragment returns the fragment with the given identifier
	GetEdge(id EdgeID) (Edge, error)           // GetEdge returns the edge with the given identifier
	Validate() error                           // Validate re-checks the structural invariants of this graph
}
