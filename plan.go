package sluice

// A StreamingPlan is the handle for a streaming-query execution plan
// produced by the optimizer. To stay compatible with the optimizer, a
// streaming plan is still a tree: the root represents the result (a sink
// or materialized view) and the leaves represent sources.
//
// A StreamingPlan carries no identifiers and cannot be serialized
// directly, as serialization requires a global identifier assigner.
// Identifier assignment happens during lowering, which supersedes this
// handle with a FragmentGraph.
type StreamingPlan struct {
	root *Operator
}

// CreateStreamingPlan is a factory for StreamingPlans, wrapping the root of an operator tree
func CreateStreamingPlan(root *Operator) *StreamingPlan {
	return &StreamingPlan{root: root}
}

// Root returns the root Operator of this StreamingPlan
func (p *StreamingPlan) Root() *Operator {
	return p.root
}
