package lower

import (
	"github.com/go-sluice/sluice"
	"github.com/go-sluice/sluice/errors"
)

// fragmentState accumulates one fragment while the annotated tree is
// being partitioned.
type fragmentState struct {
	id             sluice.FragmentID
	rootOperatorID sluice.OperatorID
	operators      []sluice.AnnotatedOperator
	upstream       []sluice.EdgeID
	downstream     sluice.EdgeID
}

type fragmentBuilder struct {
	ids       sluice.IDSource
	fragments []*fragmentState
	edges     []sluice.Edge
}

// buildFragments partitions an identifier-annotated tree into fragments,
// cutting at every exchange operator: the exchange's input subtree starts
// a new upstream fragment, and the exchange itself collapses into the edge
// connecting the two. Fragments and edges are created in pre-order, so
// their identifiers are deterministic for a fixed tree and IDSource.
func buildFragments(root *opNode, ids sluice.IDSource, runID string, fp uint64) (sluice.FragmentGraph, error) {
	b := &fragmentBuilder{ids: ids}
	rootFragment := b.newFragment(root.id)
	if err := b.buildInto(rootFragment, root); err != nil {
		return nil, err
	}
	fragments := make([]sluice.Fragment, len(b.fragments))
	for i, f := range b.fragments {
		fragments[i] = CreateFragment(f.id, f.rootOperatorID, f.operators, f.upstream, f.downstream)
	}
	return CreateFragmentGraph(runID, fp, rootFragment.id, fragments, b.edges)
}

func (b *fragmentBuilder) newFragment(rootOperatorID sluice.OperatorID) *fragmentState {
	f := &fragmentState{
		id:             sluice.FragmentID(b.ids.Next()),
		rootOperatorID: rootOperatorID,
	}
	b.fragments = append(b.fragments, f)
	return f
}

// buildInto appends n and its same-fragment descendants to frag, spawning
// upstream fragments at exchange boundaries.
func (b *fragmentBuilder) buildInto(frag *fragmentState, n *opNode) error {
	annotated := sluice.AnnotatedOperator{
		ID:      n.id,
		Kind:    n.kind,
		Variant: n.variant,
		Schema:  n.schema,
		Attrs:   n.attrs,
	}
	for _, child := range n.children {
		if child.kind == sluice.ExchangeOperatorKind {
			annotated.Children = append(annotated.Children, sluice.ChildRef{EdgeID: child.edgeID})
		} else {
			annotated.Children = append(annotated.Children, sluice.ChildRef{OperatorID: child.id})
		}
	}
	frag.operators = append(frag.operators, annotated)
	for _, child := range n.children {
		if child.kind != sluice.ExchangeOperatorKind {
			if err := b.buildInto(frag, child); err != nil {
				return err
			}
			continue
		}
		// the assigner guarantees exchanges have exactly one input
		upstream := b.newFragment(child.children[0].id)
		if err := b.buildInto(upstream, child.children[0]); err != nil {
			return err
		}
		distribution, err := distributionFor(child.variant)
		if err != nil {
			return errors.MalformedPlanError{OperatorID: uint64(child.id), Path: string(child.kind), Reason: err.Error()}
		}
		edge := sluice.Edge{
			ID:           child.edgeID,
			OperatorID:   child.id,
			Source:       upstream.id,
			Target:       frag.id,
			Distribution: distribution,
		}
		b.edges = append(b.edges, edge)
		frag.upstream = append(frag.upstream, edge.ID)
		upstream.downstream = edge.ID
	}
	return nil
}
