package lower

import (
	"fmt"
	"sort"

	"github.com/go-sluice/sluice"
	"github.com/go-sluice/sluice/errors"
	"github.com/hashicorp/go-multierror"
)

// fragmentImpl is an immutable Fragment of a lowered plan
type fragmentImpl struct {
	id             sluice.FragmentID
	rootOperatorID sluice.OperatorID
	operators      []sluice.AnnotatedOperator
	operatorIndex  map[sluice.OperatorID]int
	upstream       []sluice.EdgeID
	downstream     sluice.EdgeID
}

// CreateFragment is a factory for Fragments. operators must be in pre-order,
// starting with the fragment's root operator.
func CreateFragment(id sluice.FragmentID, rootOperatorID sluice.OperatorID, operators []sluice.AnnotatedOperator, upstream []sluice.EdgeID, downstream sluice.EdgeID) sluice.Fragment {
	index := make(map[sluice.OperatorID]int, len(operators))
	for i, op := range operators {
		index[op.ID] = i
	}
	return &fragmentImpl{
		id:             id,
		rootOperatorID: rootOperatorID,
		operators:      operators,
		operatorIndex:  index,
		upstream:       upstream,
		downstream:     downstream,
	}
}

// ID returns the identifier of this Fragment
func (f *fragmentImpl) ID() sluice.FragmentID {
	return f.id
}

// RootOperatorID returns the identifier of the single root operator of this Fragment
func (f *fragmentImpl) RootOperatorID() sluice.OperatorID {
	return f.rootOperatorID
}

// Operators returns the operators of this Fragment in pre-order
func (f *fragmentImpl) Operators() []sluice.AnnotatedOperator {
	operators := make([]sluice.AnnotatedOperator, len(f.operators))
	copy(operators, f.operators)
	return operators
}

// NumOperators returns the number of operators in this Fragment
func (f *fragmentImpl) NumOperators() int {
	return len(f.operators)
}

// GetOperator returns the operator of this Fragment with the given identifier
func (f *fragmentImpl) GetOperator(id sluice.OperatorID) (sluice.AnnotatedOperator, error) {
	idx, ok := f.operatorIndex[id]
	if !ok {
		return sluice.AnnotatedOperator{}, fmt.Errorf("fragment %d does not contain operator %d", f.id, id)
	}
	return f.operators[idx], nil
}

// UpstreamEdgeIDs returns the edges feeding data into this Fragment, in input order
func (f *fragmentImpl) UpstreamEdgeIDs() []sluice.EdgeID {
	upstream := make([]sluice.EdgeID, len(f.upstream))
	copy(upstream, f.upstream)
	return upstream
}

// DownstreamEdgeID returns the edge this Fragment feeds, or zero for the root Fragment
func (f *fragmentImpl) DownstreamEdgeID() sluice.EdgeID {
	return f.downstream
}

// fragmentGraphImpl is an immutable FragmentGraph
type fragmentGraphImpl struct {
	runID          string
	fp             uint64
	rootFragmentID sluice.FragmentID
	fragments      []sluice.Fragment
	edges          []sluice.Edge
	fragmentIndex  map[sluice.FragmentID]sluice.Fragment
	edgeIndex      map[sluice.EdgeID]sluice.Edge
}

// CreateFragmentGraph is a factory for FragmentGraphs. It fails with a
// SerializationError if any fragment, operator or edge references an
// identifier which is never defined, so that neither the fragment builder
// nor a deserializer can hand out a graph with dangling references.
func CreateFragmentGraph(runID string, fp uint64, rootFragmentID sluice.FragmentID, fragments []sluice.Fragment, edges []sluice.Edge) (sluice.FragmentGraph, error) {
	sorted := make([]sluice.Fragment, len(fragments))
	copy(sorted, fragments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })
	sortedEdges := make([]sluice.Edge, len(edges))
	copy(sortedEdges, edges)
	sort.Slice(sortedEdges, func(i, j int) bool { return sortedEdges[i].ID < sortedEdges[j].ID })

	g := &fragmentGraphImpl{
		runID:          runID,
		fp:             fp,
		rootFragmentID: rootFragmentID,
		fragments:      sorted,
		edges:          sortedEdges,
		fragmentIndex:  make(map[sluice.FragmentID]sluice.Fragment, len(sorted)),
		edgeIndex:      make(map[sluice.EdgeID]sluice.Edge, len(sortedEdges)),
	}
	for _, f := range sorted {
		g.fragmentIndex[f.ID()] = f
	}
	for _, e := range sortedEdges {
		g.edgeIndex[e.ID] = e
	}
	if err := g.checkReferences(); err != nil {
		return nil, err
	}
	return g, nil
}

// checkReferences verifies that every identifier referenced anywhere in the
// graph is defined exactly where it should be.
func (g *fragmentGraphImpl) checkReferences() error {
	if _, ok := g.fragmentIndex[g.rootFragmentID]; !ok {
		return errors.SerializationError{Reference: uint64(g.rootFragmentID), Reason: "root fragment is never defined"}
	}
	for _, f := range g.fragments {
		if _, err := f.GetOperator(f.RootOperatorID()); err != nil {
			return errors.SerializationError{Reference: uint64(f.RootOperatorID()), Reason: fmt.Sprintf("root operator of fragment %d is never defined", f.ID())}
		}
		for _, op := range f.Operators() {
			for _, child := range op.Children {
				if child.OperatorID > 0 {
					if _, err := f.GetOperator(child.OperatorID); err != nil {
						return errors.SerializationError{Reference: uint64(child.OperatorID), Reason: fmt.Sprintf("operator %d references an operator which is never defined", op.ID)}
					}
				}
				if child.EdgeID > 0 {
					if _, ok := g.edgeIndex[child.EdgeID]; !ok {
						return errors.SerializationError{Reference: uint64(child.EdgeID), Reason: fmt.Sprintf("operator %d references an edge which is never defined", op.ID)}
					}
				}
			}
		}
		for _, edgeID := range f.UpstreamEdgeIDs() {
			if _, ok := g.edgeIndex[edgeID]; !ok {
				return errors.SerializationError{Reference: uint64(edgeID), Reason: fmt.Sprintf("fragment %d references an upstream edge which is never defined", f.ID())}
			}
		}
		if edgeID := f.DownstreamEdgeID(); edgeID > 0 {
			if _, ok := g.edgeIndex[edgeID]; !ok {
				return errors.SerializationError{Reference: uint64(edgeID), Reason: fmt.Sprintf("fragment %d references a downstream edge which is never defined", f.ID())}
			}
		}
	}
	for _, e := range g.edges {
		if _, ok := g.fragmentIndex[e.Source]; !ok {
			return errors.SerializationError{Reference: uint64(e.Source), Reason: fmt.Sprintf("edge %d flows from a fragment which is never defined", e.ID)}
		}
		if _, ok := g.fragmentIndex[e.Target]; !ok {
			return errors.SerializationError{Reference: uint64(e.Target), Reason: fmt.Sprintf("edge %d flows into a fragment which is never defined", e.ID)}
		}
	}
	return nil
}

// RunID returns the identifier of the planning run which produced this graph
func (g *fragmentGraphImpl) RunID() string {
	return g.runID
}

// Fingerprint returns the structural hash of the operator tree this graph was lowered from
func (g *fragmentGraphImpl) Fingerprint() uint64 {
	return g.fp
}

// RootFragmentID returns the identifier of the fragment containing the plan root
func (g *fragmentGraphImpl) RootFragmentID() sluice.FragmentID {
	return g.rootFragmentID
}

// NumFragments returns the number of fragments in this graph
func (g *fragmentGraphImpl) NumFragments() int {
	return len(g.fragments)
}

// Fragments returns the fragments of this graph in ascending identifier order
func (g *fragmentGraphImpl) Fragments() []sluice.Fragment {
	fragments := make([]sluice.Fragment, len(g.fragments))
	copy(fragments, g.fragments)
	return fragments
}

// Edges returns the edges of this graph in ascending identifier order
func (g *fragmentGraphImpl) Edges() []sluice.Edge {
	edges := make([]sluice.Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// GetFragment returns the fragment with the given identifier
func (g *fragmentGraphImpl) GetFragment(id sluice.FragmentID) (sluice.Fragment, error) {
	f, ok := g.fragmentIndex[id]
	if !ok {
		return nil, fmt.Errorf("plan graph does not contain fragment %d", id)
	}
	return f, nil
}

// GetEdge returns the edge with the given identifier
func (g *fragmentGraphImpl) GetEdge(id sluice.EdgeID) (sluice.Edge, error) {
	e, ok := g.edgeIndex[id]
	if !ok {
		return sluice.Edge{}, fmt.Errorf("plan graph does not contain edge %d", id)
	}
	return e, nil
}

// Validate re-checks the structural invariants of this graph: identifiers
// are unique across operators, edges and fragments; every fragment has
// exactly one root operator; and the contracted fragment graph is acyclic.
// A defective graph usually violates several invariants at once, so every
// finding is reported.
func (g *fragmentGraphImpl) Validate() error {
	var result *multierror.Error
	seen := make(map[uint64]bool)
	claim := func(id uint64, fragmentID sluice.FragmentID) {
		if seen[id] {
			result = multierror.Append(result, errors.InvalidFragmentationError{
				FragmentID: uint64(fragmentID),
				Reason:     fmt.Sprintf("identifier %d is assigned more than once", id),
			})
		}
		seen[id] = true
	}
	for _, f := range g.fragments {
		claim(uint64(f.ID()), f.ID())
		for _, op := range f.Operators() {
			claim(uint64(op.ID), f.ID())
		}
	}
	for _, e := range g.edges {
		claim(uint64(e.ID), e.Target)
	}
	for _, f := range g.fragments {
		if err := g.validateSingleRoot(f); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := g.validateAcyclic(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// validateSingleRoot checks that exactly one operator in f has no parent
// within f, and that it is the operator f declares as its root.
func (g *fragmentGraphImpl) validateSingleRoot(f sluice.Fragment) error {
	referenced := make(map[sluice.OperatorID]bool)
	for _, op := range f.Operators() {
		for _, child := range op.Children {
			if child.OperatorID > 0 {
				referenced[child.OperatorID] = true
			}
		}
	}
	roots := []uint64{}
	for _, op := range f.Operators() {
		if !referenced[op.ID] {
			roots = append(roots, uint64(op.ID))
		}
	}
	if len(roots) != 1 {
		return errors.InvalidFragmentationError{
			FragmentID:  uint64(f.ID()),
			OperatorIDs: roots,
			Reason:      fmt.Sprintf("fragment has %d root operators, expected exactly 1", len(roots)),
		}
	}
	if roots[0] != uint64(f.RootOperatorID()) {
		return errors.InvalidFragmentationError{
			FragmentID:  uint64(f.ID()),
			OperatorIDs: roots,
			Reason:      fmt.Sprintf("fragment declares root operator %d but operator %d is unparented", f.RootOperatorID(), roots[0]),
		}
	}
	return nil
}

// validateAcyclic checks that contracting fragments to single nodes yields
// a graph with no cycle, via a depth-first walk along edge direction.
func (g *fragmentGraphImpl) validateAcyclic() error {
	downstream := make(map[sluice.FragmentID][]sluice.FragmentID)
	for _, e := range g.edges {
		downstream[e.Source] = append(downstream[e.Source], e.Target)
	}
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[sluice.FragmentID]int)
	var visit func(id sluice.FragmentID) error
	visit = func(id sluice.FragmentID) error {
		switch state[id] {
		case inStack:
			return errors.InvalidFragmentationError{
				FragmentID: uint64(id),
				Reason:     "contracted fragment graph contains a cycle",
			}
		case done:
			return nil
		}
		state[id] = inStack
		for _, next := range downstream[id] {
			if err := visit(next); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	for _, f := range g.fragments {
		if err := visit(f.ID()); err != nil {
			return err
		}
	}
	return nil
}
