package lower

import (
	"testing"

	"github.com/go-sluice/sluice"
	"github.com/go-sluice/sluice/errors"
	"github.com/stretchr/testify/require"
)

func lowerTree(t *testing.T, root *sluice.Operator) sluice.FragmentGraph {
	graph, err := LowerPlan(sluice.CreateStreamingPlan(root), sluice.CreateIDSource())
	require.Nil(t, err)
	require.NotNil(t, graph)
	return graph
}

func operatorKinds(f sluice.Fragment) []sluice.OperatorKind {
	kinds := []sluice.OperatorKind{}
	for _, op := range f.Operators() {
		kinds = append(kinds, op.Kind)
	}
	return kinds
}

// scan -> filter -> exchange(shuffle) -> aggregate -> sink must lower to two
// fragments, {aggregate, sink} and {scan, filter}, joined by one shuffle edge
func TestLinearPlanSplitsAtShuffle(t *testing.T) {
	graph := lowerTree(t, createLinearTree(t))

	require.Equal(t, 2, graph.NumFragments())
	require.Equal(t, 1, len(graph.Edges()))

	rootFragment, err := graph.GetFragment(graph.RootFragmentID())
	require.Nil(t, err)
	require.Equal(t, []sluice.OperatorKind{sluice.SinkOperatorKind, sluice.AggregateOperatorKind}, operatorKinds(rootFragment))

	edge := graph.Edges()[0]
	require.Equal(t, sluice.ShuffleDistribution, edge.Distribution)
	require.Equal(t, rootFragment.ID(), edge.Target)

	upstreamFragment, err := graph.GetFragment(edge.Source)
	require.Nil(t, err)
	require.Equal(t, []sluice.OperatorKind{sluice.FilterOperatorKind, sluice.ScanOperatorKind}, operatorKinds(upstreamFragment))

	// linkage between the two sides of the cut
	require.Equal(t, []sluice.EdgeID{edge.ID}, rootFragment.UpstreamEdgeIDs())
	require.Equal(t, sluice.EdgeID(0), rootFragment.DownstreamEdgeID())
	require.Equal(t, edge.ID, upstreamFragment.DownstreamEdgeID())
	require.Equal(t, 0, len(upstreamFragment.UpstreamEdgeIDs()))

	// the aggregate references the edge, not the exchange's subtree
	aggregate := rootFragment.Operators()[1]
	require.Equal(t, 1, len(aggregate.Children))
	require.Equal(t, edge.ID, aggregate.Children[0].EdgeID)
	require.Equal(t, sluice.OperatorID(0), aggregate.Children[0].OperatorID)

	// the edge remembers the exchange operator it replaced, which no fragment contains
	require.True(t, edge.OperatorID > 0)
	for _, f := range graph.Fragments() {
		_, err := f.GetOperator(edge.OperatorID)
		require.NotNil(t, err)
	}
}

func TestPlanWithoutExchangeIsOneFragment(t *testing.T) {
	eventSchema := createEventSchema(t)
	scan := sluice.Scan("events", eventSchema)
	filter := sluice.Filter("val > 0", scan)
	graph := lowerTree(t, sluice.Sink("out", filter))

	require.Equal(t, 1, graph.NumFragments())
	require.Equal(t, 0, len(graph.Edges()))
	rootFragment, err := graph.GetFragment(graph.RootFragmentID())
	require.Nil(t, err)
	require.Equal(t, 3, rootFragment.NumOperators())
}

// a join with two shuffled inputs produces three fragments (left input,
// right input, join+downstream) and two shuffle edges into the join's fragment
func TestJoinWithTwoShuffledInputs(t *testing.T) {
	eventSchema := createEventSchema(t)
	left := sluice.Exchange(sluice.HashShuffleExchange, sluice.Scan("orders", eventSchema))
	right := sluice.Exchange(sluice.HashShuffleExchange, sluice.Scan("users", eventSchema))
	join := sluice.Join("orders.key = users.key", left, right, eventSchema)
	graph := lowerTree(t, sluice.Sink("enriched_orders", join))

	require.Equal(t, 3, graph.NumFragments())
	require.Equal(t, 2, len(graph.Edges()))

	rootFragment, err := graph.GetFragment(graph.RootFragmentID())
	require.Nil(t, err)
	require.Equal(t, []sluice.OperatorKind{sluice.SinkOperatorKind, sluice.JoinOperatorKind}, operatorKinds(rootFragment))
	require.Equal(t, 2, len(rootFragment.UpstreamEdgeIDs()))

	for _, edge := range graph.Edges() {
		require.Equal(t, sluice.ShuffleDistribution, edge.Distribution)
		require.Equal(t, rootFragment.ID(), edge.Target)
		upstream, err := graph.GetFragment(edge.Source)
		require.Nil(t, err)
		require.Equal(t, []sluice.OperatorKind{sluice.ScanOperatorKind}, operatorKinds(upstream))
	}

	// edges arrive in input order: left then right
	joinOp := rootFragment.Operators()[1]
	require.Equal(t, 2, len(joinOp.Children))
	require.Equal(t, rootFragment.UpstreamEdgeIDs()[0], joinOp.Children[0].EdgeID)
	require.Equal(t, rootFragment.UpstreamEdgeIDs()[1], joinOp.Children[1].EdgeID)
	leftEdge, err := graph.GetEdge(joinOp.Children[0].EdgeID)
	require.Nil(t, err)
	leftFragment, err := graph.GetFragment(leftEdge.Source)
	require.Nil(t, err)
	require.Equal(t, "orders", leftFragment.Operators()[0].Attrs["table"])
}

// a join whose first input stays local shares its fragment with that input
func TestJoinWithLocalFirstInput(t *testing.T) {
	eventSchema := createEventSchema(t)
	local := sluice.Filter("val > 0", sluice.Scan("orders", eventSchema))
	shuffled := sluice.Exchange(sluice.HashShuffleExchange, sluice.Scan("users", eventSchema))
	join := sluice.Join("orders.key = users.key", local, shuffled, eventSchema)
	graph := lowerTree(t, sluice.Sink("out", join))

	require.Equal(t, 2, graph.NumFragments())
	rootFragment, err := graph.GetFragment(graph.RootFragmentID())
	require.Nil(t, err)
	require.Equal(t, []sluice.OperatorKind{
		sluice.SinkOperatorKind,
		sluice.JoinOperatorKind,
		sluice.FilterOperatorKind,
		sluice.ScanOperatorKind,
	}, operatorKinds(rootFragment))
}

func TestDistributionKindsFollowExchangeVariants(t *testing.T) {
	eventSchema := createEventSchema(t)
	broadcast := sluice.Exchange(sluice.ReplicateExchange, sluice.Scan("dims", eventSchema))
	single := sluice.Exchange(sluice.PassThroughExchange, sluice.Scan("facts", eventSchema))
	join := sluice.Join("dims.key = facts.key", broadcast, single, eventSchema)
	graph := lowerTree(t, sluice.Sink("out", join))

	edges := graph.Edges()
	require.Equal(t, 2, len(edges))
	require.Equal(t, sluice.BroadcastDistribution, edges[0].Distribution)
	require.Equal(t, sluice.SingleDistribution, edges[1].Distribution)
}

func TestNestedExchangesProduceAChainOfFragments(t *testing.T) {
	eventSchema := createEventSchema(t)
	scan := sluice.Scan("events", eventSchema)
	preAgg := sluice.Aggregate("key", sluice.Exchange(sluice.HashShuffleExchange, scan), eventSchema)
	finalAgg := sluice.Aggregate("key", sluice.Exchange(sluice.PassThroughExchange, preAgg), eventSchema)
	graph := lowerTree(t, sluice.Sink("out", finalAgg))

	require.Equal(t, 3, graph.NumFragments())
	require.Equal(t, 2, len(graph.Edges()))
	require.Nil(t, graph.Validate())

	// walk downstream from the leaf fragment back to the root
	leaf, err := graph.GetFragment(graph.Edges()[1].Source)
	require.Nil(t, err)
	require.Equal(t, []sluice.OperatorKind{sluice.ScanOperatorKind}, operatorKinds(leaf))
	mid, err := graph.GetEdge(leaf.DownstreamEdgeID())
	require.Nil(t, err)
	midFragment, err := graph.GetFragment(mid.Target)
	require.Nil(t, err)
	require.Equal(t, []sluice.OperatorKind{sluice.AggregateOperatorKind}, operatorKinds(midFragment))
	top, err := graph.GetEdge(midFragment.DownstreamEdgeID())
	require.Nil(t, err)
	require.Equal(t, graph.RootFragmentID(), top.Target)
}

func TestEveryFragmentHasExactlyOneRoot(t *testing.T) {
	eventSchema := createEventSchema(t)
	left := sluice.Exchange(sluice.HashShuffleExchange, sluice.Filter("a", sluice.Scan("l", eventSchema)))
	right := sluice.Exchange(sluice.ReplicateExchange, sluice.Scan("r", eventSchema))
	join := sluice.Join("l.key = r.key", left, right, eventSchema)
	graph := lowerTree(t, sluice.Sink("out", sluice.Aggregate("key", sluice.Exchange(sluice.HashShuffleExchange, join), eventSchema)))

	require.Nil(t, graph.Validate())
	for _, f := range graph.Fragments() {
		rootOp, err := f.GetOperator(f.RootOperatorID())
		require.Nil(t, err)
		require.Equal(t, rootOp.ID, f.Operators()[0].ID)
	}
}

func TestIdentifiersAreUniqueAcrossTheGraph(t *testing.T) {
	graph := lowerTree(t, createLinearTree(t))
	seen := map[uint64]bool{}
	claim := func(id uint64) {
		require.False(t, seen[id], "identifier %d appears more than once", id)
		seen[id] = true
	}
	for _, f := range graph.Fragments() {
		claim(uint64(f.ID()))
		for _, op := range f.Operators() {
			claim(uint64(op.ID))
		}
	}
	for _, e := range graph.Edges() {
		claim(uint64(e.ID))
	}
}

func TestLoweringIsAllOrNothing(t *testing.T) {
	eventSchema := createEventSchema(t)
	scan := sluice.Scan("events", eventSchema)
	filter := sluice.Filter("val > 0", scan)
	filter.Children[0] = nil
	exchange := sluice.Exchange(sluice.HashShuffleExchange, filter)
	root := sluice.Sink("out", sluice.Aggregate("key", exchange, eventSchema))

	graph, err := LowerPlan(sluice.CreateStreamingPlan(root), sluice.CreateIDSource())
	require.IsType(t, errors.MalformedPlanError{}, err)
	require.Nil(t, graph)
}

func TestLowerPlanRejectsNilPlan(t *testing.T) {
	graph, err := LowerPlan(nil, sluice.CreateIDSource())
	require.IsType(t, errors.MalformedPlanError{}, err)
	require.Nil(t, graph)

	graph, err = LowerPlan(sluice.CreateStreamingPlan(nil), sluice.CreateIDSource())
	require.IsType(t, errors.MalformedPlanError{}, err)
	require.Nil(t, graph)
}
