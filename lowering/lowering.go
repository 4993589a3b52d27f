// Package lowering turns streaming plans into fragment graphs: it assigns
// globally unique identifiers to every operator and exchange edge, then
// partitions the tree into single-rooted fragments connected by typed
// edges, ready for serialization and distributed deployment.
package lowering

import (
	"golang.org/x/sync/errgroup"

	"github.com/go-sluice/sluice"
	"github.com/go-sluice/sluice/internal/lower"
)

// Lower lowers a StreamingPlan into a FragmentGraph, drawing identifiers
// from ids. Lowering is all-or-nothing: on error no graph is returned.
// Identifiers are unique within the graphs lowered from one IDSource, so
// callers wanting one identifier namespace across runs share the source.
func Lower(plan *sluice.StreamingPlan, ids sluice.IDSource) (sluice.FragmentGraph, error) {
	return lower.LowerPlan(plan, ids)
}

// LowerAll lowers independent StreamingPlans in parallel, one planning run
// per plan. The runs share no state other than ids. If any run fails, the
// first error is returned and all results are discarded.
func LowerAll(plans []*sluice.StreamingPlan, ids sluice.IDSource) ([]sluice.FragmentGraph, error) {
	graphs := make([]sluice.FragmentGraph, len(plans))
	var eg errgroup.Group
	for i, plan := range plans {
		i, plan := i, plan
		eg.Go(func() error {
			graph, err := lower.LowerPlan(plan, ids)
			if err != nil {
				return err
			}
			graphs[i] = graph
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return graphs, nil
}
