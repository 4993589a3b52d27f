package lower

import (
	uuid "github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"

	"github.com/go-sluice/sluice"
	"github.com/go-sluice/sluice/errors"
	"github.com/go-sluice/sluice/logging"
)

var log = logging.CreateLogger(logging.InfoLevel)

// LowerPlan runs the lowering pipeline for a single planning run:
// identifier assignment, fragmentation, then invariant validation. Each
// stage completes before the next starts, and nothing is returned on
// failure. Independent planning runs may call LowerPlan concurrently; the
// IDSource is the only shared state.
func LowerPlan(plan *sluice.StreamingPlan, ids sluice.IDSource) (sluice.FragmentGraph, error) {
	if plan == nil {
		return nil, errors.MalformedPlanError{Path: "root", Reason: "no streaming plan supplied"}
	}
	runID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	annotated, err := assignIdentifiers(plan.Root(), ids)
	if err != nil {
		return nil, err
	}
	fp := fingerprint(annotated)
	graph, err := buildFragments(annotated, ids, runID.String(), fp)
	if err != nil {
		return nil, err
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"run":         graph.RunID(),
		"fingerprint": fp,
		"fragments":   graph.NumFragments(),
		"edges":       len(graph.Edges()),
	}).Debug("Lowered streaming plan")
	return graph, nil
}
