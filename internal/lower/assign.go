package lower

import (
	"fmt"

	"github.com/go-sluice/sluice"
	"github.com/go-sluice/sluice/errors"
)

// opNode is one operator of the identifier-annotated tree produced by
// assignment. It is rebuilt from the input tree rather than sharing
// nodes with it, so the optimizer may keep reusing the original.
type opNode struct {
	id       sluice.OperatorID
	edgeID   sluice.EdgeID // set only for exchange operators
	kind     sluice.OperatorKind
	variant  sluice.ExchangeVariant
	schema   sluice.Schema
	attrs    map[string]string
	children []*opNode
}

// assignIdentifiers walks an operator tree in pre-order (children in their
// original list order) and produces an isomorphic tree in which every
// operator, and the eventual edge of every exchange operator, carries a
// fresh identifier from ids. Re-running assignment on a structurally
// identical tree with an equivalent IDSource yields identical identifiers.
// The input tree is not read again afterwards and is never mutated.
func assignIdentifiers(root *sluice.Operator, ids sluice.IDSource) (*opNode, error) {
	if root == nil {
		return nil, errors.MalformedPlanError{Path: "root", Reason: "streaming plan has no root operator"}
	}
	visited := make(map[*sluice.Operator]struct{})
	return assignNode(root, "", "", visited, ids)
}

func assignNode(op *sluice.Operator, parentPath string, parentKind sluice.OperatorKind, visited map[*sluice.Operator]struct{}, ids sluice.IDSource) (*opNode, error) {
	path := string(op.Kind)
	if parentPath != "" {
		path = parentPath + "/" + path
	}
	if _, ok := visited[op]; ok {
		return nil, errors.MalformedPlanError{Path: path, Reason: "operator tree contains a cycle"}
	}
	visited[op] = struct{}{}
	switch op.Kind {
	case sluice.ScanOperatorKind, sluice.FilterOperatorKind, sluice.JoinOperatorKind,
		sluice.AggregateOperatorKind, sluice.SinkOperatorKind:
	case sluice.ExchangeOperatorKind:
		if parentKind == "" {
			return nil, errors.MalformedPlanError{Path: path, Reason: "exchange operator cannot be the plan root"}
		}
		if parentKind == sluice.ExchangeOperatorKind {
			return nil, errors.MalformedPlanError{Path: path, Reason: "exchange operator cannot feed another exchange directly"}
		}
		if len(op.Children) != 1 {
			return nil, errors.MalformedPlanError{Path: path, Reason: fmt.Sprintf("exchange operator requires exactly one input, found %d", len(op.Children))}
		}
		if _, err := distributionFor(op.Variant); err != nil {
			return nil, errors.MalformedPlanError{Path: path, Reason: fmt.Sprintf("unknown exchange variant %q", op.Variant)}
		}
	default:
		return nil, errors.MalformedPlanError{Path: path, Reason: fmt.Sprintf("unknown operator kind %q", op.Kind)}
	}
	node := &opNode{
		id:       sluice.OperatorID(ids.Next()),
		kind:     op.Kind,
		variant:  op.Variant,
		attrs:    copyAttrs(op.Attrs),
		children: make([]*opNode, 0, len(op.Children)),
	}
	if op.Kind == sluice.ExchangeOperatorKind {
		node.edgeID = sluice.EdgeID(ids.Next())
	}
	if op.Schema != nil {
		node.schema = op.Schema.Clone()
	}
	for i, child := range op.Children {
		if child == nil {
			return nil, errors.MalformedPlanError{
				OperatorID: uint64(node.id),
				Path:       path,
				Reason:     fmt.Sprintf("nil child reference at input %d of %s operator", i, op.Kind),
			}
		}
		childNode, err := assignNode(child, path, op.Kind, visited, ids)
		if err != nil {
			return nil, err
		}
		node.children = append(node.children, childNode)
	}
	return node, nil
}

func copyAttrs(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return copied
}

// distributionFor derives an edge's Distribution from the variant of the
// exchange operator it replaces. The variant set is closed.
func distributionFor(variant sluice.ExchangeVariant) (sluice.Distribution, error) {
	switch variant {
	case sluice.HashShuffleExchange:
		return sluice.ShuffleDistribution, nil
	case sluice.ReplicateExchange:
		return sluice.BroadcastDistribution, nil
	case sluice.PassThroughExchange:
		return sluice.SingleDistribution, nil
	default:
		return "", fmt.Errorf("unknown exchange variant %q", variant)
	}
}
