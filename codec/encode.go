package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4"

	"github.com/go-sluice/sluice"
	"github.com/go-sluice/sluice/errors"
)

// Encode serializes a FragmentGraph to w. Fragments and edges are written
// exactly once each, in ascending identifier order, so encoding the same
// graph twice produces identical bytes. Encode fails with a
// SerializationError if the graph references an identifier it never
// defines; no partial output is usable in that case.
func Encode(w io.Writer, graph sluice.FragmentGraph) error {
	if err := checkEncodable(graph); err != nil {
		return err
	}
	zw := lz4.NewWriter(w)
	digest := xxhash.New()
	writeRecord := func(record interface{}) error {
		line, err := json.Marshal(record)
		if err != nil {
			return err
		}
		line = append(line, '\n')
		digest.Write(line)
		_, err = zw.Write(line)
		return err
	}
	edges := graph.Edges()
	header := planRecord{
		Record:       planRecordTag,
		Version:      formatVersion,
		RunID:        graph.RunID(),
		Fingerprint:  strconv.FormatUint(graph.Fingerprint(), 16),
		RootFragment: uint64(graph.RootFragmentID()),
		NumFragments: graph.NumFragments(),
		NumEdges:     len(edges),
	}
	if err := writeRecord(header); err != nil {
		return err
	}
	for _, f := range graph.Fragments() {
		if err := writeRecord(fragmentToRecord(f)); err != nil {
			return err
		}
	}
	for _, e := range edges {
		record := edgeRecord{
			Record:       edgeRecordTag,
			ID:           uint64(e.ID),
			Operator:     uint64(e.OperatorID),
			Source:       uint64(e.Source),
			Target:       uint64(e.Target),
			Distribution: string(e.Distribution),
		}
		if err := writeRecord(record); err != nil {
			return err
		}
	}
	trailer := checksumRecord{
		Record: checksumRecordTag,
		XXH64:  strconv.FormatUint(digest.Sum64(), 16),
	}
	line, err := json.Marshal(trailer)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := zw.Write(line); err != nil {
		return err
	}
	return zw.Close()
}

func fragmentToRecord(f sluice.Fragment) fragmentRecord {
	record := fragmentRecord{
		Record:         fragmentRecordTag,
		ID:             uint64(f.ID()),
		RootOperator:   uint64(f.RootOperatorID()),
		DownstreamEdge: uint64(f.DownstreamEdgeID()),
		Operators:      make([]operatorRecord, 0, f.NumOperators()),
	}
	for _, edgeID := range f.UpstreamEdgeIDs() {
		record.UpstreamEdges = append(record.UpstreamEdges, uint64(edgeID))
	}
	for _, op := range f.Operators() {
		opRecord := operatorRecord{
			ID:      uint64(op.ID),
			Kind:    string(op.Kind),
			Variant: string(op.Variant),
			Attrs:   op.Attrs,
		}
		if op.Schema != nil {
			for _, col := range op.Schema.Columns() {
				opRecord.Schema = append(opRecord.Schema, columnRecord{Name: col.Name, Type: string(col.Type)})
			}
		}
		for _, child := range op.Children {
			opRecord.Children = append(opRecord.Children, childRecord{
				Operator: uint64(child.OperatorID),
				Edge:     uint64(child.EdgeID),
			})
		}
		record.Operators = append(record.Operators, opRecord)
	}
	return record
}

// checkEncodable verifies that every identifier the graph references is
// defined within it. A dangling reference is a fragment builder defect and
// is fatal.
func checkEncodable(graph sluice.FragmentGraph) error {
	edgeIDs := make(map[sluice.EdgeID]bool)
	fragmentIDs := make(map[sluice.FragmentID]bool)
	for _, e := range graph.Edges() {
		edgeIDs[e.ID] = true
	}
	for _, f := range graph.Fragments() {
		fragmentIDs[f.ID()] = true
	}
	if !fragmentIDs[graph.RootFragmentID()] {
		return errors.SerializationError{Reference: uint64(graph.RootFragmentID()), Reason: "root fragment is never defined"}
	}
	for _, f := range graph.Fragments() {
		operatorIDs := make(map[sluice.OperatorID]bool, f.NumOperators())
		for _, op := range f.Operators() {
			operatorIDs[op.ID] = true
		}
		if !operatorIDs[f.RootOperatorID()] {
			return errors.SerializationError{Reference: uint64(f.RootOperatorID()), Reason: fmt.Sprintf("root operator of fragment %d is never defined", f.ID())}
		}
		for _, op := range f.Operators() {
			for _, child := range op.Children {
				if child.OperatorID > 0 && !operatorIDs[child.OperatorID] {
					return errors.SerializationError{Reference: uint64(child.OperatorID), Reason: fmt.Sprintf("operator %d references an operator which is never defined", op.ID)}
				}
				if child.EdgeID > 0 && !edgeIDs[child.EdgeID] {
					return errors.SerializationError{Reference: uint64(child.EdgeID), Reason: fmt.Sprintf("operator %d references an edge which is never defined", op.ID)}
				}
			}
		}
		for _, edgeID := range f.UpstreamEdgeIDs() {
			if !edgeIDs[edgeID] {
				return errors.SerializationError{Reference: uint64(edgeID), Reason: fmt.Sprintf("fragment %d references an upstream edge which is never defined", f.ID())}
			}
		}
		if edgeID := f.DownstreamEdgeID(); edgeID > 0 && !edgeIDs[edgeID] {
			return errors.SerializationError{Reference: uint64(edgeID), Reason: fmt.Sprintf("fragment %d references a downstream edge which is never defined", f.ID())}
		}
	}
	for _, e := range graph.Edges() {
		if !fragmentIDs[e.Source] {
			return errors.SerializationError{Reference: uint64(e.Source), Reason: fmt.Sprintf("edge %d flows from a fragment which is never defined", e.ID)}
		}
		if !fragmentIDs[e.Target] {
			return errors.SerializationError{Reference: uint64(e.Target), Reason: fmt.Sprintf("edge %d flows into a fragment which is never defined", e.ID)}
		}
	}
	return nil
}
