// Package codec serializes fragment graphs into a self-describing wire
// representation for distribution to worker processes. The wire form is an
// lz4-compressed stream of newline-delimited JSON records, each declaring
// its own kind tag and referencing fragments, operators and edges solely
// by their assigned identifiers, never by structural position. A trailing
// checksum record covers every preceding byte of the uncompressed stream.
package codec

import "github.com/go-sluice/sluice"

// formatVersion identifies the wire format. Readers reject other versions.
const formatVersion = 1

const (
	planRecordTag     = "plan"
	fragmentRecordTag = "fragment"
	edgeRecordTag     = "edge"
	checksumRecordTag = "checksum"
)

// planRecord is the stream header
type planRecord struct {
	Record       string `json:"record"`
	Version      int    `json:"version"`
	RunID        string `json:"run_id"`
	Fingerprint  string `json:"fingerprint"` // hex; JSON numbers cannot carry a full uint64
	RootFragment uint64 `json:"root_fragment"`
	NumFragments int    `json:"num_fragments"`
	NumEdges     int    `json:"num_edges"`
}

// fragmentRecord describes one fragment and its operators in pre-order
type fragmentRecord struct {
	Record         string           `json:"record"`
	ID             uint64           `json:"id"`
	RootOperator   uint64           `json:"root_operator"`
	UpstreamEdges  []uint64         `json:"upstream_edges,omitempty"`
	DownstreamEdge uint64           `json:"downstream_edge,omitempty"`
	Operators      []operatorRecord `json:"operators"`
}

type operatorRecord struct {
	ID       uint64            `json:"id"`
	Kind     string            `json:"kind"`
	Variant  string            `json:"variant,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Schema   []columnRecord    `json:"schema,omitempty"`
	Children []childRecord     `json:"children,omitempty"`
}

// childRecord references one input of an operator; exactly one field is set
type childRecord struct {
	Operator uint64 `json:"operator,omitempty"`
	Edge     uint64 `json:"edge,omitempty"`
}

type columnRecord struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// edgeRecord describes one data-flow link between two fragments
type edgeRecord struct {
	Record       string `json:"record"`
	ID           uint64 `json:"id"`
	Operator     uint64 `json:"operator"`
	Source       uint64 `json:"source"`
	Target       uint64 `json:"target"`
	Distribution string `json:"distribution"`
}

// checksumRecord is the stream trailer
type checksumRecord struct {
	Record string `json:"record"`
	XXH64  string `json:"xxh64"` // hex digest of all preceding uncompressed bytes
}

var operatorKinds = map[string]bool{
	string(sluice.ScanOperatorKind):      true,
	string(sluice.FilterOperatorKind):    true,
	string(sluice.JoinOperatorKind):      true,
	string(sluice.AggregateOperatorKind): true,
	string(sluice.ExchangeOperatorKind):  true,
	string(sluice.SinkOperatorKind):      true,
}

var exchangeVariants = map[string]bool{
	string(sluice.HashShuffleExchange): true,
	string(sluice.ReplicateExchange):   true,
	string(sluice.PassThroughExchange): true,
}

var distributions = map[string]bool{
	string(sluice.ShuffleDistribution):   true,
	string(sluice.BroadcastDistribution): true,
	string(sluice.SingleDistribution):    true,
}

var columnTypes = map[string]bool{
	string(sluice.Int64ColumnType):     true,
	string(sluice.Float64ColumnType):   true,
	string(sluice.BoolColumnType):      true,
	string(sluice.StringColumnType):    true,
	string(sluice.BytesColumnType):     true,
	string(sluice.TimestampColumnType): true,
}
