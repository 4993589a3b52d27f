package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4"
	"github.com/tidwall/gjson"

	"github.com/go-sluice/sluice"
	"github.com/go-sluice/sluice/errors"
	"github.com/go-sluice/sluice/internal/lower"
	"github.com/go-sluice/sluice/schema"
)

// decode state collects records until the trailer arrives
type decoder struct {
	header      *planRecord
	fingerprint uint64
	fragments   []sluice.Fragment
	edges       []sluice.Edge
	seenIDs     map[uint64]bool
	checksummed bool
}

// Decode reconstructs a FragmentGraph from a stream produced by Encode.
// The result is isomorphic to the encoded graph: same fragments, same
// operators, same edges and distribution kinds. Any reference to an
// identifier which is never defined, any duplicate definition, and any
// checksum or record-count mismatch fails with a SerializationError, and
// no partial graph is returned.
func Decode(r io.Reader) (sluice.FragmentGraph, error) {
	scanner := bufio.NewScanner(lz4.NewReader(r))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<26)
	digest := xxhash.New()
	d := &decoder{seenIDs: make(map[uint64]bool)}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if d.checksummed {
			return nil, errors.SerializationError{Reason: "stream continues past the checksum record"}
		}
		tag := gjson.GetBytes(line, "record").String()
		if tag != checksumRecordTag {
			digest.Write(line)
			digest.Write([]byte{'\n'})
		}
		var err error
		switch tag {
		case planRecordTag:
			err = d.decodeHeader(line)
		case fragmentRecordTag:
			err = d.decodeFragment(line)
		case edgeRecordTag:
			err = d.decodeEdge(line)
		case checksumRecordTag:
			err = d.decodeChecksum(line, digest.Sum64())
		default:
			err = errors.SerializationError{Reason: fmt.Sprintf("unknown record kind %q", tag)}
		}
		if err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if d.header == nil {
		return nil, errors.SerializationError{Reason: "stream contains no plan header"}
	}
	if !d.checksummed {
		return nil, errors.SerializationError{Reason: "stream is truncated: no checksum record"}
	}
	if len(d.fragments) != d.header.NumFragments {
		return nil, errors.SerializationError{Reason: fmt.Sprintf("plan header declares %d fragments but stream defines %d", d.header.NumFragments, len(d.fragments))}
	}
	if len(d.edges) != d.header.NumEdges {
		return nil, errors.SerializationError{Reason: fmt.Sprintf("plan header declares %d edges but stream defines %d", d.header.NumEdges, len(d.edges))}
	}
	return lower.CreateFragmentGraph(d.header.RunID, d.fingerprint, sluice.FragmentID(d.header.RootFragment), d.fragments, d.edges)
}

func (d *decoder) decodeHeader(line []byte) error {
	if d.header != nil {
		return errors.SerializationError{Reason: "stream contains more than one plan header"}
	}
	version := int(gjson.GetBytes(line, "version").Int())
	if version != formatVersion {
		return errors.SerializationError{Reason: fmt.Sprintf("unsupported wire format version %d", version)}
	}
	fp, err := strconv.ParseUint(gjson.GetBytes(line, "fingerprint").String(), 16, 64)
	if err != nil {
		return errors.SerializationError{Reason: "plan header carries an unreadable fingerprint"}
	}
	d.fingerprint = fp
	d.header = &planRecord{
		RunID:        gjson.GetBytes(line, "run_id").String(),
		RootFragment: gjson.GetBytes(line, "root_fragment").Uint(),
		NumFragments: int(gjson.GetBytes(line, "num_fragments").Int()),
		NumEdges:     int(gjson.GetBytes(line, "num_edges").Int()),
	}
	return nil
}

func (d *decoder) decodeFragment(line []byte) error {
	if d.header == nil {
		return errors.SerializationError{Reason: "fragment record precedes the plan header"}
	}
	id := gjson.GetBytes(line, "id").Uint()
	if err := d.claimID(id, "fragment"); err != nil {
		return err
	}
	operators := []sluice.AnnotatedOperator{}
	var opErr error
	gjson.GetBytes(line, "operators").ForEach(func(_, raw gjson.Result) bool {
		op, err := d.decodeOperator(raw)
		if err != nil {
			opErr = err
			return false
		}
		operators = append(operators, op)
		return true
	})
	if opErr != nil {
		return opErr
	}
	upstream := []sluice.EdgeID{}
	for _, raw := range gjson.GetBytes(line, "upstream_edges").Array() {
		upstream = append(upstream, sluice.EdgeID(raw.Uint()))
	}
	fragment := lower.CreateFragment(
		sluice.FragmentID(id),
		sluice.OperatorID(gjson.GetBytes(line, "root_operator").Uint()),
		operators,
		upstream,
		sluice.EdgeID(gjson.GetBytes(line, "downstream_edge").Uint()),
	)
	d.fragments = append(d.fragments, fragment)
	return nil
}

func (d *decoder) decodeOperator(raw gjson.Result) (sluice.AnnotatedOperator, error) {
	var zero sluice.AnnotatedOperator
	id := raw.Get("id").Uint()
	if err := d.claimID(id, "operator"); err != nil {
		return zero, err
	}
	kind := raw.Get("kind").String()
	if !operatorKinds[kind] {
		return zero, errors.SerializationError{Reference: id, Reason: fmt.Sprintf("unknown operator kind %q", kind)}
	}
	variant := raw.Get("variant").String()
	if variant != "" && !exchangeVariants[variant] {
		return zero, errors.SerializationError{Reference: id, Reason: fmt.Sprintf("unknown exchange variant %q", variant)}
	}
	op := sluice.AnnotatedOperator{
		ID:      sluice.OperatorID(id),
		Kind:    sluice.OperatorKind(kind),
		Variant: sluice.ExchangeVariant(variant),
	}
	if attrs := raw.Get("attrs"); attrs.Exists() {
		op.Attrs = make(map[string]string)
		for k, v := range attrs.Map() {
			op.Attrs[k] = v.String()
		}
	}
	if columns := raw.Get("schema"); columns.Exists() {
		opSchema := schema.CreateSchema()
		var colErr error
		columns.ForEach(func(_, col gjson.Result) bool {
			colType := col.Get("type").String()
			if !columnTypes[colType] {
				colErr = errors.SerializationError{Reference: id, Reason: fmt.Sprintf("unknown column type %q", colType)}
				return false
			}
			if _, err := opSchema.CreateColumn(col.Get("name").String(), sluice.ColumnType(colType)); err != nil {
				colErr = errors.SerializationError{Reference: id, Reason: err.Error()}
				return false
			}
			return true
		})
		if colErr != nil {
			return zero, colErr
		}
		op.Schema = opSchema
	}
	var childErr error
	raw.Get("children").ForEach(func(_, child gjson.Result) bool {
		operatorRef := child.Get("operator").Uint()
		edgeRef := child.Get("edge").Uint()
		if (operatorRef > 0) == (edgeRef > 0) {
			childErr = errors.SerializationError{Reference: id, Reason: "child reference must name exactly one of an operator or an edge"}
			return false
		}
		op.Children = append(op.Children, sluice.ChildRef{
			OperatorID: sluice.OperatorID(operatorRef),
			EdgeID:     sluice.EdgeID(edgeRef),
		})
		return true
	})
	if childErr != nil {
		return zero, childErr
	}
	return op, nil
}

func (d *decoder) decodeEdge(line []byte) error {
	if d.header == nil {
		return errors.SerializationError{Reason: "edge record precedes the plan header"}
	}
	id := gjson.GetBytes(line, "id").Uint()
	if err := d.claimID(id, "edge"); err != nil {
		return err
	}
	distribution := gjson.GetBytes(line, "distribution").String()
	if !distributions[distribution] {
		return errors.SerializationError{Reference: id, Reason: fmt.Sprintf("unknown distribution kind %q", distribution)}
	}
	d.edges = append(d.edges, sluice.Edge{
		ID:           sluice.EdgeID(id),
		OperatorID:   sluice.OperatorID(gjson.GetBytes(line, "operator").Uint()),
		Source:       sluice.FragmentID(gjson.GetBytes(line, "source").Uint()),
		Target:       sluice.FragmentID(gjson.GetBytes(line, "target").Uint()),
		Distribution: sluice.Distribution(distribution),
	})
	return nil
}

func (d *decoder) decodeChecksum(line []byte, computed uint64) error {
	declared, err := strconv.ParseUint(gjson.GetBytes(line, "xxh64").String(), 16, 64)
	if err != nil {
		return errors.SerializationError{Reason: "checksum record carries an unreadable digest"}
	}
	if declared != computed {
		return errors.SerializationError{Reason: fmt.Sprintf("checksum mismatch: stream declares %x, content hashes to %x", declared, computed)}
	}
	d.checksummed = true
	return nil
}

func (d *decoder) claimID(id uint64, what string) error {
	if id == 0 {
		return errors.SerializationError{Reason: fmt.Sprintf("%s record is missing an identifier", what)}
	}
	if d.seenIDs[id] {
		return errors.SerializationError{Reference: id, Reason: fmt.Sprintf("%s identifier is defined more than once", what)}
	}
	d.seenIDs[id] = true
	return nil
}
