package sluice

// OperatorKind describes the kind of an Operator, used to control fragmentation behaviour
type OperatorKind string

const (
	// ScanOperatorKind indicates that this operator sources rows from a stream or table
	ScanOperatorKind OperatorKind = "scan"
	// FilterOperatorKind indicates that this operator discards rows which fail a predicate
	FilterOperatorKind OperatorKind = "filter"
	// JoinOperatorKind indicates that this operator combines rows from two inputs
	JoinOperatorKind OperatorKind = "join"
	// AggregateOperatorKind indicates that this operator incrementally folds rows into groups
	AggregateOperatorKind OperatorKind = "aggregate"
	// ExchangeOperatorKind indicates that this operator redistributes rows between workers
	ExchangeOperatorKind OperatorKind = "exchange"
	// SinkOperatorKind indicates that this operator emits result rows to a downstream consumer
	SinkOperatorKind OperatorKind = "sink"
)

// ExchangeVariant describes how an exchange operator redistributes rows
type ExchangeVariant string

const (
	// HashShuffleExchange redistributes rows by hashing a key
	HashShuffleExchange ExchangeVariant = "hash_shuffle"
	// ReplicateExchange copies every row to every downstream worker
	ReplicateExchange ExchangeVariant = "replicate"
	// PassThroughExchange forwards rows to a single downstream worker unchanged
	PassThroughExchange ExchangeVariant = "pass_through"
)

// Distribution describes how data flows across an Edge between two Fragments
type Distribution string

const (
	// ShuffleDistribution partitions rows across downstream workers by key
	ShuffleDistribution Distribution = "shuffle"
	// BroadcastDistribution replicates rows to all downstream workers
	BroadcastDistribution Distribution = "broadcast"
	// SingleDistribution sends all rows to one downstream worker
	SingleDistribution Distribution = "single"
)

// An Operator is one node of relational/streaming computation in a plan
// tree produced by the optimizer. The set of kinds is closed: code which
// dispatches on Kind must handle every kind and reject anything else.
// Operators carry no identifiers; those are assigned during lowering.
type Operator struct {
	Kind     OperatorKind
	Variant  ExchangeVariant   // set only when Kind is ExchangeOperatorKind
	Schema   Schema            // output schema
	Attrs    map[string]string // kind-specific attributes (table, predicate, keys, target)
	Children []*Operator       // ordered inputs
}

// Scan is a factory for scan Operators, sourcing rows from the named table or stream
func Scan(table string, schema Schema) *Operator {
	return &Operator{
		Kind:   ScanOperatorKind,
		Schema: schema,
		Attrs:  map[string]string{"table": table},
	}
}

// Filter is a factory for filter Operators, retaining rows which satisfy predicate
func Filter(predicate string, input *Operator) *Operator {
	op := &Operator{
		Kind:     FilterOperatorKind,
		Attrs:    map[string]string{"predicate": predicate},
		Children: []*Operator{input},
	}
	if input != nil {
		op.Schema = input.Schema
	}
	return op
}

// Join is a factory for join Operators over two inputs
func Join(on string, left *Operator, right *Operator, schema Schema) *Operator {
	return &Operator{
		Kind:     JoinOperatorKind,
		Schema:   schema,
		Attrs:    map[string]string{"on": on},
		Children: []*Operator{left, right},
	}
}

// Aggregate is a factory for aggregate Operators, grouping input rows by key
func Aggregate(groupBy string, input *Operator, schema Schema) *Operator {
	return &Operator{
		Kind:     AggregateOperatorKind,
		Schema:   schema,
		Attrs:    map[string]string{"group_by": groupBy},
		Children: []*Operator{input},
	}
}

// Exchange is a factory for exchange Operators, redistributing input rows between workers
func Exchange(variant ExchangeVariant, input *Operator) *Operator {
	op := &Operator{
		Kind:     ExchangeOperatorKind,
		Variant:  variant,
		Children: []*Operator{input},
	}
	if input != nil {
		op.Schema = input.Schema
	}
	return op
}

// Sink is a factory for sink Operators, emitting result rows to the named target
func Sink(target string, input *Operator) *Operator {
	op := &Operator{
		Kind:     SinkOperatorKind,
		Attrs:    map[string]string{"target": target},
		Children: []*Operator{input},
	}
	if input != nil {
		op.Schema = input.Schema
	}
	return op
}
