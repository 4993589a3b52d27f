// Package sluice contains the core types of Sluice, a library which lowers streaming-query
// operator trees into distributed execution graphs. This root package defines the operator
// tree handed over by the optimizer, the identifiers, fragments and edges produced by
// lowering, and is an excellent overview of Sluice's key concepts. The lowering pipeline
// itself lives in the lowering package, and the wire representation in the codec package.
package sluice
