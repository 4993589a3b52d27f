package lower

import (
	"sort"
	"strconv"

	xxhash "github.com/cespare/xxhash/v2"
)

// fingerprint hashes the structure of an annotated tree: kinds, variants,
// attributes, schemas and child ordering, but not identifiers. Two trees
// produced independently from the same query hash identically, which lets
// callers cache or diff plans across runs.
func fingerprint(root *opNode) uint64 {
	digest := xxhash.New()
	writeNodeFingerprint(digest, root)
	return digest.Sum64()
}

func writeNodeFingerprint(digest *xxhash.Digest, n *opNode) {
	digest.WriteString(string(n.kind))
	digest.WriteString("|")
	digest.WriteString(string(n.variant))
	digest.WriteString("|")
	keys := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		digest.WriteString(k)
		digest.WriteString("=")
		digest.WriteString(n.attrs[k])
		digest.WriteString(";")
	}
	digest.WriteString("|")
	if n.schema != nil {
		for _, col := range n.schema.Columns() {
			digest.WriteString(col.Name)
			digest.WriteString(":")
			digest.WriteString(string(col.Type))
			digest.WriteString(",")
		}
	}
	digest.WriteString("|")
	digest.WriteString(strconv.Itoa(len(n.children)))
	digest.WriteString("(")
	for _, child := range n.children {
		writeNodeFingerprint(digest, child)
	}
	digest.WriteString(")")
}
