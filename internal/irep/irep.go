// Package irep implements the universal tree-node value type ("irep", short
// for internal representation) shared by both goto-binary dialects. A node
// is a small labelled tree: a kind tag plus an ordered list of positional
// children, a map of named children, and a parallel map of comment children.
//
// Nodes are plain values. Two nodes with the same shape compare equal and
// hash identically regardless of how they were constructed; nothing here
// depends on pointer identity. The wire codecs (see the cbmcbin and esbmcbin
// packages) are the only place sharing matters, and they resolve it by value
// via their own interning caches, not by aliasing irep.Node values.
package irep

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rafaelsamenezes/goto-transcoder/internal/helpers"
)

// Node is the universal IR element. The zero value is the empty node
// (Default()).
type Node struct {
	ID       string
	Sub      []Node
	NamedSub map[string]Node
	Comments map[string]Node
}

// Default returns the empty node: empty id, empty containers.
func Default() Node {
	return Node{}
}

// From returns a node with the given id and empty containers.
func From(id string) Node {
	return Node{ID: id}
}

// Named returns the child stored under key in NamedSub, and whether it was
// present.
func (n Node) Named(key string) (Node, bool) {
	if n.NamedSub == nil {
		return Node{}, false
	}
	v, ok := n.NamedSub[key]
	return v, ok
}

// SetNamed returns a copy of n with key set to v in NamedSub.
func (n Node) SetNamed(key string, v Node) Node {
	named := make(map[string]Node, len(n.NamedSub)+1)
	for k, existing := range n.NamedSub {
		named[k] = existing
	}
	named[key] = v
	n.NamedSub = named
	return n
}

// HasNamed reports whether key is present in NamedSub.
func (n Node) HasNamed(key string) bool {
	_, ok := n.Named(key)
	return ok
}

// Equal reports whether two nodes are structurally equal: same id, same
// ordered Sub sequence (element-wise equal), and the same key/value pairs in
// NamedSub and Comments (order irrelevant).
func (n Node) Equal(other Node) bool {
	if n.ID != other.ID {
		return false
	}
	if len(n.Sub) != len(other.Sub) {
		return false
	}
	for i := range n.Sub {
		if !n.Sub[i].Equal(other.Sub[i]) {
			return false
		}
	}
	if !equalMaps(n.NamedSub, other.NamedSub) {
		return false
	}
	if !equalMaps(n.Comments, other.Comments) {
		return false
	}
	return true
}

func equalMaps(a, b map[string]Node) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}

// Hash computes a structural hash that agrees with Equal: two equal nodes
// always hash the same. Map keys are sorted before hashing so insertion
// order never affects the result.
func (n Node) Hash() uint32 {
	seed := helpers.HashCombineString(0, n.ID)
	for _, sub := range n.Sub {
		seed = helpers.HashCombine(seed, sub.Hash())
	}
	seed = helpers.HashCombine(seed, hashNamedMap(n.NamedSub))
	seed = helpers.HashCombine(seed, hashNamedMap(n.Comments))
	return seed
}

func hashNamedMap(m map[string]Node) uint32 {
	if len(m) == 0 {
		return 0
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	seed := uint32(0)
	for _, k := range keys {
		seed = helpers.HashCombineString(seed, k)
		seed = helpers.HashCombine(seed, m[k].Hash())
	}
	return seed
}

// String renders a JSON-like, stable representation suitable for logs and
// for comparing expected output in tests. Map keys are sorted so the
// rendering never depends on map iteration order.
func (n Node) String() string {
	var b strings.Builder
	n.writeTo(&b)
	return b.String()
}

func (n Node) writeTo(b *strings.Builder) {
	fmt.Fprintf(b, "{id:%q", n.ID)
	if len(n.Sub) > 0 {
		b.WriteString(",sub:[")
		for i, s := range n.Sub {
			if i > 0 {
				b.WriteByte(',')
			}
			s.writeTo(b)
		}
		b.WriteByte(']')
	}
	writeNamedMap(b, "named_sub", n.NamedSub)
	writeNamedMap(b, "comments", n.Comments)
	b.WriteByte('}')
}

func writeNamedMap(b *strings.Builder, label string, m map[string]Node) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(b, ",%s:{", label)
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(b, "%q:", k)
		m[k].writeTo(b)
	}
	b.WriteByte('}')
}
