// Package esbmcbin encodes the dialect-neutral adapted model into a
// dialect-E goto binary: a 'G' 'B' 'F' header, version 1, with every
// integer a big-endian 32-bit word instead of dialect A's varints. The node
// grammar (S/N/C/0 edges, interned references) is identical to dialect A;
// only the integer encoding and the header length differ.
package esbmcbin

import (
	"encoding/binary"
	"sort"

	"github.com/rafaelsamenezes/goto-transcoder/internal/irep"
)

const version = 1

var header = [...]byte{'G', 'B', 'F'}

// Function pairs an adapted goto-program node with the (possibly renamed)
// function name it is keyed under in the output file.
type Function struct {
	Name    string
	Program irep.Node
}

// Encoder mirrors the decoder's interning caches on the write side: the
// first time a node (by value equality) is written its numeric id is
// followed by the full payload, subsequent occurrences emit only the id.
// Like the decoder's caches, these live only for one Encode call.
type Encoder struct {
	buf []byte

	nodeIDs    map[string]uint32
	nextNodeID uint32
	stringIDs  map[string]uint32
	nextStrID  uint32
}

// NewEncoder creates an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{
		nodeIDs:   make(map[string]uint32),
		stringIDs: make(map[string]uint32),
	}
}

// Encode serialises the adapted symbol and function nodes into a dialect-E
// byte stream.
func Encode(symbols []irep.Node, functions []Function) []byte {
	e := NewEncoder()
	return e.encode(symbols, functions)
}

func (e *Encoder) encode(symbols []irep.Node, functions []Function) []byte {
	e.buf = append(e.buf, header[:]...)
	e.writeUint32(version)

	e.writeUint32(uint32(len(symbols)))
	for _, sym := range symbols {
		e.writeNodeRef(sym)
	}

	e.writeUint32(uint32(len(functions)))
	for _, fn := range functions {
		e.writeRawString(fn.Name)
		e.writeNodeRef(fn.Program)
	}

	return e.buf
}

func (e *Encoder) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// writeRawString writes a zero-terminated string, escaping both the
// terminator and the escape byte itself with a leading backslash so the
// decoder's single-byte escape rule can invert it exactly.
func (e *Encoder) writeRawString(s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0 || c == '\\' {
			e.buf = append(e.buf, '\\')
		}
		e.buf = append(e.buf, c)
	}
	e.buf = append(e.buf, 0)
}

func (e *Encoder) writeStringRef(s string) {
	if id, ok := e.stringIDs[s]; ok {
		e.writeUint32(id)
		return
	}
	id := e.nextStrID
	e.nextStrID++
	e.stringIDs[s] = id
	e.writeUint32(id)
	e.writeRawString(s)
}

// writeNodeRef writes the reference id unconditionally, then the node
// payload only on the node's first occurrence (by structural equality,
// tracked via its canonical String() form as the dedup key).
func (e *Encoder) writeNodeRef(n irep.Node) {
	key := n.String()
	if id, ok := e.nodeIDs[key]; ok {
		e.writeUint32(id)
		return
	}
	id := e.nextNodeID
	e.nextNodeID++
	e.nodeIDs[key] = id
	e.writeUint32(id)
	e.writeNodePayload(n)
}

func (e *Encoder) writeNodePayload(n irep.Node) {
	e.writeStringRef(n.ID)

	for _, sub := range n.Sub {
		e.buf = append(e.buf, 'S')
		e.writeNodeRef(sub)
	}
	for _, key := range sortedKeys(n.NamedSub) {
		e.buf = append(e.buf, 'N')
		e.writeStringRef(key)
		e.writeNodeRef(n.NamedSub[key])
	}
	for _, key := range sortedKeys(n.Comments) {
		e.buf = append(e.buf, 'C')
		e.writeStringRef(key)
		e.writeNodeRef(n.Comments[key])
	}

	e.buf = append(e.buf, 0)
}

func sortedKeys(m map[string]irep.Node) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
