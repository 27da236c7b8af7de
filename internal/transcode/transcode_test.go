package transcode

import (
	"testing"

	"github.com/rafaelsamenezes/goto-transcoder/internal/esbmcbin"
)

// testBuilder constructs a minimal dialect-A byte stream, mirroring
// internal/cbmcbin's own test builder (package-private there, so this is a
// second small copy scoped to this package's black-box needs).
type testBuilder struct {
	buf        []byte
	stringIDs  map[string]uint32
	nextStrID  uint32
	nodeIDs    map[string]uint32
	nextNodeID uint32
}

func newTestBuilder() *testBuilder {
	return &testBuilder{stringIDs: map[string]uint32{}, nodeIDs: map[string]uint32{}}
}

func (b *testBuilder) varint(v uint32) {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b.buf = append(b.buf, c)
		if v == 0 {
			break
		}
	}
}

func (b *testBuilder) rawString(s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0 || c == '\\' {
			b.buf = append(b.buf, '\\')
		}
		b.buf = append(b.buf, c)
	}
	b.buf = append(b.buf, 0)
}

func (b *testBuilder) stringRef(s string) {
	if id, ok := b.stringIDs[s]; ok {
		b.varint(id)
		return
	}
	id := b.nextStrID
	b.nextStrID++
	b.stringIDs[s] = id
	b.varint(id)
	b.rawString(s)
}

// leafNodeRef writes a node with no children, cached by a caller-supplied
// cache key so the same logical node can be referenced twice to exercise
// interning, or given distinct keys to force distinct nodes with the same id.
func (b *testBuilder) leafNodeRef(cacheKey, id string) {
	if nodeID, ok := b.nodeIDs[cacheKey]; ok {
		b.varint(nodeID)
		return
	}
	nodeID := b.nextNodeID
	b.nextNodeID++
	b.nodeIDs[cacheKey] = nodeID
	b.varint(nodeID)
	b.stringRef(id)
	b.buf = append(b.buf, 0)
}

func (b *testBuilder) bytes() []byte { return b.buf }

func TestCBMCToESBMCMinimalModel(t *testing.T) {
	b := newTestBuilder()
	b.buf = append(b.buf, 0x7F, 'G', 'B', 'F')
	b.varint(6) // version

	b.varint(1) // symbol count
	b.leafNodeRef("type", "signedbv")
	b.leafNodeRef("value", "nil")
	b.leafNodeRef("location", "nil")
	b.stringRef("__CPROVER__start")
	b.stringRef("main-module")
	b.stringRef("__CPROVER__start")
	b.stringRef("C")
	b.stringRef("__CPROVER__start")
	b.varint(0) // ordering
	b.varint(0) // flags

	b.varint(1) // function count
	b.rawString("__CPROVER__start")
	b.varint(1) // instruction count
	b.leafNodeRef("code", "nil")
	b.leafNodeRef("instr-location", "nil")
	b.varint(8) // instr_type RETURN
	b.leafNodeRef("guard", "nil")
	b.varint(1) // target_number
	b.varint(0) // target count
	b.varint(0) // label count

	out, err := CBMCToESBMC(b.bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected non-empty output")
	}

	symbols, functions, err := esbmcbin.Decode(out)
	if err != nil {
		t.Fatalf("round-trip decode failed: %v", err)
	}
	if len(symbols) != 1 {
		t.Fatalf("expected 1 symbol, got %d", len(symbols))
	}
	if len(functions) != 1 || functions[0].Name != "__ESBMC_main" {
		t.Fatalf("expected remapped function name, got %+v", functions)
	}
}

func TestCBMCToESBMCRejectsBadHeader(t *testing.T) {
	if _, err := CBMCToESBMC([]byte("not a goto binary")); err == nil {
		t.Fatalf("expected an error for a malformed header")
	}
}
