package cbmcbin

import (
	"testing"
)

// testBuilder assembles a minimal dialect-A byte stream by hand, using the
// same varint/string/node grammar the decoder implements, so the decoder
// can be exercised without a working encoder.
type testBuilder struct {
	buf []byte

	nodeIDs   map[string]uint32
	nextNode  uint32
	stringIDs map[string]uint32
	nextStr   uint32
}

func newTestBuilder() *testBuilder {
	return &testBuilder{
		nodeIDs:   map[string]uint32{},
		stringIDs: map[string]uint32{},
	}
}

func (b *testBuilder) varint(v uint32) {
	for {
		by := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			by |= 0x80
		}
		b.buf = append(b.buf, by)
		if v == 0 {
			break
		}
	}
}

func (b *testBuilder) rawString(s string) {
	b.buf = append(b.buf, []byte(s)...)
	b.buf = append(b.buf, 0)
}

// stringRef emits the payload on a string's first occurrence and only its
// reference id on every later one, so repeated strings exercise the
// decoder's string cache.
func (b *testBuilder) stringRef(s string) {
	key := "str:" + s
	if id, ok := b.stringIDs[key]; ok {
		b.varint(id)
		return
	}
	id := b.nextStr
	b.nextStr++
	b.stringIDs[key] = id
	b.varint(id)
	b.rawString(s)
}

// leafNodeRef emits a node with only an id, no children, using tag to keep
// repeated leaves (e.g. two "signedbv" nodes with the same shape) from
// colliding in the id->ref map when callers want distinct instances.
func (b *testBuilder) leafNodeRef(id string, tag string) {
	key := "node:" + tag
	if ref, ok := b.nodeIDs[key]; ok {
		b.varint(ref)
		return
	}
	ref := b.nextNode
	b.nextNode++
	b.nodeIDs[key] = ref
	b.varint(ref)
	b.stringRef(id)
	b.buf = append(b.buf, 0)
}

func (b *testBuilder) bytes() []byte { return b.buf }

func TestDecodeRejectsBadHeader(t *testing.T) {
	_, err := Decode([]byte{'G', 'B', 'F', 0})
	if err == nil {
		t.Fatalf("expected a header error")
	}
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	b := newTestBuilder()
	b.buf = append(b.buf, header[:]...)
	b.varint(5) // wrong version
	_, err := Decode(b.bytes())
	if err == nil {
		t.Fatalf("expected a version error")
	}
}

func TestDecodeMinimalFile(t *testing.T) {
	b := newTestBuilder()
	b.buf = append(b.buf, header[:]...)
	b.varint(6) // version

	b.varint(1) // one symbol
	b.leafNodeRef("signedbv", "type")
	b.leafNodeRef("nil", "value")
	b.leafNodeRef("", "location")
	b.stringRef("main")
	b.stringRef("")
	b.stringRef("main")
	b.stringRef("C")
	b.stringRef("main")
	b.varint(0) // ordering
	b.varint(0) // flags

	b.varint(1) // one function
	b.rawString("__CPROVER__start")
	b.varint(1) // one instruction
	b.leafNodeRef("code", "code")
	b.leafNodeRef("", "srcloc")
	b.varint(8) // instr_type = RETURN
	b.leafNodeRef("true", "guard")
	b.varint(0) // target_number
	b.varint(0) // no targets
	b.varint(0) // no labels

	result, err := Decode(b.bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Symbols) != 1 {
		t.Fatalf("expected 1 symbol, got %d", len(result.Symbols))
	}
	if result.Symbols[0].Name != "main" || result.Symbols[0].Type.ID != "signedbv" {
		t.Fatalf("unexpected symbol: %+v", result.Symbols[0])
	}
	if len(result.Functions) != 1 || result.Functions[0].Name != "__CPROVER__start" {
		t.Fatalf("unexpected functions: %+v", result.Functions)
	}
	instr := result.Functions[0].Instructions[0]
	if instr.InstrType != 8 || instr.Code.ID != "code" {
		t.Fatalf("unexpected instruction: %+v", instr)
	}
	if instr.Function.ID != "__CPROVER__start" {
		t.Fatalf("expected instruction to carry its owning function name, got %q", instr.Function.ID)
	}
}

func TestDecodeSharedNodeIsInternedByReference(t *testing.T) {
	b := newTestBuilder()
	b.buf = append(b.buf, header[:]...)
	b.varint(6)
	b.varint(1)
	b.leafNodeRef("signedbv", "shared") // type
	b.leafNodeRef("signedbv", "shared") // value re-uses the same reference id
	b.leafNodeRef("", "location")
	b.stringRef("x")
	b.stringRef("")
	b.stringRef("x")
	b.stringRef("C")
	b.stringRef("x")
	b.varint(0)
	b.varint(0)
	b.varint(0) // no functions

	result, err := Decode(b.bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sym := result.Symbols[0]
	if !sym.Type.Equal(sym.Value) {
		t.Fatalf("expected shared reference to decode to equal nodes: %v vs %v", sym.Type, sym.Value)
	}
}

func TestReadRawStringHandlesBackslashEscape(t *testing.T) {
	d := NewDecoder(append([]byte("a\\\x00b"), 0))
	s, err := d.readRawString()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "a\x00b" {
		t.Fatalf("expected escaped NUL to survive, got %q", s)
	}
}

func TestReadVarintOverflowIsAnError(t *testing.T) {
	d := NewDecoder([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	if _, err := d.readVarint(); err == nil {
		t.Fatalf("expected an overflow error")
	}
}
