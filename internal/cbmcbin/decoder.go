// Package cbmcbin decodes dialect-A goto binaries (the bounded model
// checker's own wire format: a 0x7F 'G' 'B' 'F' header, varint integers,
// version 6) into the dialect-neutral shapes in internal/model.
//
// The byte-cursor style here (a struct wrapping the input slice and an
// integer position, with small step/peek helpers) follows the teacher's
// internal/js_lexer.Lexer: a hand-rolled scanner over a byte/rune stream
// rather than a parser-combinator library, because the teacher never reaches
// for one either.
package cbmcbin

import (
	"github.com/rafaelsamenezes/goto-transcoder/internal/gbferr"
	"github.com/rafaelsamenezes/goto-transcoder/internal/irep"
	"github.com/rafaelsamenezes/goto-transcoder/internal/model"
)

const expectedVersion = 6

var header = [...]byte{0x7F, 'G', 'B', 'F'}

// Decoder holds the input byte slice, the read cursor, and the two
// interning caches (by reference id) that live for the duration of one
// Decode call. A Decoder must not be reused across calls and shares no
// state with any other Decoder or with the esbmcbin.Encoder.
type Decoder struct {
	data   []byte
	pos    int
	nodes  map[uint32]irep.Node
	idents map[uint32]string
}

// NewDecoder wraps a dialect-A byte slice for decoding.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{
		data:   data,
		nodes:  make(map[uint32]irep.Node),
		idents: make(map[uint32]string),
	}
}

// Decode parses the full symbol table and function list out of a dialect-A
// byte stream.
func Decode(data []byte) (model.ParseResult, error) {
	d := NewDecoder(data)
	return d.decode()
}

func (d *Decoder) decode() (model.ParseResult, error) {
	if err := d.checkHeader(); err != nil {
		return model.ParseResult{}, err
	}
	version, err := d.readVarint()
	if err != nil {
		return model.ParseResult{}, err
	}
	if version != expectedVersion {
		return model.ParseResult{}, gbferr.Newf(gbferr.FormatError, "unsupported dialect-A version %d (expected %d)", version, expectedVersion)
	}

	symbolCount, err := d.readVarint()
	if err != nil {
		return model.ParseResult{}, err
	}
	symbols := make([]model.Symbol, 0, symbolCount)
	for i := uint32(0); i < symbolCount; i++ {
		sym, err := d.readSymbol()
		if err != nil {
			return model.ParseResult{}, err
		}
		symbols = append(symbols, sym)
	}

	functionCount, err := d.readVarint()
	if err != nil {
		return model.ParseResult{}, err
	}
	functions := make([]model.Function, 0, functionCount)
	for i := uint32(0); i < functionCount; i++ {
		fn, err := d.readFunction()
		if err != nil {
			return model.ParseResult{}, err
		}
		functions = append(functions, fn)
	}

	return model.ParseResult{Symbols: symbols, Functions: functions}, nil
}

func (d *Decoder) checkHeader() error {
	if len(d.data) < len(header) {
		return gbferr.New(gbferr.FormatError, "truncated dialect-A header")
	}
	for i, b := range header {
		if d.data[i] != b {
			return gbferr.Newf(gbferr.FormatError, "bad dialect-A header: expected % x, got % x", header, d.data[:len(header)])
		}
	}
	d.pos = len(header)
	return nil
}

func (d *Decoder) readSymbol() (model.Symbol, error) {
	var sym model.Symbol
	var err error

	if sym.Type, err = d.readNodeRef(); err != nil {
		return sym, err
	}
	if sym.Value, err = d.readNodeRef(); err != nil {
		return sym, err
	}
	if sym.Location, err = d.readNodeRef(); err != nil {
		return sym, err
	}
	if sym.Name, err = d.readStringRef(); err != nil {
		return sym, err
	}
	if sym.Module, err = d.readStringRef(); err != nil {
		return sym, err
	}
	if sym.BaseName, err = d.readStringRef(); err != nil {
		return sym, err
	}
	if sym.Mode, err = d.readStringRef(); err != nil {
		return sym, err
	}
	if sym.PrettyName, err = d.readStringRef(); err != nil {
		return sym, err
	}
	ordering, err := d.readVarint()
	if err != nil {
		return sym, err
	}
	if ordering != 0 {
		return sym, gbferr.Newf(gbferr.FormatError, "symbol %q: expected ordering 0, got %d", sym.Name, ordering)
	}
	if sym.Flags, err = d.readVarint(); err != nil {
		return sym, err
	}
	return sym, nil
}

func (d *Decoder) readFunction() (model.Function, error) {
	name, err := d.readRawString()
	if err != nil {
		return model.Function{}, err
	}
	fn := model.Function{Name: name}

	instrCount, err := d.readVarint()
	if err != nil {
		return model.Function{}, err
	}
	fn.Instructions = make([]model.Instruction, 0, instrCount)
	functionNode := irep.From(name)

	for i := uint32(0); i < instrCount; i++ {
		instr, err := d.readInstruction(functionNode)
		if err != nil {
			return model.Function{}, err
		}
		fn.Instructions = append(fn.Instructions, instr)
	}
	return fn, nil
}

func (d *Decoder) readInstruction(functionNode irep.Node) (model.Instruction, error) {
	var instr model.Instruction
	var err error

	if instr.Code, err = d.readNodeRef(); err != nil {
		return instr, err
	}
	if instr.SourceLocation, err = d.readNodeRef(); err != nil {
		return instr, err
	}
	if instr.InstrType, err = d.readVarint(); err != nil {
		return instr, err
	}
	if instr.Guard, err = d.readNodeRef(); err != nil {
		return instr, err
	}
	if instr.TargetNumber, err = d.readVarint(); err != nil {
		return instr, err
	}

	targetCount, err := d.readVarint()
	if err != nil {
		return instr, err
	}
	instr.Targets = make([]string, 0, targetCount)
	for i := uint32(0); i < targetCount; i++ {
		t, err := d.readVarint()
		if err != nil {
			return instr, err
		}
		instr.Targets = append(instr.Targets, uint32ToDecimal(t))
	}

	labelCount, err := d.readVarint()
	if err != nil {
		return instr, err
	}
	instr.Labels = make([]string, 0, labelCount)
	for i := uint32(0); i < labelCount; i++ {
		l, err := d.readStringRef()
		if err != nil {
			return instr, err
		}
		instr.Labels = append(instr.Labels, l)
	}

	instr.Function = functionNode
	return instr, nil
}

// readVarint reads a base-128, little-endian-group varint: 7 payload bits
// per byte, high bit set means another byte follows. A result requiring
// more than 5 bytes (32 bits plus the rounding from 7-bit groups) is an
// overflow error.
func (d *Decoder) readVarint() (uint32, error) {
	var result uint32
	var shift uint
	for {
		if d.pos >= len(d.data) {
			return 0, gbferr.New(gbferr.FormatError, "truncated varint")
		}
		if shift >= 32 {
			return 0, gbferr.New(gbferr.FormatError, "varint overflow")
		}
		b := d.data[d.pos]
		d.pos++
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result, nil
}

// readRawString reads a zero-terminated byte string, where a backslash is a
// single-byte escape that copies the following byte verbatim (so a literal
// zero byte can appear inside the string).
func (d *Decoder) readRawString() (string, error) {
	var out []byte
	for {
		if d.pos >= len(d.data) {
			return "", gbferr.New(gbferr.FormatError, "unterminated string")
		}
		c := d.data[d.pos]
		d.pos++
		if c == 0 {
			break
		}
		if c == '\\' {
			if d.pos >= len(d.data) {
				return "", gbferr.New(gbferr.FormatError, "unterminated string escape")
			}
			out = append(out, d.data[d.pos])
			d.pos++
			continue
		}
		out = append(out, c)
	}
	return string(out), nil
}

func (d *Decoder) readStringRef() (string, error) {
	id, err := d.readVarint()
	if err != nil {
		return "", err
	}
	if s, ok := d.idents[id]; ok {
		return s, nil
	}
	s, err := d.readRawString()
	if err != nil {
		return "", err
	}
	d.idents[id] = s
	return s, nil
}

// readNodeRef reads a compressed DAG edge: a varint id, and on first
// occurrence the node payload following it. The grammar for a payload is:
// string-ref (id), then 'S'+node-ref pairs (Sub), 'N'+string-ref+node-ref
// triples (NamedSub), 'C'+string-ref+node-ref triples (Comments), then a
// terminating zero byte. Any other terminator is a decode error.
func (d *Decoder) readNodeRef() (irep.Node, error) {
	id, err := d.readVarint()
	if err != nil {
		return irep.Node{}, err
	}
	if n, ok := d.nodes[id]; ok {
		return n, nil
	}

	nodeID, err := d.readStringRef()
	if err != nil {
		return irep.Node{}, err
	}
	n := irep.From(nodeID)

	for {
		if d.pos >= len(d.data) {
			return irep.Node{}, gbferr.New(gbferr.FormatError, "unterminated node")
		}
		tag := d.data[d.pos]
		switch tag {
		case 'S':
			d.pos++
			child, err := d.readNodeRef()
			if err != nil {
				return irep.Node{}, err
			}
			n.Sub = append(n.Sub, child)
		case 'N':
			d.pos++
			key, err := d.readStringRef()
			if err != nil {
				return irep.Node{}, err
			}
			child, err := d.readNodeRef()
			if err != nil {
				return irep.Node{}, err
			}
			n = n.SetNamed(key, child)
		case 'C':
			d.pos++
			key, err := d.readStringRef()
			if err != nil {
				return irep.Node{}, err
			}
			child, err := d.readNodeRef()
			if err != nil {
				return irep.Node{}, err
			}
			if n.Comments == nil {
				n.Comments = map[string]irep.Node{}
			}
			n.Comments[key] = child
		case 0:
			d.pos++
			d.nodes[id] = n
			return n, nil
		default:
			return irep.Node{}, gbferr.Newf(gbferr.FormatError, "unterminated node: unexpected terminator byte %#x", tag)
		}
	}
}

func uint32ToDecimal(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
