package esbmcbin

import (
	"encoding/binary"

	"github.com/rafaelsamenezes/goto-transcoder/internal/gbferr"
	"github.com/rafaelsamenezes/goto-transcoder/internal/irep"
)

// decoder reads dialect-E goto binaries back into nodes. It exists
// primarily so the codec round-trip property (decodeE(encodeE(M)) == M,
// see the package tests) can be checked without a second, independent
// implementation of the dialect-E grammar: it mirrors cbmcbin.Decoder
// exactly except for the header length and the 32-bit-word integer
// encoding.
type decoder struct {
	data   []byte
	pos    int
	nodes  map[uint32]irep.Node
	idents map[uint32]string
}

// Decode parses a dialect-E byte stream back into its symbol and function
// nodes.
func Decode(data []byte) ([]irep.Node, []Function, error) {
	d := &decoder{
		data:   data,
		nodes:  make(map[uint32]irep.Node),
		idents: make(map[uint32]string),
	}
	return d.decode()
}

func (d *decoder) decode() ([]irep.Node, []Function, error) {
	if err := d.checkHeader(); err != nil {
		return nil, nil, err
	}
	v, err := d.readUint32()
	if err != nil {
		return nil, nil, err
	}
	if v != version {
		return nil, nil, gbferr.Newf(gbferr.FormatError, "unsupported dialect-E version %d (expected %d)", v, version)
	}

	symbolCount, err := d.readUint32()
	if err != nil {
		return nil, nil, err
	}
	symbols := make([]irep.Node, 0, symbolCount)
	for i := uint32(0); i < symbolCount; i++ {
		n, err := d.readNodeRef()
		if err != nil {
			return nil, nil, err
		}
		symbols = append(symbols, n)
	}

	functionCount, err := d.readUint32()
	if err != nil {
		return nil, nil, err
	}
	functions := make([]Function, 0, functionCount)
	for i := uint32(0); i < functionCount; i++ {
		name, err := d.readRawString()
		if err != nil {
			return nil, nil, err
		}
		program, err := d.readNodeRef()
		if err != nil {
			return nil, nil, err
		}
		functions = append(functions, Function{Name: name, Program: program})
	}

	return symbols, functions, nil
}

func (d *decoder) checkHeader() error {
	if len(d.data) < len(header) {
		return gbferr.New(gbferr.FormatError, "truncated dialect-E header")
	}
	for i, b := range header {
		if d.data[i] != b {
			return gbferr.Newf(gbferr.FormatError, "bad dialect-E header: expected % x, got % x", header, d.data[:len(header)])
		}
	}
	d.pos = len(header)
	return nil
}

func (d *decoder) readUint32() (uint32, error) {
	if d.pos+4 > len(d.data) {
		return 0, gbferr.New(gbferr.FormatError, "truncated 32-bit word")
	}
	v := binary.BigEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *decoder) readRawString() (string, error) {
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

func (d *decoder) readStringRef() (string, error) {
	id, err := d.readUint32()
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

func (d *decoder) readNodeRef() (irep.Node, error) {
	id, err := d.readUint32()
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
