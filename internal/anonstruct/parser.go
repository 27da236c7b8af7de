// Package anonstruct parses dialect A's embedded anonymous-struct
// identifier mini-language: an identifier of the form
// "tag-#anon#ST[U32'first'|U64'second']" encodes a whole struct type inline
// instead of pointing at a declared tag. The grammar is a small,
// context-free, LL(1) language, so the parser below is a hand-written
// recursive-descent routine with a one-byte-lookahead cursor, in the same
// style as the teacher's internal/js_lexer scanner.
package anonstruct

import (
	"github.com/rafaelsamenezes/goto-transcoder/internal/gbferr"
	"github.com/rafaelsamenezes/goto-transcoder/internal/irep"
)

// Prefix is the literal marker that distinguishes an anonymous-struct
// identifier from an ordinary declared tag.
const Prefix = "tag-#anon#"

// Parse decodes a full "tag-#anon#..." identifier into its canonical type
// node (one of struct/pointer/signedbv/unsignedbv/empty).
func Parse(identifier string) (irep.Node, error) {
	if len(identifier) < len(Prefix) || identifier[:len(Prefix)] != Prefix {
		return irep.Node{}, gbferr.Newf(gbferr.AnonStructParseError, "identifier %q is not an anonymous-struct tag", identifier)
	}
	p := &parser{data: identifier, pos: len(Prefix), cache: map[string]irep.Node{}}
	n, err := p.parseComponent()
	if err != nil {
		return irep.Node{}, err
	}
	return n, nil
}

type parser struct {
	data  string
	pos   int
	cache map[string]irep.Node
}

func (p *parser) atEnd() bool { return p.pos >= len(p.data) }

func (p *parser) peek() (byte, error) {
	if p.atEnd() {
		return 0, gbferr.New(gbferr.AnonStructParseError, "cursor past end of anonymous-struct identifier")
	}
	return p.data[p.pos], nil
}

func (p *parser) hasPrefix(s string) bool {
	return p.pos+len(s) <= len(p.data) && p.data[p.pos:p.pos+len(s)] == s
}

func (p *parser) expect(c byte) error {
	got, err := p.peek()
	if err != nil {
		return err
	}
	if got != c {
		return gbferr.Newf(gbferr.AnonStructParseError, "expected %q at position %d, got %q", c, p.pos, got)
	}
	p.pos++
	return nil
}

func (p *parser) parseComponent() (irep.Node, error) {
	switch {
	case p.hasPrefix("ST["):
		p.pos += 3
		return p.parseStruct()
	case p.hasPrefix("SYM"):
		p.pos += 3
		return p.parseSym()
	case p.hasPrefix("U"):
		p.pos++
		return p.parseWidth("unsignedbv")
	case p.hasPrefix("S"):
		p.pos++
		return p.parseWidth("signedbv")
	case p.hasPrefix("V"):
		p.pos++
		return irep.From("empty"), nil
	case p.hasPrefix("*{"):
		p.pos += 2
		return p.parsePointer()
	default:
		b, err := p.peek()
		if err != nil {
			return irep.Node{}, err
		}
		return irep.Node{}, gbferr.Newf(gbferr.AnonStructParseError, "unexpected byte %q at position %d", b, p.pos)
	}
}

func (p *parser) parsePointer() (irep.Node, error) {
	inner, err := p.parseComponent()
	if err != nil {
		return irep.Node{}, err
	}
	if err := p.expect('}'); err != nil {
		return irep.Node{}, err
	}
	return irep.From("pointer").SetNamed("subtype", inner), nil
}

func (p *parser) parseWidth(kind string) (irep.Node, error) {
	start := p.pos
	for !p.atEnd() && isDigit(p.data[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return irep.Node{}, gbferr.Newf(gbferr.AnonStructParseError, "expected a width at position %d", start)
	}
	return irep.From(kind).SetNamed("width", irep.From(p.data[start:p.pos])), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (p *parser) parseName() (string, error) {
	if err := p.expect('\''); err != nil {
		return "", err
	}
	start := p.pos
	for {
		b, err := p.peek()
		if err != nil {
			return "", err
		}
		if b == '\'' {
			name := p.data[start:p.pos]
			p.pos++
			return name, nil
		}
		p.pos++
	}
}

func (p *parser) parseStruct() (irep.Node, error) {
	components := irep.Default()
	for {
		b, err := p.peek()
		if err != nil {
			return irep.Node{}, err
		}
		if b == ']' {
			p.pos++
			break
		}
		if b == '|' {
			p.pos++
			continue
		}
		comp, err := p.parseComponent()
		if err != nil {
			return irep.Node{}, err
		}
		name, err := p.parseName()
		if err != nil {
			return irep.Node{}, err
		}
		member := irep.From("component").SetNamed("name", irep.From(name)).SetNamed("type", comp)
		components.Sub = append(components.Sub, member)
	}
	return irep.From("struct").SetNamed("components", components), nil
}

// parseSym handles both the defining occurrence "SYM id=Comp" (which caches
// Comp under id and returns it) and a later reference "SYM id" (which
// resolves id from the cache). The cache's scope is the remainder of the
// current anon-struct string: it is created fresh per Parse call.
func (p *parser) parseSym() (irep.Node, error) {
	start := p.pos
	for {
		b, err := p.peek()
		if err != nil {
			return irep.Node{}, err
		}
		if b == '\'' || b == '}' {
			id := p.data[start:p.pos]
			return p.resolveSym(id)
		}
		if b == '=' {
			id := p.data[start:p.pos]
			p.pos++
			comp, err := p.parseComponent()
			if err != nil {
				return irep.Node{}, err
			}
			p.cache[id] = comp
			return comp, nil
		}
		p.pos++
	}
}

func (p *parser) resolveSym(id string) (irep.Node, error) {
	comp, ok := p.cache[id]
	if !ok {
		return irep.Node{}, gbferr.Newf(gbferr.AnonStructParseError, "unresolved SYM reference %q", id)
	}
	return comp, nil
}
