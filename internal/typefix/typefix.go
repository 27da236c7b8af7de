// Package typefix builds the struct tag -> concrete type cache and
// resolves struct_tag references against it, eliminating struct_tag and
// c_bool from every type position before the model is handed to the
// encoder.
package typefix

import (
	"github.com/rafaelsamenezes/goto-transcoder/internal/anonstruct"
	"github.com/rafaelsamenezes/goto-transcoder/internal/gbferr"
	"github.com/rafaelsamenezes/goto-transcoder/internal/irep"
	"github.com/rafaelsamenezes/goto-transcoder/internal/rewrite"
)

// Cache maps a struct tag identifier ("tag-<base_name>") to its resolved,
// already-fixed concrete type node. It is built once per transcode and
// must not be shared across transcodes.
type Cache struct {
	byTag map[string]irep.Node
}

// NewCache returns an empty type cache.
func NewCache() *Cache {
	return &Cache{byTag: map[string]irep.Node{}}
}

// Collect records a struct-typed symbol's concrete body under the tag key
// "tag-<baseName>", after fixing the body against the cache built so far
// (phase 1 of C5: later declarations may reference earlier ones, never the
// reverse, so a single forward pass is enough).
func (c *Cache) Collect(baseName string, structType irep.Node) (irep.Node, error) {
	fixed, err := c.Fix(structType)
	if err != nil {
		return irep.Node{}, err
	}
	c.byTag["tag-"+baseName] = fixed
	return fixed, nil
}

// Fix is fix_type(node, cache): the bottom-up resolver described in
// SPEC_FULL.md / spec.md §4.5. It eliminates c_bool, normalises pointer and
// array shapes, expands code parameter lists into "arguments", renames
// struct components, and replaces struct_tag nodes with their cached
// concrete type (re-running fixup on the replacement so nested struct_tag
// references reach a fixed point).
func (c *Cache) Fix(n irep.Node) (irep.Node, error) {
	if n.ID == "c_bool" {
		n.ID = "signedbv"
		return n, nil
	}

	if n.ID == "code" {
		if params, ok := n.Named("parameters"); ok {
			args := irep.Default()
			args.Sub = params.Sub
			n = n.SetNamed("arguments", args)
		}
	}

	if components, ok := n.Named("components"); ok {
		for i, child := range components.Sub {
			child.ID = "component"
			components.Sub[i] = child
		}
		n = n.SetNamed("components", components)
	}

	if n.ID == "pointer" {
		if _, hasSubtype := n.Named("subtype"); !hasSubtype {
			fixedSub := make([]irep.Node, len(n.Sub))
			for i, s := range n.Sub {
				fixed, err := c.Fix(s)
				if err != nil {
					return irep.Node{}, err
				}
				fixedSub[i] = fixed
			}
			subtype := irep.Default()
			subtype.Sub = fixedSub
			if len(fixedSub) == 1 {
				subtype = fixedSub[0]
			}
			n.Sub = nil
			n = n.SetNamed("subtype", subtype)
			return n, nil
		}
	}

	if n.ID == "array" {
		if _, hasSubtype := n.Named("subtype"); !hasSubtype && len(n.Sub) > 0 {
			first, err := c.Fix(n.Sub[0])
			if err != nil {
				return irep.Node{}, err
			}
			n = n.SetNamed("subtype", first)
			n.Sub = nil
		}
		if size, ok := n.Named("size"); ok {
			if value, hasValue := size.Named("value"); hasValue {
				renormalised := rewrite.Node(irep.From("constant").SetNamed("type", irep.From("signedbv")).SetNamed("value", value))
				newValue, _ := renormalised.Named("value")
				n = n.SetNamed("size", size.SetNamed("value", newValue))
			}
		}
	}

	if n.ID != "struct_tag" {
		for i, sub := range n.Sub {
			fixed, err := c.Fix(sub)
			if err != nil {
				return irep.Node{}, err
			}
			n.Sub[i] = fixed
		}
		for key, child := range n.NamedSub {
			fixed, err := c.Fix(child)
			if err != nil {
				return irep.Node{}, err
			}
			n = n.SetNamed(key, fixed)
		}
		for key, child := range n.Comments {
			fixed, err := c.Fix(child)
			if err != nil {
				return irep.Node{}, err
			}
			if n.Comments == nil {
				n.Comments = map[string]irep.Node{}
			}
			n.Comments[key] = fixed
		}
		return n, nil
	}

	identifier, ok := n.Named("identifier")
	if !ok {
		return n, nil
	}

	concrete, found := c.byTag[identifier.ID]
	if !found {
		if len(identifier.ID) >= len(anonstruct.Prefix) && identifier.ID[:len(anonstruct.Prefix)] == anonstruct.Prefix {
			expanded, err := anonstruct.Parse(identifier.ID)
			if err != nil {
				return irep.Node{}, err
			}
			return expanded, nil
		}
		return irep.Node{}, gbferr.WithNode(gbferr.UnresolvedReference, "unresolved struct tag", identifier)
	}

	replaced := concrete
	if containsStructTag(replaced) {
		fixed, err := c.Fix(replaced)
		if err != nil {
			return irep.Node{}, err
		}
		replaced = fixed
	}
	return replaced, nil
}

func containsStructTag(n irep.Node) bool {
	if n.ID == "struct_tag" {
		return true
	}
	for _, s := range n.Sub {
		if containsStructTag(s) {
			return true
		}
	}
	for _, v := range n.NamedSub {
		if containsStructTag(v) {
			return true
		}
	}
	for _, v := range n.Comments {
		if containsStructTag(v) {
			return true
		}
	}
	return false
}
