// Package adapt projects decoded dialect-A symbols and functions (internal
// model.Symbol / model.Function) into dialect-E irep.Node shapes: the
// entry-point name remap, per-symbol flag projection, per-instruction
// operand promotion and target renumbering, and output-instruction
// filtering.
package adapt

import (
	"strconv"

	"github.com/rafaelsamenezes/goto-transcoder/internal/esbmcbin"
	"github.com/rafaelsamenezes/goto-transcoder/internal/gbferr"
	"github.com/rafaelsamenezes/goto-transcoder/internal/irep"
	"github.com/rafaelsamenezes/goto-transcoder/internal/model"
	"github.com/rafaelsamenezes/goto-transcoder/internal/rewrite"
)

// entryPointA is dialect A's canonical start symbol; entryPointE is the
// name dialect E expects it under.
const (
	entryPointA = "__CPROVER__start"
	entryPointE = "__ESBMC_main"
)

// forbiddenInstrType is the typeid an adapted instruction must never carry
// (spec.md §4.3's Parsed-Instruction constraint, §7's InvariantViolation
// taxonomy). See DESIGN.md's Open Question decisions for why this value
// is rejected without further interpretation of what it denotes.
const forbiddenInstrType = 19

// remapName applies the total name remap (spec §4.7): every occurrence of
// the dialect-A entry point name becomes the dialect-E one; everything else
// passes through unchanged.
func remapName(name string) string {
	if name == entryPointA {
		return entryPointE
	}
	return name
}

// Symbol projects a single fixed-up symbol into its dialect-E node shape.
func Symbol(s model.Symbol) irep.Node {
	n := irep.From("symbol")
	n = n.SetNamed("type", s.Type)
	n = n.SetNamed("symvalue", s.Value)
	n = n.SetNamed("location", s.Location)
	n = n.SetNamed("module", irep.From(s.Module))
	n = n.SetNamed("mode", irep.From(s.Mode))
	n = n.SetNamed("base_name", irep.From(remapName(s.BaseName)))
	n = n.SetNamed("name", irep.From(remapName(s.Name)))

	setFlag(&n, "is_type", s.IsType())
	setFlag(&n, "is_macro", s.IsMacro())
	setFlag(&n, "is_parameter", s.IsParameter())
	setFlag(&n, "lvalue", s.IsLvalue())
	setFlag(&n, "static_lifetime", s.IsStaticLifetime())
	setFlag(&n, "file_local", s.IsFileLocal())
	setFlag(&n, "is_extern", s.IsExtern())

	return n
}

func setFlag(n *irep.Node, key string, set bool) {
	if set {
		*n = n.SetNamed(key, irep.From("1"))
	}
}

// targetMap builds the target_number -> zero-based-index mapping for one
// function's instructions (spec §4.7, "Target renumbering"). Renumbering
// must happen before instruction projection, so this is computed once per
// function and consulted while projecting every instruction in it.
func targetMap(instrs []model.Instruction) map[string]int {
	m := make(map[string]int, len(instrs))
	for i, instr := range instrs {
		m[strconv.FormatUint(uint64(instr.TargetNumber), 10)] = i
	}
	return m
}

// Instruction projects one instruction, given the owning function's target
// map, into its dialect-E node shape. It returns (node, keep, error): keep
// is false when the instruction must be dropped (an "output" statement).
func Instruction(instr model.Instruction, targets map[string]int) (irep.Node, bool, error) {
	code := instr.Code

	if statement, ok := code.Named("statement"); ok && statement.ID == "output" {
		return irep.Node{}, false, nil
	}

	operands := irep.Default()
	operands.Sub = code.Sub
	code.Sub = nil
	code = code.SetNamed("operands", operands)

	if code.ID != "nil" {
		if statement, ok := code.Named("statement"); ok && statement.ID == "assign" {
			resolvedOperands, _ := code.Named("operands")
			if len(resolvedOperands.Sub) != 2 {
				return irep.Node{}, false, gbferr.WithNode(gbferr.InvariantViolation, "assign instruction does not have exactly two operands", code)
			}
		}
	}

	if instr.InstrType == forbiddenInstrType {
		return irep.Node{}, false, gbferr.WithNode(gbferr.InvariantViolation, "instruction typeid 19 is forbidden in adapted output", code)
	}

	n := irep.From("instruction")
	n = n.SetNamed("code", code)
	n = n.SetNamed("location", instr.SourceLocation)
	n = n.SetNamed("typeid", irep.From(strconv.FormatUint(uint64(instr.InstrType), 10)))
	n = n.SetNamed("guard", instr.Guard)

	if len(instr.Targets) > 0 {
		remapped := irep.Default()
		remapped.Sub = make([]irep.Node, len(instr.Targets))
		for i, t := range instr.Targets {
			idx, ok := targets[t]
			if !ok {
				return irep.Node{}, false, gbferr.Newf(gbferr.UnresolvedReference, "jump target %q has no matching instruction", t)
			}
			remapped.Sub[i] = irep.From(strconv.Itoa(idx))
		}
		n = n.SetNamed("targets", remapped)
	}

	if len(instr.Labels) > 0 {
		labels := irep.Default()
		labels.Sub = make([]irep.Node, len(instr.Labels))
		for i, l := range instr.Labels {
			labels.Sub[i] = irep.From(l)
		}
		n = n.SetNamed("labels", labels)
	}

	n = n.SetNamed("function", instr.Function)

	return rewrite.Node(n), true, nil
}

// Function projects a whole parsed function into its dialect-E
// representation: target renumbering over the whole instruction list, then
// per-instruction projection, dropping filtered-out instructions.
func Function(f model.Function) (esbmcbin.Function, error) {
	targets := targetMap(f.Instructions)

	program := irep.From("goto-program")
	for _, instr := range f.Instructions {
		node, keep, err := Instruction(instr, targets)
		if err != nil {
			return esbmcbin.Function{}, err
		}
		if !keep {
			continue
		}
		program.Sub = append(program.Sub, node)
	}

	return esbmcbin.Function{Name: remapName(f.Name), Program: program}, nil
}
