// Package transcode is the top-level pipeline driver (C8): decode a
// dialect-A byte stream, fix up and adapt every symbol and function into
// dialect E, and encode the result. It holds no package-level state; every
// call builds its own caches and is independent of any other.
//
// The shape here follows the teacher's internal/bundler entry point: one
// function that owns the whole pipeline and returns either a finished
// artifact or an error, with no partial output on failure.
package transcode

import (
	"github.com/rafaelsamenezes/goto-transcoder/internal/adapt"
	"github.com/rafaelsamenezes/goto-transcoder/internal/cbmcbin"
	"github.com/rafaelsamenezes/goto-transcoder/internal/esbmcbin"
	"github.com/rafaelsamenezes/goto-transcoder/internal/irep"
	"github.com/rafaelsamenezes/goto-transcoder/internal/model"
	"github.com/rafaelsamenezes/goto-transcoder/internal/typefix"
)

// CBMCToESBMC reads a dialect-A (CBMC) goto binary and returns the
// equivalent dialect-E (ESBMC) goto binary. It is the sole public entry
// point of the transcoder: decode, fix up types, adapt symbols and
// instructions, then encode. Any failure in any stage aborts the whole
// transcode; there is no partial output.
func CBMCToESBMC(input []byte) ([]byte, error) {
	parsed, err := cbmcbin.Decode(input)
	if err != nil {
		return nil, err
	}

	cache := typefix.NewCache()
	if err := collectStructTypes(cache, parsed.Symbols); err != nil {
		return nil, err
	}

	symbols, err := adaptSymbols(cache, parsed.Symbols)
	if err != nil {
		return nil, err
	}

	functions, err := adaptFunctions(cache, parsed.Functions)
	if err != nil {
		return nil, err
	}

	return esbmcbin.Encode(symbols, functions), nil
}

// collectStructTypes runs phase 1 of the type-cache & fixup component: every
// symbol that is itself a type declaration for a struct gets its body fixed
// up and cached under its tag, in decode order, so later declarations can
// reference earlier ones.
func collectStructTypes(cache *typefix.Cache, symbols []model.Symbol) error {
	for _, sym := range symbols {
		if !sym.IsType() || sym.Type.ID != "struct" {
			continue
		}
		if _, err := cache.Collect(sym.BaseName, sym.Type); err != nil {
			return err
		}
	}
	return nil
}

func adaptSymbols(cache *typefix.Cache, symbols []model.Symbol) ([]irep.Node, error) {
	out := make([]irep.Node, 0, len(symbols))
	for _, sym := range symbols {
		fixedType, err := cache.Fix(sym.Type)
		if err != nil {
			return nil, err
		}
		sym.Type = fixedType
		out = append(out, adapt.Symbol(sym))
	}
	return out, nil
}

func adaptFunctions(cache *typefix.Cache, functions []model.Function) ([]esbmcbin.Function, error) {
	out := make([]esbmcbin.Function, 0, len(functions))
	for _, fn := range functions {
		for i, instr := range fn.Instructions {
			fixedCode, err := cache.Fix(instr.Code)
			if err != nil {
				return nil, err
			}
			instr.Code = fixedCode
			fn.Instructions[i] = instr
		}
		adapted, err := adapt.Function(fn)
		if err != nil {
			return nil, err
		}
		out = append(out, adapted)
	}
	return out, nil
}
