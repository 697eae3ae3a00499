package document

import (
	"github.com/walteh/saltls/pkg/position"
	"github.com/walteh/saltls/pkg/sls"
)

// SymbolKind mirrors the LSP document-symbol kind values this outline uses.
type SymbolKind int

const (
	SymbolFile     SymbolKind = 1
	SymbolModule   SymbolKind = 2
	SymbolClass    SymbolKind = 5
	SymbolMethod   SymbolKind = 6
	SymbolField    SymbolKind = 8
	SymbolVariable SymbolKind = 13
	SymbolArray    SymbolKind = 18
)

// Symbol is one node of the document outline.
type Symbol struct {
	Name     string         `json:"name"`
	Kind     SymbolKind     `json:"kind"`
	Rng      position.Range `json:"range"`
	Children []Symbol       `json:"children,omitempty"`
}

// Symbols builds the outline of the unified tree: states with their calls,
// parameters and requisites, the include list, and templating wrappers shown
// by their original header expressions.
func (d *Document) Symbols() []Symbol {
	var out []Symbol

	if d.Tree.Includes != nil {
		sym := Symbol{Name: "includes", Kind: SymbolArray, Rng: d.Tree.Includes.Rng}
		for _, inc := range d.Tree.Includes.Includes {
			sym.Children = append(sym.Children, Symbol{
				Name: inc.Value,
				Kind: SymbolFile,
				Rng:  inc.Rng,
			})
		}
		out = append(out, sym)
	}

	if d.Tree.Extend != nil {
		sym := Symbol{Name: "extend", Kind: SymbolModule, Rng: d.Tree.Extend.Rng}
		for _, state := range d.Tree.Extend.States {
			sym.Children = append(sym.Children, stateSymbol(state))
		}
		out = append(out, sym)
	}

	for _, state := range d.Tree.States {
		out = append(out, stateSymbol(state))
	}

	return out
}

func stateSymbol(state *sls.StateNode) Symbol {
	sym := Symbol{Name: state.Identifier, Kind: SymbolClass, Rng: state.Rng}
	for _, call := range state.Calls {
		sym.Children = append(sym.Children, callSymbol(call))
	}
	return sym
}

func callSymbol(call *sls.StateCallNode) Symbol {
	sym := Symbol{Name: call.Name, Kind: SymbolMethod, Rng: call.Rng}
	sym.Children = append(sym.Children, childSymbols(call.Children)...)
	for _, req := range call.Requisites {
		reqSym := Symbol{Name: req.Kind, Kind: SymbolArray, Rng: req.Rng}
		for _, entry := range req.Requisites {
			reqSym.Children = append(reqSym.Children, Symbol{
				Name: entry.Module,
				Kind: SymbolVariable,
				Rng:  entry.Rng,
			})
		}
		sym.Children = append(sym.Children, reqSym)
	}
	return sym
}

func childSymbols(children []sls.CallChild) []Symbol {
	var out []Symbol
	for _, child := range children {
		switch n := child.(type) {
		case *sls.StateParameterNode:
			out = append(out, Symbol{Name: n.Name, Kind: SymbolField, Rng: n.Rng})
		case *TemplateBlock:
			sym := Symbol{Name: "{% " + n.Kind + " %}", Kind: SymbolModule, Rng: n.Rng}
			for _, branch := range n.Branches {
				branchSym := Symbol{
					Name:     branch.Expression,
					Kind:     SymbolModule,
					Rng:      branch.Rng,
					Children: childSymbols(branch.Children),
				}
				sym.Children = append(sym.Children, branchSym)
			}
			out = append(out, sym)
		}
	}
	return out
}
