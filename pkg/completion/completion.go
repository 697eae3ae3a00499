package completion

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/saltls/pkg/document"
	"github.com/walteh/saltls/pkg/position"
	"github.com/walteh/saltls/pkg/sls"
)

// Item is a single completion candidate.
type Item struct {
	Label         string `json:"label"`
	Detail        string `json:"detail,omitempty"`
	Documentation string `json:"documentation,omitempty"`
	InsertText    string `json:"insertText,omitempty"`
}

// Options carries context the core cannot compute itself.
type Options struct {
	// Includes lists the dotted names of includable state files, supplied by
	// the workspace.
	Includes []string
}

// Candidates computes completion items for pos. The decision order follows
// what is under the cursor: a templating expression offers templating
// symbols, an include list offers includable files, a call offers parameter
// names from the catalogue, a state offers call names.
func Candidates(ctx context.Context, doc *document.Document, pos position.Position, cat *Catalogue, opts Options) []Item {
	logger := zerolog.Ctx(ctx)

	if expr, ok := doc.ExpressionAt(pos); ok {
		logger.Debug().Str("expression", expr).Msg("completing inside templating expression")
		return templateSymbolItems(cat)
	}

	path := doc.PathToPosition(pos)
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i].(type) {
		case *sls.IncludesNode, *sls.IncludeNode:
			return includeItems(opts.Includes)
		case *sls.StateParameterNode, *document.TemplateBlock, *document.TemplateBranch:
			if call := doc.EnclosingCall(pos); call != nil {
				return parameterItems(cat, call.Name)
			}
		case *sls.StateCallNode:
			return parameterItems(cat, path[i].(*sls.StateCallNode).Name)
		case *sls.StateNode:
			return callNameItems(cat)
		}
	}
	return moduleItems(cat)
}

func templateSymbolItems(cat *Catalogue) []Item {
	items := make([]Item, 0, len(cat.TemplateSymbols()))
	for _, sym := range cat.TemplateSymbols() {
		items = append(items, Item{Label: sym, Detail: "template symbol"})
	}
	return items
}

func includeItems(includes []string) []Item {
	items := make([]Item, 0, len(includes))
	for _, inc := range includes {
		items = append(items, Item{Label: inc, InsertText: " " + inc})
	}
	return items
}

func moduleItems(cat *Catalogue) []Item {
	var items []Item
	for _, name := range cat.ModuleNames() {
		mod, _ := cat.Module(name)
		items = append(items, Item{Label: name, Documentation: mod.Docs})
	}
	return items
}

// callNameItems offers dotted call names for a state body.
func callNameItems(cat *Catalogue) []Item {
	var items []Item
	for _, module := range cat.ModuleNames() {
		mod, _ := cat.Module(module)
		for _, function := range cat.FunctionNames(module) {
			items = append(items, Item{
				Label:         module + "." + function,
				Documentation: mod.Functions[function].Docs,
				InsertText:    module + "." + function + ":",
			})
		}
	}
	return items
}

// FunctionCandidates offers the function names of one module, for clients
// that trigger on "." right after a module name.
func FunctionCandidates(cat *Catalogue, module string) []Item {
	mod, ok := cat.Module(module)
	if !ok {
		return nil
	}
	var items []Item
	for _, name := range cat.FunctionNames(module) {
		items = append(items, Item{
			Label:         name,
			Documentation: mod.Functions[name].Docs,
		})
	}
	return items
}

func parameterItems(cat *Catalogue, callName string) []Item {
	fn, ok := cat.Function(callName)
	if !ok {
		return nil
	}
	items := make([]Item, 0, len(fn.Params))
	for _, param := range fn.Params {
		items = append(items, Item{
			Label:         param.Name,
			Documentation: param.Docs,
			InsertText:    param.Name + ": ",
		})
	}
	return items
}
