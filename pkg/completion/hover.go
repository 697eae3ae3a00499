package completion

import (
	"strings"

	"github.com/walteh/saltls/pkg/document"
	"github.com/walteh/saltls/pkg/position"
	"github.com/walteh/saltls/pkg/sls"
)

// Hover returns the catalogue documentation for the node under pos: function
// docs over a call name, parameter docs over a parameter, the raw expression
// over a templating construct.
func Hover(doc *document.Document, pos position.Position, cat *Catalogue) (string, bool) {
	if expr, ok := doc.ExpressionAt(pos); ok {
		return expr, true
	}

	path := doc.PathToPosition(pos)
	for i := len(path) - 1; i >= 0; i-- {
		switch node := path[i].(type) {
		case *sls.StateParameterNode:
			call := doc.EnclosingCall(pos)
			if call == nil {
				return "", false
			}
			fn, ok := cat.Function(call.Name)
			if !ok {
				return "", false
			}
			for _, param := range fn.Params {
				if param.Name == node.Name && param.Docs != "" {
					return param.Docs, true
				}
			}
		case *sls.StateCallNode:
			if fn, ok := cat.Function(node.Name); ok && fn.Docs != "" {
				return fn.Docs, true
			}
			module, _, _ := strings.Cut(node.Name, ".")
			if mod, ok := cat.Module(module); ok && mod.Docs != "" {
				return mod.Docs, true
			}
		}
	}
	return "", false
}
