// Package document runs the full parsing pipeline for one state file and
// owns the unified tree it produces: tokenize and parse the templating layer,
// compile it into a plain state document, parse that, then merge the two
// trees back together over the position map.
package document

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/saltls/pkg/diagnostic"
	"github.com/walteh/saltls/pkg/jinja"
	"github.com/walteh/saltls/pkg/position"
	"github.com/walteh/saltls/pkg/sls"
	"gitlab.com/tozd/go/errors"
)

// Document is the result of one full pipeline run. Every tree in it was built
// by this run and is not shared; concurrent runs over different documents
// need no locking.
type Document struct {
	// Source is the raw text the document was parsed from.
	Source string
	// Tree is the unified tree: state-document structure with templating
	// wrappers re-attached, all positions in original source coordinates.
	Tree *sls.Tree
	// Template is the templating tree of the same source.
	Template *jinja.BranchNode
	// Defects aggregates every stage's defects in pipeline order.
	Defects []diagnostic.Defect
}

// Parse runs the pipeline on source. It fails only on cancellation; malformed
// input of any shape still yields a usable Document plus defects. The
// cancellation check is cooperative at stage boundaries since each stage is
// bounded by document size.
func Parse(ctx context.Context, source string) (*Document, error) {
	logger := zerolog.Ctx(ctx)

	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("parse cancelled: %w", err)
	}
	tokens, tokenDefects := jinja.Tokenize(source)
	logger.Debug().Int("tokens", len(tokens)).Msg("tokenized templating layer")

	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("parse cancelled: %w", err)
	}
	template, templateDefects := jinja.Parse(tokens)

	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("parse cancelled: %w", err)
	}
	lowered, pmap := jinja.Compile(template)
	logger.Debug().Int("map_entries", len(pmap.Entries())).Msg("compiled obfuscated stream")

	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("parse cancelled: %w", err)
	}
	tree, stateDefects := sls.Parse(lowered)

	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("parse cancelled: %w", err)
	}
	unified, mergeDefects := Merge(tree, template, pmap)

	doc := &Document{
		Source:   source,
		Tree:     unified,
		Template: template,
	}
	doc.Defects = append(doc.Defects, tokenDefects...)
	doc.Defects = append(doc.Defects, templateDefects...)
	doc.Defects = append(doc.Defects, stateDefects...)
	doc.Defects = append(doc.Defects, mergeDefects...)

	logger.Debug().
		Int("states", len(unified.States)).
		Int("defects", len(doc.Defects)).
		Msg("parsed document")

	return doc, nil
}

// PathToPosition returns the chain of unified-tree nodes enclosing pos, from
// the tree root down to the innermost node. An empty result means pos lies
// outside the document.
func (d *Document) PathToPosition(pos position.Position) []sls.Node {
	if !d.Tree.Rng.Contains(pos) {
		return nil
	}
	path := []sls.Node{d.Tree}
	node := sls.Node(d.Tree)
	for {
		var next sls.Node
		for _, child := range childrenOf(node) {
			if child.Range().Contains(pos) {
				next = child
			}
		}
		if next == nil {
			return path
		}
		path = append(path, next)
		node = next
	}
}

// childrenOf enumerates a unified-tree node's children in document order. The
// switch is exhaustive over the closed node set, wrappers included.
func childrenOf(node sls.Node) []sls.Node {
	switch n := node.(type) {
	case *sls.Tree:
		var out []sls.Node
		if n.Includes != nil {
			out = append(out, n.Includes)
		}
		if n.Extend != nil {
			out = append(out, n.Extend)
		}
		for _, state := range n.States {
			out = append(out, state)
		}
		return out
	case *sls.IncludesNode:
		out := make([]sls.Node, len(n.Includes))
		for i, inc := range n.Includes {
			out[i] = inc
		}
		return out
	case *sls.ExtendNode:
		out := make([]sls.Node, len(n.States))
		for i, state := range n.States {
			out[i] = state
		}
		return out
	case *sls.StateNode:
		out := make([]sls.Node, len(n.Calls))
		for i, call := range n.Calls {
			out[i] = call
		}
		return out
	case *sls.StateCallNode:
		var out []sls.Node
		for _, child := range n.Children {
			out = append(out, child)
		}
		for _, req := range n.Requisites {
			out = append(out, req)
		}
		return out
	case *sls.RequisitesNode:
		out := make([]sls.Node, len(n.Requisites))
		for i, req := range n.Requisites {
			out[i] = req
		}
		return out
	case *TemplateBlock:
		out := make([]sls.Node, len(n.Branches))
		for i, branch := range n.Branches {
			out[i] = branch
		}
		return out
	case *TemplateBranch:
		out := make([]sls.Node, len(n.Children))
		for i, child := range n.Children {
			out[i] = child
		}
		return out
	}
	return nil
}

// EnclosingCall returns the innermost call on the path to pos, if any.
func (d *Document) EnclosingCall(pos position.Position) *sls.StateCallNode {
	var call *sls.StateCallNode
	for _, node := range d.PathToPosition(pos) {
		if c, ok := node.(*sls.StateCallNode); ok {
			call = c
		}
	}
	return call
}

// TemplateChainAt returns the enclosing Block/Branch chain of the templating
// tree at pos, outermost first.
func (d *Document) TemplateChainAt(pos position.Position) []jinja.Node {
	var chain []jinja.Node
	body := d.Template.Body
	for {
		var block *jinja.BlockNode
		for _, node := range body {
			if b, ok := node.(*jinja.BlockNode); ok && b.Rng.Contains(pos) {
				block = b
			}
		}
		if block == nil {
			return chain
		}
		chain = append(chain, block)
		var branch *jinja.BranchNode
		for _, b := range block.Branches {
			if b.Rng.Contains(pos) {
				branch = b
			}
		}
		if branch == nil {
			return chain
		}
		chain = append(chain, branch)
		body = branch.Body
	}
}

// ExpressionAt returns the templating expression text under pos when the
// cursor sits inside a substitution or a statement header, in which case
// completion should offer templating symbols instead of state-document keys.
func (d *Document) ExpressionAt(pos position.Position) (string, bool) {
	for _, v := range jinja.Variables(d.Template) {
		if v.Rng.Contains(pos) {
			return v.Expression, true
		}
	}
	for _, node := range d.TemplateChainAt(pos) {
		if branch, ok := node.(*jinja.BranchNode); ok {
			header := position.NewRange(branch.Rng.Start, branch.ExpressionEnd)
			if header.Contains(pos) {
				return branch.Expression, true
			}
		}
	}
	return "", false
}

// DefectsWithin returns the defects recorded inside rng, for per-subtree
// diagnostics.
func (d *Document) DefectsWithin(rng position.Range) []diagnostic.Defect {
	var out []diagnostic.Defect
	for _, defect := range d.Defects {
		if rng.ContainsRange(defect.Range) {
			out = append(out, defect)
		}
	}
	return out
}
