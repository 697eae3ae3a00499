package document

import (
	"github.com/walteh/saltls/pkg/diagnostic"
	"github.com/walteh/saltls/pkg/jinja"
	"github.com/walteh/saltls/pkg/position"
	"github.com/walteh/saltls/pkg/sls"
)

// TemplateBlock is a templating block re-attached into the state tree by the
// merge, wrapping the parameters its branches emitted. Positions are original
// source coordinates.
type TemplateBlock struct {
	Rng           position.Range
	Kind          string
	BlockEndStart position.Position
	Branches      []*TemplateBranch
}

func (n *TemplateBlock) Range() position.Range { return n.Rng }
func (n *TemplateBlock) IsCallChild()          {}

// TemplateBranch is one arm of a re-attached block, holding the original
// header expression and the state-tree children parsed out of its body.
type TemplateBranch struct {
	Rng           position.Range
	Expression    string
	ExpressionEnd position.Position
	Children      []sls.CallChild
}

func (n *TemplateBranch) Range() position.Range { return n.Rng }
func (n *TemplateBranch) IsCallChild()          {}

// Merge reunites the state tree parsed from the obfuscated stream with the
// templating tree that produced it. For every call, contiguous parameter runs
// that fall inside a mapped block span are replaced by Block/Branch wrappers
// carrying original source positions; parameters untouched by templating keep
// their positions, which are already correct because the compiler preserves
// line structure. Parameter values covered by a substitution expression get
// the original expression text back.
//
// A parameter that only partially overlaps a mapped span, which happens when
// state-parse recovery skipped a line, is left unmerged and flagged rather
// than attributed to a branch it may not belong to.
//
// The state tree is rewritten in place and returned as the unified tree.
func Merge(tree *sls.Tree, template *jinja.BranchNode, pmap *jinja.PositionMap) (*sls.Tree, []diagnostic.Defect) {
	m := &merger{
		pmap:      pmap,
		variables: jinja.Variables(template),
	}

	for _, state := range tree.States {
		m.mergeState(state, template.Body)
	}
	if tree.Extend != nil {
		for _, state := range tree.Extend.States {
			m.mergeState(state, template.Body)
		}
	}

	return tree, m.defects
}

type merger struct {
	pmap      *jinja.PositionMap
	variables []*jinja.VariableNode
	defects   []diagnostic.Defect
}

func (m *merger) mergeState(state *sls.StateNode, body []jinja.Node) {
	for _, call := range state.Calls {
		call.Children = m.mergeChildren(call.Children, body)
	}
}

// mergeChildren rebuilds a call child list against the blocks found at this
// nesting level of the templating tree. Children before a block span pass
// through, children inside it are grouped under a wrapper, and the scan
// continues after it, so source order is preserved throughout.
func (m *merger) mergeChildren(children []sls.CallChild, body []jinja.Node) []sls.CallChild {
	for _, child := range children {
		if param, ok := child.(*sls.StateParameterNode); ok {
			m.restoreValue(param)
		}
	}

	out := make([]sls.CallChild, 0, len(children))
	rest := children

	for _, node := range body {
		block, ok := node.(*jinja.BlockNode)
		if !ok {
			continue
		}
		span, ok := m.pmap.Span(block)
		if !ok {
			continue
		}

		var inside []sls.CallChild
		var after []sls.CallChild
		for i, child := range rest {
			rng := child.Range()
			switch {
			case span.ContainsRange(rng):
				inside = append(inside, child)
			case span.Overlaps(rng):
				m.defects = append(m.defects, diagnostic.NewDefect(
					diagnostic.StageMerge, rng,
					"entry partially overlaps a templating block, left unmerged",
				))
				out = append(out, child)
			case rng.End.BeforeOrEqual(span.Start):
				out = append(out, child)
			default:
				after = rest[i:]
			}
			if after != nil {
				break
			}
		}
		rest = after

		if len(inside) > 0 {
			wrapper, stray := m.wrapBlock(block, inside)
			out = append(out, wrapper)
			out = append(out, stray...)
		}
		if rest == nil {
			break
		}
	}

	out = append(out, rest...)
	return out
}

// wrapBlock rebuilds a block wrapper around the children emitted by its
// branches, recursing into nested blocks at finer granularity. Children that
// cannot be attributed to any branch come back as strays so the caller keeps
// them unmerged at the level above.
func (m *merger) wrapBlock(block *jinja.BlockNode, children []sls.CallChild) (*TemplateBlock, []sls.CallChild) {
	wrapper := &TemplateBlock{
		Rng:           block.Rng,
		Kind:          block.Kind,
		BlockEndStart: block.BlockEndStart,
	}

	var stray []sls.CallChild
	rest := children
	for _, branch := range block.Branches {
		span, ok := m.pmap.Span(branch)
		if !ok {
			continue
		}
		var inside []sls.CallChild
		var after []sls.CallChild
		for i, child := range rest {
			rng := child.Range()
			switch {
			case span.ContainsRange(rng):
				inside = append(inside, child)
			case span.Overlaps(rng):
				m.defects = append(m.defects, diagnostic.NewDefect(
					diagnostic.StageMerge, rng,
					"entry partially overlaps a templating branch, left unmerged",
				))
				stray = append(stray, child)
			default:
				after = rest[i:]
			}
			if after != nil {
				break
			}
		}
		rest = after

		wrapper.Branches = append(wrapper.Branches, &TemplateBranch{
			Rng:           branch.Rng,
			Expression:    branch.Expression,
			ExpressionEnd: branch.ExpressionEnd,
			Children:      m.mergeChildren(inside, branch.Body),
		})
	}

	for _, child := range rest {
		m.defects = append(m.defects, diagnostic.NewDefect(
			diagnostic.StageMerge, child.Range(),
			"entry inside a templating block matches none of its branches",
		))
		stray = append(stray, child)
	}

	return wrapper, stray
}

// restoreValue puts the original substitution expression back into a
// parameter whose value came out of the compiler as a placeholder. Variables
// record no map entry; they are found by range overlap, which works because
// obfuscation preserves line structure and placeholder byte length.
func (m *merger) restoreValue(param *sls.StateParameterNode) {
	zero := position.Range{}
	if param.ValueRng == zero {
		return
	}
	for _, v := range m.variables {
		if param.ValueRng.Overlaps(v.Rng) {
			param.Value = v.Expression
			return
		}
	}
}
