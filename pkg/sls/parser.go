package sls

import (
	"strings"

	"github.com/walteh/saltls/pkg/diagnostic"
	"github.com/walteh/saltls/pkg/position"
)

// frame is one open container on the indentation stack.
type frame struct {
	indent int
	node   Node
}

type parser struct {
	tree    *Tree
	stack   []frame
	defects []diagnostic.Defect
	// lastEnd is the end of the last content line consumed, used to settle
	// container end positions when they close.
	lastEnd position.Position
}

// Parse reads a state document into a Tree. The grammar is deliberately
// restricted: top-level identifier keys, one level of named calls, flat
// "- name: value" parameter lists and requisite groups. A line that does not
// fit is skipped and recorded as a defect; a Tree is always returned.
//
// The input is normally the obfuscated stream produced by jinja.Compile, so
// every position here is an obfuscated-stream coordinate until the merge
// rewrites the tree.
func Parse(document string) (*Tree, []diagnostic.Defect) {
	p := &parser{tree: &Tree{}}
	p.stack = []frame{{indent: -1, node: p.tree}}

	for lineNo, raw := range strings.Split(document, "\n") {
		p.line(lineNo, strings.TrimSuffix(raw, "\r"))
	}

	end := position.EndOf(document, position.New(0, 0))
	p.closeTo(-1, end)
	p.tree.Rng = position.NewRange(position.New(0, 0), end)

	return p.tree, p.defects
}

func (p *parser) top() frame { return p.stack[len(p.stack)-1] }

// closeTo pops every frame at or deeper than indent, settling end positions.
func (p *parser) closeTo(indent int, end position.Position) {
	for len(p.stack) > 1 && p.top().indent >= indent {
		node := p.top().node
		p.stack = p.stack[:len(p.stack)-1]
		switch n := node.(type) {
		case *IncludesNode:
			n.Rng.End = end
		case *ExtendNode:
			n.Rng.End = end
		case *StateNode:
			n.Rng.End = end
		case *StateCallNode:
			n.Rng.End = end
		case *RequisitesNode:
			n.Rng.End = end
		}
	}
}

func (p *parser) push(indent int, node Node) {
	p.stack = append(p.stack, frame{indent: indent, node: node})
}

func (p *parser) defect(rng position.Range, msg string) {
	p.defects = append(p.defects, diagnostic.NewDefect(diagnostic.StageStateTree, rng, msg))
}

func (p *parser) line(lineNo int, line string) {
	content := strings.TrimLeft(line, " ")
	if content == "" || strings.HasPrefix(content, "#") {
		return
	}
	indent := len(line) - len(content)
	content = strings.TrimRight(content, " \t")

	start := position.New(lineNo, indent)
	lineEnd := position.New(lineNo, len(strings.TrimRight(line, " \t")))
	lineRng := position.NewRange(start, lineEnd)

	p.closeTo(indent, p.lastEnd)
	p.lastEnd = lineEnd

	if strings.HasPrefix(content, "- ") || content == "-" {
		p.listItem(lineNo, indent, content, lineRng)
		return
	}
	p.keyLine(indent, content, lineRng)
}

// keyLine handles "key:" container lines and rejects everything else.
func (p *parser) keyLine(indent int, content string, rng position.Range) {
	key, value, found := strings.Cut(content, ":")
	if !found {
		p.defect(rng, "line does not match the state grammar")
		return
	}
	if strings.TrimSpace(value) != "" {
		p.defect(rng, "scalar value outside of a parameter list")
		return
	}
	key = strings.TrimSpace(key)

	switch parent := p.top().node.(type) {
	case *Tree:
		switch key {
		case "include":
			parent.Includes = &IncludesNode{Rng: rng}
			p.push(indent, parent.Includes)
		case "extend":
			parent.Extend = &ExtendNode{Rng: rng}
			p.push(indent, parent.Extend)
		default:
			state := &StateNode{Rng: rng, Identifier: key}
			parent.States = append(parent.States, state)
			p.push(indent, state)
		}
	case *ExtendNode:
		state := &StateNode{Rng: rng, Identifier: key}
		parent.States = append(parent.States, state)
		p.push(indent, state)
	case *StateNode:
		call := &StateCallNode{Rng: rng, Name: key}
		parent.Calls = append(parent.Calls, call)
		p.push(indent, call)
	default:
		p.defect(rng, "unexpected mapping key '"+key+"'")
	}
}

// listItem handles "- ..." entries: parameters and requisite groups under a
// call, references under a requisite group, values under an include list.
func (p *parser) listItem(lineNo, indent int, content string, rng position.Range) {
	item := strings.TrimSpace(strings.TrimPrefix(content, "-"))

	switch parent := p.top().node.(type) {
	case *StateCallNode:
		name, value, found := strings.Cut(item, ":")
		name = strings.TrimSpace(name)
		trimmed := strings.TrimSpace(value)
		if found && trimmed == "" && IsRequisiteKind(name) {
			req := &RequisitesNode{Rng: rng, Kind: name}
			parent.Requisites = append(parent.Requisites, req)
			p.push(indent, req)
			return
		}
		param := &StateParameterNode{Rng: rng, Name: name, Value: trimmed}
		if found && trimmed != "" {
			col := strings.LastIndex(content, trimmed) + rng.Start.Col
			param.ValueRng = position.NewRange(
				position.New(lineNo, col),
				position.New(lineNo, col+len(trimmed)),
			)
		}
		parent.Children = append(parent.Children, param)
	case *RequisitesNode:
		module, reference, _ := strings.Cut(item, ":")
		parent.Requisites = append(parent.Requisites, &RequisiteNode{
			Rng:       rng,
			Module:    strings.TrimSpace(module),
			Reference: strings.TrimSpace(reference),
		})
	case *IncludesNode:
		parent.Includes = append(parent.Includes, &IncludeNode{Rng: rng, Value: item})
	default:
		p.defect(rng, "list entry outside of a call, requisite or include block")
	}
}
