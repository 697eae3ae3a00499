package jinja

import (
	"regexp"
	"strings"

	"github.com/walteh/saltls/pkg/position"
)

// doubled braces would break the state-document grammar; question marks keep
// the byte length so columns stay aligned
var bracePair = regexp.MustCompile(`[{}]{2}`)

// MapEntry records where the emission of one templating node began and ended
// in the obfuscated stream. Node is a *BlockNode or a *BranchNode.
type MapEntry struct {
	Span position.Range
	Node Node
}

// PositionMap is the coordinate index from obfuscated-stream spans back into
// the templating tree that produced them. It is built once per compile, read
// during a single merge and never mutated afterwards.
type PositionMap struct {
	entries []MapEntry
	spans   map[Node]position.Range
}

// Entries returns the map entries ordered by obfuscated start position.
func (m *PositionMap) Entries() []MapEntry {
	return m.entries
}

// Span returns the obfuscated-stream span of node, if node was emitted.
func (m *PositionMap) Span(node Node) (position.Range, bool) {
	span, ok := m.spans[node]
	return span, ok
}

func (m *PositionMap) open(node Node, at position.Position) int {
	m.entries = append(m.entries, MapEntry{Span: position.Range{Start: at}, Node: node})
	return len(m.entries) - 1
}

func (m *PositionMap) close(idx int, at position.Position) {
	m.entries[idx].Span.End = at
	m.spans[m.entries[idx].Node] = m.entries[idx].Span
}

// Compile lowers a templating tree into a text stream that the state-document
// parser can read, together with the position map bridging the two coordinate
// spaces. Data is copied verbatim, variable expressions keep their length with
// braces turned into question marks, and blocks emit every branch body in
// source order since nothing is evaluated. Statement headers are not emitted;
// their trailing newlines live in the neighboring data runs, which keeps line
// numbers aligned between the two streams. Compile is a pure function of the
// tree: the same tree always yields the same text and map.
func Compile(root *BranchNode) (string, *PositionMap) {
	var out strings.Builder
	pos := position.New(0, 0)
	pmap := &PositionMap{spans: make(map[Node]position.Range)}

	emit := func(text string) {
		out.WriteString(text)
		pos = position.EndOf(text, pos)
	}

	var walkBranch func(branch *BranchNode)
	walkBody := func(body []Node) {
		for _, child := range body {
			switch n := child.(type) {
			case *DataNode:
				emit(n.Data)
			case *VariableNode:
				emit(bracePair.ReplaceAllString(n.Expression, "??"))
			case *BlockNode:
				idx := pmap.open(n, pos)
				for _, branch := range n.Branches {
					walkBranch(branch)
				}
				pmap.close(idx, pos)
			}
		}
	}
	walkBranch = func(branch *BranchNode) {
		// The root container has no header and gets no map entry.
		if branch.Expression == "" {
			walkBody(branch.Body)
			return
		}
		idx := pmap.open(branch, pos)
		walkBody(branch.Body)
		pmap.close(idx, pos)
	}

	walkBranch(root)
	return out.String(), pmap
}
