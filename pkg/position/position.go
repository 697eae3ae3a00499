// Package position provides the line/column coordinate model shared by every
// tree in the pipeline.
package position

import (
	"fmt"
	"strings"
)

// Position is a zero-based line/column location in a document.
type Position struct {
	Line int
	Col  int
}

// Range spans from Start to End, Start <= End.
type Range struct {
	Start Position
	End   Position
}

func New(line, col int) Position {
	return Position{Line: line, Col: col}
}

func NewRange(start, end Position) Range {
	return Range{Start: start, End: end}
}

// Before reports whether p comes strictly before other in document order.
func (p Position) Before(other Position) bool {
	return p.Line < other.Line || (p.Line == other.Line && p.Col < other.Col)
}

// After reports whether p comes strictly after other in document order.
func (p Position) After(other Position) bool {
	return other.Before(p)
}

func (p Position) BeforeOrEqual(other Position) bool {
	return !other.Before(p)
}

func (p Position) AfterOrEqual(other Position) bool {
	return !p.Before(other)
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Contains reports whether pos falls inside the range, end inclusive. The
// inclusive end matters for cursor queries: a cursor sitting right after the
// last character of a node still belongs to that node.
func (r Range) Contains(pos Position) bool {
	return r.Start.BeforeOrEqual(pos) && pos.BeforeOrEqual(r.End)
}

// ContainsRange reports whether other lies entirely within r.
func (r Range) ContainsRange(other Range) bool {
	return r.Start.BeforeOrEqual(other.Start) && other.End.BeforeOrEqual(r.End)
}

// Overlaps reports whether the two ranges share at least one position.
func (r Range) Overlaps(other Range) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// FromOffset converts a byte offset into text to a Position. Offsets past the
// end of text map to the position just after the last character.
func FromOffset(text string, offset int) Position {
	if offset > len(text) {
		offset = len(text)
	}
	line, last := 0, -1
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			line++
			last = i
		}
	}
	return Position{Line: line, Col: offset - last - 1}
}

// ToOffset converts a Position back to a byte offset into text.
func ToOffset(text string, pos Position) int {
	lines := strings.SplitAfter(text, "\n")
	offset := 0
	for i := 0; i < pos.Line && i < len(lines); i++ {
		offset += len(lines[i])
	}
	return offset + pos.Col
}

// EndOf returns the position one past the last character of text, assuming
// the text itself starts at start.
func EndOf(text string, start Position) Position {
	line, col := start.Line, start.Col
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return Position{Line: line, Col: col}
}
