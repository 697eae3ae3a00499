// Package jinja provides a fault-tolerant tokenizer, parser and obfuscating
// compiler for the templating sub-language of state files.
package jinja

import (
	"github.com/walteh/saltls/pkg/position"
)

// Node is the closed set of templating tree nodes: DataNode, VariableNode,
// BlockNode and BranchNode.
type Node interface {
	Range() position.Range
	node()
}

// DataNode is a verbatim run of non-templating text.
type DataNode struct {
	Rng  position.Range
	Data string
}

func (n *DataNode) Range() position.Range { return n.Rng }
func (n *DataNode) node()                 {}

// VariableNode is a substitution expression like "{{ grains.os }}". The
// expression text keeps its delimiters so it reads exactly as the source.
type VariableNode struct {
	Rng        position.Range
	Expression string
}

func (n *VariableNode) Range() position.Range { return n.Rng }
func (n *VariableNode) node()                 {}

// BlockNode is a compound statement ("if" or "for") made of one branch per
// arm present in source. BlockEndStart is where the closing statement begins;
// for implicitly closed blocks it equals the node end.
type BlockNode struct {
	Rng           position.Range
	Kind          string
	Branches      []*BranchNode
	BlockEndStart position.Position
}

func (n *BlockNode) Range() position.Range { return n.Rng }
func (n *BlockNode) node()                 {}

func newBlockNode(tok Token) *BlockNode {
	b := &BlockNode{Kind: tok.Kind}
	b.Rng.Start = tok.Rng.Start
	b.Branches = []*BranchNode{newBranchNode(tok)}
	return b
}

// close settles the block's end positions, from the closing statement token
// when one was found and from the last branch otherwise.
func (n *BlockNode) close(end *Token) {
	switch {
	case end != nil:
		n.BlockEndStart = end.Rng.Start
		n.Rng.End = end.Rng.End
	case len(n.Branches) > 0:
		n.Rng.End = n.Branches[len(n.Branches)-1].Rng.End
		n.BlockEndStart = n.Rng.End
	default:
		n.Rng.End = n.Rng.Start
		n.BlockEndStart = n.Rng.End
	}
}

// BranchNode is one arm of a block ("if", "elif", "else" or the loop body),
// and doubles as the synthetic root container of a parsed document. The root
// has an empty Expression.
type BranchNode struct {
	Rng           position.Range
	Expression    string
	ExpressionEnd position.Position
	Body          []Node
}

func (n *BranchNode) Range() position.Range { return n.Rng }
func (n *BranchNode) node()                 {}

func newBranchNode(tok Token) *BranchNode {
	return &BranchNode{
		Rng:           position.Range{Start: tok.Rng.Start},
		Expression:    tok.Text,
		ExpressionEnd: tok.Rng.End,
	}
}

// close settles the branch's end position from its body, falling back to the
// header expression for empty branches.
func (n *BranchNode) close() {
	zero := position.Position{}
	switch {
	case len(n.Body) > 0:
		n.Rng.End = n.Body[len(n.Body)-1].Range().End
	case n.ExpressionEnd != zero:
		n.Rng.End = n.ExpressionEnd
	default:
		n.Rng.End = n.Rng.Start
	}
	if n.ExpressionEnd == zero {
		n.ExpressionEnd = n.Rng.End
	}
}

// Variables returns every VariableNode of the tree in document order.
func Variables(root *BranchNode) []*VariableNode {
	var out []*VariableNode
	var walk func(body []Node)
	walk = func(body []Node) {
		for _, child := range body {
			switch n := child.(type) {
			case *VariableNode:
				out = append(out, n)
			case *BlockNode:
				for _, branch := range n.Branches {
					walk(branch.Body)
				}
			}
		}
	}
	walk(root.Body)
	return out
}
