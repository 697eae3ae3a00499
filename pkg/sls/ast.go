// Package sls provides a recoverable parser for the restricted state-document
// grammar: identifier-keyed entries, named calls, flat parameter lists and
// requisite references.
package sls

import (
	"strings"

	"github.com/walteh/saltls/pkg/position"
)

// Node is the closed set of state-document tree nodes. The merge step adds
// templating wrapper nodes to call child lists from outside the package, so
// the interface is deliberately satisfiable elsewhere.
type Node interface {
	Range() position.Range
}

// CallChild is a node that can appear in a call's ordered child list. The
// parser only ever produces parameters; the merge step may add templating
// wrappers that implement this interface from outside the package.
type CallChild interface {
	Node
	IsCallChild()
}

// Tree is the whole state document.
type Tree struct {
	Rng      position.Range
	Includes *IncludesNode
	Extend   *ExtendNode
	States   []*StateNode
}

func (n *Tree) Range() position.Range { return n.Rng }

// IncludesNode holds the document's include list.
type IncludesNode struct {
	Rng      position.Range
	Includes []*IncludeNode
}

func (n *IncludesNode) Range() position.Range { return n.Rng }

// IncludeNode is one dotted include reference.
type IncludeNode struct {
	Rng   position.Range
	Value string
}

func (n *IncludeNode) Range() position.Range { return n.Rng }

// ExtendNode holds the states of an "extend" declaration.
type ExtendNode struct {
	Rng    position.Range
	States []*StateNode
}

func (n *ExtendNode) Range() position.Range { return n.Rng }

// StateNode is one addressable unit of the document.
type StateNode struct {
	Rng        position.Range
	Identifier string
	Calls      []*StateCallNode
}

func (n *StateNode) Range() position.Range { return n.Rng }

// StateCallNode is a named operation like "file.managed" with its ordered
// children and requisite groups. Duplicate parameter names are preserved in
// document order: the obfuscating compiler legitimately emits one occurrence
// per templating branch.
type StateCallNode struct {
	Rng        position.Range
	Name       string
	Children   []CallChild
	Requisites []*RequisitesNode
}

func (n *StateCallNode) Range() position.Range { return n.Rng }

// Parameters returns the direct parameter children in document order.
func (n *StateCallNode) Parameters() []*StateParameterNode {
	var out []*StateParameterNode
	for _, child := range n.Children {
		if p, ok := child.(*StateParameterNode); ok {
			out = append(out, p)
		}
	}
	return out
}

// StateParameterNode is one "- name: value" entry of a call. Value is the
// scalar text as it appears in the parsed stream; ValueRng spans it.
type StateParameterNode struct {
	Rng      position.Range
	Name     string
	Value    string
	ValueRng position.Range
}

func (n *StateParameterNode) Range() position.Range { return n.Rng }
func (n *StateParameterNode) IsCallChild()          {}

// RequisitesNode is one requisite group like "- require:".
type RequisitesNode struct {
	Rng        position.Range
	Kind       string
	Requisites []*RequisiteNode
}

func (n *RequisitesNode) Range() position.Range { return n.Rng }

// RequisiteNode is one "- module: reference" entry of a requisite group.
type RequisiteNode struct {
	Rng       position.Range
	Module    string
	Reference string
}

func (n *RequisiteNode) Range() position.Range { return n.Rng }

var requisiteKinds = map[string]bool{
	"require":   true,
	"onchanges": true,
	"watch":     true,
	"listen":    true,
	"prereq":    true,
	"onfail":    true,
	"use":       true,
}

// IsRequisiteKind reports whether name is a requisite key, including the
// "_any" and "_in" variants.
func IsRequisiteKind(name string) bool {
	name = strings.TrimSuffix(name, "_any")
	name = strings.TrimSuffix(name, "_in")
	return requisiteKinds[name]
}
